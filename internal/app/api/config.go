package api

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.temporal.io/sdk/client"
	"gopkg.in/yaml.v3"

	s3store "github.com/Apurer/go-gin-listings-api/internal/domains/listings/adapters/objectstore/s3"
)

// Driver names accepted by OBJECT_STORE_DRIVER and DRAFT_CACHE_DRIVER.
const (
	DriverMemory = "memory"
	DriverS3     = "s3"
	DriverSQLite = "sqlite"
)

// Config carries environment-driven settings for the API process. A YAML
// file named by LISTINGS_CONFIG_FILE may supply the same values; environment
// variables win over the file.
type Config struct {
	Port              string `yaml:"port"`
	PostgresDSN       string `yaml:"postgresDsn"`
	TemporalAddress   string `yaml:"temporalAddress"`
	TemporalNamespace string `yaml:"temporalNamespace"`
	TemporalDisabled  bool   `yaml:"temporalDisabled"`

	ObjectStoreDriver string   `yaml:"objectStoreDriver"`
	S3                S3Config `yaml:"s3"`

	DraftCacheDriver string `yaml:"draftCacheDriver"`
	DraftCachePath   string `yaml:"draftCachePath"`

	Listings ListingsConfig `yaml:"listings"`
}

// S3Config mirrors the S3 adapter settings.
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"accessKeyId"`
	SecretAccessKey string `yaml:"secretAccessKey"`
	PathStyle       bool   `yaml:"pathStyle"`
	Prefix          string `yaml:"prefix"`
	PublicBaseURL   string `yaml:"publicBaseUrl"`
}

// ListingsConfig tunes the submission flow.
type ListingsConfig struct {
	BatchDeletes      bool          `yaml:"batchDeletes"`
	CompensateUploads bool          `yaml:"compensateUploads"`
	UploadConcurrency int           `yaml:"uploadConcurrency"`
	SubmitTimeout     time.Duration `yaml:"submitTimeout"`
	MaxUploadBytes    int64         `yaml:"maxUploadBytes"`
	// SessionIdleTTL evicts wizard sessions untouched for this long. Zero
	// keeps them until they are submitted or discarded.
	SessionIdleTTL    time.Duration `yaml:"sessionIdleTTL"`
}

// Adapter converts the settings into the S3 adapter config.
func (c S3Config) Adapter() s3store.Config {
	return s3store.Config{
		Bucket:          c.Bucket,
		Region:          c.Region,
		Endpoint:        c.Endpoint,
		AccessKeyID:     c.AccessKeyID,
		SecretAccessKey: c.SecretAccessKey,
		PathStyle:       c.PathStyle,
		Prefix:          c.Prefix,
		PublicBaseURL:   c.PublicBaseURL,
	}
}

func defaultConfig() Config {
	return Config{
		Port:              "8080",
		TemporalAddress:   client.DefaultHostPort,
		TemporalNamespace: client.DefaultNamespace,
		ObjectStoreDriver: DriverMemory,
		DraftCacheDriver:  DriverMemory,
		DraftCachePath:    "listing-drafts.db",
		Listings: ListingsConfig{
			UploadConcurrency: 4,
			SubmitTimeout:     2 * time.Minute,
			MaxUploadBytes:    10 << 20,
			SessionIdleTTL:    24 * time.Hour,
		},
	}
}

// LoadConfig reads the optional YAML file and environment variables, applies
// defaults, and validates basic constraints.
func LoadConfig() (Config, error) {
	cfg := defaultConfig()
	if path := strings.TrimSpace(os.Getenv("LISTINGS_CONFIG_FILE")); path != "" {
		if err := overlayFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	if err := overlayEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func overlayFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func overlayEnv(cfg *Config) error {
	setString(&cfg.Port, "PORT")
	setString(&cfg.PostgresDSN, "POSTGRES_DSN")
	setString(&cfg.TemporalAddress, "TEMPORAL_ADDRESS")
	setString(&cfg.TemporalNamespace, "TEMPORAL_NAMESPACE")
	setBool(&cfg.TemporalDisabled, "TEMPORAL_DISABLED")

	setString(&cfg.ObjectStoreDriver, "OBJECT_STORE_DRIVER")
	setString(&cfg.S3.Bucket, "S3_BUCKET")
	setString(&cfg.S3.Region, "S3_REGION")
	setString(&cfg.S3.Endpoint, "S3_ENDPOINT")
	setString(&cfg.S3.AccessKeyID, "S3_ACCESS_KEY_ID")
	setString(&cfg.S3.SecretAccessKey, "S3_SECRET_ACCESS_KEY")
	setBool(&cfg.S3.PathStyle, "S3_PATH_STYLE")
	setString(&cfg.S3.Prefix, "S3_PREFIX")
	setString(&cfg.S3.PublicBaseURL, "S3_PUBLIC_BASE_URL")

	setString(&cfg.DraftCacheDriver, "DRAFT_CACHE_DRIVER")
	setString(&cfg.DraftCachePath, "DRAFT_CACHE_PATH")

	setBool(&cfg.Listings.BatchDeletes, "LISTINGS_BATCH_DELETES")
	setBool(&cfg.Listings.CompensateUploads, "LISTINGS_COMPENSATE_UPLOADS")
	if raw := strings.TrimSpace(os.Getenv("LISTINGS_UPLOAD_CONCURRENCY")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return fmt.Errorf("LISTINGS_UPLOAD_CONCURRENCY must be a positive integer")
		}
		cfg.Listings.UploadConcurrency = n
	}
	if raw := strings.TrimSpace(os.Getenv("LISTINGS_SUBMIT_TIMEOUT")); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return fmt.Errorf("LISTINGS_SUBMIT_TIMEOUT must be a positive duration")
		}
		cfg.Listings.SubmitTimeout = d
	}
	if raw := strings.TrimSpace(os.Getenv("LISTINGS_SESSION_IDLE_TTL")); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			return fmt.Errorf("LISTINGS_SESSION_IDLE_TTL must be a non-negative duration")
		}
		cfg.Listings.SessionIdleTTL = d
	}
	if raw := strings.TrimSpace(os.Getenv("LISTINGS_MAX_UPLOAD_BYTES")); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			return fmt.Errorf("LISTINGS_MAX_UPLOAD_BYTES must be a positive integer")
		}
		cfg.Listings.MaxUploadBytes = n
	}
	return nil
}

func (c Config) validate() error {
	switch c.ObjectStoreDriver {
	case DriverMemory:
	case DriverS3:
		if strings.TrimSpace(c.S3.Bucket) == "" {
			return errors.New("S3_BUCKET is required when OBJECT_STORE_DRIVER=s3")
		}
	default:
		return fmt.Errorf("unknown OBJECT_STORE_DRIVER %q", c.ObjectStoreDriver)
	}
	switch c.DraftCacheDriver {
	case DriverMemory, DriverSQLite:
	default:
		return fmt.Errorf("unknown DRAFT_CACHE_DRIVER %q", c.DraftCacheDriver)
	}
	if c.Listings.UploadConcurrency <= 0 {
		return errors.New("upload concurrency must be positive")
	}
	if c.Listings.SubmitTimeout <= 0 {
		return errors.New("submit timeout must be positive")
	}
	if c.Listings.SessionIdleTTL < 0 {
		return errors.New("session idle TTL must not be negative")
	}
	return nil
}

func setString(dst *string, key string) {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		*dst = val
	}
}

func setBool(dst *bool, key string) {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		*dst = isTruthy(val)
	}
}

func isTruthy(value string) bool {
	value = strings.TrimSpace(strings.ToLower(value))
	return value == "1" || value == "true" || value == "yes"
}
