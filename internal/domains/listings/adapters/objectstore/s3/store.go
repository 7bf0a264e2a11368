package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/Apurer/go-gin-listings-api/internal/domains/listings/ports"
)

// MaxDeleteBatch is the largest key count a single DeleteObjects call accepts.
const MaxDeleteBatch = 1000

var _ ports.ObjectStore = (*Store)(nil)

// Store persists listing media in a single S3-compatible bucket (AWS S3 or MinIO).
type Store struct {
	client     *s3.Client
	bucket     string
	prefix     string
	publicBase string
}

// Config holds construction parameters. Empty credentials fall back to the
// default AWS chain.
type Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PathStyle       bool
	// Prefix is prepended to every object key. Defaults to "listings".
	Prefix string
	// PublicBaseURL, when set, makes references public URLs instead of s3:// URIs.
	PublicBaseURL string
}

// New creates an S3 object store from Config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewWithClient(client, cfg), nil
}

// NewWithClient wraps an already configured client.
func NewWithClient(client *s3.Client, cfg Config) *Store {
	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix == "" {
		prefix = "listings"
	}
	return &Store{
		client:     client,
		bucket:     cfg.Bucket,
		prefix:     prefix,
		publicBase: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}
}

// Upload writes the blob under <prefix>/<group>/<uuid>-<name> and returns its reference.
func (s *Store) Upload(ctx context.Context, req ports.UploadRequest) (string, error) {
	if req.Blob == nil || len(req.Blob.Data) == 0 {
		return "", errors.New("blob is empty")
	}
	key := s.objectKey(req)
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(req.Blob.Data),
	}
	if req.Blob.ContentType != "" {
		input.ContentType = aws.String(req.Blob.ContentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	return s.reference(key), nil
}

// DeleteMany removes refs with DeleteObjects, chunked by MaxDeleteBatch. Any
// per-key error fails the whole call.
func (s *Store) DeleteMany(ctx context.Context, refs []string) error {
	keys := make([]string, 0, len(refs))
	for _, ref := range refs {
		key, err := s.keyFor(ref)
		if err != nil {
			return err
		}
		keys = append(keys, key)
	}
	for start := 0; start < len(keys); start += MaxDeleteBatch {
		end := min(start+MaxDeleteBatch, len(keys))
		objects := make([]s3types.ObjectIdentifier, 0, end-start)
		for _, key := range keys[start:end] {
			objects = append(objects, s3types.ObjectIdentifier{Key: aws.String(key)})
		}
		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &s3types.Delete{Objects: objects, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("delete objects: %w", err)
		}
		if len(out.Errors) > 0 {
			first := out.Errors[0]
			return fmt.Errorf("delete objects: %d of %d keys failed, first %s: %s",
				len(out.Errors), len(objects), aws.ToString(first.Key), aws.ToString(first.Code))
		}
	}
	return nil
}

func (s *Store) objectKey(req ports.UploadRequest) string {
	group := req.Group.Slug()
	if group == "" {
		group = "misc"
	}
	name := sanitizeName(req.OriginalName)
	id := uuid.NewString()
	if name != "" {
		id = id + "-" + name
	}
	return path.Join(s.prefix, group, id)
}

func (s *Store) reference(key string) string {
	if s.publicBase != "" {
		return s.publicBase + "/" + key
	}
	return "s3://" + s.bucket + "/" + key
}

// keyFor maps a reference produced by this store back to its object key.
// Bare keys are accepted as-is.
func (s *Store) keyFor(ref string) (string, error) {
	switch {
	case s.publicBase != "" && strings.HasPrefix(ref, s.publicBase+"/"):
		return strings.TrimPrefix(ref, s.publicBase+"/"), nil
	case strings.HasPrefix(ref, "s3://"+s.bucket+"/"):
		return strings.TrimPrefix(ref, "s3://"+s.bucket+"/"), nil
	case strings.Contains(ref, "://"):
		return "", fmt.Errorf("reference %q does not belong to bucket %s", ref, s.bucket)
	case ref == "":
		return "", errors.New("empty reference")
	default:
		return strings.TrimPrefix(ref, "/"), nil
	}
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func sanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	name = unsafeName.ReplaceAllString(name, "_")
	if len(name) > 80 {
		name = name[len(name)-80:]
	}
	return strings.Trim(name, "_")
}
