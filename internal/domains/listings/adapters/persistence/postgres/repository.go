package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/Apurer/go-gin-listings-api/internal/domains/listings/domain"
	"github.com/Apurer/go-gin-listings-api/internal/domains/listings/ports"
	"github.com/Apurer/go-gin-listings-api/internal/shared/projection"
)

var _ ports.Repository = (*Repository)(nil)

// Repository persists listings in PostgreSQL using GORM.
type Repository struct {
	db *gorm.DB
}

// NewRepository wires a PostgreSQL-backed repository. Caller manages DB lifecycle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// listingRecord maps the listing aggregate to a relational table. Each
// attachment group is its own text[] column.
type listingRecord struct {
	ID            string               `gorm:"primaryKey;column:id;size:36"`
	OwnerID       string               `gorm:"column:owner_id;index"`
	Type          string               `gorm:"column:type;type:varchar(16);index"`
	Title         string               `gorm:"column:title"`
	Description   string               `gorm:"column:description"`
	BreedID       string               `gorm:"column:breed_id;index"`
	BirthDate     *time.Time           `gorm:"column:birth_date"`
	AvailableDate *time.Time           `gorm:"column:available_date"`
	PuppyCount    int                  `gorm:"column:puppy_count"`
	PetName       string               `gorm:"column:pet_name"`
	AgeText       string               `gorm:"column:age_text"`
	Gender        string               `gorm:"column:gender;type:varchar(16)"`
	Price         *float64             `gorm:"column:price"`
	Location      string               `gorm:"column:location"`
	SireName      string               `gorm:"column:sire_name"`
	SireBreedID   string               `gorm:"column:sire_breed_id"`
	DamName       string               `gorm:"column:dam_name"`
	DamBreedID    string               `gorm:"column:dam_breed_id"`
	Vaccinations  []domain.Vaccination `gorm:"column:vaccinations;type:text;serializer:json"`
	Photos        pq.StringArray       `gorm:"column:photos;type:text[]"`
	SirePhotos    pq.StringArray       `gorm:"column:sire_photos;type:text[]"`
	DamPhotos     pq.StringArray       `gorm:"column:dam_photos;type:text[]"`
	Certificates  pq.StringArray       `gorm:"column:certificates;type:text[]"`
	CreatedAt     time.Time            `gorm:"column:created_at;index"`
	UpdatedAt     time.Time            `gorm:"column:updated_at;index"`
}

func (listingRecord) TableName() string { return "listings" }

var mediaColumns = map[domain.Group]string{
	domain.GroupPhotos:       "photos",
	domain.GroupSirePhotos:   "sire_photos",
	domain.GroupDamPhotos:    "dam_photos",
	domain.GroupCertificates: "certificates",
}

// Create inserts a listing with empty media columns.
func (r *Repository) Create(ctx context.Context, ownerID string, fields domain.ListingFields) (*projection.Projection[*domain.Listing], error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if err := fields.Validate(); err != nil {
		return nil, err
	}
	record := toRecord(&domain.Listing{ID: uuid.NewString(), OwnerID: ownerID, ListingFields: fields})
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, err
	}
	return r.GetByID(ctx, record.ID)
}

// Update writes only the columns the patch names.
func (r *Repository) Update(ctx context.Context, id string, patch domain.ListingPatch) (*projection.Projection[*domain.Listing], error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	updates := map[string]any{"updated_at": gorm.Expr("NOW()")}
	if patch.Fields != nil {
		if err := patch.Fields.Validate(); err != nil {
			return nil, err
		}
		rec := toRecord(&domain.Listing{ListingFields: *patch.Fields})
		for column, value := range map[string]any{
			"type":           rec.Type,
			"title":          rec.Title,
			"description":    rec.Description,
			"breed_id":       rec.BreedID,
			"birth_date":     rec.BirthDate,
			"available_date": rec.AvailableDate,
			"puppy_count":    rec.PuppyCount,
			"pet_name":       rec.PetName,
			"age_text":       rec.AgeText,
			"gender":         rec.Gender,
			"price":          rec.Price,
			"location":       rec.Location,
			"sire_name":      rec.SireName,
			"sire_breed_id":  rec.SireBreedID,
			"dam_name":       rec.DamName,
			"dam_breed_id":   rec.DamBreedID,
		} {
			updates[column] = value
		}
		vaccinations, err := encodeVaccinations(rec.Vaccinations)
		if err != nil {
			return nil, err
		}
		updates["vaccinations"] = vaccinations
	}
	for group, refs := range patch.Media {
		column, ok := mediaColumns[group]
		if !ok {
			return nil, domain.ErrUnknownGroup
		}
		updates[column] = pq.StringArray(append([]string{}, refs...))
	}

	result := r.db.WithContext(ctx).Model(&listingRecord{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ports.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// GetByID fetches a listing by identifier.
func (r *Repository) GetByID(ctx context.Context, id string) (*projection.Projection[*domain.Listing], error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var record listingRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return projection.New(record.toDomain(), record.CreatedAt, record.UpdatedAt), nil
}

func (r *Repository) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("postgres listing repository not configured")
	}
	return nil
}

func toRecord(l *domain.Listing) listingRecord {
	return listingRecord{
		ID:            l.ID,
		OwnerID:       l.OwnerID,
		Type:          string(l.Type),
		Title:         l.Title,
		Description:   l.Description,
		BreedID:       l.BreedID,
		BirthDate:     l.BirthDate,
		AvailableDate: l.AvailableDate,
		PuppyCount:    l.PuppyCount,
		PetName:       l.PetName,
		AgeText:       l.AgeText,
		Gender:        l.Gender,
		Price:         l.Price,
		Location:      l.Location,
		SireName:      l.Sire.Name,
		SireBreedID:   l.Sire.BreedID,
		DamName:       l.Dam.Name,
		DamBreedID:    l.Dam.BreedID,
		Vaccinations:  l.Vaccinations,
		Photos:        pq.StringArray(nonNil(l.Media.Photos)),
		SirePhotos:    pq.StringArray(nonNil(l.Media.SirePhotos)),
		DamPhotos:     pq.StringArray(nonNil(l.Media.DamPhotos)),
		Certificates:  pq.StringArray(nonNil(l.Media.Certificates)),
	}
}

func (r listingRecord) toDomain() *domain.Listing {
	return &domain.Listing{
		ID:      r.ID,
		OwnerID: r.OwnerID,
		ListingFields: domain.ListingFields{
			Type:          domain.ListingType(r.Type),
			Title:         r.Title,
			Description:   r.Description,
			BreedID:       r.BreedID,
			BirthDate:     r.BirthDate,
			AvailableDate: r.AvailableDate,
			PuppyCount:    r.PuppyCount,
			PetName:       r.PetName,
			AgeText:       r.AgeText,
			Gender:        r.Gender,
			Price:         r.Price,
			Location:      r.Location,
			Sire:          domain.ParentInfo{Name: r.SireName, BreedID: r.SireBreedID},
			Dam:           domain.ParentInfo{Name: r.DamName, BreedID: r.DamBreedID},
			Vaccinations:  r.Vaccinations,
		},
		Media: domain.Media{
			Photos:       nonNil(r.Photos),
			SirePhotos:   nonNil(r.SirePhotos),
			DamPhotos:    nonNil(r.DamPhotos),
			Certificates: nonNil(r.Certificates),
		},
	}
}

// encodeVaccinations renders the json serializer's column value for map updates.
func encodeVaccinations(list []domain.Vaccination) (string, error) {
	if list == nil {
		list = []domain.Vaccination{}
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func nonNil(refs []string) []string {
	if refs == nil {
		return []string{}
	}
	return append([]string{}, refs...)
}
