package migrations

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Run applies the listings schema. Intended to replace adapter-level automigrate.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	return db.AutoMigrate(
		&listingRecord{},
		&orphanRecord{},
	)
}

// Listing schema mirrors the listings Postgres adapter.
type listingRecord struct {
	ID            string         `gorm:"primaryKey;column:id;size:36"`
	OwnerID       string         `gorm:"column:owner_id;index"`
	Type          string         `gorm:"column:type;type:varchar(16);index"`
	Title         string         `gorm:"column:title"`
	Description   string         `gorm:"column:description"`
	BreedID       string         `gorm:"column:breed_id;index"`
	BirthDate     *time.Time     `gorm:"column:birth_date"`
	AvailableDate *time.Time     `gorm:"column:available_date"`
	PuppyCount    int            `gorm:"column:puppy_count"`
	PetName       string         `gorm:"column:pet_name"`
	AgeText       string         `gorm:"column:age_text"`
	Gender        string         `gorm:"column:gender;type:varchar(16)"`
	Price         *float64       `gorm:"column:price"`
	Location      string         `gorm:"column:location"`
	SireName      string         `gorm:"column:sire_name"`
	SireBreedID   string         `gorm:"column:sire_breed_id"`
	DamName       string         `gorm:"column:dam_name"`
	DamBreedID    string         `gorm:"column:dam_breed_id"`
	Vaccinations  string         `gorm:"column:vaccinations;type:text"`
	Photos        pq.StringArray `gorm:"column:photos;type:text[]"`
	SirePhotos    pq.StringArray `gorm:"column:sire_photos;type:text[]"`
	DamPhotos     pq.StringArray `gorm:"column:dam_photos;type:text[]"`
	Certificates  pq.StringArray `gorm:"column:certificates;type:text[]"`
	CreatedAt     time.Time      `gorm:"column:created_at;index"`
	UpdatedAt     time.Time      `gorm:"column:updated_at;index"`
}

func (listingRecord) TableName() string { return "listings" }

// Orphan schema mirrors the orphan ledger; at most one pending row per reference.
type orphanRecord struct {
	ID        string     `gorm:"primaryKey;column:id;size:36"`
	Reference string     `gorm:"column:reference;uniqueIndex:idx_media_orphans_pending_ref,where:reaped_at IS NULL"`
	Reason    string     `gorm:"column:reason;type:varchar(32)"`
	Attempts  int        `gorm:"column:attempts"`
	ReapedAt  *time.Time `gorm:"column:reaped_at;index"`
	CreatedAt time.Time  `gorm:"column:created_at;index"`
	UpdatedAt time.Time  `gorm:"column:updated_at"`
}

func (orphanRecord) TableName() string { return "media_orphans" }
