package types

import (
	"time"

	"github.com/Apurer/go-gin-listings-api/internal/domains/listings/domain"
)

// DraftPatch is a partial draft update. Nil pointers leave the current value
// alone; non-nil attachment sets replace the whole group. Nested parent and
// health sections merge field by field so siblings are never clobbered.
type DraftPatch struct {
	Type          *domain.ListingType
	Title         *string
	Description   *string
	BreedID       *string
	BirthDate     *time.Time
	AvailableDate *time.Time
	PuppyCount    *int
	PetName       *string
	AgeText       *string
	Gender        *string
	Price         *float64
	Location      *string
	Photos        *domain.AttachmentSet
	Sire          *ParentPatch
	Dam           *ParentPatch
	Health        *HealthPatch

	ClearPrice         bool
	ClearBirthDate     bool
	ClearAvailableDate bool
}

// ParentPatch updates one parent substructure.
type ParentPatch struct {
	Name    *string
	BreedID *string
	Photos  *domain.AttachmentSet
}

// HealthPatch updates the health substructure. Vaccinations replace as a list.
type HealthPatch struct {
	Vaccinations *[]domain.Vaccination
	Certificates *domain.AttachmentSet
}

// SetGroup returns a patch replacing a single attachment group.
func SetGroup(group domain.Group, set domain.AttachmentSet) (DraftPatch, error) {
	set = set.Clone()
	switch group {
	case domain.GroupPhotos:
		return DraftPatch{Photos: &set}, nil
	case domain.GroupSirePhotos:
		return DraftPatch{Sire: &ParentPatch{Photos: &set}}, nil
	case domain.GroupDamPhotos:
		return DraftPatch{Dam: &ParentPatch{Photos: &set}}, nil
	case domain.GroupCertificates:
		return DraftPatch{Health: &HealthPatch{Certificates: &set}}, nil
	default:
		return DraftPatch{}, domain.ErrUnknownGroup
	}
}

// LoadResult reports what a draft load recovered from the cache.
type LoadResult struct {
	Draft domain.Draft
	// Restored is true when a cached draft was found and decoded.
	Restored bool
	// LostMedia counts the pending attachments per group that were selected
	// before the restart and could not be restored.
	LostMedia map[domain.Group]int
}
