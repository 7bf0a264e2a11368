package domain

import (
	"errors"
	"strings"
	"time"
)

// ListingType discriminates litter listings from single pet listings.
type ListingType string

const (
	TypeLitter    ListingType = "litter"
	TypeSinglePet ListingType = "single_pet"
)

// Valid reports whether t is a known listing type.
func (t ListingType) Valid() bool {
	return t == TypeLitter || t == TypeSinglePet
}

var (
	ErrEmptyTitle  = errors.New("listing title is required")
	ErrInvalidType = errors.New("listing type must be litter or single_pet")
	ErrEmptyID     = errors.New("listing id is required")
)

// Vaccination is a structured health record; it carries no files.
type Vaccination struct {
	Name  string     `json:"name"`
	Date  *time.Time `json:"date,omitempty"`
	Notes string     `json:"notes,omitempty"`
}

// ParentInfo holds the scalar description of a sire or dam.
type ParentInfo struct {
	Name    string `json:"name,omitempty"`
	BreedID string `json:"breed_id,omitempty"`
}

// ListingFields are the scalar fields shared by drafts and persisted listings.
type ListingFields struct {
	Type          ListingType   `json:"type"`
	Title         string        `json:"title"`
	Description   string        `json:"description,omitempty"`
	BreedID       string        `json:"breed_id,omitempty"`
	BirthDate     *time.Time    `json:"birth_date,omitempty"`
	AvailableDate *time.Time    `json:"available_date,omitempty"`
	PuppyCount    int           `json:"puppy_count,omitempty"`
	PetName       string        `json:"pet_name,omitempty"`
	AgeText       string        `json:"age_text,omitempty"`
	Gender        string        `json:"gender,omitempty"`
	Price         *float64      `json:"price,omitempty"`
	Location      string        `json:"location,omitempty"`
	Sire          ParentInfo    `json:"sire"`
	Dam           ParentInfo    `json:"dam"`
	Vaccinations  []Vaccination `json:"vaccinations,omitempty"`
}

// Validate enforces the invariants the resource backend relies on.
func (f ListingFields) Validate() error {
	if !f.Type.Valid() {
		return ErrInvalidType
	}
	if strings.TrimSpace(f.Title) == "" {
		return ErrEmptyTitle
	}
	return nil
}

// Clone deep-copies pointer and slice members.
func (f ListingFields) Clone() ListingFields {
	clone := f
	clone.BirthDate = cloneTime(f.BirthDate)
	clone.AvailableDate = cloneTime(f.AvailableDate)
	if f.Price != nil {
		price := *f.Price
		clone.Price = &price
	}
	clone.Vaccinations = cloneVaccinations(f.Vaccinations)
	return clone
}

// Media holds the persisted reference lists of every attachment group.
type Media struct {
	Photos       []string `json:"photos"`
	SirePhotos   []string `json:"sire_photos"`
	DamPhotos    []string `json:"dam_photos"`
	Certificates []string `json:"certificates"`
}

// Group returns a copy of the references stored for g.
func (m Media) Group(g Group) []string {
	switch g {
	case GroupPhotos:
		return append([]string{}, m.Photos...)
	case GroupSirePhotos:
		return append([]string{}, m.SirePhotos...)
	case GroupDamPhotos:
		return append([]string{}, m.DamPhotos...)
	case GroupCertificates:
		return append([]string{}, m.Certificates...)
	default:
		return nil
	}
}

// SetGroup replaces the references stored for g.
func (m *Media) SetGroup(g Group, refs []string) error {
	copied := append([]string{}, refs...)
	switch g {
	case GroupPhotos:
		m.Photos = copied
	case GroupSirePhotos:
		m.SirePhotos = copied
	case GroupDamPhotos:
		m.DamPhotos = copied
	case GroupCertificates:
		m.Certificates = copied
	default:
		return ErrUnknownGroup
	}
	return nil
}

// Listing is the persisted resource. In edit mode it doubles as the Original
// Snapshot and is never mutated by the wizard.
type Listing struct {
	ID      string
	OwnerID string
	ListingFields
	Media Media
}

// Clone returns a deep copy of the listing.
func (l *Listing) Clone() *Listing {
	if l == nil {
		return nil
	}
	clone := *l
	clone.ListingFields = l.ListingFields.Clone()
	for _, g := range AllGroups {
		_ = clone.Media.SetGroup(g, l.Media.Group(g))
	}
	return &clone
}

// ListingPatch describes a partial update of a persisted listing. A nil
// Fields leaves scalars untouched; each present Media entry replaces the
// references stored at that group's nested path.
type ListingPatch struct {
	Fields *ListingFields
	Media  map[Group][]string
}

// Apply mutates the listing in place according to the patch.
func (p ListingPatch) Apply(target *Listing) error {
	if target == nil {
		return ErrEmptyID
	}
	if p.Fields != nil {
		if err := p.Fields.Validate(); err != nil {
			return err
		}
		target.ListingFields = p.Fields.Clone()
	}
	for group, refs := range p.Media {
		if err := target.Media.SetGroup(group, refs); err != nil {
			return err
		}
	}
	return nil
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneVaccinations(list []Vaccination) []Vaccination {
	if list == nil {
		return nil
	}
	out := make([]Vaccination, 0, len(list))
	for _, v := range list {
		v.Date = cloneTime(v.Date)
		out = append(out, v)
	}
	return out
}
