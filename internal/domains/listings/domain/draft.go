package domain

import "time"

// Parent is the draft view of a sire or dam: scalar info plus its own photos.
type Parent struct {
	ParentInfo
	Photos AttachmentSet `json:"photos"`
}

// Parents groups the sire and dam substructures.
type Parents struct {
	Sire Parent `json:"sire"`
	Dam  Parent `json:"dam"`
}

// Health carries structured vaccination records and certificate files.
type Health struct {
	Vaccinations []Vaccination `json:"vaccinations,omitempty"`
	Certificates AttachmentSet `json:"certificates"`
}

// Draft is the in-progress state of a listing being created or edited.
type Draft struct {
	Type          ListingType   `json:"type,omitempty"`
	Title         string        `json:"title,omitempty"`
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
	Photos        AttachmentSet `json:"photos"`
	Parents       Parents       `json:"parents"`
	Health        Health        `json:"health"`
}

// Attachments returns the set backing group g.
func (d Draft) Attachments(g Group) AttachmentSet {
	switch g {
	case GroupPhotos:
		return d.Photos.Clone()
	case GroupSirePhotos:
		return d.Parents.Sire.Photos.Clone()
	case GroupDamPhotos:
		return d.Parents.Dam.Photos.Clone()
	case GroupCertificates:
		return d.Health.Certificates.Clone()
	default:
		return nil
	}
}

// WithAttachments returns a copy of the draft with group g replaced.
func (d Draft) WithAttachments(g Group, set AttachmentSet) (Draft, error) {
	out := d.Clone()
	switch g {
	case GroupPhotos:
		out.Photos = set.Clone()
	case GroupSirePhotos:
		out.Parents.Sire.Photos = set.Clone()
	case GroupDamPhotos:
		out.Parents.Dam.Photos = set.Clone()
	case GroupCertificates:
		out.Health.Certificates = set.Clone()
	default:
		return d, ErrUnknownGroup
	}
	return out, nil
}

// PendingCounts reports how many pending entries each group holds.
func (d Draft) PendingCounts() map[Group]int {
	counts := map[Group]int{}
	for _, g := range AllGroups {
		if n := d.Attachments(g).PendingCount(); n > 0 {
			counts[g] = n
		}
	}
	return counts
}

// Clone deep-copies the draft. Blobs are shared.
func (d Draft) Clone() Draft {
	clone := d
	clone.BirthDate = cloneTime(d.BirthDate)
	clone.AvailableDate = cloneTime(d.AvailableDate)
	if d.Price != nil {
		price := *d.Price
		clone.Price = &price
	}
	clone.Photos = d.Photos.Clone()
	clone.Parents.Sire.Photos = d.Parents.Sire.Photos.Clone()
	clone.Parents.Dam.Photos = d.Parents.Dam.Photos.Clone()
	clone.Health.Vaccinations = cloneVaccinations(d.Health.Vaccinations)
	clone.Health.Certificates = d.Health.Certificates.Clone()
	return clone
}

// Fields extracts the scalar payload of the draft, omitting attachments.
func (d Draft) Fields() ListingFields {
	fields := ListingFields{
		Type:          d.Type,
		Title:         d.Title,
		Description:   d.Description,
		BreedID:       d.BreedID,
		BirthDate:     d.BirthDate,
		AvailableDate: d.AvailableDate,
		PuppyCount:    d.PuppyCount,
		PetName:       d.PetName,
		AgeText:       d.AgeText,
		Gender:        d.Gender,
		Price:         d.Price,
		Location:      d.Location,
		Sire:          d.Parents.Sire.ParentInfo,
		Dam:           d.Parents.Dam.ParentInfo,
		Vaccinations:  d.Health.Vaccinations,
	}
	return fields.Clone()
}

// DraftFromListing seeds a draft from a persisted listing. Every attachment
// in the result is remote.
func DraftFromListing(l *Listing) Draft {
	if l == nil {
		return Draft{}
	}
	f := l.ListingFields.Clone()
	return Draft{
		Type:          f.Type,
		Title:         f.Title,
		Description:   f.Description,
		BreedID:       f.BreedID,
		BirthDate:     f.BirthDate,
		AvailableDate: f.AvailableDate,
		PuppyCount:    f.PuppyCount,
		PetName:       f.PetName,
		AgeText:       f.AgeText,
		Gender:        f.Gender,
		Price:         f.Price,
		Location:      f.Location,
		Photos:        RemoteSet(l.Media.Photos...),
		Parents: Parents{
			Sire: Parent{ParentInfo: f.Sire, Photos: RemoteSet(l.Media.SirePhotos...)},
			Dam:  Parent{ParentInfo: f.Dam, Photos: RemoteSet(l.Media.DamPhotos...)},
		},
		Health: Health{
			Vaccinations: f.Vaccinations,
			Certificates: RemoteSet(l.Media.Certificates...),
		},
	}
}

// ListingFieldsFromDraft builds the scalar create/update payload of a draft.
func ListingFieldsFromDraft(d Draft) ListingFields {
	return d.Fields()
}
