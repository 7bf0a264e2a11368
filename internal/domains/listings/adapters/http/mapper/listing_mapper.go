package mapper

import (
	"errors"
	"fmt"
	"strings"
	"time"

	listingtypes "github.com/Apurer/go-gin-listings-api/internal/domains/listings/application/types"
	"github.com/Apurer/go-gin-listings-api/internal/domains/listings/domain"
)

const dateLayout = "2006-01-02"

var (
	errInvalidDate       = errors.New("dates must be YYYY-MM-DD or RFC 3339")
	errUnknownAttachment = errors.New("attachment key not present in draft")
)

// Parent is the HTTP representation of a sire or dam.
type Parent struct {
	Name    string       `json:"name,omitempty"`
	BreedID string       `json:"breedId,omitempty"`
	Photos  []Attachment `json:"photos,omitempty"`
}

// Vaccination is the HTTP representation of a vaccination record.
type Vaccination struct {
	Name  string `json:"name"`
	Date  string `json:"date,omitempty"`
	Notes string `json:"notes,omitempty"`
}

// Media lists the persisted references of a listing by group.
type Media struct {
	Photos       []string `json:"photos"`
	SirePhotos   []string `json:"sirePhotos"`
	DamPhotos    []string `json:"damPhotos"`
	Certificates []string `json:"certificates"`
}

// Listing is the HTTP representation of a persisted listing.
type Listing struct {
	ID            string        `json:"id"`
	OwnerID       string        `json:"ownerId,omitempty"`
	Type          string        `json:"type"`
	Title         string        `json:"title"`
	Description   string        `json:"description,omitempty"`
	BreedID       string        `json:"breedId,omitempty"`
	BirthDate     string        `json:"birthDate,omitempty"`
	AvailableDate string        `json:"availableDate,omitempty"`
	PuppyCount    int           `json:"puppyCount,omitempty"`
	PetName       string        `json:"petName,omitempty"`
	AgeText       string        `json:"ageText,omitempty"`
	Gender        string        `json:"gender,omitempty"`
	Price         *float64      `json:"price,omitempty"`
	Location      string        `json:"location,omitempty"`
	Sire          Parent        `json:"sire"`
	Dam           Parent        `json:"dam"`
	Vaccinations  []Vaccination `json:"vaccinations,omitempty"`
	Media         Media         `json:"media"`
	CreatedAt     time.Time     `json:"createdAt,omitempty"`
	UpdatedAt     time.Time     `json:"updatedAt,omitempty"`
}

// Attachment describes one entry of a draft attachment group.
type Attachment struct {
	Key          string `json:"key"`
	Kind         string `json:"kind"`
	Reference    string `json:"reference,omitempty"`
	OriginalName string `json:"originalName,omitempty"`
	ContentType  string `json:"contentType,omitempty"`
	Size         int64  `json:"size,omitempty"`
}

// Draft is the HTTP representation of the in-progress draft.
type Draft struct {
	Type          string        `json:"type,omitempty"`
	Title         string        `json:"title,omitempty"`
	Description   string        `json:"description,omitempty"`
	BreedID       string        `json:"breedId,omitempty"`
	BirthDate     string        `json:"birthDate,omitempty"`
	AvailableDate string        `json:"availableDate,omitempty"`
	PuppyCount    int           `json:"puppyCount,omitempty"`
	PetName       string        `json:"petName,omitempty"`
	AgeText       string        `json:"ageText,omitempty"`
	Gender        string        `json:"gender,omitempty"`
	Price         *float64      `json:"price,omitempty"`
	Location      string        `json:"location,omitempty"`
	Photos        []Attachment  `json:"photos"`
	Sire          Parent        `json:"sire"`
	Dam           Parent        `json:"dam"`
	Vaccinations  []Vaccination `json:"vaccinations,omitempty"`
	Certificates  []Attachment  `json:"certificates"`
}

// Step describes one wizard step.
type Step struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Label string `json:"label"`
}

// Session is the wizard state returned by every session endpoint.
type Session struct {
	SessionID  string         `json:"sessionId"`
	Mode       string         `json:"mode"`
	ListingID  string         `json:"listingId,omitempty"`
	Step       Step           `json:"step"`
	Steps      []Step         `json:"steps"`
	CanAdvance bool           `json:"canAdvance"`
	Ready      bool           `json:"ready"`
	Blocking   string         `json:"blocking,omitempty"`
	Restored   bool           `json:"restored,omitempty"`
	LostMedia  map[string]int `json:"lostMedia,omitempty"`
	Draft      Draft          `json:"draft"`
}

// SubmitResult reports a finished submission.
type SubmitResult struct {
	Listing        Listing  `json:"listing"`
	Uploaded       int      `json:"uploaded"`
	Removed        int      `json:"removed"`
	DeleteWarnings []string `json:"deleteWarnings,omitempty"`
}

// StartSession is the body of a create session request.
type StartSession struct {
	SessionID string `json:"sessionId,omitempty"`
	OwnerID   string `json:"ownerId,omitempty"`
}

// ParentPatch updates one parent's scalar fields.
type ParentPatch struct {
	Name    *string `json:"name,omitempty"`
	BreedID *string `json:"breedId,omitempty"`
}

// DraftPatch is the PATCH body of a draft. Media maps a group slug to the
// ordered keys to keep; keys must already be present in the draft.
type DraftPatch struct {
	Type          *string             `json:"type,omitempty"`
	Title         *string             `json:"title,omitempty"`
	Description   *string             `json:"description,omitempty"`
	BreedID       *string             `json:"breedId,omitempty"`
	BirthDate     *string             `json:"birthDate,omitempty"`
	AvailableDate *string             `json:"availableDate,omitempty"`
	PuppyCount    *int                `json:"puppyCount,omitempty"`
	PetName       *string             `json:"petName,omitempty"`
	AgeText       *string             `json:"ageText,omitempty"`
	Gender        *string             `json:"gender,omitempty"`
	Price         *float64            `json:"price,omitempty"`
	Location      *string             `json:"location,omitempty"`
	Sire          *ParentPatch        `json:"sire,omitempty"`
	Dam           *ParentPatch        `json:"dam,omitempty"`
	Vaccinations  *[]Vaccination      `json:"vaccinations,omitempty"`
	Media         map[string][]string `json:"media,omitempty"`

	ClearPrice         bool `json:"clearPrice,omitempty"`
	ClearBirthDate     bool `json:"clearBirthDate,omitempty"`
	ClearAvailableDate bool `json:"clearAvailableDate,omitempty"`
}

// ToDraftPatch maps a transport patch onto the application patch, resolving
// media keys against the current draft.
func ToDraftPatch(input DraftPatch, current domain.Draft) (listingtypes.DraftPatch, error) {
	patch := listingtypes.DraftPatch{
		Title:              input.Title,
		Description:        input.Description,
		BreedID:            input.BreedID,
		PuppyCount:         input.PuppyCount,
		PetName:            input.PetName,
		AgeText:            input.AgeText,
		Gender:             input.Gender,
		Price:              input.Price,
		Location:           input.Location,
		ClearPrice:         input.ClearPrice,
		ClearBirthDate:     input.ClearBirthDate,
		ClearAvailableDate: input.ClearAvailableDate,
	}
	if input.Type != nil {
		t := domain.ListingType(strings.TrimSpace(*input.Type))
		patch.Type = &t
	}
	var err error
	if patch.BirthDate, err = parseDate(input.BirthDate); err != nil {
		return listingtypes.DraftPatch{}, fmt.Errorf("birthDate: %w", err)
	}
	if patch.AvailableDate, err = parseDate(input.AvailableDate); err != nil {
		return listingtypes.DraftPatch{}, fmt.Errorf("availableDate: %w", err)
	}
	if input.Sire != nil {
		patch.Sire = &listingtypes.ParentPatch{Name: input.Sire.Name, BreedID: input.Sire.BreedID}
	}
	if input.Dam != nil {
		patch.Dam = &listingtypes.ParentPatch{Name: input.Dam.Name, BreedID: input.Dam.BreedID}
	}
	if input.Vaccinations != nil {
		vaccinations := make([]domain.Vaccination, 0, len(*input.Vaccinations))
		for _, v := range *input.Vaccinations {
			date, err := parseDate(nonEmpty(v.Date))
			if err != nil {
				return listingtypes.DraftPatch{}, fmt.Errorf("vaccination %q: %w", v.Name, err)
			}
			vaccinations = append(vaccinations, domain.Vaccination{Name: v.Name, Date: date, Notes: v.Notes})
		}
		patch.Health = &listingtypes.HealthPatch{Vaccinations: &vaccinations}
	}
	for slug, keys := range input.Media {
		group, err := domain.GroupFromSlug(slug)
		if err != nil {
			return listingtypes.DraftPatch{}, err
		}
		set, err := selectKeys(current.Attachments(group), keys)
		if err != nil {
			return listingtypes.DraftPatch{}, fmt.Errorf("%s: %w", slug, err)
		}
		setGroup(&patch, group, set)
	}
	return patch, nil
}

func setGroup(patch *listingtypes.DraftPatch, group domain.Group, set domain.AttachmentSet) {
	switch group {
	case domain.GroupPhotos:
		patch.Photos = &set
	case domain.GroupSirePhotos:
		if patch.Sire == nil {
			patch.Sire = &listingtypes.ParentPatch{}
		}
		patch.Sire.Photos = &set
	case domain.GroupDamPhotos:
		if patch.Dam == nil {
			patch.Dam = &listingtypes.ParentPatch{}
		}
		patch.Dam.Photos = &set
	case domain.GroupCertificates:
		if patch.Health == nil {
			patch.Health = &listingtypes.HealthPatch{}
		}
		patch.Health.Certificates = &set
	}
}

func selectKeys(current domain.AttachmentSet, keys []string) (domain.AttachmentSet, error) {
	byKey := make(map[string]domain.Attachment, len(current))
	for _, att := range current {
		byKey[att.Key()] = att
	}
	out := make(domain.AttachmentSet, 0, len(keys))
	seen := map[string]struct{}{}
	for _, key := range keys {
		att, ok := byKey[key]
		if !ok {
			return nil, fmt.Errorf("%w: %s", errUnknownAttachment, key)
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, att)
	}
	return out, nil
}

// FromDraft maps a domain draft into its HTTP representation.
func FromDraft(d domain.Draft) Draft {
	return Draft{
		Type:          string(d.Type),
		Title:         d.Title,
		Description:   d.Description,
		BreedID:       d.BreedID,
		BirthDate:     formatDate(d.BirthDate),
		AvailableDate: formatDate(d.AvailableDate),
		PuppyCount:    d.PuppyCount,
		PetName:       d.PetName,
		AgeText:       d.AgeText,
		Gender:        d.Gender,
		Price:         d.Price,
		Location:      d.Location,
		Photos:        fromSet(d.Photos),
		Sire:          Parent{Name: d.Parents.Sire.Name, BreedID: d.Parents.Sire.BreedID, Photos: fromSet(d.Parents.Sire.Photos)},
		Dam:           Parent{Name: d.Parents.Dam.Name, BreedID: d.Parents.Dam.BreedID, Photos: fromSet(d.Parents.Dam.Photos)},
		Vaccinations:  fromVaccinations(d.Health.Vaccinations),
		Certificates:  fromSet(d.Health.Certificates),
	}
}

// FromAttachment maps a single attachment.
func FromAttachment(att domain.Attachment) Attachment {
	out := Attachment{Key: att.Key()}
	if att.IsRemote() {
		out.Kind = "remote"
		out.Reference = att.Reference()
		return out
	}
	out.Kind = "pending"
	out.OriginalName = att.OriginalName()
	if blob := att.Blob(); blob != nil {
		out.ContentType = blob.ContentType
		out.Size = blob.Size()
	}
	return out
}

func fromSet(set domain.AttachmentSet) []Attachment {
	out := make([]Attachment, 0, len(set))
	for _, att := range set {
		out = append(out, FromAttachment(att))
	}
	return out
}

// FromProjection maps a listing projection into the HTTP response shape.
func FromProjection(p *listingtypes.ListingProjection) Listing {
	if p == nil || p.Entity == nil {
		return Listing{}
	}
	l := p.Entity
	return Listing{
		ID:            l.ID,
		OwnerID:       l.OwnerID,
		Type:          string(l.Type),
		Title:         l.Title,
		Description:   l.Description,
		BreedID:       l.BreedID,
		BirthDate:     formatDate(l.BirthDate),
		AvailableDate: formatDate(l.AvailableDate),
		PuppyCount:    l.PuppyCount,
		PetName:       l.PetName,
		AgeText:       l.AgeText,
		Gender:        l.Gender,
		Price:         l.Price,
		Location:      l.Location,
		Sire:          Parent{Name: l.Sire.Name, BreedID: l.Sire.BreedID},
		Dam:           Parent{Name: l.Dam.Name, BreedID: l.Dam.BreedID},
		Vaccinations:  fromVaccinations(l.Vaccinations),
		Media: Media{
			Photos:       nonNil(l.Media.Photos),
			SirePhotos:   nonNil(l.Media.SirePhotos),
			DamPhotos:    nonNil(l.Media.DamPhotos),
			Certificates: nonNil(l.Media.Certificates),
		},
		CreatedAt: p.Metadata.CreatedAt,
		UpdatedAt: p.Metadata.UpdatedAt,
	}
}

// FromSubmitResult summarises a submission.
func FromSubmitResult(r *listingtypes.SubmitResult) SubmitResult {
	if r == nil {
		return SubmitResult{}
	}
	out := SubmitResult{Listing: FromProjection(r.Listing)}
	for _, outcome := range r.Groups {
		out.Uploaded += len(outcome.Uploaded)
		out.Removed += len(outcome.Removed)
	}
	for _, err := range r.DeleteErrors {
		out.DeleteWarnings = append(out.DeleteWarnings, err.Error())
	}
	return out
}

// LostMedia keys pending counts by group slug and drops empty groups.
func LostMedia(lost map[domain.Group]int) map[string]int {
	if len(lost) == 0 {
		return nil
	}
	out := make(map[string]int, len(lost))
	for group, n := range lost {
		if n > 0 {
			out[group.Slug()] = n
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func fromVaccinations(list []domain.Vaccination) []Vaccination {
	if len(list) == 0 {
		return nil
	}
	out := make([]Vaccination, 0, len(list))
	for _, v := range list {
		out = append(out, Vaccination{Name: v.Name, Date: formatDate(v.Date), Notes: v.Notes})
	}
	return out
}

func parseDate(raw *string) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}
	value := strings.TrimSpace(*raw)
	if t, err := time.Parse(dateLayout, value); err == nil {
		return &t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		t = t.UTC()
		return &t, nil
	}
	return nil, errInvalidDate
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

func nonEmpty(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
