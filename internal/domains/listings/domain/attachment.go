package domain

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Group names one independently reconciled collection of attachments.
type Group string

const (
	GroupPhotos       Group = "photos"
	GroupSirePhotos   Group = "parents.sire.photos"
	GroupDamPhotos    Group = "parents.dam.photos"
	GroupCertificates Group = "health.certificates"
)

// AllGroups lists every attachment group in a fixed iteration order.
var AllGroups = []Group{GroupPhotos, GroupSirePhotos, GroupDamPhotos, GroupCertificates}

// Valid reports whether g is a known group.
func (g Group) Valid() bool {
	switch g {
	case GroupPhotos, GroupSirePhotos, GroupDamPhotos, GroupCertificates:
		return true
	default:
		return false
	}
}

var groupSlugs = map[Group]string{
	GroupPhotos:       "photos",
	GroupSirePhotos:   "sire-photos",
	GroupDamPhotos:    "dam-photos",
	GroupCertificates: "certificates",
}

// Slug returns the path-safe name of the group used in URLs and object keys.
func (g Group) Slug() string {
	return groupSlugs[g]
}

// GroupFromSlug resolves a slug produced by Slug.
func GroupFromSlug(slug string) (Group, error) {
	for group, s := range groupSlugs {
		if s == slug {
			return group, nil
		}
	}
	return "", ErrUnknownGroup
}

var (
	ErrEmptyReference = errors.New("attachment reference is required")
	ErrEmptyBlob      = errors.New("attachment blob is empty")
	ErrUnknownGroup   = errors.New("unknown attachment group")
)

// Blob is a local, not yet persisted media payload. Its ID is the identity of
// the pending attachment wrapping it.
type Blob struct {
	ID          string
	Data        []byte
	ContentType string
}

// NewBlob copies data into a blob with a fresh identity.
func NewBlob(data []byte, contentType string) (*Blob, error) {
	if len(data) == 0 {
		return nil, ErrEmptyBlob
	}
	return &Blob{
		ID:          uuid.NewString(),
		Data:        append([]byte{}, data...),
		ContentType: contentType,
	}, nil
}

// Size returns the payload length in bytes.
func (b *Blob) Size() int64 {
	if b == nil {
		return 0
	}
	return int64(len(b.Data))
}

type attachmentKind uint8

const (
	kindRemote attachmentKind = iota + 1
	kindPending
)

// Attachment is either a remote reference that already lives in the object
// store or a pending blob awaiting upload. The kind is fixed at construction.
type Attachment struct {
	kind         attachmentKind
	reference    string
	blob         *Blob
	originalName string
}

// RemoteAttachment wraps an already persisted reference.
func RemoteAttachment(reference string) (Attachment, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return Attachment{}, ErrEmptyReference
	}
	return Attachment{kind: kindRemote, reference: reference}, nil
}

// PendingAttachment wraps a local blob selected for upload.
func PendingAttachment(blob *Blob, originalName string) (Attachment, error) {
	if blob == nil || len(blob.Data) == 0 {
		return Attachment{}, ErrEmptyBlob
	}
	return Attachment{kind: kindPending, blob: blob, originalName: originalName}, nil
}

// IsRemote reports whether the attachment is already persisted.
func (a Attachment) IsRemote() bool { return a.kind == kindRemote }

// IsPending reports whether the attachment still needs an upload.
func (a Attachment) IsPending() bool { return a.kind == kindPending }

// Reference returns the persisted reference, empty for pending attachments.
func (a Attachment) Reference() string { return a.reference }

// Blob returns the local payload, nil for remote attachments.
func (a Attachment) Blob() *Blob { return a.blob }

// OriginalName returns the file name the blob was selected under.
func (a Attachment) OriginalName() string { return a.originalName }

// Key identifies the attachment inside a set: the reference for remote
// entries, the blob ID for pending ones.
func (a Attachment) Key() string {
	if a.kind == kindPending && a.blob != nil {
		return a.blob.ID
	}
	return a.reference
}

// AttachmentSet is an ordered group of attachments. Only membership carries
// meaning; positions are not preserved across edits.
type AttachmentSet []Attachment

// RemoteSet builds a set of remote attachments, skipping blank references.
func RemoteSet(references ...string) AttachmentSet {
	set := make(AttachmentSet, 0, len(references))
	for _, ref := range references {
		att, err := RemoteAttachment(ref)
		if err != nil {
			continue
		}
		set = append(set, att)
	}
	return set
}

// References returns the remote references in set order.
func (s AttachmentSet) References() []string {
	refs := make([]string, 0, len(s))
	for _, a := range s {
		if a.IsRemote() {
			refs = append(refs, a.reference)
		}
	}
	return refs
}

// Pending returns the entries awaiting upload in set order.
func (s AttachmentSet) Pending() []Attachment {
	var pending []Attachment
	for _, a := range s {
		if a.IsPending() {
			pending = append(pending, a)
		}
	}
	return pending
}

// PendingCount returns the number of entries awaiting upload.
func (s AttachmentSet) PendingCount() int {
	count := 0
	for _, a := range s {
		if a.IsPending() {
			count++
		}
	}
	return count
}

// Contains reports whether an entry with the given key is a member.
func (s AttachmentSet) Contains(key string) bool {
	for _, a := range s {
		if a.Key() == key {
			return true
		}
	}
	return false
}

// With returns a copy of the set with the attachment appended.
func (s AttachmentSet) With(a Attachment) AttachmentSet {
	out := s.Clone()
	return append(out, a)
}

// Without returns a copy of the set minus the entries with the given keys.
func (s AttachmentSet) Without(keys ...string) AttachmentSet {
	drop := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		drop[k] = struct{}{}
	}
	out := make(AttachmentSet, 0, len(s))
	for _, a := range s {
		if _, ok := drop[a.Key()]; ok {
			continue
		}
		out = append(out, a)
	}
	return out
}

// DropPending returns a copy holding only the remote entries.
func (s AttachmentSet) DropPending() AttachmentSet {
	return RemoteSet(s.References()...)
}

// Clone copies the slice; blobs are shared because they are never mutated.
func (s AttachmentSet) Clone() AttachmentSet {
	if s == nil {
		return nil
	}
	return append(AttachmentSet{}, s...)
}

// MarshalJSON writes remote references only. Pending blobs are process-local
// and never serialized.
func (s AttachmentSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.References())
}

// UnmarshalJSON accepts an array and keeps only non-empty string elements.
func (s *AttachmentSet) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	set := make(AttachmentSet, 0, len(raw))
	for _, item := range raw {
		var ref string
		if err := json.Unmarshal(item, &ref); err != nil {
			continue
		}
		if att, err := RemoteAttachment(ref); err == nil {
			set = append(set, att)
		}
	}
	*s = set
	return nil
}
