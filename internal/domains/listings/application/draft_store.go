package application

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"

	listingtypes "github.com/Apurer/go-gin-listings-api/internal/domains/listings/application/types"
	"github.com/Apurer/go-gin-listings-api/internal/domains/listings/domain"
	"github.com/Apurer/go-gin-listings-api/internal/domains/listings/ports"
)

// DefaultDraftKey is the cache key a single-user deployment stores its draft under.
const DefaultDraftKey = "listing_draft"

const envelopeVersion = 1

// draftEnvelope is the cached representation. Pending attachments cannot be
// serialized, so only their per-group count survives.
type draftEnvelope struct {
	Version int                  `json:"version"`
	Draft   json.RawMessage      `json:"draft"`
	Pending map[domain.Group]int `json:"pending,omitempty"`
}

// DraftStore owns the in-progress draft and mirrors every change to the
// draft cache.
type DraftStore struct {
	mu     sync.Mutex
	cache  ports.DraftCache
	key    string
	logger *slog.Logger
	draft  domain.Draft
}

type StoreOption func(*DraftStore)

// WithCacheKey stores the draft under key instead of DefaultDraftKey.
func WithCacheKey(key string) StoreOption {
	return func(s *DraftStore) {
		if key != "" {
			s.key = key
		}
	}
}

// WithStoreLogger injects a slog logger.
func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(s *DraftStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewDraftStore wires a draft store around the cache with an empty draft.
func NewDraftStore(cache ports.DraftCache, opts ...StoreOption) *DraftStore {
	s := &DraftStore{
		cache:  cache,
		key:    DefaultDraftKey,
		logger: discardLogger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Key returns the cache key the draft is persisted under.
func (s *DraftStore) Key() string { return s.key }

// Current returns a deep copy of the draft.
func (s *DraftStore) Current() domain.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Clone()
}

// Update merges patch into the draft and writes the result to the cache.
// A rejected patch leaves the draft untouched.
func (s *DraftStore) Update(ctx context.Context, patch listingtypes.DraftPatch) (domain.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(ctx, patch)
}

// Mutate builds a patch from the current draft and applies it under the same
// lock, so concurrent read-modify-write callers never lose each other's
// changes. An error from build leaves the draft untouched and is returned as is.
func (s *DraftStore) Mutate(ctx context.Context, build func(current domain.Draft) (listingtypes.DraftPatch, error)) (domain.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	patch, err := build(s.draft.Clone())
	if err != nil {
		return s.draft.Clone(), err
	}
	return s.apply(ctx, patch)
}

func (s *DraftStore) apply(ctx context.Context, patch listingtypes.DraftPatch) (domain.Draft, error) {
	next, err := mergeDraft(s.draft, patch)
	if err != nil {
		return s.draft.Clone(), mapError(err)
	}
	s.draft = next
	s.persist(ctx)
	return s.draft.Clone(), nil
}

// Load restores a cached draft if present. Pending attachments never
// survive; the result reports how many were lost per group. Unreadable
// entries are treated as absent.
func (s *DraftStore) Load(ctx context.Context) listingtypes.LoadResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := listingtypes.LoadResult{Draft: s.draft.Clone()}
	if s.cache == nil {
		return result
	}
	raw, ok, err := s.cache.Get(ctx, s.key)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "draft cache read failed",
			slog.String("key", s.key), slog.String("error", err.Error()))
		return result
	}
	if !ok || raw == "" {
		return result
	}
	draft, lost, err := decodeDraft(raw)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "discarding unreadable cached draft",
			slog.String("key", s.key), slog.String("error", err.Error()))
		return result
	}
	s.draft = draft
	result.Draft = draft.Clone()
	result.Restored = true
	result.LostMedia = lost
	if len(lost) > 0 {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "cached draft restored without pending media",
			slog.String("key", s.key), slog.Any("lost", lost))
	}
	return result
}

// Seed replaces the draft with one built from a persisted listing, dropping
// whatever was cached or pending.
func (s *DraftStore) Seed(ctx context.Context, listing *domain.Listing) domain.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = domain.DraftFromListing(listing)
	s.persist(ctx)
	return s.draft.Clone()
}

// Clear removes the cached entry and resets the draft.
func (s *DraftStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = domain.Draft{}
	if s.cache == nil {
		return nil
	}
	return s.cache.Remove(ctx, s.key)
}

// persist writes the full draft. Failures are logged and otherwise ignored.
func (s *DraftStore) persist(ctx context.Context) {
	if s.cache == nil {
		return
	}
	raw, err := encodeDraft(s.draft)
	if err == nil {
		err = s.cache.Set(ctx, s.key, raw)
	}
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "draft cache write failed",
			slog.String("key", s.key), slog.String("error", err.Error()))
	}
}

func encodeDraft(d domain.Draft) (string, error) {
	body, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	env := draftEnvelope{Version: envelopeVersion, Draft: body, Pending: d.PendingCounts()}
	raw, err := json.Marshal(env)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// decodeDraft accepts both the envelope and a bare draft document.
func decodeDraft(raw string) (domain.Draft, map[domain.Group]int, error) {
	var env draftEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return domain.Draft{}, nil, err
	}
	body := []byte(env.Draft)
	if len(env.Draft) == 0 {
		body = []byte(raw)
	}
	var draft domain.Draft
	if err := json.Unmarshal(body, &draft); err != nil {
		return domain.Draft{}, nil, err
	}
	lost := map[domain.Group]int{}
	for group, n := range env.Pending {
		if group.Valid() && n > 0 {
			lost[group] = n
		}
	}
	if len(lost) == 0 {
		lost = nil
	}
	return draft, lost, nil
}

// mergeDraft applies the per-field merge rules of DraftPatch.
func mergeDraft(current domain.Draft, p listingtypes.DraftPatch) (domain.Draft, error) {
	next := current.Clone()
	if p.Type != nil {
		if *p.Type != "" && !p.Type.Valid() {
			return current, domain.ErrInvalidType
		}
		next.Type = *p.Type
	}
	setString(&next.Title, p.Title)
	setString(&next.Description, p.Description)
	setString(&next.BreedID, p.BreedID)
	setString(&next.PetName, p.PetName)
	setString(&next.AgeText, p.AgeText)
	setString(&next.Gender, p.Gender)
	setString(&next.Location, p.Location)
	if p.PuppyCount != nil {
		next.PuppyCount = *p.PuppyCount
	}

	switch {
	case p.ClearBirthDate:
		next.BirthDate = nil
	case p.BirthDate != nil:
		v := *p.BirthDate
		next.BirthDate = &v
	}
	switch {
	case p.ClearAvailableDate:
		next.AvailableDate = nil
	case p.AvailableDate != nil:
		v := *p.AvailableDate
		next.AvailableDate = &v
	}
	switch {
	case p.ClearPrice:
		next.Price = nil
	case p.Price != nil:
		v := *p.Price
		next.Price = &v
	}

	if p.Photos != nil {
		next.Photos = p.Photos.Clone()
	}
	mergeParent(&next.Parents.Sire, p.Sire)
	mergeParent(&next.Parents.Dam, p.Dam)
	if p.Health != nil {
		if p.Health.Vaccinations != nil {
			next.Health.Vaccinations = append([]domain.Vaccination{}, (*p.Health.Vaccinations)...)
		}
		if p.Health.Certificates != nil {
			next.Health.Certificates = p.Health.Certificates.Clone()
		}
	}
	return next, nil
}

func mergeParent(target *domain.Parent, p *listingtypes.ParentPatch) {
	if p == nil {
		return
	}
	setString(&target.Name, p.Name)
	setString(&target.BreedID, p.BreedID)
	if p.Photos != nil {
		target.Photos = p.Photos.Clone()
	}
}

func setString(target *string, value *string) {
	if value != nil {
		*target = *value
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
