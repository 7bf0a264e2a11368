package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	listingtypes "github.com/Apurer/go-gin-listings-api/internal/domains/listings/application/types"
	"github.com/Apurer/go-gin-listings-api/internal/domains/listings/domain"
	"github.com/Apurer/go-gin-listings-api/internal/domains/listings/ports"
)

// Mode tells whether a wizard creates a new listing or edits one.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

// Wizard is one create/edit session: a draft store, a step controller and,
// in edit mode, the untouched original snapshot.
type Wizard struct {
	ID      string
	Mode    Mode
	OwnerID string

	store     *DraftStore
	steps     *StepController
	original  *domain.Listing
	submitter ports.Submitter

	// submitting stays set once a submission succeeds.
	submitting atomic.Bool
	lastSeen   atomic.Int64
}

// Draft returns a copy of the current draft.
func (w *Wizard) Draft() domain.Draft { return w.store.Current() }

// Steps exposes the step controller.
func (w *Wizard) Steps() *StepController { return w.steps }

// Original returns a copy of the snapshot being edited, nil in create mode.
func (w *Wizard) Original() *domain.Listing { return w.original.Clone() }

// Update applies a partial draft update.
func (w *Wizard) Update(ctx context.Context, patch listingtypes.DraftPatch) (domain.Draft, error) {
	return w.store.Update(ctx, patch)
}

// Mutate derives a patch from the current draft and applies it atomically.
func (w *Wizard) Mutate(ctx context.Context, build func(current domain.Draft) (listingtypes.DraftPatch, error)) (domain.Draft, error) {
	return w.store.Mutate(ctx, build)
}

// AddPending appends a freshly selected blob to group.
func (w *Wizard) AddPending(ctx context.Context, group domain.Group, blob *domain.Blob, originalName string) (domain.Attachment, error) {
	att, err := domain.PendingAttachment(blob, originalName)
	if err != nil {
		return domain.Attachment{}, mapError(err)
	}
	_, err = w.store.Mutate(ctx, func(current domain.Draft) (listingtypes.DraftPatch, error) {
		return setGroup(group, current.Attachments(group).With(att))
	})
	if err != nil {
		return domain.Attachment{}, err
	}
	return att, nil
}

// RemoveAttachment drops the entry identified by key from group: a remote
// reference or a pending blob ID. Removing an unknown key is a no-op.
func (w *Wizard) RemoveAttachment(ctx context.Context, group domain.Group, key string) (domain.Draft, error) {
	return w.store.Mutate(ctx, func(current domain.Draft) (listingtypes.DraftPatch, error) {
		return setGroup(group, current.Attachments(group).Without(key))
	})
}

func setGroup(group domain.Group, set domain.AttachmentSet) (listingtypes.DraftPatch, error) {
	patch, err := listingtypes.SetGroup(group, set)
	if err != nil {
		return listingtypes.DraftPatch{}, mapError(err)
	}
	return patch, nil
}

// Next advances when the current step's predicate holds.
func (w *Wizard) Next() bool { return w.steps.Next(w.store.Current()) }

// Back moves one step back.
func (w *Wizard) Back() bool { return w.steps.Back() }

// Submit routes the draft to the create or update path once every step
// predicate holds. Only one submission runs per wizard; once one succeeds
// every later call gets ErrSubmitInProgress.
func (w *Wizard) Submit(ctx context.Context) (*listingtypes.SubmitResult, error) {
	if !w.submitting.CompareAndSwap(false, true) {
		return nil, ErrSubmitInProgress
	}
	result, err := w.submit(ctx)
	if err != nil {
		w.submitting.Store(false)
		return nil, err
	}
	return result, nil
}

func (w *Wizard) submit(ctx context.Context) (*listingtypes.SubmitResult, error) {
	if !w.steps.Ready(w.store.Current()) {
		return nil, ErrIncompleteDraft
	}
	if w.Mode == ModeEdit {
		return w.submitter.SubmitUpdate(ctx, w.store, w.original)
	}
	return w.submitter.SubmitCreate(ctx, w.OwnerID, w.store)
}

func (w *Wizard) touch(now time.Time) { w.lastSeen.Store(now.UnixNano()) }

func (w *Wizard) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, w.lastSeen.Load()))
}

// Sessions is the registry of live wizard sessions.
type Sessions struct {
	mu        sync.RWMutex
	sessions  map[string]*Wizard
	cache     ports.DraftCache
	repo      ports.Repository
	submitter ports.Submitter
	logger    *slog.Logger
	newID     func() string
	steps     func() []Step
	idleTTL   time.Duration
	now       func() time.Time
}

type SessionsOption func(*Sessions)

// WithSessionsLogger injects a slog logger shared with the draft stores.
func WithSessionsLogger(logger *slog.Logger) SessionsOption {
	return func(s *Sessions) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithIDGenerator overrides session ID generation.
func WithIDGenerator(gen func() string) SessionsOption {
	return func(s *Sessions) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithSteps overrides the wizard steps of new sessions.
func WithSteps(steps func() []Step) SessionsOption {
	return func(s *Sessions) {
		if steps != nil {
			s.steps = steps
		}
	}
}

// WithIdleTTL lets Sweep evict sessions untouched for longer than ttl.
// Zero keeps sessions until they are submitted or discarded.
func WithIdleTTL(ttl time.Duration) SessionsOption {
	return func(s *Sessions) {
		if ttl > 0 {
			s.idleTTL = ttl
		}
	}
}

// WithClock overrides the time source used for idle tracking.
func WithClock(now func() time.Time) SessionsOption {
	return func(s *Sessions) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSessions wires the registry.
func NewSessions(cache ports.DraftCache, repo ports.Repository, submitter ports.Submitter, opts ...SessionsOption) *Sessions {
	s := &Sessions{
		sessions:  map[string]*Wizard{},
		cache:     cache,
		repo:      repo,
		submitter: submitter,
		logger:    discardLogger(),
		newID:     uuid.NewString,
		steps:     DefaultSteps,
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// DraftKey returns the cache key of a session's draft.
func DraftKey(sessionID string) string {
	return DefaultDraftKey + ":" + sessionID
}

// StartCreate opens a create session. A known session ID resumes the live
// session; otherwise the cached draft for that ID, if any, is loaded.
func (s *Sessions) StartCreate(ctx context.Context, sessionID, ownerID string) (*Wizard, listingtypes.LoadResult, error) {
	if sessionID == "" {
		sessionID = s.newID()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.sessions[sessionID]; ok {
		if w.Mode != ModeCreate {
			return nil, listingtypes.LoadResult{}, ErrInvalidInput
		}
		w.touch(s.now())
		return w, listingtypes.LoadResult{Draft: w.Draft(), Restored: true}, nil
	}
	w := s.newWizard(sessionID, ModeCreate, ownerID)
	loaded := w.store.Load(ctx)
	s.sessions[sessionID] = w
	return w, loaded, nil
}

// StartEdit opens an edit session seeded from the persisted listing.
func (s *Sessions) StartEdit(ctx context.Context, listingID, ownerID string) (*Wizard, error) {
	current, err := s.repo.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if current == nil || current.Entity == nil {
		return nil, ports.ErrNotFound
	}
	sessionID := s.newID()
	w := s.newWizard(sessionID, ModeEdit, ownerID)
	w.original = current.Entity.Clone()
	w.store.Seed(ctx, w.original)

	s.mu.Lock()
	s.sessions[sessionID] = w
	s.mu.Unlock()
	return w, nil
}

// Get returns a live session.
func (s *Sessions) Get(sessionID string) (*Wizard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	w.touch(s.now())
	return w, nil
}

// Submit submits a session and forgets it on success.
func (s *Sessions) Submit(ctx context.Context, sessionID string) (*listingtypes.SubmitResult, error) {
	w, err := s.Get(sessionID)
	if err != nil {
		return nil, err
	}
	result, err := w.Submit(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	return result, nil
}

// Discard clears the session's cached draft and forgets it.
func (s *Sessions) Discard(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	w, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	if err := w.store.Clear(ctx); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "failed to clear discarded draft",
			slog.String("session.id", sessionID), slog.String("error", err.Error()))
	}
	return nil
}

// Sweep forgets sessions idle for longer than the configured TTL and returns
// how many were evicted. Cached drafts are kept so a create session can be
// resumed; pending blobs of evicted sessions are dropped. Sessions that are
// submitting are never evicted.
func (s *Sessions) Sweep(ctx context.Context) int {
	if s.idleTTL <= 0 {
		return 0
	}
	now := s.now()
	s.mu.Lock()
	var evicted []string
	for id, w := range s.sessions {
		if w.submitting.Load() || w.idleSince(now) <= s.idleTTL {
			continue
		}
		delete(s.sessions, id)
		evicted = append(evicted, id)
	}
	s.mu.Unlock()
	for _, id := range evicted {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "evicted idle wizard session", slog.String("session.id", id))
	}
	return len(evicted)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *Sessions) RunSweeper(ctx context.Context, interval time.Duration) {
	if s.idleTTL <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

func (s *Sessions) newWizard(sessionID string, mode Mode, ownerID string) *Wizard {
	w := &Wizard{
		ID:        sessionID,
		Mode:      mode,
		OwnerID:   ownerID,
		store:     NewDraftStore(s.cache, WithCacheKey(DraftKey(sessionID)), WithStoreLogger(s.logger)),
		steps:     NewStepController(s.steps()),
		submitter: s.submitter,
	}
	w.touch(s.now())
	return w
}

// IsNotFound reports whether err means a missing session or listing.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound) || errors.Is(err, ports.ErrNotFound)
}
