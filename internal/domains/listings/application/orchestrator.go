package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	listingtypes "github.com/Apurer/go-gin-listings-api/internal/domains/listings/application/types"
	"github.com/Apurer/go-gin-listings-api/internal/domains/listings/domain"
	"github.com/Apurer/go-gin-listings-api/internal/domains/listings/ports"
)

// Orchestrator sequences a submission: the four group reconciliations run
// concurrently and are joined, then deletes, then a single backend patch.
// The cached draft is cleared only when the whole sequence succeeds.
type Orchestrator struct {
	repo         ports.Repository
	reconciler   *Reconciler
	orphans      ports.OrphanSink
	logger       *slog.Logger
	batchDeletes bool
	compensate   bool
}

type OrchestratorOption func(*Orchestrator)

// WithOrchestratorLogger injects a slog logger.
func WithOrchestratorLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithBatchedDeletes unions the removed references of every group into one
// delete call instead of one call per group.
func WithBatchedDeletes(enabled bool) OrchestratorOption {
	return func(o *Orchestrator) {
		o.batchDeletes = enabled
	}
}

// WithCompensation hands references uploaded during a failed submission to
// sink so they can be removed later. A nil sink disables compensation.
func WithCompensation(sink ports.OrphanSink) OrchestratorOption {
	return func(o *Orchestrator) {
		o.orphans = sink
		o.compensate = sink != nil
	}
}

// NewOrchestrator wires the submission flow.
func NewOrchestrator(repo ports.Repository, reconciler *Reconciler, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		repo:       repo,
		reconciler: reconciler,
		logger:     discardLogger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// SubmitCreate creates a listing from the session's draft. No snapshot is
// involved, so nothing is ever deleted.
func (o *Orchestrator) SubmitCreate(ctx context.Context, ownerID string, session ports.DraftSession) (*listingtypes.SubmitResult, error) {
	draft := session.Current()
	fields := domain.ListingFieldsFromDraft(draft)
	if err := fields.Validate(); err != nil {
		return nil, mapError(err)
	}

	created, err := o.repo.Create(ctx, ownerID, fields)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreateFailed, err)
	}
	id := created.Entity.ID

	outcomes, err := o.prepareGroups(ctx, draft, nil)
	if err != nil {
		o.compensateUploads(ctx, id, outcomes)
		return nil, err
	}

	updated, err := o.repo.Update(ctx, id, domain.ListingPatch{Media: finalMedia(outcomes)})
	if err != nil {
		o.compensateUploads(ctx, id, outcomes)
		return nil, fmt.Errorf("%w: %w", ErrUpdateFailed, err)
	}

	o.clearSession(ctx, session, id)
	return &listingtypes.SubmitResult{Listing: updated, Groups: outcomes}, nil
}

// SubmitUpdate reconciles the session's draft against original and patches
// the existing listing.
func (o *Orchestrator) SubmitUpdate(ctx context.Context, session ports.DraftSession, original *domain.Listing) (*listingtypes.SubmitResult, error) {
	if original == nil || original.ID == "" {
		return nil, ErrMissingOriginal
	}
	draft := session.Current()
	fields := domain.ListingFieldsFromDraft(draft)
	if err := fields.Validate(); err != nil {
		return nil, mapError(err)
	}

	outcomes, err := o.prepareGroups(ctx, draft, original)
	if err != nil {
		o.compensateUploads(ctx, original.ID, outcomes)
		return nil, err
	}

	deleteErrs := o.purge(ctx, outcomes)

	updated, err := o.repo.Update(ctx, original.ID, domain.ListingPatch{
		Fields: &fields,
		Media:  finalMedia(outcomes),
	})
	if err != nil {
		o.compensateUploads(ctx, original.ID, outcomes)
		return nil, fmt.Errorf("%w: %w", ErrUpdateFailed, err)
	}

	o.clearSession(ctx, session, original.ID)
	return &listingtypes.SubmitResult{Listing: updated, Groups: outcomes, DeleteErrors: deleteErrs}, nil
}

// prepareGroups fans out one Prepare per group and joins them all. The first
// failure cancels the remaining uploads.
func (o *Orchestrator) prepareGroups(ctx context.Context, draft domain.Draft, original *domain.Listing) (map[domain.Group]listingtypes.GroupOutcome, error) {
	var mu sync.Mutex
	outcomes := make(map[domain.Group]listingtypes.GroupOutcome, len(domain.AllGroups))

	eg, egCtx := errgroup.WithContext(ctx)
	for _, group := range domain.AllGroups {
		var baseline []string
		if original != nil {
			baseline = original.Media.Group(group)
		}
		current := draft.Attachments(group)
		eg.Go(func() error {
			outcome, err := o.reconciler.Prepare(egCtx, group, current, baseline)
			mu.Lock()
			outcomes[group] = outcome
			mu.Unlock()
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

// purge issues the deletes of every group. Failures are collected, never
// returned as fatal.
func (o *Orchestrator) purge(ctx context.Context, outcomes map[domain.Group]listingtypes.GroupOutcome) []error {
	var errs []error
	if o.batchDeletes {
		var union []string
		seen := map[string]struct{}{}
		for _, group := range domain.AllGroups {
			for _, ref := range outcomes[group].Removed {
				if _, ok := seen[ref]; ok {
					continue
				}
				seen[ref] = struct{}{}
				union = append(union, ref)
			}
		}
		if err := o.reconciler.Purge(ctx, union); err != nil {
			errs = append(errs, err)
		}
		return errs
	}
	for _, group := range domain.AllGroups {
		if err := o.reconciler.Purge(ctx, outcomes[group].Removed); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", group, err))
		}
	}
	return errs
}

func (o *Orchestrator) compensateUploads(ctx context.Context, listingID string, outcomes map[domain.Group]listingtypes.GroupOutcome) {
	if !o.compensate {
		return
	}
	var refs []string
	for _, group := range domain.AllGroups {
		for _, ref := range outcomes[group].Uploaded {
			refs = append(refs, ref)
		}
	}
	if len(refs) == 0 {
		return
	}
	if err := o.orphans.Record(context.WithoutCancel(ctx), refs, ports.OrphanAbortedSubmit); err != nil {
		o.logger.LogAttrs(ctx, slog.LevelError, "failed to record uploads of aborted submission",
			slog.String("listing.id", listingID),
			slog.Int("count", len(refs)),
			slog.String("error", err.Error()))
		return
	}
	o.logger.LogAttrs(ctx, slog.LevelInfo, "uploads of aborted submission queued for cleanup",
		slog.String("listing.id", listingID), slog.Int("count", len(refs)))
}

func (o *Orchestrator) clearSession(ctx context.Context, session ports.DraftSession, listingID string) {
	if err := session.Clear(ctx); err != nil {
		o.logger.LogAttrs(ctx, slog.LevelWarn, "failed to clear cached draft",
			slog.String("listing.id", listingID), slog.String("error", err.Error()))
	}
}

func finalMedia(outcomes map[domain.Group]listingtypes.GroupOutcome) map[domain.Group][]string {
	media := make(map[domain.Group][]string, len(outcomes))
	for _, group := range domain.AllGroups {
		final := outcomes[group].Final
		if final == nil {
			final = []string{}
		}
		media[group] = final
	}
	return media
}

// IsDeleteFailure reports whether err only records orphaned objects.
func IsDeleteFailure(err error) bool {
	return errors.Is(err, ErrDeleteFailed)
}

var _ ports.Submitter = (*Orchestrator)(nil)
