package application

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	listingtypes "github.com/Apurer/go-gin-listings-api/internal/domains/listings/application/types"
	"github.com/Apurer/go-gin-listings-api/internal/domains/listings/domain"
	"github.com/Apurer/go-gin-listings-api/internal/domains/listings/ports"
)

// DefaultUploadConcurrency bounds parallel uploads within one group.
const DefaultUploadConcurrency = 4

// Reconciler diffs one attachment group against its persisted baseline and
// drives the matching uploads and deletes.
type Reconciler struct {
	objects     ports.ObjectStore
	orphans     ports.OrphanSink
	logger      *slog.Logger
	concurrency int
}

type ReconcilerOption func(*Reconciler)

// WithReconcilerLogger injects a slog logger.
func WithReconcilerLogger(logger *slog.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithOrphanSink records references whose delete failed.
func WithOrphanSink(sink ports.OrphanSink) ReconcilerOption {
	return func(r *Reconciler) {
		r.orphans = sink
	}
}

// WithUploadConcurrency bounds in-flight uploads per group. Values below one
// are ignored.
func WithUploadConcurrency(n int) ReconcilerOption {
	return func(r *Reconciler) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// NewReconciler wires the engine around an object store.
func NewReconciler(objects ports.ObjectStore, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		objects:     objects,
		logger:      discardLogger(),
		concurrency: DefaultUploadConcurrency,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Diff partitions current into retained and pending entries and returns the
// original references no longer retained. Membership is exact string
// equality.
func Diff(group domain.Group, current domain.AttachmentSet, original []string) listingtypes.Plan {
	plan := listingtypes.Plan{
		Group:    group,
		Retained: current.References(),
		Pending:  current.Pending(),
	}
	kept := make(map[string]struct{}, len(plan.Retained))
	for _, ref := range plan.Retained {
		kept[ref] = struct{}{}
	}
	seen := map[string]struct{}{}
	for _, ref := range original {
		if _, ok := kept[ref]; ok {
			continue
		}
		if _, dup := seen[ref]; dup {
			continue
		}
		seen[ref] = struct{}{}
		plan.Removed = append(plan.Removed, ref)
	}
	return plan
}

// Prepare uploads every pending entry of the group and returns the final
// reference list: retained references first, then uploads in pending order.
// Deletes are left to the caller. On failure the outcome carries only the
// references that were uploaded before the group aborted.
func (r *Reconciler) Prepare(ctx context.Context, group domain.Group, current domain.AttachmentSet, original []string) (listingtypes.GroupOutcome, error) {
	if !group.Valid() {
		return listingtypes.GroupOutcome{Group: group}, mapError(domain.ErrUnknownGroup)
	}
	plan := Diff(group, current, original)
	outcome := listingtypes.GroupOutcome{
		Group:    group,
		Uploaded: map[string]string{},
		Removed:  plan.Removed,
	}
	if len(plan.Pending) == 0 {
		outcome.Final = plan.Retained
		return outcome, nil
	}

	refs := make([]string, len(plan.Pending))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(r.concurrency)
	for i, att := range plan.Pending {
		eg.Go(func() error {
			ref, err := r.objects.Upload(egCtx, ports.UploadRequest{
				Group:        group,
				Blob:         att.Blob(),
				OriginalName: att.OriginalName(),
			})
			if err != nil {
				return fmt.Errorf("%w: %s %q: %w", ErrUploadFailed, group, att.OriginalName(), err)
			}
			refs[i] = ref
			return nil
		})
	}
	err := eg.Wait()
	for i, att := range plan.Pending {
		if refs[i] != "" {
			outcome.Uploaded[att.Key()] = refs[i]
		}
	}
	if err != nil {
		r.logger.LogAttrs(ctx, slog.LevelError, "group upload failed",
			slog.String("group", string(group)),
			slog.Int("uploaded", len(outcome.Uploaded)),
			slog.Int("pending", len(plan.Pending)),
			slog.String("error", err.Error()))
		return outcome, err
	}

	final := make([]string, 0, len(plan.Retained)+len(refs))
	final = append(final, plan.Retained...)
	final = append(final, refs...)
	outcome.Final = final
	return outcome, nil
}

// Purge removes refs in one batched call. A failure is returned wrapped in
// ErrDeleteFailed and the references are handed to the orphan sink.
func (r *Reconciler) Purge(ctx context.Context, refs []string) error {
	if len(refs) == 0 {
		return nil
	}
	err := r.objects.DeleteMany(ctx, refs)
	if err == nil {
		return nil
	}
	r.logger.LogAttrs(ctx, slog.LevelWarn, "attachment delete failed; objects orphaned",
		slog.Int("count", len(refs)), slog.String("error", err.Error()))
	if r.orphans != nil {
		if recErr := r.orphans.Record(context.WithoutCancel(ctx), refs, ports.OrphanDeleteFailed); recErr != nil {
			r.logger.LogAttrs(ctx, slog.LevelError, "failed to record orphaned attachments",
				slog.Int("count", len(refs)), slog.String("error", recErr.Error()))
		}
	}
	return fmt.Errorf("%w: %w", ErrDeleteFailed, err)
}

// Reconcile runs Prepare and then purges the group's removed references.
// The delete starts only after every upload resolved. A returned error
// wrapping ErrDeleteFailed comes with a complete outcome and is non-fatal.
func (r *Reconciler) Reconcile(ctx context.Context, group domain.Group, current domain.AttachmentSet, original []string) (listingtypes.GroupOutcome, error) {
	outcome, err := r.Prepare(ctx, group, current, original)
	if err != nil {
		return outcome, err
	}
	if err := r.Purge(ctx, outcome.Removed); err != nil {
		return outcome, err
	}
	return outcome, nil
}
