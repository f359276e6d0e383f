package queue

import (
	"context"
	"log/slog"
	"time"
)

// Reconciler periodically reclaims jobs stuck in the processing state
// because the worker that claimed them crashed or was killed before it
// could report an outcome. A single-purpose, interval-ticking pass, run
// independently of the worker pool: instead of leaving orphaned jobs
// stuck forever, a processing job whose updated_at is older than
// Threshold is returned to pending.
type Reconciler struct {
	store     ReclaimStorer
	Interval  time.Duration // default 1m
	Threshold time.Duration // default 5m
}

// ReclaimStorer is the subset of sqlstore.Store the reconciler needs.
type ReclaimStorer interface {
	ReclaimOrphans(ctx context.Context, threshold time.Duration) (int, error)
}

// NewReconciler builds a Reconciler over store with sensible defaults.
func NewReconciler(store ReclaimStorer) *Reconciler {
	return &Reconciler{store: store, Interval: time.Minute, Threshold: 5 * time.Minute}
}

// Run ticks every r.Interval, reclaiming orphaned jobs, until ctx is
// cancelled.
func (r *Reconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := r.store.ReclaimOrphans(ctx, r.Threshold)
			if err != nil {
				slog.ErrorContext(ctx, "reconciliation pass failed", "error", err)
				continue
			}
			if n > 0 {
				slog.InfoContext(ctx, "reclaimed orphaned jobs", "count", n)
			}
		}
	}
}
