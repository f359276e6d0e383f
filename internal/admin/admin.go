// Package admin implements the read/admin surface: listing jobs,
// inspecting status, and managing the dead-letter queue, with input
// validation happening before any store call, at the application
// boundary before reaching persistence.
package admin

import (
	"context"
	"fmt"

	"github.com/vishnusrinivas00/queuectl/internal/domain"
)

// Store is the subset of sqlstore.Store the admin API depends on.
type Store interface {
	Enqueue(ctx context.Context, spec domain.JobSpec) (*domain.Job, error)
	ListJobs(ctx context.Context, state *domain.JobState) ([]domain.Job, error)
	DLQList(ctx context.Context) ([]domain.DeadLetterEntry, error)
	DLQRetry(ctx context.Context, id string) (*domain.Job, error)
	Status(ctx context.Context) (domain.Status, error)
	GetConfig(ctx context.Context, key string) (string, bool, error)
	SetConfig(ctx context.Context, key, value string) error
}

// API wraps a Store with the validation the admin surface needs before
// any mutation reaches persistence.
type API struct {
	store Store
}

// New builds an API over store.
func New(store Store) *API {
	return &API{store: store}
}

// Enqueue validates spec and inserts a new job.
func (a *API) Enqueue(ctx context.Context, spec domain.JobSpec) (*domain.Job, error) {
	if spec.ID == "" {
		return nil, fmt.Errorf("%w: id is required", domain.ErrInvalidInput)
	}
	if spec.Command == "" {
		return nil, fmt.Errorf("%w: command is required", domain.ErrInvalidInput)
	}
	if spec.MaxRetries != nil && *spec.MaxRetries < 0 {
		return nil, fmt.Errorf("%w: max_retries must be non-negative", domain.ErrInvalidInput)
	}
	return a.store.Enqueue(ctx, spec)
}

// List returns jobs, optionally filtered by state. An invalid state
// filter is rejected before the store is touched.
func (a *API) List(ctx context.Context, state string) ([]domain.Job, error) {
	if state == "" {
		return a.store.ListJobs(ctx, nil)
	}
	if !domain.IsValidJobState(state) {
		return nil, fmt.Errorf("%w: unknown job state %q", domain.ErrInvalidInput, state)
	}
	s := domain.JobState(state)
	return a.store.ListJobs(ctx, &s)
}

// Status returns aggregate counts across job states, the dead-letter
// queue, and registered workers.
func (a *API) Status(ctx context.Context) (domain.Status, error) {
	return a.store.Status(ctx)
}

// DLQList returns dead-letter entries.
func (a *API) DLQList(ctx context.Context) ([]domain.DeadLetterEntry, error) {
	return a.store.DLQList(ctx)
}

// DLQRetry requeues a dead-lettered job as pending.
func (a *API) DLQRetry(ctx context.Context, id string) (*domain.Job, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", domain.ErrInvalidInput)
	}
	return a.store.DLQRetry(ctx, id)
}

// ConfigGet returns the value for key.
func (a *API) ConfigGet(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, fmt.Errorf("%w: key is required", domain.ErrInvalidInput)
	}
	return a.store.GetConfig(ctx, key)
}

// ConfigSet upserts key/value. backoff_base and default_max_retries are
// the keys the core interprets; any other key is opaque and is stored
// and returned unmodified, same as the store's own contract.
func (a *API) ConfigSet(ctx context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("%w: key is required", domain.ErrInvalidInput)
	}
	if value == "" {
		return fmt.Errorf("%w: value is required", domain.ErrInvalidInput)
	}
	return a.store.SetConfig(ctx, key, value)
}
