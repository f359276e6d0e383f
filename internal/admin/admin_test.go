package admin_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vishnusrinivas00/queuectl/internal/admin"
	"github.com/vishnusrinivas00/queuectl/internal/domain"
)

type fakeStore struct {
	jobs        []domain.Job
	dlq         []domain.DeadLetterEntry
	status      domain.Status
	config      map[string]string
	setCalls    []struct{ key, value string }
	enqueueSpec *domain.JobSpec
}

func newFakeStore() *fakeStore {
	return &fakeStore{config: map[string]string{}}
}

func (f *fakeStore) Enqueue(_ context.Context, spec domain.JobSpec) (*domain.Job, error) {
	f.enqueueSpec = &spec
	return &domain.Job{ID: spec.ID, Command: spec.Command, State: domain.JobPending}, nil
}

func (f *fakeStore) ListJobs(_ context.Context, state *domain.JobState) ([]domain.Job, error) {
	if state == nil {
		return f.jobs, nil
	}
	var out []domain.Job
	for _, j := range f.jobs {
		if j.State == *state {
			out = append(out, j)
		}
	}
	return out, nil
}

func (f *fakeStore) DLQList(_ context.Context) ([]domain.DeadLetterEntry, error) { return f.dlq, nil }

func (f *fakeStore) DLQRetry(_ context.Context, id string) (*domain.Job, error) {
	return &domain.Job{ID: id, State: domain.JobPending}, nil
}

func (f *fakeStore) Status(_ context.Context) (domain.Status, error) { return f.status, nil }

func (f *fakeStore) GetConfig(_ context.Context, key string) (string, bool, error) {
	v, ok := f.config[key]
	return v, ok, nil
}

func (f *fakeStore) SetConfig(_ context.Context, key, value string) error {
	f.setCalls = append(f.setCalls, struct{ key, value string }{key, value})
	f.config[key] = value
	return nil
}

func TestEnqueue_RejectsMissingFields(t *testing.T) {
	api := admin.New(newFakeStore())
	_, err := api.Enqueue(context.Background(), domain.JobSpec{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestEnqueue_RejectsNegativeMaxRetries(t *testing.T) {
	api := admin.New(newFakeStore())
	n := -1
	_, err := api.Enqueue(context.Background(), domain.JobSpec{ID: "a", Command: "echo", MaxRetries: &n})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestEnqueue_ValidPassesThrough(t *testing.T) {
	store := newFakeStore()
	api := admin.New(store)
	job, err := api.Enqueue(context.Background(), domain.JobSpec{ID: "a", Command: "echo hi"})
	require.NoError(t, err)
	assert.Equal(t, "a", job.ID)
	assert.NotNil(t, store.enqueueSpec)
}

func TestList_RejectsInvalidState(t *testing.T) {
	api := admin.New(newFakeStore())
	_, err := api.List(context.Background(), "bogus")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestList_EmptyFilterReturnsAll(t *testing.T) {
	store := newFakeStore()
	store.jobs = []domain.Job{{ID: "a", State: domain.JobPending}, {ID: "b", State: domain.JobCompleted}}
	api := admin.New(store)
	jobs, err := api.List(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}

func TestList_FiltersByValidState(t *testing.T) {
	store := newFakeStore()
	store.jobs = []domain.Job{{ID: "a", State: domain.JobPending}, {ID: "b", State: domain.JobCompleted}}
	api := admin.New(store)
	jobs, err := api.List(context.Background(), "pending")
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "a", jobs[0].ID)
}

func TestDLQRetry_RejectsEmptyID(t *testing.T) {
	api := admin.New(newFakeStore())
	_, err := api.DLQRetry(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestConfigSet_RejectsEmptyKey(t *testing.T) {
	api := admin.New(newFakeStore())
	err := api.ConfigSet(context.Background(), "", "5")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestConfigSet_PassesThroughUnknownKeys(t *testing.T) {
	store := newFakeStore()
	api := admin.New(store)
	require.NoError(t, api.ConfigSet(context.Background(), "some_opaque_key", "5"))
	v, ok, err := api.ConfigGet(context.Background(), "some_opaque_key")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "5", v)
}

func TestConfigSet_AcceptsKnownKeys(t *testing.T) {
	store := newFakeStore()
	api := admin.New(store)
	require.NoError(t, api.ConfigSet(context.Background(), domain.ConfigBackoffBase, "3"))
	v, ok, err := api.ConfigGet(context.Background(), domain.ConfigBackoffBase)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "3", v)
}

func TestConfigGet_RejectsEmptyKey(t *testing.T) {
	api := admin.New(newFakeStore())
	_, _, err := api.ConfigGet(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
