package queue_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vishnusrinivas00/queuectl/internal/queue"
)

type fakeReclaimer struct {
	calls     int32
	threshold time.Duration
}

func (f *fakeReclaimer) ReclaimOrphans(_ context.Context, threshold time.Duration) (int, error) {
	atomic.AddInt32(&f.calls, 1)
	f.threshold = threshold
	return 0, nil
}

func TestReconciler_TicksUntilCancelled(t *testing.T) {
	fr := &fakeReclaimer{}
	r := queue.NewReconciler(fr)
	r.Interval = 5 * time.Millisecond
	r.Threshold = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()

	require.NoError(t, r.Run(ctx))
	assert.GreaterOrEqual(t, int(atomic.LoadInt32(&fr.calls)), 2)
	assert.Equal(t, time.Minute, fr.threshold)
}
