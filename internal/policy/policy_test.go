package policy_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vishnusrinivas00/queuectl/internal/policy"
)

func TestIsExhausted(t *testing.T) {
	assert.False(t, policy.IsExhausted(1, 3))
	assert.True(t, policy.IsExhausted(4, 3))
	assert.True(t, policy.IsExhausted(5, 3))
	assert.True(t, policy.IsExhausted(1, 0))
}

func TestBackoffDelay(t *testing.T) {
	assert.Equal(t, 2*time.Second, policy.BackoffDelay(1, 2))
	assert.Equal(t, 4*time.Second, policy.BackoffDelay(2, 2))
	assert.Equal(t, 8*time.Second, policy.BackoffDelay(3, 2))
	assert.Equal(t, 1*time.Second, policy.BackoffDelay(1, 1))
	assert.Equal(t, 1*time.Second, policy.BackoffDelay(5, 1))
}

func TestNextAttemptAt(t *testing.T) {
	now := time.Date(2025, 1, 15, 14, 22, 0, 0, time.UTC)
	got := policy.NextAttemptAt(1, 2, now)
	assert.Equal(t, now.Add(2*time.Second), got)
}

func TestEligible(t *testing.T) {
	now := time.Date(2025, 1, 15, 14, 22, 0, 0, time.UTC)

	assert.True(t, policy.Eligible(nil, now))

	past := now.Add(-time.Second)
	assert.True(t, policy.Eligible(&past, now))

	future := now.Add(time.Second)
	assert.False(t, policy.Eligible(&future, now))

	assert.True(t, policy.Eligible(&now, now))
}
