package papersources

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_Allow(t *testing.T) {
	t.Parallel()

	limiter := NewRateLimiter(1, 2)

	assert.True(t, limiter.Allow())
	assert.True(t, limiter.Allow())
	// Burst exhausted.
	assert.False(t, limiter.Allow())
}

func TestRateLimiter_WaitRespectsContext(t *testing.T) {
	t.Parallel()

	limiter := NewRateLimiter(0.001, 1)
	require.True(t, limiter.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := limiter.Wait(ctx)
	require.Error(t, err)
}
