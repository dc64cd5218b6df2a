package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterRequests(t *testing.T) {
	rl := NewRateLimiter(2, 1000)
	ctx := context.Background()

	require.NoError(t, rl.AllowRequest(ctx))
	require.NoError(t, rl.AllowRequest(ctx))
	assert.Error(t, rl.AllowRequest(ctx))
}

func TestRateLimiterTokens(t *testing.T) {
	rl := NewRateLimiter(10, 1000)
	ctx := context.Background()

	require.NoError(t, rl.AllowTokens(ctx, 600))
	assert.Error(t, rl.AllowTokens(ctx, 600))
	assert.Error(t, rl.AllowTokens(ctx, 5000), "more than the hourly budget never fits")

	rl.ConsumeTokens(400)
	_, tokens := rl.GetStats()
	assert.Zero(t, tokens)
}

func TestRateLimiterCancelled(t *testing.T) {
	rl := NewRateLimiter(10, 1000)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, rl.AllowRequest(ctx), context.Canceled)
}
