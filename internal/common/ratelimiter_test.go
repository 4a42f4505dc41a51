package common

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterAllowsWithinWindow(t *testing.T) {

	rl := NewRateLimiter([]Restriction{{Requests: 2, Duration: time.Minute}})
	require.NoError(t, rl.Wait(context.Background()))
	require.NoError(t, rl.Wait(context.Background()))
}

func TestRateLimiterWaitHonoursContext(t *testing.T) {

	rl := NewRateLimiter([]Restriction{{Requests: 1, Duration: time.Minute}})
	require.NoError(t, rl.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, rl.Wait(ctx), context.DeadlineExceeded)
}

func TestRateLimiterCopiedHoldersShareOneGate(t *testing.T) {

	rl := NewRateLimiter([]Restriction{{Requests: 1, Duration: time.Minute}})

	// Structs holding the limiter copy the pointer, not the lock or the
	// request history
	type holder struct{ limiter *RateLimiter }
	a := holder{rl}
	b := a

	require.NoError(t, a.limiter.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, b.limiter.Wait(ctx), context.DeadlineExceeded)
}

func TestRestrictionAnalyse(t *testing.T) {

	restriction := Restriction{Requests: 2, Duration: time.Minute}

	now := time.Now()
	assert.True(t, restriction.Analyse(nil).allowed)
	assert.True(t, restriction.Analyse([]time.Time{now}).allowed)

	full := restriction.Analyse([]time.Time{now.Add(-time.Second), now})
	assert.False(t, full.allowed)
	assert.Greater(t, full.wait, time.Duration(0))
}
