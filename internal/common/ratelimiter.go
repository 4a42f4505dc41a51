package common

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Analysis struct {
	allowed bool          // If the request is allowed
	wait    time.Duration // The minimal time to wait before the request is allowed
}

// Gate in front of the upstream API. Requests ask for permission and
// block until all restrictions are satisfied or the context is cancelled
type RateLimiter struct {
	mu           sync.Mutex
	restrictions []Restriction // Restrictions to consider
	history      []time.Time   // History of performed requests
	duration     time.Duration // Max duration for all restrictions to be lifted
	backoff      Stopwatch     // Running while the upstream has told us off
}

// NewRateLimiter returns a pointer: the limiter embeds a mutex, so it
// must never be copied once in use
func NewRateLimiter(restrictions []Restriction) *RateLimiter {
	rl := &RateLimiter{}
	rl.restrictions = append(rl.restrictions, restrictions...)
	for _, restriction := range restrictions {
		if restriction.Duration > rl.duration {
			rl.duration = restriction.Duration
		}
	}
	rl.backoff = NewStopwatch(rl.duration)
	return rl
}

// Block until the restrictions allow one more request, then record it.
// Returns an error only if the context expires while waiting
func (rl *RateLimiter) Wait(ctx context.Context) error {

	// Give this request an identity for the logs
	requestId := uuid.New()
	for {
		rl.mu.Lock()
		rl.trim()
		analysis := rl.analyse()
		if analysis.allowed {
			rl.history = append(rl.history, time.Now())
			rl.mu.Unlock()
			return nil
		}
		rl.mu.Unlock()

		log.Warn().Msg(fmt.Sprintf("Request %s delayed %.2f seconds by rate limiter", requestId, analysis.wait.Seconds()))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(analysis.wait):
		}
	}
}

// The upstream replied 429: hold everything back for the longest window
func (rl *RateLimiter) ReceivedRateLimit() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.backoff.Start()
}

// Trim the current history, leaving only the requests
// that are young enough to be affected by at least one restriction
func (rl *RateLimiter) trim() {
	currentTime := time.Now()
	index := 0
	for i := len(rl.history) - 1; i >= 0; i-- {
		if currentTime.Sub(rl.history[i]) > rl.duration {
			index = i + 1
			break
		}
	}
	rl.history = rl.history[index:]
}

func (rl *RateLimiter) analyse() Analysis {

	// An upstream slap overrides whatever the restrictions say
	if rl.backoff.Running {
		if stopped, remaining := rl.backoff.Stopped(); !stopped {
			return Analysis{allowed: false, wait: remaining}
		}
		rl.backoff.Stop()
	}

	// Merge the analyses of every restriction
	merged := Analysis{allowed: true}
	for _, restriction := range rl.restrictions {
		analysis := restriction.Analyse(rl.history)
		merged.allowed = merged.allowed && analysis.allowed
		if analysis.wait > merged.wait {
			merged.wait = analysis.wait
		}
	}
	return merged
}
