package probe

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultRetryAfter is the pause after a 429 that carried no usable Retry-After.
	DefaultRetryAfter = 60 * time.Second

	// MaxRetryAfter caps the pause a host can ask for.
	MaxRetryAfter = 5 * time.Minute
)

// pacer spaces probes to the listing host with a token bucket and holds
// every probe back while the host has asked us to slow down.
type pacer struct {
	bucket *rate.Limiter

	mu          sync.Mutex
	pausedUntil time.Time
}

// newPacer allows perSecond probes with a burst of one. Zero or less
// disables pacing but keeps 429 pauses.
func newPacer(perSecond float64) *pacer {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &pacer{bucket: rate.NewLimiter(limit, 1)}
}

func (p *pacer) pause() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return time.Until(p.pausedUntil)
}

// Wait blocks until the next probe may go out or ctx is done.
func (p *pacer) Wait(ctx context.Context) error {
	if d := p.pause(); d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return p.bucket.Wait(ctx)
}

// Backoff pauses all probes for d, or DefaultRetryAfter when d is not
// positive. d is clamped to MaxRetryAfter.
func (p *pacer) Backoff(d time.Duration) {
	if d <= 0 {
		d = DefaultRetryAfter
	}
	d = min(d, MaxRetryAfter)
	p.mu.Lock()
	p.pausedUntil = time.Now().Add(d)
	p.mu.Unlock()
}
