// Package ratelimit throttles requests to cloud AI backends.
package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// Config holds rate limiting configuration for a backend.
type Config struct {
	// RequestsPerSecond is the sustained rate limit.
	RequestsPerSecond float64
	// BurstSize is the maximum burst size.
	BurstSize int
}

// DefaultBackoff is used when a 429 response carries no Retry-After.
const DefaultBackoff = 20 * time.Second

// Defaults provides conservative per-provider limits, well below the
// published tier-1 quotas.
var Defaults = map[domain.AIProvider]Config{
	domain.AIProviderOpenAI:    {RequestsPerSecond: 5.0, BurstSize: 10},
	domain.AIProviderAnthropic: {RequestsPerSecond: 1.0, BurstSize: 3},
}

// Limiter is a token bucket with a backoff window set by 429 responses.
// A nil *Limiter never blocks.
type Limiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
	now     func() time.Time
}

// New creates a limiter with the default limits of provider.
func New(provider domain.AIProvider) *Limiter {
	cfg, ok := Defaults[provider]
	if !ok {
		cfg = Config{RequestsPerSecond: 5.0, BurstSize: 10}
	}
	return NewWithConfig(cfg)
}

// NewWithConfig creates a limiter with custom limits.
func NewWithConfig(cfg Config) *Limiter {
	if cfg.BurstSize < 1 {
		cfg.BurstSize = 1
	}
	limit := rate.Limit(cfg.RequestsPerSecond)
	if cfg.RequestsPerSecond <= 0 {
		limit = rate.Inf
	}
	return &Limiter{
		limiter: rate.NewLimiter(limit, cfg.BurstSize),
		now:     time.Now,
	}
}

// Wait blocks until a request may be sent. It honours any backoff set by
// Backoff before taking a token.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	retryAt := l.retryAt
	l.mu.Unlock()

	if delay := retryAt.Sub(l.now()); delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return l.limiter.Wait(ctx)
}

// Backoff delays every request until d from now. A non-positive d uses
// DefaultBackoff.
func (l *Limiter) Backoff(d time.Duration) {
	if l == nil {
		return
	}
	if d <= 0 {
		d = DefaultBackoff
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if until := l.now().Add(d); until.After(l.retryAt) {
		l.retryAt = until
	}
}

// Allow reports whether a request may be sent immediately.
func (l *Limiter) Allow() bool {
	if l == nil {
		return true
	}

	l.mu.Lock()
	retryAt := l.retryAt
	l.mu.Unlock()

	if l.now().Before(retryAt) {
		return false
	}
	return l.limiter.Allow()
}

// Observe inspects a response and, for 429, starts a backoff window from
// its Retry-After header. It returns an ErrRateLimited error for 429 and
// nil otherwise.
func (l *Limiter) Observe(resp *http.Response) error {
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		return nil
	}
	wait := RetryAfter(resp.Header.Get("Retry-After"))
	l.Backoff(wait)
	if wait <= 0 {
		wait = DefaultBackoff
	}
	return fmt.Errorf("%w: retry after %s", domain.ErrRateLimited, wait)
}

// RetryAfter parses a Retry-After header given in seconds. It returns 0
// when the header is missing or malformed.
func RetryAfter(header string) time.Duration {
	secs, err := strconv.Atoi(header)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
