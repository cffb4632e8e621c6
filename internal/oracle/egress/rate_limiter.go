package egress

import (
	"sync"
	"time"
)

// RateLimiter is a sliding-window per-provider requests-per-minute cap,
// used for interactive-mode dispatch. It complements, rather than
// replaces, the scheduler's token-bucket dispatch gate (internal/scheduler):
// the bucket paces how fast batches leave the process, while this window
// enforces a provider's published per-minute ceiling exactly.
type RateLimiter struct {
	mu      sync.Mutex
	limits  map[string]int
	windows map[string][]int64 // Unix milliseconds
}

// NewRateLimiter creates a limiter with per-provider limits. A provider
// absent from limitsPerMin, or mapped to 0, is never rate-limited.
func NewRateLimiter(limitsPerMin map[string]int) *RateLimiter {
	limits := make(map[string]int, len(limitsPerMin))
	for k, v := range limitsPerMin {
		limits[k] = v
	}
	return &RateLimiter{limits: limits, windows: make(map[string][]int64)}
}

// Allow reports whether a request to provider is within its per-minute
// limit right now. If not, it returns the duration to wait before
// retrying. A local provider with no configured limit always passes.
func (r *RateLimiter) Allow(provider string) (bool, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	limit, exists := r.limits[provider]
	if !exists || limit == 0 {
		return true, 0
	}

	now := time.Now().UnixMilli()
	windowStart := now - 60_000

	timestamps := r.windows[provider]
	pruned := make([]int64, 0, len(timestamps))
	for _, ts := range timestamps {
		if ts > windowStart {
			pruned = append(pruned, ts)
		}
	}

	if len(pruned) >= limit {
		oldestInWindow := pruned[0]
		retryAfter := time.Duration(oldestInWindow+60_000-now) * time.Millisecond
		r.windows[provider] = pruned
		return false, retryAfter
	}

	pruned = append(pruned, now)
	r.windows[provider] = pruned
	return true, 0
}
