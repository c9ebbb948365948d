package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/vyrodovalexey/apigw/internal/observability"
)

// Cleanup bounds for idle client entries.
const (
	DefaultClientTTL   = 10 * time.Minute
	MinCleanupInterval = 10 * time.Second
	MaxCleanupInterval = time.Minute
)

type clientEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RouteLimiter is an in-process token bucket per client for a single
// route. Unlike FixedWindowLimiter its state is local to the instance.
type RouteLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientEntry
	rps       float64
	burst     int
	clientTTL time.Duration
	logger    observability.Logger
	now       func() time.Time
	stopCh    chan struct{}
	stopped   bool
}

// RouteLimiterOption configures a RouteLimiter.
type RouteLimiterOption func(*RouteLimiter)

// WithRouteLimiterLogger sets the logger.
func WithRouteLimiterLogger(logger observability.Logger) RouteLimiterOption {
	return func(rl *RouteLimiter) {
		rl.logger = logger
	}
}

// WithClientTTL sets how long an idle client's bucket is kept.
func WithClientTTL(ttl time.Duration) RouteLimiterOption {
	return func(rl *RouteLimiter) {
		rl.clientTTL = ttl
	}
}

// NewRouteLimiter creates a token bucket limiter refilling at rps tokens
// per second with the given burst. A burst below 1 defaults to rps.
func NewRouteLimiter(rps float64, burst int, opts ...RouteLimiterOption) *RouteLimiter {
	if burst < 1 {
		burst = int(rps)
		if burst < 1 {
			burst = 1
		}
	}

	rl := &RouteLimiter{
		clients:   make(map[string]*clientEntry),
		rps:       rps,
		burst:     burst,
		clientTTL: DefaultClientTTL,
		logger:    observability.NopLogger(),
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(rl)
	}
	return rl
}

// Limit returns the refill rate rounded down to whole requests per second.
func (rl *RouteLimiter) Limit() int64 {
	return int64(rl.rps)
}

// Allow takes one token from client's bucket.
func (rl *RouteLimiter) Allow(client string) bool {
	rl.mu.Lock()
	now := rl.now()
	entry, ok := rl.clients[client]
	if !ok {
		entry = &clientEntry{limiter: rate.NewLimiter(rate.Limit(rl.rps), rl.burst)}
		rl.clients[client] = entry
	}
	entry.lastAccess = now
	limiter := entry.limiter
	rl.mu.Unlock()

	return limiter.AllowN(now, 1)
}

// CleanupOldClients drops buckets idle for longer than maxAge.
func (rl *RouteLimiter) CleanupOldClients(maxAge time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	removed := 0
	for client, entry := range rl.clients {
		if now.Sub(entry.lastAccess) > maxAge {
			delete(rl.clients, client)
			removed++
		}
	}

	if removed > 0 {
		rl.logger.Debug("cleaned up idle route limiter entries",
			observability.Int("removed", removed),
			observability.Int("remaining", len(rl.clients)),
		)
	}
}

// Clients returns the number of tracked clients.
func (rl *RouteLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// StartAutoCleanup runs CleanupOldClients in the background until Stop.
func (rl *RouteLimiter) StartAutoCleanup() {
	rl.mu.Lock()
	if rl.stopped {
		rl.mu.Unlock()
		return
	}
	ttl := rl.clientTTL
	rl.mu.Unlock()

	interval := ttl / 2
	if interval > MaxCleanupInterval {
		interval = MaxCleanupInterval
	}
	if interval < MinCleanupInterval {
		interval = MinCleanupInterval
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				rl.CleanupOldClients(ttl)
			case <-rl.stopCh:
				return
			}
		}
	}()
}

// Stop ends background cleanup.
func (rl *RouteLimiter) Stop() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if !rl.stopped {
		rl.stopped = true
		close(rl.stopCh)
	}
}
