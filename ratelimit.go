package tatami

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures the RateLimit middleware.
type RateLimitConfig struct {
	Rate            float64                                      // requests per second
	Burst           int                                          // max burst
	KeyFunc         func(r *http.Request) string                 // default: remote IP
	OnLimit         func(w http.ResponseWriter, r *http.Request) // default: 429 problem detail
	CleanupInterval time.Duration                                // how often to prune idle limiters (default: 1m)
	MaxIdle         time.Duration                                // remove limiters idle longer than this (default: 5m)
}

// limiterStore holds one token bucket per key and prunes idle entries
// lazily on access.
type limiterStore struct {
	mu       sync.Mutex
	entries  map[string]*limiterEntry
	rate     rate.Limit
	burst    int
	interval time.Duration
	maxIdle  time.Duration
	pruned   time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func (s *limiterStore) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if now.Sub(s.pruned) >= s.interval {
		for k, e := range s.entries {
			if now.Sub(e.lastSeen) > s.maxIdle {
				delete(s.entries, k)
			}
		}
		s.pruned = now
	}

	entry, ok := s.entries[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(s.rate, s.burst)}
		s.entries[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// RateLimit returns middleware that applies per-key token-bucket rate
// limiting. Rejected requests get a 429 problem detail with a
// Retry-After hint unless OnLimit overrides the response.
func RateLimit(cfg RateLimitConfig) Middleware {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = remoteIP
	}
	if cfg.OnLimit == nil {
		cfg.OnLimit = func(w http.ResponseWriter, _ *http.Request) {
			writeProblem(w, &ProblemDetail{
				Type:   "about:blank",
				Title:  http.StatusText(http.StatusTooManyRequests),
				Status: http.StatusTooManyRequests,
			})
		}
	}

	store := &limiterStore{
		entries:  make(map[string]*limiterEntry),
		rate:     rate.Limit(cfg.Rate),
		burst:    cfg.Burst,
		interval: cfg.CleanupInterval,
		maxIdle:  cfg.MaxIdle,
	}
	if store.interval <= 0 {
		store.interval = time.Minute
	}
	if store.maxIdle <= 0 {
		store.maxIdle = 5 * time.Minute
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !store.get(cfg.KeyFunc(r)).Allow() {
				w.Header().Set("Retry-After", strconv.FormatFloat(1/cfg.Rate, 'f', 0, 64))
				cfg.OnLimit(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
