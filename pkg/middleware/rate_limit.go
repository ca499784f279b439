package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	apperrors "shelterbook/pkg/errors"
	httputil "shelterbook/pkg/http"
	"shelterbook/pkg/logger"
)

// HeaderBookerID carries the caller's booker identity.
const HeaderBookerID = "X-Booker-ID"

// KeyExtractor returns the rate limit key of a request. Requests with an
// empty key are not limited.
type KeyExtractor func(r *http.Request) string

// BookerRateLimiter is a sliding window limiter keyed per booker.
type BookerRateLimiter struct {
	mu           sync.Mutex
	requests     map[string][]time.Time
	limit        int
	window       time.Duration
	keyExtractor KeyExtractor
	log          *logger.Logger
	now          func() time.Time
	stopOnce     sync.Once
	stopCh       chan struct{}
}

func NewBookerRateLimiter(limit int, window time.Duration, extractor KeyExtractor, log *logger.Logger) *BookerRateLimiter {
	if extractor == nil {
		extractor = DefaultBookerExtractor
	}
	limiter := &BookerRateLimiter{
		requests:     make(map[string][]time.Time),
		limit:        limit,
		window:       window,
		keyExtractor: extractor,
		log:          log,
		now:          time.Now,
		stopCh:       make(chan struct{}),
	}

	go limiter.cleanup()

	return limiter
}

func (rl *BookerRateLimiter) cleanup() {
	ticker := time.NewTicker(max(rl.window, time.Minute))
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := rl.now()
			rl.mu.Lock()
			for key, timestamps := range rl.requests {
				if len(timestamps) == 0 || now.Sub(timestamps[len(timestamps)-1]) >= rl.window {
					delete(rl.requests, key)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *BookerRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// Allow records a request for key and reports whether it is within the
// limit. Rejected requests are not recorded.
func (rl *BookerRateLimiter) Allow(key string) bool {
	if key == "" {
		return true
	}

	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	timestamps := rl.requests[key]
	valid := timestamps[:0]
	for _, ts := range timestamps {
		if now.Sub(ts) < rl.window {
			valid = append(valid, ts)
		}
	}

	if len(valid) >= rl.limit {
		rl.requests[key] = valid
		return false
	}

	rl.requests[key] = append(valid, now)
	return true
}

func RateLimit(limiter *BookerRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := limiter.keyExtractor(r)

			if !limiter.Allow(key) {
				limiter.log.Warn("Rate limit exceeded",
					"request_id", RequestIDFrom(r.Context()),
					"booker_id", key,
					"path", r.URL.Path,
				)
				w.Header().Set("Retry-After", strconv.Itoa(int(limiter.window.Seconds())))
				_ = httputil.WriteError(w, apperrors.New(apperrors.CodeRateLimited,
					"Rate limit exceeded", http.StatusTooManyRequests))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func DefaultBookerExtractor(r *http.Request) string {
	return r.Header.Get(HeaderBookerID)
}
