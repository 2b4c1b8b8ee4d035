package middleware

import (
	"context"
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/buchungsbutler/voiceagent/internal/tenant"
)

const idleBucketTTL = 3 * time.Minute

// KeyFunc picks the bucket a request is charged against.
type KeyFunc func(r *http.Request) string

// KeyByIP charges the client address. Run chi's RealIP first when behind a proxy.
func KeyByIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// KeyByTenant charges the authenticated tenant and falls back to the client address.
func KeyByTenant(r *http.Request) string {
	if id := tenant.IDFromContext(r.Context()); id != uuid.Nil {
		return "tenant:" + id.String()
	}
	return KeyByIP(r)
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per key.
type RateLimiter struct {
	key   KeyFunc
	rate  rate.Limit
	burst int

	mu      sync.Mutex
	buckets map[string]*bucket
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return NewKeyedRateLimiter(rps, burst, KeyByIP)
}

func NewKeyedRateLimiter(rps float64, burst int, key KeyFunc) *RateLimiter {
	return &RateLimiter{
		key:     key,
		rate:    rate.Limit(rps),
		burst:   burst,
		buckets: make(map[string]*bucket),
	}
}

func (rl *RateLimiter) bucketFor(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter
}

// retryAfter is the whole number of seconds until the next token, at least 1.
func (rl *RateLimiter) retryAfter() string {
	if rl.rate <= 0 {
		return "60"
	}
	secs := math.Ceil(1 / float64(rl.rate))
	return strconv.Itoa(int(math.Max(1, math.Min(secs, 3600))))
}

func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.bucketFor(rl.key(r), time.Now()).Allow() {
			w.Header().Set("Retry-After", rl.retryAfter())
			writeDetail(w, http.StatusTooManyRequests, "Rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) sweep(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, b := range rl.buckets {
		if now.Sub(b.lastSeen) > idleBucketTTL {
			delete(rl.buckets, key)
		}
	}
}

// Cleanup drops idle buckets every minute until ctx is done.
func (rl *RateLimiter) Cleanup(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rl.sweep(now)
		}
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
