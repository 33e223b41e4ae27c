package middleware

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/turtacn/IsomerScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/IsomerScope/pkg/errors"
)

// RateLimiter decides whether one more request for key may proceed.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, RateLimitInfo)
}

// RateLimitInfo feeds the X-RateLimit-* headers.
type RateLimitInfo struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

type RateLimitConfig struct {
	// KeyFunc defaults to ClientIP.
	KeyFunc func(r *http.Request) string
	// ExceededHandler replaces the JSON 429 body.
	ExceededHandler http.Handler
}

// ClientIP prefers X-Real-IP, then the first X-Forwarded-For hop, then the
// remote address without its port.
func ClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// ─────────────────────────────────────────────────────────────────────────────
// In-process token buckets
// ─────────────────────────────────────────────────────────────────────────────

type bucket struct {
	mu     sync.Mutex
	tokens float64
	at     time.Time
}

// take refills for the time since the last call and spends one token. A
// caller that read the clock before a concurrent one neither refills nor
// moves the bucket back in time.
func (b *bucket) take(now time.Time, rate float64, burst int) (bool, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if elapsed := now.Sub(b.at); elapsed > 0 {
		b.tokens = min(float64(burst), b.tokens+elapsed.Seconds()*rate)
		b.at = now
	}
	if b.tokens < 1 {
		return false, 0
	}
	b.tokens--
	return true, int(b.tokens)
}

// TokenBucketLimiter keeps one bucket per key in this process. Buckets idle
// past their TTL are evicted, so a returning client gets a full burst.
type TokenBucketLimiter struct {
	rate  float64
	burst int
	now   func() time.Time

	mu      sync.Mutex
	buckets *gocache.Cache
}

// NewTokenBucketLimiter allows rate requests per second in bursts of up to
// burst. idleTTL defaults to ten minutes.
func NewTokenBucketLimiter(rate float64, burst int, idleTTL time.Duration) *TokenBucketLimiter {
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &TokenBucketLimiter{
		rate:    rate,
		burst:   max(burst, 1),
		now:     time.Now,
		buckets: gocache.New(idleTTL, idleTTL),
	}
}

func (l *TokenBucketLimiter) bucketFor(key string, now time.Time) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets.Get(key)
	if !ok {
		b = &bucket{tokens: float64(l.burst), at: now}
	}
	l.buckets.SetDefault(key, b)
	return b.(*bucket)
}

func (l *TokenBucketLimiter) Allow(_ context.Context, key string) (bool, RateLimitInfo) {
	now := l.now()
	ok, remaining := l.bucketFor(key, now).take(now, l.rate, l.burst)
	return ok, RateLimitInfo{
		Limit:     l.burst,
		Remaining: remaining,
		ResetAt:   now.Add(time.Duration(float64(time.Second) / l.rate)),
	}
}

func (l *TokenBucketLimiter) BucketCount() int { return l.buckets.ItemCount() }

// ─────────────────────────────────────────────────────────────────────────────
// Shared fixed windows
// ─────────────────────────────────────────────────────────────────────────────

// WindowCounter counts hits per key across processes.
type WindowCounter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// WindowLimiter allows limit requests per window and key. A failing
// counter lets requests through.
type WindowLimiter struct {
	counter WindowCounter
	limit   int
	window  time.Duration
	logger  logging.Logger
	now     func() time.Time
}

// NewWindowLimiter approximates rate and burst as burst requests per
// burst/rate seconds.
func NewWindowLimiter(counter WindowCounter, rate float64, burst int, logger logging.Logger) *WindowLimiter {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	burst = max(burst, 1)
	return &WindowLimiter{
		counter: counter,
		limit:   burst,
		window:  max(time.Duration(float64(burst)/rate*float64(time.Second)), time.Second),
		logger:  logger,
		now:     time.Now,
	}
}

func (l *WindowLimiter) Allow(ctx context.Context, key string) (bool, RateLimitInfo) {
	info := RateLimitInfo{Limit: l.limit, Remaining: l.limit, ResetAt: l.now().Add(l.window)}
	n, ttl, err := l.counter.Hit(ctx, key, l.window)
	if err != nil {
		l.logger.Warn("rate limit backend failed, allowing request", logging.String("key", key), logging.Err(err))
		return true, info
	}
	info.Remaining = max(l.limit-int(n), 0)
	info.ResetAt = l.now().Add(ttl)
	return n <= int64(l.limit), info
}

// ─────────────────────────────────────────────────────────────────────────────
// Middleware
// ─────────────────────────────────────────────────────────────────────────────

func writeRateHeaders(h http.Header, info RateLimitInfo) {
	h.Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetAt.Unix(), 10))
}

// RateLimit answers 429 with Retry-After once a key is over its limit.
// Every response carries the X-RateLimit-* headers.
func RateLimit(limiter RateLimiter, config RateLimitConfig) func(http.Handler) http.Handler {
	keyFunc := config.KeyFunc
	if keyFunc == nil {
		keyFunc = ClientIP
	}
	exceeded := config.ExceededHandler
	if exceeded == nil {
		exceeded = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"code":    errors.ErrCodeTooManyRequests.String(),
				"message": "rate limit exceeded, please retry later",
			})
		})
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, info := limiter.Allow(r.Context(), keyFunc(r))
			writeRateHeaders(w.Header(), info)
			if ok {
				next.ServeHTTP(w, r)
				return
			}
			wait := max(int(time.Until(info.ResetAt).Seconds()), 1)
			w.Header().Set("Retry-After", strconv.Itoa(wait))
			exceeded.ServeHTTP(w, r)
		})
	}
}

//Personal.AI order the ending
