package middleware

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/IsomerScope/pkg/errors"
)

func TestTokenBucketLimiter_Burst(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	l := NewTokenBucketLimiter(1, 3, time.Minute)
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		ok, info := l.Allow(ctx, "10.0.0.1")
		require.True(t, ok, "request %d", i)
		assert.Equal(t, 3, info.Limit)
		assert.Equal(t, 2-i, info.Remaining)
	}
	ok, _ := l.Allow(ctx, "10.0.0.1")
	assert.False(t, ok)

	ok, _ = l.Allow(ctx, "10.0.0.2")
	assert.True(t, ok, "keys are independent")
	assert.Equal(t, 2, l.BucketCount())
}

func TestTokenBucketLimiter_Refill(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	l := NewTokenBucketLimiter(2, 1, time.Minute)
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }

	ok, _ := l.Allow(ctx, "k")
	require.True(t, ok)
	ok, _ = l.Allow(ctx, "k")
	require.False(t, ok)

	now = now.Add(500 * time.Millisecond)
	ok, _ = l.Allow(ctx, "k")
	assert.True(t, ok)

	now = now.Add(time.Hour)
	ok, info := l.Allow(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, 0, info.Remaining, "refill is capped at burst")
}

func TestTokenBucketLimiter_FirstRequestWithTickingClock(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	l := NewTokenBucketLimiter(10, 1, time.Minute)
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time {
		now = now.Add(time.Microsecond)
		return now
	}

	ok, info := l.Allow(ctx, "fresh-client")
	assert.True(t, ok)
	assert.Equal(t, 0, info.Remaining)
}

func TestBucket_StaleClockDoesNotRefill(t *testing.T) {
	t.Parallel()
	now := time.Unix(1_700_000_000, 0)
	b := &bucket{tokens: 1, at: now}

	ok, _ := b.take(now, 1, 1)
	require.True(t, ok)
	ok, _ = b.take(now.Add(-time.Second), 1, 1)
	assert.False(t, ok)
	assert.Equal(t, now, b.at)
}

func TestTokenBucketLimiter_Defaults(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	l := NewTokenBucketLimiter(1, 0, 0)
	ok, info := l.Allow(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, 1, info.Limit)
}

func TestRateLimit_Rejects(t *testing.T) {
	t.Parallel()
	handler := RateLimit(NewTokenBucketLimiter(0.001, 1, time.Minute), RateLimitConfig{})(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/isomers/analyze", nil)
	req.RemoteAddr = "192.0.2.7:5555"

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, string(errors.ErrCodeTooManyRequests), body["code"])
}

func TestRateLimit_CustomKeyAndHandler(t *testing.T) {
	t.Parallel()
	cfg := RateLimitConfig{
		KeyFunc: func(r *http.Request) string { return "shared" },
		ExceededHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}),
	}
	handler := RateLimit(NewTokenBucketLimiter(0.001, 1, time.Minute), cfg)(okHandler())

	first := httptest.NewRequest(http.MethodGet, "/", nil)
	first.RemoteAddr = "192.0.2.1:1"
	second := httptest.NewRequest(http.MethodGet, "/", nil)
	second.RemoteAddr = "192.0.2.2:1"

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, first)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, second)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

type fakeCounter struct {
	hits map[string]int64
	ttl  time.Duration
	err  error
}

func (f *fakeCounter) Hit(_ context.Context, key string, _ time.Duration) (int64, time.Duration, error) {
	if f.err != nil {
		return 0, 0, f.err
	}
	f.hits[key]++
	return f.hits[key], f.ttl, nil
}

func TestWindowLimiter(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	counter := &fakeCounter{hits: map[string]int64{}, ttl: 2 * time.Second}
	l := NewWindowLimiter(counter, 2, 3, nil)
	assert.Equal(t, 1500*time.Millisecond, l.window)

	for i := 0; i < 3; i++ {
		ok, info := l.Allow(ctx, "k")
		require.True(t, ok, "request %d", i)
		assert.Equal(t, 3, info.Limit)
		assert.Equal(t, 2-i, info.Remaining)
	}
	ok, info := l.Allow(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, 0, info.Remaining)
	assert.WithinDuration(t, time.Now().Add(2*time.Second), info.ResetAt, time.Second)
}

func TestWindowLimiter_MinimumWindow(t *testing.T) {
	t.Parallel()
	l := NewWindowLimiter(&fakeCounter{hits: map[string]int64{}}, 100, 1, nil)
	assert.Equal(t, time.Second, l.window)
}

func TestWindowLimiter_FailsOpen(t *testing.T) {
	t.Parallel()
	l := NewWindowLimiter(&fakeCounter{err: stderrors.New("redis down")}, 1, 1, nil)
	for i := 0; i < 5; i++ {
		ok, info := l.Allow(context.Background(), "k")
		require.True(t, ok)
		assert.Equal(t, 1, info.Remaining)
	}
}

func TestRateLimit_SharedWindow(t *testing.T) {
	t.Parallel()
	counter := &fakeCounter{hits: map[string]int64{}, ttl: 30 * time.Second}
	handler := RateLimit(NewWindowLimiter(counter, 1, 1, nil), RateLimitConfig{})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.9:1"
	handler.ServeHTTP(httptest.NewRecorder(), req)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	retry, err := strconv.Atoi(w.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.InDelta(t, 30, retry, 2)
	assert.Equal(t, int64(2), counter.hits["192.0.2.9"])
}

func TestClientIP(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"real ip", map[string]string{"X-Real-IP": "203.0.113.9"}, "10.0.0.1:80", "203.0.113.9"},
		{"forwarded chain", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.2"}, "10.0.0.1:80", "203.0.113.5"},
		{"forwarded single", map[string]string{"X-Forwarded-For": "203.0.113.6"}, "10.0.0.1:80", "203.0.113.6"},
		{"remote addr", nil, "198.51.100.3:4444", "198.51.100.3"},
		{"remote without port", nil, "198.51.100.4", "198.51.100.4"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(r))
		})
	}
}

//Personal.AI order the ending
