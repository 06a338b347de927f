package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures the per-client sliding window limiter.
type RateLimitConfig struct {
	// Max is the number of requests allowed per Window.
	Max    int
	Window time.Duration
	// KeyFunc derives the client key; defaults to the client IP.
	KeyFunc func(*http.Request) string
}

// window holds the counts of the current and previous fixed windows. The
// sliding estimate weights the previous count by its remaining overlap.
type window struct {
	start time.Time
	curr  float64
	prev  float64
}

type limiter struct {
	max     int
	size    time.Duration
	keyFunc func(*http.Request) string

	mu      sync.Mutex
	windows map[string]*window
}

func newLimiter(cfg RateLimitConfig) *limiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = clientIP
	}
	return &limiter{
		max:     cfg.Max,
		size:    cfg.Window,
		keyFunc: cfg.KeyFunc,
		windows: make(map[string]*window),
	}
}

// take consumes one request for key if the limit allows it.
func (l *limiter) take(key string, now time.Time) (remaining int, reset time.Time, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	start := now.Truncate(l.size)
	w, found := l.windows[key]
	switch {
	case !found:
		w = &window{start: start}
		l.windows[key] = w
	case start.Sub(w.start) >= 2*l.size:
		w.start, w.prev, w.curr = start, 0, 0
	case start.After(w.start):
		w.start, w.prev, w.curr = start, w.curr, 0
	}

	overlap := 1 - now.Sub(w.start).Seconds()/l.size.Seconds()
	estimate := w.prev*math.Max(overlap, 0) + w.curr
	reset = w.start.Add(l.size)

	if estimate >= float64(l.max) {
		return 0, reset, false
	}
	w.curr++
	return max(int(float64(l.max)-estimate-1), 0), reset, true
}

// sweep drops keys idle for two full windows.
func (l *limiter) sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, w := range l.windows {
		if now.Sub(w.start) >= 2*l.size {
			delete(l.windows, key)
		}
	}
}

// RateLimit rejects clients exceeding cfg.Max requests per cfg.Window with
// 429 and X-RateLimit-* headers. A background sweeper evicts idle clients
// until ctx is done.
func RateLimit(ctx context.Context, cfg RateLimitConfig) Middleware {
	l := newLimiter(cfg)
	go func() {
		ticker := time.NewTicker(2 * l.size)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				l.sweep(now)
			}
		}
	}()
	return l.middleware
}

func (l *limiter) middleware(next http.Handler) http.Handler {
	limit := strconv.Itoa(l.max)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()
		remaining, reset, ok := l.take(l.keyFunc(r), now)

		h := w.Header()
		h.Set("X-RateLimit-Limit", limit)
		h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

		if !ok {
			wait := max(reset.Sub(now), 0)
			h.Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			writeError(w, http.StatusTooManyRequests, "Too Many Requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// connection address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
