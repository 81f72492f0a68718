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

// RateLimitConfig configures a Limiter.
type RateLimitConfig struct {
	// Max is the number of requests a key may make per Window.
	Max int
	// Window is the sliding window length.
	Window time.Duration
	// Key extracts the limiting key. Defaults to ClientIP.
	Key func(*http.Request) string
	// Now is the clock. Defaults to time.Now.
	Now func() time.Time
}

// window counts requests in the current and previous fixed windows. The
// effective count weights the previous window by its remaining overlap.
type window struct {
	prev      float64
	curr      float64
	currStart time.Time
}

// Limiter is a per-key sliding window rate limiter.
type Limiter struct {
	cfg RateLimitConfig

	mu   sync.Mutex
	keys map[string]*window
}

// NewLimiter creates a Limiter. Max and Window must be positive.
func NewLimiter(cfg RateLimitConfig) *Limiter {
	if cfg.Key == nil {
		cfg.Key = ClientIP
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Limiter{
		cfg:  cfg,
		keys: make(map[string]*window),
	}
}

// Allow records a request for key and reports whether it is within the limit,
// how many requests remain and when the current window ends.
func (l *Limiter) Allow(key string) (allowed bool, remaining int, reset time.Time) {
	now := l.cfg.Now()
	size := l.cfg.Window

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.keys[key]
	if !ok {
		w = &window{currStart: now.Truncate(size)}
		l.keys[key] = w
	}
	if since := now.Sub(w.currStart); since >= size {
		// One full window elapsed: current becomes previous. Two or more: both reset.
		if since < 2*size {
			w.prev = w.curr
		} else {
			w.prev = 0
		}
		w.curr = 0
		w.currStart = now.Truncate(size)
	}

	overlap := 1 - float64(now.Sub(w.currStart))/float64(size)
	count := w.prev*max(overlap, 0) + w.curr
	reset = w.currStart.Add(size)
	if count >= float64(l.cfg.Max) {
		return false, 0, reset
	}
	w.curr++
	return true, max(int(float64(l.cfg.Max)-count-1), 0), reset
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.keys)
}

// Evict drops keys idle for at least two windows.
func (l *Limiter) Evict() {
	now := l.cfg.Now()

	l.mu.Lock()
	defer l.mu.Unlock()
	for k, w := range l.keys {
		if now.Sub(w.currStart) >= 2*l.cfg.Window {
			delete(l.keys, k)
		}
	}
}

// Run evicts idle keys every two windows until ctx is done.
func (l *Limiter) Run(ctx context.Context) error {
	ticker := time.NewTicker(2 * l.cfg.Window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			l.Evict()
		}
	}
}

// Middleware rejects requests over the limit with 429 and a JSON error body.
// Every response carries the X-RateLimit-* headers.
func (l *Limiter) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, remaining, reset := l.Allow(l.cfg.Key(r))

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(l.cfg.Max))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
			if !allowed {
				wait := reset.Sub(l.cfg.Now()).Seconds()
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(max(wait, 0)))))
				writeError(w, http.StatusTooManyRequests, "Too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then the
// host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
