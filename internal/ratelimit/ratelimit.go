// File: internal/ratelimit/ratelimit.go
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

type Config struct {
	Window        time.Duration // Length of one counting window
	Limit         int           // Requests allowed per window
	CleanupPeriod time.Duration // How often idle windows are dropped; zero disables cleanup
}

// DefaultAIConfig limits calls that reach the AI provider.
func DefaultAIConfig(limit int, window time.Duration) *Config {
	if limit <= 0 {
		limit = 30
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Config{
		Window:        window,
		Limit:         limit,
		CleanupPeriod: 5 * window,
	}
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	Reset      time.Time
	RetryAfter time.Duration // Zero when allowed
}

type window struct {
	start time.Time
	count int
}

// MemoryRateLimiter is a fixed-window limiter keyed by an arbitrary string
// (a user or a client IP). State lives in process memory only.
type MemoryRateLimiter struct {
	config  *Config
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time

	stopCh    chan struct{}
	closeOnce sync.Once
}

// NewMemoryRateLimiter creates a limiter and starts its cleanup goroutine.
// Call Close to stop it.
func NewMemoryRateLimiter(config *Config) *MemoryRateLimiter {
	rl := &MemoryRateLimiter{
		config:  config,
		windows: make(map[string]*window),
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
	if config.CleanupPeriod > 0 {
		go rl.cleanupLoop()
	}
	return rl
}

// Allow counts one request for key.
func (rl *MemoryRateLimiter) Allow(key string) Decision {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.windows[key]
	if !ok || now.Sub(w.start) >= rl.config.Window {
		w = &window{start: now}
		rl.windows[key] = w
	}

	reset := w.start.Add(rl.config.Window)
	if w.count >= rl.config.Limit {
		return Decision{Limit: rl.config.Limit, Reset: reset, RetryAfter: reset.Sub(now)}
	}

	w.count++
	return Decision{
		Allowed:   true,
		Limit:     rl.config.Limit,
		Remaining: rl.config.Limit - w.count,
		Reset:     reset,
	}
}

func (rl *MemoryRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup drops windows that have already ended.
func (rl *MemoryRateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, w := range rl.windows {
		if now.Sub(w.start) >= rl.config.Window {
			delete(rl.windows, key)
		}
	}
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (rl *MemoryRateLimiter) Close() {
	rl.closeOnce.Do(func() { close(rl.stopCh) })
}

// GetClientIP returns the originating client address, preferring proxy
// headers over the socket address.
func GetClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
