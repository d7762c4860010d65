package ratelimit

import (
	"sort"
	"sync"
	"time"
)

// RateLimiterConfig sets the window shape and sweep cadence
type RateLimiterConfig struct {
	MaxRequests     int           // Maximum number of requests per window
	WindowSize      time.Duration // Sliding window length
	CleanupInterval time.Duration // How often idle keys are swept
}

// DefaultConfig allows 10 requests per second per key
func DefaultConfig() *RateLimiterConfig {
	return &RateLimiterConfig{
		MaxRequests:     10,
		WindowSize:      time.Second,
		CleanupInterval: 5 * time.Minute,
	}
}

// RateLimiter is a sliding window limiter keyed by caller identity.
// Timestamps per key are kept in arrival order, so expiry is a cut at
// the first entry still inside the window.
type RateLimiter struct {
	config   *RateLimiterConfig
	mu       sync.Mutex
	hits     map[string][]time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter creates a limiter and starts its sweep goroutine.
// A nil config selects DefaultConfig.
func NewRateLimiter(config *RateLimiterConfig) *RateLimiter {
	if config == nil {
		config = DefaultConfig()
	}
	rl := &RateLimiter{
		config: config,
		hits:   make(map[string][]time.Time),
		stop:   make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

// Allow records a request for key and reports whether it fits in the
// current window.
func (rl *RateLimiter) Allow(key string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	live := pruneExpired(rl.hits[key], now.Add(-rl.config.WindowSize))
	if len(live) >= rl.config.MaxRequests {
		rl.hits[key] = live
		return false
	}
	rl.hits[key] = append(live, now)
	return true
}

// GetStats returns the number of requests inside the current window for
// key and the timestamp of the oldest one.
func (rl *RateLimiter) GetStats(key string) (int, time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	live := pruneExpired(rl.hits[key], time.Now().Add(-rl.config.WindowSize))
	if len(live) == 0 {
		return 0, time.Time{}
	}
	return len(live), live[0]
}

// Reset forgets all requests recorded for key.
func (rl *RateLimiter) Reset(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.hits, key)
}

// ResetAll forgets every key.
func (rl *RateLimiter) ResetAll() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.hits = make(map[string][]time.Time)
}

// Stop terminates the sweep goroutine. Safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// GetConfig returns the active configuration
func (rl *RateLimiter) GetConfig() *RateLimiterConfig {
	return rl.config
}

func (rl *RateLimiter) sweepLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.stop:
			return
		}
	}
}

// sweep drops expired timestamps and deletes keys that went idle, so
// one-off callers do not pin memory forever.
func (rl *RateLimiter) sweep() {
	cutoff := time.Now().Add(-rl.config.WindowSize)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, times := range rl.hits {
		live := pruneExpired(times, cutoff)
		if len(live) == 0 {
			delete(rl.hits, key)
			continue
		}
		rl.hits[key] = live
	}
}

// pruneExpired cuts timestamps at or before cutoff. Entries are in
// arrival order, so the survivors are a suffix.
func pruneExpired(times []time.Time, cutoff time.Time) []time.Time {
	first := sort.Search(len(times), func(i int) bool {
		return times[i].After(cutoff)
	})
	return times[first:]
}
