// Package ratelimit throttles repeated WARN-level log lines for the same recurring problem, so a flapping entity or
// a hub stuck returning the same error code doesn't flood the log.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// cleanupInterval bounds how long a stale key's limiter lingers in memory after its last use.
const cleanupInterval = 10 * time.Minute

// key identifies one recurring problem: a specific error code against a specific entity.
type key struct {
	code     string
	entityID string
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter allows at most one event per (code, entityID) pair per window, keeping a separate token-bucket limiter per
// key so unrelated entities or error codes are never throttled by each other.
type Limiter struct {
	mu       sync.Mutex
	visitors map[key]*visitor
	every    rate.Limit
}

// New returns a limiter allowing one event per key every window.
func New(window time.Duration) *Limiter {
	l := &Limiter{
		visitors: make(map[key]*visitor),
		every:    rate.Every(window),
	}
	go l.cleanupLoop()
	return l
}

// Allow reports whether a log line for (code, entityID) should be emitted now.
func (l *Limiter) Allow(code, entityID string) bool {
	k := key{code: code, entityID: entityID}

	l.mu.Lock()
	v, ok := l.visitors[k]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.every, 1)}
		l.visitors[k] = v
	}
	v.lastSeen = time.Now()
	l.mu.Unlock()

	return v.limiter.Allow()
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for range ticker.C {
		l.mu.Lock()
		for k, v := range l.visitors {
			if time.Since(v.lastSeen) > cleanupInterval {
				delete(l.visitors, k)
			}
		}
		l.mu.Unlock()
	}
}
