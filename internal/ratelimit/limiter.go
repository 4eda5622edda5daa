// Package ratelimit bounds message-producing actions per actor.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Pool keeps one limiter per key (typically "send:"+actor key). The
// limiter refills at limit/window with a burst of the full limit, so an
// actor gets the whole window's quota up front and the call over quota
// inside the window is rejected.
type Pool struct {
	mu     sync.Mutex
	m      map[string]*rate.Limiter
	limit  int
	window time.Duration
}

func New(limit int, window time.Duration) *Pool {
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Pool{
		m:      make(map[string]*rate.Limiter),
		limit:  limit,
		window: window,
	}
}

func (p *Pool) get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if l, ok := p.m[key]; ok {
		return l
	}
	l := rate.NewLimiter(rate.Limit(float64(p.limit)/p.window.Seconds()), p.limit)
	p.m[key] = l
	return l
}

// Allow consumes one event for key, reporting whether it fits the
// window. Increment-and-compare happens atomically inside the limiter,
// so two concurrent requests cannot both slip under the limit.
func (p *Pool) Allow(key string) bool {
	return p.get(key).Allow()
}
