package api

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	sweepInterval = 10 * time.Minute
	visitorTTL    = time.Hour
)

// clientLimiter keeps one token bucket per client IP
type clientLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	visitors  map[string]*visitor
	lastSweep time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientLimiter(perSecond float64, burst int) *clientLimiter {
	return &clientLimiter{
		limit:     rate.Limit(perSecond),
		burst:     burst,
		visitors:  make(map[string]*visitor),
		lastSweep: time.Now(),
	}
}

// Allow reports whether a request from clientIP may proceed now
func (l *clientLimiter) Allow(clientIP string) bool {
	return l.allowAt(clientIP, time.Now())
}

func (l *clientLimiter) allowAt(clientIP string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= sweepInterval {
		l.sweep(now)
	}

	v, ok := l.visitors[clientIP]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[clientIP] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// sweep drops buckets of clients idle longer than visitorTTL
func (l *clientLimiter) sweep(now time.Time) {
	for ip, v := range l.visitors {
		if now.Sub(v.lastSeen) > visitorTTL {
			delete(l.visitors, ip)
		}
	}
	l.lastSweep = now
}

func (l *clientLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}
