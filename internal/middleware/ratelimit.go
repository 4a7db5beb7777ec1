package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/AdamBeresnev/round-robin-app/internal/httputil"
	"golang.org/x/time/rate"
)

const (
	// Entries are only pruned once the map grows past this size.
	pruneThreshold = 500
	maxIdle        = 10 * time.Minute
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter keeps one token bucket per client IP.
type IPRateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	limit   rate.Limit
	burst   int
}

func NewIPRateLimiter(perSecond float64, burst int) *IPRateLimiter {
	return &IPRateLimiter{
		clients: make(map[string]*clientLimiter),
		limit:   rate.Limit(perSecond),
		burst:   burst,
	}
}

func (l *IPRateLimiter) limiterFor(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if len(l.clients) > pruneThreshold {
		cutoff := now.Add(-maxIdle)
		for k, c := range l.clients {
			if c.lastSeen.Before(cutoff) {
				delete(l.clients, k)
			}
		}
	}

	c, ok := l.clients[ip]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = c
	}
	c.lastSeen = now
	return c.limiter
}

// Middleware answers 429 once a client IP has used up its burst. RemoteAddr
// is expected to be rewritten by chi's RealIP when running behind a proxy.
func (l *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if !l.limiterFor(ip).Allow() {
			slog.Warn("rate limited", "ip", ip, "path", r.URL.Path)
			httputil.TooManyRequests(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}
