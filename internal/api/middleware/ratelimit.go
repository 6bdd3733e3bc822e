package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/common"
)

type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter throttles requests per client IP. Idle entries are swept on access.
type RateLimiter struct {
	limit rate.Limit
	burst int
	idle  time.Duration

	mu        sync.Mutex
	clients   map[string]*clientLimiter
	lastSweep time.Time
	now       func() time.Time
}

// NewRateLimiter allows perMinute requests per IP with an equal burst.
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute < 1 {
		perMinute = 1
	}
	return &RateLimiter{
		limit:   rate.Limit(float64(perMinute) / 60),
		burst:   perMinute,
		idle:    10 * time.Minute,
		clients: map[string]*clientLimiter{},
		now:     time.Now,
	}
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func (rl *RateLimiter) limiterFor(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	if now.Sub(rl.lastSweep) > rl.idle {
		for k, c := range rl.clients {
			if now.Sub(c.lastAccess) > rl.idle {
				delete(rl.clients, k)
			}
		}
		rl.lastSweep = now
	}
	c, ok := rl.clients[ip]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[ip] = c
	}
	c.lastAccess = now
	return c.limiter
}

// Len reports how many clients are tracked.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// Middleware answers 429 with a Retry-After header once a client runs out of tokens.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !rl.limiterFor(ip).Allow() {
			retryAfter := max(int(math.Ceil(1/float64(rl.limit))), 1)
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			slog.WarnContext(r.Context(), "rate limit exceeded", "ip", ip, "path", r.URL.Path)
			common.RespondWithError(w, r, common.RateLimited("Too many requests, please try again later"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
