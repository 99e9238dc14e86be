package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jengzang/trip-features-go/pkg/response"
)

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP
type RateLimiter struct {
	clients map[string]*client
	mu      sync.Mutex
	rps     rate.Limit
	burst   int
	idle    time.Duration
}

// NewRateLimiter creates a limiter allowing rps requests per second with the
// given burst for every client
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*client),
		rps:     rate.Limit(rps),
		burst:   burst,
		idle:    10 * time.Minute,
	}
}

// Allow checks if a request from the given IP is allowed
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	rl.evict(now)

	c, ok := rl.clients[ip]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.clients[ip] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

// evict drops clients idle for longer than the idle window
func (rl *RateLimiter) evict(now time.Time) {
	for ip, c := range rl.clients {
		if now.Sub(c.lastSeen) > rl.idle {
			delete(rl.clients, ip)
		}
	}
}

// RateLimit middleware limits requests per IP
func RateLimit(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			response.TooManyRequests(c, "rate limit exceeded, please try again later")
			return
		}
		c.Next()
	}
}
