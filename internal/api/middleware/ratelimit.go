package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimit applies a per-client token bucket to the public endpoints.
// Buckets are keyed by client IP and evicted after an idle period.
func RateLimit(requestsPerMinute int) gin.HandlerFunc {
	type bucket struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}

	var (
		mu        sync.Mutex
		buckets   = make(map[string]*bucket)
		lastSweep = time.Now()
	)

	limit := rate.Limit(float64(requestsPerMinute) / 60.0)
	burst := requestsPerMinute
	if burst < 1 {
		burst = 1
	}

	return func(c *gin.Context) {
		ip := c.ClientIP()
		now := time.Now()

		mu.Lock()
		// Evict idle buckets inline so the map stays bounded without a
		// background goroutine per handler.
		if now.Sub(lastSweep) > 5*time.Minute {
			for key, b := range buckets {
				if now.Sub(b.lastSeen) > 10*time.Minute {
					delete(buckets, key)
				}
			}
			lastSweep = now
		}

		b, ok := buckets[ip]
		if !ok {
			b = &bucket{limiter: rate.NewLimiter(limit, burst)}
			buckets[ip] = b
		}
		b.lastSeen = now
		mu.Unlock()

		if !b.limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limited",
				"message": "Too many requests, slow down",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
