package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimit applies a per-caller token bucket. Callers are keyed by the
// authenticated user id when present, otherwise by client IP. Idle buckets
// are evicted after ten minutes so the map stays bounded.
func RateLimit(rps rate.Limit, burst int) gin.HandlerFunc {
	var (
		mu       sync.Mutex
		visitors = make(map[string]*visitor)
		lastSwep = time.Now()
	)

	return func(c *gin.Context) {
		key := c.GetString("request_key")
		if key == "" {
			if uid, ok := c.Get("user_id"); ok {
				if s, ok := uid.(interface{ String() string }); ok {
					key = s.String()
				}
			}
		}
		if key == "" {
			key = c.ClientIP()
		}

		mu.Lock()
		if time.Since(lastSwep) > 10*time.Minute {
			for k, v := range visitors {
				if time.Since(v.lastSeen) > 10*time.Minute {
					delete(visitors, k)
				}
			}
			lastSwep = time.Now()
		}
		v, ok := visitors[key]
		if !ok {
			v = &visitor{limiter: rate.NewLimiter(rps, burst)}
			visitors[key] = v
		}
		v.lastSeen = time.Now()
		allowed := v.limiter.Allow()
		mu.Unlock()

		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"ok":    false,
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
