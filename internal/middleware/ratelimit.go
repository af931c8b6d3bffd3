package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/pcos-screening-server/internal/domain"
)

// maxTrackedClients bounds the number of per-client limiters kept in memory.
const maxTrackedClients = 10000

// RateLimit applies a token bucket per client IP. Limiters of the least
// recently seen clients are evicted once maxTrackedClients is reached.
func RateLimit(requestsPerSecond float64, burst int) gin.HandlerFunc {
	if burst < 1 {
		burst = 1
	}
	limiters, _ := lru.New[string, *rate.Limiter](maxTrackedClients)

	return func(c *gin.Context) {
		key := c.ClientIP()
		limiter, ok := limiters.Get(key)
		if !ok {
			// PeekOrAdd keeps the first limiter stored when requests race.
			limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
			if existing, found, _ := limiters.PeekOrAdd(key, limiter); found {
				limiter = existing
			}
		}

		if !limiter.Allow() {
			retryAfter := time.Second
			if requestsPerSecond > 0 {
				retryAfter = time.Duration(float64(time.Second) / requestsPerSecond)
			}
			c.Header("Retry-After", formatSeconds(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, domain.NewAPIError(
				domain.CodeRateLimit,
				"Too many requests",
				"",
				c.GetString(CorrelationIDKey),
			))
			return
		}
		c.Next()
	}
}

func formatSeconds(d time.Duration) string {
	secs := int(d.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
