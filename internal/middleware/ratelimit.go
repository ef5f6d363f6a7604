package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// userLimiters hands out one token bucket per authenticated user.
type userLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	qps      rate.Limit
	burst    int
}

func newUserLimiters(qps float64, burst int) *userLimiters {
	return &userLimiters{
		limiters: make(map[string]*rate.Limiter),
		qps:      rate.Limit(qps),
		burst:    burst,
	}
}

func (u *userLimiters) get(userID string) *rate.Limiter {
	u.mu.Lock()
	defer u.mu.Unlock()
	l, ok := u.limiters[userID]
	if !ok {
		l = rate.NewLimiter(u.qps, u.burst)
		u.limiters[userID] = l
	}
	return l
}

// RateLimitMiddleware throttles per user. Must run after AuthMiddleware.
func RateLimitMiddleware(qps float64, burst int) gin.HandlerFunc {
	limiters := newUserLimiters(qps, burst)
	return func(c *gin.Context) {
		userID := CurrentUserID(c)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		if !limiters.get(userID).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": "1s",
			})
			return
		}

		c.Next()
	}
}
