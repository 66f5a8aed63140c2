package middleware

import (
	"net/http"

	"license-server/internal/metrics"
	"license-server/internal/response"
	"license-server/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RateLimitMiddleware rejects requests over the per-(IP, action) budget
// with 429. The action names match the limiter's configured buckets.
func RateLimitMiddleware(limiter *services.RateLimiter, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !limiter.CheckLimit(ip, action) {
			metrics.RateLimitRejections.WithLabelValues(action).Inc()
			c.Header("Retry-After", "3600")
			response.ErrorJSON(c, http.StatusTooManyRequests, "Rate limit exceeded")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequestIDMiddleware tags each request with an ID for log correlation
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}
