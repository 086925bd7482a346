// Package httpkit provides HTTP middleware infrastructure.
// This is part of the platform layer and contains no business logic.
package httpkit

import (
	"net/http"
	"sync"
	"time"

	"igcommerce_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	// ContextAgentIDKey is the gin context key for the acting human agent ID.
	ContextAgentIDKey = "agentID"
	// ContextMerchantIDKey is the gin context key for the merchant ID.
	ContextMerchantIDKey = "merchantID"
)

// RequestLogger logs HTTP requests with timing.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		clientIP := c.ClientIP()

		log.HTTPRequest(c.Request.Method, path, status, float64(latency.Milliseconds()), clientIP)
	}
}

// SecurityHeaders adds security headers to responses.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// Only add HSTS when serving TLS
		if c.Request.TLS != nil {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}

// IPRateLimiter manages per-IP rate limiters.
type IPRateLimiter struct {
	limiters sync.Map
	rate     rate.Limit
	burst    int
	log      *logger.Logger
}

// NewIPRateLimiter creates a new IP-based rate limiter.
func NewIPRateLimiter(r rate.Limit, burst int, log *logger.Logger) *IPRateLimiter {
	return &IPRateLimiter{
		rate:  r,
		burst: burst,
		log:   log,
	}
}

func (i *IPRateLimiter) getLimiter(ip string) *rate.Limiter {
	limiter, exists := i.limiters.Load(ip)
	if !exists {
		newLimiter := rate.NewLimiter(i.rate, i.burst)
		i.limiters.Store(ip, newLimiter)
		return newLimiter
	}
	return limiter.(*rate.Limiter)
}

// RateLimit returns a middleware that rate limits by IP.
func (i *IPRateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		limiter := i.getLimiter(ip)

		if !limiter.Allow() {
			if i.log != nil {
				i.log.RateLimitExceeded(ip, c.Request.URL.Path)
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}

		c.Next()
	}
}

// AgentContext extracts the acting human agent from request headers and stores
// it on the gin context. Authentication of the dashboard caller happens at the
// edge and is outside this service's scope; handlers that require an agent use
// MustGetAgentID.
func AgentContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		if agentID := c.GetHeader("X-Agent-ID"); agentID != "" {
			c.Set(ContextAgentIDKey, agentID)
		}
		if merchantID := c.GetHeader("X-Merchant-ID"); merchantID != "" {
			c.Set(ContextMerchantIDKey, merchantID)
		}
		c.Next()
	}
}

// MustGetAgentID returns the acting agent ID or aborts with 401.
func MustGetAgentID(c *gin.Context) (string, bool) {
	agentID := c.GetString(ContextAgentIDKey)
	if agentID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing agent identity"})
		return "", false
	}
	return agentID, true
}

// MustGetMerchantID returns the merchant ID or aborts with 401.
func MustGetMerchantID(c *gin.Context) (string, bool) {
	merchantID := c.GetString(ContextMerchantIDKey)
	if merchantID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing merchant identity"})
		return "", false
	}
	return merchantID, true
}
