package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/shamsucomsoft/onv-ncne-api/logger"
)

// MaxBodyBytes bounds request bodies. Sync batches carry images, so the
// limit is generous.
const MaxBodyBytes = 50 << 20

// RateLimiter keeps one token bucket per key.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	lastSeen map[string]time.Time
	mutex    sync.Mutex
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		lastSeen: make(map[string]time.Time),
	}
}

// GetLimiterWithConfig returns the limiter for key, creating it with the
// given limits on first use.
func (rl *RateLimiter) GetLimiterWithConfig(key string, limit rate.Limit, burst int) *rate.Limiter {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	limiter, exists := rl.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(limit, burst)
		rl.limiters[key] = limiter
	}
	rl.lastSeen[key] = time.Now()
	return limiter
}

// Cleanup drops limiters idle for longer than idle.
func (rl *RateLimiter) Cleanup(idle time.Duration) int {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	removed := 0
	now := time.Now()
	for key, t := range rl.lastSeen {
		if now.Sub(t) > idle {
			delete(rl.limiters, key)
			delete(rl.lastSeen, key)
			removed++
		}
	}
	return removed
}

func (rl *RateLimiter) Len() int {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()
	return len(rl.limiters)
}

func tooManyRequests(c *gin.Context, retryAfter int) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"success":     false,
		"error":       "Rate limit exceeded",
		"message":     "Too many requests. Please try again later.",
		"retry_after": retryAfter,
	})
}

// RateLimitMiddleware limits requests per route and client IP. Sync uploads
// and the live feed get their own budgets.
func RateLimitMiddleware(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		clientIP := c.ClientIP()

		var lim rate.Limit
		var burst int
		switch {
		case strings.HasSuffix(path, "/ws/sync"):
			lim, burst = rate.Every(time.Second), 5
		case strings.HasSuffix(path, "/sync"):
			lim, burst = rate.Every(2*time.Second), 10
		case strings.Contains(path, "/dashboard") || strings.Contains(path, "/public/"):
			lim, burst = rate.Every(time.Second), 30
		default:
			lim, burst = rate.Every(time.Second/5), 60
		}

		if !rl.GetLimiterWithConfig(path+"|"+clientIP, lim, burst).Allow() {
			logger.L().Warn("🚫 Rate limit exceeded",
				zap.String("method", c.Request.Method),
				zap.String("path", path),
				zap.String("ip", clientIP))
			tooManyRequests(c, 60)
			return
		}
		c.Next()
	}
}

// AuthRateLimitMiddleware applies a stricter per-IP budget to login and
// token endpoints.
func AuthRateLimitMiddleware(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		if !rl.GetLimiterWithConfig("auth|"+clientIP, rate.Every(time.Minute/5), 5).Allow() {
			logger.L().Warn("🚫 Auth rate limit exceeded", zap.String("ip", clientIP))
			tooManyRequests(c, 300)
			return
		}
		c.Next()
	}
}

func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Next()
	}
}

// CORSMiddleware allows the configured browser origins.
func CORSMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "User-Agent", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowOriginFunc = func(string) bool { return true }
			return cors.New(cfg)
		}
	}
	cfg.AllowOrigins = origins
	return cors.New(cfg)
}

// InputValidationMiddleware rejects oversized bodies and unexpected content
// types on write requests.
func InputValidationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > MaxBodyBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"success": false,
				"error":   "Request too large",
				"message": "Request body exceeds maximum size limit",
			})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)

		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			contentType := c.GetHeader("Content-Type")
			if c.Request.ContentLength != 0 &&
				!strings.Contains(contentType, "application/json") &&
				!strings.Contains(contentType, "multipart/form-data") {
				c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, gin.H{
					"success": false,
					"error":   "Invalid content type",
					"message": "Content-Type must be application/json or multipart/form-data",
				})
				return
			}
		}
		c.Next()
	}
}

// AuditLogMiddleware writes one structured line per request.
func AuditLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if id, ok := c.Get(ContextUserID); ok {
			fields = append(fields, zap.Any("user_id", id))
		}
		if status >= http.StatusInternalServerError {
			logger.L().Error("❌ AUDIT", fields...)
		} else if status >= http.StatusBadRequest {
			logger.L().Warn("⚠️ AUDIT", fields...)
		} else {
			logger.L().Info("✅ AUDIT", fields...)
		}
	}
}
