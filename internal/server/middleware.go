package server

import (
	"crypto/subtle"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"aitex/internal/core"
	"aitex/internal/util"

	"github.com/gin-gonic/gin"
)

// MaxBodySize is the maximum allowed recognition request body size.
// Base64 uploads are a third larger than the image they carry.
const MaxBodySize = core.MaxImageSizeBytes * 2

// maxConfigBodySize bounds configuration bodies, which are a few short strings.
const maxConfigBodySize = 64 << 10

// clientContextKey holds the masked key of the authenticated caller.
const clientContextKey = "aitex.client"

func (s *Server) maxBodySizeMiddleware(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}

type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitorInfo
	rate     int
	window   time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

type visitorInfo struct {
	count       int
	windowStart time.Time
}

func newRateLimiter(ratePerMinute int) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitorInfo),
		rate:     ratePerMinute,
		window:   time.Minute,
		stop:     make(chan struct{}),
	}
	go rl.cleanupLoop(5 * time.Minute)
	return rl
}

func (rl *rateLimiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			for ip, v := range rl.visitors {
				if time.Since(v.windowStart) > rl.window {
					delete(rl.visitors, ip)
				}
			}
			rl.mu.Unlock()
		case <-rl.stop:
			return
		}
	}
}

// Close stops the cleanup goroutine.
func (rl *rateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// allow counts a request from ip in a fixed window and reports how many remain.
func (rl *rateLimiter) allow(ip string) (bool, int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	v, exists := rl.visitors[ip]
	if !exists || now.Sub(v.windowStart) > rl.window {
		rl.visitors[ip] = &visitorInfo{count: 1, windowStart: now}
		return true, rl.rate - 1
	}
	v.count++
	return v.count <= rl.rate, max(rl.rate-v.count, 0)
}

func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	limit := strconv.Itoa(s.rateLimiter.rate)
	return func(c *gin.Context) {
		allowed, remaining := s.rateLimiter.allow(c.ClientIP())
		c.Header("X-RateLimit-Limit", limit)
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(s.rateLimiter.window.Seconds())))
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func (s *Server) isValidClientKey(providedKey string) bool {
	providedBytes := []byte(providedKey)
	for validKey := range s.validClientKeys {
		validBytes := []byte(validKey)
		if len(providedBytes) == len(validBytes) && subtle.ConstantTimeCompare(providedBytes, validBytes) == 1 {
			return true
		}
	}
	return false
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	allowOrigin := os.Getenv("CORS_ALLOW_ORIGIN")
	if allowOrigin == "" {
		allowOrigin = "*"
	}

	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", allowOrigin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, x-api-key")
		c.Header("Access-Control-Expose-Headers", "X-RateLimit-Limit, X-RateLimit-Remaining, Retry-After")
		c.Header("Access-Control-Max-Age", core.CORSMaxAge)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// clientKeyFromRequest returns the presented key and the header it came from.
// x-api-key wins over Authorization when both are set.
func clientKeyFromRequest(r *http.Request) (key, source string) {
	if apiKey := r.Header.Get(core.HeaderXAPIKey); apiKey != "" {
		return apiKey, "x-api-key"
	}
	if authHeader := r.Header.Get(core.HeaderAuthorization); authHeader != "" {
		return strings.TrimPrefix(authHeader, core.AuthBearerPrefix), "Bearer token"
	}
	return "", ""
}

func (s *Server) authenticateClient(c *gin.Context) {
	if len(s.validClientKeys) == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service unavailable: no client API keys configured"})
		c.Abort()
		return
	}

	key, source := clientKeyFromRequest(c.Request)
	if source == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "API key required in Authorization header (Bearer) or x-api-key header"})
		c.Abort()
		return
	}

	if !s.isValidClientKey(key) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Invalid client API key (" + source + ")"})
		c.Abort()
		return
	}

	c.Set(clientContextKey, util.MaskSecret(key))
}

// clientName returns the masked key of the authenticated caller, or "-".
func clientName(c *gin.Context) string {
	if name := c.GetString(clientContextKey); name != "" {
		return name
	}
	return "-"
}
