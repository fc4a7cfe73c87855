package server

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"sync"
	"time"

	"assistantsproxy/internal/core"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDKey = "request_id"

func (s *Server) maxBodySizeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, core.MaxRequestBodySize)
		c.Next()
	}
}

// requestIDMiddleware reuses the caller's X-Request-Id or generates one.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(core.HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Header(core.HeaderRequestID, requestID)
		c.Next()
	}
}

func getRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

func (s *Server) httpMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		s.collector.RecordHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitorInfo
	rate     int
	cleanup  time.Duration
}

type visitorInfo struct {
	count    int
	lastSeen time.Time
}

func newRateLimiter(ctx context.Context, ratePerMinute int) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitorInfo),
		rate:     ratePerMinute,
		cleanup:  5 * time.Minute,
	}
	go rl.cleanupLoop(ctx)
	return rl
}

func (rl *rateLimiter) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(rl.cleanup)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			for ip, v := range rl.visitors {
				if time.Since(v.lastSeen) > time.Minute {
					delete(rl.visitors, ip)
				}
			}
			rl.mu.Unlock()
		case <-ctx.Done():
			return
		}
	}
}

func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	v, exists := rl.visitors[ip]
	if !exists || time.Since(v.lastSeen) > time.Minute {
		rl.visitors[ip] = &visitorInfo{count: 1, lastSeen: time.Now()}
		return true
	}
	v.count++
	v.lastSeen = time.Now()
	return v.count <= rl.rate
}

func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !s.rateLimiter.allow(ip) {
			respondWithError(c, http.StatusTooManyRequests, "rate limit exceeded")
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
	allowOrigin := s.config.CORSAllowOrigin
	if allowOrigin == "" {
		allowOrigin = "*"
	}

	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", allowOrigin)
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, x-api-key, X-Request-Id")
		c.Header("Access-Control-Max-Age", core.CORSMaxAge)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (s *Server) authenticateClient(c *gin.Context) {
	if len(s.validClientKeys) == 0 {
		respondWithError(c, http.StatusServiceUnavailable, "Service unavailable: no client API keys configured")
		c.Abort()
		return
	}

	authHeader := c.GetHeader(core.HeaderAuthorization)
	apiKey := c.GetHeader(core.HeaderXAPIKey)

	if apiKey != "" {
		if s.isValidClientKey(apiKey) {
			return
		}
		respondWithError(c, http.StatusForbidden, "Invalid client API key (x-api-key)")
		c.Abort()
		return
	}

	if authHeader != "" {
		token := strings.TrimPrefix(authHeader, core.AuthBearerPrefix)
		if s.isValidClientKey(token) {
			return
		}
		respondWithError(c, http.StatusForbidden, "Invalid client API key (Bearer token)")
		c.Abort()
		return
	}

	respondWithError(c, http.StatusUnauthorized, "API key required in Authorization header (Bearer) or x-api-key header")
	c.Abort()
}
