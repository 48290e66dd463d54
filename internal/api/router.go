package api

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dthrottle/spy-leaps-monitor/internal/logger"
	"github.com/dthrottle/spy-leaps-monitor/internal/monitoring"
	"github.com/dthrottle/spy-leaps-monitor/internal/safety"
)

// NewRouter builds the gin engine with API, health and metrics routes
func NewRouter(h *Handler, metrics *monitoring.Metrics, health *monitoring.HealthChecker, log *logger.Logger) *gin.Engine {
	if log == nil {
		log = logger.Discard()
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))

	r.GET("/healthz", func(c *gin.Context) {
		status, code := health.Check(c.Request.Context())
		c.JSON(code, status)
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	h.RegisterRoutes(r)
	return r
}

// rateLimit rejects requests with 429 once the limiter is drained
func rateLimit(rl *safety.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow() {
			retry := int(math.Ceil(rl.RetryAfter().Seconds()))
			c.Header("Retry-After", strconv.Itoa(max(retry, 1)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many backtest requests, retry later"})
			return
		}
		c.Next()
	}
}

// requestLogger logs one line per request; health and metrics scrapes are skipped
func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.Request.URL.Path
		if path == "/healthz" || path == "/metrics" {
			return
		}
		status := c.Writer.Status()
		if status >= http.StatusInternalServerError {
			log.Error("%s %s -> %d (%s)", c.Request.Method, path, status, time.Since(start).Round(time.Millisecond))
			return
		}
		log.Info("%s %s -> %d (%s)", c.Request.Method, path, status, time.Since(start).Round(time.Millisecond))
	}
}
