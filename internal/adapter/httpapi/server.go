// Package httpapi exposes the reconnection engine over HTTP.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"soundlink/internal/reconnect"
)

// Config wires the router's dependencies.
type Config struct {
	Store *reconnect.Store
	Log   *slog.Logger

	// BaseDelayMs seeds schedules when the request does not carry its own.
	BaseDelayMs float64

	// Gatherer, when set, mounts GET /metrics.
	Gatherer prometheus.Gatherer

	// Ready reports whether downstream dependencies are usable. Nil means
	// always ready.
	Ready func() error
}

// NewRouter builds the service router. Panics on a nil store so wiring bugs
// surface at startup, not on first request.
func NewRouter(cfg Config) *gin.Engine {
	if cfg.Store == nil {
		panic("httpapi: nil store")
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	if cfg.BaseDelayMs <= 0 {
		cfg.BaseDelayMs = reconnect.DefaultBaseDelayMs
	}

	h := &handlers{store: cfg.Store, log: cfg.Log, baseDelayMs: cfg.BaseDelayMs}

	r := gin.New()
	r.Use(gin.Recovery(), requestLog(cfg.Log))

	r.GET("/healthz", healthz(cfg.Ready))
	if cfg.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := r.Group("/v1")
	{
		v1.POST("/reconnect/plan", h.plan)
		v1.POST("/reconnect/attempts", h.trackAttempt)
		v1.GET("/stats", h.stats)
		v1.GET("/clients/:id/recommendations", h.recommendations)
		v1.GET("/clients/:id/prediction", h.prediction)
		v1.DELETE("/clients/:id", h.resetClient)
	}

	return r
}

// requestLog emits one line per request. Health checks are skipped to keep
// the log readable.
func requestLog(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.FullPath() == "/healthz" {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		log.Info("http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("took", time.Since(start)),
		)
	}
}

func healthz(ready func() error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ready != nil {
			if err := ready(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
