// Package server exposes the capture session over an HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/verte-zerg/scopeview/internal/session"
	"github.com/verte-zerg/scopeview/internal/viewport"
)

const shutdownTimeout = 5 * time.Second

// Options tunes the API.
type Options struct {
	MaxPoints int
	Envelope  bool
}

// NewRouter builds the gin engine serving the API under /api/v1.
func NewRouter(sess *session.Session, logger *slog.Logger, opts Options) *gin.Engine {
	if opts.MaxPoints <= 0 {
		opts.MaxPoints = viewport.DefaultMaxPoints
	}
	h := &Handler{session: sess, logger: logger, opts: opts}

	router := gin.New()
	router.MaxMultipartMemory = 8 << 20
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	api := router.Group("/api/v1")
	{
		api.GET("/health", h.Health)

		api.POST("/captures", h.Upload)
		api.GET("/captures/current", h.Current)
		api.DELETE("/captures/current", h.Clear)
		api.GET("/captures/current/statistics", h.Statistics)
		api.GET("/captures/current/settings", h.Settings)
		api.PUT("/captures/current/settings", h.UpdateSettings)
		api.POST("/captures/current/settings/reset", h.ResetSettings)
		api.POST("/captures/current/settings/step", h.StepSettings)
		api.GET("/captures/current/view", h.View)
		api.GET("/captures/current/samples", h.Samples)
		api.GET("/captures/current/export/:format", h.Export)

		api.POST("/view/zoom", h.Zoom)
		api.POST("/view/pan", h.Pan)
	}
	return router
}

// Run serves router on addr until ctx is cancelled.
func Run(ctx context.Context, addr string, router http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.Info("api shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api shutdown: %w", err)
	}
	return nil
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("api request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
		)
	}
}
