package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	"github.com/habitvault/habitvault/internal/config"
	"github.com/habitvault/habitvault/internal/httputil"
	"github.com/habitvault/habitvault/internal/metrics"
	"github.com/habitvault/habitvault/internal/session"
)

// Server is the API HTTP server.
type Server struct {
	server *http.Server
	logger *slog.Logger
}

// NewServer creates the API server with the full route table mounted.
func NewServer(
	cfg *config.Config,
	logger *slog.Logger,
	sessions *session.UseCase,
	userHandler *UserHandler,
	sessionHandler *SessionHandler,
	recoveryHandler *RecoveryHandler,
	adminHandler *AdminHandler,
	metricsProvider *metrics.Provider,
) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New())
	router.Use(CustomLoggerMiddleware(logger))

	if metricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(metricsProvider.MeterProvider(), cfg.MetricsNamespace))
	}

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	router.GET("/health", func(c *gin.Context) {
		httputil.MakeJSONResponse(c.Writer, http.StatusOK, map[string]string{"status": "healthy"})
	})
	router.GET("/ready", func(c *gin.Context) {
		httputil.MakeJSONResponse(c.Writer, http.StatusOK, map[string]string{"status": "ready"})
	})

	v1 := router.Group("/v1")

	v1.POST("/sessions", sessionHandler.CreateHandler)

	recoverHandlers := []gin.HandlerFunc{recoveryHandler.RecoverHandler}
	if cfg.RateLimitRecoveryEnabled {
		recoverHandlers = append(
			[]gin.HandlerFunc{RecoveryRateLimitMiddleware(cfg.RateLimitRecoveryRequestsPerSec, cfg.RateLimitRecoveryBurst)},
			recoverHandlers...,
		)
	}
	v1.POST("/recover", recoverHandlers...)

	authenticated := v1.Group("", SessionAuthMiddleware(sessions, logger))
	authenticated.DELETE("/sessions", sessionHandler.DestroyHandler)
	authenticated.GET("/settings", userHandler.GetSettingsHandler)
	authenticated.PUT("/settings", userHandler.UpdateSettingsHandler)
	authenticated.GET("/content", userHandler.GetContentHandler)
	authenticated.PUT("/content", userHandler.UpdateContentHandler)
	authenticated.PUT("/entries/:date", userHandler.SaveEntriesHandler)
	authenticated.GET("/entries", userHandler.ListEntriesHandler)
	authenticated.GET("/export", userHandler.ExportHandler)
	authenticated.POST("/recovery-keys", recoveryHandler.CreateKeyHandler)

	admin := v1.Group("/admin", AdminAuthMiddleware(cfg.AdminToken, logger))
	admin.POST("/rotate/:target", adminHandler.RotateHandler)

	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}
