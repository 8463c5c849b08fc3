// Package http provides the gin API server, the metrics server and their shared middleware.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/tokenkeeper/internal/config"
	"github.com/allisson/tokenkeeper/internal/metrics"
	oauthDomain "github.com/allisson/tokenkeeper/internal/oauth/domain"
	oauthHTTP "github.com/allisson/tokenkeeper/internal/oauth/http"
	oauthUseCase "github.com/allisson/tokenkeeper/internal/oauth/usecase"
)

const readinessTimeout = 2 * time.Second

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// Server is the API server.
type Server struct {
	db          *sql.DB
	server      *http.Server
	router      *gin.Engine
	logger      *slog.Logger
	checks      map[string]ReadinessCheck
	rateLimiter *ipRateLimiter
}

// NewServer creates a new API server. SetupRouter must be called before Start.
func NewServer(db *sql.DB, host string, port int, logger *slog.Logger) *Server {
	return &Server{
		db:     db,
		logger: logger,
		checks: make(map[string]ReadinessCheck),
		server: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", host, port),
			ReadTimeout:       15 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// AddReadinessCheck registers a named dependency reported by /ready next to the database.
func (s *Server) AddReadinessCheck(name string, check ReadinessCheck) {
	s.checks[name] = check
}

// SetupRouter builds the gin engine. Every /v1 route requires Basic client credentials
// of an application holding PermissionManageTokens.
func (s *Server) SetupRouter(
	cfg *config.Config,
	tokenManagementHandler *oauthHTTP.TokenManagementHandler,
	authorizationHandler *oauthHTTP.AuthorizationHandler,
	applicationUseCase oauthUseCase.ApplicationUseCase,
	metricsProvider *metrics.Provider,
) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	if metricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(metricsProvider.MeterProvider(), cfg.MetricsNamespace))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	v1 := router.Group("/v1")
	if cfg.RateLimitEnabled {
		s.rateLimiter = newIPRateLimiter(cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst, s.logger)
		v1.Use(s.rateLimiter.Middleware())
	}
	v1.Use(
		oauthHTTP.ClientAuthenticationMiddleware(applicationUseCase, s.logger),
		oauthHTTP.PermissionMiddleware(oauthDomain.PermissionManageTokens, s.logger),
	)

	tokens := v1.Group("/tokens")
	{
		tokens.POST("/validate", tokenManagementHandler.ValidateTokenHandler)
		tokens.POST("/:id/revoke", tokenManagementHandler.RevokeTokenHandler)
	}

	subjects := v1.Group("/subjects/:subject")
	{
		subjects.POST("/revoke", tokenManagementHandler.RevokeSubjectTokensHandler)
		subjects.POST("/devices/:device/revoke", tokenManagementHandler.RevokeDeviceTokensHandler)
		subjects.GET("/sessions", tokenManagementHandler.ListSessionsHandler)
		subjects.GET("/authorizations", authorizationHandler.ListBySubjectHandler)
	}

	v1.POST("/authorizations/:id/revoke", authorizationHandler.RevokeHandler)

	loginPolicy := v1.Group("/login-policy")
	{
		loginPolicy.GET("", tokenManagementHandler.GetLoginPolicyHandler)
		loginPolicy.POST("/check", tokenManagementHandler.CheckLoginPolicyHandler)
	}

	s.router = router
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	if s.router == nil {
		return fmt.Errorf("router is not configured")
	}
	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server and stops the rate limiter sweeper.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	if s.rateLimiter != nil {
		s.rateLimiter.Close()
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	components := make(map[string]string, len(s.checks)+1)
	ready := true

	components["database"] = "ok"
	if s.db == nil || s.db.PingContext(ctx) != nil {
		components["database"] = "error"
		ready = false
	}

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		components[name] = "ok"
		if err := s.checks[name](ctx); err != nil {
			s.logger.Warn("readiness check failed", slog.String("component", name), slog.Any("error", err))
			components[name] = "error"
			ready = false
		}
	}

	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "components": components})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready", "components": components})
}
