// Package app provides the dependency injection container that assembles the application.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/allisson/tokenkeeper/internal/audit"
	"github.com/allisson/tokenkeeper/internal/blacklist"
	"github.com/allisson/tokenkeeper/internal/config"
	"github.com/allisson/tokenkeeper/internal/database"
	"github.com/allisson/tokenkeeper/internal/http"
	"github.com/allisson/tokenkeeper/internal/metrics"
	"github.com/allisson/tokenkeeper/internal/policy"
)

const connectTimeout = 10 * time.Second

// Container holds the application dependencies. Components are created on first
// access and shared afterwards; initialization errors are remembered.
type Container struct {
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	db              *sql.DB
	txManager       database.TxManager
	metricsProvider *metrics.Provider
	blacklist       *blacklist.Blacklist
	policyCache     *policy.Cache
	auditDispatcher *audit.Dispatcher

	// Metrics
	businessMetrics   metrics.BusinessMetrics
	revocationMetrics metrics.RevocationMetrics

	// Servers
	httpServer    *http.Server
	metricsServer *http.MetricsServer

	oauthComponents

	mu                    sync.Mutex
	loggerInit            sync.Once
	dbInit                sync.Once
	txManagerInit         sync.Once
	metricsProviderInit   sync.Once
	businessMetricsInit   sync.Once
	revocationMetricsInit sync.Once
	blacklistInit         sync.Once
	policyCacheInit       sync.Once
	auditDispatcherInit   sync.Once
	httpServerInit        sync.Once
	metricsServerInit     sync.Once
	initErrors            map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the JSON logger configured with LOG_LEVEL.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection pool.
func (c *Container) DB() (*sql.DB, error) {
	c.dbInit.Do(func() {
		var err error
		c.db, err = c.initDB()
		c.storeInitError("db", err)
	})
	return c.db, c.initError("db")
}

// TxManager returns the transaction manager.
func (c *Container) TxManager() (database.TxManager, error) {
	c.txManagerInit.Do(func() {
		var err error
		c.txManager, err = c.initTxManager()
		c.storeInitError("txManager", err)
	})
	return c.txManager, c.initError("txManager")
}

// MetricsProvider returns the Prometheus-backed meter provider, or nil when metrics
// are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	c.metricsProviderInit.Do(func() {
		var err error
		c.metricsProvider, err = c.initMetricsProvider()
		c.storeInitError("metricsProvider", err)
	})
	return c.metricsProvider, c.initError("metricsProvider")
}

// BusinessMetrics returns the operation metrics recorder.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	c.businessMetricsInit.Do(func() {
		var err error
		c.businessMetrics, err = c.initBusinessMetrics()
		c.storeInitError("businessMetrics", err)
	})
	return c.businessMetrics, c.initError("businessMetrics")
}

// RevocationMetrics returns the revocation metrics recorder. It is a no-op when
// metrics are disabled.
func (c *Container) RevocationMetrics() (metrics.RevocationMetrics, error) {
	c.revocationMetricsInit.Do(func() {
		var err error
		c.revocationMetrics, err = c.initRevocationMetrics()
		c.storeInitError("revocationMetrics", err)
	})
	return c.revocationMetrics, c.initError("revocationMetrics")
}

// Blacklist returns the revocation cache on the configured backend.
func (c *Container) Blacklist() (*blacklist.Blacklist, error) {
	c.blacklistInit.Do(func() {
		var err error
		c.blacklist, err = c.initBlacklist()
		c.storeInitError("blacklist", err)
	})
	return c.blacklist, c.initError("blacklist")
}

// PolicyCache returns the cached login policy snapshot.
func (c *Container) PolicyCache() *policy.Cache {
	c.policyCacheInit.Do(func() {
		logger := c.Logger()
		source := policy.NewViperSource(c.config.LoginPolicyFile, logger)
		c.policyCache = policy.NewCache(source, c.config.LoginPolicyCacheTTL, logger)
	})
	return c.policyCache
}

// AuditDispatcher returns the fire-and-forget audit queue.
func (c *Container) AuditDispatcher() *audit.Dispatcher {
	c.auditDispatcherInit.Do(func() {
		logger := c.Logger()
		c.auditDispatcher = audit.NewDispatcher(audit.NewLogSink(logger), c.config.AuditBufferSize, logger)
	})
	return c.auditDispatcher
}

// HTTPServer returns the API server with its router configured.
func (c *Container) HTTPServer() (*http.Server, error) {
	c.httpServerInit.Do(func() {
		var err error
		c.httpServer, err = c.initHTTPServer()
		c.storeInitError("httpServer", err)
	})
	return c.httpServer, c.initError("httpServer")
}

// MetricsServer returns the scrape server, or nil when metrics are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	c.metricsServerInit.Do(func() {
		var err error
		c.metricsServer, err = c.initMetricsServer()
		c.storeInitError("metricsServer", err)
	})
	return c.metricsServer, c.initError("metricsServer")
}

// Shutdown stops servers, drains the audit queue and releases connections, in that order.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if c.auditDispatcher != nil {
		if err := c.auditDispatcher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("audit dispatcher close: %w", err))
		}
	}

	if c.blacklist != nil {
		if err := c.blacklist.Close(); err != nil {
			errs = append(errs, fmt.Errorf("blacklist close: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database close: %w", err))
		}
	}

	return errors.Join(errs...)
}

func (c *Container) storeInitError(name string, err error) {
	if err == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.initErrors[name] = err
}

func (c *Container) initError(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initErrors[name]
}

func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

func (c *Container) initDB() (*sql.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	db, err := database.Connect(ctx, database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func (c *Container) initTxManager() (database.TxManager, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for tx manager: %w", err)
	}
	return database.NewTxManager(db), nil
}

func (c *Container) initMetricsProvider() (*metrics.Provider, error) {
	if !c.config.MetricsEnabled {
		return nil, nil
	}
	provider, err := metrics.NewProvider(c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics provider: %w", err)
	}
	return provider, nil
}

func (c *Container) initBusinessMetrics() (metrics.BusinessMetrics, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return metrics.NewNoOpBusinessMetrics(), nil
	}
	return metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
}

func (c *Container) initRevocationMetrics() (metrics.RevocationMetrics, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return metrics.NewNoOpRevocationMetrics(), nil
	}
	return metrics.NewRevocationMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
}

func (c *Container) initBlacklist() (*blacklist.Blacklist, error) {
	logger := c.Logger()

	switch c.config.BlacklistBackend {
	case config.BlacklistBackendRedis:
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()

		store, err := blacklist.NewRedisStore(ctx, blacklist.RedisConfig{
			Addr:         c.config.RedisAddr,
			Username:     c.config.RedisUsername,
			Password:     c.config.RedisPassword,
			DB:           c.config.RedisDB,
			KeyPrefix:    c.config.RedisKeyPrefix,
			DialTimeout:  c.config.RedisDialTimeout,
			ReadTimeout:  c.config.RedisReadTimeout,
			WriteTimeout: c.config.RedisWriteTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create redis blacklist store: %w", err)
		}
		return blacklist.New(store, logger), nil
	case config.BlacklistBackendMemory:
		logger.Warn("using in-process blacklist: revocations are not shared between instances")
		store := blacklist.NewMemoryStore(blacklist.WithSweepInterval(c.config.BlacklistSweepInterval))
		return blacklist.New(store, logger), nil
	default:
		return nil, fmt.Errorf("unsupported blacklist backend: %s", c.config.BlacklistBackend)
	}
}

func (c *Container) initHTTPServer() (*http.Server, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for http server: %w", err)
	}

	tokenManagementHandler, err := c.TokenManagementHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get token management handler for http server: %w", err)
	}

	authorizationHandler, err := c.AuthorizationHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get authorization handler for http server: %w", err)
	}

	applicationUseCase, err := c.ApplicationUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get application use case for http server: %w", err)
	}

	bl, err := c.Blacklist()
	if err != nil {
		return nil, fmt.Errorf("failed to get blacklist for http server: %w", err)
	}

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
	}

	server := http.NewServer(db, c.config.ServerHost, c.config.ServerPort, c.Logger())
	server.AddReadinessCheck("blacklist", bl.Ping)
	server.SetupRouter(c.config, tokenManagementHandler, authorizationHandler, applicationUseCase, provider)

	return server, nil
}

func (c *Container) initMetricsServer() (*http.MetricsServer, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for metrics server: %w", err)
	}
	if provider == nil {
		return nil, nil
	}
	return http.NewMetricsServer(c.config.ServerHost, c.config.MetricsPort, c.Logger(), provider), nil
}
