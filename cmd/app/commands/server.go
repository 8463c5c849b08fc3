package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/allisson/tokenkeeper/internal/app"
	"github.com/allisson/tokenkeeper/internal/config"
	"github.com/allisson/tokenkeeper/internal/http"
)

// RunServer starts the API server and, when enabled, the metrics server.
// Blocks until SIGINT/SIGTERM or a fatal server error, then shuts both down
// within DBConnMaxLifetime. SIGHUP drops the cached login policy so the next check
// re-reads LOGIN_POLICY_FILE.
func RunServer(ctx context.Context, version string) error {
	cfg := config.Load()
	gin.SetMode(cfg.GetGinMode())

	container := app.NewContainer(cfg)
	logger := container.Logger()
	logger.Info("starting server", slog.String("version", version))
	defer closeContainer(container, logger)

	// Initializes the whole dependency graph, including the blacklist backend.
	server, err := container.HTTPServer()
	if err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	metricsServer, err := container.MetricsServer()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics server: %w", err)
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	defer signal.Stop(reload)
	go watchPolicyReload(ctx, reload, container.PolicyCache(), logger)

	serverErr := make(chan error, 2)
	go func() {
		if err := server.Start(ctx); err != nil {
			serverErr <- fmt.Errorf("api server error: %w", err)
		}
	}()

	if metricsServer != nil {
		go func() {
			if err := metricsServer.Start(ctx); err != nil {
				serverErr <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		return shutdownServers(server, metricsServer, cfg.DBConnMaxLifetime)
	case err := <-serverErr:
		logger.Error("server error, initiating shutdown", slog.Any("error", err))
		return errors.Join(err, shutdownServers(server, metricsServer, cfg.DBConnMaxLifetime))
	}
}

// PolicyInvalidator drops a cached login policy snapshot.
type PolicyInvalidator interface {
	Invalidate()
}

// watchPolicyReload invalidates the policy cache on every signal until ctx ends.
func watchPolicyReload(
	ctx context.Context,
	signals <-chan os.Signal,
	cache PolicyInvalidator,
	logger *slog.Logger,
) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-signals:
			cache.Invalidate()
			logger.Info("login policy cache invalidated", slog.String("signal", sig.String()))
		}
	}
}

// shutdownServers stops both servers and joins their errors.
func shutdownServers(server *http.Server, metricsServer *http.MetricsServer, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	if err := server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("api server shutdown: %w", err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}
