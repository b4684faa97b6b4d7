package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	_ "gocloud.dev/pubsub/mempubsub"
	"golang.org/x/sync/errgroup"

	"github.com/allisson/storefront/internal/app"
	"github.com/allisson/storefront/internal/config"
)

// RunServer starts the HTTP API, the dispatch scheduler and, unless change events arrive
// through the webhook, the change feed router. Blocks until receiving SIGINT/SIGTERM or
// encountering a fatal error. On shutdown the servers stop within DBConnMaxLifetime and
// pending actions are abandoned for redelivery.
func RunServer(ctx context.Context, version string) error {
	// Load configuration
	cfg := config.Load()

	// Set Gin mode based on log level
	gin.SetMode(cfg.GetGinMode())

	// Create DI container
	container := app.NewContainer(cfg)

	logger := container.Logger()
	logger.Info("starting server",
		slog.String("version", version),
		slog.String("cdc_source", cfg.CDCSource),
	)

	// Ensure cleanup on exit
	defer closeContainer(container, logger)

	// Get HTTP server from container (this initializes all dependencies)
	server, err := container.HTTPServer()
	if err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	metricsServer, err := container.MetricsServer()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics server: %w", err)
	}

	scheduler, err := container.Scheduler()
	if err != nil {
		return fmt.Errorf("failed to initialize dispatch scheduler: %w", err)
	}

	routerUseCase, err := container.RouterUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize change event router: %w", err)
	}

	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	feed, err := container.ChangeFeed(ctx)
	if err != nil {
		return fmt.Errorf("failed to open change feed: %w", err)
	}
	if feed != nil {
		defer func() {
			if err := feed.Close(context.Background()); err != nil {
				logger.Error("failed to close change feed", slog.Any("error", err))
			}
		}()
	}

	// Background work stops when workerCtx is canceled
	workerCtx, workerCancel := context.WithCancel(ctx)
	defer workerCancel()

	serverErr := make(chan error, 4)
	workers, workerCtx := errgroup.WithContext(workerCtx)

	workers.Go(func() error {
		if err := scheduler.Run(workerCtx); err != nil {
			err = fmt.Errorf("dispatch scheduler error: %w", err)
			serverErr <- err
			return err
		}
		return nil
	})

	if feed != nil {
		workers.Go(func() error {
			if err := routerUseCase.Run(workerCtx, feed); err != nil {
				err = fmt.Errorf("change feed router error: %w", err)
				serverErr <- err
				return err
			}
			return nil
		})
	}

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

	var shutdownErrors []error

	// Wait for shutdown signal or server error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		logger.Error("server error, initiating shutdown", slog.Any("error", err))
		shutdownErrors = append(shutdownErrors, err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.DBConnMaxLifetime)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		shutdownErrors = append(shutdownErrors, fmt.Errorf("api server shutdown: %w", err))
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	// Stop dispatch after the API so that late checkouts can still submit
	abandoned := scheduler.Pending()
	workerCancel()
	_ = workers.Wait()

	logger.Info("dispatch stopped", slog.Int("abandoned_actions", abandoned))

	return errors.Join(shutdownErrors...)
}
