// Package app provides dependency injection container for assembling application components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/allisson/storefront/internal/config"
	"github.com/allisson/storefront/internal/database"
	dispatchHTTP "github.com/allisson/storefront/internal/dispatch/http"
	dispatchUseCase "github.com/allisson/storefront/internal/dispatch/usecase"
	"github.com/allisson/storefront/internal/http"
	"github.com/allisson/storefront/internal/metrics"
	"github.com/allisson/storefront/internal/provider"
	storefrontHTTP "github.com/allisson/storefront/internal/storefront/http"
	storefrontUseCase "github.com/allisson/storefront/internal/storefront/usecase"
)

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	db              *sql.DB
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics

	// Managers
	txManager database.TxManager

	// Storefront
	productRepository storefrontUseCase.ProductRepository
	cartRepository    storefrontUseCase.CartRepository
	orderRepository   storefrontUseCase.OrderRepository
	productUseCase    storefrontUseCase.ProductUseCase
	cartUseCase       storefrontUseCase.CartUseCase
	orderUseCase      storefrontUseCase.OrderUseCase
	checkoutUseCase   storefrontUseCase.CheckoutUseCase
	productHandler    *storefrontHTTP.ProductHandler
	cartHandler       *storefrontHTTP.CartHandler
	orderHandler      *storefrontHTTP.OrderHandler
	checkoutHandler   *storefrontHTTP.CheckoutHandler

	// Dispatch
	ledgerRepository     dispatchUseCase.LedgerRepository
	deadLetterRepository dispatchUseCase.DeadLetterRepository
	providerInvoker      provider.Invoker
	scheduler            *dispatchUseCase.Scheduler
	routerUseCase        dispatchUseCase.RouterUseCase
	deadLetterUseCase    dispatchUseCase.DeadLetterUseCase
	changeEventHandler   *dispatchHTTP.ChangeEventHandler
	deadLetterHandler    *dispatchHTTP.DeadLetterHandler

	// Servers
	httpServer    *http.Server
	metricsServer *http.MetricsServer

	// Initialization flags and mutex for thread-safety
	mu                       sync.Mutex
	loggerInit               sync.Once
	dbInit                   sync.Once
	txManagerInit            sync.Once
	metricsProviderInit      sync.Once
	businessMetricsInit      sync.Once
	productRepositoryInit    sync.Once
	cartRepositoryInit       sync.Once
	orderRepositoryInit      sync.Once
	productUseCaseInit       sync.Once
	cartUseCaseInit          sync.Once
	orderUseCaseInit         sync.Once
	checkoutUseCaseInit      sync.Once
	productHandlerInit       sync.Once
	cartHandlerInit          sync.Once
	orderHandlerInit         sync.Once
	checkoutHandlerInit      sync.Once
	ledgerRepositoryInit     sync.Once
	deadLetterRepositoryInit sync.Once
	providerInvokerInit      sync.Once
	schedulerInit            sync.Once
	routerUseCaseInit        sync.Once
	deadLetterUseCaseInit    sync.Once
	changeEventHandlerInit   sync.Once
	deadLetterHandlerInit    sync.Once
	httpServerInit           sync.Once
	metricsServerInit        sync.Once
	initErrors               map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// lazy runs init once and remembers its result and error under name.
func lazy[T any](c *Container, once *sync.Once, name string, target *T, init func() (T, error)) (T, error) {
	once.Do(func() {
		value, err := init()
		c.mu.Lock()
		defer c.mu.Unlock()
		if err != nil {
			c.initErrors[name] = err
			return
		}
		*target = value
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if storedErr, exists := c.initErrors[name]; exists {
		var zero T
		return zero, storedErr
	}
	return *target, nil
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
// It creates and configures the database connection on first access.
func (c *Container) DB() (*sql.DB, error) {
	return lazy(c, &c.dbInit, "db", &c.db, c.initDB)
}

// TxManager returns the transaction manager.
// It requires a database connection to be initialized first.
func (c *Container) TxManager() (database.TxManager, error) {
	return lazy(c, &c.txManagerInit, "txManager", &c.txManager, c.initTxManager)
}

// MetricsProvider returns the OpenTelemetry metrics provider, or nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	return lazy(c, &c.metricsProviderInit, "metricsProvider", &c.metricsProvider, c.initMetricsProvider)
}

// BusinessMetrics returns the business metrics recorder. It is a no-op when metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	return lazy(c, &c.businessMetricsInit, "businessMetrics", &c.businessMetrics, c.initBusinessMetrics)
}

// HTTPServer returns the HTTP server instance.
func (c *Container) HTTPServer() (*http.Server, error) {
	return lazy(c, &c.httpServerInit, "httpServer", &c.httpServer, c.initHTTPServer)
}

// MetricsServer returns the metrics server instance, or nil when metrics are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	return lazy(c, &c.metricsServerInit, "metricsServer", &c.metricsServer, c.initMetricsServer)
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	// Shutdown HTTP server if initialized
	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	// Close database connection if initialized
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	// Return combined errors if any occurred
	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(database.Config{
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

// initTxManager creates the transaction manager using the database connection.
func (c *Container) initTxManager() (database.TxManager, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for tx manager: %w", err)
	}
	return database.NewTxManager(db), nil
}

// initMetricsProvider creates the Prometheus-backed metrics provider.
func (c *Container) initMetricsProvider() (*metrics.Provider, error) {
	if !c.config.MetricsEnabled {
		return nil, nil
	}

	metricsProvider, err := metrics.NewProvider(c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics provider: %w", err)
	}
	return metricsProvider, nil
}

// initBusinessMetrics creates the business metrics recorder.
func (c *Container) initBusinessMetrics() (metrics.BusinessMetrics, error) {
	metricsProvider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for business metrics: %w", err)
	}
	if metricsProvider == nil {
		return metrics.NewNoOpBusinessMetrics(), nil
	}

	businessMetrics, err := metrics.NewBusinessMetrics(metricsProvider.MeterProvider(), c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}
	return businessMetrics, nil
}

// initHTTPServer creates the HTTP server with all its dependencies.
func (c *Container) initHTTPServer() (*http.Server, error) {
	logger := c.Logger()

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for http server: %w", err)
	}

	var handlers http.Handlers
	if handlers.Product, err = c.ProductHandler(); err != nil {
		return nil, fmt.Errorf("failed to get product handler for http server: %w", err)
	}
	if handlers.Cart, err = c.CartHandler(); err != nil {
		return nil, fmt.Errorf("failed to get cart handler for http server: %w", err)
	}
	if handlers.Order, err = c.OrderHandler(); err != nil {
		return nil, fmt.Errorf("failed to get order handler for http server: %w", err)
	}
	if handlers.Checkout, err = c.CheckoutHandler(); err != nil {
		return nil, fmt.Errorf("failed to get checkout handler for http server: %w", err)
	}
	if handlers.DeadLetter, err = c.DeadLetterHandler(); err != nil {
		return nil, fmt.Errorf("failed to get dead letter handler for http server: %w", err)
	}
	if c.config.CDCSource == config.CDCSourceWebhook {
		if handlers.ChangeEvent, err = c.ChangeEventHandler(); err != nil {
			return nil, fmt.Errorf("failed to get change event handler for http server: %w", err)
		}
	}

	metricsProvider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
	}

	server := http.NewServer(db, c.config.ServerHost, c.config.ServerPort, logger)
	server.SetupRouter(c.config, handlers, metricsProvider)

	return server, nil
}

// initMetricsServer creates the metrics server.
func (c *Container) initMetricsServer() (*http.MetricsServer, error) {
	metricsProvider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for metrics server: %w", err)
	}

	if metricsProvider == nil {
		return nil, nil
	}

	return http.NewMetricsServer(c.config.ServerHost, c.config.MetricsPort, c.Logger(), metricsProvider), nil
}
