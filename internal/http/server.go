// Package http provides the HTTP server, its router and shared middleware.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/storefront/internal/config"
	dispatchHTTP "github.com/allisson/storefront/internal/dispatch/http"
	"github.com/allisson/storefront/internal/metrics"
	storefrontHTTP "github.com/allisson/storefront/internal/storefront/http"
)

// readinessTimeout bounds the database ping of the readiness probe.
const readinessTimeout = 2 * time.Second

// Handlers groups the API handlers mounted by SetupRouter. ChangeEvent is nil when change
// events do not arrive over HTTP.
type Handlers struct {
	Product     *storefrontHTTP.ProductHandler
	Cart        *storefrontHTTP.CartHandler
	Order       *storefrontHTTP.OrderHandler
	Checkout    *storefrontHTTP.CheckoutHandler
	ChangeEvent *dispatchHTTP.ChangeEventHandler
	DeadLetter  *dispatchHTTP.DeadLetterHandler
}

// Server represents the HTTP server
type Server struct {
	db          *sql.DB
	server      *http.Server
	router      *gin.Engine
	rateLimiter *ipRateLimiter
	logger      *slog.Logger
}

// NewServer creates a new HTTP server
func NewServer(
	db *sql.DB,
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	return &Server{
		db:     db,
		logger: logger,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// SetupRouter builds the gin engine with middleware and all API routes.
func (s *Server) SetupRouter(
	cfg *config.Config,
	handlers Handlers,
	metricsProvider *metrics.Provider,
) {
	gin.SetMode(cfg.GetGinMode())

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
		s.rateLimiter = newIPRateLimiter(cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst)
		v1.Use(RateLimitMiddleware(s.rateLimiter, s.logger))
	}

	if handlers.Product != nil {
		v1.GET("/products", handlers.Product.ListHandler)
	}

	if handlers.Cart != nil {
		carts := v1.Group("/carts")
		carts.POST("", handlers.Cart.CreateHandler)
		carts.GET("/:id", handlers.Cart.GetHandler)
		carts.POST("/:id/items", handlers.Cart.AddItemsHandler)
		carts.DELETE("/:id/items/:item_id", handlers.Cart.RemoveItemHandler)
		if handlers.Checkout != nil {
			carts.POST("/:id/checkout", handlers.Checkout.PerformHandler)
		}
	}

	if handlers.Order != nil {
		v1.GET("/orders/:id", handlers.Order.GetHandler)
	}

	if handlers.ChangeEvent != nil {
		// Not rate limited; the connector pushes every change.
		router.POST("/v1/cdc/debezium", handlers.ChangeEvent.IngestHandler)
	}

	if handlers.DeadLetter != nil {
		v1.GET("/dead-letters", handlers.DeadLetter.ListHandler)
	}

	s.router = router
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	s.server.Handler = s.router

	if s.rateLimiter != nil {
		go s.rateLimiter.cleanupStale(ctx, 5*time.Minute)
	}

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

// healthHandler reports liveness.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports whether the database is reachable.
func (s *Server) readinessHandler(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": gin.H{"database": "error"},
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Warn("readiness check failed", slog.Any("error", err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": gin.H{"database": "error"},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"components": gin.H{"database": "ok"},
	})
}
