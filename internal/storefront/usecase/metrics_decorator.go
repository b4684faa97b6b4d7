package usecase

import (
	"context"
	"time"

	"github.com/allisson/storefront/internal/metrics"
	storefrontDomain "github.com/allisson/storefront/internal/storefront/domain"
)

const metricsDomain = "storefront"

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// checkoutUseCaseWithMetrics decorates CheckoutUseCase with metrics instrumentation.
type checkoutUseCaseWithMetrics struct {
	next    CheckoutUseCase
	metrics metrics.BusinessMetrics
}

// NewCheckoutUseCaseWithMetrics wraps a CheckoutUseCase with metrics recording.
func NewCheckoutUseCaseWithMetrics(useCase CheckoutUseCase, m metrics.BusinessMetrics) CheckoutUseCase {
	return &checkoutUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// PerformCheckout records metrics for checkout operations.
func (c *checkoutUseCaseWithMetrics) PerformCheckout(
	ctx context.Context,
	cartID int64,
) (*storefrontDomain.CheckoutResult, error) {
	start := time.Now()
	result, err := c.next.PerformCheckout(ctx, cartID)

	status := statusOf(err)
	c.metrics.RecordOperation(ctx, metricsDomain, "checkout", status)
	c.metrics.RecordDuration(ctx, metricsDomain, "checkout", time.Since(start), status)

	return result, err
}

// cartUseCaseWithMetrics decorates CartUseCase with metrics instrumentation.
type cartUseCaseWithMetrics struct {
	next    CartUseCase
	metrics metrics.BusinessMetrics
}

// NewCartUseCaseWithMetrics wraps a CartUseCase with metrics recording.
func NewCartUseCaseWithMetrics(useCase CartUseCase, m metrics.BusinessMetrics) CartUseCase {
	return &cartUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (c *cartUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := statusOf(err)
	c.metrics.RecordOperation(ctx, metricsDomain, operation, status)
	c.metrics.RecordDuration(ctx, metricsDomain, operation, time.Since(start), status)
}

// Create records metrics for cart creation.
func (c *cartUseCaseWithMetrics) Create(ctx context.Context) (*storefrontDomain.Cart, error) {
	start := time.Now()
	cart, err := c.next.Create(ctx)
	c.record(ctx, "cart_create", start, err)
	return cart, err
}

// Get records metrics for cart retrieval.
func (c *cartUseCaseWithMetrics) Get(ctx context.Context, cartID int64) (*storefrontDomain.Cart, error) {
	start := time.Now()
	cart, err := c.next.Get(ctx, cartID)
	c.record(ctx, "cart_get", start, err)
	return cart, err
}

// AddItems records metrics for adding items to a cart.
func (c *cartUseCaseWithMetrics) AddItems(
	ctx context.Context,
	cartID int64,
	productIDs []int64,
) (*storefrontDomain.Cart, error) {
	start := time.Now()
	cart, err := c.next.AddItems(ctx, cartID, productIDs)
	c.record(ctx, "cart_add_items", start, err)
	return cart, err
}

// RemoveItem records metrics for removing a cart item.
func (c *cartUseCaseWithMetrics) RemoveItem(
	ctx context.Context,
	cartID, itemID int64,
) (*storefrontDomain.Cart, error) {
	start := time.Now()
	cart, err := c.next.RemoveItem(ctx, cartID, itemID)
	c.record(ctx, "cart_remove_item", start, err)
	return cart, err
}

// orderUseCaseWithMetrics decorates OrderUseCase with metrics instrumentation.
type orderUseCaseWithMetrics struct {
	next    OrderUseCase
	metrics metrics.BusinessMetrics
}

// NewOrderUseCaseWithMetrics wraps an OrderUseCase with metrics recording.
func NewOrderUseCaseWithMetrics(useCase OrderUseCase, m metrics.BusinessMetrics) OrderUseCase {
	return &orderUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Get records metrics for order retrieval.
func (o *orderUseCaseWithMetrics) Get(ctx context.Context, orderID int64) (*storefrontDomain.Order, error) {
	start := time.Now()
	order, err := o.next.Get(ctx, orderID)

	status := statusOf(err)
	o.metrics.RecordOperation(ctx, metricsDomain, "order_get", status)
	o.metrics.RecordDuration(ctx, metricsDomain, "order_get", time.Since(start), status)

	return order, err
}
