package usecase

import (
	"context"

	apperrors "github.com/allisson/storefront/internal/errors"
	storefrontDomain "github.com/allisson/storefront/internal/storefront/domain"
)

// productUseCase implements ProductUseCase.
type productUseCase struct {
	productRepo ProductRepository
}

// List returns the whole catalog ordered by id.
func (p *productUseCase) List(ctx context.Context) ([]*storefrontDomain.Product, error) {
	products, err := p.productRepo.List(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list products")
	}
	return products, nil
}

// NewProductUseCase creates a new ProductUseCase.
func NewProductUseCase(productRepo ProductRepository) ProductUseCase {
	return &productUseCase{productRepo: productRepo}
}

// orderUseCase implements OrderUseCase.
type orderUseCase struct {
	orderRepo OrderRepository
}

// Get returns the order with its items and total.
func (o *orderUseCase) Get(ctx context.Context, orderID int64) (*storefrontDomain.Order, error) {
	order, err := o.orderRepo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	order.TotalCents = storefrontDomain.CalculateOrderTotal(order.Items)
	return order, nil
}

// NewOrderUseCase creates a new OrderUseCase.
func NewOrderUseCase(orderRepo OrderRepository) OrderUseCase {
	return &orderUseCase{orderRepo: orderRepo}
}
