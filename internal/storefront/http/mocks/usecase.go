// Package mocks provides mock implementations for testing HTTP handlers.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	storefrontDomain "github.com/allisson/storefront/internal/storefront/domain"
)

// MockProductUseCase is a mock implementation of ProductUseCase for testing.
type MockProductUseCase struct {
	mock.Mock
}

// List mocks the List method of ProductUseCase.
func (m *MockProductUseCase) List(ctx context.Context) ([]*storefrontDomain.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*storefrontDomain.Product), args.Error(1)
}

// MockCartUseCase is a mock implementation of CartUseCase for testing.
type MockCartUseCase struct {
	mock.Mock
}

func (m *MockCartUseCase) cart(args mock.Arguments) (*storefrontDomain.Cart, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storefrontDomain.Cart), args.Error(1)
}

// Create mocks the Create method of CartUseCase.
func (m *MockCartUseCase) Create(ctx context.Context) (*storefrontDomain.Cart, error) {
	return m.cart(m.Called(ctx))
}

// Get mocks the Get method of CartUseCase.
func (m *MockCartUseCase) Get(ctx context.Context, cartID int64) (*storefrontDomain.Cart, error) {
	return m.cart(m.Called(ctx, cartID))
}

// AddItems mocks the AddItems method of CartUseCase.
func (m *MockCartUseCase) AddItems(
	ctx context.Context,
	cartID int64,
	productIDs []int64,
) (*storefrontDomain.Cart, error) {
	return m.cart(m.Called(ctx, cartID, productIDs))
}

// RemoveItem mocks the RemoveItem method of CartUseCase.
func (m *MockCartUseCase) RemoveItem(ctx context.Context, cartID, itemID int64) (*storefrontDomain.Cart, error) {
	return m.cart(m.Called(ctx, cartID, itemID))
}

// MockOrderUseCase is a mock implementation of OrderUseCase for testing.
type MockOrderUseCase struct {
	mock.Mock
}

// Get mocks the Get method of OrderUseCase.
func (m *MockOrderUseCase) Get(ctx context.Context, orderID int64) (*storefrontDomain.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storefrontDomain.Order), args.Error(1)
}

// MockCheckoutUseCase is a mock implementation of CheckoutUseCase for testing.
type MockCheckoutUseCase struct {
	mock.Mock
}

// PerformCheckout mocks the PerformCheckout method of CheckoutUseCase.
func (m *MockCheckoutUseCase) PerformCheckout(
	ctx context.Context,
	cartID int64,
) (*storefrontDomain.CheckoutResult, error) {
	args := m.Called(ctx, cartID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storefrontDomain.CheckoutResult), args.Error(1)
}
