// Package usecase implements the storefront business logic: browsing the catalog, managing
// carts, reading orders and the checkout transaction that turns a cart into an order.
package usecase

import (
	"context"

	dispatchDomain "github.com/allisson/storefront/internal/dispatch/domain"
	storefrontDomain "github.com/allisson/storefront/internal/storefront/domain"
)

// ProductRepository reads the product catalog.
type ProductRepository interface {
	List(ctx context.Context) ([]*storefrontDomain.Product, error)
	GetByIDs(ctx context.Context, ids []int64) (map[int64]*storefrontDomain.Product, error)
}

// CartRepository persists carts and their items.
type CartRepository interface {
	Create(ctx context.Context) (*storefrontDomain.Cart, error)
	Get(ctx context.Context, cartID int64) (*storefrontDomain.Cart, error)
	Lock(ctx context.Context, cartID int64) error
	AddItems(ctx context.Context, cartID int64, productIDs []int64) (int64, error)
	RemoveItem(ctx context.Context, cartID, itemID int64) error
	ListItems(ctx context.Context, cartID int64) ([]*storefrontDomain.CartItem, error)
	LockItems(ctx context.Context, cartID int64) ([]*storefrontDomain.CartItem, error)
	DeleteItems(ctx context.Context, cartID int64) (int64, error)
	Delete(ctx context.Context, cartID int64) error
}

// OrderRepository persists orders and their items.
type OrderRepository interface {
	Create(ctx context.Context, order *storefrontDomain.Order) error
	CreateItems(ctx context.Context, items []*storefrontDomain.OrderItem) error
	Get(ctx context.Context, orderID int64) (*storefrontDomain.Order, error)
}

// ActionSubmitter hands committed side effects to the dispatcher.
type ActionSubmitter interface {
	Submit(ctx context.Context, action dispatchDomain.DomainAction) error
}

// ProductUseCase exposes the catalog.
type ProductUseCase interface {
	List(ctx context.Context) ([]*storefrontDomain.Product, error)
}

// CartUseCase manages carts. None of its operations emit side effects directly; item
// inserts reach the dispatcher through the change feed.
type CartUseCase interface {
	Create(ctx context.Context) (*storefrontDomain.Cart, error)
	Get(ctx context.Context, cartID int64) (*storefrontDomain.Cart, error)
	AddItems(ctx context.Context, cartID int64, productIDs []int64) (*storefrontDomain.Cart, error)
	RemoveItem(ctx context.Context, cartID, itemID int64) (*storefrontDomain.Cart, error)
}

// OrderUseCase reads orders.
type OrderUseCase interface {
	Get(ctx context.Context, orderID int64) (*storefrontDomain.Order, error)
}

// CheckoutUseCase converts a cart into an order.
type CheckoutUseCase interface {
	PerformCheckout(ctx context.Context, cartID int64) (*storefrontDomain.CheckoutResult, error)
}
