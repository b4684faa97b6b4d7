// Package domain defines the storefront entities: the product catalog, shopping carts and
// the orders carts are checked out into. Prices are integer cents.
package domain

import "time"

// Product is a catalog entry.
type Product struct {
	ID          int64
	Name        string
	Description string
	PriceCents  int64
}

// Cart holds the products a shopper intends to buy. A product appears at most once.
type Cart struct {
	ID        int64
	CreatedAt time.Time
	Items     []*CartItem
	// TotalCents is the sum of the current catalog prices of Items.
	TotalCents int64
}

// CartItem is one product in a cart. Product is nil when the product is not in the
// catalog.
type CartItem struct {
	ID        int64
	CartID    int64
	ProductID int64
	Product   *Product
}

// Order is the result of a checkout.
type Order struct {
	ID        int64
	CreatedAt time.Time
	Items     []*OrderItem
	// TotalCents is the sum of the snapshotted item prices.
	TotalCents int64
}

// OrderItem records a product and the price it had when the order was placed. The price
// never changes after checkout.
type OrderItem struct {
	ID         int64
	OrderID    int64
	ProductID  int64
	PriceCents int64
	Product    *Product
}

// CheckoutResult identifies the order created by a checkout.
type CheckoutResult struct {
	OrderID int64
	CartID  int64
}

// CalculateCartTotal sums the prices of items with a known product.
func CalculateCartTotal(items []*CartItem) int64 {
	var total int64
	for _, item := range items {
		if item.Product != nil {
			total += item.Product.PriceCents
		}
	}
	return total
}

// CalculateOrderTotal sums the snapshotted item prices.
func CalculateOrderTotal(items []*OrderItem) int64 {
	var total int64
	for _, item := range items {
		total += item.PriceCents
	}
	return total
}
