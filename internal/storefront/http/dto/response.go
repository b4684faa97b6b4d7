package dto

import (
	"time"

	storefrontDomain "github.com/allisson/storefront/internal/storefront/domain"
)

// ProductResponse represents a catalog product in API responses.
type ProductResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	PriceCents  int64  `json:"price_cents"`
}

// ListProductsResponse represents the catalog in API responses.
type ListProductsResponse struct {
	Data []ProductResponse `json:"data"`
}

// CartItemResponse represents a cart item. Product is omitted when it left the catalog.
type CartItemResponse struct {
	ID        int64            `json:"id"`
	ProductID int64            `json:"product_id"`
	Product   *ProductResponse `json:"product,omitempty"`
}

// CartResponse represents a cart in API responses.
type CartResponse struct {
	ID         int64              `json:"id"`
	CreatedAt  time.Time          `json:"created_at"`
	Items      []CartItemResponse `json:"items"`
	TotalCents int64              `json:"total_cents"`
}

// OrderItemResponse represents an order item with its checkout price.
type OrderItemResponse struct {
	ID         int64            `json:"id"`
	ProductID  int64            `json:"product_id"`
	PriceCents int64            `json:"price_cents"`
	Product    *ProductResponse `json:"product,omitempty"`
}

// OrderResponse represents an order in API responses.
type OrderResponse struct {
	ID         int64               `json:"id"`
	CreatedAt  time.Time           `json:"created_at"`
	Items      []OrderItemResponse `json:"items"`
	TotalCents int64               `json:"total_cents"`
}

// CheckoutResponse identifies the order a checkout created.
type CheckoutResponse struct {
	OrderID int64 `json:"order_id"`
}

func mapProduct(product *storefrontDomain.Product) *ProductResponse {
	if product == nil {
		return nil
	}
	return &ProductResponse{
		ID:          product.ID,
		Name:        product.Name,
		Description: product.Description,
		PriceCents:  product.PriceCents,
	}
}

// MapProductsToListResponse converts domain products to a list response.
func MapProductsToListResponse(products []*storefrontDomain.Product) ListProductsResponse {
	data := make([]ProductResponse, 0, len(products))
	for _, product := range products {
		data = append(data, *mapProduct(product))
	}
	return ListProductsResponse{Data: data}
}

// MapCartToResponse converts a domain cart to an API response.
func MapCartToResponse(cart *storefrontDomain.Cart) CartResponse {
	items := make([]CartItemResponse, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, CartItemResponse{
			ID:        item.ID,
			ProductID: item.ProductID,
			Product:   mapProduct(item.Product),
		})
	}
	return CartResponse{
		ID:         cart.ID,
		CreatedAt:  cart.CreatedAt,
		Items:      items,
		TotalCents: cart.TotalCents,
	}
}

// MapOrderToResponse converts a domain order to an API response.
func MapOrderToResponse(order *storefrontDomain.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemResponse{
			ID:         item.ID,
			ProductID:  item.ProductID,
			PriceCents: item.PriceCents,
			Product:    mapProduct(item.Product),
		})
	}
	return OrderResponse{
		ID:         order.ID,
		CreatedAt:  order.CreatedAt,
		Items:      items,
		TotalCents: order.TotalCents,
	}
}
