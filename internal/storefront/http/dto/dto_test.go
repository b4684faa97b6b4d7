package dto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storefrontDomain "github.com/allisson/storefront/internal/storefront/domain"
)

func TestAddCartItemsRequest_Validate(t *testing.T) {
	t.Run("Success_ValidRequest", func(t *testing.T) {
		req := AddCartItemsRequest{ProductIDs: []int64{1, 2}}
		assert.NoError(t, req.Validate())
	})

	t.Run("Error_MissingProducts", func(t *testing.T) {
		req := AddCartItemsRequest{}
		err := req.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "product_ids")
	})

	t.Run("Error_NonPositiveProduct", func(t *testing.T) {
		req := AddCartItemsRequest{ProductIDs: []int64{1, -2}}
		assert.Error(t, req.Validate())
	})
}

func TestMapCartToResponse(t *testing.T) {
	now := time.Now().UTC()
	cart := &storefrontDomain.Cart{
		ID:        1,
		CreatedAt: now,
		Items: []*storefrontDomain.CartItem{
			{ID: 10, CartID: 1, ProductID: 1, Product: &storefrontDomain.Product{ID: 1, Name: "A", PriceCents: 1000}},
			{ID: 11, CartID: 1, ProductID: 9},
		},
		TotalCents: 1000,
	}

	response := MapCartToResponse(cart)

	assert.Equal(t, int64(1), response.ID)
	assert.Equal(t, now, response.CreatedAt)
	assert.Equal(t, int64(1000), response.TotalCents)
	require.Len(t, response.Items, 2)
	assert.Equal(t, "A", response.Items[0].Product.Name)
	assert.Nil(t, response.Items[1].Product)
}

func TestMapOrderToResponse(t *testing.T) {
	order := &storefrontDomain.Order{
		ID: 100,
		Items: []*storefrontDomain.OrderItem{
			{ID: 1, OrderID: 100, ProductID: 1, PriceCents: 1000},
		},
		TotalCents: 1000,
	}

	response := MapOrderToResponse(order)

	assert.Equal(t, int64(100), response.ID)
	require.Len(t, response.Items, 1)
	assert.Equal(t, int64(1000), response.Items[0].PriceCents)
}

func TestMapProductsToListResponse(t *testing.T) {
	response := MapProductsToListResponse(nil)
	assert.NotNil(t, response.Data)
	assert.Empty(t, response.Data)
}
