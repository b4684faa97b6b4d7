package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/allisson/storefront/internal/errors"
)

func TestCalculateCartTotal(t *testing.T) {
	items := []*CartItem{
		{ID: 1, ProductID: 1, Product: &Product{ID: 1, PriceCents: 1000}},
		{ID: 2, ProductID: 2, Product: &Product{ID: 2, PriceCents: 1500}},
		{ID: 3, ProductID: 99},
	}

	assert.Equal(t, int64(2500), CalculateCartTotal(items))
	assert.Zero(t, CalculateCartTotal(nil))
}

func TestCalculateOrderTotal(t *testing.T) {
	items := []*OrderItem{
		{ID: 1, ProductID: 1, PriceCents: 1000},
		{ID: 2, ProductID: 2, PriceCents: 1500},
	}

	assert.Equal(t, int64(2500), CalculateOrderTotal(items))
}

func TestErrors(t *testing.T) {
	assert.True(t, apperrors.Is(ErrCartNotFound, apperrors.ErrNotFound))
	assert.True(t, apperrors.Is(ErrOrderNotFound, apperrors.ErrNotFound))
	assert.True(t, apperrors.Is(ErrCartItemNotFound, apperrors.ErrNotFound))
	assert.True(t, apperrors.Is(ErrEmptyCart, apperrors.ErrInvalidInput))
	assert.True(t, apperrors.Is(ErrUnknownProduct, apperrors.ErrInvalidInput))
}
