package domain

import (
	apperrors "github.com/allisson/storefront/internal/errors"
)

// Storefront error definitions.
var (
	// ErrCartNotFound indicates the cart does not exist.
	ErrCartNotFound = apperrors.Wrap(apperrors.ErrNotFound, "cart not found")

	// ErrOrderNotFound indicates the order does not exist.
	ErrOrderNotFound = apperrors.Wrap(apperrors.ErrNotFound, "order not found")

	// ErrCartItemNotFound indicates the item is not in the cart.
	ErrCartItemNotFound = apperrors.Wrap(apperrors.ErrNotFound, "cart item not found")

	// ErrEmptyCart indicates a checkout of a cart without items.
	ErrEmptyCart = apperrors.Wrap(apperrors.ErrInvalidInput, "cart is empty")

	// ErrUnknownProduct indicates a product id missing from the catalog.
	ErrUnknownProduct = apperrors.Wrap(apperrors.ErrInvalidInput, "unknown product")
)
