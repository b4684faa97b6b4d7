// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/storefront/internal/validation"
)

// AddCartItemsRequest contains the products to add to a cart.
type AddCartItemsRequest struct {
	ProductIDs []int64 `json:"product_ids"`
}

// Validate checks if the add cart items request is valid.
func (r *AddCartItemsRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.ProductIDs, customValidation.IDList...),
	)
}
