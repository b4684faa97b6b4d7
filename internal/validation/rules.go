// Package validation provides custom validation rules for the application.
package validation

import (
	"fmt"
	"strconv"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/storefront/internal/errors"
)

// maxBatchIDs bounds how many ids a single request may carry.
const maxBatchIDs = 100

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// PositiveID validates that an int64 identifier is greater than zero.
var PositiveID = validation.By(func(value interface{}) error {
	id, ok := value.(int64)
	if !ok {
		return validation.NewError("validation_id_type", "must be an integer")
	}
	if id <= 0 {
		return validation.NewError("validation_id_positive", "must be a positive integer")
	}
	return nil
})

// IDList validates a non-empty, bounded list of positive identifiers.
var IDList = []validation.Rule{
	validation.Required,
	validation.Length(1, maxBatchIDs),
	validation.Each(PositiveID),
}

// ParseID parses a path parameter holding a positive int64 identifier.
func ParseID(name, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s parameter: must be a positive integer", name)
	}
	return id, nil
}
