package validation

import (
	"errors"
	"testing"

	validation "github.com/jellydator/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/storefront/internal/errors"
)

func TestWrapValidationError(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		assert.NoError(t, WrapValidationError(nil))
	})

	t.Run("wraps as invalid input", func(t *testing.T) {
		err := WrapValidationError(errors.New("product_ids: cannot be blank."))

		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
		assert.Contains(t, err.Error(), "product_ids: cannot be blank.")
	})
}

func TestPositiveID(t *testing.T) {
	tests := []struct {
		name      string
		value     interface{}
		shouldErr bool
		errMsg    string
	}{
		{name: "positive", value: int64(1)},
		{name: "zero", value: int64(0), shouldErr: true, errMsg: "must be a positive integer"},
		{name: "negative", value: int64(-5), shouldErr: true, errMsg: "must be a positive integer"},
		{name: "wrong type", value: "1", shouldErr: true, errMsg: "must be an integer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validation.Validate(tt.value, PositiveID)
			if tt.shouldErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIDList(t *testing.T) {
	tests := []struct {
		name      string
		ids       []int64
		shouldErr bool
	}{
		{name: "single id", ids: []int64{1}},
		{name: "several ids", ids: []int64{1, 2, 3}},
		{name: "empty", ids: []int64{}, shouldErr: true},
		{name: "nil", ids: nil, shouldErr: true},
		{name: "contains zero", ids: []int64{1, 0}, shouldErr: true},
		{name: "too many", ids: make([]int64, maxBatchIDs+1), shouldErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validation.Validate(tt.ids, IDList...)
			if tt.shouldErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseID(t *testing.T) {
	id, err := ParseID("id", "42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, raw := range []string{"", "abc", "0", "-1", "1.5"} {
		_, err := ParseID("id", raw)
		assert.EqualError(t, err, "invalid id parameter: must be a positive integer", raw)
	}
}
