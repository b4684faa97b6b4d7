package cdc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dispatchDomain "github.com/allisson/storefront/internal/dispatch/domain"
)

const orderCreatedPayload = `{
	"before": null,
	"after": {"id": 42, "created_at": 1760000000000},
	"source": {"connector": "postgresql", "table": "orders", "lsn": 24023128},
	"op": "c",
	"ts_ms": 1760000000123
}`

func TestDecodeEnvelope(t *testing.T) {
	t.Run("Success_BarePayload", func(t *testing.T) {
		event, err := DecodeEnvelope([]byte(orderCreatedPayload))
		require.NoError(t, err)

		assert.Equal(t, "orders", event.Table)
		assert.Equal(t, dispatchDomain.OperationCreate, event.Operation)
		assert.Equal(t, int64(24023128), event.LogPosition)
		assert.Nil(t, event.Before)

		id, ok := event.After.Int64("id")
		assert.True(t, ok)
		assert.Equal(t, int64(42), id)
	})

	t.Run("Success_SchemaPayloadEnvelope", func(t *testing.T) {
		message := `{"schema": {"type": "struct"}, "payload": ` + orderCreatedPayload + `}`

		event, err := DecodeEnvelope([]byte(message))
		require.NoError(t, err)

		assert.Equal(t, "orders", event.Table)
		assert.Equal(t, int64(24023128), event.LogPosition)
	})

	t.Run("Success_MySQLBinlogPosition", func(t *testing.T) {
		message := `{
			"before": {"id": 7},
			"after": null,
			"source": {"connector": "mysql", "table": "carts", "file": "binlog.000003", "pos": 1554},
			"op": "d"
		}`

		event, err := DecodeEnvelope([]byte(message))
		require.NoError(t, err)

		assert.Equal(t, dispatchDomain.OperationDelete, event.Operation)
		assert.Equal(t, int64(3)<<32|1554, event.LogPosition)
		assert.Nil(t, event.After)

		action, ok := dispatchDomain.Classify(event)
		require.True(t, ok)
		assert.Equal(t, dispatchDomain.CancelAbandonedCartEmail, action.Kind)
		assert.Equal(t, int64(7), action.SubjectID)
		assert.Equal(t, "carts:delete:12884903442", action.IdempotencyKey)
	})

	t.Run("Success_MySQLPositionIncreasesAcrossBinlogFiles", func(t *testing.T) {
		late := `{"source": {"table": "orders", "file": "mysql-bin.000003", "pos": 90000}, "op": "c"}`
		rotated := `{"source": {"table": "orders", "file": "mysql-bin.000004", "pos": 4}, "op": "c"}`
		sameOffset := `{"source": {"table": "orders", "file": "mysql-bin.000004", "pos": 90000}, "op": "c"}`

		first, err := DecodeEnvelope([]byte(late))
		require.NoError(t, err)
		second, err := DecodeEnvelope([]byte(rotated))
		require.NoError(t, err)
		third, err := DecodeEnvelope([]byte(sameOffset))
		require.NoError(t, err)

		assert.Less(t, first.LogPosition, second.LogPosition)
		assert.Less(t, second.LogPosition, third.LogPosition)
		assert.NotEqual(t, first.LogPosition, third.LogPosition)
	})

	t.Run("Success_OperationMapping", func(t *testing.T) {
		cases := map[string]dispatchDomain.Operation{
			"c": dispatchDomain.OperationCreate,
			"u": dispatchDomain.OperationUpdate,
			"d": dispatchDomain.OperationDelete,
			"r": dispatchDomain.OperationSnapshot,
			"t": dispatchDomain.OperationTruncate,
		}
		for code, expected := range cases {
			message := `{"source": {"table": "cart_items", "lsn": 1}, "op": "` + code + `"}`
			event, err := DecodeEnvelope([]byte(message))
			require.NoError(t, err, code)
			assert.Equal(t, expected, event.Operation, code)
		}
	})

	t.Run("Tombstones", func(t *testing.T) {
		for _, message := range []string{"", "  ", "null", `{"schema": null, "payload": null}`} {
			_, err := DecodeEnvelope([]byte(message))
			assert.ErrorIs(t, err, ErrTombstone, message)
		}
	})

	t.Run("Error_InvalidMessages", func(t *testing.T) {
		cases := []struct {
			name    string
			message string
		}{
			{"malformed json", `{"op":`},
			{"unknown operation", `{"source": {"table": "orders", "lsn": 1}, "op": "x"}`},
			{"missing table", `{"source": {"lsn": 1}, "op": "c"}`},
			{"missing position", `{"source": {"table": "orders"}, "op": "c"}`},
			{"fractional position", `{"source": {"table": "orders", "lsn": 1.5}, "op": "c"}`},
			{"binlog file without sequence", `{"source": {"table": "orders", "file": "binlog", "pos": 4}, "op": "c"}`},
			{"negative binlog position", `{"source": {"table": "orders", "file": "binlog.000001", "pos": -4}, "op": "c"}`},
			{"row not an object", `{"after": [1, 2], "source": {"table": "orders", "lsn": 1}, "op": "c"}`},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := DecodeEnvelope([]byte(tc.message))
				assert.ErrorIs(t, err, dispatchDomain.ErrInvalidChangeEvent)
			})
		}
	})
}
