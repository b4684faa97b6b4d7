package domain

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
)

// Operation is the kind of row change carried by a change event.
type Operation string

const (
	OperationCreate   Operation = "create"
	OperationUpdate   Operation = "update"
	OperationDelete   Operation = "delete"
	OperationSnapshot Operation = "snapshot"
	OperationTruncate Operation = "truncate"
)

// Row is a row image keyed by column name.
type Row map[string]any

// Int64 reads an integer column. It accepts the numeric representations produced by
// JSON decoding (json.Number, float64) as well as native integers and decimal strings.
func (r Row) Int64(column string) (int64, bool) {
	if r == nil {
		return 0, false
	}
	switch v := r[column].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case float64:
		if v != math.Trunc(v) || v > math.MaxInt64 || v < math.MinInt64 {
			return 0, false
		}
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// ChangeEvent is one row-level change read from the database change log.
//
// LogPosition is assigned by the log and is immutable: redelivery of the same change
// carries the same position. Delete events have no After image and create events have
// no Before image.
type ChangeEvent struct {
	Table       string
	Operation   Operation
	Before      Row
	After       Row
	LogPosition int64
}

// Delivery is a change event handed out by a ChangeFeed together with its
// acknowledgement. Ack is called once the event needs no further processing; it may be
// called from another goroutine and out of receive order.
type Delivery struct {
	Event ChangeEvent
	Ack   func() error
}

// ChangeFeed yields change events in arrival order.
//
// Receive blocks until an event is available or ctx is done. Finite feeds return io.EOF
// once exhausted.
type ChangeFeed interface {
	Receive(ctx context.Context) (*Delivery, error)
	Close(ctx context.Context) error
}
