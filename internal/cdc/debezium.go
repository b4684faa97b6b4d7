// Package cdc adapts database change logs to the dispatcher's ChangeFeed. It decodes
// Debezium change envelopes and reads them from Pub/Sub subscriptions, Kafka topics or
// JSON-lines files.
package cdc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	dispatchDomain "github.com/allisson/storefront/internal/dispatch/domain"
)

// ErrTombstone is returned for empty messages that carry no change, such as the Kafka
// tombstone Debezium emits after a delete.
var ErrTombstone = errors.New("tombstone message")

type envelope struct {
	Before json.RawMessage `json:"before"`
	After  json.RawMessage `json:"after"`
	Source struct {
		Table string      `json:"table"`
		LSN   json.Number `json:"lsn"`
		File  string      `json:"file"`
		Pos   json.Number `json:"pos"`
	} `json:"source"`
	Op string `json:"op"`
}

type wrapped struct {
	Payload json.RawMessage `json:"payload"`
}

var operations = map[string]dispatchDomain.Operation{
	"c": dispatchDomain.OperationCreate,
	"u": dispatchDomain.OperationUpdate,
	"d": dispatchDomain.OperationDelete,
	"r": dispatchDomain.OperationSnapshot,
	"t": dispatchDomain.OperationTruncate,
}

// DecodeEnvelope decodes one Debezium change message. Both the schema/payload form and the
// bare payload form are accepted. The log position is the Postgres LSN. For MySQL, which
// restarts offsets in every binlog file, it is the binlog file sequence number in the high
// 32 bits and the offset within the file in the low 32 bits.
func DecodeEnvelope(data []byte) (dispatchDomain.ChangeEvent, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return dispatchDomain.ChangeEvent{}, ErrTombstone
	}

	var w wrapped
	if err := json.Unmarshal(data, &w); err != nil {
		return dispatchDomain.ChangeEvent{}, fmt.Errorf("%w: %w", dispatchDomain.ErrInvalidChangeEvent, err)
	}
	if len(w.Payload) > 0 {
		if bytes.Equal(bytes.TrimSpace(w.Payload), []byte("null")) {
			return dispatchDomain.ChangeEvent{}, ErrTombstone
		}
		data = w.Payload
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return dispatchDomain.ChangeEvent{}, fmt.Errorf("%w: %w", dispatchDomain.ErrInvalidChangeEvent, err)
	}

	op, ok := operations[env.Op]
	if !ok {
		return dispatchDomain.ChangeEvent{}, fmt.Errorf(
			"%w: unknown operation %q", dispatchDomain.ErrInvalidChangeEvent, env.Op,
		)
	}
	if env.Source.Table == "" {
		return dispatchDomain.ChangeEvent{}, fmt.Errorf("%w: missing source table", dispatchDomain.ErrInvalidChangeEvent)
	}

	position, err := logPosition(env.Source.LSN, env.Source.File, env.Source.Pos)
	if err != nil {
		return dispatchDomain.ChangeEvent{}, err
	}

	before, err := decodeRow(env.Before)
	if err != nil {
		return dispatchDomain.ChangeEvent{}, err
	}
	after, err := decodeRow(env.After)
	if err != nil {
		return dispatchDomain.ChangeEvent{}, err
	}

	return dispatchDomain.ChangeEvent{
		Table:       env.Source.Table,
		Operation:   op,
		Before:      before,
		After:       after,
		LogPosition: position,
	}, nil
}

func logPosition(lsn json.Number, file string, pos json.Number) (int64, error) {
	if lsn != "" {
		position, err := lsn.Int64()
		if err != nil || position < 0 {
			return 0, fmt.Errorf("%w: invalid log position %q", dispatchDomain.ErrInvalidChangeEvent, lsn)
		}
		return position, nil
	}
	if pos == "" {
		return 0, fmt.Errorf("%w: missing log position", dispatchDomain.ErrInvalidChangeEvent)
	}

	offset, err := strconv.ParseUint(pos.String(), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid binlog position %q", dispatchDomain.ErrInvalidChangeEvent, pos)
	}
	if file == "" {
		return int64(offset), nil
	}

	sequence, err := binlogSequence(file)
	if err != nil {
		return 0, err
	}
	return sequence<<32 | int64(offset), nil
}

// binlogSequence parses the numeric extension of a binlog file name such as
// "mysql-bin.000003".
func binlogSequence(file string) (int64, error) {
	dot := strings.LastIndexByte(file, '.')
	sequence, err := strconv.ParseUint(file[dot+1:], 10, 31)
	if dot < 0 || err != nil {
		return 0, fmt.Errorf("%w: invalid binlog file %q", dispatchDomain.ErrInvalidChangeEvent, file)
	}
	return int64(sequence), nil
}

func decodeRow(raw json.RawMessage) (dispatchDomain.Row, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var row dispatchDomain.Row
	if err := decoder.Decode(&row); err != nil {
		return nil, fmt.Errorf("%w: %w", dispatchDomain.ErrInvalidChangeEvent, err)
	}
	return row, nil
}
