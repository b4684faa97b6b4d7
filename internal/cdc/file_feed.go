package cdc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	dispatchDomain "github.com/allisson/storefront/internal/dispatch/domain"
)

const maxLineSize = 10 * 1024 * 1024

// FileFeed replays Debezium messages stored one per line. Blank lines and tombstones are
// skipped. Receive returns io.EOF once the input is exhausted.
type FileFeed struct {
	scanner *bufio.Scanner
	closer  io.Closer
	line    int
}

// OpenFileFeed opens path for replay.
func OpenFileFeed(path string) (*FileFeed, error) {
	file, err := os.Open(path) //nolint:gosec // operator supplied replay file
	if err != nil {
		return nil, fmt.Errorf("failed to open replay file: %w", err)
	}

	feed := NewFileFeed(file)
	feed.closer = file
	return feed, nil
}

// NewFileFeed reads messages from r.
func NewFileFeed(r io.Reader) *FileFeed {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	return &FileFeed{scanner: scanner}
}

// Receive decodes the next message. A line that cannot be decoded stops the replay with an
// error naming the line.
func (f *FileFeed) Receive(ctx context.Context) (*dispatchDomain.Delivery, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if !f.scanner.Scan() {
			if err := f.scanner.Err(); err != nil {
				return nil, fmt.Errorf("failed to read replay file: %w", err)
			}
			return nil, io.EOF
		}
		f.line++

		event, err := DecodeEnvelope(f.scanner.Bytes())
		if errors.Is(err, ErrTombstone) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", f.line, err)
		}

		return &dispatchDomain.Delivery{
			Event: event,
			Ack:   func() error { return nil },
		}, nil
	}
}

// Close closes the underlying file, if any.
func (f *FileFeed) Close(context.Context) error {
	if f.closer == nil {
		return nil
	}
	return f.closer.Close()
}
