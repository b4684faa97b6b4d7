package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	dispatchDomain "github.com/allisson/storefront/internal/dispatch/domain"
	dispatchUseCase "github.com/allisson/storefront/internal/dispatch/usecase"
)

// Dispatcher is the part of the scheduler a replay drives.
type Dispatcher interface {
	Run(ctx context.Context) error
	Drain(ctx context.Context) error
	Pending() int
}

// countingFeed counts the deliveries handed to the router.
type countingFeed struct {
	dispatchDomain.ChangeFeed
	received atomic.Int64
}

func (f *countingFeed) Receive(ctx context.Context) (*dispatchDomain.Delivery, error) {
	delivery, err := f.ChangeFeed.Receive(ctx)
	if err == nil {
		f.received.Add(1)
	}
	return delivery, err
}

// RunReplayCDC routes every change event in feed and waits until the resulting actions
// are delivered or dead-lettered. Actions already in the ledger are skipped, so a replay
// of an already-processed log performs no provider calls. timeout bounds the wait for
// pending actions; zero waits indefinitely.
func RunReplayCDC(
	ctx context.Context,
	dispatcher Dispatcher,
	routerUseCase dispatchUseCase.RouterUseCase,
	feed dispatchDomain.ChangeFeed,
	logger *slog.Logger,
	writer io.Writer,
	timeout time.Duration,
	format string,
) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	runErr := make(chan error, 1)
	go func() {
		runErr <- dispatcher.Run(runCtx)
	}()

	counted := &countingFeed{ChangeFeed: feed}
	if err := routerUseCase.Run(runCtx, counted); err != nil {
		cancel()
		<-runErr
		return fmt.Errorf("failed to replay change events: %w", err)
	}

	drainCtx := ctx
	if timeout > 0 {
		var drainCancel context.CancelFunc
		drainCtx, drainCancel = context.WithTimeout(ctx, timeout)
		defer drainCancel()
	}
	drainErr := dispatcher.Drain(drainCtx)
	pending := dispatcher.Pending()

	cancel()
	if err := <-runErr; err != nil {
		return fmt.Errorf("dispatch scheduler error: %w", err)
	}

	events := counted.received.Load()
	logger.Info("replay completed",
		slog.Int64("events", events),
		slog.Int("pending", pending),
	)

	if format == "json" {
		if err := writeJSON(writer, map[string]any{
			"events":  events,
			"pending": pending,
		}); err != nil {
			return err
		}
	} else {
		_, _ = fmt.Fprintf(writer, "Replayed %d change event(s), %d action(s) still pending\n", events, pending)
	}

	if drainErr != nil {
		if errors.Is(drainErr, context.DeadlineExceeded) {
			return fmt.Errorf("timed out waiting for %d pending action(s)", pending)
		}
		return drainErr
	}

	return nil
}
