package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"

	dispatchDomain "github.com/allisson/storefront/internal/dispatch/domain"
	apperrors "github.com/allisson/storefront/internal/errors"
	"github.com/allisson/storefront/internal/metrics"
)

// routerUseCase implements RouterUseCase.
type routerUseCase struct {
	submitter Submitter
	metrics   metrics.BusinessMetrics
	logger    *slog.Logger
}

// Route classifies event and submits the derived action. Events that map to no action are
// ignored. A submission error means the event was not accepted and must not be acknowledged.
func (r *routerUseCase) Route(ctx context.Context, event dispatchDomain.ChangeEvent) (bool, error) {
	return r.route(ctx, event, nil)
}

func (r *routerUseCase) route(ctx context.Context, event dispatchDomain.ChangeEvent, settled func()) (bool, error) {
	action, ok := dispatchDomain.Classify(event)
	if !ok {
		r.metrics.RecordOperation(ctx, "cdc", string(event.Operation), "ignored")
		return false, nil
	}

	if err := r.submitter.SubmitTracked(ctx, action, settled); err != nil {
		r.metrics.RecordOperation(ctx, "cdc", string(event.Operation), "error")
		return false, apperrors.Wrap(err, "failed to submit action")
	}

	r.metrics.RecordOperation(ctx, "cdc", string(event.Operation), "routed")
	r.logger.Debug("change event routed",
		slog.String("table", event.Table),
		slog.String("operation", string(event.Operation)),
		slog.Int64("log_position", event.LogPosition),
		slog.String("kind", string(action.Kind)),
		slog.Int64("subject_id", action.SubjectID),
	)

	return true, nil
}

// Run reads deliveries from feed in order. A delivery is acknowledged once its action is
// delivered or dead-lettered, or right away when it maps to no action. Deliveries whose
// action is abandoned at shutdown stay unacknowledged and are redelivered. Run returns nil
// when ctx is done or the feed is exhausted.
func (r *routerUseCase) Run(ctx context.Context, feed dispatchDomain.ChangeFeed) error {
	r.logger.Info("change feed router started")
	defer r.logger.Info("change feed router stopped")

	for {
		delivery, err := feed.Receive(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return apperrors.Wrap(err, "failed to receive change event")
		}

		ack := func() { r.ack(delivery) }
		routed, err := r.route(ctx, delivery.Event, ack)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if !routed {
			ack()
		}
	}
}

func (r *routerUseCase) ack(delivery *dispatchDomain.Delivery) {
	if delivery.Ack == nil {
		return
	}
	if err := delivery.Ack(); err != nil {
		r.logger.Warn("failed to acknowledge change event",
			slog.String("table", delivery.Event.Table),
			slog.Int64("log_position", delivery.Event.LogPosition),
			slog.Any("error", err),
		)
	}
}

// NewRouterUseCase creates a RouterUseCase that submits to submitter.
func NewRouterUseCase(submitter Submitter, m metrics.BusinessMetrics, logger *slog.Logger) RouterUseCase {
	return &routerUseCase{
		submitter: submitter,
		metrics:   m,
		logger:    logger,
	}
}
