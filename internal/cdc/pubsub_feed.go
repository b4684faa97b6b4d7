package cdc

import (
	"context"
	"errors"
	"log/slog"

	"gocloud.dev/pubsub"

	dispatchDomain "github.com/allisson/storefront/internal/dispatch/domain"
	apperrors "github.com/allisson/storefront/internal/errors"
)

// PubSubFeed reads change events from a Go CDK subscription, for example the topic a
// Debezium Server sink publishes to.
type PubSubFeed struct {
	subscription *pubsub.Subscription
	logger       *slog.Logger
}

// OpenPubSubFeed opens the subscription at url (gcppubsub://, awssqs://, kafka://, mem://
// and other registered schemes).
func OpenPubSubFeed(ctx context.Context, url string, logger *slog.Logger) (*PubSubFeed, error) {
	subscription, err := pubsub.OpenSubscription(ctx, url)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to open change feed subscription")
	}

	return NewPubSubFeed(subscription, logger), nil
}

// NewPubSubFeed wraps an open subscription.
func NewPubSubFeed(subscription *pubsub.Subscription, logger *slog.Logger) *PubSubFeed {
	return &PubSubFeed{
		subscription: subscription,
		logger:       logger,
	}
}

// Receive returns the next decodable change event. Messages that cannot be decoded are
// logged and acknowledged so they do not block the feed.
func (f *PubSubFeed) Receive(ctx context.Context) (*dispatchDomain.Delivery, error) {
	for {
		msg, err := f.subscription.Receive(ctx)
		if err != nil {
			return nil, err
		}

		event, err := DecodeEnvelope(msg.Body)
		if err != nil {
			if !errors.Is(err, ErrTombstone) {
				f.logger.Warn("skipping undecodable change event",
					slog.String("logged_id", msg.LoggableID),
					slog.Any("error", err),
				)
			}
			msg.Ack()
			continue
		}

		return &dispatchDomain.Delivery{
			Event: event,
			Ack: func() error {
				msg.Ack()
				return nil
			},
		}, nil
	}
}

// Close shuts the subscription down, flushing pending acknowledgements.
func (f *PubSubFeed) Close(ctx context.Context) error {
	return f.subscription.Shutdown(ctx)
}
