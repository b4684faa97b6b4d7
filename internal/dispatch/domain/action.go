// Package domain defines the core dispatch entities: domain actions derived from
// storefront changes, the change events they are classified from, and the records
// kept by the idempotency ledger and dead-letter store.
package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// ActionKind identifies a side effect that must be delivered to an external provider.
type ActionKind string

const (
	ScheduleAbandonedCartEmail ActionKind = "schedule_abandoned_cart_email"
	CancelAbandonedCartEmail   ActionKind = "cancel_abandoned_cart_email"
	SendOrderConfirmation      ActionKind = "send_order_confirmation"
	FulfillOrder               ActionKind = "fulfill_order"
)

// ActionKinds lists every kind the dispatcher knows how to deliver.
var ActionKinds = []ActionKind{
	ScheduleAbandonedCartEmail,
	CancelAbandonedCartEmail,
	SendOrderConfirmation,
	FulfillOrder,
}

// Validate returns ErrUnknownActionKind for kinds outside ActionKinds.
func (k ActionKind) Validate() error {
	for _, known := range ActionKinds {
		if k == known {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownActionKind, string(k))
}

// Origin records where an action was derived from.
type Origin string

const (
	// OriginChangeFeed marks actions classified from a change event.
	OriginChangeFeed Origin = "change_feed"
	// OriginInline marks actions emitted directly after a committed transaction.
	OriginInline Origin = "inline"
)

// DomainAction is a side effect bound to one storefront entity.
//
// The idempotency key identifies the trigger (a change event or a transaction) and is
// kept for tracing. Completion is tracked per (Kind, SubjectID) so that the same effect
// reached through different triggers is delivered once.
type DomainAction struct {
	Kind           ActionKind
	SubjectID      int64
	IdempotencyKey string
	Origin         Origin
}

// Key returns the (kind, subject) pair the ledger tracks.
func (a DomainAction) Key() ActionKey {
	return ActionKey{Kind: a.Kind, SubjectID: a.SubjectID}
}

// Validate checks the action can be scheduled.
func (a DomainAction) Validate() error {
	if err := a.Kind.Validate(); err != nil {
		return err
	}
	if a.SubjectID <= 0 {
		return fmt.Errorf("%w: subject id must be positive, got %d", ErrInvalidAction, a.SubjectID)
	}
	if a.IdempotencyKey == "" {
		return fmt.Errorf("%w: idempotency key is required", ErrInvalidAction)
	}
	return nil
}

// ActionKey is the unit of deduplication.
type ActionKey struct {
	Kind      ActionKind
	SubjectID int64
}

func (k ActionKey) String() string {
	return fmt.Sprintf("%s:%d", k.Kind, k.SubjectID)
}

// ChangeEventKey builds the idempotency key of an action classified from a change event.
func ChangeEventKey(table string, op Operation, logPosition int64) string {
	return fmt.Sprintf("%s:%s:%d", table, op, logPosition)
}

// InlineKey builds the idempotency key of an action emitted after a transaction.
func InlineKey(kind ActionKind, subjectID int64, txID uuid.UUID) string {
	return fmt.Sprintf("%s:%d:%s", kind, subjectID, txID)
}

// NewInlineAction builds an action emitted right after the transaction txID committed.
func NewInlineAction(kind ActionKind, subjectID int64, txID uuid.UUID) DomainAction {
	return DomainAction{
		Kind:           kind,
		SubjectID:      subjectID,
		IdempotencyKey: InlineKey(kind, subjectID, txID),
		Origin:         OriginInline,
	}
}
