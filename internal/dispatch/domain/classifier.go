package domain

const (
	TableCarts     = "carts"
	TableCartItems = "cart_items"
	TableOrders    = "orders"
)

// Classify maps a change event to at most one domain action.
//
//	carts/delete      -> CancelAbandonedCartEmail(before.id)
//	cart_items/create -> ScheduleAbandonedCartEmail(after.cart_id)
//	orders/create     -> SendOrderConfirmation(after.id)
//
// Every other combination, including all snapshot and update events, yields nothing.
// Snapshots re-read rows that already exist and must never trigger side effects.
// Events missing the column an action needs also yield nothing.
func Classify(event ChangeEvent) (DomainAction, bool) {
	var (
		kind    ActionKind
		subject int64
		ok      bool
	)

	switch {
	case event.Table == TableCarts && event.Operation == OperationDelete:
		kind = CancelAbandonedCartEmail
		subject, ok = event.Before.Int64("id")
	case event.Table == TableCartItems && event.Operation == OperationCreate:
		kind = ScheduleAbandonedCartEmail
		subject, ok = event.After.Int64("cart_id")
	case event.Table == TableOrders && event.Operation == OperationCreate:
		kind = SendOrderConfirmation
		subject, ok = event.After.Int64("id")
	default:
		return DomainAction{}, false
	}

	if !ok || subject <= 0 {
		return DomainAction{}, false
	}

	return DomainAction{
		Kind:           kind,
		SubjectID:      subject,
		IdempotencyKey: ChangeEventKey(event.Table, event.Operation, event.LogPosition),
		Origin:         OriginChangeFeed,
	}, true
}
