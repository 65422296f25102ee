package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder             OutboxAggregateType = "order"
	AggregateCancelRequest     OutboxAggregateType = "cancel_request"
	AggregateReturnRequest     OutboxAggregateType = "return_request"
	AggregateWalletTransaction OutboxAggregateType = "wallet_transaction"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateCancelRequest,
	AggregateReturnRequest,
	AggregateWalletTransaction,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderCreated         OutboxEventType = "order_created"
	EventOrderStatusChanged   OutboxEventType = "order_status_changed"
	EventOrderPaymentVerified OutboxEventType = "order_payment_verified"
	EventCancelRequested      OutboxEventType = "cancel_requested"
	EventReturnRequested      OutboxEventType = "return_requested"
	EventRequestResolved      OutboxEventType = "request_resolved"
	EventRefundCompleted      OutboxEventType = "refund_completed"
	EventRefundFailed         OutboxEventType = "refund_failed"
	EventWalletCredited       OutboxEventType = "wallet_credited"
	EventWalletDebited        OutboxEventType = "wallet_debited"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderStatusChanged,
	EventOrderPaymentVerified,
	EventCancelRequested,
	EventReturnRequested,
	EventRequestResolved,
	EventRefundCompleted,
	EventRefundFailed,
	EventWalletCredited,
	EventWalletDebited,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
