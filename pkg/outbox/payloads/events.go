package payloads

import (
	"github.com/sahilverma-dev/threadcart-backend/pkg/enums"
	"github.com/google/uuid"
)

// OrderStatusEvent is the wire payload for order lifecycle events. Creation
// events omit from_status; transitions carry both sides.
type OrderStatusEvent struct {
	OrderID     uuid.UUID          `json:"order_id"`
	OrderNumber int64              `json:"order_number"`
	UserID      uuid.UUID          `json:"user_id"`
	FromStatus  *enums.OrderStatus `json:"from_status,omitempty"`
	ToStatus    enums.OrderStatus  `json:"to_status"`
	TotalCents  int64              `json:"total_cents"`
}

// RequestEvent is the wire payload for cancel/return request events,
// including refund completion and failure.
type RequestEvent struct {
	RequestID         uuid.UUID           `json:"request_id"`
	RequestType       enums.RequestType   `json:"request_type"`
	OrderID           uuid.UUID           `json:"order_id"`
	UserID            uuid.UUID           `json:"user_id"`
	Status            enums.RequestStatus `json:"status"`
	RefundStatus      enums.RefundStatus  `json:"refund_status"`
	RefundMethod      enums.RefundMethod  `json:"refund_method"`
	RefundAmountCents int64               `json:"refund_amount_cents"`
}

// WalletEntryEvent is the wire payload for wallet ledger entries.
type WalletEntryEvent struct {
	TransactionID     uuid.UUID                   `json:"transaction_id"`
	AccountID         uuid.UUID                   `json:"account_id"`
	UserID            uuid.UUID                   `json:"user_id"`
	Type              enums.WalletTransactionType `json:"type"`
	AmountCents       int64                       `json:"amount_cents"`
	BalanceAfterCents int64                       `json:"balance_after_cents"`
	ReferenceID       string                      `json:"reference_id"`
}
