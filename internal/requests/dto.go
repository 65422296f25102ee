package requests

import (
	"github.com/google/uuid"

	"github.com/sahilverma-dev/threadcart-backend/pkg/enums"
	"github.com/sahilverma-dev/threadcart-backend/pkg/types"
)

// CreateCancelInput opens a cancel request against an undelivered order.
type CreateCancelInput struct {
	OrderID      uuid.UUID
	UserID       uuid.UUID
	Reason       string
	RefundMethod *enums.RefundMethod
	ActorRole    string
}

// CreateReturnInput opens a return request against a delivered order. The
// resolution decides whether money moves: a refund needs a RefundMethod
// (and bank details when paid by bank transfer), a replacement needs
// neither.
type CreateReturnInput struct {
	OrderID      uuid.UUID
	UserID       uuid.UUID
	Reason       string
	ItemIDs      []uuid.UUID
	Resolution   enums.ReturnResolution
	RefundMethod enums.RefundMethod
	BankDetails  *types.BankDetails
	Comment      *string
	Images       []string
	ActorRole    string
}

// ResolveInput is an admin verdict on an open request. RefundMethod may
// override the requested channel on cancel approvals only.
type ResolveInput struct {
	RequestID    uuid.UUID
	RequestType  enums.RequestType
	Decision     enums.RequestDecision
	AdminNote    *string
	RefundMethod *enums.RefundMethod
	ActorUserID  uuid.UUID
	ActorRole    string
}

// ResolveOutcome reports where a resolution landed the request and, when a
// refund was issued, where the money went.
type ResolveOutcome struct {
	RequestID           uuid.UUID           `json:"request_id"`
	RequestType         enums.RequestType   `json:"request_type"`
	Status              enums.RequestStatus `json:"status"`
	RefundStatus        enums.RefundStatus  `json:"refund_status"`
	RefundAmountCents   int64               `json:"refund_amount_cents"`
	GatewayRefundID     *string             `json:"gateway_refund_id,omitempty"`
	WalletTransactionID *uuid.UUID          `json:"wallet_transaction_id,omitempty"`
}

// RequestEvent is the outbox payload for request lifecycle events.
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
