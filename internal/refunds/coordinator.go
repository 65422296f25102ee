package refunds

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sahilverma-dev/threadcart-backend/internal/wallet"
	"github.com/sahilverma-dev/threadcart-backend/pkg/db/models"
	"github.com/sahilverma-dev/threadcart-backend/pkg/enums"
	pkgerrors "github.com/sahilverma-dev/threadcart-backend/pkg/errors"
	"github.com/sahilverma-dev/threadcart-backend/pkg/metrics"
	"github.com/sahilverma-dev/threadcart-backend/pkg/razorpay"
	"github.com/sahilverma-dev/threadcart-backend/pkg/types"
)

const defaultGatewayTimeout = 20 * time.Second

// WalletLedger posts refund credits to the customer's wallet.
type WalletLedger interface {
	Credit(ctx context.Context, input wallet.EntryInput) (*models.WalletTransaction, error)
}

// Gateway returns funds through the payment provider. The receipt is the
// provider-side idempotency handle for the refund.
type Gateway interface {
	Refund(ctx context.Context, paymentID string, amountCents int64, receipt string, notes map[string]string) (*razorpay.GatewayRefund, error)
}

// IssueInput describes one refund to pay out. The caller owns the
// refund-status claim; Issue only moves money.
type IssueInput struct {
	RequestID   uuid.UUID
	RequestType enums.RequestType
	OrderID     uuid.UUID
	UserID      uuid.UUID
	Method      enums.RefundMethod
	AmountCents int64
	PaymentRef  *string
	BankDetails *types.BankDetails
	ActorUserID uuid.UUID
	ActorRole   string
}

// Result reports where the money went.
type Result struct {
	GatewayRefundID     *string
	WalletTransactionID *uuid.UUID
}

// Coordinator dispatches refunds to the wallet ledger or the payment gateway.
type Coordinator interface {
	Issue(ctx context.Context, input IssueInput) (*Result, error)
}

type coordinator struct {
	wallet         WalletLedger
	gateway        Gateway
	metrics        *metrics.RefundMetrics
	gatewayTimeout time.Duration
}

// NewCoordinator wires a refund coordinator. Metrics may be nil.
func NewCoordinator(walletLedger WalletLedger, gateway Gateway, refundMetrics *metrics.RefundMetrics, gatewayTimeout time.Duration) (Coordinator, error) {
	if walletLedger == nil {
		return nil, fmt.Errorf("wallet ledger required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if gatewayTimeout <= 0 {
		gatewayTimeout = defaultGatewayTimeout
	}
	return &coordinator{
		wallet:         walletLedger,
		gateway:        gateway,
		metrics:        refundMetrics,
		gatewayTimeout: gatewayTimeout,
	}, nil
}

func (c *coordinator) Issue(ctx context.Context, input IssueInput) (*Result, error) {
	if input.RequestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid refund method")
	}

	started := time.Now()
	result, err := c.dispatch(ctx, input)
	c.metrics.ObserveDuration(input.Method.String(), time.Since(started))
	if err != nil {
		c.metrics.IncFailure(input.Method.String())
		return nil, err
	}
	c.metrics.IncSuccess(input.Method.String())
	return result, nil
}

func (c *coordinator) dispatch(ctx context.Context, input IssueInput) (*Result, error) {
	if !input.Method.RequiresGateway() {
		entry, err := c.wallet.Credit(ctx, wallet.EntryInput{
			UserID:      input.UserID,
			AmountCents: input.AmountCents,
			Description: fmt.Sprintf("refund for %s request %s", input.RequestType, input.RequestID),
			ReferenceID: "refund-" + input.RequestID.String(),
			ActorUserID: input.ActorUserID,
			ActorRole:   input.ActorRole,
		})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeRefundFailed, err, "wallet refund credit")
		}
		id := entry.ID
		return &Result{WalletTransactionID: &id}, nil
	}

	if input.PaymentRef == nil || *input.PaymentRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeRefundFailed, "no captured payment to refund against")
	}
	if input.Method == enums.RefundMethodBank {
		if input.BankDetails == nil || !input.BankDetails.Complete() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "bank details incomplete")
		}
	}

	gwCtx, cancel := context.WithTimeout(ctx, c.gatewayTimeout)
	defer cancel()

	refund, err := c.gateway.Refund(gwCtx, *input.PaymentRef, input.AmountCents, "refund-"+input.RequestID.String(), c.refundNotes(input))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeRefundFailed, err, "gateway refund")
	}
	id := refund.ID
	return &Result{GatewayRefundID: &id}, nil
}

func (c *coordinator) refundNotes(input IssueInput) map[string]string {
	notes := map[string]string{
		"request_id":   input.RequestID.String(),
		"request_type": input.RequestType.String(),
		"order_id":     input.OrderID.String(),
	}
	if input.Method == enums.RefundMethodBank && input.BankDetails != nil {
		notes["payout_account"] = maskAccount(input.BankDetails.AccountNumber)
		notes["payout_ifsc"] = input.BankDetails.IFSC
	}
	return notes
}

func maskAccount(number string) string {
	trimmed := strings.TrimSpace(number)
	if len(trimmed) <= 4 {
		return trimmed
	}
	return strings.Repeat("*", len(trimmed)-4) + trimmed[len(trimmed)-4:]
}
