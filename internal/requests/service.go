package requests

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/sahilverma-dev/threadcart-backend/internal/orders"
	"github.com/sahilverma-dev/threadcart-backend/internal/refunds"
	"github.com/sahilverma-dev/threadcart-backend/pkg/db/models"
	dbtypes "github.com/sahilverma-dev/threadcart-backend/pkg/db/types"
	"github.com/sahilverma-dev/threadcart-backend/pkg/enums"
	pkgerrors "github.com/sahilverma-dev/threadcart-backend/pkg/errors"
	"github.com/sahilverma-dev/threadcart-backend/pkg/logger"
	"github.com/sahilverma-dev/threadcart-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines the cancel/return request workflow.
type Service interface {
	CreateCancelRequest(ctx context.Context, input CreateCancelInput) (*models.CancelRequest, error)
	CreateReturnRequest(ctx context.Context, input CreateReturnInput) (*models.ReturnRequest, error)
	Resolve(ctx context.Context, input ResolveInput) (*ResolveOutcome, error)
}

type service struct {
	repo    Repository
	orders  orders.Repository
	tx      txRunner
	outbox  outboxPublisher
	refunds refunds.Coordinator
	logg    *logger.Logger
}

// NewService builds a request workflow service with the required dependencies.
func NewService(repo Repository, ordersRepo orders.Repository, tx txRunner, outbox outboxPublisher, coordinator refunds.Coordinator, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("requests repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if coordinator == nil {
		return nil, fmt.Errorf("refund coordinator required")
	}
	return &service{
		repo:    repo,
		orders:  ordersRepo,
		tx:      tx,
		outbox:  outbox,
		refunds: coordinator,
		logg:    logg,
	}, nil
}

func (s *service) CreateCancelRequest(ctx context.Context, input CreateCancelInput) (*models.CancelRequest, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cancellation reason required")
	}

	method := enums.RefundMethodWallet
	if input.RefundMethod != nil {
		method = *input.RefundMethod
	}
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid refund method")
	}
	if method == enums.RefundMethodBank {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bank refunds are only available on returns")
	}

	var req *models.CancelRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.orders.WithTx(tx)
		repo := s.repo.WithTx(tx)

		order, err := s.loadOwnedOrder(ctx, ordersRepo, input.OrderID, input.UserID)
		if err != nil {
			return err
		}
		if !order.Status.IsCancellable() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be cancelled").
				WithDetails(map[string]any{"status": order.Status})
		}
		if method == enums.RefundMethodSource && (order.PaymentRef == nil || *order.PaymentRef == "") {
			return pkgerrors.New(pkgerrors.CodeValidation, "no gateway payment to refund to")
		}

		// Unpaid orders cancel without a refund.
		var amount int64
		if order.PaymentVerified {
			amount = order.TotalCents
		}

		prior := order.Status
		applied, err := ordersRepo.UpdateOrderStatusCAS(ctx, order.ID, prior, enums.OrderStatusCancelRequested, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "flag order for cancellation")
		}
		if !applied {
			return pkgerrors.New(pkgerrors.CodeConflict, "order was updated concurrently")
		}

		req = &models.CancelRequest{
			OrderID:           order.ID,
			UserID:            input.UserID,
			Reason:            input.Reason,
			Status:            enums.RequestStatusPending,
			PriorStatus:       prior,
			RefundMethod:      method,
			RefundAmountCents: amount,
			RefundStatus:      enums.RefundStatusNone,
		}
		if err := repo.CreateCancelRequest(ctx, req); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cancel request")
		}

		if err := ordersRepo.AppendActivity(ctx, &models.OrderActivity{
			OrderID:     order.ID,
			FromStatus:  &prior,
			ToStatus:    enums.OrderStatusCancelRequested,
			ActorUserID: &input.UserID,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record order activity")
		}

		return s.emitRequestEvent(ctx, tx, enums.EventCancelRequested, enums.AggregateCancelRequest, input.UserID, input.ActorRole, RequestEvent{
			RequestID:         req.ID,
			RequestType:       enums.RequestTypeCancel,
			OrderID:           req.OrderID,
			UserID:            req.UserID,
			Status:            req.Status,
			RefundStatus:      req.RefundStatus,
			RefundMethod:      req.RefundMethod,
			RefundAmountCents: req.RefundAmountCents,
		})
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (s *service) CreateReturnRequest(ctx context.Context, input CreateReturnInput) (*models.ReturnRequest, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return reason required")
	}
	if len(input.ItemIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return requires at least one item")
	}
	resolution := input.Resolution
	if resolution == "" {
		resolution = enums.ReturnResolutionRefund
	}
	if !resolution.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid return resolution")
	}
	method := input.RefundMethod
	if resolution == enums.ReturnResolutionRefund {
		if !method.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid refund method")
		}
		if method == enums.RefundMethodBank {
			if input.BankDetails == nil || !input.BankDetails.Complete() {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "bank details incomplete")
			}
		}
	} else {
		// Replacements move no money; the stored method is inert.
		method = enums.RefundMethodWallet
	}

	var req *models.ReturnRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.orders.WithTx(tx)
		repo := s.repo.WithTx(tx)

		order, err := s.loadOwnedOrder(ctx, ordersRepo, input.OrderID, input.UserID)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusDelivered {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only delivered orders can be returned").
				WithDetails(map[string]any{"status": order.Status})
		}
		if resolution == enums.ReturnResolutionRefund && method == enums.RefundMethodSource &&
			(order.PaymentRef == nil || *order.PaymentRef == "") {
			return pkgerrors.New(pkgerrors.CodeValidation, "no gateway payment to refund to")
		}

		amount, err := returnedAmount(order.Items, input.ItemIDs)
		if err != nil {
			return err
		}
		if resolution != enums.ReturnResolutionRefund {
			amount = 0
		}

		applied, err := ordersRepo.UpdateOrderStatusCAS(ctx, order.ID, enums.OrderStatusDelivered, enums.OrderStatusReturnRequested, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "flag order for return")
		}
		if !applied {
			return pkgerrors.New(pkgerrors.CodeConflict, "order was updated concurrently")
		}

		req = &models.ReturnRequest{
			OrderID:           order.ID,
			UserID:            input.UserID,
			Reason:            input.Reason,
			Status:            enums.RequestStatusPending,
			PriorStatus:       enums.OrderStatusDelivered,
			ItemIDs:           dbtypes.UUIDArray(input.ItemIDs),
			Resolution:        resolution,
			Comment:           input.Comment,
			Images:            pq.StringArray(input.Images),
			RefundMethod:      method,
			RefundAmountCents: amount,
			RefundStatus:      enums.RefundStatusNone,
		}
		if resolution == enums.ReturnResolutionRefund && method == enums.RefundMethodBank {
			req.BankDetails = input.BankDetails
		}
		if err := repo.CreateReturnRequest(ctx, req); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create return request")
		}

		from := enums.OrderStatusDelivered
		if err := ordersRepo.AppendActivity(ctx, &models.OrderActivity{
			OrderID:     order.ID,
			FromStatus:  &from,
			ToStatus:    enums.OrderStatusReturnRequested,
			ActorUserID: &input.UserID,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record order activity")
		}

		return s.emitRequestEvent(ctx, tx, enums.EventReturnRequested, enums.AggregateReturnRequest, input.UserID, input.ActorRole, RequestEvent{
			RequestID:         req.ID,
			RequestType:       enums.RequestTypeReturn,
			OrderID:           req.OrderID,
			UserID:            req.UserID,
			Status:            req.Status,
			RefundStatus:      req.RefundStatus,
			RefundMethod:      req.RefundMethod,
			RefundAmountCents: req.RefundAmountCents,
		})
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (s *service) Resolve(ctx context.Context, input ResolveInput) (*ResolveOutcome, error) {
	if input.RequestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.RequestType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid request type")
	}
	if !input.Decision.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid request decision")
	}

	if input.RequestType == enums.RequestTypeCancel {
		return s.resolveCancel(ctx, input)
	}
	return s.resolveReturn(ctx, input)
}

func (s *service) resolveCancel(ctx context.Context, input ResolveInput) (*ResolveOutcome, error) {
	req, err := s.repo.FindCancelRequest(ctx, input.RequestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cancel request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cancel request")
	}

	switch input.Decision {
	case enums.DecisionApprove:
		return s.approveCancel(ctx, input, req)
	case enums.DecisionReject:
		return s.rejectCancel(ctx, input, req)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cancel requests resolve with approve or reject")
	}
}

// approveCancel refunds and completes in one admin action. The refund claim
// and the gateway call both happen before the finalizing transaction, so no
// lock is held while money moves.
func (s *service) approveCancel(ctx context.Context, input ResolveInput, req *models.CancelRequest) (*ResolveOutcome, error) {
	if req.Status != enums.RequestStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "request already resolved")
	}

	method := req.RefundMethod
	if input.RefundMethod != nil {
		method = *input.RefundMethod
		if !method.IsValid() || method == enums.RefundMethodBank {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid refund method for cancellation")
		}
	}

	order, err := s.orders.FindOrder(ctx, req.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	var result *refunds.Result
	if req.RefundAmountCents > 0 {
		claimed, err := s.repo.ClaimCancelRefund(ctx, req.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim refund")
		}
		if !claimed {
			// A prior approval may have paid out and then lost the finalize
			// step. A still-pending request with a pending refund is that
			// stranded state; resume it instead of refusing forever.
			latest, err := s.repo.FindCancelRequest(ctx, req.ID)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload cancel request")
			}
			if latest.Status != enums.RequestStatusPending || latest.RefundStatus != enums.RefundStatusPending {
				return nil, pkgerrors.New(pkgerrors.CodeConflict, "refund already in progress")
			}
			req = latest
		}

		if req.GatewayRefundID != nil {
			// The provider already paid this one out; do not call it again.
			result = &refunds.Result{GatewayRefundID: req.GatewayRefundID}
		} else {
			result, err = s.refunds.Issue(ctx, refunds.IssueInput{
				RequestID:   req.ID,
				RequestType: enums.RequestTypeCancel,
				OrderID:     req.OrderID,
				UserID:      req.UserID,
				Method:      method,
				AmountCents: req.RefundAmountCents,
				PaymentRef:  order.PaymentRef,
				ActorUserID: input.ActorUserID,
				ActorRole:   input.ActorRole,
			})
			if err != nil {
				s.recordRefundFailure(ctx, enums.RequestTypeCancel, req.ID, req, nil, input)
				return nil, err
			}
			if result.GatewayRefundID != nil {
				if recErr := s.repo.RecordCancelGatewayRefund(ctx, req.ID, *result.GatewayRefundID); recErr != nil && s.logg != nil {
					s.logg.Error(ctx, "record gateway refund id", recErr)
				}
			}
		}
	}

	now := time.Now()
	updates := map[string]any{
		"status":        enums.RequestStatusCompleted,
		"refund_method": method,
		"admin_note":    input.AdminNote,
		"resolved_by":   input.ActorUserID,
		"resolved_at":   now,
	}
	orderUpdates := map[string]any{"cancelled_at": now}
	refundStatus := req.RefundStatus
	if req.RefundAmountCents > 0 {
		refundStatus = enums.RefundStatusCompleted
		updates["refund_status"] = refundStatus
		orderUpdates["refund_status"] = refundStatus
		if result != nil && result.GatewayRefundID != nil {
			updates["gateway_refund_id"] = *result.GatewayRefundID
		}
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ordersRepo := s.orders.WithTx(tx)

		applied, err := repo.UpdateCancelRequestCAS(ctx, req.ID, enums.RequestStatusPending, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete cancel request")
		}
		if !applied {
			return pkgerrors.New(pkgerrors.CodeConflict, "request was resolved concurrently")
		}

		if err := s.moveOrder(ctx, ordersRepo, req.OrderID, enums.OrderStatusCancelRequested, enums.OrderStatusCancelled, orderUpdates, input); err != nil {
			return err
		}

		event := RequestEvent{
			RequestID:         req.ID,
			RequestType:       enums.RequestTypeCancel,
			OrderID:           req.OrderID,
			UserID:            req.UserID,
			Status:            enums.RequestStatusCompleted,
			RefundStatus:      refundStatus,
			RefundMethod:      method,
			RefundAmountCents: req.RefundAmountCents,
		}
		if err := s.emitRequestEvent(ctx, tx, enums.EventRequestResolved, enums.AggregateCancelRequest, input.ActorUserID, input.ActorRole, event); err != nil {
			return err
		}
		if req.RefundAmountCents > 0 {
			return s.emitRequestEvent(ctx, tx, enums.EventRefundCompleted, enums.AggregateCancelRequest, input.ActorUserID, input.ActorRole, event)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	outcome := &ResolveOutcome{
		RequestID:         req.ID,
		RequestType:       enums.RequestTypeCancel,
		Status:            enums.RequestStatusCompleted,
		RefundStatus:      refundStatus,
		RefundAmountCents: req.RefundAmountCents,
	}
	if result != nil {
		outcome.GatewayRefundID = result.GatewayRefundID
		outcome.WalletTransactionID = result.WalletTransactionID
	}
	return outcome, nil
}

func (s *service) rejectCancel(ctx context.Context, input ResolveInput, req *models.CancelRequest) (*ResolveOutcome, error) {
	if req.Status != enums.RequestStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "request already resolved")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ordersRepo := s.orders.WithTx(tx)

		// The CAS also requires a claimable refund status: once an approval
		// has claimed the refund, money may be moving and the reject loses.
		applied, err := repo.RejectCancelRequestCAS(ctx, req.ID, map[string]any{
			"status":      enums.RequestStatusRejected,
			"admin_note":  input.AdminNote,
			"resolved_by": input.ActorUserID,
			"resolved_at": time.Now(),
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject cancel request")
		}
		if !applied {
			return pkgerrors.New(pkgerrors.CodeConflict, "request was resolved concurrently or a refund is in progress")
		}

		if err := s.moveOrder(ctx, ordersRepo, req.OrderID, enums.OrderStatusCancelRequested, req.PriorStatus, nil, input); err != nil {
			return err
		}

		return s.emitRequestEvent(ctx, tx, enums.EventRequestResolved, enums.AggregateCancelRequest, input.ActorUserID, input.ActorRole, RequestEvent{
			RequestID:         req.ID,
			RequestType:       enums.RequestTypeCancel,
			OrderID:           req.OrderID,
			UserID:            req.UserID,
			Status:            enums.RequestStatusRejected,
			RefundStatus:      req.RefundStatus,
			RefundMethod:      req.RefundMethod,
			RefundAmountCents: req.RefundAmountCents,
		})
	})
	if err != nil {
		return nil, err
	}

	return &ResolveOutcome{
		RequestID:         req.ID,
		RequestType:       enums.RequestTypeCancel,
		Status:            enums.RequestStatusRejected,
		RefundStatus:      req.RefundStatus,
		RefundAmountCents: req.RefundAmountCents,
	}, nil
}

func (s *service) resolveReturn(ctx context.Context, input ResolveInput) (*ResolveOutcome, error) {
	if input.RefundMethod != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund method is fixed when the return is opened")
	}

	req, err := s.repo.FindReturnRequest(ctx, input.RequestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "return request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load return request")
	}

	switch input.Decision {
	case enums.DecisionApprove:
		return s.approveReturn(ctx, input, req)
	case enums.DecisionReject:
		return s.rejectReturn(ctx, input, req)
	case enums.DecisionComplete:
		return s.completeReturn(ctx, input, req)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid request decision")
	}
}

func (s *service) approveReturn(ctx context.Context, input ResolveInput, req *models.ReturnRequest) (*ResolveOutcome, error) {
	if req.Status != enums.RequestStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "request already resolved")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ordersRepo := s.orders.WithTx(tx)

		applied, err := repo.UpdateReturnRequestCAS(ctx, req.ID, enums.RequestStatusPending, map[string]any{
			"status":     enums.RequestStatusApproved,
			"admin_note": input.AdminNote,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "approve return request")
		}
		if !applied {
			return pkgerrors.New(pkgerrors.CodeConflict, "request was resolved concurrently")
		}

		if err := s.moveOrder(ctx, ordersRepo, req.OrderID, enums.OrderStatusReturnRequested, enums.OrderStatusReturnApproved, nil, input); err != nil {
			return err
		}

		return s.emitRequestEvent(ctx, tx, enums.EventRequestResolved, enums.AggregateReturnRequest, input.ActorUserID, input.ActorRole, RequestEvent{
			RequestID:         req.ID,
			RequestType:       enums.RequestTypeReturn,
			OrderID:           req.OrderID,
			UserID:            req.UserID,
			Status:            enums.RequestStatusApproved,
			RefundStatus:      req.RefundStatus,
			RefundMethod:      req.RefundMethod,
			RefundAmountCents: req.RefundAmountCents,
		})
	})
	if err != nil {
		return nil, err
	}

	return &ResolveOutcome{
		RequestID:         req.ID,
		RequestType:       enums.RequestTypeReturn,
		Status:            enums.RequestStatusApproved,
		RefundStatus:      req.RefundStatus,
		RefundAmountCents: req.RefundAmountCents,
	}, nil
}

func (s *service) rejectReturn(ctx context.Context, input ResolveInput, req *models.ReturnRequest) (*ResolveOutcome, error) {
	if req.Status != enums.RequestStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "request already resolved")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ordersRepo := s.orders.WithTx(tx)

		applied, err := repo.RejectReturnRequestCAS(ctx, req.ID, map[string]any{
			"status":      enums.RequestStatusRejected,
			"admin_note":  input.AdminNote,
			"resolved_by": input.ActorUserID,
			"resolved_at": time.Now(),
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject return request")
		}
		if !applied {
			return pkgerrors.New(pkgerrors.CodeConflict, "request was resolved concurrently or a refund is in progress")
		}

		if err := s.moveOrder(ctx, ordersRepo, req.OrderID, enums.OrderStatusReturnRequested, req.PriorStatus, nil, input); err != nil {
			return err
		}

		return s.emitRequestEvent(ctx, tx, enums.EventRequestResolved, enums.AggregateReturnRequest, input.ActorUserID, input.ActorRole, RequestEvent{
			RequestID:         req.ID,
			RequestType:       enums.RequestTypeReturn,
			OrderID:           req.OrderID,
			UserID:            req.UserID,
			Status:            enums.RequestStatusRejected,
			RefundStatus:      req.RefundStatus,
			RefundMethod:      req.RefundMethod,
			RefundAmountCents: req.RefundAmountCents,
		})
	})
	if err != nil {
		return nil, err
	}

	return &ResolveOutcome{
		RequestID:         req.ID,
		RequestType:       enums.RequestTypeReturn,
		Status:            enums.RequestStatusRejected,
		RefundStatus:      req.RefundStatus,
		RefundAmountCents: req.RefundAmountCents,
	}, nil
}

// completeReturn pays the refund once the goods are back. Only approved
// returns may complete.
func (s *service) completeReturn(ctx context.Context, input ResolveInput, req *models.ReturnRequest) (*ResolveOutcome, error) {
	if req.Status == enums.RequestStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "return must be approved before completion")
	}
	if req.Status != enums.RequestStatusApproved {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "request already resolved")
	}

	order, err := s.orders.FindOrder(ctx, req.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	var result *refunds.Result
	if req.RefundAmountCents > 0 {
		claimed, err := s.repo.ClaimReturnRefund(ctx, req.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim refund")
		}
		if !claimed {
			// Resume a completion that paid out and then lost the finalize
			// step, same as the cancel path.
			latest, err := s.repo.FindReturnRequest(ctx, req.ID)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload return request")
			}
			if latest.Status != enums.RequestStatusApproved || latest.RefundStatus != enums.RefundStatusPending {
				return nil, pkgerrors.New(pkgerrors.CodeConflict, "refund already in progress")
			}
			req = latest
		}

		if req.GatewayRefundID != nil {
			result = &refunds.Result{GatewayRefundID: req.GatewayRefundID}
		} else {
			result, err = s.refunds.Issue(ctx, refunds.IssueInput{
				RequestID:   req.ID,
				RequestType: enums.RequestTypeReturn,
				OrderID:     req.OrderID,
				UserID:      req.UserID,
				Method:      req.RefundMethod,
				AmountCents: req.RefundAmountCents,
				PaymentRef:  order.PaymentRef,
				BankDetails: req.BankDetails,
				ActorUserID: input.ActorUserID,
				ActorRole:   input.ActorRole,
			})
			if err != nil {
				s.recordRefundFailure(ctx, enums.RequestTypeReturn, req.ID, nil, req, input)
				return nil, err
			}
			if result.GatewayRefundID != nil {
				if recErr := s.repo.RecordReturnGatewayRefund(ctx, req.ID, *result.GatewayRefundID); recErr != nil && s.logg != nil {
					s.logg.Error(ctx, "record gateway refund id", recErr)
				}
			}
		}
	}

	now := time.Now()
	updates := map[string]any{
		"status":      enums.RequestStatusCompleted,
		"admin_note":  input.AdminNote,
		"resolved_by": input.ActorUserID,
		"resolved_at": now,
	}
	orderUpdates := map[string]any{}
	refundStatus := req.RefundStatus
	if req.RefundAmountCents > 0 {
		refundStatus = enums.RefundStatusCompleted
		updates["refund_status"] = refundStatus
		orderUpdates["refund_status"] = refundStatus
		if result != nil && result.GatewayRefundID != nil {
			updates["gateway_refund_id"] = *result.GatewayRefundID
		}
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ordersRepo := s.orders.WithTx(tx)

		applied, err := repo.UpdateReturnRequestCAS(ctx, req.ID, enums.RequestStatusApproved, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete return request")
		}
		if !applied {
			return pkgerrors.New(pkgerrors.CodeConflict, "request was resolved concurrently")
		}

		if err := s.moveOrder(ctx, ordersRepo, req.OrderID, enums.OrderStatusReturnApproved, enums.OrderStatusReturnCompleted, orderUpdates, input); err != nil {
			return err
		}

		event := RequestEvent{
			RequestID:         req.ID,
			RequestType:       enums.RequestTypeReturn,
			OrderID:           req.OrderID,
			UserID:            req.UserID,
			Status:            enums.RequestStatusCompleted,
			RefundStatus:      refundStatus,
			RefundMethod:      req.RefundMethod,
			RefundAmountCents: req.RefundAmountCents,
		}
		if err := s.emitRequestEvent(ctx, tx, enums.EventRequestResolved, enums.AggregateReturnRequest, input.ActorUserID, input.ActorRole, event); err != nil {
			return err
		}
		if req.RefundAmountCents > 0 {
			return s.emitRequestEvent(ctx, tx, enums.EventRefundCompleted, enums.AggregateReturnRequest, input.ActorUserID, input.ActorRole, event)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	outcome := &ResolveOutcome{
		RequestID:         req.ID,
		RequestType:       enums.RequestTypeReturn,
		Status:            enums.RequestStatusCompleted,
		RefundStatus:      refundStatus,
		RefundAmountCents: req.RefundAmountCents,
	}
	if result != nil {
		outcome.GatewayRefundID = result.GatewayRefundID
		outcome.WalletTransactionID = result.WalletTransactionID
	}
	return outcome, nil
}

func (s *service) loadOwnedOrder(ctx context.Context, ordersRepo orders.Repository, orderID, userID uuid.UUID) (*models.Order, error) {
	order, err := ordersRepo.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}
	return order, nil
}

func (s *service) moveOrder(ctx context.Context, ordersRepo orders.Repository, orderID uuid.UUID, from, to enums.OrderStatus, updates map[string]any, input ResolveInput) error {
	applied, err := ordersRepo.UpdateOrderStatusCAS(ctx, orderID, from, to, updates)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	if !applied {
		return pkgerrors.New(pkgerrors.CodeConflict, "order was updated concurrently")
	}
	return ordersRepo.AppendActivity(ctx, &models.OrderActivity{
		OrderID:     orderID,
		FromStatus:  &from,
		ToStatus:    to,
		ActorUserID: &input.ActorUserID,
		Note:        input.AdminNote,
	})
}

// recordRefundFailure releases the claim as failed so the admin can retry,
// and emits the failure event. The request itself stays where it was.
func (s *service) recordRefundFailure(ctx context.Context, requestType enums.RequestType, requestID uuid.UUID, cancelReq *models.CancelRequest, returnReq *models.ReturnRequest, input ResolveInput) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		event := RequestEvent{
			RequestID:    requestID,
			RequestType:  requestType,
			RefundStatus: enums.RefundStatusFailed,
		}
		aggregate := enums.AggregateCancelRequest
		if requestType == enums.RequestTypeCancel && cancelReq != nil {
			if err := repo.MarkCancelRefundFailed(ctx, requestID); err != nil {
				return err
			}
			event.OrderID = cancelReq.OrderID
			event.UserID = cancelReq.UserID
			event.Status = cancelReq.Status
			event.RefundMethod = cancelReq.RefundMethod
			event.RefundAmountCents = cancelReq.RefundAmountCents
		} else if returnReq != nil {
			if err := repo.MarkReturnRefundFailed(ctx, requestID); err != nil {
				return err
			}
			aggregate = enums.AggregateReturnRequest
			event.OrderID = returnReq.OrderID
			event.UserID = returnReq.UserID
			event.Status = returnReq.Status
			event.RefundMethod = returnReq.RefundMethod
			event.RefundAmountCents = returnReq.RefundAmountCents
		}

		return s.emitRequestEvent(ctx, tx, enums.EventRefundFailed, aggregate, input.ActorUserID, input.ActorRole, event)
	})
	if err != nil && s.logg != nil {
		s.logg.Error(ctx, "record refund failure", err)
	}
}

func (s *service) emitRequestEvent(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType, actorID uuid.UUID, actorRole string, data RequestEvent) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: aggregate,
		AggregateID:   data.RequestID,
		Version:       1,
		Actor:         &outbox.ActorRef{UserID: actorID, Role: actorRole},
		Data:          data,
	})
}

// returnedAmount sums the line totals of the returned items after checking
// each id belongs to the order exactly once.
func returnedAmount(items []models.OrderItem, itemIDs []uuid.UUID) (int64, error) {
	byID := make(map[uuid.UUID]int64, len(items))
	for _, item := range items {
		byID[item.ID] = item.TotalCents
	}

	seen := make(map[uuid.UUID]bool, len(itemIDs))
	var amount int64
	for _, id := range itemIDs {
		if seen[id] {
			return 0, pkgerrors.New(pkgerrors.CodeValidation, "duplicate return item").
				WithDetails(map[string]any{"item_id": id})
		}
		seen[id] = true
		total, ok := byID[id]
		if !ok {
			return 0, pkgerrors.New(pkgerrors.CodeValidation, "item does not belong to order").
				WithDetails(map[string]any{"item_id": id})
		}
		amount += total
	}
	return amount, nil
}
