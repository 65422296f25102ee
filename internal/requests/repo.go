package requests

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sahilverma-dev/threadcart-backend/pkg/db/models"
	"github.com/sahilverma-dev/threadcart-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a requests repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateCancelRequest(ctx context.Context, req *models.CancelRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *repository) FindCancelRequest(ctx context.Context, requestID uuid.UUID) (*models.CancelRequest, error) {
	var req models.CancelRequest
	err := r.db.WithContext(ctx).
		Where("id = ?", requestID).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *repository) UpdateCancelRequestCAS(ctx context.Context, requestID uuid.UUID, from enums.RequestStatus, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CancelRequest{}).
		Where("id = ? AND status = ?", requestID, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// RejectCancelRequestCAS rejects only while the request is pending and no
// refund claim exists. A resolver that already started moving money cannot
// be raced by a rejection.
func (r *repository) RejectCancelRequestCAS(ctx context.Context, requestID uuid.UUID, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CancelRequest{}).
		Where("id = ? AND status = ? AND refund_status IN ?", requestID, enums.RequestStatusPending, claimableRefundStatuses).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ClaimCancelRefund moves the refund status to pending only when no other
// resolver holds the claim. Failed refunds stay claimable for retries.
func (r *repository) ClaimCancelRefund(ctx context.Context, requestID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CancelRequest{}).
		Where("id = ? AND refund_status IN ?", requestID, claimableRefundStatuses).
		Update("refund_status", enums.RefundStatusPending)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) MarkCancelRefundFailed(ctx context.Context, requestID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.CancelRequest{}).
		Where("id = ? AND refund_status = ?", requestID, enums.RefundStatusPending).
		Update("refund_status", enums.RefundStatusFailed).Error
}

// RecordCancelGatewayRefund persists the provider's refund id as soon as it
// is known, so a resolver that dies before finalizing leaves a resumable row
// instead of a refund nobody can account for.
func (r *repository) RecordCancelGatewayRefund(ctx context.Context, requestID uuid.UUID, refundID string) error {
	return r.db.WithContext(ctx).
		Model(&models.CancelRequest{}).
		Where("id = ?", requestID).
		Update("gateway_refund_id", refundID).Error
}

func (r *repository) CreateReturnRequest(ctx context.Context, req *models.ReturnRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *repository) FindReturnRequest(ctx context.Context, requestID uuid.UUID) (*models.ReturnRequest, error) {
	var req models.ReturnRequest
	err := r.db.WithContext(ctx).
		Where("id = ?", requestID).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *repository) UpdateReturnRequestCAS(ctx context.Context, requestID uuid.UUID, from enums.RequestStatus, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ReturnRequest{}).
		Where("id = ? AND status = ?", requestID, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// RejectReturnRequestCAS mirrors RejectCancelRequestCAS for returns.
func (r *repository) RejectReturnRequestCAS(ctx context.Context, requestID uuid.UUID, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ReturnRequest{}).
		Where("id = ? AND status = ? AND refund_status IN ?", requestID, enums.RequestStatusPending, claimableRefundStatuses).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) ClaimReturnRefund(ctx context.Context, requestID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ReturnRequest{}).
		Where("id = ? AND refund_status IN ?", requestID, claimableRefundStatuses).
		Update("refund_status", enums.RefundStatusPending)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) MarkReturnRefundFailed(ctx context.Context, requestID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.ReturnRequest{}).
		Where("id = ? AND refund_status = ?", requestID, enums.RefundStatusPending).
		Update("refund_status", enums.RefundStatusFailed).Error
}

func (r *repository) RecordReturnGatewayRefund(ctx context.Context, requestID uuid.UUID, refundID string) error {
	return r.db.WithContext(ctx).
		Model(&models.ReturnRequest{}).
		Where("id = ?", requestID).
		Update("gateway_refund_id", refundID).Error
}

var claimableRefundStatuses = []enums.RefundStatus{
	enums.RefundStatusNone,
	enums.RefundStatusFailed,
}
