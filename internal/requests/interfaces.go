package requests

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sahilverma-dev/threadcart-backend/pkg/db/models"
	"github.com/sahilverma-dev/threadcart-backend/pkg/enums"
)

// Repository defines persistence operations for cancel and return requests.
// The CAS methods report false when the row no longer holds the expected
// state; callers translate that into a conflict.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateCancelRequest(ctx context.Context, req *models.CancelRequest) error
	FindCancelRequest(ctx context.Context, requestID uuid.UUID) (*models.CancelRequest, error)
	UpdateCancelRequestCAS(ctx context.Context, requestID uuid.UUID, from enums.RequestStatus, updates map[string]any) (bool, error)
	RejectCancelRequestCAS(ctx context.Context, requestID uuid.UUID, updates map[string]any) (bool, error)
	ClaimCancelRefund(ctx context.Context, requestID uuid.UUID) (bool, error)
	MarkCancelRefundFailed(ctx context.Context, requestID uuid.UUID) error
	RecordCancelGatewayRefund(ctx context.Context, requestID uuid.UUID, refundID string) error

	CreateReturnRequest(ctx context.Context, req *models.ReturnRequest) error
	FindReturnRequest(ctx context.Context, requestID uuid.UUID) (*models.ReturnRequest, error)
	UpdateReturnRequestCAS(ctx context.Context, requestID uuid.UUID, from enums.RequestStatus, updates map[string]any) (bool, error)
	RejectReturnRequestCAS(ctx context.Context, requestID uuid.UUID, updates map[string]any) (bool, error)
	ClaimReturnRefund(ctx context.Context, requestID uuid.UUID) (bool, error)
	MarkReturnRefundFailed(ctx context.Context, requestID uuid.UUID) error
	RecordReturnGatewayRefund(ctx context.Context, requestID uuid.UUID, refundID string) error
}
