package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	dbtypes "github.com/sahilverma-dev/threadcart-backend/pkg/db/types"
	"github.com/sahilverma-dev/threadcart-backend/pkg/enums"
	"github.com/sahilverma-dev/threadcart-backend/pkg/types"
)

// ReturnRequest is a customer's ask to send back delivered items. ItemIDs
// names the order items coming back; BankDetails is only set when the
// resolution is a refund paid by bank transfer.
type ReturnRequest struct {
	ID                uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID           uuid.UUID              `gorm:"column:order_id;type:uuid;not null"`
	UserID            uuid.UUID              `gorm:"column:user_id;type:uuid;not null"`
	Reason            string                 `gorm:"column:reason;not null"`
	Status            enums.RequestStatus    `gorm:"column:status;type:request_status;not null;default:'pending'"`
	PriorStatus       enums.OrderStatus      `gorm:"column:prior_status;type:order_status;not null"`
	ItemIDs           dbtypes.UUIDArray      `gorm:"column:item_ids;type:uuid[];not null"`
	Resolution        enums.ReturnResolution `gorm:"column:resolution;type:return_resolution;not null;default:'refund'"`
	Comment           *string                `gorm:"column:comment"`
	Images            pq.StringArray         `gorm:"column:images;type:text[]"`
	RefundMethod      enums.RefundMethod     `gorm:"column:refund_method;type:refund_method;not null"`
	RefundAmountCents int64                  `gorm:"column:refund_amount_cents;not null"`
	RefundStatus      enums.RefundStatus     `gorm:"column:refund_status;type:refund_status;not null;default:'none'"`
	BankDetails       *types.BankDetails     `gorm:"column:bank_details;type:jsonb;serializer:json"`
	GatewayRefundID   *string                `gorm:"column:gateway_refund_id"`
	AdminNote         *string                `gorm:"column:admin_note"`
	ResolvedBy        *uuid.UUID             `gorm:"column:resolved_by;type:uuid"`
	ResolvedAt        *time.Time             `gorm:"column:resolved_at"`
	CreatedAt         time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
