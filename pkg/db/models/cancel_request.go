package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sahilverma-dev/threadcart-backend/pkg/enums"
)

// CancelRequest is a customer's ask to cancel an order before delivery. The
// status the order held when the request was opened is persisted so a
// rejection can restore it exactly.
type CancelRequest struct {
	ID                uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID           uuid.UUID          `gorm:"column:order_id;type:uuid;not null"`
	UserID            uuid.UUID          `gorm:"column:user_id;type:uuid;not null"`
	Reason            string             `gorm:"column:reason;not null"`
	Status            enums.RequestStatus `gorm:"column:status;type:request_status;not null;default:'pending'"`
	PriorStatus       enums.OrderStatus  `gorm:"column:prior_status;type:order_status;not null"`
	RefundMethod      enums.RefundMethod `gorm:"column:refund_method;type:refund_method;not null;default:'wallet'"`
	RefundAmountCents int64              `gorm:"column:refund_amount_cents;not null"`
	RefundStatus      enums.RefundStatus `gorm:"column:refund_status;type:refund_status;not null;default:'none'"`
	GatewayRefundID   *string            `gorm:"column:gateway_refund_id"`
	AdminNote         *string            `gorm:"column:admin_note"`
	ResolvedBy        *uuid.UUID         `gorm:"column:resolved_by;type:uuid"`
	ResolvedAt        *time.Time         `gorm:"column:resolved_at"`
	CreatedAt         time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
