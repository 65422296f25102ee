package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sahilverma-dev/threadcart-backend/pkg/enums"
	"github.com/sahilverma-dev/threadcart-backend/pkg/types"
)

// Order is the customer order aggregate. Items and activity rows are owned by
// the order and cascade with it.
type Order struct {
	ID              uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID          uuid.UUID              `gorm:"column:user_id;type:uuid;not null"`
	OrderNumber     int64                  `gorm:"column:order_number;not null"`
	Status          enums.OrderStatus      `gorm:"column:status;type:order_status;not null;default:'pending'"`
	RefundStatus    enums.RefundStatus     `gorm:"column:refund_status;type:refund_status;not null;default:'none'"`
	PaymentMethod   enums.PaymentMethod    `gorm:"column:payment_method;type:payment_method;not null"`
	PaymentVerified bool                   `gorm:"column:payment_verified;not null;default:false"`
	GatewayOrderRef *string                `gorm:"column:gateway_order_ref"`
	PaymentRef      *string                `gorm:"column:payment_ref"`
	SubtotalCents   int64                  `gorm:"column:subtotal_cents;not null"`
	ShippingCents   int64                  `gorm:"column:shipping_cents;not null;default:0"`
	TotalCents      int64                  `gorm:"column:total_cents;not null"`
	ShippingAddress *types.ShippingAddress `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	DeliveredAt     *time.Time             `gorm:"column:delivered_at"`
	CancelledAt     *time.Time             `gorm:"column:cancelled_at"`
	Items           []OrderItem            `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Activities      []OrderActivity        `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
