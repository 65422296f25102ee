package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sahilverma-dev/threadcart-backend/pkg/enums"
)

// OrderActivity is one append-only entry in an order's status history. Every
// transition writes exactly one row in the same transaction.
type OrderActivity struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID          `gorm:"column:order_id;type:uuid;not null"`
	FromStatus  *enums.OrderStatus `gorm:"column:from_status;type:order_status"`
	ToStatus    enums.OrderStatus  `gorm:"column:to_status;type:order_status;not null"`
	ActorUserID *uuid.UUID         `gorm:"column:actor_user_id;type:uuid"`
	Note        *string            `gorm:"column:note"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
}
