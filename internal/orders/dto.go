package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/sahilverma-dev/threadcart-backend/pkg/db/models"
	"github.com/sahilverma-dev/threadcart-backend/pkg/enums"
	"github.com/sahilverma-dev/threadcart-backend/pkg/types"
)

// OrderFilters describe the inputs supported by the order lists.
type OrderFilters struct {
	UserID        *uuid.UUID
	Status        *enums.OrderStatus
	PaymentMethod *enums.PaymentMethod
	DateFrom      *time.Time
	DateTo        *time.Time
}

// CreateOrderItemInput is one line captured at checkout.
type CreateOrderItemInput struct {
	ProductID      uuid.UUID `json:"product_id"`
	Name           string    `json:"name"`
	Size           string    `json:"size"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	Quantity       int       `json:"quantity"`
}

// CreateOrderInput captures everything needed to place an order.
type CreateOrderInput struct {
	UserID          uuid.UUID
	PaymentMethod   enums.PaymentMethod
	Items           []CreateOrderItemInput
	ShippingCents   int64
	ShippingAddress *types.ShippingAddress
	ActorRole       string
}

// ConfirmPaymentInput carries the gateway checkout callback fields.
type ConfirmPaymentInput struct {
	OrderID     uuid.UUID
	PaymentRef  string
	Signature   string
	ActorUserID uuid.UUID
	ActorRole   string
}

// UpdateStatusInput captures an admin-driven fulfilment transition.
type UpdateStatusInput struct {
	OrderID     uuid.UUID
	Status      enums.OrderStatus
	Note        *string
	ActorUserID uuid.UUID
	ActorRole   string
}

// OrderList wraps the paginated orders plus the next page cursor.
type OrderList struct {
	Orders     []models.Order `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// OrderStatusEvent is emitted whenever an order changes status.
type OrderStatusEvent struct {
	OrderID     uuid.UUID          `json:"order_id"`
	OrderNumber int64              `json:"order_number"`
	UserID      uuid.UUID          `json:"user_id"`
	FromStatus  *enums.OrderStatus `json:"from_status,omitempty"`
	ToStatus    enums.OrderStatus  `json:"to_status"`
	TotalCents  int64              `json:"total_cents"`
}
