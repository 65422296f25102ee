package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sahilverma-dev/threadcart-backend/internal/wallet"
	dbpkg "github.com/sahilverma-dev/threadcart-backend/pkg/db"
	"github.com/sahilverma-dev/threadcart-backend/pkg/db/models"
	"github.com/sahilverma-dev/threadcart-backend/pkg/enums"
	pkgerrors "github.com/sahilverma-dev/threadcart-backend/pkg/errors"
	"github.com/sahilverma-dev/threadcart-backend/pkg/logger"
	"github.com/sahilverma-dev/threadcart-backend/pkg/outbox"
	"github.com/sahilverma-dev/threadcart-backend/pkg/pagination"
	"github.com/sahilverma-dev/threadcart-backend/pkg/razorpay"
)

const (
	defaultCurrency = "INR"

	orderNumberConstraint = "ux_orders_order_number"
	orderNumberAttempts   = 3
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// PaymentGateway is the slice of the gateway client order placement needs.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amountCents int64, currency, receipt string) (*razorpay.GatewayOrder, error)
	VerifyPaymentSignature(gatewayOrderID, paymentID, signature string) bool
}

// WalletLedger funds wallet-paid orders.
type WalletLedger interface {
	Debit(ctx context.Context, input wallet.EntryInput) (*models.WalletTransaction, error)
	Credit(ctx context.Context, input wallet.EntryInput) (*models.WalletTransaction, error)
}

// Service defines order lifecycle operations.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	Get(ctx context.Context, orderID, actorUserID uuid.UUID, actorRole enums.MemberRole) (*models.Order, error)
	List(ctx context.Context, filters OrderFilters, params pagination.Params) (*OrderList, error)
	Activity(ctx context.Context, orderID, actorUserID uuid.UUID, actorRole enums.MemberRole) ([]models.OrderActivity, error)
	ConfirmPayment(ctx context.Context, input ConfirmPaymentInput) error
	UpdateStatus(ctx context.Context, input UpdateStatusInput) error
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	gateway PaymentGateway
	wallet  WalletLedger
	logg    *logger.Logger
}

// NewService builds an order service with the required dependencies.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher, gateway PaymentGateway, walletLedger WalletLedger, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if walletLedger == nil {
		return nil, fmt.Errorf("wallet ledger required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		outbox:  outbox,
		gateway: gateway,
		wallet:  walletLedger,
		logg:    logg,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one item")
	}
	if input.ShippingCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping amount cannot be negative")
	}

	items := make([]models.OrderItem, 0, len(input.Items))
	var subtotal int64
	for _, in := range input.Items {
		if in.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item product id required")
		}
		if in.Name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item name required")
		}
		if in.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
		}
		if in.UnitPriceCents < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item price cannot be negative")
		}
		lineTotal := in.UnitPriceCents * int64(in.Quantity)
		subtotal += lineTotal
		items = append(items, models.OrderItem{
			ProductID:      in.ProductID,
			Name:           in.Name,
			Size:           in.Size,
			UnitPriceCents: in.UnitPriceCents,
			Quantity:       in.Quantity,
			TotalCents:     lineTotal,
		})
	}
	total := subtotal + input.ShippingCents

	orderID := uuid.New()
	order := &models.Order{
		ID:              orderID,
		UserID:          input.UserID,
		Status:          enums.OrderStatusPending,
		RefundStatus:    enums.RefundStatusNone,
		PaymentMethod:   input.PaymentMethod,
		SubtotalCents:   subtotal,
		ShippingCents:   input.ShippingCents,
		TotalCents:      total,
		ShippingAddress: input.ShippingAddress,
		Items:           items,
	}

	// Gateway and wallet calls stay outside the order transaction.
	switch input.PaymentMethod {
	case enums.PaymentMethodRazorpay:
		gatewayOrder, err := s.gateway.CreateOrder(ctx, total, defaultCurrency, "tc-"+orderID.String())
		if err != nil {
			return nil, err
		}
		order.GatewayOrderRef = &gatewayOrder.ID
	case enums.PaymentMethodWallet:
		if _, err := s.wallet.Debit(ctx, wallet.EntryInput{
			UserID:      input.UserID,
			AmountCents: total,
			Description: fmt.Sprintf("payment for order %s", orderID),
			ReferenceID: orderID.String(),
			ActorUserID: input.UserID,
			ActorRole:   input.ActorRole,
		}); err != nil {
			return nil, err
		}
		order.PaymentVerified = true
	}

	persist := func() error {
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)

			number, err := repo.NextOrderNumber(ctx)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate order number")
			}
			order.OrderNumber = number

			if _, err := repo.CreateOrder(ctx, order); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
			}

			if err := repo.AppendActivity(ctx, &models.OrderActivity{
				OrderID:  order.ID,
				ToStatus: enums.OrderStatusPending,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record order activity")
			}

			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderCreated,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Version:       1,
				Actor:         &outbox.ActorRef{UserID: input.UserID, Role: input.ActorRole},
				Data: OrderStatusEvent{
					OrderID:     order.ID,
					OrderNumber: order.OrderNumber,
					UserID:      order.UserID,
					ToStatus:    enums.OrderStatusPending,
					TotalCents:  order.TotalCents,
				},
			})
		})
	}

	// MAX+1 order numbers race under concurrent creates; the loser hits the
	// unique index and simply reallocates.
	var err error
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		err = persist()
		if err == nil || !dbpkg.IsUniqueViolation(err, orderNumberConstraint) {
			break
		}
	}
	if err != nil {
		s.compensateFailedCreate(ctx, order, input)
		return nil, err
	}
	return order, nil
}

// compensateFailedCreate returns wallet funds taken for an order whose row
// never landed. The credit shares the debit's reference with a reversal
// prefix, so retries of the compensation stay idempotent too.
func (s *service) compensateFailedCreate(ctx context.Context, order *models.Order, input CreateOrderInput) {
	if input.PaymentMethod != enums.PaymentMethodWallet {
		return
	}
	if _, err := s.wallet.Credit(ctx, wallet.EntryInput{
		UserID:      input.UserID,
		AmountCents: order.TotalCents,
		Description: fmt.Sprintf("reversal for failed order %s", order.ID),
		ReferenceID: "reversal-" + order.ID.String(),
		ActorUserID: input.UserID,
		ActorRole:   input.ActorRole,
	}); err != nil && s.logg != nil {
		s.logg.Error(ctx, "wallet reversal after failed order create", err)
	}
}

func (s *service) Get(ctx context.Context, orderID, actorUserID uuid.UUID, actorRole enums.MemberRole) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if actorRole != enums.MemberRoleAdmin && order.UserID != actorUserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, filters OrderFilters, params pagination.Params) (*OrderList, error) {
	orders, err := s.repo.ListOrders(ctx, filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	list := &OrderList{Orders: orders}
	if len(orders) > limit {
		list.Orders = orders[:limit]
		last := list.Orders[limit-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return list, nil
}

func (s *service) Activity(ctx context.Context, orderID, actorUserID uuid.UUID, actorRole enums.MemberRole) ([]models.OrderActivity, error) {
	if _, err := s.Get(ctx, orderID, actorUserID, actorRole); err != nil {
		return nil, err
	}
	activities, err := s.repo.ListActivities(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order activity")
	}
	return activities, nil
}

func (s *service) ConfirmPayment(ctx context.Context, input ConfirmPaymentInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.PaymentRef == "" || input.Signature == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment reference and signature required")
	}

	order, err := s.repo.FindOrder(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.UserID != input.ActorUserID && input.ActorRole != string(enums.MemberRoleAdmin) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}
	if order.PaymentMethod != enums.PaymentMethodRazorpay || order.GatewayOrderRef == nil {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order has no pending gateway payment")
	}
	if order.PaymentVerified {
		return nil
	}
	if !s.gateway.VerifyPaymentSignature(*order.GatewayOrderRef, input.PaymentRef, input.Signature) {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment signature mismatch")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
			"payment_verified": true,
			"payment_ref":      input.PaymentRef,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment verified")
		}
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaymentVerified,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.ActorUserID, Role: input.ActorRole},
			Data: OrderStatusEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      order.UserID,
				ToStatus:    order.Status,
				TotalCents:  order.TotalCents,
			},
		})
	})
}

// fulfilmentTargets are the statuses admins may set directly. Cancel and
// return transitions only happen through request resolution.
var fulfilmentTargets = map[enums.OrderStatus]bool{
	enums.OrderStatusProcessing: true,
	enums.OrderStatusShipped:    true,
	enums.OrderStatusDelivered:  true,
}

func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ActorUserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.Status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	if !fulfilmentTargets[input.Status] {
		return pkgerrors.New(pkgerrors.CodeValidation, "status not settable directly")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrder(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status == input.Status {
			return nil
		}
		if !order.Status.CanTransitionTo(input.Status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status transition disallowed").
				WithDetails(map[string]any{
					"from": order.Status,
					"to":   input.Status,
				})
		}

		updates := map[string]any{}
		if input.Status == enums.OrderStatusDelivered {
			updates["delivered_at"] = time.Now()
		}

		applied, err := repo.UpdateOrderStatusCAS(ctx, order.ID, order.Status, input.Status, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !applied {
			return pkgerrors.New(pkgerrors.CodeConflict, "order was updated concurrently")
		}

		from := order.Status
		if err := repo.AppendActivity(ctx, &models.OrderActivity{
			OrderID:     order.ID,
			FromStatus:  &from,
			ToStatus:    input.Status,
			ActorUserID: &input.ActorUserID,
			Note:        input.Note,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record order activity")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.ActorUserID, Role: input.ActorRole},
			Data: OrderStatusEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      order.UserID,
				FromStatus:  &from,
				ToStatus:    input.Status,
				TotalCents:  order.TotalCents,
			},
		})
	})
}
