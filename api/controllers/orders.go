package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sahilverma-dev/threadcart-backend/api/middleware"
	"github.com/sahilverma-dev/threadcart-backend/api/responses"
	"github.com/sahilverma-dev/threadcart-backend/api/validators"
	ordersvc "github.com/sahilverma-dev/threadcart-backend/internal/orders"
	requestsvc "github.com/sahilverma-dev/threadcart-backend/internal/requests"
	"github.com/sahilverma-dev/threadcart-backend/pkg/enums"
	pkgerrors "github.com/sahilverma-dev/threadcart-backend/pkg/errors"
	"github.com/sahilverma-dev/threadcart-backend/pkg/logger"
	"github.com/sahilverma-dev/threadcart-backend/pkg/pagination"
	"github.com/sahilverma-dev/threadcart-backend/pkg/types"
)

// OrderCreate places a new order for the authenticated user.
func OrderCreate(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		userID, role, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput(userID, role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// OrderList returns the authenticated user's orders, newest first.
func OrderList(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		userID, _, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := ordersvc.OrderFilters{UserID: &userID}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, parseErr := enums.ParseOrderStatus(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid status filter"))
				return
			}
			filters.Status = &status
		}

		list, err := svc.List(r.Context(), filters, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// OrderGet returns one order with its lines, enforcing ownership.
func OrderGet(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		userID, role, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID, userID, enums.MemberRole(role))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// OrderActivity returns the status history of one order.
func OrderActivity(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		userID, role, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		activities, err := svc.Activity(r.Context(), orderID, userID, enums.MemberRole(role))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"activities": activities})
	}
}

// OrderConfirmPayment verifies the gateway checkout callback for an order.
func OrderConfirmPayment(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		userID, role, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload confirmPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.ConfirmPayment(r.Context(), ordersvc.ConfirmPaymentInput{
			OrderID:     orderID,
			PaymentRef:  payload.PaymentID,
			Signature:   payload.Signature,
			ActorUserID: userID,
			ActorRole:   role,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "verified"})
	}
}

// OrderCancelRequest opens a cancel request against an undelivered order.
func OrderCancelRequest(svc requestsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "requests service unavailable"))
			return
		}

		userID, role, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cancelRequestPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := requestsvc.CreateCancelInput{
			OrderID:   orderID,
			UserID:    userID,
			Reason:    validators.SanitizeString(payload.Reason, maxReasonLen),
			ActorRole: role,
		}
		if payload.RefundMethod != nil {
			method, parseErr := enums.ParseRefundMethod(*payload.RefundMethod)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid refund method"))
				return
			}
			input.RefundMethod = &method
		}

		request, err := svc.CreateCancelRequest(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, request)
	}
}

// OrderReturnRequest opens a return request against a delivered order.
func OrderReturnRequest(svc requestsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "requests service unavailable"))
			return
		}

		userID, role, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload returnRequestPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resolution := enums.ReturnResolutionRefund
		if payload.Resolution != "" {
			parsed, parseErr := enums.ParseReturnResolution(payload.Resolution)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid return resolution"))
				return
			}
			resolution = parsed
		}

		input := requestsvc.CreateReturnInput{
			OrderID:     orderID,
			UserID:      userID,
			Reason:      validators.SanitizeString(payload.Reason, maxReasonLen),
			ItemIDs:     payload.ItemIDs,
			Resolution:  resolution,
			BankDetails: payload.BankDetails,
			Images:      payload.Images,
			ActorRole:   role,
		}
		if payload.Comment != nil {
			comment := validators.SanitizeString(*payload.Comment, maxReasonLen)
			input.Comment = &comment
		}
		if resolution == enums.ReturnResolutionRefund {
			method, parseErr := enums.ParseRefundMethod(payload.RefundMethod)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid refund method"))
				return
			}
			input.RefundMethod = method
		}

		request, err := svc.CreateReturnRequest(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, request)
	}
}

const maxReasonLen = 500

type createOrderRequest struct {
	PaymentMethod   string                   `json:"payment_method" validate:"required"`
	Items           []createOrderItemPayload `json:"items" validate:"required,min=1,dive"`
	ShippingCents   int64                    `json:"shipping_cents" validate:"min=0"`
	ShippingAddress *types.ShippingAddress   `json:"shipping_address"`
}

type createOrderItemPayload struct {
	ProductID      uuid.UUID `json:"product_id" validate:"required"`
	Name           string    `json:"name" validate:"required"`
	Size           string    `json:"size" validate:"required"`
	UnitPriceCents int64     `json:"unit_price_cents" validate:"min=0"`
	Quantity       int       `json:"quantity" validate:"required,min=1"`
}

func (r createOrderRequest) toInput(userID uuid.UUID, role string) (ordersvc.CreateOrderInput, error) {
	method, err := enums.ParsePaymentMethod(r.PaymentMethod)
	if err != nil {
		return ordersvc.CreateOrderInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
	}

	items := make([]ordersvc.CreateOrderItemInput, len(r.Items))
	for i, item := range r.Items {
		items[i] = ordersvc.CreateOrderItemInput{
			ProductID:      item.ProductID,
			Name:           validators.SanitizeString(item.Name, 200),
			Size:           validators.SanitizeString(item.Size, 20),
			UnitPriceCents: item.UnitPriceCents,
			Quantity:       item.Quantity,
		}
	}

	return ordersvc.CreateOrderInput{
		UserID:          userID,
		PaymentMethod:   method,
		Items:           items,
		ShippingCents:   r.ShippingCents,
		ShippingAddress: r.ShippingAddress,
		ActorRole:       role,
	}, nil
}

type confirmPaymentRequest struct {
	PaymentID string `json:"payment_id" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

type cancelRequestPayload struct {
	Reason       string  `json:"reason" validate:"required"`
	RefundMethod *string `json:"refund_method"`
}

type returnRequestPayload struct {
	Reason       string             `json:"reason" validate:"required"`
	ItemIDs      []uuid.UUID        `json:"item_ids" validate:"required,min=1"`
	Resolution   string             `json:"resolution"`
	RefundMethod string             `json:"refund_method"`
	BankDetails  *types.BankDetails `json:"bank_details"`
	Comment      *string            `json:"comment"`
	Images       []string           `json:"images" validate:"omitempty,max=6,dive,url"`
}

func requireActor(r *http.Request) (uuid.UUID, string, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, "", pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user identity")
	}
	return userID, middleware.RoleFromContext(r.Context()), nil
}

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return orderID, nil
}
