package controllers

import (
	"net/http"
	"strings"

	"github.com/sahilverma-dev/threadcart-backend/api/responses"
	"github.com/sahilverma-dev/threadcart-backend/api/validators"
	ordersvc "github.com/sahilverma-dev/threadcart-backend/internal/orders"
	"github.com/sahilverma-dev/threadcart-backend/pkg/enums"
	pkgerrors "github.com/sahilverma-dev/threadcart-backend/pkg/errors"
	"github.com/sahilverma-dev/threadcart-backend/pkg/logger"
	"github.com/sahilverma-dev/threadcart-backend/pkg/pagination"
)

// AdminOrderList returns orders across all users with optional filters.
func AdminOrderList(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var filters ordersvc.OrderFilters
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

// AdminOrderUpdateStatus moves an order along the fulfilment path.
func AdminOrderUpdateStatus(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		adminID, role, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateOrderStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseOrderStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		input := ordersvc.UpdateStatusInput{
			OrderID:     orderID,
			Status:      status,
			ActorUserID: adminID,
			ActorRole:   role,
		}
		if payload.Note != nil {
			note := validators.SanitizeString(*payload.Note, maxReasonLen)
			input.Note = &note
		}

		if err := svc.UpdateStatus(r.Context(), input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": string(status)})
	}
}

type updateOrderStatusRequest struct {
	Status string  `json:"status" validate:"required"`
	Note   *string `json:"note"`
}
