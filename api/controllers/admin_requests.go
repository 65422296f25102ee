package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sahilverma-dev/threadcart-backend/api/responses"
	"github.com/sahilverma-dev/threadcart-backend/api/validators"
	requestsvc "github.com/sahilverma-dev/threadcart-backend/internal/requests"
	"github.com/sahilverma-dev/threadcart-backend/pkg/enums"
	pkgerrors "github.com/sahilverma-dev/threadcart-backend/pkg/errors"
	"github.com/sahilverma-dev/threadcart-backend/pkg/logger"
)

// AdminRequestResolve applies an admin verdict to a cancel or return request.
func AdminRequestResolve(svc requestsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "requests service unavailable"))
			return
		}

		adminID, role, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rawRequestID := strings.TrimSpace(chi.URLParam(r, "requestId"))
		if rawRequestID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "request id is required"))
			return
		}
		requestID, err := uuid.Parse(rawRequestID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request id"))
			return
		}

		var payload resolveRequestPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		requestType, err := enums.ParseRequestType(payload.Type)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request type"))
			return
		}
		decision, err := enums.ParseRequestDecision(payload.Decision)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid decision"))
			return
		}

		input := requestsvc.ResolveInput{
			RequestID:   requestID,
			RequestType: requestType,
			Decision:    decision,
			ActorUserID: adminID,
			ActorRole:   role,
		}
		if payload.AdminNote != nil {
			note := validators.SanitizeString(*payload.AdminNote, maxReasonLen)
			input.AdminNote = &note
		}
		if payload.RefundMethod != nil {
			method, parseErr := enums.ParseRefundMethod(*payload.RefundMethod)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid refund method"))
				return
			}
			input.RefundMethod = &method
		}

		outcome, err := svc.Resolve(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, outcome)
	}
}

type resolveRequestPayload struct {
	Type         string  `json:"type" validate:"required"`
	Decision     string  `json:"decision" validate:"required"`
	AdminNote    *string `json:"admin_note"`
	RefundMethod *string `json:"refund_method"`
}
