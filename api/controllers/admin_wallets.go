package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sahilverma-dev/threadcart-backend/api/responses"
	"github.com/sahilverma-dev/threadcart-backend/api/validators"
	walletsvc "github.com/sahilverma-dev/threadcart-backend/internal/wallet"
	pkgerrors "github.com/sahilverma-dev/threadcart-backend/pkg/errors"
	"github.com/sahilverma-dev/threadcart-backend/pkg/logger"
	"github.com/sahilverma-dev/threadcart-backend/pkg/pagination"
)

// AdminWalletGet returns any user's wallet balance.
func AdminWalletGet(svc walletsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
			return
		}

		userID, err := parseWalletUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		account, err := svc.GetWallet(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, account)
	}
}

// AdminWalletTransactions returns any user's ledger entries.
func AdminWalletTransactions(svc walletsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
			return
		}

		userID, err := parseWalletUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListTransactions(r.Context(), userID, pagination.Params{
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

// AdminWalletCredit posts a manual credit to a user's wallet.
func AdminWalletCredit(svc walletsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return walletAdjustment(svc, logg, func(ctx *http.Request, input walletsvc.EntryInput) (any, error) {
		return svc.Credit(ctx.Context(), input)
	})
}

// AdminWalletDebit posts a manual debit to a user's wallet. Debits that
// would overdraw the balance are rejected.
func AdminWalletDebit(svc walletsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return walletAdjustment(svc, logg, func(ctx *http.Request, input walletsvc.EntryInput) (any, error) {
		return svc.Debit(ctx.Context(), input)
	})
}

func walletAdjustment(svc walletsvc.Service, logg *logger.Logger, post func(*http.Request, walletsvc.EntryInput) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
			return
		}

		adminID, role, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID, err := parseWalletUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload walletEntryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := post(r, walletsvc.EntryInput{
			UserID:      userID,
			AmountCents: payload.AmountCents,
			Description: validators.SanitizeString(payload.Description, maxReasonLen),
			ReferenceID: strings.TrimSpace(payload.ReferenceID),
			ActorUserID: adminID,
			ActorRole:   role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, entry)
	}
}

type walletEntryRequest struct {
	AmountCents int64  `json:"amount_cents" validate:"required,min=1"`
	Description string `json:"description" validate:"required"`
	ReferenceID string `json:"reference_id" validate:"required"`
}

func parseWalletUserID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "userId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	return userID, nil
}
