package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/sahilverma-dev/threadcart-backend/pkg/db"
	"github.com/sahilverma-dev/threadcart-backend/pkg/db/models"
	"github.com/sahilverma-dev/threadcart-backend/pkg/enums"
	pkgerrors "github.com/sahilverma-dev/threadcart-backend/pkg/errors"
	"github.com/sahilverma-dev/threadcart-backend/pkg/outbox"
	"github.com/sahilverma-dev/threadcart-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines the wallet ledger operations.
type Service interface {
	GetWallet(ctx context.Context, userID uuid.UUID) (*models.WalletAccount, error)
	Credit(ctx context.Context, input EntryInput) (*models.WalletTransaction, error)
	Debit(ctx context.Context, input EntryInput) (*models.WalletTransaction, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, params pagination.Params) (*TransactionList, error)
}

// EntryInput carries one credit or debit posting. ReferenceID plus the entry
// type form the idempotency key: replays return the original entry.
type EntryInput struct {
	UserID      uuid.UUID
	AmountCents int64
	Description string
	ReferenceID string
	ActorUserID uuid.UUID
	ActorRole   string
}

// TransactionList wraps a page of ledger entries plus the next page cursor.
type TransactionList struct {
	Transactions []models.WalletTransaction `json:"transactions"`
	NextCursor   string                     `json:"next_cursor,omitempty"`
}

// WalletEntryEvent is emitted for every new ledger posting.
type WalletEntryEvent struct {
	TransactionID     uuid.UUID                   `json:"transaction_id"`
	AccountID         uuid.UUID                   `json:"account_id"`
	UserID            uuid.UUID                   `json:"user_id"`
	Type              enums.WalletTransactionType `json:"type"`
	AmountCents       int64                       `json:"amount_cents"`
	BalanceAfterCents int64                       `json:"balance_after_cents"`
	ReferenceID       string                      `json:"reference_id"`
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
}

// NewService wires a wallet service with the required dependencies.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outbox}, nil
}

func (s *service) GetWallet(ctx context.Context, userID uuid.UUID) (*models.WalletAccount, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	account, err := s.repo.FindAccountByUserID(ctx, userID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet account")
	}

	fresh := &models.WalletAccount{UserID: userID}
	if err := s.repo.CreateAccount(ctx, fresh); err != nil {
		// Lost a create race; the winner's row is the account.
		if dbpkg.IsUniqueViolation(err, "") {
			return s.repo.FindAccountByUserID(ctx, userID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create wallet account")
	}
	return fresh, nil
}

func (s *service) Credit(ctx context.Context, input EntryInput) (*models.WalletTransaction, error) {
	if err := validateEntryInput(input); err != nil {
		return nil, err
	}

	var result *models.WalletTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		account, err := s.ensureAccount(ctx, repo, input.UserID)
		if err != nil {
			return err
		}

		existing, err := repo.FindTransactionByReference(ctx, account.ID, input.ReferenceID, enums.WalletTransactionCredit)
		if err == nil {
			result = existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check credit idempotency")
		}

		if err := repo.CreditBalance(ctx, account.ID, input.AmountCents); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit wallet balance")
		}

		account, err = repo.FindAccountByID(ctx, account.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload wallet account")
		}

		entry := &models.WalletTransaction{
			AccountID:         account.ID,
			Type:              enums.WalletTransactionCredit,
			AmountCents:       input.AmountCents,
			BalanceAfterCents: account.BalanceCents,
			Description:       input.Description,
			ReferenceID:       input.ReferenceID,
		}
		if err := repo.CreateTransaction(ctx, entry); err != nil {
			if dbpkg.IsUniqueViolation(err, "idx_wallet_tx_reference") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "duplicate credit reference")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record credit entry")
		}

		result = entry
		return s.emitEntryEvent(ctx, tx, enums.EventWalletCredited, input, account, entry)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) Debit(ctx context.Context, input EntryInput) (*models.WalletTransaction, error) {
	if err := validateEntryInput(input); err != nil {
		return nil, err
	}

	var result *models.WalletTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		account, err := repo.FindAccountByUserID(ctx, input.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeInsufficientBalance, "wallet has no funds")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet account")
		}

		existing, err := repo.FindTransactionByReference(ctx, account.ID, input.ReferenceID, enums.WalletTransactionDebit)
		if err == nil {
			result = existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check debit idempotency")
		}

		applied, err := repo.DebitBalance(ctx, account.ID, input.AmountCents)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "debit wallet balance")
		}
		if !applied {
			return pkgerrors.New(pkgerrors.CodeInsufficientBalance, "wallet balance too low").
				WithDetails(map[string]any{
					"balance_cents":   account.BalanceCents,
					"requested_cents": input.AmountCents,
				})
		}

		account, err = repo.FindAccountByID(ctx, account.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload wallet account")
		}

		entry := &models.WalletTransaction{
			AccountID:         account.ID,
			Type:              enums.WalletTransactionDebit,
			AmountCents:       input.AmountCents,
			BalanceAfterCents: account.BalanceCents,
			Description:       input.Description,
			ReferenceID:       input.ReferenceID,
		}
		if err := repo.CreateTransaction(ctx, entry); err != nil {
			if dbpkg.IsUniqueViolation(err, "idx_wallet_tx_reference") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "duplicate debit reference")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record debit entry")
		}

		result = entry
		return s.emitEntryEvent(ctx, tx, enums.EventWalletDebited, input, account, entry)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) ListTransactions(ctx context.Context, userID uuid.UUID, params pagination.Params) (*TransactionList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	account, err := s.repo.FindAccountByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &TransactionList{Transactions: []models.WalletTransaction{}}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet account")
	}

	entries, err := s.repo.ListTransactions(ctx, account.ID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wallet transactions")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	list := &TransactionList{Transactions: entries}
	if len(entries) > limit {
		list.Transactions = entries[:limit]
		last := list.Transactions[limit-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return list, nil
}

func (s *service) ensureAccount(ctx context.Context, repo Repository, userID uuid.UUID) (*models.WalletAccount, error) {
	account, err := repo.FindAccountByUserID(ctx, userID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet account")
	}

	fresh := &models.WalletAccount{UserID: userID}
	if err := repo.CreateAccount(ctx, fresh); err != nil {
		if dbpkg.IsUniqueViolation(err, "") {
			return repo.FindAccountByUserID(ctx, userID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create wallet account")
	}
	return fresh, nil
}

func (s *service) emitEntryEvent(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, input EntryInput, account *models.WalletAccount, entry *models.WalletTransaction) error {
	actorID := input.ActorUserID
	if actorID == uuid.Nil {
		actorID = input.UserID
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateWalletTransaction,
		AggregateID:   entry.ID,
		Version:       1,
		Actor:         &outbox.ActorRef{UserID: actorID, Role: input.ActorRole},
		Data: WalletEntryEvent{
			TransactionID:     entry.ID,
			AccountID:         account.ID,
			UserID:            account.UserID,
			Type:              entry.Type,
			AmountCents:       entry.AmountCents,
			BalanceAfterCents: entry.BalanceAfterCents,
			ReferenceID:       entry.ReferenceID,
		},
	})
}

func validateEntryInput(input EntryInput) error {
	if input.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.AmountCents <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if input.ReferenceID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "reference id required")
	}
	return nil
}
