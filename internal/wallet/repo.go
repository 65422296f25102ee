package wallet

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sahilverma-dev/threadcart-backend/pkg/db/models"
	"github.com/sahilverma-dev/threadcart-backend/pkg/enums"
	"github.com/sahilverma-dev/threadcart-backend/pkg/pagination"
)

// Repository manages persistence for wallet accounts and their ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindAccountByUserID(ctx context.Context, userID uuid.UUID) (*models.WalletAccount, error)
	FindAccountByID(ctx context.Context, accountID uuid.UUID) (*models.WalletAccount, error)
	CreateAccount(ctx context.Context, account *models.WalletAccount) error
	FindTransactionByReference(ctx context.Context, accountID uuid.UUID, referenceID string, txType enums.WalletTransactionType) (*models.WalletTransaction, error)
	CreateTransaction(ctx context.Context, entry *models.WalletTransaction) error
	CreditBalance(ctx context.Context, accountID uuid.UUID, amountCents int64) error
	DebitBalance(ctx context.Context, accountID uuid.UUID, amountCents int64) (bool, error)
	ListTransactions(ctx context.Context, accountID uuid.UUID, params pagination.Params) ([]models.WalletTransaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a wallet repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindAccountByUserID(ctx context.Context, userID uuid.UUID) (*models.WalletAccount, error) {
	var account models.WalletAccount
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) FindAccountByID(ctx context.Context, accountID uuid.UUID) (*models.WalletAccount, error) {
	var account models.WalletAccount
	err := r.db.WithContext(ctx).
		Where("id = ?", accountID).
		First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) CreateAccount(ctx context.Context, account *models.WalletAccount) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *repository) FindTransactionByReference(ctx context.Context, accountID uuid.UUID, referenceID string, txType enums.WalletTransactionType) (*models.WalletTransaction, error) {
	var entry models.WalletTransaction
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND reference_id = ? AND type = ?", accountID, referenceID, txType).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) CreateTransaction(ctx context.Context, entry *models.WalletTransaction) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) CreditBalance(ctx context.Context, accountID uuid.UUID, amountCents int64) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE wallet_accounts
		SET balance_cents = balance_cents + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, amountCents, accountID).Error
}

// DebitBalance applies a guarded atomic decrement. The balance check lives in
// the WHERE clause so two concurrent debits can never both spend the same
// funds; false means the guard rejected the debit.
func (r *repository) DebitBalance(ctx context.Context, accountID uuid.UUID, amountCents int64) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE wallet_accounts
		SET balance_cents = balance_cents - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND balance_cents >= ?
	`, amountCents, accountID, amountCents)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) ListTransactions(ctx context.Context, accountID uuid.UUID, params pagination.Params) ([]models.WalletTransaction, error) {
	query := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var entries []models.WalletTransaction
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
