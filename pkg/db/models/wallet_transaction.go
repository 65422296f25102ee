package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sahilverma-dev/threadcart-backend/pkg/enums"
)

// WalletTransaction is one immutable ledger entry. The unique index on
// (account_id, reference_id, type) is what makes retried credits and debits
// no-ops instead of double postings.
type WalletTransaction struct {
	ID                uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID         uuid.UUID                   `gorm:"column:account_id;type:uuid;not null;uniqueIndex:idx_wallet_tx_reference,priority:1"`
	Type              enums.WalletTransactionType `gorm:"column:type;type:wallet_transaction_type;not null;uniqueIndex:idx_wallet_tx_reference,priority:3"`
	AmountCents       int64                       `gorm:"column:amount_cents;not null"`
	BalanceAfterCents int64                       `gorm:"column:balance_after_cents;not null"`
	Description       string                      `gorm:"column:description;not null"`
	ReferenceID       string                      `gorm:"column:reference_id;not null;uniqueIndex:idx_wallet_tx_reference,priority:2"`
	CreatedAt         time.Time                   `gorm:"column:created_at;autoCreateTime"`
}
