package wallet

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sahilverma-dev/threadcart-backend/pkg/db/models"
	"github.com/sahilverma-dev/threadcart-backend/pkg/enums"
	pkgerrors "github.com/sahilverma-dev/threadcart-backend/pkg/errors"
	"github.com/sahilverma-dev/threadcart-backend/pkg/outbox"
	"github.com/sahilverma-dev/threadcart-backend/pkg/pagination"
)

type fakeRepository struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*models.WalletAccount
	byUser   map[uuid.UUID]uuid.UUID
	entries  []*models.WalletTransaction
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		accounts: map[uuid.UUID]*models.WalletAccount{},
		byUser:   map[uuid.UUID]uuid.UUID{},
	}
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) FindAccountByUserID(ctx context.Context, userID uuid.UUID) (*models.WalletAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byUser[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *f.accounts[id]
	return &copied, nil
}

func (f *fakeRepository) FindAccountByID(ctx context.Context, accountID uuid.UUID) (*models.WalletAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[accountID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *account
	return &copied, nil
}

func (f *fakeRepository) CreateAccount(ctx context.Context, account *models.WalletAccount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	account.ID = uuid.New()
	stored := *account
	f.accounts[account.ID] = &stored
	f.byUser[account.UserID] = account.ID
	return nil
}

func (f *fakeRepository) FindTransactionByReference(ctx context.Context, accountID uuid.UUID, referenceID string, txType enums.WalletTransactionType) (*models.WalletTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, entry := range f.entries {
		if entry.AccountID == accountID && entry.ReferenceID == referenceID && entry.Type == txType {
			copied := *entry
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) CreateTransaction(ctx context.Context, entry *models.WalletTransaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()
	stored := *entry
	f.entries = append(f.entries, &stored)
	return nil
}

func (f *fakeRepository) CreditBalance(ctx context.Context, accountID uuid.UUID, amountCents int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[accountID].BalanceCents += amountCents
	return nil
}

func (f *fakeRepository) DebitBalance(ctx context.Context, accountID uuid.UUID, amountCents int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account := f.accounts[accountID]
	if account.BalanceCents < amountCents {
		return false, nil
	}
	account.BalanceCents -= amountCents
	return true, nil
}

func (f *fakeRepository) ListTransactions(ctx context.Context, accountID uuid.UUID, params pagination.Params) ([]models.WalletTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.WalletTransaction
	for i := len(f.entries) - 1; i >= 0; i-- {
		if f.entries[i].AccountID == accountID {
			out = append(out, *f.entries[i])
		}
	}
	return out, nil
}

func (f *fakeRepository) balanceFor(userID uuid.UUID) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byUser[userID]
	if !ok {
		return 0
	}
	return f.accounts[id].BalanceCents
}

func (f *fakeRepository) entryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakeOutbox struct {
	mu     sync.Mutex
	events []outbox.DomainEvent
}

func (f *fakeOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func newTestService(t *testing.T) (Service, *fakeRepository, *fakeOutbox) {
	t.Helper()
	repo := newFakeRepository()
	events := &fakeOutbox{}
	svc, err := NewService(repo, fakeTxRunner{}, events)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc, repo, events
}

func TestService_CreditThenDebit(t *testing.T) {
	svc, repo, events := newTestService(t)
	userID := uuid.New()

	credit, err := svc.Credit(context.Background(), EntryInput{
		UserID:      userID,
		AmountCents: 50000,
		Description: "refund for order 42",
		ReferenceID: "refund-42",
	})
	if err != nil {
		t.Fatalf("Credit error: %v", err)
	}
	if credit.BalanceAfterCents != 50000 {
		t.Fatalf("unexpected balance after credit: %d", credit.BalanceAfterCents)
	}

	debit, err := svc.Debit(context.Background(), EntryInput{
		UserID:      userID,
		AmountCents: 20000,
		Description: "payment for order 43",
		ReferenceID: "order-43",
	})
	if err != nil {
		t.Fatalf("Debit error: %v", err)
	}
	if debit.BalanceAfterCents != 30000 {
		t.Fatalf("unexpected balance after debit: %d", debit.BalanceAfterCents)
	}

	if got := repo.balanceFor(userID); got != 30000 {
		t.Fatalf("stored balance = %d, want 30000", got)
	}
	if len(events.events) != 2 {
		t.Fatalf("expected 2 outbox events, got %d", len(events.events))
	}
}

func TestService_DebitInsufficientBalance(t *testing.T) {
	svc, repo, _ := newTestService(t)
	userID := uuid.New()

	if _, err := svc.Credit(context.Background(), EntryInput{
		UserID:      userID,
		AmountCents: 1000,
		Description: "promo credit",
		ReferenceID: "promo-1",
	}); err != nil {
		t.Fatalf("Credit error: %v", err)
	}

	_, err := svc.Debit(context.Background(), EntryInput{
		UserID:      userID,
		AmountCents: 5000,
		Description: "payment",
		ReferenceID: "order-1",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientBalance {
		t.Fatalf("expected INSUFFICIENT_BALANCE, got %v", err)
	}

	// Balance untouched, no debit entry written.
	if got := repo.balanceFor(userID); got != 1000 {
		t.Fatalf("balance changed on rejected debit: %d", got)
	}
	if repo.entryCount() != 1 {
		t.Fatalf("expected only the credit entry, got %d entries", repo.entryCount())
	}
}

func TestService_CreditIdempotentReplay(t *testing.T) {
	svc, repo, events := newTestService(t)
	userID := uuid.New()
	input := EntryInput{
		UserID:      userID,
		AmountCents: 2500,
		Description: "refund",
		ReferenceID: "refund-77",
	}

	first, err := svc.Credit(context.Background(), input)
	if err != nil {
		t.Fatalf("first Credit error: %v", err)
	}
	second, err := svc.Credit(context.Background(), input)
	if err != nil {
		t.Fatalf("replayed Credit error: %v", err)
	}

	if first.ID != second.ID {
		t.Fatalf("replay created a new entry: %s vs %s", first.ID, second.ID)
	}
	if got := repo.balanceFor(userID); got != 2500 {
		t.Fatalf("balance credited twice: %d", got)
	}
	if len(events.events) != 1 {
		t.Fatalf("replay emitted an extra event: %d", len(events.events))
	}
}

func TestService_DebitIdempotentReplay(t *testing.T) {
	svc, repo, _ := newTestService(t)
	userID := uuid.New()

	if _, err := svc.Credit(context.Background(), EntryInput{
		UserID:      userID,
		AmountCents: 10000,
		Description: "top up",
		ReferenceID: "topup-1",
	}); err != nil {
		t.Fatalf("Credit error: %v", err)
	}

	input := EntryInput{
		UserID:      userID,
		AmountCents: 4000,
		Description: "payment",
		ReferenceID: "order-9",
	}
	first, err := svc.Debit(context.Background(), input)
	if err != nil {
		t.Fatalf("first Debit error: %v", err)
	}
	second, err := svc.Debit(context.Background(), input)
	if err != nil {
		t.Fatalf("replayed Debit error: %v", err)
	}

	if first.ID != second.ID {
		t.Fatalf("replay created a new entry: %s vs %s", first.ID, second.ID)
	}
	if got := repo.balanceFor(userID); got != 6000 {
		t.Fatalf("balance debited twice: %d", got)
	}
}

func TestService_ConcurrentDebitsSingleWinner(t *testing.T) {
	svc, repo, _ := newTestService(t)
	userID := uuid.New()

	if _, err := svc.Credit(context.Background(), EntryInput{
		UserID:      userID,
		AmountCents: 10000,
		Description: "top up",
		ReferenceID: "topup-1",
	}); err != nil {
		t.Fatalf("Credit error: %v", err)
	}

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.Debit(context.Background(), EntryInput{
				UserID:      userID,
				AmountCents: 10000,
				Description: "payment",
				ReferenceID: uuid.NewString(),
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeInsufficientBalance {
			t.Fatalf("loser should fail with INSUFFICIENT_BALANCE, got %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one debit to win, got %d", succeeded)
	}
	if got := repo.balanceFor(userID); got != 0 {
		t.Fatalf("final balance = %d, want 0", got)
	}
}

func TestService_EntryValidation(t *testing.T) {
	svc, _, _ := newTestService(t)

	tests := []struct {
		name  string
		input EntryInput
	}{
		{name: "missing user", input: EntryInput{AmountCents: 100, ReferenceID: "r"}},
		{name: "zero amount", input: EntryInput{UserID: uuid.New(), ReferenceID: "r"}},
		{name: "negative amount", input: EntryInput{UserID: uuid.New(), AmountCents: -5, ReferenceID: "r"}},
		{name: "missing reference", input: EntryInput{UserID: uuid.New(), AmountCents: 100}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Credit(context.Background(), tc.input); err == nil {
				t.Fatalf("expected validation error for credit %s", tc.name)
			}
			if _, err := svc.Debit(context.Background(), tc.input); err == nil {
				t.Fatalf("expected validation error for debit %s", tc.name)
			}
		})
	}
}

func TestService_GetWalletLazyCreate(t *testing.T) {
	svc, _, _ := newTestService(t)
	userID := uuid.New()

	account, err := svc.GetWallet(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetWallet error: %v", err)
	}
	if account.UserID != userID || account.BalanceCents != 0 {
		t.Fatalf("unexpected fresh account: %+v", account)
	}

	again, err := svc.GetWallet(context.Background(), userID)
	if err != nil {
		t.Fatalf("second GetWallet error: %v", err)
	}
	if again.ID != account.ID {
		t.Fatalf("lazy create ran twice: %s vs %s", again.ID, account.ID)
	}
}
