package requests

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sahilverma-dev/threadcart-backend/pkg/db"
	"github.com/sahilverma-dev/threadcart-backend/pkg/db/models"
	dbtypes "github.com/sahilverma-dev/threadcart-backend/pkg/db/types"
	"github.com/sahilverma-dev/threadcart-backend/pkg/enums"
)

func setupRequestsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	cancels := `
CREATE TABLE IF NOT EXISTS cancel_requests (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  reason TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  prior_status TEXT NOT NULL,
  refund_method TEXT NOT NULL DEFAULT 'wallet',
  refund_amount_cents INTEGER NOT NULL CHECK (refund_amount_cents >= 0),
  refund_status TEXT NOT NULL DEFAULT 'none',
  gateway_refund_id TEXT,
  admin_note TEXT,
  resolved_by TEXT,
  resolved_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	returns := `
CREATE TABLE IF NOT EXISTS return_requests (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  reason TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  prior_status TEXT NOT NULL,
  item_ids TEXT NOT NULL,
  resolution TEXT NOT NULL DEFAULT 'refund',
  comment TEXT,
  images TEXT,
  refund_method TEXT NOT NULL,
  refund_amount_cents INTEGER NOT NULL CHECK (refund_amount_cents >= 0),
  refund_status TEXT NOT NULL DEFAULT 'none',
  bank_details TEXT,
  gateway_refund_id TEXT,
  admin_note TEXT,
  resolved_by TEXT,
  resolved_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	openCancels := `
CREATE UNIQUE INDEX IF NOT EXISTS ux_cancel_requests_open_order
  ON cancel_requests (order_id) WHERE status = 'pending';`
	openReturns := `
CREATE UNIQUE INDEX IF NOT EXISTS ux_return_requests_open_order
  ON return_requests (order_id) WHERE status = 'pending';`
	require.NoError(t, conn.Exec(cancels).Error)
	require.NoError(t, conn.Exec(returns).Error)
	require.NoError(t, conn.Exec(openCancels).Error)
	require.NoError(t, conn.Exec(openReturns).Error)
	return conn
}

func insertCancelRequest(t *testing.T, conn *gorm.DB, orderID uuid.UUID) *models.CancelRequest {
	t.Helper()

	req := &models.CancelRequest{
		ID:                uuid.New(),
		OrderID:           orderID,
		UserID:            uuid.New(),
		Reason:            "changed my mind",
		Status:            enums.RequestStatusPending,
		PriorStatus:       enums.OrderStatusProcessing,
		RefundMethod:      enums.RefundMethodWallet,
		RefundAmountCents: 4500,
		RefundStatus:      enums.RefundStatusNone,
	}
	require.NoError(t, conn.Create(req).Error)
	return req
}

func insertReturnRequest(t *testing.T, conn *gorm.DB, orderID uuid.UUID) *models.ReturnRequest {
	t.Helper()

	req := &models.ReturnRequest{
		ID:                uuid.New(),
		OrderID:           orderID,
		UserID:            uuid.New(),
		Reason:            "wrong size",
		Status:            enums.RequestStatusPending,
		PriorStatus:       enums.OrderStatusDelivered,
		ItemIDs:           dbtypes.UUIDArray{uuid.New()},
		Resolution:        enums.ReturnResolutionRefund,
		RefundMethod:      enums.RefundMethodWallet,
		RefundAmountCents: 3000,
		RefundStatus:      enums.RefundStatusNone,
	}
	require.NoError(t, conn.Create(req).Error)
	return req
}

func TestRepositoryClaimCancelRefund_cycle(t *testing.T) {
	conn := setupRequestsTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	req := insertCancelRequest(t, conn, uuid.New())

	claimed, err := repo.ClaimCancelRefund(ctx, req.ID)
	require.NoError(t, err)
	assert.True(t, claimed)

	// Held claims cannot be taken twice.
	claimed, err = repo.ClaimCancelRefund(ctx, req.ID)
	require.NoError(t, err)
	assert.False(t, claimed)

	// A failed refund releases the claim for a retry.
	require.NoError(t, repo.MarkCancelRefundFailed(ctx, req.ID))
	claimed, err = repo.ClaimCancelRefund(ctx, req.ID)
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestRepositoryRejectCancelRequestCAS_blockedByRefundClaim(t *testing.T) {
	conn := setupRequestsTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	req := insertCancelRequest(t, conn, uuid.New())

	claimed, err := repo.ClaimCancelRefund(ctx, req.ID)
	require.NoError(t, err)
	require.True(t, claimed)

	// Money may already be moving; the reject must lose.
	applied, err := repo.RejectCancelRequestCAS(ctx, req.ID, map[string]any{
		"status":      enums.RequestStatusRejected,
		"resolved_by": uuid.New(),
		"resolved_at": time.Now(),
	})
	require.NoError(t, err)
	assert.False(t, applied)

	found, err := repo.FindCancelRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RequestStatusPending, found.Status)
	assert.Equal(t, enums.RefundStatusPending, found.RefundStatus)

	// With no claim in flight a reject applies normally.
	other := insertCancelRequest(t, conn, uuid.New())
	applied, err = repo.RejectCancelRequestCAS(ctx, other.ID, map[string]any{
		"status":      enums.RequestStatusRejected,
		"resolved_by": uuid.New(),
		"resolved_at": time.Now(),
	})
	require.NoError(t, err)
	assert.True(t, applied)
}

func TestRepositoryRejectReturnRequestCAS_blockedByRefundClaim(t *testing.T) {
	conn := setupRequestsTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	req := insertReturnRequest(t, conn, uuid.New())

	claimed, err := repo.ClaimReturnRefund(ctx, req.ID)
	require.NoError(t, err)
	require.True(t, claimed)

	applied, err := repo.RejectReturnRequestCAS(ctx, req.ID, map[string]any{
		"status":      enums.RequestStatusRejected,
		"resolved_by": uuid.New(),
		"resolved_at": time.Now(),
	})
	require.NoError(t, err)
	assert.False(t, applied)

	found, err := repo.FindReturnRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RequestStatusPending, found.Status)
}

func TestRepositoryRecordCancelGatewayRefund(t *testing.T) {
	conn := setupRequestsTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	req := insertCancelRequest(t, conn, uuid.New())

	require.NoError(t, repo.RecordCancelGatewayRefund(ctx, req.ID, "rfnd_abc"))

	found, err := repo.FindCancelRequest(ctx, req.ID)
	require.NoError(t, err)
	require.NotNil(t, found.GatewayRefundID)
	assert.Equal(t, "rfnd_abc", *found.GatewayRefundID)
}

func TestRepositoryOneOpenRequestPerOrder(t *testing.T) {
	conn := setupRequestsTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	orderID := uuid.New()
	first := insertCancelRequest(t, conn, orderID)

	// A second open request for the same order hits the partial index.
	dup := &models.CancelRequest{
		ID:                uuid.New(),
		OrderID:           orderID,
		UserID:            uuid.New(),
		Reason:            "second thoughts",
		Status:            enums.RequestStatusPending,
		PriorStatus:       enums.OrderStatusProcessing,
		RefundMethod:      enums.RefundMethodWallet,
		RefundAmountCents: 4500,
		RefundStatus:      enums.RefundStatusNone,
	}
	err := repo.CreateCancelRequest(ctx, dup)
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err, ""))

	// Once the open request is resolved the order can take a new one.
	applied, err := repo.RejectCancelRequestCAS(ctx, first.ID, map[string]any{
		"status":      enums.RequestStatusRejected,
		"resolved_by": uuid.New(),
		"resolved_at": time.Now(),
	})
	require.NoError(t, err)
	require.True(t, applied)
	require.NoError(t, repo.CreateCancelRequest(ctx, dup))
}
