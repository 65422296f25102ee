package notifications

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/sahilverma-dev/threadcart-backend/pkg/enums"
	"github.com/sahilverma-dev/threadcart-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
)

func mustData(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return data
}

func TestBuildNotificationOrderShipped(t *testing.T) {
	userID := uuid.New()
	orderID := uuid.New()
	data := mustData(t, payloads.OrderStatusEvent{
		OrderID:     orderID,
		OrderNumber: 88,
		UserID:      userID,
		ToStatus:    enums.OrderStatusShipped,
	})

	notification, err := buildNotification(enums.EventOrderStatusChanged, data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if notification == nil {
		t.Fatal("expected notification")
	}
	if notification.UserID != userID {
		t.Fatalf("wrong user: %s", notification.UserID)
	}
	if notification.Type != enums.NotificationTypeOrderUpdate {
		t.Fatalf("wrong type: %s", notification.Type)
	}
	if notification.Title != "Order shipped" {
		t.Fatalf("wrong title: %s", notification.Title)
	}
	if notification.Link == nil || !strings.Contains(*notification.Link, orderID.String()) {
		t.Fatalf("link should point at the order")
	}
}

func TestBuildNotificationRefundCompleted(t *testing.T) {
	userID := uuid.New()
	data := mustData(t, payloads.RequestEvent{
		RequestID:         uuid.New(),
		RequestType:       enums.RequestTypeReturn,
		OrderID:           uuid.New(),
		UserID:            userID,
		RefundStatus:      enums.RefundStatusCompleted,
		RefundMethod:      enums.RefundMethodWallet,
		RefundAmountCents: 149900,
	})

	notification, err := buildNotification(enums.EventRefundCompleted, data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if notification == nil {
		t.Fatal("expected notification")
	}
	if notification.Type != enums.NotificationTypeRefundUpdate {
		t.Fatalf("wrong type: %s", notification.Type)
	}
	if !strings.Contains(notification.Message, "₹1499.00") {
		t.Fatalf("amount missing from message: %s", notification.Message)
	}
	if !strings.Contains(notification.Message, "wallet") {
		t.Fatalf("method missing from message: %s", notification.Message)
	}
}

func TestBuildNotificationRefundFailedHidesDetail(t *testing.T) {
	data := mustData(t, payloads.RequestEvent{
		RequestID: uuid.New(),
		OrderID:   uuid.New(),
		UserID:    uuid.New(),
	})

	notification, err := buildNotification(enums.EventRefundFailed, data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if notification == nil {
		t.Fatal("expected notification")
	}
	if notification.Title != "Refund delayed" {
		t.Fatalf("wrong title: %s", notification.Title)
	}
}

func TestBuildNotificationWalletDebit(t *testing.T) {
	userID := uuid.New()
	data := mustData(t, payloads.WalletEntryEvent{
		TransactionID: uuid.New(),
		AccountID:     uuid.New(),
		UserID:        userID,
		Type:          enums.WalletTransactionDebit,
		AmountCents:   2550,
	})

	notification, err := buildNotification(enums.EventWalletDebited, data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if notification == nil {
		t.Fatal("expected notification")
	}
	if notification.Title != "Wallet debited" {
		t.Fatalf("wrong title: %s", notification.Title)
	}
	if !strings.Contains(notification.Message, "₹25.50") {
		t.Fatalf("amount missing from message: %s", notification.Message)
	}
}

func TestBuildNotificationSkipsMissingUser(t *testing.T) {
	data := mustData(t, payloads.OrderStatusEvent{
		OrderID:  uuid.New(),
		ToStatus: enums.OrderStatusDelivered,
	})

	notification, err := buildNotification(enums.EventOrderStatusChanged, data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if notification != nil {
		t.Fatalf("expected nil notification for missing user, got %+v", notification)
	}
}
