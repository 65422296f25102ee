package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/sahilverma-dev/threadcart-backend/pkg/db/models"
	"github.com/sahilverma-dev/threadcart-backend/pkg/enums"
	"github.com/sahilverma-dev/threadcart-backend/pkg/logger"
	"github.com/sahilverma-dev/threadcart-backend/pkg/outbox"
	"github.com/sahilverma-dev/threadcart-backend/pkg/outbox/idempotency"
	"github.com/sahilverma-dev/threadcart-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
)

const eventNotificationConsumer = "event-notifications"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Consumer watches published domain events and turns order, refund and wallet
// activity into in-app notifications for the affected customer.
type Consumer struct {
	repo         repository
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds an event notification consumer for the given subscription.
func NewConsumer(repo repository, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("event subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	fields := map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	}
	logCtx := c.logg.WithFields(ctx, fields)

	if !notifiableEvents[eventType] {
		c.logg.Info(logCtx, "skipping event without notification mapping")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, eventNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	notification, err := buildNotification(eventType, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		_ = c.idempotency.Delete(ctx, eventNotificationConsumer, eventID)
		return processResult{nack: true}
	}
	if notification == nil {
		return processResult{ack: true}
	}

	if err := c.repo.Create(ctx, notification); err != nil {
		c.logg.Error(logCtx, "notification insert failed", err)
		_ = c.idempotency.Delete(ctx, eventNotificationConsumer, eventID)
		return processResult{nack: true}
	}
	c.logg.Info(c.logg.WithField(logCtx, "user_id", notification.UserID.String()), "notification created")
	return processResult{ack: true}
}

var notifiableEvents = map[enums.OutboxEventType]bool{
	enums.EventOrderStatusChanged: true,
	enums.EventRefundCompleted:    true,
	enums.EventRefundFailed:       true,
	enums.EventWalletCredited:     true,
	enums.EventWalletDebited:      true,
}

func buildNotification(eventType enums.OutboxEventType, data json.RawMessage) (*models.Notification, error) {
	switch eventType {
	case enums.EventOrderStatusChanged:
		var payload payloads.OrderStatusEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return orderStatusNotification(payload), nil
	case enums.EventRefundCompleted, enums.EventRefundFailed:
		var payload payloads.RequestEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return refundNotification(eventType, payload), nil
	case enums.EventWalletCredited, enums.EventWalletDebited:
		var payload payloads.WalletEntryEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return walletNotification(payload), nil
	default:
		return nil, nil
	}
}

func orderStatusNotification(payload payloads.OrderStatusEvent) *models.Notification {
	if payload.UserID == uuid.Nil {
		return nil
	}
	title := "Order update"
	message := fmt.Sprintf("Order #%d is now %s.", payload.OrderNumber, payload.ToStatus)
	switch payload.ToStatus {
	case enums.OrderStatusShipped:
		title = "Order shipped"
		message = fmt.Sprintf("Order #%d has left the warehouse.", payload.OrderNumber)
	case enums.OrderStatusDelivered:
		title = "Order delivered"
		message = fmt.Sprintf("Order #%d was delivered. We hope it fits!", payload.OrderNumber)
	case enums.OrderStatusCancelled:
		title = "Order cancelled"
		message = fmt.Sprintf("Order #%d has been cancelled.", payload.OrderNumber)
	}
	link := fmt.Sprintf("/orders/%s", payload.OrderID)
	return &models.Notification{
		UserID:  payload.UserID,
		Type:    enums.NotificationTypeOrderUpdate,
		Title:   title,
		Message: message,
		Link:    stringPtr(link),
	}
}

func refundNotification(eventType enums.OutboxEventType, payload payloads.RequestEvent) *models.Notification {
	if payload.UserID == uuid.Nil {
		return nil
	}
	link := fmt.Sprintf("/orders/%s", payload.OrderID)
	if eventType == enums.EventRefundFailed {
		return &models.Notification{
			UserID:  payload.UserID,
			Type:    enums.NotificationTypeRefundUpdate,
			Title:   "Refund delayed",
			Message: "We hit a snag processing your refund. Our team is looking into it.",
			Link:    stringPtr(link),
		}
	}
	return &models.Notification{
		UserID:  payload.UserID,
		Type:    enums.NotificationTypeRefundUpdate,
		Title:   "Refund issued",
		Message: fmt.Sprintf("Your refund of %s via %s has been processed.", formatINR(payload.RefundAmountCents), payload.RefundMethod),
		Link:    stringPtr(link),
	}
}

func walletNotification(payload payloads.WalletEntryEvent) *models.Notification {
	if payload.UserID == uuid.Nil {
		return nil
	}
	title := "Wallet credited"
	message := fmt.Sprintf("%s was added to your wallet.", formatINR(payload.AmountCents))
	if payload.Type == enums.WalletTransactionDebit {
		title = "Wallet debited"
		message = fmt.Sprintf("%s was deducted from your wallet.", formatINR(payload.AmountCents))
	}
	return &models.Notification{
		UserID:  payload.UserID,
		Type:    enums.NotificationTypeWalletUpdate,
		Title:   title,
		Message: message,
		Link:    stringPtr("/wallet"),
	}
}

func formatINR(cents int64) string {
	if cents < 0 {
		cents = -cents
	}
	return fmt.Sprintf("₹%d.%02d", cents/100, cents%100)
}

func stringPtr(value string) *string {
	return &value
}
