package registry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/sahilverma-dev/threadcart-backend/pkg/config"
	"github.com/sahilverma-dev/threadcart-backend/pkg/db/models"
	"github.com/sahilverma-dev/threadcart-backend/pkg/enums"
	"github.com/sahilverma-dev/threadcart-backend/pkg/outbox"
	"github.com/sahilverma-dev/threadcart-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
)

// EventDescriptor links an event type to its allowed aggregates, topic and
// payload schema. Request-level events accept either request aggregate
// because the same event type covers cancel and return flows.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateTypes []enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() interface{}
}

// ResolvedEvent is the result of decoding an outbox row.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    interface{}
}

// EventRegistry maps each supported event type to its descriptor.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError signals the dispatcher should stop retrying a row.
type NonRetryableError struct {
	Err error
}

// Error implements error.
func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

// Unwrap exposes the wrapped error.
func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// NewEventRegistry builds the registry with the configured topic names.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.OrdersTopic == "" {
		return nil, fmt.Errorf("orders topic is required")
	}
	if cfg.WalletTopic == "" {
		return nil, fmt.Errorf("wallet topic is required")
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}
	ordersTopic := cfg.OrdersTopic
	walletTopic := cfg.WalletTopic

	orderAggregate := []enums.OutboxAggregateType{enums.AggregateOrder}
	requestAggregates := []enums.OutboxAggregateType{
		enums.AggregateCancelRequest,
		enums.AggregateReturnRequest,
	}

	for _, eventType := range []enums.OutboxEventType{
		enums.EventOrderCreated,
		enums.EventOrderStatusChanged,
		enums.EventOrderPaymentVerified,
	} {
		reg.register(EventDescriptor{
			EventType:      eventType,
			AggregateTypes: orderAggregate,
			Topic:          ordersTopic,
			PayloadFactory: func() interface{} { return &payloads.OrderStatusEvent{} },
		})
	}

	reg.register(EventDescriptor{
		EventType:      enums.EventCancelRequested,
		AggregateTypes: []enums.OutboxAggregateType{enums.AggregateCancelRequest},
		Topic:          ordersTopic,
		PayloadFactory: func() interface{} { return &payloads.RequestEvent{} },
	})
	reg.register(EventDescriptor{
		EventType:      enums.EventReturnRequested,
		AggregateTypes: []enums.OutboxAggregateType{enums.AggregateReturnRequest},
		Topic:          ordersTopic,
		PayloadFactory: func() interface{} { return &payloads.RequestEvent{} },
	})
	for _, eventType := range []enums.OutboxEventType{
		enums.EventRequestResolved,
		enums.EventRefundCompleted,
		enums.EventRefundFailed,
	} {
		reg.register(EventDescriptor{
			EventType:      eventType,
			AggregateTypes: requestAggregates,
			Topic:          ordersTopic,
			PayloadFactory: func() interface{} { return &payloads.RequestEvent{} },
		})
	}

	for _, eventType := range []enums.OutboxEventType{
		enums.EventWalletCredited,
		enums.EventWalletDebited,
	} {
		reg.register(EventDescriptor{
			EventType:      eventType,
			AggregateTypes: []enums.OutboxAggregateType{enums.AggregateWalletTransaction},
			Topic:          walletTopic,
			PayloadFactory: func() interface{} { return &payloads.WalletEntryEvent{} },
		})
	}

	return reg, nil
}

func (r *EventRegistry) register(desc EventDescriptor) {
	if desc.PayloadFactory == nil {
		return
	}
	r.entries[desc.EventType] = desc
}

func (d EventDescriptor) allowsAggregate(aggregate enums.OutboxAggregateType) bool {
	for _, candidate := range d.AggregateTypes {
		if candidate == aggregate {
			return true
		}
	}
	return false
}

// Resolve validates the row and decodes its typed payload.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	}
	if !desc.allowsAggregate(event.AggregateType) {
		return nil, NewNonRetryableError(fmt.Errorf("aggregate %s not allowed for %s", event.AggregateType, event.EventType))
	}
	if event.AggregateID == uuid.Nil {
		return nil, NewNonRetryableError(fmt.Errorf("missing aggregate_id"))
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode envelope: %w", err))
	}

	trimmed := bytes.TrimSpace(envelope.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, NewNonRetryableError(fmt.Errorf("payload missing for %s", event.EventType))
	}

	payload := desc.PayloadFactory()
	if payload == nil {
		return nil, NewNonRetryableError(fmt.Errorf("payload factory not configured for %s", event.EventType))
	}
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}

	return &ResolvedEvent{
		Descriptor: desc,
		Envelope:   envelope,
		Payload:    payload,
	}, nil
}

// NewNonRetryableError wraps an error to signal no retries.
func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}
