package registry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/codigo-learn/lms-backend/pkg/config"
	"github.com/codigo-learn/lms-backend/pkg/db/models"
	"github.com/codigo-learn/lms-backend/pkg/enums"
	"github.com/codigo-learn/lms-backend/pkg/outbox"
	"github.com/codigo-learn/lms-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
)

// EventDescriptor links an event type to its aggregate/topic/payload schema.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
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
	if cfg.EnrollmentTopic == "" {
		return nil, fmt.Errorf("enrollment topic is required")
	}
	if cfg.PaymentTopic == "" {
		return nil, fmt.Errorf("payment topic is required")
	}
	if cfg.NotificationTopic == "" {
		return nil, fmt.Errorf("notification topic is required")
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}
	enrollmentTopic := cfg.EnrollmentTopic
	paymentTopic := cfg.PaymentTopic
	notificationTopic := cfg.NotificationTopic

	for _, desc := range []EventDescriptor{
		{
			EventType:      enums.EventEnrollmentRequested,
			AggregateType:  enums.AggregateEnrollment,
			Topic:          enrollmentTopic,
			PayloadFactory: func() interface{} { return &payloads.EnrollmentRequestedEvent{} },
		},
		{
			EventType:      enums.EventEnrollmentActivated,
			AggregateType:  enums.AggregateEnrollment,
			Topic:          enrollmentTopic,
			PayloadFactory: func() interface{} { return &payloads.EnrollmentActivatedEvent{} },
		},
		{
			EventType:      enums.EventEnrollmentWaitlisted,
			AggregateType:  enums.AggregateEnrollment,
			Topic:          enrollmentTopic,
			PayloadFactory: func() interface{} { return &payloads.EnrollmentWaitlistedEvent{} },
		},
		{
			EventType:      enums.EventEnrollmentApproved,
			AggregateType:  enums.AggregateEnrollment,
			Topic:          enrollmentTopic,
			PayloadFactory: func() interface{} { return &payloads.EnrollmentApprovedEvent{} },
		},
		{
			EventType:      enums.EventEnrollmentDenied,
			AggregateType:  enums.AggregateEnrollment,
			Topic:          enrollmentTopic,
			PayloadFactory: func() interface{} { return &payloads.EnrollmentDeniedEvent{} },
		},
		{
			EventType:      enums.EventEnrollmentWithdrawn,
			AggregateType:  enums.AggregateEnrollment,
			Topic:          enrollmentTopic,
			PayloadFactory: func() interface{} { return &payloads.EnrollmentWithdrawnEvent{} },
		},
		{
			EventType:      enums.EventEnrollmentPromoted,
			AggregateType:  enums.AggregateEnrollment,
			Topic:          enrollmentTopic,
			PayloadFactory: func() interface{} { return &payloads.EnrollmentPromotedEvent{} },
		},
		{
			EventType:      enums.EventEnrollmentCompleted,
			AggregateType:  enums.AggregateEnrollment,
			Topic:          enrollmentTopic,
			PayloadFactory: func() interface{} { return &payloads.EnrollmentCompletedEvent{} },
		},
		{
			EventType:      enums.EventEnrollmentExpired,
			AggregateType:  enums.AggregateEnrollment,
			Topic:          enrollmentTopic,
			PayloadFactory: func() interface{} { return &payloads.EnrollmentExpiredEvent{} },
		},
	} {
		reg.register(desc)
	}
	reg.register(EventDescriptor{
		EventType:      enums.EventPaymentFailed,
		AggregateType:  enums.AggregatePayment,
		Topic:          paymentTopic,
		PayloadFactory: func() interface{} { return &payloads.PaymentFailedEvent{} },
	})
	reg.register(EventDescriptor{
		EventType:      enums.EventRefundRequested,
		AggregateType:  enums.AggregatePayment,
		Topic:          paymentTopic,
		PayloadFactory: func() interface{} { return &payloads.RefundRequestedEvent{} },
	})
	reg.register(EventDescriptor{
		EventType:      enums.EventPointsAwarded,
		AggregateType:  enums.AggregateEnrollment,
		Topic:          notificationTopic,
		PayloadFactory: func() interface{} { return &payloads.PointsAwardedEvent{} },
	})

	return reg, nil
}

func (r *EventRegistry) register(desc EventDescriptor) {
	if desc.PayloadFactory == nil {
		return
	}
	r.entries[desc.EventType] = desc
}

// Resolve validates the row and decodes its typed payload.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	}
	if desc.AggregateType != event.AggregateType {
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType))
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
