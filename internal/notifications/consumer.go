package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/codigo-learn/lms-backend/pkg/db/models"
	"github.com/codigo-learn/lms-backend/pkg/enums"
	"github.com/codigo-learn/lms-backend/pkg/logger"
	"github.com/codigo-learn/lms-backend/pkg/outbox"
	"github.com/codigo-learn/lms-backend/pkg/outbox/idempotency"
	"github.com/codigo-learn/lms-backend/pkg/outbox/payloads"
)

const enrollmentNotificationConsumer = "enrollment-notifications"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

type pointsLedger interface {
	AddPoints(ctx context.Context, userID uuid.UUID, points int) error
}

// Consumer watches domain events and fans them out as in-app notifications.
// It also applies gamification point awards, which ride the same stream.
type Consumer struct {
	repo         repository
	points       pointsLedger
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	registry     *outbox.DecoderRegistry
	logg         *logger.Logger
}

// NewConsumer builds an enrollment notification consumer.
func NewConsumer(repo repository, points pointsLedger, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if points == nil {
		return nil, fmt.Errorf("points ledger required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		points:       points,
		subscription: subscription,
		idempotency:  manager,
		registry:     buildRegistry(),
		logg:         logg,
	}, nil
}

func buildRegistry() *outbox.DecoderRegistry {
	registry := outbox.NewDecoderRegistry()
	registry.Register(enums.EventEnrollmentActivated, 1, func(raw json.RawMessage) (interface{}, error) {
		var p payloads.EnrollmentActivatedEvent
		return p, json.Unmarshal(raw, &p)
	})
	registry.Register(enums.EventEnrollmentRequested, 1, func(raw json.RawMessage) (interface{}, error) {
		var p payloads.EnrollmentRequestedEvent
		return p, json.Unmarshal(raw, &p)
	})
	registry.Register(enums.EventEnrollmentApproved, 1, func(raw json.RawMessage) (interface{}, error) {
		var p payloads.EnrollmentApprovedEvent
		return p, json.Unmarshal(raw, &p)
	})
	registry.Register(enums.EventEnrollmentDenied, 1, func(raw json.RawMessage) (interface{}, error) {
		var p payloads.EnrollmentDeniedEvent
		return p, json.Unmarshal(raw, &p)
	})
	registry.Register(enums.EventEnrollmentWaitlisted, 1, func(raw json.RawMessage) (interface{}, error) {
		var p payloads.EnrollmentWaitlistedEvent
		return p, json.Unmarshal(raw, &p)
	})
	registry.Register(enums.EventEnrollmentPromoted, 1, func(raw json.RawMessage) (interface{}, error) {
		var p payloads.EnrollmentPromotedEvent
		return p, json.Unmarshal(raw, &p)
	})
	registry.Register(enums.EventEnrollmentWithdrawn, 1, func(raw json.RawMessage) (interface{}, error) {
		var p payloads.EnrollmentWithdrawnEvent
		return p, json.Unmarshal(raw, &p)
	})
	registry.Register(enums.EventEnrollmentCompleted, 1, func(raw json.RawMessage) (interface{}, error) {
		var p payloads.EnrollmentCompletedEvent
		return p, json.Unmarshal(raw, &p)
	})
	registry.Register(enums.EventPaymentFailed, 1, func(raw json.RawMessage) (interface{}, error) {
		var p payloads.PaymentFailedEvent
		return p, json.Unmarshal(raw, &p)
	})
	registry.Register(enums.EventRefundRequested, 1, func(raw json.RawMessage) (interface{}, error) {
		var p payloads.RefundRequestedEvent
		return p, json.Unmarshal(raw, &p)
	})
	registry.Register(enums.EventPointsAwarded, 1, func(raw json.RawMessage) (interface{}, error) {
		var p payloads.PointsAwardedEvent
		return p, json.Unmarshal(raw, &p)
	})
	return registry
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
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": string(eventType),
	})

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

	decoded, err := c.registry.Decode(eventType, envelope.Version, envelope.Data)
	if err != nil {
		// Events this consumer has no decoder for are not its concern.
		c.logg.Info(logCtx, "event type not handled")
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, enrollmentNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.handle(ctx, decoded, envelope.Data); err != nil {
		c.logg.Error(logCtx, "event handling failed", err)
		_ = c.idempotency.Delete(ctx, enrollmentNotificationConsumer, eventID)
		return processResult{nack: true}
	}
	return processResult{ack: true}
}

func (c *Consumer) handle(ctx context.Context, decoded interface{}, raw json.RawMessage) error {
	switch payload := decoded.(type) {
	case payloads.EnrollmentActivatedEvent:
		return c.notify(ctx, payload.UserID, &payload.CourseID, enums.NotificationEnrollmentConfirmed,
			"Enrollment confirmed", "You are enrolled. Your course materials are now available.", raw)
	case payloads.EnrollmentRequestedEvent:
		return c.notify(ctx, payload.UserID, &payload.CourseID, enums.NotificationEnrollmentPending,
			"Enrollment pending", "Your enrollment request is waiting for instructor review.", raw)
	case payloads.EnrollmentApprovedEvent:
		return c.notify(ctx, payload.UserID, &payload.CourseID, enums.NotificationEnrollmentApproved,
			"Enrollment approved", "Your enrollment request was approved.", raw)
	case payloads.EnrollmentDeniedEvent:
		message := "Your enrollment request was denied."
		if payload.Reason != "" {
			message = fmt.Sprintf("Your enrollment request was denied: %s", payload.Reason)
		}
		return c.notify(ctx, payload.UserID, &payload.CourseID, enums.NotificationEnrollmentDenied,
			"Enrollment denied", message, raw)
	case payloads.EnrollmentWaitlistedEvent:
		return c.notify(ctx, payload.UserID, &payload.CourseID, enums.NotificationWaitlistAdded,
			"Added to waitlist",
			fmt.Sprintf("The course is full. You are number %d on the waitlist.", payload.WaitlistPosition), raw)
	case payloads.EnrollmentPromotedEvent:
		return c.notify(ctx, payload.UserID, &payload.CourseID, enums.NotificationWaitlistPromoted,
			"A seat opened up", "You have been moved off the waitlist and enrolled.", raw)
	case payloads.EnrollmentWithdrawnEvent:
		return c.notify(ctx, payload.UserID, &payload.CourseID, enums.NotificationWithdrawalConfirmed,
			"Withdrawal confirmed", "Your enrollment has been withdrawn.", raw)
	case payloads.EnrollmentCompletedEvent:
		return c.notify(ctx, payload.UserID, &payload.CourseID, enums.NotificationCourseCompleted,
			"Course completed", "Congratulations, you finished the course.", raw)
	case payloads.PaymentFailedEvent:
		message := "Your payment did not go through."
		if payload.Reason != "" {
			message = fmt.Sprintf("Your payment did not go through: %s", payload.Reason)
		}
		return c.notify(ctx, payload.UserID, &payload.CourseID, enums.NotificationPaymentFailed,
			"Payment failed", message, raw)
	case payloads.RefundRequestedEvent:
		return c.notify(ctx, payload.UserID, &payload.CourseID, enums.NotificationRefundIssued,
			"Refund on its way",
			fmt.Sprintf("A refund of %s %s has been requested.", payload.Amount.StringFixed(2), payload.Currency), raw)
	case payloads.PointsAwardedEvent:
		return c.points.AddPoints(ctx, payload.UserID, payload.Points)
	default:
		return nil
	}
}

func (c *Consumer) notify(ctx context.Context, userID uuid.UUID, courseID *uuid.UUID, kind enums.NotificationType, title, message string, raw json.RawMessage) error {
	if userID == uuid.Nil {
		return fmt.Errorf("user id missing in payload")
	}
	return c.repo.Create(ctx, &models.Notification{
		UserID:   userID,
		CourseID: courseID,
		Type:     kind,
		Status:   enums.NotificationStatusPending,
		Title:    title,
		Message:  message,
		Data:     raw,
	})
}
