package stripewebhook

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/codigo-learn/lms-backend/pkg/db/models"
	pkgerrors "github.com/codigo-learn/lms-backend/pkg/errors"
	"github.com/codigo-learn/lms-backend/pkg/logger"
)

// enrollmentEngine is the slice of the enrollment workflow the webhook
// drives. Both calls are idempotent on their side; the guard here only
// short-circuits obvious replays.
type enrollmentEngine interface {
	HandlePaymentSucceeded(ctx context.Context, paymentID uuid.UUID) error
	HandlePaymentFailed(ctx context.Context, paymentID uuid.UUID, reason string) error
	HandleRefundCompleted(ctx context.Context, paymentID uuid.UUID) error
}

type paymentFinder interface {
	FindByProviderRef(ctx context.Context, providerRef string) (*models.Payment, error)
}

type ServiceParams struct {
	Enrollments enrollmentEngine
	Payments    paymentFinder
	Guard       *IdempotencyGuard
	Logger      *logger.Logger
}

type Service struct {
	enrollments enrollmentEngine
	payments    paymentFinder
	guard       *IdempotencyGuard
	logg        *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Enrollments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "enrollment engine required")
	}
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment finder required")
	}
	if params.Guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		enrollments: params.Enrollments,
		payments:    params.Payments,
		guard:       params.Guard,
		logg:        params.Logger,
	}, nil
}

// HandleEvent routes one verified Stripe event. Unhandled event types are
// acknowledged so Stripe stops retrying them.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	duplicate, err := s.guard.CheckAndMark(ctx, event.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check event idempotency")
	}
	if duplicate {
		s.logg.Info(s.logg.WithField(ctx, "event_id", event.ID), "duplicate stripe event skipped")
		return nil
	}

	if err := s.dispatch(ctx, event); err != nil {
		// Release the mark so Stripe's retry gets another attempt.
		if delErr := s.guard.Delete(ctx, event.ID); delErr != nil {
			s.logg.Warn(ctx, "failed to release idempotency mark: "+delErr.Error())
		}
		return err
	}
	return nil
}

func (s *Service) dispatch(ctx context.Context, event *stripe.Event) error {
	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		intent, err := decodeIntent(event)
		if err != nil {
			return err
		}
		paymentID, err := s.resolvePaymentID(ctx, intent)
		if err != nil {
			return err
		}
		return s.enrollments.HandlePaymentSucceeded(ctx, paymentID)

	case stripe.EventTypePaymentIntentPaymentFailed:
		intent, err := decodeIntent(event)
		if err != nil {
			return err
		}
		paymentID, err := s.resolvePaymentID(ctx, intent)
		if err != nil {
			return err
		}
		return s.enrollments.HandlePaymentFailed(ctx, paymentID, failureReason(intent))

	case stripe.EventTypePaymentIntentCanceled:
		intent, err := decodeIntent(event)
		if err != nil {
			return err
		}
		paymentID, err := s.resolvePaymentID(ctx, intent)
		if err != nil {
			return err
		}
		return s.enrollments.HandlePaymentFailed(ctx, paymentID, "payment canceled")

	case stripe.EventTypeChargeRefunded:
		charge, err := decodeCharge(event)
		if err != nil {
			return err
		}
		if charge.PaymentIntent == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "refunded charge carries no payment intent")
		}
		paymentID, err := s.resolvePaymentID(ctx, charge.PaymentIntent)
		if err != nil {
			return err
		}
		return s.enrollments.HandleRefundCompleted(ctx, paymentID)

	default:
		s.logg.Info(s.logg.WithField(ctx, "event_type", string(event.Type)),
			"unhandled stripe event acknowledged")
		return nil
	}
}

func decodeCharge(event *stripe.Event) (*stripe.Charge, error) {
	var charge stripe.Charge
	if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode charge event")
	}
	return &charge, nil
}

func decodeIntent(event *stripe.Event) (*stripe.PaymentIntent, error) {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent event")
	}
	return &intent, nil
}

// resolvePaymentID prefers the payment_id stamped into intent metadata at
// creation time, falling back to a provider-ref lookup for intents created
// before metadata stamping.
func (s *Service) resolvePaymentID(ctx context.Context, intent *stripe.PaymentIntent) (uuid.UUID, error) {
	if raw, ok := intent.Metadata["payment_id"]; ok {
		id, err := uuid.Parse(raw)
		if err == nil {
			return id, nil
		}
		s.logg.Warn(ctx, "unparseable payment_id in intent metadata: "+raw)
	}

	payment, err := s.payments.FindByProviderRef(ctx, intent.ID)
	if err != nil {
		return uuid.Nil, err
	}
	if payment == nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "no payment recorded for intent "+intent.ID)
	}
	return payment.ID, nil
}

func failureReason(intent *stripe.PaymentIntent) string {
	if intent.LastPaymentError != nil && intent.LastPaymentError.Msg != "" {
		return intent.LastPaymentError.Msg
	}
	return "payment failed"
}
