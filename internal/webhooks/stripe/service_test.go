package stripewebhook

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"

	"github.com/codigo-learn/lms-backend/pkg/db/models"
	"github.com/codigo-learn/lms-backend/pkg/logger"
)

type fakeEngine struct {
	succeeded []uuid.UUID
	failed    []uuid.UUID
	refunded  []uuid.UUID
	reasons   []string
}

func (f *fakeEngine) HandlePaymentSucceeded(_ context.Context, paymentID uuid.UUID) error {
	f.succeeded = append(f.succeeded, paymentID)
	return nil
}

func (f *fakeEngine) HandlePaymentFailed(_ context.Context, paymentID uuid.UUID, reason string) error {
	f.failed = append(f.failed, paymentID)
	f.reasons = append(f.reasons, reason)
	return nil
}

func (f *fakeEngine) HandleRefundCompleted(_ context.Context, paymentID uuid.UUID) error {
	f.refunded = append(f.refunded, paymentID)
	return nil
}

type fakePaymentFinder struct {
	byRef map[string]*models.Payment
}

func (f *fakePaymentFinder) FindByProviderRef(_ context.Context, ref string) (*models.Payment, error) {
	return f.byRef[ref], nil
}

type fakeIdempotencyStore struct {
	keys map[string]bool
}

func (f *fakeIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (f *fakeIdempotencyStore) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if f.keys == nil {
		f.keys = make(map[string]bool)
	}
	if f.keys[key] {
		return false, nil
	}
	f.keys[key] = true
	return true, nil
}

func (f *fakeIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	if f.keys[key] {
		return "1", nil
	}
	return "", nil
}

func (f *fakeIdempotencyStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.keys, key)
	}
	return nil
}

func newTestService(t *testing.T) (*Service, *fakeEngine, *fakePaymentFinder) {
	t.Helper()
	guard, err := NewIdempotencyGuard(&fakeIdempotencyStore{}, time.Hour, "stripe-webhook")
	require.NoError(t, err)

	engine := &fakeEngine{}
	finder := &fakePaymentFinder{byRef: make(map[string]*models.Payment)}
	svc, err := NewService(ServiceParams{
		Enrollments: engine,
		Payments:    finder,
		Guard:       guard,
		Logger:      logger.New(logger.Options{ServiceName: "test"}),
	})
	require.NoError(t, err)
	return svc, engine, finder
}

func intentEvent(t *testing.T, eventType stripe.EventType, intent stripe.PaymentIntent) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(intent)
	require.NoError(t, err)
	return &stripe.Event{
		ID:   "evt_" + uuid.NewString(),
		Type: eventType,
		Data: &stripe.EventData{Raw: raw},
	}
}

func TestHandleEventPaymentSucceededUsesMetadata(t *testing.T) {
	svc, engine, _ := newTestService(t)
	paymentID := uuid.New()

	event := intentEvent(t, stripe.EventTypePaymentIntentSucceeded, stripe.PaymentIntent{
		ID:       "pi_123",
		Metadata: map[string]string{"payment_id": paymentID.String()},
	})
	require.NoError(t, svc.HandleEvent(context.Background(), event))
	require.Equal(t, []uuid.UUID{paymentID}, engine.succeeded)
}

func TestHandleEventFallsBackToProviderRef(t *testing.T) {
	svc, engine, finder := newTestService(t)
	payment := &models.Payment{ID: uuid.New()}
	finder.byRef["pi_456"] = payment

	event := intentEvent(t, stripe.EventTypePaymentIntentSucceeded, stripe.PaymentIntent{ID: "pi_456"})
	require.NoError(t, svc.HandleEvent(context.Background(), event))
	require.Equal(t, []uuid.UUID{payment.ID}, engine.succeeded)
}

func TestHandleEventPaymentFailedCarriesReason(t *testing.T) {
	svc, engine, _ := newTestService(t)
	paymentID := uuid.New()

	event := intentEvent(t, stripe.EventTypePaymentIntentPaymentFailed, stripe.PaymentIntent{
		ID:               "pi_789",
		Metadata:         map[string]string{"payment_id": paymentID.String()},
		LastPaymentError: &stripe.Error{Msg: "card declined"},
	})
	require.NoError(t, svc.HandleEvent(context.Background(), event))
	require.Equal(t, []uuid.UUID{paymentID}, engine.failed)
	require.Equal(t, []string{"card declined"}, engine.reasons)
}

func TestHandleEventChargeRefunded(t *testing.T) {
	svc, engine, finder := newTestService(t)
	payment := &models.Payment{ID: uuid.New()}
	finder.byRef["pi_refunded"] = payment

	charge := stripe.Charge{
		ID:            "ch_123",
		PaymentIntent: &stripe.PaymentIntent{ID: "pi_refunded"},
	}
	raw, err := json.Marshal(charge)
	require.NoError(t, err)
	event := &stripe.Event{
		ID:   "evt_" + uuid.NewString(),
		Type: stripe.EventTypeChargeRefunded,
		Data: &stripe.EventData{Raw: raw},
	}
	require.NoError(t, svc.HandleEvent(context.Background(), event))
	require.Equal(t, []uuid.UUID{payment.ID}, engine.refunded)
}

func TestHandleEventSkipsDuplicateDeliveries(t *testing.T) {
	svc, engine, _ := newTestService(t)
	paymentID := uuid.New()

	event := intentEvent(t, stripe.EventTypePaymentIntentSucceeded, stripe.PaymentIntent{
		ID:       "pi_dup",
		Metadata: map[string]string{"payment_id": paymentID.String()},
	})
	require.NoError(t, svc.HandleEvent(context.Background(), event))
	require.NoError(t, svc.HandleEvent(context.Background(), event))
	require.Len(t, engine.succeeded, 1)
}

func TestHandleEventReleasesMarkOnFailure(t *testing.T) {
	svc, engine, _ := newTestService(t)

	// Unknown payment: no metadata, no provider ref on record.
	event := intentEvent(t, stripe.EventTypePaymentIntentSucceeded, stripe.PaymentIntent{ID: "pi_missing"})
	require.Error(t, svc.HandleEvent(context.Background(), event))

	// The retry is not treated as a duplicate.
	require.Error(t, svc.HandleEvent(context.Background(), event))
	require.Empty(t, engine.succeeded)
}

func TestHandleEventAcknowledgesUnhandledTypes(t *testing.T) {
	svc, engine, _ := newTestService(t)

	event := &stripe.Event{
		ID:   "evt_other",
		Type: stripe.EventType("customer.created"),
		Data: &stripe.EventData{Raw: json.RawMessage(`{}`)},
	}
	require.NoError(t, svc.HandleEvent(context.Background(), event))
	require.Empty(t, engine.succeeded)
	require.Empty(t, engine.failed)
}
