package payments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/codigo-learn/lms-backend/pkg/db/models"
	"github.com/codigo-learn/lms-backend/pkg/enums"
	pkgerrors "github.com/codigo-learn/lms-backend/pkg/errors"
)

type fakeRepository struct {
	rows map[uuid.UUID]*models.Payment
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{rows: map[uuid.UUID]*models.Payment{}}
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	copied := *payment
	f.rows[payment.ID] = &copied
	return nil
}

func (f *fakeRepository) Update(ctx context.Context, payment *models.Payment) error {
	copied := *payment
	f.rows[payment.ID] = &copied
	return nil
}

func (f *fakeRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	if row, ok := f.rows[id]; ok {
		copied := *row
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeRepository) LockByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	return f.FindByID(ctx, id)
}

func (f *fakeRepository) FindByProviderRef(ctx context.Context, providerRef string) (*models.Payment, error) {
	for _, row := range f.rows {
		if row.ProviderRef != nil && *row.ProviderRef == providerRef {
			copied := *row
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from []enums.PaymentStatus, to enums.PaymentStatus, updates map[string]any) (bool, error) {
	row, ok := f.rows[id]
	if !ok {
		return false, nil
	}
	matched := false
	for _, status := range from {
		if row.Status == status {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}
	row.Status = to
	if reason, ok := updates["failure_reason"].(string); ok {
		row.FailureReason = &reason
	}
	if at, ok := updates["succeeded_at"].(time.Time); ok {
		row.SucceededAt = &at
	}
	return true, nil
}

func (f *fakeRepository) HasSucceededForUser(ctx context.Context, userID uuid.UUID) (bool, error) {
	for _, row := range f.rows {
		if row.UserID == userID && row.Status == enums.PaymentStatusSucceeded {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepository) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]models.Payment, error) {
	var out []models.Payment
	for _, row := range f.rows {
		if (row.Status == enums.PaymentStatusPending || row.Status == enums.PaymentStatusProcessing) &&
			row.ExpiresAt != nil && !row.ExpiresAt.After(now) {
			out = append(out, *row)
		}
	}
	return out, nil
}

type stubStripeClient struct {
	createCalls  int
	refundCalls  int
	cancelCalls  int
	lastIntent   *stripe.PaymentIntentParams
	lastRefund   *stripe.RefundParams
	createErr    error
	refundErr    error
	nextIntentID string
}

func (s *stubStripeClient) CreateIntent(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	s.createCalls++
	s.lastIntent = params
	if s.createErr != nil {
		return nil, s.createErr
	}
	id := s.nextIntentID
	if id == "" {
		id = "pi_" + uuid.NewString()
	}
	return &stripe.PaymentIntent{ID: id}, nil
}

func (s *stubStripeClient) CancelIntent(ctx context.Context, id string, params *stripe.PaymentIntentCancelParams) (*stripe.PaymentIntent, error) {
	s.cancelCalls++
	return &stripe.PaymentIntent{ID: id}, nil
}

func (s *stubStripeClient) CreateRefund(ctx context.Context, params *stripe.RefundParams) (*stripe.Refund, error) {
	s.refundCalls++
	s.lastRefund = params
	if s.refundErr != nil {
		return nil, s.refundErr
	}
	return &stripe.Refund{ID: "re_" + uuid.NewString()}, nil
}

func newTestService(t *testing.T) (Service, *fakeRepository, *stubStripeClient) {
	t.Helper()
	repo := newFakeRepository()
	gateway := &stubStripeClient{}
	svc, err := NewService(repo, gateway)
	require.NoError(t, err)
	return svc, repo, gateway
}

func TestCreateIntentPersistsProviderRef(t *testing.T) {
	svc, repo, gateway := newTestService(t)
	gateway.nextIntentID = "pi_test_123"

	payment, err := svc.CreateIntent(context.Background(), nil, CreateIntentInput{
		UserID:         uuid.New(),
		CourseID:       uuid.New(),
		Amount:         decimal.RequireFromString("49.99"),
		DiscountAmount: decimal.RequireFromString("10.00"),
		Currency:       enums.CurrencyUSD,
		PendingTTL:     30 * time.Minute,
	})
	require.NoError(t, err)
	require.NotNil(t, payment.ProviderRef)
	assert.Equal(t, "pi_test_123", *payment.ProviderRef)
	assert.Equal(t, enums.PaymentStatusPending, payment.Status)
	// The undiscounted price is kept alongside the charged amount.
	assert.True(t, payment.OriginalAmount.Equal(decimal.RequireFromString("59.99")))
	require.NotNil(t, payment.ExpiresAt)

	require.NotNil(t, gateway.lastIntent)
	assert.Equal(t, int64(4999), *gateway.lastIntent.Amount)
	assert.Equal(t, "usd", *gateway.lastIntent.Currency)
	assert.Equal(t, payment.ID.String(), gateway.lastIntent.Metadata["payment_id"])

	stored, err := repo.FindByProviderRef(context.Background(), "pi_test_123")
	require.NoError(t, err)
	require.NotNil(t, stored)
}

func TestCreateIntentRejectsNonPositiveAmount(t *testing.T) {
	svc, _, gateway := newTestService(t)

	_, err := svc.CreateIntent(context.Background(), nil, CreateIntentInput{
		UserID:   uuid.New(),
		CourseID: uuid.New(),
		Amount:   decimal.Zero,
		Currency: enums.CurrencyUSD,
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Zero(t, gateway.createCalls)
}

func TestMarkSucceededIsCompareAndSwap(t *testing.T) {
	svc, repo, _ := newTestService(t)

	payment := &models.Payment{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		CourseID: uuid.New(),
		Status:   enums.PaymentStatusPending,
		Amount:   decimal.RequireFromString("20.00"),
		Currency: enums.CurrencyUSD,
	}
	require.NoError(t, repo.Create(context.Background(), payment))

	moved, err := svc.MarkSucceeded(context.Background(), nil, payment.ID)
	require.NoError(t, err)
	assert.True(t, moved)

	// A duplicate confirmation is a no-op, not an error.
	moved, err = svc.MarkSucceeded(context.Background(), nil, payment.ID)
	require.NoError(t, err)
	assert.False(t, moved)

	stored, err := repo.FindByID(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusSucceeded, stored.Status)
	assert.NotNil(t, stored.SucceededAt)
}

func TestMarkFailedStoresReason(t *testing.T) {
	svc, repo, _ := newTestService(t)

	payment := &models.Payment{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		CourseID: uuid.New(),
		Status:   enums.PaymentStatusProcessing,
		Amount:   decimal.RequireFromString("20.00"),
		Currency: enums.CurrencyUSD,
	}
	require.NoError(t, repo.Create(context.Background(), payment))

	moved, err := svc.MarkFailed(context.Background(), nil, payment.ID, "card_declined")
	require.NoError(t, err)
	assert.True(t, moved)

	stored, err := repo.FindByID(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusFailed, stored.Status)
	require.NotNil(t, stored.FailureReason)
	assert.Equal(t, "card_declined", *stored.FailureReason)
}

func TestRequestRefundFullAndPartial(t *testing.T) {
	svc, repo, gateway := newTestService(t)

	ref := "pi_refundable"
	payment := &models.Payment{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		CourseID:    uuid.New(),
		Processor:   enums.PaymentProcessorStripe,
		Status:      enums.PaymentStatusSucceeded,
		Amount:      decimal.RequireFromString("100.00"),
		Currency:    enums.CurrencyUSD,
		ProviderRef: &ref,
	}
	require.NoError(t, repo.Create(context.Background(), payment))

	result, err := svc.RequestRefund(context.Background(), nil, payment.ID, decimal.RequireFromString("40.00"), "withdrawal")
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPartiallyRefunded, result.Payment.Status)
	assert.True(t, result.RefundedNow.Equal(decimal.RequireFromString("40.00")))
	assert.Equal(t, 1, gateway.refundCalls)
	assert.Equal(t, int64(4000), *gateway.lastRefund.Amount)

	// Zero amount means "refund the rest".
	result, err = svc.RequestRefund(context.Background(), nil, payment.ID, decimal.Zero, "withdrawal")
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusRefunded, result.Payment.Status)
	assert.True(t, result.Payment.RefundedAmount.Equal(decimal.RequireFromString("100.00")))
}

func TestRequestRefundRejectsUnrefundableStates(t *testing.T) {
	svc, repo, gateway := newTestService(t)

	payment := &models.Payment{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		CourseID: uuid.New(),
		Status:   enums.PaymentStatusPending,
		Amount:   decimal.RequireFromString("50.00"),
		Currency: enums.CurrencyUSD,
	}
	require.NoError(t, repo.Create(context.Background(), payment))

	_, err := svc.RequestRefund(context.Background(), nil, payment.ID, decimal.Zero, "withdrawal")
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
	assert.Zero(t, gateway.refundCalls)
}

func TestRequestRefundFreeCheckoutHasNothingRefundable(t *testing.T) {
	svc, repo, gateway := newTestService(t)

	payment := &models.Payment{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		CourseID:  uuid.New(),
		Processor: enums.PaymentProcessorFree,
		Status:    enums.PaymentStatusSucceeded,
		Amount:    decimal.RequireFromString("0.00"),
		Currency:  enums.CurrencyUSD,
	}
	require.NoError(t, repo.Create(context.Background(), payment))

	_, err := svc.RequestRefund(context.Background(), nil, payment.ID, decimal.Zero, "withdrawal")
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Zero(t, gateway.refundCalls)
}

func TestExpirePaymentCancelsIntent(t *testing.T) {
	svc, repo, gateway := newTestService(t)

	ref := "pi_stale"
	expires := time.Now().Add(-time.Minute)
	payment := &models.Payment{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		CourseID:    uuid.New(),
		Processor:   enums.PaymentProcessorStripe,
		Status:      enums.PaymentStatusPending,
		Amount:      decimal.RequireFromString("25.00"),
		Currency:    enums.CurrencyUSD,
		ProviderRef: &ref,
		ExpiresAt:   &expires,
	}
	require.NoError(t, repo.Create(context.Background(), payment))

	due, err := svc.ListExpiredPending(context.Background(), time.Now(), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)

	moved, err := svc.ExpirePayment(context.Background(), nil, payment.ID)
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, 1, gateway.cancelCalls)

	moved, err = svc.ExpirePayment(context.Background(), nil, payment.ID)
	require.NoError(t, err)
	assert.False(t, moved)
	assert.Equal(t, 1, gateway.cancelCalls)
}
