package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/codigo-learn/lms-backend/pkg/db/models"
	"github.com/codigo-learn/lms-backend/pkg/enums"
	pkgerrors "github.com/codigo-learn/lms-backend/pkg/errors"
)

// CreateIntentInput carries everything needed to raise a charge for a
// paid enrollment. Amount is the final price after any voucher discount.
type CreateIntentInput struct {
	UserID         uuid.UUID
	CourseID       uuid.UUID
	Amount         decimal.Decimal
	DiscountAmount decimal.Decimal
	Currency       enums.Currency
	PendingTTL     time.Duration
}

// RefundResult reports how a refund request settled.
type RefundResult struct {
	Payment     *models.Payment
	RefundedNow decimal.Decimal
}

// Service owns payment rows and the processor boundary. Enrollments
// reference payments by id only; confirmation arrives via webhook.
type Service interface {
	CreateIntent(ctx context.Context, tx *gorm.DB, input CreateIntentInput) (*models.Payment, error)
	MarkSucceeded(ctx context.Context, tx *gorm.DB, paymentID uuid.UUID) (bool, error)
	MarkFailed(ctx context.Context, tx *gorm.DB, paymentID uuid.UUID, reason string) (bool, error)
	RequestRefund(ctx context.Context, tx *gorm.DB, paymentID uuid.UUID, amount decimal.Decimal, reason string) (*RefundResult, error)
	ExpirePayment(ctx context.Context, tx *gorm.DB, paymentID uuid.UUID) (bool, error)
	FindByID(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error)
	FindByProviderRef(ctx context.Context, providerRef string) (*models.Payment, error)
	ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]models.Payment, error)
}

type service struct {
	repo   Repository
	stripe StripePaymentClient
	now    func() time.Time
}

// NewService builds a payment service backed by the repository and Stripe client.
func NewService(repo Repository, stripeClient StripePaymentClient) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payment repository required")
	}
	if stripeClient == nil {
		return nil, fmt.Errorf("stripe client required")
	}
	return &service{repo: repo, stripe: stripeClient, now: time.Now}, nil
}

func (s *service) CreateIntent(ctx context.Context, tx *gorm.DB, input CreateIntentInput) (*models.Payment, error) {
	if input.UserID == uuid.Nil || input.CourseID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user and course ids required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if !input.Currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid currency")
	}

	payment := &models.Payment{
		ID:             uuid.New(),
		UserID:         input.UserID,
		CourseID:       input.CourseID,
		Processor:      enums.PaymentProcessorStripe,
		Status:         enums.PaymentStatusPending,
		Amount:         input.Amount,
		OriginalAmount: input.Amount.Add(input.DiscountAmount),
		DiscountAmount: input.DiscountAmount,
		Currency:       input.Currency,
	}
	if input.PendingTTL > 0 {
		expires := s.now().Add(input.PendingTTL)
		payment.ExpiresAt = &expires
	}

	intent, err := s.stripe.CreateIntent(ctx, &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(minorUnits(input.Amount)),
		Currency: stripe.String(strings.ToLower(string(input.Currency))),
		Metadata: map[string]string{
			"payment_id": payment.ID.String(),
			"user_id":    input.UserID.String(),
			"course_id":  input.CourseID.String(),
		},
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment intent")
	}
	payment.ProviderRef = &intent.ID

	if err := s.repo.WithTx(tx).Create(ctx, payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist payment")
	}
	return payment, nil
}

func (s *service) MarkSucceeded(ctx context.Context, tx *gorm.DB, paymentID uuid.UUID) (bool, error) {
	if paymentID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}
	moved, err := s.repo.WithTx(tx).UpdateStatus(ctx, paymentID,
		[]enums.PaymentStatus{enums.PaymentStatusPending, enums.PaymentStatusProcessing},
		enums.PaymentStatusSucceeded,
		map[string]any{"succeeded_at": s.now()})
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment succeeded")
	}
	return moved, nil
}

func (s *service) MarkFailed(ctx context.Context, tx *gorm.DB, paymentID uuid.UUID, reason string) (bool, error) {
	if paymentID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}
	updates := map[string]any{}
	if reason != "" {
		updates["failure_reason"] = reason
	}
	moved, err := s.repo.WithTx(tx).UpdateStatus(ctx, paymentID,
		[]enums.PaymentStatus{enums.PaymentStatusPending, enums.PaymentStatusProcessing},
		enums.PaymentStatusFailed,
		updates)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment failed")
	}
	return moved, nil
}

func (s *service) RequestRefund(ctx context.Context, tx *gorm.DB, paymentID uuid.UUID, amount decimal.Decimal, reason string) (*RefundResult, error) {
	if paymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}

	repo := s.repo.WithTx(tx)
	payment, err := repo.LockByID(ctx, paymentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock payment")
	}
	if payment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	if payment.Status != enums.PaymentStatusSucceeded && payment.Status != enums.PaymentStatusPartiallyRefunded {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment is not refundable")
	}

	refundable := payment.Amount.Sub(payment.RefundedAmount)
	if amount.IsZero() {
		amount = refundable
	}
	if !amount.IsPositive() || amount.GreaterThan(refundable) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount exceeds refundable balance")
	}

	// Free checkouts carry no processor charge to reverse.
	if payment.Processor == enums.PaymentProcessorStripe {
		if payment.ProviderRef == nil {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment has no processor reference")
		}
		if _, err := s.stripe.CreateRefund(ctx, &stripe.RefundParams{
			PaymentIntent: payment.ProviderRef,
			Amount:        stripe.Int64(minorUnits(amount)),
			Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
			Metadata:      map[string]string{"reason": reason},
		}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create refund")
		}
	}

	payment.RefundedAmount = payment.RefundedAmount.Add(amount)
	if payment.RefundedAmount.GreaterThanOrEqual(payment.Amount) {
		payment.Status = enums.PaymentStatusRefunded
	} else {
		payment.Status = enums.PaymentStatusPartiallyRefunded
	}
	if err := repo.Update(ctx, payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist refund")
	}

	return &RefundResult{Payment: payment, RefundedNow: amount}, nil
}

func (s *service) ExpirePayment(ctx context.Context, tx *gorm.DB, paymentID uuid.UUID) (bool, error) {
	if paymentID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}

	repo := s.repo.WithTx(tx)
	payment, err := repo.LockByID(ctx, paymentID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock payment")
	}
	if payment == nil {
		return false, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}

	moved, err := repo.UpdateStatus(ctx, paymentID,
		[]enums.PaymentStatus{enums.PaymentStatusPending, enums.PaymentStatusProcessing},
		enums.PaymentStatusExpired, nil)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire payment")
	}
	if !moved {
		return false, nil
	}

	// Best effort; the intent may already be finalized on Stripe's side.
	if payment.Processor == enums.PaymentProcessorStripe && payment.ProviderRef != nil {
		if _, err := s.stripe.CancelIntent(ctx, *payment.ProviderRef, &stripe.PaymentIntentCancelParams{}); err != nil {
			return true, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel payment intent")
		}
	}
	return true, nil
}

func (s *service) FindByID(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error) {
	if paymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}
	payment, err := s.repo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup payment")
	}
	if payment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	return payment, nil
}

func (s *service) FindByProviderRef(ctx context.Context, providerRef string) (*models.Payment, error) {
	if strings.TrimSpace(providerRef) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "provider ref required")
	}
	payment, err := s.repo.FindByProviderRef(ctx, providerRef)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup payment")
	}
	return payment, nil
}

func (s *service) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]models.Payment, error) {
	rows, err := s.repo.ListExpiredPending(ctx, now, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list expired payments")
	}
	return rows, nil
}

// minorUnits converts a 2-decimal monetary amount into the integer minor
// units Stripe expects.
func minorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
