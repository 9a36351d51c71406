package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/codigo-learn/lms-backend/pkg/db/models"
	"github.com/codigo-learn/lms-backend/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

const paymentExpiryBatchSize = 200

// PaymentExpiryJobParams configure the stale payment sweeper.
type PaymentExpiryJobParams struct {
	Logger      *logger.Logger
	Payments    expiredPaymentLister
	Enrollments pendingPaymentExpirer
	BatchSize   int
}

type expiredPaymentLister interface {
	ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]models.Payment, error)
}

type pendingPaymentExpirer interface {
	ExpirePendingPayment(ctx context.Context, paymentID uuid.UUID) error
}

// NewPaymentExpiryJob builds the cron job that abandons enrollments whose
// payment intent was never completed before the hold window lapsed.
func NewPaymentExpiryJob(params PaymentExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payments service required")
	}
	if params.Enrollments == nil {
		return nil, fmt.Errorf("enrollments service required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = paymentExpiryBatchSize
	}
	return &paymentExpiryJob{
		logg:        params.Logger,
		payments:    params.Payments,
		enrollments: params.Enrollments,
		batchSize:   batch,
		now:         time.Now,
	}, nil
}

type paymentExpiryJob struct {
	logg        *logger.Logger
	payments    expiredPaymentLister
	enrollments pendingPaymentExpirer
	batchSize   int
	now         func() time.Time
}

func (j *paymentExpiryJob) Name() string { return "payment-expiry" }

func (j *paymentExpiryJob) Run(ctx context.Context) error {
	stale, err := j.payments.ListExpiredPending(ctx, j.now().UTC(), j.batchSize)
	if err != nil {
		return fmt.Errorf("query expired pending payments: %w", err)
	}
	var errs []error
	expired := 0
	for _, payment := range stale {
		if err := j.enrollments.ExpirePendingPayment(ctx, payment.ID); err != nil {
			logCtx := j.logg.WithFields(ctx, map[string]any{"payment_id": payment.ID})
			j.logg.Error(logCtx, "expire pending payment", err)
			errs = append(errs, fmt.Errorf("expire payment %s: %w", payment.ID, err))
			continue
		}
		expired++
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates": len(stale),
		"expired":    expired,
	})
	j.logg.Info(logCtx, "payment expiry loop complete")
	return multierr.Combine(errs...)
}
