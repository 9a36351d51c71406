package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/codigo-learn/lms-backend/pkg/db/models"
	"github.com/codigo-learn/lms-backend/pkg/logger"
	"github.com/google/uuid"
)

func TestPaymentExpiryJobExpiresEachStalePayment(t *testing.T) {
	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	stale := []models.Payment{{ID: uuid.New()}, {ID: uuid.New()}}
	lister := &fakeExpiredPaymentLister{payments: stale}
	expirer := &fakePendingPaymentExpirer{}
	job := newPaymentExpiryJob(t, lister, expirer)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !lister.lastNow.Equal(now) {
		t.Fatalf("expected list cutoff %s, got %s", now, lister.lastNow)
	}
	if lister.lastLimit != paymentExpiryBatchSize {
		t.Fatalf("expected batch size %d, got %d", paymentExpiryBatchSize, lister.lastLimit)
	}
	if len(expirer.expired) != 2 {
		t.Fatalf("expected 2 expirations, got %d", len(expirer.expired))
	}
	if expirer.expired[0] != stale[0].ID || expirer.expired[1] != stale[1].ID {
		t.Fatal("expired wrong payments")
	}
}

func TestPaymentExpiryJobContinuesPastFailures(t *testing.T) {
	bad := uuid.New()
	good := uuid.New()
	lister := &fakeExpiredPaymentLister{payments: []models.Payment{{ID: bad}, {ID: good}}}
	expirer := &fakePendingPaymentExpirer{failFor: bad}
	job := newPaymentExpiryJob(t, lister, expirer)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected combined error")
	}
	if len(expirer.expired) != 1 || expirer.expired[0] != good {
		t.Fatal("expected the remaining payment to still be expired")
	}
}

func TestPaymentExpiryJobPropagatesListErrors(t *testing.T) {
	lister := &fakeExpiredPaymentLister{err: errors.New("db down")}
	job := newPaymentExpiryJob(t, lister, &fakePendingPaymentExpirer{})

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func newPaymentExpiryJob(t *testing.T, lister *fakeExpiredPaymentLister, expirer *fakePendingPaymentExpirer) *paymentExpiryJob {
	t.Helper()
	jobIface, err := NewPaymentExpiryJob(PaymentExpiryJobParams{
		Logger:      logger.New(logger.Options{ServiceName: "test"}),
		Payments:    lister,
		Enrollments: expirer,
	})
	if err != nil {
		t.Fatalf("NewPaymentExpiryJob: %v", err)
	}
	job, ok := jobIface.(*paymentExpiryJob)
	if !ok {
		t.Fatalf("expected paymentExpiryJob, got %T", jobIface)
	}
	return job
}

type fakeExpiredPaymentLister struct {
	payments  []models.Payment
	err       error
	lastNow   time.Time
	lastLimit int
}

func (f *fakeExpiredPaymentLister) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]models.Payment, error) {
	f.lastNow = now
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.payments, nil
}

type fakePendingPaymentExpirer struct {
	expired []uuid.UUID
	failFor uuid.UUID
}

func (f *fakePendingPaymentExpirer) ExpirePendingPayment(ctx context.Context, paymentID uuid.UUID) error {
	if f.failFor != uuid.Nil && paymentID == f.failFor {
		return errors.New("conflict")
	}
	f.expired = append(f.expired, paymentID)
	return nil
}
