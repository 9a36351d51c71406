package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/codigo-learn/lms-backend/pkg/logger"
)

func TestEntitlementExpiryJobExpiresDueEntitlements(t *testing.T) {
	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	expirer := &fakeEntitlementExpirer{expired: 7}
	job := newEntitlementExpiryJob(t, expirer)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !expirer.lastNow.Equal(now) {
		t.Fatalf("expected deadline %s, got %s", now, expirer.lastNow)
	}
	if expirer.called != 1 {
		t.Fatalf("expected one sweep, got %d", expirer.called)
	}
}

func TestEntitlementExpiryJobPropagatesErrors(t *testing.T) {
	expirer := &fakeEntitlementExpirer{err: errors.New("boom")}
	job := newEntitlementExpiryJob(t, expirer)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func newEntitlementExpiryJob(t *testing.T, expirer *fakeEntitlementExpirer) *entitlementExpiryJob {
	t.Helper()
	jobIface, err := NewEntitlementExpiryJob(EntitlementExpiryJobParams{
		Logger:       logger.New(logger.Options{ServiceName: "test"}),
		Entitlements: expirer,
	})
	if err != nil {
		t.Fatalf("NewEntitlementExpiryJob: %v", err)
	}
	job, ok := jobIface.(*entitlementExpiryJob)
	if !ok {
		t.Fatalf("expected entitlementExpiryJob, got %T", jobIface)
	}
	return job
}

type fakeEntitlementExpirer struct {
	expired int64
	err     error
	lastNow time.Time
	called  int
}

func (f *fakeEntitlementExpirer) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	f.called++
	f.lastNow = now
	if f.err != nil {
		return 0, f.err
	}
	return f.expired, nil
}
