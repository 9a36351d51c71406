package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/codigo-learn/lms-backend/pkg/logger"
)

type fakeLock struct {
	held     bool
	acquires int
	releases int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	f.acquires++
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	f.releases++
	return nil
}

type countingJob struct {
	name string
	err  error
	runs int
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run(context.Context) error {
	j.runs++
	return j.err
}

func newTestService(t *testing.T, lock Lock, jobs ...Job) *Service {
	t.Helper()
	service, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test"}),
		Registry: NewRegistry(jobs...),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	return service
}

func TestRunCycleRunsEveryJobDespiteFailures(t *testing.T) {
	healthy := &countingJob{name: "entitlement-expiry"}
	broken := &countingJob{name: "payment-expiry", err: errors.New("db timeout")}
	service := newTestService(t, &fakeLock{}, broken, healthy)

	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if broken.runs != 1 {
		t.Fatalf("failing job ran %d times, want 1", broken.runs)
	}
	if healthy.runs != 1 {
		t.Fatalf("job after a failure ran %d times, want 1", healthy.runs)
	}
}

func TestRunCycleSkipsWhenLockHeld(t *testing.T) {
	job := &countingJob{name: "notification-cleanup"}
	lock := &fakeLock{held: true}
	service := newTestService(t, lock, job)

	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("job ran while lock was held elsewhere")
	}
	if lock.releases != 0 {
		t.Fatalf("released a lock this cycle never acquired")
	}
}

func TestRunCycleReleasesLock(t *testing.T) {
	lock := &fakeLock{}
	service := newTestService(t, lock, &countingJob{name: "outbox-retention"})

	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if lock.held {
		t.Fatalf("lock still held after cycle")
	}
	if lock.releases != 1 {
		t.Fatalf("lock released %d times, want 1", lock.releases)
	}
}
