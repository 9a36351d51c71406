package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/codigo-learn/lms-backend/pkg/logger"
)

func TestOutboxRetentionJobPurgesPublishedRows(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	repo := &fakeOutboxRetentionRepo{}
	job := newOutboxRetentionJob(t, repo)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, 1, repo.called)
	assert.True(t, repo.lastCutoff.Equal(now.Add(-outboxRetentionDays*24*time.Hour)),
		"cutoff should sit exactly %d days in the past", outboxRetentionDays)
	assert.Equal(t, outboxMinAttempts, repo.minAttempts)
}

func TestOutboxRetentionJobPropagatesRepoError(t *testing.T) {
	repo := &fakeOutboxRetentionRepo{err: errors.New("deadlock detected")}
	job := newOutboxRetentionJob(t, repo)

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outbox retention")
}

func newOutboxRetentionJob(t *testing.T, repo *fakeOutboxRetentionRepo) *outboxRetentionJob {
	t.Helper()
	jobIface, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		DB:         passthroughTxRunner{},
		Repository: repo,
	})
	require.NoError(t, err)
	job, ok := jobIface.(*outboxRetentionJob)
	require.True(t, ok, "expected *outboxRetentionJob, got %T", jobIface)
	return job
}

type fakeOutboxRetentionRepo struct {
	lastCutoff  time.Time
	minAttempts int
	called      int
	err         error
}

func (f *fakeOutboxRetentionRepo) DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error) {
	f.called++
	f.lastCutoff = cutoff
	f.minAttempts = minAttemptCount
	if f.err != nil {
		return 0, f.err
	}
	return 7, nil
}

type passthroughTxRunner struct{}

func (passthroughTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}
