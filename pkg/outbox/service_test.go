package outbox

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/codigo-learn/lms-backend/pkg/db/models"
	"github.com/codigo-learn/lms-backend/pkg/enums"
)

func TestEmitIfNotExistsInsertsOnce(t *testing.T) {
	t.Parallel()

	db := newOutboxTestDB(t)
	svc := NewService(NewRepository(db), nil)
	aggregateID := uuid.New()
	event := DomainEvent{
		EventType:     enums.EventEnrollmentActivated,
		AggregateType: enums.AggregateEnrollment,
		AggregateID:   aggregateID,
		Data:          map[string]string{"enrollment_id": aggregateID.String()},
		Version:       1,
	}

	for i := 0; i < 2; i++ {
		err := db.Transaction(func(tx *gorm.DB) error {
			return svc.EmitIfNotExists(context.Background(), tx, event)
		})
		require.NoError(t, err)
	}

	var count int64
	err := db.Model(&models.OutboxEvent{}).
		Where("aggregate_id = ?", aggregateID).
		Count(&count).Error
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestExistsTx(t *testing.T) {
	t.Parallel()

	db := newOutboxTestDB(t)
	repo := NewRepository(db)
	aggregateID := uuid.New()

	err := db.Transaction(func(tx *gorm.DB) error {
		exists, terr := repo.ExistsTx(tx, enums.EventEnrollmentWaitlisted, enums.AggregateEnrollment, aggregateID)
		require.NoError(t, terr)
		require.False(t, exists)

		terr = repo.Insert(tx, models.OutboxEvent{
			EventType:     enums.EventEnrollmentWaitlisted,
			AggregateType: enums.AggregateEnrollment,
			AggregateID:   aggregateID,
			Payload:       []byte(`{}`),
		})
		require.NoError(t, terr)

		exists, terr = repo.ExistsTx(tx, enums.EventEnrollmentWaitlisted, enums.AggregateEnrollment, aggregateID)
		require.NoError(t, terr)
		require.True(t, exists)

		// A different event type for the same aggregate is a distinct tuple.
		exists, terr = repo.ExistsTx(tx, enums.EventEnrollmentActivated, enums.AggregateEnrollment, aggregateID)
		require.NoError(t, terr)
		require.False(t, exists)
		return nil
	})
	require.NoError(t, err)
}

func TestExistsTxRequiresTransaction(t *testing.T) {
	t.Parallel()

	repo := NewRepository(nil)
	_, err := repo.ExistsTx(nil, enums.EventEnrollmentActivated, enums.AggregateEnrollment, uuid.New())
	require.Error(t, err)
}

func newOutboxTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:outbox_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	// The production schema leans on Postgres defaults, so the table is
	// created by hand with sqlite-friendly ones.
	err = db.Exec(`CREATE TABLE outbox_events (
		id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at DATETIME,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`).Error
	require.NoError(t, err)
	return db
}
