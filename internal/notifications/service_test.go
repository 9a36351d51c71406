package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/codigo-learn/lms-backend/pkg/db/models"
	"github.com/codigo-learn/lms-backend/pkg/enums"
	pkgerrors "github.com/codigo-learn/lms-backend/pkg/errors"
	"github.com/codigo-learn/lms-backend/pkg/logger"
	"github.com/codigo-learn/lms-backend/pkg/outbox/payloads"
	paginationpkg "github.com/codigo-learn/lms-backend/pkg/pagination"
)

type fakeRepository struct {
	created       []*models.Notification
	listFn        func(ctx context.Context, params listNotificationsParams) ([]models.Notification, *paginationpkg.Cursor, error)
	markReadFn    func(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error)
	markAllReadFn func(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) Create(_ context.Context, notification *models.Notification) error {
	f.created = append(f.created, notification)
	return nil
}

func (f *fakeRepository) List(ctx context.Context, params listNotificationsParams) ([]models.Notification, *paginationpkg.Cursor, error) {
	if f.listFn != nil {
		return f.listFn(ctx, params)
	}
	return nil, nil, nil
}

func (f *fakeRepository) MarkRead(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error) {
	if f.markReadFn != nil {
		return f.markReadFn(ctx, userID, notificationID, now)
	}
	return notificationMarkResult{}, nil
}

func (f *fakeRepository) MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	if f.markAllReadFn != nil {
		return f.markAllReadFn(ctx, userID, now)
	}
	return 0, nil
}

func (f *fakeRepository) DeleteReadBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func TestListRequiresUserID(t *testing.T) {
	svc, err := NewService(&fakeRepository{})
	require.NoError(t, err)

	_, err = svc.List(context.Background(), ListParams{})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestListEncodesNextCursor(t *testing.T) {
	next := &paginationpkg.Cursor{CreatedAt: time.Now().UTC(), ID: uuid.New()}
	repo := &fakeRepository{
		listFn: func(_ context.Context, _ listNotificationsParams) ([]models.Notification, *paginationpkg.Cursor, error) {
			return []models.Notification{{ID: uuid.New()}}, next, nil
		},
	}
	svc, err := NewService(repo)
	require.NoError(t, err)

	result, err := svc.List(context.Background(), ListParams{UserID: uuid.New(), Limit: 1})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	require.Equal(t, paginationpkg.EncodeCursor(*next), result.Cursor)
}

func TestMarkReadNotFound(t *testing.T) {
	repo := &fakeRepository{
		markReadFn: func(context.Context, uuid.UUID, uuid.UUID, time.Time) (notificationMarkResult, error) {
			return notificationMarkResult{Found: false}, nil
		},
	}
	svc, err := NewService(repo)
	require.NoError(t, err)

	err = svc.MarkRead(context.Background(), uuid.New(), uuid.New())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestMarkAllReadWrapsRepositoryErrors(t *testing.T) {
	repo := &fakeRepository{
		markAllReadFn: func(context.Context, uuid.UUID, time.Time) (int64, error) {
			return 0, errors.New("connection reset")
		},
	}
	svc, err := NewService(repo)
	require.NoError(t, err)

	_, err = svc.MarkAllRead(context.Background(), uuid.New())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeDependency, typed.Code())
}

// --- consumer event handling -------------------------------------------

type fakePointsLedger struct {
	awards map[uuid.UUID]int
}

func (f *fakePointsLedger) AddPoints(_ context.Context, userID uuid.UUID, points int) error {
	if f.awards == nil {
		f.awards = make(map[uuid.UUID]int)
	}
	f.awards[userID] += points
	return nil
}

func newTestConsumer(repo *fakeRepository, points *fakePointsLedger) *Consumer {
	return &Consumer{
		repo:     repo,
		points:   points,
		registry: buildRegistry(),
		logg:     logger.New(logger.Options{ServiceName: "test"}),
	}
}

func TestConsumerCreatesNotificationForActivation(t *testing.T) {
	repo := &fakeRepository{}
	c := newTestConsumer(repo, &fakePointsLedger{})

	payload := payloads.EnrollmentActivatedEvent{
		EnrollmentID: uuid.New(),
		UserID:       uuid.New(),
		CourseID:     uuid.New(),
		Source:       enums.EnrollmentSourceSelf,
		ActivatedAt:  time.Now().UTC(),
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	decoded, err := c.registry.Decode(enums.EventEnrollmentActivated, 1, raw)
	require.NoError(t, err)
	require.NoError(t, c.handle(context.Background(), decoded, raw))

	require.Len(t, repo.created, 1)
	created := repo.created[0]
	require.Equal(t, payload.UserID, created.UserID)
	require.Equal(t, enums.NotificationEnrollmentConfirmed, created.Type)
	require.Equal(t, payload.CourseID, *created.CourseID)
}

func TestConsumerAppliesPointAwards(t *testing.T) {
	points := &fakePointsLedger{}
	c := newTestConsumer(&fakeRepository{}, points)

	payload := payloads.PointsAwardedEvent{
		UserID:   uuid.New(),
		CourseID: uuid.New(),
		Points:   25,
		Reason:   "completion",
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	decoded, err := c.registry.Decode(enums.EventPointsAwarded, 1, raw)
	require.NoError(t, err)
	require.NoError(t, c.handle(context.Background(), decoded, raw))
	require.Equal(t, 25, points.awards[payload.UserID])
}

func TestConsumerIncludesDenialReason(t *testing.T) {
	repo := &fakeRepository{}
	c := newTestConsumer(repo, &fakePointsLedger{})

	reviewer := uuid.New()
	payload := payloads.EnrollmentDeniedEvent{
		EnrollmentID:   uuid.New(),
		UserID:         uuid.New(),
		CourseID:       uuid.New(),
		ReviewerUserID: &reviewer,
		Reason:         "cohort is closed",
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	decoded, err := c.registry.Decode(enums.EventEnrollmentDenied, 1, raw)
	require.NoError(t, err)
	require.NoError(t, c.handle(context.Background(), decoded, raw))

	require.Len(t, repo.created, 1)
	require.Contains(t, repo.created[0].Message, "cohort is closed")
}
