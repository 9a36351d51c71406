package entitlements

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/codigo-learn/lms-backend/pkg/db/models"
	"github.com/codigo-learn/lms-backend/pkg/enums"
	pkgerrors "github.com/codigo-learn/lms-backend/pkg/errors"
)

type fakeRepository struct {
	rows []models.Entitlement
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) CreateBatch(ctx context.Context, entitlements []models.Entitlement) error {
	for _, row := range entitlements {
		replaced := false
		for i := range f.rows {
			if f.rows[i].UserID == row.UserID && f.rows[i].ResourceID == row.ResourceID {
				f.rows[i].Status = enums.EntitlementStatusActive
				f.rows[i].RevokedAt = nil
				f.rows[i].EnrollmentID = row.EnrollmentID
				replaced = true
				break
			}
		}
		if !replaced {
			row.ID = uuid.New()
			f.rows = append(f.rows, row)
		}
	}
	return nil
}

func (f *fakeRepository) ListByEnrollment(ctx context.Context, enrollmentID uuid.UUID) ([]models.Entitlement, error) {
	var out []models.Entitlement
	for _, row := range f.rows {
		if row.EnrollmentID == enrollmentID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeRepository) ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]models.Entitlement, error) {
	var out []models.Entitlement
	for _, row := range f.rows {
		if row.UserID == userID && row.Status == enums.EntitlementStatusActive {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeRepository) UpdateStatusByEnrollment(ctx context.Context, enrollmentID uuid.UUID, from, to enums.EntitlementStatus) (int64, error) {
	var count int64
	now := time.Now()
	for i := range f.rows {
		if f.rows[i].EnrollmentID == enrollmentID && f.rows[i].Status == from {
			f.rows[i].Status = to
			if to == enums.EntitlementStatusRevoked {
				f.rows[i].RevokedAt = &now
			}
			count++
		}
	}
	return count, nil
}

func (f *fakeRepository) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	for i := range f.rows {
		if f.rows[i].Status == enums.EntitlementStatusActive && f.rows[i].ExpiresAt != nil && !f.rows[i].ExpiresAt.After(now) {
			f.rows[i].Status = enums.EntitlementStatusExpired
			count++
		}
	}
	return count, nil
}

func newTestEnrollment() *models.Enrollment {
	return &models.Enrollment{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		CourseID: uuid.New(),
		Status:   enums.EnrollmentStatusActive,
	}
}

func TestGrantForEnrollmentCreatesOnePerResource(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	require.NoError(t, err)

	enrollment := newTestEnrollment()
	resources := []models.CourseResource{
		{ID: uuid.New(), CourseID: enrollment.CourseID, Type: enums.ResourceTypeLesson},
		{ID: uuid.New(), CourseID: enrollment.CourseID, Type: enums.ResourceTypeQuiz},
		{ID: uuid.New(), CourseID: enrollment.CourseID, Type: enums.ResourceTypeVideo},
	}

	granted, err := svc.GrantForEnrollment(context.Background(), nil, enrollment, resources, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, granted)

	rows, err := svc.ListForEnrollment(context.Background(), enrollment.ID)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for _, row := range rows {
		assert.Equal(t, enrollment.UserID, row.UserID)
		assert.Equal(t, enums.EntitlementStatusActive, row.Status)
	}
}

func TestGrantForEnrollmentStampsGrantTime(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	require.NoError(t, err)

	granted := time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)
	svc.(*service).now = func() time.Time { return granted }

	enrollment := newTestEnrollment()
	_, err = svc.GrantForEnrollment(context.Background(), nil, enrollment,
		[]models.CourseResource{{ID: uuid.New(), CourseID: enrollment.CourseID, Type: enums.ResourceTypeLesson}}, nil)
	require.NoError(t, err)

	rows, err := svc.ListForEnrollment(context.Background(), enrollment.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, granted, rows[0].GrantedAt)
}

func TestGrantForEnrollmentNoResources(t *testing.T) {
	svc, err := NewService(&fakeRepository{})
	require.NoError(t, err)

	granted, err := svc.GrantForEnrollment(context.Background(), nil, newTestEnrollment(), nil, nil)
	require.NoError(t, err)
	assert.Zero(t, granted)
}

func TestGrantForEnrollmentValidation(t *testing.T) {
	svc, err := NewService(&fakeRepository{})
	require.NoError(t, err)

	_, err = svc.GrantForEnrollment(context.Background(), nil, nil, nil, nil)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())

	_, err = svc.GrantForEnrollment(context.Background(), nil, &models.Enrollment{}, nil, nil)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestRegrantAfterRevokeReactivates(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	require.NoError(t, err)

	first := newTestEnrollment()
	resource := models.CourseResource{ID: uuid.New(), CourseID: first.CourseID, Type: enums.ResourceTypeLesson}

	_, err = svc.GrantForEnrollment(context.Background(), nil, first, []models.CourseResource{resource}, nil)
	require.NoError(t, err)

	revoked, err := svc.RevokeForEnrollment(context.Background(), nil, first.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), revoked)

	second := &models.Enrollment{ID: uuid.New(), UserID: first.UserID, CourseID: first.CourseID}
	_, err = svc.GrantForEnrollment(context.Background(), nil, second, []models.CourseResource{resource}, nil)
	require.NoError(t, err)

	active, err := svc.ListActiveForUser(context.Background(), first.UserID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second.ID, active[0].EnrollmentID)
	assert.Nil(t, active[0].RevokedAt)
}

func TestSuspendAndReinstate(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	require.NoError(t, err)

	enrollment := newTestEnrollment()
	resources := []models.CourseResource{
		{ID: uuid.New(), Type: enums.ResourceTypeLesson},
		{ID: uuid.New(), Type: enums.ResourceTypeLab},
	}
	_, err = svc.GrantForEnrollment(context.Background(), nil, enrollment, resources, nil)
	require.NoError(t, err)

	suspended, err := svc.SuspendForEnrollment(context.Background(), nil, enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), suspended)

	active, err := svc.ListActiveForUser(context.Background(), enrollment.UserID)
	require.NoError(t, err)
	assert.Empty(t, active)

	reinstated, err := svc.ReinstateForEnrollment(context.Background(), nil, enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), reinstated)

	active, err = svc.ListActiveForUser(context.Background(), enrollment.UserID)
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestExpireDueOnlyTouchesPastDeadlines(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	require.NoError(t, err)

	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	enrollment := newTestEnrollment()

	_, err = svc.GrantForEnrollment(context.Background(), nil, enrollment, []models.CourseResource{{ID: uuid.New(), Type: enums.ResourceTypeLesson}}, &past)
	require.NoError(t, err)
	other := &models.Enrollment{ID: uuid.New(), UserID: uuid.New(), CourseID: uuid.New()}
	_, err = svc.GrantForEnrollment(context.Background(), nil, other, []models.CourseResource{{ID: uuid.New(), Type: enums.ResourceTypeLesson}}, &future)
	require.NoError(t, err)

	expired, err := svc.ExpireDue(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), expired)

	remaining, err := svc.ListActiveForUser(context.Background(), other.UserID)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}
