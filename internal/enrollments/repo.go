package enrollments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codigo-learn/lms-backend/pkg/db/models"
	"github.com/codigo-learn/lms-backend/pkg/enums"
)

// Repository handles enrollment persistence. Status writes are
// compare-and-swap only; there is no unconditional status update.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, enrollment *models.Enrollment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Enrollment, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.Enrollment, error)
	FindLiveByUserAndCourse(ctx context.Context, userID, courseID uuid.UUID) (*models.Enrollment, error)
	FindByPaymentID(ctx context.Context, paymentID uuid.UUID) (*models.Enrollment, error)
	// UpdateStatus swaps status only when the row still carries from,
	// applying updates in the same statement. Reports whether the row moved.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.EnrollmentStatus, updates map[string]any) (bool, error)
	UpdateProgress(ctx context.Context, id uuid.UUID, progress decimal.Decimal) error
	SetRefundWindow(ctx context.Context, id uuid.UUID, until time.Time) error
	FirstWaitlisted(ctx context.Context, courseID uuid.UUID) (*models.Enrollment, error)
	ListWaitlisted(ctx context.Context, courseID uuid.UUID, limit int) ([]models.Enrollment, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Enrollment, error)
	ListByCourse(ctx context.Context, courseID uuid.UUID, status *enums.EnrollmentStatus, limit int) ([]models.Enrollment, error)
	ListPendingPaymentBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Enrollment, error)
	CountByStatus(ctx context.Context, courseID uuid.UUID, status enums.EnrollmentStatus) (int64, error)
	StatusCounts(ctx context.Context, courseID uuid.UUID) (map[enums.EnrollmentStatus]int64, error)
	ListCompletedCourseIDs(ctx context.Context, userID uuid.UUID, courseIDs []uuid.UUID) ([]uuid.UUID, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an enrollment repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	return r.db.WithContext(ctx).Create(enrollment).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Enrollment, error) {
	var row models.Enrollment
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Enrollment, error) {
	var row models.Enrollment
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *repository) FindLiveByUserAndCourse(ctx context.Context, userID, courseID uuid.UUID) (*models.Enrollment, error) {
	var row models.Enrollment
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ? AND status IN (?)", userID, courseID, liveStatuses).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *repository) FindByPaymentID(ctx context.Context, paymentID uuid.UUID) (*models.Enrollment, error) {
	var row models.Enrollment
	if err := r.db.WithContext(ctx).First(&row, "payment_id = ?", paymentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.EnrollmentStatus, updates map[string]any) (bool, error) {
	if updates == nil {
		updates = map[string]any{}
	}
	updates["status"] = to
	res := r.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) UpdateProgress(ctx context.Context, id uuid.UUID, progress decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("id = ?", id).
		UpdateColumn("progress", progress).Error
}

func (r *repository) SetRefundWindow(ctx context.Context, id uuid.UUID, until time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("id = ?", id).
		UpdateColumn("refund_eligible_until", until).Error
}

func (r *repository) FirstWaitlisted(ctx context.Context, courseID uuid.UUID) (*models.Enrollment, error) {
	rows, err := r.ListWaitlisted(ctx, courseID, 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *repository) ListWaitlisted(ctx context.Context, courseID uuid.UUID, limit int) ([]models.Enrollment, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.Enrollment
	err := r.db.WithContext(ctx).
		Where("course_id = ? AND status = ?", courseID, enums.EnrollmentStatusWaitlisted).
		Order("waitlist_position ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Enrollment, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.Enrollment
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListByCourse(ctx context.Context, courseID uuid.UUID, status *enums.EnrollmentStatus, limit int) ([]models.Enrollment, error) {
	if limit <= 0 {
		limit = 100
	}
	query := r.db.WithContext(ctx).Where("course_id = ?", courseID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var rows []models.Enrollment
	err := query.Order("created_at DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

func (r *repository) ListPendingPaymentBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Enrollment, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.Enrollment
	err := r.db.WithContext(ctx).
		Where("status = ? AND payment_id IS NOT NULL AND created_at <= ?", enums.EnrollmentStatusPendingReview, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) CountByStatus(ctx context.Context, courseID uuid.UUID, status enums.EnrollmentStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("course_id = ? AND status = ?", courseID, status).
		Count(&count).Error
	return count, err
}

func (r *repository) StatusCounts(ctx context.Context, courseID uuid.UUID) (map[enums.EnrollmentStatus]int64, error) {
	type statusCount struct {
		Status enums.EnrollmentStatus
		Total  int64
	}
	var rows []statusCount
	err := r.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Select("status, COUNT(*) AS total").
		Where("course_id = ?", courseID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[enums.EnrollmentStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

func (r *repository) ListCompletedCourseIDs(ctx context.Context, userID uuid.UUID, courseIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(courseIDs) == 0 {
		return nil, nil
	}
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("user_id = ? AND status = ? AND course_id IN (?)", userID, enums.EnrollmentStatusCompleted, courseIDs).
		Pluck("course_id", &ids).Error
	return ids, err
}
