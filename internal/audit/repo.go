package audit

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/codigo-learn/lms-backend/pkg/db/models"
)

// Repository manages persistence for audit log entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.AuditLog) error
	ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]models.AuditLog, error)
	ListByCourse(ctx context.Context, courseID uuid.UUID, limit int) ([]models.AuditLog, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an audit repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.AuditLog) error {
	if entry == nil {
		return errors.New("audit entry required")
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]models.AuditLog, error) {
	var entries []models.AuditLog
	err := r.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}

func (r *repository) ListByCourse(ctx context.Context, courseID uuid.UUID, limit int) ([]models.AuditLog, error) {
	if limit <= 0 {
		limit = 100
	}
	var entries []models.AuditLog
	err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}
