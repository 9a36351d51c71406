package entitlements

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codigo-learn/lms-backend/pkg/db/models"
	"github.com/codigo-learn/lms-backend/pkg/enums"
)

// Repository manages persistence for entitlements.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateBatch(ctx context.Context, entitlements []models.Entitlement) error
	ListByEnrollment(ctx context.Context, enrollmentID uuid.UUID) ([]models.Entitlement, error)
	ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]models.Entitlement, error)
	UpdateStatusByEnrollment(ctx context.Context, enrollmentID uuid.UUID, from, to enums.EntitlementStatus) (int64, error)
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an entitlement repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateBatch(ctx context.Context, entitlements []models.Entitlement) error {
	if len(entitlements) == 0 {
		return nil
	}
	// Re-grants after a withdraw/re-enroll cycle hit the (user, resource)
	// unique index; refresh the row instead of failing.
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "resource_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"status":        enums.EntitlementStatusActive,
				"revoked_at":    nil,
				"granted_at":    time.Now(),
				"enrollment_id": gorm.Expr("excluded.enrollment_id"),
			}),
		}).
		Create(&entitlements).Error
}

func (r *repository) ListByEnrollment(ctx context.Context, enrollmentID uuid.UUID) ([]models.Entitlement, error) {
	var rows []models.Entitlement
	err := r.db.WithContext(ctx).
		Where("enrollment_id = ?", enrollmentID).
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]models.Entitlement, error) {
	var rows []models.Entitlement
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, enums.EntitlementStatusActive).
		Find(&rows).Error
	return rows, err
}

func (r *repository) UpdateStatusByEnrollment(ctx context.Context, enrollmentID uuid.UUID, from, to enums.EntitlementStatus) (int64, error) {
	updates := map[string]any{"status": to}
	if to == enums.EntitlementStatusRevoked {
		updates["revoked_at"] = time.Now()
	}
	res := r.db.WithContext(ctx).
		Model(&models.Entitlement{}).
		Where("enrollment_id = ? AND status = ?", enrollmentID, from).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *repository) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Entitlement{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", enums.EntitlementStatusActive, now).
		Updates(map[string]any{"status": enums.EntitlementStatusExpired})
	return res.RowsAffected, res.Error
}
