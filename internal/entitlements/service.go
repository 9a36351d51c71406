package entitlements

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/codigo-learn/lms-backend/pkg/db/models"
	"github.com/codigo-learn/lms-backend/pkg/enums"
	pkgerrors "github.com/codigo-learn/lms-backend/pkg/errors"
)

// Service grants and revokes resource entitlements in bulk for an enrollment.
type Service interface {
	GrantForEnrollment(ctx context.Context, tx *gorm.DB, enrollment *models.Enrollment, resources []models.CourseResource, expiresAt *time.Time) (int, error)
	RevokeForEnrollment(ctx context.Context, tx *gorm.DB, enrollmentID uuid.UUID) (int64, error)
	SuspendForEnrollment(ctx context.Context, tx *gorm.DB, enrollmentID uuid.UUID) (int64, error)
	ReinstateForEnrollment(ctx context.Context, tx *gorm.DB, enrollmentID uuid.UUID) (int64, error)
	ListForEnrollment(ctx context.Context, enrollmentID uuid.UUID) ([]models.Entitlement, error)
	ListActiveForUser(ctx context.Context, userID uuid.UUID) ([]models.Entitlement, error)
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService builds an entitlement service backed by the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("entitlement repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) GrantForEnrollment(ctx context.Context, tx *gorm.DB, enrollment *models.Enrollment, resources []models.CourseResource, expiresAt *time.Time) (int, error) {
	if enrollment == nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "enrollment required")
	}
	if enrollment.ID == uuid.Nil || enrollment.UserID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "enrollment identity missing")
	}
	if len(resources) == 0 {
		return 0, nil
	}

	rows := make([]models.Entitlement, 0, len(resources))
	for _, resource := range resources {
		if resource.ID == uuid.Nil {
			return 0, pkgerrors.New(pkgerrors.CodeValidation, "resource id missing")
		}
		rows = append(rows, models.Entitlement{
			UserID:       enrollment.UserID,
			ResourceID:   resource.ID,
			CourseID:     enrollment.CourseID,
			EnrollmentID: enrollment.ID,
			ResourceType: resource.Type,
			Status:       enums.EntitlementStatusActive,
			GrantedAt:    s.now(),
			ExpiresAt:    expiresAt,
		})
	}

	if err := s.repo.WithTx(tx).CreateBatch(ctx, rows); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "grant entitlements")
	}
	return len(rows), nil
}

func (s *service) RevokeForEnrollment(ctx context.Context, tx *gorm.DB, enrollmentID uuid.UUID) (int64, error) {
	if enrollmentID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "enrollment id required")
	}
	count, err := s.repo.WithTx(tx).UpdateStatusByEnrollment(ctx, enrollmentID, enums.EntitlementStatusActive, enums.EntitlementStatusRevoked)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke entitlements")
	}
	return count, nil
}

func (s *service) SuspendForEnrollment(ctx context.Context, tx *gorm.DB, enrollmentID uuid.UUID) (int64, error) {
	if enrollmentID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "enrollment id required")
	}
	count, err := s.repo.WithTx(tx).UpdateStatusByEnrollment(ctx, enrollmentID, enums.EntitlementStatusActive, enums.EntitlementStatusSuspended)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "suspend entitlements")
	}
	return count, nil
}

func (s *service) ReinstateForEnrollment(ctx context.Context, tx *gorm.DB, enrollmentID uuid.UUID) (int64, error) {
	if enrollmentID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "enrollment id required")
	}
	count, err := s.repo.WithTx(tx).UpdateStatusByEnrollment(ctx, enrollmentID, enums.EntitlementStatusSuspended, enums.EntitlementStatusActive)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reinstate entitlements")
	}
	return count, nil
}

func (s *service) ListForEnrollment(ctx context.Context, enrollmentID uuid.UUID) ([]models.Entitlement, error) {
	if enrollmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "enrollment id required")
	}
	rows, err := s.repo.ListByEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list entitlements")
	}
	return rows, nil
}

func (s *service) ListActiveForUser(ctx context.Context, userID uuid.UUID) ([]models.Entitlement, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	rows, err := s.repo.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list entitlements")
	}
	return rows, nil
}

func (s *service) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	count, err := s.repo.ExpireDue(ctx, now)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire entitlements")
	}
	return count, nil
}
