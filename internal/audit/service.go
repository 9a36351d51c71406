package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/codigo-learn/lms-backend/pkg/db/models"
	"github.com/codigo-learn/lms-backend/pkg/enums"
)

// Service defines operations that record audit entries. Entries are written
// inside the caller's transaction so the trail commits with the change.
type Service interface {
	Record(ctx context.Context, tx *gorm.DB, input RecordInput) (*models.AuditLog, error)
	Trail(ctx context.Context, subjectID uuid.UUID) ([]models.AuditLog, error)
	CourseTrail(ctx context.Context, courseID uuid.UUID, limit int) ([]models.AuditLog, error)
}

type service struct {
	repo Repository
}

// RecordInput captures the immutable data an audit entry requires.
type RecordInput struct {
	Action      enums.AuditAction
	ActorUserID *uuid.UUID
	SubjectID   uuid.UUID
	SubjectType string
	CourseID    *uuid.UUID
	Detail      any
}

// NewService wires an audit service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Record(ctx context.Context, tx *gorm.DB, input RecordInput) (*models.AuditLog, error) {
	if !input.Action.IsValid() {
		return nil, fmt.Errorf("invalid audit action %q", input.Action)
	}
	if input.SubjectID == uuid.Nil {
		return nil, fmt.Errorf("subject id is required")
	}
	if input.SubjectType == "" {
		return nil, fmt.Errorf("subject type is required")
	}

	var detail json.RawMessage
	if input.Detail != nil {
		encoded, err := json.Marshal(input.Detail)
		if err != nil {
			return nil, fmt.Errorf("encoding audit detail: %w", err)
		}
		detail = encoded
	}

	entry := &models.AuditLog{
		Action:      input.Action,
		ActorUserID: input.ActorUserID,
		SubjectID:   input.SubjectID,
		SubjectType: input.SubjectType,
		CourseID:    input.CourseID,
		Detail:      detail,
	}

	repo := s.repo
	if tx != nil {
		repo = s.repo.WithTx(tx)
	}
	if err := repo.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) Trail(ctx context.Context, subjectID uuid.UUID) ([]models.AuditLog, error) {
	if subjectID == uuid.Nil {
		return nil, fmt.Errorf("subject id is required")
	}
	return s.repo.ListBySubject(ctx, subjectID)
}

func (s *service) CourseTrail(ctx context.Context, courseID uuid.UUID, limit int) ([]models.AuditLog, error) {
	if courseID == uuid.Nil {
		return nil, fmt.Errorf("course id is required")
	}
	return s.repo.ListByCourse(ctx, courseID, limit)
}
