package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/codigo-learn/lms-backend/pkg/enums"
)

// AuditLog records an immutable trace of every enrollment lifecycle change.
type AuditLog struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Action      enums.AuditAction `gorm:"column:action;type:audit_action;not null"`
	ActorUserID *uuid.UUID        `gorm:"column:actor_user_id;type:uuid"`
	SubjectID   uuid.UUID         `gorm:"column:subject_id;type:uuid;not null;index"`
	SubjectType string            `gorm:"column:subject_type;type:text;not null"`
	CourseID    *uuid.UUID        `gorm:"column:course_id;type:uuid;index"`
	Detail      json.RawMessage   `gorm:"column:detail;type:jsonb"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
}
