package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/codigo-learn/lms-backend/pkg/enums"
)

// Entitlement grants one user access to one course resource. Grant and
// revoke happen in bulk when an enrollment activates or ends.
type Entitlement struct {
	ID           uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID               `gorm:"column:user_id;type:uuid;not null;uniqueIndex:uq_entitlements_user_resource"`
	ResourceID   uuid.UUID               `gorm:"column:resource_id;type:uuid;not null;uniqueIndex:uq_entitlements_user_resource"`
	CourseID     uuid.UUID               `gorm:"column:course_id;type:uuid;not null;index"`
	EnrollmentID uuid.UUID               `gorm:"column:enrollment_id;type:uuid;not null;index"`
	ResourceType enums.ResourceType      `gorm:"column:resource_type;type:resource_type;not null"`
	Status       enums.EntitlementStatus `gorm:"column:status;type:entitlement_status;not null;default:'active'"`
	GrantedAt    time.Time               `gorm:"column:granted_at;autoCreateTime"`
	RevokedAt    *time.Time              `gorm:"column:revoked_at"`
	ExpiresAt    *time.Time              `gorm:"column:expires_at"`
	CreatedAt    time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
