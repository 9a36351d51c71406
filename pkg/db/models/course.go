package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	dbtypes "github.com/codigo-learn/lms-backend/pkg/db/types"
	"github.com/codigo-learn/lms-backend/pkg/enums"
)

// Course holds the catalog entry plus the knobs the enrollment flow reads:
// policy, capacity, pricing, refund terms and the enrollment window.
type Course struct {
	ID               uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Title            string                 `gorm:"column:title;type:text;not null"`
	Slug             string                 `gorm:"column:slug;type:text;not null;uniqueIndex"`
	Description      *string                `gorm:"column:description;type:text"`
	InstructorID     uuid.UUID              `gorm:"column:instructor_id;type:uuid;not null"`
	Policy           enums.EnrollmentPolicy `gorm:"column:policy;type:enrollment_policy;not null;default:'open'"`
	Capacity         *int                   `gorm:"column:capacity"`
	Price            decimal.Decimal        `gorm:"column:price;type:numeric(12,2);not null;default:0"`
	Currency         enums.Currency         `gorm:"column:currency;type:text;not null;default:'USD'"`
	PrerequisiteIDs  dbtypes.UUIDArray      `gorm:"column:prerequisite_ids;type:uuid[];not null;default:ARRAY[]::uuid[]"`
	EnrollStartAt    *time.Time             `gorm:"column:enroll_start_at"`
	EnrollEndAt      *time.Time             `gorm:"column:enroll_end_at"`
	RefundPolicyDays int                    `gorm:"column:refund_policy_days;not null;default:0"`
	// MaxRefundProgress is the completion fraction (0..1) above which a
	// withdrawal no longer qualifies for a refund.
	MaxRefundProgress decimal.Decimal `gorm:"column:max_refund_progress;type:numeric(4,3);not null;default:0.25"`
	CompletionPoints  int             `gorm:"column:completion_points;not null;default:0"`
	EnrollmentPoints  int             `gorm:"column:enrollment_points;not null;default:0"`
	IsPublished       bool            `gorm:"column:is_published;not null;default:false"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// CourseResource is a unit of course content an entitlement can point at.
type CourseResource struct {
	ID        uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CourseID  uuid.UUID          `gorm:"column:course_id;type:uuid;not null;index"`
	Type      enums.ResourceType `gorm:"column:type;type:resource_type;not null"`
	Title     string             `gorm:"column:title;type:text;not null"`
	Position  int                `gorm:"column:position;not null;default:0"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime"`
}
