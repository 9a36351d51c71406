package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/codigo-learn/lms-backend/pkg/enums"
)

// Enrollment tracks one user's membership lifecycle in one course. At most
// one live row may exist per (user, course); the partial unique index
// uq_enrollments_live enforces that in Postgres.
type Enrollment struct {
	ID                  uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID              uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	CourseID            uuid.UUID              `gorm:"column:course_id;type:uuid;not null;index"`
	Status              enums.EnrollmentStatus `gorm:"column:status;type:enrollment_status;not null"`
	Source              enums.EnrollmentSource `gorm:"column:source;type:enrollment_source;not null;default:'self'"`
	WaitlistPosition    *int                   `gorm:"column:waitlist_position"`
	PaymentID           *uuid.UUID             `gorm:"column:payment_id;type:uuid;uniqueIndex"`
	VoucherID           *uuid.UUID             `gorm:"column:voucher_id;type:uuid"`
	Progress            decimal.Decimal        `gorm:"column:progress;type:numeric(4,3);not null;default:0"`
	DenialReason        *string                `gorm:"column:denial_reason;type:text"`
	RefundEligibleUntil *time.Time             `gorm:"column:refund_eligible_until"`
	// ApprovedAt/ApprovedBy record the reviewer decision on approval-gated
	// enrollments; both stay nil on every other policy.
	ApprovedAt  *time.Time `gorm:"column:approved_at"`
	ApprovedBy  *uuid.UUID `gorm:"column:approved_by;type:uuid"`
	ActivatedAt *time.Time `gorm:"column:activated_at"`
	CompletedAt *time.Time `gorm:"column:completed_at"`
	WithdrawnAt *time.Time `gorm:"column:withdrawn_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
