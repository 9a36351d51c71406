package enrollments

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/codigo-learn/lms-backend/pkg/db/models"
	"github.com/codigo-learn/lms-backend/pkg/enums"
)

// Outcome tells the caller how an enrollment request settled.
type Outcome string

const (
	OutcomeActivated       Outcome = "activated"
	OutcomeWaitlisted      Outcome = "waitlisted"
	OutcomePendingApproval Outcome = "pending_approval"
	OutcomePaymentRequired Outcome = "payment_required"
)

// EnrollInput carries one enrollment request through the policy dispatcher.
type EnrollInput struct {
	UserID      uuid.UUID
	CourseID    uuid.UUID
	Source      enums.EnrollmentSource
	VoucherCode string
	// PrereqOverride skips the prerequisite gate; only honored for admins.
	PrereqOverride bool
	ActorUserID    uuid.UUID
	ActorRole      enums.UserRole
}

// EnrollResult is the structured success result of Enroll. Soft failures
// (duplicate, window closed, invalid voucher) surface as coded errors, not
// as a result variant.
type EnrollResult struct {
	Outcome    Outcome            `json:"outcome"`
	Enrollment *models.Enrollment `json:"enrollment"`
	// Payment carries the processor handle when Outcome is payment_required.
	Payment  *models.Payment `json:"payment,omitempty"`
	Discount decimal.Decimal `json:"discount"`
	Message  string          `json:"message,omitempty"`
}

// BulkEnrollInput enrolls a batch of known user ids into one course.
type BulkEnrollInput struct {
	CourseID    uuid.UUID
	UserIDs     []uuid.UUID
	Source      enums.EnrollmentSource
	ActorUserID uuid.UUID
	ActorRole   enums.UserRole
}

// BulkEnrollItem is the per-user outcome of a bulk request.
type BulkEnrollItem struct {
	UserID  uuid.UUID `json:"user_id"`
	Outcome Outcome   `json:"outcome,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// BulkEnrollResult aggregates per-user outcomes.
type BulkEnrollResult struct {
	Items     []BulkEnrollItem `json:"items"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
}

// WithdrawResult reports what the withdrawal triggered.
type WithdrawResult struct {
	Enrollment      *models.Enrollment `json:"enrollment"`
	RefundRequested bool               `json:"refund_requested"`
	RefundAmount    decimal.Decimal    `json:"refund_amount"`
	Promoted        *models.Enrollment `json:"promoted,omitempty"`
}

// CapacityInfo is the realtime seat picture for a course.
type CapacityInfo struct {
	CourseID       uuid.UUID `json:"course_id"`
	Capacity       *int      `json:"capacity,omitempty"`
	ActiveCount    int       `json:"active_count"`
	SeatsAvailable *int      `json:"seats_available,omitempty"`
	WaitlistLength int64     `json:"waitlist_length"`
}

// PrerequisiteCheck reports which prerequisite courses are still missing.
type PrerequisiteCheck struct {
	Satisfied bool        `json:"satisfied"`
	Missing   []uuid.UUID `json:"missing"`
	Completed []uuid.UUID `json:"completed"`
}

// CourseStats summarizes enrollment counts per lifecycle state.
type CourseStats struct {
	CourseID uuid.UUID                         `json:"course_id"`
	Counts   map[enums.EnrollmentStatus]int64 `json:"counts"`
}
