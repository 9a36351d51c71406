package payloads

import (
	"time"

	"github.com/codigo-learn/lms-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EnrollmentRequestedEvent is emitted when an approval-gated enrollment is created.
type EnrollmentRequestedEvent struct {
	EnrollmentID uuid.UUID              `json:"enrollment_id"`
	UserID       uuid.UUID              `json:"user_id"`
	CourseID     uuid.UUID              `json:"course_id"`
	Policy       enums.EnrollmentPolicy `json:"policy"`
	Source       enums.EnrollmentSource `json:"source"`
}

// EnrollmentActivatedEvent signals a seat was taken and access granted.
type EnrollmentActivatedEvent struct {
	EnrollmentID uuid.UUID              `json:"enrollment_id"`
	UserID       uuid.UUID              `json:"user_id"`
	CourseID     uuid.UUID              `json:"course_id"`
	Source       enums.EnrollmentSource `json:"source"`
	ActivatedAt  time.Time              `json:"activated_at"`
}

// EnrollmentWaitlistedEvent carries the assigned queue position.
type EnrollmentWaitlistedEvent struct {
	EnrollmentID     uuid.UUID `json:"enrollment_id"`
	UserID           uuid.UUID `json:"user_id"`
	CourseID         uuid.UUID `json:"course_id"`
	WaitlistPosition int       `json:"waitlist_position"`
}

// EnrollmentApprovedEvent is emitted when a reviewer admits a pending request.
type EnrollmentApprovedEvent struct {
	EnrollmentID   uuid.UUID `json:"enrollment_id"`
	UserID         uuid.UUID `json:"user_id"`
	CourseID       uuid.UUID `json:"course_id"`
	ReviewerUserID uuid.UUID `json:"reviewer_user_id"`
}

// EnrollmentDeniedEvent records the denial and its reason.
type EnrollmentDeniedEvent struct {
	EnrollmentID   uuid.UUID  `json:"enrollment_id"`
	UserID         uuid.UUID  `json:"user_id"`
	CourseID       uuid.UUID  `json:"course_id"`
	ReviewerUserID *uuid.UUID `json:"reviewer_user_id,omitempty"`
	Reason         string     `json:"reason,omitempty"`
}

// EnrollmentWithdrawnEvent is emitted when a student leaves a course.
type EnrollmentWithdrawnEvent struct {
	EnrollmentID   uuid.UUID `json:"enrollment_id"`
	UserID         uuid.UUID `json:"user_id"`
	CourseID       uuid.UUID `json:"course_id"`
	RefundEligible bool      `json:"refund_eligible"`
	WithdrawnAt    time.Time `json:"withdrawn_at"`
}

// EnrollmentPromotedEvent signals a waitlisted enrollment took a freed seat.
type EnrollmentPromotedEvent struct {
	EnrollmentID     uuid.UUID `json:"enrollment_id"`
	UserID           uuid.UUID `json:"user_id"`
	CourseID         uuid.UUID `json:"course_id"`
	PreviousPosition int       `json:"previous_position"`
}

// EnrollmentCompletedEvent is emitted when progress reaches 100%.
type EnrollmentCompletedEvent struct {
	EnrollmentID uuid.UUID `json:"enrollment_id"`
	UserID       uuid.UUID `json:"user_id"`
	CourseID     uuid.UUID `json:"course_id"`
	CompletedAt  time.Time `json:"completed_at"`
}

// EnrollmentExpiredEvent reports a pending payment that timed out.
type EnrollmentExpiredEvent struct {
	EnrollmentID uuid.UUID  `json:"enrollment_id"`
	UserID       uuid.UUID  `json:"user_id"`
	CourseID     uuid.UUID  `json:"course_id"`
	PaymentID    *uuid.UUID `json:"payment_id,omitempty"`
	ExpiredAt    time.Time  `json:"expired_at"`
}

// PaymentFailedEvent mirrors the processor's failure callback.
type PaymentFailedEvent struct {
	PaymentID    uuid.UUID  `json:"payment_id"`
	EnrollmentID *uuid.UUID `json:"enrollment_id,omitempty"`
	UserID       uuid.UUID  `json:"user_id"`
	CourseID     uuid.UUID  `json:"course_id"`
	Reason       string     `json:"reason,omitempty"`
}

// RefundRequestedEvent asks the payment processor to return funds.
type RefundRequestedEvent struct {
	PaymentID    uuid.UUID       `json:"payment_id"`
	EnrollmentID uuid.UUID       `json:"enrollment_id"`
	UserID       uuid.UUID       `json:"user_id"`
	CourseID     uuid.UUID       `json:"course_id"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     enums.Currency  `json:"currency"`
}

// PointsAwardedEvent credits gamification points to a user.
type PointsAwardedEvent struct {
	UserID   uuid.UUID `json:"user_id"`
	CourseID uuid.UUID `json:"course_id"`
	Points   int       `json:"points"`
	Reason   string    `json:"reason"`
}
