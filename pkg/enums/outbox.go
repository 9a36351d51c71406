package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateEnrollment  OutboxAggregateType = "enrollment"
	AggregateCourse      OutboxAggregateType = "course"
	AggregatePayment     OutboxAggregateType = "payment"
	AggregateVoucher     OutboxAggregateType = "voucher"
	AggregateEntitlement OutboxAggregateType = "entitlement"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateEnrollment,
	AggregateCourse,
	AggregatePayment,
	AggregateVoucher,
	AggregateEntitlement,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventEnrollmentActivated  OutboxEventType = "enrollment_activated"
	EventEnrollmentWaitlisted OutboxEventType = "enrollment_waitlisted"
	EventEnrollmentRequested  OutboxEventType = "enrollment_requested"
	EventEnrollmentApproved   OutboxEventType = "enrollment_approved"
	EventEnrollmentDenied     OutboxEventType = "enrollment_denied"
	EventEnrollmentWithdrawn  OutboxEventType = "enrollment_withdrawn"
	EventEnrollmentPromoted   OutboxEventType = "enrollment_promoted"
	EventEnrollmentCompleted  OutboxEventType = "enrollment_completed"
	EventEnrollmentExpired    OutboxEventType = "enrollment_expired"
	EventPaymentFailed        OutboxEventType = "payment_failed"
	EventRefundRequested      OutboxEventType = "refund_requested"
	EventPointsAwarded        OutboxEventType = "points_awarded"
)

var validOutboxEventTypes = []OutboxEventType{
	EventEnrollmentActivated,
	EventEnrollmentWaitlisted,
	EventEnrollmentRequested,
	EventEnrollmentApproved,
	EventEnrollmentDenied,
	EventEnrollmentWithdrawn,
	EventEnrollmentPromoted,
	EventEnrollmentCompleted,
	EventEnrollmentExpired,
	EventPaymentFailed,
	EventRefundRequested,
	EventPointsAwarded,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// OutboxDLQErrorReason classifies why an outbox event was dead-lettered.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts_exceeded"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

var validDLQErrorReasons = []OutboxDLQErrorReason{
	OutboxDLQReasonMaxAttempts,
	OutboxDLQReasonNonRetryable,
}

// IsValid reports whether the value is a known dead-letter reason.
func (r OutboxDLQErrorReason) IsValid() bool {
	for _, candidate := range validDLQErrorReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}
