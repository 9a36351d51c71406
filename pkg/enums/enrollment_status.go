package enums

import "fmt"

// EnrollmentStatus tracks the lifecycle of an enrollment record.
type EnrollmentStatus string

const (
	EnrollmentStatusPendingReview EnrollmentStatus = "pending_review"
	EnrollmentStatusWaitlisted    EnrollmentStatus = "waitlisted"
	EnrollmentStatusActive        EnrollmentStatus = "active"
	EnrollmentStatusDenied        EnrollmentStatus = "denied"
	EnrollmentStatusWithdrawn     EnrollmentStatus = "withdrawn"
	EnrollmentStatusCompleted     EnrollmentStatus = "completed"
	EnrollmentStatusDropped       EnrollmentStatus = "dropped"
	EnrollmentStatusSuspended     EnrollmentStatus = "suspended"
	EnrollmentStatusExpired       EnrollmentStatus = "expired"
	EnrollmentStatusRefunded      EnrollmentStatus = "refunded"
)

var validEnrollmentStatuses = []EnrollmentStatus{
	EnrollmentStatusPendingReview,
	EnrollmentStatusWaitlisted,
	EnrollmentStatusActive,
	EnrollmentStatusDenied,
	EnrollmentStatusWithdrawn,
	EnrollmentStatusCompleted,
	EnrollmentStatusDropped,
	EnrollmentStatusSuspended,
	EnrollmentStatusExpired,
	EnrollmentStatusRefunded,
}

// LiveEnrollmentStatuses are the statuses that count as an existing enrollment
// for the duplicate check: at most one per (student, course) pair.
var LiveEnrollmentStatuses = []EnrollmentStatus{
	EnrollmentStatusActive,
	EnrollmentStatusPendingReview,
	EnrollmentStatusWaitlisted,
}

// String implements fmt.Stringer.
func (s EnrollmentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known EnrollmentStatus.
func (s EnrollmentStatus) IsValid() bool {
	for _, candidate := range validEnrollmentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsLive reports whether the status blocks a new enrollment for the same pair.
func (s EnrollmentStatus) IsLive() bool {
	for _, candidate := range LiveEnrollmentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func (s EnrollmentStatus) IsTerminal() bool {
	switch s {
	case EnrollmentStatusDenied,
		EnrollmentStatusWithdrawn,
		EnrollmentStatusCompleted,
		EnrollmentStatusDropped,
		EnrollmentStatusExpired,
		EnrollmentStatusRefunded:
		return true
	}
	return false
}

// ParseEnrollmentStatus converts raw input into an EnrollmentStatus.
func ParseEnrollmentStatus(value string) (EnrollmentStatus, error) {
	for _, candidate := range validEnrollmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid enrollment status %q", value)
}
