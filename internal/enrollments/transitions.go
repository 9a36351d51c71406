package enrollments

import (
	"github.com/codigo-learn/lms-backend/pkg/enums"
	pkgerrors "github.com/codigo-learn/lms-backend/pkg/errors"
)

// legalTransitions is the single authority on enrollment lifecycle moves.
// Callers never write a status directly; every mutation goes through a
// compare-and-swap guarded by this table.
var legalTransitions = map[enums.EnrollmentStatus][]enums.EnrollmentStatus{
	enums.EnrollmentStatusPendingReview: {
		enums.EnrollmentStatusActive,
		enums.EnrollmentStatusDenied,
		enums.EnrollmentStatusExpired,
	},
	enums.EnrollmentStatusWaitlisted: {
		enums.EnrollmentStatusActive,
		enums.EnrollmentStatusWithdrawn,
	},
	enums.EnrollmentStatusActive: {
		enums.EnrollmentStatusWithdrawn,
		enums.EnrollmentStatusCompleted,
		enums.EnrollmentStatusDropped,
		enums.EnrollmentStatusSuspended,
		enums.EnrollmentStatusRefunded,
	},
	enums.EnrollmentStatusSuspended: {
		enums.EnrollmentStatusActive,
		enums.EnrollmentStatusDropped,
	},
	enums.EnrollmentStatusWithdrawn: {
		enums.EnrollmentStatusRefunded,
	},
}

// liveStatuses are the states that count as an existing enrollment for the
// one-live-row-per-(user, course) rule.
var liveStatuses = []enums.EnrollmentStatus{
	enums.EnrollmentStatusActive,
	enums.EnrollmentStatusPendingReview,
	enums.EnrollmentStatusWaitlisted,
}

// CanTransition reports whether from -> to is a legal lifecycle move.
func CanTransition(from, to enums.EnrollmentStatus) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
// Re-enrollment after a terminal state creates a new record.
func IsTerminal(status enums.EnrollmentStatus) bool {
	return len(legalTransitions[status]) == 0
}

// IsLive reports whether the status blocks a new enrollment for the pair.
func IsLive(status enums.EnrollmentStatus) bool {
	for _, live := range liveStatuses {
		if live == status {
			return true
		}
	}
	return false
}

func guardTransition(from, to enums.EnrollmentStatus) error {
	if !CanTransition(from, to) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "enrollment cannot move from "+string(from)+" to "+string(to))
	}
	return nil
}
