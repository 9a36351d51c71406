package enrollments

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codigo-learn/lms-backend/pkg/enums"
	pkgerrors "github.com/codigo-learn/lms-backend/pkg/errors"
)

func TestCanTransition(t *testing.T) {
	legal := []struct {
		from, to enums.EnrollmentStatus
	}{
		{enums.EnrollmentStatusPendingReview, enums.EnrollmentStatusActive},
		{enums.EnrollmentStatusPendingReview, enums.EnrollmentStatusDenied},
		{enums.EnrollmentStatusPendingReview, enums.EnrollmentStatusExpired},
		{enums.EnrollmentStatusWaitlisted, enums.EnrollmentStatusActive},
		{enums.EnrollmentStatusWaitlisted, enums.EnrollmentStatusWithdrawn},
		{enums.EnrollmentStatusActive, enums.EnrollmentStatusWithdrawn},
		{enums.EnrollmentStatusActive, enums.EnrollmentStatusCompleted},
		{enums.EnrollmentStatusActive, enums.EnrollmentStatusDropped},
		{enums.EnrollmentStatusActive, enums.EnrollmentStatusSuspended},
		{enums.EnrollmentStatusSuspended, enums.EnrollmentStatusActive},
		{enums.EnrollmentStatusSuspended, enums.EnrollmentStatusDropped},
		{enums.EnrollmentStatusWithdrawn, enums.EnrollmentStatusRefunded},
	}
	for _, tc := range legal {
		require.True(t, CanTransition(tc.from, tc.to), "%s -> %s should be legal", tc.from, tc.to)
	}

	illegal := []struct {
		from, to enums.EnrollmentStatus
	}{
		{enums.EnrollmentStatusDenied, enums.EnrollmentStatusActive},
		{enums.EnrollmentStatusCompleted, enums.EnrollmentStatusActive},
		{enums.EnrollmentStatusWaitlisted, enums.EnrollmentStatusCompleted},
		{enums.EnrollmentStatusActive, enums.EnrollmentStatusPendingReview},
		{enums.EnrollmentStatusExpired, enums.EnrollmentStatusActive},
	}
	for _, tc := range illegal {
		require.False(t, CanTransition(tc.from, tc.to), "%s -> %s should be illegal", tc.from, tc.to)
	}
}

func TestIsTerminal(t *testing.T) {
	require.True(t, IsTerminal(enums.EnrollmentStatusDenied))
	require.True(t, IsTerminal(enums.EnrollmentStatusCompleted))
	require.True(t, IsTerminal(enums.EnrollmentStatusRefunded))
	require.True(t, IsTerminal(enums.EnrollmentStatusDropped))
	require.False(t, IsTerminal(enums.EnrollmentStatusActive))
	require.False(t, IsTerminal(enums.EnrollmentStatusWithdrawn))
}

func TestIsLive(t *testing.T) {
	require.True(t, IsLive(enums.EnrollmentStatusActive))
	require.True(t, IsLive(enums.EnrollmentStatusPendingReview))
	require.True(t, IsLive(enums.EnrollmentStatusWaitlisted))
	require.False(t, IsLive(enums.EnrollmentStatusWithdrawn))
	require.False(t, IsLive(enums.EnrollmentStatusCompleted))
}

func TestGuardTransitionRejectsWithStateConflict(t *testing.T) {
	err := guardTransition(enums.EnrollmentStatusCompleted, enums.EnrollmentStatusActive)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	require.NoError(t, guardTransition(enums.EnrollmentStatusActive, enums.EnrollmentStatusCompleted))
}
