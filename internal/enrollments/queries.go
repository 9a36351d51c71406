package enrollments

import (
	"context"

	"github.com/google/uuid"

	"github.com/codigo-learn/lms-backend/pkg/db/models"
	"github.com/codigo-learn/lms-backend/pkg/enums"
	pkgerrors "github.com/codigo-learn/lms-backend/pkg/errors"
)

func (s *service) FindByID(ctx context.Context, enrollmentID uuid.UUID) (*models.Enrollment, error) {
	enrollment, err := s.repo.FindByID(ctx, enrollmentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find enrollment")
	}
	if enrollment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "enrollment not found")
	}
	return enrollment, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Enrollment, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	rows, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list enrollments")
	}
	return rows, nil
}

// GetCapacityInfo reports seat usage and waitlist depth for a course. The
// snapshot is advisory: it reads without the seat lock.
func (s *service) GetCapacityInfo(ctx context.Context, courseID uuid.UUID) (*CapacityInfo, error) {
	course, err := s.loadCourseUnfiltered(ctx, courseID)
	if err != nil {
		return nil, err
	}
	seat, err := s.seats.Snapshot(ctx, courseID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read seat counters")
	}
	waitlisted, err := s.repo.CountByStatus(ctx, courseID, enums.EnrollmentStatusWaitlisted)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count waitlist")
	}

	info := &CapacityInfo{
		CourseID:       courseID,
		Capacity:       course.Capacity,
		WaitlistLength: waitlisted,
	}
	if seat != nil {
		info.ActiveCount = seat.ActiveCount
	}
	if course.Capacity != nil {
		available := *course.Capacity - info.ActiveCount
		if available < 0 {
			available = 0
		}
		info.SeatsAvailable = &available
	}
	return info, nil
}

// CheckPrerequisites reports which prerequisite courses the user has and
// has not completed.
func (s *service) CheckPrerequisites(ctx context.Context, userID, courseID uuid.UUID) (*PrerequisiteCheck, error) {
	course, err := s.loadCourseUnfiltered(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return s.checkPrerequisites(ctx, userID, course)
}

func (s *service) checkPrerequisites(ctx context.Context, userID uuid.UUID, course *models.Course) (*PrerequisiteCheck, error) {
	required := []uuid.UUID(course.PrerequisiteIDs)
	if len(required) == 0 {
		return &PrerequisiteCheck{Satisfied: true}, nil
	}

	completed, err := s.repo.ListCompletedCourseIDs(ctx, userID, required)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list completed prerequisites")
	}
	done := make(map[uuid.UUID]bool, len(completed))
	for _, id := range completed {
		done[id] = true
	}

	check := &PrerequisiteCheck{Completed: completed}
	for _, id := range required {
		if !done[id] {
			check.Missing = append(check.Missing, id)
		}
	}
	check.Satisfied = len(check.Missing) == 0
	return check, nil
}

// Stats returns the per-status enrollment counts for a course.
func (s *service) Stats(ctx context.Context, courseID uuid.UUID) (*CourseStats, error) {
	if courseID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "course id required")
	}
	counts, err := s.repo.StatusCounts(ctx, courseID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read status counts")
	}
	return &CourseStats{CourseID: courseID, Counts: counts}, nil
}
