package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/codigo-learn/lms-backend/api/responses"
	"github.com/codigo-learn/lms-backend/api/validators"
	"github.com/codigo-learn/lms-backend/internal/enrollments"
	"github.com/codigo-learn/lms-backend/pkg/enums"
	pkgerrors "github.com/codigo-learn/lms-backend/pkg/errors"
	"github.com/codigo-learn/lms-backend/pkg/logger"
)

// ApproveEnrollment confirms a pending-review enrollment.
func ApproveEnrollment(svc enrollments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		enrollmentID, err := pathUUID(r, "enrollmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		enrollment, err := svc.Approve(r.Context(), enrollmentID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, enrollment)
	}
}

type reviewRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

// DenyEnrollment rejects a pending-review enrollment with a reason.
func DenyEnrollment(svc enrollments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		enrollmentID, err := pathUUID(r, "enrollmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req reviewRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		enrollment, err := svc.Deny(r.Context(), enrollmentID, actor, validators.SanitizeString(req.Reason, 500))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, enrollment)
	}
}

type adminActionRequest struct {
	Reason string `json:"reason,omitempty"`
}

// DropEnrollment force-removes a learner from a course.
func DropEnrollment(svc enrollments.Service, logg *logger.Logger) http.HandlerFunc {
	return adminAction(svc, logg, func(r *http.Request, svc enrollments.Service, enrollmentID, actor uuid.UUID, reason string) (any, error) {
		return svc.Drop(r.Context(), enrollmentID, actor, reason)
	})
}

// SuspendEnrollment pauses access without freeing the seat.
func SuspendEnrollment(svc enrollments.Service, logg *logger.Logger) http.HandlerFunc {
	return adminAction(svc, logg, func(r *http.Request, svc enrollments.Service, enrollmentID, actor uuid.UUID, reason string) (any, error) {
		return svc.Suspend(r.Context(), enrollmentID, actor, reason)
	})
}

// ReinstateEnrollment lifts a suspension.
func ReinstateEnrollment(svc enrollments.Service, logg *logger.Logger) http.HandlerFunc {
	return adminAction(svc, logg, func(r *http.Request, svc enrollments.Service, enrollmentID, actor uuid.UUID, _ string) (any, error) {
		return svc.Reinstate(r.Context(), enrollmentID, actor)
	})
}

func adminAction(svc enrollments.Service, logg *logger.Logger, run func(*http.Request, enrollments.Service, uuid.UUID, uuid.UUID, string) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		enrollmentID, err := pathUUID(r, "enrollmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req adminActionRequest
		if err := validators.DecodeOptionalJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := run(r, svc, enrollmentID, actor, validators.SanitizeString(req.Reason, 500))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type bulkEnrollRequest struct {
	CourseID uuid.UUID   `json:"course_id" validate:"required"`
	UserIDs  []uuid.UUID `json:"user_ids" validate:"required,min=1"`
	Source   string      `json:"source,omitempty"`
}

// BulkEnroll enrolls a batch of users into one course and reports
// per-user outcomes.
func BulkEnroll(svc enrollments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req bulkEnrollRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := enrollments.BulkEnrollInput{
			CourseID:    req.CourseID,
			UserIDs:     req.UserIDs,
			ActorUserID: actor,
			ActorRole:   actorRole(r),
		}
		if req.Source != "" {
			input.Source = enums.EnrollmentSource(req.Source)
		}

		result, err := svc.BulkEnroll(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := http.StatusCreated
		if result.Failed > 0 {
			status = http.StatusMultiStatus
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}

// PromoteWaitlist pulls the waitlist head into a free seat, if any.
func PromoteWaitlist(svc enrollments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID, err := pathUUID(r, "courseId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		promoted, err := svc.PromoteFromWaitlist(r.Context(), courseID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if promoted == nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeStateConflict, "no promotable waitlist entry"))
			return
		}
		responses.WriteSuccess(w, promoted)
	}
}
