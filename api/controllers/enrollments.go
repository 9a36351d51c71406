package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/codigo-learn/lms-backend/api/responses"
	"github.com/codigo-learn/lms-backend/api/validators"
	"github.com/codigo-learn/lms-backend/internal/enrollments"
	"github.com/codigo-learn/lms-backend/pkg/enums"
	pkgerrors "github.com/codigo-learn/lms-backend/pkg/errors"
	"github.com/codigo-learn/lms-backend/pkg/logger"
)

type enrollRequest struct {
	CourseID       uuid.UUID  `json:"course_id" validate:"required"`
	UserID         *uuid.UUID `json:"user_id,omitempty"`
	Source         string     `json:"source,omitempty"`
	VoucherCode    string     `json:"voucher_code,omitempty"`
	PrereqOverride bool       `json:"prereq_override,omitempty"`
}

// Enroll submits one enrollment request through the policy dispatcher.
// user_id lets staff enroll on behalf of a learner; self-service callers
// may only enroll themselves.
func Enroll(svc enrollments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req enrollRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		role := actorRole(r)
		userID := actor
		if req.UserID != nil && *req.UserID != actor {
			if role != enums.RoleAdmin && role != enums.RoleInstructor {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeForbidden, "cannot enroll another user"))
				return
			}
			userID = *req.UserID
		}

		input := enrollments.EnrollInput{
			UserID:         userID,
			CourseID:       req.CourseID,
			VoucherCode:    strings.TrimSpace(req.VoucherCode),
			PrereqOverride: req.PrereqOverride,
			ActorUserID:    actor,
			ActorRole:      role,
		}
		if req.Source != "" {
			input.Source = enums.EnrollmentSource(req.Source)
		}

		result, err := svc.Enroll(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// MyEnrollments lists the caller's enrollments, newest first.
func MyEnrollments(svc enrollments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.ListForUser(r.Context(), actor, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}

// EnrollmentDetail returns one enrollment. Learners may only read their
// own records; staff may read any.
func EnrollmentDetail(svc enrollments.Service, logg *logger.Logger) http.HandlerFunc {
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

		enrollment, err := svc.FindByID(r.Context(), enrollmentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		role := actorRole(r)
		if enrollment.UserID != actor && role != enums.RoleAdmin && role != enums.RoleInstructor {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "enrollment not found"))
			return
		}
		responses.WriteSuccess(w, enrollment)
	}
}

type withdrawRequest struct {
	Reason string `json:"reason,omitempty"`
}

// Withdraw lets the enrolled learner leave a course.
func Withdraw(svc enrollments.Service, logg *logger.Logger) http.HandlerFunc {
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

		var req withdrawRequest
		if err := validators.DecodeOptionalJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Withdraw(r.Context(), enrollmentID, actor, validators.SanitizeString(req.Reason, 500))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type progressRequest struct {
	Progress decimal.Decimal `json:"progress"`
}

// UpdateProgress moves the learner's progress forward; reaching 1.0
// completes the enrollment.
func UpdateProgress(svc enrollments.Service, logg *logger.Logger) http.HandlerFunc {
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

		var req progressRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		enrollment, err := svc.UpdateProgress(r.Context(), enrollmentID, actor, req.Progress)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, enrollment)
	}
}
