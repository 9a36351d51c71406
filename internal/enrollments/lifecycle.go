package enrollments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/codigo-learn/lms-backend/internal/audit"
	"github.com/codigo-learn/lms-backend/internal/capacity"
	"github.com/codigo-learn/lms-backend/pkg/db/models"
	"github.com/codigo-learn/lms-backend/pkg/enums"
	pkgerrors "github.com/codigo-learn/lms-backend/pkg/errors"
	"github.com/codigo-learn/lms-backend/pkg/outbox"
	"github.com/codigo-learn/lms-backend/pkg/outbox/payloads"
)

// Approve moves a PENDING_REVIEW enrollment to ACTIVE. Capacity is
// re-checked at approval time because the request held no seat.
func (s *service) Approve(ctx context.Context, enrollmentID, reviewerID uuid.UUID) (*models.Enrollment, error) {
	var approved *models.Enrollment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		enrollment, err := repo.LockByID(ctx, enrollmentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock enrollment")
		}
		if enrollment == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "enrollment not found")
		}
		if enrollment.PaymentID != nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment-backed enrollments activate through payment confirmation")
		}
		if err := guardTransition(enrollment.Status, enums.EnrollmentStatusActive); err != nil {
			return err
		}

		course, err := s.loadCourse(ctx, enrollment.CourseID)
		if err != nil {
			return err
		}
		if err := s.seats.ReserveSeat(tx, course.ID, course.Capacity); err != nil {
			if errors.Is(err, capacity.ErrCourseFull) {
				return pkgerrors.New(pkgerrors.CodeConflict, "course is at capacity")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve seat")
		}

		now := s.now()
		swapped, err := repo.UpdateStatus(ctx, enrollment.ID,
			enums.EnrollmentStatusPendingReview, enums.EnrollmentStatusActive,
			map[string]any{"activated_at": now, "approved_at": now, "approved_by": reviewerID})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "activate enrollment")
		}
		if !swapped {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "enrollment left pending review concurrently")
		}
		enrollment.Status = enums.EnrollmentStatusActive
		enrollment.ActivatedAt = &now
		enrollment.ApprovedAt = &now
		enrollment.ApprovedBy = &reviewerID

		if err := s.applyActivationEffects(ctx, tx, course, enrollment, activationOpts{
			actorID:   reviewerID,
			actorRole: enums.RoleInstructor,
		}); err != nil {
			return err
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventEnrollmentApproved,
			AggregateType: enums.AggregateEnrollment,
			AggregateID:   enrollment.ID,
			Version:       1,
			Actor:         s.actor(reviewerID, enums.RoleInstructor),
			Data: payloads.EnrollmentApprovedEvent{
				EnrollmentID:   enrollment.ID,
				UserID:         enrollment.UserID,
				CourseID:       enrollment.CourseID,
				ReviewerUserID: reviewerID,
			},
		}); err != nil {
			return err
		}
		if _, err := s.audit.Record(ctx, tx, audit.RecordInput{
			Action:      enums.AuditEnrollmentApproved,
			ActorUserID: &reviewerID,
			SubjectID:   enrollment.ID,
			SubjectType: subjectEnrollment,
			CourseID:    &enrollment.CourseID,
			Detail:      map[string]any{"success": true},
		}); err != nil {
			return err
		}
		approved = enrollment
		return nil
	})
	if err != nil {
		s.recordFailure(ctx, enums.AuditEnrollmentApproved, reviewerID, enrollmentID, uuid.Nil, err)
		return nil, err
	}
	return approved, nil
}

// Deny rejects a PENDING_REVIEW enrollment and records the reviewer's reason.
func (s *service) Deny(ctx context.Context, enrollmentID, reviewerID uuid.UUID, reason string) (*models.Enrollment, error) {
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "denial reason required")
	}
	var denied *models.Enrollment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		enrollment, err := repo.LockByID(ctx, enrollmentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock enrollment")
		}
		if enrollment == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "enrollment not found")
		}
		if err := guardTransition(enrollment.Status, enums.EnrollmentStatusDenied); err != nil {
			return err
		}

		swapped, err := repo.UpdateStatus(ctx, enrollment.ID,
			enums.EnrollmentStatusPendingReview, enums.EnrollmentStatusDenied,
			map[string]any{"denial_reason": reason})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deny enrollment")
		}
		if !swapped {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "enrollment left pending review concurrently")
		}
		enrollment.Status = enums.EnrollmentStatusDenied
		enrollment.DenialReason = &reason

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventEnrollmentDenied,
			AggregateType: enums.AggregateEnrollment,
			AggregateID:   enrollment.ID,
			Version:       1,
			Actor:         s.actor(reviewerID, enums.RoleInstructor),
			Data: payloads.EnrollmentDeniedEvent{
				EnrollmentID:   enrollment.ID,
				UserID:         enrollment.UserID,
				CourseID:       enrollment.CourseID,
				ReviewerUserID: &reviewerID,
				Reason:         reason,
			},
		}); err != nil {
			return err
		}
		if _, err := s.audit.Record(ctx, tx, audit.RecordInput{
			Action:      enums.AuditEnrollmentDenied,
			ActorUserID: &reviewerID,
			SubjectID:   enrollment.ID,
			SubjectType: subjectEnrollment,
			CourseID:    &enrollment.CourseID,
			Detail:      map[string]any{"success": true, "reason": reason},
		}); err != nil {
			return err
		}
		denied = enrollment
		return nil
	})
	if err != nil {
		s.recordFailure(ctx, enums.AuditEnrollmentDenied, reviewerID, enrollmentID, uuid.Nil, err)
		return nil, err
	}
	return denied, nil
}

// Withdraw is the student-initiated exit from ACTIVE. Entitlements are
// revoked, the seat is released, a refund is raised when the enrollment is
// still inside its refund window, and a waitlisted enrollment is promoted
// into the freed seat.
func (s *service) Withdraw(ctx context.Context, enrollmentID, requesterID uuid.UUID, reason string) (*WithdrawResult, error) {
	var result *WithdrawResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		enrollment, err := repo.LockByID(ctx, enrollmentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock enrollment")
		}
		if enrollment == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "enrollment not found")
		}
		if enrollment.UserID != requesterID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the enrolled student may withdraw")
		}
		if err := guardTransition(enrollment.Status, enums.EnrollmentStatusWithdrawn); err != nil {
			return err
		}

		course, err := s.loadCourseUnfiltered(ctx, enrollment.CourseID)
		if err != nil {
			return err
		}

		now := s.now()
		updates := map[string]any{"withdrawn_at": now}
		if enrollment.Status == enums.EnrollmentStatusWaitlisted {
			updates["waitlist_position"] = nil
		}
		swapped, err := repo.UpdateStatus(ctx, enrollment.ID,
			enrollment.Status, enums.EnrollmentStatusWithdrawn, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "withdraw enrollment")
		}
		if !swapped {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "enrollment changed state concurrently")
		}
		wasActive := enrollment.Status == enums.EnrollmentStatusActive
		hadSeat := wasActive
		enrollment.Status = enums.EnrollmentStatusWithdrawn
		enrollment.WithdrawnAt = &now
		enrollment.WaitlistPosition = nil

		if _, err := s.grants.RevokeForEnrollment(ctx, tx, enrollment.ID); err != nil {
			return err
		}

		res := &WithdrawResult{Enrollment: enrollment}
		if enrollment.PaymentID != nil && s.refundEligible(enrollment, course, now) {
			refund, err := s.payments.RequestRefund(ctx, tx, *enrollment.PaymentID, decimal.Zero, "enrollment withdrawn")
			if err != nil {
				return err
			}
			res.RefundRequested = true
			res.RefundAmount = refund.RefundedNow
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventRefundRequested,
				AggregateType: enums.AggregatePayment,
				AggregateID:   *enrollment.PaymentID,
				Version:       1,
				Actor:         s.actor(requesterID, enums.RoleStudent),
				Data: payloads.RefundRequestedEvent{
					PaymentID:    *enrollment.PaymentID,
					EnrollmentID: enrollment.ID,
					UserID:       enrollment.UserID,
					CourseID:     enrollment.CourseID,
					Amount:       refund.RefundedNow,
					Currency:     course.Currency,
				},
			}); err != nil {
				return err
			}
			if _, err := s.audit.Record(ctx, tx, audit.RecordInput{
				Action:      enums.AuditRefundRequested,
				ActorUserID: &requesterID,
				SubjectID:   *enrollment.PaymentID,
				SubjectType: subjectPayment,
				CourseID:    &enrollment.CourseID,
				Detail:      map[string]any{"success": true, "amount": refund.RefundedNow},
			}); err != nil {
				return err
			}
		}

		if hadSeat {
			if err := s.seats.ReleaseSeat(tx, enrollment.CourseID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release seat")
			}
			promoted, err := s.promoteLocked(ctx, tx, course)
			if err != nil {
				return err
			}
			res.Promoted = promoted
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventEnrollmentWithdrawn,
			AggregateType: enums.AggregateEnrollment,
			AggregateID:   enrollment.ID,
			Version:       1,
			Actor:         s.actor(requesterID, enums.RoleStudent),
			Data: payloads.EnrollmentWithdrawnEvent{
				EnrollmentID:   enrollment.ID,
				UserID:         enrollment.UserID,
				CourseID:       enrollment.CourseID,
				RefundEligible: res.RefundRequested,
				WithdrawnAt:    now,
			},
		}); err != nil {
			return err
		}
		if _, err := s.audit.Record(ctx, tx, audit.RecordInput{
			Action:      enums.AuditEnrollmentWithdrawn,
			ActorUserID: &requesterID,
			SubjectID:   enrollment.ID,
			SubjectType: subjectEnrollment,
			CourseID:    &enrollment.CourseID,
			Detail:      map[string]any{"success": true, "reason": reason, "refund": res.RefundRequested},
		}); err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		s.recordFailure(ctx, enums.AuditEnrollmentWithdrawn, requesterID, enrollmentID, uuid.Nil, err)
		return nil, err
	}
	return result, nil
}

func (s *service) refundEligible(enrollment *models.Enrollment, course *models.Course, now time.Time) bool {
	if enrollment.RefundEligibleUntil == nil || now.After(*enrollment.RefundEligibleUntil) {
		return false
	}
	return enrollment.Progress.LessThanOrEqual(course.MaxRefundProgress)
}

// Drop is the administrative removal from ACTIVE or SUSPENDED. No refund is
// raised; the freed seat promotes the waitlist head when one exists.
func (s *service) Drop(ctx context.Context, enrollmentID, adminID uuid.UUID, reason string) (*models.Enrollment, error) {
	return s.adminTerminate(ctx, enrollmentID, adminID, reason, enums.EnrollmentStatusDropped, enums.AuditEnrollmentDropped)
}

func (s *service) adminTerminate(ctx context.Context, enrollmentID, adminID uuid.UUID, reason string, to enums.EnrollmentStatus, action enums.AuditAction) (*models.Enrollment, error) {
	var out *models.Enrollment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		enrollment, err := repo.LockByID(ctx, enrollmentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock enrollment")
		}
		if enrollment == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "enrollment not found")
		}
		if err := guardTransition(enrollment.Status, to); err != nil {
			return err
		}

		hadSeat := enrollment.Status == enums.EnrollmentStatusActive ||
			enrollment.Status == enums.EnrollmentStatusSuspended
		swapped, err := repo.UpdateStatus(ctx, enrollment.ID, enrollment.Status, to, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update enrollment status")
		}
		if !swapped {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "enrollment changed state concurrently")
		}
		enrollment.Status = to

		if _, err := s.grants.RevokeForEnrollment(ctx, tx, enrollment.ID); err != nil {
			return err
		}
		if hadSeat {
			if err := s.seats.ReleaseSeat(tx, enrollment.CourseID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release seat")
			}
			course, err := s.loadCourseUnfiltered(ctx, enrollment.CourseID)
			if err != nil {
				return err
			}
			if _, err := s.promoteLocked(ctx, tx, course); err != nil {
				return err
			}
		}

		if _, err := s.audit.Record(ctx, tx, audit.RecordInput{
			Action:      action,
			ActorUserID: &adminID,
			SubjectID:   enrollment.ID,
			SubjectType: subjectEnrollment,
			CourseID:    &enrollment.CourseID,
			Detail:      map[string]any{"success": true, "reason": reason},
		}); err != nil {
			return err
		}
		out = enrollment
		return nil
	})
	if err != nil {
		s.recordFailure(ctx, action, adminID, enrollmentID, uuid.Nil, err)
		return nil, err
	}
	return out, nil
}

// Suspend pauses an ACTIVE enrollment. The seat stays held so reinstatement
// never races the waitlist.
func (s *service) Suspend(ctx context.Context, enrollmentID, adminID uuid.UUID, reason string) (*models.Enrollment, error) {
	var out *models.Enrollment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		enrollment, err := repo.LockByID(ctx, enrollmentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock enrollment")
		}
		if enrollment == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "enrollment not found")
		}
		if err := guardTransition(enrollment.Status, enums.EnrollmentStatusSuspended); err != nil {
			return err
		}

		swapped, err := repo.UpdateStatus(ctx, enrollment.ID,
			enums.EnrollmentStatusActive, enums.EnrollmentStatusSuspended, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "suspend enrollment")
		}
		if !swapped {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "enrollment changed state concurrently")
		}
		enrollment.Status = enums.EnrollmentStatusSuspended

		if _, err := s.grants.SuspendForEnrollment(ctx, tx, enrollment.ID); err != nil {
			return err
		}
		if _, err := s.audit.Record(ctx, tx, audit.RecordInput{
			Action:      enums.AuditEnrollmentSuspended,
			ActorUserID: &adminID,
			SubjectID:   enrollment.ID,
			SubjectType: subjectEnrollment,
			CourseID:    &enrollment.CourseID,
			Detail:      map[string]any{"success": true, "reason": reason},
		}); err != nil {
			return err
		}
		out = enrollment
		return nil
	})
	if err != nil {
		s.recordFailure(ctx, enums.AuditEnrollmentSuspended, adminID, enrollmentID, uuid.Nil, err)
		return nil, err
	}
	return out, nil
}

// Reinstate resumes a SUSPENDED enrollment into ACTIVE, reactivating its
// suspended entitlements. The held seat makes this capacity-neutral.
func (s *service) Reinstate(ctx context.Context, enrollmentID, adminID uuid.UUID) (*models.Enrollment, error) {
	var out *models.Enrollment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		enrollment, err := repo.LockByID(ctx, enrollmentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock enrollment")
		}
		if enrollment == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "enrollment not found")
		}
		if enrollment.Status != enums.EnrollmentStatusSuspended {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only suspended enrollments can be reinstated")
		}

		swapped, err := repo.UpdateStatus(ctx, enrollment.ID,
			enums.EnrollmentStatusSuspended, enums.EnrollmentStatusActive, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reinstate enrollment")
		}
		if !swapped {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "enrollment changed state concurrently")
		}
		enrollment.Status = enums.EnrollmentStatusActive

		if _, err := s.grants.ReinstateForEnrollment(ctx, tx, enrollment.ID); err != nil {
			return err
		}
		if _, err := s.audit.Record(ctx, tx, audit.RecordInput{
			Action:      enums.AuditEnrollmentActivated,
			ActorUserID: &adminID,
			SubjectID:   enrollment.ID,
			SubjectType: subjectEnrollment,
			CourseID:    &enrollment.CourseID,
			Detail:      map[string]any{"success": true, "reinstated": true},
		}); err != nil {
			return err
		}
		out = enrollment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateProgress records a student's completion fraction. Reaching 1.0
// completes the enrollment: completion points are awarded, the seat is
// freed and the waitlist head promoted.
func (s *service) UpdateProgress(ctx context.Context, enrollmentID, requesterID uuid.UUID, progress decimal.Decimal) (*models.Enrollment, error) {
	if progress.IsNegative() || progress.GreaterThan(decimal.NewFromInt(1)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "progress must be between 0 and 1")
	}
	var out *models.Enrollment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		enrollment, err := repo.LockByID(ctx, enrollmentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock enrollment")
		}
		if enrollment == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "enrollment not found")
		}
		if enrollment.UserID != requesterID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "progress belongs to the enrolled student")
		}
		if enrollment.Status != enums.EnrollmentStatusActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "progress only advances on active enrollments")
		}
		if progress.LessThan(enrollment.Progress) {
			return pkgerrors.New(pkgerrors.CodeValidation, "progress cannot move backwards")
		}

		if err := repo.UpdateProgress(ctx, enrollment.ID, progress); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update progress")
		}
		enrollment.Progress = progress

		if progress.Equal(decimal.NewFromInt(1)) {
			if err := s.complete(ctx, tx, enrollment); err != nil {
				return err
			}
		}
		out = enrollment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// complete finalizes an enrollment whose progress reached 1.0. Entitlements
// survive completion; the seat does not.
func (s *service) complete(ctx context.Context, tx *gorm.DB, enrollment *models.Enrollment) error {
	repo := s.repo.WithTx(tx)
	now := s.now()
	swapped, err := repo.UpdateStatus(ctx, enrollment.ID,
		enums.EnrollmentStatusActive, enums.EnrollmentStatusCompleted,
		map[string]any{"completed_at": now})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete enrollment")
	}
	if !swapped {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "enrollment changed state concurrently")
	}
	enrollment.Status = enums.EnrollmentStatusCompleted
	enrollment.CompletedAt = &now

	course, err := s.loadCourseUnfiltered(ctx, enrollment.CourseID)
	if err != nil {
		return err
	}
	if err := s.seats.ReleaseSeat(tx, enrollment.CourseID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release seat")
	}
	if _, err := s.promoteLocked(ctx, tx, course); err != nil {
		return err
	}

	if course.CompletionPoints > 0 {
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPointsAwarded,
			AggregateType: enums.AggregateEnrollment,
			AggregateID:   enrollment.ID,
			Version:       1,
			Data: payloads.PointsAwardedEvent{
				UserID:   enrollment.UserID,
				CourseID: course.ID,
				Points:   course.CompletionPoints,
				Reason:   "completion",
			},
		}); err != nil {
			return err
		}
	}
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventEnrollmentCompleted,
		AggregateType: enums.AggregateEnrollment,
		AggregateID:   enrollment.ID,
		Version:       1,
		Actor:         s.actor(enrollment.UserID, enums.RoleStudent),
		Data: payloads.EnrollmentCompletedEvent{
			EnrollmentID: enrollment.ID,
			UserID:       enrollment.UserID,
			CourseID:     enrollment.CourseID,
			CompletedAt:  now,
		},
	}); err != nil {
		return err
	}
	if _, err := s.audit.Record(ctx, tx, audit.RecordInput{
		Action:      enums.AuditEnrollmentCompleted,
		ActorUserID: &enrollment.UserID,
		SubjectID:   enrollment.ID,
		SubjectType: subjectEnrollment,
		CourseID:    &enrollment.CourseID,
		Detail:      map[string]any{"success": true},
	}); err != nil {
		return err
	}
	return nil
}

// PromoteFromWaitlist moves the waitlist head into a free seat. It is a
// no-op when the course is full or the waitlist is empty.
func (s *service) PromoteFromWaitlist(ctx context.Context, courseID uuid.UUID) (*models.Enrollment, error) {
	course, err := s.loadCourseUnfiltered(ctx, courseID)
	if err != nil {
		return nil, err
	}
	var promoted *models.Enrollment
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		p, err := s.promoteLocked(ctx, tx, course)
		if err != nil {
			return err
		}
		promoted = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return promoted, nil
}

// promoteLocked runs inside an open transaction and fills at most one free
// seat from the waitlist head. Positions of the remaining entries are kept,
// not renumbered.
func (s *service) promoteLocked(ctx context.Context, tx *gorm.DB, course *models.Course) (*models.Enrollment, error) {
	repo := s.repo.WithTx(tx)
	head, err := repo.FirstWaitlisted(ctx, course.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read waitlist head")
	}
	if head == nil {
		return nil, nil
	}

	free, err := s.seats.HasFreeSeat(tx, course.ID, course.Capacity)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check free seat")
	}
	if !free {
		return nil, nil
	}
	if err := s.seats.ReserveSeat(tx, course.ID, course.Capacity); err != nil {
		if errors.Is(err, capacity.ErrCourseFull) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve seat")
	}

	previousPosition := 0
	if head.WaitlistPosition != nil {
		previousPosition = *head.WaitlistPosition
	}
	now := s.now()
	swapped, err := repo.UpdateStatus(ctx, head.ID,
		enums.EnrollmentStatusWaitlisted, enums.EnrollmentStatusActive,
		map[string]any{"activated_at": now, "waitlist_position": nil})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "promote enrollment")
	}
	if !swapped {
		return nil, nil
	}
	head.Status = enums.EnrollmentStatusActive
	head.ActivatedAt = &now
	head.WaitlistPosition = nil

	if err := s.applyActivationEffects(ctx, tx, course, head, activationOpts{
		actorID: head.UserID,
	}); err != nil {
		return nil, err
	}

	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventEnrollmentPromoted,
		AggregateType: enums.AggregateEnrollment,
		AggregateID:   head.ID,
		Version:       1,
		Data: payloads.EnrollmentPromotedEvent{
			EnrollmentID:     head.ID,
			UserID:           head.UserID,
			CourseID:         head.CourseID,
			PreviousPosition: previousPosition,
		},
	}); err != nil {
		return nil, err
	}
	if _, err := s.audit.Record(ctx, tx, audit.RecordInput{
		Action:      enums.AuditEnrollmentPromoted,
		ActorUserID: nil,
		SubjectID:   head.ID,
		SubjectType: subjectEnrollment,
		CourseID:    &head.CourseID,
		Detail:      map[string]any{"success": true, "previous_position": previousPosition},
	}); err != nil {
		return nil, err
	}
	return head, nil
}

// loadCourseUnfiltered fetches a course without the published gate; lifecycle
// transitions on existing enrollments must work after a course unpublishes.
func (s *service) loadCourseUnfiltered(ctx context.Context, courseID uuid.UUID) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup course")
	}
	if course == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "course not found")
	}
	return course, nil
}
