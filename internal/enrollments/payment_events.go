package enrollments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/codigo-learn/lms-backend/internal/audit"
	"github.com/codigo-learn/lms-backend/pkg/enums"
	pkgerrors "github.com/codigo-learn/lms-backend/pkg/errors"
	"github.com/codigo-learn/lms-backend/pkg/outbox"
	"github.com/codigo-learn/lms-backend/pkg/outbox/payloads"
)

// HandlePaymentSucceeded confirms a paid enrollment. The status swap from
// PENDING_REVIEW to ACTIVE is the idempotency gate: a replayed webhook
// finds the swap already done and becomes a no-op. The seat reserved at
// intent creation is kept, not re-reserved.
func (s *service) HandlePaymentSucceeded(ctx context.Context, paymentID uuid.UUID) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.payments.MarkSucceeded(ctx, tx, paymentID); err != nil {
			return err
		}

		repo := s.repo.WithTx(tx)
		enrollment, err := repo.FindByPaymentID(ctx, paymentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find enrollment for payment")
		}
		if enrollment == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "no enrollment references this payment")
		}

		swapped, err := repo.UpdateStatus(ctx, enrollment.ID,
			enums.EnrollmentStatusPendingReview, enums.EnrollmentStatusActive,
			map[string]any{"activated_at": s.now()})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "activate enrollment")
		}
		if !swapped {
			// Replayed confirmation: the first delivery already activated.
			s.logg.Info(s.logg.WithField(ctx, "payment_id", paymentID.String()),
				"payment confirmation replay ignored")
			return nil
		}
		now := s.now()
		enrollment.Status = enums.EnrollmentStatusActive
		enrollment.ActivatedAt = &now

		course, err := s.loadCourseUnfiltered(ctx, enrollment.CourseID)
		if err != nil {
			return err
		}

		payment, err := s.payments.FindByID(ctx, paymentID)
		if err != nil {
			return err
		}
		opts := activationOpts{
			actorID:          enrollment.UserID,
			actorRole:        enums.RoleStudent,
			withRefundWindow: true,
		}
		if enrollment.VoucherID != nil && payment != nil {
			opts.voucherID = enrollment.VoucherID
			opts.discount = payment.DiscountAmount
		}
		if err := s.applyActivationEffects(ctx, tx, course, enrollment, opts); err != nil {
			return err
		}

		if _, err := s.audit.Record(ctx, tx, audit.RecordInput{
			Action:      enums.AuditPaymentSucceeded,
			ActorUserID: nil,
			SubjectID:   paymentID,
			SubjectType: subjectPayment,
			CourseID:    &enrollment.CourseID,
			Detail:      map[string]any{"success": true, "enrollment_id": enrollment.ID},
		}); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		s.recordFailure(ctx, enums.AuditPaymentSucceeded, uuid.Nil, paymentID, uuid.Nil, err)
		return err
	}
	return nil
}

// HandlePaymentFailed denies the pending enrollment and frees its held
// seat so the waitlist can absorb it.
func (s *service) HandlePaymentFailed(ctx context.Context, paymentID uuid.UUID, reason string) error {
	if reason == "" {
		reason = "payment failed"
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.payments.MarkFailed(ctx, tx, paymentID, reason); err != nil {
			return err
		}

		repo := s.repo.WithTx(tx)
		enrollment, err := repo.FindByPaymentID(ctx, paymentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find enrollment for payment")
		}
		if enrollment == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "no enrollment references this payment")
		}

		swapped, err := repo.UpdateStatus(ctx, enrollment.ID,
			enums.EnrollmentStatusPendingReview, enums.EnrollmentStatusDenied,
			map[string]any{"denial_reason": reason})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deny enrollment")
		}
		if !swapped {
			return nil
		}
		enrollment.Status = enums.EnrollmentStatusDenied

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

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentFailed,
			AggregateType: enums.AggregatePayment,
			AggregateID:   paymentID,
			Version:       1,
			Data: payloads.PaymentFailedEvent{
				PaymentID:    paymentID,
				EnrollmentID: &enrollment.ID,
				UserID:       enrollment.UserID,
				CourseID:     enrollment.CourseID,
				Reason:       reason,
			},
		}); err != nil {
			return err
		}
		if _, err := s.audit.Record(ctx, tx, audit.RecordInput{
			Action:      enums.AuditPaymentFailed,
			ActorUserID: nil,
			SubjectID:   paymentID,
			SubjectType: subjectPayment,
			CourseID:    &enrollment.CourseID,
			Detail:      map[string]any{"success": true, "reason": reason, "enrollment_id": enrollment.ID},
		}); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		s.recordFailure(ctx, enums.AuditPaymentFailed, uuid.Nil, paymentID, uuid.Nil, err)
		return err
	}
	return nil
}

// HandleRefundCompleted settles the enrollment once the provider confirms
// the refund landed. The WITHDRAWN to REFUNDED swap is the idempotency
// gate: a replayed confirmation finds the swap already done.
func (s *service) HandleRefundCompleted(ctx context.Context, paymentID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		enrollment, err := repo.FindByPaymentID(ctx, paymentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find enrollment for payment")
		}
		if enrollment == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "no enrollment references this payment")
		}

		swapped, err := repo.UpdateStatus(ctx, enrollment.ID,
			enums.EnrollmentStatusWithdrawn, enums.EnrollmentStatusRefunded, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark enrollment refunded")
		}
		if !swapped {
			// Replay, or the refund settled before the student withdrew.
			s.logg.Info(s.logg.WithField(ctx, "payment_id", paymentID.String()),
				"refund confirmation without a withdrawn enrollment ignored")
			return nil
		}
		enrollment.Status = enums.EnrollmentStatusRefunded

		if _, err := s.audit.Record(ctx, tx, audit.RecordInput{
			Action:      enums.AuditRefundCompleted,
			ActorUserID: nil,
			SubjectID:   paymentID,
			SubjectType: subjectPayment,
			CourseID:    &enrollment.CourseID,
			Detail:      map[string]any{"success": true, "enrollment_id": enrollment.ID},
		}); err != nil {
			return err
		}
		return nil
	})
}

// ExpirePendingPayment abandons a paid enrollment whose intent was never
// confirmed within the pending TTL. Run by the reconciliation job.
func (s *service) ExpirePendingPayment(ctx context.Context, paymentID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		expired, err := s.payments.ExpirePayment(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if !expired {
			// The payment settled between the sweep and this call.
			return nil
		}

		repo := s.repo.WithTx(tx)
		enrollment, err := repo.FindByPaymentID(ctx, paymentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find enrollment for payment")
		}
		if enrollment == nil {
			return nil
		}

		swapped, err := repo.UpdateStatus(ctx, enrollment.ID,
			enums.EnrollmentStatusPendingReview, enums.EnrollmentStatusExpired, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire enrollment")
		}
		if !swapped {
			return nil
		}
		enrollment.Status = enums.EnrollmentStatusExpired

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

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventEnrollmentExpired,
			AggregateType: enums.AggregateEnrollment,
			AggregateID:   enrollment.ID,
			Version:       1,
			Data: payloads.EnrollmentExpiredEvent{
				EnrollmentID: enrollment.ID,
				UserID:       enrollment.UserID,
				CourseID:     enrollment.CourseID,
				PaymentID:    &paymentID,
				ExpiredAt:    s.now(),
			},
		}); err != nil {
			return err
		}
		if _, err := s.audit.Record(ctx, tx, audit.RecordInput{
			Action:      enums.AuditEnrollmentExpired,
			ActorUserID: nil,
			SubjectID:   enrollment.ID,
			SubjectType: subjectEnrollment,
			CourseID:    &enrollment.CourseID,
			Detail:      map[string]any{"success": true, "payment_id": paymentID},
		}); err != nil {
			return err
		}
		return nil
	})
}
