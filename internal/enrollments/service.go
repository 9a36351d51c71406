package enrollments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/codigo-learn/lms-backend/internal/audit"
	"github.com/codigo-learn/lms-backend/internal/capacity"
	"github.com/codigo-learn/lms-backend/internal/payments"
	"github.com/codigo-learn/lms-backend/pkg/db/models"
	"github.com/codigo-learn/lms-backend/pkg/enums"
	pkgerrors "github.com/codigo-learn/lms-backend/pkg/errors"
	"github.com/codigo-learn/lms-backend/pkg/logger"
	"github.com/codigo-learn/lms-backend/pkg/outbox"
	"github.com/codigo-learn/lms-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type coursesRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Course, error)
	ListResources(ctx context.Context, courseID uuid.UUID) ([]models.CourseResource, error)
}

type usersRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type voucherEvaluator interface {
	Validate(ctx context.Context, code string, courseID, studentID uuid.UUID) (*models.Voucher, error)
	CalculateDiscount(voucher *models.Voucher, amount decimal.Decimal) decimal.Decimal
	Consume(ctx context.Context, tx *gorm.DB, voucherID, enrollmentID, userID uuid.UUID, discount decimal.Decimal) error
}

type paymentBridge interface {
	CreateIntent(ctx context.Context, tx *gorm.DB, input payments.CreateIntentInput) (*models.Payment, error)
	MarkSucceeded(ctx context.Context, tx *gorm.DB, paymentID uuid.UUID) (bool, error)
	MarkFailed(ctx context.Context, tx *gorm.DB, paymentID uuid.UUID, reason string) (bool, error)
	RequestRefund(ctx context.Context, tx *gorm.DB, paymentID uuid.UUID, amount decimal.Decimal, reason string) (*payments.RefundResult, error)
	ExpirePayment(ctx context.Context, tx *gorm.DB, paymentID uuid.UUID) (bool, error)
	FindByID(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error)
}

type entitlementGrantor interface {
	GrantForEnrollment(ctx context.Context, tx *gorm.DB, enrollment *models.Enrollment, resources []models.CourseResource, expiresAt *time.Time) (int, error)
	RevokeForEnrollment(ctx context.Context, tx *gorm.DB, enrollmentID uuid.UUID) (int64, error)
	SuspendForEnrollment(ctx context.Context, tx *gorm.DB, enrollmentID uuid.UUID) (int64, error)
	ReinstateForEnrollment(ctx context.Context, tx *gorm.DB, enrollmentID uuid.UUID) (int64, error)
}

type auditRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, input audit.RecordInput) (*models.AuditLog, error)
}

// Options carries the tunables the engine reads from configuration.
type Options struct {
	// PendingPaymentTTL bounds how long a paid enrollment may sit in
	// PENDING_REVIEW before the reconciliation job expires it.
	PendingPaymentTTL time.Duration
	// BulkMaxUsers caps a single BulkEnroll request.
	BulkMaxUsers int
}

// Service is the enrollment workflow engine: policy dispatch, the
// enrollment state machine, and every side effect a transition triggers.
type Service interface {
	Enroll(ctx context.Context, input EnrollInput) (*EnrollResult, error)
	BulkEnroll(ctx context.Context, input BulkEnrollInput) (*BulkEnrollResult, error)
	Approve(ctx context.Context, enrollmentID, reviewerID uuid.UUID) (*models.Enrollment, error)
	Deny(ctx context.Context, enrollmentID, reviewerID uuid.UUID, reason string) (*models.Enrollment, error)
	Withdraw(ctx context.Context, enrollmentID, requesterID uuid.UUID, reason string) (*WithdrawResult, error)
	Drop(ctx context.Context, enrollmentID, adminID uuid.UUID, reason string) (*models.Enrollment, error)
	Suspend(ctx context.Context, enrollmentID, adminID uuid.UUID, reason string) (*models.Enrollment, error)
	Reinstate(ctx context.Context, enrollmentID, adminID uuid.UUID) (*models.Enrollment, error)
	UpdateProgress(ctx context.Context, enrollmentID, requesterID uuid.UUID, progress decimal.Decimal) (*models.Enrollment, error)
	PromoteFromWaitlist(ctx context.Context, courseID uuid.UUID) (*models.Enrollment, error)
	HandlePaymentSucceeded(ctx context.Context, paymentID uuid.UUID) error
	HandlePaymentFailed(ctx context.Context, paymentID uuid.UUID, reason string) error
	HandleRefundCompleted(ctx context.Context, paymentID uuid.UUID) error
	ExpirePendingPayment(ctx context.Context, paymentID uuid.UUID) error
	GetCapacityInfo(ctx context.Context, courseID uuid.UUID) (*CapacityInfo, error)
	CheckPrerequisites(ctx context.Context, userID, courseID uuid.UUID) (*PrerequisiteCheck, error)
	Stats(ctx context.Context, courseID uuid.UUID) (*CourseStats, error)
	FindByID(ctx context.Context, enrollmentID uuid.UUID) (*models.Enrollment, error)
	ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Enrollment, error)
}

type policyProc func(ctx context.Context, tx *gorm.DB, env *enrollContext) (*EnrollResult, error)

type service struct {
	repo     Repository
	courses  coursesRepository
	users    usersRepository
	seats    capacity.Manager
	vouchers voucherEvaluator
	payments paymentBridge
	grants   entitlementGrantor
	audit    auditRecorder
	outbox   outboxPublisher
	tx       txRunner
	logg     *logger.Logger
	opts     Options
	now      func() time.Time

	procedures map[enums.EnrollmentPolicy]policyProc
}

// ServiceParams lists the collaborators the engine needs.
type ServiceParams struct {
	Repo              Repository
	Courses           coursesRepository
	Users             usersRepository
	Seats             capacity.Manager
	Vouchers          voucherEvaluator
	Payments          paymentBridge
	Entitlements      entitlementGrantor
	Audit             auditRecorder
	Outbox            outboxPublisher
	TransactionRunner txRunner
	Logger            *logger.Logger
	Options           Options
}

// NewService wires the enrollment engine and its policy dispatch table.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("enrollment repository required")
	}
	if params.Courses == nil {
		return nil, fmt.Errorf("course repository required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if params.Seats == nil {
		return nil, fmt.Errorf("capacity manager required")
	}
	if params.Vouchers == nil {
		return nil, fmt.Errorf("voucher evaluator required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payment bridge required")
	}
	if params.Entitlements == nil {
		return nil, fmt.Errorf("entitlement grantor required")
	}
	if params.Audit == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Options.PendingPaymentTTL <= 0 {
		params.Options.PendingPaymentTTL = 30 * time.Minute
	}
	if params.Options.BulkMaxUsers <= 0 {
		params.Options.BulkMaxUsers = 500
	}

	s := &service{
		repo:     params.Repo,
		courses:  params.Courses,
		users:    params.Users,
		seats:    params.Seats,
		vouchers: params.Vouchers,
		payments: params.Payments,
		grants:   params.Entitlements,
		audit:    params.Audit,
		outbox:   params.Outbox,
		tx:       params.TransactionRunner,
		logg:     params.Logger,
		opts:     params.Options,
		now:      time.Now,
	}
	s.procedures = map[enums.EnrollmentPolicy]policyProc{
		enums.EnrollmentPolicyOpen:             s.procOpen,
		enums.EnrollmentPolicyApprovalRequired: s.procApprovalRequired,
		enums.EnrollmentPolicyPaid:             s.procPaid,
		enums.EnrollmentPolicyInviteOnly:       s.procInviteOnly,
		enums.EnrollmentPolicyVoucherOnly:      s.procVoucherOnly,
		enums.EnrollmentPolicyCohortBased:      s.procCohortBased,
		enums.EnrollmentPolicyCorporateBulk:    s.procCorporateBulk,
	}
	return s, nil
}

// enrollContext is the state a policy procedure works on after the
// dispatcher's preconditions have passed.
type enrollContext struct {
	input  EnrollInput
	course *models.Course
	user   *models.User
}

func (s *service) Enroll(ctx context.Context, input EnrollInput) (*EnrollResult, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.CourseID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "course id required")
	}
	if input.Source == "" {
		input.Source = enums.EnrollmentSourceSelf
	}
	if !input.Source.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid enrollment source")
	}
	if input.ActorUserID == uuid.Nil {
		input.ActorUserID = input.UserID
	}

	course, err := s.loadCourse(ctx, input.CourseID)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "user account is inactive")
	}

	if err := s.checkEligibility(ctx, user, course, input); err != nil {
		return nil, err
	}

	proc, ok := s.procedures[course.Policy]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "no procedure for enrollment policy "+string(course.Policy))
	}

	env := &enrollContext{input: input, course: course, user: user}
	var result *EnrollResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		res, procErr := proc(ctx, tx, env)
		if procErr != nil {
			return procErr
		}
		result = res
		return nil
	})
	if err != nil {
		s.recordFailure(ctx, enums.AuditEnrollmentRequested, input.ActorUserID, input.UserID, input.CourseID, err)
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"user_id":   input.UserID.String(),
		"course_id": input.CourseID.String(),
		"outcome":   string(result.Outcome),
	}), "enrollment request settled")
	return result, nil
}

// checkEligibility runs the dispatcher preconditions shared by every policy.
func (s *service) checkEligibility(ctx context.Context, user *models.User, course *models.Course, input EnrollInput) error {
	live, err := s.repo.FindLiveByUserAndCourse(ctx, input.UserID, input.CourseID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing enrollment")
	}
	if live != nil {
		return pkgerrors.New(pkgerrors.CodeConflict, "an enrollment for this course already exists")
	}
	if course.InstructorID == input.UserID {
		return pkgerrors.New(pkgerrors.CodeValidation, "instructors cannot enroll in their own course")
	}
	if err := s.checkWindow(course); err != nil {
		return err
	}

	override := input.PrereqOverride && input.ActorRole == enums.RoleAdmin
	if !override {
		check, err := s.checkPrerequisites(ctx, input.UserID, course)
		if err != nil {
			return err
		}
		if !check.Satisfied {
			return pkgerrors.New(pkgerrors.CodeValidation, "prerequisite courses not completed").
				WithDetails(check.Missing)
		}
	}
	return nil
}

func (s *service) checkWindow(course *models.Course) error {
	now := s.now()
	if course.EnrollStartAt != nil && now.Before(*course.EnrollStartAt) {
		return pkgerrors.New(pkgerrors.CodeValidation, "enrollment has not opened yet")
	}
	if course.EnrollEndAt != nil && now.After(*course.EnrollEndAt) {
		return pkgerrors.New(pkgerrors.CodeValidation, "enrollment window has closed")
	}
	return nil
}

func (s *service) loadCourse(ctx context.Context, courseID uuid.UUID) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup course")
	}
	if course == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "course not found")
	}
	if !course.IsPublished {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "course is not published")
	}
	return course, nil
}

// --- policy procedures -------------------------------------------------

func (s *service) procOpen(ctx context.Context, tx *gorm.DB, env *enrollContext) (*EnrollResult, error) {
	if err := s.seats.ReserveSeat(tx, env.course.ID, env.course.Capacity); err != nil {
		if errors.Is(err, capacity.ErrCourseFull) {
			return s.waitlist(ctx, tx, env)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve seat")
	}
	return s.activateNew(ctx, tx, env, nil, decimal.Zero)
}

func (s *service) procApprovalRequired(ctx context.Context, tx *gorm.DB, env *enrollContext) (*EnrollResult, error) {
	enrollment := s.newEnrollment(env, enums.EnrollmentStatusPendingReview)
	if err := s.repo.WithTx(tx).Create(ctx, enrollment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create enrollment")
	}

	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventEnrollmentRequested,
		AggregateType: enums.AggregateEnrollment,
		AggregateID:   enrollment.ID,
		Version:       1,
		Actor:         s.actor(env.input.ActorUserID, env.input.ActorRole),
		Data: payloads.EnrollmentRequestedEvent{
			EnrollmentID: enrollment.ID,
			UserID:       enrollment.UserID,
			CourseID:     enrollment.CourseID,
			Policy:       env.course.Policy,
			Source:       enrollment.Source,
		},
	}); err != nil {
		return nil, err
	}
	if _, err := s.audit.Record(ctx, tx, audit.RecordInput{
		Action:      enums.AuditEnrollmentRequested,
		ActorUserID: &env.input.ActorUserID,
		SubjectID:   enrollment.ID,
		SubjectType: subjectEnrollment,
		CourseID:    &enrollment.CourseID,
		Detail:      map[string]any{"success": true, "policy": env.course.Policy},
	}); err != nil {
		return nil, err
	}

	return &EnrollResult{
		Outcome:    OutcomePendingApproval,
		Enrollment: enrollment,
		Message:    "enrollment awaits instructor approval",
	}, nil
}

func (s *service) procPaid(ctx context.Context, tx *gorm.DB, env *enrollContext) (*EnrollResult, error) {
	if !env.course.Price.IsPositive() {
		return s.procOpen(ctx, tx, env)
	}

	// The seat is held from intent creation through confirmation; failure
	// and expiry paths release it.
	if err := s.seats.ReserveSeat(tx, env.course.ID, env.course.Capacity); err != nil {
		if errors.Is(err, capacity.ErrCourseFull) {
			return s.waitlist(ctx, tx, env)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve seat")
	}

	var voucher *models.Voucher
	discount := decimal.Zero
	if env.input.VoucherCode != "" {
		var err error
		voucher, err = s.vouchers.Validate(ctx, env.input.VoucherCode, env.course.ID, env.input.UserID)
		if err != nil {
			return nil, err
		}
		discount = s.vouchers.CalculateDiscount(voucher, env.course.Price)
	}

	finalPrice := env.course.Price.Sub(discount)
	if finalPrice.LessThanOrEqual(decimal.Zero) {
		return s.activateNew(ctx, tx, env, voucher, discount)
	}

	payment, err := s.payments.CreateIntent(ctx, tx, payments.CreateIntentInput{
		UserID:         env.input.UserID,
		CourseID:       env.course.ID,
		Amount:         finalPrice,
		DiscountAmount: discount,
		Currency:       env.course.Currency,
		PendingTTL:     s.opts.PendingPaymentTTL,
	})
	if err != nil {
		return nil, err
	}

	enrollment := s.newEnrollment(env, enums.EnrollmentStatusPendingReview)
	enrollment.PaymentID = &payment.ID
	if voucher != nil {
		enrollment.VoucherID = &voucher.ID
	}
	if err := s.repo.WithTx(tx).Create(ctx, enrollment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create enrollment")
	}

	if _, err := s.audit.Record(ctx, tx, audit.RecordInput{
		Action:      enums.AuditPaymentInitiated,
		ActorUserID: &env.input.ActorUserID,
		SubjectID:   enrollment.ID,
		SubjectType: subjectEnrollment,
		CourseID:    &enrollment.CourseID,
		Detail: map[string]any{
			"success":    true,
			"payment_id": payment.ID,
			"amount":     finalPrice,
			"discount":   discount,
		},
	}); err != nil {
		return nil, err
	}

	return &EnrollResult{
		Outcome:    OutcomePaymentRequired,
		Enrollment: enrollment,
		Payment:    payment,
		Discount:   discount,
		Message:    "complete payment to activate the enrollment",
	}, nil
}

func (s *service) procInviteOnly(ctx context.Context, tx *gorm.DB, env *enrollContext) (*EnrollResult, error) {
	switch env.input.Source {
	case enums.EnrollmentSourceInvite, enums.EnrollmentSourceAdmin:
	default:
		if env.input.ActorRole != enums.RoleAdmin && env.input.ActorRole != enums.RoleInstructor {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "course is invite only")
		}
	}
	return s.procOpen(ctx, tx, env)
}

func (s *service) procVoucherOnly(ctx context.Context, tx *gorm.DB, env *enrollContext) (*EnrollResult, error) {
	if env.input.VoucherCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "course requires a voucher code")
	}
	if !env.course.Price.IsPositive() {
		// Free course: the voucher acts as an access key, consumed on activation.
		voucher, err := s.vouchers.Validate(ctx, env.input.VoucherCode, env.course.ID, env.input.UserID)
		if err != nil {
			return nil, err
		}
		if err := s.seats.ReserveSeat(tx, env.course.ID, env.course.Capacity); err != nil {
			if errors.Is(err, capacity.ErrCourseFull) {
				return s.waitlist(ctx, tx, env)
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve seat")
		}
		return s.activateNew(ctx, tx, env, voucher, decimal.Zero)
	}
	return s.procPaid(ctx, tx, env)
}

func (s *service) procCohortBased(ctx context.Context, tx *gorm.DB, env *enrollContext) (*EnrollResult, error) {
	if env.course.EnrollStartAt == nil || env.course.EnrollEndAt == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cohort enrollment window is not configured")
	}
	return s.procOpen(ctx, tx, env)
}

func (s *service) procCorporateBulk(ctx context.Context, tx *gorm.DB, env *enrollContext) (*EnrollResult, error) {
	switch env.input.Source {
	case enums.EnrollmentSourceBulk, enums.EnrollmentSourceCorporate, enums.EnrollmentSourceAdmin:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "course accepts corporate enrollments only")
	}
	if env.user.OrgID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user does not belong to an organization")
	}
	return s.procOpen(ctx, tx, env)
}

// --- shared state-machine steps ----------------------------------------

func (s *service) newEnrollment(env *enrollContext, status enums.EnrollmentStatus) *models.Enrollment {
	return &models.Enrollment{
		ID:       uuid.New(),
		UserID:   env.input.UserID,
		CourseID: env.course.ID,
		Status:   status,
		Source:   env.input.Source,
		Progress: decimal.Zero,
	}
}

// waitlist creates the enrollment in WAITLISTED with the next serialized
// position. Capacity overflow is a reroute, not an error.
func (s *service) waitlist(ctx context.Context, tx *gorm.DB, env *enrollContext) (*EnrollResult, error) {
	position, err := s.seats.NextWaitlistPosition(tx, env.course.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign waitlist position")
	}

	enrollment := s.newEnrollment(env, enums.EnrollmentStatusWaitlisted)
	enrollment.WaitlistPosition = &position
	if err := s.repo.WithTx(tx).Create(ctx, enrollment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create waitlisted enrollment")
	}

	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventEnrollmentWaitlisted,
		AggregateType: enums.AggregateEnrollment,
		AggregateID:   enrollment.ID,
		Version:       1,
		Actor:         s.actor(env.input.ActorUserID, env.input.ActorRole),
		Data: payloads.EnrollmentWaitlistedEvent{
			EnrollmentID:     enrollment.ID,
			UserID:           enrollment.UserID,
			CourseID:         enrollment.CourseID,
			WaitlistPosition: position,
		},
	}); err != nil {
		return nil, err
	}
	if _, err := s.audit.Record(ctx, tx, audit.RecordInput{
		Action:      enums.AuditEnrollmentWaitlisted,
		ActorUserID: &env.input.ActorUserID,
		SubjectID:   enrollment.ID,
		SubjectType: subjectEnrollment,
		CourseID:    &enrollment.CourseID,
		Detail:      map[string]any{"success": true, "position": position},
	}); err != nil {
		return nil, err
	}

	return &EnrollResult{
		Outcome:    OutcomeWaitlisted,
		Enrollment: enrollment,
		Message:    fmt.Sprintf("course is full; added to waitlist at position %d", position),
	}, nil
}

// activateNew creates a brand new ACTIVE enrollment with the full set of
// activation side effects. The caller must already hold a reserved seat.
func (s *service) activateNew(ctx context.Context, tx *gorm.DB, env *enrollContext, voucher *models.Voucher, discount decimal.Decimal) (*EnrollResult, error) {
	now := s.now()
	enrollment := s.newEnrollment(env, enums.EnrollmentStatusActive)
	enrollment.ActivatedAt = &now
	if voucher != nil {
		enrollment.VoucherID = &voucher.ID
	}
	if err := s.repo.WithTx(tx).Create(ctx, enrollment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create enrollment")
	}

	opts := activationOpts{
		actorID:   env.input.ActorUserID,
		actorRole: env.input.ActorRole,
		discount:  discount,
	}
	if voucher != nil {
		opts.voucherID = &voucher.ID
	}
	if err := s.applyActivationEffects(ctx, tx, env.course, enrollment, opts); err != nil {
		return nil, err
	}

	return &EnrollResult{
		Outcome:    OutcomeActivated,
		Enrollment: enrollment,
		Discount:   discount,
	}, nil
}

type activationOpts struct {
	actorID   uuid.UUID
	actorRole enums.UserRole
	voucherID *uuid.UUID
	discount  decimal.Decimal
	// withRefundWindow stamps refund_eligible_until; only payment-backed
	// activations carry a refund window.
	withRefundWindow bool
}

// applyActivationEffects runs every side effect an activation triggers:
// entitlement grant, voucher consumption, refund window, points, events,
// audit. The enrollment row must already be ACTIVE.
func (s *service) applyActivationEffects(ctx context.Context, tx *gorm.DB, course *models.Course, enrollment *models.Enrollment, opts activationOpts) error {
	resources, err := s.courses.ListResources(ctx, course.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list course resources")
	}
	granted, err := s.grants.GrantForEnrollment(ctx, tx, enrollment, resources, nil)
	if err != nil {
		return err
	}

	if opts.voucherID != nil {
		if err := s.vouchers.Consume(ctx, tx, *opts.voucherID, enrollment.ID, enrollment.UserID, opts.discount); err != nil {
			return err
		}
		if _, err := s.audit.Record(ctx, tx, audit.RecordInput{
			Action:      enums.AuditVoucherRedeemed,
			ActorUserID: &opts.actorID,
			SubjectID:   *opts.voucherID,
			SubjectType: subjectVoucher,
			CourseID:    &course.ID,
			Detail:      map[string]any{"success": true, "enrollment_id": enrollment.ID, "discount": opts.discount},
		}); err != nil {
			return err
		}
	}

	if opts.withRefundWindow && course.RefundPolicyDays > 0 {
		until := s.now().AddDate(0, 0, course.RefundPolicyDays)
		enrollment.RefundEligibleUntil = &until
		if err := s.repo.WithTx(tx).SetRefundWindow(ctx, enrollment.ID, until); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stamp refund window")
		}
	}

	activatedAt := s.now()
	if enrollment.ActivatedAt != nil {
		activatedAt = *enrollment.ActivatedAt
	}
	if err := s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventEnrollmentActivated,
		AggregateType: enums.AggregateEnrollment,
		AggregateID:   enrollment.ID,
		Version:       1,
		Actor:         s.actor(opts.actorID, opts.actorRole),
		Data: payloads.EnrollmentActivatedEvent{
			EnrollmentID: enrollment.ID,
			UserID:       enrollment.UserID,
			CourseID:     enrollment.CourseID,
			Source:       enrollment.Source,
			ActivatedAt:  activatedAt,
		},
	}); err != nil {
		return err
	}

	if course.EnrollmentPoints > 0 {
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPointsAwarded,
			AggregateType: enums.AggregateEnrollment,
			AggregateID:   enrollment.ID,
			Version:       1,
			Data: payloads.PointsAwardedEvent{
				UserID:   enrollment.UserID,
				CourseID: course.ID,
				Points:   course.EnrollmentPoints,
				Reason:   "enrollment",
			},
		}); err != nil {
			return err
		}
	}

	if _, err := s.audit.Record(ctx, tx, audit.RecordInput{
		Action:      enums.AuditEnrollmentActivated,
		ActorUserID: &opts.actorID,
		SubjectID:   enrollment.ID,
		SubjectType: subjectEnrollment,
		CourseID:    &enrollment.CourseID,
		Detail:      map[string]any{"success": true, "entitlements": granted},
	}); err != nil {
		return err
	}
	return nil
}

func (s *service) BulkEnroll(ctx context.Context, input BulkEnrollInput) (*BulkEnrollResult, error) {
	if input.CourseID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "course id required")
	}
	if len(input.UserIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one user id required")
	}
	if len(input.UserIDs) > s.opts.BulkMaxUsers {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("bulk enrollment limited to %d users per request", s.opts.BulkMaxUsers))
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor user id required")
	}
	if input.Source == "" {
		input.Source = enums.EnrollmentSourceBulk
	}

	result := &BulkEnrollResult{Items: make([]BulkEnrollItem, 0, len(input.UserIDs))}
	var failures error
	for _, userID := range input.UserIDs {
		item := BulkEnrollItem{UserID: userID}
		res, err := s.Enroll(ctx, EnrollInput{
			UserID:      userID,
			CourseID:    input.CourseID,
			Source:      input.Source,
			ActorUserID: input.ActorUserID,
			ActorRole:   input.ActorRole,
		})
		if err != nil {
			item.Error = err.Error()
			result.Failed++
			failures = multierr.Append(failures, fmt.Errorf("user %s: %w", userID, err))
		} else {
			item.Outcome = res.Outcome
			result.Succeeded++
		}
		result.Items = append(result.Items, item)
	}

	if _, err := s.audit.Record(ctx, nil, audit.RecordInput{
		Action:      enums.AuditBulkEnrollment,
		ActorUserID: &input.ActorUserID,
		SubjectID:   input.CourseID,
		SubjectType: subjectCourse,
		CourseID:    &input.CourseID,
		Detail: map[string]any{
			"requested": len(input.UserIDs),
			"succeeded": result.Succeeded,
			"failed":    result.Failed,
		},
	}); err != nil {
		s.logg.Warn(ctx, "bulk enrollment audit write failed: "+err.Error())
	}
	if failures != nil {
		s.logg.Warn(ctx, "bulk enrollment finished with failures: "+failures.Error())
	}
	return result, nil
}

const (
	subjectEnrollment = "enrollment"
	subjectVoucher    = "voucher"
	subjectCourse     = "course"
	subjectPayment    = "payment"
)

func (s *service) actor(userID uuid.UUID, role enums.UserRole) *outbox.ActorRef {
	if userID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: userID, Role: string(role)}
}

// recordFailure writes a best-effort audit entry for an attempted action
// that errored out after its transaction rolled back.
func (s *service) recordFailure(ctx context.Context, action enums.AuditAction, actorID, subjectID, courseID uuid.UUID, cause error) {
	typed := pkgerrors.As(cause)
	if typed != nil && typed.Code() == pkgerrors.CodeValidation {
		// Preconditions reject before anything is attempted.
		return
	}
	if _, err := s.audit.Record(ctx, nil, audit.RecordInput{
		Action:      action,
		ActorUserID: &actorID,
		SubjectID:   subjectID,
		SubjectType: subjectEnrollment,
		CourseID:    &courseID,
		Detail:      map[string]any{"success": false, "error": cause.Error()},
	}); err != nil {
		s.logg.Warn(ctx, "audit failure record not written: "+err.Error())
	}
}
