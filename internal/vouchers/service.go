package vouchers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/codigo-learn/lms-backend/pkg/db/models"
	"github.com/codigo-learn/lms-backend/pkg/enums"
	pkgerrors "github.com/codigo-learn/lms-backend/pkg/errors"
	"github.com/codigo-learn/lms-backend/pkg/logger"
)

// CourseFinder resolves the course a voucher is being applied to.
type CourseFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Course, error)
}

// PaymentHistory answers whether a student has ever completed a payment.
type PaymentHistory interface {
	HasSucceededForUser(ctx context.Context, userID uuid.UUID) (bool, error)
}

// Service evaluates and consumes discount vouchers.
type Service interface {
	// Validate resolves the code and checks the student can apply it to
	// the course: scope, validity window, redemption cap, price floor and
	// first-purchase eligibility.
	Validate(ctx context.Context, code string, courseID, studentID uuid.UUID) (*models.Voucher, error)
	// CalculateDiscount computes the discount a voucher yields on amount.
	// The result is capped at the voucher's maximum and never exceeds amount.
	CalculateDiscount(voucher *models.Voucher, amount decimal.Decimal) decimal.Decimal
	// Consume records a redemption inside tx, re-checking the redemption
	// cap under lock.
	Consume(ctx context.Context, tx *gorm.DB, voucherID, enrollmentID, userID uuid.UUID, discount decimal.Decimal) error
	CreateVoucher(ctx context.Context, input CreateVoucherInput) (*models.Voucher, error)
	ListVouchers(ctx context.Context, limit int) ([]models.Voucher, error)
}

type service struct {
	repo     Repository
	courses  CourseFinder
	payments PaymentHistory
	logg     *logger.Logger
	now      func() time.Time
}

// CreateVoucherInput carries the admin surface for minting a voucher.
type CreateVoucherInput struct {
	Code               string
	Type               enums.DiscountType
	Value              decimal.Decimal
	CourseID           *uuid.UUID
	MaximumDiscount    *decimal.Decimal
	MinimumAmount      *decimal.Decimal
	FirstTimeUsersOnly bool
	MaxRedemptions     *int
	ValidFrom          *time.Time
	ValidUntil         *time.Time
}

// NewService wires a voucher service with its repository and the course and
// payment lookups validation depends on.
func NewService(repo Repository, courses CourseFinder, payments PaymentHistory, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("voucher repository required")
	}
	if courses == nil {
		return nil, fmt.Errorf("course finder required")
	}
	if payments == nil {
		return nil, fmt.Errorf("payment history required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, courses: courses, payments: payments, logg: logg, now: time.Now}, nil
}

func (s *service) Validate(ctx context.Context, code string, courseID, studentID uuid.UUID) (*models.Voucher, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "voucher code is required")
	}
	if courseID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "course id is required")
	}
	if studentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "student id is required")
	}

	voucher, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading voucher")
	}
	if voucher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "voucher not found")
	}
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading course")
	}
	if course == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "course not found")
	}
	if err := s.checkUsable(voucher, courseID, course.Price); err != nil {
		return nil, err
	}
	if voucher.FirstTimeUsersOnly {
		paid, err := s.payments.HasSucceededForUser(ctx, studentID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking payment history")
		}
		if paid {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "voucher is limited to first-time buyers")
		}
	}
	return voucher, nil
}

func (s *service) checkUsable(voucher *models.Voucher, courseID uuid.UUID, price decimal.Decimal) error {
	if !voucher.IsActive {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "voucher is inactive")
	}
	now := s.now()
	if voucher.ValidFrom != nil && now.Before(*voucher.ValidFrom) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "voucher is not yet valid")
	}
	if voucher.ValidUntil != nil && now.After(*voucher.ValidUntil) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "voucher has expired")
	}
	if voucher.MaxRedemptions != nil && voucher.RedemptionCount >= *voucher.MaxRedemptions {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "voucher redemption limit reached")
	}
	if voucher.CourseID != nil && *voucher.CourseID != courseID {
		return pkgerrors.New(pkgerrors.CodeValidation, "voucher does not apply to this course")
	}
	if voucher.MinimumAmount != nil && price.LessThan(*voucher.MinimumAmount) {
		return pkgerrors.New(pkgerrors.CodeValidation, "course price is below the voucher minimum")
	}
	return nil
}

func (s *service) CalculateDiscount(voucher *models.Voucher, amount decimal.Decimal) decimal.Decimal {
	if voucher == nil || amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}

	var discount decimal.Decimal
	switch voucher.Type {
	case enums.DiscountTypePercent:
		discount = amount.Mul(voucher.Value).Div(decimal.NewFromInt(100))
	case enums.DiscountTypeAmount:
		discount = voucher.Value
	default:
		return decimal.Zero
	}

	if voucher.MaximumDiscount != nil && discount.GreaterThan(*voucher.MaximumDiscount) {
		discount = *voucher.MaximumDiscount
	}
	if discount.GreaterThan(amount) {
		discount = amount
	}
	if discount.LessThan(decimal.Zero) {
		return decimal.Zero
	}
	return discount.Round(2)
}

func (s *service) Consume(ctx context.Context, tx *gorm.DB, voucherID, enrollmentID, userID uuid.UUID, discount decimal.Decimal) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if voucherID == uuid.Nil || enrollmentID == uuid.Nil || userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "voucher, enrollment and user ids are required")
	}

	repo := s.repo.WithTx(tx)
	voucher, err := repo.LockByID(ctx, voucherID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "locking voucher")
	}
	if voucher == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "voucher not found")
	}
	if voucher.MaxRedemptions != nil && voucher.RedemptionCount >= *voucher.MaxRedemptions {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "voucher redemption limit reached")
	}

	voucher.RedemptionCount++
	if err := repo.Update(ctx, voucher); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating voucher")
	}

	redemption := &models.VoucherRedemption{
		VoucherID:    voucherID,
		EnrollmentID: enrollmentID,
		UserID:       userID,
		Discount:     discount,
	}
	if err := repo.CreateRedemption(ctx, redemption); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording redemption")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"voucher_id":    voucherID.String(),
		"enrollment_id": enrollmentID.String(),
	})
	s.logg.Info(logCtx, "voucher consumed")
	return nil
}

func (s *service) CreateVoucher(ctx context.Context, input CreateVoucherInput) (*models.Voucher, error) {
	code := strings.TrimSpace(input.Code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "voucher code is required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid discount type")
	}
	if input.Value.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "voucher value must be positive")
	}
	if input.Type == enums.DiscountTypePercent && input.Value.GreaterThan(decimal.NewFromInt(100)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "percent discount cannot exceed 100")
	}
	if input.ValidFrom != nil && input.ValidUntil != nil && input.ValidUntil.Before(*input.ValidFrom) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "valid_until must be after valid_from")
	}

	if input.MinimumAmount != nil && input.MinimumAmount.LessThan(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "minimum amount cannot be negative")
	}

	voucher := &models.Voucher{
		Code:               code,
		Type:               input.Type,
		Value:              input.Value,
		CourseID:           input.CourseID,
		MaximumDiscount:    input.MaximumDiscount,
		MinimumAmount:      input.MinimumAmount,
		FirstTimeUsersOnly: input.FirstTimeUsersOnly,
		MaxRedemptions:     input.MaxRedemptions,
		ValidFrom:          input.ValidFrom,
		ValidUntil:         input.ValidUntil,
		IsActive:           true,
	}
	if err := s.repo.Create(ctx, voucher); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating voucher")
	}
	return voucher, nil
}

func (s *service) ListVouchers(ctx context.Context, limit int) ([]models.Voucher, error) {
	return s.repo.List(ctx, limit)
}
