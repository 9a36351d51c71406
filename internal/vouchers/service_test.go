package vouchers

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/codigo-learn/lms-backend/pkg/db/models"
	"github.com/codigo-learn/lms-backend/pkg/enums"
	pkgerrors "github.com/codigo-learn/lms-backend/pkg/errors"
	"github.com/codigo-learn/lms-backend/pkg/logger"
)

type fakeRepository struct {
	byCode  map[string]*models.Voucher
	byID    map[uuid.UUID]*models.Voucher
	updated []*models.Voucher
	redeems []*models.VoucherRedemption
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		byCode: make(map[string]*models.Voucher),
		byID:   make(map[uuid.UUID]*models.Voucher),
	}
}

func (f *fakeRepository) add(v *models.Voucher) {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	f.byCode[v.Code] = v
	f.byID[v.ID] = v
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) FindByCode(_ context.Context, code string) (*models.Voucher, error) {
	return f.byCode[code], nil
}

func (f *fakeRepository) FindByID(_ context.Context, id uuid.UUID) (*models.Voucher, error) {
	return f.byID[id], nil
}

func (f *fakeRepository) LockByID(_ context.Context, id uuid.UUID) (*models.Voucher, error) {
	return f.byID[id], nil
}

func (f *fakeRepository) Create(_ context.Context, v *models.Voucher) error {
	f.add(v)
	return nil
}

func (f *fakeRepository) Update(_ context.Context, v *models.Voucher) error {
	f.updated = append(f.updated, v)
	return nil
}

func (f *fakeRepository) CreateRedemption(_ context.Context, r *models.VoucherRedemption) error {
	f.redeems = append(f.redeems, r)
	return nil
}

func (f *fakeRepository) List(_ context.Context, limit int) ([]models.Voucher, error) {
	return nil, nil
}

type fakeCourseFinder struct {
	courses map[uuid.UUID]*models.Course
}

func newFakeCourseFinder() *fakeCourseFinder {
	return &fakeCourseFinder{courses: make(map[uuid.UUID]*models.Course)}
}

func (f *fakeCourseFinder) add(price decimal.Decimal) uuid.UUID {
	id := uuid.New()
	f.courses[id] = &models.Course{ID: id, Price: price}
	return id
}

func (f *fakeCourseFinder) FindByID(_ context.Context, id uuid.UUID) (*models.Course, error) {
	return f.courses[id], nil
}

type fakePaymentHistory struct {
	paid map[uuid.UUID]bool
}

func (f *fakePaymentHistory) HasSucceededForUser(_ context.Context, userID uuid.UUID) (bool, error) {
	return f.paid[userID], nil
}

type testDeps struct {
	repo     *fakeRepository
	courses  *fakeCourseFinder
	payments *fakePaymentHistory
}

func newTestDeps() *testDeps {
	return &testDeps{
		repo:     newFakeRepository(),
		courses:  newFakeCourseFinder(),
		payments: &fakePaymentHistory{paid: make(map[uuid.UUID]bool)},
	}
}

func newTestService(t *testing.T, deps *testDeps) Service {
	t.Helper()
	svc, err := NewService(deps.repo, deps.courses, deps.payments, logger.New(logger.Options{ServiceName: "test"}))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestValidateRejectsExpiredAndScoped(t *testing.T) {
	deps := newTestDeps()
	courseID := deps.courses.add(decimal.NewFromInt(100))
	otherCourse := uuid.New()
	studentID := uuid.New()
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	deps.repo.add(&models.Voucher{Code: "EXPIRED", Type: enums.DiscountTypePercent, Value: decimal.NewFromInt(10), IsActive: true, ValidUntil: &past})
	deps.repo.add(&models.Voucher{Code: "NOTYET", Type: enums.DiscountTypePercent, Value: decimal.NewFromInt(10), IsActive: true, ValidFrom: &future})
	deps.repo.add(&models.Voucher{Code: "INACTIVE", Type: enums.DiscountTypePercent, Value: decimal.NewFromInt(10), IsActive: false})
	deps.repo.add(&models.Voucher{Code: "SCOPED", Type: enums.DiscountTypePercent, Value: decimal.NewFromInt(10), IsActive: true, CourseID: &otherCourse})

	maxed := 1
	deps.repo.add(&models.Voucher{Code: "MAXED", Type: enums.DiscountTypePercent, Value: decimal.NewFromInt(10), IsActive: true, MaxRedemptions: &maxed, RedemptionCount: 1})

	svc := newTestService(t, deps)
	ctx := context.Background()

	cases := []struct {
		code string
		want pkgerrors.Code
	}{
		{"EXPIRED", pkgerrors.CodeStateConflict},
		{"NOTYET", pkgerrors.CodeStateConflict},
		{"INACTIVE", pkgerrors.CodeStateConflict},
		{"MAXED", pkgerrors.CodeStateConflict},
		{"SCOPED", pkgerrors.CodeValidation},
		{"MISSING", pkgerrors.CodeNotFound},
	}
	for _, tc := range cases {
		_, err := svc.Validate(ctx, tc.code, courseID, studentID)
		if err == nil {
			t.Fatalf("%s: expected error", tc.code)
		}
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != tc.want {
			t.Fatalf("%s: expected code %s, got %v", tc.code, tc.want, err)
		}
	}
}

func TestValidateAcceptsCourseScopedMatch(t *testing.T) {
	deps := newTestDeps()
	courseID := deps.courses.add(decimal.NewFromInt(100))
	deps.repo.add(&models.Voucher{Code: "MATCH", Type: enums.DiscountTypeAmount, Value: decimal.NewFromInt(25), IsActive: true, CourseID: &courseID})

	svc := newTestService(t, deps)
	voucher, err := svc.Validate(context.Background(), "MATCH", courseID, uuid.New())
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if voucher == nil || voucher.Code != "MATCH" {
		t.Fatalf("unexpected voucher %+v", voucher)
	}
}

func TestValidateEnforcesMinimumAmount(t *testing.T) {
	deps := newTestDeps()
	cheapCourse := deps.courses.add(decimal.NewFromInt(20))
	pricedCourse := deps.courses.add(decimal.NewFromInt(80))
	floor := decimal.NewFromInt(50)
	deps.repo.add(&models.Voucher{Code: "BIGSPEND", Type: enums.DiscountTypePercent, Value: decimal.NewFromInt(10), IsActive: true, MinimumAmount: &floor})

	svc := newTestService(t, deps)
	ctx := context.Background()

	_, err := svc.Validate(ctx, "BIGSPEND", cheapCourse, uuid.New())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error below the price floor, got %v", err)
	}

	if _, err := svc.Validate(ctx, "BIGSPEND", pricedCourse, uuid.New()); err != nil {
		t.Fatalf("expected voucher to apply above the floor: %v", err)
	}
}

func TestValidateFirstTimeUsersOnly(t *testing.T) {
	deps := newTestDeps()
	courseID := deps.courses.add(decimal.NewFromInt(100))
	deps.repo.add(&models.Voucher{Code: "WELCOME", Type: enums.DiscountTypePercent, Value: decimal.NewFromInt(10), IsActive: true, FirstTimeUsersOnly: true})

	returning := uuid.New()
	deps.payments.paid[returning] = true
	firstTimer := uuid.New()

	svc := newTestService(t, deps)
	ctx := context.Background()

	_, err := svc.Validate(ctx, "WELCOME", courseID, returning)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for a returning buyer, got %v", err)
	}

	if _, err := svc.Validate(ctx, "WELCOME", courseID, firstTimer); err != nil {
		t.Fatalf("expected voucher to apply for a first-time buyer: %v", err)
	}
}

func TestCalculateDiscount(t *testing.T) {
	svc := newTestService(t, newTestDeps())

	ten := decimal.NewFromInt(10)
	cases := []struct {
		name    string
		voucher models.Voucher
		amount  decimal.Decimal
		want    decimal.Decimal
	}{
		{
			name:    "percent",
			voucher: models.Voucher{Type: enums.DiscountTypePercent, Value: decimal.NewFromInt(20)},
			amount:  decimal.NewFromInt(50),
			want:    decimal.NewFromInt(10),
		},
		{
			name:    "fixed amount",
			voucher: models.Voucher{Type: enums.DiscountTypeAmount, Value: decimal.NewFromInt(15)},
			amount:  decimal.NewFromInt(50),
			want:    decimal.NewFromInt(15),
		},
		{
			name:    "capped by maximum",
			voucher: models.Voucher{Type: enums.DiscountTypePercent, Value: decimal.NewFromInt(50), MaximumDiscount: &ten},
			amount:  decimal.NewFromInt(100),
			want:    decimal.NewFromInt(10),
		},
		{
			name:    "never exceeds amount",
			voucher: models.Voucher{Type: enums.DiscountTypeAmount, Value: decimal.NewFromInt(80)},
			amount:  decimal.NewFromInt(30),
			want:    decimal.NewFromInt(30),
		},
		{
			name:    "100 percent zeroes the price",
			voucher: models.Voucher{Type: enums.DiscountTypePercent, Value: decimal.NewFromInt(100)},
			amount:  decimal.NewFromFloat(49.99),
			want:    decimal.NewFromFloat(49.99),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := svc.CalculateDiscount(&tc.voucher, tc.amount)
			if !got.Equal(tc.want) {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestCalculateDiscountZeroAmount(t *testing.T) {
	svc := newTestService(t, newTestDeps())
	voucher := models.Voucher{Type: enums.DiscountTypePercent, Value: decimal.NewFromInt(50)}
	if got := svc.CalculateDiscount(&voucher, decimal.Zero); !got.IsZero() {
		t.Fatalf("expected zero discount, got %s", got)
	}
}

func TestConsumeEnforcesRedemptionCap(t *testing.T) {
	deps := newTestDeps()
	maxed := 1
	voucher := &models.Voucher{Code: "LAST", Type: enums.DiscountTypeAmount, Value: decimal.NewFromInt(5), IsActive: true, MaxRedemptions: &maxed}
	deps.repo.add(voucher)

	svc := newTestService(t, deps)
	ctx := context.Background()
	tx := &gorm.DB{}

	if err := svc.Consume(ctx, tx, voucher.ID, uuid.New(), uuid.New(), decimal.NewFromInt(5)); err != nil {
		t.Fatalf("first consume: %v", err)
	}
	if voucher.RedemptionCount != 1 {
		t.Fatalf("expected redemption count 1, got %d", voucher.RedemptionCount)
	}
	if len(deps.repo.redeems) != 1 {
		t.Fatalf("expected one redemption row")
	}

	err := svc.Consume(ctx, tx, voucher.ID, uuid.New(), uuid.New(), decimal.NewFromInt(5))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict on exhausted voucher, got %v", err)
	}
}

func TestCreateVoucherValidation(t *testing.T) {
	svc := newTestService(t, newTestDeps())
	ctx := context.Background()

	_, err := svc.CreateVoucher(ctx, CreateVoucherInput{Code: "", Type: enums.DiscountTypePercent, Value: decimal.NewFromInt(10)})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for empty code, got %v", err)
	}

	_, err = svc.CreateVoucher(ctx, CreateVoucherInput{Code: "OVER", Type: enums.DiscountTypePercent, Value: decimal.NewFromInt(150)})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for >100 percent, got %v", err)
	}

	created, err := svc.CreateVoucher(ctx, CreateVoucherInput{Code: "OK10", Type: enums.DiscountTypePercent, Value: decimal.NewFromInt(10)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !created.IsActive {
		t.Fatal("new voucher should be active")
	}
}
