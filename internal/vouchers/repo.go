package vouchers

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codigo-learn/lms-backend/pkg/db/models"
)

// Repository manages persistence for vouchers and their redemptions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByCode(ctx context.Context, code string) (*models.Voucher, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Voucher, error)
	// LockByID fetches the voucher FOR UPDATE so concurrent consumers
	// cannot both take the last redemption.
	LockByID(ctx context.Context, id uuid.UUID) (*models.Voucher, error)
	Create(ctx context.Context, voucher *models.Voucher) error
	Update(ctx context.Context, voucher *models.Voucher) error
	CreateRedemption(ctx context.Context, redemption *models.VoucherRedemption) error
	List(ctx context.Context, limit int) ([]models.Voucher, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a voucher repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.Voucher, error) {
	var voucher models.Voucher
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&voucher).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &voucher, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Voucher, error) {
	var voucher models.Voucher
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&voucher).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &voucher, nil
}

func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Voucher, error) {
	var voucher models.Voucher
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&voucher).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &voucher, nil
}

func (r *repository) Create(ctx context.Context, voucher *models.Voucher) error {
	return r.db.WithContext(ctx).Create(voucher).Error
}

func (r *repository) Update(ctx context.Context, voucher *models.Voucher) error {
	return r.db.WithContext(ctx).Save(voucher).Error
}

func (r *repository) CreateRedemption(ctx context.Context, redemption *models.VoucherRedemption) error {
	return r.db.WithContext(ctx).Create(redemption).Error
}

func (r *repository) List(ctx context.Context, limit int) ([]models.Voucher, error) {
	if limit <= 0 {
		limit = 50
	}
	var vouchers []models.Voucher
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&vouchers).Error
	return vouchers, err
}
