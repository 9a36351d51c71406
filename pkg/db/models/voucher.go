package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/codigo-learn/lms-backend/pkg/enums"
)

// Voucher is a redeemable discount code, optionally scoped to one course.
type Voucher struct {
	ID       uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code     string             `gorm:"column:code;type:text;not null;uniqueIndex"`
	Type     enums.DiscountType `gorm:"column:type;type:discount_type;not null"`
	Value    decimal.Decimal    `gorm:"column:value;type:numeric(12,2);not null"`
	CourseID *uuid.UUID         `gorm:"column:course_id;type:uuid"`
	// MaximumDiscount caps the computed discount; nil means uncapped.
	MaximumDiscount *decimal.Decimal `gorm:"column:maximum_discount;type:numeric(12,2)"`
	// MinimumAmount is the smallest course price the code applies to; nil
	// means no floor.
	MinimumAmount      *decimal.Decimal `gorm:"column:minimum_amount;type:numeric(12,2)"`
	FirstTimeUsersOnly bool             `gorm:"column:first_time_users_only;not null;default:false"`
	MaxRedemptions     *int             `gorm:"column:max_redemptions"`
	RedemptionCount int              `gorm:"column:redemption_count;not null;default:0"`
	ValidFrom       *time.Time       `gorm:"column:valid_from"`
	ValidUntil      *time.Time       `gorm:"column:valid_until"`
	IsActive        bool             `gorm:"column:is_active;not null;default:true"`
	CreatedAt       time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// VoucherRedemption records one consumed redemption, keyed so that the same
// enrollment can never consume the same voucher twice.
type VoucherRedemption struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VoucherID    uuid.UUID       `gorm:"column:voucher_id;type:uuid;not null;uniqueIndex:uq_voucher_enrollment"`
	EnrollmentID uuid.UUID       `gorm:"column:enrollment_id;type:uuid;not null;uniqueIndex:uq_voucher_enrollment"`
	UserID       uuid.UUID       `gorm:"column:user_id;type:uuid;not null"`
	Discount     decimal.Decimal `gorm:"column:discount;type:numeric(12,2);not null"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
}
