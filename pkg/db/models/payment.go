package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/codigo-learn/lms-backend/pkg/enums"
)

// Payment tracks a charge raised for a paid enrollment.
type Payment struct {
	ID             uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	CourseID       uuid.UUID              `gorm:"column:course_id;type:uuid;not null"`
	Processor      enums.PaymentProcessor `gorm:"column:processor;type:payment_processor;not null;default:'stripe'"`
	Status         enums.PaymentStatus    `gorm:"column:status;type:payment_status;not null;default:'pending'"`
	// Amount is the sum charged; OriginalAmount keeps the undiscounted
	// course price so the voucher's effect survives a price change.
	Amount         decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	OriginalAmount decimal.Decimal `gorm:"column:original_amount;type:numeric(12,2);not null;default:0"`
	DiscountAmount decimal.Decimal `gorm:"column:discount_amount;type:numeric(12,2);not null;default:0"`
	Currency       enums.Currency  `gorm:"column:currency;type:text;not null;default:'USD'"`
	// ProviderRef is the processor-side identifier (Stripe PaymentIntent id).
	ProviderRef    *string         `gorm:"column:provider_ref;type:text;uniqueIndex"`
	FailureReason  *string         `gorm:"column:failure_reason;type:text"`
	RefundedAmount decimal.Decimal `gorm:"column:refunded_amount;type:numeric(12,2);not null;default:0"`
	SucceededAt    *time.Time      `gorm:"column:succeeded_at"`
	ExpiresAt      *time.Time      `gorm:"column:expires_at"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
