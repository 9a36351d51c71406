package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/codigo-learn/lms-backend/api/responses"
	"github.com/codigo-learn/lms-backend/api/validators"
	"github.com/codigo-learn/lms-backend/internal/vouchers"
	"github.com/codigo-learn/lms-backend/pkg/enums"
	pkgerrors "github.com/codigo-learn/lms-backend/pkg/errors"
	"github.com/codigo-learn/lms-backend/pkg/logger"
)

type createVoucherRequest struct {
	Code               string           `json:"code" validate:"required,min=3,max=64"`
	Type               string           `json:"type" validate:"required"`
	Value              decimal.Decimal  `json:"value"`
	CourseID           *uuid.UUID       `json:"course_id,omitempty"`
	MaximumDiscount    *decimal.Decimal `json:"maximum_discount,omitempty"`
	MinimumAmount      *decimal.Decimal `json:"minimum_amount,omitempty"`
	FirstTimeUsersOnly bool             `json:"first_time_users_only,omitempty"`
	MaxRedemptions     *int             `json:"max_redemptions,omitempty"`
	ValidFrom          *time.Time       `json:"valid_from,omitempty"`
	ValidUntil         *time.Time       `json:"valid_until,omitempty"`
}

// CreateVoucher mints a discount voucher.
func CreateVoucher(svc vouchers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createVoucherRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		voucher, err := svc.CreateVoucher(r.Context(), vouchers.CreateVoucherInput{
			Code:               strings.TrimSpace(req.Code),
			Type:               enums.DiscountType(req.Type),
			Value:              req.Value,
			CourseID:           req.CourseID,
			MaximumDiscount:    req.MaximumDiscount,
			MinimumAmount:      req.MinimumAmount,
			FirstTimeUsersOnly: req.FirstTimeUsersOnly,
			MaxRedemptions:     req.MaxRedemptions,
			ValidFrom:          req.ValidFrom,
			ValidUntil:         req.ValidUntil,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, voucher)
	}
}

// ListVouchers returns the most recently created vouchers.
func ListVouchers(svc vouchers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.ListVouchers(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}

// ValidateVoucher checks a code against a course without consuming it.
func ValidateVoucher(svc vouchers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := strings.TrimSpace(r.URL.Query().Get("code"))
		if code == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "code is required"))
			return
		}
		rawCourse := strings.TrimSpace(r.URL.Query().Get("course_id"))
		courseID, err := uuid.Parse(rawCourse)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid course_id"))
			return
		}
		student, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		voucher, err := svc.Validate(r.Context(), code, courseID, student)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, voucher)
	}
}
