package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/codigo-learn/lms-backend/pkg/logger"
)

// EntitlementExpiryJobParams configure the entitlement expiry sweep.
type EntitlementExpiryJobParams struct {
	Logger       *logger.Logger
	Entitlements entitlementExpirer
}

type entitlementExpirer interface {
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}

// NewEntitlementExpiryJob builds the cron job that marks time-boxed
// entitlements as expired once their deadline passes.
func NewEntitlementExpiryJob(params EntitlementExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Entitlements == nil {
		return nil, fmt.Errorf("entitlements service required")
	}
	return &entitlementExpiryJob{
		logg:         params.Logger,
		entitlements: params.Entitlements,
		now:          time.Now,
	}, nil
}

type entitlementExpiryJob struct {
	logg         *logger.Logger
	entitlements entitlementExpirer
	now          func() time.Time
}

func (j *entitlementExpiryJob) Name() string { return "entitlement-expiry" }

func (j *entitlementExpiryJob) Run(ctx context.Context) error {
	expired, err := j.entitlements.ExpireDue(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("entitlement expiry: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"rows_expired": expired})
	j.logg.Info(logCtx, "entitlement expiry loop complete")
	return nil
}
