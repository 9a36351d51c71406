package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/codigo-learn/lms-backend/internal/audit"
	"github.com/codigo-learn/lms-backend/internal/capacity"
	"github.com/codigo-learn/lms-backend/internal/courses"
	"github.com/codigo-learn/lms-backend/internal/cron"
	"github.com/codigo-learn/lms-backend/internal/enrollments"
	"github.com/codigo-learn/lms-backend/internal/entitlements"
	"github.com/codigo-learn/lms-backend/internal/notifications"
	"github.com/codigo-learn/lms-backend/internal/payments"
	"github.com/codigo-learn/lms-backend/internal/users"
	"github.com/codigo-learn/lms-backend/internal/vouchers"
	"github.com/codigo-learn/lms-backend/pkg/config"
	"github.com/codigo-learn/lms-backend/pkg/db"
	"github.com/codigo-learn/lms-backend/pkg/logger"
	"github.com/codigo-learn/lms-backend/pkg/metrics"
	"github.com/codigo-learn/lms-backend/pkg/migrate"
	"github.com/codigo-learn/lms-backend/pkg/outbox"
	"github.com/codigo-learn/lms-backend/pkg/redis"
	pkgstripe "github.com/codigo-learn/lms-backend/pkg/stripe"
)

const lockKeyFormat = "lms:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := pkgstripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(payments.NewRepository(dbClient.DB()), payments.NewStripeClient(stripeClient))
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}
	entitlementsService, err := entitlements.NewService(entitlements.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create entitlements service", err)
		os.Exit(1)
	}
	vouchersService, err := vouchers.NewService(vouchers.NewRepository(dbClient.DB()), courses.NewRepository(dbClient.DB()), payments.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create vouchers service", err)
		os.Exit(1)
	}
	auditService, err := audit.NewService(audit.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create audit service", err)
		os.Exit(1)
	}
	seatManager, err := capacity.NewManager(dbClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to create capacity manager", err)
		os.Exit(1)
	}

	outboxRepo := outbox.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outboxRepo, logg)
	notificationsRepo := notifications.NewRepository(dbClient.DB())

	enrollmentsService, err := enrollments.NewService(enrollments.ServiceParams{
		Repo:              enrollments.NewRepository(dbClient.DB()),
		Courses:           courses.NewRepository(dbClient.DB()),
		Users:             users.NewRepository(dbClient.DB()),
		Seats:             seatManager,
		Vouchers:          vouchersService,
		Payments:          paymentsService,
		Entitlements:      entitlementsService,
		Audit:             auditService,
		Outbox:            outboxService,
		TransactionRunner: dbClient,
		Logger:            logg,
		Options: enrollments.Options{
			PendingPaymentTTL: cfg.Enrollment.PendingPaymentTTL,
			BulkMaxUsers:      cfg.Enrollment.BulkMaxUsers,
		},
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create enrollments service", err)
		os.Exit(1)
	}

	paymentExpiryJob, err := cron.NewPaymentExpiryJob(cron.PaymentExpiryJobParams{
		Logger:      logg,
		Payments:    paymentsService,
		Enrollments: enrollmentsService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment expiry job", err)
		os.Exit(1)
	}
	entitlementExpiryJob, err := cron.NewEntitlementExpiryJob(cron.EntitlementExpiryJobParams{
		Logger:       logg,
		Entitlements: entitlementsService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create entitlement expiry job", err)
		os.Exit(1)
	}
	notificationCleanupJob, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     logg,
		Repository: notificationsRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notification cleanup job", err)
		os.Exit(1)
	}
	outboxRetentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:      logg,
		DB:          dbClient,
		Repository:  outboxRepo,
		MinAttempts: cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(paymentExpiryJob, entitlementExpiryJob, notificationCleanupJob, outboxRetentionJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.PaymentReconcileEvery,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
