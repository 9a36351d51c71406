package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/codigo-learn/lms-backend/api/routes"
	"github.com/codigo-learn/lms-backend/internal/audit"
	"github.com/codigo-learn/lms-backend/internal/capacity"
	"github.com/codigo-learn/lms-backend/internal/courses"
	"github.com/codigo-learn/lms-backend/internal/enrollments"
	"github.com/codigo-learn/lms-backend/internal/entitlements"
	"github.com/codigo-learn/lms-backend/internal/notifications"
	"github.com/codigo-learn/lms-backend/internal/payments"
	"github.com/codigo-learn/lms-backend/internal/users"
	"github.com/codigo-learn/lms-backend/internal/vouchers"
	stripewebhook "github.com/codigo-learn/lms-backend/internal/webhooks/stripe"
	"github.com/codigo-learn/lms-backend/pkg/config"
	"github.com/codigo-learn/lms-backend/pkg/db"
	"github.com/codigo-learn/lms-backend/pkg/logger"
	"github.com/codigo-learn/lms-backend/pkg/migrate"
	"github.com/codigo-learn/lms-backend/pkg/outbox"
	"github.com/codigo-learn/lms-backend/pkg/redis"
	pkgstripe "github.com/codigo-learn/lms-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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
	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}
	seatManager, err := capacity.NewManager(dbClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to create capacity manager", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

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

	guard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Eventing.OutboxIdempotencyTTL, "stripe-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook idempotency guard", err)
		os.Exit(1)
	}
	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Enrollments: enrollmentsService,
		Payments:    paymentsService,
		Guard:       guard,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe webhook service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:        cfg,
			Logger:        logg,
			DB:            dbClient,
			Redis:         redisClient,
			Enrollments:   enrollmentsService,
			Entitlements:  entitlementsService,
			Vouchers:      vouchersService,
			Notifications: notificationsService,
			StripeClient:  stripeClient,
			StripeWebhook: webhookService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
