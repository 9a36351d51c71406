package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/codigo-learn/lms-backend/api/controllers"
	webhookcontrollers "github.com/codigo-learn/lms-backend/api/controllers/webhooks"
	"github.com/codigo-learn/lms-backend/api/middleware"
	"github.com/codigo-learn/lms-backend/internal/enrollments"
	"github.com/codigo-learn/lms-backend/internal/entitlements"
	"github.com/codigo-learn/lms-backend/internal/notifications"
	"github.com/codigo-learn/lms-backend/internal/vouchers"
	"github.com/codigo-learn/lms-backend/pkg/config"
	"github.com/codigo-learn/lms-backend/pkg/enums"
	"github.com/codigo-learn/lms-backend/pkg/logger"
	pkgredis "github.com/codigo-learn/lms-backend/pkg/redis"
	"github.com/codigo-learn/lms-backend/pkg/stripe"
)

// RouterParams bundles everything the HTTP surface needs.
type RouterParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            controllers.Pinger
	Redis         *pkgredis.Client
	Enrollments   enrollments.Service
	Entitlements  entitlements.Service
	Vouchers      vouchers.Service
	Notifications notifications.Service
	StripeClient  *stripe.Client
	StripeWebhook webhookcontrollers.StripeWebhookService
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	var idemStore pkgredis.IdempotencyStore
	var cachePinger controllers.Pinger
	if params.Redis != nil {
		idemStore = params.Redis
		cachePinger = params.Redis
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.DB, cachePinger))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(params.StripeWebhook, params.StripeClient, logg))
	})

	staff := string(enums.RoleInstructor)
	admin := string(enums.RoleAdmin)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Identity(logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/v1/enrollments", func(r chi.Router) {
			r.Post("/", controllers.Enroll(params.Enrollments, logg))
			r.Get("/", controllers.MyEnrollments(params.Enrollments, logg))
			r.Get("/{enrollmentId}", controllers.EnrollmentDetail(params.Enrollments, logg))
			r.Post("/{enrollmentId}/withdraw", controllers.Withdraw(params.Enrollments, logg))
			r.Patch("/{enrollmentId}/progress", controllers.UpdateProgress(params.Enrollments, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, staff, admin))
				r.Post("/{enrollmentId}/approve", controllers.ApproveEnrollment(params.Enrollments, logg))
				r.Post("/{enrollmentId}/deny", controllers.DenyEnrollment(params.Enrollments, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, admin))
				r.Post("/bulk", controllers.BulkEnroll(params.Enrollments, logg))
				r.Post("/{enrollmentId}/drop", controllers.DropEnrollment(params.Enrollments, logg))
				r.Post("/{enrollmentId}/suspend", controllers.SuspendEnrollment(params.Enrollments, logg))
				r.Post("/{enrollmentId}/reinstate", controllers.ReinstateEnrollment(params.Enrollments, logg))
			})
		})

		r.Route("/v1/courses/{courseId}", func(r chi.Router) {
			r.Get("/capacity", controllers.CourseCapacity(params.Enrollments, logg))
			r.Get("/prerequisites", controllers.CoursePrerequisites(params.Enrollments, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, staff, admin))
				r.Get("/stats", controllers.CourseStats(params.Enrollments, logg))
				r.Post("/waitlist/promote", controllers.PromoteWaitlist(params.Enrollments, logg))
			})
		})

		r.Route("/v1/vouchers", func(r chi.Router) {
			r.Get("/validate", controllers.ValidateVoucher(params.Vouchers, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, admin))
				r.Post("/", controllers.CreateVoucher(params.Vouchers, logg))
				r.Get("/", controllers.ListVouchers(params.Vouchers, logg))
			})
		})

		r.Route("/v1/entitlements", func(r chi.Router) {
			r.Get("/", controllers.MyEntitlements(params.Entitlements, logg))
		})

		r.Route("/v1/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(params.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(params.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(params.Notifications, logg))
		})
	})

	return r
}
