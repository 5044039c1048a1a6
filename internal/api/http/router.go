package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/maintenance-service/internal/api/http/handlers"
	"github.com/spec-kit/maintenance-service/internal/auth"
	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/storage"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Issues         *handlers.IssuesHandler
	Properties     *handlers.PropertiesHandler
	Assets         *handlers.AssetsHandler
	Technicians    *handlers.TechniciansHandler
	Schedules      *handlers.SchedulesHandler
	Notifications  *handlers.NotificationsHandler
	AI             *handlers.AIHandler
	// Billing is nil when no relational store is configured; its routes
	// then answer 503.
	Billing        *handlers.BillingHandler
	AuthMiddleware *auth.AuthMiddleware
	// UploadDir is served at /uploads when set.
	UploadDir string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.UploadDir != "" {
		app.Static(storage.PublicPrefix, cfg.UploadDir)
	}

	required := cfg.AuthMiddleware.Handle
	optional := cfg.AuthMiddleware.Optional
	staff := auth.RequireStaff()
	admin := auth.RequireAdmin()
	fieldWorker := auth.RequireRole(domain.RoleTechnician, domain.RoleInternal, domain.RoleAdmin, domain.RoleManager)

	api := app.Group("/api")
	api.Get("/health", cfg.Health.Live)
	api.Get("/admin/metrics", required, admin, cfg.Health.Metrics)

	users := api.Group("/users")
	users.Post("/register", cfg.Users.Register)
	users.Get("/", required, admin, cfg.Users.List)
	users.Get("/:id", required, staff, cfg.Users.Get)

	authGroup := api.Group("/auth")
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Post("/forgot-password", cfg.Users.ForgotPassword)
	authGroup.Post("/reset-password/:token", cfg.Users.ResetPassword)

	issues := api.Group("/issues")
	issues.Get("/", optional, cfg.Issues.List)
	issues.Post("/", optional, cfg.Issues.Create)
	issues.Get("/summary", required, staff, cfg.Issues.Summary)
	issues.Get("/user/:userId", required, cfg.Issues.ListByUser)
	issues.Get("/assigned/:techId", required, cfg.Issues.ListAssigned)
	issues.Get("/:id", required, cfg.Issues.Get)
	issues.Put("/:id", required, cfg.Issues.Update)
	issues.Delete("/:id", required, cfg.Issues.Delete)
	issues.Post("/:id/assign", required, staff, cfg.Issues.Assign)
	issues.Post("/:id/assign-internal", required, cfg.Issues.AssignInternal)
	issues.Post("/:id/approve", required, staff, cfg.Issues.Approve)
	issues.Post("/:id/decline", required, staff, cfg.Issues.Decline)
	issues.Post("/:id/resubmit", required, cfg.Issues.Resubmit)
	issues.Post("/:id/evidence/before", required, fieldWorker, cfg.Issues.Before)
	issues.Post("/:id/evidence/after", required, fieldWorker, cfg.Issues.After)

	properties := api.Group("/properties")
	properties.Get("/", optional, cfg.Properties.List)
	properties.Get("/:id", optional, cfg.Properties.Get)
	properties.Post("/", required, cfg.Properties.Create)
	properties.Put("/:id", required, cfg.Properties.Update)
	properties.Delete("/:id", required, cfg.Properties.Delete)
	properties.Post("/:id/photos", required, cfg.Properties.AddPhotos)

	assets := api.Group("/assets")
	assets.Get("/count", optional, cfg.Assets.Count)
	assets.Get("/", optional, cfg.Assets.List)
	assets.Get("/:id", optional, cfg.Assets.Get)
	assets.Post("/", required, cfg.Assets.Create)
	assets.Put("/:id", required, cfg.Assets.Update)
	assets.Delete("/:id", required, staff, cfg.Assets.Delete)
	assets.Post("/:id/move", required, cfg.Assets.Move)
	assets.Get("/:id/movements", required, cfg.Assets.Movements)
	assets.Post("/:id/spare-parts", required, cfg.Assets.AddSparePart)
	assets.Get("/:id/spare-parts", required, cfg.Assets.SpareParts)

	technicians := api.Group("/technicians", required)
	technicians.Get("/", cfg.Technicians.List)
	technicians.Get("/for-assignment", staff, cfg.Technicians.ForAssignment)
	technicians.Get("/:id", cfg.Technicians.Get)
	technicians.Post("/", staff, cfg.Technicians.Create)
	technicians.Put("/:id", staff, cfg.Technicians.Update)
	technicians.Delete("/:id", staff, cfg.Technicians.Delete)

	internals := api.Group("/internal-technicians")
	internals.Get("/", optional, cfg.Technicians.ListInternal)
	internals.Get("/:id", optional, cfg.Technicians.GetInternal)
	internals.Post("/", required, cfg.Technicians.CreateInternal)
	internals.Put("/:id", required, cfg.Technicians.UpdateInternal)
	internals.Delete("/:id", required, cfg.Technicians.DeleteInternal)

	templates := api.Group("/maintenance-templates", required)
	templates.Get("/", cfg.Schedules.ListTemplates)
	templates.Get("/:id", cfg.Schedules.GetTemplate)
	templates.Post("/", staff, cfg.Schedules.CreateTemplate)
	templates.Put("/:id", staff, cfg.Schedules.UpdateTemplate)
	templates.Delete("/:id", staff, cfg.Schedules.DeleteTemplate)

	schedules := api.Group("/maintenance-schedules", required)
	schedules.Post("/", cfg.Schedules.Create)
	schedules.Get("/", cfg.Schedules.List)
	schedules.Get("/:id", cfg.Schedules.Get)
	schedules.Put("/:id", cfg.Schedules.Update)
	schedules.Delete("/:id", cfg.Schedules.Delete)
	schedules.Post("/:id/dismiss", cfg.Schedules.Dismiss)
	schedules.Post("/:id/snooze", cfg.Schedules.Snooze)
	schedules.Post("/:id/emailReminder", cfg.Schedules.EmailReminder)
	schedules.Get("/:id/reminder-logs", cfg.Schedules.ReminderLogs)

	notifications := api.Group("/notifications", required)
	notifications.Get("/", cfg.Notifications.List)
	notifications.Patch("/read-all", cfg.Notifications.MarkAllRead)
	notifications.Patch("/:id/read", cfg.Notifications.MarkRead)

	feedback := api.Group("/feedback", required)
	feedback.Post("/", cfg.Notifications.CreateFeedback)
	feedback.Get("/all", staff, cfg.Notifications.ListFeedback)
	feedback.Get("/client/:userId", cfg.Notifications.ClientFeedback)

	email := api.Group("/email", required, admin)
	email.Post("/test", cfg.Notifications.TestEmail)
	email.Post("/test-admins", cfg.Notifications.TestAdminEmail)

	aiGroup := api.Group("/ai", required)
	aiGroup.Post("/predict-maintenance/:assetId", cfg.AI.Predict)
	aiGroup.Post("/triage-issue", cfg.AI.Triage)
	aiGroup.Get("/sentiment-summary", cfg.AI.Sentiment)
	aiGroup.Get("/dashboard-recommendations", cfg.AI.Recommendations)
	aiGroup.Post("/chat", cfg.AI.Chat)

	if cfg.Billing == nil {
		unavailable := func(c *fiber.Ctx) error {
			return apperrors.NewDomainError("SERVICE_UNAVAILABLE", "billing store not configured", fiber.StatusServiceUnavailable, nil)
		}
		api.Use("/subscriptions", unavailable)
		api.Use("/payments", unavailable)
		return
	}
	registerBilling(api, cfg.Billing, required, staff, admin)
}

func registerBilling(api fiber.Router, billing *handlers.BillingHandler, required, staff, admin fiber.Handler) {
	subs := api.Group("/subscriptions")
	subs.Post("/", billing.CreateSubscription)
	subs.Get("/public/pricing", billing.Pricing)
	subs.Get("/", required, staff, billing.ListSubscriptions)
	subs.Get("/analytics/summary", required, staff, billing.Analytics)
	subs.Get("/client/:clientId", required, billing.ByClient)
	subs.Get("/:id/verify", required, billing.Verify)
	subs.Post("/:id/billing-cycle", required, billing.ChangeBillingCycle)
	subs.Get("/:id", required, billing.GetSubscription)
	subs.Put("/:id", required, billing.UpdateSubscription)
	subs.Post("/:id/upgrade", required, staff, billing.Upgrade)
	subs.Post("/:id/cancel", required, billing.Cancel)
	subs.Delete("/:id", required, admin, billing.DeleteSubscription)

	payments := api.Group("/payments")
	payments.Get("/public/pricing", billing.Pricing)
	payments.Get("/public/calculate", billing.Calculate)
	payments.Post("/callback", billing.Callback)
	payments.Post("/", required, billing.CreatePayment)
	payments.Post("/process", required, billing.ProcessPayment)
	payments.Post("/initiate-paypack", required, billing.InitiatePayPack)
	payments.Get("/", required, staff, billing.ListPayments)
	payments.Get("/subscription/:subscriptionId", required, billing.SubscriptionPayments)
	payments.Get("/:id", required, billing.GetPayment)
	payments.Post("/:id/refund", required, staff, billing.Refund)
}
