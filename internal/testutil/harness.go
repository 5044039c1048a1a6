package testutil

import (
	"time"

	"github.com/spec-kit/maintenance-service/internal/ai"
	"github.com/spec-kit/maintenance-service/internal/cache"
	"github.com/spec-kit/maintenance-service/internal/repository"
	"github.com/spec-kit/maintenance-service/internal/service"
)

// Subscription credentials accepted by the harness.
const (
	SubscriptionClientID = "test-client"
	SubscriptionSecretID = "test-secret"
	CallbackSecret       = "callback-secret"
)

// Harness wires every service over in-memory stores with a movable clock.
type Harness struct {
	Now time.Time

	Issues        *IssueRepo
	Properties    *PropertyRepo
	Assets        *AssetRepo
	Users         *UserRepo
	Internals     *InternalTechnicianRepo
	Technicians   *TechnicianRepo
	Schedules     *ScheduleRepo
	ReminderLogs  *ReminderLogRepo
	Templates     *TemplateRepo
	Notifications *NotificationRepo
	Feedback      *FeedbackRepo
	Billing       *BillingStore
	Cache         *cache.MemoryStore

	Mailer     *Mailer
	Dispatcher *Dispatcher
	Model      *Model
	Gateway    *Gateway

	Visibility    *service.VisibilityResolver
	IssueSvc      *service.IssueService
	AssignmentSvc *service.AssignmentService
	ScheduleSvc   *service.ScheduleService
	PropertySvc   *service.PropertyService
	AssetSvc      *service.AssetService
	TechnicianSvc *service.TechnicianService
	NotifySvc     *service.NotificationService
	AuthSvc       *service.AuthService
	TemplateSvc   *service.TemplateService
	FeedbackSvc   *service.FeedbackService
	AISvc         *service.AIService
	SubSvc        *service.SubscriptionService
	PaymentSvc    *service.PaymentService
}

// NewHarness builds a harness whose clock starts at now. Notification
// handlers are subscribed to the recording dispatcher.
func NewHarness(now time.Time) *Harness {
	h := &Harness{
		Now:           now,
		Issues:        NewIssueRepo(),
		Properties:    NewPropertyRepo(),
		Assets:        NewAssetRepo(),
		Users:         NewUserRepo(),
		Internals:     NewInternalTechnicianRepo(),
		Technicians:   NewTechnicianRepo(),
		Schedules:     NewScheduleRepo(),
		ReminderLogs:  NewReminderLogRepo(),
		Templates:     NewTemplateRepo(),
		Notifications: NewNotificationRepo(),
		Feedback:      NewFeedbackRepo(),
		Billing:       NewBillingStore(),
		Mailer:        &Mailer{},
		Dispatcher:    NewDispatcher(),
		Model:         &Model{},
		Gateway:       &Gateway{},
	}
	h.Cache = cache.NewMemoryStore().WithClock(h.clock())
	clock := service.Clock(h.clock())

	h.Visibility = service.NewVisibilityResolver(service.VisibilityDependencies{
		IssueRepo:              h.Issues,
		PropertyRepo:           h.Properties,
		AssetRepo:              h.Assets,
		InternalTechnicianRepo: h.Internals,
		UserRepo:               h.Users,
	})
	h.IssueSvc = service.NewIssueService(service.IssueDependencies{
		IssueRepo:  h.Issues,
		Visibility: h.Visibility,
		Dispatcher: h.Dispatcher,
		Clock:      clock,
	})
	h.AssignmentSvc = service.NewAssignmentService(service.AssignmentDependencies{
		IssueRepo:              h.Issues,
		UserRepo:               h.Users,
		TechnicianRepo:         h.Technicians,
		InternalTechnicianRepo: h.Internals,
		Dispatcher:             h.Dispatcher,
		Clock:                  clock,
	})
	h.ScheduleSvc = service.NewScheduleService(service.ScheduleDependencies{
		ScheduleRepo:           h.Schedules,
		ReminderLogRepo:        h.ReminderLogs,
		InternalTechnicianRepo: h.Internals,
		Mailer:                 h.Mailer,
		Clock:                  clock,
		Location:               time.UTC,
	})
	h.PropertySvc = service.NewPropertyService(service.PropertyDependencies{
		PropertyRepo:           h.Properties,
		AssetRepo:              h.Assets,
		InternalTechnicianRepo: h.Internals,
		UserRepo:               h.Users,
	})
	h.AssetSvc = service.NewAssetService(service.AssetDependencies{AssetRepo: h.Assets, Clock: clock})
	h.TechnicianSvc = service.NewTechnicianService(service.TechnicianDependencies{
		TechnicianRepo:         h.Technicians,
		InternalTechnicianRepo: h.Internals,
		UserRepo:               h.Users,
	})
	h.NotifySvc = service.NewNotificationService(service.NotificationDependencies{
		NotificationRepo: h.Notifications,
		UserRepo:         h.Users,
		Mailer:           h.Mailer,
		Clock:            clock,
	})
	h.NotifySvc.Register(h.Dispatcher)
	h.AuthSvc = service.NewAuthService(service.AuthDependencies{
		UserRepo:          h.Users,
		PasswordResetRepo: repository.NewPasswordResetRepository(h.Cache),
		Tokens:            Tokens{},
		Mailer:            h.Mailer,
		ResetPasswordURL:  "http://frontend.test/reset-password",
		ResetTokenTTL:     time.Hour,
		BcryptCost:        4,
	})
	h.TemplateSvc = service.NewTemplateService(h.Templates)
	h.FeedbackSvc = service.NewFeedbackService(h.Feedback, clock)
	h.AISvc = service.NewAIService(service.AIDependencies{
		Generator:              ai.NewGenerator(h.Model, h.Cache, 5*time.Minute, nil),
		Model:                  h.Model,
		IssueRepo:              h.Issues,
		AssetRepo:              h.Assets,
		PropertyRepo:           h.Properties,
		InternalTechnicianRepo: h.Internals,
		FeedbackRepo:           h.Feedback,
		Clock:                  clock,
	})
	h.SubSvc = service.NewSubscriptionService(service.SubscriptionDependencies{
		SubscriptionRepo: h.Billing.Subscriptions(),
		PaymentRepo:      h.Billing.Payments(),
		InvoiceRepo:      h.Billing.Invoices(),
		ClientID:         SubscriptionClientID,
		SecretID:         SubscriptionSecretID,
		Clock:            clock,
	})
	h.PaymentSvc = h.NewPaymentService(Charger(true))
	return h
}

// NewPaymentService builds a payment service whose simulated charges
// resolve through charger.
func (h *Harness) NewPaymentService(charger service.Charger) *service.PaymentService {
	return service.NewPaymentService(service.PaymentDependencies{
		PaymentRepo:      h.Billing.Payments(),
		SubscriptionRepo: h.Billing.Subscriptions(),
		InvoiceRepo:      h.Billing.Invoices(),
		Gateway:          h.Gateway,
		Simulator:        charger,
		CallbackSecret:   CallbackSecret,
		Clock:            service.Clock(h.clock()),
	})
}

// Advance moves the harness clock forward.
func (h *Harness) Advance(d time.Duration) {
	h.Now = h.Now.Add(d)
}

func (h *Harness) clock() func() time.Time {
	return func() time.Time { return h.Now }
}
