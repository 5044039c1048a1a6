package main

import (
	"context"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/maintenance-service/internal/api/http"
	"github.com/spec-kit/maintenance-service/internal/api/http/handlers"
	"github.com/spec-kit/maintenance-service/internal/ai"
	"github.com/spec-kit/maintenance-service/internal/auth"
	"github.com/spec-kit/maintenance-service/internal/config"
	"github.com/spec-kit/maintenance-service/internal/events"
	"github.com/spec-kit/maintenance-service/internal/mailer"
	"github.com/spec-kit/maintenance-service/internal/observability"
	"github.com/spec-kit/maintenance-service/internal/payment"
	"github.com/spec-kit/maintenance-service/internal/persistence"
	"github.com/spec-kit/maintenance-service/internal/repository"
	"github.com/spec-kit/maintenance-service/internal/service"
	"github.com/spec-kit/maintenance-service/internal/storage"
	"github.com/spec-kit/maintenance-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mongoStore, err := persistence.NewMongo(ctx, cfg.Mongo, logger)
	if err != nil {
		logger.Fatal("failed to connect mongo", zap.Error(err))
	}
	defer mongoStore.Close(context.Background())
	db := mongoStore.Database()
	if cfg.Mongo.EnsureIndexes {
		if err := repository.EnsureIndexes(ctx, db); err != nil {
			logger.Warn("failed to ensure mongo indexes", zap.Error(err))
		}
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()
	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	mail, err := mailer.New(cfg.Mail, logger.Named("mailer"))
	if err != nil {
		logger.Fatal("failed to build mailer", zap.Error(err))
	}
	uploads, err := storage.NewUploads(cfg.Upload.Dir)
	if err != nil {
		logger.Fatal("failed to prepare upload dir", zap.Error(err))
	}

	dispatcher := events.NewInMemoryDispatcher(
		events.WithAsync(),
		events.WithObserver(func(e events.Event, err error) {
			logger.Error("event handler failed", zap.String("event", string(e.Type)), zap.String("issue_id", e.IssueID), zap.Error(err))
		}),
	)

	issueRepo := repository.NewIssueRepository(db, logger)
	propertyRepo := repository.NewPropertyRepository(db, logger)
	assetRepo := repository.NewAssetRepository(db, logger)
	userRepo := repository.NewUserRepository(db, logger)
	internalRepo := repository.NewInternalTechnicianRepository(db, logger)
	technicianRepo := repository.NewTechnicianRepository(db, logger)
	scheduleRepo := repository.NewScheduleRepository(db, logger)
	reminderLogRepo := repository.NewReminderLogRepository(db, logger)
	templateRepo := repository.NewTemplateRepository(db, logger)
	notificationRepo := repository.NewNotificationRepository(db, logger)
	feedbackRepo := repository.NewFeedbackRepository(db, logger)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	model := ai.NewClient(cfg.AI)

	visibility := service.NewVisibilityResolver(service.VisibilityDependencies{
		IssueRepo:              issueRepo,
		PropertyRepo:           propertyRepo,
		AssetRepo:              assetRepo,
		InternalTechnicianRepo: internalRepo,
		UserRepo:               userRepo,
		Logger:                 logger,
	})
	issueService := service.NewIssueService(service.IssueDependencies{
		IssueRepo:  issueRepo,
		Visibility: visibility,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		IssueRepo:              issueRepo,
		UserRepo:               userRepo,
		TechnicianRepo:         technicianRepo,
		InternalTechnicianRepo: internalRepo,
		Dispatcher:             dispatcher,
		Logger:                 logger,
	})
	scheduleService := service.NewScheduleService(service.ScheduleDependencies{
		ScheduleRepo:           scheduleRepo,
		ReminderLogRepo:        reminderLogRepo,
		InternalTechnicianRepo: internalRepo,
		Mailer:                 mail,
		Location:               cfg.App.Location(),
		Logger:                 logger,
	})
	propertyService := service.NewPropertyService(service.PropertyDependencies{
		PropertyRepo:           propertyRepo,
		AssetRepo:              assetRepo,
		InternalTechnicianRepo: internalRepo,
		UserRepo:               userRepo,
		Logger:                 logger,
	})
	assetService := service.NewAssetService(service.AssetDependencies{AssetRepo: assetRepo, Logger: logger})
	technicianService := service.NewTechnicianService(service.TechnicianDependencies{
		TechnicianRepo:         technicianRepo,
		InternalTechnicianRepo: internalRepo,
		UserRepo:               userRepo,
		Logger:                 logger,
	})
	notificationService := service.NewNotificationService(service.NotificationDependencies{
		NotificationRepo: notificationRepo,
		UserRepo:         userRepo,
		Mailer:           mail,
		Logger:           logger,
	})
	notificationService.Register(dispatcher)
	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo:          userRepo,
		PasswordResetRepo: repository.NewPasswordResetRepository(redis.Store("reset:")),
		Tokens:            tokens,
		Mailer:            mail,
		ResetPasswordURL:  cfg.Auth.ResetPasswordURL,
		ResetTokenTTL:     time.Duration(cfg.Auth.ResetTokenTTLMinutes) * time.Minute,
		BcryptCost:        cfg.Auth.BcryptCost,
		Logger:            logger,
	})
	aiService := service.NewAIService(service.AIDependencies{
		Generator:              ai.NewGenerator(model, redis.Store("mms:"), cfg.AI.CacheTTL(), logger.Named("ai")),
		Model:                  model,
		IssueRepo:              issueRepo,
		AssetRepo:              assetRepo,
		PropertyRepo:           propertyRepo,
		InternalTechnicianRepo: internalRepo,
		FeedbackRepo:           feedbackRepo,
		Logger:                 logger,
	})

	var billingHandler *handlers.BillingHandler
	if pool := pg.PoolHandle(); pool != nil {
		subscriptionRepo := repository.NewSubscriptionRepository(pool)
		paymentRepo := repository.NewPaymentRepository(pool)
		invoiceRepo := repository.NewInvoiceRepository(pool)
		subscriptionService := service.NewSubscriptionService(service.SubscriptionDependencies{
			SubscriptionRepo: subscriptionRepo,
			PaymentRepo:      paymentRepo,
			InvoiceRepo:      invoiceRepo,
			ClientID:         cfg.Payment.SubscriptionClientID,
			SecretID:         cfg.Payment.SubscriptionSecretID,
			Logger:           logger,
		})
		paymentService := service.NewPaymentService(service.PaymentDependencies{
			PaymentRepo:      paymentRepo,
			SubscriptionRepo: subscriptionRepo,
			InvoiceRepo:      invoiceRepo,
			Gateway:          payment.NewPayPackClient(cfg.Payment),
			Simulator:        payment.NewSimulator(0.95, rand.Float64),
			CallbackSecret:   cfg.Payment.SecretKey,
			Logger:           logger,
		})
		billingHandler = handlers.NewBillingHandler(subscriptionService, paymentService)
	}

	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{
		AppName:   cfg.App.Name,
		BodyLimit: cfg.App.BodyLimitMB * 1024 * 1024,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, httptransport.MiddlewareConfig{
		Timeout:        cfg.App.RequestTimeout(),
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		RateLimit:      cfg.App.RateLimitPerMinute,
	})

	var pgCheck handlers.Pinger
	if pg.PoolHandle() != nil {
		pgCheck = pg
	}
	uploader := handlers.NewUploader(uploads, cfg.Upload.MaxFiles)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, metrics,
			handlers.Dependency{Name: "mongo", Pinger: mongoStore},
			handlers.Dependency{Name: "postgres", Pinger: pgCheck},
			handlers.Dependency{Name: "redis", Pinger: redis, Optional: true},
		),
		Users:          handlers.NewUsersHandler(authService),
		Issues:         handlers.NewIssuesHandler(issueService, assignmentService, uploader),
		Properties:     handlers.NewPropertiesHandler(propertyService, uploader),
		Assets:         handlers.NewAssetsHandler(assetService),
		Technicians:    handlers.NewTechniciansHandler(technicianService),
		Schedules:      handlers.NewSchedulesHandler(scheduleService, service.NewTemplateService(templateRepo)),
		Notifications:  handlers.NewNotificationsHandler(notificationService, service.NewFeedbackService(feedbackRepo, nil)),
		AI:             handlers.NewAIHandler(aiService),
		Billing:        billingHandler,
		AuthMiddleware: auth.NewAuthMiddleware(tokens, userRepo),
		UploadDir:      uploads.Dir(),
	})

	workerCtx, stopWorker := context.WithCancel(ctx)
	workerDone := make(chan struct{})
	if cfg.Worker.RemindersEnabled {
		reminders := worker.NewReminderWorker(scheduleService, cfg.Worker.ReminderInterval(), cfg.Worker.ReminderWindow(), logger)
		go func() {
			defer close(workerDone)
			reminders.Run(workerCtx)
		}()
	} else {
		close(workerDone)
	}

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	stopWorker()
	<-workerDone
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	dispatcher.Drain()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
