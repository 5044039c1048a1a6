// Command reminders runs one pass of the preventive maintenance reminder job.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-service/internal/config"
	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/mailer"
	"github.com/spec-kit/maintenance-service/internal/observability"
	"github.com/spec-kit/maintenance-service/internal/persistence"
	"github.com/spec-kit/maintenance-service/internal/repository"
	"github.com/spec-kit/maintenance-service/internal/service"
)

func main() {
	window := pflag.DurationP("window", "w", 24*time.Hour, "remind schedules due within this window")
	dryRun := pflag.Bool("dry-run", false, "report what would be sent without mailing or advancing dates")
	configFile := pflag.StringP("config", "c", "", "YAML config file (overrides CONFIG_FILE)")
	pflag.Parse()

	if *configFile != "" {
		if err := os.Setenv("CONFIG_FILE", *configFile); err != nil {
			log.Fatalf("failed to set config path: %v", err)
		}
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	mongoStore, err := persistence.NewMongo(ctx, cfg.Mongo, logger)
	if err != nil {
		logger.Fatal("failed to connect mongo", zap.Error(err))
	}
	defer mongoStore.Close(context.Background())
	db := mongoStore.Database()

	mail, err := mailer.New(cfg.Mail, logger.Named("mailer"))
	if err != nil {
		logger.Fatal("failed to build mailer", zap.Error(err))
	}

	schedules := service.NewScheduleService(service.ScheduleDependencies{
		ScheduleRepo:           repository.NewScheduleRepository(db, logger),
		ReminderLogRepo:        repository.NewReminderLogRepository(db, logger),
		InternalTechnicianRepo: repository.NewInternalTechnicianRepository(db, logger),
		Mailer:                 mail,
		Location:               cfg.App.Location(),
		Logger:                 logger,
	})

	report, err := schedules.RunReminders(ctx, service.ReminderRun{
		Window: *window,
		DryRun: *dryRun,
		Method: domain.ReminderMethodScript,
	})
	if err != nil {
		logger.Fatal("reminder run failed", zap.Error(err))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		logger.Error("failed to print report", zap.Error(err))
	}
	if failed := report.Failed(); failed > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d reminders failed\n", failed, len(report.Results))
		os.Exit(1)
	}
}
