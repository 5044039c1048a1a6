package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

// ScheduleFilter narrows schedule listings.
type ScheduleFilter struct {
	Routine   *bool
	DueBefore *time.Time
	AssetID   string
}

// ScheduleRepository manages maintenance schedules.
type ScheduleRepository interface {
	Create(ctx context.Context, schedule *domain.MaintenanceSchedule) error
	Update(ctx context.Context, schedule *domain.MaintenanceSchedule) error
	GetByID(ctx context.Context, id string) (*domain.MaintenanceSchedule, error)
	List(ctx context.Context, filter ScheduleFilter) ([]domain.MaintenanceSchedule, error)
	Delete(ctx context.Context, id string) error
}

type scheduleRepository struct {
	store[domain.MaintenanceSchedule]
}

// NewScheduleRepository constructs repository.
func NewScheduleRepository(db *mongo.Database, logger *zap.Logger) ScheduleRepository {
	return &scheduleRepository{store: newStore[domain.MaintenanceSchedule](db, "maintenance_schedules", logger)}
}

func (r *scheduleRepository) Create(ctx context.Context, schedule *domain.MaintenanceSchedule) error {
	stampNew(&schedule.ID, &schedule.CreatedAt, &schedule.UpdatedAt)
	return r.insert(ctx, schedule)
}

func (r *scheduleRepository) Update(ctx context.Context, schedule *domain.MaintenanceSchedule) error {
	schedule.UpdatedAt = time.Now().UTC()
	update, err := replaceFields(schedule, []string{"createdAt"}, "snoozedUntil", "assetId", "propertyId", "templateId")
	if err != nil {
		return err
	}
	return r.updateByID(ctx, schedule.ID, update)
}

func (r *scheduleRepository) GetByID(ctx context.Context, id string) (*domain.MaintenanceSchedule, error) {
	return r.getByID(ctx, id)
}

func (r *scheduleRepository) List(ctx context.Context, filter ScheduleFilter) ([]domain.MaintenanceSchedule, error) {
	query := bson.M{}
	if filter.Routine != nil {
		query["routine"] = *filter.Routine
	}
	if filter.DueBefore != nil {
		query["nextDate"] = bson.M{"$lte": *filter.DueBefore}
	}
	if filter.AssetID != "" {
		query["assetId"] = refIn(filter.AssetID)
	}
	return r.findAll(ctx, query, options.Find().SetSort(bson.D{{Key: "nextDate", Value: 1}}))
}

func (r *scheduleRepository) Delete(ctx context.Context, id string) error {
	return r.deleteByID(ctx, id)
}

// ReminderLogRepository records delivered reminders.
type ReminderLogRepository interface {
	Create(ctx context.Context, log *domain.ReminderLog) error
	ListBySchedule(ctx context.Context, scheduleID string) ([]domain.ReminderLog, error)
}

type reminderLogRepository struct {
	store[domain.ReminderLog]
}

// NewReminderLogRepository constructs repository.
func NewReminderLogRepository(db *mongo.Database, logger *zap.Logger) ReminderLogRepository {
	return &reminderLogRepository{store: newStore[domain.ReminderLog](db, "maintenance_reminder_logs", logger)}
}

func (r *reminderLogRepository) Create(ctx context.Context, log *domain.ReminderLog) error {
	stampNew(&log.ID, &log.SentAt, nil)
	return r.insert(ctx, log)
}

func (r *reminderLogRepository) ListBySchedule(ctx context.Context, scheduleID string) ([]domain.ReminderLog, error) {
	return r.findAll(ctx, bson.M{"scheduleId": refIn(scheduleID)}, newestFirst("sentAt", 0))
}

// TemplateRepository manages maintenance templates.
type TemplateRepository interface {
	Create(ctx context.Context, tmpl *domain.MaintenanceTemplate) error
	Update(ctx context.Context, tmpl *domain.MaintenanceTemplate) error
	GetByID(ctx context.Context, id string) (*domain.MaintenanceTemplate, error)
	List(ctx context.Context) ([]domain.MaintenanceTemplate, error)
	Delete(ctx context.Context, id string) error
}

type templateRepository struct {
	store[domain.MaintenanceTemplate]
}

// NewTemplateRepository constructs repository.
func NewTemplateRepository(db *mongo.Database, logger *zap.Logger) TemplateRepository {
	return &templateRepository{store: newStore[domain.MaintenanceTemplate](db, "maintenance_templates", logger)}
}

func (r *templateRepository) Create(ctx context.Context, tmpl *domain.MaintenanceTemplate) error {
	stampNew(&tmpl.ID, &tmpl.CreatedAt, &tmpl.UpdatedAt)
	return r.insert(ctx, tmpl)
}

func (r *templateRepository) Update(ctx context.Context, tmpl *domain.MaintenanceTemplate) error {
	tmpl.UpdatedAt = time.Now().UTC()
	set, err := toSet(tmpl, "createdAt")
	if err != nil {
		return err
	}
	return r.setByID(ctx, tmpl.ID, set)
}

func (r *templateRepository) GetByID(ctx context.Context, id string) (*domain.MaintenanceTemplate, error) {
	return r.getByID(ctx, id)
}

func (r *templateRepository) List(ctx context.Context) ([]domain.MaintenanceTemplate, error) {
	return r.findAll(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
}

func (r *templateRepository) Delete(ctx context.Context, id string) error {
	return r.deleteByID(ctx, id)
}
