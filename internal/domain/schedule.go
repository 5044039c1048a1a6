package domain

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ScheduleStatusOverdue is persisted when a schedule's next date has passed.
const ScheduleStatusOverdue = "Overdue"

// Reminder delivery methods recorded in the reminder log.
const (
	ReminderMethodScript    = "script"
	ReminderMethodDashboard = "dashboard"
	ReminderMethodWorker    = "worker"
)

// MaintenanceSchedule is a recurring or one-off maintenance plan.
type MaintenanceSchedule struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name         string               `bson:"name" json:"name"`
	Description  string               `bson:"description,omitempty" json:"description,omitempty"`
	Email        string               `bson:"email,omitempty" json:"email,omitempty"`
	Employees    StringList           `bson:"employees,omitempty" json:"employees"`
	Routine      bool                 `bson:"routine" json:"routine"`
	Frequency    string               `bson:"frequency,omitempty" json:"frequency,omitempty"`
	Interval     int                  `bson:"interval,omitempty" json:"interval,omitempty"`
	NextDate     *time.Time           `bson:"nextDate,omitempty" json:"nextDate,omitempty"`
	Status       string               `bson:"status,omitempty" json:"status,omitempty"`
	LastReminder *time.Time           `bson:"lastReminder,omitempty" json:"lastReminder,omitempty"`
	DismissedBy  map[string]time.Time `bson:"dismissedBy,omitempty" json:"dismissedBy,omitempty"`
	SnoozedUntil *time.Time           `bson:"snoozedUntil,omitempty" json:"snoozedUntil,omitempty"`
	AssetID      string               `bson:"assetId,omitempty" json:"assetId,omitempty"`
	PropertyID   string               `bson:"propertyId,omitempty" json:"propertyId,omitempty"`
	TemplateID   string               `bson:"templateId,omitempty" json:"templateId,omitempty"`
	UserID       string               `bson:"userId,omitempty" json:"userId,omitempty"`
	CreatedAt    time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// IsOverdue reports whether the schedule's next date has passed and it is
// not marked complete.
func (s *MaintenanceSchedule) IsOverdue(now time.Time) bool {
	if s.NextDate == nil || !s.NextDate.Before(now) {
		return false
	}
	return !strings.Contains(strings.ToLower(s.Status), "complete")
}

// AdvanceNextDate moves next forward by one recurrence step.
func AdvanceNextDate(next time.Time, frequency string, interval int) time.Time {
	if interval <= 0 {
		interval = 1
	}
	switch strings.ToLower(strings.TrimSpace(frequency)) {
	case "weekly":
		return next.AddDate(0, 0, 7*interval)
	case "monthly":
		return next.AddDate(0, interval, 0)
	default:
		return next.AddDate(0, 0, interval)
	}
}

// ReminderLog records one delivered reminder.
type ReminderLog struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ScheduleID string             `bson:"scheduleId" json:"scheduleId"`
	Recipients []string           `bson:"recipients" json:"recipients"`
	Method     string             `bson:"method" json:"method"`
	SentAt     time.Time          `bson:"sentAt" json:"sentAt"`
}

// MaintenanceTemplate is a reusable schedule blueprint.
type MaintenanceTemplate struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Frequency   string             `bson:"frequency,omitempty" json:"frequency,omitempty"`
	Interval    int                `bson:"interval,omitempty" json:"interval,omitempty"`
	Checklist   StringList         `bson:"checklist,omitempty" json:"checklist"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}
