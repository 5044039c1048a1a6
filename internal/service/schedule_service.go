package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/mailer"
	"github.com/spec-kit/maintenance-service/internal/repository"
	"github.com/spec-kit/maintenance-service/pkg/util/idutil"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

const (
	defaultSnoozeMinutes = 60
	localDateTimeLayout  = "2006-01-02T15:04"
	dateLayout           = "2006-01-02"
)

// ScheduleService manages maintenance schedules and their reminders.
type ScheduleService struct {
	schedules repository.ScheduleRepository
	logs      repository.ReminderLogRepository
	internals repository.InternalTechnicianRepository
	mail      Mailer
	clock     Clock
	location  *time.Location
	logger    *zap.Logger
}

// ScheduleDependencies bundles collaborators for the schedule service.
type ScheduleDependencies struct {
	ScheduleRepo           repository.ScheduleRepository
	ReminderLogRepo        repository.ReminderLogRepository
	InternalTechnicianRepo repository.InternalTechnicianRepository
	Mailer                 Mailer
	Clock                  Clock
	// Location interprets date and time inputs. Defaults to time.Local.
	Location *time.Location
	Logger   *zap.Logger
}

// ScheduleInput carries create and partial-update fields.
type ScheduleInput struct {
	Name        *string
	Description *string
	Email       *string
	Employees   *[]string
	Routine     *bool
	Frequency   *string
	Interval    *int
	Date        *string
	Time        *string
	NextDate    *time.Time
	Status      *string
	AssetID     *string
	PropertyID  *string
	TemplateID  *string
}

// ReminderRun configures one reminder pass.
type ReminderRun struct {
	Window time.Duration
	DryRun bool
	Method string
}

// ReminderResult is the outcome for one schedule.
type ReminderResult struct {
	ScheduleID string     `json:"scheduleId"`
	Name       string     `json:"name"`
	Recipients []string   `json:"recipients"`
	Sent       bool       `json:"sent"`
	AdvancedTo *time.Time `json:"advancedTo,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// ReminderReport summarizes a reminder pass.
type ReminderReport struct {
	Cutoff  time.Time        `json:"cutoff"`
	DryRun  bool             `json:"dryRun"`
	Results []ReminderResult `json:"results"`
}

// Failed counts schedules that errored.
func (r ReminderReport) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Error != "" {
			n++
		}
	}
	return n
}

// NewScheduleService constructs the service.
func NewScheduleService(deps ScheduleDependencies) *ScheduleService {
	loc := deps.Location
	if loc == nil {
		loc = time.Local
	}
	return &ScheduleService{
		schedules: deps.ScheduleRepo,
		logs:      deps.ReminderLogRepo,
		internals: deps.InternalTechnicianRepo,
		mail:      deps.Mailer,
		clock:     deps.Clock,
		location:  loc,
		logger:    nopLogger(deps.Logger),
	}
}

// Create stores a schedule. A missing or unparseable date falls back to now.
func (s *ScheduleService) Create(ctx context.Context, caller *domain.Caller, input ScheduleInput) (*domain.MaintenanceSchedule, error) {
	name := trimPtr(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
	}
	schedule := &domain.MaintenanceSchedule{Name: name}
	applyScheduleInput(schedule, input)

	next, ok := s.nextDateFrom(input)
	if !ok {
		s.logger.Warn("invalid schedule date, defaulting to now", zap.String("date", trimPtr(input.Date)), zap.String("time", trimPtr(input.Time)))
		next = s.clock.now()
	}
	schedule.NextDate = &next
	if !caller.Anonymous() {
		schedule.UserID = caller.UserID
	}

	if err := s.schedules.Create(ctx, schedule); err != nil {
		return nil, apperrors.MapError(err)
	}
	return schedule, nil
}

// Update applies a partial update. Date inputs replace nextDate only when
// given, and must parse.
func (s *ScheduleService) Update(ctx context.Context, id string, input ScheduleInput) (*domain.MaintenanceSchedule, error) {
	schedule, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Name != nil && trimPtr(input.Name) == "" {
		return nil, apperrors.NewValidationError("name cannot be empty", map[string]any{"field": "name"})
	}
	applyScheduleInput(schedule, input)

	if trimPtr(input.Date) != "" || input.NextDate != nil {
		next, ok := s.nextDateFrom(input)
		if !ok {
			return nil, apperrors.NewValidationError("invalid date", map[string]any{"date": trimPtr(input.Date), "time": trimPtr(input.Time)})
		}
		schedule.NextDate = &next
	}

	if err := s.schedules.Update(ctx, schedule); err != nil {
		return nil, apperrors.MapError(err)
	}
	return schedule, nil
}

// List returns every schedule, persisting Overdue first where due.
func (s *ScheduleService) List(ctx context.Context) ([]domain.MaintenanceSchedule, error) {
	schedules, err := s.schedules.List(ctx, repository.ScheduleFilter{})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	now := s.clock.now()
	for i := range schedules {
		s.markOverdue(ctx, &schedules[i], now)
	}
	return schedules, nil
}

// Get returns one schedule, persisting Overdue first where due.
func (s *ScheduleService) Get(ctx context.Context, id string) (*domain.MaintenanceSchedule, error) {
	schedule, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	s.markOverdue(ctx, schedule, s.clock.now())
	return schedule, nil
}

// Delete removes a schedule.
func (s *ScheduleService) Delete(ctx context.Context, id string) error {
	if err := requireID("id", id); err != nil {
		return err
	}
	if err := s.schedules.Delete(ctx, id); err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewNotFound("maintenance schedule", map[string]any{"id": id})
		}
		return apperrors.MapError(err)
	}
	return nil
}

// Dismiss acknowledges the current reminder, optionally for one user.
func (s *ScheduleService) Dismiss(ctx context.Context, id, userID string) (*domain.MaintenanceSchedule, error) {
	schedule, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.clock.now()
	last := now
	if schedule.NextDate != nil {
		last = *schedule.NextDate
	}
	schedule.LastReminder = &last
	if userID = strings.TrimSpace(userID); userID != "" {
		if schedule.DismissedBy == nil {
			schedule.DismissedBy = map[string]time.Time{}
		}
		schedule.DismissedBy[userID] = now
	}

	if err := s.schedules.Update(ctx, schedule); err != nil {
		return nil, apperrors.MapError(err)
	}
	return schedule, nil
}

// Snooze hides the reminder for minutes, 60 when not positive.
func (s *ScheduleService) Snooze(ctx context.Context, id string, minutes int) (*domain.MaintenanceSchedule, error) {
	schedule, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if minutes <= 0 {
		minutes = defaultSnoozeMinutes
	}
	now := s.clock.now()
	until := now.Add(time.Duration(minutes) * time.Minute)
	schedule.SnoozedUntil = &until
	schedule.LastReminder = &now

	if err := s.schedules.Update(ctx, schedule); err != nil {
		return nil, apperrors.MapError(err)
	}
	return schedule, nil
}

// EmailReminder sends the reminder for one schedule right away.
func (s *ScheduleService) EmailReminder(ctx context.Context, id string) ([]string, error) {
	schedule, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	recipients := s.recipients(ctx, schedule)
	if len(recipients) == 0 {
		return nil, apperrors.NewValidationError("No recipients", map[string]any{"scheduleId": id})
	}
	if err := s.sendReminder(ctx, schedule, recipients); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	now := s.clock.now()
	schedule.LastReminder = &now
	if err := s.schedules.Update(ctx, schedule); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.writeLog(ctx, schedule, recipients, domain.ReminderMethodDashboard, now)
	return recipients, nil
}

// ReminderLogs lists delivered reminders, newest first.
func (s *ScheduleService) ReminderLogs(ctx context.Context, id string) ([]domain.ReminderLog, error) {
	if err := requireID("id", id); err != nil {
		return nil, err
	}
	logs, err := s.logs.ListBySchedule(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return logs, nil
}

// RunReminders emails every routine schedule due within the window and
// advances the ones already due. One schedule failing never stops the run.
func (s *ScheduleService) RunReminders(ctx context.Context, run ReminderRun) (*ReminderReport, error) {
	method := run.Method
	if method == "" {
		method = domain.ReminderMethodScript
	}
	now := s.clock.now()
	cutoff := now.Add(run.Window)
	routine := true

	schedules, err := s.schedules.List(ctx, repository.ScheduleFilter{Routine: &routine, DueBefore: &cutoff})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("reminder run", zap.Int("schedules", len(schedules)), zap.Time("cutoff", cutoff), zap.Bool("dry_run", run.DryRun))

	report := &ReminderReport{Cutoff: cutoff, DryRun: run.DryRun, Results: make([]ReminderResult, 0, len(schedules))}
	for i := range schedules {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Results = append(report.Results, s.remind(ctx, &schedules[i], run.DryRun, method))
	}
	return report, nil
}

func (s *ScheduleService) remind(ctx context.Context, schedule *domain.MaintenanceSchedule, dryRun bool, method string) ReminderResult {
	res := ReminderResult{ScheduleID: schedule.ID.Hex(), Name: schedule.Name}
	res.Recipients = s.recipients(ctx, schedule)

	now := s.clock.now()
	var advanced *time.Time
	if schedule.NextDate != nil && !schedule.NextDate.After(now) {
		next := domain.AdvanceNextDate(*schedule.NextDate, schedule.Frequency, schedule.Interval)
		advanced = &next
		res.AdvancedTo = advanced
	}
	if dryRun {
		return res
	}

	if len(res.Recipients) > 0 {
		if err := s.sendReminder(ctx, schedule, res.Recipients); err != nil {
			s.logger.Error("reminder email failed", zap.String("schedule_id", res.ScheduleID), zap.Error(err))
			res.Error = err.Error()
		} else {
			res.Sent = true
		}
	}

	schedule.LastReminder = &now
	if advanced != nil {
		schedule.NextDate = advanced
	}
	if err := s.schedules.Update(ctx, schedule); err != nil {
		s.logger.Error("reminder update failed", zap.String("schedule_id", res.ScheduleID), zap.Error(err))
		res.Error = err.Error()
		return res
	}
	if res.Sent {
		s.writeLog(ctx, schedule, res.Recipients, method, now)
	}
	return res
}

// recipients is the schedule email plus the listed technicians' emails.
func (s *ScheduleService) recipients(ctx context.Context, schedule *domain.MaintenanceSchedule) []string {
	out := []string{schedule.Email}
	var ids []string
	for _, id := range schedule.Employees {
		if idutil.IsHex(strings.TrimSpace(id)) {
			ids = append(ids, strings.TrimSpace(id))
		}
	}
	if len(ids) > 0 {
		techs, err := s.internals.List(ctx, repository.InternalTechnicianFilter{IDs: ids})
		if err != nil {
			s.logger.Warn("employee lookup failed", zap.String("schedule_id", schedule.ID.Hex()), zap.Error(err))
		}
		for _, t := range techs {
			out = append(out, t.Email)
		}
	}
	return mailer.DedupeAddresses(out)
}

func (s *ScheduleService) sendReminder(ctx context.Context, schedule *domain.MaintenanceSchedule, to []string) error {
	data := mailer.Data{
		Name:        schedule.Name,
		Description: schedule.Description,
		Frequency:   schedule.Frequency,
	}
	if schedule.NextDate != nil {
		data.NextDate = schedule.NextDate.In(s.location).Format("Jan 2, 2006 15:04")
	}
	if schedule.Interval > 0 {
		data.Interval = strconv.Itoa(schedule.Interval)
	}
	return s.mail.Send(ctx, mailer.KindMaintenanceReminder, to, data)
}

func (s *ScheduleService) writeLog(ctx context.Context, schedule *domain.MaintenanceSchedule, recipients []string, method string, at time.Time) {
	entry := &domain.ReminderLog{
		ScheduleID: schedule.ID.Hex(),
		Recipients: recipients,
		Method:     method,
		SentAt:     at,
	}
	if err := s.logs.Create(ctx, entry); err != nil {
		s.logger.Error("reminder log write failed", zap.String("schedule_id", entry.ScheduleID), zap.Error(err))
	}
}

func (s *ScheduleService) markOverdue(ctx context.Context, schedule *domain.MaintenanceSchedule, now time.Time) {
	if !schedule.IsOverdue(now) || strings.EqualFold(schedule.Status, domain.ScheduleStatusOverdue) {
		return
	}
	schedule.Status = domain.ScheduleStatusOverdue
	if err := s.schedules.Update(ctx, schedule); err != nil {
		s.logger.Warn("overdue update failed", zap.String("schedule_id", schedule.ID.Hex()), zap.Error(err))
	}
}

func (s *ScheduleService) load(ctx context.Context, id string) (*domain.MaintenanceSchedule, error) {
	if err := requireID("id", id); err != nil {
		return nil, err
	}
	schedule, err := s.schedules.GetByID(ctx, id)
	return lookup(schedule, err, "maintenance schedule", id)
}

// nextDateFrom combines date and time in the service location, or takes an
// explicit nextDate.
func (s *ScheduleService) nextDateFrom(input ScheduleInput) (time.Time, bool) {
	date := trimPtr(input.Date)
	if date == "" {
		if input.NextDate != nil && !input.NextDate.IsZero() {
			return *input.NextDate, true
		}
		return time.Time{}, false
	}
	if clock := trimPtr(input.Time); clock != "" {
		for _, layout := range []string{localDateTimeLayout, localDateTimeLayout + ":05"} {
			if t, err := time.ParseInLocation(layout, date+"T"+clock, s.location); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, date); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation(dateLayout, date, s.location); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func applyScheduleInput(schedule *domain.MaintenanceSchedule, in ScheduleInput) {
	if in.Name != nil {
		schedule.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		schedule.Description = *in.Description
	}
	if in.Email != nil {
		schedule.Email = strings.TrimSpace(*in.Email)
	}
	if in.Employees != nil {
		var ids domain.StringList
		for _, e := range *in.Employees {
			ids = append(ids, domain.SplitList(e)...)
		}
		schedule.Employees = ids
	}
	if in.Routine != nil {
		schedule.Routine = *in.Routine
	}
	if in.Frequency != nil {
		schedule.Frequency = strings.TrimSpace(*in.Frequency)
	}
	if in.Interval != nil {
		schedule.Interval = *in.Interval
	}
	if in.Status != nil {
		schedule.Status = strings.TrimSpace(*in.Status)
	}
	if in.AssetID != nil {
		schedule.AssetID = strings.TrimSpace(*in.AssetID)
	}
	if in.PropertyID != nil {
		schedule.PropertyID = strings.TrimSpace(*in.PropertyID)
	}
	if in.TemplateID != nil {
		schedule.TemplateID = strings.TrimSpace(*in.TemplateID)
	}
}
