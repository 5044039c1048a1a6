package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/events"
	"github.com/spec-kit/maintenance-service/internal/mailer"
	"github.com/spec-kit/maintenance-service/internal/repository"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

const notificationListLimit = 50

// Notification types.
const (
	NotificationInfo    = "info"
	NotificationSuccess = "success"
	NotificationWarning = "warning"
)

// NotificationService turns domain events into in-app notifications and
// emails, and serves the notification inbox.
type NotificationService struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	mail          Mailer
	clock         Clock
	logger        *zap.Logger
}

// NotificationDependencies bundles collaborators for the notification service.
type NotificationDependencies struct {
	NotificationRepo repository.NotificationRepository
	UserRepo         repository.UserRepository
	Mailer           Mailer
	Clock            Clock
	Logger           *zap.Logger
}

// EmailTestResult reports a test delivery.
type EmailTestResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// NewNotificationService constructs the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	return &NotificationService{
		notifications: deps.NotificationRepo,
		users:         deps.UserRepo,
		mail:          deps.Mailer,
		clock:         deps.Clock,
		logger:        nopLogger(deps.Logger),
	}
}

// Register subscribes the service to every issue event.
func (s *NotificationService) Register(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventIssueCreated, s.onCreated)
	dispatcher.Subscribe(events.EventIssueAssigned, s.onAssigned)
	dispatcher.Subscribe(events.EventIssueApproved, s.onApproved)
	dispatcher.Subscribe(events.EventIssueDeclined, s.onDeclined)
	dispatcher.Subscribe(events.EventIssueCompleted, s.onCompleted)
	dispatcher.Subscribe(events.EventIssueResubmitted, s.onResubmitted)
}

// Notify stores one notification. Failures are logged and yield nil.
func (s *NotificationService) Notify(ctx context.Context, userID, title, message, kind, link string) *domain.Notification {
	if strings.TrimSpace(userID) == "" {
		return nil
	}
	if kind == "" {
		kind = NotificationInfo
	}
	n := &domain.Notification{
		UserID:    userID,
		Title:     title,
		Message:   message,
		Type:      kind,
		Link:      link,
		CreatedAt: s.clock.now(),
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		s.logger.Error("notification create failed", zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	return n
}

// NotifyAdmins notifies every active admin and manager and returns how many
// notifications were stored.
func (s *NotificationService) NotifyAdmins(ctx context.Context, title, message, kind, link string) int {
	staff, err := s.staff(ctx)
	if err != nil {
		s.logger.Error("staff lookup failed", zap.Error(err))
		return 0
	}
	sent := 0
	for _, u := range staff {
		if s.Notify(ctx, u.ID.Hex(), title, message, kind, link) != nil {
			sent++
		}
	}
	return sent
}

// List returns the caller's newest notifications.
func (s *NotificationService) List(ctx context.Context, caller *domain.Caller) ([]domain.Notification, error) {
	if caller.Anonymous() {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	items, err := s.notifications.ListByUser(ctx, caller.UserID, notificationListLimit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return items, nil
}

// MarkRead marks one of the caller's notifications read.
func (s *NotificationService) MarkRead(ctx context.Context, caller *domain.Caller, id string) error {
	if caller.Anonymous() {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := requireID("id", id); err != nil {
		return err
	}
	if err := s.notifications.MarkRead(ctx, id, caller.UserID); err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewNotFound("notification", map[string]any{"id": id})
		}
		return apperrors.MapError(err)
	}
	return nil
}

// MarkAllRead marks every unread notification of the caller read.
func (s *NotificationService) MarkAllRead(ctx context.Context, caller *domain.Caller) (int64, error) {
	if caller.Anonymous() {
		return 0, apperrors.NewUnauthorized("authentication required")
	}
	n, err := s.notifications.MarkAllRead(ctx, caller.UserID)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	return n, nil
}

// SendTestEmail delivers the test message to one address.
func (s *NotificationService) SendTestEmail(ctx context.Context, email string) (*EmailTestResult, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperrors.NewValidationError("Email address is required", map[string]any{"field": "email"})
	}
	if err := s.mail.Send(ctx, mailer.KindTest, []string{email}, mailer.Data{}); err != nil {
		s.logger.Error("test email failed", zap.Error(err))
		return &EmailTestResult{Success: false, Message: err.Error()}, nil
	}
	return &EmailTestResult{Success: true, Message: "Test email sent successfully"}, nil
}

// SendAdminTestEmail delivers the test message to every admin and manager.
func (s *NotificationService) SendAdminTestEmail(ctx context.Context) (*EmailTestResult, error) {
	emails, err := s.staffEmails(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(emails) == 0 {
		return &EmailTestResult{Success: false, Message: "No admin/manager emails found in database"}, nil
	}
	data := mailer.Data{Count: len(emails), Recipients: strings.Join(emails, ", ")}
	if err := s.mail.Send(ctx, mailer.KindTestAdmins, emails, data); err != nil {
		s.logger.Error("admin test email failed", zap.Error(err))
		return &EmailTestResult{Success: false, Message: err.Error()}, nil
	}
	return &EmailTestResult{Success: true, Message: fmt.Sprintf("Test email sent to %d admin/manager(s)", len(emails))}, nil
}

func (s *NotificationService) onCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.IssuePayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	issue := payload.Issue
	s.NotifyAdmins(ctx, "New Maintenance Request",
		fmt.Sprintf("New issue reported: %s", issue.Title), NotificationInfo, issueLink(issue))

	emails, err := s.staffEmails(ctx)
	if err != nil || len(emails) == 0 {
		return err
	}
	data := issueMailData(issue, event)
	if owner := s.user(ctx, issue.UserID); owner != nil {
		data.ClientName = owner.Name
		data.ClientEmail = owner.Email
	}
	return s.mail.Send(ctx, mailer.KindNewRequest, emails, data)
}

func (s *NotificationService) onAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.IssueAssignedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	issue := payload.Issue
	s.Notify(ctx, payload.LinkedUserID, "New Issue Assigned",
		fmt.Sprintf("You have been assigned: %s", issue.Title), NotificationInfo, issueLink(issue))

	if payload.Assignee.Email == "" {
		return nil
	}
	data := issueMailData(issue, event)
	data.AssignedBy = s.actorName(ctx, event.Actor)
	return s.mail.Send(ctx, mailer.KindIssueAssigned, []string{payload.Assignee.Email}, data)
}

func (s *NotificationService) onApproved(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.IssuePayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	issue := payload.Issue
	s.Notify(ctx, issue.UserID, "Request Approved",
		fmt.Sprintf("Your request \"%s\" has been approved.", issue.Title), NotificationSuccess, issueLink(issue))
	return s.mailOwner(ctx, mailer.KindRequestApproved, issue, event, "")
}

func (s *NotificationService) onDeclined(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.IssueDeclinedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	issue := payload.Issue
	message := fmt.Sprintf("Your request \"%s\" has been declined.", issue.Title)
	if payload.Reason != "" {
		message += " Reason: " + payload.Reason
	}
	s.Notify(ctx, issue.UserID, "Request Declined", message, NotificationWarning, issueLink(issue))
	return s.mailOwner(ctx, mailer.KindRequestDeclined, issue, event, payload.Reason)
}

func (s *NotificationService) onCompleted(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.IssuePayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	issue := payload.Issue
	s.Notify(ctx, issue.UserID, "Issue Completed",
		fmt.Sprintf("Work on \"%s\" has been completed.", issue.Title), NotificationSuccess, issueLink(issue))

	recipients, err := s.staffEmails(ctx)
	owner := s.user(ctx, issue.UserID)
	if owner != nil {
		recipients = append(recipients, owner.Email)
	}
	recipients = mailer.DedupeAddresses(recipients)
	if len(recipients) == 0 {
		return err
	}
	data := issueMailData(issue, event)
	data.Feedback = issue.Feedback
	data.AfterImage = issue.AfterImage
	if n := len(issue.Assignees); n > 0 {
		data.TechnicianName = issue.Assignees[n-1].Name
	}
	if data.TechnicianName == "" {
		data.TechnicianName = s.actorName(ctx, event.Actor)
	}
	return errors.Join(err, s.mail.Send(ctx, mailer.KindIssueCompleted, recipients, data))
}

func (s *NotificationService) onResubmitted(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.IssuePayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	issue := payload.Issue
	s.NotifyAdmins(ctx, "Request Resubmitted",
		fmt.Sprintf("Issue \"%s\" was resubmitted for review.", issue.Title), NotificationInfo, issueLink(issue))
	return nil
}

func (s *NotificationService) mailOwner(ctx context.Context, kind mailer.Kind, issue domain.Issue, event events.Event, reason string) error {
	owner := s.user(ctx, issue.UserID)
	if owner == nil || owner.Email == "" {
		return nil
	}
	data := issueMailData(issue, event)
	data.ClientName = owner.Name
	data.ManagerName = s.actorName(ctx, event.Actor)
	data.Reason = reason
	return s.mail.Send(ctx, kind, []string{owner.Email}, data)
}

func (s *NotificationService) staff(ctx context.Context) ([]domain.User, error) {
	return s.users.List(ctx, repository.UserFilter{
		Roles:  []domain.Role{domain.RoleAdmin, domain.RoleManager},
		Status: domain.UserStatusActive,
	})
}

func (s *NotificationService) staffEmails(ctx context.Context) ([]string, error) {
	staff, err := s.staff(ctx)
	if err != nil {
		return nil, err
	}
	emails := make([]string, 0, len(staff))
	for _, u := range staff {
		emails = append(emails, u.Email)
	}
	return mailer.DedupeAddresses(emails), nil
}

func (s *NotificationService) user(ctx context.Context, id string) *domain.User {
	if !isHexID(id) {
		return nil
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if !apperrors.IsNotFound(err) {
			s.logger.Warn("user lookup failed", zap.String("user_id", id), zap.Error(err))
		}
		return nil
	}
	return u
}

func (s *NotificationService) actorName(ctx context.Context, actor events.Actor) string {
	if u := s.user(ctx, actor.UserID); u != nil && u.Name != "" {
		return u.Name
	}
	if actor.Role != "" {
		return string(actor.Role)
	}
	return "System"
}

func issueMailData(issue domain.Issue, event events.Event) mailer.Data {
	return mailer.Data{
		Title:       issue.Title,
		Description: issue.Description,
		Location:    issue.Location,
		Category:    issue.Category,
		Priority:    issue.Priority,
		Date:        event.Timestamp.Format("Jan 2, 2006 15:04"),
	}
}

func issueLink(issue domain.Issue) string {
	return "/issues/" + issue.ID.Hex()
}

func isHexID(id string) bool {
	return requireID("id", id) == nil
}
