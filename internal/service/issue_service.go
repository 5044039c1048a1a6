package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/events"
	"github.com/spec-kit/maintenance-service/internal/repository"
	"github.com/spec-kit/maintenance-service/pkg/util/idutil"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

// IssueService coordinates the issue lifecycle.
type IssueService struct {
	issues     repository.IssueRepository
	visibility *VisibilityResolver
	dispatcher events.Dispatcher
	clock      Clock
	logger     *zap.Logger
}

// IssueDependencies bundles collaborators for the issue service.
type IssueDependencies struct {
	IssueRepo  repository.IssueRepository
	Visibility *VisibilityResolver
	Dispatcher events.Dispatcher
	Clock      Clock
	Logger     *zap.Logger
}

// IssueInput carries create and partial-update fields. Nil pointers are
// left untouched on update.
type IssueInput struct {
	Title       *string
	Description *string
	Location    *string
	Category    *string
	Type        *string
	Priority    *string
	Status      *string
	Tags        *[]string
	Photo       *string
	PropertyID  *string
	AssetID     *string
	Deadline    *time.Time
}

// BeforeEvidence is recorded when work starts.
type BeforeEvidence struct {
	FixTime int
	Image   string
	Address string
}

// AfterEvidence is recorded when work ends.
type AfterEvidence struct {
	Image    string
	Feedback string
}

// IssueSummary counts issues per status.
type IssueSummary struct {
	Total    int64            `json:"total"`
	ByStatus map[string]int64 `json:"byStatus"`
}

// NewIssueService constructs the service.
func NewIssueService(deps IssueDependencies) *IssueService {
	return &IssueService{
		issues:     deps.IssueRepo,
		visibility: deps.Visibility,
		dispatcher: deps.Dispatcher,
		clock:      deps.Clock,
		logger:     nopLogger(deps.Logger),
	}
}

// Create files a new issue. It always starts PENDING and belongs to the
// caller; anonymous submissions must name a property.
func (s *IssueService) Create(ctx context.Context, caller *domain.Caller, input IssueInput) (*domain.Issue, error) {
	title := trimPtr(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", map[string]any{"field": "title"})
	}
	propertyID := trimPtr(input.PropertyID)
	if caller.Anonymous() && propertyID == "" {
		return nil, apperrors.NewUnauthorized("authentication or propertyId required")
	}
	if err := validateRefs(propertyID, trimPtr(input.AssetID)); err != nil {
		return nil, err
	}

	issue := &domain.Issue{Title: title}
	applyIssueInput(issue, input)
	issue.Status = domain.IssueStatusPending
	issue.UserID = ""
	if !caller.Anonymous() {
		issue.UserID = caller.UserID
	}
	if issue.Tags == nil {
		issue.Tags = []string{}
	}
	if domain.IsPreventive(issue.Title, issue.Type, issue.Category, issue.Tags) {
		issue.Tags = domain.EnsurePreventiveTag(issue.Tags)
	}

	if err := s.issues.Create(ctx, issue); err != nil {
		return nil, apperrors.MapError(err)
	}

	publish(ctx, s.dispatcher, s.clock, events.Event{
		Type:    events.EventIssueCreated,
		IssueID: issue.HexID(),
		Actor:   events.ActorFrom(caller),
		Payload: events.IssuePayload{Issue: *issue},
	})
	return issue, nil
}

// Update applies a partial update. A preventive tag, once present, is kept.
// Clients edit only their own issues and field workers only issues they can
// see. Status is not a free field: only staff may move it, and only between
// PENDING and IN PROGRESS.
func (s *IssueService) Update(ctx context.Context, caller *domain.Caller, id string, input IssueInput) (*domain.Issue, error) {
	if caller.Anonymous() {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	issue, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeEdit(ctx, caller, issue); err != nil {
		return nil, err
	}
	if input.Status != nil {
		st, ok := domain.ParseIssueStatus(*input.Status)
		if !ok {
			return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": *input.Status})
		}
		if st != issue.Status {
			if err := checkStatusEdit(caller, issue.Status, st); err != nil {
				return nil, err
			}
		}
	}
	if input.Title != nil && trimPtr(input.Title) == "" {
		return nil, apperrors.NewValidationError("title cannot be empty", map[string]any{"field": "title"})
	}
	if err := validateRefs(trimPtr(input.PropertyID), trimPtr(input.AssetID)); err != nil {
		return nil, err
	}

	wasPreventive := issue.HasTag(domain.PreventiveTag)
	applyIssueInput(issue, input)
	if issue.Tags == nil {
		issue.Tags = []string{}
	}
	if wasPreventive || domain.IsPreventive(issue.Title, issue.Type, issue.Category, issue.Tags) {
		issue.Tags = domain.EnsurePreventiveTag(issue.Tags)
	}

	if err := s.issues.Update(ctx, issue); err != nil {
		return nil, apperrors.MapError(err)
	}
	return issue, nil
}

// Get loads one issue with its client name resolved.
func (s *IssueService) Get(ctx context.Context, id string) (*domain.Issue, error) {
	if err := requireID("id", id); err != nil {
		return nil, err
	}
	issue, err := s.issues.GetByID(ctx, id)
	return lookup(issue, err, "issue", id)
}

// GetVisible loads one issue the caller may read, with the client name
// resolved. Staff and the filing client always may; others must reach it
// through their visible set.
func (s *IssueService) GetVisible(ctx context.Context, caller *domain.Caller, id string) (*domain.Issue, error) {
	if caller.Anonymous() {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	issue, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.Role.IsStaff() && !ownsIssue(caller, issue) {
		visible, err := s.visibility.CanSee(ctx, caller, issue)
		if err != nil {
			return nil, err
		}
		if !visible {
			return nil, apperrors.NewForbidden("issue is not visible to caller")
		}
	}
	one := []domain.Issue{*issue}
	s.visibility.AnnotateClientNames(ctx, one)
	return &one[0], nil
}

// ListVisible returns the issues the caller may see.
func (s *IssueService) ListVisible(ctx context.Context, caller *domain.Caller, propertyID string) ([]domain.Issue, error) {
	return s.visibility.Visible(ctx, caller, propertyID)
}

// ListByUser returns issues filed by userID.
func (s *IssueService) ListByUser(ctx context.Context, userID string) ([]domain.Issue, error) {
	if err := requireID("userId", userID); err != nil {
		return nil, err
	}
	issues, err := s.issues.List(ctx, repository.IssueFilter{UserID: userID})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.visibility.AnnotateClientNames(ctx, issues)
	return issues, nil
}

// ListAssigned returns issues where techID is the current assignee or
// appears anywhere in the assignee log. Technicians list only their own.
func (s *IssueService) ListAssigned(ctx context.Context, caller *domain.Caller, techID string) ([]domain.Issue, error) {
	if caller.Anonymous() {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	techID = strings.TrimSpace(techID)
	if err := requireID("techId", techID); err != nil {
		return nil, err
	}
	if !caller.Role.IsStaff() && !idutil.Equal(caller.UserID, techID) {
		return nil, apperrors.NewForbidden("cannot list another technician's issues")
	}
	issues, err := s.issues.List(ctx, repository.IssueFilter{AssignedTo: techID})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.visibility.AnnotateClientNames(ctx, issues)
	return issues, nil
}

// Delete removes an issue. Staff may delete any issue, clients only their own.
func (s *IssueService) Delete(ctx context.Context, caller *domain.Caller, id string) error {
	issue, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if caller.Anonymous() {
		return apperrors.NewUnauthorized("authentication required")
	}
	if !caller.Role.IsStaff() && !ownsIssue(caller, issue) {
		return apperrors.NewForbidden("cannot delete another user's issue")
	}
	if err := s.issues.Delete(ctx, id); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// Summary counts issues per status.
func (s *IssueService) Summary(ctx context.Context) (*IssueSummary, error) {
	counts, err := s.issues.CountByStatus(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	summary := &IssueSummary{ByStatus: counts}
	for _, n := range counts {
		summary.Total += n
	}
	return summary, nil
}

// RecordBefore starts the fix clock. Only a PENDING issue moves to
// IN PROGRESS; later states are left as they are.
func (s *IssueService) RecordBefore(ctx context.Context, id string, ev BeforeEvidence) (*domain.Issue, error) {
	if ev.FixTime <= 0 {
		return nil, apperrors.NewValidationError("fixTime must be greater than zero", map[string]any{"fixTime": ev.FixTime})
	}
	issue, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.clock.now()
	deadline := now.Add(time.Duration(ev.FixTime) * time.Minute)
	issue.FixTime = ev.FixTime
	issue.FixDeadline = &deadline
	if ev.Image != "" {
		issue.BeforeImage = ev.Image
	}
	if ev.Address != "" {
		issue.Address = ev.Address
	}
	if issue.Status == domain.IssueStatusPending {
		issue.Status = domain.IssueStatusInProgress
	}

	if err := s.issues.Update(ctx, issue); err != nil {
		return nil, apperrors.MapError(err)
	}
	return issue, nil
}

// RecordAfter closes the work. The outcome is COMPLETE, or OVERDUE when the
// fix deadline has passed.
func (s *IssueService) RecordAfter(ctx context.Context, caller *domain.Caller, id string, ev AfterEvidence) (*domain.Issue, error) {
	issue, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.clock.now()
	issue.Overdue = issue.FixDeadline != nil && now.After(*issue.FixDeadline)
	issue.Status = domain.IssueStatusComplete
	if issue.Overdue {
		issue.Status = domain.IssueStatusOverdue
	}
	if ev.Image != "" {
		issue.AfterImage = ev.Image
	}
	if ev.Feedback != "" {
		issue.Feedback = ev.Feedback
	}

	if err := s.issues.Update(ctx, issue); err != nil {
		return nil, apperrors.MapError(err)
	}

	publish(ctx, s.dispatcher, s.clock, events.Event{
		Type:    events.EventIssueCompleted,
		IssueID: issue.HexID(),
		Actor:   events.ActorFrom(caller),
		Payload: events.IssuePayload{Issue: *issue},
	})
	return issue, nil
}

// Approve accepts a pending request.
func (s *IssueService) Approve(ctx context.Context, caller *domain.Caller, id string) (*domain.Issue, error) {
	issue, err := s.reviewable(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	now := s.clock.now()
	issue.Approved = true
	issue.ApprovedAt = &now
	issue.ApprovedBy = caller.UserID
	issue.Status = domain.IssueStatusApproved

	if err := s.issues.Update(ctx, issue); err != nil {
		return nil, apperrors.MapError(err)
	}
	publish(ctx, s.dispatcher, s.clock, events.Event{
		Type:    events.EventIssueApproved,
		IssueID: issue.HexID(),
		Actor:   events.ActorFrom(caller),
		Payload: events.IssuePayload{Issue: *issue},
	})
	return issue, nil
}

// Decline rejects a pending request with an optional reason.
func (s *IssueService) Decline(ctx context.Context, caller *domain.Caller, id, reason string) (*domain.Issue, error) {
	issue, err := s.reviewable(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	now := s.clock.now()
	issue.Rejected = true
	issue.RejectedAt = &now
	issue.RejectedBy = caller.UserID
	issue.DeclineReason = strings.TrimSpace(reason)
	issue.Status = domain.IssueStatusDeclined

	if err := s.issues.Update(ctx, issue); err != nil {
		return nil, apperrors.MapError(err)
	}
	publish(ctx, s.dispatcher, s.clock, events.Event{
		Type:    events.EventIssueDeclined,
		IssueID: issue.HexID(),
		Actor:   events.ActorFrom(caller),
		Payload: events.IssueDeclinedPayload{Issue: *issue, Reason: issue.DeclineReason},
	})
	return issue, nil
}

// Resubmit sends an issue back to triage.
func (s *IssueService) Resubmit(ctx context.Context, caller *domain.Caller, id string) (*domain.Issue, error) {
	if !caller.HasRole(domain.RoleClient, domain.RoleManager, domain.RoleAdmin) {
		return nil, apperrors.NewForbidden("client, manager or admin role required")
	}
	issue, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if caller.Role == domain.RoleClient && issue.UserID != "" && !ownsIssue(caller, issue) {
		return nil, apperrors.NewForbidden("cannot resubmit another user's issue")
	}

	now := s.clock.now()
	issue.Status = domain.IssueStatusPending
	issue.Resubmitted = true
	issue.ResubmittedAt = &now
	issue.Approved = false
	issue.ApprovedAt = nil
	issue.ApprovedBy = ""
	issue.Rejected = false
	issue.RejectedAt = nil
	issue.RejectedBy = ""
	issue.DeclineReason = ""

	if err := s.issues.Update(ctx, issue); err != nil {
		return nil, apperrors.MapError(err)
	}
	publish(ctx, s.dispatcher, s.clock, events.Event{
		Type:    events.EventIssueResubmitted,
		IssueID: issue.HexID(),
		Actor:   events.ActorFrom(caller),
		Payload: events.IssuePayload{Issue: *issue},
	})
	return issue, nil
}

func (s *IssueService) reviewable(ctx context.Context, caller *domain.Caller, id string) (*domain.Issue, error) {
	if !caller.HasRole(domain.RoleAdmin, domain.RoleManager) {
		return nil, apperrors.NewForbidden("manager or admin role required")
	}
	issue, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if issue.Approved || issue.Rejected {
		return nil, apperrors.NewConflict("issue already reviewed", map[string]any{
			"approved": issue.Approved,
			"rejected": issue.Rejected,
		})
	}
	return issue, nil
}

func (s *IssueService) authorizeEdit(ctx context.Context, caller *domain.Caller, issue *domain.Issue) error {
	switch {
	case caller.Role.IsStaff():
		return nil
	case caller.Role == domain.RoleClient:
		if !ownsIssue(caller, issue) {
			return apperrors.NewForbidden("cannot edit another user's issue")
		}
		return nil
	default:
		visible, err := s.visibility.CanSee(ctx, caller, issue)
		if err != nil {
			return err
		}
		if !visible {
			return apperrors.NewForbidden("issue is not visible to caller")
		}
		return nil
	}
}

// checkStatusEdit guards direct status writes. Review and evidence outcomes
// are reachable only through their own operations, and OVERDUE is left only
// by resubmitting.
func checkStatusEdit(caller *domain.Caller, from, to domain.IssueStatus) error {
	if !caller.Role.IsStaff() {
		return apperrors.NewForbidden("status changes go through assignment, evidence or review")
	}
	if from == domain.IssueStatusOverdue {
		return apperrors.NewConflict("overdue issues can only be resubmitted", map[string]any{"status": from})
	}
	if to != domain.IssueStatusPending && to != domain.IssueStatusInProgress {
		return apperrors.NewValidationError("status must be set through its own endpoint", map[string]any{"status": to})
	}
	return nil
}

func applyIssueInput(issue *domain.Issue, in IssueInput) {
	if in.Title != nil {
		issue.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		issue.Description = *in.Description
	}
	if in.Location != nil {
		issue.Location = *in.Location
	}
	if in.Category != nil {
		issue.Category = *in.Category
	}
	if in.Type != nil {
		issue.Type = *in.Type
	}
	if in.Priority != nil {
		issue.Priority = *in.Priority
	}
	if in.Status != nil {
		if st, ok := domain.ParseIssueStatus(*in.Status); ok {
			issue.Status = st
		}
	}
	if in.Tags != nil {
		issue.Tags = append([]string{}, (*in.Tags)...)
	}
	if in.Photo != nil {
		issue.Photo = *in.Photo
	}
	if in.PropertyID != nil {
		issue.PropertyID = strings.TrimSpace(*in.PropertyID)
	}
	if in.AssetID != nil {
		issue.AssetID = strings.TrimSpace(*in.AssetID)
	}
	if in.Deadline != nil {
		issue.Deadline = in.Deadline
	}
}

func validateRefs(propertyID, assetID string) error {
	if propertyID != "" {
		if err := requireID("propertyId", propertyID); err != nil {
			return err
		}
	}
	if assetID != "" {
		if err := requireID("assetId", assetID); err != nil {
			return err
		}
	}
	return nil
}

// ownsIssue is true only on an exact normalized id match.
func ownsIssue(caller *domain.Caller, issue *domain.Issue) bool {
	if caller.Anonymous() || issue.UserID == "" {
		return false
	}
	return idutil.Equal(issue.UserID, caller.UserID)
}
