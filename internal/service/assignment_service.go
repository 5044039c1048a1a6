package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/events"
	"github.com/spec-kit/maintenance-service/internal/repository"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

// AssignmentService hands issues to technicians.
type AssignmentService struct {
	issues      repository.IssueRepository
	users       repository.UserRepository
	technicians repository.TechnicianRepository
	internals   repository.InternalTechnicianRepository
	linked      *LinkedAccountResolver
	dispatcher  events.Dispatcher
	clock       Clock
	logger      *zap.Logger
}

// AssignmentDependencies bundles repositories.
type AssignmentDependencies struct {
	IssueRepo              repository.IssueRepository
	UserRepo               repository.UserRepository
	TechnicianRepo         repository.TechnicianRepository
	InternalTechnicianRepo repository.InternalTechnicianRepository
	Dispatcher             events.Dispatcher
	Clock                  Clock
	Logger                 *zap.Logger
}

// AssignInput describes an assignment to a user or external technician.
type AssignInput struct {
	TechnicianID string
	Priority     string
	Status       string
	Deadline     *time.Time
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	return &AssignmentService{
		issues:      deps.IssueRepo,
		users:       deps.UserRepo,
		technicians: deps.TechnicianRepo,
		internals:   deps.InternalTechnicianRepo,
		linked:      NewLinkedAccountResolver(deps.UserRepo),
		dispatcher:  deps.Dispatcher,
		clock:       deps.Clock,
		logger:      nopLogger(deps.Logger),
	}
}

// AssignToTech assigns an issue to a technician account or an external
// technician record. Staff only.
func (s *AssignmentService) AssignToTech(ctx context.Context, caller *domain.Caller, issueID string, input AssignInput) (*domain.Issue, error) {
	if !caller.HasRole(domain.RoleAdmin, domain.RoleManager) {
		return nil, apperrors.NewForbidden("manager or admin role required")
	}
	if err := requireID("id", issueID); err != nil {
		return nil, err
	}
	techID := strings.TrimSpace(input.TechnicianID)
	if err := requireID("technicianId", techID); err != nil {
		return nil, err
	}
	var status domain.IssueStatus
	if strings.TrimSpace(input.Status) != "" {
		st, ok := domain.ParseIssueStatus(input.Status)
		if !ok {
			return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": input.Status})
		}
		status = st
	}

	issue, err := s.issues.GetByID(ctx, issueID)
	if issue, err = lookup(issue, err, "issue", issueID); err != nil {
		return nil, err
	}

	snapshot, linkedUserID, err := s.resolveTechnician(ctx, techID)
	if err != nil {
		return nil, err
	}
	snapshot.AssignedBy = caller.UserID
	snapshot.AssignedAt = s.clock.now()

	assignment := repository.IssueAssignment{
		AssignedTo: techID,
		Status:     status,
		Priority:   strings.TrimSpace(input.Priority),
		Deadline:   input.Deadline,
	}
	if err := s.issues.Assign(ctx, issueID, assignment, snapshot); err != nil {
		return nil, apperrors.MapError(err)
	}
	applyAssignment(issue, assignment, snapshot)

	publish(ctx, s.dispatcher, s.clock, events.Event{
		Type:    events.EventIssueAssigned,
		IssueID: issue.HexID(),
		Actor:   events.ActorFrom(caller),
		Payload: events.IssueAssignedPayload{Issue: *issue, Assignee: snapshot, LinkedUserID: linkedUserID},
	})
	return issue, nil
}

// AssignToInternal assigns an issue to a property's internal technician.
// The issue is tracked against the technician's linked account when one
// exists, otherwise against the technician record itself.
func (s *AssignmentService) AssignToInternal(ctx context.Context, caller *domain.Caller, issueID, internalTechID string) (*domain.Issue, error) {
	if caller.Anonymous() {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if err := requireID("id", issueID); err != nil {
		return nil, err
	}
	if err := requireID("internalTechnicianId", internalTechID); err != nil {
		return nil, err
	}

	issue, err := s.issues.GetByID(ctx, issueID)
	if issue, err = lookup(issue, err, "issue", issueID); err != nil {
		return nil, err
	}
	if caller.Role == domain.RoleClient && issue.UserID != "" && !ownsIssue(caller, issue) {
		return nil, apperrors.NewForbidden("cannot assign another user's issue")
	}

	tech, err := s.internals.GetByID(ctx, internalTechID)
	if tech, err = lookup(tech, err, "internal technician", internalTechID); err != nil {
		return nil, err
	}

	assignedTo := tech.ID.Hex()
	linkedUserID, ok, err := s.linked.ResolveID(ctx, tech)
	if err != nil {
		s.logger.Warn("linked account lookup failed", zap.String("internal_technician_id", assignedTo), zap.Error(err))
	} else if ok {
		assignedTo = linkedUserID
	}

	snapshot := domain.Assignee{
		ID:         assignedTo,
		Name:       tech.Name,
		Email:      tech.Email,
		Kind:       domain.AssigneeKindInternal,
		AssignedBy: caller.UserID,
		AssignedAt: s.clock.now(),
	}
	assignment := repository.IssueAssignment{
		AssignedTo:           assignedTo,
		InternalTechnicianID: tech.ID.Hex(),
		Status:               domain.IssueStatusInProgress,
	}
	if err := s.issues.Assign(ctx, issueID, assignment, snapshot); err != nil {
		return nil, apperrors.MapError(err)
	}
	applyAssignment(issue, assignment, snapshot)

	publish(ctx, s.dispatcher, s.clock, events.Event{
		Type:    events.EventIssueAssigned,
		IssueID: issue.HexID(),
		Actor:   events.ActorFrom(caller),
		Payload: events.IssueAssignedPayload{Issue: *issue, Assignee: snapshot, LinkedUserID: linkedUserID},
	})
	return issue, nil
}

// resolveTechnician looks the id up as a technician account first, then as
// an external technician record.
func (s *AssignmentService) resolveTechnician(ctx context.Context, id string) (domain.Assignee, string, error) {
	user, err := s.users.GetByID(ctx, id)
	switch {
	case err == nil && user.Role.IsTechnician():
		return domain.Assignee{ID: id, Name: user.Name, Email: user.Email, Kind: domain.AssigneeKindUser}, id, nil
	case err != nil && !apperrors.IsNotFound(err):
		return domain.Assignee{}, "", apperrors.MapError(err)
	}

	tech, err := s.technicians.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return domain.Assignee{}, "", apperrors.NewNotFound("technician", map[string]any{"id": id})
		}
		return domain.Assignee{}, "", apperrors.MapError(err)
	}
	return domain.Assignee{ID: id, Name: tech.Name, Email: tech.Email, Kind: domain.AssigneeKindExternal}, "", nil
}

func applyAssignment(issue *domain.Issue, a repository.IssueAssignment, snapshot domain.Assignee) {
	issue.AssignedTo = a.AssignedTo
	if a.InternalTechnicianID != "" {
		issue.InternalTechnicianID = a.InternalTechnicianID
	}
	if a.Status != "" {
		issue.Status = a.Status
	}
	if a.Priority != "" {
		issue.Priority = a.Priority
	}
	if a.Deadline != nil {
		issue.Deadline = a.Deadline
	}
	issue.Assignees = append(issue.Assignees, snapshot)
	issue.UpdatedAt = snapshot.AssignedAt
}
