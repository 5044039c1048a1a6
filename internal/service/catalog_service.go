package service

import (
	"context"
	"strings"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/repository"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

// TemplateService manages reusable maintenance templates.
type TemplateService struct {
	templates repository.TemplateRepository
}

// TemplateInput carries create and partial-update fields.
type TemplateInput struct {
	Name        *string
	Description *string
	Frequency   *string
	Interval    *int
	Checklist   *[]string
}

// NewTemplateService constructs the service.
func NewTemplateService(templates repository.TemplateRepository) *TemplateService {
	return &TemplateService{templates: templates}
}

func (s *TemplateService) Create(ctx context.Context, input TemplateInput) (*domain.MaintenanceTemplate, error) {
	name := trimPtr(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
	}
	tmpl := &domain.MaintenanceTemplate{Name: name, Checklist: domain.StringList{}}
	applyTemplateInput(tmpl, input)
	if err := s.templates.Create(ctx, tmpl); err != nil {
		return nil, apperrors.MapError(err)
	}
	return tmpl, nil
}

func (s *TemplateService) List(ctx context.Context) ([]domain.MaintenanceTemplate, error) {
	items, err := s.templates.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return items, nil
}

func (s *TemplateService) Get(ctx context.Context, id string) (*domain.MaintenanceTemplate, error) {
	if err := requireID("id", id); err != nil {
		return nil, err
	}
	tmpl, err := s.templates.GetByID(ctx, id)
	return lookup(tmpl, err, "maintenance template", id)
}

func (s *TemplateService) Update(ctx context.Context, id string, input TemplateInput) (*domain.MaintenanceTemplate, error) {
	tmpl, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Name != nil && trimPtr(input.Name) == "" {
		return nil, apperrors.NewValidationError("name cannot be empty", map[string]any{"field": "name"})
	}
	applyTemplateInput(tmpl, input)
	if err := s.templates.Update(ctx, tmpl); err != nil {
		return nil, apperrors.MapError(err)
	}
	return tmpl, nil
}

func (s *TemplateService) Delete(ctx context.Context, id string) error {
	if err := requireID("id", id); err != nil {
		return err
	}
	if err := s.templates.Delete(ctx, id); err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewNotFound("maintenance template", map[string]any{"id": id})
		}
		return apperrors.MapError(err)
	}
	return nil
}

func applyTemplateInput(t *domain.MaintenanceTemplate, in TemplateInput) {
	if in.Name != nil {
		t.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Frequency != nil {
		t.Frequency = strings.TrimSpace(*in.Frequency)
	}
	if in.Interval != nil {
		t.Interval = *in.Interval
	}
	if in.Checklist != nil {
		t.Checklist = append(domain.StringList{}, (*in.Checklist)...)
	}
}

// FeedbackService stores client feedback.
type FeedbackService struct {
	feedback repository.FeedbackRepository
	clock    Clock
}

// FeedbackInput describes a new feedback entry.
type FeedbackInput struct {
	ClientID string
	IssueID  string
	Message  string
	Rating   int
}

// NewFeedbackService constructs the service.
func NewFeedbackService(feedback repository.FeedbackRepository, clock Clock) *FeedbackService {
	return &FeedbackService{feedback: feedback, clock: clock}
}

// Create stores feedback. The caller is the client unless one is given.
func (s *FeedbackService) Create(ctx context.Context, caller *domain.Caller, input FeedbackInput) (*domain.Feedback, error) {
	message := strings.TrimSpace(input.Message)
	if message == "" {
		return nil, apperrors.NewValidationError("message is required", map[string]any{"field": "message"})
	}
	if input.Rating < 0 || input.Rating > 5 {
		return nil, apperrors.NewValidationError("rating must be between 0 and 5", map[string]any{"rating": input.Rating})
	}
	f := &domain.Feedback{
		ClientID: strings.TrimSpace(input.ClientID),
		IssueID:  strings.TrimSpace(input.IssueID),
		Message:  message,
		Rating:   input.Rating,
		Date:     s.clock.now(),
	}
	if f.ClientID == "" && !caller.Anonymous() {
		f.ClientID = caller.UserID
	}
	if err := s.feedback.Create(ctx, f); err != nil {
		return nil, apperrors.MapError(err)
	}
	return f, nil
}

// List returns all feedback, newest first.
func (s *FeedbackService) List(ctx context.Context) ([]domain.Feedback, error) {
	items, err := s.feedback.List(ctx, 0)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return items, nil
}

// ListForClient returns one client's feedback, newest first.
func (s *FeedbackService) ListForClient(ctx context.Context, clientID string) ([]domain.Feedback, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, apperrors.NewValidationError("userId is required", nil)
	}
	items, err := s.feedback.ListByClient(ctx, clientID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return items, nil
}
