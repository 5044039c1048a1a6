package service

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/repository"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

// TechnicianService manages external technicians and property staff.
type TechnicianService struct {
	technicians repository.TechnicianRepository
	internals   repository.InternalTechnicianRepository
	users       repository.UserRepository
	linked      *LinkedAccountResolver
	logger      *zap.Logger
}

// TechnicianDependencies bundles repositories for the technician service.
type TechnicianDependencies struct {
	TechnicianRepo         repository.TechnicianRepository
	InternalTechnicianRepo repository.InternalTechnicianRepository
	UserRepo               repository.UserRepository
	Logger                 *zap.Logger
}

// TechnicianInput carries create and partial-update fields for both
// technician kinds. PropertyID applies to internal technicians only.
type TechnicianInput struct {
	Name       *string
	Email      *string
	Phone      *string
	Specialty  *string
	Status     *string
	PropertyID *string
}

// AssignableTechnician is one entry in the assignment picker.
type AssignableTechnician struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Email     string              `json:"email,omitempty"`
	Phone     string              `json:"phone,omitempty"`
	Specialty string              `json:"specialty,omitempty"`
	Kind      domain.AssigneeKind `json:"kind"`
}

// NewTechnicianService constructs the service.
func NewTechnicianService(deps TechnicianDependencies) *TechnicianService {
	return &TechnicianService{
		technicians: deps.TechnicianRepo,
		internals:   deps.InternalTechnicianRepo,
		users:       deps.UserRepo,
		linked:      NewLinkedAccountResolver(deps.UserRepo),
		logger:      nopLogger(deps.Logger),
	}
}

// CreateExternal stores an external technician. Status defaults to active.
func (s *TechnicianService) CreateExternal(ctx context.Context, input TechnicianInput) (*domain.Technician, error) {
	name := trimPtr(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
	}
	tech := &domain.Technician{Name: name, Status: domain.TechnicianStatusActive}
	applyTechnicianInput(&tech.Name, &tech.Email, &tech.Phone, &tech.Specialty, &tech.Status, input)
	if err := s.technicians.Create(ctx, tech); err != nil {
		return nil, apperrors.MapError(err)
	}
	return tech, nil
}

// ListExternal returns every external technician.
func (s *TechnicianService) ListExternal(ctx context.Context) ([]domain.Technician, error) {
	techs, err := s.technicians.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return techs, nil
}

// GetExternal loads one external technician.
func (s *TechnicianService) GetExternal(ctx context.Context, id string) (*domain.Technician, error) {
	if err := requireID("id", id); err != nil {
		return nil, err
	}
	tech, err := s.technicians.GetByID(ctx, id)
	return lookup(tech, err, "technician", id)
}

// UpdateExternal applies a partial update.
func (s *TechnicianService) UpdateExternal(ctx context.Context, id string, input TechnicianInput) (*domain.Technician, error) {
	tech, err := s.GetExternal(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Name != nil && trimPtr(input.Name) == "" {
		return nil, apperrors.NewValidationError("name cannot be empty", map[string]any{"field": "name"})
	}
	applyTechnicianInput(&tech.Name, &tech.Email, &tech.Phone, &tech.Specialty, &tech.Status, input)
	if err := s.technicians.Update(ctx, tech); err != nil {
		return nil, apperrors.MapError(err)
	}
	return tech, nil
}

// DeleteExternal removes an external technician.
func (s *TechnicianService) DeleteExternal(ctx context.Context, id string) error {
	if err := requireID("id", id); err != nil {
		return err
	}
	if err := s.technicians.Delete(ctx, id); err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewNotFound("technician", map[string]any{"id": id})
		}
		return apperrors.MapError(err)
	}
	return nil
}

// ForAssignment lists active technician accounts and active external
// technicians, sorted by name.
func (s *TechnicianService) ForAssignment(ctx context.Context) ([]AssignableTechnician, error) {
	users, err := s.users.List(ctx, repository.UserFilter{
		Roles:  []domain.Role{domain.RoleTechnician, domain.RoleInternal},
		Status: domain.UserStatusActive,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	external, err := s.technicians.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	out := make([]AssignableTechnician, 0, len(users)+len(external))
	for _, u := range users {
		out = append(out, AssignableTechnician{
			ID: u.ID.Hex(), Name: u.Name, Email: u.Email, Phone: u.Phone, Kind: domain.AssigneeKindUser,
		})
	}
	for _, t := range external {
		if t.Status != "" && !strings.EqualFold(t.Status, domain.TechnicianStatusActive) {
			continue
		}
		out = append(out, AssignableTechnician{
			ID: t.ID.Hex(), Name: t.Name, Email: t.Email, Phone: t.Phone, Specialty: t.Specialty, Kind: domain.AssigneeKindExternal,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

// CreateInternal stores a property technician.
func (s *TechnicianService) CreateInternal(ctx context.Context, input TechnicianInput) (*domain.InternalTechnician, error) {
	name := trimPtr(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
	}
	if err := validateRefs(trimPtr(input.PropertyID), ""); err != nil {
		return nil, err
	}
	tech := &domain.InternalTechnician{Name: name, Status: domain.TechnicianStatusActive}
	applyTechnicianInput(&tech.Name, &tech.Email, &tech.Phone, &tech.Specialty, &tech.Status, input)
	if input.PropertyID != nil {
		tech.PropertyID = trimPtr(input.PropertyID)
	}
	if err := s.internals.Create(ctx, tech); err != nil {
		return nil, apperrors.MapError(err)
	}
	if linked, ok, err := s.linked.ResolveID(ctx, tech); err == nil && ok {
		tech.LinkedUserID = linked
	}
	return tech, nil
}

// ListInternal returns property technicians with their linked accounts.
func (s *TechnicianService) ListInternal(ctx context.Context, filter repository.InternalTechnicianFilter) ([]domain.InternalTechnician, error) {
	if filter.PropertyID != "" {
		if err := requireID("propertyId", filter.PropertyID); err != nil {
			return nil, err
		}
	}
	techs, err := s.internals.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.linked.Annotate(ctx, techs)
	return techs, nil
}

// GetInternal loads one property technician.
func (s *TechnicianService) GetInternal(ctx context.Context, id string) (*domain.InternalTechnician, error) {
	if err := requireID("id", id); err != nil {
		return nil, err
	}
	tech, err := s.internals.GetByID(ctx, id)
	if tech, err = lookup(tech, err, "internal technician", id); err != nil {
		return nil, err
	}
	if linked, ok, err := s.linked.ResolveID(ctx, tech); err == nil && ok {
		tech.LinkedUserID = linked
	}
	return tech, nil
}

// UpdateInternal applies a partial update.
func (s *TechnicianService) UpdateInternal(ctx context.Context, id string, input TechnicianInput) (*domain.InternalTechnician, error) {
	tech, err := s.GetInternal(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Name != nil && trimPtr(input.Name) == "" {
		return nil, apperrors.NewValidationError("name cannot be empty", map[string]any{"field": "name"})
	}
	if err := validateRefs(trimPtr(input.PropertyID), ""); err != nil {
		return nil, err
	}
	applyTechnicianInput(&tech.Name, &tech.Email, &tech.Phone, &tech.Specialty, &tech.Status, input)
	if input.PropertyID != nil {
		tech.PropertyID = trimPtr(input.PropertyID)
	}
	if err := s.internals.Update(ctx, tech); err != nil {
		return nil, apperrors.MapError(err)
	}
	return tech, nil
}

// DeleteInternal removes a property technician.
func (s *TechnicianService) DeleteInternal(ctx context.Context, id string) error {
	if err := requireID("id", id); err != nil {
		return err
	}
	if err := s.internals.Delete(ctx, id); err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewNotFound("internal technician", map[string]any{"id": id})
		}
		return apperrors.MapError(err)
	}
	return nil
}

func applyTechnicianInput(name, email, phone, specialty, status *string, in TechnicianInput) {
	if in.Name != nil {
		*name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		*email = strings.TrimSpace(*in.Email)
	}
	if in.Phone != nil {
		*phone = strings.TrimSpace(*in.Phone)
	}
	if in.Specialty != nil {
		*specialty = strings.TrimSpace(*in.Specialty)
	}
	if in.Status != nil && strings.TrimSpace(*in.Status) != "" {
		*status = strings.TrimSpace(*in.Status)
	}
}
