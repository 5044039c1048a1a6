package service

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/repository"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

// PropertyService manages properties.
type PropertyService struct {
	properties repository.PropertyRepository
	assets     repository.AssetRepository
	internals  repository.InternalTechnicianRepository
	linked     *LinkedAccountResolver
	logger     *zap.Logger
}

// PropertyDependencies bundles repositories for the property service.
type PropertyDependencies struct {
	PropertyRepo           repository.PropertyRepository
	AssetRepo              repository.AssetRepository
	InternalTechnicianRepo repository.InternalTechnicianRepository
	UserRepo               repository.UserRepository
	Logger                 *zap.Logger
}

// PropertyInput carries create and partial-update fields.
type PropertyInput struct {
	Name     *string
	Address  *string
	Type     *string
	UserID   *string
	ClientID *string
}

// PropertyDetail is a property with its assets and staff.
type PropertyDetail struct {
	domain.Property
	Assets              []domain.Asset              `json:"assets"`
	InternalTechnicians []domain.InternalTechnician `json:"internalTechnicians"`
}

// NewPropertyService constructs the service.
func NewPropertyService(deps PropertyDependencies) *PropertyService {
	return &PropertyService{
		properties: deps.PropertyRepo,
		assets:     deps.AssetRepo,
		internals:  deps.InternalTechnicianRepo,
		linked:     NewLinkedAccountResolver(deps.UserRepo),
		logger:     nopLogger(deps.Logger),
	}
}

// Create stores a property owned by the caller unless an owner is given.
func (s *PropertyService) Create(ctx context.Context, caller *domain.Caller, input PropertyInput) (*domain.Property, error) {
	name := trimPtr(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
	}
	property := &domain.Property{Name: name, Photos: []string{}}
	applyPropertyInput(property, input)
	if property.UserID == "" && !caller.Anonymous() && caller.Role == domain.RoleClient {
		property.UserID = caller.UserID
	}
	if err := s.properties.Create(ctx, property); err != nil {
		return nil, apperrors.MapError(err)
	}
	return property, nil
}

// List returns properties, narrowed to one owner when ownerID is set.
func (s *PropertyService) List(ctx context.Context, ownerID string) ([]domain.Property, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID != "" {
		if err := requireID("ownerId", ownerID); err != nil {
			return nil, err
		}
	}
	properties, err := s.properties.List(ctx, repository.PropertyFilter{OwnerID: ownerID})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return properties, nil
}

// Get returns a property with its assets and internal technicians.
func (s *PropertyService) Get(ctx context.Context, id string) (*PropertyDetail, error) {
	property, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &PropertyDetail{Property: *property}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		assets, err := s.assets.List(gctx, repository.AssetFilter{PropertyIDs: []string{id}})
		detail.Assets = assets
		return err
	})
	g.Go(func() error {
		techs, err := s.internals.List(gctx, repository.InternalTechnicianFilter{PropertyID: id})
		if err == nil {
			s.linked.Annotate(gctx, techs)
		}
		detail.InternalTechnicians = techs
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperrors.MapError(err)
	}
	return detail, nil
}

// Update applies a partial update.
func (s *PropertyService) Update(ctx context.Context, id string, input PropertyInput) (*domain.Property, error) {
	property, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Name != nil && trimPtr(input.Name) == "" {
		return nil, apperrors.NewValidationError("name cannot be empty", map[string]any{"field": "name"})
	}
	applyPropertyInput(property, input)
	if err := s.properties.Update(ctx, property); err != nil {
		return nil, apperrors.MapError(err)
	}
	return property, nil
}

// Delete removes a property. Its assets and staff are left in place.
func (s *PropertyService) Delete(ctx context.Context, id string) error {
	if err := requireID("id", id); err != nil {
		return err
	}
	if err := s.properties.Delete(ctx, id); err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewNotFound("property", map[string]any{"id": id})
		}
		return apperrors.MapError(err)
	}
	return nil
}

// AddPhotos appends stored photo paths.
func (s *PropertyService) AddPhotos(ctx context.Context, id string, photos []string) (*domain.Property, error) {
	if len(photos) == 0 {
		return nil, apperrors.NewValidationError("no photos uploaded", map[string]any{"field": "photos"})
	}
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	if err := s.properties.AddPhotos(ctx, id, photos); err != nil {
		return nil, apperrors.MapError(err)
	}
	return s.load(ctx, id)
}

func (s *PropertyService) load(ctx context.Context, id string) (*domain.Property, error) {
	if err := requireID("id", id); err != nil {
		return nil, err
	}
	property, err := s.properties.GetByID(ctx, id)
	return lookup(property, err, "property", id)
}

func applyPropertyInput(p *domain.Property, in PropertyInput) {
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Address != nil {
		p.Address = *in.Address
	}
	if in.Type != nil {
		p.Type = *in.Type
	}
	if in.UserID != nil {
		p.UserID = strings.TrimSpace(*in.UserID)
	}
	if in.ClientID != nil {
		p.ClientID = strings.TrimSpace(*in.ClientID)
	}
}
