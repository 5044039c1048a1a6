package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/repository"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

// AssetService manages assets, their spare parts and their movement log.
type AssetService struct {
	assets repository.AssetRepository
	clock  Clock
	logger *zap.Logger
}

// AssetDependencies bundles collaborators for the asset service.
type AssetDependencies struct {
	AssetRepo repository.AssetRepository
	Clock     Clock
	Logger    *zap.Logger
}

// AssetInput carries create and update fields. Building and Blocks are
// folded into the location. On update, Blocks are unioned with the stored
// ones unless ReplaceBlocks is set.
type AssetInput struct {
	Name          *string
	Type          *string
	SerialNumber  *string
	Status        *string
	Quantity      *int
	PropertyID    *string
	Building      *string
	Blocks        []string
	RemoveBlocks  []string
	ReplaceBlocks bool
}

// MoveInput describes an asset relocation.
type MoveInput struct {
	From  string
	To    string
	Notes string
}

// SparePartInput describes stock added to an asset.
type SparePartInput struct {
	Name       string
	PartNumber string
	Quantity   int
}

// NewAssetService constructs the service.
func NewAssetService(deps AssetDependencies) *AssetService {
	return &AssetService{assets: deps.AssetRepo, clock: deps.Clock, logger: nopLogger(deps.Logger)}
}

// Create stores an asset. Quantity defaults to 1.
func (s *AssetService) Create(ctx context.Context, input AssetInput) (*domain.Asset, error) {
	name := trimPtr(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
	}
	if err := validateRefs(trimPtr(input.PropertyID), ""); err != nil {
		return nil, err
	}
	asset := &domain.Asset{Name: name, Quantity: 1}
	applyAssetInput(asset, input)
	asset.Location.Blocks = domain.MergeBlocks(nil, input.Blocks, input.RemoveBlocks, true)

	if err := s.assets.Create(ctx, asset); err != nil {
		return nil, apperrors.MapError(err)
	}
	return asset, nil
}

// List returns assets matching filter.
func (s *AssetService) List(ctx context.Context, filter repository.AssetFilter) ([]domain.Asset, error) {
	assets, err := s.assets.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return assets, nil
}

// Count counts assets matching filter.
func (s *AssetService) Count(ctx context.Context, filter repository.AssetFilter) (int64, error) {
	n, err := s.assets.Count(ctx, filter)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	return n, nil
}

// Get loads one asset.
func (s *AssetService) Get(ctx context.Context, id string) (*domain.Asset, error) {
	if err := requireID("id", id); err != nil {
		return nil, err
	}
	asset, err := s.assets.GetByID(ctx, id)
	return lookup(asset, err, "asset", id)
}

// Update applies a partial update, merging location blocks.
func (s *AssetService) Update(ctx context.Context, id string, input AssetInput) (*domain.Asset, error) {
	asset, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Name != nil && trimPtr(input.Name) == "" {
		return nil, apperrors.NewValidationError("name cannot be empty", map[string]any{"field": "name"})
	}
	if err := validateRefs(trimPtr(input.PropertyID), ""); err != nil {
		return nil, err
	}
	applyAssetInput(asset, input)
	if input.Blocks != nil || input.RemoveBlocks != nil || input.ReplaceBlocks {
		asset.Location.Blocks = domain.MergeBlocks(asset.Location.Blocks, input.Blocks, input.RemoveBlocks, input.ReplaceBlocks)
	}

	if err := s.assets.Update(ctx, asset); err != nil {
		return nil, apperrors.MapError(err)
	}
	return asset, nil
}

// Delete removes an asset.
func (s *AssetService) Delete(ctx context.Context, id string) error {
	if err := requireID("id", id); err != nil {
		return err
	}
	if err := s.assets.Delete(ctx, id); err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewNotFound("asset", map[string]any{"id": id})
		}
		return apperrors.MapError(err)
	}
	return nil
}

// Move relocates an asset to another building and logs the movement.
func (s *AssetService) Move(ctx context.Context, caller *domain.Caller, id string, input MoveInput) (*domain.AssetMovement, error) {
	to := strings.TrimSpace(input.To)
	if to == "" {
		return nil, apperrors.NewValidationError("to is required", map[string]any{"field": "to"})
	}
	asset, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	from := strings.TrimSpace(input.From)
	if from == "" {
		from = asset.Location.Building
	}

	movement := &domain.AssetMovement{
		AssetID:   asset.ID.Hex(),
		From:      from,
		To:        to,
		Notes:     input.Notes,
		Timestamp: s.clock.now(),
	}
	if !caller.Anonymous() {
		movement.MovedBy = caller.UserID
	}
	if err := s.assets.AddMovement(ctx, movement); err != nil {
		return nil, apperrors.MapError(err)
	}

	asset.Location.Building = to
	if err := s.assets.Update(ctx, asset); err != nil {
		s.logger.Warn("asset location update failed", zap.String("asset_id", movement.AssetID), zap.Error(err))
	}
	return movement, nil
}

// Movements lists the movement log for an asset, newest first.
func (s *AssetService) Movements(ctx context.Context, id string) ([]domain.AssetMovement, error) {
	if err := requireID("id", id); err != nil {
		return nil, err
	}
	movements, err := s.assets.ListMovements(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return movements, nil
}

// AddSparePart records stock against an existing asset.
func (s *AssetService) AddSparePart(ctx context.Context, id string, input SparePartInput) (*domain.SparePart, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
	}
	asset, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	quantity := input.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	part := &domain.SparePart{
		AssetID:    asset.ID.Hex(),
		Name:       name,
		PartNumber: strings.TrimSpace(input.PartNumber),
		Quantity:   quantity,
	}
	if err := s.assets.AddSparePart(ctx, part); err != nil {
		return nil, apperrors.MapError(err)
	}
	return part, nil
}

// SpareParts lists spare parts for an asset.
func (s *AssetService) SpareParts(ctx context.Context, id string) ([]domain.SparePart, error) {
	if err := requireID("id", id); err != nil {
		return nil, err
	}
	parts, err := s.assets.ListSpareParts(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return parts, nil
}

func applyAssetInput(a *domain.Asset, in AssetInput) {
	if in.Name != nil {
		a.Name = strings.TrimSpace(*in.Name)
	}
	if in.Type != nil {
		a.Type = *in.Type
	}
	if in.SerialNumber != nil {
		a.SerialNumber = strings.TrimSpace(*in.SerialNumber)
	}
	if in.Status != nil {
		a.Status = *in.Status
	}
	if in.Quantity != nil {
		a.Quantity = *in.Quantity
		if a.Quantity < 1 {
			a.Quantity = 1
		}
	}
	if in.PropertyID != nil {
		a.PropertyID = strings.TrimSpace(*in.PropertyID)
	}
	if in.Building != nil && strings.TrimSpace(*in.Building) != "" {
		a.Location.Building = strings.TrimSpace(*in.Building)
	}
}
