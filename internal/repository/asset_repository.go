package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

// AssetFilter narrows asset listings.
type AssetFilter struct {
	PropertyIDs []string
	Type        string
	Status      string
}

// AssetRepository manages assets and their spare parts and movement log.
type AssetRepository interface {
	Create(ctx context.Context, asset *domain.Asset) error
	Update(ctx context.Context, asset *domain.Asset) error
	GetByID(ctx context.Context, id string) (*domain.Asset, error)
	List(ctx context.Context, filter AssetFilter) ([]domain.Asset, error)
	Count(ctx context.Context, filter AssetFilter) (int64, error)
	Delete(ctx context.Context, id string) error

	AddSparePart(ctx context.Context, part *domain.SparePart) error
	ListSpareParts(ctx context.Context, assetID string) ([]domain.SparePart, error)
	AddMovement(ctx context.Context, movement *domain.AssetMovement) error
	ListMovements(ctx context.Context, assetID string) ([]domain.AssetMovement, error)
}

type assetRepository struct {
	store[domain.Asset]
	parts     store[domain.SparePart]
	movements store[domain.AssetMovement]
}

// NewAssetRepository constructs repository.
func NewAssetRepository(db *mongo.Database, logger *zap.Logger) AssetRepository {
	return &assetRepository{
		store:     newStore[domain.Asset](db, "assets", logger),
		parts:     newStore[domain.SparePart](db, "spare_parts", logger),
		movements: newStore[domain.AssetMovement](db, "asset_movements", logger),
	}
}

func (r *assetRepository) Create(ctx context.Context, asset *domain.Asset) error {
	stampNew(&asset.ID, &asset.CreatedAt, &asset.UpdatedAt)
	return r.insert(ctx, asset)
}

func (r *assetRepository) Update(ctx context.Context, asset *domain.Asset) error {
	asset.UpdatedAt = time.Now().UTC()
	update, err := replaceFields(asset, []string{"createdAt"}, "propertyId")
	if err != nil {
		return err
	}
	return r.updateByID(ctx, asset.ID, update)
}

func (r *assetRepository) GetByID(ctx context.Context, id string) (*domain.Asset, error) {
	return r.getByID(ctx, id)
}

func (r *assetRepository) List(ctx context.Context, filter AssetFilter) ([]domain.Asset, error) {
	return r.findAll(ctx, assetQuery(filter), newestFirst("createdAt", 0))
}

func (r *assetRepository) Count(ctx context.Context, filter AssetFilter) (int64, error) {
	return r.count(ctx, assetQuery(filter))
}

func (r *assetRepository) Delete(ctx context.Context, id string) error {
	return r.deleteByID(ctx, id)
}

func (r *assetRepository) AddSparePart(ctx context.Context, part *domain.SparePart) error {
	stampNew(&part.ID, &part.CreatedAt, nil)
	return r.parts.insert(ctx, part)
}

func (r *assetRepository) ListSpareParts(ctx context.Context, assetID string) ([]domain.SparePart, error) {
	return r.parts.findAll(ctx, bson.M{"assetId": refIn(assetID)}, newestFirst("createdAt", 0))
}

func (r *assetRepository) AddMovement(ctx context.Context, movement *domain.AssetMovement) error {
	stampNew(&movement.ID, &movement.Timestamp, nil)
	return r.movements.insert(ctx, movement)
}

func (r *assetRepository) ListMovements(ctx context.Context, assetID string) ([]domain.AssetMovement, error) {
	return r.movements.findAll(ctx, bson.M{"assetId": refIn(assetID)}, newestFirst("timestamp", 0))
}

func assetQuery(filter AssetFilter) bson.M {
	query := bson.M{}
	if len(filter.PropertyIDs) > 0 {
		query["propertyId"] = refIn(filter.PropertyIDs...)
	}
	if filter.Type != "" {
		query["type"] = filter.Type
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	return query
}
