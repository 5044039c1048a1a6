package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

// PropertyFilter narrows property listings.
type PropertyFilter struct {
	OwnerID string
	IDs     []string
}

// PropertyRepository manages properties.
type PropertyRepository interface {
	Create(ctx context.Context, property *domain.Property) error
	Update(ctx context.Context, property *domain.Property) error
	GetByID(ctx context.Context, id string) (*domain.Property, error)
	List(ctx context.Context, filter PropertyFilter) ([]domain.Property, error)
	AddPhotos(ctx context.Context, id string, photos []string) error
	Delete(ctx context.Context, id string) error
}

type propertyRepository struct {
	store[domain.Property]
}

// NewPropertyRepository constructs repository.
func NewPropertyRepository(db *mongo.Database, logger *zap.Logger) PropertyRepository {
	return &propertyRepository{store: newStore[domain.Property](db, "properties", logger)}
}

func (r *propertyRepository) Create(ctx context.Context, property *domain.Property) error {
	stampNew(&property.ID, &property.CreatedAt, &property.UpdatedAt)
	return r.insert(ctx, property)
}

func (r *propertyRepository) Update(ctx context.Context, property *domain.Property) error {
	property.UpdatedAt = time.Now().UTC()
	update, err := replaceFields(property, []string{"createdAt", "photos"}, "userId", "clientId")
	if err != nil {
		return err
	}
	return r.updateByID(ctx, property.ID, update)
}

func (r *propertyRepository) GetByID(ctx context.Context, id string) (*domain.Property, error) {
	return r.getByID(ctx, id)
}

// List returns properties owned by OwnerID (as userId or clientId) and/or
// restricted to IDs. An empty filter lists everything.
func (r *propertyRepository) List(ctx context.Context, filter PropertyFilter) ([]domain.Property, error) {
	query := bson.M{}
	if filter.OwnerID != "" {
		vals := refValues(filter.OwnerID)
		query["$or"] = bson.A{
			bson.M{"userId": bson.M{"$in": vals}},
			bson.M{"clientId": bson.M{"$in": vals}},
		}
	}
	if len(filter.IDs) > 0 {
		query["_id"] = bson.M{"$in": objectIDs(filter.IDs)}
	}
	return r.findAll(ctx, query, newestFirst("createdAt", 0))
}

func (r *propertyRepository) AddPhotos(ctx context.Context, id string, photos []string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	return r.updateByID(ctx, oid, bson.M{
		"$push": bson.M{"photos": bson.M{"$each": photos}},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	})
}

func (r *propertyRepository) Delete(ctx context.Context, id string) error {
	return r.deleteByID(ctx, id)
}
