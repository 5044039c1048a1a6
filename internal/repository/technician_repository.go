package repository

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

// InternalTechnicianFilter narrows internal technician listings.
type InternalTechnicianFilter struct {
	PropertyID string
	Status     string
	IDs        []string
}

// InternalTechnicianRepository manages property staff.
type InternalTechnicianRepository interface {
	Create(ctx context.Context, tech *domain.InternalTechnician) error
	Update(ctx context.Context, tech *domain.InternalTechnician) error
	GetByID(ctx context.Context, id string) (*domain.InternalTechnician, error)
	List(ctx context.Context, filter InternalTechnicianFilter) ([]domain.InternalTechnician, error)
	FindByContact(ctx context.Context, email, phone string) ([]domain.InternalTechnician, error)
	Delete(ctx context.Context, id string) error
}

type internalTechnicianRepository struct {
	store[domain.InternalTechnician]
}

// NewInternalTechnicianRepository constructs repository.
func NewInternalTechnicianRepository(db *mongo.Database, logger *zap.Logger) InternalTechnicianRepository {
	return &internalTechnicianRepository{store: newStore[domain.InternalTechnician](db, "internal_technicians", logger)}
}

func (r *internalTechnicianRepository) Create(ctx context.Context, tech *domain.InternalTechnician) error {
	stampNew(&tech.ID, &tech.CreatedAt, &tech.UpdatedAt)
	return r.insert(ctx, tech)
}

func (r *internalTechnicianRepository) Update(ctx context.Context, tech *domain.InternalTechnician) error {
	tech.UpdatedAt = time.Now().UTC()
	update, err := replaceFields(tech, []string{"createdAt"}, "propertyId", "email", "phone")
	if err != nil {
		return err
	}
	return r.updateByID(ctx, tech.ID, update)
}

func (r *internalTechnicianRepository) GetByID(ctx context.Context, id string) (*domain.InternalTechnician, error) {
	return r.getByID(ctx, id)
}

func (r *internalTechnicianRepository) List(ctx context.Context, filter InternalTechnicianFilter) ([]domain.InternalTechnician, error) {
	query := bson.M{}
	if filter.PropertyID != "" {
		query["propertyId"] = refIn(filter.PropertyID)
	}
	if filter.Status != "" {
		query["status"] = caseInsensitive(filter.Status)
	}
	if len(filter.IDs) > 0 {
		query["_id"] = bson.M{"$in": objectIDs(filter.IDs)}
	}
	return r.findAll(ctx, query, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
}

// FindByContact returns every internal technician record sharing the email
// or phone. One person may be staff at several properties.
func (r *internalTechnicianRepository) FindByContact(ctx context.Context, email, phone string) ([]domain.InternalTechnician, error) {
	var or bson.A
	if email = strings.TrimSpace(email); email != "" {
		or = append(or, bson.M{"email": caseInsensitive(email)})
	}
	if phone = strings.TrimSpace(phone); phone != "" {
		or = append(or, bson.M{"phone": phone})
	}
	if len(or) == 0 {
		return []domain.InternalTechnician{}, nil
	}
	return r.findAll(ctx, bson.M{"$or": or})
}

func (r *internalTechnicianRepository) Delete(ctx context.Context, id string) error {
	return r.deleteByID(ctx, id)
}

// TechnicianRepository manages external technicians.
type TechnicianRepository interface {
	Create(ctx context.Context, tech *domain.Technician) error
	Update(ctx context.Context, tech *domain.Technician) error
	GetByID(ctx context.Context, id string) (*domain.Technician, error)
	List(ctx context.Context) ([]domain.Technician, error)
	Delete(ctx context.Context, id string) error
}

type technicianRepository struct {
	store[domain.Technician]
}

// NewTechnicianRepository constructs repository.
func NewTechnicianRepository(db *mongo.Database, logger *zap.Logger) TechnicianRepository {
	return &technicianRepository{store: newStore[domain.Technician](db, "technicians", logger)}
}

func (r *technicianRepository) Create(ctx context.Context, tech *domain.Technician) error {
	stampNew(&tech.ID, &tech.CreatedAt, &tech.UpdatedAt)
	return r.insert(ctx, tech)
}

func (r *technicianRepository) Update(ctx context.Context, tech *domain.Technician) error {
	tech.UpdatedAt = time.Now().UTC()
	set, err := toSet(tech, "createdAt")
	if err != nil {
		return err
	}
	return r.setByID(ctx, tech.ID, set)
}

func (r *technicianRepository) GetByID(ctx context.Context, id string) (*domain.Technician, error) {
	return r.getByID(ctx, id)
}

func (r *technicianRepository) List(ctx context.Context) ([]domain.Technician, error) {
	return r.findAll(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
}

func (r *technicianRepository) Delete(ctx context.Context, id string) error {
	return r.deleteByID(ctx, id)
}
