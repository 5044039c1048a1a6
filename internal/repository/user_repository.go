package repository

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

// UserFilter narrows user listings.
type UserFilter struct {
	Roles  []domain.Role
	Status domain.UserStatus
}

// UserRepository manages account persistence.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByContact(ctx context.Context, email, phone string) (*domain.User, error)
	List(ctx context.Context, filter UserFilter) ([]domain.User, error)
}

type userRepository struct {
	store[domain.User]
}

// NewUserRepository constructs repository.
func NewUserRepository(db *mongo.Database, logger *zap.Logger) UserRepository {
	return &userRepository{store: newStore[domain.User](db, "users", logger)}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	stampNew(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	return r.insert(ctx, user)
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	user.UpdatedAt = time.Now().UTC()
	set, err := toSet(user, "createdAt")
	if err != nil {
		return err
	}
	return r.setByID(ctx, user.ID, set)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getByID(ctx, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": caseInsensitive(email)})
}

// FindByContact returns the first user whose email or phone matches.
func (r *userRepository) FindByContact(ctx context.Context, email, phone string) (*domain.User, error) {
	var or bson.A
	if email = strings.TrimSpace(email); email != "" {
		or = append(or, bson.M{"email": caseInsensitive(email)})
	}
	if phone = strings.TrimSpace(phone); phone != "" {
		or = append(or, bson.M{"phone": phone})
	}
	if len(or) == 0 {
		return nil, mongo.ErrNoDocuments
	}
	return r.findOne(ctx, bson.M{"$or": or})
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]domain.User, error) {
	query := bson.M{}
	if len(filter.Roles) > 0 {
		query["role"] = bson.M{"$in": roleValues(filter.Roles)}
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	return r.findAll(ctx, query, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
}

// roleValues includes the legacy uppercase spellings still present in
// older records.
func roleValues(roles []domain.Role) bson.A {
	out := bson.A{}
	for _, role := range roles {
		out = append(out, string(role), strings.ToUpper(string(role)))
		if role == domain.RoleTechnician {
			out = append(out, "TECH")
		}
	}
	return out
}

func caseInsensitive(val string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(strings.TrimSpace(val)) + "$", Options: "i"}
}
