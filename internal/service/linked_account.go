package service

import (
	"context"
	"strings"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/repository"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

// LinkedAccountResolver finds the User that shares an internal
// technician's email or phone. The link is never stored.
type LinkedAccountResolver struct {
	users repository.UserRepository
}

// NewLinkedAccountResolver builds the resolver.
func NewLinkedAccountResolver(users repository.UserRepository) *LinkedAccountResolver {
	return &LinkedAccountResolver{users: users}
}

// Resolve returns the linked user, or ok=false when no account matches.
func (r *LinkedAccountResolver) Resolve(ctx context.Context, email, phone string) (*domain.User, bool, error) {
	email = strings.TrimSpace(email)
	phone = strings.TrimSpace(phone)
	if email == "" && phone == "" {
		return nil, false, nil
	}
	user, err := r.users.FindByContact(ctx, email, phone)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return user, true, nil
}

// ResolveID is Resolve reduced to the user id.
func (r *LinkedAccountResolver) ResolveID(ctx context.Context, tech *domain.InternalTechnician) (string, bool, error) {
	user, ok, err := r.Resolve(ctx, tech.Email, tech.Phone)
	if err != nil || !ok {
		return "", false, err
	}
	return user.ID.Hex(), true, nil
}

// Annotate fills LinkedUserID on each technician. Lookup failures leave the
// field empty.
func (r *LinkedAccountResolver) Annotate(ctx context.Context, techs []domain.InternalTechnician) {
	for i := range techs {
		if id, ok, err := r.ResolveID(ctx, &techs[i]); err == nil && ok {
			techs[i].LinkedUserID = id
		}
	}
}
