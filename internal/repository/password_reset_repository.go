package repository

import (
	"context"
	"errors"
	"time"

	"github.com/spec-kit/maintenance-service/internal/cache"
)

// ErrResetTokenNotFound is returned for unknown, used or expired tokens.
var ErrResetTokenNotFound = errors.New("reset token not found")

const resetKeyPrefix = "password_reset:"

// PasswordResetRepository manages password reset tokens.
type PasswordResetRepository interface {
	Create(ctx context.Context, token, userID string, ttl time.Duration) error
	Consume(ctx context.Context, token string) (string, error)
}

type passwordResetRepository struct {
	store cache.Store
}

// NewPasswordResetRepository constructs repository on top of a TTL store.
func NewPasswordResetRepository(store cache.Store) PasswordResetRepository {
	return &passwordResetRepository{store: store}
}

func (r *passwordResetRepository) Create(ctx context.Context, token, userID string, ttl time.Duration) error {
	return r.store.Set(ctx, resetKeyPrefix+token, userID, ttl)
}

// Consume returns the user id bound to token and invalidates it.
func (r *passwordResetRepository) Consume(ctx context.Context, token string) (string, error) {
	userID, ok, err := r.store.Get(ctx, resetKeyPrefix+token)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrResetTokenNotFound
	}
	if err := r.store.Delete(ctx, resetKeyPrefix+token); err != nil {
		return "", err
	}
	return userID, nil
}
