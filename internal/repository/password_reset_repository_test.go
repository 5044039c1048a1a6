package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spec-kit/maintenance-service/internal/cache"
	"github.com/spec-kit/maintenance-service/internal/repository"
)

func TestPasswordResetTokenIsSingleUse(t *testing.T) {
	repo := repository.NewPasswordResetRepository(cache.NewMemoryStore())
	ctx := context.Background()

	if err := repo.Create(ctx, "tok", "user-1", time.Hour); err != nil {
		t.Fatal(err)
	}
	userID, err := repo.Consume(ctx, "tok")
	if err != nil || userID != "user-1" {
		t.Fatalf("Consume = %q, %v", userID, err)
	}
	if _, err := repo.Consume(ctx, "tok"); !errors.Is(err, repository.ErrResetTokenNotFound) {
		t.Fatalf("second Consume err = %v", err)
	}
}
