package errorutil_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"go.mongodb.org/mongo-driver/mongo"

	apperrors "github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

func TestToDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
		wantMsg    string
	}{
		{"validation", apperrors.NewValidationError("title required", nil), "VALIDATION_FAILED", http.StatusBadRequest, "title required"},
		{"invalid id", apperrors.NewInvalidID("id", "abc"), "VALIDATION_FAILED", http.StatusBadRequest, "invalid id format"},
		{"wrapped not found", fmt.Errorf("load: %w", apperrors.NewNotFound("issue", nil)), "NOT_FOUND", http.StatusNotFound, "issue not found"},
		{"mongo no documents", mongo.ErrNoDocuments, "NOT_FOUND", http.StatusNotFound, "resource not found"},
		{"pgx no rows", pgx.ErrNoRows, "NOT_FOUND", http.StatusNotFound, "resource not found"},
		{"unauthorized", apperrors.NewUnauthorized("propertyId required"), "UNAUTHORIZED", http.StatusUnauthorized, "propertyId required"},
		{"forbidden", apperrors.NewForbidden("not owner"), "FORBIDDEN", http.StatusForbidden, "not owner"},
		{"conflict", apperrors.NewConflict("already approved", nil), "CONFLICT", http.StatusConflict, "already approved"},
		{"generic surfaces message", errors.New("connection reset"), "INTERNAL_ERROR", http.StatusInternalServerError, "connection reset"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			de := apperrors.ToDomainError(tc.err)
			if de.Code != tc.wantCode {
				t.Errorf("Code = %q, want %q", de.Code, tc.wantCode)
			}
			if de.HTTPStatus != tc.wantStatus {
				t.Errorf("HTTPStatus = %d, want %d", de.HTTPStatus, tc.wantStatus)
			}
			if de.Message != tc.wantMsg {
				t.Errorf("Message = %q, want %q", de.Message, tc.wantMsg)
			}
		})
	}
}

func TestIsNotFound(t *testing.T) {
	if !apperrors.IsNotFound(mongo.ErrNoDocuments) {
		t.Error("mongo.ErrNoDocuments should be not found")
	}
	if !apperrors.IsNotFound(apperrors.NewNotFound("asset", nil)) {
		t.Error("NewNotFound should be not found")
	}
	if apperrors.IsNotFound(errors.New("boom")) {
		t.Error("generic error should not be not found")
	}
	if apperrors.IsNotFound(nil) {
		t.Error("nil should not be not found")
	}
}

func TestInternalErrorUnwraps(t *testing.T) {
	root := errors.New("disk full")
	err := apperrors.NewInternalError(root)
	if !errors.Is(err, root) {
		t.Fatal("internal error should unwrap to its cause")
	}
	if err.Error() != "disk full" {
		t.Errorf("Error() = %q", err.Error())
	}
}
