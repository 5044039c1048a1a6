package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-service/internal/events"
	"github.com/spec-kit/maintenance-service/internal/mailer"
	"github.com/spec-kit/maintenance-service/pkg/util/idutil"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

// Clock returns the current time. Services take one so tests can pin it.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c()
}

// Mailer sends a templated email.
type Mailer interface {
	Send(ctx context.Context, kind mailer.Kind, to []string, data mailer.Data) error
}

func publish(ctx context.Context, dispatcher events.Dispatcher, clock Clock, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = clock.now()
	}
	_ = dispatcher.Publish(ctx, event)
}

// requireID rejects anything that is not a 24-hex id before a store call.
func requireID(field, id string) error {
	if !idutil.IsHex(strings.TrimSpace(id)) {
		return apperrors.NewInvalidID(field, id)
	}
	return nil
}

// lookup maps a store error to a typed not-found for resource.
func lookup[T any](item *T, err error, resource, id string) (*T, error) {
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound(resource, map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return item, nil
}

func nopLogger(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func trimPtr(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
