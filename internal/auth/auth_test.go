package auth_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/spec-kit/maintenance-service/internal/auth"
	"github.com/spec-kit/maintenance-service/internal/domain"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

type usersStub map[string]*domain.User

func (s usersStub) GetByID(_ context.Context, id string) (*domain.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, mongo.ErrNoDocuments
}

func testApp(mw *auth.AuthMiddleware) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).JSON(fiber.Map{"code": de.Code})
		},
	})
	whoami := func(c *fiber.Ctx) error {
		caller := auth.CallerFromContext(c)
		if caller == nil {
			return c.JSON(fiber.Map{"anonymous": true})
		}
		return c.JSON(fiber.Map{"userId": caller.UserID, "role": caller.Role})
	}
	app.Get("/required", mw.Handle, whoami)
	app.Get("/optional", mw.Optional, whoami)
	app.Get("/admin", mw.Handle, auth.RequireAdmin(), whoami)
	return app
}

func TestTokenRoundTrip(t *testing.T) {
	tm := auth.NewTokenManager("secret", 60)
	token, exp, err := tm.GenerateToken("u1", domain.RoleManager)
	if err != nil {
		t.Fatal(err)
	}
	if exp.IsZero() {
		t.Fatal("expiry not set")
	}
	claims, err := tm.ParseToken(token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.UserID != "u1" || claims.Role != domain.RoleManager {
		t.Errorf("claims = %+v", claims)
	}
	if _, err := auth.NewTokenManager("other", 60).ParseToken(token); err == nil {
		t.Error("token signed with another secret must fail")
	}
}

func TestMiddleware(t *testing.T) {
	tm := auth.NewTokenManager("secret", 60)
	adminID := primitive.NewObjectID()
	clientID := primitive.NewObjectID()
	users := usersStub{
		adminID.Hex():  {ID: adminID, Role: domain.Role("ADMIN"), Status: domain.UserStatusActive},
		clientID.Hex(): {ID: clientID, Role: domain.RoleClient, Status: domain.UserStatusActive},
	}
	app := testApp(auth.NewAuthMiddleware(tm, users))

	adminToken, _, _ := tm.GenerateToken(adminID.Hex(), domain.RoleAdmin)
	clientToken, _, _ := tm.GenerateToken(clientID.Hex(), domain.RoleClient)
	ghostToken, _, _ := tm.GenerateToken(primitive.NewObjectID().Hex(), domain.RoleAdmin)

	tests := []struct {
		name   string
		path   string
		token  string
		status int
		body   string
	}{
		{"required without header", "/required", "", 401, "UNAUTHORIZED"},
		{"required with garbage", "/required", "nope", 401, "UNAUTHORIZED"},
		{"required with unknown user", "/required", ghostToken, 401, "UNAUTHORIZED"},
		{"required ok", "/required", clientToken, 200, clientID.Hex()},
		{"optional anonymous", "/optional", "", 200, "anonymous"},
		{"optional invalid token", "/optional", "nope", 401, "UNAUTHORIZED"},
		{"optional with token", "/optional", adminToken, 200, `"role":"admin"`},
		{"admin as client", "/admin", clientToken, 403, "FORBIDDEN"},
		{"admin as admin", "/admin", adminToken, 200, adminID.Hex()},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tc.path, nil)
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tc.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.status)
			}
			var body map[string]any
			_ = json.NewDecoder(resp.Body).Decode(&body)
			raw, _ := json.Marshal(body)
			if !strings.Contains(string(raw), tc.body) {
				t.Errorf("body %s does not contain %q", raw, tc.body)
			}
		})
	}
}

func TestPasswordHelpers(t *testing.T) {
	hash, err := auth.HashPassword("hunter22", 4)
	if err != nil {
		t.Fatal(err)
	}
	if err := auth.ComparePassword(hash, "hunter22"); err != nil {
		t.Errorf("matching password rejected: %v", err)
	}
	if err := auth.ComparePassword(hash, "wrong"); err == nil {
		t.Error("wrong password accepted")
	}
	token, err := auth.NewResetToken()
	if err != nil || len(token) != 64 {
		t.Errorf("reset token = %q, %v", token, err)
	}
}
