package service_test

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/mailer"
	"github.com/spec-kit/maintenance-service/internal/service"
	"github.com/spec-kit/maintenance-service/internal/testutil"
)

func TestRegisterAndLogin(t *testing.T) {
	h := testutil.NewHarness(baseTime)
	ctx := context.Background()

	user, err := h.AuthSvc.Register(ctx, service.RegisterInput{
		Name:     " Rita ",
		Email:    " Rita@Example.com ",
		Password: "secret1",
		Role:     "TECHNICIAN",
	})
	if err != nil {
		t.Fatal(err)
	}
	if user.Email != "rita@example.com" || user.Name != "Rita" || user.Role != domain.RoleTechnician {
		t.Errorf("user = %+v", user)
	}
	if user.Password == "secret1" {
		t.Error("password stored in clear")
	}

	res, err := h.AuthSvc.Login(ctx, "RITA@example.com", "secret1")
	if err != nil {
		t.Fatal(err)
	}
	if want := "token-" + user.ID.Hex() + "-technician"; res.Token != want {
		t.Errorf("token = %q, want %q", res.Token, want)
	}

	_, err = h.AuthSvc.Login(ctx, "rita@example.com", "wrong-pass")
	wantStatus(t, err, http.StatusUnauthorized)
	_, err = h.AuthSvc.Login(ctx, "nobody@example.com", "secret1")
	wantStatus(t, err, http.StatusUnauthorized)
}

func TestRegisterValidation(t *testing.T) {
	h := testutil.NewHarness(baseTime)
	ctx := context.Background()
	h.SeedUser("Taken", domain.RoleClient)

	tests := []struct {
		name   string
		input  service.RegisterInput
		status int
	}{
		{"missing email", service.RegisterInput{Password: "secret1"}, http.StatusBadRequest},
		{"short password", service.RegisterInput{Email: "a@example.com", Password: "123"}, http.StatusBadRequest},
		{"unknown role", service.RegisterInput{Email: "a@example.com", Password: "secret1", Role: "wizard"}, http.StatusBadRequest},
		{"duplicate email", service.RegisterInput{Email: "TAKEN@example.com", Password: "secret1"}, http.StatusConflict},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.AuthSvc.Register(ctx, tc.input)
			wantStatus(t, err, tc.status)
		})
	}
}

func TestRegisterDefaultsToClient(t *testing.T) {
	h := testutil.NewHarness(baseTime)
	user, err := h.AuthSvc.Register(context.Background(), service.RegisterInput{Email: "c@example.com", Password: "secret1"})
	if err != nil {
		t.Fatal(err)
	}
	if user.Role != domain.RoleClient || user.Status != domain.UserStatusActive {
		t.Errorf("role=%q status=%q", user.Role, user.Status)
	}
}

func TestPasswordReset(t *testing.T) {
	h := testutil.NewHarness(baseTime)
	ctx := context.Background()
	if _, err := h.AuthSvc.Register(ctx, service.RegisterInput{Email: "pat@example.com", Password: "old-pass"}); err != nil {
		t.Fatal(err)
	}

	wantStatus(t, h.AuthSvc.ForgotPassword(ctx, "ghost@example.com"), http.StatusNotFound)
	if err := h.AuthSvc.ForgotPassword(ctx, "PAT@example.com"); err != nil {
		t.Fatal(err)
	}
	sent := h.Mailer.OfKind(mailer.KindPasswordReset)
	if len(sent) != 1 || sent[0].Data.ExpiresIn != "1 hour" {
		t.Fatalf("reset mail = %+v", sent)
	}
	const prefix = "http://frontend.test/reset-password/"
	if !strings.HasPrefix(sent[0].Data.ResetURL, prefix) {
		t.Fatalf("reset url = %q", sent[0].Data.ResetURL)
	}
	token := strings.TrimPrefix(sent[0].Data.ResetURL, prefix)

	wantStatus(t, h.AuthSvc.ResetPassword(ctx, token, "abc"), http.StatusBadRequest)
	if err := h.AuthSvc.ResetPassword(ctx, token, "new-pass"); err != nil {
		t.Fatal(err)
	}
	wantStatus(t, h.AuthSvc.ResetPassword(ctx, token, "newer-pass"), http.StatusBadRequest)

	if _, err := h.AuthSvc.Login(ctx, "pat@example.com", "new-pass"); err != nil {
		t.Errorf("login with new password: %v", err)
	}
	_, err := h.AuthSvc.Login(ctx, "pat@example.com", "old-pass")
	wantStatus(t, err, http.StatusUnauthorized)
}

func TestPasswordResetTokenExpires(t *testing.T) {
	h := testutil.NewHarness(baseTime)
	ctx := context.Background()
	h.SeedUser("Exp", domain.RoleClient)
	if err := h.AuthSvc.ForgotPassword(ctx, "exp@example.com"); err != nil {
		t.Fatal(err)
	}
	url := h.Mailer.OfKind(mailer.KindPasswordReset)[0].Data.ResetURL
	token := url[strings.LastIndex(url, "/")+1:]

	h.Advance(2 * time.Hour)
	wantStatus(t, h.AuthSvc.ResetPassword(ctx, token, "new-pass"), http.StatusBadRequest)
}

func TestListUsersByRole(t *testing.T) {
	h := testutil.NewHarness(baseTime)
	ctx := context.Background()
	h.SeedUser("A", domain.RoleAdmin)
	h.SeedUser("T1", domain.RoleTechnician)
	h.SeedUser("T2", domain.RoleTechnician)

	techs, err := h.AuthSvc.ListUsers(ctx, "technician")
	if err != nil || len(techs) != 2 {
		t.Errorf("techs = %d, %v", len(techs), err)
	}
	all, _ := h.AuthSvc.ListUsers(ctx, "")
	if len(all) != 3 {
		t.Errorf("all = %d", len(all))
	}
	_, err = h.AuthSvc.ListUsers(ctx, "wizard")
	wantStatus(t, err, http.StatusBadRequest)

	_, err = h.AuthSvc.GetUser(ctx, "bad")
	wantStatus(t, err, http.StatusBadRequest)
}
