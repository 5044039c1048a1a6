package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	nethttp "net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/maintenance-service/internal/api/http"
	"github.com/spec-kit/maintenance-service/internal/api/http/handlers"
	"github.com/spec-kit/maintenance-service/internal/auth"
	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/observability"
	"github.com/spec-kit/maintenance-service/internal/storage"
	"github.com/spec-kit/maintenance-service/internal/testutil"
)

type testServer struct {
	app       *fiber.App
	h         *testutil.Harness
	tokens    *auth.TokenManager
	uploadDir string
}

func newTestServer(t *testing.T, opts ...func(*httptransport.RouteConfig)) *testServer {
	t.Helper()
	h := testutil.NewHarness(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	tokens := auth.NewTokenManager("test-secret", 60)
	dir := t.TempDir()
	store, err := storage.NewUploads(dir)
	if err != nil {
		t.Fatal(err)
	}
	uploader := handlers.NewUploader(store, 2)
	metrics := observability.NewMetrics()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, zap.NewNop(), metrics, httptransport.MiddlewareConfig{Timeout: 5 * time.Second})
	routes := httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler("maintenance-service", "test", metrics),
		Users:          handlers.NewUsersHandler(h.AuthSvc),
		Issues:         handlers.NewIssuesHandler(h.IssueSvc, h.AssignmentSvc, uploader),
		Properties:     handlers.NewPropertiesHandler(h.PropertySvc, uploader),
		Assets:         handlers.NewAssetsHandler(h.AssetSvc),
		Technicians:    handlers.NewTechniciansHandler(h.TechnicianSvc),
		Schedules:      handlers.NewSchedulesHandler(h.ScheduleSvc, h.TemplateSvc),
		Notifications:  handlers.NewNotificationsHandler(h.NotifySvc, h.FeedbackSvc),
		AI:             handlers.NewAIHandler(h.AISvc),
		Billing:        handlers.NewBillingHandler(h.SubSvc, h.PaymentSvc),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, h.Users),
		UploadDir:      dir,
	}
	for _, opt := range opts {
		opt(&routes)
	}
	httptransport.RegisterRoutes(app, routes)
	return &testServer{app: app, h: h, tokens: tokens, uploadDir: dir}
}

func (s *testServer) token(t *testing.T, u *domain.User) string {
	t.Helper()
	tok, _, err := s.tokens.GenerateToken(u.ID.Hex(), u.Role)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func (s *testServer) do(t *testing.T, req *nethttp.Request, token string) (int, envelope) {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
	}
	return resp.StatusCode, env
}

func jsonRequest(method, path string, body any) *nethttp.Request {
	var r io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func TestHealthAndUnknownRoute(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.app.Test(httptest.NewRequest("GET", "/health/live", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("live = %d", resp.StatusCode)
	}

	status, env := s.do(t, httptest.NewRequest("GET", "/api/nope", nil), "")
	if status != fiber.StatusNotFound || env.Error == nil || env.Error.Code != "NOT_FOUND" {
		t.Fatalf("unknown route = %d %+v", status, env.Error)
	}
}

func TestAuthMiddlewareOutcomes(t *testing.T) {
	s := newTestServer(t)
	client := s.h.SeedUser("Cara Client", domain.RoleClient)

	tests := []struct {
		name       string
		path       string
		token      string
		wantStatus int
		wantCode   string
	}{
		{"anonymous issues without property", "/api/issues", "", fiber.StatusUnauthorized, "UNAUTHORIZED"},
		{"garbage token on optional route", "/api/issues", "garbage", fiber.StatusUnauthorized, "UNAUTHORIZED"},
		{"client on admin route", "/api/users", s.token(t, client), fiber.StatusForbidden, "FORBIDDEN"},
		{"missing token on required route", "/api/notifications", "", fiber.StatusUnauthorized, "UNAUTHORIZED"},
		{"bad id", "/api/issues/not-hex", s.token(t, client), fiber.StatusBadRequest, "VALIDATION_FAILED"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, env := s.do(t, httptest.NewRequest("GET", tc.path, nil), tc.token)
			if status != tc.wantStatus {
				t.Fatalf("status = %d, want %d", status, tc.wantStatus)
			}
			if env.Error == nil || env.Error.Code != tc.wantCode {
				t.Errorf("error = %+v, want code %s", env.Error, tc.wantCode)
			}
		})
	}
}

func TestIssueCreateAndApproveOverHTTP(t *testing.T) {
	s := newTestServer(t)
	client := s.h.SeedUser("Cara Client", domain.RoleClient)
	manager := s.h.SeedUser("Mia Manager", domain.RoleManager)
	property := s.h.SeedProperty("Tower A", client.ID.Hex())

	status, env := s.do(t, jsonRequest("POST", "/api/issues", map[string]any{
		"title":      "Leaking tap",
		"propertyId": property.ID.Hex(),
		"status":     "COMPLETE",
	}), s.token(t, client))
	if status != fiber.StatusCreated {
		t.Fatalf("create = %d %+v", status, env.Error)
	}
	var issue domain.Issue
	if err := json.Unmarshal(env.Data, &issue); err != nil {
		t.Fatal(err)
	}
	if issue.Status != domain.IssueStatusPending || issue.UserID != client.ID.Hex() {
		t.Fatalf("issue = %+v", issue)
	}

	path := "/api/issues/" + issue.ID.Hex() + "/approve"
	if status, _ := s.do(t, jsonRequest("POST", path, nil), s.token(t, client)); status != fiber.StatusForbidden {
		t.Errorf("client approve = %d", status)
	}
	status, env = s.do(t, jsonRequest("POST", path, nil), s.token(t, manager))
	if status != fiber.StatusOK {
		t.Fatalf("manager approve = %d %+v", status, env.Error)
	}
	if status, env = s.do(t, jsonRequest("POST", path, nil), s.token(t, manager)); status != fiber.StatusConflict {
		t.Errorf("second approve = %d %+v", status, env.Error)
	}

	status, env = s.do(t, httptest.NewRequest("GET", "/api/issues?propertyId="+property.ID.Hex(), nil), "")
	if status != fiber.StatusOK {
		t.Fatalf("anonymous list = %d", status)
	}
	var listed []domain.Issue
	if err := json.Unmarshal(env.Data, &listed); err != nil {
		t.Fatal(err)
	}
	if len(listed) != 1 || listed[0].Title != "Leaking tap" {
		t.Errorf("listed = %+v", listed)
	}
}

func TestIssueScopingOverHTTP(t *testing.T) {
	s := newTestServer(t)
	owner := s.h.SeedUser("Olive Owner", domain.RoleClient)
	other := s.h.SeedUser("Otto Other", domain.RoleClient)
	tech := s.h.SeedUser("Tina Tech", domain.RoleTechnician)
	manager := s.h.SeedUser("Mia Manager", domain.RoleManager)
	property := s.h.SeedProperty("Tower A", owner.ID.Hex())
	overdue := s.h.SeedIssue(&domain.Issue{
		Title:      "Late fix",
		Status:     domain.IssueStatusOverdue,
		PropertyID: property.ID.Hex(),
		UserID:     owner.ID.Hex(),
		AssignedTo: tech.ID.Hex(),
	})
	issuePath := "/api/issues/" + overdue.ID.Hex()

	tests := []struct {
		name       string
		req        *nethttp.Request
		user       *domain.User
		wantStatus int
	}{
		{"technician completes overdue", jsonRequest("PUT", issuePath, map[string]any{"status": "COMPLETE"}), tech, fiber.StatusForbidden},
		{"other client approves", jsonRequest("PUT", issuePath, map[string]any{"status": "APPROVED", "title": "hijacked"}), other, fiber.StatusForbidden},
		{"other client edits title", jsonRequest("PUT", issuePath, map[string]any{"title": "hijacked"}), other, fiber.StatusForbidden},
		{"manager clears overdue", jsonRequest("PUT", issuePath, map[string]any{"status": "IN PROGRESS"}), manager, fiber.StatusConflict},
		{"other client reads", httptest.NewRequest("GET", issuePath, nil), other, fiber.StatusForbidden},
		{"owner reads", httptest.NewRequest("GET", issuePath, nil), owner, fiber.StatusOK},
		{"client lists technician workload", httptest.NewRequest("GET", "/api/issues/assigned/"+tech.ID.Hex(), nil), other, fiber.StatusForbidden},
		{"technician lists own workload", httptest.NewRequest("GET", "/api/issues/assigned/"+tech.ID.Hex(), nil), tech, fiber.StatusOK},
		{"malformed technician id", httptest.NewRequest("GET", "/api/issues/assigned/T1", nil), manager, fiber.StatusBadRequest},
		{"owner edits title", jsonRequest("PUT", issuePath, map[string]any{"title": "Late fix, again"}), owner, fiber.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, env := s.do(t, tc.req, s.token(t, tc.user))
			if status != tc.wantStatus {
				t.Fatalf("status = %d, want %d (%+v)", status, tc.wantStatus, env.Error)
			}
		})
	}

	stored, err := s.h.IssueSvc.Get(context.Background(), overdue.ID.Hex())
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != domain.IssueStatusOverdue || stored.Approved || stored.Title != "Late fix, again" {
		t.Errorf("stored = status %q approved %v title %q", stored.Status, stored.Approved, stored.Title)
	}
}

func multipartRequest(t *testing.T, path string, fields map[string]string, field string, files ...string) *nethttp.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	for i, content := range files {
		fw, err := w.CreateFormFile(field, "photo"+string(rune('a'+i))+".JPG")
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(content))
	}
	w.Close()
	req := httptest.NewRequest("POST", path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestMultipartIssuePhotoIsStoredAndServed(t *testing.T) {
	s := newTestServer(t)
	client := s.h.SeedUser("Cara Client", domain.RoleClient)
	property := s.h.SeedProperty("Tower A", client.ID.Hex())

	req := multipartRequest(t, "/api/issues", map[string]string{
		"title":      "Broken window",
		"propertyId": property.ID.Hex(),
		"tags":       "glass, Preventive",
	}, "photo", "jpeg-bytes")
	status, env := s.do(t, req, s.token(t, client))
	if status != fiber.StatusCreated {
		t.Fatalf("create = %d %+v", status, env.Error)
	}
	var issue domain.Issue
	if err := json.Unmarshal(env.Data, &issue); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(issue.Photo, storage.PublicPrefix+"/") || !strings.HasSuffix(issue.Photo, ".jpg") {
		t.Fatalf("photo = %q", issue.Photo)
	}
	if _, err := os.Stat(filepath.Join(s.uploadDir, strings.TrimPrefix(issue.Photo, storage.PublicPrefix+"/"))); err != nil {
		t.Fatalf("upload missing: %v", err)
	}
	if len(issue.Tags) != 2 {
		t.Errorf("tags = %v", issue.Tags)
	}

	resp, err := s.app.Test(httptest.NewRequest("GET", issue.Photo, nil))
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != fiber.StatusOK || string(body) != "jpeg-bytes" {
		t.Errorf("static = %d %q", resp.StatusCode, body)
	}
}

func TestPropertyPhotoLimit(t *testing.T) {
	s := newTestServer(t)
	client := s.h.SeedUser("Cara Client", domain.RoleClient)
	property := s.h.SeedProperty("Tower A", client.ID.Hex())
	path := "/api/properties/" + property.ID.Hex() + "/photos"

	status, env := s.do(t, multipartRequest(t, path, nil, "photos", "a", "b", "c"), s.token(t, client))
	if status != fiber.StatusBadRequest {
		t.Fatalf("three photos = %d %+v", status, env.Error)
	}

	status, env = s.do(t, multipartRequest(t, path, nil, "photos", "a", "b"), s.token(t, client))
	if status != fiber.StatusOK {
		t.Fatalf("two photos = %d %+v", status, env.Error)
	}
	var got domain.Property
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Photos) != 2 {
		t.Errorf("photos = %v", got.Photos)
	}
}

func TestPublicBillingRoutes(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, httptest.NewRequest("GET", "/api/payments/public/calculate?plan=professional&billingCycle=yearly", nil), "")
	if status != fiber.StatusOK {
		t.Fatalf("calculate = %d %+v", status, env.Error)
	}
	var quote struct {
		Amount float64 `json:"amount"`
	}
	if err := json.Unmarshal(env.Data, &quote); err != nil {
		t.Fatal(err)
	}
	if quote.Amount != 799.99 {
		t.Errorf("amount = %v", quote.Amount)
	}

	if status, _ := s.do(t, httptest.NewRequest("GET", "/api/payments/public/calculate?plan=gold&billingCycle=yearly", nil), ""); status != fiber.StatusBadRequest {
		t.Errorf("bad plan = %d", status)
	}

	status, env = s.do(t, jsonRequest("POST", "/api/payments/callback", map[string]any{
		"transactionId": "TXN-1",
		"status":        "success",
		"signature":     "forged",
	}), "")
	if status != fiber.StatusUnauthorized {
		t.Errorf("forged callback = %d %+v", status, env.Error)
	}
}

func TestAdminMetrics(t *testing.T) {
	s := newTestServer(t)
	admin := s.h.SeedUser("Ada Admin", domain.RoleAdmin)
	client := s.h.SeedUser("Cara Client", domain.RoleClient)

	s.do(t, httptest.NewRequest("GET", "/health/live", nil), "")
	if status, _ := s.do(t, httptest.NewRequest("GET", "/api/admin/metrics", nil), s.token(t, client)); status != fiber.StatusForbidden {
		t.Fatalf("client metrics = %d", status)
	}
	status, env := s.do(t, httptest.NewRequest("GET", "/api/admin/metrics", nil), s.token(t, admin))
	if status != fiber.StatusOK {
		t.Fatalf("admin metrics = %d", status)
	}
	var snap observability.Snapshot
	if err := json.Unmarshal(env.Data, &snap); err != nil {
		t.Fatal(err)
	}
	if snap.TotalRequests < 2 || len(snap.Errors) == 0 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestBillingRoutesWithoutStore(t *testing.T) {
	s := newTestServer(t, func(rc *httptransport.RouteConfig) { rc.Billing = nil })

	status, env := s.do(t, httptest.NewRequest("GET", "/api/payments/public/pricing", nil), "")
	if status != fiber.StatusServiceUnavailable || env.Error == nil || env.Error.Code != "SERVICE_UNAVAILABLE" {
		t.Fatalf("pricing without store = %d %+v", status, env.Error)
	}
	if status, _ := s.do(t, httptest.NewRequest("GET", "/health/live", nil), ""); status != fiber.StatusOK {
		t.Errorf("live = %d", status)
	}
}
