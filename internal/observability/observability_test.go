package observability_test

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/maintenance-service/internal/observability"
)

func TestSnapshotAggregates(t *testing.T) {
	m := observability.NewMetrics()
	m.RecordRequest("/api/issues", "GET", 200, 2*time.Millisecond)
	m.RecordRequest("/api/issues", "GET", 200, 4*time.Millisecond)
	m.RecordRequest("/api/issues/:id", "GET", 404, time.Millisecond)
	m.RecordError("/api/issues/:id", "GET", "NOT_FOUND")

	snap := m.Snapshot()
	if snap.TotalRequests != 3 {
		t.Fatalf("TotalRequests = %d", snap.TotalRequests)
	}
	if len(snap.Requests) != 2 {
		t.Fatalf("Requests = %+v", snap.Requests)
	}
	top := snap.Requests[0]
	if top.Route != "/api/issues" || top.Count != 2 || top.AvgLatencyMS != 3 {
		t.Errorf("top row = %+v", top)
	}
	if len(snap.Errors) != 1 || snap.Errors[0].Code != "NOT_FOUND" {
		t.Errorf("Errors = %+v", snap.Errors)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *observability.Metrics
	m.RecordRequest("/", "GET", 200, 0)
	m.RecordError("/", "GET", "X")
	if snap := m.Snapshot(); snap.TotalRequests != 0 {
		t.Errorf("nil snapshot = %+v", snap)
	}
}

func TestRequestLoggerRecordsRoutePattern(t *testing.T) {
	m := observability.NewMetrics()
	app := fiber.New()
	app.Use(observability.RequestLogger(nil, m))
	app.Get("/api/issues/:id", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/issues/abc", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	snap := m.Snapshot()
	if len(snap.Requests) != 1 || snap.Requests[0].Route != "/api/issues/:id" || snap.Requests[0].Status != 204 {
		t.Errorf("requests = %+v", snap.Requests)
	}
}
