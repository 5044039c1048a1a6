package service_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/events"
	"github.com/spec-kit/maintenance-service/internal/repository"
	"github.com/spec-kit/maintenance-service/internal/service"
	"github.com/spec-kit/maintenance-service/internal/testutil"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

var baseTime = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func wantStatus(t *testing.T, err error, status int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with status %d, got nil", status)
	}
	var de *apperrors.DomainError
	if !errors.As(err, &de) {
		t.Fatalf("expected DomainError, got %T: %v", err, err)
	}
	if de.HTTPStatus != status {
		t.Fatalf("status = %d (%s), want %d", de.HTTPStatus, de.Message, status)
	}
}

func TestCreateAlwaysPendingAndOwnedByCaller(t *testing.T) {
	h := testutil.NewHarness(baseTime)
	client := h.SeedUser("Ann Client", domain.RoleClient)
	ctx := context.Background()

	issue, err := h.IssueSvc.Create(ctx, testutil.Caller(client), service.IssueInput{
		Title:  testutil.Ptr("Leaking tap"),
		Status: testutil.Ptr("COMPLETE"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if issue.Status != domain.IssueStatusPending {
		t.Errorf("status = %q, want PENDING", issue.Status)
	}
	if issue.UserID != client.ID.Hex() {
		t.Errorf("userId = %q, want %q", issue.UserID, client.ID.Hex())
	}
	if got := h.Dispatcher.Types(); len(got) != 1 || got[0] != events.EventIssueCreated {
		t.Errorf("events = %v", got)
	}
}

func TestCreateValidation(t *testing.T) {
	h := testutil.NewHarness(baseTime)
	ctx := context.Background()
	client := testutil.Caller(h.SeedUser("Cid", domain.RoleClient))

	tests := []struct {
		name   string
		caller *domain.Caller
		input  service.IssueInput
		status int
	}{
		{"missing title", client, service.IssueInput{}, http.StatusBadRequest},
		{"anonymous without property", nil, service.IssueInput{Title: testutil.Ptr("x")}, http.StatusUnauthorized},
		{"bad property id", client, service.IssueInput{Title: testutil.Ptr("x"), PropertyID: testutil.Ptr("nope")}, http.StatusBadRequest},
		{"bad asset id", client, service.IssueInput{Title: testutil.Ptr("x"), AssetID: testutil.Ptr("123")}, http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.IssueSvc.Create(ctx, tc.caller, tc.input)
			wantStatus(t, err, tc.status)
		})
	}
}

func TestAnonymousCreateWithProperty(t *testing.T) {
	h := testutil.NewHarness(baseTime)
	p := h.SeedProperty("Block A", "")
	issue, err := h.IssueSvc.Create(context.Background(), nil, service.IssueInput{
		Title:      testutil.Ptr("Broken door"),
		PropertyID: testutil.Ptr(p.ID.Hex()),
	})
	if err != nil {
		t.Fatal(err)
	}
	if issue.UserID != "" {
		t.Errorf("anonymous issue has userId %q", issue.UserID)
	}
}

func TestReadAfterWrite(t *testing.T) {
	h := testutil.NewHarness(baseTime)
	ctx := context.Background()
	caller := testutil.Caller(h.SeedUser("Rae", domain.RoleClient))

	created, err := h.IssueSvc.Create(ctx, caller, service.IssueInput{
		Title:       testutil.Ptr("No hot water"),
		Description: testutil.Ptr("Boiler makes noise"),
	})
	if err != nil {
		t.Fatal(err)
	}
	got, err := h.IssueSvc.Get(ctx, created.ID.Hex())
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != created.Title || got.Description != created.Description || got.Status != created.Status {
		t.Errorf("read %+v, wrote %+v", got, created)
	}
}

func TestPreventiveTagRetainedOnUpdate(t *testing.T) {
	h := testutil.NewHarness(baseTime)
	ctx := context.Background()
	caller := testutil.Caller(h.SeedUser("Pat", domain.RoleManager))

	issue, err := h.IssueSvc.Create(ctx, caller, service.IssueInput{
		Title: testutil.Ptr("Preventive HVAC service"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if !issue.HasTag(domain.PreventiveTag) {
		t.Fatalf("tags = %v, want preventive", issue.Tags)
	}

	updated, err := h.IssueSvc.Update(ctx, caller, issue.ID.Hex(), service.IssueInput{
		Title: testutil.Ptr("HVAC service"),
		Tags:  &[]string{"urgent"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !updated.HasTag(domain.PreventiveTag) || !updated.HasTag("urgent") {
		t.Errorf("tags after update = %v", updated.Tags)
	}
}

func TestUpdateRejectsBadStatus(t *testing.T) {
	h := testutil.NewHarness(baseTime)
	admin := testutil.Caller(h.SeedUser("Ada", domain.RoleAdmin))
	issue := h.SeedIssue(&domain.Issue{Title: "x"})
	_, err := h.IssueSvc.Update(context.Background(), admin, issue.ID.Hex(), service.IssueInput{Status: testutil.Ptr("closed")})
	wantStatus(t, err, http.StatusBadRequest)
}

func TestUpdatePermissions(t *testing.T) {
	h := testutil.NewHarness(baseTime)
	ctx := context.Background()
	owner := h.SeedUser("Olive", domain.RoleClient)
	other := h.SeedUser("Otto", domain.RoleClient)
	manager := h.SeedUser("Mona", domain.RoleManager)
	assigned := h.SeedUser("Tina", domain.RoleTechnician)
	stranger := h.SeedUser("Theo", domain.RoleTechnician)
	issue := h.SeedIssue(&domain.Issue{Title: "x", UserID: owner.ID.Hex(), AssignedTo: assigned.ID.Hex()})

	tests := []struct {
		name   string
		caller *domain.Caller
		status int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"other client", testutil.Caller(other), http.StatusForbidden},
		{"unassigned technician", testutil.Caller(stranger), http.StatusForbidden},
		{"owner", testutil.Caller(owner), http.StatusOK},
		{"assigned technician", testutil.Caller(assigned), http.StatusOK},
		{"manager", testutil.Caller(manager), http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.IssueSvc.Update(ctx, tc.caller, issue.ID.Hex(), service.IssueInput{Title: testutil.Ptr("edited by " + tc.name)})
			if tc.status == http.StatusOK {
				if err != nil {
					t.Fatal(err)
				}
				return
			}
			wantStatus(t, err, tc.status)
		})
	}

	stored, err := h.IssueSvc.Get(ctx, issue.ID.Hex())
	if err != nil {
		t.Fatal(err)
	}
	if stored.Title != "edited by manager" {
		t.Errorf("title = %q", stored.Title)
	}
}

func TestUpdateStatusGuards(t *testing.T) {
	h := testutil.NewHarness(baseTime)
	ctx := context.Background()
	owner := h.SeedUser("Olive", domain.RoleClient)
	tech := h.SeedUser("Tina", domain.RoleTechnician)
	admin := h.SeedUser("Ada", domain.RoleAdmin)

	tests := []struct {
		name   string
		caller *domain.User
		from   domain.IssueStatus
		to     string
		status int
	}{
		{"technician cannot clear overdue", tech, domain.IssueStatusOverdue, "COMPLETE", http.StatusForbidden},
		{"admin cannot clear overdue", admin, domain.IssueStatusOverdue, "IN PROGRESS", http.StatusConflict},
		{"client cannot approve", owner, domain.IssueStatusPending, "APPROVED", http.StatusForbidden},
		{"admin cannot approve directly", admin, domain.IssueStatusPending, "APPROVED", http.StatusBadRequest},
		{"admin cannot complete directly", admin, domain.IssueStatusInProgress, "COMPLETE", http.StatusBadRequest},
		{"technician cannot start work", tech, domain.IssueStatusPending, "IN PROGRESS", http.StatusForbidden},
		{"unchanged status passes", tech, domain.IssueStatusOverdue, "OVERDUE", http.StatusOK},
		{"admin moves back to pending", admin, domain.IssueStatusInProgress, "PENDING", http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			issue := h.SeedIssue(&domain.Issue{
				Title:      "x",
				Status:     tc.from,
				UserID:     owner.ID.Hex(),
				AssignedTo: tech.ID.Hex(),
			})
			updated, err := h.IssueSvc.Update(ctx, testutil.Caller(tc.caller), issue.ID.Hex(), service.IssueInput{Status: testutil.Ptr(tc.to)})
			if tc.status != http.StatusOK {
				wantStatus(t, err, tc.status)
				stored, _ := h.IssueSvc.Get(ctx, issue.ID.Hex())
				if stored.Status != tc.from || stored.Approved {
					t.Errorf("stored status = %q approved=%v, want %q untouched", stored.Status, stored.Approved, tc.from)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if string(updated.Status) != tc.to {
				t.Errorf("status = %q, want %q", updated.Status, tc.to)
			}
		})
	}
}

func TestGetVisibleScoping(t *testing.T) {
	h := testutil.NewHarness(baseTime)
	ctx := context.Background()
	owner := h.SeedUser("Olive", domain.RoleClient)
	other := h.SeedUser("Otto", domain.RoleClient)
	tech := h.SeedUser("Tina", domain.RoleTechnician)
	stranger := h.SeedUser("Theo", domain.RoleTechnician)
	manager := h.SeedUser("Mona", domain.RoleManager)
	prop := h.SeedProperty("A", owner.ID.Hex())
	issue := h.SeedIssue(&domain.Issue{Title: "leak", PropertyID: prop.ID.Hex(), AssignedTo: tech.ID.Hex()})
	filed := h.SeedIssue(&domain.Issue{Title: "filed elsewhere", UserID: other.ID.Hex()})

	tests := []struct {
		name   string
		caller *domain.Caller
		id     string
		status int
	}{
		{"anonymous", nil, issue.ID.Hex(), http.StatusUnauthorized},
		{"property owner", testutil.Caller(owner), issue.ID.Hex(), http.StatusOK},
		{"other client", testutil.Caller(other), issue.ID.Hex(), http.StatusForbidden},
		{"filing client", testutil.Caller(other), filed.ID.Hex(), http.StatusOK},
		{"assigned technician", testutil.Caller(tech), issue.ID.Hex(), http.StatusOK},
		{"unassigned technician", testutil.Caller(stranger), issue.ID.Hex(), http.StatusForbidden},
		{"manager", testutil.Caller(manager), issue.ID.Hex(), http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := h.IssueSvc.GetVisible(ctx, tc.caller, tc.id)
			if tc.status != http.StatusOK {
				wantStatus(t, err, tc.status)
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got.ID.Hex() != tc.id {
				t.Errorf("got issue %s, want %s", got.ID.Hex(), tc.id)
			}
		})
	}
}

func TestGetErrors(t *testing.T) {
	h := testutil.NewHarness(baseTime)
	_, err := h.IssueSvc.Get(context.Background(), "bad")
	wantStatus(t, err, http.StatusBadRequest)
	_, err = h.IssueSvc.Get(context.Background(), "65f000000000000000000001")
	wantStatus(t, err, http.StatusNotFound)
}

func TestBeforeEvidenceTransition(t *testing.T) {
	tests := []struct {
		name string
		from domain.IssueStatus
		want domain.IssueStatus
	}{
		{"pending starts work", domain.IssueStatusPending, domain.IssueStatusInProgress},
		{"approved unchanged", domain.IssueStatusApproved, domain.IssueStatusApproved},
		{"complete unchanged", domain.IssueStatusComplete, domain.IssueStatusComplete},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := testutil.NewHarness(baseTime)
			issue := h.SeedIssue(&domain.Issue{Title: "x", Status: tc.from})
			got, err := h.IssueSvc.RecordBefore(context.Background(), issue.ID.Hex(), service.BeforeEvidence{FixTime: 30, Image: "/uploads/a.jpg"})
			if err != nil {
				t.Fatal(err)
			}
			if got.Status != tc.want {
				t.Errorf("status = %q, want %q", got.Status, tc.want)
			}
			if got.FixDeadline == nil || !got.FixDeadline.Equal(baseTime.Add(30*time.Minute)) {
				t.Errorf("fixDeadline = %v", got.FixDeadline)
			}
		})
	}
}

func TestBeforeEvidenceRequiresFixTime(t *testing.T) {
	h := testutil.NewHarness(baseTime)
	issue := h.SeedIssue(&domain.Issue{Title: "x"})
	_, err := h.IssueSvc.RecordBefore(context.Background(), issue.ID.Hex(), service.BeforeEvidence{})
	wantStatus(t, err, http.StatusBadRequest)
}

func TestAfterEvidenceOutcome(t *testing.T) {
	tests := []struct {
		name        string
		elapsed     time.Duration
		want        domain.IssueStatus
		wantOverdue bool
	}{
		{"before deadline", 10 * time.Minute, domain.IssueStatusComplete, false},
		{"at deadline", 30 * time.Minute, domain.IssueStatusComplete, false},
		{"after deadline", 31 * time.Minute, domain.IssueStatusOverdue, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := testutil.NewHarness(baseTime)
			ctx := context.Background()
			issue := h.SeedIssue(&domain.Issue{Title: "x"})
			if _, err := h.IssueSvc.RecordBefore(ctx, issue.ID.Hex(), service.BeforeEvidence{FixTime: 30}); err != nil {
				t.Fatal(err)
			}
			h.Advance(tc.elapsed)
			got, err := h.IssueSvc.RecordAfter(ctx, nil, issue.ID.Hex(), service.AfterEvidence{Feedback: "done"})
			if err != nil {
				t.Fatal(err)
			}
			if got.Status != tc.want || got.Overdue != tc.wantOverdue {
				t.Errorf("status = %q overdue = %v", got.Status, got.Overdue)
			}
		})
	}
}

func TestApproveDeclineResubmit(t *testing.T) {
	h := testutil.NewHarness(baseTime)
	ctx := context.Background()
	client := h.SeedUser("Cora", domain.RoleClient)
	manager := testutil.Caller(h.SeedUser("Max", domain.RoleManager))
	issue := h.SeedIssue(&domain.Issue{Title: "x", UserID: client.ID.Hex()})
	id := issue.ID.Hex()

	if _, err := h.IssueSvc.Approve(ctx, testutil.Caller(client), id); err == nil {
		t.Fatal("client approved an issue")
	}
	declined, err := h.IssueSvc.Decline(ctx, manager, id, "  duplicate ")
	if err != nil {
		t.Fatal(err)
	}
	if declined.Status != domain.IssueStatusDeclined || declined.DeclineReason != "duplicate" {
		t.Errorf("declined = %+v", declined)
	}
	_, err = h.IssueSvc.Approve(ctx, manager, id)
	wantStatus(t, err, http.StatusConflict)

	stranger := testutil.Caller(h.SeedUser("Stan", domain.RoleClient))
	_, err = h.IssueSvc.Resubmit(ctx, stranger, id)
	wantStatus(t, err, http.StatusForbidden)

	again, err := h.IssueSvc.Resubmit(ctx, testutil.Caller(client), id)
	if err != nil {
		t.Fatal(err)
	}
	if again.Status != domain.IssueStatusPending || again.Rejected || !again.Resubmitted {
		t.Errorf("resubmitted = %+v", again)
	}
	if _, err := h.IssueSvc.Approve(ctx, manager, id); err != nil {
		t.Errorf("approve after resubmit: %v", err)
	}
}

func TestDeletePermissions(t *testing.T) {
	h := testutil.NewHarness(baseTime)
	ctx := context.Background()
	owner := h.SeedUser("Olive", domain.RoleClient)
	other := h.SeedUser("Otto", domain.RoleClient)
	issue := h.SeedIssue(&domain.Issue{Title: "x", UserID: owner.ID.Hex()})

	wantStatus(t, h.IssueSvc.Delete(ctx, nil, issue.ID.Hex()), http.StatusUnauthorized)
	wantStatus(t, h.IssueSvc.Delete(ctx, testutil.Caller(other), issue.ID.Hex()), http.StatusForbidden)
	if err := h.IssueSvc.Delete(ctx, testutil.Caller(owner), issue.ID.Hex()); err != nil {
		t.Fatal(err)
	}
	if _, err := h.Issues.GetByID(ctx, issue.ID.Hex()); !apperrors.IsNotFound(err) {
		t.Errorf("issue still present: %v", err)
	}
}

func TestListAssignedMatchesAssigneeLog(t *testing.T) {
	h := testutil.NewHarness(baseTime)
	ctx := context.Background()
	t1 := h.SeedUser("Tom One", domain.RoleTechnician)
	t2 := h.SeedUser("Tia Two", domain.RoleTechnician)
	logged := h.SeedIssue(&domain.Issue{Title: "logged", AssignedTo: t2.ID.Hex()})
	if err := h.Issues.Assign(ctx, logged.ID.Hex(), repository.IssueAssignment{AssignedTo: t2.ID.Hex()}, domain.Assignee{ID: t1.ID.Hex()}); err != nil {
		t.Fatal(err)
	}
	h.SeedIssue(&domain.Issue{Title: "other", AssignedTo: "65f0000000000000000000ff"})

	got, err := h.IssueSvc.ListAssigned(ctx, testutil.Caller(t1), t1.ID.Hex())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Title != "logged" {
		t.Errorf("assigned to t1 = %+v", got)
	}
}

func TestListAssignedScoping(t *testing.T) {
	h := testutil.NewHarness(baseTime)
	ctx := context.Background()
	tech := h.SeedUser("Tina", domain.RoleTechnician)
	other := h.SeedUser("Theo", domain.RoleTechnician)
	client := h.SeedUser("Cid", domain.RoleClient)
	manager := h.SeedUser("Mona", domain.RoleManager)

	tests := []struct {
		name   string
		caller *domain.Caller
		techID string
		status int
	}{
		{"anonymous", nil, tech.ID.Hex(), http.StatusUnauthorized},
		{"malformed id", testutil.Caller(manager), "T1", http.StatusBadRequest},
		{"client", testutil.Caller(client), tech.ID.Hex(), http.StatusForbidden},
		{"another technician", testutil.Caller(other), tech.ID.Hex(), http.StatusForbidden},
		{"self", testutil.Caller(tech), tech.ID.Hex(), http.StatusOK},
		{"manager", testutil.Caller(manager), tech.ID.Hex(), http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.IssueSvc.ListAssigned(ctx, tc.caller, tc.techID)
			if tc.status == http.StatusOK {
				if err != nil {
					t.Fatal(err)
				}
				return
			}
			wantStatus(t, err, tc.status)
		})
	}
}

func TestSummaryCountsByStatus(t *testing.T) {
	h := testutil.NewHarness(baseTime)
	h.SeedIssue(&domain.Issue{Title: "a"})
	h.SeedIssue(&domain.Issue{Title: "b"})
	h.SeedIssue(&domain.Issue{Title: "c", Status: domain.IssueStatusComplete})

	got, err := h.IssueSvc.Summary(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got.Total != 3 || got.ByStatus[string(domain.IssueStatusPending)] != 2 {
		t.Errorf("summary = %+v", got)
	}
}
