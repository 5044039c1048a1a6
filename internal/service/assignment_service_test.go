package service_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/events"
	"github.com/spec-kit/maintenance-service/internal/mailer"
	"github.com/spec-kit/maintenance-service/internal/service"
	"github.com/spec-kit/maintenance-service/internal/testutil"
)

func TestAssignToTechAccount(t *testing.T) {
	h := testutil.NewHarness(baseTime)
	ctx := context.Background()
	manager := h.SeedUser("Mia Manager", domain.RoleManager)
	tech := h.SeedUser("Tom Tech", domain.RoleTechnician)
	issue := h.SeedIssue(&domain.Issue{Title: "Broken lock"})

	got, err := h.AssignmentSvc.AssignToTech(ctx, testutil.Caller(manager), issue.ID.Hex(), service.AssignInput{
		TechnicianID: tech.ID.Hex(),
		Priority:     "high",
		Status:       "in_progress",
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.AssignedTo != tech.ID.Hex() || got.Status != domain.IssueStatusInProgress || got.Priority != "high" {
		t.Errorf("issue = %+v", got)
	}

	stored, _ := h.Issues.GetByID(ctx, issue.ID.Hex())
	if len(stored.Assignees) != 1 {
		t.Fatalf("assignees = %+v", stored.Assignees)
	}
	a := stored.Assignees[0]
	if a.Kind != domain.AssigneeKindUser || a.AssignedBy != manager.ID.Hex() || !a.AssignedAt.Equal(baseTime) {
		t.Errorf("snapshot = %+v", a)
	}

	if sent := h.Mailer.OfKind(mailer.KindIssueAssigned); len(sent) != 1 || sent[0].To[0] != tech.Email || sent[0].Data.AssignedBy != "Mia Manager" {
		t.Errorf("assignment mail = %+v", sent)
	}
	inbox, _ := h.NotifySvc.List(ctx, testutil.Caller(tech))
	if len(inbox) != 1 || inbox[0].Title != "New Issue Assigned" {
		t.Errorf("tech inbox = %+v", inbox)
	}
}

func TestAssignToExternalTechnician(t *testing.T) {
	h := testutil.NewHarness(baseTime)
	ctx := context.Background()
	admin := h.SeedUser("Ada Admin", domain.RoleAdmin)
	ext := &domain.Technician{Name: "Plumbing Co", Email: "jobs@plumbing.example", Status: domain.TechnicianStatusActive}
	if err := h.Technicians.Create(ctx, ext); err != nil {
		t.Fatal(err)
	}
	issue := h.SeedIssue(&domain.Issue{Title: "Blocked drain"})

	got, err := h.AssignmentSvc.AssignToTech(ctx, testutil.Caller(admin), issue.ID.Hex(), service.AssignInput{TechnicianID: ext.ID.Hex()})
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.IssueStatusPending {
		t.Errorf("status changed to %q without a requested status", got.Status)
	}
	if n := len(got.Assignees); n != 1 || got.Assignees[0].Kind != domain.AssigneeKindExternal {
		t.Errorf("assignees = %+v", got.Assignees)
	}
	if len(h.Notifications.All()) != 0 {
		t.Error("external technicians have no inbox")
	}
	if len(h.Mailer.OfKind(mailer.KindIssueAssigned)) != 1 {
		t.Error("external technician not emailed")
	}
}

func TestAssignToTechErrors(t *testing.T) {
	h := testutil.NewHarness(baseTime)
	ctx := context.Background()
	manager := testutil.Caller(h.SeedUser("Max", domain.RoleManager))
	client := h.SeedUser("Cat", domain.RoleClient)
	issue := h.SeedIssue(&domain.Issue{Title: "x"})
	missing := h.SeedIssue(&domain.Issue{Title: "gone"})
	if err := h.Issues.Delete(ctx, missing.ID.Hex()); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		caller *domain.Caller
		issue  string
		input  service.AssignInput
		status int
	}{
		{"client forbidden", testutil.Caller(client), issue.ID.Hex(), service.AssignInput{TechnicianID: client.ID.Hex()}, http.StatusForbidden},
		{"bad technician id", manager, issue.ID.Hex(), service.AssignInput{TechnicianID: "x"}, http.StatusBadRequest},
		{"bad status", manager, issue.ID.Hex(), service.AssignInput{TechnicianID: client.ID.Hex(), Status: "sleeping"}, http.StatusBadRequest},
		{"unknown issue", manager, missing.ID.Hex(), service.AssignInput{TechnicianID: client.ID.Hex()}, http.StatusNotFound},
		{"non-technician user", manager, issue.ID.Hex(), service.AssignInput{TechnicianID: client.ID.Hex()}, http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.AssignmentSvc.AssignToTech(ctx, tc.caller, tc.issue, tc.input)
			wantStatus(t, err, tc.status)
		})
	}
}

func TestAssignToInternalUsesLinkedAccount(t *testing.T) {
	h := testutil.NewHarness(baseTime)
	ctx := context.Background()
	owner := h.SeedUser("Olga Owner", domain.RoleClient)
	prop := h.SeedProperty("Hill", owner.ID.Hex())
	account := h.SeedUser("Ivan Staff", domain.RoleInternal)
	linked := h.SeedInternal("Ivan", account.Email, prop.ID.Hex())
	unlinked := h.SeedInternal("Una", "una@elsewhere.example", prop.ID.Hex())
	issue := h.SeedIssue(&domain.Issue{Title: "Light out", UserID: owner.ID.Hex(), PropertyID: prop.ID.Hex()})

	got, err := h.AssignmentSvc.AssignToInternal(ctx, testutil.Caller(owner), issue.ID.Hex(), linked.ID.Hex())
	if err != nil {
		t.Fatal(err)
	}
	if got.AssignedTo != account.ID.Hex() || got.InternalTechnicianID != linked.ID.Hex() {
		t.Errorf("assignedTo=%q internal=%q", got.AssignedTo, got.InternalTechnicianID)
	}
	if got.Status != domain.IssueStatusInProgress {
		t.Errorf("status = %q", got.Status)
	}
	inbox, _ := h.NotifySvc.List(ctx, testutil.Caller(account))
	if len(inbox) != 1 {
		t.Errorf("linked account inbox = %d", len(inbox))
	}

	got, err = h.AssignmentSvc.AssignToInternal(ctx, testutil.Caller(owner), issue.ID.Hex(), unlinked.ID.Hex())
	if err != nil {
		t.Fatal(err)
	}
	if got.AssignedTo != unlinked.ID.Hex() {
		t.Errorf("unlinked assignedTo = %q", got.AssignedTo)
	}
	if n := len(got.Assignees); n != 2 {
		t.Errorf("assignee log = %d entries, want 2", n)
	}
	if types := h.Dispatcher.Types(); len(types) != 2 || types[1] != events.EventIssueAssigned {
		t.Errorf("events = %v", types)
	}
}

func TestAssignToInternalPermissions(t *testing.T) {
	h := testutil.NewHarness(baseTime)
	ctx := context.Background()
	owner := h.SeedUser("Olga", domain.RoleClient)
	other := h.SeedUser("Otto", domain.RoleClient)
	tech := h.SeedInternal("Ivy", "ivy@example.com", "")
	issue := h.SeedIssue(&domain.Issue{Title: "x", UserID: owner.ID.Hex()})

	_, err := h.AssignmentSvc.AssignToInternal(ctx, nil, issue.ID.Hex(), tech.ID.Hex())
	wantStatus(t, err, http.StatusUnauthorized)

	_, err = h.AssignmentSvc.AssignToInternal(ctx, testutil.Caller(other), issue.ID.Hex(), tech.ID.Hex())
	wantStatus(t, err, http.StatusForbidden)

	_, err = h.AssignmentSvc.AssignToInternal(ctx, testutil.Caller(owner), issue.ID.Hex(), issue.ID.Hex())
	wantStatus(t, err, http.StatusNotFound)
}
