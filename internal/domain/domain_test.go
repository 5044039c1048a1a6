package domain_test

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

func TestParseRole(t *testing.T) {
	tests := map[string]domain.Role{
		"ADMIN":      domain.RoleAdmin,
		"admin":      domain.RoleAdmin,
		"MANAGER":    domain.RoleManager,
		"TECH":       domain.RoleTechnician,
		"Technician": domain.RoleTechnician,
		"internal":   domain.RoleInternal,
		"CLIENT":     domain.RoleClient,
	}
	for in, want := range tests {
		if got := domain.ParseRole(in); got != want {
			t.Errorf("ParseRole(%q) = %q, want %q", in, got, want)
		}
	}
	if domain.ParseRole("janitor").Valid() {
		t.Error("unknown role should not be valid")
	}
}

func TestIsPreventive(t *testing.T) {
	tests := []struct {
		name                 string
		title, typ, category string
		tags                 []string
		want                 bool
	}{
		{"title", "Preventive check of pumps", "", "", nil, true},
		{"type", "Pump", "PREVENTIVE", "", nil, true},
		{"category", "Pump", "", "preventive maintenance", nil, true},
		{"tag", "Pump", "", "", []string{"Preventive"}, true},
		{"none", "Broken pump", "repair", "plumbing", []string{"urgent"}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := domain.IsPreventive(tc.title, tc.typ, tc.category, tc.tags); got != tc.want {
				t.Errorf("IsPreventive = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestEnsurePreventiveTag(t *testing.T) {
	got := domain.EnsurePreventiveTag([]string{"urgent"})
	if !reflect.DeepEqual(got, []string{"urgent", "preventive"}) {
		t.Errorf("EnsurePreventiveTag = %v", got)
	}
	already := []string{"Preventive"}
	if got := domain.EnsurePreventiveTag(already); len(got) != 1 {
		t.Errorf("tag duplicated: %v", got)
	}
}

func TestParseIssueStatus(t *testing.T) {
	if st, ok := domain.ParseIssueStatus("in_progress"); !ok || st != domain.IssueStatusInProgress {
		t.Errorf("in_progress = %q, %v", st, ok)
	}
	if _, ok := domain.ParseIssueStatus("closed"); ok {
		t.Error("closed should be rejected")
	}
}

func TestAdvanceNextDate(t *testing.T) {
	base := time.Date(2024, 1, 31, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		freq     string
		interval int
		want     time.Time
	}{
		{"daily", 2, base.AddDate(0, 0, 2)},
		{"weekly", 1, base.AddDate(0, 0, 7)},
		{"Weekly", 3, base.AddDate(0, 0, 21)},
		{"monthly", 1, base.AddDate(0, 1, 0)},
		{"quarterly", 5, base.AddDate(0, 0, 5)},
		{"daily", 0, base.AddDate(0, 0, 1)},
		{"weekly", -4, base.AddDate(0, 0, 7)},
	}
	for _, tc := range tests {
		if got := domain.AdvanceNextDate(base, tc.freq, tc.interval); !got.Equal(tc.want) {
			t.Errorf("AdvanceNextDate(%s, %d) = %v, want %v", tc.freq, tc.interval, got, tc.want)
		}
	}
}

func TestScheduleIsOverdue(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	cases := []struct {
		name string
		s    domain.MaintenanceSchedule
		want bool
	}{
		{"past pending", domain.MaintenanceSchedule{NextDate: &past, Status: "Scheduled"}, true},
		{"past completed", domain.MaintenanceSchedule{NextDate: &past, Status: "Completed"}, false},
		{"future", domain.MaintenanceSchedule{NextDate: &future}, false},
		{"no date", domain.MaintenanceSchedule{}, false},
	}
	for _, tc := range cases {
		if got := tc.s.IsOverdue(now); got != tc.want {
			t.Errorf("%s: IsOverdue = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestStringListJSON(t *testing.T) {
	var fromString domain.StringList
	if err := json.Unmarshal([]byte(`"a, b;c|  "`), &fromString); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual([]string(fromString), []string{"a", "b", "c"}) {
		t.Errorf("from string = %v", fromString)
	}

	var fromArray domain.StringList
	if err := json.Unmarshal([]byte(`["x","y;z"]`), &fromArray); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual([]string(fromArray), []string{"x", "y", "z"}) {
		t.Errorf("from array = %v", fromArray)
	}
}

func TestStringListBSON(t *testing.T) {
	type doc struct {
		Employees domain.StringList `bson:"employees"`
	}

	raw, err := bson.Marshal(bson.M{"employees": "t1,t2"})
	if err != nil {
		t.Fatal(err)
	}
	var legacy doc
	if err := bson.Unmarshal(raw, &legacy); err != nil {
		t.Fatalf("decode legacy string: %v", err)
	}
	if !reflect.DeepEqual([]string(legacy.Employees), []string{"t1", "t2"}) {
		t.Errorf("legacy = %v", legacy.Employees)
	}

	raw, err = bson.Marshal(bson.M{"employees": bson.A{"t3", "t4"}})
	if err != nil {
		t.Fatal(err)
	}
	var current doc
	if err := bson.Unmarshal(raw, &current); err != nil {
		t.Fatalf("decode array: %v", err)
	}
	if !reflect.DeepEqual([]string(current.Employees), []string{"t3", "t4"}) {
		t.Errorf("current = %v", current.Employees)
	}
}

func TestMergeBlocks(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		incoming []string
		remove   []string
		replace  bool
		want     []string
	}{
		{"union", []string{"A", "B"}, []string{"b", "C"}, nil, false, []string{"A", "B", "C"}},
		{"replace", []string{"A", "B"}, []string{"C"}, nil, true, []string{"C"}},
		{"remove", []string{"A", "B"}, nil, []string{"a"}, false, []string{"B"}},
		{"legacy string", []string{"A;B|C"}, []string{"D"}, nil, false, []string{"A", "B", "C", "D"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := domain.MergeBlocks(tc.existing, tc.incoming, tc.remove, tc.replace)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("MergeBlocks = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestPricing(t *testing.T) {
	if p, ok := domain.Price(domain.PlanProfessional, domain.CycleYearly); !ok || p != 799.99 {
		t.Errorf("professional yearly = %v, %v", p, ok)
	}
	if _, ok := domain.Price("gold", domain.CycleMonthly); ok {
		t.Error("unknown plan should have no price")
	}
	features := domain.PlanFeatures(domain.PlanBasic)
	features[0] = "mutated"
	if domain.PlanFeatures(domain.PlanBasic)[0] != "Dashboard" {
		t.Error("PlanFeatures should return a copy")
	}
}

func TestNextBillingDate(t *testing.T) {
	from := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	if got := domain.NextBillingDate(from, domain.CycleWeekly); !got.Equal(from.AddDate(0, 0, 7)) {
		t.Errorf("weekly = %v", got)
	}
	if got := domain.NextBillingDate(from, domain.CycleMonthly); !got.Equal(from.AddDate(0, 1, 0)) {
		t.Errorf("monthly = %v", got)
	}
	if got := domain.NextBillingDate(from, domain.CycleYearly); !got.Equal(from.AddDate(1, 0, 0)) {
		t.Errorf("yearly = %v", got)
	}
}
