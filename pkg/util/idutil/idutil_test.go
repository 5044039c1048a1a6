package idutil_test

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/spec-kit/maintenance-service/pkg/util/idutil"
)

func TestNormalize(t *testing.T) {
	oid := primitive.NewObjectID()
	hex := oid.Hex()

	tests := []struct {
		name   string
		input  any
		want   string
		wantOK bool
	}{
		{"nil", nil, "", false},
		{"empty string", "   ", "", false},
		{"plain string", hex, hex, true},
		{"uppercase hex", "65A1B2C3D4E5F60718293A4B", "65a1b2c3d4e5f60718293a4b", true},
		{"object id", oid, hex, true},
		{"zero object id", primitive.NilObjectID, "", false},
		{"id wrapper", map[string]any{"id": hex}, hex, true},
		{"underscore id wrapper", primitive.M{"_id": oid}, hex, true},
		{"oid wrapper", map[string]any{"$oid": hex}, hex, true},
		{"nested wrapper", map[string]any{"_id": map[string]any{"$oid": hex}}, hex, true},
		{"bson.D wrapper", primitive.D{{Key: "id", Value: hex}}, hex, true},
		{"object literal", `ObjectId("` + hex + `")`, hex, true},
		{"non hex string kept", "tech-1", "tech-1", true},
		{"map without id", map[string]any{"name": "x"}, "", false},
		{"number", 42, "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := idutil.Normalize(tc.input)
			if ok != tc.wantOK {
				t.Fatalf("Normalize(%v) ok = %v, want %v", tc.input, ok, tc.wantOK)
			}
			if got != tc.want {
				t.Errorf("Normalize(%v) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	oid := primitive.NewObjectID()
	other := primitive.NewObjectID()

	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"same string", oid.Hex(), oid.Hex(), true},
		{"string vs object id", oid.Hex(), oid, true},
		{"wrapper vs string", map[string]any{"id": oid.Hex()}, oid.Hex(), true},
		{"different ids", oid, other, false},
		{"nil never matches", nil, nil, false},
		{"empty never matches", "", "", false},
		{"prefix is not a match", oid.Hex()[:12], oid.Hex(), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := idutil.Equal(tc.a, tc.b); got != tc.want {
				t.Errorf("Equal(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestIsHex(t *testing.T) {
	cases := map[string]bool{
		"65a1b2c3d4e5f60718293a4b":  true,
		"65a1b2c3d4e5f60718293a4":   false,
		"65a1b2c3d4e5f60718293a4bz": false,
		"zza1b2c3d4e5f60718293a4b":  false,
		"":                          false,
	}
	for in, want := range cases {
		if got := idutil.IsHex(in); got != want {
			t.Errorf("IsHex(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNormalizeDocument(t *testing.T) {
	id := primitive.NewObjectID()
	owner := primitive.NewObjectID()
	tech := primitive.NewObjectID()

	doc := primitive.M{
		"_id":        id.Hex(),
		"title":      "Leak",
		"userId":     primitive.M{"id": owner.Hex(), "name": "Alice"},
		"assignedTo": tech,
		"propertyId": primitive.M{"$oid": owner.Hex()},
		"assignees": primitive.A{
			primitive.M{"id": tech.Hex(), "name": "Bob"},
		},
		"createdAt": primitive.M{"$date": "2024-03-01T10:00:00Z"},
	}

	out := idutil.NormalizeDocument(doc)

	if got, ok := out["_id"].(primitive.ObjectID); !ok || got != id {
		t.Fatalf("_id = %#v, want ObjectID %s", out["_id"], id.Hex())
	}
	if out["userId"] != owner.Hex() {
		t.Errorf("userId = %#v, want %s", out["userId"], owner.Hex())
	}
	if out["assignedTo"] != tech.Hex() {
		t.Errorf("assignedTo = %#v, want %s", out["assignedTo"], tech.Hex())
	}
	if out["propertyId"] != owner.Hex() {
		t.Errorf("propertyId = %#v, want %s", out["propertyId"], owner.Hex())
	}

	assignees, ok := out["assignees"].(primitive.A)
	if !ok || len(assignees) != 1 {
		t.Fatalf("assignees = %#v", out["assignees"])
	}
	entry, ok := assignees[0].(primitive.M)
	if !ok {
		t.Fatalf("assignee entry collapsed: %#v", assignees[0])
	}
	if entry["id"] != tech.Hex() || entry["name"] != "Bob" {
		t.Errorf("assignee entry = %#v", entry)
	}

	created, ok := out["createdAt"].(time.Time)
	if !ok || !created.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("createdAt = %#v", out["createdAt"])
	}
}
