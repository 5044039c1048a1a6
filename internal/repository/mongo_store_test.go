package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/pkg/util/idutil"
)

func legacyIssueDoc(id, owner, tech primitive.ObjectID) bson.M {
	return bson.M{
		"_id":        id,
		"title":      "Leaking pipe",
		"status":     "PENDING",
		"userId":     bson.M{"id": owner.Hex(), "name": "Alice"},
		"assignedTo": bson.M{"$oid": tech.Hex()},
		"fixTime":    "soon",
		"tags":       bson.A{"plumbing"},
		"createdAt":  time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestLegacyDocumentIsConversionError(t *testing.T) {
	doc := legacyIssueDoc(primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID())
	data, err := bson.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	var issue domain.Issue
	err = bson.Unmarshal(data, &issue)
	if err == nil {
		t.Fatal("expected typed decode to fail")
	}
	if !isConversionError(err) {
		t.Fatalf("isConversionError(%v) = false", err)
	}
	if isConversionError(errors.New("connection refused")) {
		t.Error("network error should not trigger survival mode")
	}
}

func TestDecodeLenientKeepsGoodFields(t *testing.T) {
	id, owner, tech := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	var issue domain.Issue
	decodeLenient(idutil.NormalizeDocument(legacyIssueDoc(id, owner, tech)), &issue)

	if issue.ID != id {
		t.Errorf("ID = %s, want %s", issue.ID.Hex(), id.Hex())
	}
	if issue.Title != "Leaking pipe" {
		t.Errorf("Title = %q", issue.Title)
	}
	if issue.UserID != owner.Hex() {
		t.Errorf("UserID = %q, want %s", issue.UserID, owner.Hex())
	}
	if issue.AssignedTo != tech.Hex() {
		t.Errorf("AssignedTo = %q, want %s", issue.AssignedTo, tech.Hex())
	}
	if issue.FixTime != 0 {
		t.Errorf("FixTime = %d, want 0 for an undecodable value", issue.FixTime)
	}
	if len(issue.Tags) != 1 || issue.Tags[0] != "plumbing" {
		t.Errorf("Tags = %v", issue.Tags)
	}
}

func TestIssueQueryAssignedToMatchesBothForms(t *testing.T) {
	tech := primitive.NewObjectID()
	query := issueQuery(IssueFilter{AssignedTo: tech.Hex()})
	and, ok := query["$and"].([]bson.M)
	if !ok || len(and) != 1 {
		t.Fatalf("query = %#v", query)
	}
	or := and[0]["$or"].(bson.A)
	first := or[0].(bson.M)["assignedTo"].(bson.M)["$in"].(bson.A)
	if len(first) != 2 || first[0] != tech.Hex() || first[1] != tech {
		t.Errorf("assignedTo values = %#v", first)
	}
	if _, ok := or[1].(bson.M)["assignees.id"]; !ok {
		t.Error("assignee log not searched")
	}
}

func TestReplaceFieldsUnsetsClearedOptionals(t *testing.T) {
	issue := &domain.Issue{ID: primitive.NewObjectID(), Title: "x", Status: domain.IssueStatusPending}
	update, err := replaceFields(issue, []string{"assignees"}, "approvedAt", "title")
	if err != nil {
		t.Fatal(err)
	}
	set := update["$set"].(bson.M)
	if _, ok := set["_id"]; ok {
		t.Error("_id must not be in $set")
	}
	unset, ok := update["$unset"].(bson.M)
	if !ok {
		t.Fatal("expected $unset")
	}
	if _, ok := unset["approvedAt"]; !ok {
		t.Error("approvedAt should be unset")
	}
	if _, ok := unset["title"]; ok {
		t.Error("title is present and must not be unset")
	}
}

// TestIssueRepositorySurvivalMode runs against a real deployment when
// MONGO_TEST_URI is set.
func TestIssueRepositorySurvivalMode(t *testing.T) {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Disconnect(context.Background()) //nolint:errcheck

	db := client.Database("mms_test_" + primitive.NewObjectID().Hex())
	defer db.Drop(context.Background()) //nolint:errcheck

	id, owner, tech := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	if _, err := db.Collection("issues").InsertOne(ctx, legacyIssueDoc(id, owner, tech)); err != nil {
		t.Fatal(err)
	}

	repo := NewIssueRepository(db, zap.NewNop())

	got, err := repo.GetByID(ctx, id.Hex())
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.UserID != owner.Hex() {
		t.Errorf("UserID = %q", got.UserID)
	}

	list, err := repo.List(ctx, IssueFilter{AssignedTo: tech.Hex()})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].Title != "Leaking pipe" {
		t.Fatalf("List = %+v", list)
	}

	if err := repo.Assign(ctx, id.Hex(), IssueAssignment{AssignedTo: "t2"}, domain.Assignee{ID: "t2", AssignedAt: time.Now()}); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	got, err = repo.GetByID(ctx, id.Hex())
	if err != nil {
		t.Fatal(err)
	}
	if !got.AssignedToID("t2") || len(got.Assignees) != 1 {
		t.Errorf("assignee not recorded: %+v", got.Assignees)
	}

	if _, err := repo.GetByID(ctx, primitive.NewObjectID().Hex()); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("missing issue err = %v", err)
	}
}
