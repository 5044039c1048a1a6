package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

// IssueFilter narrows issue listings. PropertyIDs and AssetIDs are combined
// with OR so an issue matches when it hangs off either.
type IssueFilter struct {
	UserID      string
	AssignedTo  string
	PropertyIDs []string
	AssetIDs    []string
	Status      domain.IssueStatus
	Limit       int64
}

// IssueAssignment carries the fields written together with an assignee snapshot.
type IssueAssignment struct {
	AssignedTo           string
	InternalTechnicianID string
	Status               domain.IssueStatus
	Priority             string
	Deadline             *time.Time
}

// IssueRepository encapsulates issue persistence.
type IssueRepository interface {
	Create(ctx context.Context, issue *domain.Issue) error
	Update(ctx context.Context, issue *domain.Issue) error
	GetByID(ctx context.Context, id string) (*domain.Issue, error)
	List(ctx context.Context, filter IssueFilter) ([]domain.Issue, error)
	Assign(ctx context.Context, id string, assignment IssueAssignment, snapshot domain.Assignee) error
	Delete(ctx context.Context, id string) error
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

var issueClearable = []string{
	"assignedTo", "propertyId", "assetId", "internalTechnicianId",
	"deadline", "fixDeadline", "approvedAt", "approvedBy",
	"rejectedAt", "rejectedBy", "declineReason", "resubmittedAt",
}

type issueRepository struct {
	store[domain.Issue]
}

// NewIssueRepository instantiates repository.
func NewIssueRepository(db *mongo.Database, logger *zap.Logger) IssueRepository {
	return &issueRepository{store: newStore[domain.Issue](db, "issues", logger)}
}

func (r *issueRepository) Create(ctx context.Context, issue *domain.Issue) error {
	stampNew(&issue.ID, &issue.CreatedAt, &issue.UpdatedAt)
	if issue.Assignees == nil {
		issue.Assignees = []domain.Assignee{}
	}
	return r.insert(ctx, issue)
}

// Update writes every field except the assignee log, which only grows
// through Assign.
func (r *issueRepository) Update(ctx context.Context, issue *domain.Issue) error {
	issue.UpdatedAt = time.Now().UTC()
	update, err := replaceFields(issue, []string{"assignees", "createdAt"}, issueClearable...)
	if err != nil {
		return err
	}
	return r.updateByID(ctx, issue.ID, update)
}

func (r *issueRepository) GetByID(ctx context.Context, id string) (*domain.Issue, error) {
	return r.getByID(ctx, id)
}

func (r *issueRepository) List(ctx context.Context, filter IssueFilter) ([]domain.Issue, error) {
	return r.findAll(ctx, issueQuery(filter), newestFirst("createdAt", filter.Limit))
}

func (r *issueRepository) Assign(ctx context.Context, id string, assignment IssueAssignment, snapshot domain.Assignee) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	set := bson.M{
		"assignedTo": assignment.AssignedTo,
		"updatedAt":  time.Now().UTC(),
	}
	if assignment.InternalTechnicianID != "" {
		set["internalTechnicianId"] = assignment.InternalTechnicianID
	}
	if assignment.Status != "" {
		set["status"] = assignment.Status
	}
	if assignment.Priority != "" {
		set["priority"] = assignment.Priority
	}
	if assignment.Deadline != nil {
		set["deadline"] = assignment.Deadline
	}
	return r.updateByID(ctx, oid, bson.M{
		"$set":  set,
		"$push": bson.M{"assignees": snapshot},
	})
}

func (r *issueRepository) Delete(ctx context.Context, id string) error {
	return r.deleteByID(ctx, id)
}

func (r *issueRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cur, err := r.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		Status string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Status] += row.Count
	}
	return out, nil
}

func issueQuery(filter IssueFilter) bson.M {
	query := bson.M{}
	var and []bson.M

	if filter.UserID != "" {
		query["userId"] = refIn(filter.UserID)
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.AssignedTo != "" {
		vals := refValues(filter.AssignedTo)
		and = append(and, bson.M{"$or": bson.A{
			bson.M{"assignedTo": bson.M{"$in": vals}},
			bson.M{"assignees.id": bson.M{"$in": vals}},
		}})
	}

	var scope bson.A
	if len(filter.PropertyIDs) > 0 {
		scope = append(scope, bson.M{"propertyId": refIn(filter.PropertyIDs...)})
	}
	if len(filter.AssetIDs) > 0 {
		scope = append(scope, bson.M{"assetId": refIn(filter.AssetIDs...)})
	}
	if len(scope) > 0 {
		and = append(and, bson.M{"$or": scope})
	}

	if len(and) > 0 {
		query["$and"] = and
	}
	return query
}
