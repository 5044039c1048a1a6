package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

// NotificationRepository manages in-app notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	ListByUser(ctx context.Context, userID string, limit int64) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

type notificationRepository struct {
	store[domain.Notification]
}

// NewNotificationRepository constructs repository.
func NewNotificationRepository(db *mongo.Database, logger *zap.Logger) NotificationRepository {
	return &notificationRepository{store: newStore[domain.Notification](db, "notifications", logger)}
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	stampNew(&n.ID, &n.CreatedAt, nil)
	return r.insert(ctx, n)
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID string, limit int64) ([]domain.Notification, error) {
	return r.findAll(ctx, bson.M{"userId": refIn(userID)}, newestFirst("createdAt", limit))
}

// MarkRead flags one notification. Only the owner's notifications match.
func (r *notificationRepository) MarkRead(ctx context.Context, id, userID string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	filter := byID(oid)
	filter["userId"] = refIn(userID)
	res, err := r.c.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res, err := r.c.UpdateMany(ctx,
		bson.M{"userId": refIn(userID), "read": bson.M{"$ne": true}},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// FeedbackRepository manages client feedback.
type FeedbackRepository interface {
	Create(ctx context.Context, f *domain.Feedback) error
	List(ctx context.Context, limit int64) ([]domain.Feedback, error)
	ListByClient(ctx context.Context, clientID string) ([]domain.Feedback, error)
}

type feedbackRepository struct {
	store[domain.Feedback]
}

// NewFeedbackRepository constructs repository.
func NewFeedbackRepository(db *mongo.Database, logger *zap.Logger) FeedbackRepository {
	return &feedbackRepository{store: newStore[domain.Feedback](db, "feedback", logger)}
}

func (r *feedbackRepository) Create(ctx context.Context, f *domain.Feedback) error {
	stampNew(&f.ID, &f.Date, nil)
	return r.insert(ctx, f)
}

func (r *feedbackRepository) List(ctx context.Context, limit int64) ([]domain.Feedback, error) {
	return r.findAll(ctx, bson.M{}, newestFirst("date", limit))
}

func (r *feedbackRepository) ListByClient(ctx context.Context, clientID string) ([]domain.Feedback, error) {
	return r.findAll(ctx, bson.M{"clientId": refIn(clientID)}, newestFirst("date", 0))
}
