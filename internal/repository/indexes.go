package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func asc(keys ...string) bson.D {
	d := make(bson.D, 0, len(keys))
	for _, k := range keys {
		d = append(d, bson.E{Key: k, Value: 1})
	}
	return d
}

func named(keys bson.D, name string) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetName(name)}
}

var collectionIndexes = map[string][]mongo.IndexModel{
	"issues": {
		named(asc("userId"), "idx_issues_user"),
		named(asc("propertyId"), "idx_issues_property"),
		named(asc("assetId"), "idx_issues_asset"),
		named(asc("assignedTo"), "idx_issues_assigned_to"),
		named(asc("assignees.id"), "idx_issues_assignees"),
		named(bson.D{{Key: "createdAt", Value: -1}}, "idx_issues_created_desc"),
	},
	"users": {
		named(asc("email"), "idx_users_email"),
		named(asc("phone"), "idx_users_phone"),
		named(asc("role", "status"), "idx_users_role_status"),
	},
	"properties": {
		named(asc("userId"), "idx_properties_user"),
		named(asc("clientId"), "idx_properties_client"),
	},
	"assets": {
		named(asc("propertyId"), "idx_assets_property"),
	},
	"spare_parts": {
		named(asc("assetId"), "idx_spare_parts_asset"),
	},
	"asset_movements": {
		named(bson.D{{Key: "assetId", Value: 1}, {Key: "timestamp", Value: -1}}, "idx_movements_asset_time"),
	},
	"internal_technicians": {
		named(asc("email"), "idx_internal_tech_email"),
		named(asc("phone"), "idx_internal_tech_phone"),
		named(asc("propertyId"), "idx_internal_tech_property"),
	},
	"maintenance_schedules": {
		named(asc("routine", "nextDate"), "idx_schedules_routine_next"),
	},
	"maintenance_reminder_logs": {
		named(bson.D{{Key: "scheduleId", Value: 1}, {Key: "sentAt", Value: -1}}, "idx_reminder_logs_schedule_sent"),
	},
	"notifications": {
		named(bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}, "idx_notifications_user_created"),
	},
	"feedback": {
		named(bson.D{{Key: "date", Value: -1}}, "idx_feedback_date"),
	},
}

// EnsureIndexes creates the lookup indexes every store relies on.
// Creating an index that already exists is a no-op.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for collection, models := range collectionIndexes {
		if _, err := db.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("ensure indexes on %s: %w", collection, err)
		}
	}
	return nil
}
