package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification is an in-app message for one user.
type Notification struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    string             `bson:"userId" json:"userId"`
	Title     string             `bson:"title" json:"title"`
	Message   string             `bson:"message" json:"message"`
	Type      string             `bson:"type,omitempty" json:"type,omitempty"`
	Link      string             `bson:"link,omitempty" json:"link,omitempty"`
	Read      bool               `bson:"read" json:"read"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// Feedback is a client's comment on completed work.
type Feedback struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ClientID string             `bson:"clientId,omitempty" json:"clientId,omitempty"`
	IssueID  string             `bson:"issueId,omitempty" json:"issueId,omitempty"`
	Message  string             `bson:"message" json:"message"`
	Rating   int                `bson:"rating,omitempty" json:"rating,omitempty"`
	Date     time.Time          `bson:"date" json:"date"`
}
