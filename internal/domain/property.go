package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/spec-kit/maintenance-service/pkg/util/idutil"
)

// Property is a managed building or site.
type Property struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Address   string             `bson:"address,omitempty" json:"address,omitempty"`
	Type      string             `bson:"type,omitempty" json:"type,omitempty"`
	UserID    string             `bson:"userId,omitempty" json:"userId,omitempty"`
	ClientID  string             `bson:"clientId,omitempty" json:"clientId,omitempty"`
	Photos    []string           `bson:"photos,omitempty" json:"photos"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// OwnedBy reports whether userID is the property's owner or client.
func (p *Property) OwnedBy(userID string) bool {
	return idutil.Equal(p.UserID, userID) || idutil.Equal(p.ClientID, userID)
}
