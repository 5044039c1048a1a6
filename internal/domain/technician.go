package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InternalTechnician is staff attached to a property. It has no account of
// its own; a User with the same email or phone is treated as the same person.
type InternalTechnician struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name       string             `bson:"name" json:"name"`
	Email      string             `bson:"email,omitempty" json:"email,omitempty"`
	Phone      string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Specialty  string             `bson:"specialty,omitempty" json:"specialty,omitempty"`
	Status     string             `bson:"status,omitempty" json:"status,omitempty"`
	PropertyID string             `bson:"propertyId,omitempty" json:"propertyId,omitempty"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`

	LinkedUserID string `bson:"-" json:"linkedUserId,omitempty"`
}

// Technician is an external contractor record.
type Technician struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email,omitempty" json:"email,omitempty"`
	Phone     string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Specialty string             `bson:"specialty,omitempty" json:"specialty,omitempty"`
	Status    string             `bson:"status,omitempty" json:"status,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// TechnicianStatusActive is the status of technicians available for work.
const TechnicianStatusActive = "active"
