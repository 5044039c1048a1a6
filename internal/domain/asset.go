package domain

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AssetLocation places an asset within a property.
type AssetLocation struct {
	Building string     `bson:"building,omitempty" json:"building,omitempty"`
	Blocks   StringList `bson:"block,omitempty" json:"block"`
}

// Asset is a piece of equipment tracked for maintenance.
type Asset struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Type         string             `bson:"type,omitempty" json:"type,omitempty"`
	SerialNumber string             `bson:"serialNumber,omitempty" json:"serialNumber,omitempty"`
	Status       string             `bson:"status,omitempty" json:"status,omitempty"`
	Quantity     int                `bson:"quantity" json:"quantity"`
	PropertyID   string             `bson:"propertyId,omitempty" json:"propertyId,omitempty"`
	Location     AssetLocation      `bson:"location" json:"location"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// SparePart is stock held against an asset.
type SparePart struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AssetID    string             `bson:"assetId" json:"assetId"`
	Name       string             `bson:"name" json:"name"`
	PartNumber string             `bson:"partNumber,omitempty" json:"partNumber,omitempty"`
	Quantity   int                `bson:"quantity" json:"quantity"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
}

// AssetMovement records an asset changing location.
type AssetMovement struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AssetID   string             `bson:"assetId" json:"assetId"`
	From      string             `bson:"from,omitempty" json:"from,omitempty"`
	To        string             `bson:"to" json:"to"`
	MovedBy   string             `bson:"movedBy,omitempty" json:"movedBy,omitempty"`
	Notes     string             `bson:"notes,omitempty" json:"notes,omitempty"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
}

// MergeBlocks combines existing and incoming block names. Incoming entries
// are unioned with existing ones unless replace is set, and remove entries
// are dropped afterwards. Order of first appearance is kept.
func MergeBlocks(existing, incoming, remove []string, replace bool) []string {
	var base []string
	if !replace {
		base = append(base, flattenBlocks(existing)...)
	}
	base = append(base, flattenBlocks(incoming)...)

	drop := make(map[string]struct{}, len(remove))
	for _, r := range flattenBlocks(remove) {
		drop[strings.ToLower(r)] = struct{}{}
	}

	seen := make(map[string]struct{}, len(base))
	out := make([]string, 0, len(base))
	for _, b := range base {
		key := strings.ToLower(b)
		if _, skip := drop[key]; skip {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, b)
	}
	return out
}

func flattenBlocks(in []string) []string {
	var out []string
	for _, s := range in {
		out = append(out, SplitList(s)...)
	}
	return out
}
