package domain

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IssueStatus enumerates lifecycle states for issues.
type IssueStatus string

const (
	IssueStatusPending    IssueStatus = "PENDING"
	IssueStatusInProgress IssueStatus = "IN PROGRESS"
	IssueStatusApproved   IssueStatus = "APPROVED"
	IssueStatusDeclined   IssueStatus = "DECLINED"
	IssueStatusComplete   IssueStatus = "COMPLETE"
	IssueStatusOverdue    IssueStatus = "OVERDUE"
)

// PreventiveTag marks issues raised by preventive maintenance.
const PreventiveTag = "preventive"

// UnknownClientName is shown when an issue owner cannot be resolved.
const UnknownClientName = "Unknown"

// Valid reports whether s is a known status.
func (s IssueStatus) Valid() bool {
	switch s {
	case IssueStatusPending, IssueStatusInProgress, IssueStatusApproved,
		IssueStatusDeclined, IssueStatusComplete, IssueStatusOverdue:
		return true
	}
	return false
}

// ParseIssueStatus accepts the canonical values plus underscore and case variants.
func ParseIssueStatus(s string) (IssueStatus, bool) {
	st := IssueStatus(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "_", " ")))
	return st, st.Valid()
}

// AssigneeKind tells which collection an assignee id points into.
type AssigneeKind string

const (
	AssigneeKindUser     AssigneeKind = "user"
	AssigneeKindExternal AssigneeKind = "technician"
	AssigneeKindInternal AssigneeKind = "internal"
)

// Assignee is a snapshot appended every time an issue is assigned.
type Assignee struct {
	ID         string       `bson:"id" json:"id"`
	Name       string       `bson:"name,omitempty" json:"name,omitempty"`
	Email      string       `bson:"email,omitempty" json:"email,omitempty"`
	Kind       AssigneeKind `bson:"kind,omitempty" json:"kind,omitempty"`
	AssignedBy string       `bson:"assignedBy,omitempty" json:"assignedBy,omitempty"`
	AssignedAt time.Time    `bson:"assignedAt" json:"assignedAt"`
}

// Issue is a reported facility problem.
type Issue struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title                string             `bson:"title" json:"title"`
	Description          string             `bson:"description,omitempty" json:"description,omitempty"`
	Location             string             `bson:"location,omitempty" json:"location,omitempty"`
	Category             string             `bson:"category,omitempty" json:"category,omitempty"`
	Type                 string             `bson:"type,omitempty" json:"type,omitempty"`
	Priority             string             `bson:"priority,omitempty" json:"priority,omitempty"`
	Status               IssueStatus        `bson:"status" json:"status"`
	Tags                 []string           `bson:"tags,omitempty" json:"tags"`
	Photo                string             `bson:"photo,omitempty" json:"photo,omitempty"`
	UserID               string             `bson:"userId,omitempty" json:"userId,omitempty"`
	AssignedTo           string             `bson:"assignedTo,omitempty" json:"assignedTo,omitempty"`
	Assignees            []Assignee         `bson:"assignees,omitempty" json:"assignees"`
	PropertyID           string             `bson:"propertyId,omitempty" json:"propertyId,omitempty"`
	AssetID              string             `bson:"assetId,omitempty" json:"assetId,omitempty"`
	InternalTechnicianID string             `bson:"internalTechnicianId,omitempty" json:"internalTechnicianId,omitempty"`
	FixTime              int                `bson:"fixTime,omitempty" json:"fixTime,omitempty"`
	FixDeadline          *time.Time         `bson:"fixDeadline,omitempty" json:"fixDeadline,omitempty"`
	Deadline             *time.Time         `bson:"deadline,omitempty" json:"deadline,omitempty"`
	BeforeImage          string             `bson:"beforeImage,omitempty" json:"beforeImage,omitempty"`
	AfterImage           string             `bson:"afterImage,omitempty" json:"afterImage,omitempty"`
	Address              string             `bson:"address,omitempty" json:"address,omitempty"`
	Feedback             string             `bson:"feedback,omitempty" json:"feedback,omitempty"`
	Overdue              bool               `bson:"overdue" json:"overdue"`
	Approved             bool               `bson:"approved" json:"approved"`
	ApprovedAt           *time.Time         `bson:"approvedAt,omitempty" json:"approvedAt,omitempty"`
	ApprovedBy           string             `bson:"approvedBy,omitempty" json:"approvedBy,omitempty"`
	Rejected             bool               `bson:"rejected" json:"rejected"`
	RejectedAt           *time.Time         `bson:"rejectedAt,omitempty" json:"rejectedAt,omitempty"`
	RejectedBy           string             `bson:"rejectedBy,omitempty" json:"rejectedBy,omitempty"`
	DeclineReason        string             `bson:"declineReason,omitempty" json:"declineReason,omitempty"`
	Resubmitted          bool               `bson:"resubmitted" json:"resubmitted"`
	ResubmittedAt        *time.Time         `bson:"resubmittedAt,omitempty" json:"resubmittedAt,omitempty"`
	CreatedAt            time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt            time.Time          `bson:"updatedAt" json:"updatedAt"`

	// ClientName is resolved from UserID on reads and never stored.
	ClientName string `bson:"-" json:"clientName,omitempty"`
}

// HexID returns the issue id as a hex string.
func (i *Issue) HexID() string {
	return i.ID.Hex()
}

// HasTag reports whether the issue carries tag, ignoring case.
func (i *Issue) HasTag(tag string) bool {
	return containsFold(i.Tags, tag)
}

// AssignedToID reports whether id appears as assignedTo or in the assignee log.
func (i *Issue) AssignedToID(id string) bool {
	if id == "" {
		return false
	}
	if i.AssignedTo == id {
		return true
	}
	for _, a := range i.Assignees {
		if a.ID == id {
			return true
		}
	}
	return false
}

// IsPreventive reports whether any of the descriptive fields mention
// preventive maintenance.
func IsPreventive(title, issueType, category string, tags []string) bool {
	for _, s := range []string{title, issueType, category} {
		if strings.Contains(strings.ToLower(s), PreventiveTag) {
			return true
		}
	}
	for _, t := range tags {
		if strings.Contains(strings.ToLower(t), PreventiveTag) {
			return true
		}
	}
	return false
}

// EnsurePreventiveTag returns tags with the preventive tag present exactly once.
func EnsurePreventiveTag(tags []string) []string {
	if containsFold(tags, PreventiveTag) {
		return tags
	}
	out := make([]string, 0, len(tags)+1)
	out = append(out, tags...)
	return append(out, PreventiveTag)
}

func containsFold(list []string, val string) bool {
	for _, s := range list {
		if strings.EqualFold(strings.TrimSpace(s), val) {
			return true
		}
	}
	return false
}
