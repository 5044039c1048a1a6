package events

import (
	"time"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventIssueCreated     EventType = "issue_created"
	EventIssueAssigned    EventType = "issue_assigned"
	EventIssueApproved    EventType = "issue_approved"
	EventIssueDeclined    EventType = "issue_declined"
	EventIssueCompleted   EventType = "issue_completed"
	EventIssueResubmitted EventType = "issue_resubmitted"
)

// Actor encapsulates actor metadata for an event. UserID is empty for
// anonymous submissions.
type Actor struct {
	UserID string      `json:"user_id,omitempty"`
	Role   domain.Role `json:"role,omitempty"`
}

// ActorFrom builds an Actor from a possibly anonymous caller.
func ActorFrom(caller *domain.Caller) Actor {
	if caller == nil {
		return Actor{}
	}
	return Actor{UserID: caller.UserID, Role: caller.Role}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	IssueID   string      `json:"issue_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// IssuePayload carries the issue state after the transition.
type IssuePayload struct {
	Issue domain.Issue `json:"issue"`
}

// IssueAssignedPayload identifies who received the work.
type IssueAssignedPayload struct {
	Issue    domain.Issue    `json:"issue"`
	Assignee domain.Assignee `json:"assignee"`
	// LinkedUserID is the account notified in-app; empty when the assignee
	// has no login.
	LinkedUserID string `json:"linked_user_id,omitempty"`
}

// IssueDeclinedPayload adds the decline reason.
type IssueDeclinedPayload struct {
	Issue  domain.Issue `json:"issue"`
	Reason string       `json:"reason,omitempty"`
}
