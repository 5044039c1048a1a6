package dto

import "github.com/spec-kit/maintenance-service/internal/service"

// IssueRequest is the create and update payload. Create also accepts
// multipart form fields.
type IssueRequest struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Location    *string   `json:"location"`
	Category    *string   `json:"category"`
	Type        *string   `json:"type"`
	Priority    *string   `json:"priority"`
	Status      *string   `json:"status"`
	Tags        *[]string `json:"tags"`
	Photo       *string   `json:"photo"`
	PropertyID  *string   `json:"propertyId"`
	AssetID     *string   `json:"assetId"`
	Deadline    string    `json:"deadline"`
}

// ToInput maps the request onto the service input.
func (r IssueRequest) ToInput() (service.IssueInput, error) {
	deadline, err := ParseTime("deadline", r.Deadline)
	if err != nil {
		return service.IssueInput{}, err
	}
	return service.IssueInput{
		Title:       r.Title,
		Description: r.Description,
		Location:    r.Location,
		Category:    r.Category,
		Type:        r.Type,
		Priority:    r.Priority,
		Status:      r.Status,
		Tags:        r.Tags,
		Photo:       r.Photo,
		PropertyID:  r.PropertyID,
		AssetID:     r.AssetID,
		Deadline:    deadline,
	}, nil
}

// AssignRequest assigns an issue to a technician.
type AssignRequest struct {
	TechnicianID string `json:"technicianId"`
	Priority     string `json:"priority"`
	Status       string `json:"status"`
	Deadline     string `json:"deadline"`
}

// ToInput maps the request onto the service input.
func (r AssignRequest) ToInput() (service.AssignInput, error) {
	deadline, err := ParseTime("deadline", r.Deadline)
	if err != nil {
		return service.AssignInput{}, err
	}
	return service.AssignInput{
		TechnicianID: r.TechnicianID,
		Priority:     r.Priority,
		Status:       r.Status,
		Deadline:     deadline,
	}, nil
}

// AssignInternalRequest assigns an issue to property staff.
type AssignInternalRequest struct {
	InternalTechnicianID string `json:"internalTechnicianId"`
}

// DeclineRequest carries the decline reason.
type DeclineRequest struct {
	Reason string `json:"reason"`
}

// BeforeEvidenceRequest starts work on an issue. The image may be uploaded
// as the beforeImage file instead.
type BeforeEvidenceRequest struct {
	FixTime     int    `json:"fixTime"`
	Address     string `json:"address"`
	BeforeImage string `json:"beforeImage"`
}

// AfterEvidenceRequest finishes work on an issue. The image may be uploaded
// as the afterImage file instead.
type AfterEvidenceRequest struct {
	Feedback   string `json:"feedback"`
	AfterImage string `json:"afterImage"`
}
