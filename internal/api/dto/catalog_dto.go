package dto

import "github.com/spec-kit/maintenance-service/internal/service"

// PropertyRequest is the property create and update payload.
type PropertyRequest struct {
	Name     *string `json:"name"`
	Address  *string `json:"address"`
	Type     *string `json:"type"`
	UserID   *string `json:"userId"`
	ClientID *string `json:"clientId"`
}

// ToInput maps the request onto the service input.
func (r PropertyRequest) ToInput() service.PropertyInput {
	return service.PropertyInput{
		Name:     r.Name,
		Address:  r.Address,
		Type:     r.Type,
		UserID:   r.UserID,
		ClientID: r.ClientID,
	}
}

// AssetRequest is the asset create and update payload. Block and Blocks are
// merged; legacy clients send a single delimited string.
type AssetRequest struct {
	Name          *string  `json:"name"`
	Type          *string  `json:"type"`
	SerialNumber  *string  `json:"serialNumber"`
	Status        *string  `json:"status"`
	Quantity      *int     `json:"quantity"`
	PropertyID    *string  `json:"propertyId"`
	Building      *string  `json:"building"`
	Block         string   `json:"block"`
	Blocks        []string `json:"blocks"`
	RemoveBlocks  []string `json:"removeBlocks"`
	ReplaceBlocks bool     `json:"_replaceBlocks"`
}

// ToInput maps the request onto the service input.
func (r AssetRequest) ToInput() service.AssetInput {
	blocks := r.Blocks
	if r.Block != "" {
		blocks = append([]string{r.Block}, blocks...)
	}
	return service.AssetInput{
		Name:          r.Name,
		Type:          r.Type,
		SerialNumber:  r.SerialNumber,
		Status:        r.Status,
		Quantity:      r.Quantity,
		PropertyID:    r.PropertyID,
		Building:      r.Building,
		Blocks:        blocks,
		RemoveBlocks:  r.RemoveBlocks,
		ReplaceBlocks: r.ReplaceBlocks,
	}
}

// MoveRequest relocates an asset.
type MoveRequest struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Notes string `json:"notes"`
}

// SparePartRequest adds stock to an asset.
type SparePartRequest struct {
	Name       string `json:"name"`
	PartNumber string `json:"partNumber"`
	Quantity   int    `json:"quantity"`
}

// TechnicianRequest is shared by external and internal technicians.
type TechnicianRequest struct {
	Name       *string `json:"name"`
	Email      *string `json:"email"`
	Phone      *string `json:"phone"`
	Specialty  *string `json:"specialty"`
	Status     *string `json:"status"`
	PropertyID *string `json:"propertyId"`
}

// ToInput maps the request onto the service input.
func (r TechnicianRequest) ToInput() service.TechnicianInput {
	return service.TechnicianInput{
		Name:       r.Name,
		Email:      r.Email,
		Phone:      r.Phone,
		Specialty:  r.Specialty,
		Status:     r.Status,
		PropertyID: r.PropertyID,
	}
}

// TemplateRequest is the maintenance template payload.
type TemplateRequest struct {
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	Frequency   *string   `json:"frequency"`
	Interval    *int      `json:"interval"`
	Checklist   *[]string `json:"checklist"`
}

// ToInput maps the request onto the service input.
func (r TemplateRequest) ToInput() service.TemplateInput {
	return service.TemplateInput{
		Name:        r.Name,
		Description: r.Description,
		Frequency:   r.Frequency,
		Interval:    r.Interval,
		Checklist:   r.Checklist,
	}
}

// ScheduleRequest is the maintenance schedule payload. Date and Time are
// combined into the next occurrence.
type ScheduleRequest struct {
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	Email       *string   `json:"email"`
	Employees   *[]string `json:"employees"`
	Routine     *bool     `json:"routine"`
	Frequency   *string   `json:"frequency"`
	Interval    *int      `json:"interval"`
	Date        *string   `json:"date"`
	Time        *string   `json:"time"`
	NextDate    string    `json:"nextDate"`
	Status      *string   `json:"status"`
	AssetID     *string   `json:"assetId"`
	PropertyID  *string   `json:"propertyId"`
	TemplateID  *string   `json:"templateId"`
}

// ToInput maps the request onto the service input.
func (r ScheduleRequest) ToInput() (service.ScheduleInput, error) {
	next, err := ParseTime("nextDate", r.NextDate)
	if err != nil {
		return service.ScheduleInput{}, err
	}
	return service.ScheduleInput{
		Name:        r.Name,
		Description: r.Description,
		Email:       r.Email,
		Employees:   r.Employees,
		Routine:     r.Routine,
		Frequency:   r.Frequency,
		Interval:    r.Interval,
		Date:        r.Date,
		Time:        r.Time,
		NextDate:    next,
		Status:      r.Status,
		AssetID:     r.AssetID,
		PropertyID:  r.PropertyID,
		TemplateID:  r.TemplateID,
	}, nil
}

// DismissRequest names who dismissed a reminder.
type DismissRequest struct {
	UserID string `json:"userId"`
}

// SnoozeRequest postpones a reminder.
type SnoozeRequest struct {
	Minutes int `json:"minutes"`
}

// FeedbackRequest is a client rating.
type FeedbackRequest struct {
	ClientID string `json:"clientId"`
	IssueID  string `json:"issueId"`
	Message  string `json:"message"`
	Rating   int    `json:"rating"`
}

// ToInput maps the request onto the service input.
func (r FeedbackRequest) ToInput() service.FeedbackInput {
	return service.FeedbackInput{
		ClientID: r.ClientID,
		IssueID:  r.IssueID,
		Message:  r.Message,
		Rating:   r.Rating,
	}
}
