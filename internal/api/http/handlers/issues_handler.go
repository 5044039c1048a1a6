package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/maintenance-service/internal/api/dto"
	"github.com/spec-kit/maintenance-service/internal/auth"
	"github.com/spec-kit/maintenance-service/internal/service"
	"github.com/spec-kit/maintenance-service/pkg/util/idutil"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

// IssuesHandler serves the issue lifecycle endpoints.
type IssuesHandler struct {
	issues      *service.IssueService
	assignments *service.AssignmentService
	uploads     *Uploader
}

// NewIssuesHandler constructs handler.
func NewIssuesHandler(issues *service.IssueService, assignments *service.AssignmentService, uploads *Uploader) *IssuesHandler {
	return &IssuesHandler{issues: issues, assignments: assignments, uploads: uploads}
}

// List GET /issues. Anonymous callers must pass propertyId.
func (h *IssuesHandler) List(c *fiber.Ctx) error {
	issues, err := h.issues.ListVisible(c.UserContext(), auth.CallerFromContext(c), c.Query("propertyId"))
	if err != nil {
		return err
	}
	return ok(c, issues)
}

// ListByUser GET /issues/user/:userId. Clients may only list their own.
func (h *IssuesHandler) ListByUser(c *fiber.Ctx) error {
	caller, err := requireCaller(c)
	if err != nil {
		return err
	}
	userID := c.Params("userId")
	if !caller.Role.IsStaff() && !idutil.Equal(caller.UserID, userID) {
		return apperrors.NewForbidden("cannot list another user's issues")
	}
	issues, err := h.issues.ListByUser(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return ok(c, issues)
}

// ListAssigned GET /issues/assigned/:techId. Technicians may only list their own.
func (h *IssuesHandler) ListAssigned(c *fiber.Ctx) error {
	issues, err := h.issues.ListAssigned(c.UserContext(), auth.CallerFromContext(c), c.Params("techId"))
	if err != nil {
		return err
	}
	return ok(c, issues)
}

// Summary GET /issues/summary.
func (h *IssuesHandler) Summary(c *fiber.Ctx) error {
	summary, err := h.issues.Summary(c.UserContext())
	if err != nil {
		return err
	}
	return ok(c, summary)
}

// Get GET /issues/:id.
func (h *IssuesHandler) Get(c *fiber.Ctx) error {
	issue, err := h.issues.GetVisible(c.UserContext(), auth.CallerFromContext(c), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, issue)
}

// Create POST /issues. Accepts JSON or multipart with a photo file.
func (h *IssuesHandler) Create(c *fiber.Ctx) error {
	var req dto.IssueRequest
	if isMultipart(c) {
		req = issueRequestFromForm(c)
		photo, err := h.uploads.Single(c, "photo")
		if err != nil {
			return err
		}
		if photo != "" {
			req.Photo = &photo
		}
	} else if err := parseBody(c, &req); err != nil {
		return err
	}
	input, err := req.ToInput()
	if err != nil {
		return err
	}
	issue, err := h.issues.Create(c.UserContext(), auth.CallerFromContext(c), input)
	if err != nil {
		return err
	}
	return created(c, issue)
}

// Update PUT /issues/:id.
func (h *IssuesHandler) Update(c *fiber.Ctx) error {
	var req dto.IssueRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	input, err := req.ToInput()
	if err != nil {
		return err
	}
	issue, err := h.issues.Update(c.UserContext(), auth.CallerFromContext(c), c.Params("id"), input)
	if err != nil {
		return err
	}
	return ok(c, issue)
}

// Delete DELETE /issues/:id.
func (h *IssuesHandler) Delete(c *fiber.Ctx) error {
	if err := h.issues.Delete(c.UserContext(), auth.CallerFromContext(c), c.Params("id")); err != nil {
		return err
	}
	return ok(c, fiber.Map{"deleted": true})
}

// Assign POST /issues/:id/assign.
func (h *IssuesHandler) Assign(c *fiber.Ctx) error {
	var req dto.AssignRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	input, err := req.ToInput()
	if err != nil {
		return err
	}
	issue, err := h.assignments.AssignToTech(c.UserContext(), auth.CallerFromContext(c), c.Params("id"), input)
	if err != nil {
		return err
	}
	return ok(c, issue)
}

// AssignInternal POST /issues/:id/assign-internal.
func (h *IssuesHandler) AssignInternal(c *fiber.Ctx) error {
	var req dto.AssignInternalRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	issue, err := h.assignments.AssignToInternal(c.UserContext(), auth.CallerFromContext(c), c.Params("id"), req.InternalTechnicianID)
	if err != nil {
		return err
	}
	return ok(c, issue)
}

// Approve POST /issues/:id/approve.
func (h *IssuesHandler) Approve(c *fiber.Ctx) error {
	issue, err := h.issues.Approve(c.UserContext(), auth.CallerFromContext(c), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, issue)
}

// Decline POST /issues/:id/decline.
func (h *IssuesHandler) Decline(c *fiber.Ctx) error {
	var req dto.DeclineRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	issue, err := h.issues.Decline(c.UserContext(), auth.CallerFromContext(c), c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return ok(c, issue)
}

// Resubmit POST /issues/:id/resubmit.
func (h *IssuesHandler) Resubmit(c *fiber.Ctx) error {
	issue, err := h.issues.Resubmit(c.UserContext(), auth.CallerFromContext(c), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, issue)
}

// Before POST /issues/:id/evidence/before.
func (h *IssuesHandler) Before(c *fiber.Ctx) error {
	var req dto.BeforeEvidenceRequest
	if isMultipart(c) {
		req.FixTime, _ = strconv.Atoi(strings.TrimSpace(c.FormValue("fixTime")))
		req.Address = c.FormValue("address")
		req.BeforeImage = c.FormValue("beforeImage")
		image, err := h.uploads.Single(c, "beforeImage")
		if err != nil {
			return err
		}
		if image != "" {
			req.BeforeImage = image
		}
	} else if err := parseBody(c, &req); err != nil {
		return err
	}
	issue, err := h.issues.RecordBefore(c.UserContext(), c.Params("id"), service.BeforeEvidence{
		FixTime: req.FixTime,
		Image:   req.BeforeImage,
		Address: req.Address,
	})
	if err != nil {
		return err
	}
	return ok(c, issue)
}

// After POST /issues/:id/evidence/after.
func (h *IssuesHandler) After(c *fiber.Ctx) error {
	var req dto.AfterEvidenceRequest
	if isMultipart(c) {
		req.Feedback = c.FormValue("feedback")
		req.AfterImage = c.FormValue("afterImage")
		image, err := h.uploads.Single(c, "afterImage")
		if err != nil {
			return err
		}
		if image != "" {
			req.AfterImage = image
		}
	} else if err := parseBody(c, &req); err != nil {
		return err
	}
	issue, err := h.issues.RecordAfter(c.UserContext(), auth.CallerFromContext(c), c.Params("id"), service.AfterEvidence{
		Image:    req.AfterImage,
		Feedback: req.Feedback,
	})
	if err != nil {
		return err
	}
	return ok(c, issue)
}

func issueRequestFromForm(c *fiber.Ctx) dto.IssueRequest {
	field := func(name string) *string {
		v := c.FormValue(name)
		if v == "" {
			return nil
		}
		return &v
	}
	req := dto.IssueRequest{
		Title:       field("title"),
		Description: field("description"),
		Location:    field("location"),
		Category:    field("category"),
		Type:        field("type"),
		Priority:    field("priority"),
		Status:      field("status"),
		PropertyID:  field("propertyId"),
		AssetID:     field("assetId"),
		Deadline:    c.FormValue("deadline"),
	}
	if form, err := c.MultipartForm(); err == nil {
		if tags, exists := form.Value["tags"]; exists {
			var split []string
			for _, t := range tags {
				for _, part := range strings.Split(t, ",") {
					if part = strings.TrimSpace(part); part != "" {
						split = append(split, part)
					}
				}
			}
			req.Tags = &split
		}
	}
	return req
}
