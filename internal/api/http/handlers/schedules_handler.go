package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/maintenance-service/internal/api/dto"
	"github.com/spec-kit/maintenance-service/internal/auth"
	"github.com/spec-kit/maintenance-service/internal/service"
)

// SchedulesHandler serves maintenance schedules, templates and reminders.
type SchedulesHandler struct {
	schedules *service.ScheduleService
	templates *service.TemplateService
}

// NewSchedulesHandler constructs handler.
func NewSchedulesHandler(schedules *service.ScheduleService, templates *service.TemplateService) *SchedulesHandler {
	return &SchedulesHandler{schedules: schedules, templates: templates}
}

// Create POST /maintenance-schedules.
func (h *SchedulesHandler) Create(c *fiber.Ctx) error {
	var req dto.ScheduleRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	input, err := req.ToInput()
	if err != nil {
		return err
	}
	schedule, err := h.schedules.Create(c.UserContext(), auth.CallerFromContext(c), input)
	if err != nil {
		return err
	}
	return created(c, schedule)
}

// List GET /maintenance-schedules.
func (h *SchedulesHandler) List(c *fiber.Ctx) error {
	schedules, err := h.schedules.List(c.UserContext())
	if err != nil {
		return err
	}
	return ok(c, schedules)
}

// Get GET /maintenance-schedules/:id.
func (h *SchedulesHandler) Get(c *fiber.Ctx) error {
	schedule, err := h.schedules.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, schedule)
}

// Update PUT /maintenance-schedules/:id.
func (h *SchedulesHandler) Update(c *fiber.Ctx) error {
	var req dto.ScheduleRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	input, err := req.ToInput()
	if err != nil {
		return err
	}
	schedule, err := h.schedules.Update(c.UserContext(), c.Params("id"), input)
	if err != nil {
		return err
	}
	return ok(c, schedule)
}

// Delete DELETE /maintenance-schedules/:id.
func (h *SchedulesHandler) Delete(c *fiber.Ctx) error {
	if err := h.schedules.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return ok(c, fiber.Map{"deleted": true})
}

// Dismiss POST /maintenance-schedules/:id/dismiss. The dismissing user
// defaults to the caller.
func (h *SchedulesHandler) Dismiss(c *fiber.Ctx) error {
	var req dto.DismissRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.UserID == "" {
		if caller := auth.CallerFromContext(c); caller != nil {
			req.UserID = caller.UserID
		}
	}
	schedule, err := h.schedules.Dismiss(c.UserContext(), c.Params("id"), req.UserID)
	if err != nil {
		return err
	}
	return ok(c, schedule)
}

// Snooze POST /maintenance-schedules/:id/snooze.
func (h *SchedulesHandler) Snooze(c *fiber.Ctx) error {
	var req dto.SnoozeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	schedule, err := h.schedules.Snooze(c.UserContext(), c.Params("id"), req.Minutes)
	if err != nil {
		return err
	}
	return ok(c, schedule)
}

// EmailReminder POST /maintenance-schedules/:id/emailReminder.
func (h *SchedulesHandler) EmailReminder(c *fiber.Ctx) error {
	recipients, err := h.schedules.EmailReminder(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"sent": true, "recipients": recipients})
}

// ReminderLogs GET /maintenance-schedules/:id/reminder-logs.
func (h *SchedulesHandler) ReminderLogs(c *fiber.Ctx) error {
	logs, err := h.schedules.ReminderLogs(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, logs)
}

// CreateTemplate POST /maintenance-templates.
func (h *SchedulesHandler) CreateTemplate(c *fiber.Ctx) error {
	var req dto.TemplateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	tmpl, err := h.templates.Create(c.UserContext(), req.ToInput())
	if err != nil {
		return err
	}
	return created(c, tmpl)
}

// ListTemplates GET /maintenance-templates.
func (h *SchedulesHandler) ListTemplates(c *fiber.Ctx) error {
	tmpls, err := h.templates.List(c.UserContext())
	if err != nil {
		return err
	}
	return ok(c, tmpls)
}

// GetTemplate GET /maintenance-templates/:id.
func (h *SchedulesHandler) GetTemplate(c *fiber.Ctx) error {
	tmpl, err := h.templates.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, tmpl)
}

// UpdateTemplate PUT /maintenance-templates/:id.
func (h *SchedulesHandler) UpdateTemplate(c *fiber.Ctx) error {
	var req dto.TemplateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	tmpl, err := h.templates.Update(c.UserContext(), c.Params("id"), req.ToInput())
	if err != nil {
		return err
	}
	return ok(c, tmpl)
}

// DeleteTemplate DELETE /maintenance-templates/:id.
func (h *SchedulesHandler) DeleteTemplate(c *fiber.Ctx) error {
	if err := h.templates.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return ok(c, fiber.Map{"deleted": true})
}
