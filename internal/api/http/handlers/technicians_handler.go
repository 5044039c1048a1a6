package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/maintenance-service/internal/api/dto"
	"github.com/spec-kit/maintenance-service/internal/repository"
	"github.com/spec-kit/maintenance-service/internal/service"
)

// TechniciansHandler serves external technicians and property staff.
type TechniciansHandler struct {
	technicians *service.TechnicianService
}

// NewTechniciansHandler constructs handler.
func NewTechniciansHandler(technicians *service.TechnicianService) *TechniciansHandler {
	return &TechniciansHandler{technicians: technicians}
}

// List GET /technicians.
func (h *TechniciansHandler) List(c *fiber.Ctx) error {
	techs, err := h.technicians.ListExternal(c.UserContext())
	if err != nil {
		return err
	}
	return ok(c, techs)
}

// ForAssignment GET /technicians/for-assignment.
func (h *TechniciansHandler) ForAssignment(c *fiber.Ctx) error {
	techs, err := h.technicians.ForAssignment(c.UserContext())
	if err != nil {
		return err
	}
	return ok(c, techs)
}

// Get GET /technicians/:id.
func (h *TechniciansHandler) Get(c *fiber.Ctx) error {
	tech, err := h.technicians.GetExternal(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, tech)
}

// Create POST /technicians.
func (h *TechniciansHandler) Create(c *fiber.Ctx) error {
	var req dto.TechnicianRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	tech, err := h.technicians.CreateExternal(c.UserContext(), req.ToInput())
	if err != nil {
		return err
	}
	return created(c, tech)
}

// Update PUT /technicians/:id.
func (h *TechniciansHandler) Update(c *fiber.Ctx) error {
	var req dto.TechnicianRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	tech, err := h.technicians.UpdateExternal(c.UserContext(), c.Params("id"), req.ToInput())
	if err != nil {
		return err
	}
	return ok(c, tech)
}

// Delete DELETE /technicians/:id.
func (h *TechniciansHandler) Delete(c *fiber.Ctx) error {
	if err := h.technicians.DeleteExternal(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return ok(c, fiber.Map{"deleted": true})
}

// ListInternal GET /internal-technicians?propertyId=&status=.
func (h *TechniciansHandler) ListInternal(c *fiber.Ctx) error {
	techs, err := h.technicians.ListInternal(c.UserContext(), repository.InternalTechnicianFilter{
		PropertyID: c.Query("propertyId"),
		Status:     c.Query("status"),
	})
	if err != nil {
		return err
	}
	return ok(c, techs)
}

// GetInternal GET /internal-technicians/:id.
func (h *TechniciansHandler) GetInternal(c *fiber.Ctx) error {
	tech, err := h.technicians.GetInternal(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, tech)
}

// CreateInternal POST /internal-technicians.
func (h *TechniciansHandler) CreateInternal(c *fiber.Ctx) error {
	var req dto.TechnicianRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	tech, err := h.technicians.CreateInternal(c.UserContext(), req.ToInput())
	if err != nil {
		return err
	}
	return created(c, tech)
}

// UpdateInternal PUT /internal-technicians/:id.
func (h *TechniciansHandler) UpdateInternal(c *fiber.Ctx) error {
	var req dto.TechnicianRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	tech, err := h.technicians.UpdateInternal(c.UserContext(), c.Params("id"), req.ToInput())
	if err != nil {
		return err
	}
	return ok(c, tech)
}

// DeleteInternal DELETE /internal-technicians/:id.
func (h *TechniciansHandler) DeleteInternal(c *fiber.Ctx) error {
	if err := h.technicians.DeleteInternal(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return ok(c, fiber.Map{"deleted": true})
}
