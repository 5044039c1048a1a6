package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/maintenance-service/internal/api/dto"
	"github.com/spec-kit/maintenance-service/internal/auth"
	"github.com/spec-kit/maintenance-service/internal/service"
)

// PropertiesHandler serves property CRUD and photo uploads.
type PropertiesHandler struct {
	properties *service.PropertyService
	uploads    *Uploader
}

// NewPropertiesHandler constructs handler.
func NewPropertiesHandler(properties *service.PropertyService, uploads *Uploader) *PropertiesHandler {
	return &PropertiesHandler{properties: properties, uploads: uploads}
}

// Create POST /properties.
func (h *PropertiesHandler) Create(c *fiber.Ctx) error {
	var req dto.PropertyRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	property, err := h.properties.Create(c.UserContext(), auth.CallerFromContext(c), req.ToInput())
	if err != nil {
		return err
	}
	return created(c, property)
}

// List GET /properties?ownerId=.
func (h *PropertiesHandler) List(c *fiber.Ctx) error {
	properties, err := h.properties.List(c.UserContext(), c.Query("ownerId"))
	if err != nil {
		return err
	}
	return ok(c, properties)
}

// Get GET /properties/:id with assets and staff.
func (h *PropertiesHandler) Get(c *fiber.Ctx) error {
	detail, err := h.properties.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, detail)
}

// Update PUT /properties/:id.
func (h *PropertiesHandler) Update(c *fiber.Ctx) error {
	var req dto.PropertyRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	property, err := h.properties.Update(c.UserContext(), c.Params("id"), req.ToInput())
	if err != nil {
		return err
	}
	return ok(c, property)
}

// Delete DELETE /properties/:id.
func (h *PropertiesHandler) Delete(c *fiber.Ctx) error {
	if err := h.properties.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return ok(c, fiber.Map{"deleted": true})
}

// AddPhotos POST /properties/:id/photos with up to ten photos files.
func (h *PropertiesHandler) AddPhotos(c *fiber.Ctx) error {
	paths, err := h.uploads.Multiple(c, "photos")
	if err != nil {
		return err
	}
	property, err := h.properties.AddPhotos(c.UserContext(), c.Params("id"), paths)
	if err != nil {
		return err
	}
	return ok(c, property)
}
