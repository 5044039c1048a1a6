package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/maintenance-service/internal/api/dto"
	"github.com/spec-kit/maintenance-service/internal/auth"
	"github.com/spec-kit/maintenance-service/internal/repository"
	"github.com/spec-kit/maintenance-service/internal/service"
)

// AssetsHandler serves assets, their movements and spare parts.
type AssetsHandler struct {
	assets *service.AssetService
}

// NewAssetsHandler constructs handler.
func NewAssetsHandler(assets *service.AssetService) *AssetsHandler {
	return &AssetsHandler{assets: assets}
}

func assetFilter(c *fiber.Ctx) repository.AssetFilter {
	filter := repository.AssetFilter{Type: c.Query("type"), Status: c.Query("status")}
	if propertyID := c.Query("propertyId"); propertyID != "" {
		filter.PropertyIDs = []string{propertyID}
	}
	return filter
}

// Count GET /assets/count.
func (h *AssetsHandler) Count(c *fiber.Ctx) error {
	n, err := h.assets.Count(c.UserContext(), assetFilter(c))
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"count": n})
}

// Create POST /assets.
func (h *AssetsHandler) Create(c *fiber.Ctx) error {
	var req dto.AssetRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	asset, err := h.assets.Create(c.UserContext(), req.ToInput())
	if err != nil {
		return err
	}
	return created(c, asset)
}

// List GET /assets.
func (h *AssetsHandler) List(c *fiber.Ctx) error {
	assets, err := h.assets.List(c.UserContext(), assetFilter(c))
	if err != nil {
		return err
	}
	return ok(c, assets)
}

// Get GET /assets/:id.
func (h *AssetsHandler) Get(c *fiber.Ctx) error {
	asset, err := h.assets.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, asset)
}

// Update PUT /assets/:id.
func (h *AssetsHandler) Update(c *fiber.Ctx) error {
	var req dto.AssetRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	asset, err := h.assets.Update(c.UserContext(), c.Params("id"), req.ToInput())
	if err != nil {
		return err
	}
	return ok(c, asset)
}

// Delete DELETE /assets/:id.
func (h *AssetsHandler) Delete(c *fiber.Ctx) error {
	if err := h.assets.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return ok(c, fiber.Map{"deleted": true})
}

// Move POST /assets/:id/move.
func (h *AssetsHandler) Move(c *fiber.Ctx) error {
	var req dto.MoveRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	movement, err := h.assets.Move(c.UserContext(), auth.CallerFromContext(c), c.Params("id"), service.MoveInput{
		From:  req.From,
		To:    req.To,
		Notes: req.Notes,
	})
	if err != nil {
		return err
	}
	return created(c, movement)
}

// Movements GET /assets/:id/movements.
func (h *AssetsHandler) Movements(c *fiber.Ctx) error {
	movements, err := h.assets.Movements(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, movements)
}

// AddSparePart POST /assets/:id/spare-parts.
func (h *AssetsHandler) AddSparePart(c *fiber.Ctx) error {
	var req dto.SparePartRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	part, err := h.assets.AddSparePart(c.UserContext(), c.Params("id"), service.SparePartInput{
		Name:       req.Name,
		PartNumber: req.PartNumber,
		Quantity:   req.Quantity,
	})
	if err != nil {
		return err
	}
	return created(c, part)
}

// SpareParts GET /assets/:id/spare-parts.
func (h *AssetsHandler) SpareParts(c *fiber.Ctx) error {
	parts, err := h.assets.SpareParts(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, parts)
}
