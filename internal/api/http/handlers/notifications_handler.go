package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/maintenance-service/internal/api/dto"
	"github.com/spec-kit/maintenance-service/internal/auth"
	"github.com/spec-kit/maintenance-service/internal/service"
	"github.com/spec-kit/maintenance-service/pkg/util/idutil"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

// NotificationsHandler serves the inbox, feedback and email diagnostics.
type NotificationsHandler struct {
	notifications *service.NotificationService
	feedback      *service.FeedbackService
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(notifications *service.NotificationService, feedback *service.FeedbackService) *NotificationsHandler {
	return &NotificationsHandler{notifications: notifications, feedback: feedback}
}

// List GET /notifications.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	items, err := h.notifications.List(c.UserContext(), auth.CallerFromContext(c))
	if err != nil {
		return err
	}
	return ok(c, items)
}

// MarkRead PATCH /notifications/:id/read.
func (h *NotificationsHandler) MarkRead(c *fiber.Ctx) error {
	if err := h.notifications.MarkRead(c.UserContext(), auth.CallerFromContext(c), c.Params("id")); err != nil {
		return err
	}
	return ok(c, fiber.Map{"read": true})
}

// MarkAllRead PATCH /notifications/read-all.
func (h *NotificationsHandler) MarkAllRead(c *fiber.Ctx) error {
	n, err := h.notifications.MarkAllRead(c.UserContext(), auth.CallerFromContext(c))
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"updated": n})
}

// TestEmail POST /email/test.
func (h *NotificationsHandler) TestEmail(c *fiber.Ctx) error {
	var req dto.TestEmailRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	res, err := h.notifications.SendTestEmail(c.UserContext(), req.Email)
	if err != nil {
		return err
	}
	return ok(c, res)
}

// TestAdminEmail POST /email/test-admins.
func (h *NotificationsHandler) TestAdminEmail(c *fiber.Ctx) error {
	res, err := h.notifications.SendAdminTestEmail(c.UserContext())
	if err != nil {
		return err
	}
	return ok(c, res)
}

// CreateFeedback POST /feedback.
func (h *NotificationsHandler) CreateFeedback(c *fiber.Ctx) error {
	var req dto.FeedbackRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	fb, err := h.feedback.Create(c.UserContext(), auth.CallerFromContext(c), req.ToInput())
	if err != nil {
		return err
	}
	return created(c, fb)
}

// ListFeedback GET /feedback/all.
func (h *NotificationsHandler) ListFeedback(c *fiber.Ctx) error {
	items, err := h.feedback.List(c.UserContext())
	if err != nil {
		return err
	}
	return ok(c, items)
}

// ClientFeedback GET /feedback/client/:userId. Clients may only read their own.
func (h *NotificationsHandler) ClientFeedback(c *fiber.Ctx) error {
	caller, err := requireCaller(c)
	if err != nil {
		return err
	}
	userID := c.Params("userId")
	if !caller.Role.IsStaff() && !idutil.Equal(caller.UserID, userID) {
		return apperrors.NewForbidden("cannot read another client's feedback")
	}
	items, err := h.feedback.ListForClient(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return ok(c, items)
}
