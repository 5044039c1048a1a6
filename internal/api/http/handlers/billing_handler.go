package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/maintenance-service/internal/api/dto"
	"github.com/spec-kit/maintenance-service/internal/auth"
	"github.com/spec-kit/maintenance-service/internal/repository"
	"github.com/spec-kit/maintenance-service/internal/service"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

// BillingHandler serves subscriptions and payments.
type BillingHandler struct {
	subscriptions *service.SubscriptionService
	payments      *service.PaymentService
}

// NewBillingHandler constructs handler.
func NewBillingHandler(subscriptions *service.SubscriptionService, payments *service.PaymentService) *BillingHandler {
	return &BillingHandler{subscriptions: subscriptions, payments: payments}
}

// Pricing GET /subscriptions/public/pricing and /payments/public/pricing.
func (h *BillingHandler) Pricing(c *fiber.Ctx) error {
	return ok(c, h.subscriptions.Pricing())
}

// Calculate GET /payments/public/calculate?plan=&billingCycle=.
func (h *BillingHandler) Calculate(c *fiber.Ctx) error {
	plan, cycle := c.Query("plan"), c.Query("billingCycle")
	amount, err := h.subscriptions.Quote(plan, cycle)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"plan": plan, "billingCycle": cycle, "amount": amount, "currency": "USD"})
}

// CreateSubscription POST /subscriptions.
func (h *BillingHandler) CreateSubscription(c *fiber.Ctx) error {
	var req dto.CreateSubscriptionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	sub, err := h.subscriptions.Create(c.UserContext(), req.ToInput())
	if err != nil {
		return err
	}
	return created(c, sub)
}

// ListSubscriptions GET /subscriptions.
func (h *BillingHandler) ListSubscriptions(c *fiber.Ctx) error {
	subs, err := h.subscriptions.List(c.UserContext(), repository.SubscriptionFilter{
		ClientID: c.Query("clientId"),
		Status:   c.Query("status"),
		Plan:     c.Query("plan"),
		Limit:    queryInt(c, "limit", 50),
		Offset:   queryInt(c, "offset", 0),
	})
	if err != nil {
		return err
	}
	return ok(c, subs)
}

// Analytics GET /subscriptions/analytics/summary.
func (h *BillingHandler) Analytics(c *fiber.Ctx) error {
	out, err := h.subscriptions.Analytics(c.UserContext())
	if err != nil {
		return err
	}
	return ok(c, out)
}

// ByClient GET /subscriptions/client/:clientId.
func (h *BillingHandler) ByClient(c *fiber.Ctx) error {
	out, err := h.subscriptions.GetByClient(c.UserContext(), auth.CallerFromContext(c), c.Params("clientId"))
	if err != nil {
		return err
	}
	return ok(c, out)
}

// Verify GET /subscriptions/:id/verify.
func (h *BillingHandler) Verify(c *fiber.Ctx) error {
	active, err := h.subscriptions.VerifyActive(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"active": active})
}

// ChangeBillingCycle POST /subscriptions/:id/billing-cycle.
func (h *BillingHandler) ChangeBillingCycle(c *fiber.Ctx) error {
	var req dto.BillingCycleRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	sub, err := h.subscriptions.ChangeBillingCycle(c.UserContext(), auth.CallerFromContext(c), c.Params("id"), req.BillingCycle)
	if err != nil {
		return err
	}
	return ok(c, sub)
}

// GetSubscription GET /subscriptions/:id.
func (h *BillingHandler) GetSubscription(c *fiber.Ctx) error {
	out, err := h.subscriptions.Get(c.UserContext(), auth.CallerFromContext(c), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, out)
}

// UpdateSubscription PUT /subscriptions/:id.
func (h *BillingHandler) UpdateSubscription(c *fiber.Ctx) error {
	var req dto.UpdateSubscriptionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	sub, err := h.subscriptions.Update(c.UserContext(), auth.CallerFromContext(c), c.Params("id"), req.ToInput())
	if err != nil {
		return err
	}
	return ok(c, sub)
}

// Upgrade POST /subscriptions/:id/upgrade.
func (h *BillingHandler) Upgrade(c *fiber.Ctx) error {
	var req dto.PlanRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	sub, err := h.subscriptions.Upgrade(c.UserContext(), c.Params("id"), req.Plan)
	if err != nil {
		return err
	}
	return ok(c, sub)
}

// Cancel POST /subscriptions/:id/cancel.
func (h *BillingHandler) Cancel(c *fiber.Ctx) error {
	sub, err := h.subscriptions.Cancel(c.UserContext(), auth.CallerFromContext(c), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, sub)
}

// DeleteSubscription DELETE /subscriptions/:id.
func (h *BillingHandler) DeleteSubscription(c *fiber.Ctx) error {
	if err := h.subscriptions.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return ok(c, fiber.Map{"deleted": true})
}

// CreatePayment POST /payments records a pending payment.
func (h *BillingHandler) CreatePayment(c *fiber.Ctx) error {
	var req dto.PaymentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	payment, err := h.payments.Create(c.UserContext(), req.ToInput())
	if err != nil {
		return err
	}
	return created(c, payment)
}

// ProcessPayment POST /payments/process.
func (h *BillingHandler) ProcessPayment(c *fiber.Ctx) error {
	var req dto.PaymentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	payment, err := h.payments.Process(c.UserContext(), req.ToInput())
	if err != nil {
		return err
	}
	return ok(c, payment)
}

// InitiatePayPack POST /payments/initiate-paypack.
func (h *BillingHandler) InitiatePayPack(c *fiber.Ctx) error {
	var req dto.PaymentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	payment, err := h.payments.Initiate(c.UserContext(), req.ToInput())
	if err != nil {
		return err
	}
	return created(c, payment)
}

// Callback POST /payments/callback from the gateway.
func (h *BillingHandler) Callback(c *fiber.Ctx) error {
	fields := map[string]any{}
	if err := c.BodyParser(&fields); err != nil {
		return apperrors.NewValidationError("invalid callback payload", nil)
	}
	payment, err := h.payments.HandleCallback(c.UserContext(), fields)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"received": true, "paymentId": payment.ID, "status": payment.Status})
}

// GetPayment GET /payments/:id.
func (h *BillingHandler) GetPayment(c *fiber.Ctx) error {
	payment, err := h.payments.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, payment)
}

// SubscriptionPayments GET /payments/subscription/:subscriptionId.
func (h *BillingHandler) SubscriptionPayments(c *fiber.Ctx) error {
	payments, err := h.payments.ListBySubscription(c.UserContext(), c.Params("subscriptionId"))
	if err != nil {
		return err
	}
	return ok(c, payments)
}

// Refund POST /payments/:id/refund.
func (h *BillingHandler) Refund(c *fiber.Ctx) error {
	var req dto.RefundRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	payment, err := h.payments.Refund(c.UserContext(), c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return ok(c, payment)
}

// ListPayments GET /payments.
func (h *BillingHandler) ListPayments(c *fiber.Ctx) error {
	payments, err := h.payments.List(c.UserContext(), queryInt(c, "limit", 50), queryInt(c, "offset", 0))
	if err != nil {
		return err
	}
	return ok(c, payments)
}
