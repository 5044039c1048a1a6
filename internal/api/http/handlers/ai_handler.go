package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/maintenance-service/internal/api/dto"
	"github.com/spec-kit/maintenance-service/internal/service"
)

// AIHandler exposes the assistant endpoints.
type AIHandler struct {
	ai *service.AIService
}

// NewAIHandler constructs handler.
func NewAIHandler(aiService *service.AIService) *AIHandler {
	return &AIHandler{ai: aiService}
}

// Predict POST /ai/predict-maintenance/:assetId.
func (h *AIHandler) Predict(c *fiber.Ctx) error {
	out, err := h.ai.PredictMaintenance(c.UserContext(), c.Params("assetId"))
	if err != nil {
		return err
	}
	return ok(c, out)
}

// Triage POST /ai/triage-issue.
func (h *AIHandler) Triage(c *fiber.Ctx) error {
	var req dto.TriageRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	out, err := h.ai.TriageIssue(c.UserContext(), req.Description)
	if err != nil {
		return err
	}
	return ok(c, out)
}

// Sentiment GET /ai/sentiment-summary.
func (h *AIHandler) Sentiment(c *fiber.Ctx) error {
	out, err := h.ai.SentimentSummary(c.UserContext())
	if err != nil {
		return err
	}
	return ok(c, out)
}

// Recommendations GET /ai/dashboard-recommendations.
func (h *AIHandler) Recommendations(c *fiber.Ctx) error {
	out, err := h.ai.DashboardRecommendations(c.UserContext())
	if err != nil {
		return err
	}
	return ok(c, out)
}

// Chat POST /ai/chat.
func (h *AIHandler) Chat(c *fiber.Ctx) error {
	var req dto.ChatRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	reply, err := h.ai.Chat(c.UserContext(), req.Message, req.History)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"response": reply})
}
