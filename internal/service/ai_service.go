package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/maintenance-service/internal/ai"
	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/repository"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

const (
	predictionIssueLimit  = 10
	sentimentSampleLimit  = 50
	recommendationSample  = 20
	chatPropertyLimit     = 10
	chatRecentIssueLimit  = 5
	quotaChatReply        = "I'm currently receiving too many requests (Free Tier Quota Exceeded). Please try again in a few minutes."
	noSentimentDataReply  = "No data available for analysis yet."
	neutralSentimentReply = "System is operating normally. Most feedback indicates standard response times."
)

// JSONGenerator produces decoded JSON answers with a quota fallback.
type JSONGenerator interface {
	GenerateJSON(ctx context.Context, prompt string, fallback any) (any, error)
}

// AIService assembles prompts from stored data for the model.
type AIService struct {
	generator  JSONGenerator
	model      ai.Model
	issues     repository.IssueRepository
	assets     repository.AssetRepository
	properties repository.PropertyRepository
	internals  repository.InternalTechnicianRepository
	feedback   repository.FeedbackRepository
	clock      Clock
	logger     *zap.Logger
}

// AIDependencies bundles collaborators for the AI service.
type AIDependencies struct {
	Generator              JSONGenerator
	Model                  ai.Model
	IssueRepo              repository.IssueRepository
	AssetRepo              repository.AssetRepository
	PropertyRepo           repository.PropertyRepository
	InternalTechnicianRepo repository.InternalTechnicianRepository
	FeedbackRepo           repository.FeedbackRepository
	Clock                  Clock
	Logger                 *zap.Logger
}

// ChatContext is the system snapshot sent along with a chat message.
type ChatContext struct {
	Stats        ChatStats `json:"stats"`
	Properties   []string  `json:"properties"`
	RecentIssues []string  `json:"recentIssues"`
}

// ChatStats are headline counts for the chat context.
type ChatStats struct {
	TotalIssues       int64  `json:"totalIssues"`
	PendingIssues     int64  `json:"pendingIssues"`
	CompletedIssues   int64  `json:"completedIssues"`
	ActiveTechnicians int    `json:"activeTechnicians"`
	TotalAssets       int64  `json:"totalAssets"`
	Today             string `json:"today"`
}

// NewAIService constructs the service.
func NewAIService(deps AIDependencies) *AIService {
	return &AIService{
		generator:  deps.Generator,
		model:      deps.Model,
		issues:     deps.IssueRepo,
		assets:     deps.AssetRepo,
		properties: deps.PropertyRepo,
		internals:  deps.InternalTechnicianRepo,
		feedback:   deps.FeedbackRepo,
		clock:      deps.Clock,
		logger:     nopLogger(deps.Logger),
	}
}

// PredictMaintenance estimates the next maintenance date for an asset from
// its recent issues.
func (s *AIService) PredictMaintenance(ctx context.Context, assetID string) (any, error) {
	if err := requireID("assetId", assetID); err != nil {
		return nil, err
	}
	asset, err := s.assets.GetByID(ctx, assetID)
	if asset, err = lookup(asset, err, "asset", assetID); err != nil {
		return nil, err
	}
	issues, err := s.issues.List(ctx, repository.IssueFilter{AssetIDs: []string{assetID}, Limit: predictionIssueLimit})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	subject := struct {
		domain.Asset
		Issues []domain.Issue `json:"issues"`
	}{Asset: *asset, Issues: issues}
	prompt := fmt.Sprintf("Predict maintenance for: %s. Return JSON with predictedDate, reasoning, riskLevel.", mustJSON(subject))
	fallback := map[string]any{
		"predictedDate": s.clock.now().AddDate(0, 0, 30).Format("2006-01-02"),
		"reasoning":     "Based on historical usage patterns and asset age, preventive maintenance is recommended in 30 days.",
		"riskLevel":     "Medium",
	}
	return s.generate(ctx, prompt, fallback)
}

// TriageIssue suggests priority, category and technician for a description.
func (s *AIService) TriageIssue(ctx context.Context, description string) (any, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, apperrors.NewValidationError("Description is required", map[string]any{"field": "description"})
	}
	techs, err := s.activeTechnicians(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	suggested := "tech-1"
	if len(techs) > 0 {
		suggested = techs[0].ID.Hex()
	}
	prompt := fmt.Sprintf("Triage issue: %q. Technicians: %s. Return JSON with priority, category, suggestedTechnicianId, confidence.", description, mustJSON(techs))
	fallback := map[string]any{
		"priority":              "Medium",
		"category":              "General Maintenance",
		"suggestedTechnicianId": suggested,
		"confidence":            0.8,
	}
	return s.generate(ctx, prompt, fallback)
}

// SentimentSummary analyses recent feedback, or recent issues when there is
// no feedback.
func (s *AIService) SentimentSummary(ctx context.Context) (any, error) {
	type sample struct {
		ID      string `json:"id"`
		Message string `json:"message"`
	}
	feedback, err := s.feedback.List(ctx, sentimentSampleLimit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	samples := make([]sample, 0, len(feedback))
	for _, f := range feedback {
		samples = append(samples, sample{ID: f.ID.Hex(), Message: f.Message})
	}
	if len(samples) == 0 {
		issues, err := s.issues.List(ctx, repository.IssueFilter{Limit: sentimentSampleLimit})
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		for _, i := range issues {
			samples = append(samples, sample{ID: i.ID.Hex(), Message: i.Title + ": " + i.Description})
		}
	}
	if len(samples) == 0 {
		return map[string]any{
			"overallSentiment":  "Neutral",
			"summary":           noSentimentDataReply,
			"urgentFeedbackIds": []string{},
		}, nil
	}

	prompt := fmt.Sprintf("Analyze sentiment: %s. Return JSON with overallSentiment, urgentFeedbackIds, summary.", mustJSON(samples))
	fallback := map[string]any{
		"overallSentiment":  "Neutral",
		"urgentFeedbackIds": []string{},
		"summary":           neutralSentimentReply,
	}
	return s.generate(ctx, prompt, fallback)
}

// DashboardRecommendations proposes actions from recent activity.
func (s *AIService) DashboardRecommendations(ctx context.Context) (any, error) {
	var (
		issues []domain.Issue
		assets []domain.Asset
		techs  []domain.InternalTechnician
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		issues, err = s.issues.List(gctx, repository.IssueFilter{Limit: recommendationSample})
		return err
	})
	g.Go(func() (err error) {
		assets, err = s.assets.List(gctx, repository.AssetFilter{})
		return err
	})
	g.Go(func() (err error) {
		techs, err = s.activeTechnicians(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperrors.MapError(err)
	}

	type recentIssue struct {
		Title    string             `json:"title"`
		Status   domain.IssueStatus `json:"status"`
		Location string             `json:"location"`
	}
	recent := make([]recentIssue, 0, len(issues))
	for _, i := range issues {
		recent = append(recent, recentIssue{Title: i.Title, Status: i.Status, Location: i.Location})
	}
	if len(assets) > recommendationSample {
		assets = assets[:recommendationSample]
	}
	var types []string
	for _, a := range assets {
		types = append(types, a.Type)
	}

	summary := map[string]any{
		"recentIssues":      recent,
		"assetTypes":        uniqueStrings(types),
		"activeTechnicians": len(techs),
	}
	prompt := fmt.Sprintf("Recommendations for: %s. Return JSON with recommendations array (type, title, content).", mustJSON(summary))
	fallback := map[string]any{
		"recommendations": []map[string]string{
			{
				"type":    "PREVENTIVE MAINTENANCE",
				"title":   "Schedule HVAC Inspection",
				"content": "Based on upcoming seasonal changes, scheduling a checkup for all HVAC systems can prevent emergency failure.",
			},
			{
				"type":    "RESOURCE OPTIMIZATION",
				"title":   "Optimize Technician Routes",
				"content": "Grouping tasks by building location could improve efficiency by 15%.",
			},
		},
	}
	return s.generate(ctx, prompt, fallback)
}

// Chat answers a message with system context. It never fails on model
// errors; those become an apology text.
func (s *AIService) Chat(ctx context.Context, message string, history []ai.Message) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", apperrors.NewValidationError("Message is required", map[string]any{"field": "message"})
	}

	effective := message
	if chatCtx, err := s.ChatContext(ctx); err != nil {
		s.logger.Warn("chat context unavailable", zap.Error(err))
	} else {
		effective = fmt.Sprintf("CONTEXT: %s\n\nUSER MESSAGE: %s", mustJSON(chatCtx), message)
	}

	reply, err := s.model.Chat(ctx, history, effective)
	if err == nil {
		return reply, nil
	}
	if errors.Is(err, ai.ErrQuota) {
		return quotaChatReply, nil
	}
	status := "Error"
	var apiErr *ai.APIError
	if errors.As(err, &apiErr) {
		status = fmt.Sprint(apiErr.Status)
	}
	s.logger.Error("ai chat failed", zap.Error(err))
	return fmt.Sprintf("I'm sorry, I'm having trouble connecting to the AI service. (Status: %s). Error: %s", status, err.Error()), nil
}

// ChatContext gathers headline counts, a few properties and the latest issues.
func (s *AIService) ChatContext(ctx context.Context) (*ChatContext, error) {
	var (
		counts     map[string]int64
		techs      []domain.InternalTechnician
		properties []domain.Property
		recent     []domain.Issue
		assetCount int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		counts, err = s.issues.CountByStatus(gctx)
		return err
	})
	g.Go(func() (err error) {
		techs, err = s.activeTechnicians(gctx)
		return err
	})
	g.Go(func() (err error) {
		properties, err = s.properties.List(gctx, repository.PropertyFilter{})
		return err
	})
	g.Go(func() (err error) {
		recent, err = s.issues.List(gctx, repository.IssueFilter{Limit: chatRecentIssueLimit})
		return err
	})
	g.Go(func() (err error) {
		assetCount, err = s.assets.Count(gctx, repository.AssetFilter{})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &ChatContext{
		Stats: ChatStats{
			PendingIssues:     counts[string(domain.IssueStatusPending)],
			CompletedIssues:   counts[string(domain.IssueStatusComplete)],
			ActiveTechnicians: len(techs),
			TotalAssets:       assetCount,
			Today:             s.clock.now().Format("2006-01-02"),
		},
		Properties:   []string{},
		RecentIssues: []string{},
	}
	for _, n := range counts {
		out.Stats.TotalIssues += n
	}
	if len(properties) > chatPropertyLimit {
		properties = properties[:chatPropertyLimit]
	}
	for _, p := range properties {
		out.Properties = append(out.Properties, fmt.Sprintf("%s (%s) at %s", p.Name, p.Type, p.Address))
	}
	for _, i := range recent {
		out.RecentIssues = append(out.RecentIssues, fmt.Sprintf("%s [Status: %s] at %s", i.Title, i.Status, i.Location))
	}
	return out, nil
}

func (s *AIService) generate(ctx context.Context, prompt string, fallback any) (any, error) {
	out, err := s.generator.GenerateJSON(ctx, prompt, fallback)
	if err != nil {
		s.logger.Error("ai generation failed", zap.Error(err))
		return nil, apperrors.NewInternalError(err)
	}
	return out, nil
}

func (s *AIService) activeTechnicians(ctx context.Context) ([]domain.InternalTechnician, error) {
	return s.internals.List(ctx, repository.InternalTechnicianFilter{Status: domain.TechnicianStatusActive})
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}
