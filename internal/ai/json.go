package ai

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"github.com/zeebo/blake3"
	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-service/internal/cache"
)

// Generator asks the model for JSON, caching answers by prompt digest.
type Generator struct {
	model  Model
	cache  cache.Store
	ttl    time.Duration
	logger *zap.Logger
}

// NewGenerator wires a model with a response cache. A nil cache disables
// caching.
func NewGenerator(model Model, store cache.Store, ttl time.Duration, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{model: model, cache: store, ttl: ttl, logger: logger}
}

// CacheKey digests prompt with blake3.
func CacheKey(prompt string) string {
	sum := blake3.Sum256([]byte(prompt))
	return "ai:" + hex.EncodeToString(sum[:])
}

// GenerateJSON returns the decoded JSON answer for prompt. On a quota error
// it returns fallback unchanged. Other failures are returned.
func (g *Generator) GenerateJSON(ctx context.Context, prompt string, fallback any) (any, error) {
	key := CacheKey(prompt)
	if g.cache != nil {
		if cached, ok, err := g.cache.Get(ctx, key); err == nil && ok {
			var out any
			if err := json.Unmarshal([]byte(cached), &out); err == nil {
				return out, nil
			}
		} else if err != nil {
			g.logger.Warn("ai cache read failed", zap.Error(err))
		}
	}

	full := SystemInstruction + "\n\nTask: Return ONLY a JSON object.\n\n" + prompt
	text, err := g.model.Generate(ctx, full)
	if err != nil {
		if errors.Is(err, ErrQuota) {
			g.logger.Warn("ai quota exceeded, returning fallback")
			return fallback, nil
		}
		return nil, fmt.Errorf("AI Analysis Failed: %w", err)
	}

	cleaned := CleanJSON(text)
	var out any
	if err := json.Unmarshal(cleaned, &out); err != nil {
		return nil, fmt.Errorf("AI Analysis Failed: invalid JSON from model: %w", err)
	}
	if g.cache != nil {
		if err := g.cache.Set(ctx, key, string(cleaned), g.ttl); err != nil {
			g.logger.Warn("ai cache write failed", zap.Error(err))
		}
	}
	return out, nil
}

// CleanJSON strips markdown code fences and JSONC comments or trailing
// commas from model output.
func CleanJSON(text string) []byte {
	s := strings.TrimSpace(text)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```JSON", "")
	s = strings.ReplaceAll(s, "```", "")
	s = strings.TrimSpace(s)
	return jsonc.ToJSON([]byte(s))
}
