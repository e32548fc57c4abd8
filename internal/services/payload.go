package services

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/casefile-ai/claims-backend/internal/blob"
	"github.com/casefile-ai/claims-backend/internal/llm"
	"github.com/casefile-ai/claims-backend/internal/render"
)

// decodePayload unmarshals a task/outbox payload with a uniform error shape.
func decodePayload(payload []byte, into any) error {
	if err := json.Unmarshal(payload, into); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

// GenerationConfig bundles the waterfall knobs for NewGenerationService.
type GenerationConfig struct {
	Model         string
	FallbackModel string
	CacheTTL      time.Duration
	Temperature   float64
	Retry         llm.RetryPolicy
}

// NewGenerationService constructs a GenerationService.
func NewGenerationService(db *gorm.DB, provider llm.Provider, renderer render.Renderer, store blob.Store, versions *VersionService, cfg GenerationConfig) *GenerationService {
	return &GenerationService{
		DB:            db,
		Provider:      provider,
		Renderer:      renderer,
		Blob:          store,
		Versions:      versions,
		Model:         cfg.Model,
		FallbackModel: cfg.FallbackModel,
		CacheTTL:      cfg.CacheTTL,
		Temperature:   cfg.Temperature,
		Retry:         cfg.Retry,
	}
}
