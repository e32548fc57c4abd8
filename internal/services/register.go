package services

import (
	"context"

	"github.com/casefile-ai/claims-backend/internal/tasks"
)

// RegisterTaskHandlers binds the pipeline's queue tasks to their services.
func RegisterTaskHandlers(reg *tasks.Registry, extraction *ExtractionService) {
	reg.Register(tasks.TaskProcessDocument, func(ctx context.Context, payload []byte) error {
		var msg ProcessDocumentPayload
		if err := decodePayload(payload, &msg); err != nil {
			return err
		}
		return extraction.ProcessDocument(ctx, msg.DocumentID, msg.TenantID)
	})
}

// RegisterOutboxHandlers binds outbox topics to their services.
func RegisterOutboxHandlers(reg *tasks.Registry, generation *GenerationService) {
	reg.Register(TopicGenerateReport, generation.HandleGenerateReport)
}
