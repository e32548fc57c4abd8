// Package services – ExtractionService
//
// This file implements the per-document extraction worker. Each invocation
// handles exactly one document: download the bytes, run the extraction
// collaborator behind a bounded concurrency gate, persist the structured
// result or a classified user-facing error, and always hand off to the
// fan-in check afterwards. The worker is idempotent: a re-delivered task for
// an already-SUCCESS document changes nothing but still runs the fan-in, so
// at-least-once queues cannot lose a completion signal.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
	"gorm.io/gorm"

	"github.com/casefile-ai/claims-backend/internal/blob"
	"github.com/casefile-ai/claims-backend/internal/domain"
	"github.com/casefile-ai/claims-backend/internal/extract"
	"github.com/casefile-ai/claims-backend/internal/repo"
)

// CompletionChecker is the fan-in boundary the worker reports into.
type CompletionChecker interface {
	CheckCompletion(ctx context.Context, caseID, tenantID string) error
}

// ExtractionService runs document extraction tasks.
type ExtractionService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Blob is the object store holding the uploaded bytes.
	Blob blob.Store
	// Extractor turns raw bytes into structured content.
	Extractor extract.Extractor
	// FanIn receives the completion signal after every run.
	FanIn CompletionChecker

	// gate bounds concurrent extractions on this worker; extraction holds
	// the whole file in memory while parsing.
	gate *semaphore.Weighted
}

// NewExtractionService constructs an ExtractionService with a concurrency
// gate of the given size.
func NewExtractionService(db *gorm.DB, store blob.Store, extractor extract.Extractor, fanIn CompletionChecker, concurrency int) *ExtractionService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &ExtractionService{
		DB:        db,
		Blob:      store,
		Extractor: extractor,
		FanIn:     fanIn,
		gate:      semaphore.NewWeighted(int64(concurrency)),
	}
}

// ProcessDocument handles one delivered extraction task.
//
// Extraction failures are terminal for the document (classified, stored,
// never retried) and never returned to the queue. Only coordination errors
// (the document row being unreadable, the status update failing, the fan-in
// transaction failing) propagate, so the queue retries the whole task.
func (s *ExtractionService) ProcessDocument(ctx context.Context, documentID, tenantID string) error {
	tr := otel.Tracer("services/ExtractionService")
	ctx, span := tr.Start(ctx, "ProcessDocument",
		trace.WithAttributes(attribute.String("document.id", documentID)),
	)
	defer span.End()

	doc, err := repo.GetDocument(ctx, s.DB, documentID, tenantID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrDocumentNotFound
		}
		return err
	}

	if doc.AIStatus == domain.DocumentStatusSuccess {
		// Duplicate delivery; the stored result stands.
		extractionsTotal.WithLabelValues("skipped_duplicate").Inc()
		return s.FanIn.CheckCompletion(ctx, doc.CaseID, tenantID)
	}

	if err := repo.MarkDocumentProcessing(ctx, s.DB, doc.ID, tenantID); err != nil {
		return err
	}

	content, extractErr := s.runExtraction(ctx, doc)
	if extractErr != nil {
		msg := extract.Classify(extractErr).UserMessage()
		if err := repo.MarkDocumentError(ctx, s.DB, doc.ID, tenantID, msg); err != nil {
			return err
		}
		extractionsTotal.WithLabelValues("error").Inc()
		log.Warn().Err(extractErr).
			Str("document_id", doc.ID).
			Str("case_id", doc.CaseID).
			Msg("document extraction failed")
	} else {
		if err := repo.MarkDocumentSuccess(ctx, s.DB, doc.ID, tenantID, content); err != nil {
			return err
		}
		extractionsTotal.WithLabelValues("success").Inc()
	}

	return s.FanIn.CheckCompletion(ctx, doc.CaseID, tenantID)
}

// runExtraction downloads the document and runs the extractor inside the
// concurrency gate.
func (s *ExtractionService) runExtraction(ctx context.Context, doc *domain.Document) (*domain.ExtractedContent, error) {
	if err := s.gate.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire extraction slot: %w", err)
	}
	defer s.gate.Release(1)

	data, err := s.Blob.Get(ctx, doc.StorageRef)
	if err != nil {
		return nil, extract.NewError(extract.ErrKindGeneric, err)
	}
	return s.Extractor.Extract(ctx, data, doc.MimeType)
}
