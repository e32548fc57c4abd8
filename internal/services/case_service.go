// Package services – CaseService
//
// This file implements the CaseService, which owns the claim-case lifecycle
// around the pipeline: opening and listing cases, registering uploaded
// documents (store the bytes, create the row, dispatch the extraction task),
// and handing out signed download URLs. Registration is idempotent when the
// client supplies an Idempotency-Key: a replay returns the originally
// registered document instead of enqueueing a second extraction.
package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/casefile-ai/claims-backend/internal/blob"
	"github.com/casefile-ai/claims-backend/internal/domain"
	"github.com/casefile-ai/claims-backend/internal/repo"
	"github.com/casefile-ai/claims-backend/internal/tasks"
)

// idempotencyTTL bounds how long a registration replay returns the original
// document before the key may be reused.
const idempotencyTTL = 24 * time.Hour

// ProcessDocumentPayload is the task payload for one extraction run.
type ProcessDocumentPayload struct {
	DocumentID string `json:"document_id"`
	TenantID   string `json:"tenant_id"`
}

// CaseService provides case CRUD and document registration on top of the
// pipeline. It owns the OPEN→PROCESSING transition; all later transitions
// belong to the fan-in, generation, and version services.
type CaseService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Blob stores uploaded document bytes.
	Blob blob.Store
	// Executor dispatches extraction tasks.
	Executor tasks.Executor
	// SignedURLTTL bounds download link lifetimes.
	SignedURLTTL time.Duration
}

// NewCaseService constructs a CaseService.
func NewCaseService(db *gorm.DB, store blob.Store, executor tasks.Executor, signedURLTTL time.Duration) *CaseService {
	if signedURLTTL <= 0 {
		signedURLTTL = 15 * time.Minute
	}
	return &CaseService{DB: db, Blob: store, Executor: executor, SignedURLTTL: signedURLTTL}
}

// Create opens a new case for the tenant.
func (s *CaseService) Create(ctx context.Context, tenantID, clientRef, reference string) (*domain.Case, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, ErrEmptyReference
	}
	return repo.CreateCase(ctx, s.DB, tenantID, strings.TrimSpace(clientRef), reference)
}

// Get returns one case scoped to the tenant.
func (s *CaseService) Get(ctx context.Context, tenantID, caseID string) (*domain.Case, error) {
	c, err := repo.GetCase(ctx, s.DB, caseID, tenantID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrCaseNotFound
	}
	return c, err
}

// ListPage returns a page of the tenant's cases with the total count.
// It applies defaults for invalid page/pageSize.
func (s *CaseService) ListPage(ctx context.Context, tenantID string, page, pageSize int) ([]domain.Case, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountCases(ctx, s.DB, tenantID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Case{}, 0, nil
	}

	items, err := repo.ListCasesPage(ctx, s.DB, tenantID, offset, pageSize)
	return items, total, err
}

// Delete soft-deletes a case. Its documents and versions remain for audit.
func (s *CaseService) Delete(ctx context.Context, tenantID, caseID string) error {
	err := repo.SoftDeleteCase(ctx, s.DB, caseID, tenantID)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrCaseNotFound
	}
	return err
}

// RegisterDocument stores the uploaded bytes, creates the document row in
// PENDING, moves the case to PROCESSING, and dispatches the extraction task.
//
// When idemKey is non-empty, a replay of the same (tenant, case, key) tuple
// returns the document registered by the first call and dispatches nothing.
func (s *CaseService) RegisterDocument(ctx context.Context, tenantID, caseID, filename, mimeType, idemKey string, data []byte) (*domain.Document, error) {
	tr := otel.Tracer("services/CaseService")
	ctx, span := tr.Start(ctx, "RegisterDocument",
		trace.WithAttributes(
			attribute.String("case.id", caseID),
			attribute.String("document.mime_type", mimeType),
		),
	)
	defer span.End()

	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, ErrMissingFilename
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	claim, err := s.Get(ctx, tenantID, caseID)
	if err != nil {
		return nil, err
	}
	if claim.Status == domain.CaseStatusClosed {
		return nil, ErrCaseClosed
	}

	// Replay check before any side effects.
	if idemKey != "" {
		if rec, err := repo.GetIdempotency(ctx, s.DB, tenantID, caseID, idemKey, time.Now().UTC()); err == nil {
			doc, err := repo.GetDocument(ctx, s.DB, rec.DocumentID, tenantID)
			if err == nil {
				return doc, nil
			}
			// Stale record pointing at a purged document: fall through and
			// register fresh.
		}
	}

	storageRef := path.Join(tenantID, caseID, uuid.NewString(), filename)
	if _, err := s.Blob.Put(ctx, storageRef, data, mimeType); err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}

	var doc *domain.Document
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		d, err := repo.CreateDocument(ctx, tx, caseID, tenantID, filename, storageRef, mimeType)
		if err != nil {
			return err
		}
		doc = d
		if claim.Status == domain.CaseStatusOpen {
			if err := repo.UpdateCaseStatus(ctx, tx, caseID, tenantID, domain.CaseStatusProcessing); err != nil {
				return err
			}
		}
		if idemKey != "" {
			if _, err := repo.CreateIdempotency(ctx, tx, tenantID, caseID, idemKey, d.ID, 201, idempotencyTTL); err != nil && !errors.Is(err, repo.ErrDuplicate) {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = s.Executor.Enqueue(ctx, tasks.TaskProcessDocument, ProcessDocumentPayload{
		DocumentID: doc.ID,
		TenantID:   tenantID,
	})
	if err != nil {
		// The row exists and the sweep or a manual retry can pick the case
		// up, but the caller should know dispatch failed.
		return nil, fmt.Errorf("dispatch extraction for document %s: %w", doc.ID, err)
	}

	log.Info().
		Str("case_id", caseID).
		Str("document_id", doc.ID).
		Str("mime_type", mimeType).
		Msg("document registered")
	return doc, nil
}

// ListDocuments returns all documents of a case.
func (s *CaseService) ListDocuments(ctx context.Context, tenantID, caseID string) ([]domain.Document, error) {
	if _, err := s.Get(ctx, tenantID, caseID); err != nil {
		return nil, err
	}
	return repo.ListDocuments(ctx, s.DB, caseID, tenantID)
}

// DocumentDownloadURL returns a time-limited signed URL for the document's
// original bytes.
func (s *CaseService) DocumentDownloadURL(ctx context.Context, tenantID, documentID string) (string, error) {
	doc, err := repo.GetDocument(ctx, s.DB, documentID, tenantID)
	if errors.Is(err, repo.ErrNotFound) {
		return "", ErrDocumentNotFound
	}
	if err != nil {
		return "", err
	}
	return s.Blob.SignedURL(ctx, doc.StorageRef, s.SignedURLTTL)
}
