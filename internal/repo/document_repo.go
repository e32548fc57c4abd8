// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Document
// model: registration, extraction status transitions, and the pending count
// that drives the fan-in completion check.
//
// Status transition functions return ErrNotFound when the row is missing or
// belongs to another tenant; the raw gorm error otherwise.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/casefile-ai/claims-backend/internal/domain"
)

// CreateDocument registers an uploaded file against a case in status PENDING.
func CreateDocument(ctx context.Context, db *gorm.DB, caseID, tenantID, filename, storageRef, mimeType string) (*domain.Document, error) {
	d := &domain.Document{
		ID:         uuid.NewString(),
		CaseID:     caseID,
		TenantID:   tenantID,
		Filename:   filename,
		StorageRef: storageRef,
		MimeType:   mimeType,
		AIStatus:   domain.DocumentStatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(d).Error; err != nil {
		return nil, err
	}
	return d, nil
}

// GetDocument fetches a single document by ID and tenant, or ErrNotFound.
func GetDocument(ctx context.Context, db *gorm.DB, id, tenantID string) (*domain.Document, error) {
	var d domain.Document
	err := db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListDocuments returns all documents of a case, oldest first.
func ListDocuments(ctx context.Context, db *gorm.DB, caseID, tenantID string) ([]domain.Document, error) {
	var out []domain.Document
	err := db.WithContext(ctx).
		Where("case_id = ? AND tenant_id = ?", caseID, tenantID).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

// ListSuccessfulDocuments returns the documents whose extraction succeeded,
// oldest first. Generation builds its prompt from exactly this set.
func ListSuccessfulDocuments(ctx context.Context, db *gorm.DB, caseID, tenantID string) ([]domain.Document, error) {
	var out []domain.Document
	err := db.WithContext(ctx).
		Where("case_id = ? AND tenant_id = ? AND ai_status = ?", caseID, tenantID, domain.DocumentStatusSuccess).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

// CountPendingDocuments counts the documents of a case that are not yet in a
// terminal extraction state. Run inside the fan-in transaction while the case
// row lock is held: the count deciding the PROCESSING→GENERATING flip must
// not race a concurrent completion.
func CountPendingDocuments(ctx context.Context, tx *gorm.DB, caseID, tenantID string) (int64, error) {
	var n int64
	err := tx.WithContext(ctx).
		Model(&domain.Document{}).
		Where("case_id = ? AND tenant_id = ? AND ai_status NOT IN ?",
			caseID, tenantID,
			[]domain.DocumentStatus{domain.DocumentStatusSuccess, domain.DocumentStatusError, domain.DocumentStatusSkipped}).
		Count(&n).Error
	return n, err
}

// MarkDocumentProcessing moves a document into PROCESSING.
func MarkDocumentProcessing(ctx context.Context, db *gorm.DB, id, tenantID string) error {
	return updateDocument(ctx, db, id, tenantID, map[string]any{
		"ai_status": domain.DocumentStatusProcessing,
	})
}

// MarkDocumentSuccess stores the structured extraction result and moves the
// document into SUCCESS. Any previous error message is cleared.
func MarkDocumentSuccess(ctx context.Context, db *gorm.DB, id, tenantID string, content *domain.ExtractedContent) error {
	// Struct-based update: GORM only applies the field's json serializer on
	// the struct path, not for map[string]any values.
	res := db.WithContext(ctx).
		Model(&domain.Document{}).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Select("ai_status", "content", "error_message").
		Updates(&domain.Document{
			AIStatus:     domain.DocumentStatusSuccess,
			Content:      content,
			ErrorMessage: "",
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkDocumentError records a classified, user-facing extraction failure.
// Extraction failures are terminal: they are never retried automatically.
func MarkDocumentError(ctx context.Context, db *gorm.DB, id, tenantID, message string) error {
	return updateDocument(ctx, db, id, tenantID, map[string]any{
		"ai_status":     domain.DocumentStatusError,
		"error_message": message,
	})
}

// MarkDocumentSkipped marks a document intentionally excluded from extraction.
func MarkDocumentSkipped(ctx context.Context, db *gorm.DB, id, tenantID string) error {
	return updateDocument(ctx, db, id, tenantID, map[string]any{
		"ai_status": domain.DocumentStatusSkipped,
	})
}

func updateDocument(ctx context.Context, db *gorm.DB, id, tenantID string, fields map[string]any) error {
	res := db.WithContext(ctx).
		Model(&domain.Document{}).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
