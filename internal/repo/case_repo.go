// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Case model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a case is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// Tenant scoping: every query filters by tenant_id. The only exception is
// RescueStuckCases, a privileged maintenance sweep that operates across
// tenants by design.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/casefile-ai/claims-backend/internal/domain"
)

// CreateCase inserts a new Case row for the given tenant in status OPEN.
// The case ID is a randomly generated UUID (string), and CreatedAt is set to UTC.
func CreateCase(ctx context.Context, db *gorm.DB, tenantID, clientRef, reference string) (*domain.Case, error) {
	c := &domain.Case{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		ClientRef: clientRef,
		Reference: reference,
		Status:    domain.CaseStatusOpen,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// GetCase fetches a single case by its ID and tenant, or ErrNotFound.
func GetCase(ctx context.Context, db *gorm.DB, id, tenantID string) (*domain.Case, error) {
	var c domain.Case
	err := db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCaseForUpdate fetches a case holding an exclusive row lock for the rest
// of the surrounding transaction. Callers must run inside db.Transaction;
// the lock serializes the fan-in count-and-flip and version numbering.
func GetCaseForUpdate(ctx context.Context, tx *gorm.DB, id, tenantID string) (*domain.Case, error) {
	var c domain.Case
	err := lockForUpdate(tx.WithContext(ctx)).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CountCases returns the total number of cases owned by the tenant.
func CountCases(ctx context.Context, db *gorm.DB, tenantID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Case{}).
		Where("tenant_id = ?", tenantID).
		Count(&total).Error
	return total, err
}

// ListCasesPage returns a paginated slice of cases for the tenant, ordered by
// creation time descending. Use CountCases to obtain the total for pagination
// metadata.
func ListCasesPage(ctx context.Context, db *gorm.DB, tenantID string, offset, limit int) ([]domain.Case, error) {
	var out []domain.Case
	err := db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UpdateCaseStatus sets the status of a case. If no rows are affected (case
// missing or wrong tenant), it returns ErrNotFound.
func UpdateCaseStatus(ctx context.Context, db *gorm.DB, id, tenantID string, status domain.CaseStatus) error {
	res := db.WithContext(ctx).
		Model(&domain.Case{}).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SoftDeleteCase marks a case deleted. Rows are retained for audit; GORM's
// DeletedAt hides them from subsequent queries.
func SoftDeleteCase(ctx context.Context, db *gorm.DB, id, tenantID string) error {
	res := db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Delete(&domain.Case{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RescueStuckCases resets every case stuck in PROCESSING or GENERATING since
// before cutoff back to OPEN, in a single bulk UPDATE, and returns the number
// of rescued rows. It deliberately avoids a fetch-loop-update so memory stays
// bounded and a mid-sweep crash cannot leave half the rows touched outside a
// transaction.
//
// This is a privileged cross-tenant operation: worker crashes do not respect
// tenant boundaries, and neither does the sweep.
func RescueStuckCases(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Case{}).
		Where("status IN ? AND created_at < ?",
			[]domain.CaseStatus{domain.CaseStatusProcessing, domain.CaseStatusGenerating}, cutoff).
		Update("status", domain.CaseStatusOpen)
	return res.RowsAffected, res.Error
}
