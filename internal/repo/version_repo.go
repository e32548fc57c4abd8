// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for ReportVersion
// and TrainingPair rows.
//
// Version numbering relies on the caller holding the case row lock (see
// GetCaseForUpdate): MaxVersionNumber followed by CreateVersion inside the
// same locked transaction is what keeps version numbers strictly increasing
// under concurrent writers. The unique (case_id, version_number) index is the
// backstop: a racing insert that slipped past the lock fails with a
// constraint violation rather than silently duplicating a number.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/casefile-ai/claims-backend/internal/domain"
)

// MaxVersionNumber returns the highest version number recorded for a case,
// or 0 when the case has no versions yet.
func MaxVersionNumber(ctx context.Context, tx *gorm.DB, caseID, tenantID string) (int, error) {
	var max *int
	err := tx.WithContext(ctx).
		Model(&domain.ReportVersion{}).
		Where("case_id = ? AND tenant_id = ?", caseID, tenantID).
		Select("MAX(version_number)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

// CreateVersion inserts a new report version snapshot. The caller fills
// VersionNumber (max+1 under the case lock); ID and CreatedAt are set here.
func CreateVersion(ctx context.Context, tx *gorm.DB, v *domain.ReportVersion) (*domain.ReportVersion, error) {
	v.ID = uuid.NewString()
	v.CreatedAt = time.Now().UTC()
	if err := tx.WithContext(ctx).Create(v).Error; err != nil {
		return nil, err
	}
	return v, nil
}

// GetVersion fetches a single version by ID and tenant, or ErrNotFound.
func GetVersion(ctx context.Context, db *gorm.DB, id, tenantID string) (*domain.ReportVersion, error) {
	var v domain.ReportVersion
	err := db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&v).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ListVersions returns all versions of a case, newest first.
func ListVersions(ctx context.Context, db *gorm.DB, caseID, tenantID string) ([]domain.ReportVersion, error) {
	var out []domain.ReportVersion
	err := db.WithContext(ctx).
		Where("case_id = ? AND tenant_id = ?", caseID, tenantID).
		Order("version_number desc").
		Find(&out).Error
	return out, err
}

// LatestDraftVersion returns the most recent non-final version that carries
// raw draft text, or ErrNotFound when the case has no AI draft. Finalization
// uses it to build the training pair.
func LatestDraftVersion(ctx context.Context, tx *gorm.DB, caseID, tenantID string) (*domain.ReportVersion, error) {
	var v domain.ReportVersion
	err := tx.WithContext(ctx).
		Where("case_id = ? AND tenant_id = ? AND is_final = ? AND draft_text IS NOT NULL",
			caseID, tenantID, false).
		Order("version_number desc").
		First(&v).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// CreateTrainingPair links a draft version to the final version of the same
// case. The unique index on final_version_id makes re-finalization attempts
// fail loudly instead of duplicating pairs.
func CreateTrainingPair(ctx context.Context, tx *gorm.DB, caseID, tenantID, draftVersionID, finalVersionID string) (*domain.TrainingPair, error) {
	p := &domain.TrainingPair{
		ID:             uuid.NewString(),
		CaseID:         caseID,
		TenantID:       tenantID,
		DraftVersionID: draftVersionID,
		FinalVersionID: finalVersionID,
		CreatedAt:      time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}
