// Package services – VersionService
//
// This file implements version bookkeeping for report artifacts. Version
// numbers are computed as max(existing)+1 while holding an exclusive row lock
// on the case, so concurrent callers can never mint the same number; numbers
// are strictly increasing per case and never reused. Finalization closes the
// case and, when an AI draft with raw text exists, records the (draft, final)
// training pair for future model improvement.
package services

import (
	"context"
	"errors"
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
)

// VersionService creates and lists report versions for cases.
type VersionService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Blob signs download URLs for version artifacts.
	Blob blob.Store
	// SignedURLTTL bounds artifact download link lifetimes.
	SignedURLTTL time.Duration
}

// NewVersionService constructs a VersionService.
func NewVersionService(db *gorm.DB, store blob.Store, signedURLTTL time.Duration) *VersionService {
	if signedURLTTL <= 0 {
		signedURLTTL = 15 * time.Minute
	}
	return &VersionService{DB: db, Blob: store, SignedURLTTL: signedURLTTL}
}

// CreateDraft persists a generated report as the next version of the case and
// returns the case to OPEN, ready for human review. The version number is
// assigned under the case row lock.
func (s *VersionService) CreateDraft(ctx context.Context, tenantID, caseID, text, artifactRef string) (*domain.ReportVersion, error) {
	tr := otel.Tracer("services/VersionService")
	ctx, span := tr.Start(ctx, "CreateDraft",
		trace.WithAttributes(attribute.String("case.id", caseID)),
	)
	defer span.End()

	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyDraftText
	}

	var version *domain.ReportVersion
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repo.GetCaseForUpdate(ctx, tx, caseID, tenantID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrCaseNotFound
			}
			return err
		}
		next, err := nextVersionNumber(ctx, tx, caseID, tenantID)
		if err != nil {
			return err
		}
		v, err := repo.CreateVersion(ctx, tx, &domain.ReportVersion{
			CaseID:        caseID,
			TenantID:      tenantID,
			VersionNumber: next,
			Source:        domain.VersionSourceAIDraft,
			DraftText:     &text,
			ArtifactRef:   artifactRef,
		})
		if err != nil {
			return err
		}
		version = v
		return repo.UpdateCaseStatus(ctx, tx, caseID, tenantID, domain.CaseStatusOpen)
	})
	if err != nil {
		return nil, err
	}
	versionsTotal.WithLabelValues("draft").Inc()
	return version, nil
}

// CreatePreliminary records a human-edited artifact as a non-final version,
// e.g. an adjuster's working copy uploaded before finalization.
func (s *VersionService) CreatePreliminary(ctx context.Context, tenantID, caseID, artifactRef string) (*domain.ReportVersion, error) {
	var version *domain.ReportVersion
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claim, err := repo.GetCaseForUpdate(ctx, tx, caseID, tenantID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrCaseNotFound
			}
			return err
		}
		if claim.Status == domain.CaseStatusClosed {
			return ErrCaseClosed
		}
		next, err := nextVersionNumber(ctx, tx, caseID, tenantID)
		if err != nil {
			return err
		}
		v, err := repo.CreateVersion(ctx, tx, &domain.ReportVersion{
			CaseID:        caseID,
			TenantID:      tenantID,
			VersionNumber: next,
			Source:        domain.VersionSourcePreliminary,
			ArtifactRef:   artifactRef,
		})
		if err != nil {
			return err
		}
		version = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	versionsTotal.WithLabelValues("preliminary").Inc()
	return version, nil
}

// Finalize records the human-approved artifact as the final version, links it
// to the most recent AI draft as a training pair when one exists, and closes
// the case. A case without a prior draft finalizes fine; the pair is simply
// skipped.
func (s *VersionService) Finalize(ctx context.Context, tenantID, caseID, finalArtifactRef string) (*domain.ReportVersion, error) {
	tr := otel.Tracer("services/VersionService")
	ctx, span := tr.Start(ctx, "Finalize",
		trace.WithAttributes(attribute.String("case.id", caseID)),
	)
	defer span.End()

	var version *domain.ReportVersion
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claim, err := repo.GetCaseForUpdate(ctx, tx, caseID, tenantID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrCaseNotFound
			}
			return err
		}
		if claim.Status == domain.CaseStatusClosed {
			return ErrCaseClosed
		}

		next, err := nextVersionNumber(ctx, tx, caseID, tenantID)
		if err != nil {
			return err
		}
		final, err := repo.CreateVersion(ctx, tx, &domain.ReportVersion{
			CaseID:        caseID,
			TenantID:      tenantID,
			VersionNumber: next,
			IsFinal:       true,
			Source:        domain.VersionSourcePreliminary,
			ArtifactRef:   finalArtifactRef,
		})
		if err != nil {
			return err
		}
		version = final

		draft, err := repo.LatestDraftVersion(ctx, tx, caseID, tenantID)
		switch {
		case err == nil:
			if _, err := repo.CreateTrainingPair(ctx, tx, caseID, tenantID, draft.ID, final.ID); err != nil {
				return err
			}
		case errors.Is(err, repo.ErrNotFound):
			log.Info().Str("case_id", caseID).Msg("finalized without an AI draft; no training pair recorded")
		default:
			return err
		}

		return repo.UpdateCaseStatus(ctx, tx, caseID, tenantID, domain.CaseStatusClosed)
	})
	if err != nil {
		return nil, err
	}
	versionsTotal.WithLabelValues("final").Inc()
	return version, nil
}

// UploadPreliminary stores an adjuster-edited artifact in blob storage and
// records it as the next non-final version of the case.
func (s *VersionService) UploadPreliminary(ctx context.Context, tenantID, caseID, filename, mimeType string, data []byte) (*domain.ReportVersion, error) {
	ref, err := s.storeArtifact(ctx, tenantID, caseID, filename, mimeType, data)
	if err != nil {
		return nil, err
	}
	return s.CreatePreliminary(ctx, tenantID, caseID, ref)
}

// UploadFinal stores the approved artifact in blob storage and finalizes the
// case with it.
func (s *VersionService) UploadFinal(ctx context.Context, tenantID, caseID, filename, mimeType string, data []byte) (*domain.ReportVersion, error) {
	ref, err := s.storeArtifact(ctx, tenantID, caseID, filename, mimeType, data)
	if err != nil {
		return nil, err
	}
	return s.Finalize(ctx, tenantID, caseID, ref)
}

func (s *VersionService) storeArtifact(ctx context.Context, tenantID, caseID, filename, mimeType string, data []byte) (string, error) {
	if strings.TrimSpace(filename) == "" {
		return "", ErrMissingFilename
	}
	if len(data) == 0 {
		return "", ErrEmptyFile
	}
	ref := path.Join(tenantID, caseID, "versions", uuid.NewString(), filename)
	return s.Blob.Put(ctx, ref, data, mimeType)
}

// List returns all versions of a case, newest first.
func (s *VersionService) List(ctx context.Context, tenantID, caseID string) ([]domain.ReportVersion, error) {
	return repo.ListVersions(ctx, s.DB, caseID, tenantID)
}

// DownloadURL returns a time-limited signed URL for a version's artifact.
func (s *VersionService) DownloadURL(ctx context.Context, tenantID, versionID string) (string, error) {
	v, err := repo.GetVersion(ctx, s.DB, versionID, tenantID)
	if errors.Is(err, repo.ErrNotFound) {
		return "", ErrVersionNotFound
	}
	if err != nil {
		return "", err
	}
	if v.ArtifactRef == "" {
		return "", ErrVersionNotFound
	}
	return s.Blob.SignedURL(ctx, v.ArtifactRef, s.SignedURLTTL)
}

// nextVersionNumber computes max(existing)+1. Callers must hold the case row
// lock.
func nextVersionNumber(ctx context.Context, tx *gorm.DB, caseID, tenantID string) (int, error) {
	max, err := repo.MaxVersionNumber(ctx, tx, caseID, tenantID)
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}
