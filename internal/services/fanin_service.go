// Package services – FanInService
//
// This file implements the fan-in coordinator: the single point where
// per-document extraction tasks converge into one generation trigger. The
// count-and-flip runs inside one transaction holding an exclusive row lock on
// the case, which is what makes the trigger exactly-once no matter how many
// extraction workers race each other or how often the queue re-delivers a
// completion signal.
package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/casefile-ai/claims-backend/internal/domain"
	"github.com/casefile-ai/claims-backend/internal/repo"
)

// GenerateReportPayload is the outbox payload for one generation trigger.
type GenerateReportPayload struct {
	CaseID   string `json:"case_id"`
	TenantID string `json:"tenant_id"`
}

// TopicGenerateReport is the outbox topic consumed by the generation handler.
const TopicGenerateReport = "generate-report"

// Dispatcher attempts immediate delivery of a just-committed outbox message.
// It is implemented by OutboxService; the fan-in only uses it best-effort.
type Dispatcher interface {
	DispatchMessage(ctx context.Context, messageID string) error
}

// FanInService decides when a case's document set is complete and records the
// generation intent in the transactional outbox.
type FanInService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Dispatcher delivers freshly written outbox messages inline. Nil is
	// valid; delivery then waits for the periodic processor.
	Dispatcher Dispatcher
}

// NewFanInService constructs a FanInService.
func NewFanInService(db *gorm.DB, dispatcher Dispatcher) *FanInService {
	return &FanInService{DB: db, Dispatcher: dispatcher}
}

// CheckCompletion runs the count-and-flip for one case. Inside a transaction
// holding the case row lock it: no-ops if the case is already GENERATING
// (duplicate signal); returns if any document is still non-terminal; flips the
// case to GENERATING and writes the generate-report outbox row when the set
// is complete and at least one document extracted successfully; marks the
// case ERROR when every document failed.
//
// After commit the written message is dispatched best-effort: a dispatch
// failure is logged, never returned, because the durable row already
// guarantees eventual delivery.
func (s *FanInService) CheckCompletion(ctx context.Context, caseID, tenantID string) error {
	tr := otel.Tracer("services/FanInService")
	ctx, span := tr.Start(ctx, "CheckCompletion",
		trace.WithAttributes(attribute.String("case.id", caseID)),
	)
	defer span.End()

	var messageID string
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claim, err := repo.GetCaseForUpdate(ctx, tx, caseID, tenantID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrCaseNotFound
			}
			return err
		}
		if claim.Status == domain.CaseStatusGenerating {
			faninChecksTotal.WithLabelValues("duplicate").Inc()
			return nil
		}

		pending, err := repo.CountPendingDocuments(ctx, tx, caseID, tenantID)
		if err != nil {
			return err
		}
		if pending > 0 {
			faninChecksTotal.WithLabelValues("pending").Inc()
			return nil
		}

		succeeded, err := repo.ListSuccessfulDocuments(ctx, tx, caseID, tenantID)
		if err != nil {
			return err
		}
		if len(succeeded) == 0 {
			// Complete but nothing extracted: there is no material to
			// generate from, so the case ends in ERROR instead of firing a
			// doomed trigger.
			if err := repo.UpdateCaseStatus(ctx, tx, caseID, tenantID, domain.CaseStatusError); err != nil {
				return err
			}
			faninChecksTotal.WithLabelValues("no_success").Inc()
			log.Warn().Str("case_id", caseID).Msg("all documents failed extraction; case marked ERROR")
			return nil
		}

		if err := repo.UpdateCaseStatus(ctx, tx, caseID, tenantID, domain.CaseStatusGenerating); err != nil {
			return err
		}
		msg, err := repo.CreateOutboxMessage(ctx, tx, TopicGenerateReport, &tenantID, GenerateReportPayload{
			CaseID:   caseID,
			TenantID: tenantID,
		})
		if err != nil {
			return err
		}
		messageID = msg.ID
		faninChecksTotal.WithLabelValues("triggered").Inc()
		return nil
	})
	if err != nil {
		return err
	}

	if messageID != "" {
		s.dispatch(ctx, caseID, messageID)
	}
	return nil
}

// RetryGeneration re-arms generation for a case that ended in ERROR (or sits
// OPEN after a rescue). It flips the case to GENERATING and writes a fresh
// outbox trigger under the same row lock discipline as CheckCompletion.
func (s *FanInService) RetryGeneration(ctx context.Context, caseID, tenantID string) error {
	tr := otel.Tracer("services/FanInService")
	ctx, span := tr.Start(ctx, "RetryGeneration",
		trace.WithAttributes(attribute.String("case.id", caseID)),
	)
	defer span.End()

	var messageID string
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claim, err := repo.GetCaseForUpdate(ctx, tx, caseID, tenantID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrCaseNotFound
			}
			return err
		}
		switch claim.Status {
		case domain.CaseStatusClosed:
			return ErrCaseClosed
		case domain.CaseStatusGenerating:
			return ErrGenerationInProgress
		}

		succeeded, err := repo.ListSuccessfulDocuments(ctx, tx, caseID, tenantID)
		if err != nil {
			return err
		}
		if len(succeeded) == 0 {
			return ErrNoSuccessfulDocuments
		}

		if err := repo.UpdateCaseStatus(ctx, tx, caseID, tenantID, domain.CaseStatusGenerating); err != nil {
			return err
		}
		msg, err := repo.CreateOutboxMessage(ctx, tx, TopicGenerateReport, &tenantID, GenerateReportPayload{
			CaseID:   caseID,
			TenantID: tenantID,
		})
		if err != nil {
			return err
		}
		messageID = msg.ID
		return nil
	})
	if err != nil {
		return err
	}

	s.dispatch(ctx, caseID, messageID)
	return nil
}

// dispatch tries inline delivery of the committed message.
func (s *FanInService) dispatch(ctx context.Context, caseID, messageID string) {
	if s.Dispatcher == nil {
		return
	}
	if err := s.Dispatcher.DispatchMessage(ctx, messageID); err != nil {
		log.Warn().Err(err).
			Str("case_id", caseID).
			Str("outbox_id", messageID).
			Msg("inline outbox dispatch failed; periodic processor will retry")
	}
}
