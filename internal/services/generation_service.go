// Package services – GenerationService
//
// This file implements the generation orchestrator: the outbox handler that
// turns a completed case's extracted documents into a draft report version.
// Provider calls run through a three-leg waterfall (primary model with a
// shared prompt cache, then the primary model with everything inlined, then
// the fallback model), each leg wrapped in bounded exponential-backoff
// retries for transient failures. Exhaustion marks the case ERROR and
// surfaces the error to the outbox, which records the failed attempt; any
// later delivery of the same trigger finds the case no longer GENERATING and
// drops it, so recovery is an explicit user retry, not blind redelivery.
package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/casefile-ai/claims-backend/internal/blob"
	"github.com/casefile-ai/claims-backend/internal/domain"
	"github.com/casefile-ai/claims-backend/internal/llm"
	"github.com/casefile-ai/claims-backend/internal/render"
	"github.com/casefile-ai/claims-backend/internal/repo"
)

// reportInstruction is the fixed task framing prepended to every generation
// prompt; the extracted document corpus follows it.
const reportInstruction = `You are an insurance claims analyst. Using only the claim documents provided, write a structured damage-assessment report in markdown with the sections: Summary, Documents Reviewed, Findings, Assessment, Open Items. Cite the source document for every finding. Do not invent facts that are not in the documents.`

// GenerationService executes the report-generation waterfall.
type GenerationService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Provider is the LLM boundary.
	Provider llm.Provider
	// Renderer converts report text into the stored artifact.
	Renderer render.Renderer
	// Blob stores rendered artifacts and serves original document bytes for
	// the provider file side-channel.
	Blob blob.Store
	// Versions persists the draft under the case row lock.
	Versions *VersionService

	// Model is the primary model; FallbackModel is tried on overload and may
	// be empty to disable the fallback leg.
	Model         string
	FallbackModel string
	// CacheTTL is the shared prompt cache lifetime; zero disables caching.
	CacheTTL time.Duration
	// Temperature is passed through to every provider call.
	Temperature float64
	// Retry wraps every waterfall leg.
	Retry llm.RetryPolicy
}

// GenerationResult carries the waterfall outcome back to callers and tests.
type GenerationResult struct {
	Text  string
	Usage llm.Usage
	// Calls is the number of provider generate calls actually made.
	Calls int
}

// HandleGenerateReport is the outbox handler for TopicGenerateReport. On
// success it persists the draft version (which also returns the case to
// OPEN); on waterfall exhaustion it marks the case ERROR and returns the
// error so the outbox records the failed attempt.
func (s *GenerationService) HandleGenerateReport(ctx context.Context, payload []byte) error {
	var msg GenerateReportPayload
	if err := decodePayload(payload, &msg); err != nil {
		return err
	}

	tr := otel.Tracer("services/GenerationService")
	ctx, span := tr.Start(ctx, "HandleGenerateReport",
		trace.WithAttributes(attribute.String("case.id", msg.CaseID)),
	)
	defer span.End()

	claim, err := repo.GetCase(ctx, s.DB, msg.CaseID, msg.TenantID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrCaseNotFound
		}
		return err
	}
	if claim.Status != domain.CaseStatusGenerating {
		// Stale trigger: the case was rescued, retried, or finalized since
		// this message was written. Drop it.
		log.Info().
			Str("case_id", claim.ID).
			Str("status", string(claim.Status)).
			Msg("skipping generation trigger for case no longer GENERATING")
		return nil
	}

	result, err := s.Generate(ctx, msg.CaseID, msg.TenantID)
	if err != nil {
		if statusErr := repo.UpdateCaseStatus(ctx, s.DB, msg.CaseID, msg.TenantID, domain.CaseStatusError); statusErr != nil {
			log.Error().Err(statusErr).Str("case_id", msg.CaseID).Msg("failed to mark case ERROR after generation failure")
		}
		return fmt.Errorf("generate report for case %s: %w", msg.CaseID, err)
	}

	artifact, contentType, err := s.Renderer.Render(ctx, result.Text)
	if err != nil {
		return fmt.Errorf("render report for case %s: %w", msg.CaseID, err)
	}
	artifactRef := path.Join(msg.TenantID, msg.CaseID, "reports", uuid.NewString()+".md")
	if _, err := s.Blob.Put(ctx, artifactRef, artifact, contentType); err != nil {
		return fmt.Errorf("store report artifact for case %s: %w", msg.CaseID, err)
	}

	version, err := s.Versions.CreateDraft(ctx, msg.TenantID, msg.CaseID, result.Text, artifactRef)
	if err != nil {
		return fmt.Errorf("persist draft version for case %s: %w", msg.CaseID, err)
	}

	log.Info().
		Str("case_id", msg.CaseID).
		Int("version", version.VersionNumber).
		Int("input_tokens", result.Usage.InputTokens).
		Int("output_tokens", result.Usage.OutputTokens).
		Int("cached_tokens", result.Usage.CachedTokens).
		Msg("draft report generated")
	return nil
}

// Generate runs the waterfall for one case and returns the generated text
// with usage metadata. The case must hold at least one successfully extracted
// document.
func (s *GenerationService) Generate(ctx context.Context, caseID, tenantID string) (*GenerationResult, error) {
	tr := otel.Tracer("services/GenerationService")
	ctx, span := tr.Start(ctx, "Generate",
		trace.WithAttributes(
			attribute.String("case.id", caseID),
			attribute.String("llm.model", s.Model),
		),
	)
	defer span.End()

	docs, err := repo.ListSuccessfulDocuments(ctx, s.DB, caseID, tenantID)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNoSuccessfulDocuments
	}

	corpus, cleanup := s.buildCorpus(ctx, docs)
	defer cleanup()

	result := &GenerationResult{}

	// Leg 1: primary model with the shared prompt cache. Cache creation is
	// itself best-effort; without a cache we start at the inline leg.
	cacheRef := s.createCache(ctx, corpus)
	if cacheRef != "" {
		res, err := s.callLeg(ctx, result, "cached", llm.Request{
			Model:       s.Model,
			Parts:       []llm.Part{llm.TextPart(reportInstruction)},
			CacheRef:    cacheRef,
			Temperature: s.Temperature,
		})
		switch {
		case err == nil:
			result.Text, result.Usage = res.Text, res.Usage
			return result, nil
		case llm.IsInvalidArgument(err):
			// The request was rejected while the cache was attached: the
			// cache has expired or belongs to another model. Fall through to
			// the inline leg.
			log.Warn().Err(err).Str("case_id", caseID).Msg("cached generation rejected; retrying with inlined prompt")
		case llm.IsOverloaded(err):
			return s.fallbackLeg(ctx, result, caseID, corpus, err)
		default:
			return nil, err
		}
	}

	// Leg 2: primary model, full prompt inlined, no cache.
	res, err := s.callLeg(ctx, result, "no_cache", llm.Request{
		Model:       s.Model,
		Parts:       s.fullPrompt(corpus),
		Temperature: s.Temperature,
	})
	if err == nil {
		result.Text, result.Usage = res.Text, res.Usage
		return result, nil
	}
	if llm.IsOverloaded(err) {
		return s.fallbackLeg(ctx, result, caseID, corpus, err)
	}
	return nil, err
}

// fallbackLeg runs the fallback model with the full inlined prompt, or
// returns cause when no fallback is configured.
func (s *GenerationService) fallbackLeg(ctx context.Context, result *GenerationResult, caseID string, corpus []llm.Part, cause error) (*GenerationResult, error) {
	if s.FallbackModel == "" {
		return nil, cause
	}
	log.Warn().Err(cause).
		Str("case_id", caseID).
		Str("fallback_model", s.FallbackModel).
		Msg("primary model overloaded; trying fallback model")
	res, err := s.callLeg(ctx, result, "fallback", llm.Request{
		Model:       s.FallbackModel,
		Parts:       s.fullPrompt(corpus),
		Temperature: s.Temperature,
	})
	if err != nil {
		return nil, err
	}
	result.Text, result.Usage = res.Text, res.Usage
	return result, nil
}

// callLeg executes one waterfall leg under the retry policy, counting every
// provider call.
func (s *GenerationService) callLeg(ctx context.Context, result *GenerationResult, leg string, req llm.Request) (*llm.Result, error) {
	var res *llm.Result
	err := s.Retry.Do(ctx, func(ctx context.Context) error {
		result.Calls++
		r, err := s.Provider.Generate(ctx, req)
		if err != nil {
			generationCallsTotal.WithLabelValues(leg, "error").Inc()
			return err
		}
		generationCallsTotal.WithLabelValues(leg, "success").Inc()
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	recordUsage(res.Usage)
	return res, nil
}

// buildCorpus turns the extracted documents into prompt parts. Text content
// is inlined; vision content additionally pushes the original file through
// the provider's upload side-channel so the model sees the source imagery.
// The returned cleanup deletes every uploaded file best-effort and never
// fails the call.
func (s *GenerationService) buildCorpus(ctx context.Context, docs []domain.Document) ([]llm.Part, func()) {
	parts := make([]llm.Part, 0, len(docs)*2)
	var uploaded []string

	for i := range docs {
		doc := &docs[i]
		if doc.Content == nil {
			continue
		}
		parts = append(parts, llm.TextPart(fmt.Sprintf("Document %q:\n%s", doc.Filename, doc.Content.PromptText())))

		if doc.Content.Kind != domain.ContentKindVision {
			continue
		}
		data, err := s.Blob.Get(ctx, doc.StorageRef)
		if err != nil {
			log.Warn().Err(err).Str("document_id", doc.ID).Msg("could not load document bytes for vision prompt")
			continue
		}
		ref, err := s.Provider.UploadFile(ctx, data, doc.MimeType)
		if err != nil {
			log.Warn().Err(err).Str("document_id", doc.ID).Msg("provider file upload failed; prompting with captions only")
			continue
		}
		uploaded = append(uploaded, ref.Name)
		parts = append(parts, llm.FilePart(ref.URI, ref.MIMEType))
	}

	cleanup := func() {
		for _, name := range uploaded {
			if err := s.Provider.DeleteFile(context.WithoutCancel(ctx), name); err != nil {
				log.Warn().Err(err).Str("file", name).Msg("provider file cleanup failed")
			}
		}
	}
	return parts, cleanup
}

// fullPrompt is the instruction plus the whole corpus inlined.
func (s *GenerationService) fullPrompt(corpus []llm.Part) []llm.Part {
	return append([]llm.Part{llm.TextPart(reportInstruction)}, corpus...)
}

// createCache uploads the corpus as a shared prompt cache. Returns "" when
// caching is disabled or creation fails; the waterfall then starts at the
// inline leg.
func (s *GenerationService) createCache(ctx context.Context, corpus []llm.Part) string {
	if s.CacheTTL <= 0 {
		return ""
	}
	ref, err := s.Provider.CreateCache(ctx, s.Model, corpus, s.CacheTTL)
	if err != nil {
		log.Warn().Err(err).Msg("prompt cache creation failed; generating without cache")
		return ""
	}
	return ref
}

// recordUsage accumulates token metrics; absent fields are zero.
func recordUsage(u llm.Usage) {
	generationTokens.WithLabelValues("input").Add(float64(u.InputTokens))
	generationTokens.WithLabelValues("output").Add(float64(u.OutputTokens))
	generationTokens.WithLabelValues("cached").Add(float64(u.CachedTokens))
}
