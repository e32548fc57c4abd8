// Package services – OutboxService
//
// This file implements the outbox processor: the delivery half of the
// transactional-outbox pattern. Pending messages are claimed in creation
// order with a non-blocking row lock, so any number of processors (periodic
// loops, inline dispatch after fan-in, multiple replicas) partition the work
// instead of contending. A handler failure is recorded on the message and
// leaves it PENDING for a later pass; it never aborts the batch and never
// reaches the caller. Messages are never deleted; PROCESSED and FAILED rows
// are the audit trail.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/casefile-ai/claims-backend/internal/domain"
	"github.com/casefile-ai/claims-backend/internal/repo"
	"github.com/casefile-ai/claims-backend/internal/tasks"
)

// OutboxService claims and delivers pending outbox messages.
type OutboxService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Handlers maps outbox topics to their delivery handlers.
	Handlers *tasks.Registry
	// BatchSize caps how many messages one pass claims.
	BatchSize int
	// Interval is the period of the Run loop.
	Interval time.Duration
}

// NewOutboxService constructs an OutboxService.
func NewOutboxService(db *gorm.DB, handlers *tasks.Registry, batchSize int, interval time.Duration) *OutboxService {
	if batchSize < 1 {
		batchSize = 20
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &OutboxService{DB: db, Handlers: handlers, BatchSize: batchSize, Interval: interval}
}

// ProcessBatch claims up to limit PENDING messages and delivers them, holding
// the non-blocking row locks for the duration of the batch so concurrent
// callers skip these rows. It returns the number of successfully delivered
// messages; the returned error reflects only claim/commit failures, never
// handler failures.
func (s *OutboxService) ProcessBatch(ctx context.Context, limit int) (int, error) {
	tr := otel.Tracer("services/OutboxService")
	ctx, span := tr.Start(ctx, "ProcessBatch",
		trace.WithAttributes(attribute.Int("outbox.limit", limit)),
	)
	defer span.End()

	if limit < 1 {
		limit = s.BatchSize
	}

	processed := 0
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		msgs, err := repo.ClaimPendingOutbox(ctx, tx, limit)
		if err != nil {
			return err
		}
		for i := range msgs {
			if s.deliver(ctx, tx, &msgs[i]) {
				processed++
			}
		}
		return nil
	})
	return processed, err
}

// DispatchMessage delivers a single just-committed message inline. The row is
// claimed with the same non-blocking lock the batch pass uses and the lock is
// held for the whole delivery, so a periodic pass landing mid-delivery skips
// the row instead of running the handler a second time. If the message was
// already claimed by a concurrent processor or is no longer PENDING, this is
// a no-op.
func (s *OutboxService) DispatchMessage(ctx context.Context, messageID string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		msg, err := repo.ClaimOutboxMessage(ctx, tx, messageID)
		if err != nil {
			return err
		}
		if msg == nil {
			return nil
		}
		if !s.deliver(ctx, tx, msg) {
			return fmt.Errorf("outbox message %s failed inline delivery", messageID)
		}
		return nil
	})
}

// Run executes ProcessBatch on a fixed interval until ctx ends.
func (s *OutboxService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	log.Info().Dur("interval", s.Interval).Int("batch_size", s.BatchSize).Msg("outbox processor started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("outbox processor stopped")
			return
		case <-ticker.C:
			if n, err := s.ProcessBatch(ctx, s.BatchSize); err != nil {
				log.Error().Err(err).Msg("outbox batch failed")
			} else if n > 0 {
				log.Debug().Int("processed", n).Msg("outbox batch delivered")
			}
		}
	}
}

// deliver runs the topic handler for one claimed message and records the
// outcome on the row. It reports whether the message was delivered.
func (s *OutboxService) deliver(ctx context.Context, tx *gorm.DB, msg *domain.OutboxMessage) bool {
	handlerErr := s.Handlers.Dispatch(ctx, msg.Topic, []byte(msg.Payload))
	if errors.Is(handlerErr, tasks.ErrNoHandler) {
		// A topic nothing consumes will never succeed; dead-letter it
		// instead of retrying forever.
		if err := repo.MarkOutboxFailed(ctx, tx, msg.ID, handlerErr.Error()); err != nil {
			log.Error().Err(err).Str("outbox_id", msg.ID).Msg("failed to dead-letter outbox message")
		}
		outboxMessagesTotal.WithLabelValues("failed").Inc()
		log.Error().Str("outbox_id", msg.ID).Str("topic", msg.Topic).Msg("outbox message has no registered handler")
		return false
	}
	if handlerErr == nil {
		if err := repo.MarkOutboxProcessed(ctx, tx, msg.ID, time.Now().UTC()); err != nil {
			log.Error().Err(err).Str("outbox_id", msg.ID).Msg("failed to mark outbox message processed")
			return false
		}
		outboxMessagesTotal.WithLabelValues("processed").Inc()
		return true
	}

	if err := repo.RecordOutboxFailure(ctx, tx, msg.ID, handlerErr.Error()); err != nil {
		log.Error().Err(err).Str("outbox_id", msg.ID).Msg("failed to record outbox failure")
		return false
	}
	outboxMessagesTotal.WithLabelValues("retried").Inc()
	log.Warn().Err(handlerErr).
		Str("outbox_id", msg.ID).
		Str("topic", msg.Topic).
		Int("retry_count", msg.RetryCount+1).
		Msg("outbox handler failed; message left pending")
	return false
}
