// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// transactional outbox.
//
// CreateOutboxMessage must be called on the same transaction handle as the
// state change that requires the message, so both commit or roll back
// together. ClaimPendingOutbox uses FOR UPDATE SKIP LOCKED, so concurrent
// processor passes partition the pending backlog instead of contending.
// Messages are never deleted; the table doubles as an audit trail.
package repo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/casefile-ai/claims-backend/internal/domain"
)

// CreateOutboxMessage inserts a PENDING message on the given handle. Pass the
// in-flight transaction handle to get transactional-outbox semantics.
func CreateOutboxMessage(ctx context.Context, tx *gorm.DB, topic string, tenantID *string, payload any) (*domain.OutboxMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	m := &domain.OutboxMessage{
		ID:        uuid.NewString(),
		Topic:     topic,
		TenantID:  tenantID,
		Payload:   string(body),
		Status:    domain.OutboxStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// GetOutboxMessage fetches a message by ID, or ErrNotFound.
func GetOutboxMessage(ctx context.Context, db *gorm.DB, id string) (*domain.OutboxMessage, error) {
	var m domain.OutboxMessage
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// ClaimOutboxMessage locks a single message for inline delivery if it is
// still PENDING. The lock is non-blocking: when a concurrent processor
// already holds the row, or the message has left PENDING, no row is returned
// and the caller must treat the dispatch as a no-op.
func ClaimOutboxMessage(ctx context.Context, tx *gorm.DB, id string) (*domain.OutboxMessage, error) {
	var out []domain.OutboxMessage
	err := lockSkipLocked(tx.WithContext(ctx)).
		Where("id = ? AND status = ?", id, domain.OutboxStatusPending).
		Limit(1).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return &out[0], nil
}

// ClaimPendingOutbox selects up to limit PENDING messages ordered by creation
// time, locking the rows non-blockingly (SKIP LOCKED) for the duration of the
// surrounding transaction. Rows a concurrent claimer holds are skipped, not
// waited on.
func ClaimPendingOutbox(ctx context.Context, tx *gorm.DB, limit int) ([]domain.OutboxMessage, error) {
	var out []domain.OutboxMessage
	err := lockSkipLocked(tx.WithContext(ctx)).
		Where("status = ?", domain.OutboxStatusPending).
		Order("created_at asc").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// MarkOutboxProcessed stamps a message PROCESSED.
func MarkOutboxProcessed(ctx context.Context, db *gorm.DB, id string, at time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.OutboxMessage{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       domain.OutboxStatusProcessed,
			"processed_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RecordOutboxFailure increments the retry counter and overwrites error_log
// with the latest handler error, leaving the message PENDING for a later
// pass. There is no automatic dead-letter threshold here; operators watch
// retry_count.
func RecordOutboxFailure(ctx context.Context, db *gorm.DB, id string, handlerErr string) error {
	res := db.WithContext(ctx).
		Model(&domain.OutboxMessage{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"retry_count": gorm.Expr("retry_count + 1"),
			"error_log":   handlerErr,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkOutboxFailed parks a message in FAILED. Reserved for messages that can
// never succeed (e.g. no handler registered for the topic), which retrying
// would only churn.
func MarkOutboxFailed(ctx context.Context, db *gorm.DB, id string, handlerErr string) error {
	res := db.WithContext(ctx).
		Model(&domain.OutboxMessage{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":    domain.OutboxStatusFailed,
			"error_log": handlerErr,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
