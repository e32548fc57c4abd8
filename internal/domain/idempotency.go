// Package domain defines the core persistence models for the application.
// These types are used by GORM for database schema mapping and are shared
// across the repository and service layers.
package domain

import "time"

// Idempotency represents a recorded result of a previously processed request,
// keyed by (tenant_id, case_id, key). It enables safe retries for the
// document-registration endpoint: replaying the same Idempotency-Key returns
// the originally registered document instead of enqueueing a second
// extraction task.
type Idempotency struct {
	ID         string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	TenantID   string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_tenant_case_key,priority:1"`
	CaseID     string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_tenant_case_key,priority:2"`
	Key        string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_tenant_case_key,priority:3"`
	DocumentID string    `gorm:"type:TEXT NOT NULL"`
	Status     int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt  time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt  time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
