// Package domain defines the persistence models for claim cases, uploaded
// documents, report versions, outbox messages, and training pairs. These types
// are mapped with GORM and form the core data layer of the claims backend.
//
// Every row is tenant-scoped: repositories always filter by TenantID, and the
// service layer passes the tenant through every store boundary.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// CaseStatus enumerates the lifecycle states of a claim case.
//
// Transitions:
//
//	OPEN → PROCESSING       (document registered, extraction dispatched)
//	PROCESSING → GENERATING (all documents terminal; fan-in fires)
//	GENERATING → OPEN       (draft version created, ready for review)
//	GENERATING → ERROR      (generation exhausted all fallbacks)
//	OPEN → CLOSED           (report finalized)
//
// PROCESSING and GENERATING are also reset to OPEN by the zombie rescue sweep
// when a worker died mid-flight.
type CaseStatus string

const (
	CaseStatusOpen       CaseStatus = "OPEN"
	CaseStatusProcessing CaseStatus = "PROCESSING"
	CaseStatusGenerating CaseStatus = "GENERATING"
	CaseStatusClosed     CaseStatus = "CLOSED"
	CaseStatusError      CaseStatus = "ERROR"
)

// DocumentStatus enumerates the extraction states of an uploaded document.
// SUCCESS, ERROR and SKIPPED are terminal; a document in a terminal state is
// never re-extracted (re-delivered tasks no-op on SUCCESS).
type DocumentStatus string

const (
	DocumentStatusPending    DocumentStatus = "PENDING"
	DocumentStatusProcessing DocumentStatus = "PROCESSING"
	DocumentStatusSuccess    DocumentStatus = "SUCCESS"
	DocumentStatusError      DocumentStatus = "ERROR"
	DocumentStatusSkipped    DocumentStatus = "SKIPPED"
)

// IsTerminal reports whether the document no longer counts as pending work
// for the fan-in completion check.
func (s DocumentStatus) IsTerminal() bool {
	return s == DocumentStatusSuccess || s == DocumentStatusError || s == DocumentStatusSkipped
}

// OutboxStatus enumerates the delivery states of an outbox message.
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "PENDING"
	OutboxStatusProcessed OutboxStatus = "PROCESSED"
	OutboxStatusFailed    OutboxStatus = "FAILED"
)

// Version sources distinguish AI drafts from human-edited artifacts.
const (
	VersionSourceAIDraft     = "ai-draft"
	VersionSourcePreliminary = "preliminary"
)

// Case represents one insurance claim under processing. A case accumulates
// documents, is driven through extraction and report generation by background
// tasks, and ends CLOSED once a human finalizes the report.
//
// Invariant: the PROCESSING→GENERATING transition is serialized by an
// exclusive row lock, so at most one generation trigger fires per completion
// event regardless of how many extraction workers race the fan-in check.
type Case struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	TenantID  string         `json:"tenant_id"  gorm:"type:varchar(64);not null;index:idx_tenant_cases"`
	ClientRef string         `json:"client_ref" gorm:"type:varchar(128)"`
	Reference string         `json:"reference"  gorm:"type:varchar(64);not null"`
	Status    CaseStatus     `json:"status"     gorm:"type:varchar(16);not null;default:'OPEN';index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for Case.
func (Case) TableName() string { return "cases" }

// Document represents one uploaded file belonging to exactly one case. Its
// extraction outcome is stored inline: Content on success, ErrorMessage on a
// classified failure. Rows are only mutated by their own extraction task.
type Document struct {
	ID         string         `json:"id"          gorm:"type:char(36);primaryKey"`
	CaseID     string         `json:"case_id"     gorm:"type:char(36);not null;index:idx_case_docs"`
	TenantID   string         `json:"tenant_id"   gorm:"type:varchar(64);not null;index"`
	Filename   string         `json:"filename"    gorm:"type:varchar(255);not null"`
	StorageRef string         `json:"storage_ref" gorm:"type:varchar(512);not null"`
	MimeType   string         `json:"mime_type"   gorm:"type:varchar(128);not null"`
	AIStatus   DocumentStatus `json:"ai_status"   gorm:"type:varchar(16);not null;default:'PENDING';index"`
	// Content holds the tagged-variant extraction result (see content.go),
	// serialized as JSON. Nil until extraction succeeds.
	Content      *ExtractedContent `json:"content,omitempty" gorm:"type:text;serializer:json"`
	ErrorMessage string            `json:"error_message,omitempty" gorm:"type:text"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	DeletedAt    gorm.DeletedAt    `json:"-" gorm:"index"`

	// Case is the parent claim. Documents are cascade-deleted with their case.
	Case Case `json:"-" gorm:"foreignKey:CaseID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Document.
func (Document) TableName() string { return "documents" }

// ReportVersion is one generated or human-finalized report snapshot for a
// case. VersionNumber is strictly increasing per case (unique, not required
// to be gapless) and is computed as max(existing)+1 under the case row lock.
type ReportVersion struct {
	ID            string `json:"id"             gorm:"type:char(36);primaryKey"`
	CaseID        string `json:"case_id"        gorm:"type:char(36);not null;index;uniqueIndex:ux_case_version,priority:1"`
	TenantID      string `json:"tenant_id"      gorm:"type:varchar(64);not null;index"`
	VersionNumber int    `json:"version_number" gorm:"not null;uniqueIndex:ux_case_version,priority:2"`
	IsFinal       bool   `json:"is_final"       gorm:"not null;default:false"`
	// Source tags the origin of the snapshot: "ai-draft" for generated text,
	// "preliminary" for human-edited uploads prior to finalization.
	Source      string         `json:"source"       gorm:"type:varchar(32);not null"`
	DraftText   *string        `json:"draft_text,omitempty" gorm:"type:text"`
	ArtifactRef string         `json:"artifact_ref" gorm:"type:varchar(512)"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`

	Case Case `json:"-" gorm:"foreignKey:CaseID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ReportVersion.
func (ReportVersion) TableName() string { return "report_versions" }

// OutboxMessage is a durable intent record written in the same transaction as
// the state change that requires it (transactional outbox). Messages are
// claimed with a non-blocking row lock by the outbox processor and are never
// deleted; PROCESSED and FAILED rows remain as an audit trail.
type OutboxMessage struct {
	ID       string  `json:"id"    gorm:"type:char(36);primaryKey"`
	Topic    string  `json:"topic" gorm:"type:varchar(64);not null;index"`
	TenantID *string `json:"tenant_id,omitempty" gorm:"type:varchar(64);index"` // nil for system-wide messages
	// Payload is the JSON-encoded message body; its shape is owned by the
	// handler registered for Topic.
	Payload     string       `json:"payload"     gorm:"type:text;not null"`
	Status      OutboxStatus `json:"status"      gorm:"type:varchar(16);not null;default:'PENDING';index:idx_outbox_pending,priority:1"`
	RetryCount  int          `json:"retry_count" gorm:"not null;default:0"`
	ErrorLog    string       `json:"error_log,omitempty" gorm:"type:text"`
	CreatedAt   time.Time    `json:"created_at"  gorm:"index:idx_outbox_pending,priority:2"`
	ProcessedAt *time.Time   `json:"processed_at,omitempty"`
}

// TableName returns the database table name for OutboxMessage.
func (OutboxMessage) TableName() string { return "outbox_messages" }

// TrainingPair links the AI-draft report version to the version a human
// ultimately finalized for the same case. Pairs are created once per
// finalization (only when a draft with raw text exists) and are immutable.
type TrainingPair struct {
	ID             string    `json:"id"               gorm:"type:char(36);primaryKey"`
	CaseID         string    `json:"case_id"          gorm:"type:char(36);not null;index"`
	TenantID       string    `json:"tenant_id"        gorm:"type:varchar(64);not null;index"`
	DraftVersionID string    `json:"draft_version_id" gorm:"type:char(36);not null"`
	FinalVersionID string    `json:"final_version_id" gorm:"type:char(36);not null;uniqueIndex"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName returns the database table name for TrainingPair.
func (TrainingPair) TableName() string { return "training_pairs" }
