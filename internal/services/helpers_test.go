package services

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/casefile-ai/claims-backend/internal/domain"
	"github.com/casefile-ai/claims-backend/internal/llm"
	"github.com/casefile-ai/claims-backend/internal/repo"
)

// newServiceDB opens a throwaway sqlite database with the full schema.
func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("services_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// seedCase creates a case in the given status.
func seedCase(t *testing.T, db *gorm.DB, tenantID string, status domain.CaseStatus) *domain.Case {
	t.Helper()
	c, err := repo.CreateCase(context.Background(), db, tenantID, "", "CLM-TEST")
	if err != nil {
		t.Fatalf("seed case: %v", err)
	}
	if status != domain.CaseStatusOpen {
		if err := repo.UpdateCaseStatus(context.Background(), db, c.ID, tenantID, status); err != nil {
			t.Fatalf("seed case status: %v", err)
		}
		c.Status = status
	}
	return c
}

// seedDoc creates a document and optionally drives it to a terminal status.
func seedDoc(t *testing.T, db *gorm.DB, caseID, tenantID string, status domain.DocumentStatus, content *domain.ExtractedContent) *domain.Document {
	t.Helper()
	ctx := context.Background()
	d, err := repo.CreateDocument(ctx, db, caseID, tenantID, "doc.txt", "ref/"+fmt.Sprint(time.Now().UnixNano()), "text/plain")
	if err != nil {
		t.Fatalf("seed doc: %v", err)
	}
	switch status {
	case domain.DocumentStatusSuccess:
		err = repo.MarkDocumentSuccess(ctx, db, d.ID, tenantID, content)
	case domain.DocumentStatusError:
		err = repo.MarkDocumentError(ctx, db, d.ID, tenantID, "seeded failure")
	case domain.DocumentStatusSkipped:
		err = repo.MarkDocumentSkipped(ctx, db, d.ID, tenantID)
	case domain.DocumentStatusProcessing:
		err = repo.MarkDocumentProcessing(ctx, db, d.ID, tenantID)
	}
	if err != nil {
		t.Fatalf("seed doc status: %v", err)
	}
	d.AIStatus = status
	return d
}

// ----- Fakes -----

// recordedEnqueue is one captured Executor.Enqueue call.
type recordedEnqueue struct {
	name    string
	payload any
}

// fakeExecutor records enqueues without running anything.
type fakeExecutor struct {
	calls []recordedEnqueue
	err   error
}

func (f *fakeExecutor) Enqueue(_ context.Context, name string, payload any) error {
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, recordedEnqueue{name: name, payload: payload})
	return nil
}

// fakeFanIn records completion checks.
type fakeFanIn struct {
	caseIDs []string
	err     error
}

func (f *fakeFanIn) CheckCompletion(_ context.Context, caseID, _ string) error {
	f.caseIDs = append(f.caseIDs, caseID)
	return f.err
}

// fakeDispatcher records inline dispatch attempts.
type fakeDispatcher struct {
	messageIDs []string
	err        error
}

func (f *fakeDispatcher) DispatchMessage(_ context.Context, id string) error {
	f.messageIDs = append(f.messageIDs, id)
	return f.err
}

// providerCall captures one Generate invocation.
type providerCall struct {
	model    string
	cacheRef string
}

// scriptedResponse is one scripted Generate outcome, consumed in order.
type scriptedResponse struct {
	text string
	err  error
}

// fakeProvider scripts the llm.Provider boundary.
type fakeProvider struct {
	script []scriptedResponse
	calls  []providerCall

	cacheRef  string // returned by CreateCache; "" makes CreateCache fail
	uploads   int
	deletions []string
}

func (f *fakeProvider) Generate(_ context.Context, req llm.Request) (*llm.Result, error) {
	f.calls = append(f.calls, providerCall{model: req.Model, cacheRef: req.CacheRef})
	if len(f.script) == 0 {
		return nil, &llm.ProviderError{Class: llm.ClassInternal, Message: "script exhausted"}
	}
	next := f.script[0]
	f.script = f.script[1:]
	if next.err != nil {
		return nil, next.err
	}
	return &llm.Result{
		Text:  next.text,
		Usage: llm.Usage{InputTokens: 100, OutputTokens: 50, CachedTokens: 10},
	}, nil
}

func (f *fakeProvider) CreateCache(_ context.Context, _ string, _ []llm.Part, _ time.Duration) (string, error) {
	if f.cacheRef == "" {
		return "", &llm.ProviderError{Class: llm.ClassInternal, Message: "cache unavailable"}
	}
	return f.cacheRef, nil
}

func (f *fakeProvider) UploadFile(_ context.Context, _ []byte, mimeType string) (*llm.FileRef, error) {
	f.uploads++
	name := fmt.Sprintf("files/%d", f.uploads)
	return &llm.FileRef{Name: name, URI: "uri://" + name, MIMEType: mimeType}, nil
}

func (f *fakeProvider) DeleteFile(_ context.Context, name string) error {
	f.deletions = append(f.deletions, name)
	return nil
}

// caseStatus reloads a case's status.
func caseStatus(t *testing.T, db *gorm.DB, id, tenantID string) domain.CaseStatus {
	t.Helper()
	c, err := repo.GetCase(context.Background(), db, id, tenantID)
	if err != nil {
		t.Fatalf("reload case: %v", err)
	}
	return c.Status
}

// outboxRows returns all outbox messages for inspection.
func outboxRows(t *testing.T, db *gorm.DB) []domain.OutboxMessage {
	t.Helper()
	var msgs []domain.OutboxMessage
	if err := db.Order("created_at asc").Find(&msgs).Error; err != nil {
		t.Fatalf("list outbox: %v", err)
	}
	return msgs
}
