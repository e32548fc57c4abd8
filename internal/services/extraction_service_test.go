package services

import (
	"context"
	"errors"
	"testing"

	"github.com/casefile-ai/claims-backend/internal/blob"
	"github.com/casefile-ai/claims-backend/internal/domain"
	"github.com/casefile-ai/claims-backend/internal/extract"
	"github.com/casefile-ai/claims-backend/internal/repo"
)

// failingExtractor always returns the configured classified error.
type failingExtractor struct {
	kind  extract.ErrorKind
	calls int
}

func (f *failingExtractor) Extract(context.Context, []byte, string) (*domain.ExtractedContent, error) {
	f.calls++
	return nil, extract.NewError(f.kind, errors.New("boom"))
}

func TestProcessDocument_Success(t *testing.T) {
	db := newServiceDB(t)
	ctx := context.Background()

	c := seedCase(t, db, "t1", domain.CaseStatusProcessing)
	doc, err := repo.CreateDocument(ctx, db, c.ID, "t1", "claim.txt", "t1/claim.txt", "text/plain")
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}

	store := blob.NewMemoryStore()
	if _, err := store.Put(ctx, doc.StorageRef, []byte("water damage in kitchen"), "text/plain"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	fanIn := &fakeFanIn{}
	svc := NewExtractionService(db, store, extract.TextExtractor{}, fanIn, 2)

	if err := svc.ProcessDocument(ctx, doc.ID, "t1"); err != nil {
		t.Fatalf("ProcessDocument: %v", err)
	}

	got, _ := repo.GetDocument(ctx, db, doc.ID, "t1")
	if got.AIStatus != domain.DocumentStatusSuccess {
		t.Fatalf("status = %s, want SUCCESS", got.AIStatus)
	}
	if got.Content == nil || got.Content.Kind != domain.ContentKindText {
		t.Fatalf("content = %+v", got.Content)
	}
	if len(fanIn.caseIDs) != 1 || fanIn.caseIDs[0] != c.ID {
		t.Fatalf("fan-in calls = %v, want one for %s", fanIn.caseIDs, c.ID)
	}
}

func TestProcessDocument_ClassifiedFailureIsTerminalNotReturned(t *testing.T) {
	db := newServiceDB(t)
	ctx := context.Background()

	c := seedCase(t, db, "t1", domain.CaseStatusProcessing)
	doc, _ := repo.CreateDocument(ctx, db, c.ID, "t1", "scan.bin", "t1/scan.bin", "application/octet-stream")

	store := blob.NewMemoryStore()
	_, _ = store.Put(ctx, doc.StorageRef, []byte{0xde, 0xad}, "application/octet-stream")

	fanIn := &fakeFanIn{}
	svc := NewExtractionService(db, store, &failingExtractor{kind: extract.ErrKindUnsupported}, fanIn, 1)

	if err := svc.ProcessDocument(ctx, doc.ID, "t1"); err != nil {
		t.Fatalf("extraction failures must not reach the queue: %v", err)
	}

	got, _ := repo.GetDocument(ctx, db, doc.ID, "t1")
	if got.AIStatus != domain.DocumentStatusError {
		t.Fatalf("status = %s, want ERROR", got.AIStatus)
	}
	if got.ErrorMessage == "" {
		t.Fatal("classified user-facing message not stored")
	}
	if len(fanIn.caseIDs) != 1 {
		t.Fatalf("fan-in calls = %d, want 1 even after failure", len(fanIn.caseIDs))
	}
}

func TestProcessDocument_RedeliveryOfSuccessIsNoOp(t *testing.T) {
	db := newServiceDB(t)
	ctx := context.Background()

	c := seedCase(t, db, "t1", domain.CaseStatusProcessing)
	doc := seedDoc(t, db, c.ID, "t1", domain.DocumentStatusSuccess, domain.NewTextContent("already done", 1))

	before, _ := repo.GetDocument(ctx, db, doc.ID, "t1")

	extractor := &failingExtractor{kind: extract.ErrKindGeneric}
	fanIn := &fakeFanIn{}
	svc := NewExtractionService(db, blob.NewMemoryStore(), extractor, fanIn, 1)

	if err := svc.ProcessDocument(ctx, doc.ID, "t1"); err != nil {
		t.Fatalf("ProcessDocument: %v", err)
	}
	if extractor.calls != 0 {
		t.Fatalf("extractor invoked %d times on a SUCCESS document", extractor.calls)
	}

	after, _ := repo.GetDocument(ctx, db, doc.ID, "t1")
	if after.AIStatus != domain.DocumentStatusSuccess || after.Content.Text.Body != before.Content.Text.Body {
		t.Fatalf("re-delivery mutated the document: %+v", after)
	}
	if len(fanIn.caseIDs) != 1 {
		t.Fatal("re-delivery must still run the fan-in check")
	}
}

func TestProcessDocument_MissingBlobBecomesDocumentError(t *testing.T) {
	db := newServiceDB(t)
	ctx := context.Background()

	c := seedCase(t, db, "t1", domain.CaseStatusProcessing)
	doc, _ := repo.CreateDocument(ctx, db, c.ID, "t1", "ghost.txt", "t1/ghost.txt", "text/plain")

	fanIn := &fakeFanIn{}
	svc := NewExtractionService(db, blob.NewMemoryStore(), extract.TextExtractor{}, fanIn, 1)

	if err := svc.ProcessDocument(ctx, doc.ID, "t1"); err != nil {
		t.Fatalf("ProcessDocument: %v", err)
	}
	got, _ := repo.GetDocument(ctx, db, doc.ID, "t1")
	if got.AIStatus != domain.DocumentStatusError {
		t.Fatalf("status = %s, want ERROR when bytes are unreadable", got.AIStatus)
	}
}

func TestProcessDocument_UnknownDocument(t *testing.T) {
	db := newServiceDB(t)
	svc := NewExtractionService(db, blob.NewMemoryStore(), extract.TextExtractor{}, &fakeFanIn{}, 1)
	if err := svc.ProcessDocument(context.Background(), "missing", "t1"); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("err = %v, want ErrDocumentNotFound", err)
	}
}
