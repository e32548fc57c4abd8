package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/casefile-ai/claims-backend/internal/domain"
)

func TestDocumentLifecycle_StatusTransitions(t *testing.T) {
	db := newPipelineDB(t)
	ctx := context.Background()

	c, _ := CreateCase(ctx, db, "t1", "", "REF")
	doc, err := CreateDocument(ctx, db, c.ID, "t1", "invoice.txt", "t1/obj/invoice.txt", "text/plain")
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	if doc.AIStatus != domain.DocumentStatusPending {
		t.Fatalf("new document status = %s, want PENDING", doc.AIStatus)
	}

	if err := MarkDocumentProcessing(ctx, db, doc.ID, "t1"); err != nil {
		t.Fatalf("MarkDocumentProcessing: %v", err)
	}

	content := domain.NewTextContent("total due: 4,200 EUR", 1)
	if err := MarkDocumentSuccess(ctx, db, doc.ID, "t1", content); err != nil {
		t.Fatalf("MarkDocumentSuccess: %v", err)
	}

	got, err := GetDocument(ctx, db, doc.ID, "t1")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if got.AIStatus != domain.DocumentStatusSuccess {
		t.Fatalf("status = %s, want SUCCESS", got.AIStatus)
	}
	if got.Content == nil || got.Content.Kind != domain.ContentKindText || got.Content.Text.Body != "total due: 4,200 EUR" {
		t.Fatalf("round-tripped content = %+v", got.Content)
	}
}

func TestMarkDocumentError_StoresClassifiedMessage(t *testing.T) {
	db := newPipelineDB(t)
	ctx := context.Background()

	c, _ := CreateCase(ctx, db, "t1", "", "REF")
	doc, _ := CreateDocument(ctx, db, c.ID, "t1", "blob.bin", "t1/obj/blob.bin", "application/octet-stream")

	if err := MarkDocumentError(ctx, db, doc.ID, "t1", "The file type is not supported."); err != nil {
		t.Fatalf("MarkDocumentError: %v", err)
	}
	got, _ := GetDocument(ctx, db, doc.ID, "t1")
	if got.AIStatus != domain.DocumentStatusError || got.ErrorMessage == "" {
		t.Fatalf("got status=%s message=%q", got.AIStatus, got.ErrorMessage)
	}
}

func TestCountPendingDocuments_CountsNonTerminalOnly(t *testing.T) {
	db := newPipelineDB(t)
	ctx := context.Background()

	c, _ := CreateCase(ctx, db, "t1", "", "REF")
	d1, _ := CreateDocument(ctx, db, c.ID, "t1", "a.txt", "ref/a", "text/plain")
	d2, _ := CreateDocument(ctx, db, c.ID, "t1", "b.txt", "ref/b", "text/plain")
	d3, _ := CreateDocument(ctx, db, c.ID, "t1", "c.txt", "ref/c", "text/plain")
	d4, _ := CreateDocument(ctx, db, c.ID, "t1", "d.txt", "ref/d", "text/plain")

	_ = MarkDocumentSuccess(ctx, db, d1.ID, "t1", domain.NewTextContent("x", 1))
	_ = MarkDocumentError(ctx, db, d2.ID, "t1", "broken")
	_ = MarkDocumentSkipped(ctx, db, d3.ID, "t1")
	_ = MarkDocumentProcessing(ctx, db, d4.ID, "t1")

	pending, err := CountPendingDocuments(ctx, db, c.ID, "t1")
	if err != nil {
		t.Fatalf("CountPendingDocuments: %v", err)
	}
	if pending != 1 {
		t.Fatalf("pending = %d, want 1 (only the PROCESSING doc)", pending)
	}

	succeeded, err := ListSuccessfulDocuments(ctx, db, c.ID, "t1")
	if err != nil || len(succeeded) != 1 || succeeded[0].ID != d1.ID {
		t.Fatalf("ListSuccessfulDocuments = %v err = %v", succeeded, err)
	}
}

func TestDocumentUpdates_WrongTenant_NotFound(t *testing.T) {
	db := newPipelineDB(t)
	ctx := context.Background()

	c, _ := CreateCase(ctx, db, "t1", "", "REF")
	doc, _ := CreateDocument(ctx, db, c.ID, "t1", "a.txt", "ref/a", "text/plain")

	if err := MarkDocumentProcessing(ctx, db, doc.ID, "t2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-tenant update err = %v, want ErrNotFound", err)
	}
}
