package repo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/casefile-ai/claims-backend/internal/domain"
)

// newPipelineDB opens a throwaway sqlite database with the full schema.
func newPipelineDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("pipeline_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// Ensure the file handle is released before TempDir cleanup (Windows needs this).
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if err := AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestCreateCase_Success_PersistsAndSetsFields(t *testing.T) {
	db := newPipelineDB(t)

	c, err := CreateCase(context.Background(), db, "t1", "client-7", "CLM-2026-001")
	if err != nil {
		t.Fatalf("CreateCase: %v", err)
	}
	if c.ID == "" || c.TenantID != "t1" || c.Reference != "CLM-2026-001" {
		t.Fatalf("unexpected Case fields: %+v", c)
	}
	if c.Status != domain.CaseStatusOpen {
		t.Fatalf("status = %s, want OPEN", c.Status)
	}

	got, err := GetCase(context.Background(), db, c.ID, "t1")
	if err != nil {
		t.Fatalf("GetCase: %v", err)
	}
	if got.ClientRef != "client-7" {
		t.Fatalf("ClientRef = %q", got.ClientRef)
	}
}

func TestGetCase_WrongTenant_NotFound(t *testing.T) {
	db := newPipelineDB(t)
	c, _ := CreateCase(context.Background(), db, "t1", "", "REF")

	if _, err := GetCase(context.Background(), db, c.ID, "t2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-tenant GetCase err = %v, want ErrNotFound", err)
	}
}

func TestUpdateCaseStatus_MissingRow(t *testing.T) {
	db := newPipelineDB(t)
	err := UpdateCaseStatus(context.Background(), db, "nope", "t1", domain.CaseStatusError)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSoftDeleteCase_HidesFromReads(t *testing.T) {
	db := newPipelineDB(t)
	c, _ := CreateCase(context.Background(), db, "t1", "", "REF")

	if err := SoftDeleteCase(context.Background(), db, c.ID, "t1"); err != nil {
		t.Fatalf("SoftDeleteCase: %v", err)
	}
	if _, err := GetCase(context.Background(), db, c.ID, "t1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted case still readable: %v", err)
	}

	// Row still present physically (audit trail).
	var n int64
	if err := db.Unscoped().Model(&domain.Case{}).Where("id = ?", c.ID).Count(&n).Error; err != nil || n != 1 {
		t.Fatalf("unscoped count = %d err = %v", n, err)
	}
}

func TestListCasesPage_PaginatesPerTenant(t *testing.T) {
	db := newPipelineDB(t)
	for i := 0; i < 5; i++ {
		if _, err := CreateCase(context.Background(), db, "t1", "", fmt.Sprintf("REF-%d", i)); err != nil {
			t.Fatalf("CreateCase: %v", err)
		}
	}
	if _, err := CreateCase(context.Background(), db, "t2", "", "OTHER"); err != nil {
		t.Fatalf("CreateCase: %v", err)
	}

	total, err := CountCases(context.Background(), db, "t1")
	if err != nil || total != 5 {
		t.Fatalf("CountCases = %d err = %v, want 5", total, err)
	}
	page, err := ListCasesPage(context.Background(), db, "t1", 2, 2)
	if err != nil {
		t.Fatalf("ListCasesPage: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("page len = %d, want 2", len(page))
	}
}

func TestRescueStuckCases_ResetsOnlyOldActiveCases(t *testing.T) {
	db := newPipelineDB(t)
	ctx := context.Background()

	backdate := func(id string, age time.Duration) {
		t.Helper()
		err := db.Model(&domain.Case{}).Where("id = ?", id).
			Update("created_at", time.Now().UTC().Add(-age)).Error
		if err != nil {
			t.Fatalf("backdate: %v", err)
		}
	}

	oldGenerating, _ := CreateCase(ctx, db, "t1", "", "OLD-GEN")
	_ = UpdateCaseStatus(ctx, db, oldGenerating.ID, "t1", domain.CaseStatusGenerating)
	backdate(oldGenerating.ID, 3*time.Hour)

	oldProcessing, _ := CreateCase(ctx, db, "t2", "", "OLD-PROC")
	_ = UpdateCaseStatus(ctx, db, oldProcessing.ID, "t2", domain.CaseStatusProcessing)
	backdate(oldProcessing.ID, 3*time.Hour)

	youngGenerating, _ := CreateCase(ctx, db, "t1", "", "YOUNG")
	_ = UpdateCaseStatus(ctx, db, youngGenerating.ID, "t1", domain.CaseStatusGenerating)
	backdate(youngGenerating.ID, time.Hour)

	oldClosed, _ := CreateCase(ctx, db, "t1", "", "CLOSED")
	_ = UpdateCaseStatus(ctx, db, oldClosed.ID, "t1", domain.CaseStatusClosed)
	backdate(oldClosed.ID, 3*time.Hour)

	rescued, err := RescueStuckCases(ctx, db, time.Now().UTC().Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("RescueStuckCases: %v", err)
	}
	if rescued != 2 {
		t.Fatalf("rescued = %d, want 2 (both tenants, old active cases only)", rescued)
	}

	wantStatus := map[string]domain.CaseStatus{
		oldGenerating.ID:   domain.CaseStatusOpen,
		oldProcessing.ID:   domain.CaseStatusOpen,
		youngGenerating.ID: domain.CaseStatusGenerating,
		oldClosed.ID:       domain.CaseStatusClosed,
	}
	for id, want := range wantStatus {
		var c domain.Case
		if err := db.Where("id = ?", id).First(&c).Error; err != nil {
			t.Fatalf("reload %s: %v", id, err)
		}
		if c.Status != want {
			t.Fatalf("case %s status = %s, want %s", id, c.Status, want)
		}
	}
}
