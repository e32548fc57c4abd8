package services

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/casefile-ai/claims-backend/internal/domain"
)

func backdateCase(t *testing.T, db *gorm.DB, id string, age time.Duration) {
	t.Helper()
	err := db.Model(&domain.Case{}).Where("id = ?", id).
		Update("created_at", time.Now().UTC().Add(-age)).Error
	if err != nil {
		t.Fatalf("backdate: %v", err)
	}
}

func TestRescue_ResetsOldStuckCasesOnly(t *testing.T) {
	db := newServiceDB(t)
	ctx := context.Background()

	stuck := seedCase(t, db, "t1", domain.CaseStatusGenerating)
	backdateCase(t, db, stuck.ID, 3*time.Hour)

	fresh := seedCase(t, db, "t1", domain.CaseStatusGenerating)
	backdateCase(t, db, fresh.ID, time.Hour)

	svc := NewRecoveryService(db, 2*time.Hour, 0)
	rescued, err := svc.Rescue(ctx, 2*time.Hour)
	if err != nil {
		t.Fatalf("Rescue: %v", err)
	}
	if rescued != 1 {
		t.Fatalf("rescued = %d, want 1", rescued)
	}
	if got := caseStatus(t, db, stuck.ID, "t1"); got != domain.CaseStatusOpen {
		t.Fatalf("stuck case status = %s, want OPEN", got)
	}
	if got := caseStatus(t, db, fresh.ID, "t1"); got != domain.CaseStatusGenerating {
		t.Fatalf("fresh case status = %s, want GENERATING untouched", got)
	}
}

func TestRescue_ZeroTimeoutUsesConfiguredDefault(t *testing.T) {
	db := newServiceDB(t)

	stuck := seedCase(t, db, "t1", domain.CaseStatusProcessing)
	backdateCase(t, db, stuck.ID, 3*time.Hour)

	svc := NewRecoveryService(db, 2*time.Hour, 0)
	rescued, err := svc.Rescue(context.Background(), 0)
	if err != nil || rescued != 1 {
		t.Fatalf("rescued = %d err = %v, want 1", rescued, err)
	}
}
