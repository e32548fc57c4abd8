package repo

import (
	"context"
	"testing"
	"time"

	"github.com/casefile-ai/claims-backend/internal/domain"
	"gorm.io/gorm"
)

func TestCreateOutboxMessage_MarshalsPayload(t *testing.T) {
	db := newPipelineDB(t)
	ctx := context.Background()

	tenant := "t1"
	msg, err := CreateOutboxMessage(ctx, db, "generate-report", &tenant, map[string]string{
		"case_id":   "c1",
		"tenant_id": "t1",
	})
	if err != nil {
		t.Fatalf("CreateOutboxMessage: %v", err)
	}
	if msg.ID == "" || msg.Status != domain.OutboxStatusPending || msg.RetryCount != 0 {
		t.Fatalf("unexpected message: %+v", msg)
	}

	got, err := GetOutboxMessage(ctx, db, msg.ID)
	if err != nil {
		t.Fatalf("GetOutboxMessage: %v", err)
	}
	if got.Payload == "" || got.Topic != "generate-report" {
		t.Fatalf("stored message: %+v", got)
	}
}

func TestClaimOutboxMessage_OnlyClaimsPending(t *testing.T) {
	db := newPipelineDB(t)
	ctx := context.Background()

	msg, _ := CreateOutboxMessage(ctx, db, "generate-report", nil, map[string]string{})

	err := db.Transaction(func(tx *gorm.DB) error {
		claimed, err := ClaimOutboxMessage(ctx, tx, msg.ID)
		if err != nil {
			return err
		}
		if claimed == nil || claimed.ID != msg.ID {
			t.Fatalf("claimed = %+v, want the pending message", claimed)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	// A message a previous pass already delivered is not claimable again.
	if err := MarkOutboxProcessed(ctx, db, msg.ID, time.Now().UTC()); err != nil {
		t.Fatalf("MarkOutboxProcessed: %v", err)
	}
	claimed, err := ClaimOutboxMessage(ctx, db, msg.ID)
	if err != nil {
		t.Fatalf("ClaimOutboxMessage: %v", err)
	}
	if claimed != nil {
		t.Fatalf("claimed a PROCESSED message: %+v", claimed)
	}

	// Unknown IDs are a no-op, not an error.
	claimed, err = ClaimOutboxMessage(ctx, db, "no-such-id")
	if err != nil || claimed != nil {
		t.Fatalf("unknown id: claimed=%+v err=%v, want nil/nil", claimed, err)
	}
}

func TestClaimPendingOutbox_OrderedOldestFirstAndLimited(t *testing.T) {
	db := newPipelineDB(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		msg, err := CreateOutboxMessage(ctx, db, "generate-report", nil, map[string]int{"i": i})
		if err != nil {
			t.Fatalf("CreateOutboxMessage: %v", err)
		}
		// Space creation times so ordering is deterministic.
		err = db.Model(&domain.OutboxMessage{}).Where("id = ?", msg.ID).
			Update("created_at", time.Now().UTC().Add(time.Duration(i-10)*time.Minute)).Error
		if err != nil {
			t.Fatalf("backdate: %v", err)
		}
		ids = append(ids, msg.ID)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		claimed, err := ClaimPendingOutbox(ctx, tx, 2)
		if err != nil {
			return err
		}
		if len(claimed) != 2 {
			t.Fatalf("claimed %d, want 2", len(claimed))
		}
		if claimed[0].ID != ids[0] || claimed[1].ID != ids[1] {
			t.Fatalf("claim order = [%s %s], want oldest first", claimed[0].ID, claimed[1].ID)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}
}

func TestClaimPendingOutbox_SkipsNonPending(t *testing.T) {
	db := newPipelineDB(t)
	ctx := context.Background()

	done, _ := CreateOutboxMessage(ctx, db, "generate-report", nil, map[string]string{})
	if err := MarkOutboxProcessed(ctx, db, done.ID, time.Now().UTC()); err != nil {
		t.Fatalf("MarkOutboxProcessed: %v", err)
	}
	pending, _ := CreateOutboxMessage(ctx, db, "generate-report", nil, map[string]string{})

	claimed, err := ClaimPendingOutbox(ctx, db, 10)
	if err != nil {
		t.Fatalf("ClaimPendingOutbox: %v", err)
	}
	if len(claimed) != 1 || claimed[0].ID != pending.ID {
		t.Fatalf("claimed = %+v, want only the pending message", claimed)
	}
}

func TestRecordOutboxFailure_IncrementsRetryCountAndStaysPending(t *testing.T) {
	db := newPipelineDB(t)
	ctx := context.Background()

	msg, _ := CreateOutboxMessage(ctx, db, "generate-report", nil, map[string]string{})

	for i := 1; i <= 3; i++ {
		if err := RecordOutboxFailure(ctx, db, msg.ID, "provider unavailable"); err != nil {
			t.Fatalf("RecordOutboxFailure: %v", err)
		}
		got, _ := GetOutboxMessage(ctx, db, msg.ID)
		if got.RetryCount != i {
			t.Fatalf("retry_count = %d after %d failures", got.RetryCount, i)
		}
		if got.Status != domain.OutboxStatusPending {
			t.Fatalf("status = %s, want PENDING", got.Status)
		}
		if got.ErrorLog == "" {
			t.Fatal("error_log not recorded")
		}
	}
}

func TestMarkOutboxProcessed_SetsTimestamp(t *testing.T) {
	db := newPipelineDB(t)
	ctx := context.Background()

	msg, _ := CreateOutboxMessage(ctx, db, "generate-report", nil, map[string]string{})
	at := time.Now().UTC().Truncate(time.Second)
	if err := MarkOutboxProcessed(ctx, db, msg.ID, at); err != nil {
		t.Fatalf("MarkOutboxProcessed: %v", err)
	}
	got, _ := GetOutboxMessage(ctx, db, msg.ID)
	if got.Status != domain.OutboxStatusProcessed || got.ProcessedAt == nil {
		t.Fatalf("processed message: %+v", got)
	}
}

func TestMarkOutboxFailed_DeadLetters(t *testing.T) {
	db := newPipelineDB(t)
	ctx := context.Background()

	msg, _ := CreateOutboxMessage(ctx, db, "unknown-topic", nil, map[string]string{})
	if err := MarkOutboxFailed(ctx, db, msg.ID, "no handler"); err != nil {
		t.Fatalf("MarkOutboxFailed: %v", err)
	}
	got, _ := GetOutboxMessage(ctx, db, msg.ID)
	if got.Status != domain.OutboxStatusFailed {
		t.Fatalf("status = %s, want FAILED", got.Status)
	}

	claimed, _ := ClaimPendingOutbox(ctx, db, 10)
	if len(claimed) != 0 {
		t.Fatalf("dead-lettered message still claimable: %+v", claimed)
	}
}
