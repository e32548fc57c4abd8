package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
)

func TestRegistryDispatch(t *testing.T) {
	reg := NewRegistry()
	var got []byte
	reg.Register("demo", func(_ context.Context, payload []byte) error {
		got = payload
		return nil
	})

	if err := reg.Dispatch(context.Background(), "demo", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if string(got) != `{"a":1}` {
		t.Fatalf("payload = %s", got)
	}
}

func TestRegistryUnknownTask(t *testing.T) {
	reg := NewRegistry()
	err := reg.Dispatch(context.Background(), "missing", nil)
	if err == nil || !strings.Contains(err.Error(), "missing") {
		t.Fatalf("err = %v, want unknown-task error naming the task", err)
	}
}

func TestRegistryDoubleRegisterPanics(t *testing.T) {
	reg := NewRegistry()
	reg.Register("dup", func(context.Context, []byte) error { return nil })
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	reg.Register("dup", func(context.Context, []byte) error { return nil })
}

func TestLocalExecutorRunsHandler(t *testing.T) {
	reg := NewRegistry()
	var calls atomic.Int32
	reg.Register(TaskProcessDocument, func(_ context.Context, payload []byte) error {
		var body map[string]string
		if err := json.Unmarshal(payload, &body); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		if body["document_id"] != "doc-1" {
			t.Errorf("document_id = %q", body["document_id"])
		}
		calls.Add(1)
		return nil
	})

	exec := NewLocalExecutor(reg)
	err := exec.Enqueue(context.Background(), TaskProcessDocument, map[string]string{"document_id": "doc-1"})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	exec.Wait()
	if calls.Load() != 1 {
		t.Fatalf("handler calls = %d, want 1", calls.Load())
	}
}

func TestLocalExecutorSurvivesCallerCancellation(t *testing.T) {
	reg := NewRegistry()
	var sawCancel atomic.Bool
	reg.Register("probe", func(ctx context.Context, _ []byte) error {
		if ctx.Err() != nil {
			sawCancel.Store(true)
		}
		return nil
	})

	exec := NewLocalExecutor(reg)
	ctx, cancel := context.WithCancel(context.Background())
	if err := exec.Enqueue(ctx, "probe", nil); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	cancel()
	exec.Wait()
	if sawCancel.Load() {
		t.Fatal("handler observed the caller's cancellation")
	}
}

func TestLocalExecutorRecoversPanic(t *testing.T) {
	reg := NewRegistry()
	reg.Register("boom", func(context.Context, []byte) error {
		panic("kaboom")
	})
	exec := NewLocalExecutor(reg)
	if err := exec.Enqueue(context.Background(), "boom", nil); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	exec.Wait() // must not crash the test binary
}

func TestLocalExecutorRejectsUnmarshalablePayload(t *testing.T) {
	exec := NewLocalExecutor(NewRegistry())
	err := exec.Enqueue(context.Background(), "x", make(chan int))
	if err == nil {
		t.Fatal("expected encode error")
	}
}

func TestOIDCVerifierRejectsMissingBearer(t *testing.T) {
	v := NewOIDCVerifier("https://api.example.com", nil)
	for _, header := range []string{"", "Bearer ", "Basic abc"} {
		if _, err := v.Verify(context.Background(), header); !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("Verify(%q) = %v, want ErrUnauthenticated", header, err)
		}
	}
}
