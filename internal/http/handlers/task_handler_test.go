package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/casefile-ai/claims-backend/internal/tasks"
)

type stubVerifier struct {
	email string
	err   error
}

func (s stubVerifier) Verify(context.Context, string) (string, error) {
	return s.email, s.err
}

type stubRescuer struct {
	rescued int64
	err     error
}

func (s stubRescuer) Rescue(context.Context, time.Duration) (int64, error) {
	return s.rescued, s.err
}

func newTaskRouter(t *testing.T, reg *tasks.Registry, v tasks.Verifier, rescuer Rescuer) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	th := NewTaskHandlers(reg, v, rescuer)
	r.POST("/internal/tasks/:name", th.HandleCallback)
	r.POST("/internal/admin/rescue", th.HandleRescue)
	return r
}

func TestHandleCallback_RejectsInvalidIdentity(t *testing.T) {
	called := false
	reg := tasks.NewRegistry()
	reg.Register("process-document", func(context.Context, []byte) error {
		called = true
		return nil
	})
	r := newTaskRouter(t, reg, stubVerifier{err: tasks.ErrUnauthenticated}, stubRescuer{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/internal/tasks/process-document", bytes.NewBufferString(`{}`))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if called {
		t.Fatal("handler must not run for unauthenticated callers")
	}
}

func TestHandleCallback_WrongPrincipalIsForbidden(t *testing.T) {
	r := newTaskRouter(t, tasks.NewRegistry(), stubVerifier{err: tasks.ErrForbidden}, stubRescuer{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/internal/tasks/process-document", bytes.NewBufferString(`{}`))
	req.Header.Set("Authorization", "Bearer valid-but-wrong-sa")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}

func TestHandleCallback_DispatchesPayload(t *testing.T) {
	var got []byte
	reg := tasks.NewRegistry()
	reg.Register("process-document", func(_ context.Context, payload []byte) error {
		got = payload
		return nil
	})
	r := newTaskRouter(t, reg, stubVerifier{email: "queue@example.iam.gserviceaccount.com"}, stubRescuer{})

	body := `{"document_id":"d1","tenant_id":"t1"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/internal/tasks/process-document", bytes.NewBufferString(body))
	req.Header.Set("Authorization", "Bearer token")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	if string(got) != body {
		t.Fatalf("payload = %s, want verbatim body", got)
	}
}

func TestHandleCallback_UnknownTaskIsPermanent(t *testing.T) {
	r := newTaskRouter(t, tasks.NewRegistry(), stubVerifier{email: "sa@x"}, stubRescuer{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/internal/tasks/never-registered", bytes.NewBufferString(`{}`)))

	// 404, not 500: redelivery cannot fix an unknown task name.
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestHandleCallback_HandlerErrorTriggersRedelivery(t *testing.T) {
	reg := tasks.NewRegistry()
	reg.Register("generate-report", func(context.Context, []byte) error {
		return context.DeadlineExceeded
	})
	r := newTaskRouter(t, reg, stubVerifier{email: "sa@x"}, stubRescuer{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/internal/tasks/generate-report", bytes.NewBufferString(`{}`)))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500 so the queue retries", w.Code)
	}
}

func TestHandleRescue_ReportsCount(t *testing.T) {
	r := newTaskRouter(t, tasks.NewRegistry(), stubVerifier{email: "sa@x"}, stubRescuer{rescued: 3})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/internal/admin/rescue", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp RescueResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Rescued != 3 {
		t.Fatalf("body = %s err = %v", w.Body.String(), err)
	}
}
