// Internal task-callback handlers.
//
// Cloud Tasks delivers pushed work by POSTing back into this service at
// /internal/tasks/{name} with an OIDC identity token. The handler verifies the
// caller before dispatching into the task registry; a non-2xx response makes
// the queue redeliver the task later. These routes are not part of the public
// API surface and must never be exposed without the verifier.
package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/casefile-ai/claims-backend/internal/tasks"
)

// Rescuer resets cases stuck in a transient status for too long.
type Rescuer interface {
	// Rescue returns how many cases were reset to OPEN.
	Rescue(ctx context.Context, timeout time.Duration) (int64, error)
}

// TaskHandlers serves the internal task-callback and admin endpoints.
type TaskHandlers struct {
	registry *tasks.Registry
	verifier tasks.Verifier
	rescuer  Rescuer
}

// NewTaskHandlers constructs TaskHandlers bound to the given registry,
// verifier, and recovery service.
func NewTaskHandlers(registry *tasks.Registry, verifier tasks.Verifier, rescuer Rescuer) *TaskHandlers {
	return &TaskHandlers{registry: registry, verifier: verifier, rescuer: rescuer}
}

// RescueResponse reports the outcome of a manual zombie sweep.
type RescueResponse struct {
	Rescued int64 `json:"rescued"`
}

// HandleCallback executes a pushed task. The route parameter names the task;
// the request body is handed to the registered handler verbatim.
//
// Responses:
//   - 204 on success (the queue deletes the task)
//   - 401 when the OIDC token is missing or invalid
//   - 403 when the token is valid but the principal is not allowlisted
//   - 404 for unknown task names (permanent; retrying cannot help)
//   - 500 on handler failure (the queue redelivers with backoff)
func (h *TaskHandlers) HandleCallback(c *gin.Context) {
	email, err := h.verifier.Verify(c.Request.Context(), c.GetHeader("Authorization"))
	if err != nil {
		if errors.Is(err, tasks.ErrForbidden) {
			fail(c, http.StatusForbidden, ErrCodeForbidden, "caller not allowed")
			return
		}
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid task identity")
		return
	}

	name := c.Param("name")
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable body")
		return
	}

	if err := h.registry.Dispatch(c.Request.Context(), name, payload); err != nil {
		if errors.Is(err, tasks.ErrNoHandler) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
			return
		}
		log.Error().Err(err).
			Str("task", name).
			Str("caller", email).
			Msg("task callback failed")
		fail(c, http.StatusInternalServerError, ErrCodeDispatchFailed, err.Error())
		return
	}
	noContent(c)
}

// HandleRescue runs the zombie-case sweep on demand, outside its periodic
// schedule. It shares the OIDC verifier with the task callbacks.
func (h *TaskHandlers) HandleRescue(c *gin.Context) {
	if _, err := h.verifier.Verify(c.Request.Context(), c.GetHeader("Authorization")); err != nil {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid task identity")
		return
	}
	rescued, err := h.rescuer.Rescue(c.Request.Context(), 0)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, RescueResponse{Rescued: rescued})
}
