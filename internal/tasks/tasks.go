// Package tasks is the background task boundary of the pipeline. Services
// enqueue named tasks with JSON payloads through an Executor; an Executor is
// either local (detached goroutines, single-node dev) or queue-backed (Cloud
// Tasks pushing back into the HTTP callback surface). Handlers register by
// task name in a Registry shared by both modes, so pipeline code is identical
// in dev and production.
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Task names dispatched by the pipeline.
const (
	TaskProcessDocument = "process-document"
	TaskGenerateReport  = "generate-report"
)

// ErrNoHandler is returned by Dispatch when no handler is registered for the
// requested name.
var ErrNoHandler = errors.New("tasks: no handler registered")

// Handler processes one delivered task payload. Returning an error signals
// the delivery failed and may be retried by the transport; handlers must be
// idempotent.
type Handler func(ctx context.Context, payload []byte) error

// Executor enqueues a named task for asynchronous execution.
type Executor interface {
	Enqueue(ctx context.Context, name string, payload any) error
}

// Registry maps task names to handlers. Registration happens during wiring,
// before any executor runs; Dispatch is safe for concurrent use afterwards.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds a handler to a task name. Registering the same name twice
// panics; that is always a wiring bug.
func (r *Registry) Register(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[name]; exists {
		panic(fmt.Sprintf("tasks: handler %q registered twice", name))
	}
	r.handlers[name] = h
}

// Dispatch runs the handler registered for name.
func (r *Registry) Dispatch(ctx context.Context, name string, payload []byte) error {
	r.mu.RLock()
	h, ok := r.handlers[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w for %q", ErrNoHandler, name)
	}
	return h(ctx, payload)
}

// Names returns the registered task names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// encodePayload marshals an enqueue payload once, shared by both executors.
func encodePayload(payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("tasks: encode payload: %w", err)
	}
	return body, nil
}
