package tasks

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// LocalExecutor runs tasks on detached goroutines inside the same process.
// It is the single-node dev mode: no queue, no HTTP callback, at-most-once
// delivery. Execution detaches from the caller's cancellation so an enqueue
// performed inside an HTTP request survives the response being written.
type LocalExecutor struct {
	registry *Registry
	wg       sync.WaitGroup
}

// NewLocalExecutor returns an executor dispatching into registry.
func NewLocalExecutor(registry *Registry) *LocalExecutor {
	return &LocalExecutor{registry: registry}
}

// Enqueue implements Executor. The handler error is logged, not returned;
// in local mode a failed task is simply lost, same as a dead-lettered queue
// delivery.
func (e *LocalExecutor) Enqueue(ctx context.Context, name string, payload any) error {
	body, err := encodePayload(payload)
	if err != nil {
		return err
	}
	runCtx := context.WithoutCancel(ctx)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Error().Str("task", name).Interface("panic", r).Msg("task handler panicked")
			}
		}()
		if err := e.registry.Dispatch(runCtx, name, body); err != nil {
			log.Error().Err(err).Str("task", name).Msg("local task failed")
		}
	}()
	return nil
}

// Wait blocks until all enqueued tasks have finished. Used by graceful
// shutdown and tests.
func (e *LocalExecutor) Wait() {
	e.wg.Wait()
}
