package handlers

import (
	"sync"

	"github.com/google/uuid"
)

// effectScope owns the workers of one handler. Sends may come from any
// goroutine holding the handler's context; Close belongs to whoever installed it.
type effectScope[T any] struct {
	EffectId   string
	dispatcher WorkerDispatcher[T]
	closeFn    func()
	closeOnce  sync.Once
}

// Close stops the workers, waits for them to drain, then runs the teardown.
// Calls after the first are no-ops.
func (es *effectScope[T]) Close() {
	es.closeOnce.Do(es.closeFn)
}

func newEffectScope[T any](
	dispatcher WorkerDispatcher[T],
	teardown func(),
) *effectScope[T] {
	return &effectScope[T]{
		EffectId:   uuid.New().String(),
		dispatcher: dispatcher,
		closeFn:    teardown,
	}
}
