package handlers

import (
	"context"

	effectmodel "github.com/on-the-ground/managed_ive_go/effects/internal/model"
)

// NewFireAndForgetHandler starts the workers of a handler whose callers never
// wait for a result. With config.NumWorkers > 1 payloads are partitioned by
// their PartitionKey, so payloads sharing a key are handled in send order.
func NewFireAndForgetHandler[P effectmodel.Partitionable](
	ctx context.Context,
	config effectmodel.EffectScopeConfig,
	handleFn func(context.Context, P),
	teardown func(),
) FireAndForgetHandler[P] {
	ctx, cancelFn := context.WithCancel(ctx)

	var dispatcher WorkerDispatcher[P]
	if config.NumWorkers > 1 {
		dispatcher = NewPartitionedQueue(ctx, config.NumWorkers, config.BufferSize, handleFn)
	} else {
		dispatcher = NewSingleQueue(ctx, config.BufferSize, handleFn)
	}

	return FireAndForgetHandler[P]{
		effectScope: newEffectScope(
			dispatcher,
			func() {
				cancelFn()
				dispatcher.Wait()
				teardown()
			},
		),
		done: ctx.Done(),
	}
}

type FireAndForgetHandler[P any] struct {
	*effectScope[P]
	done <-chan struct{}
}

// FireAndForgetEffect enqueues payload. It gives up when either the caller's
// context or the handler itself is done, and reports whether it was enqueued.
func (ffh FireAndForgetHandler[P]) FireAndForgetEffect(ctx context.Context, payload P) bool {
	select {
	case <-ffh.done:
		return false
	default:
	}

	select {
	case <-ctx.Done():
		return false
	case <-ffh.done:
		return false
	case ffh.dispatcher.GetChannelOf(payload) <- payload:
		return true
	}
}
