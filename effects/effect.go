package effects

import (
	"context"
	"errors"

	"github.com/on-the-ground/managed_ive_go/effects/internal/handlers"
	"github.com/on-the-ground/managed_ive_go/effects/internal/helper"
	effectmodel "github.com/on-the-ground/managed_ive_go/effects/internal/model"
	sharedHelper "github.com/on-the-ground/managed_ive_go/shared/helper"
)

// ErrNoEffectHandler is returned (or panicked with) when no handler is registered for an effect.
var ErrNoEffectHandler = effectmodel.ErrNoEffectHandler

// WithFireAndForgetEffectHandler registers a fire-and-forget effect handler for a given effect enum.
//
// Suitable for one-shot effects like logging, telemetry, or defect reporting.
// This handler executes without returning a result. When config.NumWorkers > 1,
// payloads sharing a PartitionKey() are handled by the same worker, in order.
//
// Usage:
//
//	ctx, end := WithFireAndForgetEffectHandler(ctx, config, MyEffectEnum, handleFn)
//	defer end()
//
// The returned function closes the handler, waits for buffered payloads to be
// handled, runs the optional teardown and returns the context it was given.
func WithFireAndForgetEffectHandler[P effectmodel.Partitionable](
	ctx context.Context,
	config effectmodel.EffectScopeConfig,
	enum effectmodel.EffectEnum,
	handleFn func(context.Context, P),
	teardown ...func(),
) (context.Context, func() context.Context) {
	td := normalizeTeardown(teardown)
	handler := handlers.NewFireAndForgetHandler(
		ctx,
		effectmodel.NewEffectScopeConfig(config.BufferSize, config.NumWorkers),
		handleFn,
		td,
	)
	ctxWith := context.WithValue(ctx, enum, handler)

	return ctxWith, func() context.Context {
		handler.Close()
		return ctx
	}
}

// FireAndForgetEffect triggers a fire-and-forget effect for the given enum and payload.
//
// The handler will process the payload asynchronously.
// Panics if no handler is registered for the given enum.
func FireAndForgetEffect[P effectmodel.Partitionable](
	ctx context.Context,
	enum effectmodel.EffectEnum,
	payload P,
) {
	handler := sharedHelper.MustGetTypedValue[handlers.FireAndForgetHandler[P]](
		func() (any, error) {
			return helper.GetHandler(ctx, enum)
		},
	)
	handler.FireAndForgetEffect(ctx, payload)
}

// TryFireAndForgetEffect is the optional variant of FireAndForgetEffect.
//
// It reports whether a handler was registered and accepted the payload, and
// never panics. Library code that must keep working without handlers uses it.
func TryFireAndForgetEffect[P effectmodel.Partitionable](
	ctx context.Context,
	enum effectmodel.EffectEnum,
	payload P,
) bool {
	handler, err := sharedHelper.GetTypedValueOf[handlers.FireAndForgetHandler[P]](
		func() (any, error) {
			return helper.GetHandler(ctx, enum)
		},
	)
	if err != nil {
		return false
	}
	return handler.FireAndForgetEffect(ctx, payload)
}

// HasHandler reports whether a handler is registered for enum.
func HasHandler(ctx context.Context, enum effectmodel.EffectEnum) bool {
	_, err := helper.GetHandler(ctx, enum)
	return !errors.Is(err, ErrNoEffectHandler)
}

// normalizeTeardown flattens optional teardown functions into a single callable.
//
// Accepts either 0 or 1 teardown functions. Panics if more than one is passed.
func normalizeTeardown(teardown []func()) func() {
	switch len(teardown) {
	case 1:
		return teardown[0]
	case 0:
		return func() {}
	default:
		panic("normalizeTeardown: only one or zero teardown functions allowed")
	}
}
