// Package defect is the channel finalizer defects are reported through.
//
// A finalizer has no typed error: when it panics or returns an error, the
// release map collects that as a defect and keeps releasing its siblings. The
// collected defects never reach the caller's error return; they are delivered
// here instead, to whichever handler the surrounding scope installed.
package defect

import (
	"context"

	"github.com/on-the-ground/managed_ive_go/effects"
	effectmodel "github.com/on-the-ground/managed_ive_go/effects/internal/model"
)

// Payload carries the defects of one release pass.
// Scope identifies the release map that produced them.
type Payload struct {
	Scope string
	Err   error
}

func (p Payload) PartitionKey() string {
	return p.Scope
}

// WithEffectHandler registers handleFn as the receiver of defects reported
// from ctx and everything derived from it.
func WithEffectHandler(
	ctx context.Context,
	bufferSize int,
	handleFn func(context.Context, Payload),
) (context.Context, func() context.Context) {
	return effects.WithFireAndForgetEffectHandler(
		ctx,
		effectmodel.NewEffectScopeConfig(bufferSize, 1),
		effectmodel.EffectDefect,
		handleFn,
	)
}

// Report delivers err to the defect handler and reports whether one took it.
func Report(ctx context.Context, scope string, err error) bool {
	if err == nil {
		return true
	}
	return effects.TryFireAndForgetEffect(ctx, effectmodel.EffectDefect, Payload{
		Scope: scope,
		Err:   err,
	})
}

// HasHandler reports whether a defect handler is installed in ctx.
func HasHandler(ctx context.Context) bool {
	return effects.HasHandler(ctx, effectmodel.EffectDefect)
}
