// Package effects provides the small effect-handler layer the managed core
// reports through.
//
// Handlers are registered via `WithXxxEffectHandler(ctx)` and performed through
// `FireAndForgetEffect` (panics without a handler) or `TryFireAndForgetEffect`
// (a no-op without one). A handler lives exactly as long as the scope that
// installed it: the returned end function closes it, drains what was already
// sent and runs its teardown.
//
// Built-in handlers live in subpackages:
//   - log: structured logging through zap
//   - defect: the channel finalizer defects are delivered to
//
// Example:
//
//	func handler(ctx context.Context) {
//	    ctx, end := log.WithTestEffectHandler(ctx)
//	    defer end()
//
//	    log.LogEff(ctx, log.LogInfo, "hello", nil)
//	}
package effects
