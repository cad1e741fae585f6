package managed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/on-the-ground/managed_ive_go/effects/defect"
	"github.com/on-the-ground/managed_ive_go/effects/log"
	"github.com/rickb777/date/v2/timespan"
	"go.uber.org/multierr"
)

var (
	ErrNoReleaseMap = errors.New("no release map bound to context")
	ErrScopeClosed  = errors.New("scope already closed")
	ErrPanic        = errors.New("scope body panicked")
)

// Managed describes a computation that acquires resources while producing an
// A. Running it registers every acquired resource's release into the release
// map bound to the context, so the resources live exactly as long as that
// scope.
//
// A Managed is a description: nothing happens until it is run with Use or Run.
type Managed[A any] struct {
	effect func(ctx context.Context) (Finalizer, A, error)
}

// Make acquires a resource with acquire and releases it with release when
// the scope ends.
func Make[A any](
	acquire func(ctx context.Context) (A, error),
	release func(ctx context.Context, a A) error,
) Managed[A] {
	return MakeExit(acquire, func(ctx context.Context, a A, _ Exit) error {
		return release(ctx, a)
	})
}

// MakeExit is Make with a release step that sees how the scope ended.
//
// A successful acquisition is always registered, even when ctx is cancelled
// while acquire runs.
func MakeExit[A any](
	acquire func(ctx context.Context) (A, error),
	release func(ctx context.Context, a A, exit Exit) error,
) Managed[A] {
	return Managed[A]{effect: func(ctx context.Context) (Finalizer, A, error) {
		var zero A
		rm, ok := ReleaseMapFrom(ctx)
		if !ok {
			return NoopFinalizer, zero, ErrNoReleaseMap
		}

		a, err := acquire(ctx)
		if err != nil {
			return NoopFinalizer, zero, err
		}

		key, err := addTo(ctx, rm, func(ctx context.Context, exit Exit) error {
			return release(ctx, a, exit)
		})
		if err != nil {
			return NoopFinalizer, zero, err
		}
		return releaseKey(rm, key), a, nil
	}}
}

func Succeed[A any](a A) Managed[A] {
	return Managed[A]{effect: func(context.Context) (Finalizer, A, error) {
		return NoopFinalizer, a, nil
	}}
}

func Fail[A any](err error) Managed[A] {
	return Managed[A]{effect: func(context.Context) (Finalizer, A, error) {
		var zero A
		return NoopFinalizer, zero, err
	}}
}

// FromEffect lifts a plain computation that acquires nothing.
func FromEffect[A any](fn func(ctx context.Context) (A, error)) Managed[A] {
	return Managed[A]{effect: func(ctx context.Context) (Finalizer, A, error) {
		a, err := fn(ctx)
		return NoopFinalizer, a, err
	}}
}

// Finalize registers fin to run when the scope ends.
func Finalize(fin Finalizer) Managed[struct{}] {
	return MakeExit(
		func(context.Context) (struct{}, error) { return struct{}{}, nil },
		func(ctx context.Context, _ struct{}, exit Exit) error { return fin(ctx, exit) },
	)
}

// Map transforms the produced value. The registered finalizer is untouched.
func Map[A, B any](m Managed[A], f func(A) B) Managed[B] {
	return Managed[B]{effect: func(ctx context.Context) (Finalizer, B, error) {
		fin, a, err := m.effect(ctx)
		if err != nil {
			var zero B
			return fin, zero, err
		}
		return fin, f(a), nil
	}}
}

// FlatMap runs m, then the computation f builds from its value. Both register
// into the same scope; the combined finalizer releases the second first.
func FlatMap[A, B any](m Managed[A], f func(A) Managed[B]) Managed[B] {
	return Managed[B]{effect: func(ctx context.Context) (Finalizer, B, error) {
		var zero B
		finA, a, err := m.effect(ctx)
		if err != nil {
			return finA, zero, err
		}
		finB, b, err := f(a).effect(ctx)
		fin := reverseFinalizer([]Finalizer{finA, finB})
		if err != nil {
			return fin, zero, err
		}
		return fin, b, nil
	}}
}

// Timing is a value together with the time span its acquisition took.
type Timing[A any] struct {
	Value A
	Span  timespan.TimeSpan
}

// Timed measures how long m takes to acquire its value.
func Timed[A any](m Managed[A]) Managed[Timing[A]] {
	return Managed[Timing[A]]{effect: func(ctx context.Context) (Finalizer, Timing[A], error) {
		start := time.Now()
		fin, a, err := m.effect(ctx)
		if err != nil {
			return fin, Timing[A]{}, err
		}
		return fin, Timing[A]{Value: a, Span: timespan.BetweenTimes(start, time.Now())}, nil
	}}
}

// Run runs m against the release map bound to ctx. The returned finalizer
// releases what m acquired early; the scope releases it anyway when it ends.
func Run[A any](ctx context.Context, m Managed[A]) (Finalizer, A, error) {
	if _, ok := ReleaseMapFrom(ctx); !ok {
		var zero A
		return NoopFinalizer, zero, ErrNoReleaseMap
	}
	return m.effect(ctx)
}

// Use opens a scope, runs m and hands its value to f, then closes the scope.
//
// The scope is closed on every path: with a success exit, with the typed
// failure of m or f, with an interruption when ctx was cancelled, or with a
// failure exit when f panics, in which case the panic is raised again after
// teardown. Teardown runs with a context that is never cancelled.
//
// Defects of the teardown are reported to the defect handler of ctx, or
// logged when there is none. They never become Use's error.
func Use[A, B any](ctx context.Context, m Managed[A], f func(ctx context.Context, a A) (B, error)) (b B, err error) {
	rm := NewReleaseMap()
	scoped := WithReleaseMap(ctx, rm)

	defer func() {
		exit := ExitFrom(err)
		r := recover()
		if r != nil {
			exit = Failed(fmt.Errorf("%w: %v", ErrPanic, r))
		}

		teardownCtx := context.WithoutCancel(ctx)
		reportDefects(teardownCtx, rm.ID(), rm.ReleaseAll(teardownCtx, exit, Sequential()))

		if r != nil {
			panic(r)
		}
	}()

	_, a, err := m.effect(scoped)
	if err != nil {
		return b, err
	}
	return f(scoped, a)
}

// UseNow runs m in a scope of its own and returns the value it produced.
// Everything m acquired has been released by the time UseNow returns.
func UseNow[A any](ctx context.Context, m Managed[A]) (A, error) {
	return Use(ctx, m, func(_ context.Context, a A) (A, error) {
		return a, nil
	})
}

// addTo registers fin into rm. When rm is already closed fin has run at once;
// its defects are reported and ErrScopeClosed is returned.
func addTo(ctx context.Context, rm *ReleaseMap, fin Finalizer) (Key, error) {
	key, defects := rm.Add(ctx, fin)
	if key == NoKey {
		reportDefects(context.WithoutCancel(ctx), rm.ID(), defects)
		return NoKey, fmt.Errorf("%w: release map %s", ErrScopeClosed, rm.ID())
	}
	return key, nil
}

func releaseKey(rm *ReleaseMap, key Key) Finalizer {
	return func(ctx context.Context, exit Exit) error {
		return rm.Release(ctx, key, exit)
	}
}

// reverseFinalizer runs fins last to first. All of them run; their defects
// are combined.
func reverseFinalizer(fins []Finalizer) Finalizer {
	return func(ctx context.Context, exit Exit) error {
		var err error
		for i := len(fins) - 1; i >= 0; i-- {
			err = multierr.Append(err, runFinalizer(ctx, fins[i], exit))
		}
		return err
	}
}

func reportDefects(ctx context.Context, scope string, err error) {
	if err == nil || defect.Report(ctx, scope, err) {
		return
	}
	log.LogEffFor(ctx, scope, log.LogError, "finalizer defects", map[string]interface{}{
		"error": err.Error(),
	})
}
