package managed

import (
	"context"
	"fmt"
	"sync"

	"github.com/on-the-ground/managed_ive_go/effects/log"
	"golang.org/x/sync/errgroup"
)

// ForEachPar is ForEach with every element running concurrently.
//
// Each element gets a release map of its own, so its resources are released
// last-acquired first. Those maps are in turn owned by one outer map that the
// surrounding scope releases, tearing all elements down concurrently. The
// first failure cancels the context of the elements still running. Values are
// collected in input order.
//
// A panic in an element is raised again on the calling goroutine once every
// element has stopped.
func ForEachPar[A, B any](as []A, f func(A) Managed[B]) Managed[[]B] {
	return forEachPar(as, Parallel(), 0, f)
}

// ForEachParN is ForEachPar with at most n elements in flight at any time.
// The elements are torn down at most n at a time too.
func ForEachParN[A, B any](as []A, n int, f func(A) Managed[B]) Managed[[]B] {
	if n <= 0 {
		return Fail[[]B](fmt.Errorf("%w: %d", ErrInvalidParallelism, n))
	}
	return forEachPar(as, ParallelN(n), n, f)
}

func forEachPar[A, B any](as []A, es ExecutionStrategy, limit int, f func(A) Managed[B]) Managed[[]B] {
	return Managed[[]B]{effect: func(ctx context.Context) (Finalizer, []B, error) {
		parent, ok := ReleaseMapFrom(ctx)
		if !ok {
			return NoopFinalizer, nil, ErrNoReleaseMap
		}

		// Elements acquire with elemCtx, so it lives as long as the scope: it is
		// cancelled when an element fails, otherwise after the elements are torn down.
		elemCtx, cancel := context.WithCancel(ctx)
		cancelKey, err := addTo(ctx, parent, func(context.Context, Exit) error {
			cancel()
			return nil
		})
		if err != nil {
			cancel()
			return NoopFinalizer, nil, err
		}

		outer := NewReleaseMap()
		outerKey, err := addTo(ctx, parent, func(ctx context.Context, exit Exit) error {
			return outer.ReleaseAll(ctx, exit, es)
		})
		if err != nil {
			return releaseKey(parent, cancelKey), nil, err
		}
		fin := reverseFinalizer([]Finalizer{releaseKey(parent, cancelKey), releaseKey(parent, outerKey)})

		var (
			g        errgroup.Group
			mu       sync.Mutex
			panicked *Defect
		)
		if limit > 0 {
			g.SetLimit(limit)
		}

		results := make([]B, len(as))
		for i, a := range as {
			g.Go(func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						d := newDefect(r)
						mu.Lock()
						if panicked == nil {
							panicked = d
						}
						mu.Unlock()
						err = fmt.Errorf("%w: %v", ErrPanic, r)
					}
					if err != nil {
						cancel()
					}
				}()

				if err := elemCtx.Err(); err != nil {
					return err
				}

				inner := NewReleaseMap()
				if _, err := addTo(elemCtx, outer, func(ctx context.Context, exit Exit) error {
					return inner.ReleaseAll(ctx, exit, Sequential())
				}); err != nil {
					return err
				}

				_, b, err := f(a).effect(WithReleaseMap(elemCtx, inner))
				if err != nil {
					return err
				}
				results[i] = b
				return nil
			})
		}

		err = g.Wait()
		if panicked != nil {
			// Raised again on the caller's goroutine so the enclosing scope
			// tears everything down before the panic leaves it.
			log.LogEffFor(context.WithoutCancel(ctx), outer.ID(), log.LogError, "element panicked", map[string]interface{}{
				"panic": fmt.Sprint(panicked.Value),
				"stack": panicked.Stack,
			})
			panic(panicked.Value)
		}
		if err != nil {
			return fin, nil, err
		}
		if err := ctx.Err(); err != nil {
			return fin, nil, err
		}
		return fin, results, nil
	}}
}
