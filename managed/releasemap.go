package managed

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/on-the-ground/managed_ive_go/effects/log"
	"github.com/rickb777/date/v2/timespan"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Key identifies one finalizer within a ReleaseMap.
type Key uint64

// NoKey is returned by Add when the map was already closed and the finalizer
// ran immediately.
const NoKey Key = 0

// ReleaseMap tracks the finalizers owed by one scope.
//
// While open it stores finalizers in registration order. ReleaseAll closes it
// exactly once and releases what is left; a finalizer added after that runs
// at once against the exit the map was closed with.
//
// All methods are safe for concurrent use: in a parallel forEach every element
// registers its own teardown into the one shared outer map.
type ReleaseMap struct {
	id string

	mu         sync.Mutex
	lastKey    Key
	order      []Key
	finalizers map[Key]Finalizer
	closed     bool
	exit       Exit
}

func NewReleaseMap() *ReleaseMap {
	return &ReleaseMap{
		id:         uuid.New().String(),
		finalizers: make(map[Key]Finalizer),
	}
}

// ID is a unique identifier of the map, used in logs and defect reports.
func (rm *ReleaseMap) ID() string {
	return rm.id
}

// Add registers fin and returns its key.
//
// If the map is closed fin runs immediately with the exit the map was closed
// with; Add then returns NoKey and the defects of that run, if any.
func (rm *ReleaseMap) Add(ctx context.Context, fin Finalizer) (Key, error) {
	rm.mu.Lock()
	if rm.closed {
		exit := rm.exit
		rm.mu.Unlock()
		return NoKey, newDefectError(rm.id, runFinalizer(ctx, fin, exit))
	}
	rm.lastKey++
	key := rm.lastKey
	rm.order = append(rm.order, key)
	rm.finalizers[key] = fin
	rm.mu.Unlock()
	return key, nil
}

// Release runs and forgets the finalizer stored under key.
// It does nothing when key is unknown, already released, or the map is closed.
func (rm *ReleaseMap) Release(ctx context.Context, key Key, exit Exit) error {
	fin, ok := rm.Remove(key)
	if !ok {
		return nil
	}
	return newDefectError(rm.id, runFinalizer(ctx, fin, exit))
}

// Remove forgets the finalizer stored under key without running it.
func (rm *ReleaseMap) Remove(key Key) (Finalizer, bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.closed {
		return nil, false
	}
	fin, ok := rm.finalizers[key]
	if !ok {
		return nil, false
	}
	delete(rm.finalizers, key)
	if idx := slices.Index(rm.order, key); idx >= 0 {
		rm.order = slices.Delete(rm.order, idx, idx+1)
	}
	return fin, true
}

// ReleaseAll closes the map with exit and runs every finalizer still stored,
// following es: in reverse registration order for Sequential, all at once for
// Parallel, at most n at a time for ParallelN(n).
//
// Every finalizer runs regardless of what its siblings do. Their defects are
// returned together as a *DefectError. Only the first call releases anything.
func (rm *ReleaseMap) ReleaseAll(ctx context.Context, exit Exit, es ExecutionStrategy) error {
	rm.mu.Lock()
	if rm.closed {
		rm.mu.Unlock()
		return nil
	}
	rm.closed = true
	rm.exit = exit
	fins := make([]Finalizer, 0, len(rm.order))
	for i := len(rm.order) - 1; i >= 0; i-- {
		fins = append(fins, rm.finalizers[rm.order[i]])
	}
	rm.order = nil
	rm.finalizers = nil
	rm.mu.Unlock()

	start := time.Now()

	var combined error
	switch es := es.(type) {
	case sequential:
		for _, fin := range fins {
			combined = multierr.Append(combined, runFinalizer(ctx, fin, exit))
		}
	case parallel:
		combined = runFinalizersConcurrently(ctx, fins, exit, 0)
	case parallelN:
		combined = runFinalizersConcurrently(ctx, fins, exit, es.n)
	default:
		panic("exhaustive match")
	}

	span := timespan.BetweenTimes(start, time.Now())
	log.LogEffFor(ctx, rm.id, log.LogDebug, "release map closed", map[string]interface{}{
		"exit":       exit.String(),
		"strategy":   es.String(),
		"finalizers": len(fins),
		"started":    span.Start(),
		"duration":   span.Duration(),
		"defects":    len(multierr.Errors(combined)),
	})

	return newDefectError(rm.id, combined)
}

// IsClosed reports whether ReleaseAll has been called.
func (rm *ReleaseMap) IsClosed() bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.closed
}

// Len is the number of finalizers currently stored.
func (rm *ReleaseMap) Len() int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return len(rm.finalizers)
}

// runFinalizersConcurrently fans fins out, at most limit at a time when limit > 0.
func runFinalizersConcurrently(ctx context.Context, fins []Finalizer, exit Exit, limit int) error {
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	errs := make([]error, len(fins))
	for i, fin := range fins {
		g.Go(func() error {
			errs[i] = runFinalizer(ctx, fin, exit)
			return nil
		})
	}
	_ = g.Wait()

	return multierr.Combine(errs...)
}

type releaseMapKey struct{}

// WithReleaseMap makes rm the ambient release map of the returned context.
// Managed computations run with that context register their finalizers into rm.
func WithReleaseMap(ctx context.Context, rm *ReleaseMap) context.Context {
	return context.WithValue(ctx, releaseMapKey{}, rm)
}

// ReleaseMapFrom returns the ambient release map of ctx.
func ReleaseMapFrom(ctx context.Context) (*ReleaseMap, bool) {
	rm, ok := ctx.Value(releaseMapKey{}).(*ReleaseMap)
	return rm, ok && rm != nil
}
