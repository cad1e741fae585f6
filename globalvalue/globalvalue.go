// Package globalvalue keeps values that must exist at most once per process,
// such as a shared pool or a default runtime, initialized on first use.
//
// A Registry is injected rather than global, so tests get a fresh one.
package globalvalue

import (
	"fmt"
	"sync"

	"github.com/on-the-ground/managed_ive_go/shared/helper"
)

type Registry struct {
	entries sync.Map // id -> *entry
}

type entry struct {
	once  sync.Once
	value any
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Get returns the value stored under id, computing it with compute the first
// time id is asked for. Concurrent callers of a new id wait for the single
// computation. A compute that panics leaves the zero value behind.
//
// Get panics when id already holds a value of another type.
func Get[A any](r *Registry, id string, compute func() A) A {
	v, _ := r.entries.LoadOrStore(id, &entry{})
	e := v.(*entry)
	e.once.Do(func() {
		e.value = compute()
	})

	if e.value == nil {
		var zero A
		return zero
	}
	return helper.MustGetTypedValue[A](func() (any, error) {
		return e.value, nil
	})
}

// Has reports whether id has been asked for.
func (r *Registry) Has(id string) bool {
	_, ok := r.entries.Load(id)
	return ok
}

// ID builds a registry id of the form pkg/name.
func ID(pkg, name string) string {
	return fmt.Sprintf("%s/%s", pkg, name)
}
