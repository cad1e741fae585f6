package managed

import (
	"errors"
	"maps"
	"slices"
)

var ErrEmptyStruct = errors.New("struct needs at least one field")

type field[V any] struct {
	name  string
	value V
}

// Struct runs the computations of fields one after another, in sorted key
// order, and collects their values under the same keys.
func Struct[V any](fields map[string]Managed[V]) Managed[map[string]V] {
	return StructExec(Sequential(), fields)
}

// StructPar is Struct with every field running concurrently.
func StructPar[V any](fields map[string]Managed[V]) Managed[map[string]V] {
	return StructExec(Parallel(), fields)
}

// StructParN is Struct with at most n fields running at once.
func StructParN[V any](n int, fields map[string]Managed[V]) Managed[map[string]V] {
	return StructExec(ParallelN(n), fields)
}

// StructExec runs the computations of fields with the strategy es.
// An empty fields fails with ErrEmptyStruct.
func StructExec[V any](es ExecutionStrategy, fields map[string]Managed[V]) Managed[map[string]V] {
	if len(fields) == 0 {
		return Fail[map[string]V](ErrEmptyStruct)
	}

	names := slices.Sorted(maps.Keys(fields))
	collected := ForEachExec(names, es, func(name string) Managed[field[V]] {
		return Map(fields[name], func(v V) field[V] {
			return field[V]{name: name, value: v}
		})
	})

	return Map(collected, func(fs []field[V]) map[string]V {
		out := make(map[string]V, len(fs))
		for _, f := range fs {
			out[f.name] = f.value
		}
		return out
	})
}
