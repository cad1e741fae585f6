package managed

import (
	"context"
)

// ForEach runs the computation f builds for each element of as, strictly one
// after another, and collects the values in input order.
//
// Every element registers into the scope ForEach runs in. The first failure,
// or a cancelled context, stops the batch; elements that already started are
// released with the scope as usual. The returned finalizer releases the
// elements in reverse input order.
func ForEach[A, B any](as []A, f func(A) Managed[B]) Managed[[]B] {
	return Managed[[]B]{effect: func(ctx context.Context) (Finalizer, []B, error) {
		fins := make([]Finalizer, 0, len(as))
		bs := make([]B, 0, len(as))
		for _, a := range as {
			if err := ctx.Err(); err != nil {
				return reverseFinalizer(fins), nil, err
			}
			fin, b, err := f(a).effect(ctx)
			fins = append(fins, fin)
			if err != nil {
				return reverseFinalizer(fins), nil, err
			}
			bs = append(bs, b)
		}
		return reverseFinalizer(fins), bs, nil
	}}
}

// ForEachUnit is ForEach for when the values are not needed.
func ForEachUnit[A, B any](as []A, f func(A) Managed[B]) Managed[struct{}] {
	return Managed[struct{}]{effect: func(ctx context.Context) (Finalizer, struct{}, error) {
		fins := make([]Finalizer, 0, len(as))
		for _, a := range as {
			if err := ctx.Err(); err != nil {
				return reverseFinalizer(fins), struct{}{}, err
			}
			fin, _, err := f(a).effect(ctx)
			fins = append(fins, fin)
			if err != nil {
				return reverseFinalizer(fins), struct{}{}, err
			}
		}
		return reverseFinalizer(fins), struct{}{}, nil
	}}
}
