// Package managed ties the lifetime of resources to a scope.
//
// A ReleaseMap records the finalizers a scope owes. A Managed[A] describes
// how to acquire an A and what to release afterwards; running it registers
// the release into the release map bound to the context. Use opens a scope,
// runs a Managed and closes the scope on every exit path, handing each
// finalizer the Exit the scope ended with.
//
// Batches run with ForEach (one at a time), ForEachPar (all at once) or
// ForEachParN (at most n at once), or with ForEachExec when the strategy is
// configuration data. Struct and its variants do the same over named fields.
// Parallel batches give each element its own release map, owned by one outer
// map, so no element's resources are ever left behind.
//
// Finalizers cannot fail: an error they return or a panic they raise is a
// defect. Defects are collected per release pass and delivered to the defect
// effect handler (see package effects/defect) rather than to the caller.
//
// Example:
//
//	conn := managed.Make(
//	    func(ctx context.Context) (*Conn, error) { return dial(ctx, addr) },
//	    func(ctx context.Context, c *Conn) error { return c.Close() },
//	)
//	rows, err := managed.Use(ctx, conn, func(ctx context.Context, c *Conn) ([]Row, error) {
//	    return c.Query(ctx, q)
//	})
package managed
