package managed

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"go.uber.org/multierr"
)

// Finalizer releases something when its scope ends.
//
// A finalizer has no typed-error channel. A returned error is a defect, as is
// a panic: both are collected by the release map running it, and neither
// stops sibling finalizers from running.
type Finalizer func(ctx context.Context, exit Exit) error

// NoopFinalizer releases nothing.
func NoopFinalizer(context.Context, Exit) error { return nil }

// Defect wraps a value a finalizer panicked with, together with the goroutine
// stack trace captured where it was recovered.
type Defect struct {
	Value any
	Stack string
}

func (d *Defect) Error() string {
	return fmt.Sprintf("finalizer panicked: %v", d.Value)
}

// Unwrap exposes the panic value when it is itself an error.
func (d *Defect) Unwrap() error {
	if err, ok := d.Value.(error); ok {
		return err
	}
	return nil
}

func newDefect(v any) *Defect {
	// 8 KiB is enough for most stack traces. runtime.Stack truncates
	// gracefully if the buffer is too small.
	buf := make([]byte, 8192)
	n := runtime.Stack(buf, false)
	return &Defect{Value: v, Stack: string(buf[:n])}
}

// DefectError is every defect produced by one release pass of a release map.
type DefectError struct {
	ReleaseMap string
	Defects    []error
}

func (e *DefectError) Error() string {
	msgs := make([]string, len(e.Defects))
	for i, d := range e.Defects {
		msgs[i] = d.Error()
	}
	return fmt.Sprintf("release map %s: %d defect(s): %s", e.ReleaseMap, len(e.Defects), strings.Join(msgs, "; "))
}

func (e *DefectError) Unwrap() []error {
	return e.Defects
}

// newDefectError splits combined into its individual defects, or returns nil
// when there is nothing to report. Defects of nested maps stay wrapped in their
// own DefectError.
func newDefectError(releaseMap string, combined error) error {
	if combined == nil {
		return nil
	}
	return &DefectError{ReleaseMap: releaseMap, Defects: multierr.Errors(combined)}
}

// runFinalizer runs fin, turning a panic into a *Defect.
func runFinalizer(ctx context.Context, fin Finalizer, exit Exit) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newDefect(r)
		}
	}()
	return fin(ctx, exit)
}
