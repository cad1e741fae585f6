package managed

import (
	"context"
	"errors"
	"fmt"
)

// ExitKind classifies how a computation ended.
type ExitKind int

const (
	ExitSuccess ExitKind = iota
	ExitFailure
	ExitInterruption
)

func (k ExitKind) String() string {
	switch k {
	case ExitSuccess:
		return "success"
	case ExitFailure:
		return "failure"
	case ExitInterruption:
		return "interruption"
	default:
		panic(fmt.Sprintf("exhaustive match: unknown exit kind %d", int(k)))
	}
}

// Exit is the classification a scope ends with and every finalizer receives.
// The zero value is a successful exit.
type Exit struct {
	kind ExitKind
	err  error
}

func Succeeded() Exit {
	return Exit{kind: ExitSuccess}
}

func Failed(err error) Exit {
	return Exit{kind: ExitFailure, err: err}
}

func Interrupted(cause error) Exit {
	return Exit{kind: ExitInterruption, err: cause}
}

// ExitFrom classifies err: nil is success, context cancellation or deadline
// is interruption, anything else is a typed failure.
func ExitFrom(err error) Exit {
	switch {
	case err == nil:
		return Succeeded()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Interrupted(err)
	default:
		return Failed(err)
	}
}

func (e Exit) Kind() ExitKind      { return e.kind }
func (e Exit) Err() error          { return e.err }
func (e Exit) IsSuccess() bool     { return e.kind == ExitSuccess }
func (e Exit) IsFailure() bool     { return e.kind == ExitFailure }
func (e Exit) IsInterrupted() bool { return e.kind == ExitInterruption }

func (e Exit) String() string {
	if e.err == nil {
		return e.kind.String()
	}
	return fmt.Sprintf("%s: %v", e.kind, e.err)
}
