package managed

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrInvalidParallelism = errors.New("parallelism must be positive")
	ErrUnknownStrategy    = errors.New("unknown execution strategy")
)

// ExecutionStrategy governs how a batch of computations, or the finalizers of
// a release map, are run. It is one of Sequential, Parallel or ParallelN.
type ExecutionStrategy interface {
	fmt.Stringer
	isExecutionStrategy()
}

type sequential struct{}

type parallel struct{}

type parallelN struct{ n int }

func (sequential) isExecutionStrategy() {}
func (parallel) isExecutionStrategy()   {}
func (parallelN) isExecutionStrategy()  {}

func (sequential) String() string  { return "sequential" }
func (parallel) String() string    { return "parallel" }
func (p parallelN) String() string { return fmt.Sprintf("parallel(%d)", p.n) }

// Sequential runs one thing at a time, in order. Finalizers are released in
// reverse registration order.
func Sequential() ExecutionStrategy { return sequential{} }

// Parallel runs everything at once.
func Parallel() ExecutionStrategy { return parallel{} }

// ParallelN runs at most n things at once. n must be positive; the strategy
// is checked where it is used.
func ParallelN(n int) ExecutionStrategy { return parallelN{n: n} }

// ParseExecutionStrategy parses the String form of a strategy:
// "sequential", "parallel" or "parallel(n)".
func ParseExecutionStrategy(s string) (ExecutionStrategy, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "sequential":
		return Sequential(), nil
	case "parallel":
		return Parallel(), nil
	}

	inner, ok := strings.CutPrefix(s, "parallel(")
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
	inner, ok = strings.CutSuffix(inner, ")")
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
	n, err := strconv.Atoi(strings.TrimSpace(inner))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrUnknownStrategy, s, err)
	}
	if n <= 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidParallelism, s)
	}
	return ParallelN(n), nil
}

// StrategyConfig holds an ExecutionStrategy in configuration data, in its
// String form. The zero value is Sequential.
type StrategyConfig struct {
	Value ExecutionStrategy
}

func (c StrategyConfig) Strategy() ExecutionStrategy {
	if c.Value == nil {
		return Sequential()
	}
	return c.Value
}

func (c StrategyConfig) MarshalText() ([]byte, error) {
	return []byte(c.Strategy().String()), nil
}

func (c *StrategyConfig) UnmarshalText(text []byte) error {
	es, err := ParseExecutionStrategy(string(text))
	if err != nil {
		return err
	}
	c.Value = es
	return nil
}

// ForEachExec runs f over as with the strategy es.
func ForEachExec[A, B any](as []A, es ExecutionStrategy, f func(A) Managed[B]) Managed[[]B] {
	switch es := es.(type) {
	case sequential:
		return ForEach(as, f)
	case parallel:
		return ForEachPar(as, f)
	case parallelN:
		return ForEachParN(as, es.n, f)
	default:
		panic("exhaustive match")
	}
}
