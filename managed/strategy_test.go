package managed_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/on-the-ground/managed_ive_go/managed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExecutionStrategy(t *testing.T) {
	tests := []struct {
		in   string
		want managed.ExecutionStrategy
	}{
		{"sequential", managed.Sequential()},
		{"parallel", managed.Parallel()},
		{"parallel(4)", managed.ParallelN(4)},
		{" Parallel( 2 ) ", managed.ParallelN(2)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := managed.ParseExecutionStrategy(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseExecutionStrategy_Invalid(t *testing.T) {
	for _, in := range []string{"", "concurrent", "parallel(", "parallel(x)", "parallel(4"} {
		_, err := managed.ParseExecutionStrategy(in)
		assert.ErrorIs(t, err, managed.ErrUnknownStrategy, in)
	}
	for _, in := range []string{"parallel(0)", "parallel(-3)"} {
		_, err := managed.ParseExecutionStrategy(in)
		assert.ErrorIs(t, err, managed.ErrInvalidParallelism, in)
	}
}

func TestExecutionStrategy_StringRoundTrips(t *testing.T) {
	for _, es := range []managed.ExecutionStrategy{managed.Sequential(), managed.Parallel(), managed.ParallelN(3)} {
		got, err := managed.ParseExecutionStrategy(es.String())
		require.NoError(t, err)
		assert.Equal(t, es, got)
	}
}

func TestStrategyConfig_JSON(t *testing.T) {
	var cfg struct {
		Release managed.StrategyConfig `json:"release"`
		Acquire managed.StrategyConfig `json:"acquire"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"release":"parallel(8)"}`), &cfg))
	assert.Equal(t, managed.ParallelN(8), cfg.Release.Strategy())
	assert.Equal(t, managed.Sequential(), cfg.Acquire.Strategy(), "zero value is sequential")

	out, err := json.Marshal(cfg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"release":"parallel(8)","acquire":"sequential"}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"release":"sometimes"}`), &cfg))
}

func TestForEachExec_WallTime(t *testing.T) {
	const d = 50 * time.Millisecond
	sleep := func(int) managed.Managed[struct{}] {
		return managed.FromEffect(func(context.Context) (struct{}, error) {
			time.Sleep(d)
			return struct{}{}, nil
		})
	}
	elems := []int{1, 2, 3, 4, 5}

	elapsed := func(es managed.ExecutionStrategy) time.Duration {
		start := time.Now()
		_, err := managed.UseNow(context.Background(), managed.ForEachExec(elems, es, sleep))
		require.NoError(t, err)
		return time.Since(start)
	}

	seq := elapsed(managed.Sequential())
	assert.GreaterOrEqual(t, seq, 5*d)

	par := elapsed(managed.Parallel())
	assert.GreaterOrEqual(t, par, d)
	assert.Less(t, par, 2*d)

	bounded := elapsed(managed.ParallelN(2))
	assert.GreaterOrEqual(t, bounded, 3*d)
	assert.Less(t, bounded, 4*d+d/2)
}

func TestForEachExec_Dispatch(t *testing.T) {
	tr := newTracker()
	for _, es := range []managed.ExecutionStrategy{managed.Sequential(), managed.Parallel(), managed.ParallelN(2)} {
		t.Run(es.String(), func(t *testing.T) {
			got, err := managed.UseNow(context.Background(), managed.ForEachExec(names(5), es, tr.resource))
			require.NoError(t, err)
			assert.Equal(t, names(5), got)
		})
	}
	assert.ElementsMatch(t, tr.Acquired(), tr.Released())
}
