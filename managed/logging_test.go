package managed_test

import (
	"context"
	"errors"
	"testing"

	"github.com/on-the-ground/managed_ive_go/effects/log"
	"github.com/on-the-ground/managed_ive_go/managed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestUse_LogsReleaseAndDefectsWithoutDefectHandler(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ctx, end := log.WithZapEffectHandler(context.Background(), log.NewEffectScopeConfig(16, 1), zap.New(core))

	_, err := managed.UseNow(ctx, managed.Make(
		func(context.Context) (int, error) { return 1, nil },
		func(context.Context, int) error { return errors.New("close failed") },
	))
	require.NoError(t, err)
	end()

	closed := logs.FilterMessage("release map closed").AllUntimed()
	require.Len(t, closed, 1)
	assert.Equal(t, zapcore.DebugLevel, closed[0].Level)
	fields := closed[0].ContextMap()
	assert.Equal(t, "success", fields["exit"])
	assert.Equal(t, "sequential", fields["strategy"])
	assert.Equal(t, int64(1), fields["finalizers"])
	assert.Equal(t, int64(1), fields["defects"])

	defects := logs.FilterMessage("finalizer defects").AllUntimed()
	require.Len(t, defects, 1)
	assert.Equal(t, zapcore.ErrorLevel, defects[0].Level)
	assert.Contains(t, defects[0].ContextMap()["error"], "close failed")
	assert.Equal(t, closed[0].ContextMap()["key"], defects[0].ContextMap()["key"], "both keyed by the release map")
}
