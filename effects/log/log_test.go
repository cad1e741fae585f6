package log_test

import (
	"context"
	"testing"

	"github.com/on-the-ground/managed_ive_go/effects/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapEffectHandler_WritesLevelsAndFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	ctx, end := log.WithZapEffectHandler(context.Background(), log.NewEffectScopeConfig(8, 1), zap.New(core))

	log.LogEff(ctx, log.LogInfo, "info message", map[string]interface{}{"answer": 42})
	log.LogEff(ctx, log.LogWarn, "warn message", nil)
	log.LogEff(ctx, log.LogError, "error message", nil)
	log.LogEff(ctx, log.LogDebug, "debug message", nil)
	log.LogEff(ctx, log.LogLevel("unknown"), "fallback message", nil)

	end()

	entries := logs.AllUntimed()
	require.Len(t, entries, 5)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, int64(42), entries[0].ContextMap()["answer"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.Equal(t, zapcore.DebugLevel, entries[3].Level)
	assert.Equal(t, zapcore.InfoLevel, entries[4].Level)
}

func TestZapEffectHandler_KeyedMessagesKeepOrder(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	ctx, end := log.WithZapEffectHandler(context.Background(), log.NewEffectScopeConfig(16, 4), zap.New(core))

	for _, msg := range []string{"first", "second", "third"} {
		log.LogEffFor(ctx, "scope-1", log.LogInfo, msg, nil)
	}
	end()

	entries := logs.FilterField(zap.String("key", "scope-1")).AllUntimed()
	require.Len(t, entries, 3)
	assert.Equal(t, "first", entries[0].Message)
	assert.Equal(t, "second", entries[1].Message)
	assert.Equal(t, "third", entries[2].Message)
}

func TestLogEff_WithoutHandlerIsNoop(t *testing.T) {
	assert.NotPanics(t, func() {
		log.LogEff(context.Background(), log.LogInfo, "dropped", nil)
	})
}
