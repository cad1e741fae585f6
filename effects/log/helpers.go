package log

import (
	"context"
	"os"

	effectmodel "github.com/on-the-ground/managed_ive_go/effects/internal/model"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// WithTestEffectHandler installs a debug-level console log handler on stdout.
func WithTestEffectHandler(
	ctx context.Context,
) (context.Context, func() context.Context) {
	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.Lock(os.Stdout),
		zap.DebugLevel,
	)
	return WithZapEffectHandler(
		ctx,
		effectmodel.NewEffectScopeConfig(64, 1),
		zap.New(consoleCore),
	)
}

// NewEffectScopeConfig re-exports the handler config constructor for callers
// outside this module's internal tree.
func NewEffectScopeConfig(bufferSize, numWorkers int) effectmodel.EffectScopeConfig {
	return effectmodel.NewEffectScopeConfig(bufferSize, numWorkers)
}
