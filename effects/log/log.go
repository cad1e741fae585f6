package log

import (
	"context"

	"github.com/on-the-ground/managed_ive_go/effects"
	effectmodel "github.com/on-the-ground/managed_ive_go/effects/internal/model"
	"go.uber.org/zap"
)

// LogLevel defines the severity level for log messages.
type LogLevel string

const (
	// LogInfo is used for general informational messages.
	LogInfo LogLevel = "info"

	// LogWarn is used for potentially harmful situations.
	LogWarn LogLevel = "warn"

	// LogError is used for error events that might still allow the application to continue running.
	LogError LogLevel = "error"

	// LogDebug is used for debugging messages with detailed internal information.
	LogDebug LogLevel = "debug"
)

const unpartitioned = "unpartitioned"

// LogPayload is the payload structure for logging effect.
// It contains the log level, message string, and optional structured fields.
// Payloads with the same Key keep their relative order.
type LogPayload struct {
	Key     string
	Level   LogLevel
	Message string
	Fields  map[string]interface{}
}

func (lp LogPayload) PartitionKey() string {
	if lp.Key == "" {
		return unpartitioned
	}
	return lp.Key
}

// WithZapEffectHandler registers a fire-and-forget log effect handler using zap.Logger.
// The returned context includes the handler under the EffectLog enum.
// The teardown function should be called when the effect handler is no longer needed;
// it flushes pending payloads and syncs the logger.
// The context returned by the teardown function should be used for further operations.
func WithZapEffectHandler(
	ctx context.Context,
	config effectmodel.EffectScopeConfig,
	logger *zap.Logger,
) (context.Context, func() context.Context) {
	return effects.WithFireAndForgetEffectHandler(
		ctx,
		config,
		effectmodel.EffectLog,
		func(ctx context.Context, payload LogPayload) {
			fields := make([]zap.Field, 0, len(payload.Fields)+1)
			if payload.Key != "" {
				fields = append(fields, zap.String("key", payload.Key))
			}
			for k, v := range payload.Fields {
				fields = append(fields, zap.Any(k, v))
			}

			switch payload.Level {
			case LogInfo:
				logger.Info(payload.Message, fields...)
			case LogWarn:
				logger.Warn(payload.Message, fields...)
			case LogError:
				logger.Error(payload.Message, fields...)
			case LogDebug:
				logger.Debug(payload.Message, fields...)
			default:
				logger.Info(payload.Message, fields...)
			}
		},
		func() {
			// stdout/stderr sync errors are expected on some platforms; nothing left to tell.
			_ = logger.Sync()
		},
	)
}

// LogEff performs a fire-and-forget log effect using the EffectLog handler in the context.
// Without a handler the message is dropped.
func LogEff(ctx context.Context, level LogLevel, msg string, fields map[string]interface{}) {
	LogEffFor(ctx, "", level, msg, fields)
}

// LogEffFor is LogEff for messages belonging to key, e.g. one release map.
// Messages sharing a key are written in the order they were performed.
func LogEffFor(ctx context.Context, key string, level LogLevel, msg string, fields map[string]interface{}) {
	effects.TryFireAndForgetEffect(ctx, effectmodel.EffectLog, LogPayload{
		Key:     key,
		Level:   level,
		Message: msg,
		Fields:  fields,
	})
}
