package logger

import (
	"context"
	"os"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/harvest-finance/harvest/internal/config"
)

// Module exposes the configured Zap logger to the Fx container.
var Module = fx.Provide(New)

// New builds the process logger. JSON output by default, a colored console
// encoder when LOG_ENCODING=console. Sync happens on shutdown via the Fx
// lifecycle.
func New(lc fx.Lifecycle, cfg config.Config) (*zap.Logger, error) {
	obs := cfg.Observability

	encoderCfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout(time.RFC3339Nano),
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	if obs.LogEncoding == "console" {
		encoderCfg.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339)
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), parseLevel(obs.LogLevel))
	log := zap.New(core, zap.AddCaller(), zap.ErrorOutput(zapcore.Lock(os.Stderr))).With(
		zap.String("service", obs.ServiceName),
		zap.String("environment", obs.Environment),
	)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			// Sync on stdout returns EINVAL on some platforms; not fatal.
			_ = log.Sync()
			return nil
		},
	})

	return log, nil
}

func parseLevel(raw string) zapcore.Level {
	var level zapcore.Level
	if err := level.Set(strings.ToLower(raw)); err != nil {
		return zapcore.InfoLevel
	}
	return level
}
