package logger

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	serviceName    = "freshcart-api"
	envProduction  = "production"
	samplingPeriod = time.Second
)

// New creates the process logger. Production writes sampled JSON lines,
// every other environment writes colored console output. An empty level
// keeps the environment default: info in production, debug elsewhere.
func New(env, level string) (*zap.Logger, error) {
	return build(env, level, zapcore.Lock(os.Stdout))
}

func build(env, level string, out zapcore.WriteSyncer) (*zap.Logger, error) {
	lvl, err := resolveLevel(env, level)
	if err != nil {
		return nil, err
	}

	core := zapcore.NewCore(encoderFor(env), out, zap.NewAtomicLevelAt(lvl))

	opts := []zap.Option{
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.ErrorOutput(zapcore.Lock(os.Stderr)),
		zap.Fields(zap.String("service", serviceName)),
	}

	if env == envProduction {
		core = zapcore.NewSamplerWithOptions(core, samplingPeriod, 100, 100)
	} else {
		opts = append(opts, zap.Development())
	}

	return zap.New(core, opts...), nil
}

func resolveLevel(env, level string) (zapcore.Level, error) {
	if level == "" {
		if env == envProduction {
			return zapcore.InfoLevel, nil
		}
		return zapcore.DebugLevel, nil
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return lvl, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return lvl, nil
}

func encoderFor(env string) zapcore.Encoder {
	if env == envProduction {
		return zapcore.NewJSONEncoder(zapcore.EncoderConfig{
			TimeKey:        "timestamp",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "message",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.MillisDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		})
	}

	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zapcore.NewConsoleEncoder(cfg)
}
