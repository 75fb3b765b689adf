package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options describes the process logger.
type Options struct {
	Level       string
	Service     string
	Environment string
	// Console writes human readable lines instead of JSON.
	Console bool
}

func (o Options) level() (zapcore.Level, error) {
	if o.Level == "" {
		return zapcore.InfoLevel, nil
	}
	lvl, err := zapcore.ParseLevel(o.Level)
	if err != nil {
		return lvl, fmt.Errorf("invalid log level %q: %w", o.Level, err)
	}
	return lvl, nil
}

func (o Options) fields() []zap.Field {
	var fields []zap.Field
	if o.Service != "" {
		fields = append(fields, zap.String("service", o.Service))
	}
	if o.Environment != "" {
		fields = append(fields, zap.String("env", o.Environment))
	}
	return fields
}

// New builds the rms logger and installs it as the zap global. Extra options
// are applied to the built logger before the service fields are attached.
func New(opts Options, extra ...zap.Option) (*zap.Logger, error) {
	lvl, err := opts.level()
	if err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	if opts.Console {
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.Sampling = nil
	}

	log, err := cfg.Build(extra...)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	log = log.With(opts.fields()...)

	zap.ReplaceGlobals(log)
	return log, nil
}
