package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the level and encoding of the process logger.
type Config struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json or console
	Output string `mapstructure:"output"` // stdout (default) or stderr
}

// New builds a zap logger writing to stdout or stderr. The returned level can be
// changed at runtime.
func New(cfg Config) (*zap.Logger, zap.AtomicLevel, error) {
	level, err := zap.ParseAtomicLevel(orDefault(cfg.Level, "info"))
	if err != nil {
		return nil, zap.AtomicLevel{}, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	var encoder zapcore.Encoder
	switch cfg.Format {
	case "console":
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(ec)
	case "", "json":
		ec := zap.NewProductionEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(ec)
	default:
		return nil, zap.AtomicLevel{}, fmt.Errorf("invalid log format %q", cfg.Format)
	}

	var sink zapcore.WriteSyncer
	switch cfg.Output {
	case "", "stdout":
		sink = zapcore.Lock(os.Stdout)
	case "stderr":
		sink = zapcore.Lock(os.Stderr)
	default:
		return nil, zap.AtomicLevel{}, fmt.Errorf("invalid log output %q", cfg.Output)
	}

	core := zapcore.NewCore(encoder, sink, level)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), level, nil
}

// SetLevel applies a textual level to an existing atomic level.
func SetLevel(level zap.AtomicLevel, text string) error {
	return level.UnmarshalText([]byte(orDefault(text, "info")))
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
