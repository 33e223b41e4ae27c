// Package logging is the structured logger every component receives.
// Field is zap's own field type, so callers never import zap directly.
package logging

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

type Field = zap.Field

func String(key, val string) Field                 { return zap.String(key, val) }
func Int(key string, val int) Field                { return zap.Int(key, val) }
func Int64(key string, val int64) Field            { return zap.Int64(key, val) }
func Float64(key string, val float64) Field        { return zap.Float64(key, val) }
func Bool(key string, val bool) Field              { return zap.Bool(key, val) }
func Duration(key string, val time.Duration) Field { return zap.Duration(key, val) }
func Strings(key string, val []string) Field       { return zap.Strings(key, val) }
func Any(key string, val interface{}) Field        { return zap.Any(key, val) }

// Err logs err's message under "error"; nil is skipped.
func Err(err error) Field {
	if err == nil {
		return zap.Skip()
	}
	return zap.String("error", err.Error())
}

type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
	// Named appends a dotted segment to the logger name.
	Named(name string) Logger
	Sync() error
}

// LogConfig is the log section of the service configuration.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level" json:"level" validate:"omitempty,oneof=debug info warn error DEBUG INFO WARN ERROR"`
	// Format is json (default) or console.
	Format           string     `mapstructure:"format" yaml:"format" json:"format" validate:"omitempty,oneof=json console"`
	OutputPaths      []string   `mapstructure:"output_paths" yaml:"output_paths" json:"output_paths"`
	ErrorOutputPaths []string   `mapstructure:"error_output_paths" yaml:"error_output_paths" json:"error_output_paths"`
	File             FileConfig `mapstructure:"file" yaml:"file" json:"file"`
}

// FileConfig adds a size-rotated JSON sink when Path is set. Zero limits
// mean 10 MB, 5 backups and 30 days.
type FileConfig struct {
	Path       string `mapstructure:"path" yaml:"path" json:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb" json:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups" json:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days" json:"max_age_days" validate:"gte=0"`
	Compress   bool   `mapstructure:"compress" yaml:"compress" json:"compress"`
}

func (fc FileConfig) writer() zapcore.WriteSyncer {
	orDefault := func(v, d int) int {
		if v == 0 {
			return d
		}
		return v
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   fc.Path,
		MaxSize:    orDefault(fc.MaxSizeMB, 10),
		MaxBackups: orDefault(fc.MaxBackups, 5),
		MaxAge:     orDefault(fc.MaxAgeDays, 30),
		Compress:   fc.Compress,
	})
}

type zapLogger struct{ z *zap.Logger }

func (l *zapLogger) Debug(msg string, fields ...Field) { l.z.Debug(msg, fields...) }
func (l *zapLogger) Info(msg string, fields ...Field)  { l.z.Info(msg, fields...) }
func (l *zapLogger) Warn(msg string, fields ...Field)  { l.z.Warn(msg, fields...) }
func (l *zapLogger) Error(msg string, fields ...Field) { l.z.Error(msg, fields...) }
func (l *zapLogger) With(fields ...Field) Logger       { return &zapLogger{l.z.With(fields...)} }
func (l *zapLogger) Named(name string) Logger          { return &zapLogger{l.z.Named(name)} }
func (l *zapLogger) Sync() error                       { return l.z.Sync() }

// parseLevel falls back to info for anything zap does not know.
func parseLevel(s string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(s)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

func encoderConfig(console bool) zapcore.EncoderConfig {
	enc := zap.NewProductionEncoderConfig()
	if console {
		enc = zap.NewDevelopmentEncoderConfig()
	}
	enc.TimeKey = "ts"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	return enc
}

// NewLogger builds the logger described by cfg. Nil OutputPaths means
// stdout; an explicitly empty list is an error.
func NewLogger(cfg LogConfig) (Logger, error) {
	if cfg.OutputPaths == nil {
		cfg.OutputPaths = []string{"stdout"}
	}
	if len(cfg.OutputPaths) == 0 {
		return nil, fmt.Errorf("logging: no output paths")
	}
	if len(cfg.ErrorOutputPaths) == 0 {
		cfg.ErrorOutputPaths = []string{"stderr"}
	}
	console := cfg.Format == "console"
	level := parseLevel(cfg.Level)

	zc := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      console,
		Encoding:         "json",
		EncoderConfig:    encoderConfig(console),
		OutputPaths:      cfg.OutputPaths,
		ErrorOutputPaths: cfg.ErrorOutputPaths,
	}
	if console {
		zc.Encoding = "console"
	}

	opts := []zap.Option{zap.AddCallerSkip(1)}
	if cfg.File.Path != "" {
		file := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig(false)), cfg.File.writer(), level)
		opts = append(opts, zap.WrapCore(func(c zapcore.Core) zapcore.Core { return zapcore.NewTee(c, file) }))
	}

	z, err := zc.Build(opts...)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	return &zapLogger{z}, nil
}

func NewLoggerFromCore(core zapcore.Core) Logger {
	return &zapLogger{zap.New(core, zap.AddCallerSkip(1))}
}

// NewCLILogger logs to stderr in console format, leaving stdout to the
// command output.
func NewCLILogger(level string) Logger {
	l, err := NewLogger(LogConfig{Level: level, Format: "console", OutputPaths: []string{"stderr"}})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		return NewNopLogger()
	}
	return l
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...Field) {}
func (nopLogger) Info(string, ...Field)  {}
func (nopLogger) Warn(string, ...Field)  {}
func (nopLogger) Error(string, ...Field) {}
func (n nopLogger) With(...Field) Logger { return n }
func (n nopLogger) Named(string) Logger  { return n }
func (nopLogger) Sync() error            { return nil }

func NewNopLogger() Logger { return nopLogger{} }

const slowOperationThreshold = 2 * time.Second

// LogOperationDuration logs op with its elapsed time in milliseconds, at
// Warn past two seconds.
func LogOperationDuration(l Logger, op string, start time.Time, fields ...Field) {
	elapsed := time.Since(start)
	fields = append(fields, String("operation", op), Int64("duration_ms", elapsed.Milliseconds()))
	if elapsed > slowOperationThreshold {
		l.Warn("slow operation", fields...)
		return
	}
	l.Info("operation completed", fields...)
}

//Personal.AI order the ending
