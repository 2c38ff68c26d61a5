// Package logger wraps go.uber.org/zap behind a small Logger interface
// configured with functional options, the same shape the teacher's
// cmd/logger.go builds on top of its own logging package.
package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the subset of zap's sugared logger the engine actually
// calls, kept narrow so callers don't reach for zap-specific types.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
	Sync() error
}

type zapLogger struct {
	sugar *zap.SugaredLogger
}

func (l *zapLogger) Debug(msg string, kv ...any) { l.sugar.Debugw(msg, kv...) }
func (l *zapLogger) Info(msg string, kv ...any)  { l.sugar.Infow(msg, kv...) }
func (l *zapLogger) Warn(msg string, kv ...any)  { l.sugar.Warnw(msg, kv...) }
func (l *zapLogger) Error(msg string, kv ...any) { l.sugar.Errorw(msg, kv...) }
func (l *zapLogger) Sync() error                 { return l.sugar.Sync() }

type config struct {
	debug   bool
	format  string
	quiet   bool
	logFile *os.File
}

// Option configures a Logger built by New.
type Option func(*config)

// WithDebug lowers the minimum level to debug.
func WithDebug() Option {
	return func(c *config) { c.debug = true }
}

// WithFormat selects the zapcore encoding: "json" or "console". Any
// other value (including "") keeps the default console encoding.
func WithFormat(format string) Option {
	return func(c *config) { c.format = format }
}

// WithQuiet suppresses all output below Error.
func WithQuiet() Option {
	return func(c *config) { c.quiet = true }
}

// WithLogFile tees output to f in addition to stderr.
func WithLogFile(f *os.File) Option {
	return func(c *config) { c.logFile = f }
}

// New builds a Logger from the given options.
func New(opts ...Option) Logger {
	var c config
	for _, opt := range opts {
		opt(&c)
	}

	level := zapcore.InfoLevel
	switch {
	case c.quiet:
		level = zapcore.ErrorLevel
	case c.debug:
		level = zapcore.DebugLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var encoder zapcore.Encoder
	if c.format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	}

	// stderr is usually a pipe or terminal, where fsync fails; hiding its
	// Sync leaves Logger.Sync to report errors from a log file only.
	sinks := []zapcore.WriteSyncer{zapcore.AddSync(struct{ io.Writer }{os.Stderr})}
	if c.logFile != nil {
		sinks = append(sinks, zapcore.AddSync(c.logFile))
	}
	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(sinks...), level)

	return &zapLogger{sugar: zap.New(core).Sugar()}
}
