// Package logger builds the structured logger used by the dynsql tool.
package logger

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a zap.SugaredLogger and keeps the underlying zap.Logger for
// the packages that take one.
type Logger struct {
	*zap.SugaredLogger
	base *zap.Logger
}

// ParseLevel returns the zap level named by level.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info", "":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	}
	return 0, errors.Newf("unknown log level %q", level)
}

// New returns a logger writing at level and above. format is "console" or
// "json". output is "stderr", "stdout" or the path of a file to append to.
func New(level, format, output string) (*Logger, error) {
	zapLevel, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	var encoder zapcore.Encoder
	switch strings.ToLower(format) {
	case "json":
		cfg := zap.NewProductionEncoderConfig()
		cfg.TimeKey = "timestamp"
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(cfg)
	case "console", "text", "":
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		encoder = zapcore.NewConsoleEncoder(cfg)
	default:
		return nil, errors.Newf("unknown log format %q", format)
	}

	var ws zapcore.WriteSyncer
	switch strings.ToLower(output) {
	case "stderr", "":
		ws = zapcore.Lock(os.Stderr)
	case "stdout":
		ws = zapcore.Lock(os.Stdout)
	default:
		f, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot open log file %s", output)
		}
		ws = zapcore.AddSync(f)
	}

	base := zap.New(zapcore.NewCore(encoder, ws, zapLevel), zap.AddCaller())
	return &Logger{SugaredLogger: base.Sugar(), base: base}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	base := zap.NewNop()
	return &Logger{SugaredLogger: base.Sugar(), base: base}
}

// Zap returns the underlying zap.Logger.
func (l *Logger) Zap() *zap.Logger {
	return l.base
}

// Sync flushes any buffered entries.
func (l *Logger) Sync() error {
	return l.base.Sync()
}

// With returns a logger that adds the key value pairs to every entry.
func (l *Logger) With(keysAndValues ...any) *Logger {
	s := l.SugaredLogger.With(keysAndValues...)
	return &Logger{SugaredLogger: s, base: s.Desugar()}
}

// Named returns a logger with name appended to its name.
func (l *Logger) Named(name string) *Logger {
	base := l.base.Named(name)
	return &Logger{SugaredLogger: base.Sugar(), base: base}
}
