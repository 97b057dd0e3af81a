// Package log wraps zap with the context of a strata batch.
//
// Logger takes structured fields and serves the fetch path. Sugar gives a
// printf-style variant for CLI housekeeping messages.
package log

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/justapithecus/strata/types"
)

// Logger writes JSON lines tagged with batch_id and archive.
type Logger struct {
	zap   *zap.Logger
	level zap.AtomicLevel
}

// SugaredLogger is the printf-style variant of Logger.
type SugaredLogger struct {
	sugar *zap.SugaredLogger
}

// NewLogger logs to stderr at info level. meta may be nil for commands
// that run outside a batch.
func NewLogger(meta *types.BatchMeta) *Logger {
	return NewLoggerWithWriter(meta, os.Stderr)
}

// NewLoggerWithWriter logs to w.
func NewLoggerWithWriter(meta *types.BatchMeta, w io.Writer) *Logger {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		TimeKey:     "timestamp",
		LevelKey:    "level",
		MessageKey:  "message",
		EncodeTime:  zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	})
	z := zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), level))
	if meta != nil {
		z = z.With(zap.String("batch_id", meta.BatchID))
		if meta.Archive != "" {
			z = z.With(zap.String("archive", meta.Archive))
		}
	}
	return &Logger{zap: z, level: level}
}

// Nop discards everything.
func Nop() *Logger {
	return &Logger{zap: zap.NewNop(), level: zap.NewAtomicLevel()}
}

// SetVerbose toggles debug output. Children made with With share the level.
func (l *Logger) SetVerbose(verbose bool) {
	lvl := zapcore.InfoLevel
	if verbose {
		lvl = zapcore.DebugLevel
	}
	l.level.SetLevel(lvl)
}

// With returns a child carrying extra top-level fields.
func (l *Logger) With(fields map[string]any) *Logger {
	zf := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zf = append(zf, zap.Any(k, v))
	}
	return &Logger{zap: l.zap.With(zf...), level: l.level}
}

// ForDescriptor returns a child tagged with the request's coordinates,
// so every line of one fetch can be grepped by param and year.
func (l *Logger) ForDescriptor(d types.Descriptor) *Logger {
	return &Logger{
		zap: l.zap.With(
			zap.String("param", d.Param),
			zap.String("level_tag", d.Level.String()),
			zap.String("year", d.Year),
			zap.String("step", d.Step),
			zap.String("area", d.Area.String()),
		),
		level: l.level,
	}
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error { return l.zap.Sync() }

// Debug logs message at debug level with fields attached.
func (l *Logger) Debug(message string, fields map[string]any) {
	l.zap.Debug(message, zap.Any("fields", fields))
}

// Info logs message at info level with fields attached.
func (l *Logger) Info(message string, fields map[string]any) {
	l.zap.Info(message, zap.Any("fields", fields))
}

// Warn logs message at warn level with fields attached.
func (l *Logger) Warn(message string, fields map[string]any) {
	l.zap.Warn(message, zap.Any("fields", fields))
}

// Error logs message at error level with fields attached.
func (l *Logger) Error(message string, fields map[string]any) {
	l.zap.Error(message, zap.Any("fields", fields))
}

// Sugar returns the printf-style variant.
func (l *Logger) Sugar() *SugaredLogger {
	return &SugaredLogger{sugar: l.zap.Sugar()}
}

// Debugf logs a formatted message at debug level.
func (s *SugaredLogger) Debugf(template string, args ...any) { s.sugar.Debugf(template, args...) }

// Infof logs a formatted message at info level.
func (s *SugaredLogger) Infof(template string, args ...any) { s.sugar.Infof(template, args...) }

// Warnf logs a formatted message at warn level.
func (s *SugaredLogger) Warnf(template string, args ...any) { s.sugar.Warnf(template, args...) }

// Errorf logs a formatted message at error level.
func (s *SugaredLogger) Errorf(template string, args ...any) { s.sugar.Errorf(template, args...) }

// With returns a child with extra key/value pairs.
func (s *SugaredLogger) With(args ...any) *SugaredLogger {
	return &SugaredLogger{sugar: s.sugar.With(args...)}
}
