// Package log provides structured logging with export run context.
//
// Two logger variants are available:
//   - Logger: Non-sugared zap.Logger for the export runtime (structured fields)
//   - SugaredLogger: Printf-style logging for CLI/debug surfaces (convenience over performance)
//
// Use Logger.Sugar() to obtain a SugaredLogger when needed.
// A nil *Logger discards everything, so library code may log unconditionally.
package log

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pithecene-io/inquire/types"
)

// Logger provides structured logging with run context.
// All log entries include run identity fields.
type Logger struct {
	zap *zap.Logger
	// fields are the context fields, kept so WithOutput can rebuild the core.
	fields []zap.Field
}

// SugaredLogger provides printf-style logging for CLI and debug surfaces.
type SugaredLogger struct {
	sugar *zap.SugaredLogger
}

// NewLogger creates a new logger with run context.
// Output defaults to os.Stderr.
func NewLogger(runMeta *types.RunMeta) *Logger {
	return NewLoggerWithWriter(runMeta, os.Stderr)
}

// NewLoggerWithWriter creates a logger writing to the specified writer.
func NewLoggerWithWriter(runMeta *types.RunMeta, w io.Writer) *Logger {
	var fields []zap.Field
	if runMeta != nil {
		fields = contextFields(runMeta)
	}
	return &Logger{zap: zap.New(newCore(w)).With(fields...), fields: fields}
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{zap: zap.NewNop()}
}

func newCore(w io.Writer) zapcore.Core {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:     "timestamp",
		LevelKey:    "level",
		MessageKey:  "message",
		EncodeTime:  zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	}
	return zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(w),
		zapcore.DebugLevel,
	)
}

func contextFields(runMeta *types.RunMeta) []zap.Field {
	fields := []zap.Field{
		zap.String("run_id", runMeta.RunID),
		zap.Int("attempt", runMeta.Attempt),
	}
	if runMeta.LDS != "" {
		fields = append(fields, zap.String("lds", runMeta.LDS))
	}
	if runMeta.APIVersion != 0 {
		fields = append(fields, zap.Int("api_version", runMeta.APIVersion))
	}
	if runMeta.ParentRunID != nil {
		fields = append(fields, zap.String("parent_run_id", *runMeta.ParentRunID))
	}
	return fields
}

// WithOutput returns a new logger with a different output writer.
func (l *Logger) WithOutput(w io.Writer) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{zap: zap.New(newCore(w)).With(l.fields...), fields: l.fields}
}

// With returns a logger that adds fields as top-level keys to every entry.
// Used to scope a logger to one query or execution.
func (l *Logger) With(fields map[string]any) *Logger {
	if l == nil {
		return nil
	}
	zf := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zf = append(zf, zap.Any(k, v))
	}
	all := append(append([]zap.Field(nil), l.fields...), zf...)
	return &Logger{zap: l.zap.With(zf...), fields: all}
}

// Debug logs a debug message.
func (l *Logger) Debug(message string, fields map[string]any) {
	if l == nil {
		return
	}
	l.zap.Debug(message, zap.Any("fields", fields))
}

// Info logs an info message.
func (l *Logger) Info(message string, fields map[string]any) {
	if l == nil {
		return
	}
	l.zap.Info(message, zap.Any("fields", fields))
}

// Warn logs a warning message.
func (l *Logger) Warn(message string, fields map[string]any) {
	if l == nil {
		return
	}
	l.zap.Warn(message, zap.Any("fields", fields))
}

// Error logs an error message.
func (l *Logger) Error(message string, fields map[string]any) {
	if l == nil {
		return
	}
	l.zap.Error(message, zap.Any("fields", fields))
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	if l == nil {
		return nil
	}
	return l.zap.Sync()
}

// Sugar returns a SugaredLogger for printf-style logging.
func (l *Logger) Sugar() *SugaredLogger {
	if l == nil {
		return &SugaredLogger{sugar: zap.NewNop().Sugar()}
	}
	return &SugaredLogger{sugar: l.zap.Sugar()}
}

// Debugf logs a debug message with printf-style formatting.
func (s *SugaredLogger) Debugf(template string, args ...any) {
	s.sugar.Debugf(template, args...)
}

// Infof logs an info message with printf-style formatting.
func (s *SugaredLogger) Infof(template string, args ...any) {
	s.sugar.Infof(template, args...)
}

// Warnf logs a warning message with printf-style formatting.
func (s *SugaredLogger) Warnf(template string, args ...any) {
	s.sugar.Warnf(template, args...)
}

// Errorf logs an error message with printf-style formatting.
func (s *SugaredLogger) Errorf(template string, args ...any) {
	s.sugar.Errorf(template, args...)
}

// With returns a SugaredLogger with additional context fields.
func (s *SugaredLogger) With(args ...any) *SugaredLogger {
	return &SugaredLogger{sugar: s.sugar.With(args...)}
}
