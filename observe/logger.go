package observe

import (
	"context"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"
)

// Log levels accepted by NewLoggerWithWriter.
var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// redacted lists field keys whose values never reach the output.
var redacted = []string{"authorization", "password", "secret", "token"}

// ParseLogLevel maps a level name to its slog level. Unknown names map to info.
func ParseLogLevel(s string) slog.Level {
	if level, ok := logLevels[s]; ok {
		return level
	}
	return slog.LevelInfo
}

// slogLogger writes one JSON object per line through log/slog.
type slogLogger struct {
	l *slog.Logger
}

// NewLogger returns a JSON logger on stderr.
func NewLogger(level string) Logger {
	return NewLoggerWithWriter(level, os.Stderr)
}

// NewLoggerWithWriter returns a JSON logger writing to w. Each line carries
// timestamp, level, msg and the caller's fields.
func NewLoggerWithWriter(level string, w io.Writer) Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       ParseLogLevel(level),
		ReplaceAttr: replaceAttr,
	})
	return slogLogger{l: slog.New(h)}
}

// NopLogger returns a logger that discards everything.
func NopLogger() Logger {
	return slogLogger{l: slog.New(slog.DiscardHandler)}
}

func replaceAttr(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return a
	}
	switch {
	case a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime:
		return slog.String("timestamp", a.Value.Time().UTC().Format(time.RFC3339Nano))
	case a.Key == slog.LevelKey:
		if level, ok := a.Value.Any().(slog.Level); ok {
			return slog.String(slog.LevelKey, strings.ToLower(level.String()))
		}
	case slices.Contains(redacted, a.Key):
		return slog.String(a.Key, "[REDACTED]")
	}
	return a
}

func (s slogLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	s.l.LogAttrs(ctx, slog.LevelDebug, msg, attrs(fields)...)
}

func (s slogLogger) Info(ctx context.Context, msg string, fields ...Field) {
	s.l.LogAttrs(ctx, slog.LevelInfo, msg, attrs(fields)...)
}

func (s slogLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	s.l.LogAttrs(ctx, slog.LevelWarn, msg, attrs(fields)...)
}

func (s slogLogger) Error(ctx context.Context, msg string, fields ...Field) {
	s.l.LogAttrs(ctx, slog.LevelError, msg, attrs(fields)...)
}

func (s slogLogger) With(fields ...Field) Logger {
	args := make([]any, 0, len(fields))
	for _, a := range attrs(fields) {
		args = append(args, a)
	}
	return slogLogger{l: s.l.With(args...)}
}

func (s slogLogger) WithRoute(meta RouteMeta) Logger {
	fields := []Field{{Key: "http.route", Value: meta.Route}}
	if meta.Method != "" {
		fields = append(fields, Field{Key: "http.request.method", Value: meta.Method})
	}
	return s.With(fields...)
}

func attrs(fields []Field) []slog.Attr {
	out := make([]slog.Attr, len(fields))
	for i, f := range fields {
		out[i] = slog.Any(f.Key, f.Value)
	}
	return out
}
