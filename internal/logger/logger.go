// Package logger provides the engine's structured logging surface. It wraps
// log/slog with the severity vocabulary used throughout the engine (TRACE,
// DEBUG, INFO, WARNING, ERROR) and with the two wire formats operators
// expect from a translator process: human-readable text for a terminal and
// JSON for a log-collection pipeline.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/stripefs/stripefs/internal/config"
)

// Severity levels outside slog's built-in range so TRACE and OFF compose
// with slog's level-filtering instead of bypassing it. The built-in levels
// are re-exported under the same names so callers never import log/slog
// just to reference a level constant.
const (
	LevelTrace = slog.Level(-8)
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
	LevelOff   = slog.Level(16)
)

var severityToSlogLevel = map[string]slog.Level{
	config.TRACE:   LevelTrace,
	config.DEBUG:   LevelDebug,
	config.INFO:    LevelInfo,
	config.WARNING: LevelWarn,
	config.ERROR:   LevelError,
	config.OFF:     LevelOff,
}

func levelString(l slog.Level) string {
	switch {
	case l < slog.LevelDebug:
		return "TRACE"
	case l < slog.LevelInfo:
		return "DEBUG"
	case l < slog.LevelWarn:
		return "INFO"
	case l < slog.LevelError:
		return "WARNING"
	default:
		return "ERROR"
	}
}

func severityReplaceAttr(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.LevelKey {
		level, _ := a.Value.Any().(slog.Level)
		a.Key = "severity"
		a.Value = slog.StringValue(levelString(level))
	}
	return a
}

type loggerFactory struct {
	format string
}

var defaultLoggerFactory = &loggerFactory{format: "text"}

var defaultLogger = slog.New(defaultLoggerFactory.createJsonOrTextHandler(os.Stderr, new(slog.LevelVar), ""))

// createJsonOrTextHandler builds the handler backing the package-level
// logger. prefix is prepended to every log message; Init passes none, the
// tests pass a fixed tag.
func (f *loggerFactory) createJsonOrTextHandler(w io.Writer, level *slog.LevelVar, prefix string) slog.Handler {
	isJSON := f.format == "json"
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				t := a.Value.Time()
				if isJSON {
					return slog.Group("timestamp", slog.Int64("seconds", t.Unix()), slog.Int("nanos", t.Nanosecond()))
				}
				a.Value = slog.StringValue(t.Format("02/01/2006 15:04:05.000000"))
			}
			if len(groups) == 0 && a.Key == slog.MessageKey {
				a.Key = "message"
			}
			return severityReplaceAttr(groups, a)
		},
	}

	var base slog.Handler
	if isJSON {
		base = slog.NewJSONHandler(w, opts)
	} else {
		base = slog.NewTextHandler(w, opts)
	}
	if prefix == "" {
		return base
	}
	return &prefixHandler{Handler: base, prefix: prefix}
}

// prefixHandler prepends a fixed string to every record's message.
type prefixHandler struct {
	slog.Handler
	prefix string
}

func (h *prefixHandler) Handle(ctx context.Context, r slog.Record) error {
	r.Message = h.prefix + r.Message
	return h.Handler.Handle(ctx, r)
}

func (h *prefixHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &prefixHandler{Handler: h.Handler.WithAttrs(attrs), prefix: h.prefix}
}

func (h *prefixHandler) WithGroup(name string) slog.Handler {
	return &prefixHandler{Handler: h.Handler.WithGroup(name), prefix: h.prefix}
}

// jsonTimestampHandler appends a nested {"timestamp":{"seconds":N,"nanos":N}}
// group after the wrapped handler's own fields, which still include slog's
// flat time field. createJsonOrTextHandler does not use it: its ReplaceAttr
// emits the nested timestamp in place of the time field.
type jsonTimestampHandler struct {
	slog.Handler
}

func (h *jsonTimestampHandler) Handle(ctx context.Context, r slog.Record) error {
	ts := r.Time
	r2 := slog.NewRecord(ts, r.Level, r.Message, r.PC)
	r2.AddAttrs(slog.Group("timestamp",
		slog.Int64("seconds", ts.Unix()),
		slog.Int("nanos", ts.Nanosecond()),
	))
	r.Attrs(func(a slog.Attr) bool {
		r2.AddAttrs(a)
		return true
	})
	return h.Handler.Handle(ctx, r2)
}

func (h *jsonTimestampHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &jsonTimestampHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *jsonTimestampHandler) WithGroup(name string) slog.Handler {
	return &jsonTimestampHandler{Handler: h.Handler.WithGroup(name)}
}

func setLoggingLevel(severity string, programLevel *slog.LevelVar) {
	level, ok := severityToSlogLevel[severity]
	if !ok {
		level = slog.LevelInfo
	}
	programLevel.Set(level)
}

// Init configures the package-level logger according to cfg. It must be
// called once during startup (from cmd/) before any fanout or self-heal
// code runs; before that, logs go to stderr in text format at INFO.
func Init(cfg config.LoggingConfig) {
	programLevel := new(slog.LevelVar)
	defaultLoggerFactory.format = cfg.Format

	w := io.Writer(os.Stderr)
	if cfg.FilePath != "" {
		f, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err == nil {
			w = f
		}
	}

	defaultLogger = slog.New(defaultLoggerFactory.createJsonOrTextHandler(w, programLevel, ""))
	setLoggingLevel(cfg.Severity, programLevel)
}

func Tracef(format string, v ...any) {
	defaultLogger.Log(context.Background(), LevelTrace, fmt.Sprintf(format, v...))
}

func Debugf(format string, v ...any) {
	defaultLogger.Debug(fmt.Sprintf(format, v...))
}

func Infof(format string, v ...any) {
	defaultLogger.Info(fmt.Sprintf(format, v...))
}

func Warnf(format string, v ...any) {
	defaultLogger.Warn(fmt.Sprintf(format, v...))
}

func Errorf(format string, v ...any) {
	defaultLogger.Error(fmt.Sprintf(format, v...))
}
