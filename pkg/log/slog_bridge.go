package log

import (
	"context"
	"log/slog"
	"runtime"
)

// bridgeHandler is a slog.Handler that routes slog records through a
// BaseLogger's formatter and outputs, so a cursor or log-writer component
// that only knows about a stdlib *slog.Logger (as Pebble's own internal
// logging expects, via RedirectStdLog) still lands in the same structured
// pipeline as calls made directly against a Logger.
type bridgeHandler struct {
	logger *BaseLogger
	attrs  []slog.Attr
	group  string
}

func newBridgeHandler(logger *BaseLogger) *bridgeHandler {
	return &bridgeHandler{logger: logger}
}

// Enabled gates by the BaseLogger level.
func (h *bridgeHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.logger.level <= fromSlogLevel(level)
}

// Handle converts the slog record to an Entry and writes it via the
// logger's formatter and outputs.
func (h *bridgeHandler) Handle(_ context.Context, r slog.Record) error {
	fields := Fields{}
	for i := range h.attrs {
		a := h.attrs[i]
		fields[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		fields[a.Key] = a.Value.Any()
		return true
	})

	caller := ""
	if pc := r.PC; pc != 0 {
		if fn := runtime.FuncForPC(pc); fn != nil {
			file, line := fn.FileLine(pc)
			caller = file + ":" + itoa(line)
		}
	} else if _, file, line, ok := runtime.Caller(5); ok {
		caller = file + ":" + itoa(line)
	}

	entry := &Entry{
		Level:     fromSlogLevel(r.Level),
		Message:   r.Message,
		Fields:    fields,
		Timestamp: r.Time,
		Caller:    caller,
	}

	formatted, err := h.logger.formatter.Format(entry)
	if err != nil {
		return err
	}
	for _, out := range h.logger.outputs {
		_ = out.Write(entry, formatted)
	}
	return nil
}

// WithAttrs returns a copy of the handler with additional base attributes.
func (h *bridgeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	if len(attrs) > 0 {
		nh.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	}
	return &nh
}

// WithGroup returns a copy of the handler; grouping is stored but otherwise
// unused by the pipeline.
func (h *bridgeHandler) WithGroup(name string) slog.Handler {
	nh := *h
	nh.group = name
	return &nh
}

// Helper: map our Level to slog.Level
func toSlogLevel(level Level) slog.Level {
	switch level {
	case DebugLevel:
		return slog.LevelDebug
	case InfoLevel:
		return slog.LevelInfo
	case WarnLevel:
		return slog.LevelWarn
	case ErrorLevel, FatalLevel:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Helper: map slog.Level to our Level
func fromSlogLevel(level slog.Level) Level {
	switch {
	case level <= slog.LevelDebug:
		return DebugLevel
	case level == slog.LevelInfo:
		return InfoLevel
	case level == slog.LevelWarn:
		return WarnLevel
	default:
		return ErrorLevel
	}
}

// Helper: convert map fields to slog attrs
func attrsFromMap(m Fields) []slog.Attr {
	if len(m) == 0 {
		return nil
	}
	attrs := make([]slog.Attr, 0, len(m))
	for k, v := range m {
		attrs = append(attrs, slog.Any(k, v))
	}
	return attrs
}

// Helper: convert Field slice to slog attrs
func attrsFromFieldSlice(fields []Field) []slog.Attr {
	if len(fields) == 0 {
		return nil
	}
	attrs := make([]slog.Attr, 0, len(fields))
	for _, f := range fields {
		attrs = append(attrs, slog.Any(f.Key, f.Value))
	}
	return attrs
}

// itoa is a small fast int to string for non-negative numbers.
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	// Max 20 digits for int64, int is enough
	var buf [20]byte
	bp := len(buf)
	for i > 0 {
		bp--
		buf[bp] = byte('0' + i%10)
		i /= 10
	}
	return string(buf[bp:])
}
