package log

import (
	"encoding/json"
	stdlog "log"
	"os"
	"strings"
	"time"
)

// JSONFormatter renders a log Entry as a single line of JSON.
type JSONFormatter struct{}

func (f *JSONFormatter) Format(entry *Entry) ([]byte, error) {
	m := make(map[string]interface{}, len(entry.Fields)+4)
	for k, v := range entry.Fields {
		m[k] = v
	}
	m["level"] = entry.Level.String()
	m["msg"] = entry.Message
	m["ts"] = entry.Timestamp.Format(time.RFC3339Nano)
	if entry.Caller != "" {
		m["caller"] = entry.Caller
	}
	if entry.Error != nil {
		m["error"] = entry.Error.Error()
	}
	out, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

// TextFormatter renders a log Entry as a single human-readable line, used by
// CLI tools where JSON output would just get in the way.
type TextFormatter struct{}

func (f *TextFormatter) Format(entry *Entry) ([]byte, error) {
	var b strings.Builder
	b.WriteString(entry.Timestamp.Format("15:04:05.000"))
	b.WriteByte(' ')
	b.WriteString(entry.Level.String())
	b.WriteByte(' ')
	b.WriteString(entry.Message)
	for k, v := range entry.Fields {
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(toString(v))
	}
	if entry.Error != nil {
		b.WriteString(" error=")
		b.WriteString(entry.Error.Error())
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case error:
		return t.Error()
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "?"
		}
		return string(b)
	}
}

// ConsoleOutput writes formatted entries to stdout, or stderr for
// warnings/errors, without further buffering.
type ConsoleOutput struct{}

func NewConsoleOutput() *ConsoleOutput { return &ConsoleOutput{} }

func (o *ConsoleOutput) Write(entry *Entry, formatted []byte) error {
	w := os.Stdout
	if entry.Level >= WarnLevel {
		w = os.Stderr
	}
	_, err := w.Write(formatted)
	return err
}

func (o *ConsoleOutput) Close() error { return nil }

// ParseLevel parses a case-insensitive level name, defaulting to InfoLevel
// for an empty string.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return InfoLevel, nil
	case "debug":
		return DebugLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	default:
		return InfoLevel, &levelParseError{s}
	}
}

type levelParseError struct{ value string }

func (e *levelParseError) Error() string { return "log: unknown level " + e.value }

// RedirectStdLog routes anything written through the standard library's log
// package (used internally by pebble) into logger, at info level.
func RedirectStdLog(logger Logger) {
	stdlog.SetFlags(0)
	stdlog.SetOutput(stdLogWriter{logger: logger})
}

type stdLogWriter struct{ logger Logger }

func (w stdLogWriter) Write(p []byte) (int, error) {
	w.logger.Info(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
