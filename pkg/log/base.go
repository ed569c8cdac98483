package log

import (
	"context"
	"fmt"
	"os"
)

// Field is a single structured key/value pair for the Field-based logging
// API (Debug/Info/Warn/Error/Fatal).
type Field struct {
	Key   string
	Value interface{}
}

func (l *BaseLogger) clone() *BaseLogger {
	nl := *l
	nl.fields = make(Fields, len(l.fields))
	for k, v := range l.fields {
		nl.fields[k] = v
	}
	return &nl
}

func (l *BaseLogger) log(level Level, msg string, fields ...Field) {
	if level < l.level {
		return
	}
	attrs := attrsFromMap(l.fields)
	attrs = append(attrs, attrsFromFieldSlice(fields)...)
	l.slogLogger.LogAttrs(context.Background(), toSlogLevel(level), msg, attrs...)
}

func (l *BaseLogger) Debug(msg string, fields ...Field) { l.log(DebugLevel, msg, fields...) }
func (l *BaseLogger) Info(msg string, fields ...Field)  { l.log(InfoLevel, msg, fields...) }
func (l *BaseLogger) Warn(msg string, fields ...Field)  { l.log(WarnLevel, msg, fields...) }
func (l *BaseLogger) Error(msg string, fields ...Field) { l.log(ErrorLevel, msg, fields...) }

func (l *BaseLogger) Fatal(msg string, fields ...Field) {
	l.log(FatalLevel, msg, fields...)
	os.Exit(1)
}

func (l *BaseLogger) Debugf(msg string, args ...interface{}) { l.Debug(fmt.Sprintf(msg, args...)) }
func (l *BaseLogger) Infof(msg string, args ...interface{})  { l.Info(fmt.Sprintf(msg, args...)) }
func (l *BaseLogger) Warnf(msg string, args ...interface{})  { l.Warn(fmt.Sprintf(msg, args...)) }
func (l *BaseLogger) Errorf(msg string, args ...interface{}) { l.Error(fmt.Sprintf(msg, args...)) }
func (l *BaseLogger) Fatalf(msg string, args ...interface{}) { l.Fatal(fmt.Sprintf(msg, args...)) }

func (l *BaseLogger) WithField(key string, value interface{}) Logger {
	nl := l.clone()
	nl.fields[key] = value
	return nl
}

func (l *BaseLogger) WithFields(fields Fields) Logger {
	nl := l.clone()
	for k, v := range fields {
		nl.fields[k] = v
	}
	return nl
}

func (l *BaseLogger) WithError(err error) Logger {
	return l.WithField("error", err)
}

func (l *BaseLogger) With(fields ...Field) Logger {
	nl := l.clone()
	for _, f := range fields {
		nl.fields[f.Key] = f.Value
	}
	return nl
}

func (l *BaseLogger) WithContext(ctx context.Context) Logger {
	return l.WithFields(ContextExtractor(ctx))
}

func (l *BaseLogger) WithComponent(component string) Logger {
	return l.WithField(ComponentKey, component)
}

func (l *BaseLogger) SetLevel(level Level) { l.level = level }
func (l *BaseLogger) GetLevel() Level      { return l.level }
