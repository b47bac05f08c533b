package logx

import (
	"context"
	"fmt"
)

// Entry accumulates fields for a single log line. Entries are not meant to be
// shared between goroutines.
type Entry struct {
	logger *Logger
	fields Fields
}

func newEntry(logger *Logger) *Entry {
	return &Entry{logger: logger, fields: make(Fields)}
}

func (e *Entry) WithField(key string, value interface{}) *Entry {
	e.fields[key] = value
	return e
}

func (e *Entry) WithFields(fields Fields) *Entry {
	for k, v := range fields {
		e.fields[k] = v
	}
	return e
}

// WithError records err under the "error" field. A nil err is ignored.
func (e *Entry) WithError(err error) *Entry {
	if err != nil {
		e.fields["error"] = err.Error()
	}
	return e
}

// WithContext copies the request id stored by ContextWithRequestID.
func (e *Entry) WithContext(ctx context.Context) *Entry {
	if id := RequestIDFrom(ctx); id != "" {
		e.fields["request_id"] = id
	}
	return e
}

func (e *Entry) Debug(msg string) { e.logger.log(LevelDebug, msg, e.fields, 1) }
func (e *Entry) Info(msg string)  { e.logger.log(LevelInfo, msg, e.fields, 1) }
func (e *Entry) Warn(msg string)  { e.logger.log(LevelWarn, msg, e.fields, 1) }
func (e *Entry) Error(msg string) { e.logger.log(LevelError, msg, e.fields, 1) }

// Fatal logs and exits with status 1.
func (e *Entry) Fatal(msg string) {
	e.logger.log(LevelFatal, msg, e.fields, 1)
	e.logger.exit(1)
}

func (e *Entry) Debugf(format string, args ...interface{}) {
	e.logger.log(LevelDebug, fmt.Sprintf(format, args...), e.fields, 1)
}

func (e *Entry) Infof(format string, args ...interface{}) {
	e.logger.log(LevelInfo, fmt.Sprintf(format, args...), e.fields, 1)
}

func (e *Entry) Warnf(format string, args ...interface{}) {
	e.logger.log(LevelWarn, fmt.Sprintf(format, args...), e.fields, 1)
}

func (e *Entry) Errorf(format string, args ...interface{}) {
	e.logger.log(LevelError, fmt.Sprintf(format, args...), e.fields, 1)
}

func (e *Entry) Fatalf(format string, args ...interface{}) {
	e.logger.log(LevelFatal, fmt.Sprintf(format, args...), e.fields, 1)
	e.logger.exit(1)
}
