package logx

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

// Logger writes leveled, structured entries. It is safe for concurrent use.
type Logger struct {
	mu        sync.Mutex
	level     Level
	caller    bool
	redact    map[string]struct{}
	formatter formatter
	writer    io.Writer
	exitFunc  func(int)
}

// NewLogger creates a new logger with the given config
func NewLogger(cfg *Config) *Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.TimeLayout == "" {
		cfg.TimeLayout = time.RFC3339
	}

	redact := make(map[string]struct{}, len(cfg.Redact))
	for _, key := range cfg.Redact {
		redact[strings.ToLower(key)] = struct{}{}
	}

	writer := cfg.Output
	if writer == nil {
		writer = os.Stdout
	}

	return &Logger{
		level:     cfg.Level,
		caller:    cfg.Caller,
		redact:    redact,
		formatter: newFormatter(cfg),
		writer:    writer,
		exitFunc:  os.Exit,
	}
}

func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *Logger) GetLevel() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writer = w
}

func (l *Logger) WithField(key string, value interface{}) *Entry {
	return newEntry(l).WithField(key, value)
}

func (l *Logger) WithFields(fields Fields) *Entry {
	return newEntry(l).WithFields(fields)
}

func (l *Logger) WithError(err error) *Entry {
	return newEntry(l).WithError(err)
}

// log formats and writes one entry. skip is the number of frames between the
// caller of the public API and this function.
func (l *Logger) log(level Level, msg string, fields Fields, skip int) {
	if !l.GetLevel().Enabled(level) {
		return
	}

	r := record{
		Time:    time.Now(),
		Level:   level,
		Message: msg,
		Fields:  l.redacted(fields),
	}
	if l.caller {
		r.Caller = callerAt(skip + 1)
	}

	out, err := l.formatter.format(r)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logx: format: %v\n", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.writer.Write(out); err != nil {
		fmt.Fprintf(os.Stderr, "logx: write: %v\n", err)
	}
}

func (l *Logger) redacted(fields Fields) Fields {
	if len(fields) == 0 {
		return nil
	}
	out := make(Fields, len(fields))
	for k, v := range fields {
		if _, masked := l.redact[strings.ToLower(k)]; masked {
			v = RedactedValue
		}
		out[k] = v
	}
	return out
}

func (l *Logger) exit(code int) {
	l.exitFunc(code)
}

func callerAt(skip int) string {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return "???"
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}
