package logx

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Fields is a map of structured data
type Fields map[string]interface{}

type record struct {
	Time    time.Time
	Level   Level
	Message string
	Caller  string
	Fields  Fields
}

type formatter interface {
	format(r record) ([]byte, error)
}

func newFormatter(cfg *Config) formatter {
	if cfg.Format == FormatJSON {
		return jsonFormatter{layout: cfg.TimeLayout}
	}
	return consoleFormatter{layout: cfg.TimeLayout, color: cfg.Color}
}

// jsonFormatter writes one object per line. Fields are flattened into the
// object and never override level, message or timestamp.
type jsonFormatter struct {
	layout string
}

func (f jsonFormatter) format(r record) ([]byte, error) {
	out := make(map[string]interface{}, len(r.Fields)+4)
	for k, v := range r.Fields {
		out[k] = v
	}
	out["level"] = r.Level.String()
	out["message"] = r.Message
	out["timestamp"] = r.Time.Format(f.layout)
	if r.Caller != "" {
		out["caller"] = r.Caller
	}

	b, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

const (
	ansiReset  = "\033[0m"
	ansiGray   = "\033[90m"
	ansiCyan   = "\033[36m"
	ansiRed    = "\033[1;31m"
	ansiYellow = "\033[1;33m"
	ansiGreen  = "\033[1;32m"
)

var levelColors = map[Level]string{
	LevelDebug: ansiCyan,
	LevelInfo:  ansiGreen,
	LevelWarn:  ansiYellow,
	LevelError: ansiRed,
	LevelFatal: ansiRed,
}

// consoleFormatter writes "time [LEVEL] message k=v ..." with keys sorted.
type consoleFormatter struct {
	layout string
	color  bool
}

func (f consoleFormatter) paint(color, s string) string {
	if !f.color || color == "" {
		return s
	}
	return color + s + ansiReset
}

func (f consoleFormatter) format(r record) ([]byte, error) {
	var b strings.Builder

	b.WriteString(f.paint(ansiGray, r.Time.Format(f.layout)))
	b.WriteString(" ")
	b.WriteString(f.paint(levelColors[r.Level], fmt.Sprintf("[%-5s]", r.Level.String())))
	b.WriteString(" ")
	if r.Caller != "" {
		b.WriteString(f.paint(ansiGray, "["+r.Caller+"] "))
	}
	b.WriteString(r.Message)

	keys := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		if k != "error" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(" ")
		b.WriteString(f.paint(ansiCyan, fmt.Sprintf("%s=%v", k, r.Fields[k])))
	}

	if errText, ok := r.Fields["error"]; ok {
		b.WriteString("\n")
		b.WriteString(f.paint(ansiRed, fmt.Sprintf("  ╰─→ error: %v", errText)))
	}
	b.WriteString("\n")
	return []byte(b.String()), nil
}
