package logx

import (
	"io"
	"os"
	"strings"
	"time"
)

// Format selects the output encoding.
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

// RedactedValue replaces the value of every redacted field.
const RedactedValue = "[REDACTED]"

// DefaultRedactedFields are masked by every logger built from DefaultConfig.
var DefaultRedactedFields = []string{
	"code",
	"otp",
	"token",
	"session_token",
	"access_token",
	"authorization",
	"cookie",
}

// Config holds the logger configuration
type Config struct {
	Level  Level
	Format Format
	// Color enables ANSI colors in console output
	Color bool
	// Caller adds file:line to every entry
	Caller     bool
	TimeLayout string
	Output     io.Writer
	// Redact lists field keys (case-insensitive) whose values are never written.
	Redact []string
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Level:      LevelInfo,
		Format:     FormatConsole,
		Color:      true,
		TimeLayout: time.RFC3339,
		Output:     os.Stdout,
		Redact:     append([]string(nil), DefaultRedactedFields...),
	}
}

// LoadFromEnv reads LOG_LEVEL, LOG_FORMAT, LOG_COLOR, LOG_CALLER and
// LOG_REDACT (extra comma-separated keys) on top of DefaultConfig.
func LoadFromEnv() *Config {
	cfg := DefaultConfig()

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Level = ParseLevel(v)
	}
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		cfg.Format = FormatJSON
	}
	if v := os.Getenv("LOG_COLOR"); v != "" {
		cfg.Color = envTrue(v)
	}
	if v := os.Getenv("LOG_CALLER"); v != "" {
		cfg.Caller = envTrue(v)
	}
	for _, key := range strings.Split(os.Getenv("LOG_REDACT"), ",") {
		if key = strings.TrimSpace(key); key != "" {
			cfg.Redact = append(cfg.Redact, key)
		}
	}
	return cfg
}

func envTrue(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}
