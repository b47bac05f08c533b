package logx_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Abraxas-365/relay/pkg/logx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonLogger(buf *bytes.Buffer, level logx.Level) *logx.Logger {
	cfg := logx.DefaultConfig()
	cfg.Format = logx.FormatJSON
	cfg.Level = level
	cfg.Output = buf
	return logx.NewLogger(cfg)
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	return line
}

func TestEntry_CarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := jsonLogger(&buf, logx.LevelInfo)

	ctx := logx.ContextWithRequestID(context.Background(), "req-123")
	logger.WithField("audit_event", "otp.verified").WithContext(ctx).Info("verified")

	line := decode(t, &buf)
	assert.Equal(t, "INFO", line["level"])
	assert.Equal(t, "verified", line["message"])
	assert.Equal(t, "req-123", line["request_id"])
	assert.Equal(t, "otp.verified", line["audit_event"])
}

func TestEntry_WithError(t *testing.T) {
	var buf bytes.Buffer
	logger := jsonLogger(&buf, logx.LevelInfo)

	logger.WithError(errors.New("smtp timeout")).Error("dispatch failed")

	line := decode(t, &buf)
	assert.Equal(t, "ERROR", line["level"])
	assert.Equal(t, "smtp timeout", line["error"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := jsonLogger(&buf, logx.LevelWarn)

	logger.WithField("k", "v").Info("dropped")
	assert.Zero(t, buf.Len())

	logger.WithField("k", "v").Warn("kept")
	assert.NotZero(t, buf.Len())
}

func TestRequestIDFrom(t *testing.T) {
	assert.Empty(t, logx.RequestIDFrom(context.Background()))
	assert.Equal(t, "abc", logx.RequestIDFrom(logx.ContextWithRequestID(context.Background(), "abc")))
}

func TestRedactsSensitiveFields(t *testing.T) {
	var buf bytes.Buffer
	cfg := logx.DefaultConfig()
	cfg.Format = logx.FormatJSON
	cfg.Output = &buf
	cfg.Redact = append(cfg.Redact, "phone")
	logger := logx.NewLogger(cfg)

	logger.WithFields(logx.Fields{
		"Session_Token": "eyJhbGciOi",
		"code":          "482913",
		"phone":         "+16502530000",
		"email":         "ada@relay.test",
	}).Info("verify")

	line := decode(t, &buf)
	assert.Equal(t, logx.RedactedValue, line["Session_Token"])
	assert.Equal(t, logx.RedactedValue, line["code"])
	assert.Equal(t, logx.RedactedValue, line["phone"])
	assert.Equal(t, "ada@relay.test", line["email"])
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	cfg := logx.DefaultConfig()
	cfg.Color = false
	cfg.Output = &buf
	logger := logx.NewLogger(cfg)

	logger.WithFields(logx.Fields{"b": 2, "a": 1}).WithError(errors.New("boom")).Warn("careful")

	out := buf.String()
	assert.Contains(t, out, "[WARN ] careful a=1 b=2")
	assert.Contains(t, out, "error: boom")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logx.LevelWarn, logx.ParseLevel("warning"))
	assert.Equal(t, logx.LevelDebug, logx.ParseLevel("DEBUG"))
	assert.Equal(t, logx.LevelInfo, logx.ParseLevel("nonsense"))
	assert.False(t, logx.LevelOff.Enabled(logx.LevelFatal))
}
