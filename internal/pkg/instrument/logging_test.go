package instrument

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out), buf.String())
	return out
}

func TestNewLogger_masksAndTruncates(t *testing.T) {
	// Arrange
	var buf bytes.Buffer
	log := newLogger(&buf, "docmailer", LogConfig{
		MaskFields:  []string{"Password", " data "},
		MaxValueLen: 64,
	}, nil)
	ctx := SetCorrelationID(context.Background(), "c-1")

	// Act
	log.InfoContext(ctx, "docmail call",
		"password", "hunter2",
		"body", `{"Username":"acme","Password":"secret","Data":"JVBERi0xLjQK"}`,
		"meta", map[string]string{"data": "x", "client": "acme"},
		"template", strings.Repeat("A", 100),
	)

	// Assert
	line := decodeLine(t, &buf)
	assert.Equal(t, "***", line["password"])
	assert.Equal(t, "c-1", line["_cID"])
	assert.Equal(t, "docmailer", line["service"])
	assert.Equal(t, "INFO", line["severity"])
	assert.Contains(t, line, "ts")
	assert.Equal(t, strings.Repeat("A", 64)+truncatedSuffix, line["template"])
	assert.Equal(t, map[string]any{"data": "***", "client": "acme"}, line["meta"])

	body, ok := line["body"].(string)
	require.True(t, ok)
	assert.NotContains(t, body, "secret")
	assert.NotContains(t, body, "JVBER")
	assert.Contains(t, body, `"Username":"acme"`)
}

func TestNewLogger_level(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "docmailer", LogConfig{Level: "warn"}, nil)

	log.Info("dropped")
	assert.Zero(t, buf.Len())

	log.Warn("kept")
	assert.Equal(t, "kept", decodeLine(t, &buf)["msg"])
}

func TestNewLogger_withAttrsRedacted(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "docmailer", LogConfig{MaskFields: []string{"authorization"}}, nil)

	log.With("authorization", "Bearer abc").Info("request")

	assert.Equal(t, "***", decodeLine(t, &buf)["authorization"])
}

func TestNewLogger_textFormat(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "docmailer", LogConfig{Format: "TEXT"}, nil)

	log.Info("hello", "mailing_id", 42)

	assert.Contains(t, buf.String(), "severity=INFO")
	assert.Contains(t, buf.String(), "mailing_id=42")
	assert.Contains(t, buf.String(), "service=docmailer")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelError, parseLevel(" ERROR "))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
	assert.Equal(t, slog.LevelInfo, parseLevel("loud"))
}
