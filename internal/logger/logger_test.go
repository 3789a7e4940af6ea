package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(level Level) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := New(&buf, level)
	l.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return l, &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]string {
	t.Helper()
	var out []map[string]string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]string
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		out = append(out, entry)
	}
	return out
}

func TestLogWritesJSONEntry(t *testing.T) {
	l, buf := newTestLogger(DEBUG)
	l.Info("file processed", "file", "dfr.txt", "eligible", 3)

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "INFO", entries[0]["level"])
	assert.Equal(t, "file processed", entries[0]["msg"])
	assert.Equal(t, "2024-03-01T12:00:00Z", entries[0]["time"])
	assert.Equal(t, "dfr.txt", entries[0]["file"])
	assert.Equal(t, "3", entries[0]["eligible"])
}

func TestLogHonorsLevel(t *testing.T) {
	l, buf := newTestLogger(WARN)
	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown")
	l.Error("shown")

	assert.Len(t, decodeLines(t, buf), 2)
}

func TestWithAddsFields(t *testing.T) {
	l, buf := newTestLogger(INFO)
	l.With("run_id", "abc").Info("start", "files", 2)
	l.Info("no run id")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "abc", entries[0]["run_id"])
	assert.Equal(t, "2", entries[0]["files"])
	assert.NotContains(t, entries[1], "run_id")
}

func TestAccountFieldsAreMasked(t *testing.T) {
	l, buf := newTestLogger(INFO)
	l.Info("record", "account_number", "4111111111111111", "composite", "0000078319.20240301120000.zip")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "************1111", entries[0]["account_number"])
	assert.Equal(t, "0000078319.20240301120000.zip", entries[0]["composite"])
}

func TestMaskAccount(t *testing.T) {
	assert.Equal(t, "****5678", MaskAccount("12345678"))
	assert.Equal(t, "****", MaskAccount("1234"))
	assert.Equal(t, "**", MaskAccount("12"))
	assert.Equal(t, "", MaskAccount(""))
}

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]Level{"debug": DEBUG, "Info": INFO, "WARN": WARN, "error": ERROR} {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseLevel("verbose")
	assert.ErrorContains(t, err, `unknown log level "verbose"`)
}
