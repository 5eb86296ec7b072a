package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_TextFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New("warn", "text", &buf)

	log.Info("hidden")
	log.Warn("shown", "file_id", "abc")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "file_id=abc")
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	New("debug", "json", &buf).Debug("job done", "width", 500)

	assert.Contains(t, buf.String(), `"msg":"job done"`)
	assert.Contains(t, buf.String(), `"width":500`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestAsynqLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewAsynqLogger(New("info", "text", &buf))

	l.Debug("quiet")
	l.Info("starting processing ", 2, " workers")
	l.Error("broker down")

	out := buf.String()
	assert.NotContains(t, out, "quiet")
	assert.Contains(t, out, `msg="starting processing 2 workers"`)
	assert.Contains(t, out, "component=asynq")
	assert.Contains(t, out, "level=ERROR")
}
