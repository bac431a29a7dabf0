package runlog

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerFormatsSortedDetails(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "run-1")
	l.Warn("dimension mismatch", map[string]interface{}{"want": 1024, "got": 512})

	line := buf.String()
	assert.Contains(t, line, "WARN: dimension mismatch run_id=run-1 got=512 want=1024")
	assert.True(t, strings.HasSuffix(line, "\n"))
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	l.Info("ignored", nil)
	assert.NoError(t, l.Close())
}

func TestLeveledAdapter(t *testing.T) {
	var buf bytes.Buffer
	SetGlobal(New(&buf, ""))
	defer SetGlobal(nil)

	Leveled{}.Debug("performing request", "method", "POST", "url", "http://x", "dangling")
	assert.Contains(t, buf.String(), "DEBUG: performing request extra=dangling method=POST url=http://x")
}

func TestInitWritesFile(t *testing.T) {
	dir := t.TempDir()
	l, err := Init(dir, "index", "abc")
	require.NoError(t, err)
	defer SetGlobal(nil)

	LogInfo("hello", map[string]interface{}{"n": 3})
	require.NoError(t, l.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(dir + "/" + entries[0].Name())
	require.NoError(t, err)
	assert.Contains(t, string(data), "INFO: hello run_id=abc n=3")
}
