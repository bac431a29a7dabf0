package runlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Logger writes leveled key/value lines for one pipeline run
type Logger struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	runID  string
}

var globalLogger *Logger
var loggerMu sync.Mutex

// New creates a logger that writes to w
func New(w io.Writer, runID string) *Logger {
	return &Logger{w: w, runID: runID}
}

// Init opens <dir>/<prefix>-<ts>.log and installs it as the process-global logger
func Init(dir, prefix, runID string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405")
	logFile := filepath.Join(dir, fmt.Sprintf("%s-%s.log", prefix, timestamp))

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	logger := &Logger{w: file, closer: file, runID: runID}
	SetGlobal(logger)

	logger.Info("run logger initialized", map[string]interface{}{
		"log_file": logFile,
	})
	return logger, nil
}

// SetGlobal replaces the process-global logger; nil disables global logging
func SetGlobal(l *Logger) {
	loggerMu.Lock()
	globalLogger = l
	loggerMu.Unlock()
}

// Global returns the process-global logger, which may be nil
func Global() *Logger {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	return globalLogger
}

func (l *Logger) log(level string, message string, details map[string]interface{}) {
	if l == nil {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s: %s", time.Now().Format("2006-01-02 15:04:05.000"), level, message)
	if l.runID != "" {
		fmt.Fprintf(&b, " run_id=%s", l.runID)
	}
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, details[k])
	}
	b.WriteByte('\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.w, b.String())
}

func (l *Logger) Info(message string, details map[string]interface{}) {
	l.log("INFO", message, details)
}

func (l *Logger) Warn(message string, details map[string]interface{}) {
	l.log("WARN", message, details)
}

func (l *Logger) Error(message string, details map[string]interface{}) {
	l.log("ERROR", message, details)
}

func (l *Logger) Debug(message string, details map[string]interface{}) {
	l.log("DEBUG", message, details)
}

// Close flushes and closes the log file, if the logger owns one
func (l *Logger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	l.Info("run logger closing", nil)
	return l.closer.Close()
}

func LogInfo(message string, details map[string]interface{}) {
	if logger := Global(); logger != nil {
		logger.Info(message, details)
	}
}

func LogWarn(message string, details map[string]interface{}) {
	if logger := Global(); logger != nil {
		logger.Warn(message, details)
	}
}

func LogError(message string, details map[string]interface{}) {
	if logger := Global(); logger != nil {
		logger.Error(message, details)
	}
}

func LogDebug(message string, details map[string]interface{}) {
	if logger := Global(); logger != nil {
		logger.Debug(message, details)
	}
}

// Leveled adapts the global logger to the key/value style used by
// retryablehttp.LeveledLogger.
type Leveled struct{}

func (Leveled) Error(msg string, keysAndValues ...interface{}) {
	LogError(msg, pairs(keysAndValues))
}

func (Leveled) Info(msg string, keysAndValues ...interface{}) {
	LogInfo(msg, pairs(keysAndValues))
}

func (Leveled) Debug(msg string, keysAndValues ...interface{}) {
	LogDebug(msg, pairs(keysAndValues))
}

func (Leveled) Warn(msg string, keysAndValues ...interface{}) {
	LogWarn(msg, pairs(keysAndValues))
}

func pairs(kv []interface{}) map[string]interface{} {
	if len(kv) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out[fmt.Sprint(kv[i])] = kv[i+1]
	}
	if len(kv)%2 == 1 {
		out["extra"] = kv[len(kv)-1]
	}
	return out
}
