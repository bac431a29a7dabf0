package internal

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/DreamCats/protindex/internal/runlog"
)

// SetupLogging tees the standard logger to a per-command log file under
// ~/.protindex/logs and installs a structured run logger on the same file.
func SetupLogging(subcommand string, datasetDir string) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	logDir := filepath.Join(homeDir, ".protindex", "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return err
	}

	name := sanitizeName(filepath.Base(datasetDir))
	hash := sha1.Sum([]byte(datasetDir))
	suffix := hex.EncodeToString(hash[:])[:8]
	timestamp := time.Now().Format("20060102-150405")
	filename := fmt.Sprintf("protindex-%s-%s-%s-%s.log", subcommand, name, timestamp, suffix)
	logPath := filepath.Join(logDir, filename)

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}

	log.SetOutput(io.MultiWriter(os.Stderr, logFile))
	log.Printf("Log file: %s", logPath)

	runlog.SetGlobal(runlog.New(logFile, uuid.NewString()))
	runlog.LogInfo("command started", map[string]interface{}{
		"command": subcommand,
		"dataset": datasetDir,
		"version": Version,
	})
	return nil
}
