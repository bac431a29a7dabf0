package internal

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ResolveDatasetDir returns the absolute, symlink-free dataset directory
func ResolveDatasetDir(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}

	absPath, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
		absPath = resolved
	}

	return absPath, nil
}

// DefaultDBPath derives ~/.protindex/data/<dataset>-<hash>.db from the dataset directory
func DefaultDBPath(datasetDir string) (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return dbPathUnder(filepath.Join(homeDir, ".protindex", "data"), datasetDir), nil
}

func dbPathUnder(dataDir, datasetDir string) string {
	name := sanitizeName(filepath.Base(datasetDir))
	hash := sha1.Sum([]byte(datasetDir))
	suffix := hex.EncodeToString(hash[:])[:12]
	return filepath.Join(dataDir, fmt.Sprintf("%s-%s.db", name, suffix))
}

// sanitizeName replaces characters that are unsafe in file names with underscores
func sanitizeName(name string) string {
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "dataset"
	}
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
			r == '.' || r == '_' || r == '-' {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
	}
	if b.Len() == 0 {
		return "dataset"
	}
	return b.String()
}
