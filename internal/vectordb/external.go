package vectordb

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/DreamCats/protindex/internal/config"
	"github.com/DreamCats/protindex/internal/fasta"
	"github.com/DreamCats/protindex/internal/runlog"
)

// ExternalEncoder runs an encoder command line tool that reads a FASTA file
// and writes a .npz archive of vectors in record order.
type ExternalEncoder struct {
	command    []string
	inputFlag  string
	outputFlag string
	field      string
	workDir    string
}

// NewExternalEncoder creates an encoder from configuration. Archives are
// written under workDir; an empty workDir uses a fresh temporary directory.
func NewExternalEncoder(cfg config.EncoderConfig, workDir string) (*ExternalEncoder, error) {
	if len(cfg.Command) == 0 {
		return nil, fmt.Errorf("external encoder requires command")
	}
	return &ExternalEncoder{
		command:    cfg.Command,
		inputFlag:  cfg.InputFlag,
		outputFlag: cfg.OutputFlag,
		field:      cfg.Field,
		workDir:    workDir,
	}, nil
}

func (e *ExternalEncoder) Name() string {
	return filepath.Base(e.command[0])
}

// Encode runs the tool and zips its vectors back up with the FASTA records
func (e *ExternalEncoder) Encode(ctx context.Context, fastaPath string) ([]Vector, error) {
	records, err := fasta.ReadAll(fastaPath)
	if err != nil {
		return nil, err
	}

	dir := e.workDir
	if dir == "" {
		dir, err = os.MkdirTemp("", "protindex-encoder-")
		if err != nil {
			return nil, fmt.Errorf("create work dir: %w", err)
		}
		defer os.RemoveAll(dir)
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}

	outPath := filepath.Join(dir, "vectors.npz")
	if err := e.run(ctx, fastaPath, outPath); err != nil {
		return nil, err
	}

	archive, err := locateArchive(outPath)
	if err != nil {
		return nil, err
	}

	vectors, err := LoadArchive(archive, e.field)
	if err != nil {
		return nil, err
	}
	return Zip(records, vectors)
}

func (e *ExternalEncoder) run(ctx context.Context, in, out string) error {
	args := append([]string{}, e.command[1:]...)
	args = append(args, e.inputFlag, in, e.outputFlag, out)

	cmd := exec.CommandContext(ctx, e.command[0], args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	runlog.LogInfo("running external encoder", map[string]interface{}{
		"command": strings.Join(append([]string{e.command[0]}, args...), " "),
	})

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		runlog.LogError("external encoder failed", map[string]interface{}{
			"error":  err,
			"stderr": msg,
		})
		if msg != "" {
			return fmt.Errorf("encoder %s: %w: %s", e.command[0], err, msg)
		}
		return fmt.Errorf("encoder %s: %w", e.command[0], err)
	}
	return nil
}

// locateArchive accepts tools that append .npz to the requested output path
func locateArchive(path string) (string, error) {
	for _, candidate := range []string{path, path + ".npz"} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("encoder did not write %s", path)
}
