package internal

import (
	"fmt"
	"os"

	"github.com/DreamCats/protindex/internal/config"
)

// LoadConfig reads the YAML config at configPath, or the default location when empty
func LoadConfig(configPath string) (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

// PrintConfigExample prints a minimal configuration to stderr
func PrintConfigExample() {
	fmt.Fprintf(os.Stderr, `Create a configuration file at %s:

# Dataset bundle
dataset:
  url: https://example.org/datasets/protein-tutorial.tar.gz
  dir: ~/.protindex/datasets/tutorial

# Protein language model inference service (required)
embedding:
  provider: http
  endpoint: http://localhost:8000/embed
  model: Rostlab/prot_t5_xl_uniref50
  batch_size: 8

# Whole-sequence encoder: mean | max | external
encoder:
  kind: mean

Usage:
  1. Create the config file
  2. Run: protindex fetch
  3. Run: protindex index
  4. Plot: protindex ordinate -out pcoa.png
`, config.DefaultPath())
}
