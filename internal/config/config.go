package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Dataset   DatasetConfig   `yaml:"dataset"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Encoder   EncoderConfig   `yaml:"encoder"`
	Database  DatabaseConfig  `yaml:"database"`
	Search    SearchConfig    `yaml:"search,omitempty"`
	Metadata  MetadataConfig  `yaml:"metadata,omitempty"`
	Plot      PlotConfig      `yaml:"plot,omitempty"`
}

// DatasetConfig describes where the tutorial bundle comes from and lives
type DatasetConfig struct {
	URL          string `yaml:"url,omitempty"`           // Archive to download (.tar.gz | .tgz | .zip)
	Dir          string `yaml:"dir"`                     // Extraction directory
	FastaGlob    string `yaml:"fasta_glob,omitempty"`    // doublestar pattern relative to Dir
	MetadataGlob string `yaml:"metadata_glob,omitempty"` // doublestar pattern relative to Dir
}

// EmbeddingConfig holds protein language model service configuration
type EmbeddingConfig struct {
	Provider string `yaml:"provider"` // "http"

	APIKey   string `yaml:"api_key,omitempty"`
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"` // Pretrained model identifier, e.g. Rostlab/prot_t5_xl_uniref50

	BatchSize      int `yaml:"batch_size"`
	TimeoutSeconds int `yaml:"timeout_seconds,omitempty"`
	MaxRetries     int `yaml:"max_retries,omitempty"`
}

// EncoderConfig selects how per-residue embeddings become one vector per sequence
type EncoderConfig struct {
	Kind string `yaml:"kind"` // "mean" | "max" | "external"

	// External encoder tool, invoked as: command... input_flag <fasta> output_flag <npz>
	Command    []string `yaml:"command,omitempty"`
	InputFlag  string   `yaml:"input_flag,omitempty"`
	OutputFlag string   `yaml:"output_flag,omitempty"`
	Field      string   `yaml:"field,omitempty"` // Array name inside the archive
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	// Path to SQLite database file
	// If empty, uses ~/.protindex/data/<dataset>-<hash>.db
	Path string `yaml:"path,omitempty"`
}

// SearchConfig holds search-specific configuration
type SearchConfig struct {
	DefaultTopK int    `yaml:"default_top_k,omitempty"`
	Metric      string `yaml:"metric,omitempty"` // "cosine" | "l2"
}

// MetadataConfig names the columns used to join and color ordination results
type MetadataConfig struct {
	KeyColumn      string `yaml:"key_column,omitempty"`
	CategoryColumn string `yaml:"category_column,omitempty"`
}

// PlotConfig holds scatter plot defaults
type PlotConfig struct {
	Title        string  `yaml:"title,omitempty"`
	WidthInches  float64 `yaml:"width_inches,omitempty"`
	HeightInches float64 `yaml:"height_inches,omitempty"`
}

// DefaultPath returns ~/.protindex/config/protindex.yaml
func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".protindex", "config", "protindex.yaml")
}

// Load loads configuration from the default config file
func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	configPath := filepath.Join(homeDir, ".protindex", "config", "protindex.yaml")
	return LoadFromFile(configPath)
}

// LoadFromFile loads configuration from a specific file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &ConfigNotFoundError{
				RequestedPath: path,
				DefaultPath:   DefaultPath(),
			}
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, applies defaults and validates it
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// ConfigNotFoundError is returned when config file is not found
type ConfigNotFoundError struct {
	RequestedPath string
	DefaultPath   string
}

func (e *ConfigNotFoundError) Error() string {
	return fmt.Sprintf("config file not found at: %s\n\nDefault location: %s\n\nYou can:\n"+
		"  1. Create the config file at the default location\n"+
		"  2. Specify a custom path with -config flag\n"+
		"  3. Run 'protindex fetch' once to write a template",
		e.RequestedPath, e.DefaultPath)
}

// IsConfigNotFound checks if error is config not found
func IsConfigNotFound(err error) bool {
	_, ok := err.(*ConfigNotFoundError)
	return ok
}

// ExpandPath expands ~ and $HOME to the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "$HOME/") || path == "$HOME" {
		homeDir := os.Getenv("HOME")
		if homeDir == "" {
			var err error
			homeDir, err = os.UserHomeDir()
			if err != nil {
				return path
			}
		}
		if path == "$HOME" {
			return homeDir
		}
		return filepath.Join(homeDir, path[6:])
	}

	if strings.HasPrefix(path, "~/") || path == "~" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return homeDir
		}
		return filepath.Join(homeDir, path[2:])
	}

	return path
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	if c.Dataset.Dir == "" {
		c.Dataset.Dir = "data"
	}
	c.Dataset.Dir = ExpandPath(c.Dataset.Dir)
	if c.Dataset.FastaGlob == "" {
		c.Dataset.FastaGlob = "**/*.{fa,fasta,faa,fa.gz,fasta.gz}"
	}
	if c.Dataset.MetadataGlob == "" {
		c.Dataset.MetadataGlob = "**/*.csv"
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "http"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "Rostlab/prot_t5_xl_uniref50"
	}
	if c.Embedding.BatchSize == 0 {
		c.Embedding.BatchSize = 8
	}
	if c.Embedding.TimeoutSeconds == 0 {
		c.Embedding.TimeoutSeconds = 120
	}
	if c.Embedding.MaxRetries == 0 {
		c.Embedding.MaxRetries = 3
	}

	if c.Encoder.Kind == "" {
		c.Encoder.Kind = "mean"
	}
	if c.Encoder.InputFlag == "" {
		c.Encoder.InputFlag = "--input-fasta"
	}
	if c.Encoder.OutputFlag == "" {
		c.Encoder.OutputFlag = "--output"
	}
	if c.Encoder.Field == "" {
		c.Encoder.Field = "embeddings"
	}

	if c.Database.Path != "" {
		c.Database.Path = ExpandPath(c.Database.Path)
	}

	if c.Search.DefaultTopK == 0 {
		c.Search.DefaultTopK = 10
	}
	if c.Search.Metric == "" {
		c.Search.Metric = "cosine"
	}

	if c.Metadata.KeyColumn == "" {
		c.Metadata.KeyColumn = "id"
	}
	if c.Metadata.CategoryColumn == "" {
		c.Metadata.CategoryColumn = "class"
	}

	if c.Plot.Title == "" {
		c.Plot.Title = "Protein embedding PCoA"
	}
	if c.Plot.WidthInches == 0 {
		c.Plot.WidthInches = 6
	}
	if c.Plot.HeightInches == 0 {
		c.Plot.HeightInches = 5
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Embedding.Provider {
	case "http":
		if c.Embedding.Endpoint == "" {
			return fmt.Errorf("http provider requires endpoint")
		}
	default:
		return fmt.Errorf("unsupported embedding provider: %s", c.Embedding.Provider)
	}

	if c.Embedding.BatchSize <= 0 || c.Embedding.BatchSize > 256 {
		return fmt.Errorf("batch_size must be between 1 and 256, got: %d", c.Embedding.BatchSize)
	}
	if c.Embedding.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative, got: %d", c.Embedding.MaxRetries)
	}

	switch c.Encoder.Kind {
	case "mean", "max":
	case "external":
		if len(c.Encoder.Command) == 0 {
			return fmt.Errorf("external encoder requires command")
		}
	default:
		return fmt.Errorf("unsupported encoder kind: %s", c.Encoder.Kind)
	}

	switch c.Search.Metric {
	case "cosine", "l2":
	default:
		return fmt.Errorf("unsupported search metric: %s", c.Search.Metric)
	}

	return nil
}

// SaveToFile saves the configuration to a specific file
func (c *Config) SaveToFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

const defaultConfigTemplate = `# protindex configuration
#
# Default location: $HOME/.protindex/config/protindex.yaml

dataset:
  url: https://example.org/datasets/protein-tutorial.tar.gz
  dir: ~/.protindex/datasets/tutorial
  fasta_glob: "**/*.{fa,fasta,faa,fa.gz,fasta.gz}"
  metadata_glob: "**/*.csv"

# Protein language model inference service (required)
embedding:
  provider: http
  endpoint: http://localhost:8000/embed
  api_key: ""
  model: Rostlab/prot_t5_xl_uniref50
  batch_size: 8
  timeout_seconds: 120
  max_retries: 3

# Whole-sequence encoder: mean | max | external
encoder:
  kind: mean
  # kind: external
  # command: [tmvec, build-db]
  # input_flag: --input-fasta
  # output_flag: --output
  # field: embeddings

search:
  default_top_k: 10
  metric: cosine

metadata:
  key_column: id
  category_column: class

plot:
  title: Protein embedding PCoA
`

// WriteDefaultTemplate creates a default configuration file if it does not exist.
// It returns true if a file was created, false if it already existed.
func WriteDefaultTemplate(path string) (bool, error) {
	if path == "" {
		return false, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to stat config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(defaultConfigTemplate), 0644); err != nil {
		return false, fmt.Errorf("failed to write config template: %w", err)
	}

	return true, nil
}
