// Package config loads sweep configuration for the visionprobe CLI.
//
// Configuration comes from a YAML file plus environment variables. API
// keys come ONLY from the environment (OPENAI_API_KEY, ANTHROPIC_API_KEY,
// GOOGLE_API_KEY); the file format has no field for them, so credentials
// never end up committed alongside sweep settings.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dshills/visionprobe/probe"
)

// Duration wraps time.Duration so YAML files can use duration strings.
type Duration time.Duration

// UnmarshalYAML parses "90s"-style duration strings and bare integers
// (interpreted as seconds).
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err == nil {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("config: invalid duration %q: %w", raw, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var secs int64
	if err := value.Decode(&secs); err != nil {
		return fmt.Errorf("config: invalid duration: %w", err)
	}
	*d = Duration(time.Duration(secs) * time.Second)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Provider names accepted in the provider field.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
)

// Store backend names accepted in the store field.
const (
	StoreJSON   = "json"
	StoreSQLite = "sqlite"
	StoreMySQL  = "mysql"
	StoreMemory = "memory"
)

// Config models a sweep configuration file.
type Config struct {
	// Provider selects the vision API: openai, anthropic, or google.
	Provider string `yaml:"provider"`

	// Model is the model identifier passed to the provider.
	Model string `yaml:"model"`

	// Folders are the dataset categories to sweep.
	Folders []string `yaml:"folders"`

	// Prompts are the prompt mode names to run.
	Prompts []string `yaml:"prompts"`

	// GroundTruth is the path to the ground-truth CSV.
	GroundTruth string `yaml:"ground_truth"`

	// ImageRoot is the directory holding the per-folder image tree.
	ImageRoot string `yaml:"image_root"`

	// OutputDir receives result files and evaluation outputs.
	OutputDir string `yaml:"output_dir"`

	// Store selects trial persistence: json, sqlite, mysql, or memory.
	Store string `yaml:"store"`

	// StorePath is the sqlite file path. Ignored by other backends.
	StorePath string `yaml:"store_path"`

	// Concurrency bounds simultaneous provider calls.
	Concurrency int `yaml:"concurrency"`

	// RequestTimeout bounds one trial including retries. Accepts Go
	// duration strings ("90s", "2m"). Zero disables the per-trial
	// deadline.
	RequestTimeout Duration `yaml:"request_timeout"`

	// MaxTokens overrides the completion budget. Zero lets the provider
	// adapter pick its default.
	MaxTokens int `yaml:"max_tokens"`
}

// Default returns the configuration used when no file is given,
// mirroring the study's standard sweep.
func Default() Config {
	return Config{
		Provider:    ProviderOpenAI,
		Model:       "gpt-4o",
		Folders:     []string{"person", "car", "dog", "cat", "chair"},
		Prompts:     []string{"baseline", "misleading1", "mitigate1"},
		GroundTruth: "GroundTruth.csv",
		ImageRoot:   "images",
		OutputDir:   "results",
		Store:       StoreJSON,
		StorePath:   "sweeps.db",
		Concurrency: 1,
	}
}

// Load reads and validates a configuration file. Missing fields fall
// back to Default values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration bytes, applies defaults, and
// validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	c.Model = strings.TrimSpace(c.Model)
	c.Store = strings.ToLower(strings.TrimSpace(c.Store))
	for i := range c.Folders {
		c.Folders[i] = strings.TrimSpace(c.Folders[i])
	}
	for i := range c.Prompts {
		c.Prompts[i] = strings.TrimSpace(c.Prompts[i])
	}
}

// Validate checks the configuration for unknown providers, unknown
// prompt modes, and empty required fields.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderGoogle:
	default:
		return fmt.Errorf("config: unknown provider %q", c.Provider)
	}

	if c.Model == "" {
		return fmt.Errorf("config: model is required")
	}
	if len(c.Folders) == 0 {
		return fmt.Errorf("config: at least one folder is required")
	}
	if err := probe.ValidateFolders(c.Folders); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if len(c.Prompts) == 0 {
		return fmt.Errorf("config: at least one prompt mode is required")
	}
	if _, err := probe.ParsePromptModes(c.Prompts); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	switch c.Store {
	case StoreJSON, StoreSQLite, StoreMySQL, StoreMemory:
	default:
		return fmt.Errorf("config: unknown store %q", c.Store)
	}

	if c.Concurrency < 1 {
		return fmt.Errorf("config: concurrency must be >= 1")
	}

	return nil
}

// PromptModes returns the configured prompt modes, already validated.
func (c Config) PromptModes() []probe.PromptMode {
	modes, _ := probe.ParsePromptModes(c.Prompts)
	return modes
}

// APIKey returns the environment API key for the configured provider.
//
// Keys never come from the config file.
func (c Config) APIKey() (string, error) {
	var envVar string
	switch c.Provider {
	case ProviderOpenAI:
		envVar = "OPENAI_API_KEY"
	case ProviderAnthropic:
		envVar = "ANTHROPIC_API_KEY"
	case ProviderGoogle:
		envVar = "GOOGLE_API_KEY"
	default:
		return "", fmt.Errorf("config: unknown provider %q", c.Provider)
	}

	key := os.Getenv(envVar)
	if key == "" {
		return "", fmt.Errorf("config: %s environment variable is not set", envVar)
	}
	return key, nil
}

// MySQLDSN returns the MySQL connection string from the environment.
// Like API keys, credentials never come from the config file.
func MySQLDSN() (string, error) {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		return "", fmt.Errorf("config: MYSQL_DSN environment variable is not set")
	}
	return dsn, nil
}
