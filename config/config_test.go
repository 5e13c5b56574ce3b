package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
	if cfg.Provider != ProviderOpenAI || cfg.Model != "gpt-4o" {
		t.Errorf("unexpected default provider/model: %s/%s", cfg.Provider, cfg.Model)
	}
	if len(cfg.Folders) != 5 {
		t.Errorf("expected 5 default folders, got %v", cfg.Folders)
	}
	if len(cfg.Prompts) != 3 {
		t.Errorf("expected 3 default prompts, got %v", cfg.Prompts)
	}
	if cfg.Store != StoreJSON {
		t.Errorf("expected default store json, got %q", cfg.Store)
	}
	if cfg.Concurrency != 1 {
		t.Errorf("expected default concurrency 1, got %d", cfg.Concurrency)
	}
}

func TestParse(t *testing.T) {
	yaml := `
provider: anthropic
model: claude-sonnet-4-20250514
folders:
  - person
  - car
prompts:
  - baseline
  - misleading2
store: sqlite
store_path: /tmp/sweeps.db
concurrency: 4
request_timeout: 90s
max_tokens: 32
`

	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Provider != ProviderAnthropic {
		t.Errorf("expected anthropic, got %q", cfg.Provider)
	}
	if cfg.Model != "claude-sonnet-4-20250514" {
		t.Errorf("unexpected model %q", cfg.Model)
	}
	if len(cfg.Folders) != 2 || cfg.Folders[1] != "car" {
		t.Errorf("unexpected folders %v", cfg.Folders)
	}
	if cfg.Store != StoreSQLite || cfg.StorePath != "/tmp/sweeps.db" {
		t.Errorf("unexpected store %q path %q", cfg.Store, cfg.StorePath)
	}
	if cfg.Concurrency != 4 {
		t.Errorf("expected concurrency 4, got %d", cfg.Concurrency)
	}
	if cfg.RequestTimeout.Std() != 90*time.Second {
		t.Errorf("expected request timeout 90s, got %v", cfg.RequestTimeout.Std())
	}
	if cfg.MaxTokens != 32 {
		t.Errorf("expected max tokens 32, got %d", cfg.MaxTokens)
	}
}

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("provider: google\nmodel: gemini-2.5-flash\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	// Unset fields keep their defaults.
	if len(cfg.Folders) != 5 || len(cfg.Prompts) != 3 {
		t.Errorf("expected default folders and prompts, got %v / %v", cfg.Folders, cfg.Prompts)
	}
	if cfg.Store != StoreJSON {
		t.Errorf("expected default store, got %q", cfg.Store)
	}
}

func TestParseNormalizesCase(t *testing.T) {
	cfg, err := Parse([]byte("provider: OpenAI\nmodel: gpt-4o\nstore: SQLite\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Provider != ProviderOpenAI || cfg.Store != StoreSQLite {
		t.Errorf("expected lowercased provider and store, got %q / %q", cfg.Provider, cfg.Store)
	}
}

func TestDurationUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want time.Duration
	}{
		{"duration string", "request_timeout: 2m\n", 2 * time.Minute},
		{"seconds string", "request_timeout: 45s\n", 45 * time.Second},
		{"bare integer is seconds", "request_timeout: 30\n", 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte("provider: openai\nmodel: gpt-4o\n" + tt.yaml))
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if cfg.RequestTimeout.Std() != tt.want {
				t.Errorf("expected %v, got %v", tt.want, cfg.RequestTimeout.Std())
			}
		})
	}

	t.Run("garbage duration", func(t *testing.T) {
		_, err := Parse([]byte("provider: openai\nmodel: gpt-4o\nrequest_timeout: soon\n"))
		if err == nil {
			t.Fatal("expected error for invalid duration")
		}
	})
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{"unknown provider", func(c *Config) { c.Provider = "azure" }, "unknown provider"},
		{"empty model", func(c *Config) { c.Model = "" }, "model is required"},
		{"no folders", func(c *Config) { c.Folders = nil }, "folder is required"},
		{"unknown folder", func(c *Config) { c.Folders = []string{"zebra"} }, "unknown dataset folder"},
		{"no prompts", func(c *Config) { c.Prompts = nil }, "prompt mode is required"},
		{"unknown prompt", func(c *Config) { c.Prompts = []string{"baseline", "bogus"} }, "unknown prompt"},
		{"unknown store", func(c *Config) { c.Store = "redis" }, "unknown store"},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }, "concurrency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("expected error containing %q, got %v", tt.wantSub, err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sweep.yaml")
	content := "provider: openai\nmodel: gpt-4o-mini\nfolders: [dog, cat]\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Model != "gpt-4o-mini" || len(cfg.Folders) != 2 {
		t.Errorf("unexpected config %+v", cfg)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestAPIKey(t *testing.T) {
	cfg := Default()

	t.Run("set", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "sk-test")
		key, err := cfg.APIKey()
		if err != nil {
			t.Fatalf("APIKey failed: %v", err)
		}
		if key != "sk-test" {
			t.Errorf("expected sk-test, got %q", key)
		}
	})

	t.Run("unset", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "")
		if _, err := cfg.APIKey(); err == nil {
			t.Error("expected error when key env var is unset")
		}
	})

	t.Run("per provider env var", func(t *testing.T) {
		t.Setenv("GOOGLE_API_KEY", "g-test")
		google := cfg
		google.Provider = ProviderGoogle
		key, err := google.APIKey()
		if err != nil {
			t.Fatalf("APIKey failed: %v", err)
		}
		if key != "g-test" {
			t.Errorf("expected g-test, got %q", key)
		}
	})
}

func TestMySQLDSN(t *testing.T) {
	t.Setenv("MYSQL_DSN", "user:pass@tcp(localhost:3306)/visionprobe")
	dsn, err := MySQLDSN()
	if err != nil {
		t.Fatalf("MySQLDSN failed: %v", err)
	}
	if !strings.Contains(dsn, "visionprobe") {
		t.Errorf("unexpected dsn %q", dsn)
	}

	t.Setenv("MYSQL_DSN", "")
	if _, err := MySQLDSN(); err == nil {
		t.Error("expected error when MYSQL_DSN is unset")
	}
}
