// Package config loads the application configuration from YAML with
// environment overrides.
package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ProviderConfig selects and configures the model backend.
type ProviderConfig struct {
	Type      string `yaml:"type"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// QdrantConfig contains connection details for a Qdrant collection.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// SQLiteConfig locates the local vector database file.
type SQLiteConfig struct {
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
}

// IndexConfig selects and configures the vector backend.
type IndexConfig struct {
	Backend string        `yaml:"backend"`
	Qdrant  *QdrantConfig `yaml:"qdrant,omitempty"`
	SQLite  *SQLiteConfig `yaml:"sqlite,omitempty"`
}

// CorpusConfig locates the flat-file book corpus.
type CorpusConfig struct {
	Path          string   `yaml:"path"`
	WatchPatterns []string `yaml:"watch_patterns,omitempty"`
}

// Config is the root application configuration.
type Config struct {
	Addr        string         `yaml:"addr"`
	Provider    ProviderConfig `yaml:"provider"`
	Corpus      CorpusConfig   `yaml:"corpus"`
	Index       IndexConfig    `yaml:"index"`
	TopK        int            `yaml:"top_k"`
	Temperature float32        `yaml:"temperature"`
	MaxTokens   int            `yaml:"max_tokens"`
}

// Load reads a config from path. A missing file yields defaults. Environment
// variables override file values; a .env file in the working directory is
// folded into the environment first.
func Load(path string) (*Config, error) {
	godotenv.Load()

	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	applyEnv(cfg)
	return cfg, nil
}

// APIKey resolves the provider API key from the configured environment
// variable.
func (p ProviderConfig) APIKey() string {
	return os.Getenv(p.APIKeyEnv)
}

// APIKey resolves the Qdrant API key, empty when unauthenticated.
func (q QdrantConfig) APIKey() string {
	if q.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(q.APIKeyEnv)
}

func defaultConfig() *Config {
	return &Config{
		Addr: ":8000",
		Provider: ProviderConfig{
			Type:      "openai",
			APIKeyEnv: "OPENAI_API_KEY",
		},
		Corpus: CorpusConfig{
			Path: "data/book_summaries.txt",
		},
		Index: IndexConfig{
			Backend: "sqlite",
		},
		TopK:        3,
		Temperature: 0.7,
		MaxTokens:   1000,
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Addr == "" {
		cfg.Addr = ":8000"
	}
	if cfg.Provider.Type == "" {
		cfg.Provider.Type = "openai"
	}
	if cfg.Provider.APIKeyEnv == "" {
		cfg.Provider.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Corpus.Path == "" {
		cfg.Corpus.Path = "data/book_summaries.txt"
	}
	if cfg.Index.Backend == "" {
		cfg.Index.Backend = "sqlite"
	}
	if cfg.Index.Backend == "qdrant" && cfg.Index.Qdrant == nil {
		cfg.Index.Qdrant = &QdrantConfig{}
	}
	if cfg.Index.Qdrant != nil {
		if cfg.Index.Qdrant.URL == "" {
			cfg.Index.Qdrant.URL = "http://localhost:6333"
		}
		if cfg.Index.Qdrant.TimeoutSecs == 0 {
			cfg.Index.Qdrant.TimeoutSecs = 15
		}
	}
	if cfg.Index.Backend == "sqlite" && cfg.Index.SQLite == nil {
		cfg.Index.SQLite = &SQLiteConfig{}
	}
	if cfg.Index.SQLite != nil && cfg.Index.SQLite.Path == "" {
		cfg.Index.SQLite.Path = "data/librarian.db"
	}
	if cfg.TopK == 0 {
		cfg.TopK = 3
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1000
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("LIBRARIAN_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("LIBRARIAN_PROVIDER"); v != "" {
		cfg.Provider.Type = v
	}
	if v := os.Getenv("LIBRARIAN_MODEL"); v != "" {
		cfg.Provider.Model = v
	}
	if v := os.Getenv("LIBRARIAN_CORPUS"); v != "" {
		cfg.Corpus.Path = v
	}
	if v := os.Getenv("LIBRARIAN_INDEX_BACKEND"); v != "" {
		cfg.Index.Backend = v
	}
	if v := os.Getenv("QDRANT_URL"); v != "" {
		if cfg.Index.Qdrant == nil {
			cfg.Index.Qdrant = &QdrantConfig{TimeoutSecs: 15}
		}
		cfg.Index.Qdrant.URL = v
	}
	if v := os.Getenv("LIBRARIAN_TOP_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TopK = n
		}
	}
	if v := os.Getenv("LIBRARIAN_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil && f > 0 {
			cfg.Temperature = float32(f)
		}
	}
	if v := os.Getenv("LIBRARIAN_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxTokens = n
		}
	}
}
