package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr != ":8000" {
		t.Errorf("addr = %q", cfg.Addr)
	}
	if cfg.Provider.Type != "openai" || cfg.Provider.APIKeyEnv != "OPENAI_API_KEY" {
		t.Errorf("provider = %+v", cfg.Provider)
	}
	if cfg.Index.Backend != "sqlite" || cfg.Index.SQLite == nil || cfg.Index.SQLite.Path != "data/librarian.db" {
		t.Errorf("index = %+v", cfg.Index)
	}
	if cfg.TopK != 3 || cfg.Temperature != 0.7 || cfg.MaxTokens != 1000 {
		t.Errorf("tuning = %+v", cfg)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `addr: ":9090"
provider:
  type: ollama
  model: llama3.2
corpus:
  path: /srv/books.txt
index:
  backend: qdrant
  qdrant:
    url: http://qdrant:6333
    collection: books
top_k: 5
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr != ":9090" {
		t.Errorf("addr = %q", cfg.Addr)
	}
	if cfg.Provider.Type != "ollama" || cfg.Provider.Model != "llama3.2" {
		t.Errorf("provider = %+v", cfg.Provider)
	}
	if cfg.Corpus.Path != "/srv/books.txt" {
		t.Errorf("corpus = %+v", cfg.Corpus)
	}
	if cfg.Index.Backend != "qdrant" || cfg.Index.Qdrant.Collection != "books" {
		t.Errorf("index = %+v", cfg.Index)
	}
	if cfg.Index.Qdrant.TimeoutSecs != 15 {
		t.Errorf("qdrant timeout default missing: %+v", cfg.Index.Qdrant)
	}
	if cfg.TopK != 5 {
		t.Errorf("top_k = %d", cfg.TopK)
	}
	// untouched values keep defaults
	if cfg.Temperature != 0.7 || cfg.MaxTokens != 1000 {
		t.Errorf("tuning = %+v", cfg)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("addr: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LIBRARIAN_ADDR", ":7070")
	t.Setenv("LIBRARIAN_PROVIDER", "gemini")
	t.Setenv("LIBRARIAN_TOP_K", "7")
	t.Setenv("LIBRARIAN_TEMPERATURE", "0.2")
	t.Setenv("LIBRARIAN_MAX_TOKENS", "500")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr != ":7070" {
		t.Errorf("addr = %q", cfg.Addr)
	}
	if cfg.Provider.Type != "gemini" {
		t.Errorf("provider type = %q", cfg.Provider.Type)
	}
	if cfg.TopK != 7 {
		t.Errorf("top_k = %d", cfg.TopK)
	}
	if cfg.Temperature != 0.2 {
		t.Errorf("temperature = %v", cfg.Temperature)
	}
	if cfg.MaxTokens != 500 {
		t.Errorf("max_tokens = %d", cfg.MaxTokens)
	}
}

func TestAPIKeyResolution(t *testing.T) {
	t.Setenv("TEST_LIBRARIAN_KEY", "sk-test")
	p := ProviderConfig{APIKeyEnv: "TEST_LIBRARIAN_KEY"}
	if p.APIKey() != "sk-test" {
		t.Errorf("api key = %q", p.APIKey())
	}

	q := QdrantConfig{}
	if q.APIKey() != "" {
		t.Errorf("unset qdrant key = %q", q.APIKey())
	}
}
