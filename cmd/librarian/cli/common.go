package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/felixgeelhaar/librarian/internal/config"
	"github.com/felixgeelhaar/librarian/internal/corpus"
	"github.com/felixgeelhaar/librarian/internal/guard"
	"github.com/felixgeelhaar/librarian/internal/index"
	"github.com/felixgeelhaar/librarian/internal/librarian"
	"github.com/felixgeelhaar/librarian/internal/observe"
	"github.com/felixgeelhaar/librarian/internal/provider"
)

func newObserver() *observe.Observer {
	if jsonLogs {
		return observe.NewJSON(os.Stdout, verbose)
	}
	return observe.New(os.Stdout, verbose)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	// flags win over file and environment
	if providerType != "" {
		cfg.Provider.Type = providerType
	}
	if modelName != "" {
		cfg.Provider.Model = modelName
	}
	return cfg, nil
}

func newProvider(cfg *config.Config) (provider.Provider, error) {
	opts := provider.Options{
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}
	switch cfg.Provider.Type {
	case "openai":
		return provider.NewOpenAIProvider(cfg.Provider.APIKey(), cfg.Provider.BaseURL, cfg.Provider.Model, opts)
	case "ollama":
		return provider.NewOllamaProvider(cfg.Provider.Model, opts)
	case "gemini":
		return provider.NewGeminiProvider(cfg.Provider.APIKey(), cfg.Provider.Model, opts)
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider.Type)
	}
}

func newBackend(cfg *config.Config) (index.Backend, func() error, error) {
	switch cfg.Index.Backend {
	case "qdrant":
		q := cfg.Index.Qdrant
		backend := index.NewQdrantBackend(index.QdrantConfig{
			URL:        q.URL,
			APIKey:     q.APIKey(),
			Collection: q.Collection,
			Timeout:    time.Duration(q.TimeoutSecs) * time.Second,
		})
		return backend, func() error { return nil }, nil
	case "sqlite":
		backend, err := index.NewSQLiteBackend(cfg.Index.SQLite.Path, cfg.Index.SQLite.Collection)
		if err != nil {
			return nil, nil, err
		}
		return backend, backend.Close, nil
	case "memory":
		return index.NewMemoryBackend(""), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown index backend %q", cfg.Index.Backend)
	}
}

type app struct {
	cfg     *config.Config
	obs     *observe.Observer
	catalog *corpus.Store
	service *librarian.Service
	close   func() error
}

// newApp wires the full service stack from configuration.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	obs := newObserver()

	p, err := newProvider(cfg)
	if err != nil {
		obs.Close()
		return nil, fmt.Errorf("init provider: %w", err)
	}

	backend, closeBackend, err := newBackend(cfg)
	if err != nil {
		obs.Close()
		return nil, fmt.Errorf("init index backend: %w", err)
	}

	catalog := corpus.NewStore(cfg.Corpus.Path, obs)
	lib := index.New(p, backend, obs)

	// Only some providers can moderate; the guard fails open without one.
	var classifier provider.Classifier
	if c, ok := p.(provider.Classifier); ok {
		classifier = c
	}

	svc := librarian.NewService(guard.New(classifier, obs), lib, catalog, p, obs, cfg.TopK)

	return &app{
		cfg:     cfg,
		obs:     obs,
		catalog: catalog,
		service: svc,
		close: func() error {
			err := closeBackend()
			obs.Close()
			return err
		},
	}, nil
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
