package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alfredjeanlab/catalog/internal/config"
	"github.com/alfredjeanlab/catalog/internal/docstore"
	"github.com/alfredjeanlab/catalog/internal/schema"
	"github.com/alfredjeanlab/catalog/internal/store"
	"github.com/alfredjeanlab/catalog/internal/store/memory"
	"github.com/alfredjeanlab/catalog/internal/store/postgres"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

// loadSchema returns the registry from cfg.SchemaFile, or the built-in one.
func loadSchema(cfg *config.Config) (*schema.Registry, error) {
	if cfg.SchemaFile == "" {
		return schema.Builtin(), nil
	}
	reg, err := schema.LoadFile(cfg.SchemaFile)
	if err != nil {
		return nil, fmt.Errorf("loading schema: %w", err)
	}
	return reg, nil
}

// openStore connects to Postgres when a database URL is configured and
// falls back to the in-memory engine otherwise.
func openStore(cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("CATALOG_DATABASE_URL not set, using in-memory store")
		return memory.New(), nil
	}
	s, err := postgres.New(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// openDocs loads config, schema and store and returns the document client.
// The returned store must be closed by the caller.
func openDocs(logger *slog.Logger) (*config.Config, *docstore.Client, store.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	reg, err := loadSchema(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	s, err := openStore(cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, docstore.New(s, reg), s, nil
}
