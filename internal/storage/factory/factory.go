// Package factory builds the configured storage backend.
package factory

import (
	"fmt"
	"log/slog"

	"github.com/omni3d/studio/internal/config"
	"github.com/omni3d/studio/internal/storage"
	"github.com/omni3d/studio/internal/storage/memory"
	"github.com/omni3d/studio/internal/storage/postgres"
	sqlitestorage "github.com/omni3d/studio/internal/storage/sqlite"
	"github.com/omni3d/studio/internal/storage/websocket"
)

// NewBackend creates a storage backend based on configuration. The
// backend is not initialized.
func NewBackend(cfg config.StorageConfig, logger *slog.Logger) (storage.Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("storage", cfg.Type)

	switch cfg.Type {
	case config.StoragePostgres:
		return postgres.New(postgres.Dependencies{Config: cfg.DB, Logger: logger}), nil
	case config.StorageSQLite:
		return sqlitestorage.New(cfg.SQLite, logger)
	case config.StorageWebsocket:
		return websocket.New(websocket.Config{URL: cfg.Publish.URL, APIKey: cfg.Publish.APIKey}, logger), nil
	case config.StorageMemory, "":
		return memory.New(cfg.Memory, logger), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
