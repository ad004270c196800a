// Package sqlitestorage implements the storage.Backend interface using an in-memory
// SQLite database with periodic disk dumps via VACUUM INTO.
// It wraps the GORM backend; the only SQLite-specific concerns are creating
// the in-memory DB, restoring the last dump on start, and dumping to disk.
package sqlitestorage

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/omni3d/studio/internal/config"
	"github.com/omni3d/studio/internal/database"
	"github.com/omni3d/studio/internal/model"
	gormstorage "github.com/omni3d/studio/internal/storage/gorm"

	"gorm.io/gorm"
)

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	db       *gorm.DB
	cfg      config.SQLiteConfig
	log      *slog.Logger
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates a new SQLite storage backend.
func New(cfg config.SQLiteConfig, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := database.OpenSqlite("")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}

	return &Backend{
		Backend:  gormstorage.New(gormstorage.Dependencies{DB: db, Logger: logger, Name: config.StorageSQLite}),
		db:       db,
		cfg:      cfg,
		log:      logger,
		stopChan: make(chan struct{}),
	}, nil
}

// Init migrates the schema, restores the last dump and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}
	if err := b.restore(); err != nil {
		return err
	}

	if b.cfg.Path != "" && b.cfg.DumpInterval > 0 {
		b.wg.Add(1)
		go b.dumpLoop()
	}
	return nil
}

// Close stops the dump goroutine, writes a final dump and closes the
// embedded GORM backend.
func (b *Backend) Close() error {
	close(b.stopChan)
	b.wg.Wait()
	if err := b.Backend.Close(); err != nil {
		return err
	}
	if b.cfg.Path == "" {
		return nil
	}
	return b.Dump()
}

// Dump writes the in-memory database to the configured path.
func (b *Backend) Dump() error {
	start := time.Now()
	if err := database.DumpMemoryDBToDisk(b.db, b.cfg.Path); err != nil {
		return err
	}
	b.log.Debug("dumped projects to disk", "path", b.cfg.Path, "duration", time.Since(start))
	return nil
}

// restore copies every row of an earlier dump into the in-memory database.
func (b *Backend) restore() error {
	if b.cfg.Path == "" {
		return nil
	}
	if _, err := os.Stat(b.cfg.Path); err != nil {
		return nil
	}

	file, err := database.OpenSqlite(b.cfg.Path)
	if err != nil {
		return fmt.Errorf("failed to open dump %s: %w", b.cfg.Path, err)
	}
	if sqlDB, err := file.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := database.Migrate(file); err != nil {
		return err
	}

	var projects []model.Project
	if err := file.Preload("Entities").Preload("Waypoints").Find(&projects).Error; err != nil {
		return fmt.Errorf("failed to read dump: %w", err)
	}
	var revisions []model.Revision
	if err := file.Find(&revisions).Error; err != nil {
		return fmt.Errorf("failed to read dump revisions: %w", err)
	}

	err = b.db.Transaction(func(tx *gorm.DB) error {
		for i := range projects {
			if err := tx.Create(&projects[i]).Error; err != nil {
				return err
			}
		}
		if len(revisions) > 0 {
			return tx.Create(&revisions).Error
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to restore dump: %w", err)
	}
	b.log.Info("restored projects from dump", "path", b.cfg.Path, "projects", len(projects))
	return nil
}

// dumpLoop periodically dumps the in-memory SQLite database to disk via VACUUM INTO.
func (b *Backend) dumpLoop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Dump(); err != nil {
				b.log.Error("dump to disk failed", "error", err)
			}
		}
	}
}
