// internal/storage/memory/memory.go
package memory

import (
	"cmp"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/omni3d/studio/internal/config"
	"github.com/omni3d/studio/internal/storage"
	"github.com/omni3d/studio/pkg/core"
)

// Backend keeps projects in memory and writes each save to a JSON export
// in the output directory. Exports found there are loaded on Init.
type Backend struct {
	cfg config.MemoryConfig
	log *slog.Logger

	projects       map[string]*core.Project
	files          map[string]string
	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		cfg:      cfg,
		log:      logger,
		projects: make(map[string]*core.Project),
		files:    make(map[string]string),
	}
}

// Init loads the exports already in the output directory.
func (b *Backend) Init() error {
	if b.cfg.OutputDir == "" {
		return nil
	}
	entries, err := os.ReadDir(b.cfg.OutputDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read output directory: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, entry := range entries {
		if entry.IsDir() || !isExport(entry.Name()) {
			continue
		}
		path := filepath.Join(b.cfg.OutputDir, entry.Name())
		export, err := readExport(path)
		if err != nil {
			b.log.Warn("skipping unreadable export", "path", path, "error", err)
			continue
		}
		if prev, ok := b.projects[export.Project.ID]; ok && prev.UpdatedAt.After(export.Project.UpdatedAt) {
			continue
		}
		b.projects[export.Project.ID] = export.Project
		b.files[export.Project.ID] = path
	}
	b.log.Debug("loaded project exports", "dir", b.cfg.OutputDir, "projects", len(b.projects))
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// SaveProject stores a copy of p and exports it.
func (b *Backend) SaveProject(p *core.Project) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	stored := p.Clone()
	b.projects[p.ID] = stored
	if b.cfg.OutputDir == "" {
		return nil
	}
	path, err := b.exportJSON(stored)
	if err != nil {
		return err
	}
	if prev, ok := b.files[p.ID]; ok && prev != path {
		_ = os.Remove(prev)
	}
	b.files[p.ID] = path
	return nil
}

// LoadProject returns a copy of the stored project.
func (b *Backend) LoadProject(id string) (*core.Project, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	p, ok := b.projects[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrProjectNotFound, id)
	}
	return p.Clone(), nil
}

// ListProjects returns every project, most recently updated first.
func (b *Backend) ListProjects() ([]storage.Summary, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]storage.Summary, 0, len(b.projects))
	for _, p := range b.projects {
		out = append(out, storage.Summarize(p))
	}
	slices.SortFunc(out, func(a, c storage.Summary) int {
		if n := c.UpdatedAt.Compare(a.UpdatedAt); n != 0 {
			return n
		}
		return cmp.Compare(a.ID, c.ID)
	})
	return out, nil
}

// DeleteProject drops the project and its export file.
func (b *Backend) DeleteProject(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.projects[id]; !ok {
		return fmt.Errorf("%w: %s", storage.ErrProjectNotFound, id)
	}
	delete(b.projects, id)
	if path, ok := b.files[id]; ok {
		delete(b.files, id)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove export: %w", err)
		}
	}
	return nil
}

// LastExportPath returns the file written by the latest save.
func (b *Backend) LastExportPath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
