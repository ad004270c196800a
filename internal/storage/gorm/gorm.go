// Package gormstorage implements storage.Backend on any GORM dialect. The
// sqlite and postgres backends embed it and only differ in how they
// connect.
package gormstorage

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/omni3d/studio/internal/database"
	"github.com/omni3d/studio/internal/model"
	"github.com/omni3d/studio/internal/model/convert"
	"github.com/omni3d/studio/internal/queue"
	"github.com/omni3d/studio/internal/storage"
	"github.com/omni3d/studio/pkg/core"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// revisionFlushInterval is how often queued revision rows are written.
const revisionFlushInterval = 2 * time.Second

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB     *gorm.DB
	Logger *slog.Logger
	// Name labels revision rows with the backend that wrote them.
	Name string
}

// Backend implements storage.Backend with one transaction per save.
// Revision rows are queued and written in batches by a background writer.
type Backend struct {
	deps      Dependencies
	revisions *queue.Queue[model.Revision]
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Name == "" {
		deps.Name = "gorm"
	}
	return &Backend{
		deps:      deps,
		revisions: queue.New[model.Revision](),
	}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB { return b.deps.DB }

// Init migrates the schema and starts the revision writer.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return fmt.Errorf("gorm backend has no database")
	}
	if err := database.Migrate(b.deps.DB); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.stopChan = make(chan struct{})
	b.wg.Add(1)
	go b.revisionWriter()
	return nil
}

// Close stops the revision writer after a final flush.
func (b *Backend) Close() error {
	var err error
	b.closeOnce.Do(func() {
		if b.stopChan != nil {
			close(b.stopChan)
			b.wg.Wait()
		}
		err = b.FlushRevisions()
	})
	return err
}

// SaveProject replaces the stored project with p.
func (b *Backend) SaveProject(p *core.Project) error {
	row, err := convert.ProjectToModel(p)
	if err != nil {
		return err
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = time.Now().UTC()
	}
	entities, waypoints := row.Entities, row.Waypoints
	row.Entities, row.Waypoints = nil, nil

	err = b.deps.DB.Transaction(func(tx *gorm.DB) error {
		upsert := clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at", "tour_path", "tour_length"}),
		}
		if err := tx.Clauses(upsert).Create(&row).Error; err != nil {
			return fmt.Errorf("failed to save project: %w", err)
		}
		if err := tx.Where("project_id = ?", p.ID).Delete(&model.Entity{}).Error; err != nil {
			return fmt.Errorf("failed to clear entities: %w", err)
		}
		if err := tx.Where("project_id = ?", p.ID).Delete(&model.Waypoint{}).Error; err != nil {
			return fmt.Errorf("failed to clear waypoints: %w", err)
		}
		if len(entities) > 0 {
			if err := tx.Create(&entities).Error; err != nil {
				return fmt.Errorf("failed to insert entities: %w", err)
			}
		}
		if len(waypoints) > 0 {
			if err := tx.Create(&waypoints).Error; err != nil {
				return fmt.Errorf("failed to insert waypoints: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	summary := storage.Summarize(p)
	b.revisions.Push(model.Revision{
		ProjectID:   p.ID,
		SavedAt:     time.Now().UTC(),
		EntityCount: summary.Entities,
		Waypoints:   summary.Waypoints,
		Backend:     b.deps.Name,
	})
	b.deps.Logger.Debug("project saved", "project", p.ID, "entities", len(entities), "waypoints", len(waypoints))
	return nil
}

// LoadProject reads a project with its entities and waypoints.
func (b *Backend) LoadProject(id string) (*core.Project, error) {
	var row model.Project
	err := b.deps.DB.Preload("Entities").Preload("Waypoints").First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", storage.ErrProjectNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load project %s: %w", id, err)
	}
	return convert.ModelToProject(row)
}

// ListProjects returns every project, most recently updated first.
func (b *Backend) ListProjects() ([]storage.Summary, error) {
	var rows []model.Project
	if err := b.deps.DB.Order("updated_at desc, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	type count struct {
		ProjectID string
		N         int
	}
	entities := map[string]int{}
	waypoints := map[string]int{}
	var counts []count
	if err := b.deps.DB.Model(&model.Entity{}).Select("project_id, count(*) as n").Group("project_id").Scan(&counts).Error; err != nil {
		return nil, fmt.Errorf("failed to count entities: %w", err)
	}
	for _, c := range counts {
		entities[c.ProjectID] = c.N
	}
	counts = nil
	if err := b.deps.DB.Model(&model.Waypoint{}).Select("project_id, count(*) as n").Group("project_id").Scan(&counts).Error; err != nil {
		return nil, fmt.Errorf("failed to count waypoints: %w", err)
	}
	for _, c := range counts {
		waypoints[c.ProjectID] = c.N
	}

	out := make([]storage.Summary, len(rows))
	for i, r := range rows {
		out[i] = storage.Summary{
			ID:        r.ID,
			Name:      r.Name,
			UpdatedAt: r.UpdatedAt,
			Entities:  entities[r.ID],
			Waypoints: waypoints[r.ID],
		}
	}
	return out, nil
}

// DeleteProject removes a project and its rows.
func (b *Backend) DeleteProject(id string) error {
	return b.deps.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&model.Project{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete project: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", storage.ErrProjectNotFound, id)
		}
		if err := tx.Where("project_id = ?", id).Delete(&model.Entity{}).Error; err != nil {
			return fmt.Errorf("failed to delete entities: %w", err)
		}
		if err := tx.Where("project_id = ?", id).Delete(&model.Waypoint{}).Error; err != nil {
			return fmt.Errorf("failed to delete waypoints: %w", err)
		}
		return nil
	})
}

// Revisions returns the written save history of a project, oldest first.
func (b *Backend) Revisions(projectID string) ([]model.Revision, error) {
	var out []model.Revision
	if err := b.deps.DB.Where("project_id = ?", projectID).Order("id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to read revisions: %w", err)
	}
	return out, nil
}

// FlushRevisions writes every queued revision row.
func (b *Backend) FlushRevisions() error {
	rows := b.revisions.Drain()
	if len(rows) == 0 {
		return nil
	}
	if err := b.deps.DB.Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to insert revisions: %w", err)
	}
	return nil
}

func (b *Backend) revisionWriter() {
	defer b.wg.Done()
	ticker := time.NewTicker(revisionFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.FlushRevisions(); err != nil {
				b.deps.Logger.Error("revision flush failed", "error", err)
			}
		}
	}
}
