// Package worker pushes editor changes to the storage backend in the
// background: incremental entity and tour updates for publishing backends
// and periodic project snapshots for all of them.
package worker

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/omni3d/studio/internal/frame"
	"github.com/omni3d/studio/internal/project"
	"github.com/omni3d/studio/internal/queue"
	"github.com/omni3d/studio/internal/storage"
	"github.com/omni3d/studio/pkg/core"
)

// ErrNoBackend is returned by Save when the manager has no backend.
var ErrNoBackend = errors.New("no storage backend configured")

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	Project *project.Context
	Backend storage.Backend
	Logger  *slog.Logger
	// Interval between flushes. Defaults to one second.
	Interval time.Duration
	// SaveEvery is the number of flushes between snapshots of a dirty
	// project. Zero disables autosave.
	SaveEvery int
}

type tourState struct {
	touring bool
	index   int
	camera  core.Vec3
}

// Manager manages the background sync goroutine
type Manager struct {
	deps      Dependencies
	publisher storage.Publisher

	changed *queue.Queue[string]

	mu          sync.Mutex
	dirty       bool
	tour        tourState
	tourPending bool
	progress    float32
	flushes     int
	lastSave    time.Duration

	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = time.Second
	}
	m := &Manager{deps: deps, changed: queue.New[string]()}
	if p, ok := deps.Backend.(storage.Publisher); ok {
		m.publisher = p
	}
	return m
}

// EntityChanged queues the entity for publishing and marks the project dirty.
// Removed entities are published as removals.
func (m *Manager) EntityChanged(ids ...string) {
	m.changed.Push(ids...)
	m.MarkDirty()
}

// MarkDirty flags the project for the next autosave.
func (m *Manager) MarkDirty() {
	m.mu.Lock()
	m.dirty = true
	m.mu.Unlock()
}

// Dirty reports whether changes are waiting for a snapshot.
func (m *Manager) Dirty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dirty
}

// ObserveFrame records the tour state of a tick. Only transitions between
// stops (and start/stop) are published.
func (m *Manager) ObserveFrame(st frame.Stats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := tourState{touring: st.Touring, index: st.TourIndex, camera: st.Camera}
	if next.touring != m.tour.touring || next.index != m.tour.index {
		m.tourPending = true
	}
	m.tour = next
	m.progress = st.TourProgress
}

// GetLastSaveDuration returns how long the latest snapshot took.
func (m *Manager) GetLastSaveDuration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSave
}

// Flush publishes the queued entity and tour updates. Every SaveEvery
// flushes a dirty project is saved as a whole.
func (m *Manager) Flush() error {
	var errs []error
	if err := m.publish(); err != nil {
		errs = append(errs, err)
	}

	m.mu.Lock()
	m.flushes++
	due := m.deps.SaveEvery > 0 && m.flushes%m.deps.SaveEvery == 0 && m.dirty
	m.mu.Unlock()
	if due {
		if err := m.Save(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) publish() error {
	ids := m.changed.Drain()

	m.mu.Lock()
	tour, tourPending, progress := m.tour, m.tourPending, m.progress
	m.tourPending = false
	m.mu.Unlock()

	if m.publisher == nil || m.deps.Project == nil {
		return nil
	}
	projectID := m.deps.Project.ID()

	var errs []error
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		e, err := m.deps.Project.Entity(id)
		if errors.Is(err, project.ErrEntityNotFound) {
			if err := m.publisher.PublishEntityRemoved(projectID, id); err != nil {
				errs = append(errs, fmt.Errorf("publishing removal of %s: %w", id, err))
			}
			continue
		}
		if err := m.publisher.PublishEntity(projectID, e); err != nil {
			errs = append(errs, fmt.Errorf("publishing entity %s: %w", id, err))
		}
	}
	if tourPending {
		if err := m.publisher.PublishTour(projectID, tour.touring, tour.index, progress, tour.camera); err != nil {
			errs = append(errs, fmt.Errorf("publishing tour state: %w", err))
		}
	}
	if len(seen) > 0 {
		m.deps.Logger.Debug("published entity updates", "project", projectID, "count", len(seen))
	}
	return errors.Join(errs...)
}

// Save writes a snapshot of the project to the backend now.
func (m *Manager) Save() error {
	if m.deps.Backend == nil {
		return ErrNoBackend
	}
	start := time.Now()
	p := m.deps.Project.Project()
	if err := m.deps.Backend.SaveProject(p); err != nil {
		return fmt.Errorf("saving project %s: %w", p.ID, err)
	}
	took := time.Since(start)

	m.mu.Lock()
	m.dirty = false
	m.lastSave = took
	m.mu.Unlock()
	m.deps.Logger.Info("project saved", "project", p.ID, "duration", took)
	return nil
}

// Start launches the background flush loop.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.running = true
	m.stopChan = make(chan struct{})
	stop := m.stopChan

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.deps.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := m.Flush(); err != nil {
					m.deps.Logger.Error("sync flush failed", "error", err)
				}
			}
		}
	}()
}

// Stop ends the loop and flushes what is pending. A dirty project is saved.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if m.running {
		close(m.stopChan)
		m.running = false
	}
	m.mu.Unlock()
	m.wg.Wait()

	err := m.publish()
	if m.Dirty() && m.deps.Backend != nil {
		err = errors.Join(err, m.Save())
	}
	return err
}
