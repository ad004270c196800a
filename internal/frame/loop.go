// Package frame runs the per-frame update chain: data bindings, structural
// reconciliation, animation playback and the camera tour, in that order.
package frame

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/omni3d/studio/internal/binding"
	"github.com/omni3d/studio/internal/playback"
	"github.com/omni3d/studio/internal/project"
	"github.com/omni3d/studio/internal/reconcile"
	"github.com/omni3d/studio/internal/scene"
	"github.com/omni3d/studio/internal/tour"
	"github.com/omni3d/studio/pkg/core"
)

// Mode selects the playback policy.
type Mode string

const (
	ModeEdit    Mode = "edit"
	ModePreview Mode = "preview"
)

// Stats describes one tick.
type Stats struct {
	Frame        uint64
	At           time.Time
	Duration     time.Duration
	BoundChanged int
	Reconciled   int
	Reconcile    reconcile.Stats
	Posed        bool
	Tracks       int
	Touring      bool
	TourIndex    int
	TourProgress float32
	// Camera is the camera position after the tour step.
	Camera core.Vec3
}

// Dependencies holds the collaborators of a Loop.
type Dependencies struct {
	Project *project.Context
	Graph   *scene.Graph
	Logger  *slog.Logger
	// Observer, if set, receives the stats of every tick.
	Observer func(Stats)
}

// Loop owns the live graph and drives it from the project state.
type Loop struct {
	project    *project.Context
	graph      *scene.Graph
	reconciler *reconcile.Reconciler
	folder     *binding.Folder
	edit       *playback.EditScheduler
	preview    *playback.PreviewScheduler
	tour       *tour.Engine
	logger     *slog.Logger
	observer   func(Stats)

	mode     Mode
	wrappers map[string]scene.LiveNode
	pending  map[string]scene.LiveNode
	attached map[string]bool
	frames   uint64

	valuesMu    sync.Mutex
	values      binding.Values
	valuesDirty bool
	lastStatsMu sync.RWMutex
	lastStats   Stats
}

// New creates a Loop in the given mode.
func New(deps Dependencies, mode Mode) (*Loop, error) {
	if deps.Project == nil {
		return nil, fmt.Errorf("frame loop needs a project")
	}
	if deps.Graph == nil {
		deps.Graph = scene.NewGraph()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if mode == "" {
		mode = ModeEdit
	}
	if mode != ModeEdit && mode != ModePreview {
		return nil, fmt.Errorf("unknown playback mode %q", mode)
	}

	r, err := reconcile.New(deps.Graph, deps.Logger)
	if err != nil {
		return nil, fmt.Errorf("creating reconciler: %w", err)
	}
	return &Loop{
		project:    deps.Project,
		graph:      deps.Graph,
		reconciler: r,
		folder:     binding.NewFolder(deps.Logger),
		edit:       playback.NewEditScheduler(deps.Graph, deps.Logger),
		preview:    playback.NewPreviewScheduler(deps.Graph, deps.Logger),
		tour:       tour.NewEngine(deps.Logger),
		logger:     deps.Logger,
		observer:   deps.Observer,
		mode:       mode,
		wrappers:   map[string]scene.LiveNode{},
		pending:    map[string]scene.LiveNode{},
		attached:   map[string]bool{},
		values:     binding.Values{},
	}, nil
}

// Graph returns the live graph.
func (l *Loop) Graph() *scene.Graph { return l.graph }

// Mode returns the playback policy in use.
func (l *Loop) Mode() Mode {
	var m Mode
	l.project.Frame(func(*project.State) { m = l.mode })
	return m
}

// SetMode switches the playback policy. Everything the previous policy was
// driving reverts to its static pose.
func (l *Loop) SetMode(mode Mode) error {
	if mode != ModeEdit && mode != ModePreview {
		return fmt.Errorf("unknown playback mode %q", mode)
	}
	l.project.Frame(func(s *project.State) {
		if mode == l.mode {
			return
		}
		if l.mode == ModeEdit {
			l.edit.Reset(s.Entities)
		} else {
			l.preview.Reset(s.Entities)
		}
		l.edit.Invalidate()
		l.mode = mode
		l.logger.Info("playback mode changed", "mode", mode)
	})
	return nil
}

// PushValues stores the latest tag values of a data source. They are
// folded into the project on the next tick.
func (l *Loop) PushValues(sourceID int, values map[string]any) {
	l.valuesMu.Lock()
	defer l.valuesMu.Unlock()
	l.values[sourceID] = maps.Clone(values)
	l.valuesDirty = true
}

// AttachAsset hands a loaded asset graph to the entity. It is placed under
// the entity's live root and reconciled on the next tick.
func (l *Loop) AttachAsset(entityID string, asset scene.LiveNode) {
	l.project.Frame(func(*project.State) {
		l.pending[entityID] = asset
	})
	l.project.Queue().Enqueue(entityID)
}

// HasAsset reports whether a loaded asset is attached to the entity's live
// root or waiting to be attached on the next tick.
func (l *Loop) HasAsset(entityID string) bool {
	var ok bool
	l.project.Frame(func(*project.State) {
		_, ok = l.pending[entityID]
		ok = ok || l.attached[entityID]
	})
	return ok
}

// Wrapper returns the live root of an entity, if built.
func (l *Loop) Wrapper(entityID string) (scene.LiveNode, bool) {
	var w scene.LiveNode
	var ok bool
	l.project.Frame(func(*project.State) {
		w, ok = l.wrappers[entityID]
	})
	return w, ok
}

// ToggleTour starts or stops the camera tour.
func (l *Loop) ToggleTour(now time.Time) bool {
	var touring bool
	l.project.Frame(func(s *project.State) {
		touring = l.tour.Toggle(now, s.Waypoints, l.graph.Orbit)
	})
	return touring
}

// TourState returns the tour's position on the ring.
func (l *Loop) TourState() tour.State {
	var st tour.State
	l.project.Frame(func(*project.State) { st = l.tour.State })
	return st
}

// LastStats returns the stats of the latest tick.
func (l *Loop) LastStats() Stats {
	l.lastStatsMu.RLock()
	defer l.lastStatsMu.RUnlock()
	return l.lastStats
}

// Tick runs one frame.
func (l *Loop) Tick(now time.Time) Stats {
	start := time.Now()
	var st Stats
	l.project.Frame(func(s *project.State) {
		l.frames++
		st.Frame = l.frames
		st.At = now

		st.BoundChanged = l.foldBindings(s)
		st.Reconciled, st.Reconcile = l.reconcile(s)
		if st.Reconciled > 0 {
			// reconciliation rewrites transforms the scheduler may be driving
			l.edit.Invalidate()
		}

		switch l.mode {
		case ModePreview:
			st.Tracks = l.preview.Frame(now, s.Entities)
			st.Posed = st.Tracks > 0
		default:
			st.Posed = l.edit.Frame(now, s.Entities, &s.Timeline, func(id string) bool {
				return s.Transforming[id]
			})
		}

		l.tour.Sync(s.Waypoints, l.graph.Orbit)
		if l.tour.Touring {
			st.TourProgress = l.tour.Frame(now, s.Waypoints, l.graph.Camera)
			l.tour.Advance(now, s.Waypoints)
		}
		st.Touring, st.TourIndex = l.tour.Touring, l.tour.Index
		st.Camera = l.graph.Camera.Position
	})
	st.Duration = time.Since(start)

	l.lastStatsMu.Lock()
	l.lastStats = st
	l.lastStatsMu.Unlock()
	if l.observer != nil {
		l.observer(st)
	}
	return st
}

func (l *Loop) foldBindings(s *project.State) int {
	l.valuesMu.Lock()
	if !l.valuesDirty {
		l.valuesMu.Unlock()
		return 0
	}
	values := maps.Clone(l.values)
	l.valuesDirty = false
	l.valuesMu.Unlock()

	changed := 0
	for _, root := range s.Entities {
		dirty := false
		root.Walk(func(e *core.Entity) {
			if l.folder.Apply(e, values) {
				dirty = true
			}
		})
		if dirty {
			changed++
			l.project.Queue().Enqueue(root.ID)
		}
	}
	return changed
}

func (l *Loop) reconcile(s *project.State) (int, reconcile.Stats) {
	var total reconcile.Stats
	done := map[string]bool{}
	n := l.project.Queue().Drain(func(id string) {
		root := rootOf(s.Entities, id)
		if root == nil {
			l.dropWrapper(id)
			return
		}
		if done[root.ID] {
			return
		}
		done[root.ID] = true
		w := l.ensureWrappers(root, l.graph.Root())
		st := l.reconciler.Reconcile(w, root.RootNode())
		total.Matched += st.Matched
		total.Created += st.Created
		total.Removed += st.Removed
		total.Skipped += st.Skipped
	})
	for id, w := range l.wrappers {
		if w.Parent() == nil {
			delete(l.wrappers, id)
			delete(l.attached, id)
		}
	}
	return n, total
}

// rootOf returns the top-level entity containing id.
func rootOf(entities []*core.Entity, id string) *core.Entity {
	for _, root := range entities {
		if core.FindEntity([]*core.Entity{root}, id) != nil {
			return root
		}
	}
	return nil
}

// Run ticks at rate frames per second until ctx is done.
func (l *Loop) Run(ctx context.Context, rate int) error {
	if rate <= 0 {
		return fmt.Errorf("invalid frame rate %d", rate)
	}
	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()
	l.logger.Info("frame loop started", "rate", rate, "mode", l.mode)
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("frame loop stopped", "frames", l.frames)
			return ctx.Err()
		case now := <-ticker.C:
			l.Tick(now)
		}
	}
}
