// Package project holds the editable scene state: entities, waypoints,
// selection, timeline and undo history. It replaces ambient global state
// with a container handed to each component explicitly.
package project

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/omni3d/studio/internal/playback"
	"github.com/omni3d/studio/internal/reconcile"
	"github.com/omni3d/studio/internal/tour"
	"github.com/omni3d/studio/pkg/core"
)

var (
	ErrEntityNotFound    = errors.New("entity not found")
	ErrNodeNotFound      = errors.New("node not found")
	ErrAnimationNotFound = errors.New("animation not found")
	ErrWaypointNotFound  = errors.New("waypoint not found")
	ErrTimelineClosed    = errors.New("no animation open in the timeline")
)

// Selection is the selected entity and, optionally, one of its structure nodes.
type Selection struct {
	EntityID string `json:"entityId"`
	NodeID   string `json:"nodeId,omitempty"`
}

// State is the mutable scene state the frame loop works on.
type State struct {
	Entities  []*core.Entity
	Waypoints []core.RoamingNode
	Selection Selection
	Timeline  playback.Timeline
	// Transforming marks entities being dragged by the user.
	Transforming map[string]bool
}

// Options tunes a Context.
type Options struct {
	ReferenceSpeed float32
	HistoryLimit   int
	NewID          func() string
	Logger         *slog.Logger
}

// Context is the project state container. All methods are safe for
// concurrent use; the frame loop takes exclusive access through Frame.
type Context struct {
	mu    sync.RWMutex
	id    string
	name  string
	state State

	history *history
	dirty   *reconcile.Queue

	referenceSpeed float32
	newID          func() string
	logger         *slog.Logger
}

// NewContext creates an empty project.
func NewContext(id, name string, opts Options) *Context {
	if opts.ReferenceSpeed <= 0 {
		opts.ReferenceSpeed = tour.ReferenceSpeed
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if id == "" {
		id = opts.NewID()
	}
	return &Context{
		id:             id,
		name:           name,
		state:          State{Transforming: map[string]bool{}},
		history:        newHistory(opts.HistoryLimit),
		dirty:          reconcile.NewQueue(),
		referenceSpeed: opts.ReferenceSpeed,
		newID:          opts.NewID,
		logger:         opts.Logger,
	}
}

// FromProject creates a Context holding a copy of p. Every entity is queued
// for reconciliation.
func FromProject(p *core.Project, opts Options) *Context {
	c := NewContext(p.ID, p.Name, opts)
	c.Load(p)
	return c
}

// ID returns the project id.
func (c *Context) ID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.id
}

// Name returns the project name.
func (c *Context) Name() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.name
}

// Rename sets the project name.
func (c *Context) Rename(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.name = name
}

// NewID returns a fresh identifier from the project's generator.
func (c *Context) NewID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.newID()
}

// Queue returns the reconciliation queue fed by declarative edits.
func (c *Context) Queue() *reconcile.Queue { return c.dirty }

// Frame runs fn with exclusive access to the state.
func (c *Context) Frame(fn func(s *State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.state)
}

// Load replaces the whole project with a copy of p and clears history.
func (c *Context) Load(p *core.Project) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p.ID != "" {
		c.id = p.ID
	}
	c.name = p.Name
	// entities of the previous project are queued so their live roots go away
	for _, e := range c.state.Entities {
		c.dirty.Enqueue(e.ID)
	}
	c.state = State{
		Entities:     core.CloneEntities(p.Entities),
		Waypoints:    tour.RecalculateTravelTimes(append([]core.RoamingNode(nil), p.Waypoints...), c.referenceSpeed),
		Timeline:     c.closedTimeline(),
		Transforming: map[string]bool{},
	}
	c.history.clear()
	for _, e := range c.state.Entities {
		c.dirty.Enqueue(e.ID)
	}
	c.logger.Info("project loaded", "id", c.id, "entities", len(p.Entities), "waypoints", len(p.Waypoints))
}

// Project returns a deep copy suitable for persistence.
func (c *Context) Project() *core.Project {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return &core.Project{
		ID:        c.id,
		Name:      c.name,
		Entities:  core.CloneEntities(c.state.Entities),
		Waypoints: append([]core.RoamingNode(nil), c.state.Waypoints...),
		UpdatedAt: time.Now().UTC(),
	}
}

// Entity returns a copy of the entity with the given id.
func (c *Context) Entity(id string) (*core.Entity, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e := core.FindEntity(c.state.Entities, id)
	if e == nil {
		return nil, ErrEntityNotFound
	}
	return e.Clone(), nil
}

// Selection returns the current selection.
func (c *Context) Selection() Selection {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Selection
}

// Select changes the selection. An empty entity id clears it.
func (c *Context) Select(entityID, nodeID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entityID != "" && core.FindEntity(c.state.Entities, entityID) == nil {
		return ErrEntityNotFound
	}
	if entityID == "" {
		nodeID = ""
	}
	c.state.Selection = Selection{EntityID: entityID, NodeID: nodeID}
	return nil
}

// markDirty queues the top-level entity containing id.
func (c *Context) markDirty(id string) {
	for _, root := range c.state.Entities {
		if core.FindEntity([]*core.Entity{root}, id) != nil {
			c.dirty.Enqueue(root.ID)
			return
		}
	}
}
