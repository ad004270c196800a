// Package handlers wires editor commands to project operations.
package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/omni3d/studio/internal/dispatcher"
	"github.com/omni3d/studio/internal/frame"
	"github.com/omni3d/studio/internal/project"
	"github.com/omni3d/studio/internal/reconcile"
	"github.com/omni3d/studio/internal/scene"
	"github.com/omni3d/studio/internal/storage"
	"github.com/omni3d/studio/internal/worker"
	"github.com/omni3d/studio/pkg/core"
)

// ErrNoAssetLoader is returned when a model entity is added without a loader.
var ErrNoAssetLoader = errors.New("no asset loader configured")

// AssetLoader loads the live graph of a model file.
type AssetLoader interface {
	Load(path string) (scene.LiveNode, []string, error)
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Project *project.Context
	Loop    *frame.Loop
	Backend storage.Backend
	// Sync and Assets are optional.
	Sync     *worker.Manager
	Assets   AssetLoader
	AssetDir string
	Logger   *slog.Logger
	Now      func() time.Time
}

// Service provides the editor command handlers
type Service struct {
	deps Dependencies
}

// NewService creates a new handler service
func NewService(deps Dependencies) (*Service, error) {
	if deps.Project == nil || deps.Loop == nil {
		return nil, fmt.Errorf("handlers need a project and a frame loop")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Service{deps: deps}, nil
}

// RegisterHandlers registers all editor commands with the dispatcher.
func (s *Service) RegisterHandlers(d *dispatcher.Dispatcher) {
	// Entities and structure nodes
	d.Register("entity.add", s.handleEntityAdd, dispatcher.Logged())
	d.Register("entity.remove", s.handleEntityRemove, dispatcher.Logged())
	d.Register("entity.update", s.handleEntityUpdate, dispatcher.Logged())
	d.Register("entity.duplicate", s.handleEntityDuplicate, dispatcher.Logged())
	d.Register("entity.select", s.handleEntitySelect)
	d.Register("node.update", s.handleNodeUpdate, dispatcher.Logged())
	d.Register("node.duplicate", s.handleNodeDuplicate, dispatcher.Logged())
	d.Register("node.remove", s.handleNodeRemove, dispatcher.Logged())

	// Timeline and playback
	d.Register("timeline.open", s.handleTimelineOpen, dispatcher.Logged())
	d.Register("timeline.close", s.handleTimelineClose, dispatcher.Logged())
	d.Register("timeline.scrub", s.handleTimelineScrub)
	d.Register("timeline.play", s.handleTimelinePlay, dispatcher.Logged())
	d.Register("timeline.record", s.handleTimelineRecord, dispatcher.Logged())
	d.Register("transform.begin", s.handleTransformBegin)
	d.Register("transform.end", s.handleTransformEnd, dispatcher.Logged())
	d.Register("animation.toggle", s.handleAnimationToggle, dispatcher.Logged())
	d.Register("playback.mode", s.handlePlaybackMode, dispatcher.Logged())

	// Camera tour
	d.Register("waypoint.add", s.handleWaypointAdd, dispatcher.Logged())
	d.Register("waypoint.update", s.handleWaypointUpdate, dispatcher.Logged())
	d.Register("waypoint.remove", s.handleWaypointRemove, dispatcher.Logged())
	d.Register("tour.toggle", s.handleTourToggle, dispatcher.Logged())

	// Data source values arrive at polling rate - buffered
	d.Register("bindings.values", s.handleBindingValues, dispatcher.Buffered(1000))

	// History and persistence
	d.Register("history.undo", s.handleUndo, dispatcher.Logged())
	d.Register("history.redo", s.handleRedo, dispatcher.Logged())
	d.Register("project.rename", s.handleProjectRename, dispatcher.Logged())
	d.Register("project.save", s.handleProjectSave, dispatcher.Logged())
	d.Register("project.load", s.handleProjectLoad, dispatcher.Logged())
	d.Register("project.list", s.handleProjectList)
}

// changed reports edited entities to the sync worker.
func (s *Service) changed(ids ...string) {
	if s.deps.Sync != nil {
		s.deps.Sync.EntityChanged(ids...)
	}
}

func (s *Service) dirty() {
	if s.deps.Sync != nil {
		s.deps.Sync.MarkDirty()
	}
}

// entityRef addresses an entity.
type entityRef struct {
	ID string `json:"id"`
}

// nodeRef addresses a structure node of an entity.
type nodeRef struct {
	EntityID string `json:"entityId"`
	NodeID   string `json:"nodeId"`
}

type addEntityPayload struct {
	Kind     string `json:"kind"`
	URL      string `json:"url,omitempty"`
	ParentID string `json:"parentId,omitempty"`
}

func (s *Service) handleEntityAdd(e dispatcher.Event) (any, error) {
	p, err := dispatcher.Decode[addEntityPayload](e)
	if err != nil {
		return nil, err
	}
	if p.Kind == "" {
		return nil, fmt.Errorf("entity.add: kind is required")
	}

	if p.Kind == core.EntityModel {
		return s.addModel(p)
	}
	if p.ParentID == "" {
		ent := s.deps.Project.AddEntity(p.Kind, p.URL)
		s.changed(ent.ID)
		return ent.ID, nil
	}
	ent := project.NewEntity(s.deps.Project.NewID(), p.Kind, p.Kind, p.URL)
	if err := s.deps.Project.InsertEntity(ent, p.ParentID); err != nil {
		return nil, fmt.Errorf("entity.add under %s: %w", p.ParentID, err)
	}
	s.changed(ent.ID)
	return ent.ID, nil
}

// addModel loads the asset, derives its declarative tree and hands the live
// graph to the frame loop.
func (s *Service) addModel(p addEntityPayload) (any, error) {
	if s.deps.Assets == nil {
		return nil, ErrNoAssetLoader
	}
	live, anims, err := s.deps.Assets.Load(assetPath(s.deps.AssetDir, p.URL))
	if err != nil {
		return nil, fmt.Errorf("entity.add: %w", err)
	}

	name := filepath.Base(p.URL)
	name = name[:len(name)-len(filepath.Ext(name))]
	id := s.deps.Project.NewID()
	ent := project.NewEntity(id, core.EntityModel, name, p.URL)
	ent.Structure = reconcile.DeriveTree(live, anims)
	if err := s.deps.Project.InsertEntity(ent, p.ParentID); err != nil {
		return nil, fmt.Errorf("entity.add under %s: %w", p.ParentID, err)
	}
	s.deps.Loop.AttachAsset(id, live)
	s.changed(id)
	s.deps.Logger.Info("model added", "entity", id, "url", p.URL, "animations", len(anims))
	return id, nil
}

func (s *Service) handleEntityRemove(e dispatcher.Event) (any, error) {
	p, err := dispatcher.Decode[entityRef](e)
	if err != nil {
		return nil, err
	}
	if err := s.deps.Project.RemoveEntity(p.ID); err != nil {
		return nil, fmt.Errorf("entity.remove %s: %w", p.ID, err)
	}
	s.changed(p.ID)
	return nil, nil
}

type updateEntityPayload struct {
	ID string `json:"id"`
	project.EntityPatch
}

func (s *Service) handleEntityUpdate(e dispatcher.Event) (any, error) {
	p, err := dispatcher.Decode[updateEntityPayload](e)
	if err != nil {
		return nil, err
	}
	if err := s.deps.Project.UpdateEntity(p.ID, p.EntityPatch); err != nil {
		return nil, fmt.Errorf("entity.update %s: %w", p.ID, err)
	}
	s.changed(p.ID)
	return nil, nil
}

func (s *Service) handleEntityDuplicate(e dispatcher.Event) (any, error) {
	p, err := dispatcher.Decode[entityRef](e)
	if err != nil {
		return nil, err
	}
	id, err := s.deps.Project.DuplicateEntity(p.ID)
	if err != nil {
		return nil, fmt.Errorf("entity.duplicate %s: %w", p.ID, err)
	}
	s.attachModels("entity.duplicate")
	s.changed(id)
	return id, nil
}

func (s *Service) handleEntitySelect(e dispatcher.Event) (any, error) {
	p, err := dispatcher.Decode[nodeRef](e)
	if err != nil {
		return nil, err
	}
	return nil, s.deps.Project.Select(p.EntityID, p.NodeID)
}

type updateNodePayload struct {
	nodeRef
	project.NodePatch
}

func (s *Service) handleNodeUpdate(e dispatcher.Event) (any, error) {
	p, err := dispatcher.Decode[updateNodePayload](e)
	if err != nil {
		return nil, err
	}
	if err := s.deps.Project.UpdateNode(p.EntityID, p.NodeID, p.NodePatch); err != nil {
		return nil, fmt.Errorf("node.update %s/%s: %w", p.EntityID, p.NodeID, err)
	}
	s.changed(p.EntityID)
	return nil, nil
}

func (s *Service) handleNodeDuplicate(e dispatcher.Event) (any, error) {
	p, err := dispatcher.Decode[nodeRef](e)
	if err != nil {
		return nil, err
	}
	id, err := s.deps.Project.DuplicateNode(p.EntityID, p.NodeID)
	if err != nil {
		return nil, fmt.Errorf("node.duplicate %s/%s: %w", p.EntityID, p.NodeID, err)
	}
	s.changed(p.EntityID)
	return id, nil
}

func (s *Service) handleNodeRemove(e dispatcher.Event) (any, error) {
	p, err := dispatcher.Decode[nodeRef](e)
	if err != nil {
		return nil, err
	}
	if err := s.deps.Project.RemoveNode(p.EntityID, p.NodeID); err != nil {
		return nil, fmt.Errorf("node.remove %s/%s: %w", p.EntityID, p.NodeID, err)
	}
	s.changed(p.EntityID)
	return nil, nil
}
