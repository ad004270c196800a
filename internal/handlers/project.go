package handlers

import (
	"fmt"

	"github.com/omni3d/studio/internal/dispatcher"
	"github.com/omni3d/studio/internal/storage"
)

func (s *Service) handleUndo(dispatcher.Event) (any, error) {
	before := s.topLevelIDs()
	ok := s.deps.Project.Undo()
	if ok {
		s.attachModels("history.undo")
		s.republish(before)
	}
	return ok, nil
}

func (s *Service) handleRedo(dispatcher.Event) (any, error) {
	before := s.topLevelIDs()
	ok := s.deps.Project.Redo()
	if ok {
		s.attachModels("history.redo")
		s.republish(before)
	}
	return ok, nil
}

// republish queues the entities before and after a history step. Undo and
// redo swap whole snapshots, so entities that vanished are published as
// removals.
func (s *Service) republish(before []string) {
	s.changed(append(before, s.topLevelIDs()...)...)
}

func (s *Service) topLevelIDs() []string {
	proj := s.deps.Project.Project()
	ids := make([]string, 0, len(proj.Entities))
	for _, e := range proj.Entities {
		ids = append(ids, e.ID)
	}
	return ids
}

type renamePayload struct {
	Name string `json:"name"`
}

func (s *Service) handleProjectRename(e dispatcher.Event) (any, error) {
	p, err := dispatcher.Decode[renamePayload](e)
	if err != nil {
		return nil, err
	}
	if p.Name == "" {
		return nil, fmt.Errorf("project.rename: name is required")
	}
	s.deps.Project.Rename(p.Name)
	s.dirty()
	return nil, nil
}

// handleProjectSave writes a snapshot now and returns its summary.
func (s *Service) handleProjectSave(dispatcher.Event) (any, error) {
	if s.deps.Sync != nil {
		if err := s.deps.Sync.Save(); err != nil {
			return nil, err
		}
		return storage.Summarize(s.deps.Project.Project()), nil
	}
	if s.deps.Backend == nil {
		return nil, fmt.Errorf("project.save: no storage backend")
	}
	proj := s.deps.Project.Project()
	if err := s.deps.Backend.SaveProject(proj); err != nil {
		return nil, fmt.Errorf("project.save: %w", err)
	}
	return storage.Summarize(proj), nil
}

func (s *Service) handleProjectLoad(e dispatcher.Event) (any, error) {
	p, err := dispatcher.Decode[entityRef](e)
	if err != nil {
		return nil, err
	}
	if s.deps.Backend == nil {
		return nil, fmt.Errorf("project.load: no storage backend")
	}
	proj, err := s.deps.Backend.LoadProject(p.ID)
	if err != nil {
		return nil, fmt.Errorf("project.load %s: %w", p.ID, err)
	}
	s.deps.Project.Load(proj)
	s.attachModels("project.load")
	s.deps.Logger.Info("project opened", "project", proj.ID, "name", proj.Name)
	return storage.Summarize(proj), nil
}

func (s *Service) handleProjectList(dispatcher.Event) (any, error) {
	if s.deps.Backend == nil {
		return nil, fmt.Errorf("project.list: no storage backend")
	}
	return s.deps.Backend.ListProjects()
}
