package handlers

import (
	"fmt"

	"github.com/omni3d/studio/internal/dispatcher"
	"github.com/omni3d/studio/internal/frame"
	"github.com/omni3d/studio/internal/project"
	"github.com/omni3d/studio/pkg/core"
)

type timelinePayload struct {
	EntityID    string `json:"entityId"`
	AnimationID string `json:"animationId"`
}

func (s *Service) handleTimelineOpen(e dispatcher.Event) (any, error) {
	p, err := dispatcher.Decode[timelinePayload](e)
	if err != nil {
		return nil, err
	}
	if err := s.deps.Project.OpenTimeline(p.EntityID, p.AnimationID); err != nil {
		return nil, fmt.Errorf("timeline.open %s/%s: %w", p.EntityID, p.AnimationID, err)
	}
	return s.deps.Project.Timeline(), nil
}

func (s *Service) handleTimelineClose(dispatcher.Event) (any, error) {
	s.deps.Project.CloseTimeline()
	return nil, nil
}

type scrubPayload struct {
	Time float32 `json:"time"`
}

func (s *Service) handleTimelineScrub(e dispatcher.Event) (any, error) {
	p, err := dispatcher.Decode[scrubPayload](e)
	if err != nil {
		return nil, err
	}
	return nil, s.deps.Project.Scrub(p.Time)
}

type playPayload struct {
	Playing bool `json:"playing"`
}

func (s *Service) handleTimelinePlay(e dispatcher.Event) (any, error) {
	p, err := dispatcher.Decode[playPayload](e)
	if err != nil {
		return nil, err
	}
	return nil, s.deps.Project.SetPlaying(p.Playing)
}

// handleTimelineRecord captures the live pose of the selection into the
// open animation and returns the keyframe time.
func (s *Service) handleTimelineRecord(dispatcher.Event) (any, error) {
	at, err := s.deps.Project.RecordKeyframe(s.deps.Loop.Graph())
	if err != nil {
		return nil, fmt.Errorf("timeline.record: %w", err)
	}
	s.changed(s.deps.Project.Timeline().EntityID)
	return at, nil
}

func (s *Service) handleTransformBegin(e dispatcher.Event) (any, error) {
	p, err := dispatcher.Decode[entityRef](e)
	if err != nil {
		return nil, err
	}
	s.deps.Project.BeginTransform(p.ID)
	return nil, nil
}

type transformPayload struct {
	ID        string         `json:"id"`
	Transform core.Transform `json:"transform"`
}

func (s *Service) handleTransformEnd(e dispatcher.Event) (any, error) {
	p, err := dispatcher.Decode[transformPayload](e)
	if err != nil {
		return nil, err
	}
	if err := s.deps.Project.EndTransform(p.ID, p.Transform); err != nil {
		return nil, fmt.Errorf("transform.end %s: %w", p.ID, err)
	}
	s.changed(p.ID)
	return nil, nil
}

func (s *Service) handleAnimationToggle(e dispatcher.Event) (any, error) {
	p, err := dispatcher.Decode[timelinePayload](e)
	if err != nil {
		return nil, err
	}
	active, err := s.deps.Project.ToggleAnimation(p.EntityID, p.AnimationID)
	if err != nil {
		return nil, fmt.Errorf("animation.toggle %s/%s: %w", p.EntityID, p.AnimationID, err)
	}
	s.changed(p.EntityID)
	return active, nil
}

type modePayload struct {
	Mode frame.Mode `json:"mode"`
}

func (s *Service) handlePlaybackMode(e dispatcher.Event) (any, error) {
	p, err := dispatcher.Decode[modePayload](e)
	if err != nil {
		return nil, err
	}
	if err := s.deps.Loop.SetMode(p.Mode); err != nil {
		return nil, err
	}
	return p.Mode, nil
}

type waypointPayload struct {
	Position    *core.Vec3 `json:"position,omitempty"`
	Orientation *core.Quat `json:"orientation,omitempty"`
	OrbitTarget *core.Vec3 `json:"orbitTarget,omitempty"`
}

// handleWaypointAdd appends a stop. Missing fields are taken from the
// current camera and orbit pivot.
func (s *Service) handleWaypointAdd(e dispatcher.Event) (any, error) {
	p, err := dispatcher.Decode[waypointPayload](e)
	if err != nil {
		return nil, err
	}
	g := s.deps.Loop.Graph()
	pos, orient, target := g.Camera.Position, g.Camera.Orientation, g.Orbit.Target
	if p.Position != nil {
		pos = *p.Position
	}
	if p.Orientation != nil {
		orient = *p.Orientation
	}
	if p.OrbitTarget != nil {
		target = *p.OrbitTarget
	}
	id := s.deps.Project.AddWaypoint(pos, orient, target)
	s.dirty()
	return id, nil
}

type updateWaypointPayload struct {
	ID string `json:"id"`
	project.WaypointPatch
}

func (s *Service) handleWaypointUpdate(e dispatcher.Event) (any, error) {
	p, err := dispatcher.Decode[updateWaypointPayload](e)
	if err != nil {
		return nil, err
	}
	if err := s.deps.Project.UpdateWaypoint(p.ID, p.WaypointPatch); err != nil {
		return nil, fmt.Errorf("waypoint.update %s: %w", p.ID, err)
	}
	s.dirty()
	return nil, nil
}

func (s *Service) handleWaypointRemove(e dispatcher.Event) (any, error) {
	p, err := dispatcher.Decode[entityRef](e)
	if err != nil {
		return nil, err
	}
	if err := s.deps.Project.RemoveWaypoint(p.ID); err != nil {
		return nil, fmt.Errorf("waypoint.remove %s: %w", p.ID, err)
	}
	s.dirty()
	return nil, nil
}

func (s *Service) handleTourToggle(dispatcher.Event) (any, error) {
	return s.deps.Loop.ToggleTour(s.deps.Now()), nil
}

type valuesPayload struct {
	SourceID int            `json:"sourceId"`
	Values   map[string]any `json:"values"`
}

func (s *Service) handleBindingValues(e dispatcher.Event) (any, error) {
	p, err := dispatcher.Decode[valuesPayload](e)
	if err != nil {
		return nil, err
	}
	s.deps.Loop.PushValues(p.SourceID, p.Values)
	return nil, nil
}
