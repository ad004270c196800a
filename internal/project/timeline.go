package project

import (
	"github.com/omni3d/studio/internal/animation"
	"github.com/omni3d/studio/internal/playback"
	"github.com/omni3d/studio/internal/scene"
	"github.com/omni3d/studio/pkg/core"
)

func (c *Context) closedTimeline() playback.Timeline {
	return playback.Timeline{Revision: c.state.Timeline.Revision + 1}
}

// Timeline returns the timeline state.
func (c *Context) Timeline() playback.Timeline {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Timeline
}

// OpenTimeline opens animID of the entity for editing. Switching entity or
// animation rewinds and pauses.
func (c *Context) OpenTimeline(entityID, animID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := core.FindEntity(c.state.Entities, entityID)
	if e == nil {
		return ErrEntityNotFound
	}
	if e.Animation(animID) == nil {
		return ErrAnimationNotFound
	}
	tl := &c.state.Timeline
	if tl.EntityID != entityID || tl.AnimationID != animID {
		tl.EntityID, tl.AnimationID = entityID, animID
		tl.Time, tl.Playing = 0, false
		tl.Revision++
	}
	return nil
}

// CloseTimeline closes the timeline; the scheduler reverts driven nodes on
// the next frame.
func (c *Context) CloseTimeline() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Timeline = c.closedTimeline()
}

// Scrub moves the timeline head to t seconds, clamped at zero.
func (c *Context) Scrub(t float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.Timeline.Open() {
		return ErrTimelineClosed
	}
	c.state.Timeline.Time = max(t, 0)
	return nil
}

// SetPlaying starts or pauses timeline playback. Playing a finished
// one-shot animation rewinds it first.
func (c *Context) SetPlaying(playing bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	tl := &c.state.Timeline
	if !tl.Open() {
		return ErrTimelineClosed
	}
	if playing && !tl.Playing {
		if e := core.FindEntity(c.state.Entities, tl.EntityID); e != nil {
			if a := e.Animation(tl.AnimationID); a != nil && a.LoopType == core.LoopOnce && tl.Time >= a.Duration {
				tl.Time = 0
			}
		}
	}
	tl.Playing = playing
	return nil
}

// RecordKeyframe captures the live state of the selected node (or the
// timeline entity when no node is selected) into the open animation at
// the current head. live resolves identities in the render graph.
func (c *Context) RecordKeyframe(live playback.NodeFinder) (float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tl := &c.state.Timeline
	if !tl.Open() {
		return 0, ErrTimelineClosed
	}
	e := core.FindEntity(c.state.Entities, tl.EntityID)
	if e == nil {
		return 0, ErrEntityNotFound
	}
	anim := e.Animation(tl.AnimationID)
	if anim == nil {
		return 0, ErrAnimationNotFound
	}
	targetID := e.ID
	if sel := c.state.Selection; sel.EntityID == e.ID && sel.NodeID != "" {
		targetID = sel.NodeID
	}
	var node scene.LiveNode
	if live != nil {
		node = live.Find(targetID)
	}
	if node == nil {
		return 0, ErrNodeNotFound
	}

	kf := animation.Capture(node, 0)
	if targetID == e.ID {
		targetID = ""
	}
	at := animation.Record(anim, e.ID, targetID, kf, tl.Time)
	tl.Revision++
	return at, nil
}

// BeginTransform suspends playback writes for the entity while the user
// drags it.
func (c *Context) BeginTransform(entityID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Transforming[entityID] = true
}

// EndTransform commits the dragged transform and resumes playback.
func (c *Context) EndTransform(entityID string, tr core.Transform) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.state.Transforming, entityID)
	e := core.FindEntity(c.state.Entities, entityID)
	if e == nil {
		return ErrEntityNotFound
	}
	if c.state.Timeline.EntityID != entityID {
		c.record()
	}
	e.Transform = tr
	c.markDirty(entityID)
	return nil
}

// Transforming reports whether the entity is being dragged.
func (c *Context) Transforming(entityID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Transforming[entityID]
}
