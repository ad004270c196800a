package playback

import (
	"log/slog"
	"math"
	"time"

	"github.com/omni3d/studio/internal/animation"
	"github.com/omni3d/studio/pkg/core"
)

// scrubEpsilon is the smallest scrub movement that triggers re-evaluation.
const scrubEpsilon = 1e-4

// Timeline is the state of the animation open for editing.
type Timeline struct {
	EntityID    string  `json:"entityId"`
	AnimationID string  `json:"animationId"`
	Time        float32 `json:"time"`
	Playing     bool    `json:"playing"`
	// Revision changes whenever the open animation's keyframes are edited.
	Revision    uint64  `json:"revision"`
}

// Open reports whether an animation is open.
func (tl Timeline) Open() bool {
	return tl.EntityID != "" && tl.AnimationID != ""
}

// EditScheduler runs the single animation open in the timeline. Time is the
// scrub position, advanced by wall-clock delta only while playing.
type EditScheduler struct {
	targets

	last       time.Time
	prevEntity string
	prevAnim   string
	prevTime   float32
	prevRev    uint64
	dirty      bool
}

// NewEditScheduler creates an edit-policy scheduler over finder.
func NewEditScheduler(finder NodeFinder, logger *slog.Logger) *EditScheduler {
	return &EditScheduler{targets: newTargets(finder, logger), dirty: true}
}

// Invalidate forces the next frame to re-evaluate, e.g. after keyframes
// were edited without moving the scrub head.
func (s *EditScheduler) Invalidate() {
	s.dirty = true
}

// Frame advances tl when playing and applies the open animation's poses.
// transforming reports entities being dragged by the user; their targets
// stay driven but are not written this frame. It reports whether poses were
// written.
func (s *EditScheduler) Frame(now time.Time, entities []*core.Entity, tl *Timeline, transforming func(entityID string) bool) bool {
	var dt float32
	if !s.last.IsZero() {
		dt = float32(now.Sub(s.last).Seconds())
	}
	s.last = now
	s.beginFrame()

	var entity *core.Entity
	var anim *core.CustomAnimation
	if tl != nil && tl.Open() {
		entity = core.FindEntity(entities, tl.EntityID)
		if entity != nil {
			anim = entity.Animation(tl.AnimationID)
		}
	}
	if anim == nil {
		s.commit(map[string]string{}, entities)
		s.prevEntity, s.prevAnim = "", ""
		return false
	}

	if tl.Playing {
		tl.Time += dt
		if anim.LoopType == core.LoopOnce && tl.Time >= anim.Duration {
			tl.Time = anim.Duration
			tl.Playing = false
		}
	}

	next := make(map[string]string, len(anim.Tracks))
	for i := range anim.Tracks {
		next[anim.Tracks[i].Target(entity.ID)] = entity.ID
	}
	s.commit(next, entities)

	if transforming != nil && transforming(entity.ID) {
		return false
	}

	changed := s.dirty || tl.Playing || tl.Revision != s.prevRev ||
		entity.ID != s.prevEntity || anim.ID != s.prevAnim ||
		math.Abs(float64(tl.Time-s.prevTime)) > scrubEpsilon
	if !changed {
		return false
	}
	s.prevEntity, s.prevAnim, s.prevTime, s.prevRev = entity.ID, anim.ID, tl.Time, tl.Revision
	s.dirty = false

	for i := range anim.Tracks {
		track := &anim.Tracks[i]
		pose, ok := animation.Evaluate(anim, track, tl.Time)
		if !ok {
			continue
		}
		if node := s.node(track.Target(entity.ID)); node != nil {
			animation.ApplyPose(node, pose)
		}
	}
	return true
}
