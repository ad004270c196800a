package playback

import (
	"log/slog"
	"time"

	"github.com/omni3d/studio/internal/animation"
	"github.com/omni3d/studio/pkg/core"
)

// PreviewScheduler runs every auto-play or active animation in the entity
// tree, each track on its own wall clock started the first frame it runs.
type PreviewScheduler struct {
	targets

	starts map[string]time.Time
}

// NewPreviewScheduler creates a preview-policy scheduler over finder.
func NewPreviewScheduler(finder NodeFinder, logger *slog.Logger) *PreviewScheduler {
	return &PreviewScheduler{targets: newTargets(finder, logger), starts: map[string]time.Time{}}
}

type job struct {
	anim   *core.CustomAnimation
	track  *core.AnimationTrack
	target string
	start  time.Time
}

// Frame applies one frame of every running animation and reports how many
// tracks were evaluated.
func (s *PreviewScheduler) Frame(now time.Time, entities []*core.Entity) int {
	s.beginFrame()

	next := map[string]string{}
	seen := map[string]struct{}{}
	var jobs []job
	for _, root := range entities {
		root.Walk(func(e *core.Entity) {
			for i := range e.Animations {
				anim := &e.Animations[i]
				if !anim.AutoPlay && anim.ID != e.ActiveAnimationID {
					continue
				}
				for j := range anim.Tracks {
					target := anim.Tracks[j].Target(e.ID)
					key := anim.ID + "/" + target
					start, ok := s.starts[key]
					if !ok {
						start = now
						s.starts[key] = now
					}
					seen[key] = struct{}{}
					next[target] = e.ID
					jobs = append(jobs, job{anim: anim, track: &anim.Tracks[j], target: target, start: start})
				}
			}
		})
	}

	for key := range s.starts {
		if _, ok := seen[key]; !ok {
			delete(s.starts, key)
		}
	}
	s.commit(next, entities)

	applied := 0
	for _, j := range jobs {
		pose, ok := animation.Evaluate(j.anim, j.track, float32(now.Sub(j.start).Seconds()))
		if !ok {
			continue
		}
		if node := s.node(j.target); node != nil {
			animation.ApplyPose(node, pose)
			applied++
		}
	}
	return applied
}
