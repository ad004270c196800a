// Package animation evaluates keyframe tracks and writes the resulting poses
// onto live nodes.
package animation

import (
	"math"

	"github.com/omni3d/studio/pkg/core"
)

// Progress maps raw time onto visual progress in [0,1] under the loop policy.
// A looping animation that lands exactly on a cycle boundary after start
// reports 1, so the end of every cycle shows the last keyframe.
func Progress(time, duration float32, loop core.LoopType) float32 {
	if duration <= 0 {
		return 0
	}
	t := float64(time / duration)
	switch loop {
	case core.LoopRepeat:
		p := t - math.Floor(t)
		if p == 0 && t > 0 {
			return 1
		}
		return float32(p)
	case core.LoopPingPong:
		cycle := math.Floor(t)
		p := t - cycle
		if int64(cycle)%2 == 0 {
			return float32(p)
		}
		return float32(1 - p)
	default:
		return float32(math.Min(math.Max(t, 0), 1))
	}
}

// Ease reshapes a linear factor in [0,1].
func Ease(e core.Easing, alpha float32) float32 {
	switch e {
	case core.EaseIn:
		return alpha * alpha
	case core.EaseOut:
		return alpha * (2 - alpha)
	case core.EaseInOut:
		if alpha < 0.5 {
			return 2 * alpha * alpha
		}
		return -1 + (4-2*alpha)*alpha
	case core.EaseStep:
		if alpha >= 0.99 {
			return 1
		}
		return 0
	default:
		return alpha
	}
}

// Evaluate computes the pose of track at raw time in seconds. It reports
// false for a degenerate animation (no duration or no keyframes).
func Evaluate(anim *core.CustomAnimation, track *core.AnimationTrack, time float32) (core.Pose, bool) {
	if anim == nil || track == nil || anim.Duration <= 0 || len(track.Keyframes) == 0 {
		return core.Pose{}, false
	}
	return Sample(track, Progress(time, anim.Duration, anim.LoopType), anim.Easing), true
}

// Sample computes the pose at visual progress t. Easing comes from the
// approached keyframe, then def, then linear.
func Sample(track *core.AnimationTrack, t float32, def core.Easing) core.Pose {
	kfs := track.Keyframes
	if len(kfs) == 0 {
		return core.Pose{}
	}
	prev, next := &kfs[0], &kfs[0]
	for i := range kfs {
		if kfs[i].Time <= t {
			prev = &kfs[i]
		}
		if kfs[i].Time >= t {
			next = &kfs[i]
			break
		}
	}
	// past the last keyframe both ends collapse onto it
	if t > kfs[len(kfs)-1].Time {
		next = prev
	}

	var alpha float32
	if next.Time != prev.Time {
		easing := next.Easing
		if easing == core.EasingDefault {
			easing = def
		}
		alpha = Ease(easing, (t-prev.Time)/(next.Time-prev.Time))
	}

	var pose core.Pose
	if prev.Position != nil && next.Position != nil {
		pose.Position = lerpVec(*prev.Position, *next.Position, alpha)
	}
	if prev.Rotation != nil && next.Rotation != nil {
		pose.Rotation = lerpVec(*prev.Rotation, *next.Rotation, alpha)
	}
	if prev.Scale != nil && next.Scale != nil {
		pose.Scale = lerpVec(*prev.Scale, *next.Scale, alpha)
	}
	if prev.Opacity != nil && next.Opacity != nil {
		op := *prev.Opacity + (*next.Opacity-*prev.Opacity)*alpha
		pose.Opacity = &op
	}
	if prev.Visible != nil && next.Visible != nil {
		v := *prev.Visible
		if alpha >= 0.5 {
			v = *next.Visible
		}
		pose.Visible = &v
	}
	return pose
}

func lerpVec(a, b core.Vec3, alpha float32) *core.Vec3 {
	if alpha == 0 {
		return &a
	}
	if alpha == 1 {
		return &b
	}
	v := core.Vec3From(a.Math().Lerp(b.Math(), alpha))
	return &v
}
