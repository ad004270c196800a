package animation

import (
	"math"

	"github.com/google/uuid"
	"github.com/omni3d/studio/internal/scene"
	"github.com/omni3d/studio/pkg/core"
)

// RecordEpsilon is the time window within which a recorded keyframe
// overwrites an existing one instead of being inserted next to it.
const RecordEpsilon = 0.005

// Capture snapshots the live state of node as a linear keyframe at time.
// Opacity is read from the last material found in the subtree.
func Capture(node scene.LiveNode, time float32) core.Keyframe {
	tr := node.Transform()
	pos, rot, scale := tr.Position, tr.Rotation, tr.Scale
	visible := node.Visible()
	opacity := float32(1)
	scene.Walk(node, func(n scene.LiveNode) {
		if mats := n.Materials(); len(mats) > 0 {
			opacity = mats[0].Opacity
		}
	})
	return core.Keyframe{
		Time:     time,
		Position: &pos,
		Rotation: &rot,
		Scale:    &scale,
		Opacity:  &opacity,
		Visible:  &visible,
		Easing:   core.EaseLinear,
	}
}

// Record writes kf into anim at the visual progress of scrubTime. The track
// addressing targetID is created on demand; an empty targetID addresses the
// owning entity root. It returns the stored keyframe time.
func Record(anim *core.CustomAnimation, ownerID, targetID string, kf core.Keyframe, scrubTime float32) float32 {
	at := Progress(scrubTime, anim.Duration, anim.LoopType)
	kf.Time = at

	if targetID == "" {
		targetID = ownerID
	}
	track := anim.Track(ownerID, targetID)
	if track == nil {
		if targetID == ownerID {
			targetID = ""
		}
		anim.Tracks = append(anim.Tracks, core.AnimationTrack{
			ID:        uuid.NewString(),
			TargetID:  targetID,
			Keyframes: []core.Keyframe{kf},
		})
		return at
	}

	for i := range track.Keyframes {
		if math.Abs(float64(track.Keyframes[i].Time-at)) < RecordEpsilon {
			track.Keyframes[i].Merge(kf)
			return at
		}
	}
	track.Keyframes = append(track.Keyframes, kf)
	track.SortKeyframes()
	return at
}
