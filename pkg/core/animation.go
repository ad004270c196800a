// pkg/core/animation.go
package core

import "sort"

// LoopType selects how time past the animation's duration maps to progress.
type LoopType string

const (
	LoopOnce     LoopType = "once"
	LoopRepeat   LoopType = "loop"
	LoopPingPong LoopType = "pingpong"
)

// Easing reshapes the interpolation factor on approach to a keyframe.
type Easing string

const (
	EaseLinear    Easing = "linear"
	EaseIn        Easing = "easeIn"
	EaseOut       Easing = "easeOut"
	EaseInOut     Easing = "easeInOut"
	EaseStep      Easing = "step"
	EasingDefault Easing = ""
)

// Keyframe is a snapshot of node state at a normalized time in [0,1].
// Easing applies to the approach from the previous keyframe.
type Keyframe struct {
	Time     float32  `json:"time"`
	Position *Vec3    `json:"position,omitempty"`
	Rotation *Vec3    `json:"rotation,omitempty"`
	Scale    *Vec3    `json:"scale,omitempty"`
	Opacity  *float32 `json:"opacity,omitempty"`
	Visible  *bool    `json:"visible,omitempty"`
	Easing   Easing   `json:"easing,omitempty"`
}

// Merge overwrites the fields of k that are set on other.
func (k *Keyframe) Merge(other Keyframe) {
	if other.Position != nil {
		p := *other.Position
		k.Position = &p
	}
	if other.Rotation != nil {
		r := *other.Rotation
		k.Rotation = &r
	}
	if other.Scale != nil {
		s := *other.Scale
		k.Scale = &s
	}
	if other.Opacity != nil {
		k.Opacity = cloneFloat(other.Opacity)
	}
	if other.Visible != nil {
		k.Visible = cloneBool(other.Visible)
	}
	if other.Easing != EasingDefault {
		k.Easing = other.Easing
	}
}

// Clone returns a copy that shares no pointers with k.
func (k Keyframe) Clone() Keyframe {
	c := Keyframe{Time: k.Time}
	c.Merge(k)
	return c
}

// AnimationTrack drives one node. An empty TargetID targets the owning entity.
type AnimationTrack struct {
	ID        string     `json:"id"`
	TargetID  string     `json:"targetId,omitempty"`
	Keyframes []Keyframe `json:"keyframes"`
}

// Target returns the identity the track drives for the given owner.
func (t *AnimationTrack) Target(ownerID string) string {
	if t.TargetID == "" {
		return ownerID
	}
	return t.TargetID
}

// SortKeyframes orders the keyframes by time, keeping insertion order on ties.
func (t *AnimationTrack) SortKeyframes() {
	sort.SliceStable(t.Keyframes, func(i, j int) bool {
		return t.Keyframes[i].Time < t.Keyframes[j].Time
	})
}

// CustomAnimation is a keyframed sequence owned by an entity.
type CustomAnimation struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Duration float32          `json:"duration"`
	LoopType LoopType         `json:"loopType"`
	Easing   Easing           `json:"easing,omitempty"`
	AutoPlay bool             `json:"autoPlay,omitempty"`
	Tracks   []AnimationTrack `json:"tracks"`
}

// Clone returns a deep copy.
func (a CustomAnimation) Clone() CustomAnimation {
	c := a
	if a.Tracks == nil {
		return c
	}
	c.Tracks = make([]AnimationTrack, len(a.Tracks))
	for i, t := range a.Tracks {
		c.Tracks[i] = AnimationTrack{ID: t.ID, TargetID: t.TargetID}
		if t.Keyframes == nil {
			continue
		}
		c.Tracks[i].Keyframes = make([]Keyframe, len(t.Keyframes))
		for j, k := range t.Keyframes {
			c.Tracks[i].Keyframes[j] = k.Clone()
		}
	}
	return c
}

// Track returns the track driving targetID, or nil.
func (a *CustomAnimation) Track(ownerID, targetID string) *AnimationTrack {
	for i := range a.Tracks {
		if a.Tracks[i].Target(ownerID) == targetID {
			return &a.Tracks[i]
		}
	}
	return nil
}

// Pose is the result of evaluating a track. Nil fields are left untouched.
type Pose struct {
	Position *Vec3
	Rotation *Vec3
	Scale    *Vec3
	Opacity  *float32
	Visible  *bool
}
