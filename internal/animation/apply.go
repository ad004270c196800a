package animation

import (
	"github.com/omni3d/studio/internal/scene"
	"github.com/omni3d/studio/pkg/core"
)

// ApplyPose writes the set fields of pose onto node. Opacity applies to
// every material in the node's subtree.
func ApplyPose(node scene.LiveNode, pose core.Pose) {
	tr := node.Transform()
	if pose.Position != nil {
		tr.Position = *pose.Position
	}
	if pose.Rotation != nil {
		tr.Rotation = *pose.Rotation
	}
	if pose.Scale != nil {
		tr.Scale = *pose.Scale
	}
	node.SetTransform(tr)

	if pose.Visible != nil {
		node.SetVisible(*pose.Visible)
	}
	if pose.Opacity != nil {
		SetOpacity(node, *pose.Opacity)
	}
}

// ApplyBaseline snaps node back to the static state asserted by decl:
// transform, visibility and material opacity revert together. A node with
// no asserted opacity reverts to fully opaque.
func ApplyBaseline(node scene.LiveNode, decl *core.DeclarativeNode) {
	node.SetTransform(decl.Transform)
	node.SetVisible(decl.Visible)
	SetOpacity(node, decl.Material.OpacityOr(1))
}

// SetOpacity sets opacity and transparency on every material under node.
// Materials shared with nodes outside the write are cloned first.
func SetOpacity(node scene.LiveNode, opacity float32) {
	scene.Walk(node, func(n scene.LiveNode) {
		mats := n.Materials()
		if len(mats) == 0 {
			return
		}
		next := make([]*scene.Material, len(mats))
		changed := false
		for i, m := range mats {
			if m.Shared() {
				m = m.Clone()
				changed = true
			}
			m.Opacity = opacity
			m.Transparent = opacity < 1
			next[i] = m
		}
		if changed {
			n.SetMaterials(next)
		}
	})
}
