package reconcile

import (
	"github.com/omni3d/studio/internal/scene"
	"github.com/omni3d/studio/pkg/core"
)

// OverrideMaterials replaces every material on live with an overridden
// clone. Shared instances are never written.
func OverrideMaterials(live scene.LiveNode, o *core.MaterialOverride) {
	mats := live.Materials()
	if len(mats) == 0 || o == nil {
		return
	}
	next := make([]*scene.Material, len(mats))
	for i, m := range mats {
		c := m.Clone()
		ApplyOverride(c, o)
		next[i] = c
	}
	live.SetMaterials(next)
}

// ApplyOverride writes the set fields of o onto m.
func ApplyOverride(m *scene.Material, o *core.MaterialOverride) {
	if o.Color != "" {
		m.Color = o.Color
	}
	if o.Emissive != "" {
		m.Emissive = o.Emissive
	}
	if o.EmissiveIntensity != nil {
		m.EmissiveIntensity = *o.EmissiveIntensity
	}
	if o.Metalness != nil {
		m.Metalness = *o.Metalness
	}
	if o.Roughness != nil {
		m.Roughness = *o.Roughness
	}
	if o.Opacity != nil {
		m.Opacity = *o.Opacity
	}
	if o.Transparent != nil {
		m.Transparent = *o.Transparent
	}
	if o.Wireframe != nil {
		m.Wireframe = *o.Wireframe
	}
	if o.MapURL != "" {
		m.MapURL = o.MapURL
	}
}

// Snapshot captures a material as an override asserting every field.
func Snapshot(m *scene.Material) *core.MaterialOverride {
	return &core.MaterialOverride{
		Color:             m.Color,
		Emissive:          m.Emissive,
		EmissiveIntensity: core.Float(m.EmissiveIntensity),
		Metalness:         core.Float(m.Metalness),
		Roughness:         core.Float(m.Roughness),
		Opacity:           core.Float(m.Opacity),
		Transparent:       core.Bool(m.Transparent),
		Wireframe:         core.Bool(m.Wireframe),
		MapURL:            m.MapURL,
	}
}
