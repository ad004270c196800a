package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pumpEntity() *Entity {
	return &Entity{
		ID: "pump", Name: "Pump", Kind: EntityModel, Visible: true, URL: "pump.glb",
		Transform: IdentityTransform(),
		Material:  &MaterialOverride{Color: "#222222"},
		Structure: pumpTree(),
		Animations: []CustomAnimation{{
			ID: "spin", Duration: 2, LoopType: LoopRepeat,
			Tracks: []AnimationTrack{
				{ID: "t1", TargetID: "wheel", Keyframes: []Keyframe{{Time: 0, Position: &Vec3{1, 2, 3}}}},
				{ID: "t2"},
			},
		}},
		Bindings: map[string]PropertyBinding{"wheel:visible": {Enabled: true, DataSourceID: 1, TagKey: "on"}},
		Children: []*Entity{
			{ID: "tag", Name: "Tag", Kind: EntityLabel, Visible: true},
		},
	}
}

func TestEntity_Clone(t *testing.T) {
	e := pumpEntity()
	c := e.Clone()
	require.Equal(t, e, c)

	c.Material.Color = "#ffffff"
	c.Structure.Children[1].Name = "Spare"
	c.Animations[0].Tracks[0].Keyframes[0].Position[0] = 9
	c.Bindings["wheel:visible"] = PropertyBinding{}
	c.Children[0].Name = "Sign"

	assert.Equal(t, "#222222", e.Material.Color)
	assert.Equal(t, "Wheel", e.Structure.Children[1].Name)
	assert.Equal(t, float32(1), e.Animations[0].Tracks[0].Keyframes[0].Position[0])
	assert.True(t, e.Bindings["wheel:visible"].Enabled)
	assert.Equal(t, "Tag", e.Children[0].Name)

	assert.Nil(t, (*Entity)(nil).Clone())
	assert.Nil(t, CloneEntities(nil))
}

func TestEntity_RootNode(t *testing.T) {
	e := pumpEntity()
	root := e.RootNode()

	assert.Equal(t, "pump", root.ID)
	assert.Equal(t, "Pump", root.Name)
	assert.Equal(t, e.Transform, root.Transform)
	assert.Same(t, e.Material, root.Material)
	require.Len(t, root.Children, 2)
	assert.Same(t, e.Structure, root.Children[0], "structure hangs below the root")
	assert.Equal(t, "tag", root.Children[1].ID)

	plain := &Entity{ID: "box", Kind: EntityBox}
	assert.Empty(t, plain.RootNode().Children)
}

func TestEntity_Baseline(t *testing.T) {
	e := pumpEntity()

	n, ok := e.Baseline("pump")
	require.True(t, ok)
	assert.Equal(t, "Pump", n.Name)

	n, ok = e.Baseline("bolt")
	require.True(t, ok)
	assert.Same(t, e.Structure.Find("bolt"), n)

	n, ok = e.Baseline("tag")
	require.True(t, ok)
	assert.Equal(t, "Tag", n.Name)

	_, ok = e.Baseline("nope")
	assert.False(t, ok)
}

func TestEntity_WalkAndFind(t *testing.T) {
	e := pumpEntity()
	e.Children[0].Children = []*Entity{{ID: "deep"}}

	var ids []string
	e.Walk(func(x *Entity) { ids = append(ids, x.ID) })
	assert.Equal(t, []string{"pump", "tag", "deep"}, ids)

	p := &Project{ID: "p", Entities: []*Entity{{ID: "box"}, e}}
	assert.Equal(t, "deep", p.FindEntity("deep").ID)
	assert.Nil(t, p.FindEntity("nope"))
}

func TestEntity_AnimationLookup(t *testing.T) {
	e := pumpEntity()
	anim := e.Animation("spin")
	require.NotNil(t, anim)
	assert.Nil(t, e.Animation("idle"))

	assert.Equal(t, "t1", anim.Track("pump", "wheel").ID)
	assert.Equal(t, "t2", anim.Track("pump", "pump").ID, "an untargeted track drives its owner")
	assert.Nil(t, anim.Track("pump", "bolt"))
}

func TestProject_Clone(t *testing.T) {
	p := &Project{
		ID:        "p1",
		Name:      "Yard",
		Entities:  []*Entity{pumpEntity()},
		Waypoints: []RoamingNode{NewRoamingNode("w1", Vec3{1, 0, 0}, IdentityQuat, Vec3{})},
	}
	c := p.Clone()
	require.Equal(t, p, c)

	c.Entities[0].Name = "Other"
	c.Waypoints[0].Duration = 4
	assert.Equal(t, "Pump", p.Entities[0].Name)
	assert.Equal(t, float32(1), p.Waypoints[0].Duration)
	assert.Nil(t, (*Project)(nil).Clone())
}

func TestKeyframe_MergeAndClone(t *testing.T) {
	k := Keyframe{Time: 0.5, Position: &Vec3{1, 1, 1}, Easing: EaseIn}
	k.Merge(Keyframe{Scale: &Vec3{2, 2, 2}, Visible: Bool(false)})
	assert.Equal(t, Vec3{1, 1, 1}, *k.Position)
	assert.Equal(t, Vec3{2, 2, 2}, *k.Scale)
	assert.False(t, *k.Visible)
	assert.Equal(t, EaseIn, k.Easing, "an unset easing keeps the old one")

	c := k.Clone()
	c.Position[0] = 7
	*c.Visible = true
	assert.Equal(t, float32(1), k.Position[0])
	assert.False(t, *k.Visible)
	assert.Equal(t, float32(0.5), c.Time)
}

func TestAnimationTrack_SortKeyframes(t *testing.T) {
	tr := AnimationTrack{Keyframes: []Keyframe{
		{Time: 1, Easing: EaseOut},
		{Time: 0},
		{Time: 1, Easing: EaseStep},
	}}
	tr.SortKeyframes()
	assert.Equal(t, float32(0), tr.Keyframes[0].Time)
	assert.Equal(t, EaseOut, tr.Keyframes[1].Easing)
	assert.Equal(t, EaseStep, tr.Keyframes[2].Easing)
}

func TestDistance(t *testing.T) {
	assert.InDelta(t, 5, Distance(Vec3{0, 0, 0}, Vec3{3, 4, 0}), 1e-6)
	assert.Zero(t, Distance(Vec3{1, 2, 3}, Vec3{1, 2, 3}))
	assert.Equal(t, IdentityQuat, QuatFrom(IdentityQuat.Math()))
}
