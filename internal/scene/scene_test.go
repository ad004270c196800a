package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdd_ReparentsChild(t *testing.T) {
	a := NewObject("a", "Group")
	b := NewObject("b", "Group")
	child := NewObject("child", "Mesh")

	a.Add(child)
	b.Add(child)

	assert.Empty(t, a.Children())
	require.Len(t, b.Children(), 1)
	assert.Equal(t, LiveNode(b), child.Parent())
}

func TestDuplicate_SharesGeometryAndMaterials(t *testing.T) {
	mat := NewMaterial("paint")
	geo := NewGeometry(24)
	src := NewMesh("Wheel", geo, mat)

	dup := src.Duplicate().(*Object)

	assert.NotEqual(t, src.Identity(), dup.Identity())
	assert.Equal(t, "Wheel", dup.Name())
	assert.True(t, dup.IsDuplicate())
	assert.False(t, src.IsDuplicate())
	assert.Same(t, geo, dup.Geometry())
	assert.Same(t, mat, dup.Materials()[0])
}

func TestDuplicate_RebindsSkinToCopiedBones(t *testing.T) {
	rig := NewObject("Rig", "Group")
	hip := NewObject("Hip", "Bone")
	knee := NewObject("Knee", "Bone")
	external := NewObject("World", "Bone")
	hip.Add(knee)
	rig.Add(hip)
	body := NewSkinnedMesh("Body", NewGeometry(100), []*Object{hip, knee, external}, NewMaterial("skin"))
	rig.Add(body)

	dup := rig.Duplicate().(*Object)

	var dupBody, dupHip, dupKnee *Object
	dup.Traverse(func(o *Object) {
		switch o.Name() {
		case "Body":
			dupBody = o
		case "Hip":
			dupHip = o
		case "Knee":
			dupKnee = o
		}
	})
	require.NotNil(t, dupBody)
	require.NotNil(t, dupBody.Skin())
	bones := dupBody.Skin().Bones
	assert.Same(t, dupHip, bones[0])
	assert.Same(t, dupKnee, bones[1])
	assert.Same(t, external, bones[2], "bones outside the copied subgraph stay shared")

	// template untouched
	assert.Same(t, hip, body.Skin().Bones[0])
}

func TestDispose_ReleasesGeometryAndMaterials(t *testing.T) {
	mat := NewMaterial("m")
	geo := NewGeometry(3)
	mesh := NewMesh("tri", geo, mat)

	mesh.Dispose()

	assert.True(t, geo.Disposed())
	assert.True(t, mat.Disposed())
}

func TestDispose_KeepsResourcesSharedWithDuplicate(t *testing.T) {
	mat := NewMaterial("m")
	geo := NewGeometry(3)
	mesh := NewMesh("tri", geo, mat)
	dup := mesh.Duplicate()

	dup.Dispose()
	assert.False(t, geo.Disposed())
	assert.False(t, mat.Disposed())

	mesh.Dispose()
	assert.True(t, geo.Disposed())
	assert.True(t, mat.Disposed())
}

func TestSetMaterials_ReleasesReplaced(t *testing.T) {
	shared := NewMaterial("shared")
	a := NewMesh("a", nil, shared)
	b := NewMesh("b", nil, shared)

	a.SetMaterials([]*Material{shared.Clone()})
	assert.False(t, shared.Disposed(), "still used by b")

	b.SetMaterials([]*Material{shared.Clone()})
	assert.True(t, shared.Disposed())
}

func TestDispose_NoResourcesIsNoop(t *testing.T) {
	g := NewObject("empty", "Group")
	assert.NotPanics(t, g.Dispose)
}

func TestGraphFind(t *testing.T) {
	g := NewGraph()
	parent := NewObject("parent", "Group")
	child := NewObject("child", "Mesh")
	child.SetIdentity("child-id")
	parent.Add(child)
	g.Root().Add(parent)

	assert.Equal(t, LiveNode(child), g.Find("child-id"))
	assert.Nil(t, g.Find("missing"))
}

func TestMaterialClone(t *testing.T) {
	m := NewMaterial("base")
	m.Opacity = 0.4
	c := m.Clone()

	assert.NotEqual(t, m.ID, c.ID)
	assert.Equal(t, float32(0.4), c.Opacity)
	c.Opacity = 1
	assert.Equal(t, float32(0.4), m.Opacity)
}
