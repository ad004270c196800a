package core

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counter(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

func pumpTree() *DeclarativeNode {
	return &DeclarativeNode{
		ID: "root", Name: "Scene", OriginalName: "Scene", Kind: KindGroup, Visible: true,
		Animations: []string{"Spin"},
		Children: []*DeclarativeNode{
			{
				ID: "body", Name: "Housing", OriginalName: "Body", Kind: KindMesh, Visible: true,
				Material: &MaterialOverride{Color: "#ff0000", Opacity: Float(0.5)},
				Children: []*DeclarativeNode{
					{ID: "bolt", Name: "Bolt", Kind: KindMesh, Visible: true, CastShadow: Bool(false)},
				},
			},
			{ID: "wheel", Name: "Wheel", OriginalName: "Wheel", Kind: KindMesh, Visible: true},
		},
	}
}

func TestDeclarativeNode_FindAndParent(t *testing.T) {
	root := pumpTree()
	assert.Equal(t, "Bolt", root.Find("bolt").Name)
	assert.Nil(t, root.Find("nope"))
	assert.Same(t, root.Children[0], root.Parent("bolt"))
	assert.Same(t, root, root.Parent("wheel"))
	assert.Nil(t, root.Parent("root"))
	assert.Equal(t, 4, root.Count())

	var nilNode *DeclarativeNode
	assert.Nil(t, nilNode.Find("root"))
	assert.Zero(t, nilNode.Count())
}

func TestDeclarativeNode_WalkStopsDescent(t *testing.T) {
	var seen []string
	pumpTree().Walk(func(n *DeclarativeNode) bool {
		seen = append(seen, n.ID)
		return n.ID != "body"
	})
	assert.Equal(t, []string{"root", "body", "wheel"}, seen)
}

func TestDeclarativeNode_Clone(t *testing.T) {
	root := pumpTree()
	c := root.Clone()
	require.Equal(t, root, c)

	c.Children[0].Material.Color = "#00ff00"
	*c.Children[0].Material.Opacity = 1
	*c.Children[0].Children[0].CastShadow = true
	c.Animations[0] = "Idle"
	c.Children = c.Children[:1]

	assert.Equal(t, "#ff0000", root.Children[0].Material.Color)
	assert.Equal(t, float32(0.5), *root.Children[0].Material.Opacity)
	assert.False(t, *root.Children[0].Children[0].CastShadow)
	assert.Equal(t, "Spin", root.Animations[0])
	assert.Len(t, root.Children, 2)
}

func TestDuplicate(t *testing.T) {
	root := pumpTree()
	dup := Duplicate(root.Children[0], counter("n"))

	assert.Equal(t, "n1", dup.ID)
	assert.Equal(t, "Housing"+DuplicateSuffix, dup.Name)
	assert.Equal(t, "body", dup.SourceNodeID)
	assert.Equal(t, "Body", dup.OriginalName)
	assert.True(t, dup.IsClone())

	bolt := dup.Children[0]
	assert.Equal(t, "n2", bolt.ID)
	assert.Equal(t, "Bolt", bolt.Name, "only the top copy is renamed")
	assert.Equal(t, "bolt", bolt.SourceNodeID)
	assert.Equal(t, "Bolt", bolt.OriginalName, "falls back to the template name")

	assert.Nil(t, Duplicate(nil, counter("n")))
	assert.False(t, root.Children[0].IsClone())
}

func TestDuplicateChild(t *testing.T) {
	root := pumpTree()
	dup := root.DuplicateChild("wheel", counter("w"))
	require.NotNil(t, dup)
	require.Len(t, root.Children, 3)
	assert.Same(t, dup, root.Children[2])
	assert.Equal(t, "wheel", dup.SourceNodeID)

	assert.Nil(t, root.DuplicateChild("root", counter("w")))
	assert.Nil(t, root.DuplicateChild("nope", counter("w")))
}

func TestRemoveChild(t *testing.T) {
	root := pumpTree()
	assert.True(t, root.RemoveChild("bolt"))
	assert.Empty(t, root.Children[0].Children)
	assert.False(t, root.RemoveChild("bolt"))
	assert.False(t, root.RemoveChild("root"))
}

func TestReidentify(t *testing.T) {
	src := pumpTree()
	src.Children[1].SourceNodeID = "wheel-0"
	c := src.Reidentify(counter("r"))

	var ids []string
	c.Walk(func(n *DeclarativeNode) bool {
		ids = append(ids, n.ID)
		assert.Empty(t, n.SourceNodeID)
		return true
	})
	assert.Equal(t, []string{"r1", "r2", "r3", "r4"}, ids)
	assert.Equal(t, "Body", c.Children[0].OriginalName)
	assert.Equal(t, "Bolt", c.Children[0].Children[0].OriginalName)
	assert.Equal(t, "Housing", c.Children[0].Name, "names are kept")
	assert.Equal(t, "root", src.ID)
}

func TestMaterialOverride_OpacityOr(t *testing.T) {
	var m *MaterialOverride
	assert.Equal(t, float32(1), m.OpacityOr(1))
	m = &MaterialOverride{}
	assert.Equal(t, float32(0.3), m.OpacityOr(0.3))
	m.Opacity = Float(0.7)
	assert.Equal(t, float32(0.7), m.OpacityOr(0.3))
	assert.Nil(t, (*MaterialOverride)(nil).Clone())
}
