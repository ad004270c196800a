package asset

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/omni3d/studio/internal/reconcile"
	"github.com/omni3d/studio/internal/scene"
	"github.com/omni3d/studio/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pump = `
version: "1"
animations: [Idle, Spin]
geometries:
  wheel: 120
materials:
  rubber:
    color: "#111111"
    roughness: 0.9
  steel:
    color: "#888888"
    metalness: 1
root:
  name: Pump
  children:
    - name: Body
      vertices: 400
      materials: [steel]
      position: [0, 1, 0]
    - name: Front wheel
      geometry: wheel
      materials: [rubber]
    - name: Rear wheel
      geometry: wheel
      materials: [rubber]
      hidden: true
    - name: Lamp
      kind: PointLight
      intensity: 3
      noShadow: true
    - name: Rig
      children:
        - name: Hip
          kind: Bone
    - name: Hose
      vertices: 60
      bones: [Hip]
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func byName(t *testing.T, root scene.LiveNode, name string) *scene.Object {
	t.Helper()
	var found *scene.Object
	scene.Walk(root, func(n scene.LiveNode) {
		if found == nil && n.Name() == name {
			found = n.(*scene.Object)
		}
	})
	require.NotNil(t, found, "no node named %s", name)
	return found
}

func TestLoad(t *testing.T) {
	l := NewLoader(nil)
	root, anims, err := l.Load(writeFile(t, "pump.yaml", pump))
	require.NoError(t, err)

	assert.Equal(t, []string{"Idle", "Spin"}, anims)
	assert.Equal(t, core.KindGroup, root.Kind())
	assert.Len(t, root.Children(), 6)

	body := byName(t, root, "Body")
	assert.Equal(t, core.KindMesh, body.Kind())
	assert.Equal(t, core.Vec3{0, 1, 0}, body.Transform().Position)
	assert.Equal(t, core.Vec3{1, 1, 1}, body.Transform().Scale)
	assert.Equal(t, float32(1), body.Materials()[0].Metalness)

	front, rear := byName(t, root, "Front wheel"), byName(t, root, "Rear wheel")
	assert.Same(t, front.Geometry(), rear.Geometry())
	assert.Same(t, front.Materials()[0], rear.Materials()[0])
	assert.True(t, front.Materials()[0].Shared())
	assert.False(t, rear.Visible())

	lamp := byName(t, root, "Lamp")
	assert.Equal(t, float32(3), lamp.Attributes().Intensity)
	assert.False(t, lamp.Attributes().CastShadow)

	hose := byName(t, root, "Hose")
	assert.Equal(t, "SkinnedMesh", hose.Kind())
	require.Len(t, hose.Skin().Bones, 1)
	assert.Same(t, byName(t, root, "Hip"), hose.Skin().Bones[0])
}

func TestLoad_BuildsFreshGraphs(t *testing.T) {
	l := NewLoader(nil)
	path := writeFile(t, "pump.yaml", pump)

	a, _, err := l.Load(path)
	require.NoError(t, err)
	b, _, err := l.Load(path)
	require.NoError(t, err)
	assert.NotSame(t, a, b)
	assert.NotSame(t, byName(t, a, "Body").Geometry(), byName(t, b, "Body").Geometry())
}

func TestLoad_ReloadsChangedFile(t *testing.T) {
	l := NewLoader(nil)
	path := writeFile(t, "box.yaml", "root:\n  name: A\n")
	root, _, err := l.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "A", root.Name())

	require.NoError(t, os.WriteFile(path, []byte("root:\n  name: B\n"), 0644))
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	root, _, err = l.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "B", root.Name())
}

func TestLoad_Errors(t *testing.T) {
	l := NewLoader(nil)

	_, _, err := l.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, _, err = l.Load(writeFile(t, "bad.yaml", "root: [1, 2"))
	assert.Error(t, err)

	cases := map[string]string{
		"unknown material": "root:\n  vertices: 3\n  materials: [gold]\n",
		"unknown geometry": "root:\n  geometry: gear\n",
		"unknown bone":     "root:\n  vertices: 3\n  bones: [Spine]\n",
		"short position":   "root:\n  position: [1, 2]\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := l.Load(writeFile(t, "asset.yaml", content))
			assert.ErrorIs(t, err, ErrInvalidDescription)
		})
	}
}

func TestLoad_DerivesTree(t *testing.T) {
	root, anims, err := NewLoader(nil).Load(writeFile(t, "pump.yaml", pump))
	require.NoError(t, err)

	tree := reconcile.DeriveTree(root, anims)
	assert.Equal(t, "Pump", tree.OriginalName)
	assert.Equal(t, []string{"Idle", "Spin"}, tree.Animations)
	require.Len(t, tree.Children, 6)
	assert.Equal(t, root.Children()[0].Identity(), tree.Children[0].ID)
}

func TestWriteDescription(t *testing.T) {
	d, err := ParseDescription([]byte(pump))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, WriteDescription(d, path))

	back, err := ReadDescription(path)
	require.NoError(t, err)
	assert.Equal(t, d, back)
}
