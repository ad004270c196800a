package reconcile

import (
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/omni3d/studio/internal/scene"
	"github.com/omni3d/studio/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type car struct {
	root     *scene.Object
	body     *scene.Object
	wheel    *scene.Object
	paint    *scene.Material
	bodyGeo  *scene.Geometry
	wheelGeo *scene.Geometry
}

// buildCar mimics an asset load: a fresh graph with fresh identities.
func buildCar() car {
	paint := scene.NewMaterial("paint")
	c := car{
		root:     scene.NewObject("Car", core.KindGroup),
		paint:    paint,
		bodyGeo:  scene.NewGeometry(1200),
		wheelGeo: scene.NewGeometry(300),
	}
	c.body = scene.NewMesh("Body", c.bodyGeo, paint)
	c.wheel = scene.NewMesh("Wheel", c.wheelGeo, paint)
	c.root.Add(c.body)
	c.root.Add(c.wheel)
	c.root.Add(scene.NewObject("Lights", core.KindGroup))
	return c
}

func newTestReconciler(t *testing.T) *Reconciler {
	t.Helper()
	r, err := New(scene.NewGraph(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return r
}

func identities(n scene.LiveNode) []string {
	var ids []string
	scene.Walk(n, func(l scene.LiveNode) {
		ids = append(ids, l.Identity())
	})
	return ids
}

func childNamed(n *core.DeclarativeNode, name string) *core.DeclarativeNode {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func TestDeriveTree_AssignsIdentities(t *testing.T) {
	c := buildCar()
	tree := DeriveTree(c.root, []string{"Idle", "Drive"})

	assert.Equal(t, 4, tree.Count())
	assert.Equal(t, c.root.Identity(), tree.ID)
	assert.Equal(t, []string{"Idle", "Drive"}, tree.Animations)

	wheel := childNamed(tree, "Wheel")
	require.NotNil(t, wheel)
	assert.Equal(t, "Wheel", wheel.OriginalName)
	assert.Equal(t, c.wheel.Identity(), wheel.ID)
	require.NotNil(t, wheel.Material)
	assert.Equal(t, float32(1), *wheel.Material.Opacity)
}

func TestDeriveTree_UnnamedNodeUsesKind(t *testing.T) {
	root := scene.NewObject("", core.KindGroup)
	tree := DeriveTree(root, nil)
	assert.Equal(t, core.KindGroup, tree.Name)
	assert.Equal(t, core.KindGroup, tree.OriginalName)
}

func TestReconcile_Idempotent(t *testing.T) {
	c := buildCar()
	tree := DeriveTree(c.root, nil)
	r := newTestReconciler(t)

	r.Reconcile(c.root, tree)
	before := identities(c.root)

	st := r.Reconcile(c.root, tree)

	assert.Equal(t, before, identities(c.root))
	assert.Zero(t, st.Created)
	assert.Zero(t, st.Removed)
	assert.Equal(t, 3, st.Matched)
}

func TestReconcile_ReloadRecoversIdentities(t *testing.T) {
	tree := DeriveTree(buildCar().root, nil)
	reloaded := buildCar()
	r := newTestReconciler(t)

	st := r.Reconcile(reloaded.root, tree)

	assert.Zero(t, st.Created)
	assert.Zero(t, st.Removed)
	tree.Walk(func(n *core.DeclarativeNode) bool {
		live := scene.Find(reloaded.root, n.ID)
		require.NotNil(t, live, n.Name)
		assert.Equal(t, n.Name, live.Name())
		return true
	})
	assert.Len(t, identities(reloaded.root), tree.Count())
}

func TestReconcile_ReloadAfterRename(t *testing.T) {
	tree := DeriveTree(buildCar().root, nil)
	wheel := childNamed(tree, "Wheel")
	wheel.Name = "FrontWheel"

	reloaded := buildCar()
	r := newTestReconciler(t)
	r.Reconcile(reloaded.root, tree)

	assert.Equal(t, wheel.ID, reloaded.wheel.Identity())
	assert.Equal(t, "FrontWheel", reloaded.wheel.Name())
	assert.False(t, reloaded.wheelGeo.Disposed())
}

func TestReconcile_CreatesCloneFromTemplate(t *testing.T) {
	c := buildCar()
	tree := DeriveTree(c.root, nil)
	wheel := childNamed(tree, "Wheel")

	dup := tree.DuplicateChild(wheel.ID, sequentialIDs("clone"))
	require.NotNil(t, dup)
	assert.Equal(t, "clone-1", dup.ID)
	assert.Equal(t, wheel.ID, dup.SourceNodeID)
	assert.Equal(t, "Wheel", dup.OriginalName)
	assert.Equal(t, "Wheel"+core.DuplicateSuffix, dup.Name)

	r := newTestReconciler(t)
	st := r.Reconcile(c.root, tree)
	assert.Equal(t, 1, st.Created)

	liveDup := scene.Find(c.root, dup.ID)
	require.NotNil(t, liveDup)
	assert.True(t, liveDup.IsDuplicate())
	assert.Equal(t, dup.Name, liveDup.Name())
	assert.Same(t, c.wheel, scene.Find(c.root, wheel.ID))
	assert.Same(t, c.wheelGeo, liveDup.(*scene.Object).Geometry())
}

func TestReconcile_CloneNeverMatchedByName(t *testing.T) {
	tree := DeriveTree(buildCar().root, nil)
	wheel := childNamed(tree, "Wheel")
	dup := tree.DuplicateChild(wheel.ID, sequentialIDs("clone"))
	dup.Name = "Wheel" // same display name as its template

	reloaded := buildCar()
	r := newTestReconciler(t)
	r.Reconcile(reloaded.root, tree)

	liveWheel := scene.Find(reloaded.root, wheel.ID)
	liveDup := scene.Find(reloaded.root, dup.ID)
	require.NotNil(t, liveWheel)
	require.NotNil(t, liveDup)
	assert.NotSame(t, liveWheel, liveDup)
	assert.Same(t, reloaded.wheel, liveWheel)
	assert.True(t, liveDup.IsDuplicate())
	assert.Len(t, reloaded.root.Children(), 4)
}

func TestReconcile_RemovesAndDisposes(t *testing.T) {
	c := buildCar()
	tree := DeriveTree(c.root, nil)
	body := childNamed(tree, "Body")
	require.True(t, tree.RemoveChild(body.ID))

	r := newTestReconciler(t)
	st := r.Reconcile(c.root, tree)

	assert.Equal(t, 1, st.Removed)
	assert.Nil(t, scene.Find(c.root, body.ID))
	assert.True(t, c.bodyGeo.Disposed())
	assert.False(t, c.wheelGeo.Disposed())
}

func TestReconcile_GroupPlaceholderAndMissingTemplate(t *testing.T) {
	c := buildCar()
	tree := DeriveTree(c.root, nil)
	tree.Children = append(tree.Children,
		&core.DeclarativeNode{ID: "anchor", Name: "Anchor", Kind: core.KindGroup, Visible: true, Transform: core.IdentityTransform()},
		&core.DeclarativeNode{ID: "ghost", Name: "Ghost", Kind: core.KindMesh, Visible: true},
	)

	r := newTestReconciler(t)
	st := r.Reconcile(c.root, tree)

	assert.Equal(t, 1, st.Created)
	assert.Equal(t, 1, st.Skipped)
	anchor := scene.Find(c.root, "anchor")
	require.NotNil(t, anchor)
	assert.Equal(t, "Anchor", anchor.Name())
	assert.Nil(t, scene.Find(c.root, "ghost"))
}

func TestReconcile_SiblingsNeverShareLiveNode(t *testing.T) {
	c := buildCar()
	tree := DeriveTree(c.root, nil)
	wheel := childNamed(tree, "Wheel")
	// Both declared siblings only match the live wheel by name.
	wheel.ID = "w1"
	tree.Children = append(tree.Children, &core.DeclarativeNode{ID: "w2", Name: "Wheel", OriginalName: "Wheel", Kind: core.KindMesh})

	r := newTestReconciler(t)
	r.Reconcile(c.root, tree)

	assert.Equal(t, "w1", c.wheel.Identity())
	assert.Nil(t, scene.Find(c.root, "w2"))
}

func TestReconcile_CopiesScalarFields(t *testing.T) {
	c := buildCar()
	tree := DeriveTree(c.root, nil)
	body := childNamed(tree, "Body")
	body.Transform.Position = core.Vec3{1, 2, 3}
	body.Visible = false
	body.Locked = true
	body.CastShadow = core.Bool(false)

	r := newTestReconciler(t)
	r.Reconcile(c.root, tree)

	assert.Equal(t, core.Vec3{1, 2, 3}, c.body.Transform().Position)
	assert.False(t, c.body.Visible())
	assert.True(t, c.body.Attributes().Locked)
	assert.False(t, c.body.Attributes().CastShadow)
}

func TestReconcile_MaterialOverrideClonesSharedMaterial(t *testing.T) {
	c := buildCar()
	tree := DeriveTree(c.root, nil)
	body := childNamed(tree, "Body")
	body.Material = &core.MaterialOverride{Opacity: core.Float(0.25), Transparent: core.Bool(true)}
	childNamed(tree, "Wheel").Material = nil

	r := newTestReconciler(t)
	r.Reconcile(c.root, tree)

	bodyMat := c.body.Materials()[0]
	assert.NotSame(t, c.paint, bodyMat)
	assert.Equal(t, float32(0.25), bodyMat.Opacity)
	assert.True(t, bodyMat.Transparent)

	assert.Same(t, c.paint, c.wheel.Materials()[0])
	assert.Equal(t, float32(1), c.paint.Opacity)
	assert.False(t, c.paint.Disposed())
}

func TestReconcile_NilInputsAreNoop(t *testing.T) {
	r := newTestReconciler(t)
	assert.Equal(t, Stats{}, r.Reconcile(nil, &core.DeclarativeNode{}))
	assert.Equal(t, Stats{}, r.Reconcile(scene.NewObject("x", core.KindGroup), nil))
}

func TestQueue_CollapsesAndPreservesOrder(t *testing.T) {
	q := NewQueue()
	q.Enqueue("a")
	q.Enqueue("b")
	q.Enqueue("a")
	assert.Equal(t, 2, q.Len())

	var got []string
	n := q.Drain(func(id string) {
		got = append(got, id)
		if id == "a" {
			q.Enqueue("a")
		}
	})
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, 1, q.Len(), "events raised while draining wait for the next frame")
}
