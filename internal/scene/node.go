// Package scene holds the live render graph the authoring core projects
// declarative state onto.
package scene

import (
	"github.com/google/uuid"
	"github.com/omni3d/studio/pkg/core"
)

// Attributes are the scalar node fields that are not part of the transform.
type Attributes struct {
	Locked        bool
	CastShadow    bool
	ReceiveShadow bool
	// Intensity only applies to lights.
	Intensity float32
}

// LiveNode is the contract the reconciler, animation and tour code need
// from a render graph node.
type LiveNode interface {
	Identity() string
	SetIdentity(id string)
	Name() string
	SetName(name string)
	Kind() string

	Transform() core.Transform
	SetTransform(t core.Transform)
	Visible() bool
	SetVisible(v bool)
	Attributes() Attributes
	SetAttributes(a Attributes)

	Materials() []*Material
	SetMaterials(m []*Material)

	Parent() LiveNode
	Children() []LiveNode
	Add(child LiveNode)
	Remove(child LiveNode)

	// IsDuplicate reports whether the node was produced by Duplicate.
	IsDuplicate() bool
	// Duplicate copies the subgraph. Geometry and materials are shared and
	// skin bindings are redirected to the copied bones.
	Duplicate() LiveNode
	// Dispose releases geometry and materials no other node references.
	Dispose()
}

// Object is the in-memory LiveNode implementation.
type Object struct {
	identity  string
	name      string
	kind      string
	transform core.Transform
	visible   bool
	attrs     Attributes

	geometry  *Geometry
	materials []*Material
	skin      *Skin
	duplicate bool

	parent   *Object
	children []*Object
}

var _ LiveNode = (*Object)(nil)

// NewObject returns a visible node with an identity transform and a fresh identity.
func NewObject(name, kind string) *Object {
	return &Object{
		identity:  uuid.NewString(),
		name:      name,
		kind:      kind,
		transform: core.IdentityTransform(),
		visible:   true,
		attrs:     Attributes{CastShadow: true, ReceiveShadow: true, Intensity: 1},
	}
}

// NewMesh returns a mesh node with its own geometry and material.
func NewMesh(name string, geometry *Geometry, materials ...*Material) *Object {
	o := NewObject(name, core.KindMesh)
	if geometry != nil {
		geometry.retain()
	}
	o.geometry = geometry
	o.SetMaterials(materials)
	return o
}

// NewSkinnedMesh returns a mesh deformed by the given bones.
func NewSkinnedMesh(name string, geometry *Geometry, bones []*Object, materials ...*Material) *Object {
	o := NewMesh(name, geometry, materials...)
	o.kind = "SkinnedMesh"
	o.skin = &Skin{Bones: bones}
	return o
}

func (o *Object) Identity() string       { return o.identity }
func (o *Object) SetIdentity(id string)  { o.identity = id }
func (o *Object) Name() string           { return o.name }
func (o *Object) SetName(name string)    { o.name = name }
func (o *Object) Kind() string           { return o.kind }
func (o *Object) Visible() bool          { return o.visible }
func (o *Object) SetVisible(v bool)      { o.visible = v }
func (o *Object) IsDuplicate() bool      { return o.duplicate }
func (o *Object) Geometry() *Geometry    { return o.geometry }
func (o *Object) Skin() *Skin            { return o.skin }
func (o *Object) Attributes() Attributes { return o.attrs }

func (o *Object) SetAttributes(a Attributes) { o.attrs = a }

func (o *Object) Transform() core.Transform { return o.transform }

func (o *Object) SetTransform(t core.Transform) { o.transform = t }

// SetPosition moves the node without touching rotation or scale.
func (o *Object) SetPosition(p core.Vec3) { o.transform.Position = p }

func (o *Object) Materials() []*Material { return o.materials }

// SetMaterials replaces the node's materials. Materials no longer used by
// any node are disposed.
func (o *Object) SetMaterials(m []*Material) {
	for _, mat := range m {
		mat.retain()
	}
	for _, mat := range o.materials {
		mat.release()
	}
	o.materials = append([]*Material(nil), m...)
}

// Parent returns nil for a detached node.
func (o *Object) Parent() LiveNode {
	if o.parent == nil {
		return nil
	}
	return o.parent
}

func (o *Object) Children() []LiveNode {
	out := make([]LiveNode, len(o.children))
	for i, c := range o.children {
		out[i] = c
	}
	return out
}

// Add attaches child, detaching it from any previous parent first.
// Only *Object children are accepted.
func (o *Object) Add(child LiveNode) {
	c, ok := child.(*Object)
	if !ok || c == o {
		return
	}
	if c.parent != nil {
		c.parent.Remove(c)
	}
	c.parent = o
	o.children = append(o.children, c)
}

func (o *Object) Remove(child LiveNode) {
	for i, c := range o.children {
		if LiveNode(c) == child {
			o.children = append(o.children[:i], o.children[i+1:]...)
			c.parent = nil
			return
		}
	}
}

// Traverse visits the node and its descendants depth-first.
func (o *Object) Traverse(fn func(*Object)) {
	fn(o)
	for _, c := range o.children {
		c.Traverse(fn)
	}
}

func (o *Object) Duplicate() LiveNode {
	copies := make(map[*Object]*Object)
	dup := o.copyTree(copies)

	// Skinned meshes must follow the copied skeleton, not the template's.
	dup.Traverse(func(n *Object) {
		if n.skin == nil {
			return
		}
		bones := make([]*Object, len(n.skin.Bones))
		for i, b := range n.skin.Bones {
			if cb, ok := copies[b]; ok {
				bones[i] = cb
			} else {
				bones[i] = b
			}
		}
		n.skin = &Skin{Bones: bones}
	})
	return dup
}

func (o *Object) copyTree(copies map[*Object]*Object) *Object {
	c := &Object{
		identity:  uuid.NewString(),
		name:      o.name,
		kind:      o.kind,
		transform: o.transform,
		visible:   o.visible,
		attrs:     o.attrs,
		geometry:  o.geometry,
		skin:      o.skin,
		duplicate: true,
	}
	if c.geometry != nil {
		c.geometry.retain()
	}
	c.SetMaterials(o.materials)
	copies[o] = c
	for _, child := range o.children {
		cc := child.copyTree(copies)
		cc.parent = c
		c.children = append(c.children, cc)
	}
	return c
}

// Dispose drops the subgraph's references to geometry and materials.
// Resources still used by another node survive.
func (o *Object) Dispose() {
	o.Traverse(func(n *Object) {
		if n.geometry != nil {
			n.geometry.release()
			n.geometry = nil
		}
		for _, m := range n.materials {
			m.release()
		}
		n.materials = nil
	})
}

// Walk visits n and its descendants through the LiveNode contract.
func Walk(n LiveNode, fn func(LiveNode)) {
	fn(n)
	for _, c := range n.Children() {
		Walk(c, fn)
	}
}
