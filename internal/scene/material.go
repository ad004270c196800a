package scene

import "github.com/google/uuid"

// Material is a render material. Several nodes may share one instance, so
// writers that customize a node clone it first.
type Material struct {
	ID                string
	Name              string
	Color             string
	Emissive          string
	EmissiveIntensity float32
	Metalness         float32
	Roughness         float32
	Opacity           float32
	Transparent       bool
	Wireframe         bool
	MapURL            string

	refs     int
	disposed bool
}

// NewMaterial returns an opaque white material.
func NewMaterial(name string) *Material {
	return &Material{
		ID:                uuid.NewString(),
		Name:              name,
		Color:             "#ffffff",
		Emissive:          "#000000",
		EmissiveIntensity: 1,
		Roughness:         1,
		Opacity:           1,
	}
}

// Clone returns an independent, unattached copy with a fresh id.
func (m *Material) Clone() *Material {
	c := *m
	c.ID = uuid.NewString()
	c.refs = 0
	c.disposed = false
	return &c
}

// Shared reports whether more than one node references the material.
func (m *Material) Shared() bool {
	return m.refs > 1
}

func (m *Material) retain() { m.refs++ }

// release drops one node reference and disposes the material once no node uses it.
func (m *Material) release() {
	if m.refs > 0 {
		m.refs--
	}
	if m.refs == 0 {
		m.Dispose()
	}
}

// Dispose releases the material's buffers.
func (m *Material) Dispose() {
	m.disposed = true
}

// Disposed reports whether Dispose has been called.
func (m *Material) Disposed() bool {
	return m.disposed
}

// Geometry is a vertex buffer handle. Duplicates share geometry.
type Geometry struct {
	ID       string
	Vertices int

	refs     int
	disposed bool
}

// NewGeometry returns a geometry handle with the given vertex count.
func NewGeometry(vertices int) *Geometry {
	return &Geometry{ID: uuid.NewString(), Vertices: vertices}
}

func (g *Geometry) retain() { g.refs++ }

func (g *Geometry) release() {
	if g.refs > 0 {
		g.refs--
	}
	if g.refs == 0 {
		g.Dispose()
	}
}

// Dispose releases the geometry's buffers.
func (g *Geometry) Dispose() {
	g.disposed = true
}

// Disposed reports whether Dispose has been called.
func (g *Geometry) Disposed() bool {
	return g.disposed
}

// Skin binds a skinned mesh to the bone nodes that deform it.
type Skin struct {
	Bones []*Object
}
