package scene

import "github.com/omni3d/studio/pkg/core"

// Graph is the render graph root plus the camera that views it.
type Graph struct {
	root   *Object
	Camera *Camera
	Orbit  *OrbitControls
}

// NewGraph returns an empty scene with a camera at the origin.
func NewGraph() *Graph {
	return &Graph{
		root:   NewObject("Scene", "Scene"),
		Camera: &Camera{Orientation: core.IdentityQuat},
		Orbit:  &OrbitControls{Enabled: true},
	}
}

// Root returns the scene root.
func (g *Graph) Root() *Object {
	return g.root
}

// Find returns the node carrying identity id, or nil.
func (g *Graph) Find(id string) LiveNode {
	return Find(g.root, id)
}

// Find searches the subtree rooted at n for identity id.
func Find(n LiveNode, id string) LiveNode {
	if n.Identity() == id {
		return n
	}
	for _, c := range n.Children() {
		if found := Find(c, id); found != nil {
			return found
		}
	}
	return nil
}

// NewGroup returns an empty container node.
func (g *Graph) NewGroup(name string) LiveNode {
	return NewObject(name, core.KindGroup)
}

// Camera is the viewing camera driven by the tour engine.
type Camera struct {
	Position    core.Vec3
	Orientation core.Quat
}

// OrbitControls is the manual navigation pivot.
type OrbitControls struct {
	Target  core.Vec3
	Enabled bool
}
