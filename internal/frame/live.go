package frame

import (
	"github.com/omni3d/studio/internal/project"
	"github.com/omni3d/studio/internal/scene"
	"github.com/omni3d/studio/pkg/core"
)

// vertex budgets for the built-in primitives
var primitiveVertices = map[string]int{
	core.EntityBox:      24,
	core.EntitySphere:   1089,
	core.EntityCylinder: 132,
	core.EntityCone:     99,
	core.EntityTorus:    825,
	core.EntityPlane:    4,
}

// newWrapper builds the live root for an entity. Its identity is the
// entity id so reconciliation and playback address it directly.
func newWrapper(e *core.Entity) scene.LiveNode {
	var node *scene.Object
	switch {
	case project.IsPrimitive(e.Kind) || e.Kind == core.EntitySprite:
		node = scene.NewMesh(e.Name, scene.NewGeometry(primitiveVertices[e.Kind]), scene.NewMaterial(e.Name))
	case project.IsLight(e.Kind):
		node = scene.NewObject(e.Name, core.KindLight)
	default:
		node = scene.NewObject(e.Name, core.KindGroup)
	}
	node.SetIdentity(e.ID)
	return node
}

// ensureWrappers makes sure e and every nested entity have a live root
// under parent, creating the missing ones.
func (l *Loop) ensureWrappers(e *core.Entity, parent scene.LiveNode) scene.LiveNode {
	w, ok := l.wrappers[e.ID]
	if !ok || w.Parent() == nil {
		w = newWrapper(e)
		parent.Add(w)
		l.wrappers[e.ID] = w
		delete(l.attached, e.ID)
		l.logger.Debug("created entity root", "entity", e.ID, "kind", e.Kind)
	} else if w.Parent() != parent {
		parent.Add(w)
	}
	if asset, ok := l.pending[e.ID]; ok {
		l.attach(w, e, asset)
		delete(l.pending, e.ID)
		l.attached[e.ID] = true
	}
	for _, child := range e.Children {
		l.ensureWrappers(child, w)
	}
	return w
}

// attach hangs a freshly loaded asset graph under the entity root,
// replacing any previous asset instance or placeholder.
func (l *Loop) attach(w scene.LiveNode, e *core.Entity, asset scene.LiveNode) {
	if e.Structure != nil {
		for _, c := range w.Children() {
			if c.Identity() == e.Structure.ID || (!c.IsDuplicate() && c.Name() == e.Structure.OriginalName && !l.isWrapper(c)) {
				w.Remove(c)
				c.Dispose()
			}
		}
	}
	w.Add(asset)
}

func (l *Loop) isWrapper(n scene.LiveNode) bool {
	w, ok := l.wrappers[n.Identity()]
	return ok && w == n
}

// dropWrapper removes and disposes the live root of a deleted entity.
func (l *Loop) dropWrapper(id string) {
	w, ok := l.wrappers[id]
	if !ok {
		return
	}
	if p := w.Parent(); p != nil {
		p.Remove(w)
	}
	w.Dispose()
	scene.Walk(w, func(n scene.LiveNode) {
		delete(l.wrappers, n.Identity())
		delete(l.attached, n.Identity())
		delete(l.pending, n.Identity())
	})
	l.logger.Debug("removed entity root", "entity", id)
}
