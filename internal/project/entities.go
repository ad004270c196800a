package project

import (
	"fmt"
	"math"
	"strings"

	"github.com/omni3d/studio/pkg/core"
)

var kindLabels = map[string]string{
	core.EntityBox:      "Box",
	core.EntitySphere:   "Sphere",
	core.EntityCylinder: "Cylinder",
	core.EntityCone:     "Cone",
	core.EntityTorus:    "Torus",
	core.EntityPlane:    "Plane",
	core.EntityPoint:    "Point Light",
	core.EntityDir:      "Directional Light",
	core.EntitySpot:     "Spot Light",
	core.EntityModel:    "Model",
	core.EntityLabel:    "Label",
	core.EntitySprite:   "Sprite",
}

// IsPrimitive reports whether kind is a built-in mesh.
func IsPrimitive(kind string) bool {
	switch kind {
	case core.EntityBox, core.EntitySphere, core.EntityCylinder, core.EntityCone, core.EntityTorus, core.EntityPlane:
		return true
	}
	return false
}

// IsLight reports whether kind is a light.
func IsLight(kind string) bool {
	return strings.HasPrefix(kind, "LIGHT_")
}

// NewEntity returns an entity of kind with the editor defaults.
func NewEntity(id, kind, name, url string) *core.Entity {
	e := &core.Entity{
		ID:        id,
		Name:      name,
		Kind:      kind,
		Visible:   true,
		URL:       url,
		Transform: core.IdentityTransform(),
	}
	e.Transform.Position = core.Vec3{0, 0.5, 0}
	if kind == core.EntityPlane {
		e.Transform.Rotation = core.Vec3{-math.Pi / 2, 0, 0}
	}
	if IsLight(kind) {
		intensity := float32(2)
		if kind == core.EntityDir {
			intensity = 1.5
		}
		e.Intensity = &intensity
	}
	if IsPrimitive(kind) || IsLight(kind) || kind == core.EntitySprite {
		e.Material = &core.MaterialOverride{
			Color:       "#3b82f6",
			Emissive:    "#000000",
			Metalness:   core.Float(0.5),
			Roughness:   core.Float(0.2),
			Opacity:     core.Float(1),
			Transparent: core.Bool(false),
			Wireframe:   core.Bool(false),
		}
	}
	return e
}

// AddEntity appends a new top-level entity of kind and selects it.
func (c *Context) AddEntity(kind, url string) *core.Entity {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record()
	label, ok := kindLabels[kind]
	if !ok {
		label = "Object"
	}
	e := NewEntity(c.newID(), kind, fmt.Sprintf("%s %d", label, len(c.state.Entities)+1), url)
	c.state.Entities = append(c.state.Entities, e)
	c.state.Selection = Selection{EntityID: e.ID}
	c.dirty.Enqueue(e.ID)
	return e.Clone()
}

// InsertEntity adds a copy of e under parentID, or at the top level when
// parentID is empty.
func (c *Context) InsertEntity(e *core.Entity, parentID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e = e.Clone()
	if e.ID == "" {
		e.ID = c.newID()
	}
	if parentID == "" {
		c.record()
		c.state.Entities = append(c.state.Entities, e)
		c.dirty.Enqueue(e.ID)
		return nil
	}
	parent := core.FindEntity(c.state.Entities, parentID)
	if parent == nil {
		return ErrEntityNotFound
	}
	c.record()
	parent.Children = append(parent.Children, e)
	c.markDirty(parentID)
	return nil
}

// RemoveEntity deletes an entity and its nested entities.
func (c *Context) RemoveEntity(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if core.FindEntity(c.state.Entities, id) == nil {
		return ErrEntityNotFound
	}
	c.record()
	c.markDirty(id)
	c.dirty.Enqueue(id)
	c.state.Entities = removeEntity(c.state.Entities, id)
	if c.state.Selection.EntityID == id {
		c.state.Selection = Selection{}
	}
	if c.state.Timeline.EntityID == id {
		c.state.Timeline = c.closedTimeline()
	}
	delete(c.state.Transforming, id)
	return nil
}

func removeEntity(list []*core.Entity, id string) []*core.Entity {
	out := list[:0]
	for _, e := range list {
		if e.ID == id {
			continue
		}
		e.Children = removeEntity(e.Children, id)
		out = append(out, e)
	}
	return out
}

// EntityPatch carries the entity fields to change. Nil fields are kept.
type EntityPatch struct {
	Name              *string                         `json:"name,omitempty"`
	Transform         *core.Transform                 `json:"transform,omitempty"`
	Position          *core.Vec3                      `json:"position,omitempty"`
	Rotation          *core.Vec3                      `json:"rotation,omitempty"`
	Scale             *core.Vec3                      `json:"scale,omitempty"`
	Visible           *bool                           `json:"visible,omitempty"`
	Locked            *bool                           `json:"locked,omitempty"`
	Material          *core.MaterialOverride          `json:"material,omitempty"`
	Intensity         *float32                        `json:"intensity,omitempty"`
	URL               *string                         `json:"url,omitempty"`
	Structure         *core.DeclarativeNode           `json:"structure,omitempty"`
	Animations        []core.CustomAnimation          `json:"customAnimations,omitempty"`
	ActiveAnimationID *string                         `json:"activeCustomAnimationId,omitempty"`
	Bindings          map[string]core.PropertyBinding `json:"dataBindings,omitempty"`
}

func (p EntityPatch) apply(e *core.Entity) {
	if p.Name != nil {
		e.Name = *p.Name
	}
	if p.Transform != nil {
		e.Transform = *p.Transform
	}
	if p.Position != nil {
		e.Transform.Position = *p.Position
	}
	if p.Rotation != nil {
		e.Transform.Rotation = *p.Rotation
	}
	if p.Scale != nil {
		e.Transform.Scale = *p.Scale
	}
	if p.Visible != nil {
		e.Visible = *p.Visible
	}
	if p.Locked != nil {
		e.Locked = *p.Locked
	}
	if p.Material != nil {
		e.Material = p.Material.Clone()
	}
	if p.Intensity != nil {
		v := *p.Intensity
		e.Intensity = &v
	}
	if p.URL != nil {
		e.URL = *p.URL
	}
	if p.Structure != nil {
		e.Structure = p.Structure.Clone()
	}
	if p.Animations != nil {
		e.Animations = make([]core.CustomAnimation, len(p.Animations))
		for i, a := range p.Animations {
			e.Animations[i] = a.Clone()
		}
	}
	if p.ActiveAnimationID != nil {
		e.ActiveAnimationID = *p.ActiveAnimationID
	}
	if p.Bindings != nil {
		e.Bindings = make(map[string]core.PropertyBinding, len(p.Bindings))
		for k, v := range p.Bindings {
			e.Bindings[k] = v
		}
	}
}

// UpdateEntity applies patch to the entity. Edits to the entity open in
// the timeline are not recorded in history.
func (c *Context) UpdateEntity(id string, patch EntityPatch) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := core.FindEntity(c.state.Entities, id)
	if e == nil {
		return ErrEntityNotFound
	}
	if c.state.Timeline.EntityID != id {
		c.record()
	}
	patch.apply(e)
	if patch.Animations != nil && c.state.Timeline.EntityID == id {
		c.state.Timeline.Revision++
	}
	c.markDirty(id)
	return nil
}

// NodePatch carries the structure node fields to change.
type NodePatch struct {
	Name          *string                `json:"name,omitempty"`
	Transform     *core.Transform        `json:"transform,omitempty"`
	Position      *core.Vec3             `json:"position,omitempty"`
	Rotation      *core.Vec3             `json:"rotation,omitempty"`
	Scale         *core.Vec3             `json:"scale,omitempty"`
	Visible       *bool                  `json:"visible,omitempty"`
	Locked        *bool                  `json:"locked,omitempty"`
	CastShadow    *bool                  `json:"castShadow,omitempty"`
	ReceiveShadow *bool                  `json:"receiveShadow,omitempty"`
	Intensity     *float32               `json:"intensity,omitempty"`
	Material      *core.MaterialOverride `json:"material,omitempty"`
}

func (p NodePatch) apply(n *core.DeclarativeNode) {
	if p.Name != nil {
		n.Name = *p.Name
	}
	if p.Transform != nil {
		n.Transform = *p.Transform
	}
	if p.Position != nil {
		n.Transform.Position = *p.Position
	}
	if p.Rotation != nil {
		n.Transform.Rotation = *p.Rotation
	}
	if p.Scale != nil {
		n.Transform.Scale = *p.Scale
	}
	if p.Visible != nil {
		n.Visible = *p.Visible
	}
	if p.Locked != nil {
		n.Locked = *p.Locked
	}
	if p.CastShadow != nil {
		n.CastShadow = core.Bool(*p.CastShadow)
	}
	if p.ReceiveShadow != nil {
		n.ReceiveShadow = core.Bool(*p.ReceiveShadow)
	}
	if p.Intensity != nil {
		n.Intensity = core.Float(*p.Intensity)
	}
	if p.Material != nil {
		n.Material = p.Material.Clone()
	}
}

// node finds a structure node of an entity.
func (c *Context) node(entityID, nodeID string) (*core.Entity, *core.DeclarativeNode, error) {
	e := core.FindEntity(c.state.Entities, entityID)
	if e == nil {
		return nil, nil, ErrEntityNotFound
	}
	n := e.Structure.Find(nodeID)
	if n == nil {
		return e, nil, ErrNodeNotFound
	}
	return e, n, nil
}

// UpdateNode applies patch to a structure node of an entity.
func (c *Context) UpdateNode(entityID, nodeID string, patch NodePatch) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, n, err := c.node(entityID, nodeID)
	if err != nil {
		return err
	}
	if c.state.Timeline.EntityID != entityID {
		c.record()
	}
	patch.apply(n)
	c.markDirty(entityID)
	return nil
}

// RemoveNode detaches a structure node. The structure root cannot be removed.
func (c *Context) RemoveNode(entityID, nodeID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, _, err := c.node(entityID, nodeID)
	if err != nil {
		return err
	}
	c.record()
	if !e.Structure.RemoveChild(nodeID) {
		c.history.past = c.history.past[:len(c.history.past)-1]
		return fmt.Errorf("removing structure root %s: %w", nodeID, ErrNodeNotFound)
	}
	if c.state.Selection.NodeID == nodeID {
		c.state.Selection.NodeID = ""
	}
	c.markDirty(entityID)
	return nil
}

// DuplicateNode clones a structure node next to itself and returns the
// copy's id. The copy is reconciled from its template on the next frame.
func (c *Context) DuplicateNode(entityID, nodeID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, _, err := c.node(entityID, nodeID)
	if err != nil {
		return "", err
	}
	c.record()
	dup := e.Structure.DuplicateChild(nodeID, c.newID)
	if dup == nil {
		c.history.past = c.history.past[:len(c.history.past)-1]
		return "", fmt.Errorf("duplicating structure root %s: %w", nodeID, ErrNodeNotFound)
	}
	c.markDirty(entityID)
	return dup.ID, nil
}

// DuplicateEntity copies an entity with fresh ids throughout, appends it
// at the top level and selects it.
func (c *Context) DuplicateEntity(id string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	src := core.FindEntity(c.state.Entities, id)
	if src == nil {
		return "", ErrEntityNotFound
	}
	c.record()
	dup := src.Clone()
	c.reidentify(dup)
	dup.SourceEntityID = src.ID
	dup.Name = src.Name + core.DuplicateSuffix
	c.state.Entities = append(c.state.Entities, dup)
	c.state.Selection = Selection{EntityID: dup.ID}
	c.dirty.Enqueue(dup.ID)
	return dup.ID, nil
}

// reidentify gives e, its structure and nested entities fresh ids and
// retargets tracks and bindings that addressed structure nodes.
func (c *Context) reidentify(e *core.Entity) {
	oldID := e.ID
	e.ID = c.newID()
	remap := map[string]string{oldID: e.ID}
	if e.Structure != nil {
		old := e.Structure
		e.Structure = old.Reidentify(c.newID)
		var olds, news []*core.DeclarativeNode
		old.Walk(func(n *core.DeclarativeNode) bool { olds = append(olds, n); return true })
		e.Structure.Walk(func(n *core.DeclarativeNode) bool { news = append(news, n); return true })
		for i := range olds {
			remap[olds[i].ID] = news[i].ID
		}
	}
	for i := range e.Animations {
		for j := range e.Animations[i].Tracks {
			tr := &e.Animations[i].Tracks[j]
			if to, ok := remap[tr.TargetID]; ok && tr.TargetID != "" {
				tr.TargetID = to
			}
		}
	}
	if len(e.Bindings) > 0 {
		next := make(map[string]core.PropertyBinding, len(e.Bindings))
		for key, b := range e.Bindings {
			if nodeID, path, ok := strings.Cut(key, ":"); ok {
				if to, found := remap[nodeID]; found {
					key = to + ":" + path
				}
			}
			next[key] = b
		}
		e.Bindings = next
	}
	for _, child := range e.Children {
		c.reidentify(child)
	}
}

// ToggleAnimation activates animID on the entity for preview playback, or
// deactivates it when already active.
func (c *Context) ToggleAnimation(entityID, animID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := core.FindEntity(c.state.Entities, entityID)
	if e == nil {
		return false, ErrEntityNotFound
	}
	if e.Animation(animID) == nil {
		return false, ErrAnimationNotFound
	}
	if e.ActiveAnimationID == animID {
		e.ActiveAnimationID = ""
		return false, nil
	}
	e.ActiveAnimationID = animID
	return true, nil
}
