// pkg/core/entity.go
package core

import "time"

// Entity kinds.
const (
	EntityBox      = "BOX"
	EntitySphere   = "SPHERE"
	EntityCylinder = "CYLINDER"
	EntityTorus    = "TORUS"
	EntityCone     = "CONE"
	EntityPlane    = "PLANE"
	EntityPoint    = "LIGHT_POINT"
	EntityDir      = "LIGHT_DIR"
	EntitySpot     = "LIGHT_SPOT"
	EntityModel    = "GLTF"
	EntityLabel    = "LABEL"
	EntitySprite   = "SPRITE"
)

// PropertyBinding feeds a value from an external data source into a property path.
type PropertyBinding struct {
	Enabled      bool   `json:"enabled"`
	DataSourceID int    `json:"dataSourceId"`
	TagKey       string `json:"tagKey"`
	Expression   string `json:"expression,omitempty"`
}

// Entity is a scene object. Imported assets carry the node tree derived
// from the loaded asset in Structure.
type Entity struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Kind      string            `json:"type"`
	Transform Transform         `json:"transform"`
	Visible   bool              `json:"visible"`
	Locked    bool              `json:"locked,omitempty"`
	Material  *MaterialOverride `json:"material,omitempty"`
	Intensity *float32          `json:"intensity,omitempty"`
	URL       string            `json:"url,omitempty"`

	Structure         *DeclarativeNode  `json:"structure,omitempty"`
	Animations        []CustomAnimation `json:"customAnimations,omitempty"`
	ActiveAnimationID string            `json:"activeCustomAnimationId,omitempty"`
	// Bindings are keyed by "[nodeId:]propertyPath".
	Bindings map[string]PropertyBinding `json:"dataBindings,omitempty"`

	SourceEntityID string    `json:"sourceObjectId,omitempty"`
	Children       []*Entity `json:"children,omitempty"`
}

// Animation returns the animation with the given id, or nil.
func (e *Entity) Animation(id string) *CustomAnimation {
	for i := range e.Animations {
		if e.Animations[i].ID == id {
			return &e.Animations[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the entity and its nested entities.
func (e *Entity) Clone() *Entity {
	if e == nil {
		return nil
	}
	c := *e
	c.Material = e.Material.Clone()
	c.Intensity = cloneFloat(e.Intensity)
	c.Structure = e.Structure.Clone()
	if e.Animations != nil {
		c.Animations = make([]CustomAnimation, len(e.Animations))
		for i, a := range e.Animations {
			c.Animations[i] = a.Clone()
		}
	}
	if e.Bindings != nil {
		c.Bindings = make(map[string]PropertyBinding, len(e.Bindings))
		for k, v := range e.Bindings {
			c.Bindings[k] = v
		}
	}
	c.Children = CloneEntities(e.Children)
	return &c
}

// CloneEntities deep-copies a list of entities.
func CloneEntities(list []*Entity) []*Entity {
	if list == nil {
		return nil
	}
	out := make([]*Entity, len(list))
	for i, e := range list {
		out[i] = e.Clone()
	}
	return out
}

// RootNode returns the declarative node for the entity's live root. Entity
// fields are authoritative for the root; an imported structure hangs below
// it, followed by the roots of nested entities.
func (e *Entity) RootNode() *DeclarativeNode {
	n := &DeclarativeNode{
		ID:        e.ID,
		Name:      e.Name,
		Kind:      e.Kind,
		Transform: e.Transform,
		Visible:   e.Visible,
		Locked:    e.Locked,
		Intensity: e.Intensity,
		Material:  e.Material,
	}
	if e.Structure != nil {
		n.Children = append(n.Children, e.Structure)
	}
	for _, c := range e.Children {
		n.Children = append(n.Children, c.RootNode())
	}
	return n
}

// Baseline returns the static declarative state for identity id within this
// entity: the root itself, a structure sub-node, or a node of a nested entity.
func (e *Entity) Baseline(id string) (*DeclarativeNode, bool) {
	if id == e.ID {
		return e.RootNode(), true
	}
	if n := e.Structure.Find(id); n != nil {
		return n, true
	}
	for _, c := range e.Children {
		if n, ok := c.Baseline(id); ok {
			return n, true
		}
	}
	return nil, false
}

// Walk visits e and all nested entities depth-first.
func (e *Entity) Walk(fn func(*Entity)) {
	fn(e)
	for _, c := range e.Children {
		c.Walk(fn)
	}
}

// Project is the persisted unit: every entity plus the camera tour.
type Project struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Entities  []*Entity     `json:"objects"`
	Waypoints []RoamingNode `json:"roamingNodes"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// Clone returns a deep copy of the project.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	c := *p
	c.Entities = CloneEntities(p.Entities)
	if p.Waypoints != nil {
		c.Waypoints = make([]RoamingNode, len(p.Waypoints))
		copy(c.Waypoints, p.Waypoints)
	}
	return &c
}

// FindEntity searches all entities, including nested ones.
func (p *Project) FindEntity(id string) *Entity {
	return FindEntity(p.Entities, id)
}

// FindEntity searches a list of entities recursively.
func FindEntity(list []*Entity, id string) *Entity {
	for _, e := range list {
		if e.ID == id {
			return e
		}
		if found := FindEntity(e.Children, id); found != nil {
			return found
		}
	}
	return nil
}
