// pkg/core/node.go
package core

// Node kinds used by the declarative tree. Imported asset nodes keep the
// kind reported by the loader ("Mesh", "SkinnedMesh", "Bone", ...).
const (
	KindGroup = "Group"
	KindMesh  = "Mesh"
	KindLight = "Light"
)

// DuplicateSuffix is appended to the display name of a duplicated node.
const DuplicateSuffix = " (copy)"

// MaterialOverride holds the material fields a declarative node asserts.
// Nil or empty fields leave the live material untouched.
type MaterialOverride struct {
	Color             string   `json:"color,omitempty"`
	Emissive          string   `json:"emissive,omitempty"`
	EmissiveIntensity *float32 `json:"emissiveIntensity,omitempty"`
	Metalness         *float32 `json:"metalness,omitempty"`
	Roughness         *float32 `json:"roughness,omitempty"`
	Opacity           *float32 `json:"opacity,omitempty"`
	Transparent       *bool    `json:"transparent,omitempty"`
	Wireframe         *bool    `json:"wireframe,omitempty"`
	MapURL            string   `json:"mapUrl,omitempty"`
}

// OpacityOr returns the asserted opacity or def when none is set.
func (m *MaterialOverride) OpacityOr(def float32) float32 {
	if m == nil || m.Opacity == nil {
		return def
	}
	return *m.Opacity
}

// Clone returns a deep copy of the override.
func (m *MaterialOverride) Clone() *MaterialOverride {
	if m == nil {
		return nil
	}
	c := *m
	c.EmissiveIntensity = cloneFloat(m.EmissiveIntensity)
	c.Metalness = cloneFloat(m.Metalness)
	c.Roughness = cloneFloat(m.Roughness)
	c.Opacity = cloneFloat(m.Opacity)
	c.Transparent = cloneBool(m.Transparent)
	c.Wireframe = cloneBool(m.Wireframe)
	return &c
}

// DeclarativeNode describes the desired state of one entity root or one
// sub-node of an imported asset.
type DeclarativeNode struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	OriginalName string `json:"originalName,omitempty"`
	// SourceNodeID is set only on duplicates and names the node they were copied from.
	SourceNodeID string `json:"sourceNodeId,omitempty"`
	Kind         string `json:"type"`

	Transform     Transform         `json:"transform"`
	Visible       bool              `json:"visible"`
	Locked        bool              `json:"locked,omitempty"`
	CastShadow    *bool             `json:"castShadow,omitempty"`
	ReceiveShadow *bool             `json:"receiveShadow,omitempty"`
	Intensity     *float32          `json:"intensity,omitempty"`
	Material      *MaterialOverride `json:"material,omitempty"`
	Animations    []string          `json:"animations,omitempty"`

	Children []*DeclarativeNode `json:"children,omitempty"`
}

// IsClone reports whether the node was produced by duplicating another node.
func (n *DeclarativeNode) IsClone() bool {
	return n.SourceNodeID != ""
}

// Find returns the node with the given id in the subtree rooted at n.
func (n *DeclarativeNode) Find(id string) *DeclarativeNode {
	if n == nil {
		return nil
	}
	if n.ID == id {
		return n
	}
	for _, c := range n.Children {
		if found := c.Find(id); found != nil {
			return found
		}
	}
	return nil
}

// Parent returns the parent of the node with the given id, or nil.
func (n *DeclarativeNode) Parent(id string) *DeclarativeNode {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.ID == id {
			return n
		}
		if p := c.Parent(id); p != nil {
			return p
		}
	}
	return nil
}

// Walk visits every node depth-first, parents before children.
// Returning false from fn stops descent into that node's children.
func (n *DeclarativeNode) Walk(fn func(*DeclarativeNode) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Count returns the number of nodes in the subtree.
func (n *DeclarativeNode) Count() int {
	total := 0
	n.Walk(func(*DeclarativeNode) bool {
		total++
		return true
	})
	return total
}

// Clone returns a deep copy that keeps every identity.
func (n *DeclarativeNode) Clone() *DeclarativeNode {
	if n == nil {
		return nil
	}
	c := *n
	c.CastShadow = cloneBool(n.CastShadow)
	c.ReceiveShadow = cloneBool(n.ReceiveShadow)
	c.Intensity = cloneFloat(n.Intensity)
	c.Material = n.Material.Clone()
	c.Animations = append([]string(nil), n.Animations...)
	if n.Children != nil {
		c.Children = make([]*DeclarativeNode, len(n.Children))
		for i, child := range n.Children {
			c.Children[i] = child.Clone()
		}
	}
	return &c
}

// Reidentify returns a deep copy with a fresh id on every node. The copy is
// not a clone: it describes a separate instance of the same asset, so
// OriginalName is kept for matching against the newly loaded graph.
func (n *DeclarativeNode) Reidentify(newID func() string) *DeclarativeNode {
	c := n.Clone()
	c.Walk(func(node *DeclarativeNode) bool {
		node.ID = newID()
		node.SourceNodeID = ""
		if node.OriginalName == "" {
			node.OriginalName = node.Name
		}
		return true
	})
	return c
}

// Duplicate copies the subtree with identity remapping. Every copied node
// receives a fresh id from newID, points back at the node it was copied
// from through SourceNodeID and inherits OriginalName from its template.
// Only the top copy gets the display suffix.
func Duplicate(n *DeclarativeNode, newID func() string) *DeclarativeNode {
	dup := duplicate(n, newID)
	if dup != nil {
		dup.Name = n.Name + DuplicateSuffix
	}
	return dup
}

func duplicate(n *DeclarativeNode, newID func() string) *DeclarativeNode {
	if n == nil {
		return nil
	}
	c := n.Clone()
	c.Children = nil
	c.ID = newID()
	c.SourceNodeID = n.ID
	if n.OriginalName != "" {
		c.OriginalName = n.OriginalName
	} else {
		c.OriginalName = n.Name
	}
	for _, child := range n.Children {
		c.Children = append(c.Children, duplicate(child, newID))
	}
	return c
}

// DuplicateChild duplicates the node with the given id and appends the
// copy to its parent. It returns the copy, or nil when the id is unknown
// or names the root.
func (n *DeclarativeNode) DuplicateChild(id string, newID func() string) *DeclarativeNode {
	parent := n.Parent(id)
	if parent == nil {
		return nil
	}
	src := n.Find(id)
	dup := Duplicate(src, newID)
	parent.Children = append(parent.Children, dup)
	return dup
}

// RemoveChild detaches the node with the given id. It reports whether a
// node was removed; the root cannot be removed.
func (n *DeclarativeNode) RemoveChild(id string) bool {
	parent := n.Parent(id)
	if parent == nil {
		return false
	}
	for i, c := range parent.Children {
		if c.ID == id {
			parent.Children = append(parent.Children[:i], parent.Children[i+1:]...)
			return true
		}
	}
	return false
}

func cloneFloat(f *float32) *float32 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func cloneBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}

// Float returns a pointer to f.
func Float(f float32) *float32 { return &f }

// Bool returns a pointer to b.
func Bool(b bool) *bool { return &b }
