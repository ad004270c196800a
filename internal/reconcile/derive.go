package reconcile

import (
	"strings"

	"github.com/google/uuid"
	"github.com/omni3d/studio/internal/scene"
	"github.com/omni3d/studio/pkg/core"
)

// DeriveTree builds the declarative tree for a freshly loaded live graph.
// Every live node receives a fresh identity, mirrored in the tree, and its
// current name (or kind when unnamed) is captured as OriginalName.
func DeriveTree(live scene.LiveNode, animations []string) *core.DeclarativeNode {
	root := derive(live)
	root.Animations = append([]string(nil), animations...)
	return root
}

func derive(live scene.LiveNode) *core.DeclarativeNode {
	id := uuid.NewString()
	live.SetIdentity(id)

	name := live.Name()
	if name == "" {
		name = live.Kind()
	}
	attrs := live.Attributes()

	n := &core.DeclarativeNode{
		ID:            id,
		Name:          name,
		OriginalName:  name,
		Kind:          live.Kind(),
		Transform:     live.Transform(),
		Visible:       live.Visible(),
		Locked:        attrs.Locked,
		CastShadow:    core.Bool(attrs.CastShadow),
		ReceiveShadow: core.Bool(attrs.ReceiveShadow),
	}
	if strings.Contains(live.Kind(), "Light") {
		n.Intensity = core.Float(attrs.Intensity)
	}
	if mats := live.Materials(); len(mats) > 0 {
		n.Material = Snapshot(mats[0])
	}
	for _, c := range live.Children() {
		n.Children = append(n.Children, derive(c))
	}
	return n
}
