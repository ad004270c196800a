// Package reconcile converges a live render graph toward a declarative node tree.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/omni3d/studio/internal/scene"
	"github.com/omni3d/studio/pkg/core"

	"go.opentelemetry.io/otel/metric"
)

// GroupFactory creates empty container nodes for declared group placeholders.
type GroupFactory interface {
	NewGroup(name string) scene.LiveNode
}

// Stats counts what one reconciliation pass did.
type Stats struct {
	Matched int
	Created int
	Removed int
	// Skipped counts declared nodes with no live counterpart and no template.
	Skipped int
}

// Reconciler patches live nodes to match declarative nodes.
type Reconciler struct {
	groups GroupFactory
	logger *slog.Logger

	passes  metric.Int64Counter
	created metric.Int64Counter
	removed metric.Int64Counter
}

// New creates a Reconciler. Uses the global OTel meter for metrics
// (no-op if not configured).
func New(groups GroupFactory, logger *slog.Logger) (*Reconciler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Reconciler{groups: groups, logger: logger}

	m := meter()
	var err error

	r.passes, err = m.Int64Counter(
		"reconcile.passes",
		metric.WithDescription("Total reconciliation passes"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating passes counter: %w", err)
	}

	r.created, err = m.Int64Counter(
		"reconcile.nodes.created",
		metric.WithDescription("Live nodes created by duplication or as groups"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating created counter: %w", err)
	}

	r.removed, err = m.Int64Counter(
		"reconcile.nodes.removed",
		metric.WithDescription("Live nodes removed and disposed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating removed counter: %w", err)
	}

	return r, nil
}

// Reconcile makes live reflect decl. The pair is assumed to correspond, so
// the live root takes the declared root id.
func (r *Reconciler) Reconcile(live scene.LiveNode, decl *core.DeclarativeNode) Stats {
	var st Stats
	if live == nil || decl == nil {
		return st
	}
	live.SetIdentity(decl.ID)
	r.apply(live, decl, &st)

	ctx := context.Background()
	r.passes.Add(ctx, 1)
	r.created.Add(ctx, int64(st.Created))
	r.removed.Add(ctx, int64(st.Removed))
	r.logger.Debug("reconciled",
		"root", decl.ID,
		"matched", st.Matched,
		"created", st.Created,
		"removed", st.Removed,
		"skipped", st.Skipped)
	return st
}

func (r *Reconciler) apply(live scene.LiveNode, decl *core.DeclarativeNode, st *Stats) {
	live.SetName(decl.Name)
	live.SetTransform(decl.Transform)
	live.SetVisible(decl.Visible)

	attrs := live.Attributes()
	attrs.Locked = decl.Locked
	if decl.CastShadow != nil {
		attrs.CastShadow = *decl.CastShadow
	}
	if decl.ReceiveShadow != nil {
		attrs.ReceiveShadow = *decl.ReceiveShadow
	}
	if decl.Intensity != nil {
		attrs.Intensity = *decl.Intensity
	}
	live.SetAttributes(attrs)

	if decl.Material != nil {
		OverrideMaterials(live, decl.Material)
	}

	r.diffChildren(live, decl, st)
}

func (r *Reconciler) diffChildren(live scene.LiveNode, decl *core.DeclarativeNode, st *Stats) {
	for _, lc := range live.Children() {
		if !retained(lc, decl.Children) {
			live.Remove(lc)
			lc.Dispose()
			st.Removed++
		}
	}

	candidates := live.Children()
	claimed := make(map[scene.LiveNode]bool, len(candidates))

	for _, dc := range decl.Children {
		lc := match(candidates, dc, claimed)
		if lc != nil {
			st.Matched++
		} else {
			lc = r.create(live, dc)
			if lc == nil {
				st.Skipped++
				continue
			}
			st.Created++
		}
		claimed[lc] = true
		lc.SetIdentity(dc.ID)
		r.apply(lc, dc, st)
	}
}

// retained reports whether any declared child still accounts for lc.
func retained(lc scene.LiveNode, declared []*core.DeclarativeNode) bool {
	for _, dc := range declared {
		if dc.ID == lc.Identity() || dc.Name == lc.Name() {
			return true
		}
		if !dc.IsClone() && dc.OriginalName != "" && dc.OriginalName == lc.Name() {
			return true
		}
	}
	return false
}

// match finds the live counterpart of dc: identity first, then the
// import-time name, then the display name. Name tiers never pair an
// original with a duplicate or a clone with an original, and a live node
// already claimed by an earlier sibling is skipped.
func match(candidates []scene.LiveNode, dc *core.DeclarativeNode, claimed map[scene.LiveNode]bool) scene.LiveNode {
	for _, c := range candidates {
		if !claimed[c] && c.Identity() == dc.ID {
			return c
		}
	}
	if !dc.IsClone() && dc.OriginalName != "" {
		for _, c := range candidates {
			if !claimed[c] && !c.IsDuplicate() && c.Name() == dc.OriginalName {
				return c
			}
		}
	}
	for _, c := range candidates {
		if !claimed[c] && c.IsDuplicate() == dc.IsClone() && c.Name() == dc.Name {
			return c
		}
	}
	return nil
}

// create synthesizes a live node for dc: a duplicate of its template for
// clones, an empty container for groups. It returns nil when neither applies.
func (r *Reconciler) create(parent scene.LiveNode, dc *core.DeclarativeNode) scene.LiveNode {
	var node scene.LiveNode
	if dc.IsClone() {
		if tpl := template(parent.Children(), dc); tpl != nil {
			node = tpl.Duplicate()
		}
	}
	if node == nil && dc.Kind == core.KindGroup && r.groups != nil {
		node = r.groups.NewGroup(dc.Name)
	}
	if node == nil {
		return nil
	}
	node.SetIdentity(dc.ID)
	node.SetName(dc.Name)
	parent.Add(node)
	return node
}

func template(siblings []scene.LiveNode, dc *core.DeclarativeNode) scene.LiveNode {
	for _, c := range siblings {
		if c.Identity() == dc.SourceNodeID {
			return c
		}
	}
	if dc.OriginalName == "" {
		return nil
	}
	for _, c := range siblings {
		if !c.IsDuplicate() && c.Name() == dc.OriginalName {
			return c
		}
	}
	return nil
}
