// Package playback drives keyframe animations on the live graph, frame by
// frame, under either the edit or the preview policy.
package playback

import (
	"log/slog"

	"github.com/omni3d/studio/internal/animation"
	"github.com/omni3d/studio/internal/scene"
	"github.com/omni3d/studio/pkg/core"
)

// NodeFinder resolves live identities. *scene.Graph satisfies it.
type NodeFinder interface {
	Find(id string) scene.LiveNode
}

// targets tracks the identities driven on the previous frame together with
// the entity that owns each, so departures can be reverted.
type targets struct {
	finder NodeFinder
	logger *slog.Logger

	driven map[string]string
	cache  map[string]scene.LiveNode
}

func newTargets(finder NodeFinder, logger *slog.Logger) targets {
	if logger == nil {
		logger = slog.Default()
	}
	return targets{
		finder: finder,
		logger: logger,
		driven: map[string]string{},
		cache:  map[string]scene.LiveNode{},
	}
}

// beginFrame drops the node cache; identities may have moved since the last
// frame's reconciliation.
func (t *targets) beginFrame() {
	clear(t.cache)
}

func (t *targets) node(id string) scene.LiveNode {
	if n, ok := t.cache[id]; ok {
		return n
	}
	n := t.finder.Find(id)
	t.cache[id] = n
	return n
}

// commit replaces the driven set with next, snapping every identity that
// left it back to its owner's static baseline.
func (t *targets) commit(next map[string]string, entities []*core.Entity) int {
	reverted := 0
	for id, owner := range t.driven {
		if _, still := next[id]; still {
			continue
		}
		if t.revert(id, owner, entities) {
			reverted++
		}
	}
	t.driven = next
	if reverted > 0 {
		t.logger.Debug("reverted animation targets", "count", reverted)
	}
	return reverted
}

func (t *targets) revert(id, ownerID string, entities []*core.Entity) bool {
	owner := core.FindEntity(entities, ownerID)
	if owner == nil {
		return false
	}
	decl, ok := owner.Baseline(id)
	if !ok {
		return false
	}
	node := t.node(id)
	if node == nil {
		return false
	}
	animation.ApplyBaseline(node, decl)
	return true
}

// Driven reports whether id was driven on the last frame.
func (t *targets) Driven(id string) bool {
	_, ok := t.driven[id]
	return ok
}

// Reset reverts every driven identity and empties the set.
func (t *targets) Reset(entities []*core.Entity) {
	t.beginFrame()
	t.commit(map[string]string{}, entities)
}
