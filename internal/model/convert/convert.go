package convert

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/omni3d/studio/internal/geo"
	"github.com/omni3d/studio/internal/model"
	"github.com/omni3d/studio/pkg/core"
)

// ModelToProject rebuilds the entity tree from flattened rows. Rows whose
// parent is missing are attached at the top level.
func ModelToProject(row model.Project) (*core.Project, error) {
	p := &core.Project{
		ID:        row.ID,
		Name:      row.Name,
		UpdatedAt: row.UpdatedAt,
		Entities:  []*core.Entity{},
		Waypoints: []core.RoamingNode{},
	}

	rows := slices.Clone(row.Entities)
	slices.SortStableFunc(rows, func(a, b model.Entity) int {
		return cmp.Compare(a.Ordinal, b.Ordinal)
	})

	byID := make(map[string]*core.Entity, len(rows))
	for _, r := range rows {
		e, err := ModelToEntity(r)
		if err != nil {
			return nil, err
		}
		byID[e.ID] = e
	}
	for _, r := range rows {
		e := byID[r.ID]
		if parent, ok := byID[r.ParentID]; ok && r.ParentID != "" {
			parent.Children = append(parent.Children, e)
			continue
		}
		p.Entities = append(p.Entities, e)
	}

	waypoints := slices.Clone(row.Waypoints)
	slices.SortStableFunc(waypoints, func(a, b model.Waypoint) int {
		return cmp.Compare(a.Ordinal, b.Ordinal)
	})
	// rows written without a position fall back to their vertex on the
	// stored tour ring
	ring := geo.Positions(row.TourPath)
	for i, w := range waypoints {
		if w.Position.IsEmpty() && i < len(ring) {
			w.Position = geo.Point(ring[i])
		}
		node, err := ModelToWaypoint(w)
		if err != nil {
			return nil, err
		}
		p.Waypoints = append(p.Waypoints, node)
	}
	return p, nil
}

// ModelToEntity decodes one entity row. The JSON document is authoritative;
// the indexed columns only fill in when it is empty.
func ModelToEntity(r model.Entity) (*core.Entity, error) {
	e := &core.Entity{}
	if len(r.Data) > 0 {
		if err := json.Unmarshal(r.Data, e); err != nil {
			return nil, fmt.Errorf("decoding entity %s: %w", r.ID, err)
		}
	} else {
		e.Name, e.Kind, e.URL, e.Visible = r.Name, r.Kind, r.URL, r.Visible
		e.Transform = core.IdentityTransform()
		if pos, err := geo.Vec3FromPoint(r.Position); err == nil {
			e.Transform.Position = pos
		}
	}
	e.ID = r.ID
	e.Children = nil
	return e, nil
}

// ModelToWaypoint decodes one camera stop.
func ModelToWaypoint(w model.Waypoint) (core.RoamingNode, error) {
	node := core.RoamingNode{
		ID:          w.ID,
		Orientation: core.IdentityQuat,
		Duration:    w.Duration,
		Speed:       w.Speed,
		TravelTime:  w.TravelTime,
	}
	var err error
	if node.Position, err = geo.Vec3FromPoint(w.Position); err != nil {
		return node, fmt.Errorf("waypoint %s position: %w", w.ID, err)
	}
	if node.OrbitTarget, err = geo.Vec3FromPoint(w.OrbitTarget); err != nil {
		return node, fmt.Errorf("waypoint %s orbit target: %w", w.ID, err)
	}
	if len(w.Orientation) > 0 {
		if err := json.Unmarshal(w.Orientation, &node.Orientation); err != nil {
			return node, fmt.Errorf("waypoint %s orientation: %w", w.ID, err)
		}
	}
	return node, nil
}
