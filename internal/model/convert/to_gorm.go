// Package convert maps projects between core documents and GORM rows.
package convert

import (
	"encoding/json"
	"fmt"

	"github.com/omni3d/studio/internal/geo"
	"github.com/omni3d/studio/internal/model"
	"github.com/omni3d/studio/pkg/core"
	"gorm.io/datatypes"
)

// ProjectToModel flattens p into rows. Nested entities get the id of their
// container as ParentID.
func ProjectToModel(p *core.Project) (model.Project, error) {
	path := geo.TourPath(p.Waypoints)
	row := model.Project{
		ID:         p.ID,
		Name:       p.Name,
		UpdatedAt:  p.UpdatedAt,
		TourPath:   path,
		TourLength: geo.PathLength(path),
	}

	var err error
	row.Entities, err = entitiesToModel(p.ID, "", p.Entities, nil)
	if err != nil {
		return model.Project{}, err
	}

	row.Waypoints = make([]model.Waypoint, len(p.Waypoints))
	for i, w := range p.Waypoints {
		row.Waypoints[i], err = WaypointToModel(p.ID, i, w)
		if err != nil {
			return model.Project{}, err
		}
	}
	return row, nil
}

func entitiesToModel(projectID, parentID string, list []*core.Entity, out []model.Entity) ([]model.Entity, error) {
	for i, e := range list {
		row, err := EntityToModel(projectID, parentID, i, e)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
		if out, err = entitiesToModel(projectID, e.ID, e.Children, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// EntityToModel converts one entity, leaving out its nested entities.
func EntityToModel(projectID, parentID string, ordinal int, e *core.Entity) (model.Entity, error) {
	flat := *e
	flat.Children = nil
	data, err := json.Marshal(&flat)
	if err != nil {
		return model.Entity{}, fmt.Errorf("encoding entity %s: %w", e.ID, err)
	}
	return model.Entity{
		ProjectID: projectID,
		ID:        e.ID,
		ParentID:  parentID,
		Ordinal:   ordinal,
		Name:      e.Name,
		Kind:      e.Kind,
		URL:       e.URL,
		Visible:   e.Visible,
		Position:  geo.Point(e.Transform.Position),
		Data:      datatypes.JSON(data),
	}, nil
}

// WaypointToModel converts one camera stop.
func WaypointToModel(projectID string, ordinal int, w core.RoamingNode) (model.Waypoint, error) {
	orientation, err := json.Marshal(w.Orientation)
	if err != nil {
		return model.Waypoint{}, fmt.Errorf("encoding waypoint %s: %w", w.ID, err)
	}
	return model.Waypoint{
		ProjectID:   projectID,
		ID:          w.ID,
		Ordinal:     ordinal,
		Position:    geo.Point(w.Position),
		OrbitTarget: geo.Point(w.OrbitTarget),
		Orientation: datatypes.JSON(orientation),
		Duration:    w.Duration,
		Speed:       w.Speed,
		TravelTime:  w.TravelTime,
	}, nil
}
