package convert

import (
	"testing"
	"time"

	"github.com/omni3d/studio/internal/geo"
	"github.com/omni3d/studio/internal/model"
	"github.com/omni3d/studio/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func testProject() *core.Project {
	pump := &core.Entity{
		ID: "pump", Name: "Pump", Kind: core.EntityModel, URL: "pump.glb", Visible: true,
		Transform: core.Transform{Position: core.Vec3{1, 2, 3}, Scale: core.Vec3{1, 1, 1}},
		Structure: &core.DeclarativeNode{ID: "n1", Name: "Scene", Kind: core.KindGroup, Visible: true},
		Children: []*core.Entity{
			{ID: "tag", Name: "Tag", Kind: core.EntityLabel, Visible: true},
			{ID: "lamp", Name: "Lamp", Kind: core.EntityPoint, Intensity: core.Float(2)},
		},
	}
	return &core.Project{
		ID:   "p1",
		Name: "Line 3",
		Entities: []*core.Entity{
			pump,
			{ID: "floor", Name: "Floor", Kind: core.EntityPlane, Visible: true},
		},
		Waypoints: []core.RoamingNode{
			core.NewRoamingNode("w1", core.Vec3{0, 0, 0}, core.IdentityQuat, core.Vec3{0, 0, -5}),
			core.NewRoamingNode("w2", core.Vec3{3, 4, 0}, core.Quat{0, 1, 0, 0}, core.Vec3{3, 4, -5}),
		},
		UpdatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestProjectToModel(t *testing.T) {
	row, err := ProjectToModel(testProject())
	require.NoError(t, err)

	assert.Equal(t, "p1", row.ID)
	assert.Equal(t, "Line 3", row.Name)
	assert.InDelta(t, 10, row.TourLength, 1e-9)
	assert.Len(t, geo.Positions(row.TourPath), 3)

	require.Len(t, row.Entities, 4)
	ids := []string{}
	for _, e := range row.Entities {
		ids = append(ids, e.ID)
		assert.Equal(t, "p1", e.ProjectID)
	}
	assert.Equal(t, []string{"pump", "tag", "lamp", "floor"}, ids)

	assert.Equal(t, "", row.Entities[0].ParentID)
	assert.Equal(t, "pump", row.Entities[1].ParentID)
	assert.Equal(t, 1, row.Entities[2].Ordinal)
	assert.Equal(t, 1, row.Entities[3].Ordinal)
	assert.NotContains(t, string(row.Entities[0].Data), "children")

	pos, err := geo.Vec3FromPoint(row.Entities[0].Position)
	require.NoError(t, err)
	assert.Equal(t, core.Vec3{1, 2, 3}, pos)

	require.Len(t, row.Waypoints, 2)
	assert.Equal(t, 1, row.Waypoints[1].Ordinal)
	assert.JSONEq(t, `[0,1,0,0]`, string(row.Waypoints[1].Orientation))
}

func TestModelToProject_RoundTrip(t *testing.T) {
	want := testProject()
	row, err := ProjectToModel(want)
	require.NoError(t, err)

	// rows come back from the database in no particular order
	row.Entities[0], row.Entities[3] = row.Entities[3], row.Entities[0]
	row.Waypoints[0], row.Waypoints[1] = row.Waypoints[1], row.Waypoints[0]

	got, err := ModelToProject(row)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestModelToProject_OrphanGoesTopLevel(t *testing.T) {
	row := model.Project{
		ID: "p1",
		Entities: []model.Entity{
			{ID: "tag", ParentID: "gone", Kind: core.EntityLabel, Name: "Tag", Position: geo.Point(core.Vec3{1, 1, 1})},
		},
	}
	got, err := ModelToProject(row)
	require.NoError(t, err)
	require.Len(t, got.Entities, 1)
	assert.Equal(t, "tag", got.Entities[0].ID)
	assert.Equal(t, core.Vec3{1, 1, 1}, got.Entities[0].Transform.Position)
	assert.Equal(t, core.Vec3{1, 1, 1}, got.Entities[0].Transform.Scale)
	assert.Empty(t, got.Waypoints)
}

func TestModelToEntity_BadJSON(t *testing.T) {
	_, err := ModelToEntity(model.Entity{ID: "x", Data: datatypes.JSON(`{"name":`)})
	assert.ErrorContains(t, err, "decoding entity x")
}

func TestModelToWaypoint_EmptyPosition(t *testing.T) {
	_, err := ModelToWaypoint(model.Waypoint{ID: "w1"})
	assert.ErrorIs(t, err, geo.ErrInvalidCoordinates)
}

func TestModelToWaypoint_DefaultOrientation(t *testing.T) {
	w, err := ModelToWaypoint(model.Waypoint{
		ID: "w1", Position: geo.Point(core.Vec3{}), OrbitTarget: geo.Point(core.Vec3{0, 0, -1}),
		Duration: 2, Speed: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, core.IdentityQuat, w.Orientation)
	assert.Equal(t, float32(2), w.Duration)
}

func TestModelToProject_WaypointPositionFromTourPath(t *testing.T) {
	row, err := ProjectToModel(testProject())
	require.NoError(t, err)
	row.Waypoints[1].Position = geom.Point{}

	got, err := ModelToProject(row)
	require.NoError(t, err)
	require.Len(t, got.Waypoints, 2)
	assert.Equal(t, core.Vec3{3, 4, 0}, got.Waypoints[1].Position)
}
