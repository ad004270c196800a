package gormstorage

import (
	"testing"
	"time"

	"github.com/omni3d/studio/internal/database"
	"github.com/omni3d/studio/internal/storage"
	"github.com/omni3d/studio/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	db, err := database.OpenSqlite("")
	require.NoError(t, err)
	b := New(Dependencies{DB: db, Name: "test"})
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func testProject(id string, at time.Time) *core.Project {
	return &core.Project{
		ID:   id,
		Name: "Line 3",
		Entities: []*core.Entity{
			{
				ID: "pump", Name: "Pump", Kind: core.EntityBox, Visible: true,
				Transform: core.Transform{Position: core.Vec3{1, 0, 2}, Scale: core.Vec3{1, 1, 1}},
				Children:  []*core.Entity{{ID: "tag", Name: "Tag", Kind: core.EntityLabel, Visible: true}},
			},
		},
		Waypoints: []core.RoamingNode{
			core.NewRoamingNode("w1", core.Vec3{0, 0, 0}, core.IdentityQuat, core.Vec3{0, 0, -5}),
			core.NewRoamingNode("w2", core.Vec3{10, 0, 0}, core.IdentityQuat, core.Vec3{10, 0, -5}),
		},
		UpdatedAt: at,
	}
}

func TestInit_NoDB(t *testing.T) {
	b := New(Dependencies{})
	assert.Error(t, b.Init())
	assert.NoError(t, b.Close())
}

func TestSaveAndLoad(t *testing.T) {
	b := newTestBackend(t)
	at := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	want := testProject("p1", at)

	require.NoError(t, b.SaveProject(want))

	got, err := b.LoadProject("p1")
	require.NoError(t, err)
	assert.Equal(t, want.Name, got.Name)
	assert.True(t, at.Equal(got.UpdatedAt))
	assert.Equal(t, want.Entities, got.Entities)
	assert.Equal(t, want.Waypoints, got.Waypoints)
}

func TestSaveReplacesRows(t *testing.T) {
	b := newTestBackend(t)
	p := testProject("p1", time.Now().UTC())
	require.NoError(t, b.SaveProject(p))

	p.Name = "Line 4"
	p.Entities[0].Children = nil
	p.Waypoints = p.Waypoints[:1]
	require.NoError(t, b.SaveProject(p))

	got, err := b.LoadProject("p1")
	require.NoError(t, err)
	assert.Equal(t, "Line 4", got.Name)
	require.Len(t, got.Entities, 1)
	assert.Empty(t, got.Entities[0].Children)
	assert.Len(t, got.Waypoints, 1)
}

func TestLoadProject_NotFound(t *testing.T) {
	b := newTestBackend(t)
	_, err := b.LoadProject("missing")
	assert.ErrorIs(t, err, storage.ErrProjectNotFound)
}

func TestListProjects(t *testing.T) {
	b := newTestBackend(t)
	older := testProject("p1", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	newer := testProject("p2", time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	newer.Waypoints = nil
	require.NoError(t, b.SaveProject(older))
	require.NoError(t, b.SaveProject(newer))

	list, err := b.ListProjects()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "p2", list[0].ID)
	assert.Equal(t, 2, list[0].Entities)
	assert.Equal(t, 0, list[0].Waypoints)
	assert.Equal(t, "p1", list[1].ID)
	assert.Equal(t, 2, list[1].Waypoints)
}

func TestDeleteProject(t *testing.T) {
	b := newTestBackend(t)
	require.NoError(t, b.SaveProject(testProject("p1", time.Now().UTC())))

	require.NoError(t, b.DeleteProject("p1"))
	_, err := b.LoadProject("p1")
	assert.ErrorIs(t, err, storage.ErrProjectNotFound)
	assert.ErrorIs(t, b.DeleteProject("p1"), storage.ErrProjectNotFound)
}

func TestRevisionsAreQueuedUntilFlush(t *testing.T) {
	b := newTestBackend(t)
	p := testProject("p1", time.Now().UTC())
	require.NoError(t, b.SaveProject(p))
	require.NoError(t, b.SaveProject(p))

	assert.Equal(t, 2, b.revisions.Len())
	require.NoError(t, b.FlushRevisions())
	assert.Equal(t, 0, b.revisions.Len())

	revs, err := b.Revisions("p1")
	require.NoError(t, err)
	require.Len(t, revs, 2)
	assert.Equal(t, 2, revs[0].EntityCount)
	assert.Equal(t, 2, revs[0].Waypoints)
	assert.Equal(t, "test", revs[0].Backend)
}
