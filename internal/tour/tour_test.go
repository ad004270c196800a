package tour

import (
	"math"
	"testing"
	"time"

	"github.com/omni3d/studio/internal/scene"
	"github.com/omni3d/studio/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ring() []core.RoamingNode {
	yaw := core.Quat{0, float32(math.Sin(math.Pi / 4)), 0, float32(math.Cos(math.Pi / 4))}
	nodes := []core.RoamingNode{
		core.NewRoamingNode("a", core.Vec3{0, 0, 0}, core.IdentityQuat, core.Vec3{0, 0, -5}),
		core.NewRoamingNode("b", core.Vec3{10, 0, 0}, yaw, core.Vec3{10, 0, -5}),
		core.NewRoamingNode("c", core.Vec3{10, 10, 0}, core.IdentityQuat, core.Vec3{10, 10, -5}),
	}
	return RecalculateTravelTimes(nodes, ReferenceSpeed)
}

func TestRecalculateTravelTimes(t *testing.T) {
	nodes := ring()
	assert.InDelta(t, math.Sqrt(200)/10, nodes[0].TravelTime, 1e-5)
	assert.InDelta(t, 1, nodes[1].TravelTime, 1e-6)
	assert.InDelta(t, 1, nodes[2].TravelTime, 1e-6)

	nodes[1].Speed = 2
	RecalculateTravelTimes(nodes, ReferenceSpeed)
	assert.InDelta(t, 0.5, nodes[1].TravelTime, 1e-6)

	nodes[1].Speed = 0
	RecalculateTravelTimes(nodes, ReferenceSpeed)
	assert.InDelta(t, 1, nodes[1].TravelTime, 1e-6, "zero speed counts as 1")

	single := RecalculateTravelTimes([]core.RoamingNode{{Position: core.Vec3{3, 0, 0}, Speed: 1, TravelTime: 7}}, ReferenceSpeed)
	assert.Zero(t, single[0].TravelTime)
}

func TestEngine_ToggleNeedsTwoWaypoints(t *testing.T) {
	e := NewEngine(nil)
	nodes := ring()[:1]
	orbit := &scene.OrbitControls{Enabled: true}

	assert.False(t, e.Toggle(time.Now(), nodes, orbit))
	assert.False(t, e.Touring)
	assert.True(t, orbit.Enabled)
}

func TestEngine_RingScenario(t *testing.T) {
	nodes := ring()
	e := NewEngine(nil)
	cam := &scene.Camera{Orientation: core.IdentityQuat}
	t0 := time.Now()

	require.True(t, e.Toggle(t0, nodes, nil))
	assert.Equal(t, float32(1), e.Frame(t0, nodes, cam))
	assert.Equal(t, nodes[0].Position, cam.Position, "starts sitting on waypoint 0")

	assert.False(t, e.Advance(t0.Add(500*time.Millisecond), nodes), "still dwelling")
	t1 := t0.Add(1100 * time.Millisecond)
	require.True(t, e.Advance(t1, nodes))
	assert.Equal(t, 1, e.Index)

	e.Frame(t1.Add(500*time.Millisecond), nodes, cam)
	assert.InDelta(t, 5, cam.Position[0], 1e-4)
	assert.InDelta(t, 0, cam.Position[1], 1e-4)

	elapsed := time.Duration(float64(nodes[1].TravelTime) * float64(time.Second))
	assert.Equal(t, float32(1), e.Frame(t1.Add(elapsed), nodes, cam))
	assert.Equal(t, nodes[1].Position, cam.Position)
	assert.Equal(t, nodes[1].Orientation, cam.Orientation)

	e.Frame(t1.Add(10*time.Second), nodes, cam)
	assert.Equal(t, nodes[1].Position, cam.Position, "clamped without advancing")
	assert.Equal(t, 1, e.Index)
}

func TestEngine_SlerpsOrientation(t *testing.T) {
	nodes := ring()
	e := NewEngine(nil)
	cam := &scene.Camera{}
	t0 := time.Now()
	e.Toggle(t0, nodes, nil)
	require.True(t, e.Advance(t0.Add(2*time.Second), nodes))

	e.Frame(e.Start.Add(500*time.Millisecond), nodes, cam)
	half := float32(math.Sin(math.Pi / 8))
	assert.InDelta(t, half, cam.Orientation[1], 1e-4)
	assert.InDelta(t, math.Cos(math.Pi/8), cam.Orientation[3], 1e-4)
}

func TestEngine_AdvanceWrapsRing(t *testing.T) {
	nodes := ring()
	e := NewEngine(nil)
	now := time.Now()
	e.Toggle(now, nodes, nil)
	for i := 0; i < 3; i++ {
		now = now.Add(5 * time.Second)
		require.True(t, e.Advance(now, nodes))
	}
	assert.Equal(t, 0, e.Index)
}

func TestEngine_StopResyncsOrbit(t *testing.T) {
	nodes := ring()
	e := NewEngine(nil)
	orbit := &scene.OrbitControls{Enabled: true}
	now := time.Now()
	e.Toggle(now, nodes, orbit)
	assert.False(t, orbit.Enabled)
	e.Advance(now.Add(5*time.Second), nodes)

	assert.False(t, e.Toggle(now.Add(6*time.Second), nodes, orbit))
	assert.False(t, e.Touring)
	assert.True(t, orbit.Enabled)
	assert.Equal(t, nodes[1].OrbitTarget, orbit.Target)
}

func TestEngine_FrameIdleIsNoop(t *testing.T) {
	e := NewEngine(nil)
	cam := &scene.Camera{Position: core.Vec3{1, 2, 3}}
	assert.Zero(t, e.Frame(time.Now(), ring(), cam))
	assert.Equal(t, core.Vec3{1, 2, 3}, cam.Position)
}

func TestEngine_SyncStopsShrunkRing(t *testing.T) {
	nodes := ring()
	e := NewEngine(nil)
	orbit := &scene.OrbitControls{Enabled: true}
	now := time.Now()
	require.True(t, e.Toggle(now, nodes, orbit))
	require.True(t, e.Advance(now.Add(5*time.Second), nodes))

	assert.False(t, e.Sync(nodes, orbit), "three waypoints keep touring")
	assert.True(t, e.Touring)

	// the active waypoint was removed, leaving one
	left := nodes[:1]
	assert.True(t, e.Sync(left, orbit))
	assert.False(t, e.Touring)
	assert.True(t, orbit.Enabled)
	assert.Equal(t, left[0].OrbitTarget, orbit.Target)
	assert.Equal(t, 0, e.Index)

	assert.False(t, e.Sync(nil, orbit), "already stopped")
}

func TestEngine_ZeroTravelSegmentCompletesBeforeAdvance(t *testing.T) {
	yaw := core.Quat{0, float32(math.Sin(math.Pi / 4)), 0, float32(math.Cos(math.Pi / 4))}
	nodes := []core.RoamingNode{
		{ID: "a", Position: core.Vec3{2, 0, 0}, Orientation: core.IdentityQuat},
		{ID: "b", Position: core.Vec3{2, 0, 0}, Orientation: yaw},
	}
	nodes = RecalculateTravelTimes(nodes, ReferenceSpeed)
	require.Zero(t, nodes[1].TravelTime)

	e := NewEngine(nil)
	cam := &scene.Camera{}
	t0 := time.Now()
	require.True(t, e.Toggle(t0, nodes, nil))
	require.True(t, e.Advance(t0, nodes))
	require.Equal(t, 1, e.Index)

	mid := t0.Add(50 * time.Millisecond)
	assert.False(t, e.Advance(mid, nodes), "segment still turning")
	assert.InDelta(t, 0.5, e.Frame(mid, nodes, cam), 1e-3)
	assert.InDelta(t, math.Sin(math.Pi/8), cam.Orientation[1], 1e-3)

	end := t0.Add(100 * time.Millisecond)
	assert.Equal(t, float32(1), e.Frame(end, nodes, cam))
	assert.Equal(t, yaw, cam.Orientation)
	assert.True(t, e.Advance(end.Add(time.Millisecond), nodes))
}
