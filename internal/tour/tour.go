// Package tour moves the camera around a ring of waypoints.
package tour

import (
	"log/slog"
	"math"
	"time"

	"github.com/omni3d/studio/internal/scene"
	"github.com/omni3d/studio/pkg/core"
)

// ReferenceSpeed is the camera speed in distance units per second at a
// waypoint speed multiplier of 1.
const ReferenceSpeed = 10

// minTravel stands in for a zero travel time so a segment still completes.
const minTravel = 0.1

// RecalculateTravelTimes sets each waypoint's travel time from its ring
// predecessor. Call it whenever the list changes.
func RecalculateTravelTimes(nodes []core.RoamingNode, referenceSpeed float32) []core.RoamingNode {
	if referenceSpeed <= 0 {
		referenceSpeed = ReferenceSpeed
	}
	n := len(nodes)
	for i := range nodes {
		if n < 2 {
			nodes[i].TravelTime = 0
			continue
		}
		prev := nodes[(i-1+n)%n]
		speed := nodes[i].Speed
		if speed == 0 {
			speed = 1
		}
		nodes[i].TravelTime = core.Distance(prev.Position, nodes[i].Position) / (referenceSpeed * speed)
	}
	return nodes
}

// State is the tour's observable position on the ring.
type State struct {
	Touring bool      `json:"touring"`
	Index   int       `json:"index"`
	Start   time.Time `json:"start"`
}

// Engine drives a camera along the waypoint ring.
type Engine struct {
	State
	logger *slog.Logger
}

// NewEngine creates a stopped engine.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger}
}

// Toggle starts or stops the tour. Starting needs at least two waypoints; the
// camera begins sitting on waypoint 0. It reports whether touring afterwards.
func (e *Engine) Toggle(now time.Time, nodes []core.RoamingNode, orbit *scene.OrbitControls) bool {
	if e.Touring {
		e.Stop(nodes, orbit)
		return false
	}
	if len(nodes) < 2 {
		e.logger.Debug("tour needs at least two waypoints", "waypoints", len(nodes))
		return false
	}
	e.Touring = true
	e.Index = 0
	e.Start = now.Add(-seconds(travelTime(nodes[0])))
	if orbit != nil {
		orbit.Enabled = false
	}
	e.logger.Info("tour started", "waypoints", len(nodes))
	return true
}

// Stop ends the tour and hands the current waypoint's orbit target back to
// manual navigation.
func (e *Engine) Stop(nodes []core.RoamingNode, orbit *scene.OrbitControls) {
	e.Touring = false
	if orbit == nil {
		return
	}
	orbit.Enabled = true
	if e.Index >= 0 && e.Index < len(nodes) {
		orbit.Target = nodes[e.Index].OrbitTarget
	}
	e.logger.Info("tour stopped", "index", e.Index)
}

// Sync stops a running tour whose ring has shrunk below two waypoints. It
// reports whether the tour was stopped.
func (e *Engine) Sync(nodes []core.RoamingNode, orbit *scene.OrbitControls) bool {
	if !e.Touring || len(nodes) >= 2 {
		return false
	}
	if e.Index >= len(nodes) {
		e.Index = max(len(nodes)-1, 0)
	}
	e.Stop(nodes, orbit)
	return true
}

// Frame places cam on the segment toward the active waypoint and returns the
// segment progress. Reaching the waypoint does not advance the tour.
func (e *Engine) Frame(now time.Time, nodes []core.RoamingNode, cam *scene.Camera) float32 {
	n := len(nodes)
	if !e.Touring || n < 2 || e.Index < 0 || e.Index >= n || cam == nil {
		return 0
	}
	cur := nodes[e.Index]
	prev := nodes[(e.Index-1+n)%n]

	t := float32(now.Sub(e.Start).Seconds()) / travelTime(cur)
	t = min(max(t, 0), 1)

	if t == 1 {
		cam.Position = cur.Position
		cam.Orientation = cur.Orientation
		return t
	}
	cam.Position = core.Vec3From(prev.Position.Math().Lerp(cur.Position.Math(), t))
	q := prev.Orientation.Math()
	q.Slerp(cur.Orientation.Math(), t)
	cam.Orientation = core.QuatFrom(q)
	return t
}

// Advance moves to the next waypoint once travel and dwell at the active
// one have elapsed. It reports whether the index changed.
func (e *Engine) Advance(now time.Time, nodes []core.RoamingNode) bool {
	n := len(nodes)
	if !e.Touring || n < 2 {
		return false
	}
	if e.Index >= n {
		e.Index = 0
		e.Start = now
		return true
	}
	cur := nodes[e.Index]
	if now.Sub(e.Start) < seconds(travelTime(cur)+cur.Duration) {
		return false
	}
	e.Index = (e.Index + 1) % n
	e.Start = now
	return true
}

func travelTime(n core.RoamingNode) float32 {
	if n.TravelTime <= 0 {
		return minTravel
	}
	return n.TravelTime
}

// seconds rounds up so a start placed travel seconds back completes the segment.
func seconds(s float32) time.Duration {
	return time.Duration(math.Ceil(float64(s) * float64(time.Second)))
}
