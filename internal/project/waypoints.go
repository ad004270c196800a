package project

import (
	"github.com/omni3d/studio/internal/tour"
	"github.com/omni3d/studio/pkg/core"
)

// WaypointPatch carries the waypoint fields to change.
type WaypointPatch struct {
	Position    *core.Vec3 `json:"position,omitempty"`
	Orientation *core.Quat `json:"orientation,omitempty"`
	OrbitTarget *core.Vec3 `json:"orbitTarget,omitempty"`
	Duration    *float32   `json:"duration,omitempty"`
	Speed       *float32   `json:"speed,omitempty"`
}

// Waypoints returns a copy of the tour ring.
func (c *Context) Waypoints() []core.RoamingNode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]core.RoamingNode(nil), c.state.Waypoints...)
}

// AddWaypoint appends a camera stop and returns its id.
func (c *Context) AddWaypoint(position core.Vec3, orientation core.Quat, orbitTarget core.Vec3) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := core.NewRoamingNode(c.newID(), position, orientation, orbitTarget)
	c.setWaypoints(append(c.state.Waypoints, n))
	return n.ID
}

// UpdateWaypoint applies patch and recomputes travel times.
func (c *Context) UpdateWaypoint(id string, patch WaypointPatch) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.state.Waypoints {
		w := &c.state.Waypoints[i]
		if w.ID != id {
			continue
		}
		if patch.Position != nil {
			w.Position = *patch.Position
		}
		if patch.Orientation != nil {
			w.Orientation = *patch.Orientation
		}
		if patch.OrbitTarget != nil {
			w.OrbitTarget = *patch.OrbitTarget
		}
		if patch.Duration != nil {
			w.Duration = max(*patch.Duration, 0)
		}
		if patch.Speed != nil {
			w.Speed = max(*patch.Speed, 0)
		}
		c.setWaypoints(c.state.Waypoints)
		return nil
	}
	return ErrWaypointNotFound
}

// RemoveWaypoint deletes a camera stop.
func (c *Context) RemoveWaypoint(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, w := range c.state.Waypoints {
		if w.ID == id {
			c.setWaypoints(append(c.state.Waypoints[:i:i], c.state.Waypoints[i+1:]...))
			return nil
		}
	}
	return ErrWaypointNotFound
}

func (c *Context) setWaypoints(nodes []core.RoamingNode) {
	c.state.Waypoints = tour.RecalculateTravelTimes(nodes, c.referenceSpeed)
}
