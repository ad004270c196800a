// pkg/core/roaming.go
package core

// RoamingNode is a camera stop on the tour ring.
type RoamingNode struct {
	ID          string `json:"id"`
	Position    Vec3   `json:"position"`
	Orientation Quat   `json:"orientation"`
	// OrbitTarget is the pivot handed back to orbit controls when touring stops.
	OrbitTarget Vec3    `json:"orbitTarget"`
	Duration    float32 `json:"duration"`
	Speed       float32 `json:"speed"`
	TravelTime  float32 `json:"travelTime"`
}

// NewRoamingNode returns a waypoint with the default dwell and speed.
func NewRoamingNode(id string, position Vec3, orientation Quat, orbitTarget Vec3) RoamingNode {
	return RoamingNode{
		ID:          id,
		Position:    position,
		Orientation: orientation,
		OrbitTarget: orbitTarget,
		Duration:    1,
		Speed:       1,
	}
}
