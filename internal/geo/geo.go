// Package geo converts scene positions and the camera tour to
// simplefeatures geometries for storage.
//
// Scene space is a local cartesian frame, so points are stored with no
// projection: X, Y and Z map straight onto the WKB coordinates.
package geo

import (
	"errors"
	"math"

	"github.com/omni3d/studio/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// Point returns v as a 3D point. Non-finite coordinates give an empty
// point, which Vec3FromPoint rejects.
func Point(v core.Vec3) geom.Point {
	p, err := geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: float64(v[0]), Y: float64(v[1])},
		Z:    float64(v[2]),
		Type: geom.DimXYZ,
	})
	if err != nil {
		return geom.NewEmptyPoint(geom.DimXYZ)
	}
	return p
}

// Vec3FromPoint reads a point back. Empty points are rejected.
func Vec3FromPoint(p geom.Point) (core.Vec3, error) {
	c, ok := p.Coordinates()
	if !ok {
		return core.Vec3{}, ErrInvalidCoordinates
	}
	return core.Vec3{float32(c.X), float32(c.Y), float32(c.Z)}, nil
}

// TourPath returns the closed camera ring through the waypoint positions.
// Fewer than two waypoints, or a non-finite position, give an empty line.
func TourPath(nodes []core.RoamingNode) geom.LineString {
	if len(nodes) < 2 {
		return geom.LineString{}
	}
	flat := make([]float64, 0, (len(nodes)+1)*3)
	for _, n := range nodes {
		flat = append(flat, float64(n.Position[0]), float64(n.Position[1]), float64(n.Position[2]))
	}
	first := nodes[0].Position
	flat = append(flat, float64(first[0]), float64(first[1]), float64(first[2]))
	ls, err := geom.NewLineString(geom.NewSequence(flat, geom.DimXYZ))
	if err != nil {
		return geom.LineString{}
	}
	return ls
}

// Positions returns the vertices of ls.
func Positions(ls geom.LineString) []core.Vec3 {
	seq := ls.Coordinates()
	out := make([]core.Vec3, seq.Length())
	for i := range out {
		c := seq.Get(i)
		out[i] = core.Vec3{float32(c.X), float32(c.Y), float32(c.Z)}
	}
	return out
}

// PathLength is the 3D length of ls. simplefeatures measures in the XY
// plane only, so Z is summed here.
func PathLength(ls geom.LineString) float64 {
	seq := ls.Coordinates()
	var total float64
	for i := 1; i < seq.Length(); i++ {
		a, b := seq.Get(i-1), seq.Get(i)
		dx, dy, dz := b.X-a.X, b.Y-a.Y, b.Z-a.Z
		total += math.Sqrt(dx*dx + dy*dy + dz*dz)
	}
	return total
}
