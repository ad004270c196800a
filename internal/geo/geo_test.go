package geo

import (
	"errors"
	"math"
	"testing"

	"github.com/omni3d/studio/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

func TestPointRoundTrip(t *testing.T) {
	p := Point(core.Vec3{1.5, -2, 3.25})

	c, ok := p.Coordinates()
	if !ok {
		t.Fatal("expected valid coordinates")
	}
	if c.X != 1.5 || c.Y != -2 || c.Z != 3.25 {
		t.Errorf("unexpected coordinates %+v", c)
	}

	v, err := Vec3FromPoint(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != (core.Vec3{1.5, -2, 3.25}) {
		t.Errorf("expected {1.5 -2 3.25}, got %v", v)
	}
}

func TestVec3FromPoint_Empty(t *testing.T) {
	var empty geom.Point
	_, err := Vec3FromPoint(empty)
	if !errors.Is(err, ErrInvalidCoordinates) {
		t.Errorf("expected ErrInvalidCoordinates, got %v", err)
	}
}

func TestPoint_NonFinite(t *testing.T) {
	p := Point(core.Vec3{float32(math.Inf(1)), 0, 0})
	if !p.IsEmpty() {
		t.Fatal("expected an empty point for an infinite coordinate")
	}
	if _, err := Vec3FromPoint(p); !errors.Is(err, ErrInvalidCoordinates) {
		t.Errorf("expected ErrInvalidCoordinates, got %v", err)
	}

	ls := TourPath([]core.RoamingNode{{Position: core.Vec3{float32(math.NaN()), 0, 0}}, {}})
	if !ls.IsEmpty() {
		t.Error("a non-finite waypoint should give an empty path")
	}
}

func ring() []core.RoamingNode {
	return []core.RoamingNode{
		{ID: "a", Position: core.Vec3{0, 0, 0}},
		{ID: "b", Position: core.Vec3{3, 0, 0}},
		{ID: "c", Position: core.Vec3{3, 4, 0}},
	}
}

func TestTourPath_ClosesTheRing(t *testing.T) {
	ls := TourPath(ring())

	pts := Positions(ls)
	if len(pts) != 4 {
		t.Fatalf("expected 4 vertices, got %d", len(pts))
	}
	if pts[3] != pts[0] {
		t.Errorf("ring should end where it starts, got %v", pts[3])
	}
	if got := PathLength(ls); got != 12 {
		t.Errorf("expected length 12, got %f", got)
	}
}

func TestTourPath_TooShort(t *testing.T) {
	ls := TourPath(ring()[:1])
	if !ls.IsEmpty() {
		t.Error("a single waypoint has no path")
	}
	if PathLength(ls) != 0 {
		t.Error("empty path has no length")
	}
}

func TestPathLength_UsesZ(t *testing.T) {
	ls := TourPath([]core.RoamingNode{
		{Position: core.Vec3{0, 0, 0}},
		{Position: core.Vec3{0, 0, 5}},
	})
	if got := PathLength(ls); got != 10 {
		t.Errorf("expected 10, got %f", got)
	}
}
