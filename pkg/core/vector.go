// pkg/core/vector.go
package core

import "cogentcore.org/core/math32"

// Vec3 is a position, euler rotation (radians) or scale triple.
type Vec3 [3]float32

// Quat is an orientation quaternion stored as x, y, z, w.
type Quat [4]float32

// IdentityQuat is the no-rotation orientation.
var IdentityQuat = Quat{0, 0, 0, 1}

// Math returns the vector as a math32 value.
func (v Vec3) Math() math32.Vector3 {
	return math32.Vec3(v[0], v[1], v[2])
}

// Vec3From converts a math32 vector back to a Vec3.
func Vec3From(v math32.Vector3) Vec3 {
	return Vec3{v.X, v.Y, v.Z}
}

// Math returns the quaternion as a math32 value.
func (q Quat) Math() math32.Quat {
	return math32.NewQuat(q[0], q[1], q[2], q[3])
}

// QuatFrom converts a math32 quaternion back to a Quat.
func QuatFrom(q math32.Quat) Quat {
	return Quat{q.X, q.Y, q.Z, q.W}
}

// Distance returns the euclidean distance between two points.
func Distance(a, b Vec3) float32 {
	return a.Math().Sub(b.Math()).Length()
}

// Transform is the local placement of a node relative to its parent.
type Transform struct {
	Position Vec3 `json:"position"`
	Rotation Vec3 `json:"rotation"`
	Scale    Vec3 `json:"scale"`
}

// IdentityTransform returns a transform at the origin with unit scale.
func IdentityTransform() Transform {
	return Transform{Scale: Vec3{1, 1, 1}}
}
