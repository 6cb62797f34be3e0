package geometry

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// RigidTransform maps a sensor-frame point into world coordinates:
// R * (p + ext) + t, where ext is the constant body->sensor offset.
func RigidTransform(R *mat.Dense, t r3.Vec, ext r3.Vec, p r3.Vec) r3.Vec {
	shifted := r3.Add(p, ext)
	rotated := mulDenseVec(R, shifted)
	return r3.Add(rotated, t)
}

func mulDenseVec(R *mat.Dense, v r3.Vec) r3.Vec {
	x := R.At(0, 0)*v.X + R.At(0, 1)*v.Y + R.At(0, 2)*v.Z
	y := R.At(1, 0)*v.X + R.At(1, 1)*v.Y + R.At(1, 2)*v.Z
	z := R.At(2, 0)*v.X + R.At(2, 1)*v.Y + R.At(2, 2)*v.Z
	return r3.Vec{X: x, Y: y, Z: z}
}

// MulRot returns A*B for two 3x3 rotation matrices.
func MulRot(a, b *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.Mul(a, b)
	return &out
}

// Transpose returns the transpose of a 3x3 matrix.
func Transpose(a *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.CloneFrom(a.T())
	return &out
}

// Quaternion is a Hamilton quaternion (w, x, y, z).
type Quaternion struct {
	W, X, Y, Z float64
}

// OdometryQuaternion computes the quaternion published with odometry from
// the current rotation's Euler decomposition, preserving the downstream
// remap bit-for-bit: roll<-yaw_axis, pitch<-(-roll_axis), yaw<-(-pitch_axis).
// This is a load-bearing contract (design note §9) and must not be "fixed".
func OdometryQuaternion(R *mat.Dense) Quaternion {
	rollAxis, pitchAxis, yawAxis := EulerYXZ(R)
	roll := yawAxis
	pitch := -rollAxis
	yaw := -pitchAxis
	return eulerToQuaternion(roll, pitch, yaw)
}

func eulerToQuaternion(roll, pitch, yaw float64) Quaternion {
	cr, sr := math.Cos(roll*0.5), math.Sin(roll*0.5)
	cp, sp := math.Cos(pitch*0.5), math.Sin(pitch*0.5)
	cy, sy := math.Cos(yaw*0.5), math.Sin(yaw*0.5)

	return Quaternion{
		W: cr*cp*cy + sr*sp*sy,
		X: sr*cp*cy - cr*sp*sy,
		Y: cr*sp*cy + sr*cp*sy,
		Z: cr*cp*sy - sr*sp*cy,
	}
}

// Identity3 returns the 3x3 identity matrix.
func Identity3() *mat.Dense {
	return eye3()
}
