// Package geometry provides the SO(3) and rigid-transform primitives shared
// by the cube map, plane matcher and iterated filter.
package geometry

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

const angleEps = 1e-11

// Skew returns the 3x3 skew-symmetric (cross-product) matrix of v.
func Skew(v [3]float64) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		0, -v[2], v[1],
		v[2], 0, -v[0],
		-v[1], v[0], 0,
	})
}

// Exp computes the rotation matrix corresponding to the tangent-space
// perturbation omega via Rodrigues' formula, falling back to I + skew(omega)
// when the rotation angle is too small for the exact form to be numerically
// stable.
func Exp(omega [3]float64) *mat.Dense {
	theta := math.Sqrt(omega[0]*omega[0] + omega[1]*omega[1] + omega[2]*omega[2])
	K := Skew(omega)

	R := mat.NewDense(3, 3, nil)
	R.Scale(1, eye3())

	if theta < angleEps {
		// Degenerate norm: first-order approximation I + skew(omega).
		R.Add(R, K)
		return R
	}

	var K2 mat.Dense
	K2.Mul(K, K)

	var term1, term2 mat.Dense
	term1.Scale(math.Sin(theta)/theta, K)
	term2.Scale((1-math.Cos(theta))/(theta*theta), &K2)

	R.Add(R, &term1)
	R.Add(R, &term2)
	return R
}

// Log computes the tangent-space vector omega such that Exp(omega) == R,
// for R a valid rotation matrix.
func Log(R *mat.Dense) [3]float64 {
	trace := R.At(0, 0) + R.At(1, 1) + R.At(2, 2)
	cosTheta := (trace - 1) / 2
	cosTheta = math.Max(-1, math.Min(1, cosTheta))
	theta := math.Acos(cosTheta)

	if theta < angleEps {
		return [3]float64{0, 0, 0}
	}

	scale := theta / (2 * math.Sin(theta))
	return [3]float64{
		scale * (R.At(2, 1) - R.At(1, 2)),
		scale * (R.At(0, 2) - R.At(2, 0)),
		scale * (R.At(1, 0) - R.At(0, 1)),
	}
}

func eye3() *mat.Dense {
	I := mat.NewDense(3, 3, nil)
	I.Set(0, 0, 1)
	I.Set(1, 1, 1)
	I.Set(2, 2, 1)
	return I
}

// wrapPi wraps an angle in radians to (-pi, pi].
func wrapPi(a float64) float64 {
	for a <= -math.Pi {
		a += 2 * math.Pi
	}
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}

// WrapAngle wraps a single angle to (-pi, pi], for callers that need the
// wrap on one angle only. The odometry publish path does not call it; it
// relies on EulerYXZ, which already wraps all three angles.
func WrapAngle(a float64) float64 {
	return wrapPi(a)
}

// EulerYXZ extracts roll/pitch/yaw from R using the Y-X-Z rotation order the
// downstream odometry consumer expects, wrapped to (-pi, pi].
func EulerYXZ(R *mat.Dense) (roll, pitch, yaw float64) {
	// R = Ry(yaw) * Rx(pitch) * Rz(roll) convention used by the source system.
	pitch = math.Asin(clamp(-R.At(1, 2)))
	cosPitch := math.Cos(pitch)
	if math.Abs(cosPitch) < 1e-9 {
		// Gimbal lock: fold roll into yaw.
		roll = 0
		yaw = math.Atan2(-R.At(2, 0), R.At(0, 0))
	} else {
		roll = math.Atan2(R.At(1, 0), R.At(1, 1))
		yaw = math.Atan2(R.At(0, 2), R.At(2, 2))
	}
	return wrapPi(roll), wrapPi(pitch), wrapPi(yaw)
}

func clamp(x float64) float64 {
	if x > 1 {
		return 1
	}
	if x < -1 {
		return -1
	}
	return x
}
