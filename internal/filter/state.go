// Package filter implements the iterated error-state Kalman filter
// (component C5): the outer iteration loop that turns a set of
// point-to-plane correspondences into a state correction, including the
// first-TInit-seconds 9-DoF anchoring path. Grounded on
// original_source/src/laserMapping.cpp's ESEKF update/init block and the
// Valkyrie ekf.go gonum idiom (other_examples).
package filter

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ZanzyTHEbar/lio-mapping/internal/geometry"
)

// N is the filter state dimension: rotation(3) + position(3) +
// velocity(3) + gyro bias(3) + accel bias(3) + gravity(3).
const N = 18

// State is the full ESEKF state carried between mapping frames.
type State struct {
	R                   *mat.Dense // 3x3 world<-body rotation
	T, V                r3.Vec
	BiasGyro, BiasAccel r3.Vec
	Gravity             r3.Vec
	Cov                 *mat.Dense // NxN state covariance
}

// NewState builds an identity-rotation, zero-motion state with the given
// prior covariance.
func NewState(cov *mat.Dense) State {
	return State{R: geometry.Identity3(), Cov: cov}
}

// Clone deep-copies R and Cov so an in-progress iteration never mutates
// the caller's prior.
func (s State) Clone() State {
	var r, cov mat.Dense
	r.CloneFrom(s.R)
	cov.CloneFrom(s.Cov)
	return State{
		R: &r, T: s.T, V: s.V,
		BiasGyro: s.BiasGyro, BiasAccel: s.BiasAccel, Gravity: s.Gravity,
		Cov: &cov,
	}
}

func addVec(a, b r3.Vec) r3.Vec {
	return r3.Vec{X: a.X + b.X, Y: a.Y + b.Y, Z: a.Z + b.Z}
}

func normVec(v r3.Vec) float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

func mulExp(r *mat.Dense, delta r3.Vec) *mat.Dense {
	exp := geometry.Exp([3]float64{delta.X, delta.Y, delta.Z})
	var out mat.Dense
	out.Mul(r, exp)
	return &out
}

// covUpdate applies the Joseph-free covariance update P <- (I - K H) P.
// K and H's inner dimension need only agree with each other; the outer
// dimensions must match cov's NxN, which holds for both the 9-DoF init
// gain and the full measurement gain.
func covUpdate(cov, K, H *mat.Dense) *mat.Dense {
	n, _ := cov.Dims()
	var kh mat.Dense
	kh.Mul(K, H)

	var imkh mat.Dense
	imkh.Sub(identity(n), &kh)

	var out mat.Dense
	out.Mul(&imkh, cov)
	return &out
}

func identity(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

func vec3(v *mat.VecDense, start int) r3.Vec {
	return r3.Vec{X: v.AtVec(start), Y: v.AtVec(start + 1), Z: v.AtVec(start + 2)}
}
