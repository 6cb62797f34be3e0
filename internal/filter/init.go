package filter

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ZanzyTHEbar/lio-mapping/internal/geometry"
)

const initRegularizer = 1e-4

// initStep computes the 9-DoF anchoring update used while inInitWindow
// is set: H_init selects (rotation, position, gravity) out of the full
// state and z_init anchors them to zero. AnchorRotation controls whether
// z_init's rotation block actually carries -Log(R), or is clobbered by
// the position target before use — the latter reproduces a double
// assignment in the original init block (z_init.block<3,1>(0,0) set
// twice, once to -Log(R) and then to -T, with the first write
// discarded and the position rows never populated).
func initStep(x State, opts InitOptions) (rotAdd, tAdd, vAdd, bgAdd, baAdd, gAdd r3.Vec, K, H *mat.Dense, ok bool) {
	n, _ := x.Cov.Dims()

	h := mat.NewDense(9, n, nil)
	h.Set(0, 0, 1)
	h.Set(1, 1, 1)
	h.Set(2, 2, 1)
	h.Set(3, 3, 1)
	h.Set(4, 4, 1)
	h.Set(5, 5, 1)
	h.Set(6, 15, 1)
	h.Set(7, 16, 1)
	h.Set(8, 17, 1)

	z := mat.NewVecDense(9, nil)
	if opts.AnchorRotation {
		logR := geometry.Log(x.R)
		z.SetVec(0, -logR[0])
		z.SetVec(1, -logR[1])
		z.SetVec(2, -logR[2])
		z.SetVec(3, -x.T.X)
		z.SetVec(4, -x.T.Y)
		z.SetVec(5, -x.T.Z)
	} else {
		z.SetVec(0, -x.T.X)
		z.SetVec(1, -x.T.Y)
		z.SetVec(2, -x.T.Z)
	}

	var ht mat.Dense
	ht.CloneFrom(h.T())

	var covHt mat.Dense
	covHt.Mul(x.Cov, &ht)

	var hCovHt mat.Dense
	hCovHt.Mul(h, &covHt)

	reg := mat.NewDense(9, 9, nil)
	for i := 0; i < 9; i++ {
		reg.Set(i, i, initRegularizer)
	}

	var inner mat.Dense
	inner.Add(&hCovHt, reg)

	var innerInv mat.Dense
	if err := innerInv.Inverse(&inner); err != nil {
		return r3.Vec{}, r3.Vec{}, r3.Vec{}, r3.Vec{}, r3.Vec{}, r3.Vec{}, nil, nil, false
	}

	var k mat.Dense
	k.Mul(&covHt, &innerInv)

	var solution mat.VecDense
	solution.MulVec(&k, z)

	rotAdd = vec3(&solution, 0)
	tAdd = vec3(&solution, 3)
	vAdd = vec3(&solution, 6)
	bgAdd = vec3(&solution, 9)
	baAdd = vec3(&solution, 12)
	gAdd = vec3(&solution, 15)

	return rotAdd, tAdd, vAdd, bgAdd, baAdd, gAdd, &k, h, true
}
