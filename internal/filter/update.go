package filter

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// updateStep solves the measurement update
//
//	K = (H^T H + (P / sigma^2)^-1)^-1 H^T
//	solution = K z
//
// and decomposes solution into per-block deltas. ok is false if either
// matrix inverse is singular, in which case the caller must skip the
// iteration rather than apply a delta.
func updateStep(x State, H *mat.Dense, z *mat.VecDense) (rotAdd, tAdd, vAdd, bgAdd, baAdd, gAdd r3.Vec, K *mat.Dense, ok bool) {
	var ht mat.Dense
	ht.CloneFrom(H.T())

	var hth mat.Dense
	hth.Mul(&ht, H)

	var scaledCov mat.Dense
	scaledCov.Scale(1/SigmaSq, x.Cov)

	var covInv mat.Dense
	if err := covInv.Inverse(&scaledCov); err != nil {
		return r3.Vec{}, r3.Vec{}, r3.Vec{}, r3.Vec{}, r3.Vec{}, r3.Vec{}, nil, false
	}

	var lhs mat.Dense
	lhs.Add(&hth, &covInv)

	var lhsInv mat.Dense
	if err := lhsInv.Inverse(&lhs); err != nil {
		return r3.Vec{}, r3.Vec{}, r3.Vec{}, r3.Vec{}, r3.Vec{}, r3.Vec{}, nil, false
	}

	var k mat.Dense
	k.Mul(&lhsInv, &ht)

	var solution mat.VecDense
	solution.MulVec(&k, z)

	rotAdd = vec3(&solution, 0)
	tAdd = vec3(&solution, 3)
	vAdd = vec3(&solution, 6)
	bgAdd = vec3(&solution, 9)
	baAdd = vec3(&solution, 12)
	gAdd = vec3(&solution, 15)

	return rotAdd, tAdd, vAdd, bgAdd, baAdd, gAdd, &k, true
}
