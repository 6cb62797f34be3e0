package filter

import (
	"gonum.org/v1/gonum/mat"

	"github.com/ZanzyTHEbar/lio-mapping/internal/match"
)

// stack assembles the accepted rows from one match pass into a dense
// Jacobian H and measurement vector z. Callers must guard against an
// empty rows slice (the minSelected check) before calling this.
func stack(rows []match.Row) (*mat.Dense, *mat.VecDense) {
	n := len(rows)
	h := mat.NewDense(n, N, nil)
	z := mat.NewVecDense(n, nil)
	for i, r := range rows {
		h.SetRow(i, r.H)
		z.SetVec(i, r.Z)
	}
	return h, z
}
