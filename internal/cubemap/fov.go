package cubemap

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

var cornerSigns = [8][3]float64{
	{-1, -1, -1}, {-1, -1, 1}, {-1, 1, -1}, {-1, 1, 1},
	{1, -1, -1}, {1, -1, 1}, {1, 1, -1}, {1, 1, 1},
}

func distSq(a, b r3.Vec) float64 {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return dx*dx + dy*dy + dz*dz
}

// Cull marks, among the cubes within +-2 of the sensor's predicted cube
// index, which are in the "surround" set (inside the grid) and which are
// additionally "valid" (in the sensor's field of view), per the
// cosine-law corner test with a cube-center fallback (spec §4.3).
// Returns the flat indices of the surround and valid cubes.
func (g *Grid) Cull(t, axisPoint r3.Vec, sensorRange float32) (surround, valid []int) {
	cx, cy, cz := g.Indices(t)
	Ls := float64(sensorRange)
	L := float64(g.L)

	for i := cx - 2; i <= cx+2; i++ {
		for j := cy - 2; j <= cy+2; j++ {
			for k := cz - 2; k <= cz+2; k++ {
				if !g.inBounds(i, j, k) {
					continue
				}
				idx := g.flatIndex(i, j, k)
				cube := g.cubes[idx]
				cube.surround = true
				surround = append(surround, idx)

				center := g.centerOf(i, j, k)
				cube.valid = inFOV(t, axisPoint, center, L, Ls)
				if cube.valid {
					valid = append(valid, idx)
				}
			}
		}
	}
	return surround, valid
}

func inFOV(t, axisPoint, center r3.Vec, L, Ls float64) bool {
	for _, s := range cornerSigns {
		corner := r3.Vec{
			X: center.X + 0.5*L*s[0],
			Y: center.Y + 0.5*L*s[1],
			Z: center.Z + 0.5*L*s[2],
		}
		d1sq := distSq(t, corner)
		d2sq := distSq(axisPoint, corner)
		var cos float64
		if d1sq <= 3 {
			cos = 1.0
		} else {
			cos = cosineLaw(d1sq, d2sq, Ls)
		}
		if cos > 0.7 {
			return true
		}
	}

	d1sq := distSq(t, center)
	if d1sq <= 0.4*L*L {
		return true
	}
	d2sq := distSq(axisPoint, center)
	var cos float64
	if d2sq <= 0.5*L {
		cos = 1.0
	} else {
		cos = cosineLaw(d1sq, d2sq, Ls)
	}
	return cos > 0.5
}

// cosineLaw computes cos(angle at t between the ray to the corner/center
// and the sensor forward ray) via the law of cosines over squared
// distances d1 (to t) and d2 (to the on-axis point); Ls is the side from t
// to the on-axis point and d2 the side opposite the angle.
func cosineLaw(d1sq, d2sq, Ls float64) float64 {
	return (Ls*Ls + d1sq - d2sq) / (2 * Ls * math.Sqrt(d1sq))
}
