package cubemap

import "gonum.org/v1/gonum/spatial/r3"

// Recenter slides the cube grid so the predicted sensor position t lands
// within [3, W-4] x [3, H-4] x [3, D-4] (invariant I2), shifting cube-list
// ownership (never copying point contents) one slot per step.
func (g *Grid) Recenter(predictedT r3.Vec) {
	ci, cj, ck := g.Indices(predictedT)

	for ci < 3 {
		g.shiftX(+1)
		g.cx++
		ci++
	}
	for ci >= g.W-3 {
		g.shiftX(-1)
		g.cx--
		ci--
	}

	for cj < 3 {
		g.shiftY(+1)
		g.cy++
		cj++
	}
	for cj >= g.H-3 {
		g.shiftY(-1)
		g.cy--
		cj--
	}

	for ck < 3 {
		g.shiftZ(+1)
		g.cz++
		ck++
	}
	for ck >= g.D-3 {
		g.shiftZ(-1)
		g.cz--
		ck--
	}
}

// shiftX moves every cube-list one slot toward higher X index (dir>0) or
// lower X index (dir<0), clearing the vacated slot. Handles fast motion
// (multiple slots per frame) by being called repeatedly from Recenter.
func (g *Grid) shiftX(dir int) {
	for k := 0; k < g.D; k++ {
		for j := 0; j < g.H; j++ {
			if dir > 0 {
				for i := g.W - 1; i >= 1; i-- {
					g.cubes[g.flatIndex(i, j, k)] = g.cubes[g.flatIndex(i-1, j, k)]
				}
				g.cubes[g.flatIndex(0, j, k)] = &Cube{}
			} else {
				for i := 0; i <= g.W-2; i++ {
					g.cubes[g.flatIndex(i, j, k)] = g.cubes[g.flatIndex(i+1, j, k)]
				}
				g.cubes[g.flatIndex(g.W-1, j, k)] = &Cube{}
			}
		}
	}
}

func (g *Grid) shiftY(dir int) {
	for k := 0; k < g.D; k++ {
		for i := 0; i < g.W; i++ {
			if dir > 0 {
				for j := g.H - 1; j >= 1; j-- {
					g.cubes[g.flatIndex(i, j, k)] = g.cubes[g.flatIndex(i, j-1, k)]
				}
				g.cubes[g.flatIndex(i, 0, k)] = &Cube{}
			} else {
				for j := 0; j <= g.H-2; j++ {
					g.cubes[g.flatIndex(i, j, k)] = g.cubes[g.flatIndex(i, j+1, k)]
				}
				g.cubes[g.flatIndex(i, g.H-1, k)] = &Cube{}
			}
		}
	}
}

func (g *Grid) shiftZ(dir int) {
	for j := 0; j < g.H; j++ {
		for i := 0; i < g.W; i++ {
			if dir > 0 {
				for k := g.D - 1; k >= 1; k-- {
					g.cubes[g.flatIndex(i, j, k)] = g.cubes[g.flatIndex(i, j, k-1)]
				}
				g.cubes[g.flatIndex(i, j, 0)] = &Cube{}
			} else {
				for k := 0; k <= g.D-2; k++ {
					g.cubes[g.flatIndex(i, j, k)] = g.cubes[g.flatIndex(i, j, k+1)]
				}
				g.cubes[g.flatIndex(i, j, g.D-1)] = &Cube{}
			}
		}
	}
}
