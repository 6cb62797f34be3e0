// Package cubemap implements the sliding cubic voxel map (component C3):
// a W x H x D array of cube point lists that is recentered and FOV-culled
// as the sensor moves, plus the k-d indexed submap built from it each
// frame. Grounded on original_source/src/laserMapping.cpp's
// lasermap_fov_segment and on the teacher's kyroy/kdtree wiring
// (internal/pointcloud.go), generalized from 2-D to 3-D.
package cubemap

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ZanzyTHEbar/lio-mapping/internal/voxelgrid"
)

// Cube owns the points that fall inside one voxel of the sliding grid.
// Cube lists are created once at startup and persist for process
// lifetime; Points is swapped wholesale on recenter, never copied
// element-by-element (design note: ring-buffer-over-3D-grid).
type Cube struct {
	Points []voxelgrid.Point
	// Corner carries the corner-feature buffer through ingestion and
	// persistence even though the surface-only matcher never reads it
	// (supplemented feature: original_source's corner passthrough).
	Corner []voxelgrid.Point

	valid    bool
	surround bool
}

// Grid is the fixed-size cube array with a sliding logical origin.
type Grid struct {
	W, H, D int
	L       float32

	cubes      []*Cube
	cx, cy, cz int
}

// NewGrid allocates a W x H x D grid of empty cubes, with the logical
// origin centered so (cx, cy, cz) = (W/2, H/2, D/2).
func NewGrid(w, h, d int, cubeSideLength float32) *Grid {
	g := &Grid{
		W: w, H: h, D: d,
		L:     cubeSideLength,
		cubes: make([]*Cube, w*h*d),
		cx:    w / 2,
		cy:    h / 2,
		cz:    d / 2,
	}
	for i := range g.cubes {
		g.cubes[i] = &Cube{}
	}
	return g
}

// Dims returns the current center offsets (cx, cy, cz).
func (g *Grid) Dims() (cx, cy, cz int) {
	return g.cx, g.cy, g.cz
}

func (g *Grid) flatIndex(i, j, k int) int {
	return i + g.W*j + g.W*g.H*k
}

func (g *Grid) inBounds(i, j, k int) bool {
	return i >= 0 && i < g.W && j >= 0 && j < g.H && k >= 0 && k < g.D
}

// CubeAt returns the cube at grid indices (i, j, k), or nil if out of
// bounds.
func (g *Grid) CubeAt(i, j, k int) *Cube {
	if !g.inBounds(i, j, k) {
		return nil
	}
	return g.cubes[g.flatIndex(i, j, k)]
}

// Indices maps a world coordinate to grid indices per invariant I1:
// i = floor((p.x + L/2)/L) + cx, likewise j, k.
func (g *Grid) Indices(p r3.Vec) (i, j, k int) {
	L := float64(g.L)
	i = int(math.Floor((p.X+L/2)/L)) + g.cx
	j = int(math.Floor((p.Y+L/2)/L)) + g.cy
	k = int(math.Floor((p.Z+L/2)/L)) + g.cz
	return
}

// centerOf returns the world-frame center of cube (i, j, k).
func (g *Grid) centerOf(i, j, k int) r3.Vec {
	L := float64(g.L)
	return r3.Vec{
		X: L * float64(i-g.cx),
		Y: L * float64(j-g.cy),
		Z: L * float64(k-g.cz),
	}
}
