package cubemap

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ZanzyTHEbar/lio-mapping/internal/voxelgrid"
)

// Ingest places each world-frame point (the filter's updated, not raw,
// positions — design note: ingestion uses post-iteration points to avoid
// map drift) into the cube that owns it, silently dropping points that
// fall outside the grid (invariant I3). Every touched cube is
// downsampled in place with leafSurf before returning.
func (g *Grid) Ingest(points []voxelgrid.Point, leafSurf float32) (touched []int) {
	touchedSet := make(map[int]struct{})
	for _, p := range points {
		i, j, k := g.Indices(r3.Vec{X: float64(p.X), Y: float64(p.Y), Z: float64(p.Z)})
		if !g.inBounds(i, j, k) {
			continue
		}
		idx := g.flatIndex(i, j, k)
		cube := g.cubes[idx]
		cube.Points = append(cube.Points, p)
		touchedSet[idx] = struct{}{}
	}

	touched = make([]int, 0, len(touchedSet))
	for idx := range touchedSet {
		touched = append(touched, idx)
		g.cubes[idx].Points = voxelgrid.Downsample(g.cubes[idx].Points, leafSurf)
	}
	return touched
}

// IngestCorner places corner-feature points into their owning cubes
// without downsampling (supplemented feature: original_source carries a
// corner buffer through ingestion unused by the surface-only matcher).
func (g *Grid) IngestCorner(points []voxelgrid.Point) {
	for _, p := range points {
		i, j, k := g.Indices(r3.Vec{X: float64(p.X), Y: float64(p.Y), Z: float64(p.Z)})
		if !g.inBounds(i, j, k) {
			continue
		}
		idx := g.flatIndex(i, j, k)
		g.cubes[idx].Corner = append(g.cubes[idx].Corner, p)
	}
}

// AllPoints returns every surface point currently stored anywhere in the
// grid — used by the shutdown persistence path.
func (g *Grid) AllPoints() []voxelgrid.Point {
	var out []voxelgrid.Point
	for _, c := range g.cubes {
		out = append(out, c.Points...)
	}
	return out
}

// AllCorner returns every corner point currently stored anywhere in the
// grid.
func (g *Grid) AllCorner() []voxelgrid.Point {
	var out []voxelgrid.Point
	for _, c := range g.cubes {
		out = append(out, c.Corner...)
	}
	return out
}
