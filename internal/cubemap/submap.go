package cubemap

import (
	"github.com/kyroy/kdtree"

	"github.com/ZanzyTHEbar/lio-mapping/internal/voxelgrid"
)

// MapPoint wraps a stored voxelgrid.Point for the k-d tree, generalizing
// the teacher's 2-D kdtree.Point (internal/pointcloud.go) to 3 dimensions.
type MapPoint struct {
	voxelgrid.Point
}

// Dimensions implements kdtree.Point.
func (p MapPoint) Dimensions() int { return 3 }

// Dimension implements kdtree.Point.
func (p MapPoint) Dimension(i int) float64 {
	switch i {
	case 0:
		return float64(p.X)
	case 1:
		return float64(p.Y)
	default:
		return float64(p.Z)
	}
}

// Distance implements kdtree.Point as squared Euclidean distance.
func (p MapPoint) Distance(q kdtree.Point) float64 {
	o := q.(MapPoint)
	dx := float64(p.X - o.X)
	dy := float64(p.Y - o.Y)
	dz := float64(p.Z - o.Z)
	return dx*dx + dy*dy + dz*dz
}

// Submap is the per-frame materialized union of valid cubes' points,
// backing a k-d index used by the plane matcher. Ephemeral: rebuilt
// every frame.
type Submap struct {
	Points []voxelgrid.Point
	tree   *kdtree.KDTree
}

// BuildSubmap concatenates the point lists of the cubes at validIdx
// (already downsampled in place by ingestion), downsamples the result by
// leafMap, and builds the k-d index over it.
func (g *Grid) BuildSubmap(validIdx []int, leafMap float32) *Submap {
	var flat []voxelgrid.Point
	for _, idx := range validIdx {
		flat = append(flat, g.cubes[idx].Points...)
	}
	flat = voxelgrid.Downsample(flat, leafMap)

	points := make([]kdtree.Point, len(flat))
	for i, p := range flat {
		points[i] = MapPoint{p}
	}

	var tree *kdtree.KDTree
	if len(points) > 0 {
		tree = kdtree.New(points)
	}

	return &Submap{Points: flat, tree: tree}
}

// KNN returns the k nearest submap points to query (cached by the caller
// across non-rematch iterations).
func (s *Submap) KNN(query voxelgrid.Point, k int) []voxelgrid.Point {
	if s.tree == nil {
		return nil
	}
	found := s.tree.KNN(MapPoint{query}, k)
	out := make([]voxelgrid.Point, len(found))
	for i, f := range found {
		out[i] = f.(MapPoint).Point
	}
	return out
}

// Len reports the number of points currently materialized in the submap.
func (s *Submap) Len() int {
	return len(s.Points)
}
