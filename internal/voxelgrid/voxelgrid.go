// Package voxelgrid implements leaf-size spatial decimation of point
// clouds: one representative point (centroid, mean intensity) per
// non-empty cubic leaf. Grounded on the arx-os-arxos reference
// processor's map[string][]int voxel-binning idiom, generalized from a
// string key to a struct of three int32 leaf indices to avoid per-point
// allocation.
package voxelgrid

import "math"

// Point is the storage-weight point type shared with the cube map:
// float32 position plus an intensity scalar (design note: f32 for map
// storage, f64 reserved for the filter state).
type Point struct {
	X, Y, Z   float32
	Intensity float32
}

type voxelKey struct{ i, j, k int32 }

func keyFor(p Point, leaf float32) voxelKey {
	return voxelKey{
		i: int32(math.Floor(float64(p.X / leaf))),
		j: int32(math.Floor(float64(p.Y / leaf))),
		k: int32(math.Floor(float64(p.Z / leaf))),
	}
}

// Downsample partitions points into cubic leaves of side `leaf` and
// returns one point per non-empty leaf: the centroid of the points it
// contains, carrying their mean intensity. Pure function, deterministic
// given input order up to floating tie-breaks. leaf <= 0 returns the
// input unchanged.
func Downsample(points []Point, leaf float32) []Point {
	if leaf <= 0 || len(points) == 0 {
		return points
	}

	type accumulator struct {
		sumX, sumY, sumZ, sumI float64
		count                  int
	}

	buckets := make(map[voxelKey]*accumulator, len(points)/4+1)
	order := make([]voxelKey, 0, len(points)/4+1)

	for _, p := range points {
		key := keyFor(p, leaf)
		acc, ok := buckets[key]
		if !ok {
			acc = &accumulator{}
			buckets[key] = acc
			order = append(order, key)
		}
		acc.sumX += float64(p.X)
		acc.sumY += float64(p.Y)
		acc.sumZ += float64(p.Z)
		acc.sumI += float64(p.Intensity)
		acc.count++
	}

	out := make([]Point, 0, len(order))
	for _, key := range order {
		acc := buckets[key]
		n := float64(acc.count)
		out = append(out, Point{
			X:         float32(acc.sumX / n),
			Y:         float32(acc.sumY / n),
			Z:         float32(acc.sumZ / n),
			Intensity: float32(acc.sumI / n),
		})
	}
	return out
}
