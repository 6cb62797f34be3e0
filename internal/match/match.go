// Package match implements the point-to-plane matcher (component C4):
// per-point nearest-neighbor plane fitting with validity, weighting and
// Jacobian assembly, parallelized across points. Grounded on
// original_source/src/laserMapping.cpp's surface-match block, the
// arx-os-arxos reference processor's plane-fit/point-to-plane-distance
// idiom, and the teacher's kdtree wiring.
package match

import (
	"math"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ZanzyTHEbar/lio-mapping/internal/cubemap"
	"github.com/ZanzyTHEbar/lio-mapping/internal/geometry"
	"github.com/ZanzyTHEbar/lio-mapping/internal/voxelgrid"
)

// K is the number of nearest map points a candidate plane is fit to.
const K = 5

const (
	neighborAcceptSqDist = 5.0
	planeInlierTol       = 0.1
	residualIncludeTol   = 0.5
	weightRejectTol      = 0.1
)

// Record is the per-point match record produced for point i of the
// downsampled input.
type Record struct {
	Selected  bool
	Normal    [3]float64 // unit plane normal (a, b, c)
	Offset    float64    // signed plane offset d
	Residual  float64    // signed residual r = a*x+b*y+c*z+d under current pose
	Weight    float64    // confidence s in [0,1]
	Neighbors []voxelgrid.Point
}

// Pose is the current linearization point used to transform sensor-frame
// points into the world frame.
type Pose struct {
	R   *mat.Dense // 3x3 rotation
	T   r3.Vec
	Ext r3.Vec // constant body->sensor offset
}

// Input bundles one downsampled input point with its running match
// state, carried across outer iterations so non-rematch iterations can
// reuse cached neighbors.
type Input struct {
	Point     voxelgrid.Point
	Cache     Record
	HasCache  bool
}

// Row is the assembled 1xN Jacobian row and scalar measurement for one
// included point, ready to stack into the filter's H and z.
type Row struct {
	H []float64 // length N
	Z float64   // measurement = -residual
}

// Match runs the per-point transform -> neighbor query -> plane fit ->
// validity -> weight pipeline over inputs, independently and in
// parallel. iter==0 or rematch forces a fresh k-NN query per point;
// otherwise cached neighbors and the selected flag are reused. N is the
// filter state dimension (Jacobian row width).
func Match(inputs []*Input, pose Pose, submap *cubemap.Submap, iter int, rematch bool, N int) []Row {
	n := len(inputs)
	records := make([]Record, n)
	rows := make([]*Row, n)

	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	chunk := (n + workers - 1) / workers
	if chunk < 1 {
		chunk = 1
	}

	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				rec, row := processPoint(inputs[i], pose, submap, iter, rematch, N)
				records[i] = rec
				rows[i] = row
			}
		}(start, end)
	}
	wg.Wait()

	out := make([]Row, 0, n)
	for i, r := range rows {
		inputs[i].Cache = records[i]
		inputs[i].HasCache = true
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

func processPoint(in *Input, pose Pose, submap *cubemap.Submap, iter int, rematch bool, N int) (Record, *Row) {
	sensorPt := r3.Vec{X: float64(in.Point.X), Y: float64(in.Point.Y), Z: float64(in.Point.Z)}
	worldPt := geometry.RigidTransform(pose.R, pose.T, pose.Ext, sensorPt)

	var rec Record
	var neighbors []voxelgrid.Point

	if iter == 0 || rematch {
		neighbors = submap.KNN(voxelgrid.Point{X: float32(worldPt.X), Y: float32(worldPt.Y), Z: float32(worldPt.Z)}, K)
		if len(neighbors) < K {
			rec.Selected = false
			return rec, nil
		}
		farthestSq := 0.0
		for _, nb := range neighbors {
			d := sqDist(worldPt, nb)
			if d > farthestSq {
				farthestSq = d
			}
		}
		if farthestSq > neighborAcceptSqDist {
			rec.Selected = false
			return rec, nil
		}
		rec.Selected = true
		rec.Neighbors = neighbors
	} else {
		if !in.HasCache || !in.Cache.Selected {
			return Record{Selected: false}, nil
		}
		neighbors = in.Cache.Neighbors
		rec.Selected = true
		rec.Neighbors = neighbors
	}

	a, b, c, d, ok := fitPlane(neighbors)
	if !ok {
		rec.Selected = false
		return rec, nil
	}
	rec.Normal = [3]float64{a, b, c}
	rec.Offset = d

	for _, nb := range neighbors {
		if math.Abs(a*float64(nb.X)+b*float64(nb.Y)+c*float64(nb.Z)+d) > planeInlierTol {
			rec.Selected = false
			return rec, nil
		}
	}

	r := a*worldPt.X + b*worldPt.Y + c*worldPt.Z + d
	rec.Residual = r

	norm4 := math.Pow(worldPt.X*worldPt.X+worldPt.Y*worldPt.Y+worldPt.Z*worldPt.Z, 0.25)
	s := 1 - 0.9*math.Abs(r)/norm4
	if s <= weightRejectTol {
		rec.Selected = false
		return rec, nil
	}
	rec.Weight = s

	if !(rec.Selected && math.Abs(r) < residualIncludeTol) {
		return rec, nil
	}

	row := jacobianRow(sensorPt, pose.R, [3]float64{a, b, c}, r, N)
	return rec, row
}

func sqDist(v r3.Vec, p voxelgrid.Point) float64 {
	dx := v.X - float64(p.X)
	dy := v.Y - float64(p.Y)
	dz := v.Z - float64(p.Z)
	return dx*dx + dy*dy + dz*dz
}

// fitPlane solves A*x = -1 in least squares (QR) for the K neighbors,
// yielding (a, b, c) with d=1, then normalizes to a unit normal.
func fitPlane(neighbors []voxelgrid.Point) (a, b, c, d float64, ok bool) {
	n := len(neighbors)
	A := mat.NewDense(n, 3, nil)
	b1 := mat.NewVecDense(n, nil)
	for i, p := range neighbors {
		A.Set(i, 0, float64(p.X))
		A.Set(i, 1, float64(p.Y))
		A.Set(i, 2, float64(p.Z))
		b1.SetVec(i, -1)
	}

	var qr mat.QR
	qr.Factorize(A)

	var x mat.VecDense
	if err := qr.SolveVecTo(&x, false, b1); err != nil {
		return 0, 0, 0, 0, false
	}

	a, b, c = x.AtVec(0), x.AtVec(1), x.AtVec(2)
	norm := math.Sqrt(a*a + b*b + c*c)
	if norm < 1e-12 {
		return 0, 0, 0, 0, false
	}
	return a / norm, b / norm, c / norm, 1 / norm, true
}

// jacobianRow builds the 1xN row [ (phat*R^T*n)^T, n^T, 0...0 ] and
// scalar measurement -r for one included point, per spec §4.4.
func jacobianRow(sensorPt r3.Vec, R *mat.Dense, normal [3]float64, residual float64, N int) *Row {
	phat := geometry.Skew([3]float64{sensorPt.X, sensorPt.Y, sensorPt.Z})
	RT := geometry.Transpose(R)

	var phatRT mat.Dense
	phatRT.Mul(phat, RT)

	n := mat.NewVecDense(3, normal[:])
	var rotN mat.VecDense
	rotN.MulVec(&phatRT, n)

	row := make([]float64, N)
	row[0], row[1], row[2] = rotN.AtVec(0), rotN.AtVec(1), rotN.AtVec(2)
	row[3], row[4], row[5] = normal[0], normal[1], normal[2]

	return &Row{H: row, Z: -residual}
}
