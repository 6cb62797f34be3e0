package match

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ZanzyTHEbar/lio-mapping/internal/cubemap"
	"github.com/ZanzyTHEbar/lio-mapping/internal/geometry"
	"github.com/ZanzyTHEbar/lio-mapping/internal/voxelgrid"
)

func planarSubmap(t *testing.T) *cubemap.Submap {
	t.Helper()
	g := cubemap.NewGrid(21, 11, 21, 1.0)
	var pts []voxelgrid.Point
	for x := -5.0; x <= 5.0; x += 0.2 {
		for y := -5.0; y <= 5.0; y += 0.2 {
			pts = append(pts, voxelgrid.Point{X: float32(x), Y: float32(y), Z: 0, Intensity: 1})
		}
	}
	g.Ingest(pts, 0)
	_, valid := g.Cull(r3.Vec{}, r3.Vec{X: 0, Y: 0, Z: 10}, 30)
	return g.BuildSubmap(valid, 0)
}

func TestMatchAcceptsOnPlanarScene(t *testing.T) {
	submap := planarSubmap(t)

	inputs := []*Input{
		{Point: voxelgrid.Point{X: 1.0, Y: 1.0, Z: 0, Intensity: 1}},
		{Point: voxelgrid.Point{X: -2.0, Y: 0.5, Z: 0, Intensity: 1}},
	}

	pose := Pose{R: geometry.Identity3(), T: r3.Vec{}, Ext: r3.Vec{}}
	rows := Match(inputs, pose, submap, 0, true, 18)

	if len(rows) != 2 {
		t.Fatalf("expected both points to be accepted on a clean planar scene, got %d rows", len(rows))
	}
	for _, in := range inputs {
		if !in.Cache.Selected {
			t.Errorf("expected point to be selected, got %+v", in.Cache)
		}
		normNorm := math.Sqrt(in.Cache.Normal[0]*in.Cache.Normal[0] + in.Cache.Normal[1]*in.Cache.Normal[1] + in.Cache.Normal[2]*in.Cache.Normal[2])
		if math.Abs(normNorm-1) > 1e-5 {
			t.Errorf("expected unit normal, got norm %v", normNorm)
		}
		for _, nb := range in.Cache.Neighbors {
			a, b, c := in.Cache.Normal[0], in.Cache.Normal[1], in.Cache.Normal[2]
			d := in.Cache.Offset
			res := math.Abs(a*float64(nb.X) + b*float64(nb.Y) + c*float64(nb.Z) + d)
			if res > 0.1+1e-9 {
				t.Errorf("neighbor %+v violates plane inlier tolerance: %v", nb, res)
			}
		}
	}
}

func TestMatchRejectsFarOutlier(t *testing.T) {
	submap := planarSubmap(t)
	inputs := []*Input{
		{Point: voxelgrid.Point{X: 100, Y: 100, Z: 100, Intensity: 1}},
	}
	pose := Pose{R: geometry.Identity3(), T: r3.Vec{}, Ext: r3.Vec{}}
	rows := Match(inputs, pose, submap, 0, true, 18)
	if len(rows) != 0 {
		t.Fatalf("expected far outlier to be rejected, got %d rows", len(rows))
	}
	if inputs[0].Cache.Selected {
		t.Errorf("expected unselected flag for rejected outlier")
	}
}

func TestMatchReusesCacheWithoutRematch(t *testing.T) {
	submap := planarSubmap(t)
	inputs := []*Input{
		{Point: voxelgrid.Point{X: 0.5, Y: 0.5, Z: 0, Intensity: 1}},
	}
	pose := Pose{R: geometry.Identity3(), T: r3.Vec{}, Ext: r3.Vec{}}

	// First iteration: fresh query, populates cache.
	Match(inputs, pose, submap, 0, true, 18)
	if !inputs[0].Cache.Selected {
		t.Fatal("expected first iteration to select the point")
	}
	cachedNeighbors := inputs[0].Cache.Neighbors

	// Second iteration without rematch should reuse the cached neighbors.
	Match(inputs, pose, submap, 1, false, 18)
	if len(inputs[0].Cache.Neighbors) != len(cachedNeighbors) {
		t.Errorf("expected cached neighbor count to be reused, got %d want %d", len(inputs[0].Cache.Neighbors), len(cachedNeighbors))
	}
}

func TestJacobianRowLayout(t *testing.T) {
	row := jacobianRow(r3.Vec{X: 1, Y: 2, Z: 3}, geometry.Identity3(), [3]float64{0, 0, 1}, 0.1, 18)
	if len(row.H) != 18 {
		t.Fatalf("expected row width 18, got %d", len(row.H))
	}
	for i := 6; i < 18; i++ {
		if row.H[i] != 0 {
			t.Errorf("expected zero padding past index 6, got H[%d]=%v", i, row.H[i])
		}
	}
	if row.Z != -0.1 {
		t.Errorf("expected measurement -residual = -0.1, got %v", row.Z)
	}
}
