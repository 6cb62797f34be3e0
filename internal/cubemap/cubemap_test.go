package cubemap

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ZanzyTHEbar/lio-mapping/internal/voxelgrid"
)

func TestIndicesInBoundsNearOrigin(t *testing.T) {
	g := NewGrid(21, 11, 21, 1.0)
	p := r3.Vec{X: 2.3, Y: -1.2, Z: 0.6}
	i, j, k := g.Indices(p)
	if !g.inBounds(i, j, k) {
		t.Fatalf("expected in-bounds indices, got (%d,%d,%d)", i, j, k)
	}
}

func TestRecenterKeepsCenterWithinBand(t *testing.T) {
	g := NewGrid(21, 11, 21, 1.0)

	g.Recenter(r3.Vec{X: 0, Y: 0, Z: 0})
	ci, cj, ck := g.Indices(r3.Vec{X: 0, Y: 0, Z: 0})
	assertBand(t, ci, g.W)
	assertBand(t, cj, g.H)
	assertBand(t, ck, g.D)

	// Fast motion: translate far beyond the band in one frame.
	g.Recenter(r3.Vec{X: 150, Y: 0, Z: 0})
	ci, cj, ck = g.Indices(r3.Vec{X: 150, Y: 0, Z: 0})
	assertBand(t, ci, g.W)
	assertBand(t, cj, g.H)
	assertBand(t, ck, g.D)
}

func assertBand(t *testing.T, idx, dim int) {
	t.Helper()
	if idx < 3 || idx > dim-4 {
		t.Errorf("center index %d outside band [3, %d]", idx, dim-4)
	}
}

func TestRecenterShiftsExactSlotCount(t *testing.T) {
	// Boundary behavior B3: fast motion that would land the naive center
	// index far outside the band must shift exactly enough slots to bring
	// it back inside, in one Recenter call.
	g := NewGrid(21, 11, 21, 50.0)
	startCx := g.cx

	target := r3.Vec{X: 20 * 50, Y: 0, Z: 0}
	ciNaive, _, _ := g.Indices(target)

	g.Recenter(target)

	ciFinal, _, _ := g.Indices(target)
	assertBand(t, ciFinal, g.W)

	wantShift := ciNaive - (g.W - 4)
	if wantShift < 0 {
		wantShift = 0
	}
	gotShift := startCx - g.cx
	if gotShift != wantShift {
		t.Errorf("expected %d shift slots, got %d (startCx=%d newCx=%d)", wantShift, gotShift, startCx, g.cx)
	}
}

func TestIngestDropsOutOfGridPoints(t *testing.T) {
	g := NewGrid(5, 5, 5, 1.0)
	// Way outside any valid index for a 5x5x5 grid.
	far := voxelgrid.Point{X: 1000, Y: 1000, Z: 1000, Intensity: 1}
	touched := g.Ingest([]voxelgrid.Point{far}, 0.1)
	if len(touched) != 0 {
		t.Errorf("expected out-of-grid point to be dropped silently, touched=%v", touched)
	}
}

func TestIngestThenReindexInvariant(t *testing.T) {
	g := NewGrid(21, 11, 21, 1.0)
	pts := []voxelgrid.Point{
		{X: 0.1, Y: 0.1, Z: 0.1, Intensity: 1},
		{X: -2.3, Y: 1.1, Z: 0.4, Intensity: 2},
		{X: 5.5, Y: -3.3, Z: 2.2, Intensity: 3},
	}
	g.Ingest(pts, 0)

	for i, c := range g.cubes {
		for _, p := range c.Points {
			ci, cj, ck := g.Indices(r3.Vec{X: float64(p.X), Y: float64(p.Y), Z: float64(p.Z)})
			if g.flatIndex(ci, cj, ck) != i {
				t.Errorf("point %+v stored in cube %d reindexes to cube %d", p, i, g.flatIndex(ci, cj, ck))
			}
		}
	}
}

func TestCullMarksSurroundAndValid(t *testing.T) {
	g := NewGrid(21, 11, 21, 1.0)
	g.Recenter(r3.Vec{X: 0, Y: 0, Z: 0})
	t0 := r3.Vec{X: 0, Y: 0, Z: 0}
	axis := r3.Vec{X: 10, Y: 0, Z: 0}
	surround, valid := g.Cull(t0, axis, 10)

	if len(surround) == 0 {
		t.Fatal("expected a non-empty surround set")
	}
	if len(valid) == 0 {
		t.Fatal("expected at least one valid (in-FOV) cube")
	}
	if len(valid) > len(surround) {
		t.Errorf("valid set (%d) should be a subset of surround (%d)", len(valid), len(surround))
	}
}

func TestBuildSubmapEmptyWhenNoValidCubes(t *testing.T) {
	g := NewGrid(21, 11, 21, 1.0)
	sm := g.BuildSubmap(nil, 0.1)
	if sm.Len() != 0 {
		t.Errorf("expected empty submap, got %d points", sm.Len())
	}
	if got := sm.KNN(voxelgrid.Point{}, 5); got != nil {
		t.Errorf("expected nil KNN result on empty submap, got %v", got)
	}
}

func TestBuildSubmapAndKNN(t *testing.T) {
	g := NewGrid(21, 11, 21, 1.0)
	pts := make([]voxelgrid.Point, 0, 50)
	for i := 0; i < 50; i++ {
		pts = append(pts, voxelgrid.Point{X: float32(i) * 0.05, Y: 0, Z: 0, Intensity: 1})
	}
	g.Ingest(pts, 0)
	_, valid := g.Cull(r3.Vec{}, r3.Vec{X: 10}, 10)

	sm := g.BuildSubmap(valid, 0)
	if sm.Len() == 0 {
		t.Fatal("expected submap to contain ingested points")
	}

	neighbors := sm.KNN(voxelgrid.Point{X: 1.0, Y: 0, Z: 0}, 5)
	if len(neighbors) != 5 {
		t.Fatalf("expected 5 neighbors, got %d", len(neighbors))
	}
}
