package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ZanzyTHEbar/lio-mapping/internal/config"
	"github.com/ZanzyTHEbar/lio-mapping/internal/filter"
	"github.com/ZanzyTHEbar/lio-mapping/internal/geometry"
	"github.com/ZanzyTHEbar/lio-mapping/internal/iface"
	"github.com/ZanzyTHEbar/lio-mapping/internal/voxelgrid"
)

func testConfig() config.Config {
	cfg := config.DefaultConfig()
	cfg.GridWidth, cfg.GridHeight, cfg.GridDepth = 21, 11, 21
	cfg.CubeSideLength = 1.0
	cfg.FilterSizeSurf = 0
	cfg.FilterSizeMap = 0
	cfg.SensorRange = 30
	return cfg
}

func propagatedPrior(ts time.Time, t r3.Vec) iface.PropagatedState {
	return iface.PropagatedState{
		Timestamp: ts,
		R:         geometry.Identity3(),
		T:         t,
		Cov:       identityCov(filter.N, 1e-3),
	}
}

func TestBoundedQueueFIFOOrder(t *testing.T) {
	q := newBoundedQueue(4)
	base := time.Now()
	q.push(base, "a")
	q.push(base.Add(time.Second), "b")
	q.push(base.Add(2*time.Second), "c")

	v, ok := q.pop()
	require.True(t, ok)
	assert.Equal(t, "a", v)
	assert.Equal(t, 2, q.len())
}

func TestBoundedQueueDropsOldestAtCapacity(t *testing.T) {
	q := newBoundedQueue(2)
	base := time.Now()
	q.push(base, "a")
	q.push(base.Add(time.Second), "b")
	q.push(base.Add(2*time.Second), "c") // evicts "a"

	v, ok := q.pop()
	require.True(t, ok)
	assert.Equal(t, "b", v)
}

func TestPushFeatureCloudRegressionClearsQueue(t *testing.T) {
	c := New(testConfig(), r3.Vec{}, filter.InitOptions{})
	base := time.Now()
	c.PushFeatureCloud(iface.FeatureCloud{Timestamp: base})
	c.PushFeatureCloud(iface.FeatureCloud{Timestamp: base.Add(time.Second)})
	assert.Equal(t, 2, c.lidarQueue.len())

	// Regression: an earlier timestamp arrives.
	c.PushFeatureCloud(iface.FeatureCloud{Timestamp: base.Add(-time.Second)})
	assert.Equal(t, 1, c.lidarQueue.len(), "expected the queue to be cleared before the regressed cloud is pushed")
}

func TestPushPropagatedStateRegressionFlagsReset(t *testing.T) {
	c := New(testConfig(), r3.Vec{}, filter.InitOptions{})
	base := time.Now()
	c.PushPropagatedState(propagatedPrior(base, r3.Vec{}))
	c.PushPropagatedState(propagatedPrior(base.Add(-time.Second), r3.Vec{}))

	assert.True(t, c.resetFlag)
	assert.Equal(t, 1, c.stateQueue.len())
}

func TestRunOnceRequiresEqualQueueLengths(t *testing.T) {
	c := New(testConfig(), r3.Vec{}, filter.InitOptions{})
	base := time.Now()
	c.PushFeatureCloud(iface.FeatureCloud{Timestamp: base})
	c.PushFeatureCloud(iface.FeatureCloud{Timestamp: base.Add(time.Second)})
	c.PushPropagatedState(propagatedPrior(base, r3.Vec{}))

	_, ok, err := c.RunOnce()
	require.NoError(t, err)
	assert.False(t, ok, "expected no frame to form with unequal queue lengths")
}

func TestProcessFrameSkipsUpdateOnSparseSubmap(t *testing.T) {
	c := New(testConfig(), r3.Vec{}, filter.InitOptions{})
	cloud := iface.FeatureCloud{
		Timestamp: time.Now(),
		Surface:   []voxelgrid.Point{{X: 1, Y: 1, Z: 0, Intensity: 1}},
	}
	prior := propagatedPrior(cloud.Timestamp, r3.Vec{X: 1, Y: 2, Z: 3})

	frame, err := c.processFrame(cloud, prior)
	require.NoError(t, err)

	assert.False(t, frame.Converged)
	assert.Equal(t, 0, frame.Iterations)
	assert.Equal(t, prior.T, frame.Posterior.T)
}

func seededPlanarSurface(n int) []voxelgrid.Point {
	surface := make([]voxelgrid.Point, 0, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			surface = append(surface, voxelgrid.Point{X: float32(i) - float32(n)/2, Y: float32(j) - float32(n)/2, Z: 0, Intensity: 1})
		}
	}
	return surface
}

func TestProcessFrameConvergesOnSeededPlanarMap(t *testing.T) {
	c := New(testConfig(), r3.Vec{}, filter.InitOptions{})

	var seed []voxelgrid.Point
	for x := -5.0; x <= 5.0; x += 0.25 {
		for y := -5.0; y <= 5.0; y += 0.25 {
			seed = append(seed, voxelgrid.Point{X: float32(x), Y: float32(y), Z: 0, Intensity: 1})
		}
	}
	c.grid.Ingest(seed, 0)

	surface := seededPlanarSurface(10)
	cloud := iface.FeatureCloud{Timestamp: time.Now(), Surface: surface}
	prior := propagatedPrior(cloud.Timestamp, r3.Vec{X: 0, Y: 0, Z: 1})

	frame, err := c.processFrame(cloud, prior)
	require.NoError(t, err)

	assert.NotNil(t, frame.SubmapCloud)
	assert.Len(t, frame.RegisteredCloud, len(surface))
	require.True(t, frame.Converged, "expected the update to run and converge on a clean planar scene")
	assert.InDelta(t, 0, frame.Posterior.T.Z, 0.05, "posterior should settle back onto the z=0 plane")
}

// TestProcessFrameConvergesWhenSensorIsOffGridOrigin pins the prior well away
// from the grid's logical origin cube, so Cull's +-2 window must track the
// sensor's predicted cube index rather than the fixed grid center. With the
// old origin-centered window this submap comes back empty (plane points live
// around x=2.5, the window stays parked at x=0) and the frame silently
// publishes the prior unchanged.
func TestProcessFrameConvergesWhenSensorIsOffGridOrigin(t *testing.T) {
	c := New(testConfig(), r3.Vec{}, filter.InitOptions{})

	var seed []voxelgrid.Point
	for x := -5.0; x <= 10.0; x += 0.25 {
		for y := -5.0; y <= 5.0; y += 0.25 {
			seed = append(seed, voxelgrid.Point{X: float32(x), Y: float32(y), Z: 0, Intensity: 1})
		}
	}
	c.grid.Ingest(seed, 0)

	surface := seededPlanarSurface(10)
	cloud := iface.FeatureCloud{Timestamp: time.Now(), Surface: surface}
	offsetT := r3.Vec{X: 2.5 * float64(testConfig().CubeSideLength), Y: 0, Z: 1}
	prior := propagatedPrior(cloud.Timestamp, offsetT)

	frame, err := c.processFrame(cloud, prior)
	require.NoError(t, err)

	require.NotEmpty(t, frame.SubmapCloud, "submap should not be empty when the cull window tracks the sensor")
	require.True(t, frame.Converged, "expected the update to run and converge with the sensor off the origin cube")
	assert.InDelta(t, 0, frame.Posterior.T.Z, 0.05, "posterior should settle back onto the z=0 plane instead of sticking at the prior's z=1")
}
