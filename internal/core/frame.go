package core

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ZanzyTHEbar/lio-mapping/internal/colorramp"
	"github.com/ZanzyTHEbar/lio-mapping/internal/filter"
	"github.com/ZanzyTHEbar/lio-mapping/internal/geometry"
	"github.com/ZanzyTHEbar/lio-mapping/internal/iface"
	"github.com/ZanzyTHEbar/lio-mapping/internal/match"
	"github.com/ZanzyTHEbar/lio-mapping/internal/voxelgrid"
)

const minSubmapPoints = 100

// ColoredPoint is a world-frame point with its visualization color.
type ColoredPoint struct {
	voxelgrid.Point
	Color colorramp.RGB
}

// Frame is everything published for one LiDAR frame.
type Frame struct {
	Posterior       filter.State
	RegisteredCloud []ColoredPoint
	SubmapCloud     []voxelgrid.Point
	Odometry        iface.Odometry
	BodyPose        iface.Odometry
	Converged       bool
	Iterations      int
}

func (c *Core) processFrame(cloud iface.FeatureCloud, prior iface.PropagatedState) (Frame, error) {
	priorState := filter.State{
		R: prior.R, T: prior.T, V: prior.V,
		BiasGyro: prior.BiasGyro, BiasAccel: prior.BiasAccel, Gravity: prior.Gravity,
		Cov: prior.Cov,
	}

	if !c.haveStart {
		c.startTime = cloud.Timestamp
		c.haveStart = true
	}
	inInitWindow := cloud.Timestamp.Sub(c.startTime).Seconds() < filter.TInit

	logFrame(c.cfg, "pre-integrated states", priorState)

	c.grid.Recenter(priorState.T)
	axisPoint := geometry.RigidTransform(priorState.R, priorState.T, r3.Vec{}, r3.Vec{X: float64(c.cfg.SensorRange)})
	_, validIdx := c.grid.Cull(priorState.T, axisPoint, c.cfg.SensorRange)
	submap := c.grid.BuildSubmap(validIdx, c.cfg.FilterSizeMap)

	downsampled := voxelgrid.Downsample(cloud.Surface, c.cfg.FilterSizeSurf)
	inputs := make([]*match.Input, len(downsampled))
	for i, p := range downsampled {
		inputs[i] = &match.Input{Point: p}
	}

	var posterior filter.State
	var converged bool
	var iterations int

	if submap.Len() < minSubmapPoints {
		// §4.5 state machine: S1 -> S3 directly, skip update, publish prior.
		posterior = priorState
	} else {
		result := filter.Iterate(priorState, inputs, submap, c.ext, inInitWindow, c.initOpts)
		posterior = result.State
		converged = result.Converged
		iterations = result.Iterations
	}
	c.state = posterior

	logFrame(c.cfg, "posterior state", posterior)

	worldPoints := make([]voxelgrid.Point, len(downsampled))
	for i, p := range downsampled {
		sensorPt := r3.Vec{X: float64(p.X), Y: float64(p.Y), Z: float64(p.Z)}
		w := geometry.RigidTransform(posterior.R, posterior.T, c.ext, sensorPt)
		worldPoints[i] = voxelgrid.Point{X: float32(w.X), Y: float32(w.Y), Z: float32(w.Z), Intensity: p.Intensity}
	}
	c.grid.Ingest(worldPoints, c.cfg.FilterSizeSurf)

	if len(cloud.Corner) > 0 {
		worldCorner := make([]voxelgrid.Point, len(cloud.Corner))
		for i, p := range cloud.Corner {
			sensorPt := r3.Vec{X: float64(p.X), Y: float64(p.Y), Z: float64(p.Z)}
			w := geometry.RigidTransform(posterior.R, posterior.T, c.ext, sensorPt)
			worldCorner[i] = voxelgrid.Point{X: float32(w.X), Y: float32(w.Y), Z: float32(w.Z), Intensity: p.Intensity}
		}
		c.grid.IngestCorner(worldCorner)
	}

	registered := worldPoints
	if c.cfg.DenseMapEnable {
		registered = make([]voxelgrid.Point, len(cloud.Surface))
		for i, p := range cloud.Surface {
			sensorPt := r3.Vec{X: float64(p.X), Y: float64(p.Y), Z: float64(p.Z)}
			w := geometry.RigidTransform(posterior.R, posterior.T, c.ext, sensorPt)
			registered[i] = voxelgrid.Point{X: float32(w.X), Y: float32(w.Y), Z: float32(w.Z), Intensity: p.Intensity}
		}
	}
	colored := make([]ColoredPoint, len(registered))
	for i, p := range registered {
		colored[i] = colorize(p)
	}

	odom := iface.Odometry{
		Timestamp:   cloud.Timestamp,
		Position:    posterior.T,
		Orientation: geometry.OdometryQuaternion(posterior.R),
	}
	// Supplemented feature: a second, sign-flipped body-frame pose for a
	// consumer distinct from the world-frame odometry.
	bodyPose := iface.Odometry{
		Timestamp:   cloud.Timestamp,
		Position:    r3.Vec{X: posterior.T.X, Y: -posterior.T.Y, Z: -posterior.T.Z},
		Orientation: odom.Orientation,
	}

	return Frame{
		Posterior:       posterior,
		RegisteredCloud: colored,
		SubmapCloud:     submap.Points,
		Odometry:        odom,
		BodyPose:        bodyPose,
		Converged:       converged,
		Iterations:      iterations,
	}, nil
}
