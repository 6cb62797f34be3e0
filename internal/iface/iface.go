// Package iface describes the external collaborators this module
// depends on but does not implement: IMU preintegration, LiDAR feature
// extraction, the transport/time-sync fabric, map persistence beyond
// this module's own shutdown dump, the body<->sensor extrinsic, and
// visualization. Each is out of scope per spec §1 and named here only
// as a Go interface. `core` uses the data types declared here
// (PropagatedState, FeatureCloud, Odometry) and is fed through its Push*
// methods; no package in this module calls the interfaces.
package iface

import (
	"context"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ZanzyTHEbar/lio-mapping/internal/geometry"
	"github.com/ZanzyTHEbar/lio-mapping/internal/voxelgrid"
)

// PropagatedState is the IMU-preintegrated prior accompanying one LiDAR
// frame.
type PropagatedState struct {
	Timestamp                          time.Time
	R                                  *mat.Dense
	T, V, BiasGyro, BiasAccel, Gravity r3.Vec
	Cov                                *mat.Dense
}

// FeatureCloud is one deskewed, sensor-frame feature cloud.
type FeatureCloud struct {
	Timestamp time.Time
	Surface   []voxelgrid.Point
	Corner    []voxelgrid.Point
}

// Odometry is a published 6-DoF pose.
type Odometry struct {
	Timestamp   time.Time
	Position    r3.Vec
	Orientation geometry.Quaternion
}

// StatePropagator supplies the IMU-propagated prior for each frame.
type StatePropagator interface {
	NextState(ctx context.Context) (PropagatedState, error)
}

// FeatureExtractor supplies deskewed, sensor-frame feature clouds.
type FeatureExtractor interface {
	NextCloud(ctx context.Context) (FeatureCloud, error)
}

// Transport abstracts the message transport and time-synchronization
// fabric between sensor drivers and the core.
type Transport interface {
	Publish(topic string, payload any) error
}

// MapPersister abstracts on-disk map persistence beyond this module's
// own shutdown dump (internal/persist), e.g. loading a prior session's
// map at startup.
type MapPersister interface {
	Save(path string, points []voxelgrid.Point) error
	Load(path string) ([]voxelgrid.Point, error)
}

// Extrinsic supplies the constant body<->sensor offset.
type Extrinsic interface {
	BodyToSensor() r3.Vec
}

// Visualizer receives publish-side outputs for display.
type Visualizer interface {
	PublishOdometry(o Odometry)
	PublishCloud(points []voxelgrid.Point)
}
