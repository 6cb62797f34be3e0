// Package core implements the frame driver (component C6) and the
// concurrency/resource model of §5: a single Core value owning the cube
// grid, filter state, and three bounded input queues behind one mutex,
// replacing the original's process-wide mutable state and unsynchronized
// callback/driver reads. Grounded on the teacher's
// internal/imu_fusion_system.go orchestrator shape and
// internal/synchronization.go's queue pattern.
package core

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ZanzyTHEbar/lio-mapping/internal/colorramp"
	"github.com/ZanzyTHEbar/lio-mapping/internal/config"
	"github.com/ZanzyTHEbar/lio-mapping/internal/cubemap"
	"github.com/ZanzyTHEbar/lio-mapping/internal/filter"
	"github.com/ZanzyTHEbar/lio-mapping/internal/geometry"
	"github.com/ZanzyTHEbar/lio-mapping/internal/iface"
	"github.com/ZanzyTHEbar/lio-mapping/internal/persist"
	"github.com/ZanzyTHEbar/lio-mapping/internal/voxelgrid"
)

const queueCapacity = 64

// Core owns the cube map, the running filter state, and the input
// queues. All mutation happens on the driver goroutine inside RunOnce;
// Push* methods are the only entry points called from other goroutines
// (the transport callbacks).
type Core struct {
	mu   sync.Mutex
	cond *sync.Cond

	cfg      config.Config
	grid     *cubemap.Grid
	state    filter.State
	ext      r3.Vec
	initOpts filter.InitOptions

	lidarQueue *boundedQueue
	stateQueue *boundedQueue
	imuQueue   *boundedQueue

	lastLidarTS time.Time
	lastStateTS time.Time
	haveLidarTS bool
	haveStateTS bool

	startTime  time.Time
	haveStart  bool
	resetFlag  bool
}

// New builds a Core with an empty cube grid and an identity prior.
func New(cfg config.Config, ext r3.Vec, initOpts filter.InitOptions) *Core {
	grid := cubemap.NewGrid(cfg.GridWidth, cfg.GridHeight, cfg.GridDepth, cfg.CubeSideLength)
	c := &Core{
		cfg:        cfg,
		grid:       grid,
		state:      filter.NewState(identityCov(filter.N, 1e-3)),
		ext:        ext,
		initOpts:   initOpts,
		lidarQueue: newBoundedQueue(queueCapacity),
		stateQueue: newBoundedQueue(queueCapacity),
		imuQueue:   newBoundedQueue(queueCapacity),
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

func identityCov(n int, v float64) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, v)
	}
	return m
}

// PushFeatureCloud enqueues a deskewed feature cloud. On timestamp
// regression the LiDAR queue is dropped first (the new cloud starts a
// fresh queue), per §4.6/§7's temporal-regression error kind.
func (c *Core) PushFeatureCloud(cloud iface.FeatureCloud) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.haveLidarTS && cloud.Timestamp.Before(c.lastLidarTS) {
		c.lidarQueue.clear()
	}
	c.lastLidarTS = cloud.Timestamp
	c.haveLidarTS = true
	c.lidarQueue.push(cloud.Timestamp, cloud)
	c.cond.Signal()
}

// PushPropagatedState enqueues one IMU-propagated prior. On timestamp
// regression the state queue is dropped and a reset is flagged for the
// next frame.
func (c *Core) PushPropagatedState(ps iface.PropagatedState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.haveStateTS && ps.Timestamp.Before(c.lastStateTS) {
		c.stateQueue.clear()
		c.resetFlag = true
	}
	c.lastStateTS = ps.Timestamp
	c.haveStateTS = true
	c.stateQueue.push(ps.Timestamp, ps)
	c.cond.Signal()
}

// PushIMUSample enqueues a raw IMU sample. The raw stream is out of
// scope for this module (see internal/iface.StatePropagator); the core
// only buffers it so a downstream propagator sees a bounded, ordered
// view.
func (c *Core) PushIMUSample(ts time.Time, sample interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.imuQueue.push(ts, sample)
	c.cond.Signal()
}

// WaitForFrame blocks until a feature cloud and propagated state are
// both available, or ctx is done.
func (c *Core) WaitForFrame(ctx context.Context) bool {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			c.mu.Lock()
			c.cond.Broadcast()
			c.mu.Unlock()
		case <-done:
		}
	}()
	defer close(done)

	c.mu.Lock()
	defer c.mu.Unlock()
	for c.lidarQueue.len() == 0 || c.stateQueue.len() == 0 {
		if ctx.Err() != nil {
			return false
		}
		c.cond.Wait()
	}
	return true
}

// RunOnce pops one paired (feature cloud, propagated state) and runs
// the full predict->cull->downsample->iterate->ingest->publish pipeline.
// ok is false when no frame could be formed (unequal queue lengths,
// both queues empty).
func (c *Core) RunOnce() (Frame, bool, error) {
	cloud, state, ok := c.popPair()
	if !ok {
		return Frame{}, false, nil
	}
	frame, err := c.processFrame(cloud, state)
	if err != nil {
		return Frame{}, false, fmt.Errorf("core: process frame: %w", err)
	}
	return frame, true, nil
}

func (c *Core) popPair() (iface.FeatureCloud, iface.PropagatedState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lidarQueue.len() == 0 || c.stateQueue.len() == 0 {
		return iface.FeatureCloud{}, iface.PropagatedState{}, false
	}
	if c.lidarQueue.len() != c.stateQueue.len() {
		// §4.6: "If the queues have unequal length, the frame is not formed."
		return iface.FeatureCloud{}, iface.PropagatedState{}, false
	}

	cv, _ := c.lidarQueue.pop()
	sv, _ := c.stateQueue.pop()
	cloud := cv.(iface.FeatureCloud)
	state := sv.(iface.PropagatedState)

	if c.resetFlag {
		c.state = filter.NewState(identityCov(filter.N, 1e-3))
		c.resetFlag = false
	}
	return cloud, state, true
}

// colorize attaches the intensity ramp to a world-frame point for the
// registered-cloud output.
func colorize(p voxelgrid.Point) ColoredPoint {
	return ColoredPoint{Point: p, Color: colorramp.FromIntensity(p.Intensity)}
}

// PublishFunc receives one completed Frame.
type PublishFunc func(Frame)

// Run drives frames until ctx is canceled, invoking publish for each
// completed frame.
func (c *Core) Run(ctx context.Context, publish PublishFunc) {
	for {
		if !c.WaitForFrame(ctx) {
			return
		}
		frame, ok, err := c.RunOnce()
		if err != nil {
			log.Printf("core: frame error: %v", err)
			continue
		}
		if !ok {
			continue
		}
		publish(frame)
	}
}

// Shutdown persists the map's current surface and corner buffers per
// §6 "Persisted state".
func (c *Core) Shutdown() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return persist.SaveOnShutdown(c.cfg.MapFilePath, c.grid.AllPoints(), c.grid.AllCorner())
}

func logFrame(cfg config.Config, label string, pose filter.State) {
	if !cfg.Verbose {
		return
	}
	roll, pitch, yaw := geometry.EulerYXZ(pose.R)
	log.Printf("[ mapping ] %s: euler (%.3f %.3f %.3f) deg, t %v, v %v, ba %v, g %v",
		label, roll*57.3, pitch*57.3, yaw*57.3, pose.T, pose.V, pose.BiasAccel, pose.Gravity)
}
