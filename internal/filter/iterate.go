package filter

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ZanzyTHEbar/lio-mapping/internal/cubemap"
	"github.com/ZanzyTHEbar/lio-mapping/internal/geometry"
	"github.com/ZanzyTHEbar/lio-mapping/internal/match"
)

const (
	// MaxIterations bounds the outer iterated-EKF loop per frame.
	MaxIterations = 15
	// TInit is the length, in LiDAR time, of the initialization window.
	TInit = 3.0
	// SigmaSq is the per-point measurement noise variance (LASER_POINT_COV).
	SigmaSq = 0.001

	minSelected     = 50
	rotConvergeDeg  = 0.015
	transConvergeCm = 0.015
	rematchRequired = 2
)

// InitOptions controls the initialization-path anchoring behavior.
type InitOptions struct {
	// AnchorRotation selects the corrected z_init assignment (anchor both
	// rotation and position). False reproduces the original's clobbered
	// assignment: the position target -T lands in the rotation rows and
	// the position rows stay zero.
	AnchorRotation bool
}

// Result is the outcome of one call to Iterate.
type Result struct {
	State             State
	Iterations        int
	Converged         bool
	UsedInit          bool
	EffectiveFeatures int
}

// Iterate runs the outer iterated-EKF loop for one frame: rematch or
// reuse point correspondences, solve for a state delta, apply it, and
// terminate once small deltas have been observed on two iterations (not
// necessarily consecutive; the count is never reset within a frame). An
// iteration with fewer than minSelected accepted correspondences is
// skipped entirely (no state change, no rematch-count progress).
// inInitWindow selects the 9-DoF anchoring update in place of the normal
// measurement update; the caller tracks the TInit window against LiDAR
// time.
func Iterate(prior State, inputs []*match.Input, submap *cubemap.Submap, ext r3.Vec, inInitWindow bool, opts InitOptions) Result {
	x := prior.Clone()
	rematchCount := 0
	rematchEnabled := true
	res := Result{}

	for iter := 0; iter < MaxIterations; iter++ {
		rematch := iter == 0 || rematchEnabled
		rows := match.Match(inputs, match.Pose{R: x.R, T: x.T, Ext: ext}, submap, iter, rematch, N)
		res.EffectiveFeatures = len(rows)
		if len(rows) < minSelected {
			continue
		}

		H, z := stack(rows)

		var rotAdd, tAdd r3.Vec
		var lastK, lastH *mat.Dense
		usedInit := inInitWindow

		if inInitWindow {
			var vAdd, bgAdd, baAdd, gAdd r3.Vec
			var k, h *mat.Dense
			var ok bool
			rotAdd, tAdd, vAdd, bgAdd, baAdd, gAdd, k, h, ok = initStep(x, opts)
			if !ok {
				continue
			}
			x.R = geometry.Identity3()
			x.T = r3.Vec{}
			x.V = r3.Vec{}
			x.BiasGyro = addVec(x.BiasGyro, bgAdd)
			x.BiasAccel = addVec(x.BiasAccel, baAdd)
			x.Gravity = addVec(x.Gravity, gAdd)
			x.Cov = covUpdate(x.Cov, k, h)
			_ = vAdd
			res.UsedInit = true
		} else {
			var vAdd, bgAdd, baAdd, gAdd r3.Vec
			var k *mat.Dense
			var ok bool
			rotAdd, tAdd, vAdd, bgAdd, baAdd, gAdd, k, ok = updateStep(x, H, z)
			if !ok {
				continue
			}
			x.R = mulExp(x.R, rotAdd)
			x.T = addVec(x.T, tAdd)
			x.V = addVec(x.V, vAdd)
			x.BiasGyro = addVec(x.BiasGyro, bgAdd)
			x.BiasAccel = addVec(x.BiasAccel, baAdd)
			x.Gravity = addVec(x.Gravity, gAdd)
			lastK, lastH = k, H
		}

		deltaRDeg := normVec(rotAdd) * 57.3
		deltaTCm := normVec(tAdd) * 100.0

		rematchEnabled = false
		if deltaRDeg < rotConvergeDeg && deltaTCm < transConvergeCm {
			rematchEnabled = true
			rematchCount++
		}
		res.Iterations = iter + 1

		if rematchCount >= rematchRequired {
			if !usedInit && lastK != nil {
				x.Cov = covUpdate(x.Cov, lastK, lastH)
			}
			res.Converged = true
			break
		}
	}

	res.State = x
	return res
}
