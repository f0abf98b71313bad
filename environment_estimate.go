package routemap

import (
	"time"

	"github.com/ChristopherRabotin/gokalman"
	"github.com/gonum/matrix/mat64"
)

// windEstimator smooths the wind signal along a Position's ancestry when
// the grid is deficient at the candidate and AllowDataDeficient is set,
// rather than taking the nearest ancestor's reading verbatim. It is a
// lightweight relative of estimate.go's OrbitEstimate: that file tracks a
// state-transition matrix seeded from gokalman.DenseIdentity and updated
// every propagation step; here the "state" is just (direction, speed), and
// the 2x2 matrix it updates every step IS the transition: its diagonal is
// read back out as the blend gain for the next observation, then scaled
// down, so the matrix - not a bare constant - decides how much each
// successive ancestor moves the running estimate.
type windEstimator struct {
	weight *mat64.Dense // 2x2 diagonal trust matrix, read as (dirGain, speedGain)
	dir    float64
	speed  float64
	seeded bool
}

// newWindEstimator returns a windEstimator ready to absorb observations,
// seeded so the first reading is trusted completely.
func newWindEstimator() *windEstimator {
	return &windEstimator{weight: gokalman.DenseIdentity(2)}
}

// Observe blends in a new (direction, speed) reading, using the weight
// matrix's own diagonal as the blend gain. The first reading seeds the
// estimate verbatim; every reading, the first included, then scales that
// diagonal by (1-decay), decay in (0,1), so later, farther ancestors carry
// less weight than nearer ones.
func (e *windEstimator) Observe(dirDeg, speedKn, decay float64) {
	if !e.seeded {
		e.dir, e.speed, e.seeded = dirDeg, speedKn, true
		e.weight.Scale(1-decay, e.weight)
		return
	}
	dirGain := e.weight.At(0, 0)
	speedGain := e.weight.At(1, 1)
	// Blend speed linearly; blend direction along the shorter angular arc
	// so a due-north/due-south pair of readings doesn't average to the
	// opposite of both.
	delta := rad2deg180(deg2rad180(dirDeg) - deg2rad180(e.dir))
	e.dir = normalizeDeg360(e.dir + dirGain*delta)
	e.speed += speedGain * (speedKn - e.speed)
	e.weight.Scale(1-decay, e.weight)
}

// Estimate returns the current smoothed (direction, speed) estimate.
func (e *windEstimator) Estimate() (dirDeg, speedKn float64) {
	return e.dir, e.speed
}

// windAtSmoothed is windAt's data-deficient-fallback sibling: instead of
// returning the nearest ancestor's raw reading, it walks the ancestry
// chain accumulating an exponentially-decaying blend of every ancestor
// that does carry data, weighting nearer ancestors more heavily. Used by
// the Propagator when Constraints.AllowDataDeficient is set (spec.md §4.C, §4.E
// guard 3; enrichment documented in SPEC_FULL.md §4).
func windAtSmoothed(env Environment, t time.Time, pos *Position, maxAncestors int) (WG, VWG float64, ok bool) {
	est := newWindEstimator()
	const decay = 0.6
	found := false
	steps := 0
	for p := pos; p != nil && steps < maxAncestors; p = p.Parent {
		if wg, vwg, hit := env.Wind(t, p.Lat, p.Lon); hit {
			est.Observe(wg, vwg, decay)
			found = true
		}
		steps++
	}
	if !found {
		return 0, 0, false
	}
	WG, VWG = est.Estimate()
	return WG, VWG, true
}
