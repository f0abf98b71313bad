package routemap

import (
	"math"

	"github.com/gonum/floats"
)

// SailPlan indexes into a Polar's set of speed tables, one per configuration
// of sail (spec.md Glossary: "Sail plan").
type SailPlan int

// Octant is one of the eight climatology wind-atlas directions used by
// cumulative-climatology evaluation (spec.md §4.B).
type Octant struct {
	W, VW float64 // representative true-wind angle (deg) and speed (kn)
	Prob  float64 // probability mass for this octant
}

// VMGHeadings are the four headings that maximize the velocity component
// along/against the true wind, per spec.md §4.B.
type VMGHeadings struct {
	PortUp, StbdUp, PortDown, StbdDown float64
}

// SpeedTable is a true-wind-angle x true-wind-speed grid of boat speed
// (knots), the shape a CSV polar file (spec.md §6) is read into. Angle is
// degrees in [0,180] (symmetric port/starboard), speed in knots. Angles
// and Speeds must be sorted ascending; Values[angleIdx][speedIdx] is the
// boat speed at that grid point.
type SpeedTable struct {
	Angles []float64
	Speeds []float64
	Values [][]float64
}

// Polar holds one speed table per sail plan plus the hysteresis state
// needed by TrySwitchBoatPlan.
type Polar struct {
	Tables []SpeedTable

	// HysteresisMargin requires the candidate plan to out-perform the
	// current plan by more than this fraction before switching, preventing
	// the propagator from chattering between adjacent plans every step.
	HysteresisMargin float64
	// DaytimeOnly marks sail plans (by index) that may only be selected
	// while daytime is true.
	DaytimeOnly map[SailPlan]bool
}

// Speed returns the boat speed (knots) for the given sail plan, true-wind
// angle (degrees, any sign/magnitude) and true-wind speed (knots), per
// spec.md §4.B. Returns NaN if the sail plan index is out of range, which
// the propagator (spec.md §4.E) treats as a rejected candidate rather than
// a panic, since this is reached with caller-controlled sail plan indices.
func (p *Polar) Speed(plan SailPlan, twaDeg, twsKn float64) float64 {
	if int(plan) < 0 || int(plan) >= len(p.Tables) {
		return math.NaN()
	}
	return p.Tables[plan].interpolate(math.Abs(rad2deg180(twaDeg*deg2rad)), twsKn)
}

// interpolate bilinearly interpolates the speed table at (angle, speed),
// clamping to the grid edges rather than extrapolating.
func (t SpeedTable) interpolate(angle, speed float64) float64 {
	if len(t.Angles) == 0 || len(t.Speeds) == 0 {
		return math.NaN()
	}
	ai0, ai1, af := bracket(t.Angles, angle)
	si0, si1, sf := bracket(t.Speeds, speed)
	v00 := t.Values[ai0][si0]
	v01 := t.Values[ai0][si1]
	v10 := t.Values[ai1][si0]
	v11 := t.Values[ai1][si1]
	v0 := v00 + (v01-v00)*sf
	v1 := v10 + (v11-v10)*sf
	return v0 + (v1-v0)*af
}

// bracket finds the indices in a sorted slice that bracket v and the
// fractional position of v between them, clamping v to the slice's range.
func bracket(xs []float64, v float64) (lo, hi int, frac float64) {
	if v <= xs[0] {
		return 0, 0, 0
	}
	if v >= xs[len(xs)-1] {
		return len(xs) - 1, len(xs) - 1, 0
	}
	for i := 1; i < len(xs); i++ {
		if v <= xs[i] {
			span := xs[i] - xs[i-1]
			if span == 0 {
				return i - 1, i, 0
			}
			return i - 1, i, (v - xs[i-1]) / span
		}
	}
	return len(xs) - 1, len(xs) - 1, 0
}

// CumulativeSpeed evaluates the polar in cumulative-climatology mode
// (spec.md §4.B): given eight octant probabilities and representative
// (W,VW) pairs, expected speed is Σ dir[i]·Speed(H−W+W[i], VW[i]). If
// subtractCalms is true, the sum is scaled by (1-calm).
func (p *Polar) CumulativeSpeed(plan SailPlan, heading float64, octants [8]Octant, calm float64, subtractCalms bool) float64 {
	var expected float64
	for _, o := range octants {
		twa := heading - o.W
		expected += o.Prob * p.Speed(plan, twa, o.VW)
	}
	if subtractCalms {
		expected *= 1 - calm
	}
	return expected
}

// VMG returns the four VMG-optimal headings for the given sail plan and
// true-wind speed, per spec.md §4.B: the headings (relative to true wind,
// degrees) that maximize the upwind and downwind velocity-made-good.
func (p *Polar) VMG(plan SailPlan, VW float64) VMGHeadings {
	bestUp, bestUpSpeed := 0.0, -math.MaxFloat64
	bestDown, bestDownSpeed := 180.0, -math.MaxFloat64
	for a := 0.0; a <= 180; a += 0.5 {
		vb := p.Speed(plan, a, VW)
		if math.IsNaN(vb) {
			continue
		}
		vmgUp := vb * math.Cos(a*deg2rad)
		vmgDown := -vb * math.Cos(a*deg2rad)
		if a < 90 && vmgUp > bestUpSpeed {
			bestUpSpeed, bestUp = vmgUp, a
		}
		if a > 90 && vmgDown > bestDownSpeed {
			bestDownSpeed, bestDown = vmgDown, a
		}
	}
	return VMGHeadings{PortUp: -bestUp, StbdUp: bestUp, PortDown: -bestDown, StbdDown: bestDown}
}

// TrySwitchBoatPlan returns the sail plan that best serves the current
// conditions, honoring hysteresis and daytime rules, per spec.md §4.B. The
// caller (Propagator) replaces the plan only if the return value differs
// from current.
func (p *Polar) TrySwitchBoatPlan(current SailPlan, VW, heading, swell float64, daytime bool) SailPlan {
	currentSpeed := p.Speed(current, heading, VW)
	if math.IsNaN(currentSpeed) {
		currentSpeed = -math.MaxFloat64
	}
	best := current
	bestSpeed := currentSpeed
	for plan := range p.Tables {
		pl := SailPlan(plan)
		if p.DaytimeOnly[pl] && !daytime {
			continue
		}
		s := p.Speed(pl, heading, VW)
		if math.IsNaN(s) {
			continue
		}
		if s > bestSpeed*(1+p.HysteresisMargin) {
			best, bestSpeed = pl, s
		}
	}
	return best
}

// equalWithinTolerance is a small convenience wrapper kept to mirror the
// teacher's pervasive use of floats.EqualWithinAbs for tolerance checks.
func equalWithinTolerance(a, b, tol float64) bool {
	return floats.EqualWithinAbs(a, b, tol)
}
