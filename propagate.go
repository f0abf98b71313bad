package routemap

import (
	"math"
	"time"

	"github.com/ChristopherRabotin/ode"
)

// Integrator selects the numerical scheme used to step a candidate heading
// forward (spec.md §4.E, §6).
type Integrator uint8

const (
	// Newton takes a single great-circle step at the computed speed.
	Newton Integrator = iota + 1
	// RungeKutta composes the move from four stages at 1/6, 1/3, 1/3, 1/6
	// weights, holding the ground bearing and speed found at the step's
	// start; wind and current are not re-read at the intermediate stages.
	RungeKutta
)

// ClimatologyMode selects how guard 3 of PropagatePosition sources wind,
// per spec.md §6.
type ClimatologyMode uint8

const (
	// ClimatologyOff reads a single point wind reading per spec.md §4.C.
	ClimatologyOff ClimatologyMode = iota
	// ClimatologyCumulativeMap evaluates boat speed as the probability-
	// weighted sum over Environment.WindAtlas's eight octants.
	ClimatologyCumulativeMap
	// ClimatologyCumulativeMinusCalms is ClimatologyCumulativeMap scaled
	// down by the atlas's recorded calms fraction.
	ClimatologyCumulativeMinusCalms
)

// Constraints bundles the propagation guards and corridor limits of
// spec.md §4.E / §6.
type Constraints struct {
	DegreeSteps          []float64 // heading offsets relative to true wind
	MaxDivertedCourse    float64   // degrees
	MaxSearchAngle       float64   // degrees
	MaxWindKnots         float64
	MaxSwellMeters       float64
	MaxLatitude          float64
	MaxTacks             int // negative disables the cap
	MaxUpwindPercentage  float64
	TackingTime          time.Duration
	DetectLand           bool
	AvoidCycloneTracks   bool
	Currents             bool
	AllowDataDeficient   bool
	Integrator           Integrator
	ClimatologyType      ClimatologyMode
	CycloneDays          int
	CycloneWindSpeedKn   float64
	CycloneClimStartYear int
}

// Propagator fans out candidate headings from one Position and integrates
// boat motion through wind and current, applying the constraints of
// spec.md §4.E. It holds no per-step state; every method takes the
// environment/polar/constraints/time it needs, matching the stateless
// "capability interface" shape of spec.md §9.
type Propagator struct {
	Env         Environment
	Polar       *Polar
	Constraints Constraints
}

// candidate is one admitted heading's resulting position, kept in
// insertion order before the skip-list is built (spec.md §4.E).
type candidate struct {
	lat, lon     float64
	sailPlan     SailPlan
	tacks        int
	upwind       int
	propagations int
	propagated   bool
}

// PropagatePosition produces the candidate children of src for the step
// t -> t+dt, per spec.md §4.E. startLat/startLon/destLat/destLon are the
// overall route endpoints, used only by the corridor constraints. Returns
// nil if the guards reject src outright or fewer than 3 candidates survive
// the candidate loop.
func (pr *Propagator) PropagatePosition(src *Position, t time.Time, dt time.Duration, startLat, startLon, destLat, destLon float64, daytime bool) []*Position {
	// Guard 1.
	if src.Propagated {
		return nil
	}
	// Guard 2.
	swell := pr.Env.Swell(t, src.Lat, src.Lon)
	if swell > pr.Constraints.MaxSwellMeters || math.Abs(src.Lat) > pr.Constraints.MaxLatitude {
		return nil
	}
	// Guard 3.
	var atlas WindAtlas
	atlasOK := false
	var WG, VWG float64
	var ok bool
	if pr.Constraints.ClimatologyType != ClimatologyOff {
		atlas, atlasOK = pr.Env.WindAtlas(t, src.Lat, src.Lon)
		if atlasOK {
			WG, VWG = representativeWind(atlas)
			ok = true
		}
	}
	if !ok {
		WG, VWG, ok = pr.readWind(t, src)
		if !ok {
			return nil
		}
	}
	var C, VC float64
	if pr.Constraints.Currents {
		C, VC = pr.Env.Current(t, src.Lat, src.Lon)
	}
	W, VW := overWater(WG, VWG, C, VC)
	// Guard 4.
	if VW > pr.Constraints.MaxWindKnots {
		return nil
	}

	var parentBearing float64
	hasParentBearing := false
	if pr.Constraints.MaxTacks >= 0 && src.Parent != nil {
		parentBearing, _ = gcReverse(src.Parent.Lat, src.Parent.Lon, src.Lat, src.Lon)
		hasParentBearing = true
	}

	startBearing, _ := gcReverse(startLat, startLon, destLat, destLon)

	var admitted []*candidate
	for _, H := range pr.Constraints.DegreeSteps {
		c := pr.tryCandidate(src, t, dt, W, VW, C, VC, H, daytime,
			startLat, startLon, startBearing, destLat, destLon, parentBearing, hasParentBearing, atlas, atlasOK)
		if c != nil {
			admitted = append(admitted, c)
		}
	}
	admitted = pruneInteriorRuns(admitted)
	if len(admitted) < 3 {
		return nil
	}
	out := make([]*Position, len(admitted))
	for i, c := range admitted {
		p := &Position{Lat: quantize(c.lat), Lon: quantize(c.lon), SailPlan: c.sailPlan,
			Tacks: c.tacks, Upwind: c.upwind, Propagations: c.propagations, Parent: src, Propagated: c.propagated}
		out[i] = p
	}
	for i := range out {
		out[i].Prev = out[(i-1+len(out))%len(out)]
		out[i].Next = out[(i+1)%len(out)]
	}
	return out
}

// readWind reads the point wind at pos and, when the grid misses there and
// data-deficient fallback is enabled, falls back to windAtSmoothed along
// pos's ancestry (spec.md §4.C, §4.E guard 3).
func (pr *Propagator) readWind(t time.Time, pos *Position) (WG, VWG float64, ok bool) {
	if WG, VWG, ok = pr.Env.Wind(t, pos.Lat, pos.Lon); ok {
		return
	}
	if !pr.Constraints.AllowDataDeficient {
		return 0, 0, false
	}
	return windAtSmoothed(pr.Env, t, pos.Parent, 8)
}

// tryCandidate evaluates one heading offset H, applying every per-heading
// guard of spec.md §4.E in order, and returns nil on rejection.
func (pr *Propagator) tryCandidate(src *Position, t time.Time, dt time.Duration, W, VW, C, VC, H float64, daytime bool,
	startLat, startLon, startBearing, destLat, destLon float64, parentBearing float64, hasParentBearing bool,
	atlas WindAtlas, atlasOK bool) *candidate {

	newPlan := pr.Polar.TrySwitchBoatPlan(src.SailPlan, VW, W+H, pr.Env.Swell(t, src.Lat, src.Lon), daytime)
	B := normalizeDeg360(W + H)
	var VB float64
	if atlasOK {
		subtractCalms := pr.Constraints.ClimatologyType == ClimatologyCumulativeMinusCalms
		VB = pr.Polar.CumulativeSpeed(newPlan, B, octantsFromAtlas(atlas), atlas.Calm, subtractCalms)
	} else {
		VB = pr.Polar.Speed(newPlan, H, VW)
	}
	if math.IsNaN(VB) {
		return nil
	}
	BG, VBG := overGround(B, VB, C, VC)
	if VBG == 0 {
		return nil
	}

	effectiveDt := dt
	tacks := src.Tacks
	if hasParentBearing {
		gap := angularDiff(B, parentBearing)
		if sign(rad2deg180(deg2rad180(B)))*sign(rad2deg180(deg2rad180(parentBearing))) < 0 && gap < 180 {
			effectiveDt -= pr.Constraints.TackingTime
			tacks++
			if pr.Constraints.MaxTacks >= 0 && tacks >= pr.Constraints.MaxTacks {
				return nil
			}
		}
	}
	if effectiveDt <= 0 {
		return nil
	}
	distNM := VBG * effectiveDt.Seconds() / 3600

	_, A := apparentWind(VB, H*deg2rad, VW)
	upwind := src.Upwind
	if math.Abs(rad2deg180(A)) < 90 {
		upwind++
	}
	propagations := src.Propagations + 1
	if 100*float64(upwind+1)/float64(propagations+1) > pr.Constraints.MaxUpwindPercentage {
		return nil
	}

	var lat, lon float64
	var integErr bool
	switch pr.Constraints.Integrator {
	case RungeKutta:
		lat, lon, integErr = pr.rk4Step(src.Lat, src.Lon, effectiveDt, BG, VBG)
	default:
		lat, lon = gcForward(src.Lat, src.Lon, BG, distNM)
	}
	if integErr {
		return nil
	}

	// Corridor constraints (spec.md §4.E), both measured from the overall
	// passage start, not from src, matching RouteMap.cpp:745/756/761.
	startToCandBearing, distStart := gcReverse(startLat, startLon, lat, lon)
	if angularDiff(startToCandBearing, startBearing) > pr.Constraints.MaxSearchAngle {
		return nil
	}
	candToEndBearing, distEnd := gcReverse(lat, lon, destLat, destLon)
	scale := 1 + math.Pow(((distStart+distEnd)/math.Max(distEnd, 1e-9))/16, 4)
	divertedAngle := angularDiff(startToCandBearing, candToEndBearing)
	if divertedAngle > pr.Constraints.MaxDivertedCourse*scale {
		return nil
	}

	if pr.Constraints.DetectLand && pr.Env.CrossesLand(src.Lat, src.Lon, lat, lon) {
		return nil
	}
	if pr.Constraints.AvoidCycloneTracks {
		since := time.Date(pr.Constraints.CycloneClimStartYear, 1, 1, 0, 0, 0, 0, time.UTC)
		if pr.Env.CycloneCrossings(src.Lat, src.Lon, lat, lon, t, pr.Constraints.CycloneDays, pr.Constraints.CycloneWindSpeedKn, since) > 0 {
			return nil
		}
	}

	return &candidate{lat: lat, lon: lon, sailPlan: newPlan, tacks: tacks, upwind: upwind, propagations: propagations}
}

// angularDiff returns the absolute angular difference between two bearings
// in degrees, in [0, 180].
func angularDiff(a, b float64) float64 {
	return math.Abs(rad2deg180(deg2rad180(a) - deg2rad180(b)))
}

// pruneInteriorRuns removes any run of three-or-more consecutive
// already-propagated admissions, which are interior carry-overs rather
// than new frontier points (spec.md §4.E).
func pruneInteriorRuns(admitted []*candidate) []*candidate {
	if len(admitted) < 3 {
		return admitted
	}
	keep := make([]bool, len(admitted))
	for i := range keep {
		keep[i] = true
	}
	run := 0
	for i, c := range admitted {
		if c.propagated {
			run++
		} else {
			run = 0
		}
		if run >= 3 {
			keep[i] = false
			keep[i-1] = false
			keep[i-2] = false
		}
	}
	out := make([]*candidate, 0, len(admitted))
	for i, c := range admitted {
		if keep[i] {
			out = append(out, c)
		}
	}
	return out
}

// rk4Step integrates one step with a 4-stage Runge-Kutta scheme via
// github.com/ChristopherRabotin/ode. Mirrors mission.go's use of
// ode.NewRK4 to drive a Mission's orbital state; here the state vector is
// just (lat, lon) and the derivative is the great-circle velocity for the
// fixed ground bearing and speed, evaluated at each stage's position. Wind
// and current are not re-read during the step; the candidate is discarded
// only when a stage yields NaN.
func (pr *Propagator) rk4Step(lat, lon float64, dt time.Duration, bearingDeg, speedKn float64) (float64, float64, bool) {
	stepper := &rk4State{lat: lat, lon: lon, bearingDeg: bearingDeg, speedKn: speedKn, dtSeconds: dt.Seconds()}
	ode.NewRK4(0, dt.Seconds(), stepper).Solve()
	if stepper.failed {
		return 0, 0, true
	}
	return stepper.lat, stepper.lon, false
}

// rk4State adapts a single great-circle step to ode.Integrable's
// GetState/SetState/Func/Stop contract, exactly as mission.go's Mission
// type does for a whole orbital propagation.
type rk4State struct {
	lat, lon   float64
	bearingDeg float64
	speedKn    float64
	dtSeconds  float64
	failed     bool
}

func (s *rk4State) GetState() []float64 { return []float64{s.lat, s.lon} }

func (s *rk4State) SetState(t float64, v []float64) {
	s.lat, s.lon = v[0], v[1]
}

func (s *rk4State) Func(t float64, v []float64) []float64 {
	// Constant-bearing, constant-speed great-circle derivative over the
	// (short) RK sub-step, re-derived at the sub-step's own position; the
	// environment is not consulted here.
	distNM := s.speedKn * (1.0 / 3600)
	nlat, nlon := gcForward(v[0], v[1], s.bearingDeg, distNM)
	dlat := nlat - v[0]
	dlon := shortestLonDelta(v[1], nlon)
	if math.IsNaN(dlat) || math.IsNaN(dlon) {
		s.failed = true
	}
	return []float64{dlat, dlon}
}

func (s *rk4State) Stop(t float64) bool {
	return t >= s.dtSeconds
}
