package routemap

import (
	"testing"
	"time"
)

// constantWindEnv is a stub Environment blowing a fixed wind everywhere,
// with no current, swell, land or cyclone data — enough to drive the
// propagator's guard chain deterministically in tests.
type constantWindEnv struct {
	dirDeg, speedKn float64
}

func (e constantWindEnv) Swell(t time.Time, lat, lon float64) float64 { return 0 }
func (e constantWindEnv) Wind(t time.Time, lat, lon float64) (float64, float64, bool) {
	return e.dirDeg, e.speedKn, true
}
func (e constantWindEnv) Current(t time.Time, lat, lon float64) (float64, float64) { return 0, 0 }
func (e constantWindEnv) WindAtlas(t time.Time, lat, lon float64) (WindAtlas, bool) {
	return WindAtlas{}, false
}
func (e constantWindEnv) CycloneCrossings(lat1, lon1, lat2, lon2 float64, t time.Time, days int, windThreshKn float64, since time.Time) int {
	return 0
}
func (e constantWindEnv) CrossesLand(lat1, lon1, lat2, lon2 float64) bool { return false }

// atlasWindEnv is a stub Environment whose WindAtlas reports a uniform
// eight-octant climatology (equal probability, equal speed in every
// octant), so CumulativeSpeed's weighted sum reduces to the plain
// unweighted average of Polar.Speed across all eight wind directions.
type atlasWindEnv struct {
	constantWindEnv
	atlas WindAtlas
}

func (e atlasWindEnv) WindAtlas(t time.Time, lat, lon float64) (WindAtlas, bool) {
	return e.atlas, true
}

func testAtlas() WindAtlas {
	var a WindAtlas
	for i := 0; i < 8; i++ {
		a.W[i] = float64(i) * 45
		a.VW[i] = 15
		a.Dir[i] = 1.0 / 8
	}
	a.Calm = 0.1
	return a
}

func TestPropagatePositionUsesCumulativeClimatologyWhenConfigured(t *testing.T) {
	pr := testPropagator()
	pr.Env = atlasWindEnv{constantWindEnv: constantWindEnv{dirDeg: 0, speedKn: 15}, atlas: testAtlas()}
	pr.Constraints.ClimatologyType = ClimatologyCumulativeMap
	src := NewPosition(10, 200)
	out := pr.PropagatePosition(src, time.Now(), 6*time.Hour, 10, 200, 15, 210, true)
	if len(out) < 3 {
		t.Fatalf("expected at least 3 admitted candidates in cumulative-climatology mode, got %d", len(out))
	}
}

func TestCumulativeMinusCalmsScalesDownExpectedSpeed(t *testing.T) {
	atlas := testAtlas()
	prMap := testPropagator()
	prMap.Env = atlasWindEnv{constantWindEnv: constantWindEnv{dirDeg: 0, speedKn: 15}, atlas: atlas}
	prMap.Constraints.ClimatologyType = ClimatologyCumulativeMap

	prMinusCalms := testPropagator()
	prMinusCalms.Env = atlasWindEnv{constantWindEnv: constantWindEnv{dirDeg: 0, speedKn: 15}, atlas: atlas}
	prMinusCalms.Constraints.ClimatologyType = ClimatologyCumulativeMinusCalms

	octants := octantsFromAtlas(atlas)
	withCalm := prMap.Polar.CumulativeSpeed(0, 90, octants, atlas.Calm, false)
	withoutCalm := prMinusCalms.Polar.CumulativeSpeed(0, 90, octants, atlas.Calm, true)
	if withoutCalm >= withCalm {
		t.Fatalf("expected subtracting calms to reduce expected speed, got %f >= %f", withoutCalm, withCalm)
	}
}

func testPropagator() *Propagator {
	return &Propagator{
		Env: constantWindEnv{dirDeg: 0, speedKn: 15},
		Polar: &Polar{
			Tables: []SpeedTable{
				{
					Angles: []float64{0, 45, 90, 135, 180},
					Speeds: []float64{5, 15, 25},
					Values: [][]float64{
						{0, 0, 0},
						{3, 6, 8},
						{4, 7, 9},
						{3.5, 6.5, 8.5},
						{1, 2, 3},
					},
				},
			},
			HysteresisMargin: 0.05,
		},
		Constraints: Constraints{
			DegreeSteps:         []float64{-150, -120, -90, -60, -30, 30, 60, 90, 120, 150},
			MaxDivertedCourse:   90,
			MaxSearchAngle:      90,
			MaxWindKnots:        60,
			MaxSwellMeters:      20,
			MaxLatitude:         85,
			MaxTacks:            -1,
			MaxUpwindPercentage: 100,
			TackingTime:         30 * time.Minute,
			Integrator:          Newton,
		},
	}
}

func TestPropagatePositionProducesCandidates(t *testing.T) {
	pr := testPropagator()
	src := NewPosition(10, 200)
	dt := 6 * time.Hour
	out := pr.PropagatePosition(src, time.Now(), dt, 10, 200, 15, 210, true)
	if len(out) < 3 {
		t.Fatalf("expected at least 3 admitted candidates, got %d", len(out))
	}
	for _, p := range out {
		if p.Parent != src {
			t.Fatalf("every candidate's parent should be src")
		}
	}
}

func TestPropagatePositionRejectsAlreadyPropagated(t *testing.T) {
	pr := testPropagator()
	src := NewPosition(10, 200)
	src.Propagated = true
	if out := pr.PropagatePosition(src, time.Now(), 6*time.Hour, 10, 200, 15, 210, true); out != nil {
		t.Fatalf("an already-propagated position must not be re-propagated")
	}
}

func TestPropagatePositionRejectsExcessiveSwell(t *testing.T) {
	pr := testPropagator()
	pr.Constraints.MaxSwellMeters = -1 // any swell value exceeds this
	src := NewPosition(10, 200)
	if out := pr.PropagatePosition(src, time.Now(), 6*time.Hour, 10, 200, 15, 210, true); out != nil {
		t.Fatalf("expected swell guard to reject the candidate")
	}
}

// TestPropagatePositionSecondStepMeasuresFromPassageStart regression-tests
// the corridor constraints against the frontier drifting away from the
// overall start: once src is no longer the passage start itself, the
// search-angle and diverted-course bearings must still be measured from
// startLat/startLon, not from src, or a second step can be wrongly
// rejected even while still heading toward dest.
func TestPropagatePositionSecondStepMeasuresFromPassageStart(t *testing.T) {
	pr := testPropagator()
	startLat, startLon := 10.0, 200.0
	destLat, destLon := 15.0, 230.0
	dt := 6 * time.Hour
	now := time.Now()

	first := pr.PropagatePosition(NewPosition(startLat, startLon), now, dt, startLat, startLon, destLat, destLon, true)
	if len(first) < 3 {
		t.Fatalf("expected at least 3 candidates from the first step, got %d", len(first))
	}

	second := pr.PropagatePosition(first[0], now.Add(dt), dt, startLat, startLon, destLat, destLon, true)
	if len(second) < 3 {
		t.Fatalf("expected at least 3 candidates from a second step once src has drifted from the passage start, got %d", len(second))
	}
}

func TestAngularDiffWrapsCorrectly(t *testing.T) {
	if d := angularDiff(350, 10); d > 21 || d < 19 {
		t.Fatalf("expected angular diff near 20 degrees across the wrap, got %f", d)
	}
}
