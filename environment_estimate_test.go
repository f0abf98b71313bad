package routemap

import (
	"testing"
	"time"
)

func TestWindEstimatorFirstObservationIsPassThrough(t *testing.T) {
	e := newWindEstimator()
	e.Observe(90, 12, 0.5)
	dir, speed := e.Estimate()
	if dir != 90 || speed != 12 {
		t.Fatalf("expected the first observation to seed the estimate verbatim, got (%f, %f)", dir, speed)
	}
}

// TestWindEstimatorWeightDrivesBlend checks that the weight matrix is load
// bearing: the seed decays the identity diagonal once, so the second
// observation must move the estimate exactly halfway (gain 1-decay = 0.5),
// while a third observation (reading the twice-decayed diagonal) must move
// it by a smaller fraction still.
func TestWindEstimatorWeightDrivesBlend(t *testing.T) {
	e := newWindEstimator()
	e.Observe(0, 10, 0.5)
	e.Observe(90, 20, 0.5)
	dir, speed := e.Estimate()
	if !equalWithinTolerance(dir, 45, 1e-9) || !equalWithinTolerance(speed, 15, 1e-9) {
		t.Fatalf("expected the second observation to move the estimate halfway via the once-decayed weight, got (%f, %f)", dir, speed)
	}
	e.Observe(180, 30, 0.5)
	dir, speed = e.Estimate()
	if dir == 180 || speed == 30 {
		t.Fatalf("expected the third observation to only partially blend once the weight has decayed, got (%f, %f)", dir, speed)
	}
	if speed <= 15 || speed >= 30 {
		t.Fatalf("expected the blended speed to land strictly between the running estimate and the new reading, got %f", speed)
	}
}

func TestWindAtSmoothedKeepsConstantReading(t *testing.T) {
	env := constantWindEnv{dirDeg: 45, speedKn: 18}
	grandparent := NewPosition(10, 200)
	parent := &Position{Lat: 10.1, Lon: 200.1, Parent: grandparent}
	child := &Position{Lat: 10.2, Lon: 200.2, Parent: parent}

	WG, VWG, ok := windAtSmoothed(env, time.Now(), child, 8)
	if !ok {
		t.Fatalf("expected windAtSmoothed to find data via the ancestry chain")
	}
	if WG != 45 || VWG != 18 {
		t.Fatalf("expected the constant environment's reading to survive smoothing unchanged, got (%f, %f)", WG, VWG)
	}
}
