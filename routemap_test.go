package routemap

import (
	"testing"
	"time"
)

func TestRouteMapRunAccumulatesIsoChrons(t *testing.T) {
	pr := testPropagator()
	seed := NewPosition(10, 200)
	route := NewIsoRoute(seed, 1)
	ic := NewIsoChron(time.Now(), []*IsoRoute{route})
	cfg := Config{
		StartLat: 10, StartLon: 200,
		DestLat: 80, DestLon: 200, // far enough away that it won't be reached in a few steps
		StepDuration: 6 * time.Hour,
	}
	rm := NewRouteMap(cfg, pr, ic, nil)
	rm.Run(3)

	if got := len(rm.GetIsoChrons()); got < 2 {
		t.Fatalf("expected at least the seed plus one propagated isochron, got %d", got)
	}
	stats := rm.Stats()
	if stats.PositionCount == 0 {
		t.Fatalf("expected a non-zero position count after running")
	}
}

func TestRouteMapStopHaltsRun(t *testing.T) {
	pr := testPropagator()
	seed := NewPosition(10, 200)
	route := NewIsoRoute(seed, 1)
	ic := NewIsoChron(time.Now(), []*IsoRoute{route})
	cfg := Config{StartLat: 10, StartLon: 200, DestLat: 80, DestLon: 200, StepDuration: 6 * time.Hour}
	rm := NewRouteMap(cfg, pr, ic, nil)
	rm.Stop()
	rm.Run(50)
	// Stop was requested before the first step boundary check; Run should
	// return quickly rather than consuming all 50 steps.
	if len(rm.GetIsoChrons()) > 2 {
		t.Fatalf("expected Run to stop near-immediately, got %d isochrons", len(rm.GetIsoChrons()))
	}
}

func TestRouteMapClosestPositionAcrossIsoChrons(t *testing.T) {
	route := buildSquareRoute()
	ic := NewIsoChron(time.Now(), []*IsoRoute{route})
	cfg := Config{DestLat: 5, DestLon: 5}
	rm := NewRouteMap(cfg, &Propagator{}, ic, nil)
	p, _ := rm.ClosestPosition(0.1, 0.1, true)
	if p.Lat != 0 || p.Lon != 0 {
		t.Fatalf("expected (0,0) vertex to be closest")
	}
}
