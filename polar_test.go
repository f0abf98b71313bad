package routemap

import (
	"math"
	"testing"

	"github.com/gonum/floats"
)

func testPolar() *Polar {
	return &Polar{
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
	}
}

func TestPolarSpeedExactGridPoint(t *testing.T) {
	p := testPolar()
	speed := p.Speed(0, 90, 15)
	if !floats.EqualWithinAbs(speed, 7, 1e-9) {
		t.Fatalf("expected exact grid value 7, got %f", speed)
	}
}

func TestPolarSpeedInterpolates(t *testing.T) {
	p := testPolar()
	speed := p.Speed(0, 67.5, 15) // halfway between 45 and 90 deg
	if speed <= 6 || speed >= 7 {
		t.Fatalf("expected speed strictly between the bracketing grid rows, got %f", speed)
	}
}

func TestPolarSpeedClampsBeyondGrid(t *testing.T) {
	p := testPolar()
	low := p.Speed(0, 0, 1) // speed below the grid's minimum
	high := p.Speed(0, 0, 100) // speed above the grid's maximum
	if low != 0 || high != 0 {
		t.Fatalf("expected clamped-edge lookups at angle 0, got low=%f high=%f", low, high)
	}
}

func TestPolarSpeedOutOfRangePlanIsNaN(t *testing.T) {
	p := testPolar()
	if s := p.Speed(99, 90, 15); !math.IsNaN(s) {
		t.Fatalf("expected NaN for an out-of-range sail plan, got %f", s)
	}
}

func TestPolarVMGHeadingsAreSymmetric(t *testing.T) {
	p := testPolar()
	vmg := p.VMG(0, 15)
	if vmg.PortUp != -vmg.StbdUp {
		t.Fatalf("VMG upwind headings should be port/starboard mirrors: %+v", vmg)
	}
	if vmg.PortDown != -vmg.StbdDown {
		t.Fatalf("VMG downwind headings should be port/starboard mirrors: %+v", vmg)
	}
}

func TestTrySwitchBoatPlanKeepsCurrentWithinHysteresis(t *testing.T) {
	p := &Polar{
		Tables: []SpeedTable{
			{Angles: []float64{90}, Speeds: []float64{15}, Values: [][]float64{{7}}},
			{Angles: []float64{90}, Speeds: []float64{15}, Values: [][]float64{{7.1}}}, // within 5% margin
		},
		HysteresisMargin: 0.05,
	}
	if got := p.TrySwitchBoatPlan(0, 15, 90, 0, true); got != 0 {
		t.Fatalf("expected no switch within hysteresis margin, got plan %d", got)
	}
}

func TestTrySwitchBoatPlanSwitchesWhenBetterByMargin(t *testing.T) {
	p := &Polar{
		Tables: []SpeedTable{
			{Angles: []float64{90}, Speeds: []float64{15}, Values: [][]float64{{7}}},
			{Angles: []float64{90}, Speeds: []float64{15}, Values: [][]float64{{9}}},
		},
		HysteresisMargin: 0.05,
	}
	if got := p.TrySwitchBoatPlan(0, 15, 90, 0, true); got != 1 {
		t.Fatalf("expected switch to the faster plan, got %d", got)
	}
}

func TestTrySwitchBoatPlanRespectsDaytimeOnly(t *testing.T) {
	p := &Polar{
		Tables: []SpeedTable{
			{Angles: []float64{90}, Speeds: []float64{15}, Values: [][]float64{{7}}},
			{Angles: []float64{90}, Speeds: []float64{15}, Values: [][]float64{{20}}},
		},
		HysteresisMargin: 0.05,
		DaytimeOnly:      map[SailPlan]bool{1: true},
	}
	if got := p.TrySwitchBoatPlan(0, 15, 90, 0, false); got != 0 {
		t.Fatalf("daytime-only plan must not be selected at night, got %d", got)
	}
	if got := p.TrySwitchBoatPlan(0, 15, 90, 0, true); got != 1 {
		t.Fatalf("daytime-only plan should be selectable during the day, got %d", got)
	}
}

func TestCumulativeSpeedSubtractsCalm(t *testing.T) {
	p := testPolar()
	octants := [8]Octant{}
	for i := range octants {
		octants[i] = Octant{W: 0, VW: 15, Prob: 1.0 / 8}
	}
	withCalm := p.CumulativeSpeed(0, 90, octants, 0.5, true)
	withoutCalm := p.CumulativeSpeed(0, 90, octants, 0.5, false)
	if !floats.EqualWithinAbs(withCalm, withoutCalm*0.5, 1e-9) {
		t.Fatalf("subtracting calm should scale by (1-calm): with=%f without=%f", withCalm, withoutCalm)
	}
}
