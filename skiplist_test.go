package routemap

import "testing"

// buildSquareRoute returns a simple CCW 10x10 square polygon (0,0)-(0,10)-
// (10,10)-(10,0) and its skip-list / IsoRoute.
func buildSquareRoute() *IsoRoute {
	p1 := NewPosition(0, 0)
	p2 := p1.InsertAfter(0, 10)
	p3 := p2.InsertAfter(10, 10)
	p3.InsertAfter(10, 0)
	return NewIsoRoute(p1, 1)
}

func TestComputeQuadrant(t *testing.T) {
	a := NewPosition(0, 0)
	b := NewPosition(10, 10)
	if q := computeQuadrant(a, b); q != QuadNE {
		t.Fatalf("expected QuadNE, got %d", q)
	}
	c := NewPosition(-10, -10)
	if q := computeQuadrant(a, c); q != QuadSW {
		t.Fatalf("expected QuadSW, got %d", q)
	}
}

func TestOppositeQuadrant(t *testing.T) {
	if opposite(QuadSW) != QuadNE || opposite(QuadNE) != QuadSW {
		t.Fatalf("SW/NE should be opposites")
	}
	if opposite(QuadSE) != QuadNW || opposite(QuadNW) != QuadSE {
		t.Fatalf("SE/NW should be opposites")
	}
}

func TestShortestLonDeltaWraps(t *testing.T) {
	if d := shortestLonDelta(170, -170); d != 20 {
		t.Fatalf("expected wrap-around delta of 20, got %f", d)
	}
}

func TestBuildSkipListCoversEveryVertex(t *testing.T) {
	route := buildSquareRoute()
	seen := map[*Position]bool{}
	run := route.SkipPoints
	for {
		end := run.Next.Point
		for p := run.Point; ; p = p.Next {
			seen[p] = true
			if p.Next == end || p == end {
				break
			}
		}
		run = run.Next
		if run == route.SkipPoints {
			break
		}
	}
	if len(seen) != 4 {
		t.Fatalf("expected all 4 vertices covered by the skip-list, got %d", len(seen))
	}
}

func TestContainsInsidePoint(t *testing.T) {
	route := buildSquareRoute()
	if !route.Contains(5, 5, false) {
		t.Fatalf("(5,5) should be inside the square")
	}
	if route.Contains(50, 50, false) {
		t.Fatalf("(50,50) should be outside the square")
	}
}

func TestClosestPositionFindsNearestVertex(t *testing.T) {
	route := buildSquareRoute()
	p, _ := route.ClosestPosition(0.1, 0.1)
	if p.Lat != 0 || p.Lon != 0 {
		t.Fatalf("expected the (0,0) vertex to be closest, got (%f,%f)", p.Lat, p.Lon)
	}
}
