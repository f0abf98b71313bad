package routemap

import (
	"time"

	"github.com/soniakeys/meeus/julian"
)

// IsoChron is one timestamped frontier of reachable positions, represented
// as a list of disjoint IsoRoutes (spec.md §3, §4.G). Successive IsoChrons
// form the growth sequence a RouteMap accumulates one propagation step at
// a time. JulianDay stamps Date the way the teacher keys planetary
// ephemerides by Julian day (config.go's HelioState), so a climatology
// Environment keyed by JD can align its epoch without re-deriving it from
// Date on every lookup.
type IsoChron struct {
	Date      time.Time
	JulianDay float64
	Routes    []*IsoRoute
}

// NewIsoChron wraps an already-normalized route list with its timestamp.
func NewIsoChron(date time.Time, routes []*IsoRoute) *IsoChron {
	return &IsoChron{Date: date, JulianDay: julian.TimeToJD(date.UTC()), Routes: routes}
}

// PropagateInto advances every position of ic by one step through pr and
// normalizes the result into the next IsoChron, per spec.md §4.E/§4.F/§4.G.
// When anchor is true, every candidate's positions are cloned before
// propagation so the prior IsoChron's polygon is left untouched for later
// ClosestPosition/Contains queries (spec.md §4.G anchoring, resolved in
// DESIGN.md: anchor implies pre-clone, not post-clone, since a reachability
// query against ic must see the positions as they were at ic.Date).
func (ic *IsoChron) PropagateInto(pr *Propagator, t time.Time, dt time.Duration,
	startLat, startLon, destLat, destLon float64, daytime, anchor bool, opts NormalizeOptions) *IsoChron {

	var newPolygons []*Position
	for _, route := range ic.Routes {
		route.Polygon().Each(func(p *Position) {
			src := p
			if anchor {
				src = p.Clone()
				src.Parent = p
			}
			children := pr.PropagatePosition(src, t, dt, startLat, startLon, destLat, destLon, daytime)
			if children != nil {
				src.Propagated = true
				newPolygons = append(newPolygons, children...)
			}
		})
	}
	if len(newPolygons) == 0 {
		return NewIsoChron(t.Add(dt), nil)
	}

	var routes []*IsoRoute
	seen := make(map[*Position]bool)
	for _, p := range newPolygons {
		if seen[p] {
			continue
		}
		p.Each(func(q *Position) { seen[q] = true })
		dir := signedArea(p)
		routes = append(routes, NewIsoRoute(p, dir))
	}
	reduced, _ := ReduceList(routes, opts, nil)
	return NewIsoChron(t.Add(dt), reduced)
}

// Contains reports whether (lat, lon) lies within any of ic's routes,
// honoring nested holes (spec.md §4.D, §4.G).
func (ic *IsoChron) Contains(lat, lon float64) bool {
	for _, r := range ic.Routes {
		if r.Parent != nil {
			continue // only test top-level routes; holes are handled recursively
		}
		if r.Contains(lat, lon, true) {
			return true
		}
	}
	return false
}

// ClosestPosition returns the vertex (across all of ic's routes) nearest
// (lat, lon) and its great-circle distance.
func (ic *IsoChron) ClosestPosition(lat, lon float64) (*Position, float64) {
	var best *Position
	bestDist := float64(1 << 62)
	for _, r := range ic.Routes {
		if p, d := r.ClosestPosition(lat, lon); d < bestDist {
			best, bestDist = p, d
		}
	}
	return best, bestDist
}

// EndDate linearly interpolates the arrival time at (destLat, destLon)
// between this IsoChron and next, using each one's closest-approach
// distance to the destination, per spec.md §4.G.
func (ic *IsoChron) EndDate(next *IsoChron, destLat, destLon float64) time.Time {
	_, d0 := ic.ClosestPosition(destLat, destLon)
	_, d1 := next.ClosestPosition(destLat, destLon)
	if d0 <= d1 {
		return ic.Date
	}
	span := d0 - d1
	if span <= 0 {
		return next.Date
	}
	frac := d0 / span
	if frac > 1 {
		frac = 1
	}
	return ic.Date.Add(time.Duration(frac * float64(next.Date.Sub(ic.Date))))
}
