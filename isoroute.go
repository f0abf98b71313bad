package routemap

// IsoRoute is one closed polygonal region of an isochron, signed by
// direction (spec.md §3). A +1 route is an ordinary reachable region; a -1
// route is an inverted "hole" nested inside its Parent. Invariants (spec.md
// §8): the polygon is simple after normalization; Children lie strictly
// inside the parent; a child's Direction always opposes its parent's; no
// grandchildren (holes-in-holes are flattened to siblings by the merger).
type IsoRoute struct {
	SkipPoints *SkipPosition
	Direction  int // +1 or -1

	Parent   *IsoRoute
	Children []*IsoRoute
}

// NewIsoRoute builds an IsoRoute (and its skip-list) from a polygon.
func NewIsoRoute(polygon *Position, direction int) *IsoRoute {
	return &IsoRoute{SkipPoints: buildSkipList(polygon), Direction: direction}
}

// Polygon returns the route's first polygon vertex.
func (r *IsoRoute) Polygon() *Position {
	if r.SkipPoints == nil {
		return nil
	}
	return r.SkipPoints.Point
}

// Len returns the route's vertex count.
func (r *IsoRoute) Len() int {
	return r.Polygon().Len()
}

// RebuildSkipList rebuilds the skip-list from the current polygon, used
// after a vertex removal invalidates the existing one (spec.md §4.F).
func (r *IsoRoute) RebuildSkipList() {
	r.SkipPoints = buildSkipList(r.Polygon())
}

// BoundingBox returns the route's axis-aligned bounding box.
func (r *IsoRoute) BoundingBox() (minLat, minLon, maxLat, maxLon float64) {
	return r.Polygon().BoundingBox()
}

// Contains reports whether (lat, lon) lies inside the route, using
// ray-casting via the skip-list (spec.md §4.D). If recurseChildren is true,
// each inverted child's containment flips the parity — a point inside a
// hole is not contained by the parent (spec.md §4.D, §8).
func (r *IsoRoute) Contains(lat, lon float64, recurseChildren bool) bool {
	count := intersectionCount(r.SkipPoints, lat, lon)
	if count < 0 {
		// Degenerate: perturb the query point slightly and retry once.
		count = intersectionCount(r.SkipPoints, lat, lon+EPS2*10)
		if count < 0 {
			count = 0
		}
	}
	inside := count%2 == 1
	if !recurseChildren {
		return inside
	}
	for _, c := range r.Children {
		if c.Contains(lat, lon, true) {
			inside = !inside
		}
	}
	return inside
}

// CompletelyContained reports whether every vertex of r lies inside other,
// used by the normalizer/merger when deciding whether a self-normalized
// survivor qualifies as a hole (spec.md §4.F).
func (r *IsoRoute) CompletelyContained(other *IsoRoute) bool {
	all := true
	r.Polygon().Each(func(p *Position) {
		if !other.Contains(p.Lat, p.Lon, false) {
			all = false
		}
	})
	return all
}

// ClosestPosition returns the polygon vertex (of r and, recursively, its
// children) nearest (lat, lon) and the great-circle distance to it.
func (r *IsoRoute) ClosestPosition(lat, lon float64) (*Position, float64) {
	best, bestDist := closestPosition(r.SkipPoints, lat, lon)
	for _, c := range r.Children {
		if p, d := c.ClosestPosition(lat, lon); d < bestDist {
			best, bestDist = p, d
		}
	}
	return best, bestDist
}
