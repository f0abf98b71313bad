package routemap

import "math"

// Quadrant tags the sign of (Δlat, Δlon) of a polygon edge (spec.md §3).
type Quadrant uint8

const (
	QuadSW Quadrant = 0
	QuadSE Quadrant = 1
	QuadNW Quadrant = 2
	QuadNE Quadrant = 3
)

// computeQuadrant returns the quadrant of edge (p->q), using the shortest
// longitudinal direction (wrapping by 360°) per spec.md §4.D.
func computeQuadrant(p, q *Position) Quadrant {
	dLat := q.Lat - p.Lat
	dLon := shortestLonDelta(p.Lon, q.Lon)
	switch {
	case dLat >= 0 && dLon >= 0:
		return QuadNE
	case dLat >= 0 && dLon < 0:
		return QuadNW
	case dLat < 0 && dLon >= 0:
		return QuadSE
	default:
		return QuadSW
	}
}

// shortestLonDelta returns q-p wrapped into (-180, 180].
func shortestLonDelta(p, q float64) float64 {
	d := q - p
	if d > 180 {
		d -= 360
	} else if d <= -180 {
		d += 360
	}
	return d
}

// SkipPosition is a node in the cyclic skip-list index over maximal runs of
// same-quadrant edges (spec.md §3).
type SkipPosition struct {
	Point      *Position
	Prev, Next *SkipPosition
	Quadrant   Quadrant

	// minLat/minLon/maxLat/maxLon bound every vertex from Point through
	// Next.Point inclusive (so every edge of the run lies inside) and let the normalizer reject a whole run without touching
	// position-level edges (spec.md §4.F).
	minLat, minLon, maxLat, maxLon float64
}

// buildSkipList walks the polygon once starting at start, opening a new
// SkipPosition every time the edge quadrant changes, merging the first and
// last runs across the wrap if they share a quadrant, per spec.md §4.D.
func buildSkipList(start *Position) *SkipPosition {
	if start == nil || start.Next == start {
		sp := &SkipPosition{Point: start}
		sp.Prev, sp.Next = sp, sp
		if start != nil {
			sp.minLat, sp.maxLat = start.Lat, start.Lat
			sp.minLon, sp.maxLon = start.Lon, start.Lon
		}
		return sp
	}

	var head, tail *SkipPosition
	cur := start
	for {
		q := computeQuadrant(cur, cur.Next)
		run := &SkipPosition{Point: cur, Quadrant: q}
		run.minLat, run.maxLat = cur.Lat, cur.Lat
		run.minLon, run.maxLon = cur.Lon, cur.Lon
		if head == nil {
			head = run
		} else {
			tail.Next = run
			run.Prev = tail
		}
		tail = run
		cur = cur.Next
		for cur != start && computeQuadrant(cur, cur.Next) == q {
			growBox(tail, cur)
			cur = cur.Next
		}
		growBox(tail, cur)
		if cur == start {
			break
		}
	}
	tail.Next = head
	head.Prev = tail

	// Merge the wrap if the last run's quadrant matches the first's.
	if head != tail && head.Quadrant == tail.Quadrant {
		head.Point = tail.Point
		growBoxInto(head, tail)
		before := tail.Prev
		before.Next = head
		head.Prev = before
		if tail == head.Next {
			head.Next = head
		}
	}
	return head
}

func growBox(sp *SkipPosition, p *Position) {
	if p.Lat < sp.minLat {
		sp.minLat = p.Lat
	}
	if p.Lat > sp.maxLat {
		sp.maxLat = p.Lat
	}
	if p.Lon < sp.minLon {
		sp.minLon = p.Lon
	}
	if p.Lon > sp.maxLon {
		sp.maxLon = p.Lon
	}
}

func growBoxInto(dst, src *SkipPosition) {
	if src.minLat < dst.minLat {
		dst.minLat = src.minLat
	}
	if src.maxLat > dst.maxLat {
		dst.maxLat = src.maxLat
	}
	if src.minLon < dst.minLon {
		dst.minLon = src.minLon
	}
	if src.maxLon > dst.maxLon {
		dst.maxLon = src.maxLon
	}
}

// closestPosition walks the skip-list with the tangent-avoidance
// optimization of spec.md §4.D: the first vertex of every run is always
// measured, and the rest of a run is skipped when, seen from the query
// point, the run's first vertex lies in the run's own quadrant (so the run
// heads away from the query) and the previous run's quadrant is not its
// opposite (i.e. the run cannot be tangent to the query).
func closestPosition(skip *SkipPosition, lat, lon float64) (*Position, float64) {
	if skip == nil {
		return nil, math.Inf(1)
	}
	var best *Position
	bestDist := math.Inf(1)
	run := skip
	for {
		if _, d := gcReverse(run.Point.Lat, run.Point.Lon, lat, lon); d < bestDist {
			bestDist, best = d, run.Point
		}
		queryQuad := quadrantOf(lat, lon, run.Point.Lat, run.Point.Lon)
		skippable := queryQuad == run.Quadrant && run.Prev.Quadrant != opposite(run.Quadrant)
		if !skippable {
			end := run.Next.Point
			for p := run.Point; ; p = p.Next {
				_, d := gcReverse(p.Lat, p.Lon, lat, lon)
				if d < bestDist {
					bestDist, best = d, p
				}
				if p.Next == end || p == end {
					break
				}
			}
		}
		run = run.Next
		if run == skip {
			break
		}
	}
	return best, bestDist
}

func quadrantOf(fromLat, fromLon, lat, lon float64) Quadrant {
	dLat := lat - fromLat
	dLon := shortestLonDelta(fromLon, lon)
	switch {
	case dLat >= 0 && dLon >= 0:
		return QuadNE
	case dLat >= 0 && dLon < 0:
		return QuadNW
	case dLat < 0 && dLon >= 0:
		return QuadSE
	default:
		return QuadSW
	}
}

func opposite(q Quadrant) Quadrant {
	return 3 - q
}

// intersectionCount casts a ray due north from (lat, lon) and counts how
// many polygon edges, reached via the skip-list, it crosses. Returns -1 if
// any endpoint falls too near the ray, signaling the caller to perturb
// (spec.md §4.D).
func intersectionCount(skip *SkipPosition, lat, lon float64) int {
	if skip == nil {
		return 0
	}
	count := 0
	run := skip
	for {
		// A run whose longitude box cannot straddle the ray's meridian
		// (within EPS2) cannot contribute a crossing; this is the
		// quadrant-box bypass spec.md §4.D calls for.
		if run.minLon-EPS2 > lon || run.maxLon+EPS2 < lon {
			run = run.Next
			if run == skip {
				break
			}
			continue
		}
		end := run.Next.Point
		for p := run.Point; ; p = p.Next {
			q := p.Next
			if math.Abs(p.Lon-lon) < EPS2 || math.Abs(q.Lon-lon) < EPS2 {
				return -1
			}
			if (p.Lon < lon) != (q.Lon < lon) {
				// Edge straddles the meridian; find the latitude where it
				// crosses and test whether that's north of the query point.
				t := (lon - p.Lon) / (q.Lon - p.Lon)
				crossLat := p.Lat + t*(q.Lat-p.Lat)
				if crossLat > lat {
					count++
				}
			}
			if p.Next == end || p == end {
				break
			}
		}
		run = run.Next
		if run == skip {
			break
		}
	}
	return count
}
