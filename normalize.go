package routemap

// Normalizer/Merger (spec.md §4.F): a planar sweep that resolves
// self-intersections in a freshly-propagated polygon and merges pairs of
// overlapping routes, preserving nested inverted "holes". The teacher's
// hand-rolled 36-state transition table (design notes, spec.md §9) is
// replaced here by the equivalent the notes call for: a flat screening
// pass driven by the skip-list's precomputed per-run bounding boxes, which
// reject whole runs of edges before ever calling testIntersectionXY on a
// position-level edge pair. Behavior is what spec.md §4.F mandates; the
// teacher's macro-generated state machine is an implementation detail of
// how C++ got there, not something Go code should imitate line-for-line.

// NormalizeOptions.InvertedRegions gates whether a self-normalize survivor may become
// a hole (child) rather than being discarded, per spec.md §4.F / §6.
type NormalizeOptions struct {
	InvertedRegions bool
}

// Normalize resolves self-intersections of route (or, when other is
// supplied and differs, merges route against other) and returns the
// resulting disjoint, simple, correctly-signed, correctly-nested routes,
// per spec.md §4.F.
func Normalize(route, other *IsoRoute, opts NormalizeOptions) []*IsoRoute {
	if other == nil {
		other = route
	}
	r1, r2 := route, other
	selfNormalize := r1 == r2

	if !selfNormalize {
		// Bounds early-out.
		minLat1, minLon1, maxLat1, maxLon1 := r1.BoundingBox()
		minLat2, minLon2, maxLat2, maxLon2 := r2.BoundingBox()
		if !boxesOverlap(minLat1, minLon1, maxLat1, maxLon1, minLat2, minLon2, maxLat2, maxLon2) {
			return []*IsoRoute{r1, r2}
		}
		// Outer selection: the candidate outer route has the higher
		// starting latitude.
		if r2.Polygon().Lat > r1.Polygon().Lat {
			r1, r2 = r2, r1
		}
	}

	for {
		p, q, rr, ss, code, found := findIntersection(r1, r2, selfNormalize)
		if !found {
			break
		}
		switch {
		case code == crossRightToLeft || code == crossLeftToRight:
			dir := int(code)
			if selfNormalize {
				sub := spliceSelf(p, q, rr, ss)
				if sub.Len() <= 2 {
					continue
				}
				subDir := signedArea(sub)
				if subDir != r1.Direction {
					continue
				}
				children := normalizeSelfAtLevel(sub, r1, opts)
				for _, c := range children {
					r1.Children = append(r1.Children, c)
				}
			} else {
				expected := -r1.Direction
				if r2.Direction != -1 {
					expected = r1.Direction
				}
				if dir != expected {
					continue
				}
				spliceMerge(p, q, rr, ss)
				r1.Children = append(r1.Children, r2.Children...)
				r1.RebuildSkipList()
				r2 = r1
				selfNormalize = true
			}
		default:
			// Endpoint-on-edge: RESOLVE_REMOVAL. Remove the offending
			// vertex and restart the sweep; the skip-list for its polygon
			// is rebuilt from scratch since removal can invalidate it.
			victim := endpointVictim(p, q, rr, ss, code)
			owner := routeOwning(r1, r2, victim)
			victim.Remove()
			if owner != nil {
				owner.RebuildSkipList()
			}
		}
	}

	out := []*IsoRoute{r1}
	if !selfNormalize {
		out = append(out, r2)
	}
	return out
}

// normalizeSelfAtLevel recursively normalizes a sub-region split off during
// self-normalization one level deeper, then classifies survivors as
// siblings or children per spec.md §4.F's level-0 rules.
func normalizeSelfAtLevel(sub *Position, parent *IsoRoute, opts NormalizeOptions) []*IsoRoute {
	subRoute := NewIsoRoute(sub, parent.Direction)
	deeper := Normalize(subRoute, nil, opts)
	var result []*IsoRoute
	for _, d := range deeper {
		switch {
		case d.Direction == parent.Direction:
			result = append(result, d) // sibling
		case opts.InvertedRegions && d.Direction != parent.Direction && d.CompletelyContained(parent) && d.Len() >= 16:
			d.Direction = -parent.Direction
			d.Parent = parent
			result = append(result, d) // child / hole
		default:
			// grandchild, too-small, or not contained: discarded.
		}
	}
	return result
}

// findIntersection scans the two routes' skip-lists (or one route against
// itself for self-normalization) for the next proper crossing or
// endpoint-on-edge degeneracy, screening whole skip-runs via their
// bounding boxes before touching position-level edges.
func findIntersection(r1, r2 *IsoRoute, selfNormalize bool) (p1, p2, p3, p4 *Position, code intersectionCode, found bool) {
	outerSkip := r1.SkipPoints
	if outerSkip == nil {
		return nil, nil, nil, nil, 0, false
	}
	run1 := outerSkip
	for {
		innerStart := r2.SkipPoints
		if selfNormalize {
			innerStart = run1.Next
		}
		run2 := innerStart
		if run2 != nil {
			for {
				if boxesOverlap(run1.minLat, run1.minLon, run1.maxLat, run1.maxLon,
					run2.minLat, run2.minLon, run2.maxLat, run2.maxLon) {
					if c, a, b, d, e, ok := scanRunPair(run1, run2, selfNormalize); ok {
						return a, b, d, e, c, true
					}
				}
				run2 = run2.Next
				if run2 == innerStart {
					break
				}
			}
		}
		run1 = run1.Next
		if run1 == outerSkip {
			break
		}
	}
	return nil, nil, nil, nil, 0, false
}

// scanRunPair runs testIntersectionXY over every edge pair in two
// (bounding-box-overlapping) skip runs.
func scanRunPair(run1, run2 *SkipPosition, selfNormalize bool) (intersectionCode, *Position, *Position, *Position, *Position, bool) {
	end1 := run1.Next.Point
	for p1 := run1.Point; ; p1 = p1.Next {
		p2 := p1.Next
		end2 := run2.Next.Point
		for p3 := run2.Point; ; p3 = p3.Next {
			p4 := p3.Next
			if selfNormalize && sharesVertex(p1, p2, p3, p4) {
				goto nextInner
			}
			if code := testIntersectionXY(p1.LatLon(), p2.LatLon(), p3.LatLon(), p4.LatLon()); code != noIntersection {
				return code, p1, p2, p3, p4, true
			}
		nextInner:
			if p3.Next == end2 || p3 == end2 {
				break
			}
		}
		if p1.Next == end1 || p1 == end1 {
			break
		}
	}
	return 0, nil, nil, nil, nil, false
}

func sharesVertex(p1, p2, p3, p4 *Position) bool {
	return p1 == p3 || p1 == p4 || p2 == p3 || p2 == p4
}

// spliceMerge splices the four polygon edges (p->q) and (r->s) into
// (p->s) and (r->q) for the merge case of spec.md §4.F, joining the two
// polygons into one.
func spliceMerge(p, q, r, s *Position) {
	p.Next = s
	s.Prev = p
	r.Next = q
	q.Prev = r
}

// spliceSelf splices a self-intersecting polygon at the crossing (p,q) x
// (r,s) into a new closed sub-region and returns its entry point, per
// spec.md §4.F's self-normalize case.
func spliceSelf(p, q, r, s *Position) *Position {
	// The sub-region runs q -> ... -> r, closed by r->q.
	sub := q
	r.Next = q
	q.Prev = r
	// Re-stitch the outer polygon to skip the excised run: p -> s.
	p.Next = s
	s.Prev = p
	return sub
}

// signedArea returns +1 or -1 for the polygon's orientation (shoelace
// formula sign), the "direction" convention of spec.md §3.
func signedArea(p *Position) int {
	var sum float64
	p.Each(func(a *Position) {
		b := a.Next
		sum += a.Lon*b.Lat - b.Lon*a.Lat
	})
	if sum >= 0 {
		return 1
	}
	return -1
}

// endpointVictim picks which vertex RESOLVE_REMOVAL deletes for an
// endpoint-on-edge code, per spec.md §4.F / §7: the endpoint that lies on
// the other segment.
func endpointVictim(p, q, r, s *Position, code intersectionCode) *Position {
	switch code {
	case secondEndOnFirst:
		return s
	case secondStartOnFirst:
		return r
	case firstEndOnSecond:
		return q
	case firstStartOnSecond:
		return p
	default:
		return q
	}
}

// routeOwning returns whichever of r1/r2 owns victim, used to know which
// skip-list to rebuild after RESOLVE_REMOVAL.
func routeOwning(r1, r2 *IsoRoute, victim *Position) *IsoRoute {
	found := false
	r1.Polygon().Each(func(p *Position) {
		if p == victim {
			found = true
		}
	})
	if found {
		return r1
	}
	return r2
}

// Merge runs the bounds test, outer selection and Normalize for two
// distinct routes, then (if Normalize found no intersections) tests full
// containment: if r2 is completely inside r1 and inverted regions are
// enabled, r2 becomes a hole of r1; otherwise, without inverted regions,
// r2 is discarded, per spec.md §4.F.
func Merge(r1, r2 *IsoRoute, opts NormalizeOptions) []*IsoRoute {
	minLat1, minLon1, maxLat1, maxLon1 := r1.BoundingBox()
	minLat2, minLon2, maxLat2, maxLon2 := r2.BoundingBox()
	if !boxesOverlap(minLat1, minLon1, maxLat1, maxLon1, minLat2, minLon2, maxLat2, maxLon2) {
		return []*IsoRoute{r1, r2}
	}
	result := Normalize(r1, r2, opts)
	if len(result) == 2 {
		outer, inner := result[0], result[1]
		if inner.CompletelyContained(outer) {
			if opts.InvertedRegions {
				foldHole(outer, inner)
				return []*IsoRoute{outer}
			}
			return []*IsoRoute{outer}
		}
		if outer.CompletelyContained(inner) {
			if opts.InvertedRegions {
				foldHole(inner, outer)
				return []*IsoRoute{inner}
			}
			return []*IsoRoute{inner}
		}
	}
	return result
}

// foldHole folds inner into outer as a hole, flipping inner's direction when
// it equals outer's. inner's pre-existing children are moved up to outer as
// further children with their directions unchanged; they are not merged
// against inner, against each other or against outer's existing children.
func foldHole(outer, inner *IsoRoute) {
	if inner.Direction == outer.Direction {
		inner.Direction = -outer.Direction
	}
	inner.Parent = outer
	outer.Children = append(outer.Children, inner)
	pending := append([]*IsoRoute{}, inner.Children...)
	inner.Children = nil
	for _, c := range pending {
		c.Parent = outer
		outer.Children = append(outer.Children, c)
	}
}

// ReduceList repeatedly merges route pairs from a working list until no
// further merges occur, splicing merge products back into the list, per
// spec.md §4.F / §5. abort, when non-nil, is polled between merges so a
// long reduction can be cancelled without mutating the caller's list
// (spec.md §5 Suspension/cancellation); on abort the (possibly partially
// reduced) list and false are returned.
func ReduceList(routes []*IsoRoute, opts NormalizeOptions, abort func() bool) ([]*IsoRoute, bool) {
	work := append([]*IsoRoute{}, routes...)
	for i := 0; i < len(work); i++ {
		if abort != nil && abort() {
			return work, false
		}
		for j := i + 1; j < len(work); j++ {
			merged := Merge(work[i], work[j], opts)
			if len(merged) == 1 {
				work[i] = merged[0]
				work = append(work[:j], work[j+1:]...)
				j = i // re-scan from the start of the remaining tail
			}
		}
	}
	return work, true
}
