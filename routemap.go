package routemap

import (
	"sync"
	"time"

	kitlog "github.com/go-kit/kit/log"
)

// RouteMap drives the full isochron growth sequence for one origin/
// destination pair, exactly as the teacher's Mission drives an orbital
// propagation (mission.go): a mutex guards only the snapshot-take and
// result-publish around each step, so a concurrent reader (ClosestPosition,
// Stats) never observes a half-propagated IsoChron while the heavy
// geometry work of propagate.go/normalize.go runs unlocked (spec.md §4.H,
// §5).
type RouteMap struct {
	Config             Config
	Propagator         *Propagator
	StartLat, StartLon float64
	DestLat, DestLon   float64

	mu        sync.Mutex
	isoChrons []*IsoChron

	finished           bool
	reachedDestination bool
	gribFailed         bool
	climatologyFailed  bool
	noData             bool

	logger   kitlog.Logger
	stopChan chan bool
}

// NewRouteMap returns a RouteMap seeded with the single-point starting
// IsoChron, mirroring NewMission's first-point write to histChan
// (mission.go).
func NewRouteMap(cfg Config, pr *Propagator, seed *IsoChron, logger kitlog.Logger) *RouteMap {
	return &RouteMap{
		Config:     cfg,
		Propagator: pr,
		StartLat:   cfg.StartLat, StartLon: cfg.StartLon,
		DestLat: cfg.DestLat, DestLon: cfg.DestLon,
		isoChrons: []*IsoChron{seed},
		logger:    logger,
		stopChan:  make(chan bool, 1),
	}
}

// Run steps the isochron forward until the destination is reached, the
// environment runs out of data, or maxSteps is exhausted, logging status
// after every step exactly as Mission.LogStatus does (mission.go). Run is
// safe to call from its own goroutine; Stop requests early termination.
func (rm *RouteMap) Run(maxSteps int) {
	opts := NormalizeOptions{InvertedRegions: rm.Config.InvertedRegions}
	for step := 0; step < maxSteps; step++ {
		select {
		case <-rm.stopChan:
			rm.logStatus("stopped")
			return
		default:
		}

		rm.mu.Lock()
		current := rm.isoChrons[len(rm.isoChrons)-1]
		rm.mu.Unlock()

		t := current.Date
		daytime := isDaytimeAt(t, rm.StartLat, rm.StartLon)
		next := current.PropagateInto(rm.Propagator, t, rm.Config.StepDuration,
			rm.StartLat, rm.StartLon, rm.DestLat, rm.DestLon, daytime, true, opts)

		rm.mu.Lock()
		if len(next.Routes) == 0 {
			grib, clim := rm.diagnoseDataFailure(current, t)
			rm.gribFailed = grib
			rm.climatologyFailed = clim
			rm.noData = true
			rm.finished = true
			rm.mu.Unlock()
			rm.logStatus("no-data")
			return
		}
		rm.isoChrons = append(rm.isoChrons, next)
		reached := next.Contains(rm.DestLat, rm.DestLon)
		if reached {
			rm.reachedDestination = true
			rm.finished = true
		}
		rm.mu.Unlock()

		rm.logStatus("step")
		if reached {
			return
		}
	}
	rm.mu.Lock()
	rm.finished = true
	rm.mu.Unlock()
	rm.logStatus("max-steps")
}

// Stop requests Run to return at the next step boundary.
func (rm *RouteMap) Stop() {
	select {
	case rm.stopChan <- true:
	default:
	}
}

// diagnoseDataFailure distinguishes a raw grid miss from a climatology-
// fallback miss across the frontier's positions, so Run can set
// gribFailed/climatologyFailed precisely rather than collapsing every
// cause into noData (spec.md §5 status reporting).
func (rm *RouteMap) diagnoseDataFailure(ic *IsoChron, t time.Time) (gribFailed, climatologyFailed bool) {
	for _, r := range ic.Routes {
		var sawGridMiss bool
		r.Polygon().Each(func(p *Position) {
			if _, _, ok := rm.Propagator.Env.Wind(t, p.Lat, p.Lon); !ok {
				sawGridMiss = true
			}
		})
		if sawGridMiss {
			gribFailed = true
			if rm.Propagator.Constraints.AllowDataDeficient {
				r.Polygon().Each(func(p *Position) {
					if _, _, ok := windAtSmoothed(rm.Propagator.Env, t, p, 8); !ok {
						climatologyFailed = true
					}
				})
			}
		}
	}
	return
}

// Finished reports whether Run has stopped (for any reason).
func (rm *RouteMap) Finished() bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.finished
}

// ReachedDestination reports whether the destination was found inside a
// propagated IsoChron.
func (rm *RouteMap) ReachedDestination() bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.reachedDestination
}

// GribFailed reports whether the wind grid had no data at some position on
// the frontier that caused propagation to stop.
func (rm *RouteMap) GribFailed() bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.gribFailed
}

// ClimatologyFailed reports whether the data-deficient climatology
// fallback also had no data to offer when the grid missed.
func (rm *RouteMap) ClimatologyFailed() bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.climatologyFailed
}

// NoData reports whether the frontier stalled because no candidate
// positions survived propagation.
func (rm *RouteMap) NoData() bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.noData
}

func (rm *RouteMap) logStatus(status string) {
	if rm.logger == nil {
		return
	}
	rm.mu.Lock()
	n := len(rm.isoChrons)
	finished, reached := rm.finished, rm.reachedDestination
	rm.mu.Unlock()
	rm.logger.Log("level", "info", "subsys", "routemap", "status", status,
		"isochrons", n, "finished", finished, "reached", reached)
}

// Stats rolls up per-position counters across every IsoChron accumulated so
// far, an enrichment grounded on spec.md §5's "Progress reporting" note and
// the teacher's LogStatus/MissionState reporting pattern.
type Stats struct {
	IsoChronCount  int
	PositionCount  int
	MaxTacks       int
	MaxPropagations int
}

// Stats computes the current Stats snapshot under the route map's lock.
func (rm *RouteMap) Stats() Stats {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	var s Stats
	s.IsoChronCount = len(rm.isoChrons)
	for _, ic := range rm.isoChrons {
		for _, r := range ic.Routes {
			r.Polygon().Each(func(p *Position) {
				s.PositionCount++
				if p.Tacks > s.MaxTacks {
					s.MaxTacks = p.Tacks
				}
				if p.Propagations > s.MaxPropagations {
					s.MaxPropagations = p.Propagations
				}
			})
		}
	}
	return s
}

// ClosestPosition returns the polygon vertex nearest (lat, lon) across
// every accumulated IsoChron, or just the last one if beforeLast is false,
// per spec.md §4.H.
func (rm *RouteMap) ClosestPosition(lat, lon float64, beforeLast bool) (*Position, float64) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if len(rm.isoChrons) == 0 {
		return nil, 0
	}
	if !beforeLast {
		return rm.isoChrons[len(rm.isoChrons)-1].ClosestPosition(lat, lon)
	}
	var best *Position
	bestDist := float64(1 << 62)
	for _, ic := range rm.isoChrons {
		if p, d := ic.ClosestPosition(lat, lon); d < bestDist {
			best, bestDist = p, d
		}
	}
	return best, bestDist
}

// GetIsoChrons returns a snapshot slice of every IsoChron accumulated so
// far. The slice header is copied so the caller's range over it is safe
// even while Run continues to append.
func (rm *RouteMap) GetIsoChrons() []*IsoChron {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	out := make([]*IsoChron, len(rm.isoChrons))
	copy(out, rm.isoChrons)
	return out
}

// EndDate returns the interpolated arrival time at the destination, or the
// zero time if the destination was never reached (spec.md §4.G).
func (rm *RouteMap) EndDate() time.Time {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if !rm.reachedDestination || len(rm.isoChrons) < 2 {
		return time.Time{}
	}
	for i := 1; i < len(rm.isoChrons); i++ {
		if rm.isoChrons[i].Contains(rm.DestLat, rm.DestLon) {
			return rm.isoChrons[i-1].EndDate(rm.isoChrons[i], rm.DestLat, rm.DestLon)
		}
	}
	return rm.isoChrons[len(rm.isoChrons)-1].Date
}

// isDaytimeAt is a coarse local-hour daytime test (06:00-18:00 local solar
// time, approximated from longitude) used to gate daytime-only sail plans
// (spec.md §4.B, §4.E).
func isDaytimeAt(t time.Time, lat, lon float64) bool {
	offsetHours := lon / 15
	localHour := t.UTC().Add(time.Duration(offsetHours*3600) * time.Second).Hour()
	return localHour >= 6 && localHour < 18
}
