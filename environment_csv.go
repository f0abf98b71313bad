package routemap

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// gridKey rounds a (lat, lon) pair down to the enclosing cell of a
// fixed-resolution grid, the lookup key every cached grid uses.
type gridKey struct {
	lat, lon int
}

func keyFor(lat, lon, resolution float64) gridKey {
	return gridKey{lat: int(math.Floor(lat / resolution)), lon: int(math.Floor(lon / resolution))}
}

// windRecord is one (direction, speed) wind reading.
type windRecord struct {
	dirDeg, speedKn float64
}

// CSVEnvironment is a flat-file-backed Environment, grounded on config.go's
// spiceCSV loader (the `loadedCSVdata`/`spiceCSVMutex` pattern): CSV wind
// grids are lazily read into memory once per file and cached under a
// mutex, exactly as config.go caches one planet-ephemeris CSV per
// (planet, year). Swell and current are not modeled and always read zero;
// land and cyclone checks delegate to the optional Land/Cyclones funcs and
// report no crossing when those are nil.
type CSVEnvironment struct {
	WindCSVPath string
	Resolution  float64 // grid cell size in degrees

	mu       sync.Mutex
	loaded   bool
	windGrid map[gridKey]windRecord

	atlas   map[gridKey]WindAtlas
	atlasMu sync.Mutex

	Land     func(lat1, lon1, lat2, lon2 float64) bool
	Cyclones func(lat1, lon1, lat2, lon2 float64, t time.Time, days int, windThreshKn float64, since time.Time) int
}

// NewCSVEnvironment returns a CSVEnvironment reading its wind grid from
// windCSVPath lazily, on first Wind() call.
func NewCSVEnvironment(windCSVPath string, resolution float64) *CSVEnvironment {
	return &CSVEnvironment{WindCSVPath: windCSVPath, Resolution: resolution}
}

// Swell is not modeled by the CSV backend; it always reports calm seas.
// Hosts that need swell guards should wrap CSVEnvironment rather than
// extend it (spec.md §4.C, §9 "capability interface" notes).
func (e *CSVEnvironment) Swell(t time.Time, lat, lon float64) float64 { return 0 }

// Wind reads the ground-referenced wind at the grid cell enclosing
// (lat, lon), lazily loading and caching the CSV on first use.
func (e *CSVEnvironment) Wind(t time.Time, lat, lon float64) (WG, VWG float64, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.loaded {
		e.windGrid = make(map[gridKey]windRecord)
		if e.WindCSVPath != "" {
			if err := e.loadWindCSV(); err != nil {
				fmt.Fprintf(os.Stderr, "routemap: %s\n", err)
			}
		}
		e.loaded = true
	}
	rec, found := e.windGrid[keyFor(lat, lon, e.Resolution)]
	if !found {
		return 0, 0, false
	}
	return rec.dirDeg, rec.speedKn, true
}

// loadWindCSV reads "lat,lon,dir_deg,speed_kn" rows, mirroring config.go's
// bufio.Scanner-driven ephemeris CSV loader.
func (e *CSVEnvironment) loadWindCSV() error {
	file, err := os.Open(e.WindCSVPath)
	if err != nil {
		return fmt.Errorf("opening wind grid %s: %w", e.WindCSVPath, err)
	}
	defer file.Close()
	scanner := bufio.NewScanner(file)
	scanner.Split(bufio.ScanLines)
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), ",")
		if len(fields) != 4 {
			continue
		}
		lat, err1 := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
		lon, err2 := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		dir, err3 := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
		speed, err4 := strconv.ParseFloat(strings.TrimSpace(fields[3]), 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			continue
		}
		e.windGrid[keyFor(lat, lon, e.Resolution)] = windRecord{dirDeg: dir, speedKn: speed}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading wind grid %s: %w", e.WindCSVPath, err)
	}
	return nil
}

// Current is not modeled by the CSV backend.
func (e *CSVEnvironment) Current(t time.Time, lat, lon float64) (C, VC float64) { return 0, 0 }

// WindAtlas looks up an eight-octant climatology record in the atlas cache,
// keyed the same way as the wind grid. The CSV backend has no atlas loader:
// the cache is never filled, so every lookup returns ok=false.
func (e *CSVEnvironment) WindAtlas(t time.Time, lat, lon float64) (atlas WindAtlas, ok bool) {
	e.atlasMu.Lock()
	defer e.atlasMu.Unlock()
	if e.atlas == nil {
		return WindAtlas{}, false
	}
	a, found := e.atlas[keyFor(lat, lon, e.Resolution)]
	return a, found
}

// CrossesLand delegates to the injected Land func, defaulting to "never on
// land" when none is configured.
func (e *CSVEnvironment) CrossesLand(lat1, lon1, lat2, lon2 float64) bool {
	if e.Land == nil {
		return false
	}
	return e.Land(lat1, lon1, lat2, lon2)
}

// CycloneCrossings delegates to the injected Cyclones func, defaulting to
// "no tracks" when none is configured.
func (e *CSVEnvironment) CycloneCrossings(lat1, lon1, lat2, lon2 float64, t time.Time, days int, windThreshKn float64, since time.Time) int {
	if e.Cyclones == nil {
		return 0
	}
	return e.Cyclones(lat1, lon1, lat2, lon2, t, days, windThreshKn, since)
}
