package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	kitlog "github.com/go-kit/kit/log"
	"github.com/windfall-nav/routemap"
)

// This reads a routing scenario and runs the isochron growth to
// completion, mirroring cmd/mission's flag+viper scenario loading.

const defaultScenario = "~~unset~~"

var (
	scenario  string
	polarPath string
	windCSV   string
	maxSteps  int
)

func init() {
	flag.StringVar(&scenario, "scenario", defaultScenario, "routing scenario TOML file directory (sets ROUTEMAP_CONFIG)")
	flag.StringVar(&polarPath, "polar", "", "CSV polar file (angle,speed,boat_speed rows)")
	flag.StringVar(&windCSV, "wind", "", "CSV wind grid file (lat,lon,dir_deg,speed_kn rows)")
	flag.IntVar(&maxSteps, "max-steps", 200, "maximum propagation steps before giving up")
}

func main() {
	flag.Parse()
	if scenario == defaultScenario {
		log.Fatal("no scenario directory provided")
	}
	os.Setenv("ROUTEMAP_CONFIG", scenario)

	cfg, err := routemap.LoadConfig()
	if err != nil {
		log.Fatalf("could not load scenario: %s", err)
	}

	logger := kitlog.NewLogfmtLogger(os.Stdout)

	env := routemap.NewCSVEnvironment(windCSV, 1.0)
	polar, err := loadPolar(polarPath)
	if err != nil {
		log.Fatalf("could not load polar: %s", err)
	}

	registry := &routemap.PositionRegistry{
		Environments: map[string]routemap.Environment{"default": env},
		Polars:       map[string]*routemap.Polar{"default": polar},
	}
	pr, seed, err := registry.Resolve(cfg, "default", "default")
	if err != nil {
		log.Fatalf("could not resolve scenario: %s", err)
	}

	rm := routemap.NewRouteMap(cfg, pr, seed, logger)
	rm.Run(maxSteps)

	stats := rm.Stats()
	logger.Log("level", "notice", "subsys", "routecalc", "isochrons", stats.IsoChronCount,
		"positions", stats.PositionCount, "max_tacks", stats.MaxTacks)

	if end := rm.EndDate(); !end.IsZero() {
		logger.Log("level", "notice", "subsys", "routecalc", "arrival", end.Format("2006-01-02 15:04:05"))
	} else {
		logger.Log("level", "warning", "subsys", "routecalc", "message", "destination not reached")
	}

	if cfg.AsCSV || cfg.AsJSON {
		exportRoute(cfg, rm)
	}
}

func exportRoute(cfg routemap.Config, rm *routemap.RouteMap) {
	recordChan := make(chan routemap.IsoChronRecord, 1000)
	done := make(chan error, 1)
	go func() {
		done <- routemap.StreamIsoChrons(routemap.ExportConfig{
			Filename: cfg.OutputPath, AsCSV: cfg.AsCSV, AsJSON: cfg.AsJSON,
		}, recordChan)
	}()
	for i, ic := range rm.GetIsoChrons() {
		for _, rec := range routemap.IsoChronRecords(i, ic) {
			recordChan <- rec
		}
	}
	close(recordChan)
	if err := <-done; err != nil {
		log.Printf("[warning] export failed: %s", err)
	}
}

// loadPolar reads a CSV polar file shaped "angle,speed,boat_speed" (one
// sail plan, angle x speed grid) into a routemap.Polar with a single
// sail plan table.
func loadPolar(path string) (*routemap.Polar, error) {
	if path == "" {
		return nil, fmt.Errorf("no polar file provided")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	angleSet := map[float64]bool{}
	speedSet := map[float64]bool{}
	type row struct{ angle, speed, boatSpeed float64 }
	var rows []row
	for _, line := range lines {
		fields := strings.Split(line, ",")
		if len(fields) != 3 {
			continue
		}
		angle, _ := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
		speed, _ := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		boatSpeed, _ := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
		rows = append(rows, row{angle, speed, boatSpeed})
		angleSet[angle] = true
		speedSet[speed] = true
	}
	angles := sortedKeys(angleSet)
	speeds := sortedKeys(speedSet)
	values := make([][]float64, len(angles))
	for i := range values {
		values[i] = make([]float64, len(speeds))
	}
	for _, r := range rows {
		ai := indexOf(angles, r.angle)
		si := indexOf(speeds, r.speed)
		values[ai][si] = r.boatSpeed
	}
	return &routemap.Polar{
		Tables:           []routemap.SpeedTable{{Angles: angles, Speeds: speeds, Values: values}},
		HysteresisMargin: 0.05,
	}, nil
}

func sortedKeys(m map[float64]bool) []float64 {
	out := make([]float64, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

func indexOf(xs []float64, v float64) int {
	for i, x := range xs {
		if x == v {
			return i
		}
	}
	return -1
}
