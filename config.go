package routemap

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config mirrors the teacher's smdConfig/ExportConfig split: the options a
// RouteMap needs to run a single routing computation, read from a TOML
// scenario file via viper (spec.md §6). A zero-valued constraint limit is a
// limit, not "unset": a zero MaxWindKnots, MaxLatitude, MaxSearchAngle or
// MaxUpwindPercentage rejects nearly every candidate. Only StepDuration
// has a default (six hours, applied by LoadConfig).
type Config struct {
	StartLat, StartLon float64
	DestLat, DestLon   float64
	StartDate          time.Time
	StepDuration       time.Duration

	PositiveLongitudes bool
	InvertedRegions    bool

	Constraints Constraints

	OutputPath string
	AsCSV      bool
	AsJSON     bool
}

// PositionRegistry resolves a Config against an Environment and Polar,
// producing the Propagator and seed IsoChron a RouteMap needs to start
// (spec.md §4.H Update). It exists as its own type, distinct from Config,
// because a single registry of named polars/environments can back more
// than one routing Config, mirroring the teacher's `config` package-level
// singleton decoupled from any one Mission.
type PositionRegistry struct {
	Environments map[string]Environment
	Polars       map[string]*Polar
}

// Resolve builds a Propagator and the seed one-point IsoChron for cfg,
// looking up the named environment/polar in the registry.
func (reg *PositionRegistry) Resolve(cfg Config, envName, polarName string) (*Propagator, *IsoChron, error) {
	env, ok := reg.Environments[envName]
	if !ok {
		return nil, nil, fmt.Errorf("routemap: environment %q not registered", envName)
	}
	polar, ok := reg.Polars[polarName]
	if !ok {
		return nil, nil, fmt.Errorf("routemap: polar %q not registered", polarName)
	}
	lon := cfg.StartLon
	if cfg.PositiveLongitudes {
		lon = normalizeDeg360(lon)
	}
	seed := NewPosition(cfg.StartLat, lon)
	route := NewIsoRoute(seed, 1)
	ic := NewIsoChron(cfg.StartDate, []*IsoRoute{route})
	pr := &Propagator{Env: env, Polar: polar, Constraints: cfg.Constraints}
	return pr, ic, nil
}

// LoadConfig reads a routing scenario from the TOML file named by the
// ROUTEMAP_CONFIG environment variable, exactly as the teacher's
// smdConfig reads SMD_CONFIG (config.go), substituting viper's structured
// key lookups for the teacher's flat conf.toml sections.
func LoadConfig() (Config, error) {
	confPath := os.Getenv("ROUTEMAP_CONFIG")
	if confPath == "" {
		return Config{}, fmt.Errorf("routemap: environment variable ROUTEMAP_CONFIG is missing or empty")
	}
	viper.SetConfigName("scenario")
	viper.AddConfigPath(confPath)
	if err := viper.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("routemap: %s/scenario.toml not found: %w", confPath, err)
	}

	cfg := Config{
		StartLat:           viper.GetFloat64("route.start_lat"),
		StartLon:           viper.GetFloat64("route.start_lon"),
		DestLat:            viper.GetFloat64("route.dest_lat"),
		DestLon:            viper.GetFloat64("route.dest_lon"),
		StartDate:          viper.GetTime("route.start_date"),
		StepDuration:       viper.GetDuration("route.step"),
		PositiveLongitudes: viper.GetBool("route.positive_longitudes"),
		InvertedRegions:    viper.GetBool("route.inverted_regions"),
		OutputPath:         viper.GetString("output.path"),
		AsCSV:              viper.GetBool("output.csv"),
		AsJSON:             viper.GetBool("output.json"),
		Constraints: Constraints{
			MaxDivertedCourse:    viper.GetFloat64("constraints.max_diverted_course"),
			MaxSearchAngle:       viper.GetFloat64("constraints.max_search_angle"),
			MaxWindKnots:         viper.GetFloat64("constraints.max_wind_knots"),
			MaxSwellMeters:       viper.GetFloat64("constraints.max_swell_meters"),
			MaxLatitude:          viper.GetFloat64("constraints.max_latitude"),
			MaxTacks:             viper.GetInt("constraints.max_tacks"),
			MaxUpwindPercentage:  viper.GetFloat64("constraints.max_upwind_percentage"),
			TackingTime:          viper.GetDuration("constraints.tacking_time"),
			DetectLand:           viper.GetBool("constraints.detect_land"),
			AvoidCycloneTracks:   viper.GetBool("constraints.avoid_cyclone_tracks"),
			Currents:             viper.GetBool("constraints.currents"),
			AllowDataDeficient:   viper.GetBool("constraints.allow_data_deficient"),
			CycloneDays:          viper.GetInt("constraints.cyclone_days"),
			CycloneWindSpeedKn:   viper.GetFloat64("constraints.cyclone_wind_speed_kn"),
			CycloneClimStartYear: viper.GetInt("constraints.cyclone_clim_start_year"),
		},
	}
	if viper.GetString("constraints.integrator") == "rk4" {
		cfg.Constraints.Integrator = RungeKutta
	} else {
		cfg.Constraints.Integrator = Newton
	}
	switch viper.GetString("constraints.climatology") {
	case "cumulative_map":
		cfg.Constraints.ClimatologyType = ClimatologyCumulativeMap
	case "cumulative_minus_calms":
		cfg.Constraints.ClimatologyType = ClimatologyCumulativeMinusCalms
	default:
		cfg.Constraints.ClimatologyType = ClimatologyOff
	}
	if cfg.StepDuration == 0 {
		cfg.StepDuration = 6 * time.Hour
	}
	return cfg, nil
}
