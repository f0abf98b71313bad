package routemap

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// ExportConfig mirrors the teacher's ExportConfig (export.go): which
// formats to write and where.
type ExportConfig struct {
	Filename string
	AsCSV    bool
	AsJSON   bool
}

// IsoChronRecord is one exported (isochron-index, lat, lon, sail-plan,
// tacks) row, the JSON/CSV shape streamed by StreamIsoChrons.
type IsoChronRecord struct {
	Index    int     `json:"index"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	SailPlan SailPlan `json:"sail_plan"`
	Tacks    int     `json:"tacks"`
}

// StreamIsoChrons drains recordChan to CSV and/or JSON files under conf,
// exactly as the teacher's StreamStates drains a MissionState channel
// (export.go): one goroutine owns the channel and the output files for
// the run's lifetime, so callers feed it via `go StreamIsoChrons(...)` the
// same way NewMission starts StreamStates.
func StreamIsoChrons(conf ExportConfig, recordChan <-chan IsoChronRecord) error {
	var csvFile *os.File
	var csvWriter *csv.Writer
	var jsonFile *os.File
	var records []IsoChronRecord

	if conf.AsCSV {
		f, err := os.Create(fmt.Sprintf("%s.csv", conf.Filename))
		if err != nil {
			return fmt.Errorf("routemap: creating CSV export: %w", err)
		}
		csvFile = f
		csvWriter = csv.NewWriter(f)
		csvWriter.Write([]string{"index", "lat", "lon", "sail_plan", "tacks"})
	}
	if conf.AsJSON {
		f, err := os.Create(fmt.Sprintf("%s.json", conf.Filename))
		if err != nil {
			return fmt.Errorf("routemap: creating JSON export: %w", err)
		}
		jsonFile = f
	}

	for rec := range recordChan {
		if csvWriter != nil {
			csvWriter.Write([]string{
				strconv.Itoa(rec.Index),
				strconv.FormatFloat(rec.Lat, 'f', 6, 64),
				strconv.FormatFloat(rec.Lon, 'f', 6, 64),
				strconv.Itoa(int(rec.SailPlan)),
				strconv.Itoa(rec.Tacks),
			})
		}
		if jsonFile != nil {
			records = append(records, rec)
		}
	}

	if csvWriter != nil {
		csvWriter.Flush()
		csvFile.Close()
	}
	if jsonFile != nil {
		defer jsonFile.Close()
		enc := json.NewEncoder(jsonFile)
		enc.SetIndent("", "  ")
		if err := enc.Encode(records); err != nil {
			return fmt.Errorf("routemap: writing JSON export: %w", err)
		}
	}
	return nil
}

// IsoChronRecords flattens an IsoChron's routes into IsoChronRecords for
// StreamIsoChrons, recursing into nested holes per spec.md §4.D.
func IsoChronRecords(index int, ic *IsoChron) []IsoChronRecord {
	var out []IsoChronRecord
	var walk func(r *IsoRoute)
	walk = func(r *IsoRoute) {
		r.Polygon().Each(func(p *Position) {
			out = append(out, IsoChronRecord{Index: index, Lat: p.Lat, Lon: p.Lon, SailPlan: p.SailPlan, Tacks: p.Tacks})
		})
		for _, c := range r.Children {
			walk(c)
		}
	}
	for _, r := range ic.Routes {
		walk(r)
	}
	return out
}
