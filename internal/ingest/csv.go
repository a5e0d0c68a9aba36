package ingest

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	log "github.com/sirupsen/logrus"

	"cellsim/internal/model"
)

// ErrEmpty is returned for a file without data rows.
var ErrEmpty = errors.New("no boundary conditions")

// Timestamp is a CSV time column. It accepts RFC 3339, "2006-01-02 15:04:05"
// (UTC) and Unix epoch seconds.
type Timestamp struct {
	time.Time
}

var timeLayouts = []string{time.RFC3339, time.DateTime, "2006-01-02T15:04:05"}

func (t *Timestamp) UnmarshalCSV(s string) error {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			t.Time = ts.UTC()
			return nil
		}
	}
	ts, err := parseUnixTimestamp(s)
	if err != nil {
		return err
	}
	t.Time = ts
	return nil
}

func (t Timestamp) MarshalCSV() (string, error) {
	return t.UTC().Format(time.RFC3339), nil
}

// parseUnixTimestamp parses a Unix epoch float (seconds) into a time.Time.
func parseUnixTimestamp(s string) (time.Time, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing %q as timestamp: %w", s, err)
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC(), nil
}

// Row is one line of a boundary condition file.
//
//	time,slp_phh,slp_bsla,slp_bslc,hot_water,temperature,irradiance_global,...
//	2024-01-01T00:00:00Z,62.1,45.0,30.2,0.12,-1.5,0,0,0,-55.3,12.0,3.4
type Row struct {
	Time              Timestamp `csv:"time"`
	SLPPHH            float64   `csv:"slp_phh"`
	SLPBSLa           float64   `csv:"slp_bsla"`
	SLPBSLc           float64   `csv:"slp_bslc"`
	HotWater          float64   `csv:"hot_water"`
	Temperature       float64   `csv:"temperature"`
	GlobalIrradiance  float64   `csv:"irradiance_global"`
	DirectIrradiance  float64   `csv:"irradiance_direct"`
	DiffuseIrradiance float64   `csv:"irradiance_diffuse"`
	SolarElevation    float64   `csv:"sun_elevation"`
	SolarAzimuth      float64   `csv:"sun_azimuth"`
	WindSpeed         float64   `csv:"wind_speed"`
}

func (r Row) condition() model.BoundaryCondition {
	return model.BoundaryCondition{
		Time:               r.Time.Time,
		SLP:                model.SLP{r.SLPPHH, r.SLPBSLa, r.SLPBSLc},
		HotWater:           r.HotWater,
		AmbientTemperature: r.Temperature,
		GlobalIrradiance:   r.GlobalIrradiance,
		DirectIrradiance:   r.DirectIrradiance,
		DiffuseIrradiance:  r.DiffuseIrradiance,
		SolarElevation:     r.SolarElevation,
		SolarAzimuth:       r.SolarAzimuth,
		WindSpeed:          r.WindSpeed,
	}
}

// CSVParser parses boundary condition CSV files with a header line.
// Columns may come in any order; missing columns read as zero.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader) ([]model.BoundaryCondition, error) {
	var rows []*Row
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("reading boundary conditions: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrEmpty
	}

	conds := make([]model.BoundaryCondition, 0, len(rows))
	for i, row := range rows {
		c := row.condition()
		if c.Time.IsZero() {
			return nil, fmt.Errorf("line %d: missing time", i+2)
		}
		if n := len(conds); n > 0 && !c.Time.After(conds[n-1].Time) {
			log.Warnf("line %d: time %s not after previous row", i+2, c.Time.Format(time.RFC3339))
		}
		conds = append(conds, c)
	}
	return conds, nil
}

// ReadFile parses the boundary condition file at path.
func ReadFile(path string) ([]model.BoundaryCondition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	conds, err := (&CSVParser{}).Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Infof("loaded %d boundary conditions from %s", len(conds), path)
	return conds, nil
}

// Load reads the boundary conditions at path. A directory is read file by
// file, taking every *.csv in name order.
func Load(path string) ([]model.BoundaryCondition, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return ReadFile(path)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("reading input directory: %w", err)
	}
	var conds []model.BoundaryCondition
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
			continue
		}
		part, err := ReadFile(filepath.Join(path, entry.Name()))
		if err != nil {
			return nil, err
		}
		conds = append(conds, part...)
	}
	if len(conds) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmpty)
	}
	return conds, nil
}

// Rows converts conditions back into CSV rows.
func Rows(conds []model.BoundaryCondition) []*Row {
	rows := make([]*Row, len(conds))
	for i, c := range conds {
		rows[i] = &Row{
			Time:              Timestamp{c.Time},
			SLPPHH:            c.SLP[model.PHH],
			SLPBSLa:           c.SLP[model.BSLa],
			SLPBSLc:           c.SLP[model.BSLc],
			HotWater:          c.HotWater,
			Temperature:       c.AmbientTemperature,
			GlobalIrradiance:  c.GlobalIrradiance,
			DirectIrradiance:  c.DirectIrradiance,
			DiffuseIrradiance: c.DiffuseIrradiance,
			SolarElevation:    c.SolarElevation,
			SolarAzimuth:      c.SolarAzimuth,
			WindSpeed:         c.WindSpeed,
		}
	}
	return rows
}
