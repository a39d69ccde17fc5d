// Package catalog reads the ISD station history file (isd-history.csv) and
// selects the station files to process.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/isd-weather-etl/internal/config"
)

const dateLayout = "20060102"

var requiredColumns = []string{"USAF", "WBAN", "STATION NAME", "CTRY", "STATE", "LAT", "LON", "ELEV(M)", "BEGIN", "END"}

// Station is one row of the station history. Location fields are nil when
// the catalog leaves them blank.
type Station struct {
	USAF      string
	WBAN      string
	Name      string
	Country   string
	State     string
	ICAO      string
	Lat       *float64
	Lon       *float64
	Elevation *float64
	Begin     time.Time
	End       time.Time
}

// Key returns the "USAF-WBAN" identity used in archive file names.
func (s Station) Key() string {
	return s.USAF + "-" + s.WBAN
}

// FileKey returns the yearly archive name without extension.
func (s Station) FileKey(year int) string {
	return fmt.Sprintf("%s-%04d", s.Key(), year)
}

// Years lists the years the station reported that fall in [begin, end]. A
// zero bound is open.
func (s Station) Years(begin, end int) []int {
	first, last := s.Begin.Year(), s.End.Year()
	if begin > 0 && begin > first {
		first = begin
	}
	if end > 0 && end < last {
		last = end
	}
	var years []int
	for y := first; y <= last; y++ {
		years = append(years, y)
	}
	return years
}

// LoadFile reads the catalog at path.
func LoadFile(path string) ([]Station, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses a station history CSV. Columns are located by header name.
func Load(r io.Reader) ([]Station, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read catalog header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	for _, c := range requiredColumns {
		if _, ok := idx[c]; !ok {
			return nil, fmt.Errorf("catalog header: missing column %q", c)
		}
	}

	var stations []Station
	for row := 2; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read catalog row %d: %w", row, err)
		}
		s, err := parseStation(rec, idx)
		if err != nil {
			return nil, fmt.Errorf("catalog row %d: %w", row, err)
		}
		stations = append(stations, s)
	}
	return stations, nil
}

func parseStation(rec []string, idx map[string]int) (Station, error) {
	get := func(col string) string {
		i, ok := idx[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	s := Station{
		USAF:    get("USAF"),
		WBAN:    get("WBAN"),
		Name:    get("STATION NAME"),
		Country: get("CTRY"),
		State:   get("STATE"),
		ICAO:    get("ICAO"),
	}

	var err error
	if s.Lat, err = optionalFloat(get("LAT")); err != nil {
		return Station{}, fmt.Errorf("LAT: %w", err)
	}
	if s.Lon, err = optionalFloat(get("LON")); err != nil {
		return Station{}, fmt.Errorf("LON: %w", err)
	}
	if s.Elevation, err = optionalFloat(get("ELEV(M)")); err != nil {
		return Station{}, fmt.Errorf("ELEV(M): %w", err)
	}
	if s.Begin, err = time.Parse(dateLayout, get("BEGIN")); err != nil {
		return Station{}, fmt.Errorf("BEGIN: %w", err)
	}
	if s.End, err = time.Parse(dateLayout, get("END")); err != nil {
		return Station{}, fmt.Errorf("END: %w", err)
	}
	return s, nil
}

func optionalFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Filter selects stations inside a bounding box that reported in a year
// range.
type Filter struct {
	BBox      *config.BBox // nil accepts any location
	BeginYear int          // 0 is unbounded
	EndYear   int          // 0 is unbounded
}

// Match reports whether s passes the filter. Stations without coordinates
// never match a bounding box.
func (f Filter) Match(s Station) bool {
	if f.BBox != nil {
		if s.Lat == nil || s.Lon == nil || !f.BBox.Contains(*s.Lat, *s.Lon) {
			return false
		}
	}
	if f.BeginYear > 0 && s.End.Year() < f.BeginYear {
		return false
	}
	if f.EndYear > 0 && s.Begin.Year() > f.EndYear {
		return false
	}
	return true
}

// Apply returns the matching stations in catalog order.
func (f Filter) Apply(stations []Station) []Station {
	var out []Station
	for _, s := range stations {
		if f.Match(s) {
			out = append(out, s)
		}
	}
	return out
}
