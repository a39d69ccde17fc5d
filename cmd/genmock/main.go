// Command genmock generates a synthetic ISD yearly archive for one station,
// plus an optional one-row station catalog, for local batch runs and tests.
// It decodes every generated line with the domain package and prints stats
// for updating test assertions.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  --station 010010-99999 --year 2010 \
//	  --lat 70.933 --lon -8.667 --elev 9 \
//	  --out data/raw/010010-99999-2010.gz \
//	  --catalog data/isd-history.csv
package main

import (
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/couchcryptid/isd-weather-etl/internal/adapter/archive"
	"github.com/couchcryptid/isd-weather-etl/internal/domain"
	flag "github.com/spf13/pflag"
)

type options struct {
	station        string
	year           int
	lat, lon       float64
	elev           int
	interval       time.Duration
	seed           uint64
	malformedEvery int
	out            string
	catalog        string
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	var o options
	flag.StringVarP(&o.station, "station", "s", "010010-99999", "station key USAF-WBAN")
	flag.IntVarP(&o.year, "year", "y", 2010, "year to generate")
	flag.Float64Var(&o.lat, "lat", 70.933, "station latitude")
	flag.Float64Var(&o.lon, "lon", -8.667, "station longitude")
	flag.IntVar(&o.elev, "elev", 9, "station elevation in metres")
	flag.DurationVar(&o.interval, "interval", time.Hour, "time between reports")
	flag.Uint64Var(&o.seed, "seed", 1, "random seed")
	flag.IntVar(&o.malformedEvery, "malformed-every", 0, "truncate every Nth line (0 = never)")
	flag.StringVarP(&o.out, "out", "o", "", "output archive path, .gz compresses (default data/raw/<station>-<year>.gz)")
	flag.StringVar(&o.catalog, "catalog", "", "also write a one-row station catalog to this path")
	flag.Parse()

	usaf, wban, _, err := domain.ParseStationKey(o.station)
	if err != nil {
		return err
	}
	if o.interval < time.Minute {
		return fmt.Errorf("interval %s: must be at least a minute", o.interval)
	}
	if o.out == "" {
		o.out = filepath.Join("data", "raw", fmt.Sprintf("%s-%04d.gz", o.station, o.year))
	}

	g := generator{
		rng:  rand.New(rand.NewPCG(o.seed, uint64(o.year))),
		lat:  o.lat,
		base: domain.MandatoryFields{USAFID: usaf, WBAN: wban, Lat: o.lat, Lon: o.lon, Elevation: o.elev},
	}
	lines := g.year(o.year, o.interval)
	if o.malformedEvery > 0 {
		for i := o.malformedEvery - 1; i < len(lines); i += o.malformedEvery {
			lines[i] = lines[i][:80]
		}
	}

	if err := os.MkdirAll(filepath.Dir(o.out), 0o755); err != nil {
		return err
	}
	if err := archive.WriteFile(o.out, lines); err != nil {
		return fmt.Errorf("writing archive: %w", err)
	}
	log.Printf("wrote %d lines: %s", len(lines), o.out)

	if o.catalog != "" {
		if err := writeCatalog(o.catalog, o); err != nil {
			return fmt.Errorf("writing catalog: %w", err)
		}
		log.Printf("wrote catalog: %s", o.catalog)
	}

	printStats(lines)
	return nil
}

// generator produces plausible reports: a seasonal and diurnal temperature
// cycle, dew points below the temperature, occasional missing values, and
// precipitation and sky cover groups at synoptic hours.
type generator struct {
	rng  *rand.Rand
	lat  float64
	base domain.MandatoryFields
}

func (g *generator) year(year int, interval time.Duration) []string {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	var lines []string
	for t := start; t.Before(end); t = t.Add(interval) {
		lines = append(lines, g.line(t))
	}
	return lines
}

func (g *generator) line(t time.Time) string {
	m := g.base
	m.Year, m.Month, m.Day = t.Year(), int(t.Month()), t.Day()
	m.Hour, m.Minute = t.Hour(), t.Minute()

	// Cooler and more seasonal towards the poles.
	mean := 28 - 0.5*math.Abs(g.lat)
	amp := 2 + 0.25*math.Abs(g.lat)
	season := -math.Cos(2 * math.Pi * float64(t.YearDay()-15) / 365)
	if g.lat < 0 {
		season = -season
	}
	diurnal := -math.Cos(2 * math.Pi * float64(t.Hour()-3) / 24)
	tempC := mean + amp*season + 3*diurnal + g.rng.NormFloat64()
	dewC := tempC - 1 - 4*g.rng.Float64()

	m.Temperature = g.maybe(tenths(tempC + 273.2))
	m.DewPoint = g.maybe(tenths(dewC))
	m.WindSpeed = g.maybe(tenths(math.Abs(g.rng.NormFloat64() * 5)))
	m.Pressure = g.maybe(tenths(1013 + 10*g.rng.NormFloat64()))
	m.CeilingHeight = g.maybe(float64(g.rng.IntN(250)))
	if g.rng.Float64() > 0.05 {
		dir := 10 * g.rng.IntN(37)
		m.WindDirection = &dir
	}

	var groups []domain.AdditionalGroup
	if t.Hour()%6 == 0 && t.Minute() == 0 {
		groups = append(groups, domain.SkyCover{Coverage: g.rng.IntN(9)})
		depth := 0.0
		if g.rng.Float64() < 0.3 {
			depth = tenths(math.Abs(g.rng.NormFloat64() * 15))
		}
		groups = append(groups, domain.Precipitation{PeriodHours: 6, DepthMM: depth})
	}
	return domain.EncodeLine(m, groups...)
}

// maybe drops one value in twenty.
func (g *generator) maybe(v float64) *float64 {
	if g.rng.Float64() < 0.05 {
		return nil
	}
	return &v
}

func tenths(v float64) float64 {
	return math.Round(v*10) / 10
}

func writeCatalog(path string, o options) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	usaf, wban, _, err := domain.ParseStationKey(o.station)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	w.Write([]string{"USAF", "WBAN", "STATION NAME", "CTRY", "STATE", "ICAO", "LAT", "LON", "ELEV(M)", "BEGIN", "END"}) //nolint:errcheck // checked by w.Error
	w.Write([]string{ //nolint:errcheck // checked by w.Error
		fmt.Sprintf("%06d", usaf), fmt.Sprintf("%05d", wban), "SYNTHETIC " + o.station, "", "", "",
		fmt.Sprintf("%+07.3f", o.lat), fmt.Sprintf("%+08.3f", o.lon), fmt.Sprintf("%+07.1f", float64(o.elev)),
		fmt.Sprintf("%04d0101", o.year), fmt.Sprintf("%04d1231", o.year),
	})
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

func printStats(lines []string) {
	var malformed, noTemp, noRH int
	codes := map[int]int{}
	for _, line := range lines {
		obs, err := domain.DecodeObservation(line)
		if err != nil {
			malformed++
			continue
		}
		codes[obs.PrecipCode]++
		if obs.Temperature == nil {
			noTemp++
		}
		if obs.RelativeHumidity == nil {
			noRH++
		}
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total: %d\n", len(lines))
	fmt.Printf("Malformed: %d\n", malformed)
	fmt.Printf("Missing TEMP: %d\n", noTemp)
	fmt.Printf("Undefined RH: %d\n", noRH)

	keys := make([]int, 0, len(codes))
	for k := range codes {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	fmt.Println("PRECIP.CODE:")
	for _, k := range keys {
		fmt.Printf("  %4d: %d\n", k, codes[k])
	}
}
