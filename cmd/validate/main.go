// Command validate checks the CSV output of isdbatch against the archives it
// was built from. It re-decodes every archive, compares row counts and
// values, checks every column against its value domain, and cross-checks the
// station summary table.
//
// Usage:
//
//	go run ./cmd/validate --data-dir data/raw --out data/out
package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/couchcryptid/isd-weather-etl/internal/adapter/archive"
	"github.com/couchcryptid/isd-weather-etl/internal/adapter/csvout"
	"github.com/couchcryptid/isd-weather-etl/internal/domain"
	flag "github.com/spf13/pflag"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// table is a loaded station CSV.
type table struct {
	key    string
	header []string
	rows   [][]string
}

func main() {
	dataDir := flag.String("data-dir", "data/raw", "directory containing the ISD archives")
	outDir := flag.String("out", "data/out", "directory containing isdbatch CSV output")
	maxErrors := flag.Int("max-errors", 20, "errors to print per phase")
	flag.Parse()

	os.Exit(run(*dataDir, *outDir, *maxErrors))
}

func run(dataDir, outDir string, maxErrors int) int {
	fmt.Println("=== ISD Output Integrity Validation ===")
	fmt.Println()

	tables, err := loadTables(outDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load station tables: %v\n", err)
		return 1
	}
	if len(tables) == 0 {
		fmt.Fprintf(os.Stderr, "FATAL: no station tables in %s\n", outDir)
		return 1
	}

	summary, err := loadCSV(filepath.Join(outDir, csvout.SummaryFile))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load summary: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateSourceParity(dataDir, tables),
		validateValueDomains(tables),
		validateSummary(summary, tables),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	rows := 0
	for _, t := range tables {
		rows += len(t.rows)
	}
	fmt.Println()
	fmt.Printf("Records: %d station files, %d observation rows, %d summary rows\n", len(tables), rows, len(summary.rows))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			if i == maxErrors {
				fmt.Printf("  ... %d more\n", len(p.errors)-maxErrors)
				break
			}
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

func loadTables(dir string) ([]table, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, err
	}
	var tables []table
	for _, path := range paths {
		if filepath.Base(path) == csvout.SummaryFile {
			continue
		}
		t, err := loadCSV(path)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, nil
}

func loadCSV(path string) (table, error) {
	f, err := os.Open(path)
	if err != nil {
		return table{}, err
	}
	defer f.Close()

	all, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return table{}, fmt.Errorf("%s: %w", path, err)
	}
	if len(all) == 0 {
		return table{}, fmt.Errorf("%s: no header", path)
	}
	return table{
		key:    strings.TrimSuffix(filepath.Base(path), ".csv"),
		header: all[0],
		rows:   all[1:],
	}, nil
}

// ── Phase 1: Source Parity ──
// Re-decodes each archive and compares the result with the written rows.

func validateSourceParity(dataDir string, tables []table) *phase {
	p := &phase{name: "Phase 1: Source Parity (archive vs CSV)"}

	for _, t := range tables {
		if !slices.Equal(t.header, domain.ObservationHeader) {
			p.errorf("%s: header %v", t.key, t.header)
			continue
		}

		path, err := archive.Find(dataDir, t.key)
		if err != nil {
			p.errorf("%s: %v", t.key, err)
			continue
		}
		lines, err := archive.ReadFile(path)
		if err != nil {
			p.errorf("%s: %v", t.key, err)
			continue
		}

		var want [][]string
		for _, line := range lines {
			obs, err := domain.DecodeObservation(line)
			if err != nil {
				continue // malformed lines are skipped by isdbatch too
			}
			want = append(want, obs.Row().Record())
		}

		if len(want) != len(t.rows) {
			p.errorf("%s: archive decodes to %d rows, CSV has %d", t.key, len(want), len(t.rows))
			continue
		}
		for i := range want {
			if !slices.Equal(want[i], t.rows[i]) {
				p.errorf("%s line %d: expected %v, got %v", t.key, i+2, want[i], t.rows[i])
			}
		}
	}
	return p
}

// ── Phase 2: Value Domains ──
// Checks every value against the range its column can take.

var precipCodes = map[string]bool{
	"9999": true, "1": true, "2": true, "3": true, "19": true, "20": true, "21": true,
}

func validateValueDomains(tables []table) *phase {
	p := &phase{name: "Phase 2: Value Domains"}

	col := make(map[string]int, len(domain.ObservationHeader))
	for i, h := range domain.ObservationHeader {
		col[h] = i
	}

	for _, t := range tables {
		for i, row := range t.rows {
			if len(row) != len(domain.ObservationHeader) {
				continue // reported by phase 1
			}
			pf := func(format string, args ...any) {
				p.errorf("%s line %d: "+format, append([]any{t.key, i + 2}, args...)...)
			}
			get := func(name string) string { return row[col[name]] }

			checkRange(pf, "WIND.DIR", get("WIND.DIR"), 0, 360, "999")
			checkRange(pf, "WIND.SPD", get("WIND.SPD"), 0, 10, "999.9")
			checkRange(pf, "CEIL.HGT", get("CEIL.HGT"), 0, 3300, "999.9")
			checkRange(pf, "TEMP", get("TEMP"), 172.2, 363.2, "999.9")
			checkRange(pf, "DEW.POINT", get("DEW.POINT"), -100, 10, "999.9")
			checkRange(pf, "ATM.PRES", get("ATM.PRES"), 0, 200, "999.9")
			checkHumidity(pf, get("RH"), get("TEMP"), get("DEW.POINT"))
			checkRange(pf, "PRECIP.RATE", get("PRECIP.RATE"), 0, 1000, "NA")

			code := get("PRECIP.CODE")
			if !precipCodes[code] {
				pf("PRECIP.CODE %q not in {9999, 1, 2, 3, 19, 20, 21}", code)
			}
			if rate := get("PRECIP.RATE"); (rate == "NA" || rate == "0") && code != "9999" {
				pf("PRECIP.RATE %s but PRECIP.CODE %s", rate, code)
			}
			if code == "9999" && get("PRECIP.RATE") != "NA" && get("PRECIP.RATE") != "0" {
				pf("PRECIP.RATE %s but PRECIP.CODE 9999", get("PRECIP.RATE"))
			}
		}
	}
	return p
}

func checkRange(pf func(string, ...any), name, value string, lo, hi float64, sentinel string) {
	if value == sentinel {
		return
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		pf("%s %q is not a number", name, value)
		return
	}
	if v < lo || v > hi {
		pf("%s %g outside [%g, %g]", name, v, lo, hi)
	}
}

// checkHumidity bounds RH by 100 only when the dew point does not exceed the
// air temperature; supersaturated reports legitimately decode above 100.
func checkHumidity(pf func(string, ...any), rh, temp, dew string) {
	if rh == "NA" {
		if temp != "999.9" && dew != "999.9" {
			pf("RH is NA but TEMP %s and DEW.POINT %s are present", temp, dew)
		}
		return
	}
	v, err := strconv.ParseFloat(rh, 64)
	if err != nil {
		pf("RH %q is not a number", rh)
		return
	}
	t, errT := strconv.ParseFloat(temp, 64)
	d, errD := strconv.ParseFloat(dew, 64)
	switch {
	case errT != nil || errD != nil || temp == "999.9" || dew == "999.9":
		pf("RH %g with TEMP %s and DEW.POINT %s", v, temp, dew)
	case v <= 0:
		pf("RH %g not positive", v)
	case d <= t-273.2 && v > 100:
		pf("RH %g above 100 with DEW.POINT %g not above air temperature", v, d)
	}
}

// ── Phase 3: Summary Consistency ──
// Each station table has exactly one summary row, taken from its first row.

func validateSummary(summary table, tables []table) *phase {
	p := &phase{name: "Phase 3: Summary Consistency"}

	if !slices.Equal(summary.header, domain.SummaryHeader) {
		p.errorf("summary header %v", summary.header)
		return p
	}

	seen := make(map[string]int, len(summary.rows))
	for _, row := range summary.rows {
		usaf, _ := strconv.Atoi(row[0])
		wban, _ := strconv.Atoi(row[1])
		seen[domain.FormatStationKey(usaf, wban)+"-"+row[2]]++
	}

	// Summary columns are the first observation's columns at these positions.
	positions := []int{0, 1, 2, 7, 8, 9}
	for _, t := range tables {
		if len(t.rows) == 0 {
			p.errorf("%s: empty station table", t.key)
			continue
		}
		first := t.rows[0]
		if len(first) != len(domain.ObservationHeader) {
			continue
		}
		want := make([]string, len(positions))
		for i, pos := range positions {
			want[i] = first[pos]
		}
		usaf, _ := strconv.Atoi(want[0])
		wban, _ := strconv.Atoi(want[1])
		key := domain.FormatStationKey(usaf, wban) + "-" + want[2]

		switch n := seen[key]; {
		case n == 0:
			p.errorf("%s: no summary row", t.key)
		case n > 1:
			p.errorf("%s: %d summary rows", t.key, n)
		default:
			if !hasRow(summary.rows, want) {
				p.errorf("%s: summary row does not match first observation %v", t.key, want)
			}
		}
		delete(seen, key)
	}

	for key := range seen {
		p.errorf("%s: summary row without a station table", key)
	}
	return p
}

func hasRow(rows [][]string, want []string) bool {
	return slices.ContainsFunc(rows, func(r []string) bool {
		return slices.Equal(r, want)
	})
}
