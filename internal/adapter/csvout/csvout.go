// Package csvout writes observation and station summary tables as CSV.
package csvout

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/couchcryptid/isd-weather-etl/internal/domain"
)

// SummaryFile is the name of the cross-station summary table.
const SummaryFile = "station_summary.csv"

// Sink writes one observation table per station file into a directory.
type Sink struct {
	dir string
}

// NewSink creates the output directory if needed.
func NewSink(dir string) (*Sink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &Sink{dir: dir}, nil
}

// WriteStation writes observations to <dir>/<key>.csv.
func (s *Sink) WriteStation(_ context.Context, key string, observations []domain.Observation) error {
	path := filepath.Join(s.dir, key+".csv")
	return writeAtomic(path, func(w io.Writer) error {
		return WriteObservations(w, observations)
	})
}

// WriteSummaries writes the summary table to <dir>/station_summary.csv.
func (s *Sink) WriteSummaries(summaries []domain.StationSummary) error {
	return writeAtomic(filepath.Join(s.dir, SummaryFile), func(w io.Writer) error {
		return WriteSummaries(w, summaries)
	})
}

// WriteObservations renders observations with domain.ObservationHeader.
func WriteObservations(w io.Writer, observations []domain.Observation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(domain.ObservationHeader); err != nil {
		return err
	}
	for _, obs := range observations {
		if err := cw.Write(obs.Row().Record()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSummaries renders summaries with domain.SummaryHeader.
func WriteSummaries(w io.Writer, summaries []domain.StationSummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(domain.SummaryHeader); err != nil {
		return err
	}
	for _, s := range summaries {
		if err := cw.Write(s.Record()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeAtomic writes path via a .tmp intermediate file.
func writeAtomic(path string, write func(io.Writer) error) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
