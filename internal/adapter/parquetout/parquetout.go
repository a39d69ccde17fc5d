// Package parquetout writes observation tables as Parquet files.
package parquetout

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/couchcryptid/isd-weather-etl/internal/domain"
	parquet "github.com/parquet-go/parquet-go"
)

// Sink writes one Parquet file per station file into a directory.
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

// WriteStation writes observations to <dir>/<key>.parquet.
func (s *Sink) WriteStation(_ context.Context, key string, observations []domain.Observation) error {
	rows := make([]domain.Row, len(observations))
	for i := range observations {
		rows[i] = observations[i].Row()
	}
	path := filepath.Join(s.dir, key+".parquet")
	if err := writeParquet(path, rows); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// writeParquet atomically writes rows to path via a .tmp intermediate file.
func writeParquet(path string, rows []domain.Row) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	w := parquet.NewGenericWriter[domain.Row](f)
	if _, err := w.Write(rows); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := w.Close(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
