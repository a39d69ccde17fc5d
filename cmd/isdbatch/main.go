// Command isdbatch decodes ISD yearly station archives selected from the
// station catalog, writes one observation table per archive and a summary
// table across all stations.
//
// Usage:
//
//	go run ./cmd/isdbatch \
//	  --catalog isd-history.csv \
//	  --data-dir data/raw \
//	  --out data/out \
//	  --bbox=-10,60,10,75 --begin 2010 --end 2012
//
// Every flag defaults to its environment variable (see config.LoadBatch).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/couchcryptid/isd-weather-etl/internal/adapter/archive"
	"github.com/couchcryptid/isd-weather-etl/internal/adapter/catalog"
	"github.com/couchcryptid/isd-weather-etl/internal/adapter/csvout"
	"github.com/couchcryptid/isd-weather-etl/internal/adapter/httpadapter"
	"github.com/couchcryptid/isd-weather-etl/internal/adapter/influxout"
	"github.com/couchcryptid/isd-weather-etl/internal/adapter/parquetout"
	"github.com/couchcryptid/isd-weather-etl/internal/config"
	"github.com/couchcryptid/isd-weather-etl/internal/domain"
	"github.com/couchcryptid/isd-weather-etl/internal/observability"
	"github.com/couchcryptid/isd-weather-etl/internal/pipeline"
	flag "github.com/spf13/pflag"
)

// stationSink receives the observations of one decoded archive.
type stationSink interface {
	WriteStation(ctx context.Context, key string, observations []domain.Observation) error
}

// progress reports readiness on the metrics server once the catalog is loaded.
type progress struct {
	started atomic.Bool
}

func (p *progress) CheckReadiness(_ context.Context) error {
	if !p.started.Load() {
		return errors.New("catalog not loaded yet")
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		slog.Error("isdbatch failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadBatch()
	if err != nil {
		return err
	}

	flag.StringVar(&cfg.CatalogPath, "catalog", cfg.CatalogPath, "station history CSV (isd-history.csv)")
	flag.StringVarP(&cfg.DataDir, "data-dir", "d", cfg.DataDir, "directory of USAF-WBAN-YEAR[.gz] archives")
	flag.StringVarP(&cfg.OutputDir, "out", "o", cfg.OutputDir, "output directory")
	flag.StringVarP(&cfg.OutputFormat, "format", "f", cfg.OutputFormat, "observation table format (csv or parquet)")
	flag.IntVar(&cfg.BeginYear, "begin", cfg.BeginYear, "first year to process (0 = station's first year)")
	flag.IntVar(&cfg.EndYear, "end", cfg.EndYear, "last year to process (0 = station's last year)")
	flag.IntVarP(&cfg.Workers, "workers", "w", cfg.Workers, "decode workers per archive")
	flag.StringVar(&cfg.InfluxAddr, "influx-addr", cfg.InfluxAddr, "InfluxDB HTTP address, empty disables the upload")
	flag.StringVar(&cfg.InfluxDatabase, "influx-db", cfg.InfluxDatabase, "InfluxDB database")
	flag.StringVar(&cfg.InfluxUser, "influx-user", cfg.InfluxUser, "InfluxDB username")
	flag.StringVar(&cfg.InfluxPassword, "influx-password", cfg.InfluxPassword, "InfluxDB password")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	bboxFlag := flag.String("bbox", "", "minLon,minLat,maxLon,maxLat station filter")
	metricsAddr := flag.String("metrics-addr", "", "serve /metrics and health endpoints on this address while running")
	flag.Parse()

	if *bboxFlag != "" {
		if cfg.BBox, err = config.ParseBBox(*bboxFlag); err != nil {
			return err
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := observability.NewBatchLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var prog progress
	if *metricsAddr != "" {
		srv := httpadapter.NewServer(*metricsAddr, &prog, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
		defer srv.Shutdown(context.Background()) //nolint:errcheck // best-effort on exit
	}

	stations, err := catalog.LoadFile(cfg.CatalogPath)
	if err != nil {
		return err
	}
	filter := catalog.Filter{BBox: cfg.BBox, BeginYear: cfg.BeginYear, EndYear: cfg.EndYear}
	selected := filter.Apply(stations)
	logger.Info("catalog loaded",
		"stations", len(stations),
		"selected", len(selected),
		"begin_year", cfg.BeginYear,
		"end_year", cfg.EndYear,
	)
	prog.started.Store(true)

	summarySink, err := csvout.NewSink(cfg.OutputDir)
	if err != nil {
		return err
	}
	sinks, closeSinks, err := openSinks(cfg, summarySink, logger)
	if err != nil {
		return err
	}
	defer closeSinks()

	proc := pipeline.NewStationProcessor(cfg.Workers, logger, metrics)
	start := time.Now()
	var summaries []domain.StationSummary

archives:
	for _, st := range selected {
		for _, year := range st.Years(cfg.BeginYear, cfg.EndYear) {
			if ctx.Err() != nil {
				logger.Warn("interrupted, writing partial summary")
				break archives
			}
			summary, ok, err := processArchive(ctx, cfg.DataDir, st.FileKey(year), proc, sinks, logger)
			if err != nil {
				if ctx.Err() != nil {
					break archives
				}
				return err
			}
			if ok {
				summaries = append(summaries, summary)
			}
		}
	}

	if err := summarySink.WriteSummaries(summaries); err != nil {
		return err
	}
	logger.Info("batch complete",
		"archives", len(summaries),
		"output_dir", cfg.OutputDir,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

// processArchive decodes one archive and hands its observations to every
// sink. Missing or unreadable archives and archives without a decodable line
// are logged and reported as not ok.
func processArchive(ctx context.Context, dataDir, key string, proc *pipeline.StationProcessor, sinks []stationSink, logger *slog.Logger) (domain.StationSummary, bool, error) {
	path, err := archive.Find(dataDir, key)
	if errors.Is(err, archive.ErrNotFound) {
		logger.Debug("archive missing, skipping", "station", key)
		return domain.StationSummary{}, false, nil
	}
	if err != nil {
		return domain.StationSummary{}, false, err
	}

	lines, err := archive.ReadFile(path)
	if err != nil {
		logger.Error("read archive failed, skipping", "station", key, "error", err)
		return domain.StationSummary{}, false, nil
	}

	res, err := proc.Process(ctx, key, lines)
	if errors.Is(err, domain.ErrEmptySequence) {
		logger.Warn("no decodable observations, skipping station", "station", key, "malformed", len(res.Malformed))
		return domain.StationSummary{}, false, nil
	}
	if err != nil {
		return domain.StationSummary{}, false, err
	}

	for _, sink := range sinks {
		if err := sink.WriteStation(ctx, key, res.Observations); err != nil {
			return domain.StationSummary{}, false, err
		}
	}
	logger.Info("station processed",
		"station", key,
		"observations", len(res.Observations),
		"malformed", len(res.Malformed),
	)
	return res.Summary, true, nil
}

func openSinks(cfg *config.BatchConfig, csvSink *csvout.Sink, logger *slog.Logger) ([]stationSink, func(), error) {
	var sinks []stationSink
	switch cfg.OutputFormat {
	case config.FormatParquet:
		ps, err := parquetout.NewSink(cfg.OutputDir)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, ps)
	default:
		sinks = append(sinks, csvSink)
	}

	closeFn := func() {}
	if cfg.InfluxEnabled() {
		is, err := influxout.NewSink(cfg, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("influx sink: %w", err)
		}
		sinks = append(sinks, is)
		closeFn = func() {
			if err := is.Close(); err != nil {
				logger.Error("influx close error", "error", err)
			}
		}
		logger.Info("influx upload enabled", "addr", cfg.InfluxAddr, "database", cfg.InfluxDatabase)
	}
	return sinks, closeFn, nil
}
