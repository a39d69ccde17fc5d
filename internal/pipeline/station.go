package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/couchcryptid/isd-weather-etl/internal/domain"
	"github.com/couchcryptid/isd-weather-etl/internal/observability"
)

// chunkSize is the number of lines handed to a worker at a time.
const chunkSize = 256

// StationResult is the outcome of decoding one station archive.
type StationResult struct {
	Key          string
	Observations []domain.Observation // file order, malformed lines removed
	Summary      domain.StationSummary
	Malformed    []error
}

// StationProcessor decodes the lines of a station archive with a bounded
// number of workers and summarizes the station.
type StationProcessor struct {
	workers int
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewStationProcessor creates a StationProcessor. Fewer than one worker is
// treated as one.
func NewStationProcessor(workers int, logger *slog.Logger, metrics *observability.Metrics) *StationProcessor {
	if workers < 1 {
		workers = 1
	}
	return &StationProcessor{
		workers: workers,
		logger:  logger,
		metrics: metrics,
	}
}

type decodedLine struct {
	obs   domain.Observation
	err   error
	blank bool
}

// Process decodes lines and returns the observations in file order. lines[i]
// is line i+1 of the station file. Blank lines are skipped silently; malformed
// lines are logged with their station key and line number, then skipped. A station with no decodable line returns domain.ErrEmptySequence
// alongside the partial result.
func (p *StationProcessor) Process(ctx context.Context, key string, lines []string) (StationResult, error) {
	start := time.Now()
	decoded := make([]decodedLine, len(lines))

	chunks := make(chan int)
	var wg sync.WaitGroup
	for range p.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for begin := range chunks {
				end := min(begin+chunkSize, len(lines))
				for i := begin; i < end; i++ {
					if strings.TrimSpace(lines[i]) == "" {
						decoded[i] = decodedLine{blank: true}
						continue
					}
					obs, err := domain.DecodeObservation(lines[i])
					if err != nil {
						err = domain.LocateError(err, key, i+1)
					}
					decoded[i] = decodedLine{obs: obs, err: err}
				}
			}
		}()
	}

feed:
	for begin := 0; begin < len(lines); begin += chunkSize {
		select {
		case chunks <- begin:
		case <-ctx.Done():
			break feed
		}
	}
	close(chunks)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return StationResult{}, err
	}

	res := StationResult{
		Key:          key,
		Observations: make([]domain.Observation, 0, len(lines)),
	}
	for _, d := range decoded {
		if d.blank {
			continue
		}
		if d.err != nil {
			p.logger.Warn("malformed record, skipping line", "error", d.err, "station", key)
			p.metrics.MalformedRecords.Inc()
			res.Malformed = append(res.Malformed, d.err)
			continue
		}
		res.Observations = append(res.Observations, domain.EnrichObservation(d.obs))
	}

	p.metrics.LinesConsumed.Add(float64(len(lines)))
	p.metrics.StationDecodeDuration.Observe(time.Since(start).Seconds())

	summary, err := domain.Summarize(res.Observations)
	if err != nil {
		p.metrics.EmptyStations.Inc()
		return res, fmt.Errorf("station %s: %w", key, err)
	}
	res.Summary = summary
	p.metrics.StationsSummarized.Inc()

	p.logger.Debug("station decoded",
		"station", key,
		"lines", len(lines),
		"observations", len(res.Observations),
		"malformed", len(res.Malformed),
		"duration", time.Since(start),
	)
	return res, nil
}
