package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/isd-weather-etl/internal/domain"
	"github.com/couchcryptid/isd-weather-etl/internal/observability"
)

// BatchExtractor reads up to batchSize raw ISD lines from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer decodes a raw line into an observation.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) (domain.Observation, error)
}

// BatchLoader writes decoded observations to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, observations []domain.Observation) error
}

const (
	minRetryDelay = 200 * time.Millisecond
	maxRetryDelay = 5 * time.Second
)

// Pipeline moves ISD lines from a source to a sink, decoding each one on
// the way. Offsets are committed only once a line is either loaded or known
// to be malformed.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	batchSize   int
	ready       atomic.Bool
}

// New wires the three stages together.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
}

// CheckReadiness reports ready once any observation has reached the sink.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if p.ready.Load() {
		return nil
	}
	return errors.New("pipeline has not loaded any observations yet")
}

// Run loops over batches until ctx is cancelled. Source and sink failures
// are retried with exponential delay; Run itself only returns nil.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	r := retry{delay: minRetryDelay}
	for ctx.Err() == nil {
		if err := p.runBatch(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			p.logger.Error("batch failed, retrying", "error", err, "delay", r.delay)
			if !r.wait(ctx) {
				break
			}
			continue
		}
		r.reset()
	}

	p.logger.Info("pipeline stopping", "reason", ctx.Err())
	return nil
}

// runBatch runs one extract-decode-load cycle.
func (p *Pipeline) runBatch(ctx context.Context) error {
	start := time.Now()

	raws, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		return err
	}
	if len(raws) == 0 {
		return nil
	}
	p.metrics.LinesConsumed.Add(float64(len(raws)))
	p.metrics.BatchSize.Observe(float64(len(raws)))

	observations, decoded := p.decode(ctx, raws)
	if len(observations) == 0 {
		return nil
	}

	if err := p.loader.LoadBatch(ctx, observations); err != nil {
		return err
	}
	p.metrics.ObservationsProduced.Add(float64(len(observations)))
	for _, raw := range decoded {
		p.commit(ctx, raw)
	}

	p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)
	return nil
}

// decode transforms every line of the batch. Malformed lines are logged,
// counted and committed straight away so that a bad line never holds back
// its partition. The returned raws are the ones behind the observations.
func (p *Pipeline) decode(ctx context.Context, raws []domain.RawEvent) ([]domain.Observation, []domain.RawEvent) {
	observations := make([]domain.Observation, 0, len(raws))
	decoded := make([]domain.RawEvent, 0, len(raws))

	for _, raw := range raws {
		obs, err := p.transformer.Transform(ctx, raw)
		if err != nil {
			p.logger.Warn("malformed record, skipping line",
				"error", err,
				"station", string(raw.Key),
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.MalformedRecords.Inc()
			p.commit(ctx, raw)
			continue
		}
		observations = append(observations, obs)
		decoded = append(decoded, raw)
	}
	return observations, decoded
}

func (p *Pipeline) commit(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err, "partition", raw.Partition, "offset", raw.Offset)
	}
}

// retry doubles its delay after every wait, up to maxRetryDelay.
type retry struct {
	delay time.Duration
}

func (r *retry) reset() { r.delay = minRetryDelay }

// wait sleeps for the current delay. It returns false if ctx ends first.
func (r *retry) wait(ctx context.Context) bool {
	t := time.NewTimer(r.delay)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
	}
	r.delay = min(2*r.delay, maxRetryDelay)
	return true
}
