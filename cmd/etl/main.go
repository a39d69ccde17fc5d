// Command etl is the streaming ISD decoder. It consumes raw ISD lines from
// KAFKA_SOURCE_TOPIC, decodes each into an observation with derived relative
// humidity and precipitation code, and produces the output rows as JSON to
// KAFKA_SINK_TOPIC keyed by station. Malformed lines are logged, counted and
// skipped. Health, readiness, metrics and POST /decode are served on
// HTTP_ADDR.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/isd-weather-etl/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/isd-weather-etl/internal/adapter/kafka"
	"github.com/couchcryptid/isd-weather-etl/internal/config"
	"github.com/couchcryptid/isd-weather-etl/internal/observability"
	"github.com/couchcryptid/isd-weather-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg, logger); err != nil {
		logger.Error("isd etl failed", "error", err)
		os.Exit(1)
	}
}

// serve runs the decoder until ctx is cancelled, then drains the HTTP server
// and closes both Kafka clients within SHUTDOWN_TIMEOUT.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	ctx, stopDecoder := context.WithCancel(ctx)
	defer stopDecoder()

	lines := kafkaadapter.NewReader(cfg, logger)
	rows := kafkaadapter.NewWriter(cfg, logger)
	decoder := pipeline.New(lines, pipeline.NewTransformer(logger), rows,
		logger, observability.NewMetrics(), cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, decoder, logger)
	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	decoded := make(chan struct{})
	go func() {
		defer close(decoded)
		decoder.Run(ctx) //nolint:errcheck // Run only returns once ctx is done
	}()

	logger.Info("isd etl started",
		"source_topic", cfg.KafkaSourceTopic,
		"sink_topic", cfg.KafkaSinkTopic,
		"group_id", cfg.KafkaGroupID,
		"batch_size", cfg.BatchSize,
	)

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("signal received, draining")
	case runErr = <-serverErr:
		logger.Error("http server stopped", "error", runErr)
		stopDecoder()
	}
	<-decoded

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	err := errors.Join(
		runErr,
		srv.Shutdown(shutdownCtx),
		lines.Close(),
		rows.Close(),
	)
	logger.Info("isd etl stopped")
	return err
}
