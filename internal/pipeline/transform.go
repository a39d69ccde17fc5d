package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/isd-weather-etl/internal/domain"
)

// ISDTransformer implements Transformer using the domain decoder.
type ISDTransformer struct {
	logger *slog.Logger
}

// NewTransformer creates an ISDTransformer.
func NewTransformer(logger *slog.Logger) *ISDTransformer {
	return &ISDTransformer{logger: logger}
}

func (t *ISDTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.Observation, error) {
	obs, err := domain.ParseRawEvent(raw)
	if err != nil {
		return domain.Observation{}, err
	}

	if obs.Temperature == nil && obs.DewPoint == nil {
		t.logger.Debug("observation without temperature or dew point",
			"id", obs.ID, "offset", raw.Offset)
	}

	return domain.EnrichObservation(obs), nil
}
