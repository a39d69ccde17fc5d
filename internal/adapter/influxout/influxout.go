// Package influxout pushes observations to InfluxDB 1.x as points.
package influxout

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/isd-weather-etl/internal/config"
	"github.com/couchcryptid/isd-weather-etl/internal/domain"
	influx "github.com/influxdata/influxdb/client/v2"
)

const (
	measurement = "isd_observation"

	// maxPointsPerWrite keeps write requests well below the server's body
	// size limit.
	maxPointsPerWrite = 5000

	pingTimeout = 2 * time.Second
)

// pointWriter is the part of influx.Client the sink uses.
type pointWriter interface {
	Write(bp influx.BatchPoints) error
}

// Sink writes observations to an InfluxDB database. Values a station did not
// report are omitted from a point rather than written as sentinels.
type Sink struct {
	client   pointWriter
	closer   func() error
	database string
	logger   *slog.Logger
}

// NewSink connects to InfluxDB and checks that it answers.
func NewSink(cfg *config.BatchConfig, logger *slog.Logger) (*Sink, error) {
	c, err := influx.NewHTTPClient(influx.HTTPConfig{
		Addr:     cfg.InfluxAddr,
		Username: cfg.InfluxUser,
		Password: cfg.InfluxPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("influx client: %w", err)
	}
	if _, _, err := c.Ping(pingTimeout); err != nil {
		c.Close()
		return nil, fmt.Errorf("influx ping %s: %w", cfg.InfluxAddr, err)
	}
	return &Sink{client: c, closer: c.Close, database: cfg.InfluxDatabase, logger: logger}, nil
}

// WriteStation writes observations in batches of at most maxPointsPerWrite.
// Observations must be in file order: reports sharing a minute are numbered
// in that order by the "report" tag, so each one lands on its own series.
func (s *Sink) WriteStation(ctx context.Context, key string, observations []domain.Observation) error {
	seq := make(map[time.Time]int)
	for begin := 0; begin < len(observations); begin += maxPointsPerWrite {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(begin+maxPointsPerWrite, len(observations))

		bp, err := influx.NewBatchPoints(influx.BatchPointsConfig{
			Database:  s.database,
			Precision: "s",
		})
		if err != nil {
			return err
		}
		for _, obs := range observations[begin:end] {
			at := obs.Time()
			p, err := toPoint(obs, seq[at])
			seq[at]++
			if err != nil {
				return fmt.Errorf("point for %s: %w", obs.ID, err)
			}
			bp.AddPoint(p)
		}
		if err := s.client.Write(bp); err != nil {
			return fmt.Errorf("influx write %s: %w", key, err)
		}
	}
	s.logger.Debug("observations pushed to influx", "station", key, "points", len(observations))
	return nil
}

func (s *Sink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

// toPoint renders obs as a point. report is the observation's position among
// the station's reports in the same minute; InfluxDB would otherwise keep
// only the last of them.
func toPoint(obs domain.Observation, report int) (*influx.Point, error) {
	tags := map[string]string{
		"station": obs.StationKey(),
		"usaf":    fmt.Sprintf("%06d", obs.USAFID),
		"wban":    fmt.Sprintf("%05d", obs.WBAN),
		"report":  strconv.Itoa(report),
	}
	if domain.IsSnowCode(obs.PrecipCode) {
		tags["precip_phase"] = "snow"
	} else if obs.PrecipCode != domain.PrecipCodeNone {
		tags["precip_phase"] = "rain"
	}

	fields := map[string]interface{}{
		"lat":         obs.Lat,
		"lon":         obs.Lon,
		"elevation_m": obs.Elevation,
		"precip_code": obs.PrecipCode,
	}
	if obs.WindDirection != nil {
		fields["wind_direction_deg"] = *obs.WindDirection
	}
	addOptional(fields, "wind_speed_ms", obs.WindSpeed)
	addOptional(fields, "ceiling_height_hft", obs.CeilingHeight)
	addOptional(fields, "temperature_k", obs.Temperature)
	addOptional(fields, "dew_point_c", obs.DewPoint)
	addOptional(fields, "pressure_hpa", obs.Pressure)
	addOptional(fields, "precip_rate_mmh", obs.PrecipRate)
	addOptional(fields, "relative_humidity", obs.RelativeHumidity)
	if c, ok := obs.SkyCoverage(); ok {
		fields["sky_cover"] = c
	}
	fields["id"] = obs.ID

	return influx.NewPoint(measurement, tags, fields, obs.Time())
}

func addOptional(fields map[string]interface{}, name string, v *float64) {
	if v != nil {
		fields[name] = *v
	}
}
