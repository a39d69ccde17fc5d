package config

import (
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Output formats for the batch tool.
const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "raw-isd-lines"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "isd-observations"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "isd-weather-etl"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}

	return cfg, nil
}

// BBox is a longitude/latitude bounding box in decimal degrees.
type BBox struct {
	MinLon, MinLat, MaxLon, MaxLat float64
}

// Contains reports whether the point lies inside the box, edges included.
func (b BBox) Contains(lat, lon float64) bool {
	return lon >= b.MinLon && lon <= b.MaxLon && lat >= b.MinLat && lat <= b.MaxLat
}

func (b BBox) String() string {
	return fmt.Sprintf("%g,%g,%g,%g", b.MinLon, b.MinLat, b.MaxLon, b.MaxLat)
}

// ParseBBox parses "minLon,minLat,maxLon,maxLat".
func ParseBBox(s string) (*BBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("invalid bbox %q: want minLon,minLat,maxLon,maxLat", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid bbox %q: %w", s, err)
		}
		v[i] = f
	}
	b := &BBox{MinLon: v[0], MinLat: v[1], MaxLon: v[2], MaxLat: v[3]}
	if b.MinLon > b.MaxLon || b.MinLat > b.MaxLat {
		return nil, fmt.Errorf("invalid bbox %q: min exceeds max", s)
	}
	if b.MinLat < -90 || b.MaxLat > 90 || b.MinLon < -180 || b.MaxLon > 180 {
		return nil, fmt.Errorf("invalid bbox %q: out of range", s)
	}
	return b, nil
}

// BatchConfig holds the settings of the archive batch tool.
type BatchConfig struct {
	CatalogPath  string
	DataDir      string
	OutputDir    string
	OutputFormat string
	BBox         *BBox // nil selects every station
	BeginYear    int   // 0 means unbounded
	EndYear      int   // 0 means unbounded
	Workers      int

	InfluxAddr     string // empty disables the InfluxDB sink
	InfluxDatabase string
	InfluxUser     string
	InfluxPassword string

	LogLevel  string
	LogFormat string
}

// InfluxEnabled reports whether observations should be pushed to InfluxDB.
func (c *BatchConfig) InfluxEnabled() bool {
	return c.InfluxAddr != ""
}

// LoadBatch reads batch tool configuration from environment variables. The
// command line may override fields afterwards; call Validate once it has.
func LoadBatch() (*BatchConfig, error) {
	cfg := &BatchConfig{
		CatalogPath:    sharedcfg.EnvOrDefault("ISD_CATALOG_PATH", "isd-history.csv"),
		DataDir:        sharedcfg.EnvOrDefault("ISD_DATA_DIR", "data/raw"),
		OutputDir:      sharedcfg.EnvOrDefault("ISD_OUTPUT_DIR", "data/out"),
		OutputFormat:   sharedcfg.EnvOrDefault("ISD_OUTPUT_FORMAT", FormatCSV),
		InfluxAddr:     sharedcfg.EnvOrDefault("INFLUX_ADDR", ""),
		InfluxDatabase: sharedcfg.EnvOrDefault("INFLUX_DATABASE", "weather"),
		InfluxUser:     sharedcfg.EnvOrDefault("INFLUX_USER", ""),
		InfluxPassword: sharedcfg.EnvOrDefault("INFLUX_PASSWORD", ""),
		LogLevel:       sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:      sharedcfg.EnvOrDefault("LOG_FORMAT", "text"),
	}

	if s := sharedcfg.EnvOrDefault("ISD_BBOX", ""); s != "" {
		bbox, err := ParseBBox(s)
		if err != nil {
			return nil, fmt.Errorf("ISD_BBOX: %w", err)
		}
		cfg.BBox = bbox
	}

	var err error
	if cfg.BeginYear, err = envInt("ISD_BEGIN_YEAR", 0); err != nil {
		return nil, err
	}
	if cfg.EndYear, err = envInt("ISD_END_YEAR", 0); err != nil {
		return nil, err
	}
	if cfg.Workers, err = envInt("ISD_WORKERS", runtime.NumCPU()); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field combinations.
func (c *BatchConfig) Validate() error {
	if c.CatalogPath == "" {
		return errors.New("ISD_CATALOG_PATH is required")
	}
	if c.DataDir == "" {
		return errors.New("ISD_DATA_DIR is required")
	}
	if c.OutputDir == "" {
		return errors.New("ISD_OUTPUT_DIR is required")
	}
	if c.OutputFormat != FormatCSV && c.OutputFormat != FormatParquet {
		return fmt.Errorf("invalid ISD_OUTPUT_FORMAT %q: want %s or %s", c.OutputFormat, FormatCSV, FormatParquet)
	}
	if c.Workers < 1 {
		return errors.New("invalid ISD_WORKERS: must be positive")
	}
	if c.BeginYear < 0 || c.EndYear < 0 {
		return errors.New("invalid ISD_BEGIN_YEAR/ISD_END_YEAR: must not be negative")
	}
	if c.BeginYear > 0 && c.EndYear > 0 && c.BeginYear > c.EndYear {
		return errors.New("invalid ISD_BEGIN_YEAR: after ISD_END_YEAR")
	}
	if c.InfluxEnabled() && c.InfluxDatabase == "" {
		return errors.New("INFLUX_ADDR is set but INFLUX_DATABASE is empty")
	}
	return nil
}

func envInt(key string, def int) (int, error) {
	s := sharedcfg.EnvOrDefault(key, "")
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
