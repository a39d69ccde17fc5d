package domain

import (
	"context"
	"time"
)

// RawEvent is one unprocessed ISD line as delivered by a source, together
// with where it came from.
type RawEvent struct {
	Key       []byte // station file key, e.g. "010010-99999-2010"
	Value     []byte // the raw line
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// MandatoryFields holds the retained columns of the mandatory data section.
// Nil pointers are values the station did not report.
type MandatoryFields struct {
	USAFID    int
	WBAN      int
	Year      int
	Month     int
	Day       int
	Hour      int
	Minute    int
	Lat       float64
	Lon       float64
	Elevation int

	WindDirection *int     // degrees
	WindSpeed     *float64 // m/s
	CeilingHeight *float64 // hundreds of feet
	Temperature   *float64 // Kelvin
	DewPoint      *float64 // Celsius
	Pressure      *float64 // hPa
}

// StationKey returns the "USAF-WBAN" identity used to name station files.
func (m MandatoryFields) StationKey() string {
	return FormatStationKey(m.USAFID, m.WBAN)
}

// Time returns the observation time in UTC.
func (m MandatoryFields) Time() time.Time {
	return time.Date(m.Year, time.Month(m.Month), m.Day, m.Hour, m.Minute, 0, 0, time.UTC)
}

// AdditionalGroup is a decoded group from the additional data section.
// The concrete type is either SkyCover or Precipitation.
type AdditionalGroup interface {
	Tag() string
	additionalGroup()
}

// SkyCover is the total coverage code of a GF1 group, in oktas (99 = missing).
type SkyCover struct {
	Coverage int
}

func (SkyCover) Tag() string      { return tagSkyCover }
func (SkyCover) additionalGroup() {}

// Precipitation is the liquid precipitation reported by an AA1 group.
type Precipitation struct {
	PeriodHours int
	DepthMM     float64
}

func (Precipitation) Tag() string      { return tagPrecipitation }
func (Precipitation) additionalGroup() {}

// DerivedFields are computed from the mandatory fields and groups of one line.
type DerivedFields struct {
	RelativeHumidity *float64 // percent
	PrecipRate       *float64 // mm/hr
	PrecipCode       int
}

// Observation is one fully decoded and derived ISD line.
type Observation struct {
	ID string
	MandatoryFields
	DerivedFields
	Groups      []AdditionalGroup
	ProcessedAt time.Time
}

// SkyCoverage returns the coverage of the first GF1 group on the line.
func (o Observation) SkyCoverage() (int, bool) {
	for _, g := range o.Groups {
		if sc, ok := g.(SkyCover); ok {
			return sc.Coverage, true
		}
	}
	return 0, false
}

// StationSummary is the identity and location of a station taken from its
// first observation.
type StationSummary struct {
	USAFID    int
	WBAN      int
	Year      int
	Lat       float64
	Lon       float64
	Elevation int
}
