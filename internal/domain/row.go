package domain

import (
	"strconv"
	"time"
)

// Output sentinels for values a station did not report.
const (
	MissingWindDirection = 999
	MissingValue         = 999.9
)

// notAvailable renders an undefined derived value in CSV output.
const notAvailable = "NA"

// ObservationHeader is the column order of observation tables.
var ObservationHeader = []string{
	"USAFID", "WBAN", "YR", "M", "D", "HR", "MIN",
	"LAT", "LONG", "ELEV",
	"WIND.DIR", "WIND.SPD", "CEIL.HGT", "TEMP", "DEW.POINT", "ATM.PRES",
	"PRECIP.RATE", "RH", "PRECIP.CODE",
}

// SummaryHeader is the column order of the station summary table.
var SummaryHeader = []string{"USAFID", "WBAN", "YR", "LAT", "LONG", "ELEV"}

// Row is an Observation at the output boundary: unreported mandatory values
// are replaced by their literal sentinels. Relative humidity and
// precipitation rate stay nil when undefined.
type Row struct {
	ID               string    `json:"id" parquet:"id"`
	USAFID           int       `json:"usaf_id" parquet:"usaf_id"`
	WBAN             int       `json:"wban" parquet:"wban"`
	Year             int       `json:"year" parquet:"year"`
	Month            int       `json:"month" parquet:"month"`
	Day              int       `json:"day" parquet:"day"`
	Hour             int       `json:"hour" parquet:"hour"`
	Minute           int       `json:"minute" parquet:"minute"`
	Lat              float64   `json:"lat" parquet:"lat"`
	Lon              float64   `json:"lon" parquet:"lon"`
	Elevation        int       `json:"elevation_m" parquet:"elevation_m"`
	WindDirection    int       `json:"wind_direction_deg" parquet:"wind_direction_deg"`
	WindSpeed        float64   `json:"wind_speed_ms" parquet:"wind_speed_ms"`
	CeilingHeight    float64   `json:"ceiling_height_hft" parquet:"ceiling_height_hft"`
	Temperature      float64   `json:"temperature_k" parquet:"temperature_k"`
	DewPoint         float64   `json:"dew_point_c" parquet:"dew_point_c"`
	Pressure         float64   `json:"pressure_hpa" parquet:"pressure_hpa"`
	PrecipRate       *float64  `json:"precip_rate_mmh" parquet:"precip_rate_mmh"`
	RelativeHumidity *float64  `json:"relative_humidity" parquet:"relative_humidity"`
	PrecipCode       int       `json:"precip_code" parquet:"precip_code"`
	SkyCover         *int      `json:"sky_cover,omitempty" parquet:"sky_cover"`
	ProcessedAt      time.Time `json:"processed_at" parquet:"-"`
}

// Row renders the observation for output.
func (o Observation) Row() Row {
	r := Row{
		ID:               o.ID,
		USAFID:           o.USAFID,
		WBAN:             o.WBAN,
		Year:             o.Year,
		Month:            o.Month,
		Day:              o.Day,
		Hour:             o.Hour,
		Minute:           o.Minute,
		Lat:              o.Lat,
		Lon:              o.Lon,
		Elevation:        o.Elevation,
		WindDirection:    MissingWindDirection,
		WindSpeed:        orMissing(o.WindSpeed),
		CeilingHeight:    orMissing(o.CeilingHeight),
		Temperature:      orMissing(o.Temperature),
		DewPoint:         orMissing(o.DewPoint),
		Pressure:         orMissing(o.Pressure),
		PrecipRate:       o.PrecipRate,
		RelativeHumidity: o.RelativeHumidity,
		PrecipCode:       o.PrecipCode,
		ProcessedAt:      o.ProcessedAt,
	}
	if o.WindDirection != nil {
		r.WindDirection = *o.WindDirection
	}
	if c, ok := o.SkyCoverage(); ok {
		r.SkyCover = &c
	}
	return r
}

// Record renders the row in ObservationHeader order.
func (r Row) Record() []string {
	return []string{
		strconv.Itoa(r.USAFID),
		strconv.Itoa(r.WBAN),
		strconv.Itoa(r.Year),
		strconv.Itoa(r.Month),
		strconv.Itoa(r.Day),
		strconv.Itoa(r.Hour),
		strconv.Itoa(r.Minute),
		formatFloat(r.Lat),
		formatFloat(r.Lon),
		strconv.Itoa(r.Elevation),
		strconv.Itoa(r.WindDirection),
		formatFloat(r.WindSpeed),
		formatFloat(r.CeilingHeight),
		formatFloat(r.Temperature),
		formatFloat(r.DewPoint),
		formatFloat(r.Pressure),
		formatOptional(r.PrecipRate),
		formatOptional(r.RelativeHumidity),
		strconv.Itoa(r.PrecipCode),
	}
}

// Record renders the summary in SummaryHeader order.
func (s StationSummary) Record() []string {
	return []string{
		strconv.Itoa(s.USAFID),
		strconv.Itoa(s.WBAN),
		strconv.Itoa(s.Year),
		formatFloat(s.Lat),
		formatFloat(s.Lon),
		strconv.Itoa(s.Elevation),
	}
}

func orMissing(v *float64) float64 {
	if v == nil {
		return MissingValue
	}
	return *v
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return notAvailable
	}
	return formatFloat(*v)
}
