package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservationRow_Sentinels(t *testing.T) {
	obs := Observation{
		ID: "010010-99999-201001010000-0",
		MandatoryFields: MandatoryFields{
			USAFID: 10010, WBAN: 99999, Year: 2010, Month: 1, Day: 1,
			Lat: 70.933, Lon: -8.667, Elevation: 9,
		},
		DerivedFields: DerivedFields{PrecipCode: PrecipCodeNone},
	}

	r := obs.Row()
	assert.Equal(t, MissingWindDirection, r.WindDirection)
	assert.Equal(t, MissingValue, r.WindSpeed)
	assert.Equal(t, MissingValue, r.CeilingHeight)
	assert.Equal(t, MissingValue, r.Temperature)
	assert.Equal(t, MissingValue, r.DewPoint)
	assert.Equal(t, MissingValue, r.Pressure)
	assert.Nil(t, r.PrecipRate)
	assert.Nil(t, r.RelativeHumidity)
	assert.Nil(t, r.SkyCover)

	assert.Equal(t, []string{
		"10010", "99999", "2010", "1", "1", "0", "0",
		"70.933", "-8.667", "9",
		"999", "999.9", "999.9", "999.9", "999.9", "999.9",
		"NA", "NA", "9999",
	}, r.Record())
}

func TestObservationRow_SampleLine(t *testing.T) {
	obs, err := DecodeObservation(sampleLine)
	require.NoError(t, err)

	r := obs.Row()
	require.Len(t, r.Record(), len(ObservationHeader))
	assert.Equal(t, []string{
		"10010", "99999", "2010", "1", "1", "0", "0",
		"70.933", "-8.667", "9",
		"320", "6.7", "722", "266.1", "-10.1", "999.9",
		"0", "79.2", "9999",
	}, r.Record())

	require.NotNil(t, r.SkyCover)
	assert.Equal(t, 8, *r.SkyCover)
}

func TestObservationRow_JSON(t *testing.T) {
	processed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	obs := Observation{
		MandatoryFields: MandatoryFields{USAFID: 10010, WBAN: 99999},
		DerivedFields: DerivedFields{
			PrecipRate: float64Ptr(0.4),
			PrecipCode: PrecipCodeLight,
		},
		ProcessedAt: processed,
	}

	data, err := json.Marshal(obs.Row())
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 0.4, got["precip_rate_mmh"])
	assert.Nil(t, got["relative_humidity"])
	assert.Contains(t, got, "relative_humidity")
	assert.NotContains(t, got, "sky_cover")
	assert.Equal(t, 999.9, got["temperature_k"])
	assert.Equal(t, "2026-01-02T03:04:05Z", got["processed_at"])
}

func TestStationSummaryRecord(t *testing.T) {
	s := StationSummary{USAFID: 10010, WBAN: 99999, Year: 2010, Lat: 70.933, Lon: -8.667, Elevation: 9}
	assert.Equal(t, []string{"10010", "99999", "2010", "70.933", "-8.667", "9"}, s.Record())
	assert.Len(t, s.Record(), len(SummaryHeader))
}
