package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleLine is a synoptic report from Jan Mayen (010010-99999) taken from the
// 2010 archive.
const sampleLine = "0243010010999992010010100004+70933-008667FM-12+0009ENJA V0203201N00671220001CN0030001N9-00711-01011101751" +
	"ADDAA106000091AY121061AY211061GF108991999999999999999999KA1120M-00681MA1101681101571MD1510021+9999MW1211OD139900121999" +
	"REMSYN05401001 46/// /3206 11071 21101 30157 40175 52002 69901 333 21068 91108 91206 91706="

// withColumn replaces the value of a 1-based mandatory column.
func withColumn(t *testing.T, line string, pos int, value string) string {
	t.Helper()
	start := 0
	for i := 0; i < pos-1; i++ {
		start += MandatorySchema.widths[i]
	}
	width := MandatorySchema.widths[pos-1]
	require.Len(t, value, width, "column %d value %q", pos, value)
	return line[:start] + value + line[start+width:]
}

// withTail replaces everything after the mandatory section.
func withTail(tail string) string {
	return sampleLine[:MandatorySchema.Width()] + tail
}

func TestMandatorySchema(t *testing.T) {
	assert.Equal(t, 34, MandatorySchema.Columns())
	assert.Equal(t, 105, MandatorySchema.Width())
}

func TestNewSchema_RejectsNonPositiveWidth(t *testing.T) {
	_, err := NewSchema(4, 0, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "column 2")
}

func TestSchemaSplit(t *testing.T) {
	cols, err := MandatorySchema.Split(sampleLine)
	require.NoError(t, err)
	require.Len(t, cols, 34)

	assert.Equal(t, "0243", cols[0])
	assert.Equal(t, "010010", cols[colUSAFID-1])
	assert.Equal(t, "+70933", cols[colLat-1])
	assert.Equal(t, "-008667", cols[colLon-1])
	assert.Equal(t, "FM-12", cols[11])
	assert.Equal(t, "-0071", cols[colTemperature-1])
	assert.Equal(t, "10175", cols[colPressure-1])
	assert.Equal(t, "1", cols[33])
}

func TestDecodeMandatory_SampleLine(t *testing.T) {
	m, err := DecodeMandatory(sampleLine)
	require.NoError(t, err)

	assert.Equal(t, 10010, m.USAFID)
	assert.Equal(t, 99999, m.WBAN)
	assert.Equal(t, 2010, m.Year)
	assert.Equal(t, 1, m.Month)
	assert.Equal(t, 1, m.Day)
	assert.Equal(t, 0, m.Hour)
	assert.Equal(t, 0, m.Minute)
	assert.Equal(t, 70.933, m.Lat)
	assert.Equal(t, -8.667, m.Lon)
	assert.Equal(t, 9, m.Elevation)

	require.NotNil(t, m.WindDirection)
	assert.Equal(t, 320, *m.WindDirection)
	require.NotNil(t, m.WindSpeed)
	assert.Equal(t, 6.7, *m.WindSpeed)
	require.NotNil(t, m.CeilingHeight)
	assert.Equal(t, 722.0, *m.CeilingHeight)
	require.NotNil(t, m.Temperature)
	assert.Equal(t, 266.1, *m.Temperature)
	require.NotNil(t, m.DewPoint)
	assert.Equal(t, -10.1, *m.DewPoint)
	assert.Nil(t, m.Pressure, "raw 10175 is above the pressure cut-off")

	assert.Equal(t, "010010-99999", m.StationKey())
}

func TestDecodeMandatory_Sentinels(t *testing.T) {
	tests := []struct {
		name  string
		pos   int
		value string
		get   func(MandatoryFields) *float64
		want  *float64
	}{
		{"temperature present", colTemperature, "+0150", func(m MandatoryFields) *float64 { return m.Temperature }, float64Ptr(288.2)},
		{"temperature negative", colTemperature, "-0250", func(m MandatoryFields) *float64 { return m.Temperature }, float64Ptr(248.2)},
		{"temperature at threshold", colTemperature, "+0900", func(m MandatoryFields) *float64 { return m.Temperature }, float64Ptr(363.2)},
		{"temperature missing", colTemperature, "+9999", func(m MandatoryFields) *float64 { return m.Temperature }, nil},
		{"temperature above threshold", colTemperature, "+0901", func(m MandatoryFields) *float64 { return m.Temperature }, nil},
		{"wind speed present", colWindSpeed, "0100", func(m MandatoryFields) *float64 { return m.WindSpeed }, float64Ptr(10.0)},
		{"wind speed above threshold", colWindSpeed, "0101", func(m MandatoryFields) *float64 { return m.WindSpeed }, nil},
		{"wind speed missing", colWindSpeed, "9999", func(m MandatoryFields) *float64 { return m.WindSpeed }, nil},
		{"dew point present", colDewPoint, "+0100", func(m MandatoryFields) *float64 { return m.DewPoint }, float64Ptr(10.0)},
		{"dew point above threshold", colDewPoint, "+0101", func(m MandatoryFields) *float64 { return m.DewPoint }, nil},
		{"dew point missing", colDewPoint, "+9999", func(m MandatoryFields) *float64 { return m.DewPoint }, nil},
		{"pressure present", colPressure, "01013", func(m MandatoryFields) *float64 { return m.Pressure }, float64Ptr(101.3)},
		{"pressure at threshold", colPressure, "02000", func(m MandatoryFields) *float64 { return m.Pressure }, float64Ptr(200.0)},
		{"pressure missing", colPressure, "99999", func(m MandatoryFields) *float64 { return m.Pressure }, nil},
		{"ceiling present", colCeiling, "01200", func(m MandatoryFields) *float64 { return m.CeilingHeight }, float64Ptr(39.0)},
		{"ceiling unlimited", colCeiling, "22000", func(m MandatoryFields) *float64 { return m.CeilingHeight }, float64Ptr(722.0)},
		{"ceiling missing", colCeiling, "99999", func(m MandatoryFields) *float64 { return m.CeilingHeight }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := DecodeMandatory(withColumn(t, sampleLine, tt.pos, tt.value))
			require.NoError(t, err)
			assert.Equal(t, tt.want, tt.get(m))
		})
	}
}

func TestDecodeMandatory_WindDirection(t *testing.T) {
	m, err := DecodeMandatory(withColumn(t, sampleLine, colWindDirection, "999"))
	require.NoError(t, err)
	assert.Nil(t, m.WindDirection)

	m, err = DecodeMandatory(withColumn(t, sampleLine, colWindDirection, "000"))
	require.NoError(t, err)
	require.NotNil(t, m.WindDirection)
	assert.Equal(t, 0, *m.WindDirection)
}

func TestDecodeMandatory_Malformed(t *testing.T) {
	t.Run("short line", func(t *testing.T) {
		_, err := DecodeMandatory(sampleLine[:104])
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMalformedRecord)
		assert.Contains(t, err.Error(), "104 characters")
	})

	t.Run("empty line", func(t *testing.T) {
		_, err := DecodeMandatory("")
		assert.ErrorIs(t, err, ErrMalformedRecord)
	})

	t.Run("non-numeric temperature", func(t *testing.T) {
		_, err := DecodeMandatory(withColumn(t, sampleLine, colTemperature, "+01X0"))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMalformedRecord)

		var mre *MalformedRecordError
		require.True(t, errors.As(err, &mre))
		assert.Equal(t, "TEMP", mre.Field)
		assert.Equal(t, colTemperature, mre.Column)
	})

	t.Run("blank station id", func(t *testing.T) {
		_, err := DecodeMandatory(withColumn(t, sampleLine, colUSAFID, "      "))
		var mre *MalformedRecordError
		require.True(t, errors.As(err, &mre))
		assert.Equal(t, "USAFID", mre.Field)
	})

	t.Run("first bad column wins", func(t *testing.T) {
		line := withColumn(t, sampleLine, colWBAN, "9999X")
		line = withColumn(t, line, colPressure, "ABCDE")
		_, err := DecodeMandatory(line)
		var mre *MalformedRecordError
		require.True(t, errors.As(err, &mre))
		assert.Equal(t, "WBAN", mre.Field)
	})

	t.Run("non-retained column is not checked", func(t *testing.T) {
		_, err := DecodeMandatory(withColumn(t, sampleLine, 12, "XXXXX"))
		assert.NoError(t, err)
	})
}

func TestMalformedRecordError_At(t *testing.T) {
	_, err := DecodeMandatory("0000")
	err = LocateError(err, "010010-99999-2010", 7)

	assert.ErrorIs(t, err, ErrMalformedRecord)
	assert.True(t, strings.HasPrefix(err.Error(), "malformed record station 010010-99999-2010 line 7: "))
}

func TestWindSpeedRange(t *testing.T) {
	for raw := 0; raw <= 9999; raw++ {
		v := windSpeed(raw)
		if v == nil {
			assert.Greater(t, raw, maxRawWindSpeed)
			continue
		}
		if *v < 0 || *v > 10 {
			t.Fatalf("raw %d decoded to %v outside [0,10]", raw, *v)
		}
	}
}

func TestTemperatureRange(t *testing.T) {
	for raw := -932; raw <= 9999; raw++ {
		v := temperature(raw)
		if v == nil {
			assert.Greater(t, raw, maxRawTemperature)
			continue
		}
		if *v <= 0 || *v >= MissingValue {
			t.Fatalf("raw %d decoded to %v outside the Kelvin range", raw, *v)
		}
	}
}
