package catalog

import (
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/isd-weather-etl/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalog = `"USAF","WBAN","STATION NAME","CTRY","STATE","ICAO","LAT","LON","ELEV(M)","BEGIN","END"
"010010","99999","JAN MAYEN(NOR-NAVY)","NO","","ENJA","+70.933","-008.667","+0009.0","19310101","20241231"
"722950","23174","LOS ANGELES INTERNATIONAL AIRPORT","US","CA","KLAX","+33.938","-118.389","+0029.6","19440101","20241231"
"999999","00001","NO LOCATION","US","","","","","","20050101","20061231"
"037720","99999","HEATHROW","UK","","EGLL","+51.478","-000.461","+0025.3","19480101","19990630"
`

func TestLoad(t *testing.T) {
	stations, err := Load(strings.NewReader(testCatalog))
	require.NoError(t, err)
	require.Len(t, stations, 4)

	jm := stations[0]
	assert.Equal(t, "010010", jm.USAF)
	assert.Equal(t, "99999", jm.WBAN)
	assert.Equal(t, "JAN MAYEN(NOR-NAVY)", jm.Name)
	assert.Equal(t, "NO", jm.Country)
	assert.Equal(t, "ENJA", jm.ICAO)
	require.NotNil(t, jm.Lat)
	assert.InDelta(t, 70.933, *jm.Lat, 1e-9)
	assert.InDelta(t, -8.667, *jm.Lon, 1e-9)
	assert.InDelta(t, 9.0, *jm.Elevation, 1e-9)
	assert.Equal(t, time.Date(1931, 1, 1, 0, 0, 0, 0, time.UTC), jm.Begin)
	assert.Equal(t, "010010-99999", jm.Key())
	assert.Equal(t, "010010-99999-2010", jm.FileKey(2010))

	assert.Nil(t, stations[2].Lat)
	assert.Nil(t, stations[2].Elevation)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"empty", "", "header"},
		{"missing column", "\"USAF\",\"WBAN\"\n", "missing column"},
		{"bad latitude", strings.Replace(testCatalog, "+70.933", "north", 1), "LAT"},
		{"bad begin", strings.Replace(testCatalog, "19310101", "1931", 1), "BEGIN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestStationYears(t *testing.T) {
	s := Station{
		Begin: time.Date(2005, 6, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2009, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	assert.Equal(t, []int{2005, 2006, 2007, 2008, 2009}, s.Years(0, 0))
	assert.Equal(t, []int{2007, 2008}, s.Years(2007, 2008))
	assert.Equal(t, []int{2005, 2006}, s.Years(1990, 2006))
	assert.Empty(t, s.Years(2010, 2012))
}

func TestFilter(t *testing.T) {
	stations, err := Load(strings.NewReader(testCatalog))
	require.NoError(t, err)

	keys := func(ss []Station) []string {
		var out []string
		for _, s := range ss {
			out = append(out, s.Key())
		}
		return out
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"no filter", Filter{}, []string{"010010-99999", "722950-23174", "999999-00001", "037720-99999"}},
		{"arctic box", Filter{BBox: &config.BBox{MinLon: -10, MinLat: 60, MaxLon: 10, MaxLat: 75}}, []string{"010010-99999"}},
		{"california box", Filter{BBox: &config.BBox{MinLon: -125, MinLat: 32, MaxLon: -114, MaxLat: 42}}, []string{"722950-23174"}},
		{"years after heathrow closed", Filter{BeginYear: 2000}, []string{"010010-99999", "722950-23174", "999999-00001"}},
		{"years before los angeles opened", Filter{EndYear: 1940}, []string{"010010-99999"}},
		{"box and years", Filter{BBox: &config.BBox{MinLon: -180, MinLat: 0, MaxLon: 180, MaxLat: 90}, BeginYear: 2005, EndYear: 2006}, []string{"010010-99999", "722950-23174"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, keys(tt.filter.Apply(stations)))
		})
	}
}
