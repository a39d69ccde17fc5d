package domain

import "fmt"

// Schema is an ordered list of column widths covering the mandatory section.
type Schema struct {
	widths []int
	width  int
}

// NewSchema builds a schema from column widths. Every width must be positive.
func NewSchema(widths ...int) (Schema, error) {
	total := 0
	for i, w := range widths {
		if w <= 0 {
			return Schema{}, fmt.Errorf("schema column %d: width must be positive, got %d", i+1, w)
		}
		total += w
	}
	cp := make([]int, len(widths))
	copy(cp, widths)
	return Schema{widths: cp, width: total}, nil
}

func mustSchema(widths ...int) Schema {
	s, err := NewSchema(widths...)
	if err != nil {
		panic(err)
	}
	return s
}

// MandatorySchema is the column layout of the ISD mandatory data section.
var MandatorySchema = mustSchema(
	4, 6, 5, 4, 2, 2, 2, 2, 1, 6,
	7, 5, 5, 5, 4, 3, 1, 1, 4, 1,
	5, 1, 1, 1, 6, 1, 1, 1, 5, 1,
	5, 1, 5, 1,
)

// Width is the total number of characters the schema covers.
func (s Schema) Width() int { return s.width }

// Columns is the number of columns in the schema.
func (s Schema) Columns() int { return len(s.widths) }

// Split cuts the schema's columns out of line. Characters beyond the schema
// width are ignored.
func (s Schema) Split(line string) ([]string, error) {
	if len(line) < s.width {
		return nil, &MalformedRecordError{
			Reason: fmt.Sprintf("line has %d characters, mandatory section needs %d", len(line), s.width),
		}
	}
	cols := make([]string, len(s.widths))
	pos := 0
	for i, w := range s.widths {
		cols[i] = line[pos : pos+w]
		pos += w
	}
	return cols, nil
}

// Retained mandatory columns, 1-based as in the ISD format documentation.
const (
	colUSAFID        = 2
	colWBAN          = 3
	colYear          = 4
	colMonth         = 5
	colDay           = 6
	colHour          = 7
	colMinute        = 8
	colLat           = 10
	colLon           = 11
	colElevation     = 13
	colWindDirection = 16
	colWindSpeed     = 19
	colCeiling       = 21
	colTemperature   = 29
	colDewPoint      = 31
	colPressure      = 33
)

var columnNames = map[int]string{
	colUSAFID:        "USAFID",
	colWBAN:          "WBAN",
	colYear:          "YR",
	colMonth:         "M",
	colDay:           "D",
	colHour:          "HR",
	colMinute:        "MIN",
	colLat:           "LAT",
	colLon:           "LONG",
	colElevation:     "ELEV",
	colWindDirection: "WIND.DIR",
	colWindSpeed:     "WIND.SPD",
	colCeiling:       "CEIL.HGT",
	colTemperature:   "TEMP",
	colDewPoint:      "DEW.POINT",
	colPressure:      "ATM.PRES",
}
