package domain

import (
	"fmt"
	"math"
	"strings"
)

// Filler for mandatory columns that are not retained by the decoder.
const (
	fillSource      = "4"
	fillReportType  = "FM-15"
	fillCallLetters = "99999"
	fillQCProcess   = "V020"
	fillQuality     = "1"
	fillWindType    = "N"
	fillCeilingDet  = "C"
	fillCAVOK       = "N"
	fillVisibility  = "016093"
	fillVisVariable = "N"
	fillVisQuality  = "9"

	// fillSkyCoverRest completes a GF1 group after its total coverage.
	fillSkyCoverRest = "991999999999999999999"
	// fillPrecipRest completes an AA1 group after its depth.
	fillPrecipRest = "91"
)

// EncodeLine renders mandatory fields and groups as an ISD line. It inverts
// the scaling applied by DecodeMandatory, so decoding the result gives back
// the same fields. Raw ceiling metres are only recovered to within one
// hundred feet since the decoded height is rounded.
func EncodeLine(m MandatoryFields, groups ...AdditionalGroup) string {
	tail := encodeGroups(groups)

	var b strings.Builder
	b.Grow(MandatorySchema.Width() + len(tail))
	fmt.Fprintf(&b, "%04d", len(tail))
	fmt.Fprintf(&b, "%06d%05d", m.USAFID, m.WBAN)
	fmt.Fprintf(&b, "%04d%02d%02d%02d%02d", m.Year, m.Month, m.Day, m.Hour, m.Minute)
	b.WriteString(fillSource)
	fmt.Fprintf(&b, "%+06d%+07d", scale(m.Lat, 1000), scale(m.Lon, 1000))
	b.WriteString(fillReportType)
	fmt.Fprintf(&b, "%+05d", m.Elevation)
	b.WriteString(fillCallLetters)
	b.WriteString(fillQCProcess)

	dir := MissingWindDirection
	if m.WindDirection != nil {
		dir = *m.WindDirection
	}
	fmt.Fprintf(&b, "%03d", dir)
	b.WriteString(fillQuality)
	b.WriteString(fillWindType)
	fmt.Fprintf(&b, "%04d", rawOr(m.WindSpeed, 10, 0, 9999))
	b.WriteString(fillQuality)

	ceiling := missingCeiling
	if m.CeilingHeight != nil {
		ceiling = int(math.Round(*m.CeilingHeight * 100 / feetPerMetre))
	}
	fmt.Fprintf(&b, "%05d", ceiling)
	b.WriteString(fillQuality + fillCeilingDet + fillCAVOK)
	b.WriteString(fillVisibility)
	b.WriteString(fillQuality + fillVisVariable + fillVisQuality)

	fmt.Fprintf(&b, "%+05d", rawOr(m.Temperature, 10, -kelvinOffset, 9999))
	b.WriteString(fillQuality)
	fmt.Fprintf(&b, "%+05d", rawOr(m.DewPoint, 10, 0, 9999))
	b.WriteString(fillQuality)
	fmt.Fprintf(&b, "%05d", rawOr(m.Pressure, 10, 0, 99999))
	b.WriteString(fillQuality)

	b.WriteString(tail)
	return b.String()
}

func encodeGroups(groups []AdditionalGroup) string {
	if len(groups) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("ADD")
	for _, g := range groups {
		switch g := g.(type) {
		case SkyCover:
			fmt.Fprintf(&b, "%s%02d%s", tagSkyCover, g.Coverage, fillSkyCoverRest)
		case Precipitation:
			fmt.Fprintf(&b, "%s%02d%04d%s", tagPrecipitation, g.PeriodHours, scale(g.DepthMM, 10), fillPrecipRest)
		}
	}
	return b.String()
}

// rawOr reverses a descaling: (v + offset) * factor, or missing when v is nil.
func rawOr(v *float64, factor, offset float64, missing int) int {
	if v == nil {
		return missing
	}
	return scale(*v+offset, factor)
}

func scale(v, factor float64) int {
	return int(math.Round(v * factor))
}
