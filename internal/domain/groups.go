package domain

const (
	tagLen = 3

	tagSkyCover      = "GF1"
	tagPrecipitation = "AA1"

	// Full group widths including the tag.
	skyCoverWidth      = 26
	precipitationWidth = 11

	missingPrecipPeriod = 99
	missingPrecipDepth  = 9999
)

// knownGroupWidths lists additional data groups that are skipped as a whole
// so their contents are never mistaken for a tag.
var knownGroupWidths = map[string]int{
	"ADD": 3,
	"AA2": 11, "AA3": 11, "AA4": 11,
	"AB1": 10,
	"AC1": 6,
	"AG1": 7,
	"AJ1": 17,
	"AL1": 10, "AL2": 10, "AL3": 10, "AL4": 10,
	"AW1": 6, "AW2": 6, "AW3": 6, "AW4": 6,
	"AY1": 8, "AY2": 8,
	"AZ1": 8, "AZ2": 8,
	"GA1": 16, "GA2": 16, "GA3": 16, "GA4": 16, "GA5": 16, "GA6": 16,
	"KA1": 13, "KA2": 13, "KA3": 13, "KA4": 13,
	"MA1": 15,
	"MD1": 14,
	"MW1": 6, "MW2": 6, "MW3": 6, "MW4": 6, "MW5": 6, "MW6": 6, "MW7": 6,
	"OC1": 8,
	"OD1": 14, "OD2": 14, "OD3": 14,
}

// sectionTags start the free-text sections that follow the groups.
var sectionTags = map[string]bool{
	"REM": true,
	"EQD": true,
	"QNN": true,
}

// ScanGroups extracts the GF1 and AA1 groups from the additional data
// section of line, in order of appearance. The scan walks a cursor from the
// end of the mandatory section, steps over each recognised group as a whole
// and stops at the remarks section.
func ScanGroups(line string) []AdditionalGroup {
	start := MandatorySchema.Width()
	if len(line) <= start {
		return nil
	}
	tail := line[start:]

	var groups []AdditionalGroup
	for pos := 0; pos+tagLen <= len(tail); {
		tag := tail[pos : pos+tagLen]
		if sectionTags[tag] {
			break
		}
		body := tail[pos+tagLen:]

		switch tag {
		case tagSkyCover:
			if coverage, ok := digits(body, 2); ok {
				groups = append(groups, SkyCover{Coverage: coverage})
				pos = advance(pos, skyCoverWidth, len(tail))
				continue
			}
		case tagPrecipitation:
			if g, ok := parsePrecipitation(body); ok {
				groups = append(groups, g)
				pos = advance(pos, precipitationWidth, len(tail))
				continue
			}
		default:
			if w, ok := knownGroupWidths[tag]; ok {
				pos = advance(pos, w, len(tail))
				continue
			}
		}
		pos++
	}
	return groups
}

// parsePrecipitation reads the period (2 digits) and depth (4 digits, tenths
// of mm) that follow an AA1 tag.
func parsePrecipitation(body string) (Precipitation, bool) {
	period, ok := digits(body, 2)
	if !ok {
		return Precipitation{}, false
	}
	depth, ok := digits(body[2:], 4)
	if !ok {
		return Precipitation{}, false
	}
	return Precipitation{
		PeriodHours: period,
		DepthMM:     float64(depth) / 10,
	}, true
}

// usable reports whether the group carries a real period and depth.
func (p Precipitation) usable() bool {
	if p.PeriodHours == 0 || p.PeriodHours == missingPrecipPeriod {
		return false
	}
	return p.DepthMM != missingPrecipDepth/10.0
}

// digits parses exactly n leading ASCII digits of s.
func digits(s string, n int) (int, bool) {
	if len(s) < n {
		return 0, false
	}
	v := 0
	for i := range n {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		v = v*10 + int(c-'0')
	}
	return v, true
}

func advance(pos, width, limit int) int {
	if pos+width > limit {
		return limit
	}
	return pos + width
}
