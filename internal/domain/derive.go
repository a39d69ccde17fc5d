package domain

import "math"

// Precipitation codes.
const (
	PrecipCodeNone     = 9999
	PrecipCodeLight    = 1
	PrecipCodeModerate = 2
	PrecipCodeHeavy    = 3

	// snowCodeOffset turns a rain code into its snow equivalent.
	snowCodeOffset = 18
	// maxRainCode bounds the codes eligible for the snow adjustment.
	maxRainCode = 25
)

// Rate thresholds in mm/hr.
const (
	moderateRate = 2.5
	heavyRate    = 7.6
)

// Magnus coefficients (Alduchov and Eskridge, 1996).
const (
	magnusA = 17.625
	magnusB = 243.04
)

// Derive computes relative humidity and precipitation rate and code for one
// line. It has no state; the same inputs always give the same result.
func Derive(m MandatoryFields, groups []AdditionalGroup) DerivedFields {
	rate := precipRate(groups)
	return DerivedFields{
		RelativeHumidity: relativeHumidity(m.Temperature, m.DewPoint),
		PrecipRate:       rate,
		PrecipCode:       precipCode(rate, m.Temperature),
	}
}

// relativeHumidity applies the August-Roche-Magnus approximation to a
// temperature in Kelvin and a dew point in Celsius.
func relativeHumidity(tempK, dewC *float64) *float64 {
	if tempK == nil || dewC == nil {
		return nil
	}
	dp := *dewC
	tc := *tempK - kelvinOffset
	rh := 100 * math.Exp(magnusA*dp/(magnusB+dp)) / math.Exp(magnusA*tc/(magnusB+tc))
	return float64Ptr(roundTo(rh, 1))
}

// precipRate returns the rate of the first usable AA1 group, or nil when the
// line has none.
func precipRate(groups []AdditionalGroup) *float64 {
	for _, g := range groups {
		p, ok := g.(Precipitation)
		if !ok || !p.usable() {
			continue
		}
		return float64Ptr(roundTo(p.DepthMM/float64(p.PeriodHours), 1))
	}
	return nil
}

// precipCode buckets a rate into light, moderate or heavy and shifts the code
// to its snow equivalent below freezing. A zero or absent rate has no code.
func precipCode(rate, tempK *float64) int {
	code := PrecipCodeNone
	if rate != nil {
		switch r := *rate; {
		case r <= 0:
		case r < moderateRate:
			code = PrecipCodeLight
		case r < heavyRate:
			code = PrecipCodeModerate
		default:
			code = PrecipCodeHeavy
		}
	}
	if code < maxRainCode && tempK != nil && *tempK < kelvinOffset {
		code += snowCodeOffset
	}
	return code
}

// IsSnowCode reports whether code is one of the below-freezing codes.
func IsSnowCode(code int) bool {
	return code >= PrecipCodeLight+snowCodeOffset && code <= PrecipCodeHeavy+snowCodeOffset
}
