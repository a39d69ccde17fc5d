// Package domain decodes NOAA Integrated Surface Database (ISD) hourly
// observation records and derives secondary meteorology from them.
//
// # Data Source
//
// ISD yearly station archives are published at
// https://www.ncei.noaa.gov/pub/data/noaa/<year>/<USAF>-<WBAN>-<year>.gz.
// Each decompressed line is one hourly (or sub-hourly) report. The station
// catalog (isd-history.csv) lists every station with its location and the
// first and last year it reported.
//
// # Line Layout
//
// A line starts with a 105-character mandatory data section described by
// 34 fixed column widths (see [MandatorySchema]):
//
//	0243 010010 99999 2010 01 01 00 00 4 +70933 -008667 FM-12 +0009 ...
//	 |    |      |     |    |  |  |  |    |      |             |
//	 len  USAF   WBAN  yr   m  d  hr mn   lat    lon           elev
//
// Numeric columns are zero-padded and may carry a leading sign. Latitude
// and longitude are thousandths of a degree; wind speed, temperature, dew
// point and sea level pressure are tenths of their unit.
//
// The mandatory section is followed by the optional additional data
// section, introduced by "ADD" and made of groups tagged with a
// 3-character identifier:
//
//	ADD AA1 06 0025 9 1  GF1 08 99 1 99 9 99 9 99999 9 99 9 99 9  ...  REM ...
//	    precipitation    sky cover summation
//
// Only AA1 (liquid precipitation) and GF1 (sky cover) are decoded. Remarks
// (REM), element quality (EQD) and original value (QNN) sections follow the
// groups and contain free text.
//
// # Missing Values
//
// ISD marks an unreported value with all nines (999, 9999, +9999, 99999).
// Some thresholds used here are coarser than the format's own markers:
//
//	WIND.DIR   raw == 999      WIND.SPD   raw > 100
//	TEMP       raw > 900       DEW.POINT  raw > 100
//	ATM.PRES   raw > 2000      CEIL.HGT   raw == 99999
//	AA1 period 00 or 99        AA1 depth  9999
//
// Inside this package a missing value is a nil pointer. Output rows
// ([Row]) materialize nil as the literal sentinel 999 (wind direction) or
// 999.9 (everything else), and the precipitation code uses 9999 for "no
// precipitation data". Consumers of rows must check for these literals
// before doing arithmetic.
//
// # Units
//
//	LAT/LONG   degrees            ELEV       metres
//	WIND.SPD   m/s                CEIL.HGT   hundreds of feet
//	TEMP       Kelvin             DEW.POINT  Celsius
//	ATM.PRES   hPa                RH         percent
//	PRECIP.RATE mm/hr
//
// # Derived Quantities
//
// Relative humidity uses the August-Roche-Magnus approximation and is not
// clamped, so a dew point above the air temperature gives more than 100.
// The precipitation rate is depth_mm / period_hours of the first usable AA1
// group, rounded to 0.1 mm/hr. An AA1 group whose period is 00 or 99 or whose
// depth is 9999 is not usable: it is skipped rather than divided, so a line
// carrying only such groups has no rate and PRECIP.CODE 9999 instead of a
// heavy code computed from 999.9 mm. The rate is bucketed into light (1),
// moderate (2) and heavy (3) codes; below freezing the codes shift by 18 to
// their snow equivalents (19, 20, 21).
package domain
