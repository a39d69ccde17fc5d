package domain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// DecodeObservation decodes and derives one ISD line. The ID is set but
// ProcessedAt is left zero; see EnrichObservation.
func DecodeObservation(line string) (Observation, error) {
	line = strings.TrimRight(line, "\r\n")
	m, err := DecodeMandatory(line)
	if err != nil {
		return Observation{}, err
	}
	groups := ScanGroups(line)
	return Observation{
		ID:              generateID(m, line),
		MandatoryFields: m,
		DerivedFields:   Derive(m, groups),
		Groups:          groups,
	}, nil
}

// ParseRawEvent decodes the line carried by a RawEvent. Decode failures are
// located at the event's key and offset.
func ParseRawEvent(raw RawEvent) (Observation, error) {
	obs, err := DecodeObservation(string(raw.Value))
	if err != nil {
		return Observation{}, fmt.Errorf("parse raw event: %w", LocateOffset(err, string(raw.Key), raw.Offset))
	}
	return obs, nil
}

// EnrichObservation stamps the processing time.
func EnrichObservation(obs Observation) Observation {
	obs.ProcessedAt = clock.Now()
	return obs
}

// generateID derives a deterministic ID from the station, the observation
// time and the line itself, so replays of the same line produce the same key
// downstream. Two reports in the same minute from one station (e.g. a METAR
// and a SYNOP) share the readable prefix and are told apart by the hash.
func generateID(m MandatoryFields, line string) string {
	return fmt.Sprintf("%s-%04d%02d%02d%02d%02d-%016x",
		m.StationKey(), m.Year, m.Month, m.Day, m.Hour, m.Minute, xxhash.Sum64String(line))
}

// FormatStationKey renders the "USAF-WBAN" identity used in archive names.
func FormatStationKey(usaf, wban int) string {
	return fmt.Sprintf("%06d-%05d", usaf, wban)
}

// ParseStationKey splits a "USAF-WBAN" or "USAF-WBAN-YEAR" key.
func ParseStationKey(key string) (usaf, wban, year int, err error) {
	parts := strings.Split(key, "-")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, 0, fmt.Errorf("station key %q: want USAF-WBAN[-YEAR]", key)
	}
	if usaf, err = strconv.Atoi(parts[0]); err != nil {
		return 0, 0, 0, fmt.Errorf("station key %q: usaf: %w", key, err)
	}
	if wban, err = strconv.Atoi(parts[1]); err != nil {
		return 0, 0, 0, fmt.Errorf("station key %q: wban: %w", key, err)
	}
	if len(parts) == 3 {
		if year, err = strconv.Atoi(parts[2]); err != nil {
			return 0, 0, 0, fmt.Errorf("station key %q: year: %w", key, err)
		}
	}
	return usaf, wban, year, nil
}
