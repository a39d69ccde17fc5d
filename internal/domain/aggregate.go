package domain

// Summarize builds the station summary from the first observation of a
// station's sequence. Observations must be in file order.
func Summarize(obs []Observation) (StationSummary, error) {
	if len(obs) == 0 {
		return StationSummary{}, ErrEmptySequence
	}
	first := obs[0]
	return StationSummary{
		USAFID:    first.USAFID,
		WBAN:      first.WBAN,
		Year:      first.Year,
		Lat:       first.Lat,
		Lon:       first.Lon,
		Elevation: first.Elevation,
	}, nil
}
