package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedRecord is matched by every decode failure of a single line.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrEmptySequence is returned when a station has no observations to summarize.
	ErrEmptySequence = errors.New("empty observation sequence")
)

// MalformedRecordError describes why one line could not be decoded.
// Station and Line are zero until the caller that knows the line's origin
// fills them in with [MalformedRecordError.At]. Lines read from a stream have
// no line number and are located by offset instead.
type MalformedRecordError struct {
	Station string
	Line    int
	Offset  *int64
	Column  int // 1-based schema position, 0 when the whole line is at fault
	Field   string
	Reason  string
}

func (e *MalformedRecordError) Error() string {
	var b strings.Builder
	b.WriteString(ErrMalformedRecord.Error())
	if e.Station != "" {
		fmt.Fprintf(&b, " station %s", e.Station)
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, " line %d", e.Line)
	}
	if e.Offset != nil {
		fmt.Fprintf(&b, " offset %d", *e.Offset)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " field %s (column %d)", e.Field, e.Column)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	return b.String()
}

func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}

// At records the origin of the offending line.
func (e *MalformedRecordError) At(station string, line int) *MalformedRecordError {
	e.Station = station
	e.Line = line
	return e
}

// LocateError attaches a line origin to err when it is a MalformedRecordError,
// returning err unchanged otherwise.
func LocateError(err error, station string, line int) error {
	var mre *MalformedRecordError
	if errors.As(err, &mre) {
		return mre.At(station, line)
	}
	return err
}

// LocateOffset attaches a stream origin to err when it is a
// MalformedRecordError, returning err unchanged otherwise.
func LocateOffset(err error, station string, offset int64) error {
	var mre *MalformedRecordError
	if errors.As(err, &mre) {
		mre.Station = station
		mre.Offset = &offset
		return mre
	}
	return err
}
