package matcher

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	unknownReleaseDate  = "0000"
	earliestReleaseDate = "0001-01-01"
	releaseDateLayout   = "2006-01-02"
)

// ErrInvalidReleaseDate is returned when a candidate's release date cannot
// be read as a calendar date, even after padding.
var ErrInvalidReleaseDate = errors.New("invalid release date")

// ReleaseDateError describes the candidate date that failed to parse
type ReleaseDateError struct {
	Date      string
	TrackName string
	Err       error
}

func (e *ReleaseDateError) Error() string {
	if e.TrackName != "" {
		return fmt.Sprintf("%s %q for track %q: %v", ErrInvalidReleaseDate, e.Date, e.TrackName, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", ErrInvalidReleaseDate, e.Date, e.Err)
}

func (e *ReleaseDateError) Unwrap() []error {
	return []error{ErrInvalidReleaseDate, e.Err}
}

// ParseReleaseDate reads a catalog release date of year, month or day
// precision. The sentinel "0000" maps to 0001-01-01 and missing month or day
// parts are padded with "-01", so partial dates sort before full dates of the
// same year.
func ParseReleaseDate(date string) (time.Time, error) {
	padded := date
	if padded == unknownReleaseDate {
		padded = earliestReleaseDate
	}

	switch strings.Count(padded, "-") {
	case 0:
		padded += "-01-01"
	case 1:
		padded += "-01"
	case 2:
	default:
		return time.Time{}, &ReleaseDateError{Date: date, Err: errors.New("too many date separators")}
	}

	t, err := time.Parse(releaseDateLayout, padded)
	if err != nil {
		return time.Time{}, &ReleaseDateError{Date: date, Err: err}
	}
	// Year 0 only exists as the "0000" sentinel, which is mapped to year 1 above
	if t.Year() < 1 {
		return time.Time{}, &ReleaseDateError{Date: date, Err: errors.New("year out of range")}
	}
	return t, nil
}
