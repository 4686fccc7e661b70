package mrz

import (
	"fmt"
	"time"
)

var now = time.Now

// ParseExpiryDate reads a YYMMDD expiry date. Go maps 69-99 to the 1900s,
// so an expiry more than 30 years in the past is moved to the next century.
func ParseExpiryDate(dateStr string) (time.Time, error) {
	parsedDate, err := parseShortDate(dateStr)
	if err != nil {
		return time.Time{}, err
	}

	if parsedDate.Before(now().AddDate(-30, 0, 0)) {
		parsedDate = parsedDate.AddDate(100, 0, 0)
	}

	return parsedDate, nil
}

// ParseDateOfBirth reads a YYMMDD birth date. Only two digits of the year
// are stored, so a birth date in the future belongs to the previous century.
func ParseDateOfBirth(dateStr string) (time.Time, error) {
	parsedDate, err := parseShortDate(dateStr)
	if err != nil {
		return time.Time{}, err
	}

	if parsedDate.After(now()) {
		parsedDate = parsedDate.AddDate(-100, 0, 0)
	}

	return parsedDate, nil
}

func parseShortDate(dateStr string) (time.Time, error) {
	if len(dateStr) != len(dateLayout) {
		return time.Time{}, fmt.Errorf("%w: invalid date format: %s", ErrInvalidInput, dateStr)
	}

	parsedDate, err := time.Parse(dateLayout, dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: error parsing date: %w", ErrInvalidInput, err)
	}
	return parsedDate, nil
}
