package shared

import (
	"errors"
	"strings"
	"time"
)

// ErrInvalidDate indicates a date string in none of the accepted layouts.
var ErrInvalidDate = errors.New("invalid date")

// DateLayouts are the accepted request date formats, most specific last.
var DateLayouts = []string{"2006-01-02", "2006-01-02T15:04", time.RFC3339}

// WallClockUTC keeps the wall-clock reading of t and relabels it as UTC.
func WallClockUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// ParseDate parses raw in any of DateLayouts. An offset, when present, is
// dropped and the wall-clock reading kept.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return WallClockUTC(t), nil
		}
	}
	return time.Time{}, ErrInvalidDate
}

// ParseOptionalDate parses raw, treating an empty string as no date.
func ParseOptionalDate(raw string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	t, err := ParseDate(raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
