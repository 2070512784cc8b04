package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout = "02/01/2006"
	TimeLayout = "15:04"

	// accept unpadded day, month and minute on input
	dateParseLayout = "2/1/2006"
	timeParseLayout = "15:4"
)

// ParseDate reads a dd/mm/yyyy calendar date as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(dateParseLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return d, nil
}

// ParseClock reads a 24h HH:MM time as an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	t, err := time.Parse(timeParseLayout, strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parse time %q: %w", s, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func FormatDate(d time.Time) string {
	return d.Format(DateLayout)
}

func FormatClock(d time.Duration) string {
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	return fmt.Sprintf("%02d:%02d", h, m)
}

// TruncateDate drops the clock part of t, keeping its calendar date in UTC.
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
