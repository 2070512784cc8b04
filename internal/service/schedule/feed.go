package schedule

import (
	"strings"

	"github.com/Domenick1991/flightengine/internal/domain"
)

const (
	OpAdd  = "ADD"
	OpEdit = "EDIT"

	feedFields = 7
)

// FeedRow is one data line of a schedule feed. Line counts from 1 and
// includes the header.
type FeedRow struct {
	Line   int
	Fields []string
}

// Complete reports whether the row carries all seven fields, none blank.
func (r FeedRow) Complete() bool {
	if len(r.Fields) < feedFields {
		return false
	}
	for _, f := range r.Fields[:feedFields] {
		if f == "" {
			return false
		}
	}
	return true
}

func (r FeedRow) Operation() string { return r.field(0) }
func (r FeedRow) FlightNumber() string { return r.field(1) }
func (r FeedRow) FromCode() string { return r.field(2) }
func (r FeedRow) ToCode() string { return r.field(3) }
func (r FeedRow) DateText() string { return r.field(4) }
func (r FeedRow) TimeText() string { return r.field(5) }
func (r FeedRow) PriceText() string { return r.field(6) }

func (r FeedRow) field(i int) string {
	if i < len(r.Fields) {
		return r.Fields[i]
	}
	return ""
}

// ParseFeed splits a feed into rows. The first line is the header and is
// dropped. Fields are split on every comma; quoting is not supported. Lines
// have no length limit, so an oversized line still becomes a row.
func ParseFeed(text string) ([]FeedRow, error) {
	if text == "" {
		return nil, domain.ErrEmptyFeed
	}

	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	rows := make([]FeedRow, 0, len(lines)-1)
	for i, raw := range lines[1:] {
		parts := strings.Split(strings.TrimSuffix(raw, "\r"), ",")
		for j := range parts {
			parts[j] = strings.TrimSpace(parts[j])
		}
		rows = append(rows, FeedRow{Line: i + 2, Fields: parts})
	}
	return rows, nil
}
