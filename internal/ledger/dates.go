package ledger

import (
	"errors"
	"strings"
	"time"
)

var ErrInvalidDateRange = errors.New("invalid date range, use 'yyyy-mm-dd'")

// dateLayouts are tried in order; day-first wins over month-first for
// ambiguous slash dates.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02.01.2006 15:04:05",
	"02.01.2006",
	"02/01/2006 15:04:05",
	"02/01/2006",
	"01/02/2006 15:04:05",
	"01/02/2006",
}

// ParseFlexibleDate parses the timestamp formats found in payment and CRM
// exports. It returns nil for blank or unrecognised values.
func ParseFlexibleDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return &ts
		}
	}
	return nil
}

// RangeLayout is the format of date-range query parameters.
const RangeLayout = "2006-01-02"

// DateRange bounds ledger queries. The zero value matches everything.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ParseDateRange builds a range from two yyyy-mm-dd bounds. The range only
// applies when both are given; End covers the whole of its day.
func ParseDateRange(start, end string) (DateRange, error) {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if start == "" || end == "" {
		return DateRange{}, nil
	}

	from, err := time.Parse(RangeLayout, start)
	if err != nil {
		return DateRange{}, ErrInvalidDateRange
	}
	to, err := time.Parse(RangeLayout, end)
	if err != nil {
		return DateRange{}, ErrInvalidDateRange
	}
	if to.Before(from) {
		return DateRange{}, ErrInvalidDateRange
	}
	return DateRange{Start: from, End: to.Add(24*time.Hour - time.Nanosecond)}, nil
}

// IsZero reports whether the range is unbounded.
func (r DateRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// Contains reports whether ts falls inside the range. Records without a
// timestamp only match the unbounded range.
func (r DateRange) Contains(ts *time.Time) bool {
	if r.IsZero() {
		return true
	}
	if ts == nil {
		return false
	}
	return !ts.Before(r.Start) && !ts.After(r.End)
}

// Label is the caption shown above a filtered final report.
func (r DateRange) Label() string {
	if r.IsZero() {
		return ""
	}
	return "Filtered from " + r.Start.Format("02.01.2006") + " to " + r.End.Format("02.01.2006")
}
