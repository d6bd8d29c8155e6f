package report

import (
	"strings"
	"time"

	"github.com/ksred/dealbook/internal/table"
)

// Derived columns appended by Enrich.
const (
	ColProfitValue = "Profit Value"
	ColProfitUnit  = "Profit Unit"
	ColDate        = "Date"
	ColTime        = "Time"
)

// DealTimeLayout is the timestamp layout of deal exports and of the report
// date-range bounds.
const DealTimeLayout = "02.01.2006 15:04:05"

const (
	profitCellIndex = 6
	timeCellIndex   = 7
)

// EnrichStats counts what Enrich dropped or could not parse.
type EnrichStats struct {
	Duplicates    int
	BadProfits    int
	BadTimestamps int
}

// Enrich drops rows whose first-column key was already seen and sets the
// profit value/unit split and the date/time parts of each deal. The composite
// profit is read from the seventh column and the timestamp from the eighth,
// by position. Derived columns are appended, except that an input column
// already carrying one of their names is overwritten in place, so name
// lookups always resolve to the derived value. Unparseable timestamps leave
// Date and Time blank.
func Enrich(t *table.Table) *table.Table {
	out, _ := EnrichWithStats(t)
	return out
}

// EnrichWithStats is Enrich that also reports row-level degradations.
func EnrichWithStats(t *table.Table) (*table.Table, EnrichStats) {
	var stats EnrichStats
	if t.IsEmpty() {
		return t, stats
	}

	columns := append([]string(nil), t.Columns...)
	derived := make([]int, 0, 4)
	for _, name := range []string{ColProfitValue, ColProfitUnit, ColDate, ColTime} {
		i := indexOf(columns, name)
		if i < 0 {
			i = len(columns)
			columns = append(columns, name)
		}
		derived = append(derived, i)
	}
	out := table.Empty(columns)

	seen := make(map[string]struct{}, t.Len())
	for _, row := range t.Rows {
		key := strings.TrimSpace(cellAt(row, 0))
		if _, ok := seen[key]; ok {
			stats.Duplicates++
			continue
		}
		seen[key] = struct{}{}

		profit := cellAt(row, profitCellIndex)
		raw, ok := table.ParseNumeric(profit)
		if !ok {
			stats.BadProfits++
		}
		value := table.Round4(raw)
		unit := strings.ToUpper(strings.TrimSpace(table.NonNumericChars(profit)))

		var date, clock string
		stamp := strings.TrimSpace(cellAt(row, timeCellIndex))
		if ts, err := time.Parse(DealTimeLayout, stamp); err == nil {
			date = ts.Format("2006-01-02")
			clock = ts.Format("15:04:05")
		} else if stamp != "" {
			stats.BadTimestamps++
		}

		enriched := make([]string, len(columns))
		copy(enriched, row)
		for i, v := range []string{table.FormatFloat(value), unit, date, clock} {
			enriched[derived[i]] = v
		}
		out.Rows = append(out.Rows, enriched)
	}
	return out, stats
}

// ParseBound parses an inclusive date-range bound.
func ParseBound(s string) (time.Time, error) {
	ts, err := time.Parse(DealTimeLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, ErrInvalidDateFormat
	}
	return ts, nil
}

// DateRangeLabel is the caption shown above the final calculations.
func DateRangeLabel(start, end string) string {
	return "From " + start + " to " + end
}

// FilterByDateRange keeps deals whose "Date & Time (UTC)" falls within
// [start, end]. The filter only applies when both bounds are given; tables
// that are empty or lack the column also pass through unchanged. Rows with
// unparseable timestamps are dropped.
func FilterByDateRange(t *table.Table, start, end string) (*table.Table, error) {
	if strings.TrimSpace(start) == "" || strings.TrimSpace(end) == "" {
		return t, nil
	}
	idx := t.Index(ColDateTime)
	if t.IsEmpty() || idx < 0 {
		return t, nil
	}

	from, err := ParseBound(start)
	if err != nil {
		return nil, err
	}
	to, err := ParseBound(end)
	if err != nil {
		return nil, err
	}

	return t.Filter(func(row []string) bool {
		ts, err := time.Parse(DealTimeLayout, strings.TrimSpace(row[idx]))
		if err != nil {
			return false
		}
		return !ts.Before(from) && !ts.After(to)
	}), nil
}

func indexOf(columns []string, name string) int {
	for i, c := range columns {
		if c == name {
			return i
		}
	}
	return -1
}

func cellAt(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
