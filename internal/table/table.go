package table

import (
	"strconv"
	"strings"
)

// Table is an already-parsed tabular export: a header row plus string cells.
// Rows are always padded to len(Columns).
type Table struct {
	Columns []string
	Rows    [][]string
}

// New creates a table with the given header and rows, padding short rows
// and truncating long ones to the header width.
func New(columns []string, rows [][]string) *Table {
	t := &Table{Columns: append([]string(nil), columns...)}
	for _, row := range rows {
		t.Append(row)
	}
	return t
}

// Empty returns a table with the given header and no rows.
func Empty(columns []string) *Table {
	return &Table{Columns: append([]string(nil), columns...), Rows: [][]string{}}
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// IsEmpty reports whether the table has no data rows.
func (t *Table) IsEmpty() bool {
	return t.Len() == 0
}

// Index returns the position of the named column, or -1.
func (t *Table) Index(name string) int {
	if t == nil {
		return -1
	}
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Has reports whether the named column exists.
func (t *Table) Has(name string) bool {
	return t.Index(name) >= 0
}

// Value returns the cell for row i in the named column, or "" when the
// column is absent.
func (t *Table) Value(i int, name string) string {
	idx := t.Index(name)
	if idx < 0 {
		return ""
	}
	return t.Rows[i][idx]
}

// Append adds a row, normalising its width to the header.
func (t *Table) Append(row []string) {
	cells := make([]string, len(t.Columns))
	copy(cells, row)
	t.Rows = append(t.Rows, cells)
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	out := Empty(t.Columns)
	out.Rows = make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		out.Rows = append(out.Rows, append([]string(nil), row...))
	}
	return out
}

// Filter returns a new table holding the rows for which keep returns true,
// in their original order.
func (t *Table) Filter(keep func(row []string) bool) *Table {
	out := Empty(t.Columns)
	for _, row := range t.Rows {
		if keep(row) {
			out.Rows = append(out.Rows, append([]string(nil), row...))
		}
	}
	return out
}

// IsNumericColumn reports whether every non-blank cell of column i parses as
// a float. A column with no non-blank cells is not numeric.
func (t *Table) IsNumericColumn(i int) bool {
	seen := false
	for _, row := range t.Rows {
		cell := strings.TrimSpace(row[i])
		if cell == "" {
			continue
		}
		if _, err := strconv.ParseFloat(cell, 64); err != nil {
			return false
		}
		seen = true
	}
	return seen
}

// Set builds a membership set from the first column of t. Values are
// trimmed and blanks are dropped. A nil or column-less table yields an
// empty set.
func Set(t *Table) map[string]struct{} {
	set := make(map[string]struct{})
	if t == nil || len(t.Columns) == 0 {
		return set
	}
	for _, row := range t.Rows {
		v := strings.TrimSpace(row[0])
		if v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}

// SetFromColumn is like Set but reads a headerless list, where the header
// cell itself is the first value. Excluded and VIP exports ship without a
// header row.
func SetFromColumn(t *Table) map[string]struct{} {
	set := Set(t)
	if t != nil && len(t.Columns) > 0 {
		if v := strings.TrimSpace(t.Columns[0]); v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}
