package report

import (
	"strings"

	"github.com/ksred/dealbook/internal/table"
)

// SummaryLogin marks the synthetic totals row of an aggregate.
const SummaryLogin = "Summary"

// AggregateColumns is the header of every aggregate table.
var AggregateColumns = []string{
	"Login", "Total Volume", "Trader Profit", "Swaps", "Commission", "TP Profit", "Broker Profit", "Net",
}

var aggregateRequired = []string{
	ColLogin, ColVolume, ColTraderProfit, ColSwaps, ColCommission, ColTPProfit, ColBrokerProfit,
}

// AggregateRow is the per-login totals of one book.
type AggregateRow struct {
	Login        string  `json:"login"`
	TotalVolume  float64 `json:"total_volume"`
	TraderProfit float64 `json:"trader_profit"`
	Swaps        float64 `json:"swaps"`
	Commission   float64 `json:"commission"`
	TPProfit     float64 `json:"tp_profit"`
	BrokerProfit float64 `json:"broker_profit"`
	Net          float64 `json:"net"`
}

func (r *AggregateRow) add(o AggregateRow) {
	r.TotalVolume += o.TotalVolume
	r.TraderProfit += o.TraderProfit
	r.Swaps += o.Swaps
	r.Commission += o.Commission
	r.TPProfit += o.TPProfit
	r.BrokerProfit += o.BrokerProfit
	r.Net += o.Net
}

func (r AggregateRow) rounded() AggregateRow {
	return AggregateRow{
		Login:        r.Login,
		TotalVolume:  table.Round4(r.TotalVolume),
		TraderProfit: table.Round4(r.TraderProfit),
		Swaps:        table.Round4(r.Swaps),
		Commission:   table.Round4(r.Commission),
		TPProfit:     table.Round4(r.TPProfit),
		BrokerProfit: table.Round4(r.BrokerProfit),
		Net:          table.Round4(r.Net),
	}
}

func (r AggregateRow) cells() []string {
	return []string{
		r.Login,
		table.FormatFloat(r.TotalVolume),
		table.FormatFloat(r.TraderProfit),
		table.FormatFloat(r.Swaps),
		table.FormatFloat(r.Commission),
		table.FormatFloat(r.TPProfit),
		table.FormatFloat(r.BrokerProfit),
		table.FormatFloat(r.Net),
	}
}

// Aggregate is a per-login table followed by its Summary row. An aggregate
// with no rows has no Summary either.
type Aggregate struct {
	Rows []AggregateRow `json:"rows"`

	// InvalidCells counts non-blank financial cells that coerced to 0.
	InvalidCells int `json:"-"`
}

// Clients returns the per-login rows without the Summary.
func (a *Aggregate) Clients() []AggregateRow {
	if a == nil {
		return nil
	}
	out := make([]AggregateRow, 0, len(a.Rows))
	for _, r := range a.Rows {
		if r.Login != SummaryLogin {
			out = append(out, r)
		}
	}
	return out
}

// Summary returns the totals row, if present.
func (a *Aggregate) Summary() (AggregateRow, bool) {
	if a == nil {
		return AggregateRow{}, false
	}
	for _, r := range a.Rows {
		if r.Login == SummaryLogin {
			return r, true
		}
	}
	return AggregateRow{}, false
}

// Table renders the aggregate with the full column set, even when empty.
func (a *Aggregate) Table() *table.Table {
	t := table.Empty(AggregateColumns)
	if a == nil {
		return t
	}
	for _, r := range a.Rows {
		t.Rows = append(t.Rows, r.cells())
	}
	return t
}

// withSummary appends a Summary row holding the rounded column sums.
func withSummary(rows []AggregateRow) *Aggregate {
	if len(rows) == 0 {
		return &Aggregate{Rows: []AggregateRow{}}
	}
	total := AggregateRow{Login: SummaryLogin}
	for _, r := range rows {
		total.add(r)
	}
	return &Aggregate{Rows: append(rows, total.rounded())}
}

// groupedRows accumulates AggregateRows keyed by login in first-appearance
// order.
type groupedRows struct {
	order []string
	rows  map[string]*AggregateRow
}

func newGroupedRows() *groupedRows {
	return &groupedRows{rows: make(map[string]*AggregateRow)}
}

func (g *groupedRows) add(r AggregateRow) {
	acc, ok := g.rows[r.Login]
	if !ok {
		acc = &AggregateRow{Login: r.Login}
		g.rows[r.Login] = acc
		g.order = append(g.order, r.Login)
	}
	acc.add(r)
}

func (g *groupedRows) list(round bool) []AggregateRow {
	out := make([]AggregateRow, 0, len(g.order))
	for _, login := range g.order {
		r := *g.rows[login]
		if round {
			r = r.rounded()
		}
		out = append(out, r)
	}
	return out
}

// AggregateBook groups a book's deals by login and sums the financial
// fields, applying the book's exclusion policy to excluded logins. Per-login
// rows carry unrounded sums and the Summary row is rounded to 4dp.
func AggregateBook(t *table.Table, excluded map[string]struct{}, kind BookKind) (*Aggregate, error) {
	if t.IsEmpty() {
		return withSummary(nil), nil
	}

	idx, err := resolveColumns(t, aggregateRequired)
	if err != nil {
		return nil, err
	}

	policy := PolicyFor(kind)
	grouped := newGroupedRows()
	invalid := 0
	for _, row := range t.Rows {
		login := strings.TrimSpace(row[idx[ColLogin]])
		if login == "" {
			continue
		}
		_, isExcluded := excluded[login]
		if isExcluded && policy == PolicyDrop {
			continue
		}

		deal, bad := dealFrom(row, idx)
		invalid += bad
		if isExcluded && policy == PolicyZero {
			deal.Commission = 0
			deal.TPProfit = 0
			deal.BrokerProfit = 0
		}
		deal.Net = deal.TraderProfit + deal.Swaps - deal.Commission
		grouped.add(deal)
	}

	agg := withSummary(grouped.list(false))
	agg.InvalidCells = invalid
	return agg, nil
}

// resolveColumns looks up the index of every named column once per table.
func resolveColumns(t *table.Table, columns []string) (map[string]int, error) {
	idx := make(map[string]int, len(columns))
	for _, col := range columns {
		i := t.Index(col)
		if i < 0 {
			return nil, missingColumn(col)
		}
		idx[col] = i
	}
	return idx, nil
}

// dealFrom reads one deal's financial fields. It returns the deal without
// Net and the number of cells that failed to parse.
func dealFrom(row []string, idx map[string]int) (AggregateRow, int) {
	invalid := 0
	num := func(col string) float64 {
		v, ok := table.ParseNumeric(row[idx[col]])
		if !ok {
			invalid++
		}
		return v
	}
	deal := AggregateRow{
		Login:        strings.TrimSpace(row[idx[ColLogin]]),
		TotalVolume:  num(ColVolume),
		TraderProfit: num(ColTraderProfit),
		Swaps:        num(ColSwaps),
		Commission:   num(ColCommission),
		TPProfit:     num(ColTPProfit),
		BrokerProfit: num(ColBrokerProfit),
	}
	return deal, invalid
}
