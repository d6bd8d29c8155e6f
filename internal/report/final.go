package report

import (
	"github.com/ksred/dealbook/internal/table"
)

// LotSize is the USD notional of one standard lot.
const LotSize = 200000.0

// FinalColumns is the header of the final calculations table.
var FinalColumns = []string{"Source", "Description", "Value"}

// Calculation is one line of the final calculations ledger. Headings,
// separators and the date-range caption carry Text; figures carry Amount.
type Calculation struct {
	Source      string  `json:"source"`
	Description string  `json:"description"`
	Text        string  `json:"text,omitempty"`
	Amount      float64 `json:"amount"`
	Numeric     bool    `json:"numeric"`
}

// Value renders the third column.
func (c Calculation) Value() string {
	if c.Numeric {
		return table.FormatFloat(c.Amount)
	}
	return c.Text
}

// Calculations is the ordered final ledger.
type Calculations []Calculation

// Lookup returns the figure on the first row with the given source and
// description.
func (cs Calculations) Lookup(source, description string) (float64, bool) {
	for _, c := range cs {
		if c.Numeric && c.Source == source && c.Description == description {
			return c.Amount, true
		}
	}
	return 0, false
}

// Table renders the ledger with the Source/Description/Value header.
func (cs Calculations) Table() *table.Table {
	t := table.Empty(FinalColumns)
	for _, c := range cs {
		t.Rows = append(t.Rows, []string{c.Source, c.Description, c.Value()})
	}
	return t
}

func heading(title string) Calculation {
	return Calculation{Source: title}
}

func columnHeader() Calculation {
	return Calculation{Source: "Source", Description: "Description", Text: "Value"}
}

func figure(source, description string, v float64) Calculation {
	return Calculation{Source: source, Description: description, Amount: table.Round4(v), Numeric: true}
}

// summaryOf returns the Summary row of agg, or a zero row.
func summaryOf(agg *Aggregate) AggregateRow {
	row, _ := agg.Summary()
	return row
}

// FinalCalculations derives the cross-book profit and lot figures from the
// book Summary rows, the Chinese-clients Summary row and the VIP volume.
// Missing books or summaries count as zero. A non-empty dateRange is shown
// as a caption above the first block.
func FinalCalculations(aggregates map[BookKind]*Aggregate, chinese *Aggregate, vipVolume float64, dateRange string) Calculations {
	a := summaryOf(aggregates[BookA])
	b := summaryOf(aggregates[BookB])
	multi := summaryOf(aggregates[BookMulti])
	cn := summaryOf(chinese)

	totalABook := a.Commission + a.TPProfit + multi.Commission + multi.TPProfit

	bBookTSM := -1 * b.Net
	bBookExtra := multi.BrokerProfit - multi.TPProfit
	totalBBook := bBookTSM + bBookExtra

	aBookLot := (a.TotalVolume + multi.TotalVolume) / LotSize
	bBookLot := b.TotalVolume / LotSize
	chineseLot := cn.TotalVolume / LotSize
	vipLot := vipVolume / LotSize
	retailLot := aBookLot + bBookLot - chineseLot - vipLot
	totalLot := aBookLot + bBookLot
	totalSwaps := a.Swaps + multi.Swaps

	var out Calculations
	if dateRange != "" {
		out = append(out, Calculation{Source: "DATE RANGE", Text: dateRange}, Calculation{})
	}

	return append(out,
		heading("A BOOK SUMMARY"),
		columnHeader(),
		figure("A Book Result", "Sum of TP Broker Profit + Commission", a.TPProfit+a.Commission),
		figure("Multi Book Result", "Sum of TP Broker Profit + Commission", multi.TPProfit+multi.Commission),
		figure("Total A Book", "Sum of above two values", totalABook),
		Calculation{},
		heading("B BOOK SUMMARY"),
		columnHeader(),
		figure("B Book Result", "(-1) * Sum of (Trader + Swaps - Commission)", bBookTSM),
		figure("Multi Book Result", "Total Broker Profit - TP Broker Profit", bBookExtra),
		figure("Total B Book", "Sum of above two values", totalBBook),
		Calculation{},
		heading("EXTRA SUMMARY DATA"),
		figure("A Book", "Client's Spread (TP Broker Profit)", a.TPProfit+multi.TPProfit),
		figure("A Book", "Client's Commission", a.Commission+multi.Commission),
		figure("Total Swap", "Sum of all Swaps", totalSwaps),
		figure("A Book", "Volume (Lot)", aBookLot),
		figure("B Book", "Volume (Lot)", bBookLot),
		figure("Chinese Clients", "Volume (Lot)", chineseLot),
		figure("VIP Clients", "Volume (Lot)", vipLot),
		figure("Retail Clients", "Volume (Lot)", retailLot),
		figure("Total Volume", "A Book + B Book", totalLot),
	)
}
