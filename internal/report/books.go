package report

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ksred/dealbook/internal/table"
)

// Deal export column names.
const (
	ColDeal           = "Deal"
	ColLogin          = "Login"
	ColGroup          = "Group"
	ColProcessingRule = "Processing rule"
	ColVolume         = "Notional volume in USD"
	ColTraderProfit   = "Trader profit"
	ColSwaps          = "Swaps"
	ColCommission     = "Commission"
	ColTPProfit       = "TP broker profit"
	ColBrokerProfit   = "Total broker profit"
	ColDateTime       = "Date & Time (UTC)"
)

// BookKind is the routing category of a deal.
type BookKind string

const (
	BookA     BookKind = "A Book"
	BookB     BookKind = "B Book"
	BookMulti BookKind = "Multi Book"
)

// BookKinds lists the books in report order.
var BookKinds = []BookKind{BookA, BookB, BookMulti}

// ExclusionPolicy is what happens to an excluded login inside a book.
type ExclusionPolicy int

const (
	// PolicyNone sums every field as usual.
	PolicyNone ExclusionPolicy = iota
	// PolicyZero keeps volume, trader profit and swaps but forces
	// commission, TP profit and broker profit to zero.
	PolicyZero
	// PolicyDrop omits the login from the book entirely.
	PolicyDrop
)

var exclusionPolicies = map[BookKind]ExclusionPolicy{
	BookA:     PolicyZero,
	BookB:     PolicyDrop,
	BookMulti: PolicyZero,
}

// PolicyFor returns the exclusion policy of a book.
func PolicyFor(kind BookKind) ExclusionPolicy {
	return exclusionPolicies[kind]
}

// Books holds one table per book kind.
type Books map[BookKind]*table.Table

// ClassifyRule maps a raw processing-rule value to its book.
func ClassifyRule(rule string) BookKind {
	switch strings.TrimSpace(rule) {
	case "Pipwise":
		return BookA
	case "Retail B-book":
		return BookB
	default:
		return BookMulti
	}
}

var uscPattern = regexp.MustCompile(`(?i)(\d[\d.\-]*)\s*usc`)

// NormalizeCurrency rewrites "<n> USC" tokens in textual columns to their
// USD equivalent, "<n/100 to 4dp> USD". Numeric columns are left untouched
// and the input table is not modified.
func NormalizeCurrency(t *table.Table) *table.Table {
	out := t.Clone()
	for col := range out.Columns {
		if out.IsNumericColumn(col) {
			continue
		}
		for _, row := range out.Rows {
			row[col] = convertUSC(row[col])
		}
	}
	return out
}

func convertUSC(cell string) string {
	return uscPattern.ReplaceAllStringFunc(cell, func(match string) string {
		amount := uscPattern.FindStringSubmatch(match)[1]
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return match
		}
		return d.Div(decimal.NewFromInt(100)).Round(4).StringFixed(4) + " USD"
	})
}

// Classify partitions deals into the three books by processing rule. Row
// order is preserved within each book and every row lands in exactly one.
// A table without rows yields three empty books whatever its header.
func Classify(t *table.Table) (Books, error) {
	ruleIdx := t.Index(ColProcessingRule)
	if ruleIdx < 0 && !t.IsEmpty() {
		return nil, missingColumn(ColProcessingRule)
	}

	books := make(Books, len(BookKinds))
	for _, kind := range BookKinds {
		books[kind] = table.Empty(t.Columns)
	}
	for _, row := range t.Rows {
		kind := ClassifyRule(row[ruleIdx])
		books[kind].Rows = append(books[kind].Rows, append([]string(nil), row...))
	}
	return books, nil
}

// NormalizeAndClassify converts USC amounts and then splits the deals into
// books.
func NormalizeAndClassify(t *table.Table) (Books, error) {
	return Classify(NormalizeCurrency(t))
}
