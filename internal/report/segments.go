package report

import (
	"strings"

	"github.com/ksred/dealbook/internal/table"
)

// ChineseGroupPrefixes are the group prefixes of Chinese-desk accounts.
var ChineseGroupPrefixes = []string{`real\Chines`, `BBOOK\Chines`}

// IsChineseGroup reports whether a deal group belongs to the Chinese desk.
func IsChineseGroup(group string) bool {
	group = strings.TrimSpace(group)
	for _, p := range ChineseGroupPrefixes {
		if strings.HasPrefix(group, p) {
			return true
		}
	}
	return false
}

// ChineseClients rolls up Chinese-desk deals by login across all books.
// Excluded logins are omitted outright; no per-book zeroing applies. Books
// without the group or financial columns are skipped.
func ChineseClients(books Books, excluded map[string]struct{}) *Aggregate {
	required := append([]string{ColGroup}, aggregateRequired...)
	grouped := newGroupedRows()
	invalid := 0

	for _, kind := range BookKinds {
		t := books[kind]
		if t.IsEmpty() {
			continue
		}
		idx, err := resolveColumns(t, required)
		if err != nil {
			continue
		}
		for _, row := range t.Rows {
			login := strings.TrimSpace(row[idx[ColLogin]])
			if login == "" || !IsChineseGroup(row[idx[ColGroup]]) {
				continue
			}
			if _, ok := excluded[login]; ok {
				continue
			}
			deal, bad := dealFrom(row, idx)
			invalid += bad
			deal.Net = deal.TraderProfit + deal.Swaps - deal.Commission
			grouped.add(deal)
		}
	}

	agg := withSummary(grouped.list(true))
	agg.InvalidCells = invalid
	return agg
}

// ClientSummary adds the per-login rows of every book aggregate together.
func ClientSummary(aggregates map[BookKind]*Aggregate) *Aggregate {
	grouped := newGroupedRows()
	for _, kind := range BookKinds {
		for _, r := range aggregates[kind].Clients() {
			grouped.add(r)
		}
	}
	return withSummary(grouped.list(true))
}

// VIPVolume sums the notional volume of VIP logins that are not excluded.
func VIPVolume(books Books, vip, excluded map[string]struct{}) float64 {
	var total float64
	for _, kind := range BookKinds {
		t := books[kind]
		loginIdx, volIdx := t.Index(ColLogin), t.Index(ColVolume)
		if t.IsEmpty() || loginIdx < 0 || volIdx < 0 {
			continue
		}
		for _, row := range t.Rows {
			login := strings.TrimSpace(row[loginIdx])
			if login == "" {
				continue
			}
			if _, ok := vip[login]; !ok {
				continue
			}
			if _, ok := excluded[login]; ok {
				continue
			}
			total += table.CoerceNumeric(row[volIdx])
		}
	}
	return total
}
