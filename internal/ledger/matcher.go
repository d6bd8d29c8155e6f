package ledger

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ksred/dealbook/internal/table"
)

const (
	// MatchWindow is the largest time gap between a CRM deposit and its
	// gateway payment.
	MatchWindow = 3*time.Hour + 30*time.Minute
	// AmountTolerance is the largest amount difference, in USD.
	AmountTolerance = 1.0
)

// Discrepancy sources.
const (
	SourceCRMDeposit = "CRM Deposit"
	SourceM2pDeposit = "M2p Deposit"
)

// DiscrepancyHeaders is the header of the deposit discrepancy table.
var DiscrepancyHeaders = []string{
	"Source", "Date", "Client ID", "Trading Account", "Amount", "Client Name", "Confirmed (Y/N)", "ID",
}

// Discrepancy is a deposit present on one side only.
type Discrepancy struct {
	Source         string `json:"source"`
	Date           string `json:"date"`
	ClientID       string `json:"client_id"`
	TradingAccount string `json:"trading_account"`
	Amount         string `json:"amount"`
	ClientName     string `json:"client_name"`
	Confirmed      string `json:"confirmed"`
	ID             string `json:"id"`
}

// Row renders the discrepancy in DiscrepancyHeaders order.
func (d Discrepancy) Row() []string {
	return []string{d.Source, d.Date, d.ClientID, d.TradingAccount, d.Amount, d.ClientName, d.Confirmed, d.ID}
}

// IsTopchange reports whether a CRM deposit was paid through Topchange,
// which never reaches the payment gateway.
func IsTopchange(method string) bool {
	return strings.EqualFold(strings.TrimSpace(method), "topchange")
}

// depositsMatch applies the time, account and amount rules to one pair.
func depositsMatch(crm CRMDeposit, gw Payment) bool {
	if crm.RequestTime == nil || gw.Created == nil {
		return false
	}
	gap := crm.RequestTime.Sub(*gw.Created)
	if gap < 0 {
		gap = -gap
	}
	if gap > MatchWindow {
		return false
	}

	clientID := strings.ToLower(strings.TrimSpace(crm.ClientID))
	account := strings.ToLower(strings.TrimSpace(gw.TradingAccount))
	if !strings.Contains(account, clientID) {
		return false
	}
	return math.Abs(crm.TradingAmount-gw.FinalAmount) <= AmountTolerance
}

// MatchDepositLedgers pairs CRM deposits with gateway deposits, first fit in
// gateway order, and returns the unmatched entries: CRM deposits first, then
// gateway deposits. Topchange deposits take no part in matching and are never
// reported. Each gateway record matches at most one CRM deposit.
func MatchDepositLedgers(crm []CRMDeposit, gateway []Payment) []Discrepancy {
	matched := make([]bool, len(gateway))
	out := []Discrepancy{}

	for _, dep := range crm {
		if IsTopchange(dep.PaymentMethod) {
			continue
		}
		found := false
		for j, gw := range gateway {
			if matched[j] {
				continue
			}
			if depositsMatch(dep, gw) {
				matched[j] = true
				found = true
				break
			}
		}
		if found {
			continue
		}
		out = append(out, Discrepancy{
			Source:     SourceCRMDeposit,
			Date:       formatDate(dep.RequestTime),
			ClientID:   strings.ToLower(strings.TrimSpace(dep.ClientID)),
			Amount:     fmt.Sprintf("%.2f", dep.TradingAmount),
			ClientName: dep.Name,
			Confirmed:  "N",
			ID:         dep.LedgerID,
		})
	}

	for j, gw := range gateway {
		if matched[j] {
			continue
		}
		out = append(out, Discrepancy{
			Source:         SourceM2pDeposit,
			Date:           formatDate(gw.Created),
			TradingAccount: strings.ToLower(strings.TrimSpace(gw.TradingAccount)),
			Amount:         fmt.Sprintf("%.2f", gw.FinalAmount),
			Confirmed:      "N",
			ID:             gw.LedgerID,
		})
	}
	return out
}

func formatDate(ts *time.Time) string {
	if ts == nil {
		return ""
	}
	return ts.Format("2006-01-02")
}

// DiscrepancyTable renders discrepancies for export.
func DiscrepancyTable(ds []Discrepancy) *table.Table {
	t := table.Empty(DiscrepancyHeaders)
	for _, d := range ds {
		t.Append(d.Row())
	}
	return t
}
