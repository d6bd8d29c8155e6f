package ledger

import (
	"fmt"
	"regexp"
	"strings"
)

// Thresholds above which the final report carries enough data to chart.
const (
	MinRecordsForCharts   = 20
	MinCategoriesWithData = 3
)

// Final report metric names, in display order.
const (
	MetricTotalRebate          = "Total Rebate"
	MetricM2pDeposit           = "M2p Deposit"
	MetricSettlementDeposit    = "Settlement Deposit"
	MetricM2pWithdrawal        = "M2p Withdrawal"
	MetricSettlementWithdrawal = "Settlement Withdrawal"
	MetricCRMDepositTotal      = "CRM Deposit Total"
	MetricTopchangeTotal       = "Topchange Deposit Total"
	MetricTierFeeDeposit       = "Tier Fee Deposit"
	MetricTierFeeWithdraw      = "Tier Fee Withdraw"
	MetricWelcomeBonus         = "Welcome Bonus Withdrawals"
	MetricCRMWithdrawTotal     = "CRM Withdraw Total"
)

// Sufficiency counts the records behind a final report.
type Sufficiency struct {
	Payments           int  `json:"payments"`
	Rebates            int  `json:"rebates"`
	CRMWithdrawals     int  `json:"crm_withdrawals"`
	CRMDeposits        int  `json:"crm_deposits"`
	TotalRecords       int  `json:"total_records"`
	CategoriesWithData int  `json:"categories_with_data"`
	ChartsRecommended  bool `json:"charts_recommended"`
}

// CheckSufficiency decides whether the ledgers hold enough data for charts.
func CheckSufficiency(l Ledgers) Sufficiency {
	s := Sufficiency{
		Payments:       len(l.Payments),
		Rebates:        len(l.Rebates),
		CRMWithdrawals: len(l.CRMWithdrawals),
		CRMDeposits:    len(l.CRMDeposits),
	}
	for _, n := range []int{s.Payments, s.Rebates, s.CRMWithdrawals, s.CRMDeposits} {
		s.TotalRecords += n
		if n > 0 {
			s.CategoriesWithData++
		}
	}
	s.ChartsRecommended = s.TotalRecords >= MinRecordsForCharts && s.CategoriesWithData >= MinCategoriesWithData
	return s
}

// Metric is one named total of the final report.
type Metric struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// FinalReport is the secondary-ledger reconciliation summary.
type FinalReport struct {
	DateRange   string      `json:"date_range,omitempty"`
	Metrics     []Metric    `json:"metrics"`
	Rows        [][]string  `json:"rows"`
	Sufficiency Sufficiency `json:"sufficiency"`
}

// Value returns a metric by name.
func (r *FinalReport) Value(name string) float64 {
	for _, m := range r.Metrics {
		if m.Name == name {
			return m.Value
		}
	}
	return 0
}

var loginPattern = regexp.MustCompile(`\d+`)

// WelcomeBonusWithdrawals sums the CRM withdrawals of welcome-bonus accounts.
// The login is the first run of digits in the withdrawal's trading account.
func WelcomeBonusWithdrawals(withdrawals []CRMWithdrawal, accounts []Account) float64 {
	welcome := make(map[string]struct{})
	for _, a := range accounts {
		if a.IsWelcomeBonus {
			welcome[a.Login] = struct{}{}
		}
	}
	if len(welcome) == 0 {
		return 0
	}

	var total float64
	for _, w := range withdrawals {
		login := loginPattern.FindString(w.TradingAccount)
		if _, ok := welcome[login]; ok && login != "" {
			total += w.WithdrawalAmount
		}
	}
	return total
}

// TopchangeDepositTotal sums CRM deposits paid through Topchange.
func TopchangeDepositTotal(deposits []CRMDeposit) float64 {
	var total float64
	for _, d := range deposits {
		if strings.ToUpper(strings.TrimSpace(d.PaymentMethod)) == "TOPCHANGE" {
			total += d.TradingAmount
		}
	}
	return total
}

// BuildFinalReport totals already range-filtered ledgers. dateRange only
// drives the caption.
func BuildFinalReport(l Ledgers, dateRange DateRange) *FinalReport {
	byCategory := map[string]float64{}
	tierFees := map[string]float64{}
	for _, p := range l.Payments {
		byCategory[p.SheetCategory] += p.FinalAmount
		tierFees[p.SheetCategory] += p.TierFee
	}

	var rebates, crmDeposits, crmWithdrawals float64
	for _, r := range l.Rebates {
		rebates += r.Rebate
	}
	for _, d := range l.CRMDeposits {
		crmDeposits += d.TradingAmount
	}
	for _, w := range l.CRMWithdrawals {
		crmWithdrawals += w.WithdrawalAmount
	}

	report := &FinalReport{
		DateRange: dateRange.Label(),
		Metrics: []Metric{
			{MetricTotalRebate, rebates},
			{MetricM2pDeposit, byCategory[CategoryM2pDeposit]},
			{MetricSettlementDeposit, byCategory[CategorySettlementDeposit]},
			{MetricM2pWithdrawal, byCategory[CategoryM2pWithdraw]},
			{MetricSettlementWithdrawal, byCategory[CategorySettlementWithdraw]},
			{MetricCRMDepositTotal, crmDeposits},
			{MetricTopchangeTotal, TopchangeDepositTotal(l.CRMDeposits)},
			{MetricTierFeeDeposit, tierFees[CategoryM2pDeposit] + tierFees[CategorySettlementDeposit]},
			{MetricTierFeeWithdraw, tierFees[CategoryM2pWithdraw] + tierFees[CategorySettlementWithdraw]},
			{MetricWelcomeBonus, WelcomeBonusWithdrawals(l.CRMWithdrawals, l.Accounts)},
			{MetricCRMWithdrawTotal, crmWithdrawals},
		},
		Sufficiency: CheckSufficiency(l),
	}

	if report.DateRange != "" {
		report.Rows = append(report.Rows, []string{"Date Range", report.DateRange}, []string{"", ""})
	}
	for _, m := range report.Metrics {
		report.Rows = append(report.Rows, []string{m.Name, fmt.Sprintf("%.2f", m.Value)})
	}
	return report
}
