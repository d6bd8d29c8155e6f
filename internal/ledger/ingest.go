package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ksred/dealbook/internal/table"
)

var (
	ErrEmptyFile       = errors.New("file is empty or invalid")
	ErrRequiredColumns = errors.New("required columns not found")
	ErrUnknownKind     = errors.New("unknown ledger kind")
)

// Kind names an uploadable ledger export.
type Kind string

const (
	KindPayments       Kind = "payments"
	KindIBRebates      Kind = "ib-rebates"
	KindCRMWithdrawals Kind = "crm-withdrawals"
	KindCRMDeposits    Kind = "crm-deposits"
	KindAccounts       Kind = "accounts"
)

// ParseKind validates a ledger kind from a route parameter.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindPayments, KindIBRebates, KindCRMWithdrawals, KindCRMDeposits, KindAccounts:
		return k, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownKind, s)
}

func requireRows(t *table.Table) error {
	if t.IsEmpty() {
		return ErrEmptyFile
	}
	return nil
}

func missing(names ...string) error {
	return fmt.Errorf("%w: %s", ErrRequiredColumns, strings.Join(names, ", "))
}

func upper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// cell returns the trimmed value at idx, or "" for an absent column.
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// uscAmount parses an amount that may be quoted in US cents.
func uscAmount(raw string) float64 {
	v := table.CoerceNumeric(raw)
	if strings.Contains(upper(raw), "USC") {
		return v / 100
	}
	return v
}

// seenKeys drops keys repeated within one upload.
type seenKeys map[string]struct{}

func (s seenKeys) first(key string) bool {
	if _, ok := s[key]; ok {
		return false
	}
	s[key] = struct{}{}
	return true
}

// ParsePayments reads a payment-gateway export. Only DONE transactions with
// a transaction id are kept, and BALANCE gateway rows are dropped.
func ParsePayments(t *table.Table) ([]Payment, error) {
	if err := requireRows(t); err != nil {
		return nil, err
	}
	col := func(name string) int { return t.Index(name) }

	txIdx := col("Transaction ID")
	if txIdx < 0 {
		return nil, missing("Transaction ID")
	}

	seen := seenKeys{}
	var out []Payment
	for _, row := range t.Rows {
		txID := cell(row, txIdx)
		status := upper(cell(row, col("Status")))
		gateway := cell(row, col("Payment gateway"))
		txType := upper(cell(row, col("Type")))

		if txID == "" || upper(gateway) == "BALANCE" || status != "DONE" {
			continue
		}
		if !seen.first(txID) {
			continue
		}

		price := table.CoerceNumeric(cell(row, col("Price")))
		if price == 0 {
			price = 1
		}

		out = append(out, Payment{
			LedgerID:           "PAY_" + uuid.New().String(),
			TxID:               txID,
			Confirmed:          cell(row, col("Confirmed")),
			WalletAddress:      cell(row, col("Wallet address")),
			Status:             status,
			Type:               txType,
			PaymentGateway:     gateway,
			FinalAmount:        table.CoerceNumeric(cell(row, col("Transaction amount"))),
			FinalCurrency:      cell(row, col("Transaction currency")),
			SettlementAmount:   table.CoerceNumeric(cell(row, col("Settlement amount"))),
			SettlementCurrency: cell(row, col("Settlement currency")),
			ProcessingFee:      table.CoerceNumeric(cell(row, col("Processing fee"))),
			Price:              price,
			Comment:            cell(row, col("Comment")),
			PaymentID:          cell(row, col("Payment ID")),
			Created:            ParseFlexibleDate(cell(row, col("Booked"))),
			TradingAccount:     cell(row, col("Trading account")),
			BalanceAfter:       table.CoerceNumeric(cell(row, col("Balance after"))),
			TierFee:            table.CoerceNumeric(cell(row, col("Tier fee"))),
			SheetCategory:      SheetCategory(txType, gateway),
		})
	}
	return out, nil
}

// SheetCategory buckets a payment by direction and gateway.
func SheetCategory(txType, gateway string) string {
	settlement := strings.Contains(upper(gateway), "SETTLEMENT")
	if upper(txType) == "DEPOSIT" {
		if settlement {
			return CategorySettlementDeposit
		}
		return CategoryM2pDeposit
	}
	if settlement {
		return CategorySettlementWithdraw
	}
	return CategoryM2pWithdraw
}

// ParseIBRebates reads an IB rebate export. Transaction id and rebate time
// columns are required.
func ParseIBRebates(t *table.Table) ([]IBRebate, error) {
	if err := requireRows(t); err != nil {
		return nil, err
	}

	txIdx, rebateIdx, timeIdx := -1, -1, -1
	for i, h := range t.Columns {
		h = upper(h)
		switch {
		case strings.Contains(h, "TRANSACTION ID"):
			txIdx = i
		case strings.Contains(h, "REBATE") && !strings.Contains(h, "TIME"):
			rebateIdx = i
		case strings.Contains(h, "REBATE TIME"):
			timeIdx = i
		}
	}
	if txIdx < 0 || timeIdx < 0 {
		return nil, missing("Transaction ID", "Rebate Time")
	}

	seen := seenKeys{}
	var out []IBRebate
	for _, row := range t.Rows {
		txID := cell(row, txIdx)
		if txID == "" || !seen.first(txID) {
			continue
		}
		out = append(out, IBRebate{
			LedgerID:      "REB_" + uuid.New().String(),
			TransactionID: txID,
			Rebate:        table.CoerceNumeric(cell(row, rebateIdx)),
			RebateTime:    ParseFlexibleDate(cell(row, timeIdx)),
		})
	}
	return out, nil
}

// ParseCRMWithdrawals reads a CRM withdrawal export. Amounts quoted in USC
// are converted to USD.
func ParseCRMWithdrawals(t *table.Table) ([]CRMWithdrawal, error) {
	if err := requireRows(t); err != nil {
		return nil, err
	}

	timeIdx, accountIdx, amountIdx, requestIdx := -1, -1, -1, -1
	for i, h := range t.Columns {
		h = upper(h)
		switch {
		case strings.Contains(h, "REVIEW TIME"):
			timeIdx = i
		case strings.Contains(h, "TRADING ACCOUNT"):
			accountIdx = i
		case strings.Contains(h, "WITHDRAWAL AMOUNT"):
			amountIdx = i
		case strings.Contains(h, "REQUEST ID"):
			requestIdx = i
		}
	}
	if timeIdx < 0 || accountIdx < 0 || amountIdx < 0 || requestIdx < 0 {
		return nil, missing("Review Time", "Trading Account", "Withdrawal Amount", "Request ID")
	}

	seen := seenKeys{}
	var out []CRMWithdrawal
	for _, row := range t.Rows {
		requestID := cell(row, requestIdx)
		if requestID == "" || !seen.first(requestID) {
			continue
		}
		out = append(out, CRMWithdrawal{
			LedgerID:         "WDR_" + uuid.New().String(),
			RequestID:        requestID,
			ReviewTime:       ParseFlexibleDate(cell(row, timeIdx)),
			TradingAccount:   cell(row, accountIdx),
			WithdrawalAmount: uscAmount(cell(row, amountIdx)),
		})
	}
	return out, nil
}

// ParseCRMDeposits reads a CRM deposit export. Payment method, client id and
// name columns are optional.
func ParseCRMDeposits(t *table.Table) ([]CRMDeposit, error) {
	if err := requireRows(t); err != nil {
		return nil, err
	}

	timeIdx, accountIdx, amountIdx, requestIdx := -1, -1, -1, -1
	methodIdx, clientIdx, nameIdx := -1, -1, -1
	for i, h := range t.Columns {
		h = upper(h)
		switch {
		case strings.Contains(h, "REQUEST TIME"):
			timeIdx = i
		case strings.Contains(h, "TRADING ACCOUNT"):
			accountIdx = i
		case strings.Contains(h, "TRADING AMOUNT"):
			amountIdx = i
		case strings.Contains(h, "REQUEST ID"):
			requestIdx = i
		case strings.Contains(h, "PAYMENT METHOD"):
			methodIdx = i
		case strings.Contains(h, "CLIENT ID"):
			clientIdx = i
		case strings.Contains(h, "NAME") && !strings.Contains(h, "CLIENT"):
			nameIdx = i
		}
	}
	if timeIdx < 0 || accountIdx < 0 || amountIdx < 0 || requestIdx < 0 {
		return nil, missing("Request Time", "Trading Account", "Trading Amount", "Request ID")
	}

	seen := seenKeys{}
	var out []CRMDeposit
	for _, row := range t.Rows {
		requestID := cell(row, requestIdx)
		if requestID == "" || !seen.first(requestID) {
			continue
		}
		out = append(out, CRMDeposit{
			LedgerID:       "DEP_" + uuid.New().String(),
			RequestID:      requestID,
			RequestTime:    ParseFlexibleDate(cell(row, timeIdx)),
			TradingAccount: cell(row, accountIdx),
			TradingAmount:  uscAmount(cell(row, amountIdx)),
			PaymentMethod:  cell(row, methodIdx),
			ClientID:       cell(row, clientIdx),
			Name:           cell(row, nameIdx),
		})
	}
	return out, nil
}

// ParseAccounts reads a trading-platform account list. A leading MetaTrader
// description line, either as the header or as the first row, is skipped.
func ParseAccounts(t *table.Table) ([]Account, error) {
	if len(t.Columns) > 0 && strings.Contains(upper(t.Columns[0]), "METATRADER") && !t.IsEmpty() {
		t = table.New(t.Rows[0], t.Rows[1:])
	}
	if !t.IsEmpty() && strings.Contains(upper(t.Rows[0][0]), "METATRADER") {
		t = table.New(t.Columns, t.Rows[1:])
	}
	if err := requireRows(t); err != nil {
		return nil, err
	}

	loginIdx, nameIdx, groupIdx := -1, -1, -1
	for i, h := range t.Columns {
		switch upper(h) {
		case "LOGIN":
			loginIdx = i
		case "NAME":
			nameIdx = i
		case "GROUP":
			groupIdx = i
		}
	}
	if loginIdx < 0 || nameIdx < 0 || groupIdx < 0 {
		return nil, missing("Login", "Name", "Group")
	}

	seen := seenKeys{}
	var out []Account
	for _, row := range t.Rows {
		login := cell(row, loginIdx)
		if login == "" || !seen.first(login) {
			continue
		}
		group := cell(row, groupIdx)
		out = append(out, Account{
			Login:          login,
			Name:           cell(row, nameIdx),
			Group:          group,
			IsWelcomeBonus: group == WelcomeBonusGroup,
		})
	}
	return out, nil
}
