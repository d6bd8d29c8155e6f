package ledger

import (
	"time"

	"gorm.io/gorm"
)

// Payment gateway sheet categories.
const (
	CategoryM2pDeposit         = "M2p Deposit"
	CategorySettlementDeposit  = "Settlement Deposit"
	CategoryM2pWithdraw        = "M2p Withdraw"
	CategorySettlementWithdraw = "Settlement Withdraw"
)

// WelcomeBonusGroup marks welcome-bonus accounts in the account list.
const WelcomeBonusGroup = `WELCOME\Welcome BBOOK`

// Payment is one completed payment-gateway transaction
type Payment struct {
	gorm.Model         `json:"-"`
	LedgerID           string     `gorm:"uniqueIndex" json:"ledger_id"`
	OwnerID            string     `gorm:"uniqueIndex:idx_payments_owner_tx;not null" json:"owner_id"`
	TxID               string     `gorm:"uniqueIndex:idx_payments_owner_tx;not null" json:"tx_id"`
	Confirmed          string     `json:"confirmed"`
	WalletAddress      string     `json:"wallet_address"`
	Status             string     `json:"status"`
	Type               string     `json:"type"` // DEPOSIT or WITHDRAW
	PaymentGateway     string     `json:"payment_gateway"`
	FinalAmount        float64    `json:"final_amount"`
	FinalCurrency      string     `json:"final_currency"`
	SettlementAmount   float64    `json:"settlement_amount"`
	SettlementCurrency string     `json:"settlement_currency"`
	ProcessingFee      float64    `json:"processing_fee"`
	Price              float64    `json:"price"`
	Comment            string     `json:"comment"`
	PaymentID          string     `json:"payment_id"`
	Created            *time.Time `json:"created"`
	TradingAccount     string     `json:"trading_account"`
	BalanceAfter       float64    `json:"balance_after"`
	TierFee            float64    `json:"tier_fee"`
	SheetCategory      string     `json:"sheet_category"`
}

// IBRebate is an introducing-broker rebate payout
type IBRebate struct {
	gorm.Model    `json:"-"`
	LedgerID      string     `gorm:"uniqueIndex" json:"ledger_id"`
	OwnerID       string     `gorm:"uniqueIndex:idx_ib_rebates_owner_tx;not null" json:"owner_id"`
	TransactionID string     `gorm:"uniqueIndex:idx_ib_rebates_owner_tx;not null" json:"transaction_id"`
	Rebate        float64    `json:"rebate"`
	RebateTime    *time.Time `json:"rebate_time"`
}

// CRMWithdrawal is a withdrawal request reviewed in the CRM
type CRMWithdrawal struct {
	gorm.Model       `json:"-"`
	LedgerID         string     `gorm:"uniqueIndex" json:"ledger_id"`
	OwnerID          string     `gorm:"uniqueIndex:idx_crm_withdrawals_owner_request;not null" json:"owner_id"`
	RequestID        string     `gorm:"uniqueIndex:idx_crm_withdrawals_owner_request;not null" json:"request_id"`
	ReviewTime       *time.Time `json:"review_time"`
	TradingAccount   string     `json:"trading_account"`
	WithdrawalAmount float64    `json:"withdrawal_amount"`
}

// CRMDeposit is a deposit request recorded in the CRM
type CRMDeposit struct {
	gorm.Model     `json:"-"`
	LedgerID       string     `gorm:"uniqueIndex" json:"ledger_id"`
	OwnerID        string     `gorm:"uniqueIndex:idx_crm_deposits_owner_request;not null" json:"owner_id"`
	RequestID      string     `gorm:"uniqueIndex:idx_crm_deposits_owner_request;not null" json:"request_id"`
	RequestTime    *time.Time `json:"request_time"`
	TradingAccount string     `json:"trading_account"`
	TradingAmount  float64    `json:"trading_amount"`
	PaymentMethod  string     `json:"payment_method"`
	ClientID       string     `json:"client_id"`
	Name           string     `json:"name"`
}

// Account is one entry of the trading-platform account list
type Account struct {
	gorm.Model     `json:"-"`
	OwnerID        string `gorm:"uniqueIndex:idx_accounts_owner_login;not null" json:"owner_id"`
	Login          string `gorm:"uniqueIndex:idx_accounts_owner_login;not null" json:"login"`
	Name           string `json:"name"`
	Group          string `json:"group"`
	IsWelcomeBonus bool   `json:"is_welcome_bonus"`
}

// Ledgers is every record of one owner, optionally narrowed to a date range.
type Ledgers struct {
	Payments       []Payment
	Rebates        []IBRebate
	CRMWithdrawals []CRMWithdrawal
	CRMDeposits    []CRMDeposit
	Accounts       []Account
}
