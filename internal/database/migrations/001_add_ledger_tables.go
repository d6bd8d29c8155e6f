package migrations

import (
	"github.com/ksred/dealbook/internal/ledger"
	"gorm.io/gorm"
)

// AddLedgerTables creates the secondary-ledger tables
func AddLedgerTables(db *gorm.DB) error {
	return db.AutoMigrate(
		&ledger.Payment{},
		&ledger.IBRebate{},
		&ledger.CRMWithdrawal{},
		&ledger.CRMDeposit{},
		&ledger.Account{},
	)
}
