package migrations

import (
	"gorm.io/gorm"
)

// AddLedgerIndexes creates the indexes behind date-range and category queries
func AddLedgerIndexes(db *gorm.DB) error {
	// Using raw SQL for index creation to have more control over column order
	indexes := []string{
		// Payments are filtered by owner, booking time and sheet category
		`CREATE INDEX IF NOT EXISTS idx_payments_owner_created 
		 ON payments(owner_id, created)`,

		`CREATE INDEX IF NOT EXISTS idx_payments_owner_category 
		 ON payments(owner_id, sheet_category, created)`,

		`CREATE INDEX IF NOT EXISTS idx_ib_rebates_owner_time 
		 ON ib_rebates(owner_id, rebate_time)`,

		`CREATE INDEX IF NOT EXISTS idx_crm_withdrawals_owner_time 
		 ON crm_withdrawals(owner_id, review_time)`,

		`CREATE INDEX IF NOT EXISTS idx_crm_deposits_owner_time 
		 ON crm_deposits(owner_id, request_time)`,
	}

	for _, idx := range indexes {
		if err := db.Exec(idx).Error; err != nil {
			return err
		}
	}

	return nil
}
