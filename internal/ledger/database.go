package ledger

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// insertNew creates each record unless its owner-scoped key already exists,
// returning how many rows were written.
func insertNew[T any](db *gorm.DB, records []T) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx := db.Begin()
	if err := tx.Error; err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	inserted := 0
	for i := range records {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&records[i])
		if res.Error != nil {
			tx.Rollback()
			return 0, fmt.Errorf("failed to insert record: %w", res.Error)
		}
		inserted += int(res.RowsAffected)
	}

	if err := tx.Commit().Error; err != nil {
		return 0, fmt.Errorf("failed to commit records: %w", err)
	}
	return inserted, nil
}

// InsertPayments stores payments not already present for the owner
func (d *Database) InsertPayments(ownerID string, payments []Payment) (int, error) {
	for i := range payments {
		payments[i].OwnerID = ownerID
	}
	return insertNew(d.db, payments)
}

// InsertIBRebates stores rebates not already present for the owner
func (d *Database) InsertIBRebates(ownerID string, rebates []IBRebate) (int, error) {
	for i := range rebates {
		rebates[i].OwnerID = ownerID
	}
	return insertNew(d.db, rebates)
}

// InsertCRMWithdrawals stores withdrawals not already present for the owner
func (d *Database) InsertCRMWithdrawals(ownerID string, withdrawals []CRMWithdrawal) (int, error) {
	for i := range withdrawals {
		withdrawals[i].OwnerID = ownerID
	}
	return insertNew(d.db, withdrawals)
}

// InsertCRMDeposits stores deposits not already present for the owner
func (d *Database) InsertCRMDeposits(ownerID string, deposits []CRMDeposit) (int, error) {
	for i := range deposits {
		deposits[i].OwnerID = ownerID
	}
	return insertNew(d.db, deposits)
}

// ReplaceAccounts swaps the owner's account list for a new one
func (d *Database) ReplaceAccounts(ownerID string, accounts []Account) (int, error) {
	tx := d.db.Begin()
	if err := tx.Error; err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Unscoped().Where("owner_id = ?", ownerID).Delete(&Account{}).Error; err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("failed to clear account list: %w", err)
	}

	for i := range accounts {
		accounts[i].OwnerID = ownerID
	}
	if len(accounts) > 0 {
		if err := tx.Create(&accounts).Error; err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("failed to save account list: %w", err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return 0, fmt.Errorf("failed to commit account list: %w", err)
	}
	return len(accounts), nil
}

// scoped narrows a query to one owner and, when bounded, to a date range
// on column.
func scoped(db *gorm.DB, ownerID, column string, r DateRange) *gorm.DB {
	q := db.Where("owner_id = ?", ownerID)
	if !r.IsZero() {
		q = q.Where(column+" >= ? AND "+column+" <= ?", r.Start, r.End)
	}
	return q.Order("id")
}

// GetPayments retrieves payments booked within the range
func (d *Database) GetPayments(ownerID string, r DateRange) ([]Payment, error) {
	var payments []Payment
	if err := scoped(d.db, ownerID, "created", r).Find(&payments).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch payments: %w", err)
	}
	return payments, nil
}

// GetPaymentsByCategory retrieves payments of one sheet category within the range
func (d *Database) GetPaymentsByCategory(ownerID, category string, r DateRange) ([]Payment, error) {
	var payments []Payment
	if err := scoped(d.db, ownerID, "created", r).
		Where("sheet_category = ?", category).
		Find(&payments).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch %s payments: %w", category, err)
	}
	return payments, nil
}

// GetIBRebates retrieves rebates paid within the range
func (d *Database) GetIBRebates(ownerID string, r DateRange) ([]IBRebate, error) {
	var rebates []IBRebate
	if err := scoped(d.db, ownerID, "rebate_time", r).Find(&rebates).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch rebates: %w", err)
	}
	return rebates, nil
}

// GetCRMWithdrawals retrieves withdrawals reviewed within the range
func (d *Database) GetCRMWithdrawals(ownerID string, r DateRange) ([]CRMWithdrawal, error) {
	var withdrawals []CRMWithdrawal
	if err := scoped(d.db, ownerID, "review_time", r).Find(&withdrawals).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch crm withdrawals: %w", err)
	}
	return withdrawals, nil
}

// GetCRMDeposits retrieves deposits requested within the range
func (d *Database) GetCRMDeposits(ownerID string, r DateRange) ([]CRMDeposit, error) {
	var deposits []CRMDeposit
	if err := scoped(d.db, ownerID, "request_time", r).Find(&deposits).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch crm deposits: %w", err)
	}
	return deposits, nil
}

// GetAccounts retrieves the owner's account list
func (d *Database) GetAccounts(ownerID string) ([]Account, error) {
	var accounts []Account
	if err := d.db.Where("owner_id = ?", ownerID).Order("id").Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch accounts: %w", err)
	}
	return accounts, nil
}

// GetLedgers loads every ledger of the owner within the range
func (d *Database) GetLedgers(ownerID string, r DateRange) (Ledgers, error) {
	var (
		l   Ledgers
		err error
	)
	if l.Payments, err = d.GetPayments(ownerID, r); err != nil {
		return Ledgers{}, err
	}
	if l.Rebates, err = d.GetIBRebates(ownerID, r); err != nil {
		return Ledgers{}, err
	}
	if l.CRMWithdrawals, err = d.GetCRMWithdrawals(ownerID, r); err != nil {
		return Ledgers{}, err
	}
	if l.CRMDeposits, err = d.GetCRMDeposits(ownerID, r); err != nil {
		return Ledgers{}, err
	}
	if l.Accounts, err = d.GetAccounts(ownerID); err != nil {
		return Ledgers{}, err
	}
	return l, nil
}
