package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksred/dealbook/internal/ledger"
)

func TestNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dealbook.db")

	db, err := NewDatabase(path)
	require.NoError(t, err)

	migrator := db.Migrator()
	for _, model := range []interface{}{
		&ledger.Payment{}, &ledger.IBRebate{}, &ledger.CRMWithdrawal{}, &ledger.CRMDeposit{}, &ledger.Account{},
	} {
		assert.True(t, migrator.HasTable(model))
	}
	assert.True(t, migrator.HasIndex(&ledger.Payment{}, "idx_payments_owner_category"))
	assert.True(t, migrator.HasIndex(&ledger.CRMDeposit{}, "idx_crm_deposits_owner_time"))

	_, err = NewDatabase(path)
	assert.NoError(t, err, "migrations are idempotent")
}
