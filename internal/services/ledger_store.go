package services

import (
	"errors"
	"sync"
	"time"

	"yieldgate/internal/ledger"
	"yieldgate/internal/models"
	"yieldgate/internal/utils"

	"gorm.io/gorm"
)

// LedgerStore serializes every mutating operation against one ledger
// instance and persists the share accounting. The vault and gateway share a
// single store, so deposits, accruals and transfers never interleave.
type LedgerStore struct {
	db *gorm.DB
	mu sync.Mutex
}

// NewLedgerStore creates a LedgerStore over db.
func NewLedgerStore(db *gorm.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

// DB exposes the underlying handle for read-only queries.
func (s *LedgerStore) DB() *gorm.DB {
	return s.db
}

// WithTx runs fn under the instance mutex inside one transaction. The whole
// operation commits or rolls back as a unit.
func (s *LedgerStore) WithTx(fn func(tx *gorm.DB) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Transaction(fn)
}

// loadLedgerState reads the singleton supply row into the pure accounting
// representation.
func loadLedgerState(tx *gorm.DB) (*models.LedgerState, *ledger.State, error) {
	var row models.LedgerState
	if err := tx.First(&row, 1).Error; err != nil {
		return nil, nil, err
	}
	state := &ledger.State{
		TotalShares: utils.MustParseAmount(row.TotalShares),
		TotalSupply: utils.MustParseAmount(row.TotalSupply),
	}
	return &row, state, nil
}

func saveLedgerState(tx *gorm.DB, row *models.LedgerState, state *ledger.State) error {
	row.TotalShares = utils.FormatAmount(state.TotalShares)
	row.TotalSupply = utils.FormatAmount(state.TotalSupply)
	return tx.Save(row).Error
}

// loadAccountEntry reads (creating if absent) the account row and its share
// entry. A fresh account starts with zero shares and no locked rate.
func loadAccountEntry(tx *gorm.DB, address string, now time.Time) (*models.Account, *ledger.Entry, error) {
	var row models.Account
	err := tx.First(&row, "address = ?", address).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row = models.Account{
			Address:            address,
			Shares:             "0",
			DepositedPrincipal: "0",
			LastAccrualAt:      now,
		}
		if err := tx.Create(&row).Error; err != nil {
			return nil, nil, err
		}
	} else if err != nil {
		return nil, nil, err
	}
	entry := &ledger.Entry{
		Shares:  utils.MustParseAmount(row.Shares),
		RateBps: row.LockedRateBps,
	}
	return &row, entry, nil
}

func saveAccountEntry(tx *gorm.DB, row *models.Account, entry *ledger.Entry) error {
	row.Shares = utils.FormatAmount(entry.Shares)
	row.LockedRateBps = entry.RateBps
	return tx.Save(row).Error
}

func loadVaultState(tx *gorm.DB) (*models.VaultState, error) {
	var row models.VaultState
	if err := tx.First(&row, 1).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func loadVaultParams(tx *gorm.DB) (*models.VaultParams, error) {
	var row models.VaultParams
	if err := tx.First(&row, 1).Error; err != nil {
		return nil, err
	}
	return &row, nil
}
