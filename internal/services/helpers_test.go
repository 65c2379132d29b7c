package services

import (
	"testing"
	"time"

	"yieldgate/internal/db"
	"yieldgate/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestStore opens an isolated in-memory database with the full schema.
func newTestStore(t *testing.T) *LedgerStore {
	t.Helper()

	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := database.DB()
	require.NoError(t, err)
	// One connection keeps the in-memory database alive and visible.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.Migrate(database))
	return NewLedgerStore(database)
}

func defaultTestParams() models.VaultParams {
	return models.VaultParams{
		ID:                   1,
		KinkBps:              8000,
		RateAtZeroBps:        200,
		RateAtKinkBps:        800,
		RateAtMaxBps:         2500,
		MinDeposit:           "10",
		MaxDeposits:          "1000000",
		AccrualPeriodSeconds: 86400,
		DailyAccrualCap:      "0",
		TargetRateBps:        500,
		FeeShareBps:          0,
		FeeRecipient:         "0x00000000000000000000000000000000000000fe",
		MinLockSeconds:       0,
		MaxLockSeconds:       31536000,
		MaxLockBonusBps:      500,
	}
}

// seedVault writes the singleton rows every service operation expects.
func seedVault(t *testing.T, store *LedgerStore, params models.VaultParams) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, store.DB().Create(&models.LedgerState{ID: 1, TotalShares: "0", TotalSupply: "0"}).Error)
	require.NoError(t, store.DB().Create(&models.VaultState{ID: 1, TotalDeposited: "0", LastAccrualAt: now}).Error)
	require.NoError(t, store.DB().Create(&params).Error)
}

// seedPeer registers a counterparty chain with a full rate-limit bucket.
func seedPeer(t *testing.T, store *LedgerStore, chain models.ChainConfig) {
	t.Helper()
	require.NoError(t, store.DB().Create(&chain).Error)
	require.NoError(t, store.DB().Create(&models.RateLimitBucket{
		ChainID:      chain.ChainID,
		Available:    chain.BucketCapacity,
		LastRefillAt: time.Now().UTC(),
	}).Error)
}

// backdateAccrual moves the vault clock and every account clock into the
// past so an accrual run is due.
func backdateAccrual(t *testing.T, store *LedgerStore, past time.Time) {
	t.Helper()
	require.NoError(t, store.DB().Model(&models.VaultState{}).Where("id = ?", 1).
		Update("last_accrual_at", past).Error)
	require.NoError(t, store.DB().Model(&models.Account{}).Where("1 = 1").
		Update("last_accrual_at", past).Error)
}
