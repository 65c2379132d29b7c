package db

import (
	"testing"

	"yieldgate/internal/config"
	"yieldgate/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := database.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, Migrate(database))
	return database
}

func validSeedConfig() *config.Config {
	return &config.Config{
		Vault: config.VaultSeed{
			KinkBps:              8000,
			RateAtZeroBps:        200,
			RateAtKinkBps:        800,
			RateAtMaxBps:         2500,
			MinDeposit:           "10",
			MaxDeposits:          "1000000",
			AccrualPeriodSeconds: 86400,
			TargetRateBps:        500,
			FeeRecipient:         "0x00000000000000000000000000000000000000fe",
			MaxLockSeconds:       31536000,
			MaxLockBonusBps:      500,
		},
		Tiers: []config.TierSeed{
			{Threshold: "1000", BonusBps: 50},
			{Threshold: "10000", BonusBps: 100},
		},
	}
}

func TestSeedDefaultsCreatesSingletons(t *testing.T) {
	database := newTestDB(t)
	require.NoError(t, SeedDefaults(database, validSeedConfig()))

	var params models.VaultParams
	require.NoError(t, database.First(&params, 1).Error)
	assert.Equal(t, uint32(8000), params.KinkBps)
	assert.Equal(t, "0", params.DailyAccrualCap)

	var tierCount int64
	require.NoError(t, database.Model(&models.Tier{}).Count(&tierCount).Error)
	assert.EqualValues(t, 2, tierCount)

	// Seeding is first-boot only; a second run must not duplicate rows.
	require.NoError(t, SeedDefaults(database, validSeedConfig()))
	var ledgerCount int64
	require.NoError(t, database.Model(&models.LedgerState{}).Count(&ledgerCount).Error)
	assert.EqualValues(t, 1, ledgerCount)
}

func TestSeedDefaultsRejectsInvalidCurve(t *testing.T) {
	database := newTestDB(t)
	cfg := validSeedConfig()
	cfg.Vault.KinkBps = 0

	require.Error(t, SeedDefaults(database, cfg))

	// The bad curve must never reach the params table.
	var count int64
	require.NoError(t, database.Model(&models.VaultParams{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSeedDefaultsRejectsBadBounds(t *testing.T) {
	database := newTestDB(t)

	cfg := validSeedConfig()
	cfg.Vault.AccrualPeriodSeconds = 60
	require.Error(t, SeedDefaults(database, cfg))

	cfg = validSeedConfig()
	cfg.Vault.MaxLockSeconds = 100
	cfg.Vault.MinLockSeconds = 200
	require.Error(t, SeedDefaults(database, cfg))
}

func TestSeedDefaultsRejectsUnsortedTiers(t *testing.T) {
	database := newTestDB(t)
	cfg := validSeedConfig()
	cfg.Tiers = []config.TierSeed{
		{Threshold: "10000", BonusBps: 100},
		{Threshold: "1000", BonusBps: 50},
	}

	require.Error(t, SeedDefaults(database, cfg))

	var count int64
	require.NoError(t, database.Model(&models.Tier{}).Count(&count).Error)
	assert.Zero(t, count)
}
