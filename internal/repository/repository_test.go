package repository

import (
	"context"
	"testing"

	"yieldgate/internal/db"
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

	require.NoError(t, db.Migrate(database))
	return database
}

func TestAccountListPaginates(t *testing.T) {
	database := newTestDB(t)
	repo := NewAccountRepository(database)
	ctx := context.Background()

	for _, addr := range []string{"0x01", "0x02", "0x03"} {
		require.NoError(t, database.Create(&models.Account{
			Address: addr, Shares: "0", DepositedPrincipal: "0",
		}).Error)
	}

	accounts, total, err := repo.List(ctx, 1, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, accounts, 2)

	accounts, _, err = repo.List(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestIntentLookupAndHistory(t *testing.T) {
	database := newTestDB(t)
	repo := NewIntentRepository(database)
	ctx := context.Background()

	for _, id := range []string{"m-1", "m-2"} {
		require.NoError(t, database.Create(&models.TransferIntent{
			MessageID:     id,
			SourceChainID: 1,
			DestChainID:   2,
			Sender:        "0xaa",
			Recipients:    `["0xbb"]`,
			Amounts:       `["100"]`,
			TotalAmount:   "100",
			Status:        models.IntentStatusPending,
		}).Error)
	}

	intent, err := repo.GetIntent(ctx, "m-1")
	require.NoError(t, err)
	assert.Equal(t, "m-1", intent.MessageID)

	_, err = repo.GetIntent(ctx, "missing")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	history, err := repo.ListIntentsBySender(ctx, "0xaa", 10)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	history, err = repo.ListIntentsBySender(ctx, "0xcc", 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}
