package services

import (
	"math/big"
	"testing"
	"time"

	"yieldgate/internal/dto"
	"yieldgate/internal/ledger"
	"yieldgate/internal/models"
	"yieldgate/internal/rate"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	alice = "0x00000000000000000000000000000000000000a1"
	bob   = "0x00000000000000000000000000000000000000b2"
)

func TestDepositLocksCompositeRate(t *testing.T) {
	store := newTestStore(t)
	seedVault(t, store, defaultTestParams())
	require.NoError(t, store.DB().Create(&models.Tier{Threshold: "50000", BonusBps: 100}).Error)

	vault := NewVaultService(store)

	// Empty vault: utilization 0 gives the curve's zero rate; 100000 clears
	// the 50000 tier.
	resp, err := vault.Deposit(alice, "100000")
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "100000", resp.Balance)
	assert.Equal(t, uint32(300), resp.RateBps)

	// A later deposit must not re-lock the rate.
	resp, err = vault.Deposit(alice, "100000")
	require.NoError(t, err)
	assert.Equal(t, uint32(300), resp.RateBps)
	assert.Equal(t, "200000", resp.Balance)
}

func TestDepositPolicyBounds(t *testing.T) {
	store := newTestStore(t)
	seedVault(t, store, defaultTestParams())
	vault := NewVaultService(store)

	_, err := vault.Deposit(alice, "5")
	require.ErrorIs(t, err, ErrBelowMinimum)

	_, err = vault.Deposit(alice, "2000000")
	require.ErrorIs(t, err, ErrCapExceeded)

	// Rejected deposits leave no position behind.
	balance, err := vault.GetBalance(alice)
	require.NoError(t, err)
	assert.Equal(t, "0", balance.Balance)
}

func TestWithdrawPaysBaseUnits(t *testing.T) {
	store := newTestStore(t)
	seedVault(t, store, defaultTestParams())
	vault := NewVaultService(store)

	_, err := vault.Deposit(alice, "1000")
	require.NoError(t, err)

	resp, err := vault.Withdraw(alice, "400", "")
	require.NoError(t, err)
	assert.Equal(t, "400", resp.Payout)
	assert.Equal(t, "600", resp.Balance)

	status, err := vault.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, "600", status.TotalDeposited)
	assert.Equal(t, "600", status.TotalSupply)
}

func TestWithdrawSlippageFloor(t *testing.T) {
	store := newTestStore(t)
	seedVault(t, store, defaultTestParams())
	vault := NewVaultService(store)

	_, err := vault.Deposit(alice, "1000")
	require.NoError(t, err)

	_, err = vault.Withdraw(alice, "400", "500")
	require.ErrorIs(t, err, ErrSlippageExceeded)

	balance, err := vault.GetBalance(alice)
	require.NoError(t, err)
	assert.Equal(t, "1000", balance.Balance)
}

func TestWithdrawOverdraw(t *testing.T) {
	store := newTestStore(t)
	seedVault(t, store, defaultTestParams())
	vault := NewVaultService(store)

	_, err := vault.Deposit(alice, "1000")
	require.NoError(t, err)

	_, err = vault.Withdraw(alice, "1001", "")
	require.ErrorIs(t, err, ErrInsufficientLiquidity)
}

func TestAccrualNotDue(t *testing.T) {
	store := newTestStore(t)
	seedVault(t, store, defaultTestParams())
	vault := NewVaultService(store)

	_, err := vault.Deposit(alice, "1000")
	require.NoError(t, err)

	_, _, err = vault.Accrue()
	require.ErrorIs(t, err, ErrAccrualNotDue)
}

func TestAccrualCreditsLockedRate(t *testing.T) {
	params := defaultTestParams()
	params.MaxDeposits = "1000000000000"
	store := newTestStore(t)
	seedVault(t, store, params)
	vault := NewVaultService(store)

	// 1e9 at the zero-utilization rate of 200 bps.
	_, err := vault.Deposit(alice, "1000000000")
	require.NoError(t, err)

	backdateAccrual(t, store, time.Now().UTC().Add(-365*24*time.Hour))

	credited, fee, err := vault.Accrue()
	require.NoError(t, err)
	// One year at 200 bps on 1e9 is exactly 2% = 2e7. The realized return is
	// below the 500 bps target, so no fee.
	assert.Equal(t, big.NewInt(20_000_000), credited)
	assert.Zero(t, fee.Sign())

	balance, err := vault.GetBalance(alice)
	require.NoError(t, err)
	assert.Equal(t, "1020000000", balance.Balance)

	// The minted interest has no deposit backing yet.
	status, err := vault.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, "1000000000", status.TotalDeposited)
	assert.Equal(t, "1020000000", status.TotalSupply)

	// So the full balance cannot be withdrawn until liquidity catches up.
	_, err = vault.Withdraw(alice, "1020000000", "")
	require.ErrorIs(t, err, ErrInsufficientLiquidity)
	resp, err := vault.Withdraw(alice, "1000000000", "")
	require.NoError(t, err)
	assert.Equal(t, "1000000000", resp.Payout)
}

func TestAccrualDailyCapClamp(t *testing.T) {
	params := defaultTestParams()
	params.MaxDeposits = "1000000000000"
	params.DailyAccrualCap = "100"
	store := newTestStore(t)
	seedVault(t, store, params)
	vault := NewVaultService(store)

	_, err := vault.Deposit(alice, "1000000000")
	require.NoError(t, err)

	// 25h elapsed: the window cap is 100 * 90000 / 86400 = 104 units.
	backdateAccrual(t, store, time.Now().UTC().Add(-25*time.Hour))

	credited, fee, err := vault.Accrue()
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(104), credited)
	assert.Zero(t, fee.Sign())
}

func TestAccrualPerformanceFee(t *testing.T) {
	params := defaultTestParams()
	params.MaxDeposits = "1000000000000"
	params.TargetRateBps = 0
	params.FeeShareBps = 1000
	store := newTestStore(t)
	seedVault(t, store, params)
	vault := NewVaultService(store)

	_, err := vault.Deposit(alice, "1000000000")
	require.NoError(t, err)

	backdateAccrual(t, store, time.Now().UTC().Add(-365*24*time.Hour))

	credited, fee, err := vault.Accrue()
	require.NoError(t, err)
	// Zero target: the whole 2e7 gain is excess, 10% goes to the fee
	// recipient, the rest is credited.
	assert.Equal(t, big.NewInt(2_000_000), fee)
	assert.Equal(t, big.NewInt(18_000_000), credited)

	feeBalance, err := vault.GetBalance(params.FeeRecipient)
	require.NoError(t, err)
	assert.Equal(t, "2000000", feeBalance.Balance)

	balance, err := vault.GetBalance(alice)
	require.NoError(t, err)
	assert.Equal(t, "1018000000", balance.Balance)
}

func TestAccrualSplitsProRata(t *testing.T) {
	params := defaultTestParams()
	params.MaxDeposits = "1000000000000"
	// Flat curve so both deposits lock 200 bps regardless of utilization.
	params.RateAtKinkBps = 200
	params.RateAtMaxBps = 200
	store := newTestStore(t)
	seedVault(t, store, params)
	vault := NewVaultService(store)

	// Both lock the same 200 bps rate, with a 3:1 principal split.
	_, err := vault.Deposit(alice, "3000000000")
	require.NoError(t, err)
	_, err = vault.Deposit(bob, "1000000000")
	require.NoError(t, err)

	backdateAccrual(t, store, time.Now().UTC().Add(-365*24*time.Hour))

	credited, _, err := vault.Accrue()
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(80_000_000), credited)

	aliceBalance, err := vault.GetBalance(alice)
	require.NoError(t, err)
	bobBalance, err := vault.GetBalance(bob)
	require.NoError(t, err)
	assert.Equal(t, "3060000000", aliceBalance.Balance)
	assert.Equal(t, "1020000000", bobBalance.Balance)
}

func TestLockLifecycle(t *testing.T) {
	params := defaultTestParams()
	params.MinLockSeconds = 3600
	store := newTestStore(t)
	seedVault(t, store, params)
	vault := NewVaultService(store)

	_, err := vault.Deposit(alice, "1000")
	require.NoError(t, err)

	_, err = vault.LockDeposit(alice, "500", 60)
	require.ErrorIs(t, err, ErrInvalidDuration)

	_, err = vault.LockDeposit(alice, "2000", 3600)
	require.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	// The full-duration lock pays the full configured bonus.
	lock, err := vault.LockDeposit(alice, "500", params.MaxLockSeconds)
	require.NoError(t, err)
	assert.Equal(t, uint32(500), lock.BonusRateBps)

	_, err = vault.LockDeposit(alice, "100", 3600)
	require.ErrorIs(t, err, ErrLockActive)

	err = vault.UnlockDeposit(alice)
	require.ErrorIs(t, err, ErrLockNotExpired)

	err = vault.UnlockDeposit(bob)
	require.ErrorIs(t, err, ErrNoActiveLock)
}

func TestLockBonusScalesLinearly(t *testing.T) {
	params := defaultTestParams()
	store := newTestStore(t)
	seedVault(t, store, params)
	vault := NewVaultService(store)

	_, err := vault.Deposit(alice, "1000")
	require.NoError(t, err)

	// Half the maximum duration earns half the maximum bonus.
	lock, err := vault.LockDeposit(alice, "500", params.MaxLockSeconds/2)
	require.NoError(t, err)
	assert.Equal(t, uint32(250), lock.BonusRateBps)
}

func TestExpiredLockUnlocks(t *testing.T) {
	store := newTestStore(t)
	seedVault(t, store, defaultTestParams())
	vault := NewVaultService(store)

	_, err := vault.Deposit(alice, "1000")
	require.NoError(t, err)

	// Zero-duration lock expires immediately.
	_, err = vault.LockDeposit(alice, "500", 0)
	require.NoError(t, err)
	require.NoError(t, vault.UnlockDeposit(alice))

	balance, err := vault.GetBalance(alice)
	require.NoError(t, err)
	assert.Empty(t, balance.LockAmount)
}

func TestQuoteCompositeRate(t *testing.T) {
	params := defaultTestParams()
	store := newTestStore(t)
	seedVault(t, store, params)
	require.NoError(t, store.DB().Create(&models.Tier{Threshold: "10000", BonusBps: 200}).Error)
	require.NoError(t, store.DB().Model(&models.VaultState{}).Where("id = ?", 1).
		Update("total_deposited", "800000").Error)
	require.NoError(t, store.DB().Create(&models.DepositLock{
		Account:      alice,
		LockedAmount: "1000",
		UnlockAt:     time.Now().UTC().Add(time.Hour),
		BonusRateBps: 500,
	}).Error)

	vault := NewVaultService(store)

	// Utilization sits exactly at the kink: 800 base + 200 tier + 500 lock.
	quote, err := vault.QuoteRate(alice, "10000")
	require.NoError(t, err)
	assert.Equal(t, uint32(8000), quote.UtilizationBps)
	assert.Equal(t, uint32(800), quote.BaseRateBps)
	assert.Equal(t, uint32(200), quote.TierBonusBps)
	assert.Equal(t, uint32(500), quote.LockBonusBps)
	assert.Equal(t, uint32(1500), quote.CompositeRateBps)
}

func TestPauseBlocksMutations(t *testing.T) {
	store := newTestStore(t)
	seedVault(t, store, defaultTestParams())
	vault := NewVaultService(store)

	_, err := vault.Deposit(alice, "1000")
	require.NoError(t, err)
	require.NoError(t, vault.SetPaused(true))

	_, err = vault.Deposit(alice, "1000")
	require.ErrorIs(t, err, ErrPaused)
	_, err = vault.Withdraw(alice, "100", "")
	require.ErrorIs(t, err, ErrPaused)
	_, _, err = vault.Accrue()
	require.ErrorIs(t, err, ErrPaused)
	_, err = vault.LockDeposit(alice, "100", 0)
	require.ErrorIs(t, err, ErrPaused)

	require.NoError(t, vault.SetPaused(false))
	_, err = vault.Withdraw(alice, "100", "")
	require.NoError(t, err)
}

func TestSetTiersRejectsUnsortedTable(t *testing.T) {
	store := newTestStore(t)
	seedVault(t, store, defaultTestParams())
	vault := NewVaultService(store)

	err := vault.SetTiers([]models.Tier{
		{Threshold: "1000", BonusBps: 100},
		{Threshold: "1000", BonusBps: 200},
	})
	require.ErrorIs(t, err, rate.ErrInvalidTiers)

	require.NoError(t, vault.SetTiers([]models.Tier{
		{Threshold: "1000", BonusBps: 100},
		{Threshold: "5000", BonusBps: 200},
	}))
}

func TestUpdateParamsValidatesCurve(t *testing.T) {
	store := newTestStore(t)
	seedVault(t, store, defaultTestParams())
	vault := NewVaultService(store)

	bad := uint32(0)
	_, err := vault.UpdateParams(&dto.UpdateVaultParamsRequest{KinkBps: &bad})
	require.ErrorIs(t, err, rate.ErrInvalidCurve)

	newMin := "25"
	updated, err := vault.UpdateParams(&dto.UpdateVaultParamsRequest{MinDeposit: &newMin})
	require.NoError(t, err)
	assert.Equal(t, "25", updated.MinDeposit)

	_, err = vault.Deposit(alice, "20")
	require.ErrorIs(t, err, ErrBelowMinimum)
}

func TestUpdateParamsValidatesFeeRecipient(t *testing.T) {
	store := newTestStore(t)
	seedVault(t, store, defaultTestParams())
	vault := NewVaultService(store)

	bad := "not-an-address"
	_, err := vault.UpdateParams(&dto.UpdateVaultParamsRequest{FeeRecipient: &bad})
	require.Error(t, err)

	// The rejected update must not leave the default recipient overwritten.
	var params models.VaultParams
	require.NoError(t, store.DB().First(&params, 1).Error)
	assert.Equal(t, defaultTestParams().FeeRecipient, params.FeeRecipient)

	mixed := "0x00000000000000000000000000000000000000AB"
	updated, err := vault.UpdateParams(&dto.UpdateVaultParamsRequest{FeeRecipient: &mixed})
	require.NoError(t, err)
	assert.Equal(t, "0x00000000000000000000000000000000000000ab", updated.FeeRecipient)
}
