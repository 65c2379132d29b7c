package services

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"yieldgate/internal/dto"
	"yieldgate/internal/ledger"
	"yieldgate/internal/metrics"
	"yieldgate/internal/models"
	"yieldgate/internal/rate"
	"yieldgate/internal/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// VaultService owns deposits, withdrawals, locks and the time-gated accrual
// run. Tokens are denominated in base-asset units: a deposit mints the
// deposited amount one-to-one and locks the composite rate for fresh
// accounts; accrual mints interest per account, which can push totalSupply
// above the deposited backing until liquidity catches up.
type VaultService struct {
	store *LedgerStore
	log   *logrus.Entry
}

// NewVaultService creates a new VaultService over the shared ledger store.
func NewVaultService(store *LedgerStore) *VaultService {
	return &VaultService{
		store: store,
		log:   logrus.WithField("service", "vault"),
	}
}

// Deposit credits amount to address at the composite rate computed at
// deposit time. Fails BelowMinimum/CapExceeded per configured bounds.
func (s *VaultService) Deposit(address, amountStr string) (*dto.VaultOpResponse, error) {
	amount, err := utils.ParseAmount(amountStr)
	if err != nil {
		return nil, err
	}
	if amount.Sign() == 0 {
		return nil, fmt.Errorf("deposit: %w", ErrBelowMinimum)
	}

	now := time.Now().UTC()
	var resp *dto.VaultOpResponse
	err = s.store.WithTx(func(tx *gorm.DB) error {
		vault, err := loadVaultState(tx)
		if err != nil {
			return err
		}
		if vault.Paused {
			return ErrPaused
		}
		params, err := loadVaultParams(tx)
		if err != nil {
			return err
		}

		minDeposit := utils.MustParseAmount(params.MinDeposit)
		if amount.Cmp(minDeposit) < 0 {
			return fmt.Errorf("deposit of %s: %w", amountStr, ErrBelowMinimum)
		}
		totalDeposited := utils.MustParseAmount(vault.TotalDeposited)
		maxDeposits := utils.MustParseAmount(params.MaxDeposits)
		newTotal := new(big.Int).Add(totalDeposited, amount)
		if maxDeposits.Sign() > 0 && newTotal.Cmp(maxDeposits) > 0 {
			return fmt.Errorf("deposit of %s: %w", amountStr, ErrCapExceeded)
		}

		rateBps, err := compositeRateFor(tx, params, totalDeposited, amount, address, now)
		if err != nil {
			return err
		}

		ledgerRow, state, err := loadLedgerState(tx)
		if err != nil {
			return err
		}
		account, entry, err := loadAccountEntry(tx, address, now)
		if err != nil {
			return err
		}
		if err := ledger.Mint(state, entry, amount, rateBps); err != nil {
			return err
		}

		principal := utils.MustParseAmount(account.DepositedPrincipal)
		account.DepositedPrincipal = utils.FormatAmount(principal.Add(principal, amount))
		if err := saveAccountEntry(tx, account, entry); err != nil {
			return err
		}
		if err := saveLedgerState(tx, ledgerRow, state); err != nil {
			return err
		}

		vault.TotalDeposited = utils.FormatAmount(newTotal)
		if err := tx.Save(vault).Error; err != nil {
			return err
		}

		publishSupplyMetrics(state, newTotal, maxDeposits)
		resp = &dto.VaultOpResponse{
			Success: true,
			Balance: utils.FormatAmount(ledger.Balance(state, entry)),
			RateBps: entry.RateBps,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.DepositsTotal.Inc()
	s.log.WithFields(logrus.Fields{
		"address": address,
		"amount":  amountStr,
		"rateBps": resp.RateBps,
	}).Info("deposit credited")
	return resp, nil
}

// Withdraw burns amount from address and pays it out of the vault backing.
// Fails SlippageExceeded below minPayout, InsufficientLiquidity when the
// backing cannot cover the payout.
func (s *VaultService) Withdraw(address, amountStr, minPayoutStr string) (*dto.VaultOpResponse, error) {
	amount, err := utils.ParseAmount(amountStr)
	if err != nil {
		return nil, err
	}
	var minPayout *big.Int
	if minPayoutStr != "" {
		if minPayout, err = utils.ParseAmount(minPayoutStr); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	var resp *dto.VaultOpResponse
	err = s.store.WithTx(func(tx *gorm.DB) error {
		vault, err := loadVaultState(tx)
		if err != nil {
			return err
		}
		if vault.Paused {
			return ErrPaused
		}

		payout := new(big.Int).Set(amount)
		if minPayout != nil && payout.Cmp(minPayout) < 0 {
			return fmt.Errorf("payout %s below minimum %s: %w",
				payout, minPayout, ErrSlippageExceeded)
		}
		totalDeposited := utils.MustParseAmount(vault.TotalDeposited)
		if payout.Cmp(totalDeposited) > 0 {
			return fmt.Errorf("payout %s exceeds backing %s: %w",
				payout, totalDeposited, ErrInsufficientLiquidity)
		}

		ledgerRow, state, err := loadLedgerState(tx)
		if err != nil {
			return err
		}
		account, entry, err := loadAccountEntry(tx, address, now)
		if err != nil {
			return err
		}
		if err := ledger.Burn(state, entry, amount); err != nil {
			return err
		}

		principal := utils.MustParseAmount(account.DepositedPrincipal)
		if principal.Cmp(amount) <= 0 {
			principal.SetInt64(0)
		} else {
			principal.Sub(principal, amount)
		}
		account.DepositedPrincipal = utils.FormatAmount(principal)
		if err := saveAccountEntry(tx, account, entry); err != nil {
			return err
		}
		if err := saveLedgerState(tx, ledgerRow, state); err != nil {
			return err
		}

		totalDeposited.Sub(totalDeposited, payout)
		vault.TotalDeposited = utils.FormatAmount(totalDeposited)
		if err := tx.Save(vault).Error; err != nil {
			return err
		}

		params, err := loadVaultParams(tx)
		if err != nil {
			return err
		}
		publishSupplyMetrics(state, totalDeposited, utils.MustParseAmount(params.MaxDeposits))
		resp = &dto.VaultOpResponse{
			Success: true,
			Balance: utils.FormatAmount(ledger.Balance(state, entry)),
			Payout:  utils.FormatAmount(payout),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.WithdrawalsTotal.Inc()
	s.log.WithFields(logrus.Fields{
		"address": address,
		"amount":  amountStr,
		"payout":  resp.Payout,
	}).Info("withdrawal paid")
	return resp, nil
}

// Accrue runs one accrual pass: interest per account from its locked rate
// over its own elapsed window, clamped in total by the daily cap, net of the
// performance fee minted to the fee recipient. Callable only once the
// accrual period has elapsed.
func (s *VaultService) Accrue() (credited, fee *big.Int, err error) {
	now := time.Now().UTC()
	err = s.store.WithTx(func(tx *gorm.DB) error {
		vault, err := loadVaultState(tx)
		if err != nil {
			return err
		}
		if vault.Paused {
			return ErrPaused
		}
		params, err := loadVaultParams(tx)
		if err != nil {
			return err
		}

		elapsed := now.Sub(vault.LastAccrualAt)
		if elapsed < time.Duration(params.AccrualPeriodSeconds)*time.Second {
			return fmt.Errorf("next accrual at %s: %w",
				vault.LastAccrualAt.Add(time.Duration(params.AccrualPeriodSeconds)*time.Second).Format(time.RFC3339),
				ErrAccrualNotDue)
		}

		ledgerRow, state, err := loadLedgerState(tx)
		if err != nil {
			return err
		}

		var accounts []models.Account
		if err := tx.Where("shares <> ?", "0").Order("address ASC").Find(&accounts).Error; err != nil {
			return err
		}

		// Gross interest per account over each account's own window.
		type pending struct {
			row      *models.Account
			entry    *ledger.Entry
			interest *big.Int
		}
		gross := new(big.Int)
		work := make([]pending, 0, len(accounts))
		for i := range accounts {
			row := &accounts[i]
			entry := &ledger.Entry{
				Shares:  utils.MustParseAmount(row.Shares),
				RateBps: row.LockedRateBps,
			}
			window := now.Sub(row.LastAccrualAt)
			if window <= 0 {
				window = 0
			}
			interest := rate.InterestFor(ledger.Balance(state, entry), entry.RateBps, window)
			gross.Add(gross, interest)
			work = append(work, pending{row: row, entry: entry, interest: interest})
		}

		// Circuit breaker: clamp the run's total at the daily cap scaled to
		// the elapsed window. Excess is dropped, not carried forward.
		allowed := new(big.Int).Set(gross)
		dailyCap := utils.MustParseAmount(params.DailyAccrualCap)
		if dailyCap.Sign() > 0 {
			windowCap := new(big.Int).Mul(dailyCap, big.NewInt(int64(elapsed/time.Second)))
			windowCap.Div(windowCap, big.NewInt(86400))
			if allowed.Cmp(windowCap) > 0 {
				allowed.Set(windowCap)
				metrics.AccrualCapHitsTotal.Inc()
				s.log.WithFields(logrus.Fields{
					"gross":   gross.String(),
					"allowed": allowed.String(),
				}).Warn("accrual clamped by daily cap")
			}
		}

		// Performance fee on the clamped gain, taken before crediting.
		initial := new(big.Int).Set(state.TotalSupply)
		current := new(big.Int).Add(initial, allowed)
		feeAmount := new(big.Int)
		if initial.Sign() > 0 && params.FeeShareBps > 0 {
			feeAmount = rate.PerformanceFee(current, initial, elapsed, params.TargetRateBps, params.FeeShareBps)
		}
		net := new(big.Int).Sub(allowed, feeAmount)

		// Credit each account its proportional share of the net amount.
		if gross.Sign() > 0 && net.Sign() > 0 {
			for _, p := range work {
				credit := new(big.Int).Mul(p.interest, net)
				credit.Div(credit, gross)
				if credit.Sign() == 0 {
					continue
				}
				if err := ledger.Mint(state, p.entry, credit, p.entry.RateBps); err != nil {
					if errors.Is(err, ledger.ErrInvalidAmount) {
						continue
					}
					return err
				}
				if err := saveAccountEntry(tx, p.row, p.entry); err != nil {
					return err
				}
			}
		}
		if feeAmount.Sign() > 0 && params.FeeRecipient != "" {
			feeRow, feeEntry, err := loadAccountEntry(tx, params.FeeRecipient, now)
			if err != nil {
				return err
			}
			if err := ledger.Mint(state, feeEntry, feeAmount, feeEntry.RateBps); err != nil && !errors.Is(err, ledger.ErrInvalidAmount) {
				return err
			}
			if err := saveAccountEntry(tx, feeRow, feeEntry); err != nil {
				return err
			}
		}

		// Advance every participating clock whether or not interest rounded
		// to zero.
		for _, p := range work {
			p.row.LastAccrualAt = now
			if err := tx.Save(p.row).Error; err != nil {
				return err
			}
		}
		vault.LastAccrualAt = now
		if err := tx.Save(vault).Error; err != nil {
			return err
		}
		if err := saveLedgerState(tx, ledgerRow, state); err != nil {
			return err
		}

		credited = net
		fee = feeAmount
		publishSupplyMetrics(state, utils.MustParseAmount(vault.TotalDeposited), utils.MustParseAmount(params.MaxDeposits))
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	metrics.AccrualRunsTotal.WithLabelValues("ok").Inc()
	s.log.WithFields(logrus.Fields{
		"credited": credited.String(),
		"fee":      fee.String(),
	}).Info("accrual run complete")
	return credited, fee, nil
}

// LockDeposit creates the single active lock for address. The bonus rate
// scales linearly with duration up to the configured maximum.
func (s *VaultService) LockDeposit(address, amountStr string, durationSeconds int64) (*models.DepositLock, error) {
	amount, err := utils.ParseAmount(amountStr)
	if err != nil {
		return nil, err
	}
	if amount.Sign() == 0 {
		return nil, fmt.Errorf("lock amount must be positive: %w", ErrBelowMinimum)
	}

	now := time.Now().UTC()
	var lock *models.DepositLock
	err = s.store.WithTx(func(tx *gorm.DB) error {
		vault, err := loadVaultState(tx)
		if err != nil {
			return err
		}
		if vault.Paused {
			return ErrPaused
		}
		params, err := loadVaultParams(tx)
		if err != nil {
			return err
		}
		if durationSeconds < params.MinLockSeconds || durationSeconds > params.MaxLockSeconds {
			return fmt.Errorf("duration %ds outside [%d, %d]: %w",
				durationSeconds, params.MinLockSeconds, params.MaxLockSeconds, ErrInvalidDuration)
		}

		var existing models.DepositLock
		if err := tx.First(&existing, "account = ?", address).Error; err == nil {
			return fmt.Errorf("lock until %s: %w", existing.UnlockAt.Format(time.RFC3339), ErrLockActive)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		_, state, err := loadLedgerState(tx)
		if err != nil {
			return err
		}
		_, entry, err := loadAccountEntry(tx, address, now)
		if err != nil {
			return err
		}
		if ledger.Balance(state, entry).Cmp(amount) < 0 {
			return fmt.Errorf("lock of %s: %w", amountStr, ledger.ErrInsufficientBalance)
		}

		lock = &models.DepositLock{
			Account:      address,
			LockedAmount: utils.FormatAmount(amount),
			UnlockAt:     now.Add(time.Duration(durationSeconds) * time.Second),
			BonusRateBps: lockBonusFor(params, durationSeconds),
		}
		return tx.Create(lock).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"address":  address,
		"amount":   amountStr,
		"unlockAt": lock.UnlockAt,
		"bonusBps": lock.BonusRateBps,
	}).Info("deposit locked")
	return lock, nil
}

// ExtendLock pushes the unlock time of the active lock further out. The
// bonus is recomputed from the total remaining duration.
func (s *VaultService) ExtendLock(address string, durationSeconds int64) (*models.DepositLock, error) {
	if durationSeconds <= 0 {
		return nil, ErrInvalidDuration
	}
	now := time.Now().UTC()
	var lock *models.DepositLock
	err := s.store.WithTx(func(tx *gorm.DB) error {
		vault, err := loadVaultState(tx)
		if err != nil {
			return err
		}
		if vault.Paused {
			return ErrPaused
		}
		params, err := loadVaultParams(tx)
		if err != nil {
			return err
		}

		var existing models.DepositLock
		if err := tx.First(&existing, "account = ?", address).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoActiveLock
			}
			return err
		}

		newUnlock := existing.UnlockAt.Add(time.Duration(durationSeconds) * time.Second)
		remaining := int64(newUnlock.Sub(now) / time.Second)
		if remaining > params.MaxLockSeconds {
			return fmt.Errorf("remaining duration %ds exceeds maximum %ds: %w",
				remaining, params.MaxLockSeconds, ErrInvalidDuration)
		}
		existing.UnlockAt = newUnlock
		existing.BonusRateBps = lockBonusFor(params, remaining)
		if err := tx.Save(&existing).Error; err != nil {
			return err
		}
		lock = &existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lock, nil
}

// UnlockDeposit destroys the active lock once it has expired.
func (s *VaultService) UnlockDeposit(address string) error {
	now := time.Now().UTC()
	return s.store.WithTx(func(tx *gorm.DB) error {
		var existing models.DepositLock
		if err := tx.First(&existing, "account = ?", address).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoActiveLock
			}
			return err
		}
		if now.Before(existing.UnlockAt) {
			return fmt.Errorf("unlocks at %s: %w", existing.UnlockAt.Format(time.RFC3339), ErrLockNotExpired)
		}
		return tx.Delete(&existing).Error
	})
}

// GetBalance returns the account position snapshot.
func (s *VaultService) GetBalance(address string) (*dto.BalanceResponse, error) {
	tx := s.store.DB()
	_, state, err := loadLedgerState(tx)
	if err != nil {
		return nil, err
	}

	resp := &dto.BalanceResponse{Address: address, Balance: "0", Shares: "0"}
	var account models.Account
	err = tx.First(&account, "address = ?", address).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return resp, nil
	}
	if err != nil {
		return nil, err
	}

	entry := &ledger.Entry{
		Shares:  utils.MustParseAmount(account.Shares),
		RateBps: account.LockedRateBps,
	}
	resp.Balance = utils.FormatAmount(ledger.Balance(state, entry))
	resp.Shares = account.Shares
	resp.LockedRateBps = account.LockedRateBps

	var lock models.DepositLock
	if err := tx.First(&lock, "account = ?", address).Error; err == nil {
		resp.LockAmount = lock.LockedAmount
		resp.LockUnlockAt = &lock.UnlockAt
		resp.LockBonusBps = lock.BonusRateBps
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return resp, nil
}

// GetStatus returns the vault-wide snapshot.
func (s *VaultService) GetStatus() (*dto.VaultStatusResponse, error) {
	tx := s.store.DB()
	vault, err := loadVaultState(tx)
	if err != nil {
		return nil, err
	}
	params, err := loadVaultParams(tx)
	if err != nil {
		return nil, err
	}
	_, state, err := loadLedgerState(tx)
	if err != nil {
		return nil, err
	}

	totalDeposited := utils.MustParseAmount(vault.TotalDeposited)
	util := rate.Utilization(totalDeposited, utils.MustParseAmount(params.MaxDeposits))
	curve := curveFrom(params)
	return &dto.VaultStatusResponse{
		TotalDeposited: vault.TotalDeposited,
		TotalSupply:    utils.FormatAmount(state.TotalSupply),
		TotalShares:    utils.FormatAmount(state.TotalShares),
		UtilizationBps: util,
		CurrentRateBps: curve.BaseRate(util),
		Paused:         vault.Paused,
		LastAccrualAt:  vault.LastAccrualAt,
		NextAccrualDue: vault.LastAccrualAt.Add(time.Duration(params.AccrualPeriodSeconds) * time.Second),
	}, nil
}

// QuoteRate previews the composite rate a deposit of amount by address
// would lock right now.
func (s *VaultService) QuoteRate(address, amountStr string) (*dto.RateQuoteResponse, error) {
	amount, err := utils.ParseAmount(amountStr)
	if err != nil {
		return nil, err
	}
	tx := s.store.DB()
	vault, err := loadVaultState(tx)
	if err != nil {
		return nil, err
	}
	params, err := loadVaultParams(tx)
	if err != nil {
		return nil, err
	}
	tiers, err := loadTiers(tx)
	if err != nil {
		return nil, err
	}
	lock, err := loadRateLock(tx, address)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	curve := curveFrom(params)
	util := rate.Utilization(utils.MustParseAmount(vault.TotalDeposited), utils.MustParseAmount(params.MaxDeposits))
	base := curve.BaseRate(util)
	tierBonus := rate.TierBonus(tiers, amount)
	lockBonus := rate.LockBonus(lock, now)
	return &dto.RateQuoteResponse{
		BaseRateBps:      base,
		TierBonusBps:     tierBonus,
		LockBonusBps:     lockBonus,
		CompositeRateBps: base + tierBonus + lockBonus,
		UtilizationBps:   util,
	}, nil
}

// ---- admin operations ----

// UpdateParams applies an admin mutation to the vault parameters. The
// resulting curve and bounds are validated before commit.
func (s *VaultService) UpdateParams(req *dto.UpdateVaultParamsRequest) (*models.VaultParams, error) {
	var updated *models.VaultParams
	err := s.store.WithTx(func(tx *gorm.DB) error {
		params, err := loadVaultParams(tx)
		if err != nil {
			return err
		}
		if err := applyParamUpdates(params, req); err != nil {
			return err
		}

		if err := curveFrom(params).Validate(); err != nil {
			return err
		}
		if params.AccrualPeriodSeconds < 3600 || params.AccrualPeriodSeconds > 7*24*3600 {
			return fmt.Errorf("accrual period %ds outside [1h, 7d]: %w", params.AccrualPeriodSeconds, ErrInvalidDuration)
		}
		if params.MinLockSeconds < 0 || params.MaxLockSeconds < params.MinLockSeconds {
			return fmt.Errorf("lock bounds [%d, %d]: %w", params.MinLockSeconds, params.MaxLockSeconds, ErrInvalidDuration)
		}
		if req.MinDeposit != nil {
			if _, err := utils.ParseAmount(*req.MinDeposit); err != nil {
				return err
			}
		}
		if req.MaxDeposits != nil {
			if _, err := utils.ParseAmount(*req.MaxDeposits); err != nil {
				return err
			}
		}
		if req.DailyAccrualCap != nil {
			if _, err := utils.ParseAmount(*req.DailyAccrualCap); err != nil {
				return err
			}
		}

		if err := tx.Save(params).Error; err != nil {
			return err
		}
		updated = params
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("vault params updated")
	return updated, nil
}

// SetTiers replaces the tier table. Thresholds must be strictly increasing.
func (s *VaultService) SetTiers(tiers []models.Tier) error {
	parsed := make([]rate.Tier, 0, len(tiers))
	for _, t := range tiers {
		threshold, err := utils.ParseAmount(t.Threshold)
		if err != nil {
			return err
		}
		parsed = append(parsed, rate.Tier{Threshold: threshold, BonusBps: t.BonusBps})
	}
	if err := rate.ValidateTiers(parsed); err != nil {
		return err
	}
	return s.store.WithTx(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.Tier{}).Error; err != nil {
			return err
		}
		for i := range tiers {
			row := models.Tier{Threshold: tiers[i].Threshold, BonusBps: tiers[i].BonusBps}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// SetPaused trips or clears the circuit breaker shared by the vault and the
// gateway.
func (s *VaultService) SetPaused(paused bool) error {
	err := s.store.WithTx(func(tx *gorm.DB) error {
		vault, err := loadVaultState(tx)
		if err != nil {
			return err
		}
		vault.Paused = paused
		return tx.Save(vault).Error
	})
	if err != nil {
		return err
	}
	if paused {
		metrics.VaultPaused.Set(1)
		s.log.Warn("operations paused")
	} else {
		metrics.VaultPaused.Set(0)
		s.log.Info("operations resumed")
	}
	return nil
}

// ---- helpers ----

func applyParamUpdates(params *models.VaultParams, req *dto.UpdateVaultParamsRequest) error {
	if req.KinkBps != nil {
		params.KinkBps = *req.KinkBps
	}
	if req.RateAtZeroBps != nil {
		params.RateAtZeroBps = *req.RateAtZeroBps
	}
	if req.RateAtKinkBps != nil {
		params.RateAtKinkBps = *req.RateAtKinkBps
	}
	if req.RateAtMaxBps != nil {
		params.RateAtMaxBps = *req.RateAtMaxBps
	}
	if req.MinDeposit != nil {
		params.MinDeposit = *req.MinDeposit
	}
	if req.MaxDeposits != nil {
		params.MaxDeposits = *req.MaxDeposits
	}
	if req.AccrualPeriodSeconds != nil {
		params.AccrualPeriodSeconds = *req.AccrualPeriodSeconds
	}
	if req.DailyAccrualCap != nil {
		params.DailyAccrualCap = *req.DailyAccrualCap
	}
	if req.TargetRateBps != nil {
		params.TargetRateBps = *req.TargetRateBps
	}
	if req.FeeShareBps != nil {
		params.FeeShareBps = *req.FeeShareBps
	}
	if req.FeeRecipient != nil {
		recipient, err := utils.NormalizeAddress(*req.FeeRecipient)
		if err != nil {
			return err
		}
		params.FeeRecipient = recipient
	}
	if req.MinLockSeconds != nil {
		params.MinLockSeconds = *req.MinLockSeconds
	}
	if req.MaxLockSeconds != nil {
		params.MaxLockSeconds = *req.MaxLockSeconds
	}
	if req.MaxLockBonusBps != nil {
		params.MaxLockBonusBps = *req.MaxLockBonusBps
	}
	return nil
}

func curveFrom(params *models.VaultParams) rate.Curve {
	return rate.Curve{
		KinkBps:       params.KinkBps,
		RateAtZeroBps: params.RateAtZeroBps,
		RateAtKinkBps: params.RateAtKinkBps,
		RateAtMaxBps:  params.RateAtMaxBps,
	}
}

func loadTiers(tx *gorm.DB) ([]rate.Tier, error) {
	var rows []models.Tier
	if err := tx.Order("threshold").Find(&rows).Error; err != nil {
		return nil, err
	}
	tiers := make([]rate.Tier, 0, len(rows))
	for _, row := range rows {
		tiers = append(tiers, rate.Tier{
			Threshold: utils.MustParseAmount(row.Threshold),
			BonusBps:  row.BonusBps,
		})
	}
	// Stored thresholds sort lexically; order numerically for the engine.
	for i := 1; i < len(tiers); i++ {
		for j := i; j > 0 && tiers[j].Threshold.Cmp(tiers[j-1].Threshold) < 0; j-- {
			tiers[j], tiers[j-1] = tiers[j-1], tiers[j]
		}
	}
	return tiers, nil
}

func loadRateLock(tx *gorm.DB, address string) (*rate.Lock, error) {
	var row models.DepositLock
	err := tx.First(&row, "account = ?", address).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rate.Lock{UnlockAt: row.UnlockAt, BonusBps: row.BonusRateBps}, nil
}

// compositeRateFor computes the rate a deposit locks, from pre-deposit
// utilization, the deposit's tier, and the account's active lock.
func compositeRateFor(tx *gorm.DB, params *models.VaultParams, totalDeposited, amount *big.Int, address string, now time.Time) (uint32, error) {
	curve := curveFrom(params)
	if err := curve.Validate(); err != nil {
		return 0, err
	}
	tiers, err := loadTiers(tx)
	if err != nil {
		return 0, err
	}
	lock, err := loadRateLock(tx, address)
	if err != nil {
		return 0, err
	}
	util := rate.Utilization(totalDeposited, utils.MustParseAmount(params.MaxDeposits))
	return rate.Composite(curve, util, tiers, amount, lock, now), nil
}

// lockBonusFor scales the configured maximum bonus by duration.
func lockBonusFor(params *models.VaultParams, durationSeconds int64) uint32 {
	if params.MaxLockSeconds <= 0 || params.MaxLockBonusBps == 0 {
		return 0
	}
	if durationSeconds >= params.MaxLockSeconds {
		return params.MaxLockBonusBps
	}
	return uint32(int64(params.MaxLockBonusBps) * durationSeconds / params.MaxLockSeconds)
}

func publishSupplyMetrics(state *ledger.State, totalDeposited, maxDeposits *big.Int) {
	supply, _ := new(big.Float).SetInt(state.TotalSupply).Float64()
	shares, _ := new(big.Float).SetInt(state.TotalShares).Float64()
	deposited, _ := new(big.Float).SetInt(totalDeposited).Float64()
	metrics.LedgerTotalSupply.Set(supply)
	metrics.LedgerTotalShares.Set(shares)
	metrics.VaultTotalDeposited.Set(deposited)
	metrics.VaultUtilizationBps.Set(float64(rate.Utilization(totalDeposited, maxDeposits)))
}
