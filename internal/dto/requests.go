package dto

import "time"

// ==================== Vault DTOs ====================

// DepositRequest deposit value into the vault
type DepositRequest struct {
	Amount string `json:"amount" binding:"required"` // decimal string
}

// WithdrawRequest withdraw value from the vault
type WithdrawRequest struct {
	Amount    string `json:"amount" binding:"required"` // decimal string
	MinPayout string `json:"min_payout,omitempty"`      // slippage floor, optional
}

// LockRequest lock a deposit for a rate bonus
type LockRequest struct {
	Amount          string `json:"amount" binding:"required"`
	DurationSeconds int64  `json:"duration_seconds" binding:"required"`
}

// ExtendLockRequest extend an active lock
type ExtendLockRequest struct {
	DurationSeconds int64 `json:"duration_seconds" binding:"required"`
}

// VaultOpResponse result of a vault mutation
type VaultOpResponse struct {
	Success bool   `json:"success"`
	Balance string `json:"balance,omitempty"`
	Payout  string `json:"payout,omitempty"`
	RateBps uint32 `json:"rate_bps,omitempty"`
	Message string `json:"message,omitempty"`
}

// BalanceResponse account position snapshot
type BalanceResponse struct {
	Address       string     `json:"address"`
	Balance       string     `json:"balance"`
	Shares        string     `json:"shares"`
	LockedRateBps uint32     `json:"locked_rate_bps"`
	LockAmount    string     `json:"lock_amount,omitempty"`
	LockUnlockAt  *time.Time `json:"lock_unlock_at,omitempty"`
	LockBonusBps  uint32     `json:"lock_bonus_bps,omitempty"`
}

// VaultStatusResponse vault-wide snapshot
type VaultStatusResponse struct {
	TotalDeposited string    `json:"total_deposited"`
	TotalSupply    string    `json:"total_supply"`
	TotalShares    string    `json:"total_shares"`
	UtilizationBps uint32    `json:"utilization_bps"`
	CurrentRateBps uint32    `json:"current_rate_bps"`
	Paused         bool      `json:"paused"`
	LastAccrualAt  time.Time `json:"last_accrual_at"`
	NextAccrualDue time.Time `json:"next_accrual_due"`
}

// RateQuoteResponse composite rate preview for a hypothetical deposit
type RateQuoteResponse struct {
	BaseRateBps      uint32 `json:"base_rate_bps"`
	TierBonusBps     uint32 `json:"tier_bonus_bps"`
	LockBonusBps     uint32 `json:"lock_bonus_bps"`
	CompositeRateBps uint32 `json:"composite_rate_bps"`
	UtilizationBps   uint32 `json:"utilization_bps"`
}

// ==================== Gateway DTOs ====================

// TransferOutRequest single-recipient cross-ledger transfer
type TransferOutRequest struct {
	DestChainID uint32 `json:"dest_chain_id" binding:"required"`
	Recipient   string `json:"recipient" binding:"required"`
	Amount      string `json:"amount" binding:"required"`
}

// CreateBatchRequest stage a multi-recipient transfer
type CreateBatchRequest struct {
	DestChainID uint32   `json:"dest_chain_id" binding:"required"`
	Recipients  []string `json:"recipients" binding:"required"`
	Amounts     []string `json:"amounts" binding:"required"`
}

// ExecuteBatchRequest execute a staged batch
type ExecuteBatchRequest struct {
	BatchID uint64 `json:"batch_id" binding:"required"`
}

// SetRouteRequest register or update a composable route (admin)
type SetRouteRequest struct {
	RouteID     string `json:"route_id" binding:"required"`
	TargetChain uint32 `json:"target_chain" binding:"required"`
	TargetRef   string `json:"target_ref" binding:"required"`
	Payload     string `json:"payload,omitempty"`
}

// ExecuteRouteRequest send value through a registered route
type ExecuteRouteRequest struct {
	RouteID string `json:"route_id" binding:"required"`
	Amount  string `json:"amount" binding:"required"`
}

// TransferResponse result of an outbound transfer, batch or route execution
type TransferResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	BatchID   uint64 `json:"batch_id,omitempty"`
	Message   string `json:"message,omitempty"`
}

// ==================== Admin DTOs ====================

// UpdateVaultParamsRequest admin mutation of vault parameters. Pointer
// fields are applied only when present.
type UpdateVaultParamsRequest struct {
	KinkBps       *uint32 `json:"kink_bps,omitempty"`
	RateAtZeroBps *uint32 `json:"rate_at_zero_bps,omitempty"`
	RateAtKinkBps *uint32 `json:"rate_at_kink_bps,omitempty"`
	RateAtMaxBps  *uint32 `json:"rate_at_max_bps,omitempty"`

	MinDeposit  *string `json:"min_deposit,omitempty"`
	MaxDeposits *string `json:"max_deposits,omitempty"`

	AccrualPeriodSeconds *int64  `json:"accrual_period_seconds,omitempty"`
	DailyAccrualCap      *string `json:"daily_accrual_cap,omitempty"`

	TargetRateBps *uint32 `json:"target_rate_bps,omitempty"`
	FeeShareBps   *uint32 `json:"fee_share_bps,omitempty"`
	FeeRecipient  *string `json:"fee_recipient,omitempty"`

	MinLockSeconds  *int64  `json:"min_lock_seconds,omitempty"`
	MaxLockSeconds  *int64  `json:"max_lock_seconds,omitempty"`
	MaxLockBonusBps *uint32 `json:"max_lock_bonus_bps,omitempty"`
}

// UpdateChainConfigRequest admin mutation of a counterparty chain
type UpdateChainConfigRequest struct {
	ChainID            uint32  `json:"chain_id" binding:"required"`
	Name               *string `json:"name,omitempty"`
	Enabled            *bool   `json:"enabled,omitempty"`
	Allowlisted        *bool   `json:"allowlisted,omitempty"`
	MinTransfer        *string `json:"min_transfer,omitempty"`
	MaxTransfer        *string `json:"max_transfer,omitempty"`
	BucketCapacity     *string `json:"bucket_capacity,omitempty"`
	BucketRefillPerSec *string `json:"bucket_refill_per_sec,omitempty"`
}

// SetPauseRequest admin pause/unpause of the vault and gateway
type SetPauseRequest struct {
	Paused bool `json:"paused"`
}
