package models

import (
	"time"
)

// IntentStatus tracks an outbound TransferIntent on the source ledger.
// The relay is one-way, so "delivered" only appears on intents this instance
// received; outbound intents stay pending and represent in-flight value
// (burned == minted + in-flight).
type IntentStatus string

const (
	IntentStatusPending   IntentStatus = "pending"
	IntentStatusDelivered IntentStatus = "delivered"
)

// Account is one ledger position. Shares are the invariant ownership unit;
// the balance is derived from shares and the supply totals. Amounts are
// decimal strings (uint256 range).
type Account struct {
	Address            string    `json:"address" gorm:"primaryKey;size:66"`
	Shares             string    `json:"shares" gorm:"not null;default:'0'"`
	LockedRateBps      uint32    `json:"locked_rate_bps" gorm:"not null;default:0"` // locked at first mint
	DepositedPrincipal string    `json:"deposited_principal" gorm:"not null;default:'0'"`
	LastAccrualAt      time.Time `json:"last_accrual_at"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// LedgerState is the singleton supply row (id = 1).
type LedgerState struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	TotalShares string `json:"total_shares" gorm:"not null;default:'0'"`
	TotalSupply string `json:"total_supply" gorm:"not null;default:'0'"`
	UpdatedAt   time.Time
}

// VaultState is the singleton vault row (id = 1).
type VaultState struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	TotalDeposited string    `json:"total_deposited" gorm:"not null;default:'0'"`
	LastAccrualAt  time.Time `json:"last_accrual_at"`
	Paused         bool      `json:"paused" gorm:"not null;default:false"`
	UpdatedAt      time.Time
}

// VaultParams is the singleton governance-mutable configuration row (id = 1).
// The admin API is the write path; config.yaml only seeds the first boot.
type VaultParams struct {
	ID uint `json:"id" gorm:"primaryKey"`

	// Rate curve (bps).
	KinkBps       uint32 `json:"kink_bps" gorm:"not null"`
	RateAtZeroBps uint32 `json:"rate_at_zero_bps" gorm:"not null"`
	RateAtKinkBps uint32 `json:"rate_at_kink_bps" gorm:"not null"`
	RateAtMaxBps  uint32 `json:"rate_at_max_bps" gorm:"not null"`

	// Deposit policy.
	MinDeposit  string `json:"min_deposit" gorm:"not null;default:'0'"`
	MaxDeposits string `json:"max_deposits" gorm:"not null;default:'0'"`

	// Accrual policy. Period bounded to [1h, 7d]; the daily cap is the
	// circuit breaker on credited interest.
	AccrualPeriodSeconds int64  `json:"accrual_period_seconds" gorm:"not null"`
	DailyAccrualCap      string `json:"daily_accrual_cap" gorm:"not null;default:'0'"`

	// Performance fee.
	TargetRateBps uint32 `json:"target_rate_bps" gorm:"not null;default:0"`
	FeeShareBps   uint32 `json:"fee_share_bps" gorm:"not null;default:0"`
	FeeRecipient  string `json:"fee_recipient" gorm:"size:66"`

	// Lock policy. Bonus scales linearly with duration up to
	// MaxLockBonusBps at MaxLockSeconds.
	MinLockSeconds  int64  `json:"min_lock_seconds" gorm:"not null;default:0"`
	MaxLockSeconds  int64  `json:"max_lock_seconds" gorm:"not null;default:0"`
	MaxLockBonusBps uint32 `json:"max_lock_bonus_bps" gorm:"not null;default:0"`

	UpdatedAt time.Time
}

// Tier grants a rate bonus to deposits at or above its threshold.
// Thresholds are strictly increasing across rows.
type Tier struct {
	ID        uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	Threshold string `json:"threshold" gorm:"not null;uniqueIndex"`
	BonusBps  uint32 `json:"bonus_bps" gorm:"not null"`
}

// DepositLock is the single active lock per account (account address is the
// primary key). Destroyed on unlock after expiry.
type DepositLock struct {
	Account      string    `json:"account" gorm:"primaryKey;size:66"`
	LockedAmount string    `json:"locked_amount" gorm:"not null"`
	UnlockAt     time.Time `json:"unlock_at" gorm:"not null"`
	BonusRateBps uint32    `json:"bonus_rate_bps" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ChainConfig describes a counterparty ledger instance.
type ChainConfig struct {
	ChainID     uint32 `json:"chain_id" gorm:"primaryKey"`
	Name        string `json:"name" gorm:"not null"`
	Enabled     bool   `json:"enabled" gorm:"not null;default:false"`     // outbound transfers allowed
	Allowlisted bool   `json:"allowlisted" gorm:"not null;default:false"` // inbound intents accepted
	MinTransfer string `json:"min_transfer" gorm:"not null;default:'0'"`
	MaxTransfer string `json:"max_transfer" gorm:"not null;default:'0'"`

	// Token bucket parameters for outbound transfers to this chain.
	BucketCapacity     string `json:"bucket_capacity" gorm:"not null;default:'0'"`
	BucketRefillPerSec string `json:"bucket_refill_per_sec" gorm:"not null;default:'0'"`

	UpdatedAt time.Time
}

// RateLimitBucket is the mutable half of the token bucket; capacity and
// refill rate live on ChainConfig. Available stays within [0, capacity].
type RateLimitBucket struct {
	ChainID      uint32    `json:"chain_id" gorm:"primaryKey"`
	Available    string    `json:"available" gorm:"not null;default:'0'"`
	LastRefillAt time.Time `json:"last_refill_at"`
}

// TransferIntent is a cross-ledger transfer: burned on the source, delivered
// and minted exactly once on the destination. Recipients/Amounts hold one
// element for a plain transfer and the full list for a batch.
type TransferIntent struct {
	MessageID      string       `json:"message_id" gorm:"primaryKey;size:36"`
	SourceChainID  uint32       `json:"source_chain_id" gorm:"index;not null"`
	DestChainID    uint32       `json:"dest_chain_id" gorm:"index;not null"`
	Sender         string       `json:"sender" gorm:"index;not null;size:66"`
	Recipients     string       `json:"recipients" gorm:"type:text;not null"` // JSON array
	Amounts        string       `json:"amounts" gorm:"type:text;not null"`    // JSON array, same length
	TotalAmount    string       `json:"total_amount" gorm:"not null"`
	CarriedRateBps uint32       `json:"carried_rate_bps" gorm:"not null"`
	RoutePayload   string       `json:"route_payload,omitempty" gorm:"type:text"`
	RouteTargetRef string       `json:"route_target_ref,omitempty" gorm:"size:128"`
	Status         IntentStatus `json:"status" gorm:"index;not null;default:'pending'"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// ProcessedMessage is the receive-side idempotency set: one row per consumed
// messageId. Must survive restarts.
type ProcessedMessage struct {
	MessageID     string    `json:"message_id" gorm:"primaryKey;size:36"`
	SourceChainID uint32    `json:"source_chain_id" gorm:"not null"`
	ProcessedAt   time.Time `json:"processed_at"`
}

// Batch groups a multi-recipient transfer sent as a single intent. Executed
// flips exactly once; a batch is never re-executed.
type Batch struct {
	ID          uint64     `json:"id" gorm:"primaryKey;autoIncrement"`
	DestChainID uint32     `json:"dest_chain_id" gorm:"index;not null"`
	Sender      string     `json:"sender" gorm:"index;not null;size:66"`
	Recipients  string     `json:"recipients" gorm:"type:text;not null"` // JSON array
	Amounts     string     `json:"amounts" gorm:"type:text;not null"`    // JSON array, same length
	TotalAmount string     `json:"total_amount" gorm:"not null"`
	Executed    bool       `json:"executed" gorm:"not null;default:false"`
	MessageID   string     `json:"message_id,omitempty" gorm:"size:36"`
	ExecutedAt  *time.Time `json:"executed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// TransferRoute is an owner-registered composable call description. Executing
// a route burns locally and ships the payload with the intent; the
// destination's external collaborator runs the call after the mint.
type TransferRoute struct {
	RouteID     string    `json:"route_id" gorm:"primaryKey;size:64"`
	TargetChain uint32    `json:"target_chain" gorm:"not null"`
	TargetRef   string    `json:"target_ref" gorm:"not null;size:128"`
	Payload     string    `json:"payload" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
