package services

import "errors"

// Vault policy errors. Rejected with state unchanged; callers may retry
// after conditions change.
var (
	ErrPaused                = errors.New("operations are paused")
	ErrBelowMinimum          = errors.New("amount below minimum deposit")
	ErrCapExceeded           = errors.New("deposit cap exceeded")
	ErrSlippageExceeded      = errors.New("payout below acceptable minimum")
	ErrInsufficientLiquidity = errors.New("insufficient vault liquidity")
	ErrAccrualNotDue         = errors.New("accrual period has not elapsed")
	ErrLockActive            = errors.New("account already has an active lock")
	ErrLockNotExpired        = errors.New("lock has not expired")
	ErrNoActiveLock          = errors.New("account has no active lock")
	ErrInvalidDuration       = errors.New("lock duration out of bounds")
)

// Gateway errors.
var (
	ErrChainNotEnabled      = errors.New("destination chain not enabled")
	ErrAmountOutOfBounds    = errors.New("transfer amount out of configured bounds")
	ErrRateLimitExceeded    = errors.New("rate limit bucket exhausted")
	ErrDuplicateMessage     = errors.New("message already processed")
	ErrSourceNotAllowlisted = errors.New("source chain not allowlisted")
	ErrLengthMismatch       = errors.New("recipients and amounts length mismatch")
	ErrEmptyBatch           = errors.New("batch has no recipients")
	ErrBatchNotFound        = errors.New("batch not found")
	ErrAlreadyExecuted      = errors.New("batch already executed")
	ErrRouteNotFound        = errors.New("route not found")
)
