package handlers

import (
	"errors"
	"net/http"

	"yieldgate/internal/ledger"
	"yieldgate/internal/services"

	"github.com/gin-gonic/gin"
)

// statusFor maps service and ledger errors to HTTP statuses. Policy
// rejections are client errors; anything unmapped is a 500.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount):
		return http.StatusBadRequest, "INVALID_AMOUNT"
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity, "INSUFFICIENT_BALANCE"
	case errors.Is(err, services.ErrPaused):
		return http.StatusServiceUnavailable, "PAUSED"
	case errors.Is(err, services.ErrBelowMinimum):
		return http.StatusUnprocessableEntity, "BELOW_MINIMUM"
	case errors.Is(err, services.ErrCapExceeded):
		return http.StatusUnprocessableEntity, "CAP_EXCEEDED"
	case errors.Is(err, services.ErrSlippageExceeded):
		return http.StatusUnprocessableEntity, "SLIPPAGE_EXCEEDED"
	case errors.Is(err, services.ErrInsufficientLiquidity):
		return http.StatusUnprocessableEntity, "INSUFFICIENT_LIQUIDITY"
	case errors.Is(err, services.ErrAccrualNotDue):
		return http.StatusConflict, "ACCRUAL_NOT_DUE"
	case errors.Is(err, services.ErrLockActive):
		return http.StatusConflict, "LOCK_ACTIVE"
	case errors.Is(err, services.ErrLockNotExpired):
		return http.StatusConflict, "LOCK_NOT_EXPIRED"
	case errors.Is(err, services.ErrNoActiveLock):
		return http.StatusNotFound, "NO_ACTIVE_LOCK"
	case errors.Is(err, services.ErrInvalidDuration):
		return http.StatusBadRequest, "INVALID_DURATION"
	case errors.Is(err, services.ErrChainNotEnabled):
		return http.StatusUnprocessableEntity, "CHAIN_NOT_ENABLED"
	case errors.Is(err, services.ErrAmountOutOfBounds):
		return http.StatusUnprocessableEntity, "AMOUNT_OUT_OF_BOUNDS"
	case errors.Is(err, services.ErrRateLimitExceeded):
		return http.StatusTooManyRequests, "RATE_LIMITED"
	case errors.Is(err, services.ErrSourceNotAllowlisted):
		return http.StatusUnprocessableEntity, "SOURCE_NOT_ALLOWLISTED"
	case errors.Is(err, services.ErrLengthMismatch):
		return http.StatusBadRequest, "LENGTH_MISMATCH"
	case errors.Is(err, services.ErrEmptyBatch):
		return http.StatusBadRequest, "EMPTY_BATCH"
	case errors.Is(err, services.ErrBatchNotFound):
		return http.StatusNotFound, "BATCH_NOT_FOUND"
	case errors.Is(err, services.ErrAlreadyExecuted):
		return http.StatusConflict, "ALREADY_EXECUTED"
	case errors.Is(err, services.ErrRouteNotFound):
		return http.StatusNotFound, "ROUTE_NOT_FOUND"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// respondError writes the mapped status with the error message
func respondError(c *gin.Context, err error) {
	status, code := statusFor(err)
	c.JSON(status, gin.H{
		"success": false,
		"code":    code,
		"message": err.Error(),
	})
}

// requireAddress returns the authenticated address set by the auth
// middleware, aborting with 401 when absent.
func requireAddress(c *gin.Context) (string, bool) {
	value, exists := c.Get("address")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"code":    "MISSING_USER_INFO",
			"message": "authentication required",
		})
		return "", false
	}
	address, ok := value.(string)
	if !ok || address == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"code":    "MISSING_USER_INFO",
			"message": "authentication required",
		})
		return "", false
	}
	return address, true
}
