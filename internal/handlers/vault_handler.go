package handlers

import (
	"net/http"

	"yieldgate/internal/dto"
	"yieldgate/internal/services"

	"github.com/gin-gonic/gin"
)

// VaultHandler exposes deposit, withdraw and lock operations
type VaultHandler struct {
	vault *services.VaultService
}

func NewVaultHandler(vault *services.VaultService) *VaultHandler {
	return &VaultHandler{vault: vault}
}

// DepositHandler deposits value for the authenticated account
// POST /api/vault/deposit
func (h *VaultHandler) DepositHandler(c *gin.Context) {
	address, ok := requireAddress(c)
	if !ok {
		return
	}

	var req dto.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	resp, err := h.vault.Deposit(address, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// WithdrawHandler withdraws value for the authenticated account
// POST /api/vault/withdraw
func (h *VaultHandler) WithdrawHandler(c *gin.Context) {
	address, ok := requireAddress(c)
	if !ok {
		return
	}

	var req dto.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	resp, err := h.vault.Withdraw(address, req.Amount, req.MinPayout)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// LockHandler locks part of the account balance for a rate bonus
// POST /api/vault/lock
func (h *VaultHandler) LockHandler(c *gin.Context) {
	address, ok := requireAddress(c)
	if !ok {
		return
	}

	var req dto.LockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	lock, err := h.vault.LockDeposit(address, req.Amount, req.DurationSeconds)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"locked_amount":  lock.LockedAmount,
		"unlock_at":      lock.UnlockAt,
		"bonus_rate_bps": lock.BonusRateBps,
	})
}

// ExtendLockHandler extends an active lock
// POST /api/vault/lock/extend
func (h *VaultHandler) ExtendLockHandler(c *gin.Context) {
	address, ok := requireAddress(c)
	if !ok {
		return
	}

	var req dto.ExtendLockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	lock, err := h.vault.ExtendLock(address, req.DurationSeconds)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"locked_amount":  lock.LockedAmount,
		"unlock_at":      lock.UnlockAt,
		"bonus_rate_bps": lock.BonusRateBps,
	})
}

// UnlockHandler releases an expired lock
// POST /api/vault/unlock
func (h *VaultHandler) UnlockHandler(c *gin.Context) {
	address, ok := requireAddress(c)
	if !ok {
		return
	}

	if err := h.vault.UnlockDeposit(address); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
