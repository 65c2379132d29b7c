package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"yieldgate/internal/repository"
	"yieldgate/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// QueryHandler read-only monitoring endpoints
type QueryHandler struct {
	vault       *services.VaultService
	gateway     *services.GatewayService
	accountRepo repository.AccountRepository
	intentRepo  repository.IntentRepository
}

func NewQueryHandler(vault *services.VaultService, gateway *services.GatewayService, accountRepo repository.AccountRepository, intentRepo repository.IntentRepository) *QueryHandler {
	return &QueryHandler{
		vault:       vault,
		gateway:     gateway,
		accountRepo: accountRepo,
		intentRepo:  intentRepo,
	}
}

// BalanceHandler returns the authenticated account's position
// GET /api/vault/balance
func (h *QueryHandler) BalanceHandler(c *gin.Context) {
	address, ok := requireAddress(c)
	if !ok {
		return
	}

	resp, err := h.vault.GetBalance(address)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// VaultStatusHandler returns the vault-wide snapshot
// GET /api/vault/status
func (h *QueryHandler) VaultStatusHandler(c *gin.Context) {
	resp, err := h.vault.GetStatus()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RateQuoteHandler previews the composite rate for a hypothetical deposit
// GET /api/vault/rate?amount=...
func (h *QueryHandler) RateQuoteHandler(c *gin.Context) {
	address, ok := requireAddress(c)
	if !ok {
		return
	}

	amount := c.DefaultQuery("amount", "0")
	resp, err := h.vault.QuoteRate(address, amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// BatchStatusHandler returns a staged or executed batch
// GET /api/gateway/batch/:batchId
func (h *QueryHandler) BatchStatusHandler(c *gin.Context) {
	batchID, err := strconv.ParseUint(c.Param("batchId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "invalid batch id",
		})
		return
	}

	batch, err := h.gateway.GetBatch(batchID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"batch":   batch,
	})
}

// BucketStatusHandler returns the rate-limit bucket for a destination chain
// GET /api/gateway/bucket/:chainId
func (h *QueryHandler) BucketStatusHandler(c *gin.Context) {
	chainID, err := strconv.ParseUint(c.Param("chainId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "invalid chain id",
		})
		return
	}

	available, capacity, err := h.gateway.GetBucketStatus(uint32(chainID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"chain_id":  chainID,
		"available": available,
		"capacity":  capacity,
	})
}

// PendingIntentsHandler lists intents awaiting relay delivery
// GET /api/gateway/intents/pending?limit=...
func (h *QueryHandler) PendingIntentsHandler(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 500 {
		limit = 50
	}

	intents, err := h.gateway.ListPendingIntents(limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(intents),
		"intents": intents,
	})
}

// IntentHistoryHandler lists the authenticated account's outbound transfers
// GET /api/gateway/intents?limit=...
func (h *QueryHandler) IntentHistoryHandler(c *gin.Context) {
	address, ok := requireAddress(c)
	if !ok {
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 500 {
		limit = 50
	}

	intents, err := h.intentRepo.ListIntentsBySender(c.Request.Context(), address, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(intents),
		"intents": intents,
	})
}

// IntentStatusHandler returns a single transfer intent by message id
// GET /api/gateway/intent/:messageId
func (h *QueryHandler) IntentStatusHandler(c *gin.Context) {
	messageID := c.Param("messageId")

	intent, err := h.intentRepo.GetIntent(c.Request.Context(), messageID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "intent not found",
		})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"intent":  intent,
	})
}

// ListAccountsHandler paginated account listing for the admin console
// GET /api/admin/accounts?page=...&size=...
func (h *QueryHandler) ListAccountsHandler(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	size, err := strconv.Atoi(c.DefaultQuery("size", "20"))
	if err != nil || size < 1 || size > 200 {
		size = 20
	}

	accounts, total, err := h.accountRepo.List(c.Request.Context(), page, size)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"total":    total,
		"page":     page,
		"size":     size,
		"accounts": accounts,
	})
}
