package handlers

import (
	"log"
	"net/http"

	"yieldgate/internal/dto"
	"yieldgate/internal/models"
	"yieldgate/internal/services"
	"yieldgate/internal/utils"

	"github.com/gin-gonic/gin"
)

// AdminHandler parameter, tier, chain and pause administration
type AdminHandler struct {
	vault   *services.VaultService
	gateway *services.GatewayService
}

func NewAdminHandler(vault *services.VaultService, gateway *services.GatewayService) *AdminHandler {
	return &AdminHandler{vault: vault, gateway: gateway}
}

// UpdateParamsHandler applies a partial update to vault parameters
// PUT /api/admin/vault/params
func (h *AdminHandler) UpdateParamsHandler(c *gin.Context) {
	var req dto.UpdateVaultParamsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	params, err := h.vault.UpdateParams(&req)
	if err != nil {
		respondError(c, err)
		return
	}
	log.Printf("⚙️ vault params updated by admin from %s", c.ClientIP())
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"params":  params,
	})
}

// SetTiersHandler replaces the deposit tier table
// PUT /api/admin/vault/tiers
func (h *AdminHandler) SetTiersHandler(c *gin.Context) {
	var req struct {
		Tiers []struct {
			Threshold string `json:"threshold" binding:"required"`
			BonusBps  uint32 `json:"bonus_bps"`
		} `json:"tiers" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	tiers := make([]models.Tier, 0, len(req.Tiers))
	for _, t := range req.Tiers {
		if _, err := utils.ParseAmount(t.Threshold); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
			return
		}
		tiers = append(tiers, models.Tier{Threshold: t.Threshold, BonusBps: t.BonusBps})
	}

	if err := h.vault.SetTiers(tiers); err != nil {
		respondError(c, err)
		return
	}
	log.Printf("⚙️ tier table replaced: %d tiers", len(tiers))
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(tiers)})
}

// SetChainConfigHandler creates or updates a counterparty chain
// PUT /api/admin/gateway/chains
func (h *AdminHandler) SetChainConfigHandler(c *gin.Context) {
	var req dto.UpdateChainConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	chain, err := h.gateway.UpsertChainConfig(&req)
	if err != nil {
		respondError(c, err)
		return
	}
	log.Printf("⚙️ chain config updated: chain=%d enabled=%v", chain.ChainID, chain.Enabled)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"chain":   chain,
	})
}

// SetRouteHandler registers or updates a composable route
// PUT /api/admin/gateway/routes
func (h *AdminHandler) SetRouteHandler(c *gin.Context) {
	var req dto.SetRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	route, err := h.gateway.SetRoute(&req)
	if err != nil {
		respondError(c, err)
		return
	}
	log.Printf("⚙️ route registered: id=%s target_chain=%d", route.RouteID, route.TargetChain)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"route":   route,
	})
}

// SetPauseHandler trips or clears the shared circuit breaker
// POST /api/admin/pause
func (h *AdminHandler) SetPauseHandler(c *gin.Context) {
	var req dto.SetPauseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	if err := h.vault.SetPaused(req.Paused); err != nil {
		respondError(c, err)
		return
	}
	if req.Paused {
		log.Printf("🚨 operations PAUSED by admin from %s", c.ClientIP())
	} else {
		log.Printf("✅ operations resumed by admin from %s", c.ClientIP())
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "paused": req.Paused})
}

// TriggerAccrualHandler runs an accrual pass immediately
// POST /api/admin/vault/accrue
func (h *AdminHandler) TriggerAccrualHandler(c *gin.Context) {
	credited, fee, err := h.vault.Accrue()
	if err != nil {
		respondError(c, err)
		return
	}
	log.Printf("💰 manual accrual: credited=%s fee=%s", credited, fee)
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"credited": credited.String(),
		"fee":      fee.String(),
	})
}
