package handlers

import (
	"net/http"

	"yieldgate/internal/dto"
	"yieldgate/internal/services"

	"github.com/gin-gonic/gin"
)

// GatewayHandler exposes cross-ledger transfer operations
type GatewayHandler struct {
	gateway *services.GatewayService
}

func NewGatewayHandler(gateway *services.GatewayService) *GatewayHandler {
	return &GatewayHandler{gateway: gateway}
}

// TransferOutHandler sends value to a single recipient on another ledger
// POST /api/gateway/transfer
func (h *GatewayHandler) TransferOutHandler(c *gin.Context) {
	address, ok := requireAddress(c)
	if !ok {
		return
	}

	var req dto.TransferOutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	resp, err := h.gateway.TransferOut(address, req.DestChainID, req.Recipient, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CreateBatchHandler stages a multi-recipient transfer without moving value
// POST /api/gateway/batch
func (h *GatewayHandler) CreateBatchHandler(c *gin.Context) {
	address, ok := requireAddress(c)
	if !ok {
		return
	}

	var req dto.CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	batch, err := h.gateway.CreateBatch(address, req.DestChainID, req.Recipients, req.Amounts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"batch_id":     batch.ID,
		"total_amount": batch.TotalAmount,
	})
}

// ExecuteBatchHandler burns and emits a staged batch exactly once
// POST /api/gateway/batch/execute
func (h *GatewayHandler) ExecuteBatchHandler(c *gin.Context) {
	address, ok := requireAddress(c)
	if !ok {
		return
	}

	var req dto.ExecuteBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	resp, err := h.gateway.ExecuteBatch(address, req.BatchID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ExecuteRouteHandler sends value through a registered route
// POST /api/gateway/route/execute
func (h *GatewayHandler) ExecuteRouteHandler(c *gin.Context) {
	address, ok := requireAddress(c)
	if !ok {
		return
	}

	var req dto.ExecuteRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	resp, err := h.gateway.ExecuteRoute(address, req.RouteID, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
