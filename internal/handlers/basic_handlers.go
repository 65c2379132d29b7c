package handlers

import (
	"net/http"

	"yieldgate/internal/db"

	"github.com/gin-gonic/gin"
)

// HealthCheckHandler service and database health
// GET /api/health
func HealthCheckHandler(c *gin.Context) {
	dbStatus := "healthy"
	if sqlDB, err := db.DB.DB(); err != nil || sqlDB.Ping() != nil {
		dbStatus = "unreachable"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"service":  "yieldgate",
		"api":      "healthy",
		"database": dbStatus,
	})
}

// PingHandler liveness probe
// GET /ping
func PingHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}
