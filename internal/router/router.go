package router

import (
	"net/http"
	"os"
	"strconv"
	"strings"

	"yieldgate/internal/config"
	"yieldgate/internal/handlers"
	"yieldgate/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// corsMiddleware CORS middleware
// Priority: Environment Variable > YAML Config > Default (*)
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		var allowedOrigins []string
		allowCredentials := true
		maxAge := 3600

		envOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if envOrigins != "" {
			for _, o := range strings.Split(envOrigins, ",") {
				if trimmed := strings.TrimSpace(o); trimmed != "" {
					allowedOrigins = append(allowedOrigins, trimmed)
				}
			}
		} else if config.AppConfig != nil && len(config.AppConfig.CORS.AllowedOrigins) > 0 {
			allowedOrigins = config.AppConfig.CORS.AllowedOrigins
			allowCredentials = config.AppConfig.CORS.AllowCredentials
			if config.AppConfig.CORS.MaxAge > 0 {
				maxAge = config.AppConfig.CORS.MaxAge
			}
		} else {
			allowedOrigins = []string{"*"}
		}

		if len(allowedOrigins) == 1 && allowedOrigins[0] == "*" {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" {
			allowed := false
			for _, allowedOrigin := range allowedOrigins {
				if strings.TrimSpace(allowedOrigin) == origin {
					allowed = true
					break
				}
			}
			if allowed {
				c.Header("Access-Control-Allow-Origin", origin)
			} else {
				logrus.WithFields(logrus.Fields{
					"request_origin": origin,
					"path":           c.Request.URL.Path,
					"remote_addr":    c.ClientIP(),
				}).Warn("🚫 CORS: Request blocked - Origin not in whitelist")
			}
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, Cache-Control, Accept")
		if allowCredentials {
			c.Header("Access-Control-Allow-Credentials", "true")
		}
		c.Header("Access-Control-Expose-Headers", "Content-Length, Content-Type")
		c.Header("Access-Control-Max-Age", strconv.Itoa(maxAge))

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Handlers groups the constructed HTTP handlers for route registration
type Handlers struct {
	Auth      *handlers.AuthHandler
	Vault     *handlers.VaultHandler
	Gateway   *handlers.GatewayHandler
	Query     *handlers.QueryHandler
	Admin     *handlers.AdminHandler
	WebSocket *handlers.WebSocketHandler
}

func SetupRouter(h *Handlers) *gin.Engine {
	r := gin.Default()

	r.Use(corsMiddleware())

	logger := logrus.New()
	var allowedIPs []string
	if config.AppConfig != nil && len(config.AppConfig.Admin.AllowedIPs) > 0 {
		allowedIPs = config.AppConfig.Admin.AllowedIPs
		logger.WithFields(logrus.Fields{
			"allowed_ips": allowedIPs,
			"count":       len(allowedIPs),
		}).Info("Admin API IP whitelist configured")
	}

	localhostOnly := middleware.NewLocalhostOnly(logger, allowedIPs)
	auth := middleware.NewAuthMiddleware(logger)

	// ============ Liveness ============
	r.GET("/ping", handlers.PingHandler)
	r.GET("/health", handlers.HealthCheckHandler)
	r.GET("/api/health", handlers.HealthCheckHandler)

	// ============ Prometheus Metrics ============
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ============ Auth ============
	authGroup := r.Group("/api/auth")
	{
		authGroup.GET("/nonce", h.Auth.GenerateNonceHandler)
		authGroup.POST("/login", h.Auth.AuthenticateHandler)
	}

	// ============ Vault (authenticated) ============
	vault := r.Group("/api/vault")
	vault.Use(auth.RequireAuth())
	{
		vault.POST("/deposit", h.Vault.DepositHandler)
		vault.POST("/withdraw", h.Vault.WithdrawHandler)
		vault.POST("/lock", h.Vault.LockHandler)
		vault.POST("/lock/extend", h.Vault.ExtendLockHandler)
		vault.POST("/unlock", h.Vault.UnlockHandler)
		vault.GET("/balance", h.Query.BalanceHandler)
		vault.GET("/rate", h.Query.RateQuoteHandler)
	}

	// Vault status is public monitoring data
	r.GET("/api/vault/status", h.Query.VaultStatusHandler)

	// ============ Gateway (authenticated) ============
	gateway := r.Group("/api/gateway")
	gateway.Use(auth.RequireAuth())
	{
		gateway.POST("/transfer", h.Gateway.TransferOutHandler)
		gateway.POST("/batch", h.Gateway.CreateBatchHandler)
		gateway.POST("/batch/execute", h.Gateway.ExecuteBatchHandler)
		gateway.POST("/route/execute", h.Gateway.ExecuteRouteHandler)
		gateway.GET("/batch/:batchId", h.Query.BatchStatusHandler)
		gateway.GET("/bucket/:chainId", h.Query.BucketStatusHandler)
		gateway.GET("/intents", h.Query.IntentHistoryHandler)
		gateway.GET("/intents/pending", h.Query.PendingIntentsHandler)
		gateway.GET("/intent/:messageId", h.Query.IntentStatusHandler)
	}

	// ============ Admin (IP whitelist + TOTP token) ============
	admin := r.Group("/api/admin")
	admin.Use(localhostOnly.Restrict())
	{
		admin.POST("/login", h.Auth.AdminLoginHandler)

		protected := admin.Group("")
		protected.Use(auth.RequireAuth(), auth.RequireAdmin())
		{
			protected.PUT("/vault/params", h.Admin.UpdateParamsHandler)
			protected.PUT("/vault/tiers", h.Admin.SetTiersHandler)
			protected.POST("/vault/accrue", h.Admin.TriggerAccrualHandler)
			protected.PUT("/gateway/chains", h.Admin.SetChainConfigHandler)
			protected.PUT("/gateway/routes", h.Admin.SetRouteHandler)
			protected.POST("/pause", h.Admin.SetPauseHandler)
			protected.GET("/accounts", h.Query.ListAccountsHandler)
		}
	}

	// ============ WebSocket ============
	r.GET("/ws", gin.WrapF(h.WebSocket.HandleWebSocket))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"message":    "Endpoint not found",
			"path":       c.Request.URL.Path,
			"suggestion": "Check /api endpoints for available APIs",
		})
	})

	return r
}
