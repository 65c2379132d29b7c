package handlers

import (
	"log"
	"net/http"
	"strings"

	"yieldgate/internal/services"
)

// WebSocketHandler authenticates and hands connections to the push hub
type WebSocketHandler struct {
	push *services.PushService
}

func NewWebSocketHandler(push *services.PushService) *WebSocketHandler {
	return &WebSocketHandler{push: push}
}

// HandleWebSocket upgrades an authenticated request to a WebSocket
// connection and registers it with the push service.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	address := h.extractAddressFromToken(r)
	if address == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	log.Printf("📡 WebSocket client connecting: address=%s", address)
	h.push.HandleUpgrade(w, r)
}

// extractAddressFromToken pulls the JWT from the query string or the
// Authorization header. Browsers cannot set headers on WebSocket upgrades,
// so the query token path is the common one.
func (h *WebSocketHandler) extractAddressFromToken(r *http.Request) string {
	token := r.URL.Query().Get("token")
	if token == "" {
		authHeader := r.Header.Get("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}
	if token == "" {
		return ""
	}

	claims, err := ValidateJWTToken(token)
	if err != nil {
		log.Printf("❌ WebSocket JWT validation failed: %v", err)
		return ""
	}
	return claims.Address
}
