package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"yieldgate/internal/config"
	"yieldgate/internal/dto"
	"yieldgate/internal/utils"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pquerna/otp/totp"
)

// use dto
type AuthRequest = dto.AuthRequest
type AuthResponse = dto.AuthResponse
type JWTClaims = dto.JWTClaims

const nonceTTL = 5 * time.Minute

type issuedNonce struct {
	Nonce    string
	IssuedAt time.Time
}

// AuthHandler issues nonces and exchanges signed nonces for JWT tokens
type AuthHandler struct {
	mu     sync.Mutex
	nonces map[string]issuedNonce // address -> pending nonce
}

// NewAuthHandler create handler
func NewAuthHandler() *AuthHandler {
	return &AuthHandler{nonces: make(map[string]issuedNonce)}
}

// GenerateNonceHandler issues a login nonce for an address
func (h *AuthHandler) GenerateNonceHandler(c *gin.Context) {
	address, err := utils.NormalizeAddress(c.Query("address"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "invalid address",
		})
		return
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "nonce generation failed",
		})
		return
	}
	nonce := hex.EncodeToString(buf)

	h.mu.Lock()
	h.nonces[address] = issuedNonce{Nonce: nonce, IssuedAt: time.Now()}
	h.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"nonce":   nonce,
		"message": signMessage(nonce),
	})
}

// AuthenticateHandler exchanges a signed nonce for a JWT token
func (h *AuthHandler) AuthenticateHandler(c *gin.Context) {
	var req AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, AuthResponse{
			Success: false,
			Message: fmt.Sprintf("invalid request: %v", err),
		})
		return
	}

	address, err := utils.NormalizeAddress(req.Address)
	if err != nil {
		c.JSON(http.StatusBadRequest, AuthResponse{
			Success: false,
			Message: "invalid address",
		})
		return
	}
	if !h.consumeNonce(address, req.Nonce) {
		c.JSON(http.StatusUnauthorized, AuthResponse{
			Success: false,
			Message: "unknown or expired nonce",
		})
		return
	}

	if !validateSignature(address, signMessage(req.Nonce), req.Signature) {
		log.Printf("❌ signature verification failed: address=%s", address)
		c.JSON(http.StatusUnauthorized, AuthResponse{
			Success: false,
			Message: "signature verification failed",
		})
		return
	}

	token, err := generateJWTToken(address, "")
	if err != nil {
		log.Printf("❌ JWT generation failed: %v", err)
		c.JSON(http.StatusInternalServerError, AuthResponse{
			Success: false,
			Message: "token generation failed",
		})
		return
	}

	log.Printf("✅ authenticated: address=%s", address)

	c.JSON(http.StatusOK, AuthResponse{
		Success: true,
		Token:   token,
		Message: "success",
	})
}

// AdminLoginHandler exchanges a TOTP code for an admin JWT token
func (h *AuthHandler) AdminLoginHandler(c *gin.Context) {
	var req dto.AdminAuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, AuthResponse{
			Success: false,
			Message: fmt.Sprintf("invalid request: %v", err),
		})
		return
	}

	secret := config.AppConfig.Admin.TOTPSecret
	if secret == "" || !totp.Validate(req.Code, secret) {
		log.Printf("❌ admin TOTP verification failed from %s", c.ClientIP())
		c.JSON(http.StatusUnauthorized, AuthResponse{
			Success: false,
			Message: "verification failed",
		})
		return
	}

	token, err := generateJWTToken("admin", "admin")
	if err != nil {
		c.JSON(http.StatusInternalServerError, AuthResponse{
			Success: false,
			Message: "token generation failed",
		})
		return
	}

	log.Printf("✅ admin login from %s", c.ClientIP())

	c.JSON(http.StatusOK, AuthResponse{
		Success: true,
		Token:   token,
		Message: "success",
	})
}

// consumeNonce removes the pending nonce for an address if it matches and is
// still fresh. A nonce is single use.
func (h *AuthHandler) consumeNonce(address, nonce string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	pending, ok := h.nonces[address]
	if !ok {
		return false
	}
	delete(h.nonces, address)
	if pending.Nonce != nonce {
		return false
	}
	return time.Since(pending.IssuedAt) <= nonceTTL
}

func signMessage(nonce string) string {
	return fmt.Sprintf("yieldgate login\nnonce: %s", nonce)
}

// validateSignature recovers the signer of a personal-sign signature and
// compares it to the claimed address.
func validateSignature(address, message, signature string) bool {
	sig, err := hex.DecodeString(strings.TrimPrefix(signature, "0x"))
	if err != nil || len(sig) != 65 {
		return false
	}
	// personal_sign produces V in {27, 28}
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	digest := crypto.Keccak256([]byte(prefixed))

	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return false
	}
	recovered := strings.ToLower(crypto.PubkeyToAddress(*pub).Hex())
	return recovered == address
}

// generateJWTToken signs a token for an address. Role is "admin" for
// admin-console tokens, empty for account tokens.
func generateJWTToken(address, role string) (string, error) {
	ttl := time.Duration(config.AppConfig.Auth.TokenTTLHours) * time.Hour
	claims := JWTClaims{
		Address: address,
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "yieldgate",
			Subject:   address,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(config.AppConfig.Auth.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("token signing failed: %w", err)
	}
	return tokenString, nil
}

// ValidateJWTToken verifies a JWT token and returns its claims
func ValidateJWTToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(config.AppConfig.Auth.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}
