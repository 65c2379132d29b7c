package dto

import "github.com/golang-jwt/jwt/v5"

// ==================== Auth DTOs ====================

// AuthRequest Authentication request structure
type AuthRequest struct {
	Address   string `json:"address" binding:"required"`   // account address
	Nonce     string `json:"nonce" binding:"required"`     // nonce previously issued for this address
	Signature string `json:"signature" binding:"required"` // personal-sign signature of the nonce message
}

// AuthResponse Authentication response structure
type AuthResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message"`
}

// JWTClaims JWT Claims structure
type JWTClaims struct {
	Address string `json:"address"`        // account address
	Role    string `json:"role,omitempty"` // "admin" for admin tokens
	jwt.RegisteredClaims
}

// AdminAuthRequest TOTP login request for the admin API
type AdminAuthRequest struct {
	Code string `json:"code" binding:"required"` // 6-digit TOTP code
}
