package dto

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims represents our custom JWT claims
type TokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}
