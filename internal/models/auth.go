package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the payload of a session token. The token binds only the
// account identifier; the account itself is re-resolved on every request.
type TokenClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}
