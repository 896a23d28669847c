package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the payload of an API access token.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	Email  string   `json:"email"`
	jwt.RegisteredClaims
}

// Actor converts the claims into an operation caller.
func (c *JWTClaims) Actor() Actor {
	return Actor{UserID: c.UserID, Role: c.Role}
}
