package models

import "github.com/golang-jwt/jwt/v5"

// AccessClaims is the JWT claims structure the identity provider issues.
// The subject claim carries the owner id every hierarchy operation is
// scoped by.
type AccessClaims struct {
	jwt.RegisteredClaims        // Standard JWT claims (sub, iss, aud, exp, iat, etc.)
	Email                string `json:"email"`
	Role                 string `json:"role"` // "authenticated" or "anon"
	SessionID            string `json:"session_id"`
	IsAnonymous          bool   `json:"is_anonymous"`
}

// GetOwnerID returns the owner id from the JWT subject claim.
func (c *AccessClaims) GetOwnerID() string {
	return c.Subject
}
