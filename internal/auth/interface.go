package auth

import "cabinet/internal/domain/models"

// JWTVerifier validates bearer tokens and extracts the access claims
// carrying the owner id. The auth middleware depends on this interface;
// tests substitute their own implementations.
type JWTVerifier interface {
	// VerifyToken parses and validates a raw token string
	VerifyToken(tokenString string) (*models.AccessClaims, error)

	// Close releases verifier resources such as JWKS refresh state
	Close() error
}
