package auth

import "codebench/internal/domain/models"

// JWTVerifier defines the interface for JWT token verification.
// This abstraction keeps the middleware agnostic to the verification
// details.
type JWTVerifier interface {
	// VerifyToken validates a JWT token string and returns the parsed
	// claims. Returns an error if the token is invalid, expired, or has an
	// invalid signature.
	VerifyToken(tokenString string) (*models.PrincipalClaims, error)

	// Close releases any resources held by the verifier (e.g. HTTP
	// connections for JWKS refresh).
	Close() error
}
