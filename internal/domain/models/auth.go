package models

import "github.com/golang-jwt/jwt/v5"

// PrincipalClaims represents the JWT claims issued by the identity provider
// fronting the IDE. Only the claims the backend consumes are modeled.
type PrincipalClaims struct {
	jwt.RegisteredClaims        // Standard JWT claims (sub, iss, aud, exp, iat, etc.)
	Email                string `json:"email"`
	Role                 string `json:"role"` // "authenticated" or "anon"
	SessionID            string `json:"session_id"`
	IsAnonymous          bool   `json:"is_anonymous"`
}

// GetUserID returns the user ID from the JWT subject claim.
// This is the primary identifier for the authenticated principal.
func (c *PrincipalClaims) GetUserID() string {
	return c.Subject
}
