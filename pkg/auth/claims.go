// Package auth authenticates requests against the knowledge graph backend.
// It obtains access tokens with the configured credentials, caches them until
// they expire and renews them once when the backend answers 401.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the subset of the backend access token we read. The backend signs
// the token; the client only needs its expiry and subject.
type Claims struct {
	jwt.RegisteredClaims
}

// parseUnverified decodes the token claims without checking the signature.
// The token comes straight from the backend's token endpoint.
func parseUnverified(tokenString string) (*Claims, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	token, _, err := parser.ParseUnverified(tokenString, &Claims{})
	if err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, fmt.Errorf("invalid claims type in access token")
	}
	return claims, nil
}

// tokenExpiry returns the exp claim of a JWT access token. Opaque tokens, or
// tokens without exp, report ok=false and are kept until the backend rejects them.
func tokenExpiry(tokenString string) (time.Time, bool) {
	claims, err := parseUnverified(tokenString)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
