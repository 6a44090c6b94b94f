package session

import (
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"storepos/internal/domain"
)

// Claims is the payload of an access token as issued by the backend.
// Signatures are not checked here; the backend verifies every request.
type Claims struct {
	jwtlib.RegisteredClaims
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (c Claims) Identity() domain.Identity {
	return domain.Identity{
		ID:       c.Subject,
		Username: c.Username,
		Position: domain.Position(c.Role),
	}
}

var unverified = jwtlib.NewParser()

// Decode extracts the claims of token without verifying its signature.
// It reports false for anything that is not a well-formed token.
func Decode(token string) (Claims, bool) {
	var claims Claims
	if strings.Count(token, ".") != 2 {
		return Claims{}, false
	}
	if _, _, err := unverified.ParseUnverified(token, &claims); err != nil {
		return Claims{}, false
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return Claims{}, false
	}
	if !domain.Position(claims.Role).Valid() {
		return Claims{}, false
	}
	return claims, true
}

// IsExpired reports whether token cannot back a session at now: it is
// malformed, carries no exp claim, or exp has passed.
func IsExpired(token string, now time.Time) bool {
	claims, ok := Decode(token)
	if !ok || claims.ExpiresAt == nil {
		return true
	}
	return claims.ExpiresAt.Time.UnixMilli() < now.UnixMilli()
}
