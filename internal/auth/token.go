package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// NoAuthToken is the placeholder token the client stores for visitors that
// passed a code check without logging in.
const NoAuthToken = "no-auth"

const bearerPrefix = "Bearer "

var ErrNotJWT = errors.New("auth: token is not a JWT")

// BearerHeader builds an Authorization header value for token.
func BearerHeader(token string) string {
	if token == "" {
		return ""
	}
	return bearerPrefix + token
}

// TokenFromHeader extracts the token from an Authorization header value.
func TokenFromHeader(header string) string {
	header = strings.TrimSpace(header)
	if len(header) >= len(bearerPrefix) && strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return strings.TrimSpace(header[len(bearerPrefix):])
	}
	return header
}

// TokenInfo is what the gateway can learn from an access token without the
// backend's signing key.
type TokenInfo struct {
	AccountType string
	UserID      string
	ExpiresAt   time.Time
}

// Expired reports whether the token carried an expiry that has passed.
func (i TokenInfo) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && !now.Before(i.ExpiresAt)
}

type accessClaims struct {
	jwt.RegisteredClaims
	AccountType string `json:"accountType"`
	UserID      string `json:"userId"`
}

// Inspect decodes an access token issued by the backend. The signature is not
// checked here; the backend verifies it on every proxied call.
func Inspect(token string) (TokenInfo, error) {
	if strings.Count(token, ".") != 2 {
		return TokenInfo{}, ErrNotJWT
	}

	var claims accessClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return TokenInfo{}, fmt.Errorf("%w: %v", ErrNotJWT, err)
	}

	info := TokenInfo{
		AccountType: claims.AccountType,
		UserID:      claims.UserID,
	}
	if info.UserID == "" {
		info.UserID = claims.Subject
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info, nil
}
