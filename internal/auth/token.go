package auth

import (
	"errors"
	"time"

	apperrors "tourbook/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
)

// TokenManager signs and verifies the stateless session tokens. Verification
// failures are split into distinct error codes so clients can tell an expired
// session from a forged or malformed one.
type TokenManager struct {
	secret []byte
	expiry time.Duration
}

func NewTokenManager(secret string, expiry time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), expiry: expiry}
}

// Sign issues a token for the given user ID with the configured lifetime.
// The issued-at claim is what the staleness check in Protect compares against.
func (m *TokenManager) Sign(userID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Verify parses and validates a token. An expired token maps to TokenExpired;
// any other failure (bad signature, malformed, wrong algorithm) maps to
// InvalidToken.
func (m *TokenManager) Verify(tokenString string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.TokenExpired()
		}
		return nil, apperrors.InvalidToken()
	}
	if !token.Valid {
		return nil, apperrors.InvalidToken()
	}
	if claims.Subject == "" || claims.IssuedAt == nil {
		return nil, apperrors.InvalidToken()
	}
	return claims, nil
}
