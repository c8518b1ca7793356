package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the bearer token payload. The token carries no expiry of its
// own: it stays valid only while the referenced session row exists and has
// not expired.
type Claims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

// IssueToken signs an HS256 token binding userID to sessionID.
func IssueToken(secret, issuer, userID, sessionID string, now time.Time) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  userID,
			Issuer:   issuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
		SessionID: sessionID,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("auth.IssueToken: %w", err)
	}
	return signed, nil
}

// ParseToken verifies signature, algorithm and issuer and returns the claims.
func ParseToken(secret, issuer, tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithIssuer(issuer))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("auth.ParseToken: %w", ErrInvalidToken)
	}
	if claims.SessionID == "" || claims.Subject == "" {
		return nil, fmt.Errorf("auth.ParseToken: missing claims: %w", ErrInvalidToken)
	}
	return claims, nil
}
