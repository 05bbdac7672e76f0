package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims identify the terminal session a token was issued for.
// Tokens carry no expiry: a session ends on logout or when it goes stale,
// and every use is checked against the stored session row.
type SessionClaims struct {
	SessionID uint   `json:"sid"`
	UserID    uint   `json:"uid"`
	DeviceID  string `json:"dev"`
	jwt.RegisteredClaims
}

// GenerateSessionToken signs a token for one terminal session
func GenerateSessionToken(sessionID, userID uint, deviceID string, issuedAt time.Time, secret string) (string, error) {
	claims := &SessionClaims{
		SessionID: sessionID,
		UserID:    userID,
		DeviceID:  deviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(issuedAt),
			Subject:  fmt.Sprintf("%d", userID),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateSessionToken validates and parses a session token
func ValidateSessionToken(tokenString, secret string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*SessionClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}

// GenerateRandomToken generates a secure random URL-safe token from
// length random bytes, without padding.
func GenerateRandomToken(length int) (string, error) {
	b := make([]byte, length)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
