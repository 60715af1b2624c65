package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// NewSessionToken — клиентский токен кабинета, выдаётся после успешного
// подтверждения кода. Subject — каноничный телефон.
func NewSessionToken(secret []byte, phone string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   phone,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
