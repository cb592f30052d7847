package utils

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	jwtMu  sync.RWMutex
	jwtKey = []byte(os.Getenv("JWT_SECRET"))
)

const tokenTTL = time.Hour

type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// SetJWTSecret replaces the signing key. An empty secret keeps the current one.
func SetJWTSecret(secret string) {
	if secret == "" {
		return
	}
	jwtMu.Lock()
	jwtKey = []byte(secret)
	jwtMu.Unlock()
}

func signingKey() []byte {
	jwtMu.RLock()
	defer jwtMu.RUnlock()
	return jwtKey
}

func CreateToken(userID uuid.UUID, role string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID.String(),
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(signingKey())
}

func ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return signingKey(), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// UserUUID returns the user id carried by the token.
func (c *Claims) UserUUID() (uuid.UUID, error) {
	id := c.UserID
	if id == "" {
		id = c.Subject
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("token has no valid user id: %w", err)
	}
	return parsed, nil
}
