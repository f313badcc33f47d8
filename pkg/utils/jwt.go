package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenPurpose string

const (
	PurposeAccess            TokenPurpose = "access"
	PurposeRefresh           TokenPurpose = "refresh"
	PurposeEmailVerification TokenPurpose = "email_verification"
)

type TokenSettings struct {
	Secret string
	TTL    time.Duration
}

type Claims struct {
	UserID  uuid.UUID    `json:"userID"`
	Email   string       `json:"email"`
	Purpose TokenPurpose `json:"purpose"`
	jwt.RegisteredClaims
}

var ErrUnknownPurpose = errors.New("unknown token purpose")

// TokenManager signs and validates HS256 tokens. Each purpose has its own
// secret and lifetime, so a refresh token never passes as an access token.
type TokenManager struct {
	settings map[TokenPurpose]TokenSettings
	now      func() time.Time
}

func NewTokenManager(settings map[TokenPurpose]TokenSettings) (*TokenManager, error) {
	for purpose, s := range settings {
		if s.Secret == "" {
			return nil, fmt.Errorf("token purpose %s: secret is empty", purpose)
		}
		if s.TTL <= 0 {
			return nil, fmt.Errorf("token purpose %s: ttl must be positive", purpose)
		}
	}
	return &TokenManager{settings: settings, now: time.Now}, nil
}

func (m *TokenManager) Generate(purpose TokenPurpose, userID uuid.UUID, email string) (string, error) {
	s, ok := m.settings[purpose]
	if !ok {
		return "", ErrUnknownPurpose
	}

	now := m.now()
	claims := Claims{
		UserID:  userID,
		Email:   email,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   userID.String(),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.Secret))
}

func (m *TokenManager) Validate(purpose TokenPurpose, tokenString string) (*Claims, error) {
	s, ok := m.settings[purpose]
	if !ok {
		return nil, ErrUnknownPurpose
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(s.Secret), nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Purpose != purpose {
		return nil, fmt.Errorf("token purpose mismatch")
	}

	return claims, nil
}

// TTL reports the configured lifetime for purpose, or zero when unknown.
func (m *TokenManager) TTL(purpose TokenPurpose) time.Duration {
	return m.settings[purpose].TTL
}
