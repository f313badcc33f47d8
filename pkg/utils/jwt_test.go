package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTokenManagerForTest(t *testing.T) *TokenManager {
	t.Helper()

	m, err := NewTokenManager(map[TokenPurpose]TokenSettings{
		PurposeAccess:            {Secret: "access-secret", TTL: 15 * time.Minute},
		PurposeRefresh:           {Secret: "refresh-secret", TTL: 7 * 24 * time.Hour},
		PurposeEmailVerification: {Secret: "verify-secret", TTL: 5 * time.Minute},
	})
	if err != nil {
		t.Fatalf("expected token manager to build, got error: %v", err)
	}
	return m
}

func TestNewTokenManagerRejectsIncompleteSettings(t *testing.T) {
	testCases := []struct {
		name     string
		settings TokenSettings
	}{
		{name: "empty secret", settings: TokenSettings{Secret: "", TTL: time.Minute}},
		{name: "zero ttl", settings: TokenSettings{Secret: "s", TTL: 0}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewTokenManager(map[TokenPurpose]TokenSettings{PurposeAccess: tc.settings})
			if err == nil {
				t.Fatalf("expected error for %s", tc.name)
			}
		})
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	m := newTokenManagerForTest(t)
	userID := uuid.New()

	t.Run("round trips claims for the same purpose", func(t *testing.T) {
		token, err := m.Generate(PurposeAccess, userID, "user@example.com")
		if err != nil {
			t.Fatalf("expected token generation to succeed, got error: %v", err)
		}

		claims, err := m.Validate(PurposeAccess, token)
		if err != nil {
			t.Fatalf("expected token validation to succeed, got error: %v", err)
		}
		if claims.UserID != userID {
			t.Fatalf("expected user id %s, got %s", userID, claims.UserID)
		}
		if claims.Email != "user@example.com" {
			t.Fatalf("expected email user@example.com, got %s", claims.Email)
		}
		if claims.Purpose != PurposeAccess {
			t.Fatalf("expected purpose access, got %s", claims.Purpose)
		}
	})

	t.Run("refresh token does not validate as access token", func(t *testing.T) {
		token, err := m.Generate(PurposeRefresh, userID, "user@example.com")
		if err != nil {
			t.Fatalf("expected token generation to succeed, got error: %v", err)
		}
		if _, err := m.Validate(PurposeAccess, token); err == nil {
			t.Fatalf("expected refresh token to be rejected as access token")
		}
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		expiring := newTokenManagerForTest(t)
		expiring.now = func() time.Time { return time.Now().Add(-time.Hour) }
		token, err := expiring.Generate(PurposeEmailVerification, userID, "user@example.com")
		if err != nil {
			t.Fatalf("expected token generation to succeed, got error: %v", err)
		}

		_, err = m.Validate(PurposeEmailVerification, token)
		if err == nil {
			t.Fatalf("expected expired token to fail validation")
		}
		if !strings.Contains(err.Error(), "expired") {
			t.Fatalf("expected expiry error, got %v", err)
		}
	})

	t.Run("unknown purpose", func(t *testing.T) {
		if _, err := m.Generate(TokenPurpose("other"), userID, ""); err != ErrUnknownPurpose {
			t.Fatalf("expected ErrUnknownPurpose, got %v", err)
		}
	})

	t.Run("tampered token is rejected", func(t *testing.T) {
		token, err := m.Generate(PurposeAccess, userID, "user@example.com")
		if err != nil {
			t.Fatalf("expected token generation to succeed, got error: %v", err)
		}
		if _, err := m.Validate(PurposeAccess, token+"x"); err == nil {
			t.Fatalf("expected tampered token to fail validation")
		}
	})
}
