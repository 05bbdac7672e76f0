package security

import (
	"testing"
	"time"
)

const testSecret = "test_secret_key_minimum_32_chars!"

func TestGenerateSessionToken(t *testing.T) {
	tests := []struct {
		name      string
		sessionID uint
		userID    uint
		deviceID  string
	}{
		{
			name:      "Cashier terminal",
			sessionID: 1,
			userID:    7,
			deviceID:  "cashier-01",
		},
		{
			name:      "Registrar terminal",
			sessionID: 42,
			userID:    3,
			deviceID:  "registrar-a",
		},
	}

	issuedAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := GenerateSessionToken(tt.sessionID, tt.userID, tt.deviceID, issuedAt, testSecret)
			if err != nil {
				t.Fatalf("GenerateSessionToken() error = %v", err)
			}

			if token == "" {
				t.Error("GenerateSessionToken() returned empty token")
			}

			claims, err := ValidateSessionToken(token, testSecret)
			if err != nil {
				t.Fatalf("ValidateSessionToken() error = %v", err)
			}

			if claims.SessionID != tt.sessionID {
				t.Errorf("SessionID = %d, want %d", claims.SessionID, tt.sessionID)
			}
			if claims.UserID != tt.userID {
				t.Errorf("UserID = %d, want %d", claims.UserID, tt.userID)
			}
			if claims.DeviceID != tt.deviceID {
				t.Errorf("DeviceID = %q, want %q", claims.DeviceID, tt.deviceID)
			}
			if !claims.IssuedAt.Time.Equal(issuedAt) {
				t.Errorf("IssuedAt = %v, want %v", claims.IssuedAt.Time, issuedAt)
			}
		})
	}
}

func TestValidateSessionToken_InvalidToken(t *testing.T) {
	valid, err := GenerateSessionToken(1, 1, "dev", time.Now(), testSecret)
	if err != nil {
		t.Fatalf("GenerateSessionToken() error = %v", err)
	}

	tests := []struct {
		name   string
		token  string
		secret string
	}{
		{
			name:   "Empty token",
			token:  "",
			secret: testSecret,
		},
		{
			name:   "Invalid format",
			token:  "invalid.token.here",
			secret: testSecret,
		},
		{
			name:   "Random string",
			token:  "randomstring",
			secret: testSecret,
		},
		{
			name:   "Wrong secret",
			token:  valid,
			secret: "another_secret_key_minimum_32_chars",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateSessionToken(tt.token, tt.secret)
			if err == nil {
				t.Error("ValidateSessionToken() expected error for invalid token, got nil")
			}
		})
	}
}

func TestGenerateRandomToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := GenerateRandomToken(16)
		if err != nil {
			t.Fatalf("GenerateRandomToken() error = %v", err)
		}
		// 16 bytes encode to 22 unpadded characters
		if len(token) != 22 {
			t.Errorf("len = %d, want 22", len(token))
		}
		if seen[token] {
			t.Fatalf("duplicate token %q", token)
		}
		seen[token] = true
	}
}
