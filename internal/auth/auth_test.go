package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"movie-recommendation-backend/internal/config"
)

func newTestManager(t *testing.T) *TokenManager {
	t.Helper()
	m, err := NewTokenManager(config.AuthConfig{
		JWTSecret:       "test-secret-with-enough-length-123456",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewTokenManager() error = %v", err)
	}
	return m
}

func TestNewTokenManagerRequiresSecret(t *testing.T) {
	if _, err := NewTokenManager(config.AuthConfig{}); err == nil {
		t.Error("NewTokenManager() accepted an empty secret")
	}
}

func TestIssueAndParsePair(t *testing.T) {
	m := newTestManager(t)

	pair, err := m.IssuePair(42)
	if err != nil {
		t.Fatalf("IssuePair() error = %v", err)
	}

	access, err := m.Parse(pair.Access, TokenTypeAccess)
	if err != nil {
		t.Fatalf("Parse(access) error = %v", err)
	}
	if id, _ := access.UserID(); id != 42 {
		t.Errorf("UserID() = %d, want 42", id)
	}

	refresh, err := m.Parse(pair.Refresh, TokenTypeRefresh)
	if err != nil {
		t.Fatalf("Parse(refresh) error = %v", err)
	}
	if refresh.ID != pair.RefreshID || refresh.ID == access.ID {
		t.Errorf("refresh jti = %q, pair jti = %q, access jti = %q", refresh.ID, pair.RefreshID, access.ID)
	}
}

func TestParseRejectsWrongType(t *testing.T) {
	m := newTestManager(t)
	pair, _ := m.IssuePair(1)

	if _, err := m.Parse(pair.Refresh, TokenTypeAccess); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Parse(refresh as access) error = %v, want ErrInvalidToken", err)
	}
}

func TestParseRejectsExpired(t *testing.T) {
	m := newTestManager(t)
	m.now = func() time.Time { return time.Now().Add(-2 * time.Minute) }
	token, err := m.IssueAccess(1)
	if err != nil {
		t.Fatal(err)
	}
	m.now = time.Now

	if _, err := m.Parse(token, TokenTypeAccess); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Parse(expired) error = %v, want ErrInvalidToken", err)
	}
}

func TestParseRejectsForeignSignature(t *testing.T) {
	m := newTestManager(t)
	other, _ := NewTokenManager(config.AuthConfig{JWTSecret: "another-secret", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Minute})
	token, _ := other.IssueAccess(1)

	if _, err := m.Parse(token, TokenTypeAccess); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Parse(foreign) error = %v, want ErrInvalidToken", err)
	}
	if _, err := m.Parse("not.a.token", TokenTypeAccess); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Parse(garbage) error = %v, want ErrInvalidToken", err)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if !CheckPassword(hash, "correct horse") {
		t.Error("CheckPassword() rejected the right password")
	}
	if CheckPassword(hash, "battery staple") {
		t.Error("CheckPassword() accepted the wrong password")
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		wantErr  bool
	}{
		{"short", true},
		{"longenough", false},
		{strings.Repeat("a", 73), true},
	}
	for _, tt := range tests {
		if err := ValidatePassword(tt.password, 8); (err != nil) != tt.wantErr {
			t.Errorf("ValidatePassword(%q) error = %v, wantErr %v", tt.password, err, tt.wantErr)
		}
	}
}
