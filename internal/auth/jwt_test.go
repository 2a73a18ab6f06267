package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func TestGenerateAndValidateUnlockToken(t *testing.T) {
	token, err := GenerateUnlockToken(testSecret, "register-1")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	claims, err := ValidateToken(testSecret, token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.Device != "register-1" {
		t.Errorf("device: got %q, want %q", claims.Device, "register-1")
	}
	if claims.Subject != "register-unlock" {
		t.Errorf("subject: got %q, want %q", claims.Subject, "register-unlock")
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := GenerateUnlockToken(testSecret, "register-1")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	if _, err := ValidateToken("other-secret", token); err == nil {
		t.Fatal("expected error for wrong secret")
	}
}

func TestValidateTokenExpired(t *testing.T) {
	claims := Claims{
		Device: "register-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "register-unlock",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	tokenStr, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	_, err = ValidateToken(testSecret, tokenStr)
	if err == nil {
		t.Fatal("expected error for expired token")
	}
	if !strings.Contains(err.Error(), "expired") {
		t.Errorf("expected expiry error, got: %v", err)
	}
}

func TestValidateTokenGarbage(t *testing.T) {
	if _, err := ValidateToken(testSecret, "not-a-token"); err == nil {
		t.Fatal("expected error for malformed token")
	}
}
