package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
)

var testSecret = []byte("test-secret")

func TestVerifyValidToken(t *testing.T) {
	now := time.Now()
	token, err := CreateToken(testSecret, "user-1", now.Add(time.Hour))
	if err != nil {
		t.Fatalf("create token: %v", err)
	}

	claims, err := NewVerifier(testSecret, nil).Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Fatalf("expected user-1, got %q", claims.UserID)
	}
	if claims.ExpiresAt != now.Add(time.Hour).Unix() {
		t.Fatalf("unexpected exp %d", claims.ExpiresAt)
	}
}

func TestVerifyExpiredTokenKeepsClaims(t *testing.T) {
	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	token, err := CreateToken(testSecret, "user-1", issued.Add(time.Minute))
	if err != nil {
		t.Fatalf("create token: %v", err)
	}

	verifier := NewVerifier(testSecret, func() time.Time { return issued.Add(2 * time.Minute) })
	claims, err := verifier.Verify(token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
	if claims.UserID != "user-1" {
		t.Fatalf("expected claims alongside expiry, got %+v", claims)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := CreateToken([]byte("other"), "user-1", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("create token: %v", err)
	}
	if _, err := NewVerifier(testSecret, nil).Verify(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestVerifyRequiresUserID(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := NewVerifier(testSecret, nil).Verify(signed); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestVerifyRequiresExp(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "user-1",
	})
	signed, err := token.SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := NewVerifier(testSecret, nil).Verify(signed); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestVerifyEmptyToken(t *testing.T) {
	if _, err := NewVerifier(testSecret, nil).Verify(""); !errors.Is(err, ErrTokenEmpty) {
		t.Fatalf("expected ErrTokenEmpty, got %v", err)
	}
}
