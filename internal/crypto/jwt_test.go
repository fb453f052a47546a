package crypto

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssue(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)

	token, err := svc.Issue("alice")
	if err != nil {
		t.Fatalf("Issue() unexpected error: %v", err)
	}
	if token == "" {
		t.Fatal("Issue() returned empty string")
	}
}

func TestVerifyValid(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)

	token, err := svc.Issue("alice")
	if err != nil {
		t.Fatalf("Issue() unexpected error: %v", err)
	}

	username, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify() unexpected error: %v", err)
	}
	if username != "alice" {
		t.Errorf("Verify() username = %q, want %q", username, "alice")
	}
}

func TestVerifyMalformed(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)

	_, err := svc.Verify("not-a-valid-token")
	if !errors.Is(err, ErrTokenMalformed) {
		t.Errorf("Verify() error = %v, want ErrTokenMalformed", err)
	}
	if !errors.Is(err, ErrInvalidToken) {
		t.Error("ErrTokenMalformed should wrap ErrInvalidToken")
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	token, err := NewTokenService("correct-secret", time.Hour).Issue("alice")
	if err != nil {
		t.Fatalf("Issue() unexpected error: %v", err)
	}

	_, err = NewTokenService("wrong-secret", time.Hour).Verify(token)
	if !errors.Is(err, ErrTokenBadSignature) {
		t.Errorf("Verify() error = %v, want ErrTokenBadSignature", err)
	}
}

func TestVerifyExpired(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)
	issued := time.Now().Add(-2 * time.Hour)
	svc.now = func() time.Time { return issued }

	token, err := svc.Issue("alice")
	if err != nil {
		t.Fatalf("Issue() unexpected error: %v", err)
	}

	svc.now = time.Now
	_, err = svc.Verify(token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Verify() error = %v, want ErrTokenExpired", err)
	}
}

func TestVerifyExpiryMatchesTTL(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)
	base := time.Now()
	svc.now = func() time.Time { return base }

	token, err := svc.Issue("alice")
	if err != nil {
		t.Fatalf("Issue() unexpected error: %v", err)
	}

	svc.now = func() time.Time { return base.Add(59 * time.Minute) }
	if _, err := svc.Verify(token); err != nil {
		t.Errorf("Verify() before expiry unexpected error: %v", err)
	}

	svc.now = func() time.Time { return base.Add(61 * time.Minute) }
	if _, err := svc.Verify(token); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Verify() after expiry error = %v, want ErrTokenExpired", err)
	}
}

func TestVerifyWrongIssuer(t *testing.T) {
	secret := "test-secret"

	// Create a token with a wrong issuer
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "wrong-issuer",
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Username: "alice",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("SignedString() unexpected error: %v", err)
	}

	_, err = NewTokenService(secret, time.Hour).Verify(tokenString)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyMissingUsername(t *testing.T) {
	secret := "test-secret"

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("SignedString() unexpected error: %v", err)
	}

	_, err = NewTokenService(secret, time.Hour).Verify(tokenString)
	if !errors.Is(err, ErrTokenMalformed) {
		t.Errorf("Verify() error = %v, want ErrTokenMalformed", err)
	}
}
