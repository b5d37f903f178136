package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	verifier, err := NewVerifier(testSecret)
	if err != nil {
		t.Fatalf("NewVerifier() error = %v", err)
	}

	token, err := verifier.Issue("admin@atelier", time.Minute)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	subject, err := verifier.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if subject != "admin@atelier" {
		t.Fatalf("subject = %q, want admin@atelier", subject)
	}
}

func TestVerifyRejections(t *testing.T) {
	t.Parallel()

	verifier, err := NewVerifier(testSecret)
	if err != nil {
		t.Fatalf("NewVerifier() error = %v", err)
	}

	signed := func(claims jwt.RegisteredClaims, secret string) string {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return token
	}
	now := time.Now()

	tests := []struct {
		name  string
		token string
	}{
		{
			name: "wrong secret",
			token: signed(jwt.RegisteredClaims{
				Subject:   "admin",
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
			}, strings.Repeat("x", 32)),
		},
		{
			name: "expired",
			token: signed(jwt.RegisteredClaims{
				Subject:   "admin",
				ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute)),
			}, testSecret),
		},
		{
			name: "no expiry",
			token: signed(jwt.RegisteredClaims{
				Subject: "admin",
			}, testSecret),
		},
		{
			name: "missing subject",
			token: signed(jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
			}, testSecret),
		},
		{
			name:  "garbage",
			token: "not.a.token",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := verifier.Verify(tc.token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("Verify() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestNewVerifierRequiresStrongSecret(t *testing.T) {
	t.Parallel()

	if _, err := NewVerifier("short"); err == nil {
		t.Fatal("NewVerifier() accepted a short secret")
	}
}
