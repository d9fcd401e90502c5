package auth

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"scriptmentor/internal/domain"
	"scriptmentor/internal/domain/models"
)

func testVerifier(t *testing.T) (*SupabaseJWTVerifier, *ecdsa.PrivateKey) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	kf := func(*jwt.Token) (any, error) { return &key.PublicKey, nil }
	return newVerifier(kf, slog.New(slog.NewTextHandler(io.Discard, nil))), key
}

func sign(t *testing.T, key *ecdsa.PrivateKey, claims models.SupabaseClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func claims(sub, role string, exp time.Duration) models.SupabaseClaims {
	return models.SupabaseClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(exp)),
		},
		Role: role,
	}
}

func TestVerifyToken(t *testing.T) {
	v, key := testVerifier(t)

	got, err := v.VerifyToken(sign(t, key, claims("user-1", "authenticated", time.Hour)))
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if got.GetUserID() != "user-1" {
		t.Errorf("user id = %q, want user-1", got.GetUserID())
	}
}

func TestVerifyTokenRejects(t *testing.T) {
	v, key := testVerifier(t)
	other, _ := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)

	hs, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims("user-1", "authenticated", time.Hour)).SignedString([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"expired", sign(t, key, claims("user-1", "authenticated", -time.Minute))},
		{"anonymous role", sign(t, key, claims("user-1", "anon", time.Hour))},
		{"missing subject", sign(t, key, claims("", "authenticated", time.Hour))},
		{"wrong key", sign(t, other, claims("user-1", "authenticated", time.Hour))},
		{"hmac algorithm", hs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := v.VerifyToken(tt.token); !errors.Is(err, domain.ErrUnauthorized) {
				t.Errorf("err = %v, want ErrUnauthorized", err)
			}
		})
	}
}
