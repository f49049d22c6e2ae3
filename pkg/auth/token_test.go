package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ventia-app/ventia-backend/pkg/config"
)

func testIdentityConfig() config.IdentityConfig {
	return config.IdentityConfig{
		TokenSecret: "test-secret",
		Issuer:      "https://id.example.com/",
	}
}

func TestMintAndParseIdentityToken(t *testing.T) {
	cfg := testIdentityConfig()
	now := time.Now()

	token, err := MintIdentityToken(cfg, now, "auth0|user-1", "owner@example.com", "Owner", time.Hour)
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}

	claims, err := ParseIdentityToken(cfg, token)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if claims.ExternalID() != "auth0|user-1" {
		t.Fatalf("unexpected external id %q", claims.ExternalID())
	}
	if claims.Email != "owner@example.com" {
		t.Fatalf("unexpected email %q", claims.Email)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	cfg := testIdentityConfig()
	token, err := MintIdentityToken(cfg, time.Now(), "auth0|user-1", "", "", time.Hour)
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}

	other := cfg
	other.TokenSecret = "different-secret"
	if _, err := ParseIdentityToken(other, token); err == nil {
		t.Fatalf("expected signature verification failure")
	}
}

func TestParseRejectsUnsignedToken(t *testing.T) {
	cfg := testIdentityConfig()

	claims := IdentityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   "auth0|user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("build unsigned token: %v", err)
	}

	if _, err := ParseIdentityToken(cfg, unsigned); err == nil {
		t.Fatalf("alg=none token must be rejected")
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	cfg := testIdentityConfig()
	token, err := MintIdentityToken(cfg, time.Now().Add(-2*time.Hour), "auth0|user-1", "", "", time.Hour)
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	if _, err := ParseIdentityToken(cfg, token); err == nil {
		t.Fatalf("expected expiry rejection")
	}
}

func TestParseRejectsEmptySubject(t *testing.T) {
	cfg := testIdentityConfig()
	token, err := MintIdentityToken(cfg, time.Now(), "auth0|user-1", "", "", time.Hour)
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	// Tamper: re-mint with empty subject should be refused at mint time.
	if _, err := MintIdentityToken(cfg, time.Now(), "", "", "", time.Hour); err == nil {
		t.Fatalf("expected mint to require a subject")
	}
	if !strings.Contains(token, ".") {
		t.Fatalf("token should be a compact JWS")
	}
}
