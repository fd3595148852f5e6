package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAndValidateHostToken(t *testing.T) {
	mgr := NewJWTManager("test-secret-key-123")
	token, err := mgr.GenerateHostToken("calradia-host")
	if err != nil {
		t.Fatalf("generate host token: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	claims, err := mgr.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.HostID != "calradia-host" {
		t.Errorf("expected host_id=calradia-host, got %s", claims.HostID)
	}
	if claims.Subject != "calradia-host" {
		t.Errorf("expected subject=calradia-host, got %s", claims.Subject)
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != DefaultHostTokenTTL {
		t.Errorf("expected ttl %v, got %v", DefaultHostTokenTTL, got)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := NewJWTManager("secret-one").GenerateHostToken("host-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := NewJWTManager("secret-two").ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken with wrong secret, got %v", err)
	}
}

func TestValidateTokenGarbage(t *testing.T) {
	mgr := NewJWTManager("test-secret")
	if _, err := mgr.ValidateToken("not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for garbage, got %v", err)
	}
	if _, err := mgr.ValidateToken(""); !errors.Is(err, ErrMissingToken) {
		t.Errorf("expected ErrMissingToken for empty token, got %v", err)
	}
}

func TestExpiredToken(t *testing.T) {
	mgr := NewJWTManager("test-secret").WithTTL(-time.Second)
	token, err := mgr.GenerateHostToken("host-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := mgr.ValidateToken(token); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestWithTTLLeavesOriginalUntouched(t *testing.T) {
	mgr := NewJWTManager("test-secret")
	short := mgr.WithTTL(time.Minute)
	if mgr.ttl != DefaultHostTokenTTL || short.ttl != time.Minute {
		t.Errorf("unexpected ttls %v / %v", mgr.ttl, short.ttl)
	}
}

func TestTokenFromOtherIssuerRejected(t *testing.T) {
	claims := &Claims{
		HostID: "host-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := NewJWTManager("test-secret").ValidateToken(token); err == nil {
		t.Error("expected token from another issuer to be rejected")
	}
}

func TestTokenWithoutHostRejected(t *testing.T) {
	token, err := NewJWTManager("test-secret").GenerateHostToken("")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := NewJWTManager("test-secret").ValidateToken(token); err == nil {
		t.Error("expected token without host id to be rejected")
	}
}
