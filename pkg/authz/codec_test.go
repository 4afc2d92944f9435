package authz

import (
	"strings"
	"testing"
	"time"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	codec, err := NewCodec("unit-test-secret", time.Hour)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	raw, err := codec.Encode(Claims{
		ID:    "id-1",
		Name:  "Ada",
		Email: "ada@example.com",
		Roles: []string{"Author", "Curator"},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	claims, err := codec.Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if claims["name"] != "Ada" || claims["email"] != "ada@example.com" || claims["id"] != "id-1" {
		t.Fatalf("identity claims lost: %v", claims)
	}
	if _, ok := claims["exp"]; !ok {
		t.Fatalf("issued token carries no expiry")
	}
	if jti, _ := claims["jti"].(string); jti == "" {
		t.Fatalf("issued token carries no jti")
	}
	roles, ok := claims["roles"].([]any)
	if !ok || len(roles) != 2 {
		t.Fatalf("roles claim = %v, want list of 2", claims["roles"])
	}
}

func TestDecodeRejectsWrongSecret(t *testing.T) {
	issuer, _ := NewCodec("secret-a", time.Hour)
	verifier, _ := NewCodec("secret-b", time.Hour)
	raw, err := issuer.Encode(Claims{ID: "id-1", Roles: []string{"Admin"}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := verifier.Decode(raw); err == nil {
		t.Fatalf("expected signature verification failure")
	}
}

func TestDecodeRejectsCorruptToken(t *testing.T) {
	codec, _ := NewCodec("unit-test-secret", time.Hour)
	raw, err := codec.Encode(Claims{ID: "id-1"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	corrupt := raw[:len(raw)-4] + "AAAA"
	if _, err := codec.Decode(corrupt); err == nil {
		t.Fatalf("expected corrupt token to fail decoding")
	}
	if _, err := codec.Decode("not.a.token"); err == nil {
		t.Fatalf("expected garbage to fail decoding")
	}
}

func TestNewCodecRequiresSecret(t *testing.T) {
	if _, err := NewCodec("  ", time.Hour); err == nil {
		t.Fatalf("expected blank secret to be rejected")
	}
	codec, err := NewCodec("s", 0)
	if err != nil {
		t.Fatalf("new codec with default ttl: %v", err)
	}
	if codec.ttl != DefaultTokenTTL {
		t.Fatalf("ttl = %v, want default %v", codec.ttl, DefaultTokenTTL)
	}
}

func TestEncodeNormalizesNilRoles(t *testing.T) {
	codec, _ := NewCodec("unit-test-secret", time.Hour)
	raw, err := codec.Encode(Claims{ID: "id-1"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	claims, err := codec.Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := claims["roles"].([]any); !ok {
		t.Fatalf("nil roles should encode as an empty list, got %T", claims["roles"])
	}
	if strings.Count(raw, ".") != 2 {
		t.Fatalf("token is not a compact JWS: %q", raw)
	}
}
