package session

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}
	return tok
}

func TestIdentityFromToken(t *testing.T) {
	tok := signedToken(t, jwt.MapClaims{
		"sub":  "u1",
		"role": "admin",
		"name": "Test User",
	})
	id, err := IdentityFromToken(tok)
	if err != nil {
		t.Fatalf("IdentityFromToken failed: %v", err)
	}
	if id.UserID != "u1" || id.RoleID != "admin" || id.Name != "Test User" {
		t.Errorf("identity = %+v", id)
	}
}

func TestIdentityFromTokenMissingSubject(t *testing.T) {
	tok := signedToken(t, jwt.MapClaims{"role": "admin"})
	if _, err := IdentityFromToken(tok); err == nil {
		t.Fatal("expected error for a token without a subject")
	}
}

func TestIdentityFromEmptyToken(t *testing.T) {
	if _, err := IdentityFromToken(""); err == nil {
		t.Fatal("expected error for an empty token")
	}
}
