package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	testSecret = "test-secret"
	testIssuer = "teri-auth"
)

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestParseValidToken(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub":       "user-1",
		"couple_id": "couple-1",
		"iss":       testIssuer,
		"scopes":    []string{ScopeSuggestionsRead, ScopeActivitiesRead},
		"exp":       time.Now().Add(time.Hour).Unix(),
	})

	claims, err := Parse(token, Config{Secret: testSecret, Issuer: testIssuer})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("subject = %q", claims.Subject)
	}
	if claims.CoupleID != "couple-1" {
		t.Fatalf("couple id = %q", claims.CoupleID)
	}
	if !claims.HasScope(ScopeSuggestionsRead) {
		t.Fatal("expected suggestions:read scope")
	}
	if claims.HasScope("suggestions:write") {
		t.Fatal("unexpected scope granted")
	}
}

func TestParseSpaceSeparatedScopes(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub":       "user-1",
		"couple_id": "couple-1",
		"iss":       testIssuer,
		"scopes":    "suggestions:read activities:read",
		"exp":       time.Now().Add(time.Hour).Unix(),
	})

	claims, err := Parse(token, Config{Secret: testSecret, Issuer: testIssuer})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !claims.HasScope(ScopeSuggestionsRead) || !claims.HasScope(ScopeActivitiesRead) {
		t.Fatalf("scopes = %v", claims.Scopes)
	}
}

func TestParseRejectsMissingCoupleID(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub": "user-1",
		"iss": testIssuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	if _, err := Parse(token, Config{Secret: testSecret, Issuer: testIssuer}); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub":       "user-1",
		"couple_id": "couple-1",
		"iss":       "someone-else",
		"exp":       time.Now().Add(time.Hour).Unix(),
	})

	if _, err := Parse(token, Config{Secret: testSecret, Issuer: testIssuer}); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseRejectsEmptyToken(t *testing.T) {
	if _, err := Parse("  ", Config{Secret: testSecret, Issuer: testIssuer}); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
}
