package auth

import (
	"testing"
	"time"

	"github.com/fabrimaq/maintenance-service/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("segredo-de-teste", 30*time.Minute)
	user := &domain.User{ID: "u-tech", Name: "Tecnico", Email: "tech@fabrica.com", Role: domain.RoleTechnician}

	token, expiresAt, err := tm.GenerateToken(user)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if remaining := time.Until(expiresAt); remaining < 29*time.Minute || remaining > 30*time.Minute {
		t.Errorf("expiry %v outside configured ttl", remaining)
	}

	claims, err := tm.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.Email != user.Email {
		t.Errorf("email = %q, want %q", claims.Email, user.Email)
	}
	if claims.Role != domain.RoleTechnician {
		t.Errorf("role = %q, want manutentor", claims.Role)
	}
	if claims.Subject != user.ID {
		t.Errorf("subject = %q, want user id", claims.Subject)
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenManager("segredo-a", time.Hour)
	verifier := NewTokenManager("segredo-b", time.Hour)

	token, _, err := issuer.GenerateToken(&domain.User{ID: "u-1", Email: "a@fabrica.com"})
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := verifier.ParseToken(token); err == nil {
		t.Fatal("token signed with another secret must not parse")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	tm := &TokenManager{secret: []byte("segredo"), ttl: -time.Minute}

	token, _, err := tm.GenerateToken(&domain.User{ID: "u-1", Email: "a@fabrica.com"})
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := tm.ParseToken(token); err == nil {
		t.Fatal("expired token must not parse")
	}
}
