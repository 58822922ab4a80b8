package auth

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/stockroomhq/stockroom-backend/pkg/config"
	"github.com/stockroomhq/stockroom-backend/pkg/enums"
)

func newTestManager(t *testing.T) *TokenManager {
	t.Helper()
	mgr, err := NewTokenManager(config.JWTConfig{Secret: "test-secret", Issuer: "stockroom-test"})
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	return mgr
}

func TestMintAndParseRoundTrip(t *testing.T) {
	t.Parallel()

	mgr := newTestManager(t)
	actorID := uuid.New()

	raw, err := mgr.Mint(actorID, enums.ActorRoleClerk)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	claims, err := mgr.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.ActorID != actorID {
		t.Fatalf("actor id = %s, want %s", claims.ActorID, actorID)
	}
	if claims.Role != enums.ActorRoleClerk {
		t.Fatalf("role = %s, want %s", claims.Role, enums.ActorRoleClerk)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	t.Parallel()

	mgr := newTestManager(t)
	raw, err := mgr.Mint(uuid.New(), enums.ActorRoleAdmin)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	other, err := NewTokenManager(config.JWTConfig{Secret: "different", Issuer: "stockroom-test"})
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	if _, err := other.Parse(raw); err == nil {
		t.Fatal("expected signature verification to fail")
	}
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	t.Parallel()

	mgr := newTestManager(t)
	raw, err := mgr.Mint(uuid.New(), enums.ActorRoleService)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	other, err := NewTokenManager(config.JWTConfig{Secret: "test-secret", Issuer: "someone-else"})
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	if _, err := other.Parse(raw); err == nil || !strings.Contains(err.Error(), "token") {
		t.Fatalf("expected issuer mismatch error, got %v", err)
	}
}

func TestMintRejectsInvalidRole(t *testing.T) {
	t.Parallel()

	mgr := newTestManager(t)
	if _, err := mgr.Mint(uuid.New(), enums.ActorRole("superuser")); err == nil {
		t.Fatal("expected invalid role to be rejected")
	}
}
