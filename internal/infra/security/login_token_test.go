package security

import (
	"errors"
	"testing"
	"time"
)

const testSigningSecret = "0123456789abcdef0123456789abcdef"

func newTestTokenManager(t *testing.T) *LoginTokenManager {
	t.Helper()
	m, err := NewLoginTokenManager(testSigningSecret, "washlytics-test", 5*time.Minute)
	if err != nil {
		t.Fatalf("login token manager: %v", err)
	}
	return m
}

func TestLoginTokenMintAndVerify(t *testing.T) {
	m := newTestTokenManager(t)

	token, err := m.Mint("user-1", "tenant-1", "sparkle")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	claims, err := m.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("expected subject user-1, got %q", claims.Subject)
	}
	if claims.TenantID != "tenant-1" || claims.Subdomain != "sparkle" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestLoginTokenExpires(t *testing.T) {
	m := newTestTokenManager(t)

	token, err := m.Mint("user-1", "tenant-1", "sparkle")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	m.WithClock(func() time.Time { return time.Now().Add(10 * time.Minute) })
	if _, err := m.Verify(token); !errors.Is(err, ErrLoginTokenInvalid) {
		t.Fatalf("expected expired token rejected, got %v", err)
	}
}

func TestLoginTokenRejectsForeignSignature(t *testing.T) {
	m := newTestTokenManager(t)

	other, err := NewLoginTokenManager("ffffffffffffffffffffffffffffffff", "washlytics-test", 5*time.Minute)
	if err != nil {
		t.Fatalf("second manager: %v", err)
	}
	token, err := other.Mint("user-1", "tenant-1", "sparkle")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	if _, err := m.Verify(token); !errors.Is(err, ErrLoginTokenInvalid) {
		t.Fatalf("expected foreign token rejected, got %v", err)
	}
}

func TestLoginTokenRejectsEmptyInput(t *testing.T) {
	m := newTestTokenManager(t)

	if _, err := m.Verify(""); !errors.Is(err, ErrLoginTokenInvalid) {
		t.Fatalf("expected empty token rejected, got %v", err)
	}
	if _, err := m.Mint("", "tenant-1", "sparkle"); err == nil {
		t.Fatal("expected mint to require a user id")
	}
}

func TestNewLoginTokenManagerRequiresStrongSecret(t *testing.T) {
	if _, err := NewLoginTokenManager("short", "washlytics-test", time.Minute); err == nil {
		t.Fatal("expected short secret rejected")
	}
}
