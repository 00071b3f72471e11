package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"

	"github.com/washlytics/tenant-onboarding/internal/core/domain"
	"github.com/washlytics/tenant-onboarding/internal/repository"
)

func newTestRedis(t *testing.T) (*red.Client, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := red.NewClient(&red.Options{Addr: server.Addr()})

	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})

	return client, server
}

func testVerification(contact string) domain.ContactVerification {
	return domain.ContactVerification{
		Contact:  contact,
		CodeHash: "abc123hash",
		Purpose:  domain.VerificationPurposeSignup,
		Draft: domain.RegistrationDraft{
			BusinessName: "Sparkle Wash",
			Subdomain:    "sparkle",
			FirstName:    "Dana",
			LastName:     "Kim",
		},
	}
}

func TestVerificationRepository_StoreAndFetch(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewVerificationRepository(client, "verification")

	ctx := context.Background()
	ttl := 10 * time.Minute

	if err := repo.Store(ctx, testVerification("+15551234567"), ttl); err != nil {
		t.Fatalf("Store returned error: %v", err)
	}

	record, err := repo.Fetch(ctx, domain.VerificationPurposeSignup, "+15551234567")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}

	if record.CodeHash != "abc123hash" {
		t.Fatalf("expected code hash abc123hash, got %s", record.CodeHash)
	}
	if record.Draft.Subdomain != "sparkle" {
		t.Fatalf("expected draft subdomain sparkle, got %s", record.Draft.Subdomain)
	}
	if record.Attempts != 0 {
		t.Fatalf("expected zero attempts, got %d", record.Attempts)
	}
	if record.Verified {
		t.Fatalf("expected record to start unverified")
	}
	if !record.ExpiresAt.After(record.CreatedAt) {
		t.Fatalf("expected expiry after creation")
	}

	remaining := server.TTL("verification:signup:+15551234567")
	if remaining <= 0 || remaining > ttl {
		t.Fatalf("expected ttl within (0, %v], got %v", ttl, remaining)
	}
}

func TestVerificationRepository_StoreReplacesPriorEntry(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewVerificationRepository(client, "verification")

	ctx := context.Background()

	first := testVerification("+15551234567")
	if err := repo.Store(ctx, first, time.Minute); err != nil {
		t.Fatalf("Store returned error: %v", err)
	}
	if _, err := repo.IncrementAttempts(ctx, domain.VerificationPurposeSignup, "+15551234567"); err != nil {
		t.Fatalf("IncrementAttempts returned error: %v", err)
	}

	second := first
	second.CodeHash = "freshhash"
	if err := repo.Store(ctx, second, time.Minute); err != nil {
		t.Fatalf("Store returned error: %v", err)
	}

	record, err := repo.Fetch(ctx, domain.VerificationPurposeSignup, "+15551234567")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if record.CodeHash != "freshhash" {
		t.Fatalf("expected replaced code hash, got %s", record.CodeHash)
	}
	if record.Attempts != 0 {
		t.Fatalf("expected attempts reset on replace, got %d", record.Attempts)
	}
}

func TestVerificationRepository_FetchMiss(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewVerificationRepository(client, "verification")

	if _, err := repo.Fetch(context.Background(), domain.VerificationPurposeSignup, "+15550000000"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestVerificationRepository_IncrementAttempts(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewVerificationRepository(client, "verification")

	ctx := context.Background()
	if err := repo.Store(ctx, testVerification("+15551234567"), time.Minute); err != nil {
		t.Fatalf("Store returned error: %v", err)
	}

	for want := 1; want <= 3; want++ {
		got, err := repo.IncrementAttempts(ctx, domain.VerificationPurposeSignup, "+15551234567")
		if err != nil {
			t.Fatalf("IncrementAttempts returned error: %v", err)
		}
		if got != want {
			t.Fatalf("expected %d attempts, got %d", want, got)
		}
	}
}

func TestVerificationRepository_MarkVerified(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewVerificationRepository(client, "verification")

	ctx := context.Background()
	if err := repo.Store(ctx, testVerification("+15551234567"), time.Minute); err != nil {
		t.Fatalf("Store returned error: %v", err)
	}

	if err := repo.MarkVerified(ctx, domain.VerificationPurposeSignup, "+15551234567"); err != nil {
		t.Fatalf("MarkVerified returned error: %v", err)
	}

	record, err := repo.Fetch(ctx, domain.VerificationPurposeSignup, "+15551234567")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if !record.Verified {
		t.Fatalf("expected record to be verified")
	}
}

func TestVerificationRepository_Delete(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewVerificationRepository(client, "verification")

	ctx := context.Background()
	if err := repo.Store(ctx, testVerification("+15551234567"), time.Minute); err != nil {
		t.Fatalf("Store returned error: %v", err)
	}

	if err := repo.Delete(ctx, domain.VerificationPurposeSignup, "+15551234567"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	if err := repo.Delete(ctx, domain.VerificationPurposeSignup, "+15551234567"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestVerificationRepository_ExpiresWithTTL(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewVerificationRepository(client, "verification")

	ctx := context.Background()
	if err := repo.Store(ctx, testVerification("+15551234567"), time.Minute); err != nil {
		t.Fatalf("Store returned error: %v", err)
	}

	server.FastForward(2 * time.Minute)

	if _, err := repo.Fetch(ctx, domain.VerificationPurposeSignup, "+15551234567"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}
}

func TestVerificationRepository_InvalidInput(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewVerificationRepository(client, "verification")

	ctx := context.Background()

	missingContact := testVerification(" ")
	if err := repo.Store(ctx, missingContact, time.Minute); err == nil {
		t.Fatalf("expected error for missing contact")
	}

	noTTL := testVerification("+15551234567")
	if err := repo.Store(ctx, noTTL, 0); err == nil {
		t.Fatalf("expected error for non-positive ttl")
	}
}
