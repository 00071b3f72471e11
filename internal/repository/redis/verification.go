package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/washlytics/tenant-onboarding/internal/core/domain"
	"github.com/washlytics/tenant-onboarding/internal/core/port"
	"github.com/washlytics/tenant-onboarding/internal/repository"
)

const (
	defaultVerificationPrefix = "verification"

	fieldCodeHash  = "code_hash"
	fieldDraft     = "draft"
	fieldAttempts  = "attempts"
	fieldVerified  = "verified"
	fieldCreatedAt = "created_at"
	fieldExpiresAt = "expires_at"
)

type storedDraft struct {
	BusinessName string `json:"business_name,omitempty"`
	Subdomain    string `json:"subdomain,omitempty"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
}

// VerificationRepository persists outstanding verification codes in Redis
// hashes keyed by purpose and contact.
type VerificationRepository struct {
	client *red.Client
	prefix string
	now    func() time.Time
}

// NewVerificationRepository constructs a verification store with the provided
// Redis client and key prefix.
func NewVerificationRepository(client *red.Client, keyPrefix string) *VerificationRepository {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultVerificationPrefix
	}

	return &VerificationRepository{
		client: client,
		prefix: prefix,
		now:    time.Now,
	}
}

// Store persists a verification entry with the supplied TTL, replacing any
// prior entry for the same purpose and contact.
func (r *VerificationRepository) Store(ctx context.Context, verification domain.ContactVerification, ttl time.Duration) error {
	switch {
	case verification.Purpose == "":
		return errors.New("purpose is required")
	case strings.TrimSpace(verification.Contact) == "":
		return errors.New("contact is required")
	case verification.CodeHash == "":
		return errors.New("code hash is required")
	case ttl <= 0:
		return errors.New("ttl must be positive")
	}

	draftJSON, err := json.Marshal(storedDraft{
		BusinessName: verification.Draft.BusinessName,
		Subdomain:    verification.Draft.Subdomain,
		FirstName:    verification.Draft.FirstName,
		LastName:     verification.Draft.LastName,
	})
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}

	createdAt := verification.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.now().UTC()
	}
	expiresAt := verification.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = createdAt.Add(ttl)
	}

	key := r.key(verification.Purpose, verification.Contact)

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, map[string]any{
		fieldCodeHash:  verification.CodeHash,
		fieldDraft:     string(draftJSON),
		fieldAttempts:  strconv.Itoa(verification.Attempts),
		fieldVerified:  boolField(verification.Verified),
		fieldCreatedAt: strconv.FormatInt(createdAt.Unix(), 10),
		fieldExpiresAt: strconv.FormatInt(expiresAt.Unix(), 10),
	})
	pipe.Expire(ctx, key, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis store verification: %w", err)
	}

	return nil
}

// Fetch retrieves the verification entry for the provided purpose and contact.
func (r *VerificationRepository) Fetch(ctx context.Context, purpose domain.VerificationPurpose, contact string) (*domain.ContactVerification, error) {
	key := r.key(purpose, contact)
	if key == "" {
		return nil, errors.New("purpose and contact are required")
	}

	values, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall verification: %w", err)
	}
	if len(values) == 0 {
		return nil, repository.ErrNotFound
	}

	codeHash := strings.TrimSpace(values[fieldCodeHash])
	if codeHash == "" {
		return nil, repository.ErrNotFound
	}

	createdAt, err := parseUnix(values[fieldCreatedAt])
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	expiresAt, err := parseUnix(values[fieldExpiresAt])
	if err != nil {
		return nil, fmt.Errorf("parse expires_at: %w", err)
	}

	attempts := 0
	if raw := values[fieldAttempts]; raw != "" {
		if v, convErr := strconv.Atoi(raw); convErr == nil {
			attempts = v
		}
	}

	var draft storedDraft
	if raw := values[fieldDraft]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &draft); err != nil {
			return nil, fmt.Errorf("unmarshal draft: %w", err)
		}
	}

	return &domain.ContactVerification{
		Contact:  strings.TrimSpace(contact),
		CodeHash: codeHash,
		Purpose:  purpose,
		Draft: domain.RegistrationDraft{
			BusinessName: draft.BusinessName,
			Subdomain:    draft.Subdomain,
			FirstName:    draft.FirstName,
			LastName:     draft.LastName,
		},
		Attempts:  attempts,
		Verified:  values[fieldVerified] == "1",
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
	}, nil
}

// IncrementAttempts increments the attempt counter and returns the new value.
func (r *VerificationRepository) IncrementAttempts(ctx context.Context, purpose domain.VerificationPurpose, contact string) (int, error) {
	if _, err := r.Fetch(ctx, purpose, contact); err != nil {
		return 0, err
	}

	key := r.key(purpose, contact)
	count, err := r.client.HIncrBy(ctx, key, fieldAttempts, 1).Result()
	if err != nil {
		return 0, fmt.Errorf("redis hincrby verification attempts: %w", err)
	}

	return int(count), nil
}

// MarkVerified flags the entry as verified while keeping it alive for the
// account-creation step that consumes it.
func (r *VerificationRepository) MarkVerified(ctx context.Context, purpose domain.VerificationPurpose, contact string) error {
	if _, err := r.Fetch(ctx, purpose, contact); err != nil {
		return err
	}

	key := r.key(purpose, contact)
	if err := r.client.HSet(ctx, key, fieldVerified, "1").Err(); err != nil {
		return fmt.Errorf("redis mark verified: %w", err)
	}

	return nil
}

// Delete removes the entry, enforcing single-use semantics.
func (r *VerificationRepository) Delete(ctx context.Context, purpose domain.VerificationPurpose, contact string) error {
	key := r.key(purpose, contact)
	if key == "" {
		return errors.New("purpose and contact are required")
	}

	deleted, err := r.client.Del(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("redis delete verification: %w", err)
	}
	if deleted == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// WithClock overrides the internal clock, used in tests.
func (r *VerificationRepository) WithClock(clock func() time.Time) {
	if clock != nil {
		r.now = clock
	}
}

func (r *VerificationRepository) key(purpose domain.VerificationPurpose, contact string) string {
	contact = strings.TrimSpace(contact)
	if purpose == "" || contact == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s:%s", r.prefix, purpose, contact)
}

func boolField(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func parseUnix(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, errors.New("timestamp is empty")
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(v, 0).UTC(), nil
}

var _ port.VerificationStore = (*VerificationRepository)(nil)
