package port

import (
	"context"
	"time"

	"github.com/washlytics/tenant-onboarding/internal/core/domain"
)

// VerificationStore persists outstanding verification codes keyed by purpose
// and contact. Entries are TTL-bound; a re-send for the same contact replaces
// the prior entry.
type VerificationStore interface {
	Store(ctx context.Context, verification domain.ContactVerification, ttl time.Duration) error
	Fetch(ctx context.Context, purpose domain.VerificationPurpose, contact string) (*domain.ContactVerification, error)
	IncrementAttempts(ctx context.Context, purpose domain.VerificationPurpose, contact string) (int, error)
	MarkVerified(ctx context.Context, purpose domain.VerificationPurpose, contact string) error
	Delete(ctx context.Context, purpose domain.VerificationPurpose, contact string) error
}
