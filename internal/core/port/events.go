package port

import (
	"context"

	"github.com/washlytics/tenant-onboarding/internal/core/domain"
)

// EventPublisher publishes onboarding domain events to the message bus.
type EventPublisher interface {
	PublishTenantCreated(ctx context.Context, event domain.TenantCreatedEvent) error
	PublishPhoneVerificationRequested(ctx context.Context, event domain.PhoneVerificationRequestedEvent) error
	PublishPhoneVerified(ctx context.Context, event domain.PhoneVerifiedEvent) error
}
