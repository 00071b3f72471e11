package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/washlytics/tenant-onboarding/internal/core/domain"
	"github.com/washlytics/tenant-onboarding/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishTenantCreated logs onboarding.tenant.created events.
func (p *StubPublisher) PublishTenantCreated(_ context.Context, event domain.TenantCreatedEvent) error {
	payload := map[string]any{
		"tenant_id":      event.TenantID,
		"name":           event.Name,
		"subdomain":      event.Subdomain,
		"owner_user_id":  event.OwnerUserID,
		"signup_channel": event.SignupChannel,
		"created_at":     event.CreatedAt,
		"metadata":       event.Metadata,
	}
	p.logEvent("onboarding.tenant.created", event.CreatedAt, payload)
	return nil
}

// PublishPhoneVerificationRequested logs onboarding.phone.verification_requested events.
func (p *StubPublisher) PublishPhoneVerificationRequested(_ context.Context, event domain.PhoneVerificationRequestedEvent) error {
	payload := map[string]any{
		"masked_phone": event.MaskedPhone,
		"purpose":      event.Purpose,
		"requested_at": event.RequestedAt,
		"expires_at":   event.ExpiresAt,
		"metadata":     event.Metadata,
	}
	p.logEvent("onboarding.phone.verification_requested", event.RequestedAt, payload)
	return nil
}

// PublishPhoneVerified logs onboarding.phone.verified events.
func (p *StubPublisher) PublishPhoneVerified(_ context.Context, event domain.PhoneVerifiedEvent) error {
	payload := map[string]any{
		"user_id":            event.UserID,
		"masked_phone":       event.MaskedPhone,
		"verified_at":        event.VerifiedAt,
		"device_fingerprint": event.DeviceFingerprint,
		"metadata":           event.Metadata,
	}
	p.logEvent("onboarding.phone.verified", event.VerifiedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
