package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/washlytics/tenant-onboarding/internal/core/domain"
	"github.com/washlytics/tenant-onboarding/internal/core/port"
	"github.com/washlytics/tenant-onboarding/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	TenantID  string           `json:"tenant_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, tenantID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		TenantID:  tenantID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishTenantCreated publishes onboarding.tenant.created events.
func (p *EventPublisher) PublishTenantCreated(ctx context.Context, event domain.TenantCreatedEvent) error {
	payload := struct {
		TenantID       string         `json:"tenant_id"`
		Name           string         `json:"name"`
		Subdomain      string         `json:"subdomain"`
		OwnerUserID    string         `json:"owner_user_id"`
		OwnerEmail     *string        `json:"owner_email,omitempty"`
		OwnerPhone     *string        `json:"owner_phone,omitempty"`
		SignupChannel  string         `json:"signup_channel"`
		CreatedAt      time.Time      `json:"created_at"`
		IdempotencyKey string         `json:"idempotency_key,omitempty"`
		Metadata       map[string]any `json:"metadata,omitempty"`
	}{
		TenantID:       event.TenantID,
		Name:           event.Name,
		Subdomain:      event.Subdomain,
		OwnerUserID:    event.OwnerUserID,
		OwnerEmail:     event.OwnerEmail,
		OwnerPhone:     event.OwnerPhone,
		SignupChannel:  event.SignupChannel,
		CreatedAt:      event.CreatedAt.UTC(),
		IdempotencyKey: event.IdempotencyKey,
		Metadata:       event.Metadata,
	}

	return p.publish(ctx, event.EventID, "onboarding.tenant.created", event.TenantID, event.CreatedAt, payload)
}

// PublishPhoneVerificationRequested publishes onboarding.phone.verification_requested events.
func (p *EventPublisher) PublishPhoneVerificationRequested(ctx context.Context, event domain.PhoneVerificationRequestedEvent) error {
	payload := struct {
		MaskedPhone string         `json:"masked_phone"`
		Purpose     string         `json:"purpose"`
		RequestedAt time.Time      `json:"requested_at"`
		ExpiresAt   time.Time      `json:"expires_at"`
		Metadata    map[string]any `json:"metadata,omitempty"`
	}{
		MaskedPhone: event.MaskedPhone,
		Purpose:     event.Purpose,
		RequestedAt: event.RequestedAt.UTC(),
		ExpiresAt:   event.ExpiresAt.UTC(),
		Metadata:    event.Metadata,
	}

	return p.publish(ctx, event.EventID, "onboarding.phone.verification_requested", "", event.RequestedAt, payload)
}

// PublishPhoneVerified publishes onboarding.phone.verified events.
func (p *EventPublisher) PublishPhoneVerified(ctx context.Context, event domain.PhoneVerifiedEvent) error {
	payload := struct {
		UserID            string         `json:"user_id"`
		MaskedPhone       string         `json:"masked_phone"`
		VerifiedAt        time.Time      `json:"verified_at"`
		DeviceFingerprint string         `json:"device_fingerprint,omitempty"`
		Metadata          map[string]any `json:"metadata,omitempty"`
	}{
		UserID:            event.UserID,
		MaskedPhone:       event.MaskedPhone,
		VerifiedAt:        event.VerifiedAt.UTC(),
		DeviceFingerprint: event.DeviceFingerprint,
		Metadata:          event.Metadata,
	}

	return p.publish(ctx, event.EventID, "onboarding.phone.verified", "", event.VerifiedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
