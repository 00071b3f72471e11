package domain

import "time"

// TenantCreatedEvent represents the payload for onboarding.tenant.created messages.
type TenantCreatedEvent struct {
	EventID        string
	TenantID       string
	Name           string
	Subdomain      string
	OwnerUserID    string
	OwnerEmail     *string
	OwnerPhone     *string
	SignupChannel  string
	CreatedAt      time.Time
	IdempotencyKey string
	Metadata       map[string]any
}

// PhoneVerificationRequestedEvent represents the payload for
// onboarding.phone.verification_requested messages.
type PhoneVerificationRequestedEvent struct {
	EventID     string
	MaskedPhone string
	Purpose     string
	RequestedAt time.Time
	ExpiresAt   time.Time
	Metadata    map[string]any
}

// PhoneVerifiedEvent represents the payload for onboarding.phone.verified messages.
type PhoneVerifiedEvent struct {
	EventID           string
	UserID            string
	MaskedPhone       string
	VerifiedAt        time.Time
	DeviceFingerprint string
	Metadata          map[string]any
}
