package domain

import "time"

// TenantStatus enumerates possible tenant account states.
type TenantStatus string

const (
	TenantStatusPending   TenantStatus = "pending"
	TenantStatusActive    TenantStatus = "active"
	TenantStatusSuspended TenantStatus = "suspended"
)

// Tenant mirrors the persisted representation in the tenants table. Each
// tenant is a car-wash business with its own subdomain and an owning user.
type Tenant struct {
	ID             string
	Name           string
	Subdomain      string
	Status         TenantStatus
	OwnerUserID    *string
	OwnerEmail     string
	OwnerFirstName string
	OwnerLastName  string
	CreatedAt      time.Time
	ActivatedAt    *time.Time
}

// SubdomainMinLength and SubdomainMaxLength bound tenant subdomains to valid
// DNS label sizes.
const (
	SubdomainMinLength = 3
	SubdomainMaxLength = 63
)
