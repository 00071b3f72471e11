package port

import (
	"context"

	"github.com/washlytics/tenant-onboarding/internal/core/domain"
)

// TenantRepository exposes persistence behavior for tenants.
type TenantRepository interface {
	Create(ctx context.Context, tenant domain.Tenant) error
	GetByID(ctx context.Context, id string) (*domain.Tenant, error)
	GetBySubdomain(ctx context.Context, subdomain string) (*domain.Tenant, error)
	SubdomainExists(ctx context.Context, subdomain string) (bool, error)
	UpdateStatus(ctx context.Context, id string, status domain.TenantStatus) error
}
