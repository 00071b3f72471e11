package port

import "context"

// UnitOfWork runs the provided function with repositories bound to a single
// database transaction. The transaction commits when fn returns nil and rolls
// back otherwise, so a user is never created without its tenant.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(tenants TenantRepository, users UserRepository) error) error
}
