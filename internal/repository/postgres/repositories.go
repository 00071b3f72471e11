package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/washlytics/tenant-onboarding/internal/core/port"
)

// Repositories groups concrete PostgreSQL repository implementations.
type Repositories struct {
	Tenants *TenantRepository
	Users   *UserRepository
}

// NewRepositories wires all repositories backed by the provided pool.
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Tenants: NewTenantRepository(pool),
		Users:   NewUserRepository(pool),
	}
}

// UnitOfWork implements port.UnitOfWork on top of pgx transactions.
type UnitOfWork struct {
	pool    *pgxpool.Pool
	tenants *TenantRepository
	users   *UserRepository
}

// NewUnitOfWork constructs a transaction runner bound to the pool.
func NewUnitOfWork(pool *pgxpool.Pool, repos *Repositories) *UnitOfWork {
	return &UnitOfWork{
		pool:    pool,
		tenants: repos.Tenants,
		users:   repos.Users,
	}
}

// Do runs fn with repositories bound to a single transaction. The transaction
// commits when fn returns nil and rolls back on error or panic.
func (u *UnitOfWork) Do(ctx context.Context, fn func(tenants port.TenantRepository, users port.UserRepository) error) error {
	tx, err := u.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(u.tenants.WithTx(tx), u.users.WithTx(tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback after %w: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

var _ port.UnitOfWork = (*UnitOfWork)(nil)
