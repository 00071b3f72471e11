package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/washlytics/tenant-onboarding/internal/core/domain"
	"github.com/washlytics/tenant-onboarding/internal/repository"
)

const tenantsTable = "onboarding.tenants"

var tenantColumns = []string{
	"id",
	"name",
	"subdomain",
	"status",
	"owner_user_id",
	"owner_email",
	"owner_first_name",
	"owner_last_name",
	"created_at",
	"activated_at",
}

// TenantRepository implements port.TenantRepository using PostgreSQL.
type TenantRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewTenantRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewTenantRepository(exec pgExecutor) *TenantRepository {
	repo := &TenantRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *TenantRepository) WithTx(tx pgx.Tx) *TenantRepository {
	if tx == nil {
		return r
	}
	return &TenantRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new tenant row.
func (r *TenantRepository) Create(ctx context.Context, tenant domain.Tenant) error {
	var ownerID any
	if tenant.OwnerUserID != nil && *tenant.OwnerUserID != "" {
		ownerID = *tenant.OwnerUserID
	}

	var ownerEmail any
	if tenant.OwnerEmail != "" {
		ownerEmail = tenant.OwnerEmail
	}

	query := r.builder.Insert(tenantsTable).
		Columns(tenantColumns...).
		Values(
			tenant.ID,
			tenant.Name,
			tenant.Subdomain,
			tenant.Status,
			ownerID,
			ownerEmail,
			tenant.OwnerFirstName,
			tenant.OwnerLastName,
			tenant.CreatedAt,
			tenant.ActivatedAt,
		)

	stmt, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert tenant sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert tenant: %w", err)
	}

	return nil
}

// GetByID retrieves a tenant by identifier.
func (r *TenantRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetBySubdomain retrieves a tenant by its subdomain.
func (r *TenantRepository) GetBySubdomain(ctx context.Context, subdomain string) (*domain.Tenant, error) {
	return r.getOne(ctx, squirrel.Eq{"subdomain": subdomain})
}

func (r *TenantRepository) getOne(ctx context.Context, where squirrel.Eq) (*domain.Tenant, error) {
	stmt, args, err := r.builder.
		Select(tenantColumns...).
		From(tenantsTable).
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select tenant sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	var (
		tenant      domain.Tenant
		ownerID     sql.NullString
		ownerEmail  sql.NullString
		activatedAt *time.Time
	)

	if err := row.Scan(
		&tenant.ID,
		&tenant.Name,
		&tenant.Subdomain,
		&tenant.Status,
		&ownerID,
		&ownerEmail,
		&tenant.OwnerFirstName,
		&tenant.OwnerLastName,
		&tenant.CreatedAt,
		&activatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan tenant: %w", err)
	}

	if ownerID.Valid {
		val := ownerID.String
		tenant.OwnerUserID = &val
	}
	if ownerEmail.Valid {
		tenant.OwnerEmail = ownerEmail.String
	}
	tenant.ActivatedAt = activatedAt

	return &tenant, nil
}

// SubdomainExists reports whether any tenant already claims the subdomain.
func (r *TenantRepository) SubdomainExists(ctx context.Context, subdomain string) (bool, error) {
	stmt, args, err := r.builder.
		Select("1").
		From(tenantsTable).
		Where(squirrel.Eq{"subdomain": subdomain}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build subdomain exists sql: %w", err)
	}

	var one int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("query subdomain exists: %w", err)
	}

	return true, nil
}

// UpdateStatus transitions a tenant to the supplied status. Activation also
// stamps activated_at.
func (r *TenantRepository) UpdateStatus(ctx context.Context, id string, status domain.TenantStatus) error {
	query := r.builder.Update(tenantsTable).
		Set("status", status).
		Where(squirrel.Eq{"id": id})

	if status == domain.TenantStatusActive {
		query = query.Set("activated_at", squirrel.Expr("now()"))
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build update tenant status sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update tenant status: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}
