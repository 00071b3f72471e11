package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/washlytics/tenant-onboarding/internal/core/domain"
	"github.com/washlytics/tenant-onboarding/internal/repository"
)

func TestUserRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)

	registeredAt := time.Now().UTC()
	tenantID := "tenant-123"
	phone := "+15551234567"
	user := domain.User{
		ID:           "user-123",
		TenantID:     &tenantID,
		FirstName:    "Dana",
		LastName:     "Kim",
		Phone:        &phone,
		Role:         domain.UserRoleOwner,
		Status:       domain.UserStatusActive,
		RegisteredAt: registeredAt,
	}

	mock.ExpectExec(`INSERT INTO onboarding\.users`).
		WithArgs(
			user.ID,
			tenantID,
			user.FirstName,
			user.LastName,
			nil,
			phone,
			user.PasswordHash,
			user.PasswordAlgo,
			user.Role,
			user.Status,
			user.RegisteredAt,
			nil,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_GetByPhone(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)

	registeredAt := time.Now().UTC()
	rows := pgxmock.NewRows(userColumns).
		AddRow("user-123", "tenant-123", "Dana", "Kim", nil, "+15551234567", "", "", "owner", "active", registeredAt, (*time.Time)(nil))

	mock.ExpectQuery(`SELECT .+ FROM onboarding\.users WHERE phone = \$1`).
		WithArgs("+15551234567").
		WillReturnRows(rows)

	user, err := repo.GetByPhone(context.Background(), "+15551234567")
	if err != nil {
		t.Fatalf("GetByPhone returned error: %v", err)
	}
	if user.ID != "user-123" {
		t.Fatalf("expected user-123, got %s", user.ID)
	}
	if user.Phone == nil || *user.Phone != "+15551234567" {
		t.Fatalf("expected phone to round-trip, got %v", user.Phone)
	}
	if user.Email != "" {
		t.Fatalf("expected empty email, got %s", user.Email)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_GetByEmailMiss(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)

	mock.ExpectQuery(`SELECT .+ FROM onboarding\.users WHERE email = \$1`).
		WithArgs("nobody@example.com").
		WillReturnRows(pgxmock.NewRows(userColumns))

	if _, err := repo.GetByEmail(context.Background(), "nobody@example.com"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_PhoneExists(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)

	mock.ExpectQuery(`SELECT 1 FROM onboarding\.users WHERE phone = \$1`).
		WithArgs("+15551234567").
		WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.PhoneExists(context.Background(), "+15551234567")
	if err != nil {
		t.Fatalf("PhoneExists returned error: %v", err)
	}
	if !exists {
		t.Fatalf("expected phone to exist")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_RecordLogin(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)

	at := time.Now().UTC()
	mock.ExpectExec(`UPDATE onboarding\.users SET last_login = \$1 WHERE id = \$2`).
		WithArgs(at, "user-123").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.RecordLogin(context.Background(), "user-123", at); err != nil {
		t.Fatalf("RecordLogin returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
