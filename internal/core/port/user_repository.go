package port

import (
	"context"
	"time"

	"github.com/washlytics/tenant-onboarding/internal/core/domain"
)

// UserRepository exposes persistence behavior for users.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
	PhoneExists(ctx context.Context, phone string) (bool, error)
	UpdateStatus(ctx context.Context, id string, status domain.UserStatus) error
	RecordLogin(ctx context.Context, id string, at time.Time) error
}
