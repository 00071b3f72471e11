package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/washlytics/tenant-onboarding/internal/core/domain"
	"github.com/washlytics/tenant-onboarding/internal/core/port"
	"github.com/washlytics/tenant-onboarding/internal/infra/logger"
	"github.com/washlytics/tenant-onboarding/internal/infra/security"
)

const defaultEmailVerificationTTL = 24 * time.Hour

var (
	// ErrSubdomainTaken indicates another tenant already claimed the subdomain.
	ErrSubdomainTaken = errors.New("subdomain already taken")
	// ErrEmailAlreadyRegistered indicates the email belongs to an existing user.
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	// ErrPasswordPolicyViolation indicates the password does not satisfy complexity requirements.
	ErrPasswordPolicyViolation = errors.New("password does not meet complexity requirements")
)

// OnboardingService handles subdomain availability and email-track tenant
// registration.
type OnboardingService struct {
	tenants           port.TenantRepository
	users             port.UserRepository
	uow               port.UnitOfWork
	verifications     port.VerificationStore
	events            port.EventPublisher
	passwordValidator *security.PasswordValidator
	verificationTTL   time.Duration
	logger            *zap.Logger
	now               func() time.Time
}

// NewOnboardingService constructs an onboarding service.
func NewOnboardingService(tenants port.TenantRepository, users port.UserRepository, uow port.UnitOfWork, verifications port.VerificationStore, events port.EventPublisher, validator *security.PasswordValidator) *OnboardingService {
	if validator == nil {
		validator = security.DefaultPasswordValidator()
	}
	return &OnboardingService{
		tenants:           tenants,
		users:             users,
		uow:               uow,
		verifications:     verifications,
		events:            events,
		passwordValidator: validator,
		verificationTTL:   defaultEmailVerificationTTL,
		logger:            zap.NewNop(),
		now:               time.Now,
	}
}

// WithLogger attaches a structured logger for observability.
func (s *OnboardingService) WithLogger(log *zap.Logger) *OnboardingService {
	if log != nil {
		s.logger = log
	}
	return s
}

// WithVerificationTTL overrides how long email confirmation tokens stay valid.
func (s *OnboardingService) WithVerificationTTL(ttl time.Duration) *OnboardingService {
	if ttl > 0 {
		s.verificationTTL = ttl
	}
	return s
}

// WithClock overrides the internal clock, used in tests.
func (s *OnboardingService) WithClock(clock func() time.Time) *OnboardingService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// CheckSubdomain reports whether the candidate subdomain can still be
// claimed. Syntactically invalid or reserved names are never available.
func (s *OnboardingService) CheckSubdomain(ctx context.Context, subdomain string) (bool, error) {
	subdomain = strings.ToLower(strings.TrimSpace(subdomain))
	if err := ValidateSubdomain(subdomain); err != nil {
		return false, err
	}

	exists, err := s.tenants.SubdomainExists(ctx, subdomain)
	if err != nil {
		return false, fmt.Errorf("check subdomain: %w", err)
	}

	return !exists, nil
}

// RegisterEmailInput carries the email-track registration payload.
type RegisterEmailInput struct {
	Email     string
	Password  string
	Draft     domain.RegistrationDraft
	ClientKey string
}

// EmailRegistration is returned from a successful email-track registration.
type EmailRegistration struct {
	User      domain.User
	Tenant    domain.Tenant
	Token     string
	ExpiresAt time.Time
}

// RegisterEmailTenant creates a pending owner user and its tenant in one
// transaction, stores a confirmation token, and publishes the tenant-created
// event. The account activates when the email token is redeemed.
func (s *OnboardingService) RegisterEmailTenant(ctx context.Context, input RegisterEmailInput) (EmailRegistration, error) {
	var zero EmailRegistration

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if err := ValidateEmail(email); err != nil {
		return zero, err
	}
	if err := ValidateDraft(input.Draft); err != nil {
		return zero, err
	}
	if err := s.passwordValidator.Validate(input.Password); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrPasswordPolicyViolation, err)
	}

	subdomain := strings.ToLower(strings.TrimSpace(input.Draft.Subdomain))
	available, err := s.CheckSubdomain(ctx, subdomain)
	if err != nil {
		return zero, err
	}
	if !available {
		return zero, ErrSubdomainTaken
	}

	passwordHash, err := security.HashPassword(input.Password)
	if err != nil {
		return zero, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := domain.User{
		ID:           uuid.NewString(),
		FirstName:    strings.TrimSpace(input.Draft.FirstName),
		LastName:     strings.TrimSpace(input.Draft.LastName),
		Email:        email,
		PasswordHash: passwordHash,
		PasswordAlgo: "argon2id",
		Role:         domain.UserRoleOwner,
		Status:       domain.UserStatusPending,
		RegisteredAt: now,
	}

	ownerID := user.ID
	tenant := domain.Tenant{
		ID:             uuid.NewString(),
		Name:           strings.TrimSpace(input.Draft.BusinessName),
		Subdomain:      subdomain,
		Status:         domain.TenantStatusPending,
		OwnerUserID:    &ownerID,
		OwnerEmail:     email,
		OwnerFirstName: user.FirstName,
		OwnerLastName:  user.LastName,
		CreatedAt:      now,
	}
	user.TenantID = &tenant.ID

	// Tenant goes first: users.tenant_id references tenants.id.
	if err := s.uow.Do(ctx, func(tenants port.TenantRepository, users port.UserRepository) error {
		if err := tenants.Create(ctx, tenant); err != nil {
			return err
		}
		return users.Create(ctx, user)
	}); err != nil {
		return zero, err
	}

	rawToken, err := security.GenerateSecureToken(32)
	if err != nil {
		return zero, fmt.Errorf("generate verification token: %w", err)
	}

	expiresAt := now.Add(s.verificationTTL)
	verification := domain.ContactVerification{
		Contact:   email,
		CodeHash:  security.HashToken(rawToken),
		Purpose:   domain.VerificationPurposeEmail,
		Draft:     input.Draft,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}
	if err := s.verifications.Store(ctx, verification, s.verificationTTL); err != nil {
		return zero, fmt.Errorf("store verification token: %w", err)
	}

	s.publishTenantCreated(ctx, tenant, user, "email", input.ClientKey)

	s.logger.Info("email tenant registered",
		zap.String("tenant_id", tenant.ID),
		zap.String("subdomain", tenant.Subdomain),
		zap.String("owner_email", logger.MaskEmail(email)),
	)

	return EmailRegistration{
		User:      user,
		Tenant:    tenant,
		Token:     rawToken,
		ExpiresAt: expiresAt,
	}, nil
}

// ConfirmEmail redeems an email confirmation token and activates the pending
// user and tenant.
func (s *OnboardingService) ConfirmEmail(ctx context.Context, email, token string) (domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	token = strings.TrimSpace(token)
	if email == "" || token == "" {
		return domain.User{}, ErrVerificationCodeInvalid
	}

	verification, err := s.verifications.Fetch(ctx, domain.VerificationPurposeEmail, email)
	if err != nil {
		return domain.User{}, ErrVerificationCodeInvalid
	}
	if verification.Expired(s.now().UTC()) {
		return domain.User{}, ErrVerificationCodeExpired
	}
	if !security.ConstantTimeEqual(verification.CodeHash, security.HashToken(token)) {
		return domain.User{}, ErrVerificationCodeInvalid
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return domain.User{}, fmt.Errorf("lookup user: %w", err)
	}

	if err := s.users.UpdateStatus(ctx, user.ID, domain.UserStatusActive); err != nil {
		return domain.User{}, fmt.Errorf("activate user: %w", err)
	}
	if user.TenantID != nil {
		if err := s.tenants.UpdateStatus(ctx, *user.TenantID, domain.TenantStatusActive); err != nil {
			return domain.User{}, fmt.Errorf("activate tenant: %w", err)
		}
	}

	if err := s.verifications.Delete(ctx, domain.VerificationPurposeEmail, email); err != nil {
		s.logger.Warn("consume email verification", zap.Error(err))
	}

	user.Status = domain.UserStatusActive
	return *user, nil
}

func (s *OnboardingService) publishTenantCreated(ctx context.Context, tenant domain.Tenant, user domain.User, channel, clientKey string) {
	if s.events == nil {
		return
	}

	event := domain.TenantCreatedEvent{
		EventID:        uuid.NewString(),
		TenantID:       tenant.ID,
		Name:           tenant.Name,
		Subdomain:      tenant.Subdomain,
		OwnerUserID:    user.ID,
		SignupChannel:  channel,
		CreatedAt:      tenant.CreatedAt,
		IdempotencyKey: clientKey,
	}
	if user.Email != "" {
		email := user.Email
		event.OwnerEmail = &email
	}
	if user.Phone != nil && *user.Phone != "" {
		phone := *user.Phone
		event.OwnerPhone = &phone
	}

	if err := s.events.PublishTenantCreated(ctx, event); err != nil {
		s.logger.Warn("publish tenant created", zap.String("tenant_id", tenant.ID), zap.Error(err))
	}
}
