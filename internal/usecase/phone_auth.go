package usecase

import (
	"context"
	"encoding/json"
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

const (
	defaultCodeLength      = 6
	defaultCodeTTL         = 10 * time.Minute
	defaultMaxCodeAttempts = 5
	defaultIdempotencyTTL  = 24 * time.Hour

	phoneLoginPath = "/auth/phone-login"
)

var (
	// ErrVerificationCodeInvalid indicates the provided verification code is wrong or already used.
	ErrVerificationCodeInvalid = errors.New("verification code invalid")
	// ErrVerificationCodeExpired indicates the code exists but is expired.
	ErrVerificationCodeExpired = errors.New("verification code expired")
	// ErrPhoneAlreadyRegistered indicates the phone belongs to an existing user.
	ErrPhoneAlreadyRegistered = errors.New("phone already registered")
	// ErrPhoneNotRegistered indicates no account exists for the phone.
	ErrPhoneNotRegistered = errors.New("phone not registered")
	// ErrPhoneNotVerified indicates account creation was attempted before the code was redeemed.
	ErrPhoneNotVerified = errors.New("phone not verified")
)

// VerificationConfig tunes the phone verification exchange.
type VerificationConfig struct {
	CodeLength  int
	CodeTTL     time.Duration
	MaxAttempts int
}

func (c VerificationConfig) withDefaults() VerificationConfig {
	if c.CodeLength <= 0 {
		c.CodeLength = defaultCodeLength
	}
	if c.CodeTTL <= 0 {
		c.CodeTTL = defaultCodeTTL
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxCodeAttempts
	}
	return c
}

// PhoneAuthService implements the phone-track signup exchange: code send,
// code redemption, and account plus tenant creation.
type PhoneAuthService struct {
	users         port.UserRepository
	tenants       port.TenantRepository
	uow           port.UnitOfWork
	verifications port.VerificationStore
	idempotency   port.IdempotencyStore
	sms           port.SMSSender
	events        port.EventPublisher
	loginTokens   *security.LoginTokenManager
	cfg           VerificationConfig
	logger        *zap.Logger
	now           func() time.Time
}

// NewPhoneAuthService constructs a phone auth service.
func NewPhoneAuthService(users port.UserRepository, tenants port.TenantRepository, uow port.UnitOfWork, verifications port.VerificationStore, sms port.SMSSender, loginTokens *security.LoginTokenManager, events port.EventPublisher, cfg VerificationConfig) *PhoneAuthService {
	return &PhoneAuthService{
		users:         users,
		tenants:       tenants,
		uow:           uow,
		verifications: verifications,
		sms:           sms,
		events:        events,
		loginTokens:   loginTokens,
		cfg:           cfg.withDefaults(),
		logger:        zap.NewNop(),
		now:           time.Now,
	}
}

// WithLogger attaches a structured logger for observability.
func (s *PhoneAuthService) WithLogger(log *zap.Logger) *PhoneAuthService {
	if log != nil {
		s.logger = log
	}
	return s
}

// WithIdempotencyStore enables duplicate-submission protection for account creation.
func (s *PhoneAuthService) WithIdempotencyStore(store port.IdempotencyStore) *PhoneAuthService {
	s.idempotency = store
	return s
}

// WithClock overrides the internal clock, used in tests.
func (s *PhoneAuthService) WithClock(clock func() time.Time) *PhoneAuthService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// CheckPhone reports whether an account already exists for the phone number.
func (s *PhoneAuthService) CheckPhone(ctx context.Context, phone string) (bool, error) {
	phone = strings.TrimSpace(phone)
	if err := ValidatePhone(phone); err != nil {
		return false, err
	}

	exists, err := s.users.PhoneExists(ctx, phone)
	if err != nil {
		return false, fmt.Errorf("check phone: %w", err)
	}

	return exists, nil
}

// SendVerificationInput carries a code-send request. The draft is echoed back
// at account-creation time, so the exchange needs no server-side session.
type SendVerificationInput struct {
	Phone   string
	Purpose domain.VerificationPurpose
	Draft   domain.RegistrationDraft
}

// SendVerificationResult reports the issued code's lifetime. Code carries the
// raw value for development-mode exposure only; production transports deliver
// it exclusively over SMS.
type SendVerificationResult struct {
	ExpiresAt time.Time
	Code      string
}

// SendVerification generates a one-time numeric code, stores it hashed with
// the echoed draft, and delivers it over SMS. Re-sending replaces any code
// previously issued for the phone.
func (s *PhoneAuthService) SendVerification(ctx context.Context, input SendVerificationInput) (SendVerificationResult, error) {
	var zero SendVerificationResult

	phone := strings.TrimSpace(input.Phone)
	if err := ValidatePhone(phone); err != nil {
		return zero, err
	}

	purpose := input.Purpose
	if purpose == "" {
		purpose = domain.VerificationPurposeSignup
	}

	exists, err := s.users.PhoneExists(ctx, phone)
	if err != nil {
		return zero, fmt.Errorf("check phone: %w", err)
	}
	switch purpose {
	case domain.VerificationPurposeSignup:
		if exists {
			return zero, ErrPhoneAlreadyRegistered
		}
		if !input.Draft.Empty() {
			if err := ValidateDraft(input.Draft); err != nil {
				return zero, err
			}
		}
	case domain.VerificationPurposeSignin:
		if !exists {
			return zero, ErrPhoneNotRegistered
		}
	default:
		return zero, fmt.Errorf("unsupported verification purpose %q", purpose)
	}

	code, err := security.GenerateNumericCode(s.cfg.CodeLength)
	if err != nil {
		return zero, fmt.Errorf("generate verification code: %w", err)
	}

	now := s.now().UTC()
	expiresAt := now.Add(s.cfg.CodeTTL)
	verification := domain.ContactVerification{
		Contact:   phone,
		CodeHash:  security.HashToken(code),
		Purpose:   purpose,
		Draft:     input.Draft,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}
	if err := s.verifications.Store(ctx, verification, s.cfg.CodeTTL); err != nil {
		return zero, fmt.Errorf("store verification code: %w", err)
	}

	message := port.SMSMessage{
		To:   phone,
		Body: fmt.Sprintf("Your Washlytics verification code is %s. It expires in %d minutes.", code, int(s.cfg.CodeTTL.Minutes())),
	}
	if err := s.sms.Send(ctx, message); err != nil {
		return zero, fmt.Errorf("send verification sms: %w", err)
	}

	s.publishVerificationRequested(ctx, phone, purpose, now, expiresAt)

	s.logger.Info("verification code sent",
		zap.String("phone", logger.MaskPhone(phone)),
		zap.String("purpose", string(purpose)),
		zap.Time("expires_at", expiresAt),
	)

	return SendVerificationResult{ExpiresAt: expiresAt, Code: code}, nil
}

// VerifyResult reports the outcome of a code redemption. Invalid codes are a
// business outcome, not an error: Valid is false and Err is nil.
type VerifyResult struct {
	Valid bool
	Draft domain.RegistrationDraft
}

// VerifyCode checks the submitted code against the stored hash. A match marks
// the verification as redeemed but keeps the record so account creation can
// be retried; the record is consumed only when the account is created.
func (s *PhoneAuthService) VerifyCode(ctx context.Context, phone, code string) (VerifyResult, error) {
	phone = strings.TrimSpace(phone)
	code = strings.TrimSpace(code)
	if err := ValidatePhone(phone); err != nil {
		return VerifyResult{}, err
	}
	if code == "" {
		return VerifyResult{}, nil
	}

	verification, err := s.verifications.Fetch(ctx, domain.VerificationPurposeSignup, phone)
	if err != nil {
		// Missing or expired entries are indistinguishable to the caller.
		return VerifyResult{}, nil
	}

	if verification.Expired(s.now().UTC()) {
		return VerifyResult{}, nil
	}
	if verification.Attempts >= s.cfg.MaxAttempts {
		return VerifyResult{}, nil
	}

	if !security.ConstantTimeEqual(verification.CodeHash, security.HashToken(code)) {
		if _, err := s.verifications.IncrementAttempts(ctx, domain.VerificationPurposeSignup, phone); err != nil {
			s.logger.Warn("increment verification attempts", zap.Error(err))
		}
		return VerifyResult{}, nil
	}

	if err := s.verifications.MarkVerified(ctx, domain.VerificationPurposeSignup, phone); err != nil {
		return VerifyResult{}, fmt.Errorf("mark verified: %w", err)
	}

	return VerifyResult{Valid: true, Draft: verification.Draft}, nil
}

// CreatePhoneUserInput carries the account-creation payload. The draft must
// match a verified code for the phone.
type CreatePhoneUserInput struct {
	Phone          string
	Draft          domain.RegistrationDraft
	IdempotencyKey string
	UserAgent      string
}

// CreatedAccount is returned from successful phone account creation. Token is
// a one-time JWT redeemed at LoginURL to authenticate the first session.
type CreatedAccount struct {
	User     domain.User
	Tenant   domain.Tenant
	Token    string
	LoginURL string
}

// CreatePhoneUser provisions the owner user and tenant for a verified phone
// registration. The user and tenant are created in one transaction, the
// verification record is consumed, and a one-time login token is minted.
func (s *PhoneAuthService) CreatePhoneUser(ctx context.Context, input CreatePhoneUserInput) (CreatedAccount, error) {
	var zero CreatedAccount

	phone := strings.TrimSpace(input.Phone)
	if err := ValidatePhone(phone); err != nil {
		return zero, err
	}
	if err := ValidateDraft(input.Draft); err != nil {
		return zero, err
	}

	if replay, ok := s.replayIdempotent(ctx, input.IdempotencyKey); ok {
		return replay, nil
	}

	verification, err := s.verifications.Fetch(ctx, domain.VerificationPurposeSignup, phone)
	if err != nil {
		return zero, ErrPhoneNotVerified
	}
	if !verification.Verified || verification.Expired(s.now().UTC()) {
		return zero, ErrPhoneNotVerified
	}

	subdomain := strings.ToLower(strings.TrimSpace(input.Draft.Subdomain))
	exists, err := s.tenants.SubdomainExists(ctx, subdomain)
	if err != nil {
		return zero, fmt.Errorf("check subdomain: %w", err)
	}
	if exists {
		return zero, ErrSubdomainTaken
	}

	now := s.now().UTC()
	user := domain.User{
		ID:           uuid.NewString(),
		FirstName:    strings.TrimSpace(input.Draft.FirstName),
		LastName:     strings.TrimSpace(input.Draft.LastName),
		Phone:        &phone,
		Role:         domain.UserRoleOwner,
		Status:       domain.UserStatusActive,
		RegisteredAt: now,
	}

	ownerID := user.ID
	activatedAt := now
	tenant := domain.Tenant{
		ID:             uuid.NewString(),
		Name:           strings.TrimSpace(input.Draft.BusinessName),
		Subdomain:      subdomain,
		Status:         domain.TenantStatusActive,
		OwnerUserID:    &ownerID,
		OwnerFirstName: user.FirstName,
		OwnerLastName:  user.LastName,
		CreatedAt:      now,
		ActivatedAt:    &activatedAt,
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

	if err := s.verifications.Delete(ctx, domain.VerificationPurposeSignup, phone); err != nil {
		s.logger.Warn("consume phone verification", zap.Error(err))
	}

	token, err := s.loginTokens.Mint(user.ID, tenant.ID, tenant.Subdomain)
	if err != nil {
		return zero, fmt.Errorf("mint login token: %w", err)
	}

	account := CreatedAccount{
		User:     user,
		Tenant:   tenant,
		Token:    token,
		LoginURL: fmt.Sprintf("%s?token=%s", phoneLoginPath, token),
	}

	s.saveIdempotent(ctx, input.IdempotencyKey, account)
	s.publishAccountCreated(ctx, account, phone, input.UserAgent, now)

	s.logger.Info("phone tenant created",
		zap.String("tenant_id", tenant.ID),
		zap.String("subdomain", tenant.Subdomain),
		zap.String("phone", logger.MaskPhone(phone)),
	)

	return account, nil
}

// RequestSignInCode issues a verification code for a returning phone user.
// It shares the send-verification exchange but carries no registration draft
// and performs no state transition of its own.
func (s *PhoneAuthService) RequestSignInCode(ctx context.Context, phone string) error {
	_, err := s.SendVerification(ctx, SendVerificationInput{
		Phone:   phone,
		Purpose: domain.VerificationPurposeSignin,
	})
	return err
}

func (s *PhoneAuthService) replayIdempotent(ctx context.Context, key string) (CreatedAccount, bool) {
	if s.idempotency == nil || strings.TrimSpace(key) == "" {
		return CreatedAccount{}, false
	}

	payload, err := s.idempotency.GetResult(ctx, key)
	if err != nil || len(payload) == 0 {
		return CreatedAccount{}, false
	}

	var account CreatedAccount
	if err := json.Unmarshal(payload, &account); err != nil {
		s.logger.Warn("decode idempotent result", zap.Error(err))
		return CreatedAccount{}, false
	}

	s.logger.Info("replayed idempotent account creation", zap.String("tenant_id", account.Tenant.ID))
	return account, true
}

func (s *PhoneAuthService) saveIdempotent(ctx context.Context, key string, account CreatedAccount) {
	if s.idempotency == nil || strings.TrimSpace(key) == "" {
		return
	}

	payload, err := json.Marshal(account)
	if err != nil {
		s.logger.Warn("encode idempotent result", zap.Error(err))
		return
	}
	if err := s.idempotency.SaveResult(ctx, key, payload, defaultIdempotencyTTL); err != nil {
		s.logger.Warn("save idempotent result", zap.Error(err))
	}
}

func (s *PhoneAuthService) publishVerificationRequested(ctx context.Context, phone string, purpose domain.VerificationPurpose, at, expiresAt time.Time) {
	if s.events == nil {
		return
	}

	event := domain.PhoneVerificationRequestedEvent{
		EventID:     uuid.NewString(),
		MaskedPhone: logger.MaskPhone(phone),
		Purpose:     string(purpose),
		RequestedAt: at,
		ExpiresAt:   expiresAt,
	}
	if err := s.events.PublishPhoneVerificationRequested(ctx, event); err != nil {
		s.logger.Warn("publish verification requested", zap.Error(err))
	}
}

func (s *PhoneAuthService) publishAccountCreated(ctx context.Context, account CreatedAccount, phone, userAgent string, at time.Time) {
	if s.events == nil {
		return
	}

	created := domain.TenantCreatedEvent{
		EventID:       uuid.NewString(),
		TenantID:      account.Tenant.ID,
		Name:          account.Tenant.Name,
		Subdomain:     account.Tenant.Subdomain,
		OwnerUserID:   account.User.ID,
		OwnerPhone:    &phone,
		SignupChannel: "phone",
		CreatedAt:     at,
	}
	if err := s.events.PublishTenantCreated(ctx, created); err != nil {
		s.logger.Warn("publish tenant created", zap.Error(err))
	}

	verified := domain.PhoneVerifiedEvent{
		EventID:           uuid.NewString(),
		UserID:            account.User.ID,
		MaskedPhone:       logger.MaskPhone(phone),
		VerifiedAt:        at,
		DeviceFingerprint: security.DeviceFingerprint(userAgent),
	}
	if err := s.events.PublishPhoneVerified(ctx, verified); err != nil {
		s.logger.Warn("publish phone verified", zap.Error(err))
	}
}
