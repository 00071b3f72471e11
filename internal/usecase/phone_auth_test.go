package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	uuid "github.com/google/uuid"

	"github.com/washlytics/tenant-onboarding/internal/core/domain"
	"github.com/washlytics/tenant-onboarding/internal/infra/security"
)

const (
	testPhone  = "+15551234567"
	testSecret = "0123456789abcdef0123456789abcdef"
)

type phoneAuthFixture struct {
	service       *PhoneAuthService
	users         *mockUserRepo
	tenants       *mockTenantRepo
	uow           *mockUnitOfWork
	verifications *memVerificationStore
	sms           *mockSMSSender
	events        *mockEventPublisher
	idempotency   *memIdempotencyStore
}

func newPhoneAuthFixture(t *testing.T) *phoneAuthFixture {
	t.Helper()

	users := newMockUserRepo()
	tenants := newMockTenantRepo()
	uow := &mockUnitOfWork{tenants: tenants, users: users}
	verifications := newMemVerificationStore()
	sms := &mockSMSSender{}
	events := &mockEventPublisher{}
	idempotency := newMemIdempotencyStore()

	loginTokens, err := security.NewLoginTokenManager(testSecret, "washlytics-test", 5*time.Minute)
	if err != nil {
		t.Fatalf("login token manager: %v", err)
	}

	service := NewPhoneAuthService(users, tenants, uow, verifications, sms, loginTokens, events, VerificationConfig{}).
		WithIdempotencyStore(idempotency)

	return &phoneAuthFixture{
		service:       service,
		users:         users,
		tenants:       tenants,
		uow:           uow,
		verifications: verifications,
		sms:           sms,
		events:        events,
		idempotency:   idempotency,
	}
}

func (f *phoneAuthFixture) sendCode(t *testing.T, draft domain.RegistrationDraft) string {
	t.Helper()
	result, err := f.service.SendVerification(context.Background(), SendVerificationInput{
		Phone: testPhone,
		Draft: draft,
	})
	if err != nil {
		t.Fatalf("send verification: %v", err)
	}
	return result.Code
}

func testDraft(subdomain string) domain.RegistrationDraft {
	return domain.RegistrationDraft{
		BusinessName: "Sparkle Wash",
		Subdomain:    subdomain,
		FirstName:    "Dana",
		LastName:     "Reyes",
	}
}

func userWithPhone(phone *string) domain.User {
	return domain.User{
		ID:           uuid.NewString(),
		FirstName:    "Riley",
		LastName:     "Moss",
		Phone:        phone,
		Role:         domain.UserRoleOwner,
		Status:       domain.UserStatusActive,
		RegisteredAt: time.Now().UTC(),
	}
}

func TestSendVerificationDeliversHashedCode(t *testing.T) {
	f := newPhoneAuthFixture(t)

	result, err := f.service.SendVerification(context.Background(), SendVerificationInput{
		Phone: testPhone,
		Draft: testDraft("sparkle"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Code) != defaultCodeLength {
		t.Fatalf("expected %d-digit code, got %q", defaultCodeLength, result.Code)
	}

	messages := f.sms.sent()
	if len(messages) != 1 {
		t.Fatalf("expected 1 sms, got %d", len(messages))
	}
	if !strings.Contains(messages[0].Body, result.Code) {
		t.Fatal("expected code delivered in sms body")
	}

	stored, err := f.verifications.Fetch(context.Background(), "signup", testPhone)
	if err != nil {
		t.Fatalf("fetch stored verification: %v", err)
	}
	if stored.CodeHash == result.Code {
		t.Fatal("code must be stored hashed, not raw")
	}
	if stored.Draft.Subdomain != "sparkle" {
		t.Fatalf("expected draft echoed into store, got %q", stored.Draft.Subdomain)
	}
	if len(f.events.verificationRequests) != 1 {
		t.Fatalf("expected verification-requested event, got %d", len(f.events.verificationRequests))
	}
	if masked := f.events.verificationRequests[0].MaskedPhone; masked == testPhone || masked == "" {
		t.Fatalf("expected event to carry the masked number, got %q", masked)
	}
}

func TestSendVerificationSignupRejectsRegisteredPhone(t *testing.T) {
	f := newPhoneAuthFixture(t)
	phone := testPhone
	f.users.addUser(userWithPhone(&phone))

	_, err := f.service.SendVerification(context.Background(), SendVerificationInput{
		Phone: testPhone,
		Draft: testDraft("sparkle"),
	})
	if !errors.Is(err, ErrPhoneAlreadyRegistered) {
		t.Fatalf("expected ErrPhoneAlreadyRegistered, got %v", err)
	}
	if len(f.sms.sent()) != 0 {
		t.Fatal("expected no sms for rejected request")
	}
}

func TestSendVerificationSigninRequiresRegisteredPhone(t *testing.T) {
	f := newPhoneAuthFixture(t)

	_, err := f.service.SendVerification(context.Background(), SendVerificationInput{
		Phone:   testPhone,
		Purpose: "signin",
	})
	if !errors.Is(err, ErrPhoneNotRegistered) {
		t.Fatalf("expected ErrPhoneNotRegistered, got %v", err)
	}

	phone := testPhone
	f.users.addUser(userWithPhone(&phone))
	if _, err := f.service.SendVerification(context.Background(), SendVerificationInput{
		Phone:   testPhone,
		Purpose: "signin",
	}); err != nil {
		t.Fatalf("expected sign-in code for registered phone, got %v", err)
	}
}

func TestSendVerificationRejectsMalformedPhone(t *testing.T) {
	f := newPhoneAuthFixture(t)

	_, err := f.service.SendVerification(context.Background(), SendVerificationInput{Phone: "15551234567"})
	if !errors.Is(err, ErrPhoneInvalid) {
		t.Fatalf("expected ErrPhoneInvalid, got %v", err)
	}
}

func TestVerifyCodeHappyPath(t *testing.T) {
	f := newPhoneAuthFixture(t)
	code := f.sendCode(t, testDraft("sparkle"))

	result, err := f.service.VerifyCode(context.Background(), testPhone, code)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Valid {
		t.Fatal("expected valid code accepted")
	}
	if result.Draft.Subdomain != "sparkle" {
		t.Fatalf("expected stored draft returned, got %q", result.Draft.Subdomain)
	}

	stored, err := f.verifications.Fetch(context.Background(), "signup", testPhone)
	if err != nil {
		t.Fatalf("verification must survive redemption until account creation: %v", err)
	}
	if !stored.Verified {
		t.Fatal("expected verification marked redeemed")
	}
}

func TestVerifyCodeWrongCodeIsOutcomeNotError(t *testing.T) {
	f := newPhoneAuthFixture(t)
	f.sendCode(t, testDraft("sparkle"))

	result, err := f.service.VerifyCode(context.Background(), testPhone, "000000")
	if err != nil {
		t.Fatalf("wrong code must not be an error, got %v", err)
	}
	if result.Valid {
		t.Fatal("expected wrong code rejected")
	}
}

func TestVerifyCodeCapsAttempts(t *testing.T) {
	f := newPhoneAuthFixture(t)
	code := f.sendCode(t, testDraft("sparkle"))

	for i := 0; i < defaultMaxCodeAttempts; i++ {
		if result, err := f.service.VerifyCode(context.Background(), testPhone, "000000"); err != nil || result.Valid {
			t.Fatalf("attempt %d: expected rejection, got valid=%v err=%v", i, result.Valid, err)
		}
	}

	// Even the right code is refused once the attempt budget is spent.
	result, err := f.service.VerifyCode(context.Background(), testPhone, code)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Valid {
		t.Fatal("expected code locked out after max attempts")
	}
}

func TestVerifyCodeExpired(t *testing.T) {
	f := newPhoneAuthFixture(t)
	code := f.sendCode(t, testDraft("sparkle"))

	f.service.WithClock(func() time.Time { return time.Now().Add(defaultCodeTTL + time.Minute) })

	result, err := f.service.VerifyCode(context.Background(), testPhone, code)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Valid {
		t.Fatal("expected expired code rejected")
	}
}

func TestCreatePhoneUserHappyPath(t *testing.T) {
	f := newPhoneAuthFixture(t)
	code := f.sendCode(t, testDraft("sparkle"))
	if _, err := f.service.VerifyCode(context.Background(), testPhone, code); err != nil {
		t.Fatalf("verify: %v", err)
	}

	account, err := f.service.CreatePhoneUser(context.Background(), CreatePhoneUserInput{
		Phone: testPhone,
		Draft: testDraft("sparkle"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.uow.calls != 1 {
		t.Fatalf("expected one transactional create, got %d", f.uow.calls)
	}
	if f.users.createCalls != 1 || f.tenants.createCalls != 1 {
		t.Fatalf("expected one user and one tenant create, got %d/%d", f.users.createCalls, f.tenants.createCalls)
	}
	if account.Tenant.Subdomain != "sparkle" {
		t.Fatalf("unexpected subdomain %q", account.Tenant.Subdomain)
	}
	if account.User.TenantID == nil || *account.User.TenantID != account.Tenant.ID {
		t.Fatal("expected user bound to created tenant")
	}
	if account.Token == "" {
		t.Fatal("expected login token minted")
	}
	if !strings.HasPrefix(account.LoginURL, "/auth/phone-login?token=") {
		t.Fatalf("unexpected login url %q", account.LoginURL)
	}

	// Verification record is consumed; a second creation needs a new code.
	if _, err := f.verifications.Fetch(context.Background(), "signup", testPhone); err == nil {
		t.Fatal("expected verification consumed after account creation")
	}

	if len(f.events.tenantCreated) != 1 || len(f.events.phoneVerified) != 1 {
		t.Fatalf("expected tenant-created and phone-verified events, got %d/%d",
			len(f.events.tenantCreated), len(f.events.phoneVerified))
	}
	if f.events.tenantCreated[0].SignupChannel != "phone" {
		t.Fatalf("expected phone signup channel, got %q", f.events.tenantCreated[0].SignupChannel)
	}
}

func TestCreatePhoneUserInsertsTenantBeforeUser(t *testing.T) {
	f := newPhoneAuthFixture(t)
	code := f.sendCode(t, testDraft("sparkle"))
	if _, err := f.service.VerifyCode(context.Background(), testPhone, code); err != nil {
		t.Fatalf("verify: %v", err)
	}

	if _, err := f.service.CreatePhoneUser(context.Background(), CreatePhoneUserInput{
		Phone: testPhone,
		Draft: testDraft("sparkle"),
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// users.tenant_id references tenants.id, so the tenant row must land first.
	want := []string{"tenants.Create", "users.Create"}
	if len(f.uow.writes) != len(want) || f.uow.writes[0] != want[0] || f.uow.writes[1] != want[1] {
		t.Fatalf("expected writes %v, got %v", want, f.uow.writes)
	}
}

func TestCreatePhoneUserRequiresVerifiedCode(t *testing.T) {
	f := newPhoneAuthFixture(t)
	f.sendCode(t, testDraft("sparkle"))

	_, err := f.service.CreatePhoneUser(context.Background(), CreatePhoneUserInput{
		Phone: testPhone,
		Draft: testDraft("sparkle"),
	})
	if !errors.Is(err, ErrPhoneNotVerified) {
		t.Fatalf("expected ErrPhoneNotVerified, got %v", err)
	}
	if f.uow.calls != 0 {
		t.Fatalf("expected no transaction, got %d", f.uow.calls)
	}
}

func TestCreatePhoneUserRejectsTakenSubdomain(t *testing.T) {
	f := newPhoneAuthFixture(t)
	code := f.sendCode(t, testDraft("sparkle"))
	if _, err := f.service.VerifyCode(context.Background(), testPhone, code); err != nil {
		t.Fatalf("verify: %v", err)
	}
	f.tenants.claimSubdomain("sparkle")

	_, err := f.service.CreatePhoneUser(context.Background(), CreatePhoneUserInput{
		Phone: testPhone,
		Draft: testDraft("sparkle"),
	})
	if !errors.Is(err, ErrSubdomainTaken) {
		t.Fatalf("expected ErrSubdomainTaken, got %v", err)
	}
}

func TestCreatePhoneUserIdempotentReplay(t *testing.T) {
	f := newPhoneAuthFixture(t)
	code := f.sendCode(t, testDraft("sparkle"))
	if _, err := f.service.VerifyCode(context.Background(), testPhone, code); err != nil {
		t.Fatalf("verify: %v", err)
	}

	input := CreatePhoneUserInput{
		Phone:          testPhone,
		Draft:          testDraft("sparkle"),
		IdempotencyKey: "11111111-2222-3333-4444-555555555555",
	}
	first, err := f.service.CreatePhoneUser(context.Background(), input)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}

	// The retry must replay the stored result, not create a second tenant.
	second, err := f.service.CreatePhoneUser(context.Background(), input)
	if err != nil {
		t.Fatalf("replayed create: %v", err)
	}
	if second.Tenant.ID != first.Tenant.ID || second.User.ID != first.User.ID {
		t.Fatal("expected replay to return the original account")
	}
	if f.uow.calls != 1 {
		t.Fatalf("expected a single transaction across retries, got %d", f.uow.calls)
	}
}

func TestCheckPhone(t *testing.T) {
	f := newPhoneAuthFixture(t)

	exists, err := f.service.CheckPhone(context.Background(), testPhone)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists {
		t.Fatal("expected unknown phone reported as absent")
	}

	phone := testPhone
	f.users.addUser(userWithPhone(&phone))
	exists, err = f.service.CheckPhone(context.Background(), testPhone)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !exists {
		t.Fatal("expected registered phone reported as present")
	}

	if _, err := f.service.CheckPhone(context.Background(), "not-a-phone"); !errors.Is(err, ErrPhoneInvalid) {
		t.Fatalf("expected ErrPhoneInvalid, got %v", err)
	}
}
