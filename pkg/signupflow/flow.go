package signupflow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// State is the phone-track verification state. Transitions:
//
//	StateIdle -> StateCodeRequested   (RequestCode)
//	StateCodeRequested -> StateIdle   (ChangePhoneNumber)
//	StateCodeRequested -> StateVerifying -> StateAccountCreated (SubmitCode)
//
// A failed or rejected code returns to StateCodeRequested so the user can
// retry without requesting a new code.
type State int

const (
	StateIdle State = iota
	StateCodeRequested
	StateVerifying
	StateAccountCreated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCodeRequested:
		return "code_requested"
	case StateVerifying:
		return "verifying"
	case StateAccountCreated:
		return "account_created"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	// ErrSubmissionInFlight is returned when a submit is attempted while a
	// previous one has not finished.
	ErrSubmissionInFlight = errors.New("signupflow: submission already in flight")
	// ErrInvalidTransition is returned when an operation is called from a
	// state that does not allow it.
	ErrInvalidTransition = errors.New("signupflow: invalid state transition")
)

// Redirect targets after a successful sign-up.
const (
	emailVerificationPath = "/auth/verification"
	phoneLoginPath        = "/auth/phone-login"
)

// AuthUser is the identity record an AuthProvider returns after sign-up.
type AuthUser struct {
	ID string
}

// SignUpMetadata rides along with the credentials so the provider can
// stamp the identity with registration context.
type SignUpMetadata struct {
	FirstName    string
	LastName     string
	BusinessName string
	Subdomain    string
	Role         string
}

// AuthProvider creates email-and-password identities. Implementations may
// return a nil user with a nil error when the provider defers identity
// materialization (e.g. until the confirmation email is clicked); the flow
// treats that as success and provisions the tenant keyed by email.
type AuthProvider interface {
	SignUp(ctx context.Context, email, password string, metadata SignUpMetadata) (*AuthUser, error)
}

// NewTenant is the provisioning request handed to a TenantAPI.
type NewTenant struct {
	Name           string
	Subdomain      string
	OwnerEmail     string
	OwnerFirstName string
	OwnerLastName  string
	OwnerUserID    string
}

// TenantAPI provisions the tenant record after identity creation.
type TenantAPI interface {
	CreateTenant(ctx context.Context, t NewTenant) error
}

// EmailResult is the outcome of a successful email-track submission.
type EmailResult struct {
	RedirectURL string
}

// PhoneResult is the outcome of a successful phone-track submission.
type PhoneResult struct {
	UserID      string
	TenantID    string
	Subdomain   string
	Token       string
	RedirectURL string
}

// Flow drives one sign-up attempt. It owns the verification state machine
// and rejects overlapping submissions; the caller owns the form fields and
// re-presents them on retry, so no input is ever lost to a failure.
type Flow struct {
	client  *Client
	auth    AuthProvider
	tenants TenantAPI
	logger  *zap.Logger

	mu       sync.Mutex
	state    State
	inFlight bool
}

// FlowOption customizes a Flow.
type FlowOption func(*Flow)

// WithFlowLogger attaches a logger for flow diagnostics.
func WithFlowLogger(logger *zap.Logger) FlowOption {
	return func(f *Flow) { f.logger = logger }
}

// NewFlow builds a Flow. auth and tenants are only needed for the email
// track and may be nil when only the phone track is used.
func NewFlow(client *Client, auth AuthProvider, tenants TenantAPI, opts ...FlowOption) *Flow {
	f := &Flow{
		client:  client,
		auth:    auth,
		tenants: tenants,
		logger:  zap.NewNop(),
		state:   StateIdle,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// State returns the current phone-track state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// ChangePhoneNumber abandons a requested code and returns to StateIdle so
// the user can edit the phone number. Only valid from StateCodeRequested.
func (f *Flow) ChangePhoneNumber() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateCodeRequested {
		return fmt.Errorf("%w: change phone number from %s", ErrInvalidTransition, f.state)
	}
	f.state = StateIdle
	return nil
}

// SubmitEmail runs the email-track sequence: validate, check subdomain
// availability, create the auth identity, provision the tenant, and hand
// back the verification-pending redirect. A non-nil FieldErrors map means
// the submission never left the client (or hit an availability conflict);
// a non-nil error means a step failed after validation passed.
func (f *Flow) SubmitEmail(ctx context.Context, d Draft, creds EmailTrack) (*EmailResult, FieldErrors, error) {
	done, err := f.begin()
	if err != nil {
		return nil, nil, err
	}
	defer done()

	if errs := Validate(d, creds); !errs.Valid() {
		return nil, errs, nil
	}

	available, err := f.client.CheckSubdomain(ctx, d.Subdomain)
	if !available {
		if err != nil {
			f.logger.Warn("treating failed availability check as taken", zap.Error(err))
		}
		return nil, FieldErrors{FieldSubdomain: "This subdomain is already taken"}, nil
	}

	metadata := SignUpMetadata{
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		BusinessName: d.BusinessName,
		Subdomain:    d.Subdomain,
		Role:         "admin",
	}
	user, err := f.auth.SignUp(ctx, creds.Email, creds.Password, metadata)
	if err != nil {
		return nil, nil, fmt.Errorf("creating identity: %w", err)
	}

	tenant := NewTenant{
		Name:           d.BusinessName,
		Subdomain:      d.Subdomain,
		OwnerEmail:     creds.Email,
		OwnerFirstName: d.FirstName,
		OwnerLastName:  d.LastName,
	}
	if user != nil {
		tenant.OwnerUserID = user.ID
	}
	// The identity is not rolled back when provisioning fails; the tenant
	// record can be created later against the existing identity.
	if err := f.tenants.CreateTenant(ctx, tenant); err != nil {
		return nil, nil, fmt.Errorf("provisioning tenant: %w", err)
	}

	return &EmailResult{RedirectURL: emailVerificationPath}, nil, nil
}

// RequestCode runs phase A of the phone track: validate, check subdomain
// availability, reject already registered phone numbers, and ask the API
// to text a code. On success the flow moves to StateCodeRequested.
func (f *Flow) RequestCode(ctx context.Context, d Draft, phoneNumber string) (FieldErrors, error) {
	done, err := f.begin()
	if err != nil {
		return nil, err
	}
	defer done()

	if state := f.State(); state != StateIdle {
		return nil, fmt.Errorf("%w: request code from %s", ErrInvalidTransition, state)
	}

	if errs := Validate(d, PhoneTrack{PhoneNumber: phoneNumber}); !errs.Valid() {
		return errs, nil
	}

	available, err := f.client.CheckSubdomain(ctx, d.Subdomain)
	if !available {
		if err != nil {
			f.logger.Warn("treating failed availability check as taken", zap.Error(err))
		}
		return FieldErrors{FieldSubdomain: "This subdomain is already taken"}, nil
	}

	exists, err := f.client.CheckPhone(ctx, phoneNumber)
	if err != nil {
		return nil, fmt.Errorf("checking phone number: %w", err)
	}
	if exists {
		return FieldErrors{FieldPhoneNumber: "This phone number is already registered"}, nil
	}

	if err := f.client.SendVerification(ctx, phoneNumber, PurposeSignup, d, uuid.NewString()); err != nil {
		return nil, fmt.Errorf("sending verification code: %w", err)
	}

	f.setState(StateCodeRequested)
	return nil, nil
}

// SubmitCode runs phase B of the phone track: redeem the code, and on
// success create the account and hand back the token-bearing login
// redirect. A rejected code comes back as a FieldErrors entry on the
// verification code with the flow still in StateCodeRequested; any other
// failure also leaves the flow retryable.
func (f *Flow) SubmitCode(ctx context.Context, d Draft, phoneNumber, code string) (*PhoneResult, FieldErrors, error) {
	done, err := f.begin()
	if err != nil {
		return nil, nil, err
	}
	defer done()

	if state := f.State(); state != StateCodeRequested {
		return nil, nil, fmt.Errorf("%w: submit code from %s", ErrInvalidTransition, state)
	}

	if errs := Validate(d, PhoneTrack{PhoneNumber: phoneNumber, VerificationCode: code, CodeSent: true}); !errs.Valid() {
		return nil, errs, nil
	}

	f.setState(StateVerifying)

	valid, err := f.client.VerifyCode(ctx, phoneNumber, code)
	if err != nil {
		f.setState(StateCodeRequested)
		return nil, nil, fmt.Errorf("verifying code: %w", err)
	}
	if !valid {
		f.setState(StateCodeRequested)
		return nil, FieldErrors{FieldVerificationCode: "Invalid verification code"}, nil
	}

	account, err := f.client.CreatePhoneUser(ctx, phoneNumber, d, uuid.NewString())
	if err != nil {
		f.setState(StateCodeRequested)
		return nil, nil, fmt.Errorf("creating account: %w", err)
	}

	f.setState(StateAccountCreated)

	redirect := account.LoginURL
	if redirect == "" {
		redirect = phoneLoginPath + "?token=" + account.Token
	}
	return &PhoneResult{
		UserID:      account.UserID,
		TenantID:    account.TenantID,
		Subdomain:   account.Subdomain,
		Token:       account.Token,
		RedirectURL: redirect,
	}, nil, nil
}

// RequestSignInCode texts a code to a returning user's phone number. It
// does not touch the sign-up state machine.
func (f *Flow) RequestSignInCode(ctx context.Context, phoneNumber string) error {
	errs := FieldErrors{}
	validatePhoneTrack(PhoneTrack{PhoneNumber: phoneNumber}, errs)
	if !errs.Valid() {
		return fmt.Errorf("signupflow: %s", errs[FieldPhoneNumber])
	}
	return f.client.RequestSignInCode(ctx, phoneNumber)
}

// begin marks a submission in flight, rejecting overlap, and returns the
// release func.
func (f *Flow) begin() (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inFlight {
		return nil, ErrSubmissionInFlight
	}
	f.inFlight = true
	return func() {
		f.mu.Lock()
		f.inFlight = false
		f.mu.Unlock()
	}, nil
}

func (f *Flow) setState(s State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}
