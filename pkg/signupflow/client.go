package signupflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultRequestTimeout = 15 * time.Second

	idempotencyKeyHeader = "Idempotency-Key"
)

// Verification purposes accepted by the send-verification endpoint.
const (
	PurposeSignup = "signup"
	PurposeSignin = "signin"
)

// Client talks to the onboarding API. The zero value is not usable; build
// one with NewClient.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client, e.g. to change the
// timeout or install a test transport.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger attaches a logger for transport-level diagnostics.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// NewClient builds a Client for the API at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type availabilityResponse struct {
	Available bool `json:"available"`
}

type phoneExistsResponse struct {
	Exists bool `json:"exists"`
}

type sendVerificationRequest struct {
	Phone        string `json:"phone"`
	Purpose      string `json:"purpose,omitempty"`
	BusinessName string `json:"business_name,omitempty"`
	Subdomain    string `json:"subdomain,omitempty"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
}

type sendVerificationResponse struct {
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

type verifyCodeRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

type verifyCodeResponse struct {
	Valid bool `json:"valid"`
}

type createPhoneUserRequest struct {
	Phone        string `json:"phone"`
	BusinessName string `json:"business_name"`
	Subdomain    string `json:"subdomain"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
}

// PhoneAccount is the result of creating a phone-track account.
type PhoneAccount struct {
	UserID    string `json:"user_id"`
	TenantID  string `json:"tenant_id"`
	Subdomain string `json:"subdomain"`
	Token     string `json:"token"`
	LoginURL  string `json:"login_url"`
}

// CheckSubdomain reports whether the subdomain is free to claim. Any
// transport or decode failure is reported as unavailable so a flaky check
// can never hand out a name that is actually taken; the error is returned
// alongside for callers that want to distinguish the two.
func (c *Client) CheckSubdomain(ctx context.Context, subdomain string) (bool, error) {
	var out availabilityResponse
	err := c.get(ctx, "/api/tenants/check-subdomain", url.Values{"subdomain": {subdomain}}, &out)
	if err != nil {
		c.logger.Warn("subdomain availability check failed", zap.Error(err))
		return false, err
	}
	return out.Available, nil
}

// CheckPhone reports whether the phone number already belongs to an account.
func (c *Client) CheckPhone(ctx context.Context, phone string) (bool, error) {
	var out phoneExistsResponse
	if err := c.get(ctx, "/api/auth/check-phone", url.Values{"phone": {phone}}, &out); err != nil {
		return false, err
	}
	return out.Exists, nil
}

// SendVerification asks the API to text a one-time code to the phone
// number. For sign-up the draft fields ride along so the server can echo
// them back at account-creation time without a server-side session.
func (c *Client) SendVerification(ctx context.Context, phone, purpose string, d Draft, idempotencyKey string) error {
	req := sendVerificationRequest{
		Phone:        phone,
		Purpose:      purpose,
		BusinessName: d.BusinessName,
		Subdomain:    d.Subdomain,
		FirstName:    d.FirstName,
		LastName:     d.LastName,
	}
	var out sendVerificationResponse
	return c.post(ctx, "/api/auth/send-verification", req, idempotencyKey, &out)
}

// VerifyCode redeems a one-time code. A wrong code is not an error: the
// server answers 200 with valid=false so the caller can let the user retry.
func (c *Client) VerifyCode(ctx context.Context, phone, code string) (bool, error) {
	var out verifyCodeResponse
	if err := c.post(ctx, "/api/auth/verify-code", verifyCodeRequest{Phone: phone, Code: code}, "", &out); err != nil {
		return false, err
	}
	return out.Valid, nil
}

// CreatePhoneUser provisions the tenant and its first user for a verified
// phone number.
func (c *Client) CreatePhoneUser(ctx context.Context, phone string, d Draft, idempotencyKey string) (*PhoneAccount, error) {
	req := createPhoneUserRequest{
		Phone:        phone,
		BusinessName: d.BusinessName,
		Subdomain:    d.Subdomain,
		FirstName:    d.FirstName,
		LastName:     d.LastName,
	}
	var out PhoneAccount
	if err := c.post(ctx, "/api/auth/create-phone-user", req, idempotencyKey, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RequestSignInCode sends a verification code to an already registered
// phone number. It carries no draft fields and no local state.
func (c *Client) RequestSignInCode(ctx context.Context, phone string) error {
	var out sendVerificationResponse
	return c.post(ctx, "/api/auth/send-verification", sendVerificationRequest{Phone: phone, Purpose: PurposeSignin}, "", &out)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", path, err)
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body any, idempotencyKey string, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request for %s: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request for %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set(idempotencyKeyHeader, idempotencyKey)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	decoded, err := decodeResponse[json.RawMessage](resp)
	if err != nil {
		c.logger.Warn("api call failed",
			zap.String("path", req.URL.Path),
			zap.Int("status", resp.StatusCode),
			zap.Error(err),
		)
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(decoded, out); err != nil {
		return &APIError{Kind: KindMalformedJSON, Status: resp.StatusCode, Message: fmt.Sprintf("invalid JSON in response: %v", err)}
	}
	return nil
}
