package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// CheckSubdomainResponse reports subdomain availability.
type CheckSubdomainResponse struct {
	Available bool `json:"available"`
}

// CheckPhoneResponse reports whether an account exists for the phone.
type CheckPhoneResponse struct {
	Exists bool `json:"exists"`
}

// SendVerificationRequest defines the payload for issuing a phone code. The
// registration fields are optional and echoed through the verification store.
type SendVerificationRequest struct {
	Phone        string `json:"phone" binding:"required"`
	Purpose      string `json:"purpose"`
	BusinessName string `json:"business_name"`
	Subdomain    string `json:"subdomain"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
}

// SendVerificationResponse reports the issued code's lifetime. DevCode is only
// populated in development mode.
type SendVerificationResponse struct {
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
	DevCode   *string   `json:"dev_code,omitempty"`
}

// VerifyCodeRequest defines the payload for redeeming a phone code.
type VerifyCodeRequest struct {
	Phone string `json:"phone" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

// VerifyCodeResponse reports whether the submitted code matched. A wrong code
// is a 200 with valid=false, not an error status.
type VerifyCodeResponse struct {
	Valid bool `json:"valid"`
}

// CreatePhoneUserRequest defines the payload for phone-track account creation.
type CreatePhoneUserRequest struct {
	Phone        string `json:"phone" binding:"required"`
	BusinessName string `json:"business_name" binding:"required"`
	Subdomain    string `json:"subdomain" binding:"required"`
	FirstName    string `json:"first_name" binding:"required"`
	LastName     string `json:"last_name" binding:"required"`
}

// CreatePhoneUserResponse carries the provisioned identifiers and the
// token-bearing login URL the client redirects to.
type CreatePhoneUserResponse struct {
	UserID    string `json:"user_id"`
	TenantID  string `json:"tenant_id"`
	Subdomain string `json:"subdomain"`
	Token     string `json:"token"`
	LoginURL  string `json:"login_url"`
}

// RegisterTenantRequest defines the payload for email-track registration.
type RegisterTenantRequest struct {
	Email        string `json:"email" binding:"required"`
	Password     string `json:"password" binding:"required"`
	BusinessName string `json:"business_name" binding:"required"`
	Subdomain    string `json:"subdomain" binding:"required"`
	FirstName    string `json:"first_name" binding:"required"`
	LastName     string `json:"last_name" binding:"required"`
	ClientKey    string `json:"client_key"`
}

// RegisterTenantResponse describes a pending email-track registration.
type RegisterTenantResponse struct {
	UserID      string    `json:"user_id"`
	TenantID    string    `json:"tenant_id"`
	Subdomain   string    `json:"subdomain"`
	Message     string    `json:"message"`
	RedirectURL string    `json:"redirect_url"`
	ExpiresAt   time.Time `json:"expires_at"`
	DevToken    *string   `json:"dev_token,omitempty"`
}

// ConfirmEmailRequest defines the payload for redeeming an email token.
type ConfirmEmailRequest struct {
	Email string `json:"email" binding:"required"`
	Token string `json:"token" binding:"required"`
}

// ConfirmEmailResponse reports a completed email confirmation.
type ConfirmEmailResponse struct {
	UserID  string `json:"user_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse describes readiness probe results with dependency checks.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}
