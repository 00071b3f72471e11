package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/washlytics/tenant-onboarding/internal/core/domain"
	"github.com/washlytics/tenant-onboarding/internal/usecase"
)

const verificationRedirectPath = "/auth/verification"

// RegistrationHandler exposes email-track tenant registration and confirmation.
type RegistrationHandler struct {
	onboarding *usecase.OnboardingService
	isDev      bool
}

// NewRegistrationHandler builds a registration handler.
func NewRegistrationHandler(onboarding *usecase.OnboardingService, isDev bool) *RegistrationHandler {
	return &RegistrationHandler{onboarding: onboarding, isDev: isDev}
}

// RegisterRoutes binds registration endpoints. Per-endpoint middlewares (rate
// limiting) are supplied by the routes package.
func (h *RegistrationHandler) RegisterRoutes(r *gin.RouterGroup, registerMiddlewares []gin.HandlerFunc) {
	register := append([]gin.HandlerFunc{}, registerMiddlewares...)
	register = append(register, h.Register)
	r.POST("/register", register...)

	r.POST("/confirm-email", h.ConfirmEmail)
}

// Register godoc
// @Summary Register a tenant with email and password
// @Description Creates a pending owner account and tenant, then sends an email confirmation token.
// @Tags Registration
// @Accept json
// @Produce json
// @Param request body RegisterTenantRequest true "Registration request"
// @Success 201 {object} RegisterTenantResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/auth/register [post]
func (h *RegistrationHandler) Register(c *gin.Context) {
	var req RegisterTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid registration payload"))
		return
	}

	input := usecase.RegisterEmailInput{
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
		Draft: domain.RegistrationDraft{
			BusinessName: strings.TrimSpace(req.BusinessName),
			Subdomain:    strings.TrimSpace(req.Subdomain),
			FirstName:    strings.TrimSpace(req.FirstName),
			LastName:     strings.TrimSpace(req.LastName),
		},
		ClientKey: strings.TrimSpace(req.ClientKey),
	}

	registration, err := h.onboarding.RegisterEmailTenant(c.Request.Context(), input)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			switch pgErr.ConstraintName {
			case "users_email_key":
				c.JSON(http.StatusConflict, NewErrorResponse(c, "email already registered"))
			case "tenants_subdomain_key":
				c.JSON(http.StatusConflict, NewErrorResponse(c, "subdomain already taken"))
			default:
				c.JSON(http.StatusConflict, NewErrorResponse(c, "account already exists"))
			}
			return
		}

		respondSignupError(c, err, []ErrorCase{
			{Err: usecase.ErrEmailInvalid, Status: http.StatusBadRequest, Message: "invalid email address"},
			{Err: usecase.ErrPasswordPolicyViolation, Status: http.StatusBadRequest, Message: "password does not meet requirements"},
			{Err: usecase.ErrSubdomainTaken, Status: http.StatusConflict, Message: "subdomain already taken"},
		}, "failed to register tenant")
		return
	}

	resp := RegisterTenantResponse{
		UserID:      registration.User.ID,
		TenantID:    registration.Tenant.ID,
		Subdomain:   registration.Tenant.Subdomain,
		Message:     "confirmation email sent",
		RedirectURL: verificationRedirectPath,
		ExpiresAt:   registration.ExpiresAt,
	}

	// Raw tokens are only exposed in development mode; production delivery is email only.
	if h.isDev && registration.Token != "" {
		token := registration.Token
		resp.DevToken = &token
	}

	c.JSON(http.StatusCreated, resp)
}

// ConfirmEmail godoc
// @Summary Confirm an email registration
// @Description Redeems the confirmation token and activates the pending user and tenant.
// @Tags Registration
// @Accept json
// @Produce json
// @Param request body ConfirmEmailRequest true "Confirmation request"
// @Success 200 {object} ConfirmEmailResponse
// @Failure 400 {object} ErrorResponse
// @Failure 410 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/auth/confirm-email [post]
func (h *RegistrationHandler) ConfirmEmail(c *gin.Context) {
	var req ConfirmEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid confirmation payload"))
		return
	}

	user, err := h.onboarding.ConfirmEmail(c.Request.Context(), req.Email, req.Token)
	if err != nil {
		respondSignupError(c, err, []ErrorCase{
			{Err: usecase.ErrVerificationCodeInvalid, Status: http.StatusBadRequest, Message: "invalid confirmation token"},
			{Err: usecase.ErrVerificationCodeExpired, Status: http.StatusGone, Message: "confirmation token expired"},
		}, "failed to confirm email")
		return
	}

	c.JSON(http.StatusOK, ConfirmEmailResponse{
		UserID:  user.ID,
		Status:  string(user.Status),
		Message: "email confirmed",
	})
}
