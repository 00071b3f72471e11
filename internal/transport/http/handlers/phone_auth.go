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

const idempotencyKeyHeader = "Idempotency-Key"

// PhoneAuthHandler exposes the phone verification exchange and phone-track
// account creation.
type PhoneAuthHandler struct {
	phoneAuth *usecase.PhoneAuthService
	isDev     bool
}

// NewPhoneAuthHandler builds a phone auth handler.
func NewPhoneAuthHandler(phoneAuth *usecase.PhoneAuthService, isDev bool) *PhoneAuthHandler {
	return &PhoneAuthHandler{phoneAuth: phoneAuth, isDev: isDev}
}

// RegisterRoutes binds phone auth endpoints. Per-endpoint middlewares (rate
// limiting) are supplied by the routes package.
func (h *PhoneAuthHandler) RegisterRoutes(r *gin.RouterGroup, sendMiddlewares, verifyMiddlewares, createMiddlewares []gin.HandlerFunc) {
	r.GET("/check-phone", h.CheckPhone)

	send := append([]gin.HandlerFunc{}, sendMiddlewares...)
	send = append(send, h.SendVerification)
	r.POST("/send-verification", send...)

	verify := append([]gin.HandlerFunc{}, verifyMiddlewares...)
	verify = append(verify, h.VerifyCode)
	r.POST("/verify-code", verify...)

	create := append([]gin.HandlerFunc{}, createMiddlewares...)
	create = append(create, h.CreatePhoneUser)
	r.POST("/create-phone-user", create...)
}

// CheckPhone godoc
// @Summary Check if a phone number is registered
// @Description Reports whether an account already exists for the phone number.
// @Tags PhoneAuth
// @Produce json
// @Param phone query string true "Phone number in E.164 format"
// @Success 200 {object} CheckPhoneResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/auth/check-phone [get]
func (h *PhoneAuthHandler) CheckPhone(c *gin.Context) {
	phone := strings.TrimSpace(c.Query("phone"))

	exists, err := h.phoneAuth.CheckPhone(c.Request.Context(), phone)
	if err != nil {
		if errors.Is(err, usecase.ErrPhoneInvalid) {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid phone number"))
			return
		}
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to check phone"))
		return
	}

	c.JSON(http.StatusOK, CheckPhoneResponse{Exists: exists})
}

// SendVerification godoc
// @Summary Send a phone verification code
// @Description Generates a one-time code, stores it with the echoed registration draft, and delivers it over SMS.
// @Tags PhoneAuth
// @Accept json
// @Produce json
// @Param request body SendVerificationRequest true "Send verification request"
// @Success 200 {object} SendVerificationResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/auth/send-verification [post]
func (h *PhoneAuthHandler) SendVerification(c *gin.Context) {
	var req SendVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid send verification payload"))
		return
	}

	input := usecase.SendVerificationInput{
		Phone:   req.Phone,
		Purpose: domain.VerificationPurpose(strings.TrimSpace(req.Purpose)),
		Draft: domain.RegistrationDraft{
			BusinessName: strings.TrimSpace(req.BusinessName),
			Subdomain:    strings.TrimSpace(req.Subdomain),
			FirstName:    strings.TrimSpace(req.FirstName),
			LastName:     strings.TrimSpace(req.LastName),
		},
	}

	result, err := h.phoneAuth.SendVerification(c.Request.Context(), input)
	if err != nil {
		respondSignupError(c, err, []ErrorCase{
			{Err: usecase.ErrPhoneInvalid, Status: http.StatusBadRequest, Message: "invalid phone number"},
			{Err: usecase.ErrPhoneAlreadyRegistered, Status: http.StatusConflict, Message: "phone already registered"},
			{Err: usecase.ErrPhoneNotRegistered, Status: http.StatusNotFound, Message: "phone not registered"},
		}, "failed to send verification code")
		return
	}

	resp := SendVerificationResponse{
		Message:   "verification code sent",
		ExpiresAt: result.ExpiresAt,
	}

	// Raw codes are only exposed in development mode; production delivery is SMS only.
	if h.isDev && result.Code != "" {
		code := result.Code
		resp.DevCode = &code
	}

	c.JSON(http.StatusOK, resp)
}

// VerifyCode godoc
// @Summary Redeem a phone verification code
// @Description Checks the submitted code. A wrong or expired code yields valid=false with status 200.
// @Tags PhoneAuth
// @Accept json
// @Produce json
// @Param request body VerifyCodeRequest true "Verify code request"
// @Success 200 {object} VerifyCodeResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/auth/verify-code [post]
func (h *PhoneAuthHandler) VerifyCode(c *gin.Context) {
	var req VerifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid verify code payload"))
		return
	}

	result, err := h.phoneAuth.VerifyCode(c.Request.Context(), req.Phone, req.Code)
	if err != nil {
		if errors.Is(err, usecase.ErrPhoneInvalid) {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid phone number"))
			return
		}
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to verify code"))
		return
	}

	c.JSON(http.StatusOK, VerifyCodeResponse{Valid: result.Valid})
}

// CreatePhoneUser godoc
// @Summary Create a phone-track tenant account
// @Description Provisions the owner user and tenant for a verified phone registration and returns a token-bearing login URL.
// @Tags PhoneAuth
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Client-generated key for duplicate-submission protection"
// @Param request body CreatePhoneUserRequest true "Create phone user request"
// @Success 201 {object} CreatePhoneUserResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/auth/create-phone-user [post]
func (h *PhoneAuthHandler) CreatePhoneUser(c *gin.Context) {
	var req CreatePhoneUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid create account payload"))
		return
	}

	input := usecase.CreatePhoneUserInput{
		Phone: req.Phone,
		Draft: domain.RegistrationDraft{
			BusinessName: strings.TrimSpace(req.BusinessName),
			Subdomain:    strings.TrimSpace(req.Subdomain),
			FirstName:    strings.TrimSpace(req.FirstName),
			LastName:     strings.TrimSpace(req.LastName),
		},
		IdempotencyKey: strings.TrimSpace(c.GetHeader(idempotencyKeyHeader)),
		UserAgent:      c.Request.UserAgent(),
	}

	account, err := h.phoneAuth.CreatePhoneUser(c.Request.Context(), input)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			switch pgErr.ConstraintName {
			case "users_phone_key":
				c.JSON(http.StatusConflict, NewErrorResponse(c, "phone already registered"))
			case "tenants_subdomain_key":
				c.JSON(http.StatusConflict, NewErrorResponse(c, "subdomain already taken"))
			default:
				c.JSON(http.StatusConflict, NewErrorResponse(c, "account already exists"))
			}
			return
		}

		respondSignupError(c, err, []ErrorCase{
			{Err: usecase.ErrPhoneInvalid, Status: http.StatusBadRequest, Message: "invalid phone number"},
			{Err: usecase.ErrPhoneNotVerified, Status: http.StatusForbidden, Message: "phone not verified"},
			{Err: usecase.ErrSubdomainTaken, Status: http.StatusConflict, Message: "subdomain already taken"},
		}, "failed to create account")
		return
	}

	c.JSON(http.StatusCreated, CreatePhoneUserResponse{
		UserID:    account.User.ID,
		TenantID:  account.Tenant.ID,
		Subdomain: account.Tenant.Subdomain,
		Token:     account.Token,
		LoginURL:  account.LoginURL,
	})
}
