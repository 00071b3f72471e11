package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/washlytics/tenant-onboarding/internal/usecase"
)

// TenantHandler exposes tenant-facing endpoints.
type TenantHandler struct {
	onboarding *usecase.OnboardingService
}

// NewTenantHandler builds a tenant handler bound to the onboarding service.
func NewTenantHandler(onboarding *usecase.OnboardingService) *TenantHandler {
	return &TenantHandler{onboarding: onboarding}
}

// RegisterRoutes binds tenant endpoints.
func (h *TenantHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/check-subdomain", h.CheckSubdomain)
}

// CheckSubdomain godoc
// @Summary Check subdomain availability
// @Description Reports whether the candidate subdomain can still be claimed. Invalid or reserved names are reported as unavailable.
// @Tags Tenants
// @Produce json
// @Param subdomain query string true "Candidate subdomain"
// @Success 200 {object} CheckSubdomainResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/tenants/check-subdomain [get]
func (h *TenantHandler) CheckSubdomain(c *gin.Context) {
	subdomain := strings.TrimSpace(c.Query("subdomain"))

	available, err := h.onboarding.CheckSubdomain(c.Request.Context(), subdomain)
	if err != nil {
		// Malformed or reserved names are simply not available.
		if errors.Is(err, usecase.ErrSubdomainInvalid) || errors.Is(err, usecase.ErrSubdomainReserved) {
			c.JSON(http.StatusOK, CheckSubdomainResponse{Available: false})
			return
		}
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to check subdomain"))
		return
	}

	c.JSON(http.StatusOK, CheckSubdomainResponse{Available: available})
}
