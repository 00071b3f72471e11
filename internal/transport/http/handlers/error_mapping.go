package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/washlytics/tenant-onboarding/internal/usecase"
)

// ErrorCase maps a sentinel error to an HTTP status code and client message.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

// draftErrorCases covers the validation failures shared by every endpoint
// that accepts registration details.
func draftErrorCases() []ErrorCase {
	return []ErrorCase{
		{Err: usecase.ErrSubdomainInvalid, Status: http.StatusBadRequest, Message: "invalid subdomain"},
		{Err: usecase.ErrSubdomainReserved, Status: http.StatusBadRequest, Message: "subdomain is reserved"},
		{Err: usecase.ErrDraftIncomplete, Status: http.StatusBadRequest, Message: "incomplete registration details"},
	}
}

// respondSignupError resolves err against the endpoint-specific extras first,
// then the shared draft cases. Unmapped errors become a 500 with
// fallbackMessage, keeping internal detail out of the response.
func respondSignupError(c *gin.Context, err error, extras []ErrorCase, fallbackMessage string) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	for _, group := range [][]ErrorCase{extras, draftErrorCases()} {
		for _, cs := range group {
			if cs.Err == nil {
				continue
			}
			if errors.Is(err, cs.Err) {
				c.JSON(cs.Status, NewErrorResponse(c, cs.Message))
				return
			}
		}
	}

	c.JSON(http.StatusInternalServerError, NewErrorResponse(c, fallbackMessage))
}
