// Package httpkit provides shared HTTP helpers: response envelopes,
// request identity extraction, and middleware.
package httpkit

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"agencydesk_backend/platform/apperr"
)

// ErrorResponse is the JSON envelope for failed requests.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// RespondError writes a JSON error with the given status.
func RespondError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

// HandleError maps an application error to an HTTP response. Errors that
// are not apperr values become opaque 500s so internals never leak.
func HandleError(c *gin.Context, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		c.JSON(appErr.HTTPStatus(), ErrorResponse{Error: appErr.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// RespondValidationError writes a 400 with field-level details.
func RespondValidationError(c *gin.Context, details any) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "validation failed",
		Details: details,
	})
}
