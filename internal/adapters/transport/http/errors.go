package http

import (
	"errors"
	nethttp "net/http"

	customErrors "github.com/Miraines/AquaTrack/auth-service/internal/domain/auth/errors"
	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Status  int                       `json:"status"`
	Message string                    `json:"message"`
	Errors  []customErrors.FieldError `json:"errors,omitempty"`
}

func statusOf(err error) int {
	switch {
	case customErrors.IsInvalidToken(err), customErrors.IsUnauthorized(err):
		return nethttp.StatusUnauthorized
	case customErrors.IsAlreadyExists(err):
		return nethttp.StatusConflict
	case customErrors.IsNotFound(err):
		return nethttp.StatusNotFound
	case customErrors.IsInvalidArgument(err):
		return nethttp.StatusBadRequest
	default:
		return nethttp.StatusInternalServerError
	}
}

func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	switch statusOf(err) {
	case nethttp.StatusUnauthorized:
		return "unauthorized"
	case nethttp.StatusConflict:
		return "conflict"
	case nethttp.StatusNotFound:
		return "not_found"
	case nethttp.StatusBadRequest:
		return "invalid_argument"
	default:
		return "internal"
	}
}

// writeError renders err as {status, message}. Unauthorized responses also
// drop the auth cookies so the client stops presenting them.
func (h *Handler) writeError(c *gin.Context, err error) {
	code := statusOf(err)
	resp := errorResponse{Status: code, Message: customErrors.Message(err)}

	var vErr *customErrors.ValidationError
	if errors.As(err, &vErr) {
		resp.Errors = vErr.Fields
	}

	if code == nethttp.StatusUnauthorized {
		h.clearAuthCookies(c)
	}
	if code == nethttp.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(code, resp)
}
