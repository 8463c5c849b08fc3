// Package httputil maps domain errors and request parameters to HTTP for the gin handlers.
package httputil

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/tokenkeeper/internal/errors"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type errorMapping struct {
	target  error
	status  int
	code    string
	message string // empty means the error text itself is shown
}

// Order matters: the first matching sentinel wins.
var errorMappings = []errorMapping{
	{apperrors.ErrNotFound, http.StatusNotFound, "not_found", "The requested resource was not found"},
	{apperrors.ErrConflict, http.StatusConflict, "conflict", "A conflict occurred with existing data"},
	{apperrors.ErrInvalidInput, http.StatusUnprocessableEntity, "invalid_input", ""},
	{apperrors.ErrUnauthorized, http.StatusUnauthorized, "unauthorized", "Authentication failed"},
	{apperrors.ErrForbidden, http.StatusForbidden, "forbidden", "You don't have permission to access this resource"},
	{
		apperrors.ErrUnsupported,
		http.StatusNotImplemented,
		"unsupported",
		"This operation is not supported by this deployment",
	},
}

// HandleErrorGin maps err to a status code and a low-detail JSON body. Unknown errors
// become 500 without exposing internals; the full error is logged.
func HandleErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if err == nil {
		return
	}

	statusCode := http.StatusInternalServerError
	body := ErrorResponse{Error: "internal_error", Message: "An internal error occurred"}

	for _, m := range errorMappings {
		if apperrors.Is(err, m.target) {
			statusCode = m.status
			body = ErrorResponse{Error: m.code, Message: m.message}
			if m.message == "" {
				body.Message = err.Error()
			}
			break
		}
	}

	if logger != nil {
		level := slog.LevelWarn
		if statusCode >= http.StatusInternalServerError && statusCode != http.StatusNotImplemented {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "request failed",
			slog.Int("status_code", statusCode),
			slog.String("error_code", body.Error),
			slog.Any("error", err),
		)
	}

	c.JSON(statusCode, body)
}

// HandleBadRequestGin writes a 400 for malformed JSON or parameters.
func HandleBadRequestGin(c *gin.Context, err error, logger *slog.Logger) {
	if logger != nil {
		logger.Warn("bad request", slog.Any("error", err))
	}

	c.JSON(http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: err.Error()})
}

// HandleValidationErrorGin writes a 422 for request validation failures.
func HandleValidationErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if logger != nil {
		logger.Warn("validation failed", slog.Any("error", err))
	}

	c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "validation_error", Message: err.Error()})
}
