package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/tokenkeeper/internal/httputil"
	oauthDomain "github.com/allisson/tokenkeeper/internal/oauth/domain"
	"github.com/allisson/tokenkeeper/internal/oauth/http/dto"
	oauthUseCase "github.com/allisson/tokenkeeper/internal/oauth/usecase"
	customValidation "github.com/allisson/tokenkeeper/internal/validation"
)

// TokenManagementHandler serves revocation and login policy requests.
type TokenManagementHandler struct {
	tokenManagementUseCase oauthUseCase.TokenManagementUseCase
	logger                 *slog.Logger
}

// NewTokenManagementHandler creates a new token management handler.
func NewTokenManagementHandler(
	tokenManagementUseCase oauthUseCase.TokenManagementUseCase,
	logger *slog.Logger,
) *TokenManagementHandler {
	return &TokenManagementHandler{
		tokenManagementUseCase: tokenManagementUseCase,
		logger:                 logger,
	}
}

// RevokeTokenHandler revokes a single token.
// POST /v1/tokens/:id/revoke - Returns 200 OK with {"revoked": bool}; false means the
// token was absent or no longer valid.
func (h *TokenManagementHandler) RevokeTokenHandler(c *gin.Context) {
	tokenID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c,
			fmt.Errorf("invalid token ID format: must be a valid UUID"),
			h.logger)
		return
	}

	revoked, err := h.tokenManagementUseCase.RevokeToken(c.Request.Context(), tokenID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.RevokeResponse{Revoked: revoked})
}

// RevokeSubjectTokensHandler revokes every valid token of a subject.
// POST /v1/subjects/:subject/revoke - Returns 200 OK with {"revoked_count": n}.
func (h *TokenManagementHandler) RevokeSubjectTokensHandler(c *gin.Context) {
	count, err := h.tokenManagementUseCase.RevokeAllUserTokens(c.Request.Context(), c.Param("subject"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.RevokeSubjectResponse{RevokedCount: count})
}

// RevokeDeviceTokensHandler always answers 501: device sessions are not tracked.
// POST /v1/subjects/:subject/devices/:device/revoke
func (h *TokenManagementHandler) RevokeDeviceTokensHandler(c *gin.Context) {
	_, err := h.tokenManagementUseCase.RevokeDeviceTokens(
		c.Request.Context(),
		c.Param("subject"),
		c.Param("device"),
	)
	httputil.HandleErrorGin(c, err, h.logger)
}

// ListSessionsHandler always answers 501: device sessions are not tracked.
// GET /v1/subjects/:subject/sessions
func (h *TokenManagementHandler) ListSessionsHandler(c *gin.Context) {
	_, err := h.tokenManagementUseCase.ListActiveSessions(c.Request.Context(), c.Param("subject"))
	httputil.HandleErrorGin(c, err, h.logger)
}

// CheckLoginPolicyHandler evaluates the login policy for a subject and device.
// POST /v1/login-policy/check - Returns 200 OK with {"allowed": bool, "reason": "..."}.
func (h *TokenManagementHandler) CheckLoginPolicyHandler(c *gin.Context) {
	var req dto.CheckLoginPolicyRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	decision, err := h.tokenManagementUseCase.CheckLoginPolicy(c.Request.Context(), req.Subject, req.DeviceID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapLoginDecisionToResponse(decision))
}

// GetLoginPolicyHandler returns the current login policy snapshot.
// GET /v1/login-policy
func (h *TokenManagementHandler) GetLoginPolicyHandler(c *gin.Context) {
	settings := h.tokenManagementUseCase.GetLoginPolicy(c.Request.Context())
	c.JSON(http.StatusOK, dto.MapLoginPolicyToResponse(settings))
}

// ValidateTokenHandler checks a self-contained token against the revocation cache.
// POST /v1/tokens/validate - Returns 200 OK with {"active": bool}.
func (h *TokenManagementHandler) ValidateTokenHandler(c *gin.Context) {
	var req dto.ValidateTokenRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	err := h.tokenManagementUseCase.ValidateToken(
		c.Request.Context(),
		uuid.MustParse(req.TokenID),
		req.Subject,
		req.IssuedAt,
	)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, dto.ValidateTokenResponse{Active: true})
	case errors.Is(err, oauthDomain.ErrTokenRevoked):
		c.JSON(http.StatusOK, dto.ValidateTokenResponse{Active: false})
	default:
		httputil.HandleErrorGin(c, err, h.logger)
	}
}
