package http

import (
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

// AuthorizationHandler serves authorization listing and revocation.
type AuthorizationHandler struct {
	authorizationUseCase oauthUseCase.AuthorizationUseCase
	logger               *slog.Logger
}

// NewAuthorizationHandler creates a new authorization handler.
func NewAuthorizationHandler(
	authorizationUseCase oauthUseCase.AuthorizationUseCase,
	logger *slog.Logger,
) *AuthorizationHandler {
	return &AuthorizationHandler{
		authorizationUseCase: authorizationUseCase,
		logger:               logger,
	}
}

// ListBySubjectHandler lists a subject's authorizations.
// GET /v1/subjects/:subject/authorizations?offset=0&limit=50&status=valid
func (h *AuthorizationHandler) ListBySubjectHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	status, err := dto.ParseAuthorizationStatus(c.Query("status"))
	if err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	filter := oauthDomain.AuthorizationFilter{
		Subject: c.Param("subject"),
		Status:  status,
	}

	authzs, err := h.authorizationUseCase.List(c.Request.Context(), filter, offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapAuthorizationsToListResponse(authzs))
}

// RevokeHandler revokes an authorization.
// POST /v1/authorizations/:id/revoke - Returns 200 OK with {"revoked": bool}.
func (h *AuthorizationHandler) RevokeHandler(c *gin.Context) {
	authzID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c,
			fmt.Errorf("invalid authorization ID format: must be a valid UUID"),
			h.logger)
		return
	}

	revoked, err := h.authorizationUseCase.Revoke(c.Request.Context(), authzID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.RevokeResponse{Revoked: revoked})
}
