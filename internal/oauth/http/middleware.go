// Package http exposes the revocation, login policy and authorization endpoints over gin.
package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/tokenkeeper/internal/errors"
	"github.com/allisson/tokenkeeper/internal/httputil"
	oauthUseCase "github.com/allisson/tokenkeeper/internal/oauth/usecase"
)

// ClientAuthenticationMiddleware authenticates the caller with HTTP Basic client
// credentials (client_id:client_secret) and stores the application in the request context.
//
// Missing or malformed credentials and any verification failure answer 401 with the
// same body, so unknown clients cannot be told apart from bad secrets.
func ClientAuthenticationMiddleware(
	applicationUseCase oauthUseCase.ApplicationUseCase,
	logger *slog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID, secret, ok := c.Request.BasicAuth()
		if !ok || clientID == "" || secret == "" {
			logger.Debug("authentication failed: missing client credentials")
			c.Header("WWW-Authenticate", `Basic realm="tokenkeeper"`)
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		app, err := applicationUseCase.VerifySecret(c.Request.Context(), clientID, secret)
		if err != nil {
			logger.Debug("authentication failed",
				slog.String("client_id", clientID),
				slog.Any("error", err))
			c.Header("WWW-Authenticate", `Basic realm="tokenkeeper"`)
			httputil.HandleErrorGin(c, err, logger)
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(WithApplication(c.Request.Context(), app))
		c.Next()
	}
}

// PermissionMiddleware requires the authenticated application to hold permission.
// It must run after ClientAuthenticationMiddleware.
func PermissionMiddleware(permission string, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		app, ok := GetApplication(c.Request.Context())
		if !ok || app == nil {
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		if !app.HasPermission(permission) {
			logger.Debug("authorization failed: missing permission",
				slog.String("client_id", app.ClientID),
				slog.String("permission", permission))
			httputil.HandleErrorGin(c, apperrors.ErrForbidden, logger)
			c.Abort()
			return
		}

		c.Next()
	}
}
