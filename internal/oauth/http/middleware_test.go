package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	oauthDomain "github.com/allisson/tokenkeeper/internal/oauth/domain"
	"github.com/allisson/tokenkeeper/internal/oauth/http/mocks"
)

func newProtectedRouter(useCase *mocks.MockApplicationUseCase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := newTestLogger()

	router := gin.New()
	router.Use(
		ClientAuthenticationMiddleware(useCase, logger),
		PermissionMiddleware(oauthDomain.PermissionManageTokens, logger),
	)
	router.GET("/protected", func(c *gin.Context) {
		app, ok := GetApplication(c.Request.Context())
		if !ok {
			c.Status(http.StatusTeapot)
			return
		}
		c.JSON(http.StatusOK, gin.H{"client_id": app.ClientID})
	})
	return router
}

func TestClientAuthenticationMiddleware(t *testing.T) {
	t.Run("MissingCredentials", func(t *testing.T) {
		useCase := &mocks.MockApplicationUseCase{}
		router := newProtectedRouter(useCase)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Header().Get("WWW-Authenticate"), "Basic")
		useCase.AssertNotCalled(t, "VerifySecret", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("InvalidCredentials", func(t *testing.T) {
		useCase := &mocks.MockApplicationUseCase{}
		useCase.On("VerifySecret", mock.Anything, "ops-console", "wrong").
			Return(nil, oauthDomain.ErrInvalidClientCredentials).
			Once()
		router := newProtectedRouter(useCase)

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.SetBasicAuth("ops-console", "wrong")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		useCase.AssertExpectations(t)
	})

	t.Run("MissingPermission", func(t *testing.T) {
		useCase := &mocks.MockApplicationUseCase{}
		useCase.On("VerifySecret", mock.Anything, "web-app", "s3cret-s3cret-s3cret").
			Return(&oauthDomain.Application{
				ID:          uuid.Must(uuid.NewV7()),
				ClientID:    "web-app",
				Type:        oauthDomain.ApplicationTypeConfidential,
				Permissions: []string{"gt:client_credentials"},
			}, nil).
			Once()
		router := newProtectedRouter(useCase)

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.SetBasicAuth("web-app", "s3cret-s3cret-s3cret")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		useCase.AssertExpectations(t)
	})

	t.Run("Authorized", func(t *testing.T) {
		useCase := &mocks.MockApplicationUseCase{}
		useCase.On("VerifySecret", mock.Anything, "ops-console", "s3cret-s3cret-s3cret").
			Return(&oauthDomain.Application{
				ID:          uuid.Must(uuid.NewV7()),
				ClientID:    "ops-console",
				Type:        oauthDomain.ApplicationTypeConfidential,
				Permissions: []string{oauthDomain.PermissionManageTokens},
			}, nil).
			Once()
		router := newProtectedRouter(useCase)

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.SetBasicAuth("ops-console", "s3cret-s3cret-s3cret")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"client_id":"ops-console"}`, w.Body.String())
		useCase.AssertExpectations(t)
	})
}

func TestPermissionMiddleware_WithoutAuthentication(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(PermissionMiddleware(oauthDomain.PermissionManageTokens, newTestLogger()))
	router.GET("/protected", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
