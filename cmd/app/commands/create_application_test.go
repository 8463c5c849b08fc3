package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/tokenkeeper/internal/errors"
	oauthDomain "github.com/allisson/tokenkeeper/internal/oauth/domain"
	"github.com/allisson/tokenkeeper/internal/oauth/http/mocks"
)

func TestRunCreateApplication(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()
	appID := uuid.Must(uuid.NewV7())

	t.Run("confidential-text-output", func(t *testing.T) {
		mockUseCase := &mocks.MockApplicationUseCase{}
		mockUseCase.On("Create", ctx, mock.MatchedBy(func(input *oauthDomain.CreateApplicationInput) bool {
			return input.ClientID == "ops-console" &&
				input.Type == oauthDomain.ApplicationTypeConfidential &&
				assert.ObjectsAreEqual(
					[]string{"ept:revocation", oauthDomain.PermissionManageTokens},
					input.Permissions,
				) &&
				assert.ObjectsAreEqual([]string{"https://ops.example.com/cb"}, input.RedirectURIs)
		})).Return(&oauthDomain.CreateApplicationOutput{
			ID:          appID,
			ClientID:    "ops-console",
			PlainSecret: "generated-secret",
		}, nil)

		var out bytes.Buffer
		err := RunCreateApplication(ctx, mockUseCase, logger, &out, CreateApplicationParams{
			ClientID:     "ops-console",
			DisplayName:  "Ops Console",
			Type:         "confidential",
			Permissions:  []string{" ept:revocation ", ""},
			RedirectURIs: []string{"https://ops.example.com/cb"},
			ManageTokens: true,
		}, "text")

		require.NoError(t, err)
		assert.Contains(t, out.String(), "Client ID: ops-console")
		assert.Contains(t, out.String(), "Client Secret: generated-secret")
		assert.Contains(t, out.String(), "shown only once")
		mockUseCase.AssertExpectations(t)
	})

	t.Run("public-json-output", func(t *testing.T) {
		mockUseCase := &mocks.MockApplicationUseCase{}
		mockUseCase.On("Create", ctx, mock.AnythingOfType("*domain.CreateApplicationInput")).
			Return(&oauthDomain.CreateApplicationOutput{ID: appID, ClientID: "spa"}, nil)

		var out bytes.Buffer
		err := RunCreateApplication(ctx, mockUseCase, logger, &out, CreateApplicationParams{
			ClientID: "spa",
			Type:     "public",
		}, "json")

		require.NoError(t, err)

		var result map[string]string
		require.NoError(t, json.Unmarshal(out.Bytes(), &result))
		assert.Equal(t, "spa", result["client_id"])
		assert.Equal(t, appID.String(), result["id"])
		assert.NotContains(t, result, "client_secret")
		mockUseCase.AssertExpectations(t)
	})

	t.Run("manage-permission-not-duplicated", func(t *testing.T) {
		mockUseCase := &mocks.MockApplicationUseCase{}
		mockUseCase.On("Create", ctx, mock.MatchedBy(func(input *oauthDomain.CreateApplicationInput) bool {
			return len(input.Permissions) == 1
		})).Return(&oauthDomain.CreateApplicationOutput{ID: appID, ClientID: "ops"}, nil)

		err := RunCreateApplication(ctx, mockUseCase, logger, &bytes.Buffer{}, CreateApplicationParams{
			ClientID:     "ops",
			Type:         "confidential",
			Permissions:  []string{oauthDomain.PermissionManageTokens},
			ManageTokens: true,
		}, "text")

		require.NoError(t, err)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("use-case-error", func(t *testing.T) {
		mockUseCase := &mocks.MockApplicationUseCase{}
		mockUseCase.On("Create", ctx, mock.Anything).Return(nil, oauthDomain.ErrClientIDConflict)

		err := RunCreateApplication(ctx, mockUseCase, logger, &bytes.Buffer{}, CreateApplicationParams{
			ClientID: "dup",
			Type:     "public",
		}, "text")

		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrConflict)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("invalid-format", func(t *testing.T) {
		mockUseCase := &mocks.MockApplicationUseCase{}

		err := RunCreateApplication(ctx, mockUseCase, logger, &bytes.Buffer{}, CreateApplicationParams{}, "xml")

		require.Error(t, err)
		mockUseCase.AssertNotCalled(t, "Create")
	})
}
