package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/allisson/tokenkeeper/internal/audit"
	apperrors "github.com/allisson/tokenkeeper/internal/errors"
	oauthDomain "github.com/allisson/tokenkeeper/internal/oauth/domain"
)

const (
	testPlainSecret  = "generated-plain-secret-value"           //nolint:gosec // test fixture, not a real credential
	testHashedSecret = "$argon2id$v=19$m=65536,t=3,p=4$fixture" //nolint:gosec // test fixture, not a real credential
)

func confidentialInput() *oauthDomain.CreateApplicationInput {
	return &oauthDomain.CreateApplicationInput{
		ClientID:     "billing-portal",
		DisplayName:  "Billing Portal",
		Type:         oauthDomain.ApplicationTypeConfidential,
		ConsentType:  oauthDomain.ConsentTypeExplicit,
		Permissions:  []string{"ept:token", "gt:authorization_code"},
		RedirectURIs: []string{"https://billing.example.com/callback"},
	}
}

func TestApplicationUseCase_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_ConfidentialClientGetsGeneratedSecret", func(t *testing.T) {
		appRepo := &mockApplicationRepository{}
		secretService := &mockSecretService{}
		input := confidentialInput()

		secretService.On("GenerateSecret").Return(testPlainSecret, testHashedSecret, nil).Once()
		appRepo.On("GetByClientID", ctx, "billing-portal").Return(nil, oauthDomain.ErrApplicationNotFound).Once()
		appRepo.On("Create", ctx, mock.MatchedBy(func(app *oauthDomain.Application) bool {
			return app.ClientID == "billing-portal" &&
				app.ClientSecret == testHashedSecret &&
				app.Type == oauthDomain.ApplicationTypeConfidential &&
				len(app.RedirectURIs) == 1 &&
				!app.CreatedAt.IsZero()
		})).Return(nil).Once()

		uc := NewApplicationUseCase(&mockTxManager{}, appRepo, secretService, &recordingAuditor{})
		output, err := uc.Create(ctx, input)

		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, output.ID)
		assert.Equal(t, "billing-portal", output.ClientID)
		assert.Equal(t, testPlainSecret, output.PlainSecret)
		appRepo.AssertExpectations(t)
		secretService.AssertExpectations(t)
	})

	t.Run("Success_SuppliedSecretIsHashed", func(t *testing.T) {
		appRepo := &mockApplicationRepository{}
		secretService := &mockSecretService{}
		input := confidentialInput()
		input.ClientSecret = "a-supplied-secret-of-length"

		secretService.On("HashSecret", "a-supplied-secret-of-length").Return(testHashedSecret, nil).Once()
		appRepo.On("GetByClientID", ctx, "billing-portal").Return(nil, oauthDomain.ErrApplicationNotFound).Once()
		appRepo.On("Create", ctx, mock.MatchedBy(func(app *oauthDomain.Application) bool {
			return app.ClientSecret == testHashedSecret
		})).Return(nil).Once()

		uc := NewApplicationUseCase(&mockTxManager{}, appRepo, secretService, &recordingAuditor{})
		output, err := uc.Create(ctx, input)

		require.NoError(t, err)
		assert.Equal(t, "a-supplied-secret-of-length", output.PlainSecret)
		secretService.AssertNotCalled(t, "GenerateSecret")
	})

	t.Run("Success_PublicClientHasNoSecret", func(t *testing.T) {
		appRepo := &mockApplicationRepository{}
		secretService := &mockSecretService{}
		input := confidentialInput()
		input.Type = oauthDomain.ApplicationTypePublic
		input.ConsentType = ""

		appRepo.On("GetByClientID", ctx, "billing-portal").Return(nil, oauthDomain.ErrApplicationNotFound).Once()
		appRepo.On("Create", ctx, mock.MatchedBy(func(app *oauthDomain.Application) bool {
			return app.ClientSecret == "" && app.ConsentType == oauthDomain.ConsentTypeExplicit
		})).Return(nil).Once()

		uc := NewApplicationUseCase(&mockTxManager{}, appRepo, secretService, &recordingAuditor{})
		output, err := uc.Create(ctx, input)

		require.NoError(t, err)
		assert.Empty(t, output.PlainSecret)
		secretService.AssertNotCalled(t, "GenerateSecret")
	})

	t.Run("Error_DuplicateClientID", func(t *testing.T) {
		appRepo := &mockApplicationRepository{}
		secretService := &mockSecretService{}

		secretService.On("GenerateSecret").Return(testPlainSecret, testHashedSecret, nil).Once()
		appRepo.On("GetByClientID", ctx, "billing-portal").Return(&oauthDomain.Application{}, nil).Once()

		uc := NewApplicationUseCase(&mockTxManager{}, appRepo, secretService, &recordingAuditor{})
		output, err := uc.Create(ctx, confidentialInput())

		assert.Nil(t, output)
		assert.ErrorIs(t, err, oauthDomain.ErrClientIDConflict)
		assert.ErrorIs(t, err, apperrors.ErrConflict)
		appRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Error_LookupFails", func(t *testing.T) {
		appRepo := &mockApplicationRepository{}
		secretService := &mockSecretService{}
		dbErr := errors.New("database error")

		secretService.On("GenerateSecret").Return(testPlainSecret, testHashedSecret, nil).Once()
		appRepo.On("GetByClientID", ctx, "billing-portal").Return(nil, dbErr).Once()

		uc := NewApplicationUseCase(&mockTxManager{}, appRepo, secretService, &recordingAuditor{})
		_, err := uc.Create(ctx, confidentialInput())

		assert.ErrorIs(t, err, dbErr)
	})

	t.Run("Error_SecretGenerationFails", func(t *testing.T) {
		appRepo := &mockApplicationRepository{}
		secretService := &mockSecretService{}
		genErr := errors.New("failed to generate random secret")

		secretService.On("GenerateSecret").Return("", "", genErr).Once()

		uc := NewApplicationUseCase(&mockTxManager{}, appRepo, secretService, &recordingAuditor{})
		_, err := uc.Create(ctx, confidentialInput())

		assert.Equal(t, genErr, err)
		appRepo.AssertNotCalled(t, "GetByClientID", mock.Anything, mock.Anything)
	})
}

func TestApplicationUseCase_Create_Validation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		mutate   func(input *oauthDomain.CreateApplicationInput)
		contains string
	}{
		{
			name:     "missing client id",
			mutate:   func(input *oauthDomain.CreateApplicationInput) { input.ClientID = "" },
			contains: "client id is required",
		},
		{
			name:     "client id with whitespace",
			mutate:   func(input *oauthDomain.CreateApplicationInput) { input.ClientID = "billing portal" },
			contains: "must not contain whitespace",
		},
		{
			name:     "client id too long",
			mutate:   func(input *oauthDomain.CreateApplicationInput) { input.ClientID = strings.Repeat("a", 101) },
			contains: "at most 100 characters",
		},
		{
			name:     "unknown application type",
			mutate:   func(input *oauthDomain.CreateApplicationInput) { input.Type = "hybrid" },
			contains: "confidential or public",
		},
		{
			name:     "unknown consent type",
			mutate:   func(input *oauthDomain.CreateApplicationInput) { input.ConsentType = "sometimes" },
			contains: "consent type",
		},
		{
			name: "relative redirect uri",
			mutate: func(input *oauthDomain.CreateApplicationInput) {
				input.RedirectURIs = []string{"/callback"}
			},
			contains: "absolute URI",
		},
		{
			name: "custom scheme redirect uri",
			mutate: func(input *oauthDomain.CreateApplicationInput) {
				input.RedirectURIs = []string{"myapp://callback"}
			},
			contains: "http or https",
		},
		{
			name: "invalid post logout uri",
			mutate: func(input *oauthDomain.CreateApplicationInput) {
				input.PostLogoutRedirectURIs = []string{"https://billing.example.com/#done"}
			},
			contains: "fragment",
		},
		{
			name:     "short supplied secret",
			mutate:   func(input *oauthDomain.CreateApplicationInput) { input.ClientSecret = "short" },
			contains: "between 16 and 256",
		},
		{
			name: "public client with secret",
			mutate: func(input *oauthDomain.CreateApplicationInput) {
				input.Type = oauthDomain.ApplicationTypePublic
				input.ClientSecret = "a-supplied-secret-of-length"
			},
			contains: "must not carry a secret",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appRepo := &mockApplicationRepository{}
			secretService := &mockSecretService{}
			input := confidentialInput()
			tt.mutate(input)

			uc := NewApplicationUseCase(&mockTxManager{}, appRepo, secretService, &recordingAuditor{})
			output, err := uc.Create(ctx, input)

			assert.Nil(t, output)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.contains)
			appRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			secretService.AssertNotCalled(t, "GenerateSecret")
		})
	}
}

func TestApplicationUseCase_Update(t *testing.T) {
	ctx := context.Background()
	appID := uuid.Must(uuid.NewV7())

	t.Run("Success_UpdatesMutableFields", func(t *testing.T) {
		appRepo := &mockApplicationRepository{}
		existing := &oauthDomain.Application{
			ID:           appID,
			ClientID:     "billing-portal",
			ClientSecret: testHashedSecret,
			Type:         oauthDomain.ApplicationTypeConfidential,
			ConsentType:  oauthDomain.ConsentTypeExplicit,
		}
		input := &oauthDomain.UpdateApplicationInput{
			DisplayName:  "  Billing  ",
			Permissions:  []string{"ept:token"},
			RedirectURIs: []string{"https://billing.example.com/cb"},
		}

		appRepo.On("Get", ctx, appID).Return(existing, nil).Once()
		appRepo.On("Update", ctx, mock.MatchedBy(func(app *oauthDomain.Application) bool {
			return app.DisplayName == "Billing" &&
				app.ClientSecret == testHashedSecret &&
				app.ConsentType == oauthDomain.ConsentTypeExplicit &&
				app.RedirectURIs[0] == "https://billing.example.com/cb"
		})).Return(nil).Once()

		uc := NewApplicationUseCase(&mockTxManager{}, appRepo, &mockSecretService{}, &recordingAuditor{})

		assert.NoError(t, uc.Update(ctx, appID, input))
		appRepo.AssertExpectations(t)
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		appRepo := &mockApplicationRepository{}
		appRepo.On("Get", ctx, appID).Return(nil, oauthDomain.ErrApplicationNotFound).Once()

		uc := NewApplicationUseCase(&mockTxManager{}, appRepo, &mockSecretService{}, &recordingAuditor{})
		err := uc.Update(ctx, appID, &oauthDomain.UpdateApplicationInput{})

		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("Error_InvalidRedirectURI", func(t *testing.T) {
		appRepo := &mockApplicationRepository{}

		uc := NewApplicationUseCase(&mockTxManager{}, appRepo, &mockSecretService{}, &recordingAuditor{})
		err := uc.Update(ctx, appID, &oauthDomain.UpdateApplicationInput{RedirectURIs: []string{"ftp://x"}})

		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		appRepo.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})
}

func TestApplicationUseCase_RotateSecret(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_ReplacesHash", func(t *testing.T) {
		appRepo := &mockApplicationRepository{}
		secretService := &mockSecretService{}
		auditor := &recordingAuditor{}
		app := &oauthDomain.Application{
			ClientID:     "billing-portal",
			ClientSecret: "old-hash",
			Type:         oauthDomain.ApplicationTypeConfidential,
		}

		appRepo.On("GetByClientID", ctx, "billing-portal").Return(app, nil).Once()
		secretService.On("GenerateSecret").Return(testPlainSecret, testHashedSecret, nil).Once()
		appRepo.On("Update", ctx, mock.MatchedBy(func(app *oauthDomain.Application) bool {
			return app.ClientSecret == testHashedSecret
		})).Return(nil).Once()

		uc := NewApplicationUseCase(&mockTxManager{}, appRepo, secretService, auditor)
		secret, err := uc.RotateSecret(ctx, "billing-portal")

		require.NoError(t, err)
		assert.Equal(t, testPlainSecret, secret)
		require.Len(t, auditor.Events(), 1)
		assert.Equal(t, audit.ActionSecretRotated, auditor.Events()[0].Action)
	})

	t.Run("Error_PublicClient", func(t *testing.T) {
		appRepo := &mockApplicationRepository{}
		auditor := &recordingAuditor{}
		appRepo.On("GetByClientID", ctx, "spa").
			Return(&oauthDomain.Application{ClientID: "spa", Type: oauthDomain.ApplicationTypePublic}, nil).
			Once()

		uc := NewApplicationUseCase(&mockTxManager{}, appRepo, &mockSecretService{}, auditor)
		secret, err := uc.RotateSecret(ctx, "spa")

		assert.Empty(t, secret)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		assert.Empty(t, auditor.Events())
	})
}

func TestApplicationUseCase_VerifySecret(t *testing.T) {
	ctx := context.Background()
	confidential := &oauthDomain.Application{
		ClientID:     "billing-portal",
		ClientSecret: testHashedSecret,
		Type:         oauthDomain.ApplicationTypeConfidential,
	}

	t.Run("Success_MatchingSecret", func(t *testing.T) {
		appRepo := &mockApplicationRepository{}
		secretService := &mockSecretService{}
		appRepo.On("GetByClientID", ctx, "billing-portal").Return(confidential, nil).Once()
		secretService.On("CompareSecret", testPlainSecret, testHashedSecret).Return(true).Once()

		uc := NewApplicationUseCase(&mockTxManager{}, appRepo, secretService, &recordingAuditor{})
		app, err := uc.VerifySecret(ctx, "billing-portal", testPlainSecret)

		require.NoError(t, err)
		assert.Equal(t, confidential, app)
	})

	t.Run("Error_WrongSecret", func(t *testing.T) {
		appRepo := &mockApplicationRepository{}
		secretService := &mockSecretService{}
		appRepo.On("GetByClientID", ctx, "billing-portal").Return(confidential, nil).Once()
		secretService.On("CompareSecret", "wrong", testHashedSecret).Return(false).Once()

		uc := NewApplicationUseCase(&mockTxManager{}, appRepo, secretService, &recordingAuditor{})
		_, err := uc.VerifySecret(ctx, "billing-portal", "wrong")

		assert.ErrorIs(t, err, oauthDomain.ErrInvalidClientCredentials)
	})

	t.Run("Error_UnknownClientStillVerifiesDecoy", func(t *testing.T) {
		appRepo := &mockApplicationRepository{}
		secretService := &mockSecretService{}
		appRepo.On("GetByClientID", ctx, "ghost").Return(nil, oauthDomain.ErrApplicationNotFound).Twice()
		secretService.On("HashSecret", decoySecret).Return("decoy-hash", nil).Once()
		// Even a matching decoy must not authenticate anything.
		secretService.On("CompareSecret", "anything", "decoy-hash").Return(true).Twice()

		uc := NewApplicationUseCase(&mockTxManager{}, appRepo, secretService, &recordingAuditor{})
		_, err := uc.VerifySecret(ctx, "ghost", "anything")
		assert.ErrorIs(t, err, oauthDomain.ErrInvalidClientCredentials)
		assert.NotErrorIs(t, err, apperrors.ErrNotFound)

		_, err = uc.VerifySecret(ctx, "ghost", "anything")
		assert.ErrorIs(t, err, oauthDomain.ErrInvalidClientCredentials)

		secretService.AssertExpectations(t)
		secretService.AssertNumberOfCalls(t, "HashSecret", 1)
	})

	t.Run("Error_PublicClientStillVerifiesDecoy", func(t *testing.T) {
		appRepo := &mockApplicationRepository{}
		secretService := &mockSecretService{}
		appRepo.On("GetByClientID", ctx, "spa").
			Return(&oauthDomain.Application{ClientID: "spa", Type: oauthDomain.ApplicationTypePublic}, nil).
			Once()
		secretService.On("HashSecret", decoySecret).Return("decoy-hash", nil).Once()
		secretService.On("CompareSecret", "", "decoy-hash").Return(false).Once()

		uc := NewApplicationUseCase(&mockTxManager{}, appRepo, secretService, &recordingAuditor{})
		_, err := uc.VerifySecret(ctx, "spa", "")

		assert.ErrorIs(t, err, oauthDomain.ErrInvalidClientCredentials)
		secretService.AssertExpectations(t)
	})

	t.Run("Error_DecoyHashFailureStillRejects", func(t *testing.T) {
		appRepo := &mockApplicationRepository{}
		secretService := &mockSecretService{}
		appRepo.On("GetByClientID", ctx, "ghost").Return(nil, oauthDomain.ErrApplicationNotFound).Once()
		secretService.On("HashSecret", decoySecret).Return("", errors.New("entropy exhausted")).Once()
		secretService.On("CompareSecret", "anything", "").Return(false).Once()

		uc := NewApplicationUseCase(&mockTxManager{}, appRepo, secretService, &recordingAuditor{})
		_, err := uc.VerifySecret(ctx, "ghost", "anything")

		assert.ErrorIs(t, err, oauthDomain.ErrInvalidClientCredentials)
		secretService.AssertExpectations(t)
	})
}
