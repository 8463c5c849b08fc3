package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	"github.com/allisson/tokenkeeper/internal/audit"
	"github.com/allisson/tokenkeeper/internal/database"
	apperrors "github.com/allisson/tokenkeeper/internal/errors"
	oauthDomain "github.com/allisson/tokenkeeper/internal/oauth/domain"
	oauthService "github.com/allisson/tokenkeeper/internal/oauth/service"
	appValidation "github.com/allisson/tokenkeeper/internal/validation"
)

// minSuppliedSecretLength is the shortest caller-supplied client secret accepted.
const minSuppliedSecretLength = 16

// decoySecret is hashed once to give unknown and public clients something to verify against.
const decoySecret = "tokenkeeper-decoy-client-secret"

var errPublicClientSecret = apperrors.Wrap(apperrors.ErrInvalidInput, "public clients do not have a secret")

// applicationUseCase implements ApplicationUseCase.
type applicationUseCase struct {
	txManager     database.TxManager
	appRepo       ApplicationRepository
	secretService oauthService.SecretService
	recorder      audit.Recorder

	decoyOnce sync.Once
	decoyHash string
}

func validateApplicationURIs(
	redirectURIs, postLogoutRedirectURIs *[]string,
) []*validation.FieldRules {
	return []*validation.FieldRules{
		validation.Field(redirectURIs,
			validation.Each(validation.Required.Error("redirect uri must not be empty"), appValidation.AbsoluteHTTPURI),
		),
		validation.Field(postLogoutRedirectURIs,
			validation.Each(
				validation.Required.Error("post logout redirect uri must not be empty"),
				appValidation.AbsoluteHTTPURI,
			),
		),
	}
}

var consentTypes = []interface{}{
	oauthDomain.ConsentTypeExplicit,
	oauthDomain.ConsentTypeExternal,
	oauthDomain.ConsentTypeImplicit,
	oauthDomain.ConsentTypeSystematic,
}

func (a *applicationUseCase) validateCreateInput(input *oauthDomain.CreateApplicationInput) error {
	isPublic := input.Type == oauthDomain.ApplicationTypePublic
	rules := []*validation.FieldRules{
		validation.Field(&input.ClientID,
			validation.Required.Error("client id is required"),
			appValidation.NoInnerWhitespace,
			validation.Length(1, 100).Error("client id must be at most 100 characters"),
		),
		validation.Field(&input.Type,
			validation.Required.Error("application type is required"),
			validation.In(oauthDomain.ApplicationTypeConfidential, oauthDomain.ApplicationTypePublic).
				Error("application type must be confidential or public"),
		),
		validation.Field(&input.ConsentType,
			validation.In(consentTypes...).Error("consent type must be explicit, external, implicit or systematic"),
		),
		validation.Field(&input.DisplayName,
			validation.Length(0, 255).Error("display name must be at most 255 characters"),
		),
		validation.Field(&input.ClientSecret,
			validation.When(isPublic, validation.Empty.Error("public clients must not carry a secret")),
			validation.When(!isPublic,
				validation.Length(minSuppliedSecretLength, 256).
					Error("client secret must be between 16 and 256 characters"),
			),
		),
	}
	rules = append(rules, validateApplicationURIs(&input.RedirectURIs, &input.PostLogoutRedirectURIs)...)

	return appValidation.WrapValidationError(validation.ValidateStruct(input, rules...))
}

func (a *applicationUseCase) validateUpdateInput(input *oauthDomain.UpdateApplicationInput) error {
	rules := []*validation.FieldRules{
		validation.Field(&input.ConsentType,
			validation.In(consentTypes...).Error("consent type must be explicit, external, implicit or systematic"),
		),
		validation.Field(&input.DisplayName,
			validation.Length(0, 255).Error("display name must be at most 255 characters"),
		),
	}
	rules = append(rules, validateApplicationURIs(&input.RedirectURIs, &input.PostLogoutRedirectURIs)...)

	return appValidation.WrapValidationError(validation.ValidateStruct(input, rules...))
}

// Create validates input, hashes or generates the client secret and persists the
// application. Duplicate client ids return ErrClientIDConflict.
func (a *applicationUseCase) Create(
	ctx context.Context,
	input *oauthDomain.CreateApplicationInput,
) (*oauthDomain.CreateApplicationOutput, error) {
	if err := a.validateCreateInput(input); err != nil {
		return nil, err
	}

	consentType := input.ConsentType
	if consentType == "" {
		consentType = oauthDomain.ConsentTypeExplicit
	}

	now := time.Now().UTC()
	app := &oauthDomain.Application{
		ID:                     uuid.Must(uuid.NewV7()),
		ClientID:               input.ClientID,
		DisplayName:            strings.TrimSpace(input.DisplayName),
		Type:                   input.Type,
		ConsentType:            consentType,
		Permissions:            input.Permissions,
		RedirectURIs:           input.RedirectURIs,
		PostLogoutRedirectURIs: input.PostLogoutRedirectURIs,
		Requirements:           input.Requirements,
		Properties:             input.Properties,
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	var plainSecret string
	if app.IsConfidential() {
		var err error
		if input.ClientSecret == "" {
			plainSecret, app.ClientSecret, err = a.secretService.GenerateSecret()
		} else {
			plainSecret = input.ClientSecret
			app.ClientSecret, err = a.secretService.HashSecret(input.ClientSecret)
		}
		if err != nil {
			return nil, err
		}
	}

	err := a.txManager.WithTx(ctx, func(ctx context.Context) error {
		_, err := a.appRepo.GetByClientID(ctx, app.ClientID)
		switch {
		case err == nil:
			return oauthDomain.ErrClientIDConflict
		case !apperrors.Is(err, oauthDomain.ErrApplicationNotFound):
			return err
		}
		return a.appRepo.Create(ctx, app)
	})
	if err != nil {
		return nil, err
	}

	return &oauthDomain.CreateApplicationOutput{
		ID:          app.ID,
		ClientID:    app.ClientID,
		PlainSecret: plainSecret,
	}, nil
}

// Update replaces the mutable fields of an application.
func (a *applicationUseCase) Update(
	ctx context.Context,
	appID uuid.UUID,
	input *oauthDomain.UpdateApplicationInput,
) error {
	if err := a.validateUpdateInput(input); err != nil {
		return err
	}

	return a.txManager.WithTx(ctx, func(ctx context.Context) error {
		app, err := a.appRepo.Get(ctx, appID)
		if err != nil {
			return err
		}

		app.DisplayName = strings.TrimSpace(input.DisplayName)
		if input.ConsentType != "" {
			app.ConsentType = input.ConsentType
		}
		app.Permissions = input.Permissions
		app.RedirectURIs = input.RedirectURIs
		app.PostLogoutRedirectURIs = input.PostLogoutRedirectURIs
		app.Requirements = input.Requirements
		app.Properties = input.Properties
		app.UpdatedAt = time.Now().UTC()

		return a.appRepo.Update(ctx, app)
	})
}

// Delete removes an application. Its authorizations and tokens go with it.
func (a *applicationUseCase) Delete(ctx context.Context, appID uuid.UUID) error {
	return a.appRepo.Delete(ctx, appID)
}

func (a *applicationUseCase) Get(ctx context.Context, appID uuid.UUID) (*oauthDomain.Application, error) {
	return a.appRepo.Get(ctx, appID)
}

func (a *applicationUseCase) GetByClientID(ctx context.Context, clientID string) (*oauthDomain.Application, error) {
	return a.appRepo.GetByClientID(ctx, clientID)
}

func (a *applicationUseCase) List(ctx context.Context, offset, limit int) ([]*oauthDomain.Application, error) {
	return a.appRepo.List(ctx, offset, limit)
}

// RotateSecret generates a new secret for a confidential client. The previous secret
// stops working as soon as the update commits.
func (a *applicationUseCase) RotateSecret(ctx context.Context, clientID string) (string, error) {
	var plainSecret string

	err := a.txManager.WithTx(ctx, func(ctx context.Context) error {
		app, err := a.appRepo.GetByClientID(ctx, clientID)
		if err != nil {
			return err
		}
		if !app.IsConfidential() {
			return errPublicClientSecret
		}

		var hashedSecret string
		plainSecret, hashedSecret, err = a.secretService.GenerateSecret()
		if err != nil {
			return err
		}

		app.ClientSecret = hashedSecret
		app.UpdatedAt = time.Now().UTC()
		return a.appRepo.Update(ctx, app)
	})
	if err != nil {
		return "", err
	}

	a.recorder.Record(audit.Event{Action: audit.ActionSecretRotated, Subject: clientID})

	return plainSecret, nil
}

// VerifySecret authenticates a confidential client by id and secret.
func (a *applicationUseCase) VerifySecret(
	ctx context.Context,
	clientID, plainSecret string,
) (*oauthDomain.Application, error) {
	app, err := a.appRepo.GetByClientID(ctx, clientID)
	if err != nil {
		if apperrors.Is(err, oauthDomain.ErrApplicationNotFound) {
			a.compareDecoy(plainSecret)
			return nil, oauthDomain.ErrInvalidClientCredentials
		}
		return nil, err
	}

	if !app.IsConfidential() {
		a.compareDecoy(plainSecret)
		return nil, oauthDomain.ErrInvalidClientCredentials
	}
	if !a.secretService.CompareSecret(plainSecret, app.ClientSecret) {
		return nil, oauthDomain.ErrInvalidClientCredentials
	}

	return app, nil
}

// compareDecoy runs one full secret verification whose result is discarded, so every
// rejection path of VerifySecret pays the same hashing cost.
func (a *applicationUseCase) compareDecoy(plainSecret string) {
	a.decoyOnce.Do(func() {
		hash, err := a.secretService.HashSecret(decoySecret)
		if err == nil {
			a.decoyHash = hash
		}
	})
	a.secretService.CompareSecret(plainSecret, a.decoyHash)
}

// NewApplicationUseCase creates an ApplicationUseCase.
func NewApplicationUseCase(
	txManager database.TxManager,
	appRepo ApplicationRepository,
	secretService oauthService.SecretService,
	recorder audit.Recorder,
) ApplicationUseCase {
	return &applicationUseCase{
		txManager:     txManager,
		appRepo:       appRepo,
		secretService: secretService,
		recorder:      recorder,
	}
}
