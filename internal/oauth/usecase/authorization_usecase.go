package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/tokenkeeper/internal/errors"
	oauthDomain "github.com/allisson/tokenkeeper/internal/oauth/domain"
	appValidation "github.com/allisson/tokenkeeper/internal/validation"
)

// authorizationUseCase implements AuthorizationUseCase.
type authorizationUseCase struct {
	authzRepo AuthorizationRepository
}

func (a *authorizationUseCase) Create(
	ctx context.Context,
	input *oauthDomain.CreateAuthorizationInput,
) (*oauthDomain.Authorization, error) {
	err := validation.ValidateStruct(input,
		validation.Field(&input.Subject, validation.Required.Error("subject is required"), appValidation.NotBlank),
		validation.Field(&input.Type,
			validation.In(oauthDomain.AuthorizationTypePermanent, oauthDomain.AuthorizationTypeAdHoc).
				Error("authorization type must be permanent or ad-hoc"),
		),
	)
	if err != nil {
		return nil, appValidation.WrapValidationError(err)
	}

	authzType := input.Type
	if authzType == "" {
		authzType = oauthDomain.AuthorizationTypePermanent
	}

	authz := &oauthDomain.Authorization{
		ID:            uuid.Must(uuid.NewV7()),
		ApplicationID: input.ApplicationID,
		Subject:       input.Subject,
		Type:          authzType,
		Status:        oauthDomain.AuthorizationStatusValid,
		Scopes:        input.Scopes,
		Properties:    input.Properties,
		CreatedAt:     time.Now().UTC(),
	}

	if err := a.authzRepo.Create(ctx, authz); err != nil {
		return nil, err
	}
	return authz, nil
}

func (a *authorizationUseCase) Get(ctx context.Context, authzID uuid.UUID) (*oauthDomain.Authorization, error) {
	return a.authzRepo.Get(ctx, authzID)
}

func (a *authorizationUseCase) List(
	ctx context.Context,
	filter oauthDomain.AuthorizationFilter,
	offset, limit int,
) ([]*oauthDomain.Authorization, error) {
	return a.authzRepo.List(ctx, filter, offset, limit)
}

// Revoke is idempotent: an unknown or already revoked authorization yields false.
func (a *authorizationUseCase) Revoke(ctx context.Context, authzID uuid.UUID) (bool, error) {
	revoked, err := a.authzRepo.Revoke(ctx, authzID)
	if err != nil {
		if apperrors.Is(err, oauthDomain.ErrAuthorizationNotFound) {
			return false, nil
		}
		return false, err
	}
	return revoked, nil
}

func (a *authorizationUseCase) Delete(ctx context.Context, authzID uuid.UUID) error {
	return a.authzRepo.Delete(ctx, authzID)
}

// NewAuthorizationUseCase creates an AuthorizationUseCase.
func NewAuthorizationUseCase(authzRepo AuthorizationRepository) AuthorizationUseCase {
	return &authorizationUseCase{authzRepo: authzRepo}
}
