package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	"github.com/allisson/tokenkeeper/internal/database"
	apperrors "github.com/allisson/tokenkeeper/internal/errors"
	oauthDomain "github.com/allisson/tokenkeeper/internal/oauth/domain"
	oauthService "github.com/allisson/tokenkeeper/internal/oauth/service"
	appValidation "github.com/allisson/tokenkeeper/internal/validation"
)

// tokenUseCase implements TokenUseCase.
type tokenUseCase struct {
	txManager        database.TxManager
	tokenRepo        TokenRepository
	referenceService oauthService.ReferenceService
	now              func() time.Time
}

// Create persists an issued token. Reference tokens get a fresh handle whose hash is
// stored as the reference id; the plain handle is only returned here.
func (t *tokenUseCase) Create(
	ctx context.Context,
	input *oauthDomain.CreateTokenInput,
) (*oauthDomain.CreateTokenOutput, error) {
	err := validation.ValidateStruct(input,
		validation.Field(&input.Type,
			validation.Required.Error("token type is required"),
			validation.In(
				oauthDomain.TokenTypeAccess,
				oauthDomain.TokenTypeRefresh,
				oauthDomain.TokenTypeID,
				oauthDomain.TokenTypeAuthorizationCode,
			).Error("token type must be access_token, refresh_token, id_token or authorization_code"),
		),
		validation.Field(&input.Subject, appValidation.NoWhitespace),
	)
	if err != nil {
		return nil, appValidation.WrapValidationError(err)
	}

	token := &oauthDomain.Token{
		ID:              uuid.Must(uuid.NewV7()),
		ApplicationID:   input.ApplicationID,
		AuthorizationID: input.AuthorizationID,
		Subject:         input.Subject,
		Type:            input.Type,
		Status:          oauthDomain.TokenStatusValid,
		Payload:         input.Payload,
		ExpiresAt:       input.ExpiresAt,
		Properties:      input.Properties,
		CreatedAt:       t.now().UTC(),
	}

	output := &oauthDomain.CreateTokenOutput{Token: token}
	if input.UseReference {
		handle, referenceID, err := t.referenceService.GenerateReference()
		if err != nil {
			return nil, err
		}
		token.ReferenceID = &referenceID
		output.ReferenceHandle = handle
	}

	if err := t.tokenRepo.Create(ctx, token); err != nil {
		return nil, err
	}
	return output, nil
}

func (t *tokenUseCase) Get(ctx context.Context, tokenID uuid.UUID) (*oauthDomain.Token, error) {
	return t.tokenRepo.Get(ctx, tokenID)
}

func (t *tokenUseCase) GetByReferenceID(ctx context.Context, handle string) (*oauthDomain.Token, error) {
	if handle == "" {
		return nil, oauthDomain.ErrTokenNotFound
	}
	return t.tokenRepo.GetByReferenceID(ctx, t.referenceService.HashReference(handle))
}

func (t *tokenUseCase) List(
	ctx context.Context,
	filter oauthDomain.TokenFilter,
	offset, limit int,
) ([]*oauthDomain.Token, error) {
	return t.tokenRepo.List(ctx, filter, offset, limit)
}

func (t *tokenUseCase) Redeem(ctx context.Context, tokenID uuid.UUID) (*oauthDomain.Token, error) {
	var token *oauthDomain.Token

	err := t.txManager.WithTx(ctx, func(ctx context.Context) error {
		var err error
		token, err = t.tokenRepo.Get(ctx, tokenID)
		if err != nil {
			return err
		}

		now := t.now().UTC()
		if !token.IsValid() {
			return oauthDomain.ErrTokenNotValid
		}
		if token.IsExpired(now) {
			return oauthDomain.ErrTokenExpired
		}

		redeemed, err := t.tokenRepo.Redeem(ctx, tokenID, now)
		if err != nil {
			return err
		}
		if !redeemed {
			// Lost the race against a concurrent redemption or revocation.
			return oauthDomain.ErrTokenNotValid
		}

		token.Status = oauthDomain.TokenStatusRedeemed
		token.RedemptionDate = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return token, nil
}

func (t *tokenUseCase) PurgeExpired(ctx context.Context, olderThanDays int, dryRun bool) (int64, error) {
	if olderThanDays < 0 {
		return 0, apperrors.Wrap(apperrors.ErrInvalidInput, "days must be greater than or equal to 0")
	}

	before := t.now().UTC().AddDate(0, 0, -olderThanDays)
	if dryRun {
		return t.tokenRepo.CountExpired(ctx, before)
	}
	return t.tokenRepo.DeleteExpired(ctx, before)
}

// NewTokenUseCase creates a TokenUseCase.
func NewTokenUseCase(
	txManager database.TxManager,
	tokenRepo TokenRepository,
	referenceService oauthService.ReferenceService,
) TokenUseCase {
	return &tokenUseCase{
		txManager:        txManager,
		tokenRepo:        tokenRepo,
		referenceService: referenceService,
		now:              time.Now,
	}
}
