// Package mocks provides mock use cases for testing the OAuth HTTP handlers and CLI commands.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	oauthDomain "github.com/allisson/tokenkeeper/internal/oauth/domain"
)

// MockTokenManagementUseCase is a mock implementation of TokenManagementUseCase.
type MockTokenManagementUseCase struct {
	mock.Mock
}

func (m *MockTokenManagementUseCase) RevokeAllUserTokens(ctx context.Context, subject string) (int64, error) {
	args := m.Called(ctx, subject)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTokenManagementUseCase) RevokeToken(ctx context.Context, tokenID uuid.UUID) (bool, error) {
	args := m.Called(ctx, tokenID)
	return args.Bool(0), args.Error(1)
}

func (m *MockTokenManagementUseCase) CheckLoginPolicy(
	ctx context.Context,
	subject, deviceID string,
) (*oauthDomain.LoginDecision, error) {
	args := m.Called(ctx, subject, deviceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauthDomain.LoginDecision), args.Error(1)
}

func (m *MockTokenManagementUseCase) GetLoginPolicy(ctx context.Context) oauthDomain.LoginPolicySettings {
	args := m.Called(ctx)
	return args.Get(0).(oauthDomain.LoginPolicySettings)
}

func (m *MockTokenManagementUseCase) RevokeDeviceTokens(
	ctx context.Context,
	subject, deviceID string,
) (int64, error) {
	args := m.Called(ctx, subject, deviceID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTokenManagementUseCase) ListActiveSessions(
	ctx context.Context,
	subject string,
) ([]oauthDomain.Session, error) {
	args := m.Called(ctx, subject)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]oauthDomain.Session), args.Error(1)
}

func (m *MockTokenManagementUseCase) ValidateToken(
	ctx context.Context,
	tokenID uuid.UUID,
	subject string,
	issuedAt time.Time,
) error {
	args := m.Called(ctx, tokenID, subject, issuedAt)
	return args.Error(0)
}

// MockAuthorizationUseCase is a mock implementation of AuthorizationUseCase.
type MockAuthorizationUseCase struct {
	mock.Mock
}

func (m *MockAuthorizationUseCase) Create(
	ctx context.Context,
	input *oauthDomain.CreateAuthorizationInput,
) (*oauthDomain.Authorization, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauthDomain.Authorization), args.Error(1)
}

func (m *MockAuthorizationUseCase) Get(ctx context.Context, authzID uuid.UUID) (*oauthDomain.Authorization, error) {
	args := m.Called(ctx, authzID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauthDomain.Authorization), args.Error(1)
}

func (m *MockAuthorizationUseCase) List(
	ctx context.Context,
	filter oauthDomain.AuthorizationFilter,
	offset, limit int,
) ([]*oauthDomain.Authorization, error) {
	args := m.Called(ctx, filter, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*oauthDomain.Authorization), args.Error(1)
}

func (m *MockAuthorizationUseCase) Revoke(ctx context.Context, authzID uuid.UUID) (bool, error) {
	args := m.Called(ctx, authzID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAuthorizationUseCase) Delete(ctx context.Context, authzID uuid.UUID) error {
	args := m.Called(ctx, authzID)
	return args.Error(0)
}

// MockApplicationUseCase is a mock implementation of ApplicationUseCase.
type MockApplicationUseCase struct {
	mock.Mock
}

func (m *MockApplicationUseCase) Create(
	ctx context.Context,
	input *oauthDomain.CreateApplicationInput,
) (*oauthDomain.CreateApplicationOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauthDomain.CreateApplicationOutput), args.Error(1)
}

func (m *MockApplicationUseCase) Update(
	ctx context.Context,
	appID uuid.UUID,
	input *oauthDomain.UpdateApplicationInput,
) error {
	args := m.Called(ctx, appID, input)
	return args.Error(0)
}

func (m *MockApplicationUseCase) Delete(ctx context.Context, appID uuid.UUID) error {
	args := m.Called(ctx, appID)
	return args.Error(0)
}

func (m *MockApplicationUseCase) Get(ctx context.Context, appID uuid.UUID) (*oauthDomain.Application, error) {
	args := m.Called(ctx, appID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauthDomain.Application), args.Error(1)
}

func (m *MockApplicationUseCase) GetByClientID(
	ctx context.Context,
	clientID string,
) (*oauthDomain.Application, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauthDomain.Application), args.Error(1)
}

func (m *MockApplicationUseCase) List(
	ctx context.Context,
	offset, limit int,
) ([]*oauthDomain.Application, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*oauthDomain.Application), args.Error(1)
}

func (m *MockApplicationUseCase) RotateSecret(ctx context.Context, clientID string) (string, error) {
	args := m.Called(ctx, clientID)
	return args.String(0), args.Error(1)
}

func (m *MockApplicationUseCase) VerifySecret(
	ctx context.Context,
	clientID, plainSecret string,
) (*oauthDomain.Application, error) {
	args := m.Called(ctx, clientID, plainSecret)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauthDomain.Application), args.Error(1)
}

// MockTokenUseCase is a mock implementation of TokenUseCase.
type MockTokenUseCase struct {
	mock.Mock
}

func (m *MockTokenUseCase) Create(
	ctx context.Context,
	input *oauthDomain.CreateTokenInput,
) (*oauthDomain.CreateTokenOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauthDomain.CreateTokenOutput), args.Error(1)
}

func (m *MockTokenUseCase) Get(ctx context.Context, tokenID uuid.UUID) (*oauthDomain.Token, error) {
	args := m.Called(ctx, tokenID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauthDomain.Token), args.Error(1)
}

func (m *MockTokenUseCase) GetByReferenceID(ctx context.Context, handle string) (*oauthDomain.Token, error) {
	args := m.Called(ctx, handle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauthDomain.Token), args.Error(1)
}

func (m *MockTokenUseCase) List(
	ctx context.Context,
	filter oauthDomain.TokenFilter,
	offset, limit int,
) ([]*oauthDomain.Token, error) {
	args := m.Called(ctx, filter, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*oauthDomain.Token), args.Error(1)
}

func (m *MockTokenUseCase) Redeem(ctx context.Context, tokenID uuid.UUID) (*oauthDomain.Token, error) {
	args := m.Called(ctx, tokenID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauthDomain.Token), args.Error(1)
}

func (m *MockTokenUseCase) PurgeExpired(ctx context.Context, olderThanDays int, dryRun bool) (int64, error) {
	args := m.Called(ctx, olderThanDays, dryRun)
	return args.Get(0).(int64), args.Error(1)
}
