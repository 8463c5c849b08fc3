package usecase

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/allisson/tokenkeeper/internal/audit"
	oauthDomain "github.com/allisson/tokenkeeper/internal/oauth/domain"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockTxManager runs the callback inline, or fails before calling it when Err is set.
type mockTxManager struct {
	Err   error
	calls int
}

func (m *mockTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	if m.Err != nil {
		return m.Err
	}
	return fn(ctx)
}

// mockApplicationRepository is a mock implementation of ApplicationRepository.
type mockApplicationRepository struct {
	mock.Mock
}

func (m *mockApplicationRepository) Create(ctx context.Context, app *oauthDomain.Application) error {
	args := m.Called(ctx, app)
	return args.Error(0)
}

func (m *mockApplicationRepository) Update(ctx context.Context, app *oauthDomain.Application) error {
	args := m.Called(ctx, app)
	return args.Error(0)
}

func (m *mockApplicationRepository) Delete(ctx context.Context, appID uuid.UUID) error {
	args := m.Called(ctx, appID)
	return args.Error(0)
}

func (m *mockApplicationRepository) Get(ctx context.Context, appID uuid.UUID) (*oauthDomain.Application, error) {
	args := m.Called(ctx, appID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauthDomain.Application), args.Error(1)
}

func (m *mockApplicationRepository) GetByClientID(
	ctx context.Context,
	clientID string,
) (*oauthDomain.Application, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauthDomain.Application), args.Error(1)
}

func (m *mockApplicationRepository) List(
	ctx context.Context,
	offset, limit int,
) ([]*oauthDomain.Application, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*oauthDomain.Application), args.Error(1)
}

func (m *mockApplicationRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// mockAuthorizationRepository is a mock implementation of AuthorizationRepository.
type mockAuthorizationRepository struct {
	mock.Mock
}

func (m *mockAuthorizationRepository) Create(ctx context.Context, authz *oauthDomain.Authorization) error {
	args := m.Called(ctx, authz)
	return args.Error(0)
}

func (m *mockAuthorizationRepository) Update(ctx context.Context, authz *oauthDomain.Authorization) error {
	args := m.Called(ctx, authz)
	return args.Error(0)
}

func (m *mockAuthorizationRepository) Delete(ctx context.Context, authzID uuid.UUID) error {
	args := m.Called(ctx, authzID)
	return args.Error(0)
}

func (m *mockAuthorizationRepository) Get(
	ctx context.Context,
	authzID uuid.UUID,
) (*oauthDomain.Authorization, error) {
	args := m.Called(ctx, authzID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauthDomain.Authorization), args.Error(1)
}

func (m *mockAuthorizationRepository) List(
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

func (m *mockAuthorizationRepository) Count(
	ctx context.Context,
	filter oauthDomain.AuthorizationFilter,
) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockAuthorizationRepository) Revoke(ctx context.Context, authzID uuid.UUID) (bool, error) {
	args := m.Called(ctx, authzID)
	return args.Bool(0), args.Error(1)
}

// mockTokenRepository is a mock implementation of TokenRepository.
type mockTokenRepository struct {
	mock.Mock
}

func (m *mockTokenRepository) Create(ctx context.Context, token *oauthDomain.Token) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *mockTokenRepository) Update(ctx context.Context, token *oauthDomain.Token) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *mockTokenRepository) Delete(ctx context.Context, tokenID uuid.UUID) error {
	args := m.Called(ctx, tokenID)
	return args.Error(0)
}

func (m *mockTokenRepository) Get(ctx context.Context, tokenID uuid.UUID) (*oauthDomain.Token, error) {
	args := m.Called(ctx, tokenID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauthDomain.Token), args.Error(1)
}

func (m *mockTokenRepository) GetByReferenceID(ctx context.Context, referenceID string) (*oauthDomain.Token, error) {
	args := m.Called(ctx, referenceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauthDomain.Token), args.Error(1)
}

func (m *mockTokenRepository) List(
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

func (m *mockTokenRepository) Count(ctx context.Context, filter oauthDomain.TokenFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockTokenRepository) Revoke(ctx context.Context, tokenID uuid.UUID) (bool, error) {
	args := m.Called(ctx, tokenID)
	return args.Bool(0), args.Error(1)
}

func (m *mockTokenRepository) Redeem(ctx context.Context, tokenID uuid.UUID, redeemedAt time.Time) (bool, error) {
	args := m.Called(ctx, tokenID, redeemedAt)
	return args.Bool(0), args.Error(1)
}

func (m *mockTokenRepository) RevokeMany(ctx context.Context, tokenIDs []uuid.UUID) (int64, error) {
	args := m.Called(ctx, tokenIDs)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockTokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockTokenRepository) CountExpired(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

// mockBlacklist is a mock implementation of Blacklist.
type mockBlacklist struct {
	mock.Mock
}

func (m *mockBlacklist) AddToBlacklist(ctx context.Context, tokenID string, expiresAt time.Time) error {
	args := m.Called(ctx, tokenID, expiresAt)
	return args.Error(0)
}

func (m *mockBlacklist) IsBlacklisted(ctx context.Context, tokenID string) bool {
	args := m.Called(ctx, tokenID)
	return args.Bool(0)
}

func (m *mockBlacklist) BlacklistUserTokens(ctx context.Context, subject string, expiresAt time.Time) error {
	args := m.Called(ctx, subject, expiresAt)
	return args.Error(0)
}

func (m *mockBlacklist) IsRevoked(ctx context.Context, tokenID, subject string, issuedAt time.Time) bool {
	args := m.Called(ctx, tokenID, subject, issuedAt)
	return args.Bool(0)
}

// staticPolicy is a PolicyProvider returning fixed settings.
type staticPolicy struct {
	settings oauthDomain.LoginPolicySettings
}

func (s staticPolicy) Get(context.Context) oauthDomain.LoginPolicySettings {
	return s.settings
}

// mockSecretService is a mock implementation of SecretService.
type mockSecretService struct {
	mock.Mock
}

func (m *mockSecretService) GenerateSecret() (string, string, error) {
	args := m.Called()
	return args.String(0), args.String(1), args.Error(2)
}

func (m *mockSecretService) HashSecret(plainSecret string) (string, error) {
	args := m.Called(plainSecret)
	return args.String(0), args.Error(1)
}

func (m *mockSecretService) CompareSecret(plainSecret string, hashedSecret string) bool {
	args := m.Called(plainSecret, hashedSecret)
	return args.Bool(0)
}

// mockReferenceService is a mock implementation of ReferenceService.
type mockReferenceService struct {
	mock.Mock
}

func (m *mockReferenceService) GenerateReference() (string, string, error) {
	args := m.Called()
	return args.String(0), args.String(1), args.Error(2)
}

func (m *mockReferenceService) HashReference(plainHandle string) string {
	args := m.Called(plainHandle)
	return args.String(0)
}

// recordingAuditor keeps every event it receives.
type recordingAuditor struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recordingAuditor) Record(event audit.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingAuditor) Events() []audit.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]audit.Event(nil), r.events...)
}

// mockBusinessMetrics is a mock implementation of BusinessMetrics.
type mockBusinessMetrics struct {
	mock.Mock
}

func (m *mockBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	m.Called(ctx, domain, operation, status)
}

func (m *mockBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	m.Called(ctx, domain, operation, duration, status)
}
