package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/tokenkeeper/internal/metrics"
	oauthDomain "github.com/allisson/tokenkeeper/internal/oauth/domain"
)

const metricsDomain = "oauth"

// operationRecorder records one use case call in BusinessMetrics.
type operationRecorder struct {
	metrics metrics.BusinessMetrics
}

func (o operationRecorder) observe(ctx context.Context, operation string, start time.Time, err error) {
	status := metrics.StatusOf(err)
	o.metrics.RecordOperation(ctx, metricsDomain, operation, status)
	o.metrics.RecordDuration(ctx, metricsDomain, operation, time.Since(start), status)
}

// tokenManagementUseCaseWithMetrics decorates TokenManagementUseCase with metrics.
type tokenManagementUseCaseWithMetrics struct {
	operationRecorder
	next TokenManagementUseCase
}

// NewTokenManagementUseCaseWithMetrics wraps a TokenManagementUseCase with metrics recording.
func NewTokenManagementUseCaseWithMetrics(
	useCase TokenManagementUseCase,
	m metrics.BusinessMetrics,
) TokenManagementUseCase {
	return &tokenManagementUseCaseWithMetrics{operationRecorder: operationRecorder{m}, next: useCase}
}

func (t *tokenManagementUseCaseWithMetrics) RevokeAllUserTokens(ctx context.Context, subject string) (int64, error) {
	start := time.Now()
	count, err := t.next.RevokeAllUserTokens(ctx, subject)
	t.observe(ctx, "tokens_revoke_all", start, err)
	return count, err
}

func (t *tokenManagementUseCaseWithMetrics) RevokeToken(ctx context.Context, tokenID uuid.UUID) (bool, error) {
	start := time.Now()
	revoked, err := t.next.RevokeToken(ctx, tokenID)
	t.observe(ctx, "token_revoke", start, err)
	return revoked, err
}

func (t *tokenManagementUseCaseWithMetrics) CheckLoginPolicy(
	ctx context.Context,
	subject, deviceID string,
) (*oauthDomain.LoginDecision, error) {
	start := time.Now()
	decision, err := t.next.CheckLoginPolicy(ctx, subject, deviceID)
	t.observe(ctx, "login_policy_check", start, err)
	return decision, err
}

// GetLoginPolicy is not instrumented: it is served from memory and cannot fail.
func (t *tokenManagementUseCaseWithMetrics) GetLoginPolicy(ctx context.Context) oauthDomain.LoginPolicySettings {
	return t.next.GetLoginPolicy(ctx)
}

func (t *tokenManagementUseCaseWithMetrics) RevokeDeviceTokens(
	ctx context.Context,
	subject, deviceID string,
) (int64, error) {
	return t.next.RevokeDeviceTokens(ctx, subject, deviceID)
}

func (t *tokenManagementUseCaseWithMetrics) ListActiveSessions(
	ctx context.Context,
	subject string,
) ([]oauthDomain.Session, error) {
	return t.next.ListActiveSessions(ctx, subject)
}

func (t *tokenManagementUseCaseWithMetrics) ValidateToken(
	ctx context.Context,
	tokenID uuid.UUID,
	subject string,
	issuedAt time.Time,
) error {
	start := time.Now()
	err := t.next.ValidateToken(ctx, tokenID, subject, issuedAt)
	t.observe(ctx, "token_validate", start, err)
	return err
}

// applicationUseCaseWithMetrics decorates ApplicationUseCase with metrics.
type applicationUseCaseWithMetrics struct {
	operationRecorder
	next ApplicationUseCase
}

// NewApplicationUseCaseWithMetrics wraps an ApplicationUseCase with metrics recording.
func NewApplicationUseCaseWithMetrics(useCase ApplicationUseCase, m metrics.BusinessMetrics) ApplicationUseCase {
	return &applicationUseCaseWithMetrics{operationRecorder: operationRecorder{m}, next: useCase}
}

func (a *applicationUseCaseWithMetrics) Create(
	ctx context.Context,
	input *oauthDomain.CreateApplicationInput,
) (*oauthDomain.CreateApplicationOutput, error) {
	start := time.Now()
	output, err := a.next.Create(ctx, input)
	a.observe(ctx, "application_create", start, err)
	return output, err
}

func (a *applicationUseCaseWithMetrics) Update(
	ctx context.Context,
	appID uuid.UUID,
	input *oauthDomain.UpdateApplicationInput,
) error {
	start := time.Now()
	err := a.next.Update(ctx, appID, input)
	a.observe(ctx, "application_update", start, err)
	return err
}

func (a *applicationUseCaseWithMetrics) Delete(ctx context.Context, appID uuid.UUID) error {
	start := time.Now()
	err := a.next.Delete(ctx, appID)
	a.observe(ctx, "application_delete", start, err)
	return err
}

func (a *applicationUseCaseWithMetrics) Get(ctx context.Context, appID uuid.UUID) (*oauthDomain.Application, error) {
	start := time.Now()
	app, err := a.next.Get(ctx, appID)
	a.observe(ctx, "application_get", start, err)
	return app, err
}

func (a *applicationUseCaseWithMetrics) GetByClientID(
	ctx context.Context,
	clientID string,
) (*oauthDomain.Application, error) {
	start := time.Now()
	app, err := a.next.GetByClientID(ctx, clientID)
	a.observe(ctx, "application_get_by_client_id", start, err)
	return app, err
}

func (a *applicationUseCaseWithMetrics) List(
	ctx context.Context,
	offset, limit int,
) ([]*oauthDomain.Application, error) {
	start := time.Now()
	apps, err := a.next.List(ctx, offset, limit)
	a.observe(ctx, "application_list", start, err)
	return apps, err
}

func (a *applicationUseCaseWithMetrics) RotateSecret(ctx context.Context, clientID string) (string, error) {
	start := time.Now()
	secret, err := a.next.RotateSecret(ctx, clientID)
	a.observe(ctx, "application_rotate_secret", start, err)
	return secret, err
}

func (a *applicationUseCaseWithMetrics) VerifySecret(
	ctx context.Context,
	clientID, plainSecret string,
) (*oauthDomain.Application, error) {
	start := time.Now()
	app, err := a.next.VerifySecret(ctx, clientID, plainSecret)
	a.observe(ctx, "application_verify_secret", start, err)
	return app, err
}

// tokenUseCaseWithMetrics decorates TokenUseCase with metrics.
type tokenUseCaseWithMetrics struct {
	operationRecorder
	next TokenUseCase
}

// NewTokenUseCaseWithMetrics wraps a TokenUseCase with metrics recording.
func NewTokenUseCaseWithMetrics(useCase TokenUseCase, m metrics.BusinessMetrics) TokenUseCase {
	return &tokenUseCaseWithMetrics{operationRecorder: operationRecorder{m}, next: useCase}
}

func (t *tokenUseCaseWithMetrics) Create(
	ctx context.Context,
	input *oauthDomain.CreateTokenInput,
) (*oauthDomain.CreateTokenOutput, error) {
	start := time.Now()
	output, err := t.next.Create(ctx, input)
	t.observe(ctx, "token_create", start, err)
	return output, err
}

func (t *tokenUseCaseWithMetrics) Get(ctx context.Context, tokenID uuid.UUID) (*oauthDomain.Token, error) {
	start := time.Now()
	token, err := t.next.Get(ctx, tokenID)
	t.observe(ctx, "token_get", start, err)
	return token, err
}

func (t *tokenUseCaseWithMetrics) GetByReferenceID(ctx context.Context, handle string) (*oauthDomain.Token, error) {
	start := time.Now()
	token, err := t.next.GetByReferenceID(ctx, handle)
	t.observe(ctx, "token_get_by_reference", start, err)
	return token, err
}

func (t *tokenUseCaseWithMetrics) List(
	ctx context.Context,
	filter oauthDomain.TokenFilter,
	offset, limit int,
) ([]*oauthDomain.Token, error) {
	start := time.Now()
	tokens, err := t.next.List(ctx, filter, offset, limit)
	t.observe(ctx, "token_list", start, err)
	return tokens, err
}

func (t *tokenUseCaseWithMetrics) Redeem(ctx context.Context, tokenID uuid.UUID) (*oauthDomain.Token, error) {
	start := time.Now()
	token, err := t.next.Redeem(ctx, tokenID)
	t.observe(ctx, "token_redeem", start, err)
	return token, err
}

func (t *tokenUseCaseWithMetrics) PurgeExpired(ctx context.Context, olderThanDays int, dryRun bool) (int64, error) {
	start := time.Now()
	count, err := t.next.PurgeExpired(ctx, olderThanDays, dryRun)
	t.observe(ctx, "token_purge_expired", start, err)
	return count, err
}

// authorizationUseCaseWithMetrics decorates AuthorizationUseCase with metrics.
type authorizationUseCaseWithMetrics struct {
	operationRecorder
	next AuthorizationUseCase
}

// NewAuthorizationUseCaseWithMetrics wraps an AuthorizationUseCase with metrics recording.
func NewAuthorizationUseCaseWithMetrics(useCase AuthorizationUseCase, m metrics.BusinessMetrics) AuthorizationUseCase {
	return &authorizationUseCaseWithMetrics{operationRecorder: operationRecorder{m}, next: useCase}
}

func (a *authorizationUseCaseWithMetrics) Create(
	ctx context.Context,
	input *oauthDomain.CreateAuthorizationInput,
) (*oauthDomain.Authorization, error) {
	start := time.Now()
	authz, err := a.next.Create(ctx, input)
	a.observe(ctx, "authorization_create", start, err)
	return authz, err
}

func (a *authorizationUseCaseWithMetrics) Get(
	ctx context.Context,
	authzID uuid.UUID,
) (*oauthDomain.Authorization, error) {
	start := time.Now()
	authz, err := a.next.Get(ctx, authzID)
	a.observe(ctx, "authorization_get", start, err)
	return authz, err
}

func (a *authorizationUseCaseWithMetrics) List(
	ctx context.Context,
	filter oauthDomain.AuthorizationFilter,
	offset, limit int,
) ([]*oauthDomain.Authorization, error) {
	start := time.Now()
	authzs, err := a.next.List(ctx, filter, offset, limit)
	a.observe(ctx, "authorization_list", start, err)
	return authzs, err
}

func (a *authorizationUseCaseWithMetrics) Revoke(ctx context.Context, authzID uuid.UUID) (bool, error) {
	start := time.Now()
	revoked, err := a.next.Revoke(ctx, authzID)
	a.observe(ctx, "authorization_revoke", start, err)
	return revoked, err
}

func (a *authorizationUseCaseWithMetrics) Delete(ctx context.Context, authzID uuid.UUID) error {
	start := time.Now()
	err := a.next.Delete(ctx, authzID)
	a.observe(ctx, "authorization_delete", start, err)
	return err
}
