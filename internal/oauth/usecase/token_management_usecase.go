package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/allisson/tokenkeeper/internal/audit"
	"github.com/allisson/tokenkeeper/internal/database"
	apperrors "github.com/allisson/tokenkeeper/internal/errors"
	"github.com/allisson/tokenkeeper/internal/metrics"
	oauthDomain "github.com/allisson/tokenkeeper/internal/oauth/domain"
)

const (
	// DefaultBlacklistFallbackTTL bounds blacklist entries of tokens without an expiry.
	DefaultBlacklistFallbackTTL = 30 * 24 * time.Hour

	// ReasonNewDeviceDenied is returned when a login is rejected by the new device policy.
	ReasonNewDeviceDenied = "Login from a new device is not allowed while another session is active"

	blacklistConcurrency = 8
	tokenPageSize        = 500
)

var errSubjectRequired = apperrors.Wrap(apperrors.ErrInvalidInput, "subject is required")

// TokenManagementConfig holds the tunables of TokenManagementUseCase.
type TokenManagementConfig struct {
	// FallbackTTL is used as the blacklist lifetime of tokens that never expire.
	FallbackTTL time.Duration
}

// tokenManagementUseCase implements TokenManagementUseCase.
//
// The token store is authoritative. Blacklist writes happen after the store changed
// and their failures are logged, never returned.
type tokenManagementUseCase struct {
	txManager   database.TxManager
	tokenRepo   TokenRepository
	blacklist   Blacklist
	policy      PolicyProvider
	recorder    audit.Recorder
	metrics     metrics.RevocationMetrics
	logger      *slog.Logger
	fallbackTTL time.Duration
	now         func() time.Time
}

func (t *tokenManagementUseCase) RevokeAllUserTokens(ctx context.Context, subject string) (int64, error) {
	if strings.TrimSpace(subject) == "" {
		return 0, errSubjectRequired
	}

	var (
		tokens []*oauthDomain.Token
		count  int64
	)

	err := t.txManager.WithTx(ctx, func(ctx context.Context) error {
		var err error
		tokens, err = t.listValidTokens(ctx, subject)
		if err != nil || len(tokens) == 0 {
			return err
		}

		ids := make([]uuid.UUID, len(tokens))
		for i, token := range tokens {
			ids[i] = token.ID
		}

		count, err = t.tokenRepo.RevokeMany(ctx, ids)
		return err
	})
	if err != nil {
		return 0, err
	}
	if len(tokens) == 0 {
		return 0, nil
	}

	t.blacklistSubject(ctx, subject, tokens)

	t.metrics.RecordRevokedTokens(ctx, "subject", count)
	t.recorder.Record(audit.Event{
		Action:  audit.ActionTokensRevokedAll,
		Subject: subject,
		Count:   count,
	})

	return count, nil
}

// blacklistSubject pushes every revoked token into the blacklist, then writes the
// subject marker that covers tokens the snapshot missed.
func (t *tokenManagementUseCase) blacklistSubject(
	ctx context.Context,
	subject string,
	tokens []*oauthDomain.Token,
) {
	now := t.now()
	latest := now

	var g errgroup.Group
	g.SetLimit(blacklistConcurrency)

	for _, token := range tokens {
		expiresAt := t.blacklistExpiry(token, now)
		if expiresAt.After(latest) {
			latest = expiresAt
		}

		g.Go(func() error {
			t.addToBlacklist(ctx, token.ID, expiresAt)
			return nil
		})
	}
	_ = g.Wait()

	err := t.blacklist.BlacklistUserTokens(ctx, subject, latest)
	t.metrics.RecordBlacklistWrite(ctx, "subject", metrics.StatusOf(err))
	if err != nil {
		t.logger.WarnContext(ctx, "failed to blacklist subject",
			slog.String("subject", subject),
			slog.Any("error", err),
		)
	}
}

func (t *tokenManagementUseCase) RevokeToken(ctx context.Context, tokenID uuid.UUID) (bool, error) {
	token, err := t.tokenRepo.Get(ctx, tokenID)
	if err != nil {
		if apperrors.Is(err, oauthDomain.ErrTokenNotFound) {
			return false, nil
		}
		return false, err
	}
	if !token.IsValid() {
		return false, nil
	}

	revoked, err := t.tokenRepo.Revoke(ctx, tokenID)
	if err != nil || !revoked {
		return false, err
	}

	t.addToBlacklist(ctx, tokenID, t.blacklistExpiry(token, t.now()))

	t.metrics.RecordRevokedTokens(ctx, "token", 1)
	t.recorder.Record(audit.Event{
		Action:  audit.ActionTokenRevoked,
		Subject: token.Subject,
		TokenID: tokenID.String(),
		Count:   1,
	})

	return true, nil
}

func (t *tokenManagementUseCase) CheckLoginPolicy(
	ctx context.Context,
	subject, deviceID string,
) (*oauthDomain.LoginDecision, error) {
	if strings.TrimSpace(subject) == "" {
		return nil, errSubjectRequired
	}

	decision, err := t.evaluateLoginPolicy(ctx, subject)
	if err != nil {
		return nil, err
	}

	t.metrics.RecordLoginDecision(ctx, decision.Allowed)
	if !decision.Allowed {
		t.recorder.Record(audit.Event{
			Action:   audit.ActionLoginRejected,
			Subject:  subject,
			DeviceID: deviceID,
			Reason:   decision.Reason,
		})
	}

	return decision, nil
}

// evaluateLoginPolicy cannot tell a returning device from a new one: any active token
// of the subject counts as another session.
func (t *tokenManagementUseCase) evaluateLoginPolicy(
	ctx context.Context,
	subject string,
) (*oauthDomain.LoginDecision, error) {
	settings := t.policy.Get(ctx)
	if settings.AllowMultipleDevices {
		return &oauthDomain.LoginDecision{Allowed: true}, nil
	}

	active, err := t.hasActiveToken(ctx, subject)
	if err != nil {
		return nil, err
	}
	if active && settings.NewDevicePolicy == oauthDomain.NewDevicePolicyDeny {
		return &oauthDomain.LoginDecision{Allowed: false, Reason: ReasonNewDeviceDenied}, nil
	}

	return &oauthDomain.LoginDecision{Allowed: true}, nil
}

func (t *tokenManagementUseCase) GetLoginPolicy(ctx context.Context) oauthDomain.LoginPolicySettings {
	return t.policy.Get(ctx)
}

func (t *tokenManagementUseCase) RevokeDeviceTokens(context.Context, string, string) (int64, error) {
	return 0, oauthDomain.ErrUnsupported
}

func (t *tokenManagementUseCase) ListActiveSessions(context.Context, string) ([]oauthDomain.Session, error) {
	return nil, oauthDomain.ErrUnsupported
}

func (t *tokenManagementUseCase) ValidateToken(
	ctx context.Context,
	tokenID uuid.UUID,
	subject string,
	issuedAt time.Time,
) error {
	if t.blacklist.IsRevoked(ctx, tokenID.String(), subject, issuedAt) {
		return oauthDomain.ErrTokenRevoked
	}
	return nil
}

func (t *tokenManagementUseCase) addToBlacklist(ctx context.Context, tokenID uuid.UUID, expiresAt time.Time) {
	err := t.blacklist.AddToBlacklist(ctx, tokenID.String(), expiresAt)
	t.metrics.RecordBlacklistWrite(ctx, "token", metrics.StatusOf(err))
	if err != nil {
		t.logger.WarnContext(ctx, "failed to blacklist token",
			slog.String("token_id", tokenID.String()),
			slog.Any("error", err),
		)
	}
}

// blacklistExpiry is the token's own expiry, or now plus the fallback TTL. Already
// expired tokens map to now, which the blacklist skips.
func (t *tokenManagementUseCase) blacklistExpiry(token *oauthDomain.Token, now time.Time) time.Time {
	return now.Add(token.RemainingLifetime(now, t.fallbackTTL))
}

func (t *tokenManagementUseCase) listValidTokens(ctx context.Context, subject string) ([]*oauthDomain.Token, error) {
	filter := oauthDomain.TokenFilter{Subject: subject, Status: oauthDomain.TokenStatusValid}

	var tokens []*oauthDomain.Token
	for offset := 0; ; offset += tokenPageSize {
		page, err := t.tokenRepo.List(ctx, filter, offset, tokenPageSize)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, page...)
		if len(page) < tokenPageSize {
			return tokens, nil
		}
	}
}

func (t *tokenManagementUseCase) hasActiveToken(ctx context.Context, subject string) (bool, error) {
	filter := oauthDomain.TokenFilter{Subject: subject, Status: oauthDomain.TokenStatusValid}
	now := t.now()

	for offset := 0; ; offset += tokenPageSize {
		page, err := t.tokenRepo.List(ctx, filter, offset, tokenPageSize)
		if err != nil {
			return false, err
		}
		for _, token := range page {
			if token.IsUsable(now) {
				return true, nil
			}
		}
		if len(page) < tokenPageSize {
			return false, nil
		}
	}
}

// NewTokenManagementUseCase creates a TokenManagementUseCase.
func NewTokenManagementUseCase(
	txManager database.TxManager,
	tokenRepo TokenRepository,
	blacklist Blacklist,
	policy PolicyProvider,
	recorder audit.Recorder,
	revocationMetrics metrics.RevocationMetrics,
	logger *slog.Logger,
	cfg TokenManagementConfig,
) TokenManagementUseCase {
	fallbackTTL := cfg.FallbackTTL
	if fallbackTTL <= 0 {
		fallbackTTL = DefaultBlacklistFallbackTTL
	}

	return &tokenManagementUseCase{
		txManager:   txManager,
		tokenRepo:   tokenRepo,
		blacklist:   blacklist,
		policy:      policy,
		recorder:    recorder,
		metrics:     revocationMetrics,
		logger:      logger,
		fallbackTTL: fallbackTTL,
		now:         time.Now,
	}
}
