package blacklist

import (
	"context"
	"log/slog"
	"time"

	apperrors "github.com/allisson/tokenkeeper/internal/errors"
)

// Blacklist records revoked tokens and subjects in a Store.
//
// Writes bound every entry's lifetime by the covered token's expiry, and skip entries
// that would already be expired. Reads fail open: a backend error is logged and
// reported as "not blacklisted", trading a short revocation gap for availability.
type Blacklist struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Blacklist over store.
func New(store Store, logger *slog.Logger) *Blacklist {
	return &Blacklist{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// AddToBlacklist marks tokenID as revoked until expiresAt.
// Empty ids and past expiries are no-ops.
func (b *Blacklist) AddToBlacklist(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return nil
	}
	return b.write(ctx, TokenMarker{TokenID: tokenID}, expiresAt)
}

// IsBlacklisted reports whether tokenID has a live token marker.
func (b *Blacklist) IsBlacklisted(ctx context.Context, tokenID string) bool {
	if tokenID == "" {
		return false
	}
	_, found, err := b.lookup(ctx, TokenMarker{TokenID: tokenID}.Key())
	return b.collapse(found, err, "token", tokenID)
}

// BlacklistUserTokens marks every token of subject issued up to now as revoked
// until expiresAt, which should be the latest expiry among those tokens.
func (b *Blacklist) BlacklistUserTokens(ctx context.Context, subject string, expiresAt time.Time) error {
	if subject == "" {
		return nil
	}
	return b.write(ctx, SubjectMarker{Subject: subject, RevokedAt: b.now()}, expiresAt)
}

// IsUserBlacklisted reports whether subject has a live subject marker.
func (b *Blacklist) IsUserBlacklisted(ctx context.Context, subject string) bool {
	if subject == "" {
		return false
	}
	_, found, err := b.lookup(ctx, SubjectMarker{Subject: subject}.Key())
	return b.collapse(found, err, "subject", subject)
}

// SubjectRevocation returns the subject marker, or nil when none is stored.
// Unlike the boolean checks it surfaces backend errors to the caller.
func (b *Blacklist) SubjectRevocation(ctx context.Context, subject string) (*SubjectMarker, error) {
	if subject == "" {
		return nil, nil
	}

	value, found, err := b.lookup(ctx, SubjectMarker{Subject: subject}.Key())
	if err != nil || !found {
		return nil, err
	}

	marker, err := parseSubjectMarker(subject, value)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to parse subject revocation")
	}
	return marker, nil
}

// IsRevoked is the validator fast path: a token is revoked when its id is
// blacklisted or its subject was revoked at or after issuedAt.
func (b *Blacklist) IsRevoked(ctx context.Context, tokenID, subject string, issuedAt time.Time) bool {
	if b.IsBlacklisted(ctx, tokenID) {
		return true
	}

	marker, err := b.SubjectRevocation(ctx, subject)
	if err != nil {
		return b.collapse(false, err, "subject", subject)
	}
	return marker != nil && marker.Revokes(issuedAt)
}

// CleanupExpiredEntries asks the backend to drop expired entries.
func (b *Blacklist) CleanupExpiredEntries(ctx context.Context) (int, error) {
	removed, err := b.store.Cleanup(ctx)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to cleanup blacklist")
	}
	return removed, nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks the backend connection. In-process backends always succeed.
func (b *Blacklist) Ping(ctx context.Context) error {
	if p, ok := b.store.(pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close releases the backend.
func (b *Blacklist) Close() error {
	return b.store.Close()
}

func (b *Blacklist) write(ctx context.Context, marker Marker, expiresAt time.Time) error {
	ttl := expiresAt.Sub(b.now())
	if ttl <= 0 {
		return nil
	}

	if err := b.store.Set(ctx, marker.Key(), marker.Value(), ttl); err != nil {
		return apperrors.Wrap(err, "failed to write blacklist entry")
	}
	return nil
}

func (b *Blacklist) lookup(ctx context.Context, key string) (string, bool, error) {
	value, found, err := b.store.Get(ctx, key)
	if err != nil {
		return "", false, apperrors.Wrap(err, "failed to read blacklist entry")
	}
	return value, found, nil
}

// collapse turns a lookup outcome into the boolean answer. This is the single place
// where backend errors are swallowed.
func (b *Blacklist) collapse(found bool, err error, kind, id string) bool {
	if err != nil {
		b.logger.Warn("blacklist lookup failed, treating as not revoked",
			slog.String("kind", kind),
			slog.String("id", id),
			slog.Any("error", err),
		)
		return false
	}
	return found
}
