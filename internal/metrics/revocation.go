package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RevocationMetrics tracks revocation outcomes that operation counters cannot show:
// how many tokens each call revoked, blacklist write failures, and login decisions.
type RevocationMetrics interface {
	// RecordRevokedTokens adds count to the revoked token total. Scope is "token" or "subject".
	RecordRevokedTokens(ctx context.Context, scope string, count int64)

	// RecordBlacklistWrite counts one blacklist write. Kind is "token" or "subject".
	RecordBlacklistWrite(ctx context.Context, kind, status string)

	// RecordLoginDecision counts one login policy evaluation.
	RecordLoginDecision(ctx context.Context, allowed bool)
}

type revocationMetrics struct {
	revokedTokens   metric.Int64Counter
	blacklistWrites metric.Int64Counter
	loginDecisions  metric.Int64Counter
}

// NewRevocationMetrics creates RevocationMetrics with instruments prefixed by namespace.
func NewRevocationMetrics(meterProvider metric.MeterProvider, namespace string) (RevocationMetrics, error) {
	meter := meterProvider.Meter(namespace)

	revokedTokens, err := meter.Int64Counter(
		fmt.Sprintf("%s_revoked_tokens_total", namespace),
		metric.WithDescription("Total number of tokens moved to the revoked state"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create revoked tokens counter: %w", err)
	}

	blacklistWrites, err := meter.Int64Counter(
		fmt.Sprintf("%s_blacklist_writes_total", namespace),
		metric.WithDescription("Total number of revocation cache writes"),
		metric.WithUnit("{write}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create blacklist writes counter: %w", err)
	}

	loginDecisions, err := meter.Int64Counter(
		fmt.Sprintf("%s_login_decisions_total", namespace),
		metric.WithDescription("Total number of login policy decisions"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create login decisions counter: %w", err)
	}

	return &revocationMetrics{
		revokedTokens:   revokedTokens,
		blacklistWrites: blacklistWrites,
		loginDecisions:  loginDecisions,
	}, nil
}

func (r *revocationMetrics) RecordRevokedTokens(ctx context.Context, scope string, count int64) {
	if count <= 0 {
		return
	}
	r.revokedTokens.Add(ctx, count, metric.WithAttributes(attribute.String("scope", scope)))
}

func (r *revocationMetrics) RecordBlacklistWrite(ctx context.Context, kind, status string) {
	r.blacklistWrites.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("status", status),
	))
}

func (r *revocationMetrics) RecordLoginDecision(ctx context.Context, allowed bool) {
	decision := "allowed"
	if !allowed {
		decision = "rejected"
	}
	r.loginDecisions.Add(ctx, 1, metric.WithAttributes(attribute.String("decision", decision)))
}

// NoOpRevocationMetrics discards everything.
type NoOpRevocationMetrics struct{}

// NewNoOpRevocationMetrics creates a no-op RevocationMetrics implementation.
func NewNoOpRevocationMetrics() RevocationMetrics {
	return &NoOpRevocationMetrics{}
}

func (n *NoOpRevocationMetrics) RecordRevokedTokens(context.Context, string, int64) {}

func (n *NoOpRevocationMetrics) RecordBlacklistWrite(context.Context, string, string) {}

func (n *NoOpRevocationMetrics) RecordLoginDecision(context.Context, bool) {}
