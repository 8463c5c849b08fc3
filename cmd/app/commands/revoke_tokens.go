package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	oauthUseCase "github.com/allisson/tokenkeeper/internal/oauth/usecase"
)

// RunRevokeToken revokes a single token by id and blacklists it.
func RunRevokeToken(
	ctx context.Context,
	tokenManagementUseCase oauthUseCase.TokenManagementUseCase,
	logger *slog.Logger,
	writer io.Writer,
	tokenID string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	id, err := uuid.Parse(tokenID)
	if err != nil {
		return fmt.Errorf("invalid token id: %w", err)
	}

	revoked, err := tokenManagementUseCase.RevokeToken(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	if format == formatJSON {
		writeJSON(writer, map[string]any{
			"token_id": id.String(),
			"revoked":  revoked,
		})
	} else if revoked {
		_, _ = fmt.Fprintf(writer, "Token %s revoked\n", id)
	} else {
		_, _ = fmt.Fprintf(writer, "Token %s was not found or is no longer valid\n", id)
	}

	logger.Info("token revocation completed",
		slog.String("token_id", id.String()),
		slog.Bool("revoked", revoked),
	)
	return nil
}

// RunRevokeUserTokens revokes every valid token of subject, for instance after a
// password change.
func RunRevokeUserTokens(
	ctx context.Context,
	tokenManagementUseCase oauthUseCase.TokenManagementUseCase,
	logger *slog.Logger,
	writer io.Writer,
	subject string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	subject = strings.TrimSpace(subject)
	if subject == "" {
		return fmt.Errorf("subject is required")
	}

	count, err := tokenManagementUseCase.RevokeAllUserTokens(ctx, subject)
	if err != nil {
		return fmt.Errorf("failed to revoke user tokens: %w", err)
	}

	if format == formatJSON {
		writeJSON(writer, map[string]any{
			"subject":       subject,
			"revoked_count": count,
		})
	} else {
		_, _ = fmt.Fprintf(writer, "Revoked %d token(s) for subject %s\n", count, subject)
	}

	logger.Info("user token revocation completed",
		slog.String("subject", subject),
		slog.Int64("revoked_count", count),
	)
	return nil
}
