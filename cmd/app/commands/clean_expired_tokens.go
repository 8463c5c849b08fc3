package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	oauthUseCase "github.com/allisson/tokenkeeper/internal/oauth/usecase"
)

// RunCleanExpiredTokens deletes tokens that expired more than days ago, whatever
// their status. With dryRun set it only reports how many would go.
//
// Requirements: Database must be migrated and accessible.
func RunCleanExpiredTokens(
	ctx context.Context,
	tokenUseCase oauthUseCase.TokenUseCase,
	logger *slog.Logger,
	writer io.Writer,
	days int,
	dryRun bool,
	format string,
) error {
	if days < 0 {
		return fmt.Errorf("days must be a positive number, got: %d", days)
	}
	if err := validateFormat(format); err != nil {
		return err
	}

	logger.Info("cleaning expired tokens",
		slog.Int("days", days),
		slog.Bool("dry_run", dryRun),
	)

	count, err := tokenUseCase.PurgeExpired(ctx, days, dryRun)
	if err != nil {
		return fmt.Errorf("failed to cleanup expired tokens: %w", err)
	}

	if format == formatJSON {
		writeJSON(writer, map[string]any{
			"count":   count,
			"days":    days,
			"dry_run": dryRun,
		})
	} else if dryRun {
		_, _ = fmt.Fprintf(writer, "Dry-run mode: Would delete %d expired token(s) older than %d day(s)\n", count, days)
	} else {
		_, _ = fmt.Fprintf(writer, "Successfully deleted %d expired token(s) older than %d day(s)\n", count, days)
	}

	logger.Info("cleanup completed",
		slog.Int64("count", count),
		slog.Int("days", days),
		slog.Bool("dry_run", dryRun),
	)

	return nil
}
