package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// BlacklistCleaner drops expired revocation entries.
type BlacklistCleaner interface {
	CleanupExpiredEntries(ctx context.Context) (int, error)
}

// RunCleanupBlacklist removes expired blacklist entries. Redis expires keys on its own,
// so the count is only meaningful for the in-process backend.
func RunCleanupBlacklist(
	ctx context.Context,
	cleaner BlacklistCleaner,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	removed, err := cleaner.CleanupExpiredEntries(ctx)
	if err != nil {
		return fmt.Errorf("failed to cleanup blacklist: %w", err)
	}

	if format == formatJSON {
		writeJSON(writer, map[string]int{"removed": removed})
	} else {
		_, _ = fmt.Fprintf(writer, "Removed %d expired blacklist entr(ies)\n", removed)
	}

	logger.Info("blacklist cleanup completed", slog.Int("removed", removed))
	return nil
}
