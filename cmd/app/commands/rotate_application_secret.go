package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	oauthUseCase "github.com/allisson/tokenkeeper/internal/oauth/usecase"
)

// RunRotateApplicationSecret replaces a confidential client's secret and prints
// the new value once. The previous secret stops working immediately.
func RunRotateApplicationSecret(
	ctx context.Context,
	applicationUseCase oauthUseCase.ApplicationUseCase,
	logger *slog.Logger,
	writer io.Writer,
	clientID string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	logger.Info("rotating application secret", slog.String("client_id", clientID))

	plainSecret, err := applicationUseCase.RotateSecret(ctx, clientID)
	if err != nil {
		return fmt.Errorf("failed to rotate application secret: %w", err)
	}

	if format == formatJSON {
		writeJSON(writer, map[string]string{
			"client_id":     clientID,
			"client_secret": plainSecret,
		})
	} else {
		_, _ = fmt.Fprintln(writer, "\nSecret rotated successfully!")
		_, _ = fmt.Fprintf(writer, "Client ID: %s\n", clientID)
		_, _ = fmt.Fprintf(writer, "Client Secret: %s\n", plainSecret)
		_, _ = fmt.Fprintln(writer, "\nIMPORTANT: The secret is shown only once. Store it securely.")
	}

	logger.Info("application secret rotated", slog.String("client_id", clientID))
	return nil
}
