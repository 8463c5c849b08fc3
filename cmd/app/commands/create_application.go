package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	oauthDomain "github.com/allisson/tokenkeeper/internal/oauth/domain"
	oauthUseCase "github.com/allisson/tokenkeeper/internal/oauth/usecase"
)

// CreateApplicationParams carries the create-application flags.
type CreateApplicationParams struct {
	ClientID               string
	DisplayName            string
	Type                   string
	ConsentType            string
	Permissions            []string
	RedirectURIs           []string
	PostLogoutRedirectURIs []string
	Requirements           []string
	// ManageTokens grants the permission required by the /v1 management API.
	ManageTokens bool
}

// RunCreateApplication registers an OAuth client. For confidential clients the
// generated secret is printed once.
//
// Requirements: Database must be migrated and accessible.
func RunCreateApplication(
	ctx context.Context,
	applicationUseCase oauthUseCase.ApplicationUseCase,
	logger *slog.Logger,
	writer io.Writer,
	params CreateApplicationParams,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	logger.Info("creating application",
		slog.String("client_id", params.ClientID),
		slog.String("type", params.Type),
	)

	permissions := cleanList(params.Permissions)
	if params.ManageTokens && !slices.Contains(permissions, oauthDomain.PermissionManageTokens) {
		permissions = append(permissions, oauthDomain.PermissionManageTokens)
	}

	input := &oauthDomain.CreateApplicationInput{
		ClientID:               params.ClientID,
		DisplayName:            params.DisplayName,
		Type:                   oauthDomain.ApplicationType(params.Type),
		ConsentType:            oauthDomain.ConsentType(params.ConsentType),
		Permissions:            permissions,
		RedirectURIs:           cleanList(params.RedirectURIs),
		PostLogoutRedirectURIs: cleanList(params.PostLogoutRedirectURIs),
		Requirements:           cleanList(params.Requirements),
	}

	output, err := applicationUseCase.Create(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	if format == formatJSON {
		result := map[string]string{
			"id":        output.ID.String(),
			"client_id": output.ClientID,
		}
		if output.PlainSecret != "" {
			result["client_secret"] = output.PlainSecret
		}
		writeJSON(writer, result)
	} else {
		_, _ = fmt.Fprintln(writer, "\nApplication created successfully!")
		_, _ = fmt.Fprintf(writer, "ID: %s\n", output.ID.String())
		_, _ = fmt.Fprintf(writer, "Client ID: %s\n", output.ClientID)
		if output.PlainSecret != "" {
			_, _ = fmt.Fprintf(writer, "Client Secret: %s\n", output.PlainSecret)
			_, _ = fmt.Fprintln(writer, "\nIMPORTANT: The secret is shown only once. Store it securely.")
		}
	}

	logger.Info("application created successfully",
		slog.String("id", output.ID.String()),
		slog.String("client_id", output.ClientID),
	)

	return nil
}
