// Package mysql implements the OAuth application, authorization and token stores for
// MySQL. UUIDs are stored as BINARY(16), list and map fields as JSON.
package mysql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/allisson/tokenkeeper/internal/database"
	apperrors "github.com/allisson/tokenkeeper/internal/errors"
	oauthDomain "github.com/allisson/tokenkeeper/internal/oauth/domain"
	"github.com/allisson/tokenkeeper/internal/oauth/repository"
)

const applicationColumns = `id, client_id, client_secret, display_name, type, consent_type, permissions,
			  redirect_uris, post_logout_redirect_uris, requirements, properties, created_at, updated_at`

// MySQLApplicationRepository implements application persistence for MySQL.
type MySQLApplicationRepository struct {
	db *sql.DB
}

// Create inserts a new application. A duplicate client id returns ErrClientIDConflict.
func (m *MySQLApplicationRepository) Create(ctx context.Context, app *oauthDomain.Application) error {
	querier := database.GetTx(ctx, m.db)

	id, err := marshalUUID(app.ID, "application id")
	if err != nil {
		return err
	}

	args, err := applicationArgs(app)
	if err != nil {
		return err
	}

	query := `INSERT INTO applications (` + applicationColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(ctx, query, append([]any{id}, args...)...)
	if err != nil {
		if isDuplicateEntry(err) {
			return oauthDomain.ErrClientIDConflict
		}
		return apperrors.Wrap(err, "failed to create application")
	}
	return nil
}

// Update overwrites every mutable column of an application. MySQL reports changed
// rather than matched rows, so an unchanged row is not treated as missing.
func (m *MySQLApplicationRepository) Update(ctx context.Context, app *oauthDomain.Application) error {
	querier := database.GetTx(ctx, m.db)

	id, err := marshalUUID(app.ID, "application id")
	if err != nil {
		return err
	}

	args, err := applicationArgs(app)
	if err != nil {
		return err
	}

	query := `UPDATE applications
			  SET client_id = ?,
				  client_secret = ?,
				  display_name = ?,
				  type = ?,
				  consent_type = ?,
				  permissions = ?,
				  redirect_uris = ?,
				  post_logout_redirect_uris = ?,
				  requirements = ?,
				  properties = ?,
				  created_at = ?,
				  updated_at = ?
			  WHERE id = ?`

	if _, err := querier.ExecContext(ctx, query, append(args, id)...); err != nil {
		if isDuplicateEntry(err) {
			return oauthDomain.ErrClientIDConflict
		}
		return apperrors.Wrap(err, "failed to update application")
	}
	return nil
}

// Delete removes an application. Its authorizations and tokens cascade.
func (m *MySQLApplicationRepository) Delete(ctx context.Context, appID uuid.UUID) error {
	querier := database.GetTx(ctx, m.db)

	id, err := marshalUUID(appID, "application id")
	if err != nil {
		return err
	}

	result, err := querier.ExecContext(ctx, `DELETE FROM applications WHERE id = ?`, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete application")
	}

	return requireRow(result, oauthDomain.ErrApplicationNotFound, "application")
}

// Get retrieves an application by its internal ID.
func (m *MySQLApplicationRepository) Get(ctx context.Context, appID uuid.UUID) (*oauthDomain.Application, error) {
	querier := database.GetTx(ctx, m.db)

	id, err := marshalUUID(appID, "application id")
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = ?`

	app, err := scanApplication(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, oauthDomain.ErrApplicationNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get application")
	}
	return app, nil
}

// GetByClientID retrieves an application by its external client identifier.
func (m *MySQLApplicationRepository) GetByClientID(
	ctx context.Context,
	clientID string,
) (*oauthDomain.Application, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + applicationColumns + ` FROM applications WHERE client_id = ?`

	app, err := scanApplication(querier.QueryRowContext(ctx, query, clientID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, oauthDomain.ErrApplicationNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get application by client id")
	}
	return app, nil
}

// List retrieves applications ordered by client id with pagination.
func (m *MySQLApplicationRepository) List(
	ctx context.Context,
	offset, limit int,
) ([]*oauthDomain.Application, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + applicationColumns + `
			  FROM applications
			  ORDER BY client_id ASC
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list applications")
	}
	defer func() {
		_ = rows.Close()
	}()

	apps := make([]*oauthDomain.Application, 0)
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan application")
		}
		apps = append(apps, app)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "error iterating applications")
	}

	return apps, nil
}

// Count returns the number of registered applications.
func (m *MySQLApplicationRepository) Count(ctx context.Context) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	var count int64
	if err := querier.QueryRowContext(ctx, `SELECT COUNT(*) FROM applications`).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count applications")
	}
	return count, nil
}

func applicationArgs(app *oauthDomain.Application) ([]any, error) {
	permissions, err := repository.EncodeStrings(app.Permissions)
	if err != nil {
		return nil, err
	}
	redirectURIs, err := repository.EncodeStrings(app.RedirectURIs)
	if err != nil {
		return nil, err
	}
	postLogoutURIs, err := repository.EncodeStrings(app.PostLogoutRedirectURIs)
	if err != nil {
		return nil, err
	}
	requirements, err := repository.EncodeStrings(app.Requirements)
	if err != nil {
		return nil, err
	}
	properties, err := repository.EncodeProperties(app.Properties)
	if err != nil {
		return nil, err
	}

	return []any{
		app.ClientID,
		app.ClientSecret,
		app.DisplayName,
		string(app.Type),
		string(app.ConsentType),
		permissions,
		redirectURIs,
		postLogoutURIs,
		requirements,
		properties,
		app.CreatedAt,
		app.UpdatedAt,
	}, nil
}

func scanApplication(row rowScanner) (*oauthDomain.Application, error) {
	var app oauthDomain.Application
	var idBytes []byte
	var appType, consentType string
	var permissions, redirectURIs, postLogoutURIs, requirements, properties []byte

	if err := row.Scan(
		&idBytes,
		&app.ClientID,
		&app.ClientSecret,
		&app.DisplayName,
		&appType,
		&consentType,
		&permissions,
		&redirectURIs,
		&postLogoutURIs,
		&requirements,
		&properties,
		&app.CreatedAt,
		&app.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if err := app.ID.UnmarshalBinary(idBytes); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal application id")
	}

	app.Type = oauthDomain.ApplicationType(appType)
	app.ConsentType = oauthDomain.ConsentType(consentType)

	var err error
	if app.Permissions, err = repository.DecodeStrings(permissions); err != nil {
		return nil, err
	}
	if app.RedirectURIs, err = repository.DecodeStrings(redirectURIs); err != nil {
		return nil, err
	}
	if app.PostLogoutRedirectURIs, err = repository.DecodeStrings(postLogoutURIs); err != nil {
		return nil, err
	}
	if app.Requirements, err = repository.DecodeStrings(requirements); err != nil {
		return nil, err
	}
	if app.Properties, err = repository.DecodeProperties(properties); err != nil {
		return nil, err
	}

	return &app, nil
}

// NewMySQLApplicationRepository creates a new MySQL application repository.
func NewMySQLApplicationRepository(db *sql.DB) *MySQLApplicationRepository {
	return &MySQLApplicationRepository{db: db}
}
