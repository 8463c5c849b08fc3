// Package postgresql implements the OAuth application, authorization and token stores
// for PostgreSQL. UUIDs use the native type, list and map fields are stored as JSONB.
package postgresql

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

// PostgreSQLApplicationRepository implements application persistence for PostgreSQL.
type PostgreSQLApplicationRepository struct {
	db *sql.DB
}

// Create inserts a new application. A duplicate client id returns ErrClientIDConflict.
func (p *PostgreSQLApplicationRepository) Create(
	ctx context.Context,
	app *oauthDomain.Application,
) error {
	querier := database.GetTx(ctx, p.db)

	args, err := applicationArgs(app)
	if err != nil {
		return err
	}

	query := `INSERT INTO applications (` + applicationColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = querier.ExecContext(ctx, query, append([]any{app.ID}, args...)...)
	if err != nil {
		if isUniqueViolation(err) {
			return oauthDomain.ErrClientIDConflict
		}
		return apperrors.Wrap(err, "failed to create application")
	}
	return nil
}

// Update overwrites every mutable column of an existing application.
func (p *PostgreSQLApplicationRepository) Update(
	ctx context.Context,
	app *oauthDomain.Application,
) error {
	querier := database.GetTx(ctx, p.db)

	args, err := applicationArgs(app)
	if err != nil {
		return err
	}

	query := `UPDATE applications
			  SET client_id = $1,
				  client_secret = $2,
				  display_name = $3,
				  type = $4,
				  consent_type = $5,
				  permissions = $6,
				  redirect_uris = $7,
				  post_logout_redirect_uris = $8,
				  requirements = $9,
				  properties = $10,
				  created_at = $11,
				  updated_at = $12
			  WHERE id = $13`

	result, err := querier.ExecContext(ctx, query, append(args, app.ID)...)
	if err != nil {
		if isUniqueViolation(err) {
			return oauthDomain.ErrClientIDConflict
		}
		return apperrors.Wrap(err, "failed to update application")
	}

	return requireRow(result, oauthDomain.ErrApplicationNotFound, "application")
}

// Delete removes an application. Its authorizations and tokens cascade.
func (p *PostgreSQLApplicationRepository) Delete(ctx context.Context, appID uuid.UUID) error {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM applications WHERE id = $1`, appID)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete application")
	}

	return requireRow(result, oauthDomain.ErrApplicationNotFound, "application")
}

// Get retrieves an application by its internal ID.
func (p *PostgreSQLApplicationRepository) Get(
	ctx context.Context,
	appID uuid.UUID,
) (*oauthDomain.Application, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`

	app, err := scanApplication(querier.QueryRowContext(ctx, query, appID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, oauthDomain.ErrApplicationNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get application")
	}
	return app, nil
}

// GetByClientID retrieves an application by its external client identifier.
func (p *PostgreSQLApplicationRepository) GetByClientID(
	ctx context.Context,
	clientID string,
) (*oauthDomain.Application, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + applicationColumns + ` FROM applications WHERE client_id = $1`

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
func (p *PostgreSQLApplicationRepository) List(
	ctx context.Context,
	offset, limit int,
) ([]*oauthDomain.Application, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + applicationColumns + `
			  FROM applications
			  ORDER BY client_id ASC
			  LIMIT $1 OFFSET $2`

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
func (p *PostgreSQLApplicationRepository) Count(ctx context.Context) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	var count int64
	if err := querier.QueryRowContext(ctx, `SELECT COUNT(*) FROM applications`).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count applications")
	}
	return count, nil
}

// applicationArgs returns every column value except id, in column order.
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (*oauthDomain.Application, error) {
	var app oauthDomain.Application
	var appType, consentType string
	var permissions, redirectURIs, postLogoutURIs, requirements, properties []byte

	if err := row.Scan(
		&app.ID,
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

// requireRow maps a zero-row write to notFound.
func requireRow(result sql.Result, notFound error, entity string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get affected rows for "+entity)
	}
	if rows == 0 {
		return notFound
	}
	return nil
}

// NewPostgreSQLApplicationRepository creates a new PostgreSQL application repository.
func NewPostgreSQLApplicationRepository(db *sql.DB) *PostgreSQLApplicationRepository {
	return &PostgreSQLApplicationRepository{db: db}
}
