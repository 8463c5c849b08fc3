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

const authorizationColumns = `id, application_id, subject, type, status, scopes, properties, created_at`

// PostgreSQLAuthorizationRepository implements authorization persistence for PostgreSQL.
type PostgreSQLAuthorizationRepository struct {
	db *sql.DB
}

// Create inserts a new authorization.
func (p *PostgreSQLAuthorizationRepository) Create(
	ctx context.Context,
	authz *oauthDomain.Authorization,
) error {
	querier := database.GetTx(ctx, p.db)

	args, err := authorizationArgs(authz)
	if err != nil {
		return err
	}

	query := `INSERT INTO authorizations (` + authorizationColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	if _, err := querier.ExecContext(ctx, query, append([]any{authz.ID}, args...)...); err != nil {
		return apperrors.Wrap(err, "failed to create authorization")
	}
	return nil
}

// Update overwrites the mutable columns of an existing authorization. Status changes
// only through Revoke.
func (p *PostgreSQLAuthorizationRepository) Update(
	ctx context.Context,
	authz *oauthDomain.Authorization,
) error {
	querier := database.GetTx(ctx, p.db)

	args, err := authorizationUpdateArgs(authz)
	if err != nil {
		return err
	}

	query := `UPDATE authorizations
			  SET application_id = $1,
				  subject = $2,
				  type = $3,
				  scopes = $4,
				  properties = $5
			  WHERE id = $6`

	result, err := querier.ExecContext(ctx, query, append(args, authz.ID)...)
	if err != nil {
		return apperrors.Wrap(err, "failed to update authorization")
	}

	return requireRow(result, oauthDomain.ErrAuthorizationNotFound, "authorization")
}

// Delete removes an authorization. Its tokens cascade.
func (p *PostgreSQLAuthorizationRepository) Delete(ctx context.Context, authzID uuid.UUID) error {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM authorizations WHERE id = $1`, authzID)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete authorization")
	}

	return requireRow(result, oauthDomain.ErrAuthorizationNotFound, "authorization")
}

// Get retrieves an authorization by ID.
func (p *PostgreSQLAuthorizationRepository) Get(
	ctx context.Context,
	authzID uuid.UUID,
) (*oauthDomain.Authorization, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + authorizationColumns + ` FROM authorizations WHERE id = $1`

	authz, err := scanAuthorization(querier.QueryRowContext(ctx, query, authzID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, oauthDomain.ErrAuthorizationNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get authorization")
	}
	return authz, nil
}

// List retrieves authorizations matching filter, newest first.
func (p *PostgreSQLAuthorizationRepository) List(
	ctx context.Context,
	filter oauthDomain.AuthorizationFilter,
	offset, limit int,
) ([]*oauthDomain.Authorization, error) {
	querier := database.GetTx(ctx, p.db)

	where := authorizationWhere(filter)
	query := `SELECT ` + authorizationColumns + ` FROM authorizations` + where.clause() +
		` ORDER BY created_at DESC LIMIT ` + where.next(limit) + ` OFFSET ` + where.next(offset)

	rows, err := querier.QueryContext(ctx, query, where.args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list authorizations")
	}
	defer func() {
		_ = rows.Close()
	}()

	authzs := make([]*oauthDomain.Authorization, 0)
	for rows.Next() {
		authz, err := scanAuthorization(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan authorization")
		}
		authzs = append(authzs, authz)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "error iterating authorizations")
	}

	return authzs, nil
}

// Count returns the number of authorizations matching filter.
func (p *PostgreSQLAuthorizationRepository) Count(
	ctx context.Context,
	filter oauthDomain.AuthorizationFilter,
) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	where := authorizationWhere(filter)
	query := `SELECT COUNT(*) FROM authorizations` + where.clause()

	var count int64
	if err := querier.QueryRowContext(ctx, query, where.args...).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count authorizations")
	}
	return count, nil
}

// Revoke moves a valid authorization to revoked. It returns false when the
// authorization does not exist or was already revoked.
func (p *PostgreSQLAuthorizationRepository) Revoke(ctx context.Context, authzID uuid.UUID) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE authorizations SET status = $1 WHERE id = $2 AND status = $3`

	result, err := querier.ExecContext(
		ctx,
		query,
		string(oauthDomain.AuthorizationStatusRevoked),
		authzID,
		string(oauthDomain.AuthorizationStatusValid),
	)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to revoke authorization")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to get affected rows")
	}
	return rows > 0, nil
}

func authorizationWhere(filter oauthDomain.AuthorizationFilter) *whereBuilder {
	where := &whereBuilder{}
	if filter.Subject != "" {
		where.add("subject", filter.Subject)
	}
	if filter.ApplicationID != nil {
		where.add("application_id", *filter.ApplicationID)
	}
	if filter.Status != "" {
		where.add("status", string(filter.Status))
	}
	return where
}

func authorizationArgs(authz *oauthDomain.Authorization) ([]any, error) {
	scopes, err := repository.EncodeStrings(authz.Scopes)
	if err != nil {
		return nil, err
	}
	properties, err := repository.EncodeProperties(authz.Properties)
	if err != nil {
		return nil, err
	}

	return []any{
		nullUUID(authz.ApplicationID),
		authz.Subject,
		string(authz.Type),
		string(authz.Status),
		scopes,
		properties,
		authz.CreatedAt,
	}, nil
}

func authorizationUpdateArgs(authz *oauthDomain.Authorization) ([]any, error) {
	scopes, err := repository.EncodeStrings(authz.Scopes)
	if err != nil {
		return nil, err
	}
	properties, err := repository.EncodeProperties(authz.Properties)
	if err != nil {
		return nil, err
	}

	return []any{nullUUID(authz.ApplicationID), authz.Subject, string(authz.Type), scopes, properties}, nil
}

func scanAuthorization(row rowScanner) (*oauthDomain.Authorization, error) {
	var authz oauthDomain.Authorization
	var applicationID uuid.NullUUID
	var authzType, status string
	var scopes, properties []byte

	if err := row.Scan(
		&authz.ID,
		&applicationID,
		&authz.Subject,
		&authzType,
		&status,
		&scopes,
		&properties,
		&authz.CreatedAt,
	); err != nil {
		return nil, err
	}

	authz.ApplicationID = uuidPtr(applicationID)
	authz.Type = oauthDomain.AuthorizationType(authzType)
	authz.Status = oauthDomain.AuthorizationStatus(status)

	var err error
	if authz.Scopes, err = repository.DecodeStrings(scopes); err != nil {
		return nil, err
	}
	if authz.Properties, err = repository.DecodeProperties(properties); err != nil {
		return nil, err
	}

	return &authz, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func uuidPtr(id uuid.NullUUID) *uuid.UUID {
	if !id.Valid {
		return nil
	}
	value := id.UUID
	return &value
}

// NewPostgreSQLAuthorizationRepository creates a new PostgreSQL authorization repository.
func NewPostgreSQLAuthorizationRepository(db *sql.DB) *PostgreSQLAuthorizationRepository {
	return &PostgreSQLAuthorizationRepository{db: db}
}
